package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// PidPath returns the pidfile location for one daemonized mode.
func PidPath(name string) string {
	return filepath.Join(os.TempDir(), "blockbot-"+name+".pid")
}

// LogPath returns the log file the detached process writes to.
func LogPath(name string) string {
	return filepath.Join(os.TempDir(), "blockbot-"+name+".log")
}

// Spawn re-executes the current binary with args in its own session,
// detached from the terminal. Stdout and stderr go to logPath; the child's
// pid is written to pidPath. Returns the child pid.
func Spawn(args []string, pidPath, logPath string) (int, error) {
	if running, pid, _ := Status(pidPath); running {
		return 0, fmt.Errorf("already running with pid %d", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("resolve executable: %w", err)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(exe, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start detached process: %w", err)
	}

	pid := cmd.Process.Pid
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		_ = cmd.Process.Kill()
		return 0, fmt.Errorf("write pidfile: %w", err)
	}

	// The child owns its session now; never wait on it.
	_ = cmd.Process.Release()

	return pid, nil
}

// Stop sends SIGTERM to the process named by the pidfile. Termination is
// cooperative: the process finishes its in-flight page before exiting.
func Stop(pidPath string) (int, error) {
	pid, err := readPid(pidPath)
	if err != nil {
		return 0, err
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("find process %d: %w", pid, err)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		_ = os.Remove(pidPath)
		return 0, fmt.Errorf("process %d not running", pid)
	}

	return pid, nil
}

// Status reports whether the pidfile points at a live process. A missing
// pidfile means not running; a stale one reports the dead pid.
func Status(pidPath string) (bool, int, error) {
	pid, err := readPid(pidPath)
	if errors.Is(err, os.ErrNotExist) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, pid, nil
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false, pid, nil
	}

	return true, pid, nil
}

func readPid(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, fmt.Errorf("read pidfile: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pidfile %s: %w", pidPath, err)
	}
	return pid, nil
}
