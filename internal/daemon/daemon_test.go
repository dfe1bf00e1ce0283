package daemon

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPidPath(t *testing.T) {
	p := PidPath("followers")
	require.True(t, strings.HasPrefix(p, os.TempDir()))
	require.True(t, strings.HasSuffix(p, "blockbot-followers.pid"))
}

func TestStatus_NoPidfile(t *testing.T) {
	running, pid, err := Status(filepath.Join(t.TempDir(), "missing.pid"))
	require.NoError(t, err)
	require.False(t, running)
	require.Zero(t, pid)
}

func TestStatus_CorruptPidfile(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "bad.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte("not-a-pid"), 0o644))

	_, _, err := Status(pidPath)
	require.Error(t, err)
}

func TestStatus_LiveProcess(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "live.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644))

	running, pid, err := Status(pidPath)
	require.NoError(t, err)
	require.True(t, running)
	require.Equal(t, os.Getpid(), pid)
}

func TestStatus_DeadProcess(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())

	pidPath := filepath.Join(t.TempDir(), "dead.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(cmd.Process.Pid)), 0o644))

	running, pid, err := Status(pidPath)
	require.NoError(t, err)
	require.False(t, running)
	require.Equal(t, cmd.Process.Pid, pid)
}

func TestStop_NoPidfile(t *testing.T) {
	_, err := Stop(filepath.Join(t.TempDir(), "missing.pid"))
	require.Error(t, err)
}

func TestStop_SignalsProcess(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())

	pidPath := filepath.Join(t.TempDir(), "run.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(cmd.Process.Pid)), 0o644))

	pid, err := Stop(pidPath)
	require.NoError(t, err)
	require.Equal(t, cmd.Process.Pid, pid)

	// SIGTERM ends the sleep with a non-zero wait status.
	require.Error(t, cmd.Wait())
}

func TestStop_DeadProcessRemovesPidfile(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())

	pidPath := filepath.Join(t.TempDir(), "stale.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(cmd.Process.Pid)), 0o644))

	_, err := Stop(pidPath)
	require.Error(t, err)

	_, statErr := os.Stat(pidPath)
	require.True(t, os.IsNotExist(statErr))
}
