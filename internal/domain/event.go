package domain

import "time"

// BlockEvent is published for every block the pipeline issues.
type BlockEvent struct {
	Action     string    `json:"action"`
	RunID      string    `json:"run_id"`
	AccountID  string    `json:"account_id"`
	ScreenName string    `json:"screen_name"`
	Target     string    `json:"target"`
	MediaKind  MediaKind `json:"media_kind,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
