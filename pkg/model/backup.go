package model

import (
	"fmt"
	"time"
)

// BackupState represents the current state of the sync controller
type BackupState string

const (
	BackupStateIdle      BackupState = "idle"
	BackupStateScanning  BackupState = "scanning"
	BackupStateUploading BackupState = "uploading"
	BackupStateComplete  BackupState = "complete"
	BackupStatePaused    BackupState = "paused"
	BackupStateError     BackupState = "error"
)

// Terminal reports whether the state ends a run. A fresh Start is allowed
// from any terminal state (and from idle).
func (s BackupState) Terminal() bool {
	switch s {
	case BackupStateComplete, BackupStatePaused, BackupStateError:
		return true
	default:
		return false
	}
}

// MediaItem is one enumerable item from the device media library.
// Instances are ephemeral and re-enumerated on each backup run; LocalID is
// the only identity that is stable across runs.
type MediaItem struct {
	LocalID     string
	DisplayName string
	IsVideo     bool
	Size        int64
	TakenAt     time.Time
}

// BackupProgress is a transient snapshot emitted after every controller
// state change and after every processed item.
type BackupProgress struct {
	State           BackupState
	TotalCount      int
	UploadedCount   int
	SkippedCount    int
	FailedCount     int
	CurrentItemName string
	ErrorMessage    string
}

// ProcessedCount returns how many items have reached a per-item outcome.
func (p BackupProgress) ProcessedCount() int {
	return p.UploadedCount + p.SkippedCount + p.FailedCount
}

// FractionComplete is clamped to [0,1] and is 0 for an empty run.
func (p BackupProgress) FractionComplete() float64 {
	if p.TotalCount <= 0 {
		return 0
	}
	f := float64(p.ProcessedCount()) / float64(p.TotalCount)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Summary returns the human-readable run summary shown to the user.
func (p BackupProgress) Summary() string {
	return formatSummary(p.UploadedCount, p.SkippedCount, p.FailedCount)
}

func formatSummary(uploaded, skipped, failed int) string {
	return fmt.Sprintf("%d uploaded, %d skipped, %d failed", uploaded, skipped, failed)
}

// LogOutcome classifies a backup log entry
type LogOutcome string

const (
	OutcomeSuccess LogOutcome = "success"
	OutcomeSkip    LogOutcome = "skip"
	OutcomeError   LogOutcome = "error"
)

// BackupLogEntry is one per-item outcome in the user-visible audit log
type BackupLogEntry struct {
	Timestamp int64      `json:"timestamp"` // microseconds since epoch
	Outcome   LogOutcome `json:"outcome"`
	Message   string     `json:"message"`
	Filename  string     `json:"filename,omitempty"`
}
