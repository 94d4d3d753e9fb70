package syncengine

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/famvault/cli/pkg/model"
)

// DefaultLogCap bounds the backup log when no explicit cap is configured.
const DefaultLogCap = 100

// BackupLog is the capped, append-only record of per-item outcomes shown
// to the user. Entries are stored oldest-first and surfaced newest-first;
// once the cap is reached the oldest entry is dropped.
type BackupLog struct {
	mu      sync.RWMutex
	kv      KeyValueStore
	entries []model.BackupLogEntry
	cap     int
	loaded  bool
}

func NewBackupLog(kv KeyValueStore, cap int) *BackupLog {
	if cap <= 0 {
		cap = DefaultLogCap
	}
	return &BackupLog{kv: kv, cap: cap}
}

// Load hydrates the log from the durable store; idempotent, and malformed
// persisted data simply yields an empty log.
func (l *BackupLog) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return nil
	}
	l.loaded = true
	value, err := l.kv.Get(model.BackupLogKey)
	if err != nil || value == nil {
		return nil
	}
	var entries []model.BackupLogEntry
	if err := json.Unmarshal(value, &entries); err != nil {
		return nil
	}
	if len(entries) > l.cap {
		entries = entries[len(entries)-l.cap:]
	}
	l.entries = entries
	return nil
}

func (l *BackupLog) append(outcome model.LogOutcome, message, filename string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, model.BackupLogEntry{
		Timestamp: time.Now().UnixMicro(),
		Outcome:   outcome,
		Message:   message,
		Filename:  filename,
	})
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
}

// LogSuccess records a completed upload.
func (l *BackupLog) LogSuccess(filename, message string) {
	l.append(model.OutcomeSuccess, message, filename)
}

// LogSkip records an item resolved without an upload.
func (l *BackupLog) LogSkip(filename, message string) {
	l.append(model.OutcomeSkip, message, filename)
}

// LogError records a permanent per-item failure or a skip-with-error.
func (l *BackupLog) LogError(filename, message string) {
	l.append(model.OutcomeError, message, filename)
}

// Entries returns a copy of the log, newest first.
func (l *BackupLog) Entries() []model.BackupLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.BackupLogEntry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

// Persist flushes the log to the durable store.
func (l *BackupLog) Persist() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	value, err := json.Marshal(l.entries)
	if err != nil {
		return fmt.Errorf("failed to marshal backup log: %w", err)
	}
	if err := l.kv.Set(model.BackupLogKey, value); err != nil {
		return fmt.Errorf("failed to persist backup log: %w", err)
	}
	return nil
}
