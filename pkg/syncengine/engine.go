// Package syncengine implements the backup synchronization engine: the
// reconciliation cache, the audit log, the batch duplicate-check
// reconciler, the sequential upload pipeline and the controller state
// machine tying them together.
//
// The engine never talks to concrete storage or transport. It consumes a
// durable KeyValueStore, a RemoteStore and a mediasource.Source, all
// injected at construction so tests can substitute in-memory fakes.
package syncengine

import (
	"context"
	"errors"
	"time"

	"github.com/famvault/cli/pkg/model"
)

// ErrBackupRunning is returned by Start while a run is already active.
var ErrBackupRunning = errors.New("a backup run is already in progress")

// KeyValueStore is the durable map the cache and log persist through.
// Get returns nil (not an error) for an absent key.
type KeyValueStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// RemoteStore is the narrow remote-server contract the engine consumes.
type RemoteStore interface {
	// CheckDuplicates returns the subset of fingerprints the server
	// already stores. Any fingerprint not listed is implicitly new.
	CheckDuplicates(ctx context.Context, fingerprints []string) ([]string, error)

	// Upload transfers one item's raw bytes together with its
	// precomputed fingerprint and returns the server-assigned remote id.
	// A server-side duplicate hit is not an error: it returns the
	// existing id with duplicate=true.
	Upload(ctx context.Context, item model.MediaItem, data []byte, fingerprint string) (remoteID string, duplicate bool, err error)
}

// Config bounds a backup run.
type Config struct {
	// BatchSize caps the number of fingerprints per duplicate-check call.
	BatchSize int
	// MaxRetries caps upload attempts per item.
	MaxRetries int
	// RetryBaseDelay is the backoff unit between attempts.
	RetryBaseDelay time.Duration
	// LogCap bounds the persisted backup log; 0 means DefaultLogCap.
	LogCap int
}

// DefaultConfig mirrors the defaults exposed as CLI flags.
func DefaultConfig() Config {
	return Config{
		BatchSize:      50,
		MaxRetries:     3,
		RetryBaseDelay: 2 * time.Second,
		LogCap:         DefaultLogCap,
	}
}
