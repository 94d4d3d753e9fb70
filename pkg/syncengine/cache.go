package syncengine

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/famvault/cli/pkg/model"
)

// localEntry is what the cache remembers about a local id: the fingerprint
// last computed for it and the byte size of the content that produced it.
// The size is a cheap validator; when the current size differs the cached
// fingerprint is stale and the item must be re-hashed.
type localEntry struct {
	Fingerprint string `json:"fingerprint"`
	Size        int64  `json:"size"`
}

// SyncCache is the durable reconciliation ledger: it maps content
// fingerprints to remote identities and local ids to the fingerprint last
// computed for them. If a local id resolves (with a matching size) to a
// fingerprint with a known remote identity, the item is considered synced
// without any network call.
//
// All writes are monotonic upserts. Nothing ever removes a mapping during
// normal operation; clearing the cache is an explicit user-initiated reset
// handled outside the engine. Concurrent reads (e.g. the UI asking whether
// an item is synced while a run is active) are safe behind the RWMutex.
type SyncCache struct {
	mu sync.RWMutex
	kv KeyValueStore

	fingerprintToRemote map[string]string
	localEntries        map[string]localEntry
	loaded              bool
}

func NewSyncCache(kv KeyValueStore) *SyncCache {
	return &SyncCache{
		kv:                  kv,
		fingerprintToRemote: make(map[string]string),
		localEntries:        make(map[string]localEntry),
	}
}

// Load hydrates the in-memory maps from the durable store. It is
// idempotent: after the first successful load further calls are no-ops.
// Malformed persisted data is treated as a cache miss, never as a failure;
// a corrupt blob only costs a re-reconciliation on the next run.
func (c *SyncCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}
	c.fingerprintToRemote = loadStringMap(c.kv, model.FingerprintMapKey)
	c.localEntries = loadLocalEntries(c.kv, model.LocalIDMapKey)
	c.loaded = true
	return nil
}

func loadStringMap(kv KeyValueStore, key string) map[string]string {
	m := make(map[string]string)
	value, err := kv.Get(key)
	if err != nil || value == nil {
		return m
	}
	if err := json.Unmarshal(value, &m); err != nil {
		// Treat malformed persisted data as empty
		return make(map[string]string)
	}
	return m
}

func loadLocalEntries(kv KeyValueStore, key string) map[string]localEntry {
	m := make(map[string]localEntry)
	value, err := kv.Get(key)
	if err != nil || value == nil {
		return m
	}
	if err := json.Unmarshal(value, &m); err != nil {
		return make(map[string]localEntry)
	}
	return m
}

// IsLocallySynced reports whether an item is known synced from cache
// alone: a fingerprint is recorded for the local id, the recorded size
// still matches, and that fingerprint maps to a remote identity. No
// network access, ever.
func (c *SyncCache) IsLocallySynced(localID string, size int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.localEntries[localID]
	if !ok || entry.Size != size {
		return false
	}
	_, ok = c.fingerprintToRemote[entry.Fingerprint]
	return ok
}

// FingerprintFor returns the fingerprint last computed for a local id, or
// "" when the item has never been hashed or its size no longer matches the
// recorded one.
func (c *SyncCache) FingerprintFor(localID string, size int64) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.localEntries[localID]
	if !ok || entry.Size != size {
		return ""
	}
	return entry.Fingerprint
}

// RemoteIdentityFor returns the remote identity for a fingerprint, or ""
// when the fingerprint is not known to exist remotely.
func (c *SyncCache) RemoteIdentityFor(fingerprint string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fingerprintToRemote[fingerprint]
}

// RecordLocalFingerprint records the fingerprint computed for a local id
// together with the size of the bytes that were hashed.
func (c *SyncCache) RecordLocalFingerprint(localID, fingerprint string, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.localEntries[localID] = localEntry{Fingerprint: fingerprint, Size: size}
}

// RecordMapping records a resolved remote identity for a fingerprint,
// after a successful upload or a server-confirmed duplicate. A concrete id
// always overwrites the existence sentinel, never the other way round.
func (c *SyncCache) RecordMapping(fingerprint, remoteID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if remoteID == model.SentinelExisting {
		if _, ok := c.fingerprintToRemote[fingerprint]; ok {
			return
		}
	}
	c.fingerprintToRemote[fingerprint] = remoteID
}

// MarkExisting bulk-records fingerprints the duplicate-check confirmed,
// using the existence sentinel since no concrete id was resolved.
func (c *SyncCache) MarkExisting(fingerprints []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fingerprint := range fingerprints {
		if _, ok := c.fingerprintToRemote[fingerprint]; !ok {
			c.fingerprintToRemote[fingerprint] = model.SentinelExisting
		}
	}
}

// Persist flushes both maps to the durable store. The in-memory state
// stays authoritative for the process lifetime even when the write fails;
// a crash before a successful flush self-heals via re-reconciliation.
func (c *SyncCache) Persist() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := persistJSON(c.kv, model.FingerprintMapKey, c.fingerprintToRemote); err != nil {
		return fmt.Errorf("failed to persist fingerprint map: %w", err)
	}
	if err := persistJSON(c.kv, model.LocalIDMapKey, c.localEntries); err != nil {
		return fmt.Errorf("failed to persist local id map: %w", err)
	}
	return nil
}

func persistJSON(kv KeyValueStore, key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return kv.Set(key, value)
}

// Len returns the number of fingerprints known to exist remotely.
func (c *SyncCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.fingerprintToRemote)
}
