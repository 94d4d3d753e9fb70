package syncengine

import (
	"context"
	"fmt"
)

// Reconciler resolves fingerprints of unknown items against the remote
// store's batch duplicate-check, bounding request size for large libraries.
type Reconciler struct {
	remote    RemoteStore
	cache     *SyncCache
	batchSize int
}

func NewReconciler(remote RemoteStore, cache *SyncCache, batchSize int) *Reconciler {
	if batchSize <= 0 {
		batchSize = DefaultConfig().BatchSize
	}
	return &Reconciler{remote: remote, cache: cache, batchSize: batchSize}
}

// Reconcile splits fingerprints into batches of at most batchSize, asks
// the remote store which already exist and returns the union as a set;
// everything else is new. Confirmed duplicates are merged into the cache
// batch by batch, so a failing batch aborts the remainder but keeps every
// mapping committed so far.
//
// stop is consulted between batches only; an in-flight check call is never
// interrupted by it. When stop reports true the partial result is returned
// without error and the caller decides how to end the run. Input order is
// preserved across batches; a fingerprint appearing twice is deduplicated
// before batching.
func (r *Reconciler) Reconcile(ctx context.Context, fingerprints []string, stop func() bool) (map[string]bool, error) {
	existing := make(map[string]bool)

	unique := fingerprints[:0:0]
	seen := make(map[string]bool, len(fingerprints))
	for _, f := range fingerprints {
		if !seen[f] {
			seen[f] = true
			unique = append(unique, f)
		}
	}

	for start := 0; start < len(unique); start += r.batchSize {
		if err := ctx.Err(); err != nil {
			return existing, err
		}
		if stop != nil && stop() {
			return existing, nil
		}
		end := start + r.batchSize
		if end > len(unique) {
			end = len(unique)
		}
		batch := unique[start:end]

		hits, err := r.remote.CheckDuplicates(ctx, batch)
		if err != nil {
			return existing, fmt.Errorf("duplicate check failed: %w", err)
		}

		r.cache.MarkExisting(hits)
		for _, f := range hits {
			existing[f] = true
		}
	}
	return existing, nil
}
