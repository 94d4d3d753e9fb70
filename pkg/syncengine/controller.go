package syncengine

import (
	"context"
	"errors"
	"sync"

	"github.com/famvault/cli/internal/logging"
	"github.com/famvault/cli/pkg/mediasource"
	"github.com/famvault/cli/pkg/model"
)

// Controller orchestrates a backup run through the
// idle → scanning → uploading → {complete|paused|error} state machine and
// broadcasts a progress snapshot after every state change and every
// processed item.
//
// At most one run is active per controller; Start while a run is in flight
// is rejected with ErrBackupRunning. Terminal states are re-enterable: a
// fresh Start from complete, paused or error begins a new run.
type Controller struct {
	mu       sync.Mutex
	progress model.BackupProgress
	pauseReq bool
	done     chan struct{}

	source mediasource.Source
	remote RemoteStore
	cache  *SyncCache
	log    *BackupLog
	cfg    Config
	logger logging.Logger

	pipeline   *UploadPipeline
	reconciler *Reconciler

	events chan model.BackupProgress
}

// eventBuffer must comfortably hold one snapshot per item of a run so a
// subscriber that only drains at the end never stalls the run loop.
const eventBuffer = 1024

func NewController(source mediasource.Source, remote RemoteStore, cache *SyncCache, log *BackupLog, cfg Config, logger logging.Logger) *Controller {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	return &Controller{
		progress:   model.BackupProgress{State: model.BackupStateIdle},
		source:     source,
		remote:     remote,
		cache:      cache,
		log:        log,
		cfg:        cfg,
		logger:     logger,
		pipeline:   NewUploadPipeline(source, remote, cache, log, cfg, logger),
		reconciler: NewReconciler(remote, cache, cfg.BatchSize),
		events:     make(chan model.BackupProgress, eventBuffer),
	}
}

// Events returns the progress stream. Snapshots are delivered in the order
// they occur; there is one logical subscriber.
func (c *Controller) Events() <-chan model.BackupProgress {
	return c.events
}

// Progress returns the latest snapshot.
func (c *Controller) Progress() model.BackupProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// State returns the current controller state.
func (c *Controller) State() model.BackupState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress.State
}

// Cache exposes the reconciliation ledger for read-only consumers.
func (c *Controller) Cache() *SyncCache { return c.cache }

// Log exposes the backup audit log.
func (c *Controller) Log() *BackupLog { return c.log }

// Start begins a backup run asynchronously. It returns ErrBackupRunning
// while a run is already scanning or uploading; the in-flight run is not
// disturbed.
func (c *Controller) Start(ctx context.Context, filter mediasource.Filter) error {
	c.mu.Lock()
	switch c.progress.State {
	case model.BackupStateScanning, model.BackupStateUploading:
		c.mu.Unlock()
		return ErrBackupRunning
	}
	if err := c.cache.Load(); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.log.Load(); err != nil {
		c.mu.Unlock()
		return err
	}

	c.pauseReq = false
	c.done = make(chan struct{})
	c.progress = model.BackupProgress{State: model.BackupStateScanning}
	snapshot := c.progress
	done := c.done
	c.mu.Unlock()

	c.events <- snapshot
	go func() {
		defer close(done)
		c.run(ctx, filter)
	}()
	return nil
}

// Pause requests a cooperative stop. It only sets a flag the run loop
// checks at item and batch boundaries; an in-flight transfer is never
// aborted and its outcome is recorded before the loop exits. Pausing an
// idle or terminal controller is a no-op.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.progress.State {
	case model.BackupStateScanning, model.BackupStateUploading:
		c.pauseReq = true
	}
}

// Wait blocks until the current run reaches a terminal state. It returns
// immediately when no run is active.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// stopRequested reports whether the run loop should exit at the next
// boundary, either because Pause was called or because the caller's
// context was cancelled.
func (c *Controller) stopRequested(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pauseReq
}

// update mutates the snapshot under the lock and broadcasts the result.
func (c *Controller) update(fn func(p *model.BackupProgress)) {
	c.mu.Lock()
	fn(&c.progress)
	snapshot := c.progress
	c.mu.Unlock()
	c.events <- snapshot
}

func (c *Controller) run(ctx context.Context, filter mediasource.Filter) {
	c.logger.Info(ctx, "backup run started")
	stop := func() bool { return c.stopRequested(ctx) }

	items, err := c.source.Enumerate(ctx, filter)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.finish(ctx, model.BackupStatePaused, "")
			return
		}
		c.finish(ctx, model.BackupStateError, "failed to enumerate media: "+err.Error())
		return
	}

	c.update(func(p *model.BackupProgress) { p.TotalCount = len(items) })
	if len(items) == 0 {
		c.finish(ctx, model.BackupStateComplete, "")
		return
	}

	// Partition: items the cache alone proves synced are skipped without
	// any network call; the rest must be fingerprinted.
	var unknown []model.MediaItem
	for _, item := range items {
		if stop() {
			c.finish(ctx, model.BackupStatePaused, "")
			return
		}
		if c.cache.IsLocallySynced(item.LocalID, item.Size) {
			c.log.LogSkip(item.DisplayName, "already backed up")
			c.update(func(p *model.BackupProgress) { p.SkippedCount++ })
			continue
		}
		unknown = append(unknown, item)
	}

	// Fingerprint the unknown set, reusing digests recorded in earlier
	// runs for local ids whose size still matches.
	var candidates []model.MediaItem
	fingerprints := make(map[string]string, len(unknown))
	for _, item := range unknown {
		if stop() {
			c.finish(ctx, model.BackupStatePaused, "")
			return
		}
		c.update(func(p *model.BackupProgress) { p.CurrentItemName = item.DisplayName })

		fingerprint := c.cache.FingerprintFor(item.LocalID, item.Size)
		if fingerprint == "" {
			data, err := c.source.ReadBytes(ctx, item)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					c.finish(ctx, model.BackupStatePaused, "")
					return
				}
				c.log.LogError(item.DisplayName, "source item unavailable")
				c.update(func(p *model.BackupProgress) { p.SkippedCount++ })
				continue
			}
			fingerprint = Fingerprint(data)
			c.cache.RecordLocalFingerprint(item.LocalID, fingerprint, int64(len(data)))
		}
		fingerprints[item.LocalID] = fingerprint

		// Identical content may already be mapped under another local id.
		if c.cache.RemoteIdentityFor(fingerprint) != "" {
			c.log.LogSkip(item.DisplayName, "identical content already backed up")
			c.update(func(p *model.BackupProgress) { p.SkippedCount++ })
			continue
		}
		candidates = append(candidates, item)
	}

	c.update(func(p *model.BackupProgress) {
		p.State = model.BackupStateUploading
		p.CurrentItemName = ""
	})

	// Reconcile the unresolved fingerprints against the server in bounded
	// batches. A batch failure aborts the remainder of the run but keeps
	// every duplicate already merged into the cache.
	pending := make([]string, 0, len(candidates))
	for _, item := range candidates {
		pending = append(pending, fingerprints[item.LocalID])
	}
	existing, err := c.reconciler.Reconcile(ctx, pending, stop)
	if err != nil {
		c.flushState(ctx)
		if errors.Is(err, context.Canceled) {
			c.finish(ctx, model.BackupStatePaused, "")
			return
		}
		c.finish(ctx, model.BackupStateError, err.Error())
		return
	}
	if stop() {
		c.finish(ctx, model.BackupStatePaused, "")
		return
	}

	var targets []model.MediaItem
	for _, item := range candidates {
		if existing[fingerprints[item.LocalID]] {
			c.log.LogSkip(item.DisplayName, "server already had this content")
			c.update(func(p *model.BackupProgress) { p.SkippedCount++ })
			continue
		}
		targets = append(targets, item)
	}

	// Transfer phase: sequential, one item at a time. A pause requested
	// while an item is in flight takes effect here, after that item's
	// outcome has been counted and recorded.
	var persistErr error
	for _, item := range targets {
		if stop() {
			c.finish(ctx, model.BackupStatePaused, "")
			return
		}
		c.update(func(p *model.BackupProgress) { p.CurrentItemName = item.DisplayName })

		result, err := c.pipeline.Process(ctx, item, fingerprints[item.LocalID])
		if err != nil && persistErr == nil {
			persistErr = err
		}
		switch result {
		case ItemUploaded:
			c.update(func(p *model.BackupProgress) { p.UploadedCount++ })
		case ItemSkipped:
			c.update(func(p *model.BackupProgress) { p.SkippedCount++ })
		case ItemFailed:
			c.update(func(p *model.BackupProgress) { p.FailedCount++ })
		case ItemCancelled:
			c.finish(ctx, model.BackupStatePaused, "")
			return
		}
	}

	if persistErr != nil {
		c.finish(ctx, model.BackupStateError, "failed to persist sync state: "+persistErr.Error())
		return
	}
	c.finish(ctx, model.BackupStateComplete, "")
}

// flushState writes cache and log through to the durable store,
// best-effort.
func (c *Controller) flushState(ctx context.Context) {
	if err := c.cache.Persist(); err != nil {
		c.logger.Error(ctx, "failed to persist sync cache", "err", err)
	}
	if err := c.log.Persist(); err != nil {
		c.logger.Error(ctx, "failed to persist backup log", "err", err)
	}
}

func (c *Controller) finish(ctx context.Context, state model.BackupState, errMsg string) {
	c.flushState(ctx)
	c.mu.Lock()
	c.pauseReq = false
	c.progress.State = state
	c.progress.CurrentItemName = ""
	c.progress.ErrorMessage = errMsg
	snapshot := c.progress
	c.mu.Unlock()
	c.events <- snapshot
	c.logger.Info(ctx, "backup run finished", "state", string(state), "summary", snapshot.Summary())
}
