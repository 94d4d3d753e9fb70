package syncengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/famvault/cli/internal/logging"
	"github.com/famvault/cli/pkg/mediasource"
	"github.com/famvault/cli/pkg/model"
)

// MaxUploadSize mirrors the server-side limit; larger items are recorded
// as permanent failures without wasting a transfer.
const MaxUploadSize = 100 * 1024 * 1024

// ItemResult is the per-item outcome of one pipeline pass.
type ItemResult int

const (
	ItemUploaded ItemResult = iota
	ItemSkipped
	ItemFailed
	ItemCancelled
)

// UploadPipeline transfers upload targets one at a time with bounded
// retries, updating the cache and the backup log as it goes. A single
// item's permanent failure never aborts the run.
type UploadPipeline struct {
	source mediasource.Source
	remote RemoteStore
	cache  *SyncCache
	log    *BackupLog
	cfg    Config
	logger logging.Logger
}

func NewUploadPipeline(source mediasource.Source, remote RemoteStore, cache *SyncCache, log *BackupLog, cfg Config, logger logging.Logger) *UploadPipeline {
	return &UploadPipeline{
		source: source,
		remote: remote,
		cache:  cache,
		log:    log,
		cfg:    cfg,
		logger: logger,
	}
}

// Process pushes one item through the pipeline. The returned error is a
// cache-persistence failure only: the item outcome already happened and is
// counted, but the durable flush did not complete.
//
// The fingerprint argument is a hint from the scan phase; the digest is
// recomputed from the bytes actually read here, so the hash sent with the
// upload always matches the payload even when the file changed between
// scanning and transfer.
//
// Ordering invariant: the cache mapping is recorded (and flushed) before
// Process returns, so a crash after an upload can at worst lose the
// durable write, which the next run self-heals via re-reconciliation.
func (p *UploadPipeline) Process(ctx context.Context, item model.MediaItem, fingerprint string) (ItemResult, error) {
	if err := ctx.Err(); err != nil {
		return ItemCancelled, nil
	}

	// An earlier item in this run may have resolved the same content.
	if p.cache.RemoteIdentityFor(fingerprint) != "" {
		p.log.LogSkip(item.DisplayName, "already backed up")
		return ItemSkipped, nil
	}

	data, err := p.source.ReadBytes(ctx, item)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ItemCancelled, nil
		}
		if errors.Is(err, mediasource.ErrItemUnavailable) {
			p.log.LogError(item.DisplayName, "source item unavailable")
			p.logger.Warn(ctx, "skipping unavailable item", "localId", item.LocalID)
			return ItemSkipped, nil
		}
		p.log.LogError(item.DisplayName, fmt.Sprintf("read failed: %v", err))
		return ItemSkipped, nil
	}

	if int64(len(data)) > MaxUploadSize {
		p.log.LogError(item.DisplayName, "file exceeds the 100MB upload limit")
		return ItemFailed, nil
	}

	if fresh := Fingerprint(data); fresh != fingerprint {
		fingerprint = fresh
		if p.cache.RemoteIdentityFor(fingerprint) != "" {
			p.cache.RecordLocalFingerprint(item.LocalID, fingerprint, int64(len(data)))
			p.log.LogSkip(item.DisplayName, "already backed up")
			return ItemSkipped, p.cache.Persist()
		}
	}

	var remoteID string
	var duplicate bool
	err = WithRetry(ctx, "upload "+item.DisplayName, func() error {
		var uploadErr error
		remoteID, duplicate, uploadErr = p.remote.Upload(ctx, item, data, fingerprint)
		return uploadErr
	}, p.cfg.MaxRetries, p.cfg.RetryBaseDelay)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ItemCancelled, nil
		}
		p.log.LogError(item.DisplayName, fmt.Sprintf("upload failed: %v", err))
		p.logger.Error(ctx, "upload failed permanently", "localId", item.LocalID, "err", err)
		return ItemFailed, nil
	}

	// Record before advancing so the remote never knows about an item the
	// cache has forgotten.
	p.cache.RecordMapping(fingerprint, remoteID)
	p.cache.RecordLocalFingerprint(item.LocalID, fingerprint, int64(len(data)))
	persistErr := p.cache.Persist()

	if duplicate {
		p.log.LogSkip(item.DisplayName, "server already had this content")
		return ItemSkipped, persistErr
	}
	p.log.LogSuccess(item.DisplayName, "uploaded")
	return ItemUploaded, persistErr
}
