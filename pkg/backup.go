package pkg

import (
	"context"
	"fmt"

	"github.com/famvault/cli/internal/api"
	"github.com/famvault/cli/pkg/mediasource"
	"github.com/famvault/cli/pkg/model"
	"github.com/famvault/cli/pkg/syncengine"
)

// remoteStore adapts the REST client to the engine's RemoteStore contract.
type remoteStore struct {
	client *api.Client
}

func (r *remoteStore) CheckDuplicates(ctx context.Context, fingerprints []string) ([]string, error) {
	res, err := r.client.CheckDuplicates(ctx, fingerprints)
	if err != nil {
		return nil, err
	}
	return res.Existing, nil
}

func (r *remoteStore) Upload(ctx context.Context, item model.MediaItem, data []byte, fingerprint string) (string, bool, error) {
	res, err := r.client.UploadPhoto(ctx, item.DisplayName, data, fingerprint)
	if err != nil {
		return "", false, err
	}
	return res.PhotoID, res.Status == api.UploadStatusDuplicate, nil
}

// NewBackupController wires a sync controller over this installation's
// durable state, the configured server and a filesystem media source
// rooted at mediaDir.
func (c *ClICtrl) NewBackupController(mediaDir string, cfg syncengine.Config) (*syncengine.Controller, error) {
	if c.Client == nil {
		return nil, fmt.Errorf("no server configured. Run 'famvault account set' first")
	}
	source, err := mediasource.NewFSSource(mediaDir)
	if err != nil {
		return nil, err
	}

	kv := &boltKV{ctrl: c}
	cache := syncengine.NewSyncCache(kv)
	backupLog := syncengine.NewBackupLog(kv, cfg.LogCap)

	return syncengine.NewController(
		source,
		&remoteStore{client: c.Client},
		cache,
		backupLog,
		cfg,
		c.Logger,
	), nil
}

// BackupLogEntries returns the persisted audit log, newest first.
func (c *ClICtrl) BackupLogEntries() ([]model.BackupLogEntry, error) {
	backupLog := syncengine.NewBackupLog(&boltKV{ctrl: c}, 0)
	if err := backupLog.Load(); err != nil {
		return nil, err
	}
	return backupLog.Entries(), nil
}
