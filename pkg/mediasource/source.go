// Package mediasource abstracts the device media library the backup engine
// enumerates. The engine only ever sees the Source interface; the concrete
// filesystem implementation lives alongside it for the CLI.
package mediasource

import (
	"context"
	"errors"
	"time"

	"github.com/famvault/cli/pkg/model"
)

// ErrItemUnavailable is returned by ReadBytes when the underlying file
// vanished or became unreadable after enumeration.
var ErrItemUnavailable = errors.New("media item unavailable")

// Filter narrows a backup run's candidate set. The zero value matches
// everything.
type Filter struct {
	VideosOnly bool
	PhotosOnly bool
	TakenAfter time.Time
}

// Matches reports whether an item passes the filter.
func (f Filter) Matches(item model.MediaItem) bool {
	if f.VideosOnly && !item.IsVideo {
		return false
	}
	if f.PhotosOnly && item.IsVideo {
		return false
	}
	if !f.TakenAfter.IsZero() && item.TakenAt.Before(f.TakenAfter) {
		return false
	}
	return true
}

// Source supplies candidate media items and their raw bytes.
//
// Enumerate returns a finite ordered sequence; it is not restartable
// mid-run and a later call may return a different sequence. ReadBytes
// fails with ErrItemUnavailable if the item disappeared since enumeration.
type Source interface {
	Enumerate(ctx context.Context, filter Filter) ([]model.MediaItem, error)
	ReadBytes(ctx context.Context, item model.MediaItem) ([]byte, error)
}
