package mediasource

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/famvault/cli/pkg/model"
	"github.com/rwcarlsen/goexif/exif"
)

// Supported media extensions
var supportedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".heic": true,
	".heif": true,
	".tiff": true,
	".tif":  true,
}

var supportedVideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".m4v":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// IsMediaFile checks if a file is a supported photo or video
func IsMediaFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return supportedImageExtensions[ext] || supportedVideoExtensions[ext]
}

// IsVideoFile checks if a file is a supported video
func IsVideoFile(path string) bool {
	return supportedVideoExtensions[strings.ToLower(filepath.Ext(path))]
}

// FSSource is a Source backed by a directory tree of media files. The
// stable local id of an item is its path relative to the root, so the same
// file keeps its identity across runs even when the tree is rescanned.
type FSSource struct {
	root string
}

func NewFSSource(root string) (*FSSource, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media dir '%s': %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat media dir '%s': %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("media dir '%s' is not a directory", root)
	}
	return &FSSource{root: absRoot}, nil
}

// Enumerate walks the root and returns matching media items in a stable
// lexical order.
func (s *FSSource) Enumerate(ctx context.Context, filter Filter) ([]model.MediaItem, error) {
	var items []model.MediaItem
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !IsMediaFile(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		item := model.MediaItem{
			LocalID:     filepath.ToSlash(rel),
			DisplayName: filepath.Base(path),
			IsVideo:     IsVideoFile(path),
			Size:        info.Size(),
			TakenAt:     takenAt(path, info.ModTime()),
		}
		if filter.Matches(item) {
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate media dir: %w", err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].LocalID < items[j].LocalID })
	return items, nil
}

// ReadBytes loads the raw bytes of an item. A file that vanished or became
// unreadable since enumeration maps to ErrItemUnavailable.
func (s *FSSource) ReadBytes(ctx context.Context, item model.MediaItem) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(item.LocalID)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrItemUnavailable, item.LocalID, err)
	}
	return data, nil
}

// takenAt extracts the capture time from EXIF, falling back to the file
// modification time. Display metadata only; it never feeds the fingerprint.
func takenAt(path string, fallback time.Time) time.Time {
	f, err := os.Open(path)
	if err != nil {
		return fallback
	}
	defer f.Close()

	exifData, err := exif.Decode(f)
	if err != nil {
		// Not all media carries EXIF, this is not an error
		return fallback
	}
	if dt, err := exifData.DateTime(); err == nil {
		return dt
	}
	return fallback
}
