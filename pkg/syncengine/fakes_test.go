package syncengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/famvault/cli/internal/logging"
	"github.com/famvault/cli/pkg/mediasource"
	"github.com/famvault/cli/pkg/model"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// memKV is an in-memory KeyValueStore standing in for the bbolt-backed one.
type memKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	failSet bool
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *memKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errors.New("store unavailable")
	}
	out := make([]byte, len(value))
	copy(out, value)
	m.data[key] = out
	return nil
}

// fakeSource serves a fixed item list with per-item payloads. When
// enumerateGate is set, Enumerate blocks until a token arrives or the
// context is cancelled.
type fakeSource struct {
	items         []model.MediaItem
	data          map[string][]byte
	unavailable   map[string]bool
	enumerateErr  error
	enumerateGate chan struct{}
}

func newFakeSource(items ...model.MediaItem) *fakeSource {
	return &fakeSource{
		items:       items,
		data:        make(map[string][]byte),
		unavailable: make(map[string]bool),
	}
}

func (s *fakeSource) Enumerate(ctx context.Context, filter mediasource.Filter) ([]model.MediaItem, error) {
	if s.enumerateGate != nil {
		select {
		case <-s.enumerateGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.enumerateErr != nil {
		return nil, s.enumerateErr
	}
	out := make([]model.MediaItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *fakeSource) ReadBytes(ctx context.Context, item model.MediaItem) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.unavailable[item.LocalID] {
		return nil, fmt.Errorf("%w: %s", mediasource.ErrItemUnavailable, item.LocalID)
	}
	data, ok := s.data[item.LocalID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", mediasource.ErrItemUnavailable, item.LocalID)
	}
	return data, nil
}

// fakeRemote records every call and can be programmed with pre-existing
// content, transient upload failures and a failing duplicate-check call.
// When uploadGate is set, each Upload consumes one token before
// proceeding, so tests can hold a run at a known point.
type fakeRemote struct {
	mu             sync.Mutex
	existing       map[string]bool
	uploadFailures map[string]int
	failCheckFrom  int
	uploadGate     chan struct{}

	checkCalls     [][]string
	uploads        []string
	uploadHashes   map[string]string
	uploadsStarted int
	nextID         int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		existing:       make(map[string]bool),
		uploadFailures: make(map[string]int),
		uploadHashes:   make(map[string]string),
	}
}

func (r *fakeRemote) CheckDuplicates(ctx context.Context, fingerprints []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call := make([]string, len(fingerprints))
	copy(call, fingerprints)
	r.checkCalls = append(r.checkCalls, call)
	if r.failCheckFrom > 0 && len(r.checkCalls) >= r.failCheckFrom {
		return nil, errors.New("server unreachable")
	}
	var hits []string
	for _, f := range fingerprints {
		if r.existing[f] {
			hits = append(hits, f)
		}
	}
	return hits, nil
}

func (r *fakeRemote) Upload(ctx context.Context, item model.MediaItem, data []byte, fingerprint string) (string, bool, error) {
	r.mu.Lock()
	r.uploadsStarted++
	r.mu.Unlock()
	if r.uploadGate != nil {
		select {
		case <-r.uploadGate:
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := r.uploadFailures[item.LocalID]; n > 0 {
		r.uploadFailures[item.LocalID] = n - 1
		return "", false, errors.New("connection reset")
	}
	r.uploadHashes[item.LocalID] = fingerprint
	if r.existing[fingerprint] {
		return "dup-" + fingerprint[:8], true, nil
	}
	r.existing[fingerprint] = true
	r.nextID++
	r.uploads = append(r.uploads, item.LocalID)
	return fmt.Sprintf("photo-%d", r.nextID), false, nil
}

func (r *fakeRemote) uploadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.uploads)
}

func (r *fakeRemote) uploadsStartedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uploadsStarted
}

func (r *fakeRemote) checkCallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.checkCalls)
}
