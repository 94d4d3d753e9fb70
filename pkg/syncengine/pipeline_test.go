package syncengine

import (
	"context"
	"testing"
	"time"

	"github.com/famvault/cli/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipelineFixture struct {
	source *fakeSource
	remote *fakeRemote
	kv     *memKV
	cache  *SyncCache
	log    *BackupLog
	p      *UploadPipeline
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	source := newFakeSource()
	remote := newFakeRemote()
	kv := newMemKV()
	cache := NewSyncCache(kv)
	require.NoError(t, cache.Load())
	log := NewBackupLog(kv, DefaultLogCap)
	require.NoError(t, log.Load())
	cfg := Config{BatchSize: 50, MaxRetries: 3, RetryBaseDelay: time.Millisecond}
	return &pipelineFixture{
		source: source,
		remote: remote,
		kv:     kv,
		cache:  cache,
		log:    log,
		p:      NewUploadPipeline(source, remote, cache, log, cfg, testLogger()),
	}
}

func (f *pipelineFixture) addItem(localID string, data []byte) model.MediaItem {
	item := model.MediaItem{LocalID: localID, DisplayName: localID, Size: int64(len(data))}
	f.source.items = append(f.source.items, item)
	f.source.data[localID] = data
	return item
}

func TestProcessUploadsNewItem(t *testing.T) {
	f := newPipelineFixture(t)
	data := []byte("sunset")
	item := f.addItem("sunset.jpg", data)
	fp := Fingerprint(data)

	result, err := f.p.Process(context.Background(), item, fp)
	require.NoError(t, err)
	assert.Equal(t, ItemUploaded, result)
	assert.Equal(t, []string{"sunset.jpg"}, f.remote.uploads)
	assert.Equal(t, "photo-1", f.cache.RemoteIdentityFor(fp))

	// The mapping was flushed before Process returned
	reloaded := NewSyncCache(f.kv)
	require.NoError(t, reloaded.Load())
	assert.True(t, reloaded.IsLocallySynced("sunset.jpg", int64(len(data))))

	entries := f.log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.OutcomeSuccess, entries[0].Outcome)
}

func TestProcessSkipsKnownFingerprint(t *testing.T) {
	f := newPipelineFixture(t)
	data := []byte("beach")
	item := f.addItem("beach.jpg", data)
	fp := Fingerprint(data)
	f.cache.RecordMapping(fp, "photo-9")

	result, err := f.p.Process(context.Background(), item, fp)
	require.NoError(t, err)
	assert.Equal(t, ItemSkipped, result)
	assert.Empty(t, f.remote.uploads)
}

func TestProcessUnavailableItemIsSkippedWithLogEntry(t *testing.T) {
	f := newPipelineFixture(t)
	item := f.addItem("gone.jpg", []byte("x"))
	f.source.unavailable["gone.jpg"] = true

	result, err := f.p.Process(context.Background(), item, "fp-gone")
	require.NoError(t, err)
	assert.Equal(t, ItemSkipped, result)
	assert.Empty(t, f.remote.uploads)

	entries := f.log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.OutcomeError, entries[0].Outcome)
	assert.Equal(t, "source item unavailable", entries[0].Message)
}

func TestProcessRejectsOversizedItem(t *testing.T) {
	f := newPipelineFixture(t)
	item := f.addItem("huge.mp4", make([]byte, MaxUploadSize+1))

	result, err := f.p.Process(context.Background(), item, "fp-huge")
	require.NoError(t, err)
	assert.Equal(t, ItemFailed, result)
	assert.Empty(t, f.remote.uploads)
}

func TestProcessRetriesTransientUploadFailure(t *testing.T) {
	f := newPipelineFixture(t)
	data := []byte("flaky")
	item := f.addItem("flaky.jpg", data)
	f.remote.uploadFailures["flaky.jpg"] = 2

	result, err := f.p.Process(context.Background(), item, Fingerprint(data))
	require.NoError(t, err)
	assert.Equal(t, ItemUploaded, result)
	assert.Equal(t, []string{"flaky.jpg"}, f.remote.uploads)
}

func TestProcessFailsAfterExhaustedRetries(t *testing.T) {
	f := newPipelineFixture(t)
	data := []byte("dead")
	item := f.addItem("dead.jpg", data)
	fp := Fingerprint(data)
	f.remote.uploadFailures["dead.jpg"] = 3

	result, err := f.p.Process(context.Background(), item, fp)
	require.NoError(t, err)
	assert.Equal(t, ItemFailed, result)
	assert.Empty(t, f.cache.RemoteIdentityFor(fp))

	entries := f.log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.OutcomeError, entries[0].Outcome)
}

func TestProcessServerDuplicateRecordsConcreteID(t *testing.T) {
	f := newPipelineFixture(t)
	data := []byte("known")
	item := f.addItem("known.jpg", data)
	fp := Fingerprint(data)
	f.remote.existing[fp] = true

	result, err := f.p.Process(context.Background(), item, fp)
	require.NoError(t, err)
	assert.Equal(t, ItemSkipped, result)
	assert.Empty(t, f.remote.uploads)

	// The duplicate response carried the existing id, not just existence
	remoteID := f.cache.RemoteIdentityFor(fp)
	assert.NotEmpty(t, remoteID)
	assert.NotEqual(t, model.SentinelExisting, remoteID)
}

func TestProcessReFingerprintsChangedBytes(t *testing.T) {
	f := newPipelineFixture(t)
	staleFP := Fingerprint([]byte("old bytes"))
	newData := []byte("new bytes, grown")
	item := f.addItem("edited.jpg", newData)

	result, err := f.p.Process(context.Background(), item, staleFP)
	require.NoError(t, err)
	assert.Equal(t, ItemUploaded, result)

	// The hash sent with the upload matches the payload, not the scan
	freshFP := Fingerprint(newData)
	assert.Equal(t, freshFP, f.remote.uploadHashes["edited.jpg"])
	assert.Equal(t, "photo-1", f.cache.RemoteIdentityFor(freshFP))
	assert.Empty(t, f.cache.RemoteIdentityFor(staleFP))
	assert.Equal(t, freshFP, f.cache.FingerprintFor("edited.jpg", int64(len(newData))))
}

func TestProcessChangedBytesAlreadyKnownRemotely(t *testing.T) {
	f := newPipelineFixture(t)
	staleFP := Fingerprint([]byte("old bytes"))
	newData := []byte("new bytes, grown")
	item := f.addItem("edited.jpg", newData)
	f.cache.RecordMapping(Fingerprint(newData), "photo-5")

	result, err := f.p.Process(context.Background(), item, staleFP)
	require.NoError(t, err)
	assert.Equal(t, ItemSkipped, result)
	assert.Empty(t, f.remote.uploads)
	assert.Equal(t, Fingerprint(newData), f.cache.FingerprintFor("edited.jpg", int64(len(newData))))
}

func TestProcessCancelledBeforeWork(t *testing.T) {
	f := newPipelineFixture(t)
	item := f.addItem("a.jpg", []byte("a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.p.Process(ctx, item, "fp-a")
	require.NoError(t, err)
	assert.Equal(t, ItemCancelled, result)
	assert.Empty(t, f.log.Entries())
}

func TestProcessReportsPersistFailure(t *testing.T) {
	f := newPipelineFixture(t)
	data := []byte("unsaved")
	item := f.addItem("unsaved.jpg", data)
	fp := Fingerprint(data)
	f.kv.failSet = true

	result, err := f.p.Process(context.Background(), item, fp)
	assert.Equal(t, ItemUploaded, result)
	require.Error(t, err)

	// In-memory state stays authoritative despite the failed flush
	assert.Equal(t, "photo-1", f.cache.RemoteIdentityFor(fp))
}
