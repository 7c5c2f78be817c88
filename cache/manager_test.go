package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localstt/enginerr"
)

// seedSnapshot creates a blob plus snapshot symlink the way a completed
// download would, returning the snapshot path.
func seedSnapshot(t *testing.T, root string, repo repoID, filename string, content []byte) string {
	t.Helper()
	l := newLayout(root, repo)
	require.NoError(t, os.MkdirAll(l.blobsDir(), 0o755))
	blobPath := l.blobPath("testblob-" + filename)
	require.NoError(t, os.WriteFile(blobPath, content, 0o644))
	snapshotPath := l.snapshotFile(defaultRevision, filename)
	require.NoError(t, linkSnapshotToBlob(snapshotPath, blobPath))
	return snapshotPath
}

func TestFastPathEmitsZeroProgress(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager(root)
	require.NoError(t, err)

	repo := repoID{Owner: "acme", Repo: "vad"}
	seedSnapshot(t, root, repo, "model.json", []byte(`{"ok":true}`))

	var events []ProgressEvent
	opts := Options{Progress: func(ev ProgressEvent) { events = append(events, ev) }}

	path, err := m.ensureHubFile(context.Background(), repo, "model.json", "http://unreachable.invalid/model.json", opts)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Empty(t, events, "a valid cached file must resolve without any progress emission")
}

func TestEnsureDownloadsValidatesAndLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"weights":"stub"}`))
	}))
	defer srv.Close()

	root := t.TempDir()
	m, err := NewManager(root)
	require.NoError(t, err)
	m.httpClient = srv.Client()

	repo := repoID{Owner: "acme", Repo: "seg"}
	path, err := m.ensureHubFile(context.Background(), repo, "config.json", srv.URL+"/config.json", Options{})
	require.NoError(t, err)

	info, err := os.Lstat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink, "snapshot entry must be a symlink into blobs")

	target, err := resolveBlobTarget(path)
	require.NoError(t, err)
	assert.Equal(t, "blobs", filepath.Base(filepath.Dir(target)))
}

func TestCorruptSnapshotIsDiscardedAndRedownloaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fresh":true}`))
	}))
	defer srv.Close()

	root := t.TempDir()
	m, err := NewManager(root)
	require.NoError(t, err)
	m.httpClient = srv.Client()

	repo := repoID{Owner: "acme", Repo: "emb"}
	// Zero-byte .json fails the >= 1 byte validation.
	stale := seedSnapshot(t, root, repo, "config.json", nil)

	path, err := m.ensureHubFile(context.Background(), repo, "config.json", srv.URL+"/config.json", Options{})
	require.NoError(t, err)
	require.NoError(t, validateBlob(path))

	staleTarget := filepath.Join(newLayout(root, repo).blobsDir(), "testblob-config.json")
	assert.NoFileExists(t, staleTarget, "the corrupt blob must be deleted alongside its snapshot entry")
	require.NoError(t, validateBlob(stale), "the re-downloaded file relinks the same snapshot name")
}

func TestDeleteUnlinksSnapshotButKeepsBlobUntilGC(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager(root)
	require.NoError(t, err)

	content := make([]byte, minBinarySize)
	snapshot := seedSnapshot(t, root, whisperRepo, "ggml-tiny.bin", content)
	blobPath, err := resolveBlobTarget(snapshot)
	require.NoError(t, err)

	require.True(t, m.Delete("tiny"))
	assert.NoFileExists(t, snapshot)
	assert.FileExists(t, blobPath, "Delete must never remove blob targets directly")

	require.NoError(t, m.CleanupOrphanedBlobs())
	assert.NoFileExists(t, blobPath, "orphan GC must reclaim the now-unreferenced blob")
}

func TestCleanupOrphanedBlobsKeepsReferencedBlobs(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager(root)
	require.NoError(t, err)

	snapshot := seedSnapshot(t, root, whisperRepo, "ggml-base.bin", make([]byte, minBinarySize))
	blobPath, err := resolveBlobTarget(snapshot)
	require.NoError(t, err)

	require.NoError(t, m.CleanupOrphanedBlobs())
	assert.FileExists(t, blobPath, "a blob referenced by a live snapshot must survive GC")
}

func TestCleanupStaleLocksSweepsPartialArtifacts(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager(root)
	require.NoError(t, err)

	l := newLayout(root, whisperRepo)
	require.NoError(t, os.MkdirAll(l.blobsDir(), 0o755))
	part := filepath.Join(l.blobsDir(), "download123.part")
	lock := filepath.Join(l.blobsDir(), "download123.part.lock")
	require.NoError(t, os.WriteFile(part, []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(lock, nil, 0o644))

	require.NoError(t, m.CleanupStaleLocks())
	assert.NoFileExists(t, part)
	assert.NoFileExists(t, lock)
}

func TestNewDownloadCancelsInFlightPredecessor(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		if r.URL.Path == "/slow.json" {
			<-release
		}
		w.Write([]byte(`{"done":true}`))
	}))
	defer srv.Close()
	defer close(release)

	root := t.TempDir()
	m, err := NewManager(root)
	require.NoError(t, err)
	m.httpClient = srv.Client()

	firstErr := make(chan error, 1)
	go func() {
		_, err := m.ensureHubFile(context.Background(), repoID{Owner: "acme", Repo: "a"}, "slow.json", srv.URL+"/slow.json", Options{})
		firstErr <- err
	}()
	<-started

	// Second ensure supersedes the first: the single-flight slot cancels
	// the in-flight download before starting its own.
	path, err := m.ensureHubFile(context.Background(), repoID{Owner: "acme", Repo: "b"}, "fast.json", srv.URL+"/fast.json", Options{})
	require.NoError(t, err)
	require.NoError(t, validateBlob(path))

	err = <-firstErr
	require.Error(t, err)
	assert.True(t, enginerr.IsCancelled(err), "superseded download must unwind as Cancelled, got %v", err)
}

func TestEnsureWhisperRejectsUnknownVariant(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager(root)
	require.NoError(t, err)

	_, err = m.EnsureWhisper(context.Background(), "colossal-v9", Options{})
	require.Error(t, err)
	kind, ok := enginerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, enginerr.NotFound, kind)
}

func TestParseHubURLExtractsRepoAndFilename(t *testing.T) {
	repo, file := parseHubURL("https://huggingface.co/acme/seg-model/resolve/main/pyannote.onnx")
	assert.Equal(t, "acme", repo.Owner)
	assert.Equal(t, "seg-model", repo.Repo)
	assert.Equal(t, "pyannote.onnx", file)

	repo, file = parseHubURL("https://example.com/models/other.onnx")
	assert.Equal(t, "external", repo.Owner)
	assert.NotEmpty(t, repo.Repo)
	assert.Equal(t, "other.onnx", file)
}
