package cache

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"localstt/enginerr"
)

// downloadSlot tracks the single process-wide in-flight download. At most
// one download runs at a time; a new Ensure* call cancels whichever
// download currently holds the slot.
type downloadSlot struct {
	cancel     context.CancelFunc
	generation uint64
	token      string // opaque uuid, useful for log correlation only
}

// Manager resolves, downloads, validates, and caches model artifacts
// under a single root directory using the hub-style snapshot/blob
// layout.
type Manager struct {
	root       string
	httpClient *http.Client

	mu         sync.Mutex
	active     *downloadSlot
	generation atomic.Uint64
}

// NewManager creates a Manager rooted at dir, creating it if necessary.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, enginerr.New(enginerr.IO, "cache.NewManager", err)
	}
	return &Manager{
		root:       dir,
		httpClient: &http.Client{Timeout: 0},
	}, nil
}

// beginDownload cancels any currently in-flight download, installs a new
// single-flight slot tagged with a fresh generation, and returns a
// context derived from ctx plus a cleanup func to call when done.
// Progress callbacks are wrapped so a superseded generation
// self-suppresses.
func (m *Manager) beginDownload(ctx context.Context, opts Options) (context.Context, Options, func()) {
	m.mu.Lock()
	if m.active != nil {
		log.Printf("Download superseded: cancelling generation %d (token %s)", m.active.generation, m.active.token)
		m.active.cancel()
	}
	gen := m.generation.Add(1)
	childCtx, cancel := context.WithCancel(ctx)
	slot := &downloadSlot{cancel: cancel, generation: gen, token: uuid.NewString()}
	m.active = slot
	m.mu.Unlock()

	wrapped := opts
	if opts.Progress != nil {
		userProgress := opts.Progress
		wrapped.Progress = func(ev ProgressEvent) {
			if m.generation.Load() != gen {
				return
			}
			userProgress(ev)
		}
	}

	done := func() {
		m.mu.Lock()
		if m.active == slot {
			m.active = nil
		}
		m.mu.Unlock()
		cancel()
	}
	return childCtx, wrapped, done
}

// sweepStaleArtifacts removes leftover .part/.lock/.incomplete files from
// a previous process crash or unclean cancellation. Best-effort, called
// opportunistically at the top of every Ensure*.
func (m *Manager) sweepStaleArtifacts() {
	filepath.WalkDir(m.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".part", ".lock", ".incomplete":
			os.Remove(path)
		}
		return nil
	})
}

// CleanupStaleLocks is the public entry point for the same sweep, usable
// by callers that want to proactively reclaim disk between runs.
func (m *Manager) CleanupStaleLocks() error {
	m.sweepStaleArtifacts()
	return nil
}

// ensureHubFile implements the fast-path/validate/download/retry-once
// discipline shared by every single-file Ensure* operation.
func (m *Manager) ensureHubFile(ctx context.Context, repo repoID, filename, url string, opts Options) (string, error) {
	m.sweepStaleArtifacts()
	if opts.Label == "" {
		opts.Label = filename
	}
	if opts.cancelled() {
		return "", enginerr.New(enginerr.Cancelled, "ensureHubFile", nil)
	}

	candidates, err := findSnapshotCandidates(m.root, repo, filename)
	if err != nil {
		return "", enginerr.New(enginerr.IO, "ensureHubFile", err)
	}
	for _, c := range candidates {
		if err := validateBlob(c.path); err == nil {
			return c.path, nil // fast path: zero progress emitted
		}
		deleteSnapshotAndBlob(c.path)
	}

	l := newLayout(m.root, repo)
	snapshotPath := l.snapshotFile(defaultRevision, filename)

	downloadOnce := func() (string, error) {
		childCtx, wrapped, done := m.beginDownload(ctx, opts)
		defer done()
		log.Printf("Downloading %s for %s", filename, repo.dirName())
		blobPath, err := downloadToBlob(childCtx, m.httpClient, url, l, 0, wrapped)
		if err != nil {
			return "", err
		}
		log.Printf("Download completed: %s", filename)
		if err := linkSnapshotToBlob(snapshotPath, blobPath); err != nil {
			return "", enginerr.New(enginerr.IO, "ensureHubFile", err)
		}
		return snapshotPath, nil
	}

	path, err := downloadOnce()
	if err != nil {
		return "", err
	}
	if err := validateBlob(path); err != nil {
		deleteSnapshotAndBlob(path)
		path, err = downloadOnce()
		if err != nil {
			return "", err
		}
		if verr := validateBlob(path); verr != nil {
			deleteSnapshotAndBlob(path)
			return "", enginerr.New(enginerr.ModelCorrupt, "ensureHubFile", verr)
		}
	}
	return path, nil
}

// ensureHubManifest downloads every file in filenames into one snapshot
// directory, checking the cancel predicate between files, and returns
// the snapshot directory once every file is present and valid.
func (m *Manager) ensureHubManifest(ctx context.Context, repo repoID, filenames []string, urlFor func(string) string, opts Options) (string, error) {
	m.sweepStaleArtifacts()
	l := newLayout(m.root, repo)
	snapshotDir := l.snapshotDir(defaultRevision)

	allPresent := true
	for _, fn := range filenames {
		if err := validateBlob(l.snapshotFile(defaultRevision, fn)); err != nil {
			allPresent = false
			break
		}
	}
	if allPresent {
		return snapshotDir, nil
	}

	for _, fn := range filenames {
		if opts.cancelled() {
			return "", enginerr.New(enginerr.Cancelled, "ensureHubManifest", nil)
		}
		if _, err := m.ensureHubFile(ctx, repo, fn, urlFor(fn), opts); err != nil {
			return "", err
		}
	}
	return snapshotDir, nil
}

// EnsureWhisper resolves the GGML file for a Whisper model variant,
// additionally fetching and extracting a CoreML encoder archive into the
// same snapshot directory on the macOS/CoreML build.
func (m *Manager) EnsureWhisper(ctx context.Context, name string, opts Options) (string, error) {
	filename, ok := WhisperVariant(name)
	if !ok {
		return "", enginerr.New(enginerr.NotFound, "EnsureWhisper", fmt.Errorf("unknown whisper model %q", name))
	}
	path, err := m.ensureHubFile(ctx, whisperRepo, filename, whisperDownloadURL(filename), opts)
	if err != nil {
		return "", err
	}
	if err := m.ensureCoreMLEncoder(ctx, name, filepath.Dir(path), opts); err != nil {
		return "", err
	}
	return path, nil
}

// EnsureParakeet resolves the fixed Parakeet snapshot manifest.
func (m *Manager) EnsureParakeet(ctx context.Context, opts Options) (string, error) {
	urlFor := func(fn string) string {
		return fmt.Sprintf("https://huggingface.co/%s/%s/resolve/main/%s", parakeetRepo.Owner, parakeetRepo.Repo, fn)
	}
	return m.ensureHubManifest(ctx, parakeetRepo, parakeetManifest, urlFor, opts)
}

// EnsureMoonshine resolves a flat directory of three files for variant,
// not hub-shaped (no blobs/snapshots split).
func (m *Manager) EnsureMoonshine(ctx context.Context, variant string, opts Options) (string, error) {
	if _, ok := moonshineVariants[variant]; !ok {
		return "", enginerr.New(enginerr.NotFound, "EnsureMoonshine", fmt.Errorf("unknown moonshine variant %q", variant))
	}
	dir := filepath.Join(m.root, "moonshine", variant)
	m.sweepStaleArtifacts()

	allPresent := true
	for _, fn := range moonshineFiles {
		info, err := os.Stat(filepath.Join(dir, fn))
		if err != nil || (binaryExtensions[filepath.Ext(fn)] && info.Size() < minBinarySize) {
			allPresent = false
			break
		}
	}
	if allPresent {
		return dir, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", enginerr.New(enginerr.IO, "EnsureMoonshine", err)
	}
	for _, fn := range moonshineFiles {
		if opts.cancelled() {
			return "", enginerr.New(enginerr.Cancelled, "EnsureMoonshine", nil)
		}
		dest := filepath.Join(dir, fn)
		if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
			continue
		}
		fileOpts := opts
		if fileOpts.Label == "" {
			fileOpts.Label = fn
		}
		childCtx, wrapped, done := m.beginDownload(ctx, fileOpts)
		blobPath, err := downloadToBlob(childCtx, m.httpClient, moonshineDownloadURL(variant, fn), newLayout(m.root, repoID{Owner: "moonshine", Repo: variant}), 0, wrapped)
		done()
		if err != nil {
			return "", err
		}
		if err := os.Rename(blobPath, dest); err != nil {
			return "", enginerr.New(enginerr.IO, "EnsureMoonshine", err)
		}
	}
	return dir, nil
}

// EnsureVAD resolves the Silero VAD ONNX file.
func (m *Manager) EnsureVAD(ctx context.Context, opts Options) (string, error) {
	return m.ensureHubFile(ctx, vadRepo, vadFilename, vadDownloadURL(), opts)
}

// EnsureDiarize resolves the segmentation and embedding model files named
// by segURL/embURL, each landing in its own (possibly synthetic) repo
// bucket derived from the URL.
func (m *Manager) EnsureDiarize(ctx context.Context, segURL, embURL string, opts Options) (string, string, error) {
	segRepo, segFile := parseHubURL(segURL)
	segPath, err := m.ensureHubFile(ctx, segRepo, segFile, segURL, opts)
	if err != nil {
		return "", "", err
	}
	if opts.cancelled() {
		return "", "", enginerr.New(enginerr.Cancelled, "EnsureDiarize", nil)
	}
	embRepo, embFile := parseHubURL(embURL)
	embPath, err := m.ensureHubFile(ctx, embRepo, embFile, embURL, opts)
	if err != nil {
		return "", "", err
	}
	return segPath, embPath, nil
}

// ListCached enumerates models with all required files present. Whisper,
// Parakeet and VAD files are also validated; Moonshine files are checked
// for presence only.
func (m *Manager) ListCached() []string {
	var names []string
	for name, fn := range whisperVariants {
		cands, _ := findSnapshotCandidates(m.root, whisperRepo, fn)
		for _, c := range cands {
			if validateBlob(c.path) == nil {
				names = append(names, name)
				break
			}
		}
	}
	allParakeetPresent := true
	for _, fn := range parakeetManifest {
		l := newLayout(m.root, parakeetRepo)
		if err := validateBlob(l.snapshotFile(defaultRevision, fn)); err != nil {
			allParakeetPresent = false
			break
		}
	}
	if allParakeetPresent {
		names = append(names, "parakeet")
	}
	for variant := range moonshineVariants {
		dir := filepath.Join(m.root, "moonshine", variant)
		ok := true
		for _, fn := range moonshineFiles {
			if _, err := os.Stat(filepath.Join(dir, fn)); err != nil {
				ok = false
				break
			}
		}
		if ok {
			names = append(names, "moonshine-"+variant)
		}
	}
	if cands, _ := findSnapshotCandidates(m.root, vadRepo, vadFilename); len(cands) > 0 {
		for _, c := range cands {
			if validateBlob(c.path) == nil {
				names = append(names, "vad")
				break
			}
		}
	}
	return names
}

// ListCachedInfo enumerates cached models the same way ListCached does,
// paired with their descriptive ModelInfo.
// A name with no known metadata is omitted rather than zero-valued.
func (m *Manager) ListCachedInfo() []ModelInfo {
	names := m.ListCached()
	out := make([]ModelInfo, 0, len(names))
	for _, name := range names {
		if info, ok := InfoFor(name); ok {
			out = append(out, info)
		}
	}
	return out
}

// Delete removes a cached model's snapshot symlinks (and, for Moonshine
// and Parakeet, the whole directory) without touching blob targets; run
// CleanupOrphanedBlobs to reclaim them.
func (m *Manager) Delete(name string) bool {
	switch {
	case name == "parakeet":
		l := newLayout(m.root, parakeetRepo)
		return os.RemoveAll(l.snapshotsDir()) == nil
	case name == "vad":
		if cands, _ := findSnapshotCandidates(m.root, vadRepo, vadFilename); len(cands) > 0 {
			for _, c := range cands {
				os.Remove(c.path)
			}
			return true
		}
		return false
	case strings.HasPrefix(name, "moonshine-"):
		variant := strings.TrimPrefix(name, "moonshine-")
		dir := filepath.Join(m.root, "moonshine", variant)
		return os.RemoveAll(dir) == nil
	default:
		if fn, ok := WhisperVariant(name); ok {
			if cands, _ := findSnapshotCandidates(m.root, whisperRepo, fn); len(cands) > 0 {
				for _, c := range cands {
					os.Remove(c.path)
				}
				return true
			}
		}
		return false
	}
}

// CleanupOrphanedBlobs walks every repo's snapshots to build a live-set
// of referenced blob paths, then removes any blob file not referenced by
// a live snapshot symlink.
func (m *Manager) CleanupOrphanedBlobs() error {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return enginerr.New(enginerr.IO, "CleanupOrphanedBlobs", err)
	}

	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "models--") {
			continue
		}
		repoDir := filepath.Join(m.root, e.Name())
		blobsDir := filepath.Join(repoDir, "blobs")
		snapshotsDir := filepath.Join(repoDir, "snapshots")

		live := map[string]bool{}
		filepath.WalkDir(snapshotsDir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if target, lerr := resolveBlobTarget(path); lerr == nil {
				live[filepath.Base(target)] = true
			}
			return nil
		})

		blobEntries, err := os.ReadDir(blobsDir)
		if err != nil {
			continue
		}
		for _, b := range blobEntries {
			if b.IsDir() || strings.HasSuffix(b.Name(), ".part") || strings.HasSuffix(b.Name(), ".lock") {
				continue
			}
			if !live[b.Name()] {
				os.Remove(filepath.Join(blobsDir, b.Name()))
			}
		}
	}
	return nil
}
