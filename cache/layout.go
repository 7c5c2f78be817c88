package cache

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// repoID identifies a hub repository by owner/name, used to build the
// "models--<owner>--<repo>" on-disk subtree.
type repoID struct {
	Owner string
	Repo  string
}

func (r repoID) dirName() string {
	return "models--" + sanitize(r.Owner) + "--" + sanitize(r.Repo)
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, "/", "-")
}

var hfResolveRe = regexp.MustCompile(`^https://huggingface\.co/([^/]+)/([^/]+)/resolve/[^/]+/(.+)$`)

// parseHubURL extracts (owner, repo, filename) from a HuggingFace-style
// resolve URL. If url doesn't match that convention, it synthesizes a
// stable repoID bucket from a hash of the URL so every external download
// still lands inside a well-formed "models--..." subtree.
func parseHubURL(url string) (repoID, string) {
	if m := hfResolveRe.FindStringSubmatch(url); m != nil {
		return repoID{Owner: m[1], Repo: m[2]}, m[3]
	}
	sum := sha256.Sum256([]byte(url))
	bucket := hex.EncodeToString(sum[:])[:12]
	return repoID{Owner: "external", Repo: bucket}, filepath.Base(url)
}

// layout resolves filesystem paths inside the cache root for a given
// repoID.
type layout struct {
	root string
	repo repoID
}

func newLayout(root string, repo repoID) layout {
	return layout{root: root, repo: repo}
}

func (l layout) repoDir() string       { return filepath.Join(l.root, l.repo.dirName()) }
func (l layout) blobsDir() string      { return filepath.Join(l.repoDir(), "blobs") }
func (l layout) snapshotsDir() string  { return filepath.Join(l.repoDir(), "snapshots") }
func (l layout) snapshotDir(rev string) string {
	return filepath.Join(l.snapshotsDir(), rev)
}
func (l layout) blobPath(hash string) string {
	return filepath.Join(l.blobsDir(), hash)
}
func (l layout) snapshotFile(rev, filename string) string {
	return filepath.Join(l.snapshotDir(rev), filename)
}

// defaultRevision is used for every download performed by this module: we
// have no git-commit-sha provenance from the remote hub, so every fetch
// is recorded under a single synthetic revision. The symlink/blob
// separation this module relies on (fast path scanning, orphan GC) does
// not depend on the revision name being meaningful.
const defaultRevision = "main"

// binaryExtensions lists extensions validated by a minimum-size threshold
// rather than a "non-empty" threshold.
var binaryExtensions = map[string]bool{
	".bin": true, ".onnx": true, ".gguf": true, ".pt": true,
}

const minBinarySize = 100_000 // bytes
const minTextSize = 1         // bytes

// candidateSnapshot describes a filename found while scanning existing
// snapshots for the fast path.
type candidateSnapshot struct {
	revision string
	path     string
	modTime  time.Time
}

// findSnapshotCandidates scans every snapshot revision under repo for a
// file named filename, returning candidates sorted most-recently-modified
// first.
func findSnapshotCandidates(root string, repo repoID, filename string) ([]candidateSnapshot, error) {
	l := newLayout(root, repo)
	entries, err := os.ReadDir(l.snapshotsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []candidateSnapshot
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		candidate := l.snapshotFile(e.Name(), filename)
		info, err := os.Lstat(candidate)
		if err != nil {
			continue
		}
		out = append(out, candidateSnapshot{revision: e.Name(), path: candidate, modTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].modTime.After(out[j].modTime) })
	return out, nil
}

// resolveBlobTarget follows the one symlink a snapshot entry is expected
// to be, returning the blob path it points to.
func resolveBlobTarget(snapshotPath string) (string, error) {
	target, err := os.Readlink(snapshotPath)
	if err != nil {
		// Not a symlink: some writers (e.g. our own flat moonshine
		// layout) store plain files. Treat the path as its own target.
		return snapshotPath, nil
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(snapshotPath), target)
	}
	return target, nil
}

// validateBlob checks the blob behind a snapshot entry exists and passes
// the per-extension size/openability checks.
func validateBlob(snapshotPath string) error {
	blobPath, err := resolveBlobTarget(snapshotPath)
	if err != nil {
		return err
	}
	info, err := os.Stat(blobPath)
	if err != nil {
		return fmt.Errorf("blob target missing: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(snapshotPath))
	switch {
	case ext == ".zip":
		r, err := zip.OpenReader(blobPath)
		if err != nil {
			return fmt.Errorf("zip archive does not open: %w", err)
		}
		r.Close()
	case ext == ".json" || ext == ".txt":
		if info.Size() < minTextSize {
			return fmt.Errorf("text file too small: %d bytes", info.Size())
		}
	default:
		if info.Size() < minBinarySize {
			return fmt.Errorf("binary file too small: %d bytes", info.Size())
		}
	}
	return nil
}

// deleteSnapshotAndBlob removes both the snapshot symlink and the blob it
// points to — used only on validation failure, where the corrupt pair
// must be fully discarded before a single retry.
func deleteSnapshotAndBlob(snapshotPath string) {
	blobPath, err := resolveBlobTarget(snapshotPath)
	if err == nil && blobPath != snapshotPath {
		os.Remove(blobPath)
	}
	os.Remove(snapshotPath)
}

// linkSnapshotToBlob creates (or replaces) the snapshot symlink pointing
// at blobPath, relative to the snapshot directory.
func linkSnapshotToBlob(snapshotPath, blobPath string) error {
	if err := os.MkdirAll(filepath.Dir(snapshotPath), 0o755); err != nil {
		return err
	}
	os.Remove(snapshotPath)
	rel, err := filepath.Rel(filepath.Dir(snapshotPath), blobPath)
	if err != nil {
		rel = blobPath
	}
	return os.Symlink(rel, snapshotPath)
}
