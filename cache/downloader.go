package cache

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"localstt/enginerr"
)

// progressReader wraps an io.Reader, reporting download progress at
// most every 200ms, with a cancel predicate checked on every Read so
// cancellation is observable mid-stream.
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	lastReport time.Time
	opts       Options
}

func (pr *progressReader) Read(p []byte) (int, error) {
	if pr.opts.cancelled() {
		return 0, enginerr.New(enginerr.Cancelled, "download", nil)
	}
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.downloaded += int64(n)
		now := time.Now()
		if now.Sub(pr.lastReport) >= 200*time.Millisecond || err == io.EOF {
			pr.lastReport = now
			if pr.total > 0 {
				pr.opts.report(float64(pr.downloaded) / float64(pr.total) * 100)
			}
		}
	}
	return n, err
}

// downloadToBlob streams url into the cache's blob store, hashing the
// content as it is written, then moves the temp file to
// blobs/<sha256>. Returns the blob path; linking a snapshot entry to it
// is left to the caller.
func downloadToBlob(ctx context.Context, httpClient *http.Client, url string, l layout, expectedSize int64, opts Options) (string, error) {
	if err := os.MkdirAll(l.blobsDir(), 0o755); err != nil {
		return "", enginerr.New(enginerr.IO, "download", err)
	}

	tmp, err := os.CreateTemp(l.blobsDir(), "*.part")
	if err != nil {
		return "", enginerr.New(enginerr.IO, "download", err)
	}
	tmpPath := tmp.Name()
	lockPath := tmpPath + ".lock"
	os.WriteFile(lockPath, nil, 0o644)
	defer os.Remove(lockPath)

	cleanupPartial := func() {
		tmp.Close()
		os.Remove(tmpPath)
		os.Remove(lockPath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cleanupPartial()
		return "", enginerr.New(enginerr.Network, "download", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		cleanupPartial()
		if ctx.Err() != nil {
			return "", enginerr.New(enginerr.Cancelled, "download", ctx.Err())
		}
		return "", enginerr.New(enginerr.Network, "download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		cleanupPartial()
		return "", enginerr.New(enginerr.Network, "download", fmt.Errorf("bad status: %s", resp.Status))
	}

	total := resp.ContentLength
	if total <= 0 && expectedSize > 0 {
		total = expectedSize
	}

	hasher := sha256.New()
	pr := &progressReader{reader: io.TeeReader(resp.Body, hasher), total: total, opts: opts}

	if _, err := io.Copy(tmp, pr); err != nil {
		cleanupPartial()
		if enginerr.IsCancelled(err) || ctx.Err() != nil {
			return "", enginerr.New(enginerr.Cancelled, "download", err)
		}
		return "", enginerr.New(enginerr.Network, "download", err)
	}
	tmp.Close()

	hash := hex.EncodeToString(hasher.Sum(nil))
	blobPath := l.blobPath(hash)
	if err := os.Rename(tmpPath, blobPath); err != nil {
		os.Remove(tmpPath)
		return "", enginerr.New(enginerr.IO, "download", err)
	}
	os.Remove(lockPath)

	opts.report(100)
	return blobPath, nil
}

// extractZipTo extracts a validated zip archive at blobPath into destDir,
// guarding against path traversal — used for the CoreML encoder archive
// the macOS build additionally fetches for Whisper.
func extractZipTo(blobPath, destDir string) error {
	r, err := zip.OpenReader(blobPath)
	if err != nil {
		return enginerr.New(enginerr.ModelCorrupt, "extractZip", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)
		if !isWithinDir(destDir, target) {
			return enginerr.New(enginerr.IO, "extractZip", fmt.Errorf("invalid path in archive: %s", f.Name))
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		src, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.Create(target)
		if err != nil {
			src.Close()
			return err
		}
		_, err = io.Copy(out, src)
		src.Close()
		out.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func isWithinDir(dir, target string) bool {
	cleanDir := filepath.Clean(dir)
	cleanTarget := filepath.Clean(target)
	return cleanTarget == cleanDir || len(cleanTarget) > len(cleanDir) && cleanTarget[:len(cleanDir)+1] == cleanDir+string(filepath.Separator)
}
