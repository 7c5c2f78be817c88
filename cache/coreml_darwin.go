//go:build darwin

package cache

import (
	"context"
	"os"
	"path/filepath"

	"localstt/enginerr"
)

// ensureCoreMLEncoder additionally downloads and extracts the CoreML
// encoder archive for variant into snapshotDir on the macOS/CoreML
// build.
func (m *Manager) ensureCoreMLEncoder(ctx context.Context, variant, snapshotDir string, opts Options) error {
	archiveName := whisperCoreMLArchiveName(variant)
	url := whisperDownloadURL(archiveName)

	destMarker := filepath.Join(snapshotDir, "ggml-"+variant+"-encoder.mlmodelc")
	if info, err := os.Stat(destMarker); err == nil && info.IsDir() {
		return nil
	}

	path, err := m.ensureHubFile(ctx, whisperRepo, archiveName, url, opts)
	if err != nil {
		return err
	}
	blobPath, err := resolveBlobTarget(path)
	if err != nil {
		return enginerr.New(enginerr.IO, "ensureCoreMLEncoder", err)
	}
	if err := extractZipTo(blobPath, snapshotDir); err != nil {
		return err
	}
	return nil
}
