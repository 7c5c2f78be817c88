//go:build !darwin

package cache

import "context"

// ensureCoreMLEncoder is a no-op off macOS: the CoreML encoder is only
// consulted by whisper.cpp's Core ML inference path, which the non-darwin
// build never enables.
func (m *Manager) ensureCoreMLEncoder(ctx context.Context, variant, snapshotDir string, opts Options) error {
	return nil
}
