package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/absola/internal/domain"
)

// SweepUploads removes spooled upload files last modified before now-olderThan.
// Returns how many entries were removed. Individual failures are logged and skipped.
func (m *Manager) SweepUploads(olderThan time.Duration, logger *zap.Logger) (int, error) {
	entries, err := os.ReadDir(m.uploadsDir)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w: %w", m.uploadsDir, domain.ErrStorage, err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0

	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(m.uploadsDir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("Failed to remove stale upload", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}

	return removed, nil
}

// RunSweeper sweeps the uploads directory every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, olderThan, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.SweepUploads(olderThan, logger)
			if err != nil {
				logger.Error("Upload sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("Swept stale uploads", zap.Int("removed", n))
			}
		}
	}
}
