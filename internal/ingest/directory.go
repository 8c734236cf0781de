package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
)

// Discover walks root and returns the absolute paths of every PDF below it,
// sorted so runs over the same tree dispatch in the same order.
// Unreadable entries are logged and counted; only a missing root is fatal.
func Discover(ctx context.Context, root string, opts Options, logger *slog.Logger) ([]string, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.NewAppError(common.CodeConfig, "input directory is required", common.ErrInvalidInput)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, DirStats{}, common.NewIOError("resolve input directory", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, DirStats{}, common.NewIOError("stat input directory", err)
	}
	if !info.IsDir() {
		if !IsPDF(abs) {
			return nil, DirStats{Scanned: 1}, common.NewAppError(common.CodeConfig, fmt.Sprintf("%s is not a directory or PDF", abs), common.ErrInvalidInput)
		}
		return []string{abs}, DirStats{Scanned: 1, Matched: 1}, nil
	}

	var paths []string
	var stats DirStats

	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			logger.Warn("skipping unreadable entry", "path", path, "error", walkErr)
			stats.Failed++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != abs && opts.SkipHidden && IsHidden(path) {
			stats.Skipped++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsPDF(path) {
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return paths, stats, err
		}
		return paths, stats, fmt.Errorf("walk: %w", err)
	}

	sort.Strings(paths)
	logger.Debug("discovery complete", "root", abs, "matched", stats.Matched, "scanned", stats.Scanned, "failed", stats.Failed)
	return paths, stats, nil
}
