// Package download acquires remote-hosted videos to a local file via
// yt-dlp so the rest of the pipeline only ever sees local paths.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bdougie/slidegrab/internal/execx"
)

// DefaultFormat keeps downloads small; slide detection does not benefit
// from more than 360p.
const DefaultFormat = "best[height<=360]/best"

// downloadTimeoutFloor gives slow hosts a fair chance regardless of the
// caller's per-call budget.
const downloadTimeoutFloor = 5 * time.Minute

// Downloader wraps a resolved yt-dlp binary.
type Downloader struct {
	Tool    execx.Tool
	Format  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Download fetches the video into a private temp directory and returns the
// local file path plus a cleanup func the caller must run on every exit
// path. When yt-dlp leaves several files behind, the largest non-partial
// one is the downloaded asset.
func (d *Downloader) Download(ctx context.Context, url string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "slidegrab-"+uuid.NewString()+"-")
	if err != nil {
		return "", nil, fmt.Errorf("create download dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	format := d.Format
	if format == "" {
		format = DefaultFormat
	}
	timeout := d.Timeout
	if timeout < downloadTimeoutFloor {
		timeout = downloadTimeoutFloor
	}

	args := []string{
		"-f", format,
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"-o", filepath.Join(dir, "video.%(ext)s"),
		url,
	}
	started := time.Now()
	if err := execx.Run(ctx, d.Tool, args, timeout, nil); err != nil {
		cleanup()
		return "", nil, err
	}

	filePath, err := largestFile(dir)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if d.Logger != nil {
		d.Logger.Debug("download done", "format", format, "file", filepath.Base(filePath), "elapsed", time.Since(started))
	}
	return filePath, cleanup, nil
}

func largestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	best := ""
	var bestSize int64 = -1
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(dir, name)
			bestSize = info.Size()
		}
	}
	if best == "" {
		return "", fmt.Errorf("yt-dlp completed but no video file was downloaded")
	}
	return best, nil
}
