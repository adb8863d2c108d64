// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package scanner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// FfprobeProber probes media duration by shelling out to ffprobe,
// mirroring the original catalogue crawler's own approach of shelling
// out to the ffmpeg toolchain rather than linking libavformat directly.
type FfprobeProber struct {
	// BinPath overrides the ffprobe executable looked up on PATH,
	// mainly for tests.
	BinPath string
}

func (p *FfprobeProber) binary() string {
	if p.BinPath != "" {
		return p.BinPath
	}
	return "ffprobe"
}

// Probe runs ffprobe against path and converts the reported duration
// (seconds, as a float) to frames at frameRate.
func (p *FfprobeProber) Probe(ctx context.Context, path string, frameRate float64) (int64, int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, 0, fmt.Errorf("stat %s: %w", path, err)
	}

	cmd := exec.CommandContext(ctx, p.binary(),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(out.String()), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse ffprobe duration for %s: %w", path, err)
	}

	return int64(seconds * frameRate), fi.Size(), nil
}

var _ Prober = (*FfprobeProber)(nil)
