// Package ffmpeg runs the external transcoder.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/google/shlex"
)

// DefaultVideoArgs re-encode to an H.264/AAC mp4 that players can stream.
const DefaultVideoArgs = "-c:v libx264 -preset veryfast -crf 28 -pix_fmt yuv420p -movflags +faststart -c:a aac"

type Runner struct {
	bin       string
	videoArgs []string
}

// NewRunner splits videoArgs the way a shell would.
func NewRunner(bin, videoArgs string) (*Runner, error) {
	if bin == "" {
		bin = "ffmpeg"
	}
	if strings.TrimSpace(videoArgs) == "" {
		videoArgs = DefaultVideoArgs
	}
	args, err := shlex.Split(videoArgs)
	if err != nil {
		return nil, fmt.Errorf("parse video args %q: %w", videoArgs, err)
	}
	return &Runner{bin: bin, videoArgs: args}, nil
}

// Check verifies the binary can be found.
func (r *Runner) Check() error {
	if _, err := exec.LookPath(r.bin); err != nil {
		return fmt.Errorf("ffmpeg binary not found or not in PATH: %s", r.bin)
	}
	return nil
}

// TranscodeVideo re-encodes src into dst.
func (r *Runner) TranscodeVideo(ctx context.Context, src, dst string) error {
	args := append([]string{"-y", "-i", src}, r.videoArgs...)
	return r.run(ctx, dst, append(args, dst)...)
}

// TranscodeAudio converts src into a WAV file at dst with the given volume factor.
func (r *Runner) TranscodeAudio(ctx context.Context, src, dst string, volume float64) error {
	args := []string{"-y", "-i", src}
	if volume > 0 && volume != 1 {
		args = append(args, "-filter:a", "volume="+strconv.FormatFloat(volume, 'f', -1, 64))
	}
	return r.run(ctx, dst, append(args, dst)...)
}

func (r *Runner) run(ctx context.Context, dst string, args ...string) error {
	cmd := exec.CommandContext(ctx, r.bin, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	slog.Debug("executing", "cmd", cmd.Path, "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		// partial output is useless
		_ = os.Remove(dst)
		return fmt.Errorf("ffmpeg execution failed: %w: %s", err, tail(out.String(), 512))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
