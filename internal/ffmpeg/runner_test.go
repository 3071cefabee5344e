package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRunner_SplitsArgs(t *testing.T) {
	r, err := NewRunner("", `-c:v libx264 -metadata title="front door"`)
	require.NoError(t, err)
	require.Equal(t, "ffmpeg", r.bin)
	require.Equal(t, []string{"-c:v", "libx264", "-metadata", "title=front door"}, r.videoArgs)
}

func TestNewRunner_DefaultArgs(t *testing.T) {
	r, err := NewRunner("/usr/bin/ffmpeg", "  ")
	require.NoError(t, err)
	require.Contains(t, r.videoArgs, "+faststart")
}

func TestNewRunner_BadQuoting(t *testing.T) {
	_, err := NewRunner("ffmpeg", `-metadata "unterminated`)
	require.Error(t, err)
}

func TestTranscode_FailureRemovesOutput(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.mp4")
	require.NoError(t, os.WriteFile(dst, []byte("partial"), 0o644))

	r, err := NewRunner(filepath.Join(dir, "no-such-ffmpeg"), "")
	require.NoError(t, err)
	require.Error(t, r.Check())
	require.Error(t, r.TranscodeVideo(context.Background(), filepath.Join(dir, "in.avi"), dst))
	require.NoFileExists(t, dst)
}
