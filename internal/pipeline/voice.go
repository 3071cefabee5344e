package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/jehaby/smarthomebot/internal/chat"
	"github.com/jehaby/smarthomebot/internal/media"
)

type AudioTranscoder interface {
	TranscodeAudio(ctx context.Context, src, dst string, volume float64) error
}

// Player plays a local audio file.
type Player interface {
	Play(ctx context.Context, path string) error
}

// ExecPlayer plays audio with an external command such as aplay.
type ExecPlayer struct {
	Bin string
}

func (p ExecPlayer) Play(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, p.Bin, path)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", p.Bin, err, out.String())
	}
	return nil
}

// Voice plays voice messages received from a chat on the local speaker.
type Voice struct {
	sender  chat.Sender
	tc      AudioTranscoder
	player  Player
	workDir string
	volume  float64
}

func NewVoice(sender chat.Sender, tc AudioTranscoder, player Player, workDir string, volume float64) *Voice {
	return &Voice{sender: sender, tc: tc, player: player, workDir: workDir, volume: volume}
}

func (h *Voice) Handle(ctx context.Context, t *media.Task) error {
	src := filepath.Join(h.workDir, t.ID+".oga")
	dst := filepath.Join(h.workDir, t.ID+".wav")
	defer remove(src)
	defer remove(dst)

	if err := h.download(ctx, t.FileID, src); err != nil {
		return fmt.Errorf("download voice: %w", err)
	}
	if err := h.tc.TranscodeAudio(ctx, src, dst, h.volume); err != nil {
		return fmt.Errorf("transcode voice: %w", err)
	}
	if err := h.player.Play(ctx, dst); err != nil {
		return fmt.Errorf("play voice: %w", err)
	}
	return h.sender.SendText(ctx, t.ChatID, "🔊 Voice message played.")
}

func (h *Voice) download(ctx context.Context, fileID, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := h.sender.Download(ctx, fileID, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
