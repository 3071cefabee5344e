package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"math"
	"os"

	"github.com/jehaby/smarthomebot/internal/media"
	"golang.org/x/image/draw"
)

// jpegQuality is used when a photo has to be re-encoded.
const jpegQuality = 87

type Photo struct {
	d       *Delivery
	maxSize int
}

// NewPhoto returns the photo handler; photos larger than maxSize in either
// dimension are downscaled first. maxSize <= 0 disables scaling.
func NewPhoto(d *Delivery, maxSize int) *Photo {
	return &Photo{d: d, maxSize: maxSize}
}

func (h *Photo) Handle(ctx context.Context, t *media.Task) error {
	defer remove(t.Path)
	if !h.d.alerting() {
		slog.Info("alerting off, photo dropped", "path", t.Path, "task", t.ID)
		return nil
	}
	// read before downscaling rewrites the file
	capt := caption("📷", t.Path, "")
	if resized, err := downscale(t.Path, h.maxSize); err != nil {
		slog.Warn("downscale failed, sending original", "path", t.Path, "err", err)
	} else if resized {
		slog.Debug("photo downscaled", "path", t.Path, "max", h.maxSize)
	}
	return h.d.broadcastFile(ctx, filePhoto, t.Path, capt)
}

// fitBox returns the size of a w x h image scaled to fit into a limit x limit box.
func fitBox(w, h, limit int) (int, int) {
	scale := math.Min(float64(limit)/float64(w), float64(limit)/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	return max(1, nw), max(1, nh)
}

// downscale rewrites path in place as a JPEG that fits into the bounding box.
// The file is overwritten rather than replaced so no new file appears in the
// watched tree.
func downscale(path string, limit int) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	src, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}

	b := src.Bounds()
	if b.Dx() <= limit && b.Dy() <= limit {
		return false, nil
	}
	nw, nh := fitBox(b.Dx(), b.Dy(), limit)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	// JPEG has no alpha: transparent areas end up white, not black
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.BiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return false, fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
