package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jehaby/smarthomebot/internal/chat"
	"github.com/jehaby/smarthomebot/internal/media"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// ErrUndecodable is returned when no configured encoding decodes a text file.
var ErrUndecodable = errors.New("text not decodable with any configured encoding")

// chunkRunes is the largest text message the transport accepts.
const chunkRunes = 4096

// DefaultEncodings are tried in this order.
var DefaultEncodings = []string{"utf-8", "windows-1252"}

// Decoder is one named text encoding.
type Decoder struct {
	Name string
	enc  encoding.Encoding
	// utf8 decoders replace invalid input instead of failing, so validity
	// is judged on the raw bytes.
	utf8 bool
}

// ParseEncodings resolves encoding labels (WHATWG names such as "utf-8",
// "windows-1252", "latin1") keeping their order.
func ParseEncodings(names []string) ([]Decoder, error) {
	out := make([]Decoder, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		enc, err := htmlindex.Get(n)
		if err != nil {
			return nil, fmt.Errorf("unknown text encoding %q: %w", n, err)
		}
		canonical, _ := htmlindex.Name(enc)
		out = append(out, Decoder{Name: n, enc: enc, utf8: canonical == "utf-8"})
	}
	if len(out) == 0 {
		return nil, errors.New("no text encodings configured")
	}
	return out, nil
}

// Decode tries decs in order and stops at the first one that decodes b.
// Legacy encodings fail when they map a byte to the replacement character.
// It returns the text and the encoding used.
func Decode(b []byte, decs []Decoder) (string, string, error) {
	for _, d := range decs {
		if d.utf8 {
			if utf8.Valid(b) {
				return string(b), d.Name, nil
			}
			continue
		}
		out, err := d.enc.NewDecoder().Bytes(b)
		if err != nil {
			continue
		}
		if utf8.Valid(out) && !strings.ContainsRune(string(out), utf8.RuneError) {
			return string(out), d.Name, nil
		}
	}
	return "", "", ErrUndecodable
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// chunks splits s into pieces of at most size runes.
func chunks(s string, size int) []string {
	var out []string
	r := []rune(s)
	for len(r) > 0 {
		n := min(size, len(r))
		out = append(out, string(r[:n]))
		r = r[n:]
	}
	return out
}

type Text struct {
	d        *Delivery
	decoders []Decoder
	maxSize  int
}

// NewText returns the text handler; decoded text is cut to maxSize bytes.
func NewText(d *Delivery, decoders []Decoder, maxSize int) *Text {
	return &Text{d: d, decoders: decoders, maxSize: maxSize}
}

func (h *Text) Handle(ctx context.Context, t *media.Task) error {
	defer remove(t.Path)
	if !h.d.alerting() {
		slog.Info("alerting off, text dropped", "path", t.Path, "task", t.ID)
		return nil
	}
	raw, err := os.ReadFile(t.Path)
	if err != nil {
		return err
	}
	text, enc, err := Decode(raw, h.decoders)
	if err != nil {
		return fmt.Errorf("%s: %w", t.Path, err)
	}
	slog.Debug("text decoded", "path", t.Path, "encoding", enc)

	text = strings.TrimSpace(truncate(text, h.maxSize))
	if text == "" {
		return nil
	}
	h.d.announce(ctx, chat.ActionTyping)
	for _, c := range chunks(text, chunkRunes) {
		if err := h.d.broadcastText(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
