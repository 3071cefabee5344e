// Package camera fetches still images from network cameras.
package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jehaby/smarthomebot/internal/media"
)

// maxSnapshotSize caps a single snapshot download.
const maxSnapshotSize = 20 << 20

type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads the current snapshot of cam.
func (f *Fetcher) Fetch(ctx context.Context, cam media.Camera) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cam.SnapshotURL, nil)
	if err != nil {
		return nil, err
	}
	if cam.Username != "" {
		req.SetBasicAuth(cam.Username, cam.Password)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera %s: unexpected status %s", cam.Name, resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return nil, fmt.Errorf("camera %s: read body: %w", cam.Name, err)
	}
	return b, nil
}
