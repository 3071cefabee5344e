// Package ingest turns file-created events below the upload directory into
// queued tasks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jehaby/smarthomebot/internal/media"
)

// Enqueuer accepts tasks for the workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, t *media.Task) error
}

type WatcherOptions struct {
	Root      string
	BackupDir string // optional mirror, copied before classification
	Guard     *SettleGuard
}

// Watcher recursively watches Root. Settling blocks only the watcher loop.
type Watcher struct {
	opt   WatcherOptions
	queue Enqueuer
	fsw   *fsnotify.Watcher

	// scanned holds files queued by a directory scan. Their Create event
	// may still be pending and must not queue them a second time.
	scanned map[string]scannedFile
}

type scannedFile struct {
	info os.FileInfo
	at   time.Time
}

const scannedTTL = time.Minute

func NewWatcher(opt WatcherOptions, q Enqueuer) (*Watcher, error) {
	if opt.Guard == nil {
		opt.Guard = NewSettleGuard(0, 0)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{opt: opt, queue: q, fsw: fsw, scanned: make(map[string]scannedFile)}
	if err := w.addTree(opt.Root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		slog.Debug("watching", "dir", path)
		return nil
	})
}

// Run processes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	slog.Info("watching upload dir", "root", w.opt.Root)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				w.handleCreate(ctx, event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("fsnotify error", "err", err)
		}
	}
}

func (w *Watcher) handleCreate(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("created path vanished", "path", path, "err", err)
		return
	}
	if info.IsDir() {
		if err := w.addTree(path); err != nil {
			slog.Error("watch new dir failed", "path", path, "err", err)
		}
		// files written before the watch landed produce no event
		w.scanTree(ctx, path)
		return
	}
	if !info.Mode().IsRegular() {
		return
	}
	if w.wasScanned(path, info) {
		delete(w.scanned, path)
		return
	}
	w.ingest(ctx, path)
}

// scanTree ingests the regular files already present below dir.
func (w *Watcher) scanTree(ctx context.Context, dir string) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		slog.Error("scan new dir failed", "path", dir, "err", err)
	}
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil || w.wasScanned(path, info) {
			continue
		}
		slog.Debug("picked up by dir scan", "path", path)
		w.remember(path, info)
		w.ingest(ctx, path)
	}
}

// wasScanned reports whether the file at path was already queued by a scan.
// Identity is by inode so in-place rewrites by a worker still match.
func (w *Watcher) wasScanned(path string, info os.FileInfo) bool {
	f, ok := w.scanned[path]
	return ok && time.Since(f.at) < scannedTTL && os.SameFile(f.info, info)
}

func (w *Watcher) remember(path string, info os.FileInfo) {
	now := time.Now()
	for p, f := range w.scanned {
		if now.Sub(f.at) > scannedTTL {
			delete(w.scanned, p)
		}
	}
	w.scanned[path] = scannedFile{info: info, at: now}
}

// ingest settles, mirrors, classifies and enqueues one file. A file that
// cannot be queued is removed.
func (w *Watcher) ingest(ctx context.Context, path string) {
	if err := w.opt.Guard.Wait(ctx, path); err != nil {
		if errors.Is(err, ErrNotSettled) {
			slog.Warn("file discarded", "path", path, "reason", err)
		}
		return
	}
	if w.opt.BackupDir != "" {
		if err := mirror(w.opt.Root, w.opt.BackupDir, path); err != nil {
			slog.Error("backup copy failed", "path", path, "err", err)
		}
	}
	t := media.FromFile(path)
	slog.Info("file ingested", "path", path, "category", t.Category, "task", t.ID)
	if err := w.queue.Enqueue(ctx, t); err != nil {
		slog.Warn("enqueue failed, removing file", "path", path, "category", t.Category, "err", err)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Error("remove file failed", "path", path, "err", err)
		}
	}
}
