package main

import (
	"log/slog"

	"github.com/jehaby/smarthomebot/internal/camera"
	"github.com/jehaby/smarthomebot/internal/chat"
	"github.com/jehaby/smarthomebot/internal/config"
	"github.com/jehaby/smarthomebot/internal/ffmpeg"
	"github.com/jehaby/smarthomebot/internal/media"
	"github.com/jehaby/smarthomebot/internal/pipeline"
	"github.com/jehaby/smarthomebot/internal/state"
	"github.com/jehaby/smarthomebot/internal/worker"
)

// newPool registers a worker for every enabled category.
func newPool(cfg config.Config, sender chat.Sender, shared *state.Shared) (*worker.Pool, error) {
	pool := worker.NewPool(sender, worker.PoolOptions{QueueSize: cfg.QueueSize})
	delivery := &pipeline.Delivery{Sender: sender, Recipients: cfg.AuthorizedUsers, State: shared}

	var runner *ffmpeg.Runner
	if cfg.VideoEnabled || cfg.AudioEnabled {
		var err error
		if runner, err = ffmpeg.NewRunner(cfg.FFmpegBin, cfg.VideoFFmpegArgs); err != nil {
			return nil, err
		}
		if err := runner.Check(); err != nil {
			return nil, err
		}
	}

	if cfg.PhotoEnabled {
		pool.Register(media.CategoryPhoto, pipeline.NewPhoto(delivery, cfg.MaxPhotoSize))
	}
	if cfg.VideoEnabled {
		pool.Register(media.CategoryVideo, pipeline.NewVideo(delivery, runner, cfg.WorkDir))
	}
	if cfg.TextEnabled {
		pool.Register(media.CategoryText, pipeline.NewText(delivery, cfg.Decoders, int(cfg.MaxTextSize.Bytes())))
	}
	if cfg.DocumentEnabled {
		pool.Register(media.CategoryDocument, pipeline.NewDocument(delivery))
	}
	if cfg.SnapshotEnabled {
		if len(cfg.Cameras) == 0 {
			slog.Warn("snapshots enabled but no cameras configured")
		}
		pool.Register(media.CategorySnapshot, pipeline.NewSnapshot(sender, camera.NewFetcher(cfg.HTTPTimeout)))
	}
	if cfg.AudioEnabled {
		player := pipeline.ExecPlayer{Bin: cfg.AudioPlayer}
		pool.Register(media.CategoryVoice, pipeline.NewVoice(sender, runner, player, cfg.WorkDir, cfg.AudioVolume))
	}
	pool.Register(media.CategoryRetention, pipeline.NewRetention(cfg.UploadDir, cfg.RetentionAge))
	return pool, nil
}
