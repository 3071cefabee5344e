// Package config loads process settings from the environment and the
// allow-list and cameras from a YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/caarlos0/env/v11"
	yaml "github.com/goccy/go-yaml"
	"github.com/jehaby/smarthomebot/internal/ffmpeg"
	"github.com/jehaby/smarthomebot/internal/media"
	"github.com/jehaby/smarthomebot/internal/pipeline"
	"github.com/jehaby/smarthomebot/internal/scheduler"
)

type Config struct {
	TelegramToken     string     `env:"TELEGRAM_TOKEN,required"`
	ConfigFile        string     `env:"CONFIG_FILE" envDefault:"config.yaml"`
	LogLevel          slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat         string     `env:"LOG_FORMAT" envDefault:"text"`
	TGBotDebugEnabled bool       `env:"TGBOT_DEBUG_ENABLED" envDefault:"false"`
	DBConnString      string     `env:"DB_CONN_STRING" envDefault:"file:./smarthomebot.db?cache=shared&mode=rwc"`

	UploadDir string `env:"UPLOAD_DIR,required"`
	BackupDir string `env:"BACKUP_DIR"`
	// WorkDir holds temporary downloads and transcodes. It must live outside UploadDir.
	WorkDir string `env:"WORK_DIR"`

	FFmpegBin       string `env:"FFMPEG_BIN" envDefault:"ffmpeg"`
	VideoFFmpegArgs string `env:"VIDEO_FFMPEG_ARGS"`

	PhotoEnabled    bool `env:"PHOTO_ENABLED" envDefault:"true"`
	VideoEnabled    bool `env:"VIDEO_ENABLED" envDefault:"true"`
	TextEnabled     bool `env:"TEXT_ENABLED" envDefault:"true"`
	DocumentEnabled bool `env:"DOCUMENT_ENABLED" envDefault:"true"`
	SnapshotEnabled bool `env:"SNAPSHOT_ENABLED" envDefault:"true"`
	AudioEnabled    bool `env:"AUDIO_ENABLED" envDefault:"false"`

	AudioVolume float64 `env:"AUDIO_VOLUME" envDefault:"1.0"`
	AudioPlayer string  `env:"AUDIO_PLAYER" envDefault:"aplay"`

	MaxPhotoSize  int               `env:"MAX_PHOTO_SIZE" envDefault:"1280"`
	MaxTextSize   datasize.ByteSize `env:"MAX_TEXT_SIZE" envDefault:"16KB"`
	TextEncodings []string          `env:"TEXT_ENCODINGS" envSeparator:"," envDefault:"utf-8,windows-1252"`

	SessionTimeout time.Duration `env:"SESSION_TIMEOUT" envDefault:"1h"`
	SettleInterval time.Duration `env:"SETTLE_INTERVAL" envDefault:"100ms"`
	SettleCycles   int           `env:"SETTLE_CYCLES" envDefault:"50"`
	RetentionAge   time.Duration `env:"RETENTION_AGE" envDefault:"720h"`
	RetentionAt    string        `env:"RETENTION_AT" envDefault:"03:00"`
	QueueSize      int           `env:"QUEUE_SIZE" envDefault:"64"`

	AlertingOnStart bool          `env:"ALERTING_ON_START" envDefault:"true"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// Loaded from ConfigFile.
	AuthorizedUsers []int64        `env:"-"`
	Cameras         []media.Camera `env:"-"`

	// Derived by Validate.
	Retention scheduler.Clock    `env:"-"`
	Decoders  []pipeline.Decoder `env:"-"`
}

type file struct {
	AuthorizedUsers []int64        `yaml:"authorized-users"`
	Cameras         []media.Camera `yaml:"cameras"`
}

// Load parses the environment, reads ConfigFile and validates the result.
func Load() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.readFile(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) readFile() error {
	b, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", c.ConfigFile, err)
	}
	c.AuthorizedUsers = f.AuthorizedUsers
	c.Cameras = f.Cameras
	return nil
}

// Validate checks cross-field constraints and fills the derived fields.
func (c *Config) Validate() error {
	if len(c.AuthorizedUsers) == 0 {
		return errors.New("authorized-users must not be empty")
	}
	seen := make(map[string]bool, len(c.Cameras))
	for i, cam := range c.Cameras {
		if cam.Name == "" || cam.SnapshotURL == "" {
			return fmt.Errorf("camera %d: name and snapshot-url are required", i)
		}
		if seen[cam.Name] {
			return fmt.Errorf("camera %q defined twice", cam.Name)
		}
		seen[cam.Name] = true
	}

	if err := ensureWritable(c.UploadDir); err != nil {
		return fmt.Errorf("upload dir: %w", err)
	}
	if c.BackupDir != "" {
		if within(c.UploadDir, c.BackupDir) {
			return errors.New("backup dir must not be inside the upload dir")
		}
		if err := ensureWritable(c.BackupDir); err != nil {
			return fmt.Errorf("backup dir: %w", err)
		}
	}
	if c.WorkDir == "" {
		c.WorkDir = filepath.Join(os.TempDir(), "smarthomebot")
	}
	if within(c.UploadDir, c.WorkDir) {
		return errors.New("work dir must not be inside the upload dir")
	}
	if err := ensureWritable(c.WorkDir); err != nil {
		return fmt.Errorf("work dir: %w", err)
	}

	if c.VideoFFmpegArgs == "" {
		c.VideoFFmpegArgs = ffmpeg.DefaultVideoArgs
	}
	if c.MaxPhotoSize <= 0 {
		return fmt.Errorf("MAX_PHOTO_SIZE must be positive, got %d", c.MaxPhotoSize)
	}
	if c.MaxTextSize == 0 {
		return errors.New("MAX_TEXT_SIZE must be positive")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("QUEUE_SIZE must be positive, got %d", c.QueueSize)
	}

	var err error
	if c.Retention, err = scheduler.ParseClock(c.RetentionAt); err != nil {
		return fmt.Errorf("RETENTION_AT: %w", err)
	}
	if c.Decoders, err = pipeline.ParseEncodings(c.TextEncodings); err != nil {
		return fmt.Errorf("TEXT_ENCODINGS: %w", err)
	}
	return nil
}

// ensureWritable creates dir if needed and proves a file can be written there.
func ensureWritable(dir string) error {
	if dir == "" {
		return errors.New("not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// within reports whether path is root or below it.
func within(root, path string) bool {
	r, err1 := filepath.Abs(root)
	p, err2 := filepath.Abs(path)
	if err1 != nil || err2 != nil {
		return false
	}
	rel, err := filepath.Rel(r, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
