package media

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Category routes a Task to its queue and worker.
type Category string

const (
	CategoryPhoto     Category = "photo"
	CategoryVideo     Category = "video"
	CategoryText      Category = "text"
	CategoryDocument  Category = "document"
	CategoryVoice     Category = "voice"
	CategorySnapshot  Category = "snapshot"
	CategoryRetention Category = "retention"
)

var extCategories = map[string]Category{
	"jpg":  CategoryPhoto,
	"jpeg": CategoryPhoto,
	"png":  CategoryPhoto,
	"avi":  CategoryVideo,
	"mp4":  CategoryVideo,
	"mkv":  CategoryVideo,
	"m4v":  CategoryVideo,
	"mov":  CategoryVideo,
	"mpg":  CategoryVideo,
	"ts":   CategoryVideo,
	"txt":  CategoryText,
}

// Classify maps a file name to its category by extension, case-insensitively.
// Unknown extensions are documents so nothing ingested is dropped.
func Classify(name string) Category {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if c, ok := extCategories[ext]; ok {
		return c
	}
	return CategoryDocument
}

// Camera is a snapshot source loaded once from the config file.
type Camera struct {
	Name        string `yaml:"name"`
	SnapshotURL string `yaml:"snapshot-url"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
}

// Task is a queued unit of work.
type Task struct {
	ID       string
	Category Category
	// Path is the local source file; FileID a remote transport file id.
	Path   string
	FileID string
	// ChatID is the requesting chat, zero for unattended ingestion.
	ChatID  int64
	Cameras []Camera
	// Done runs on the worker after the task was processed, successful or not.
	Done      func(ctx context.Context)
	CreatedAt time.Time
}

// NewTask returns a task with a fresh id.
func NewTask(c Category) *Task {
	return &Task{
		ID:        shortuuid.New(),
		Category:  c,
		CreatedAt: time.Now(),
	}
}

// FromFile builds an ingestion task for a settled file.
func FromFile(path string) *Task {
	t := NewTask(Classify(path))
	t.Path = path
	return t
}
