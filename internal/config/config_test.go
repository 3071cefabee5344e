package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
authorized-users:
  - 111
  - 222
cameras:
  - name: garden
    snapshot-url: http://cam1/snap.jpg
    username: admin
    password: secret
  - name: door
    snapshot-url: http://cam2/snap.jpg
`

func setup(t *testing.T, yamlBody string) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlBody), 0o644))
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("CONFIG_FILE", cfgPath)
	t.Setenv("UPLOAD_DIR", filepath.Join(dir, "upload"))
	t.Setenv("WORK_DIR", filepath.Join(dir, "work"))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := setup(t, sampleYAML)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []int64{111, 222}, cfg.AuthorizedUsers)
	require.Len(t, cfg.Cameras, 2)
	require.Equal(t, "admin", cfg.Cameras[0].Username)
	require.Equal(t, "door", cfg.Cameras[1].Name)
	require.Equal(t, 1280, cfg.MaxPhotoSize)
	require.Equal(t, 16*datasize.KB, cfg.MaxTextSize)
	require.Equal(t, time.Hour, cfg.SessionTimeout)
	require.Equal(t, 3, cfg.Retention.Hour)
	require.Len(t, cfg.Decoders, 2)
	require.NotEmpty(t, cfg.VideoFFmpegArgs)
	require.True(t, cfg.AlertingOnStart)
	require.False(t, cfg.AudioEnabled)
	require.DirExists(t, filepath.Join(dir, "upload"))
}

func TestLoadOverrides(t *testing.T) {
	setup(t, sampleYAML)
	t.Setenv("MAX_TEXT_SIZE", "1MB")
	t.Setenv("TEXT_ENCODINGS", "utf-8, latin1, koi8-r")
	t.Setenv("RETENTION_AT", "23:45")
	t.Setenv("VIDEO_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, datasize.MB, cfg.MaxTextSize)
	require.Len(t, cfg.Decoders, 3)
	require.Equal(t, 23, cfg.Retention.Hour)
	require.Equal(t, 45, cfg.Retention.Minute)
	require.False(t, cfg.VideoEnabled)
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		env  map[string]string
		msg  string
	}{
		{name: "empty allow-list", yaml: "cameras: []\n", msg: "authorized-users"},
		{name: "bad retention clock", yaml: sampleYAML, env: map[string]string{"RETENTION_AT": "25:00"}, msg: "RETENTION_AT"},
		{name: "unknown encoding", yaml: sampleYAML, env: map[string]string{"TEXT_ENCODINGS": "utf-8,klingon"}, msg: "TEXT_ENCODINGS"},
		{name: "duplicate camera", yaml: "authorized-users: [1]\ncameras:\n  - {name: a, snapshot-url: u}\n  - {name: a, snapshot-url: v}\n", msg: "twice"},
		{name: "camera without url", yaml: "authorized-users: [1]\ncameras:\n  - {name: a}\n", msg: "snapshot-url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setup(t, tc.yaml)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestLoadMissingToken(t *testing.T) {
	setup(t, sampleYAML)
	t.Setenv("TELEGRAM_TOKEN", "")
	os.Unsetenv("TELEGRAM_TOKEN")

	_, err := Load()
	require.Error(t, err)
}

func TestBackupInsideUpload(t *testing.T) {
	dir := setup(t, sampleYAML)
	t.Setenv("BACKUP_DIR", filepath.Join(dir, "upload", "backup"))

	_, err := Load()
	require.ErrorContains(t, err, "backup dir")
}

func TestUnwritableUploadDir(t *testing.T) {
	dir := setup(t, sampleYAML)
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	// a regular file where the directory should be
	t.Setenv("UPLOAD_DIR", blocker)

	_, err := Load()
	require.ErrorContains(t, err, "upload dir")
}

func TestWithin(t *testing.T) {
	require.True(t, within("/a/b", "/a/b"))
	require.True(t, within("/a/b", "/a/b/c"))
	require.False(t, within("/a/b", "/a/bc"))
	require.False(t, within("/a/b", "/a"))
}
