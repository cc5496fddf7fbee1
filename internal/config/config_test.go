package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir and working directory at empty temp dirs.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Chdir(t.TempDir())
	return filepath.Join(dir, "term-tutor")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", cfg.Server.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 2, cfg.Speech.LookAhead)
	assert.Equal(t, 2, cfg.Speech.StreamPrefetch)
	assert.Equal(t, 15*time.Second, cfg.Speech.WaitTimeout)
	assert.Equal(t, 1.0, cfg.Speech.Speed)
	assert.Equal(t, 128, cfg.Render.MemoSize)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
server:
  base_url: https://tutor.example.com/
  session_cookie: ${TUTOR_COOKIE}
speech:
  auto_play: true
  wait_timeout: 5s
`), 0600))
	t.Setenv("TUTOR_COOKIE", "session=abc")
	t.Setenv("TERM_TUTOR_SPEECH_SPEED", "0.75")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://tutor.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "session=abc", cfg.Server.SessionCookie)
	assert.True(t, cfg.Speech.AutoPlay)
	assert.Equal(t, 5*time.Second, cfg.Speech.WaitTimeout)
	assert.Equal(t, 0.75, cfg.Speech.Speed)
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("TERM_TUTOR_SERVER_BASE_URL=http://10.0.0.2:5000\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("TERM_TUTOR_SERVER_BASE_URL") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:5000", cfg.Server.BaseURL)
}

func TestApplyOverrides(t *testing.T) {
	cfg := &Config{Server: ServerConfig{BaseURL: "http://a"}}
	on := true

	cfg.ApplyOverrides("", nil)
	assert.Equal(t, "http://a", cfg.Server.BaseURL)
	assert.False(t, cfg.Speech.AutoPlay)

	cfg.ApplyOverrides("http://b/", &on)
	assert.Equal(t, "http://b", cfg.Server.BaseURL)
	assert.True(t, cfg.Speech.AutoPlay)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.Server.SessionCookie = "session=secret-value"
	cfg.Speech.Speed = 0.9
	require.NoError(t, Save(cfg))
	assert.True(t, Exists())

	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# term-tutor configuration.")
	assert.Contains(t, string(data), "wait_timeout: 15s")

	again, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "*****", MaskSecret("short"))
	assert.Equal(t, "sess***********alue", MaskSecret("session=secretvalue"))
}
