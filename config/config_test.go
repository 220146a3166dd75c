package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFillsEverything(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://speechma.com/", cfg.Voice.SiteURL)
	assert.Equal(t, "Emily", cfg.Voice.VoiceName)
	assert.Equal(t, 15*time.Second, cfg.Voice.ElementTimeout())
	assert.Equal(t, 60*time.Second, cfg.Voice.GenerateTimeout())
	assert.Equal(t, 2*time.Second, cfg.Watcher.PollInterval())
	assert.Equal(t, time.Second, cfg.Watcher.StabilityDelay())
	assert.Equal(t, 120*time.Second, cfg.Watcher.Ceiling())
	assert.Equal(t, 5, cfg.Captcha.CodeDigits)
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, "none", cfg.Publish.Target)
	assert.NotEmpty(t, cfg.Paths.Downloads)
}

func TestLoadOverridesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
voice:
  voice_name: Ava
  element_timeout_sec: 30
watcher:
  ceiling_sec: 45
publish:
  target: instagram
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Ava", cfg.Voice.VoiceName)
	assert.Equal(t, 30*time.Second, cfg.Voice.ElementTimeout())
	assert.Equal(t, 45*time.Second, cfg.Watcher.Ceiling())
	assert.Equal(t, "instagram", cfg.Publish.Target)
	// untouched keys still get defaults
	assert.Equal(t, "https://speechma.com/", cfg.Voice.SiteURL)
	assert.Equal(t, 2*time.Second, cfg.Watcher.PollInterval())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("voice: ["), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}
