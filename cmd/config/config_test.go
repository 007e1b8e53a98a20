package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFs(t *testing.T) afero.Fs {
	t.Helper()
	viper.Reset()
	fs := afero.NewMemMapFs()
	viper.SetFs(fs)
	t.Cleanup(viper.Reset)
	return fs
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	withFs(t)
	require.NoError(t, LoadConfig("/etc/toyvoice/config.yaml"))

	settings := Current()
	assert.Equal(t, "info", settings.LogLevel)
	assert.Equal(t, 8000, settings.SampleRate)
	assert.Equal(t, 1, settings.Channels)
	assert.Equal(t, 2100*time.Millisecond, settings.RecordingLength)
	assert.Equal(t, "/WebRecording", settings.RecordingDir)
	assert.Equal(t, "Recording", settings.RecordingBaseName)
	assert.Equal(t, 50*time.Millisecond, settings.Debounce)
	assert.Equal(t, 10*time.Millisecond, settings.ReleasePoll)
	assert.Equal(t, 5*time.Second, settings.WatchdogTimeout)
	assert.Equal(t, "ctrl+shift+s", settings.CancelHotkey)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	fs := withFs(t)
	require.NoError(t, afero.WriteFile(fs, "/config.yaml", []byte(
		"samplerate: 16000\n"+
			"channels: 2\n"+
			"recordinglength: 5s\n"+
			"loglevel: debug\n",
	), 0o644))

	require.NoError(t, LoadConfig("/config.yaml"))

	settings := Current()
	assert.Equal(t, 16000, settings.SampleRate)
	assert.Equal(t, 2, settings.Channels)
	assert.Equal(t, 5*time.Second, settings.RecordingLength)
	assert.Equal(t, "debug", settings.LogLevel)
	assert.Equal(t, 50, settings.Volume)
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	fs := withFs(t)
	require.NoError(t, afero.WriteFile(fs, "/config.yaml", []byte("samplerate: [16000\n"), 0o644))
	assert.Error(t, LoadConfig("/config.yaml"))
}
