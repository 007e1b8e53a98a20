package utils

import (
	"time"

	"github.com/spf13/viper"
)

// Set the viper defaults for the toyvoice CLI.
func SetViperDefaults() {
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("logfile", "")

	// Storage
	viper.SetDefault("storageroot", ".")
	viper.SetDefault("recordingdir", "/WebRecording")
	viper.SetDefault("recordingbasename", "Recording")

	// Audio
	viper.SetDefault("samplerate", 8000)
	viper.SetDefault("channels", 1)
	viper.SetDefault("recordinglength", 2100*time.Millisecond)
	viper.SetDefault("volume", 50)
	viper.SetDefault("gain", 1)
	viper.SetDefault("queuesize", 4096)
	viper.SetDefault("dummyaudio", false)
	viper.SetDefault("inputfile", "")

	// Fixed output format, 0 follows each recording
	viper.SetDefault("outputsamplerate", 0)
	viper.SetDefault("outputchannels", 0)

	// Cancel button
	viper.SetDefault("cancelhotkey", "ctrl+shift+s")
	viper.SetDefault("debounce", 50*time.Millisecond)
	viper.SetDefault("releasepoll", 10*time.Millisecond)

	viper.SetDefault("watchdogtimeout", 5*time.Second)
}
