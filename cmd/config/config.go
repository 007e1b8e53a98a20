package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/internal/utils"
	"github.com/spf13/viper"
)

// Load the config file at configFilePath over the viper defaults.
// A missing file is not an error, the defaults are used as they are.
func LoadConfig(configFilePath string) error {
	utils.SetViperDefaults()

	viper.SetConfigFile(configFilePath)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			slog.Info("no config file found", "configFilePath", configFilePath)
			return nil
		}
		slog.Error("error during config read", "err", err)
		return err
	}
	return nil
}

type Settings struct {
	LogLevel string
	LogFile  string

	StorageRoot       string
	RecordingDir      string
	RecordingBaseName string

	SampleRate      int
	Channels        int
	RecordingLength time.Duration
	Volume          int
	Gain            int
	QueueSize       int
	DummyAudio      bool
	InputFile       string

	OutputSampleRate int
	OutputChannels   int

	CancelHotkey string
	Debounce     time.Duration
	ReleasePoll  time.Duration

	WatchdogTimeout time.Duration
}

// Settings currently held by viper.
func Current() Settings {
	return Settings{
		LogLevel:          viper.GetString("loglevel"),
		LogFile:           viper.GetString("logfile"),
		StorageRoot:       viper.GetString("storageroot"),
		RecordingDir:      viper.GetString("recordingdir"),
		RecordingBaseName: viper.GetString("recordingbasename"),
		SampleRate:        viper.GetInt("samplerate"),
		Channels:          viper.GetInt("channels"),
		RecordingLength:   viper.GetDuration("recordinglength"),
		Volume:            viper.GetInt("volume"),
		Gain:              viper.GetInt("gain"),
		QueueSize:         viper.GetInt("queuesize"),
		DummyAudio:        viper.GetBool("dummyaudio"),
		InputFile:         viper.GetString("inputfile"),
		OutputSampleRate:  viper.GetInt("outputsamplerate"),
		OutputChannels:    viper.GetInt("outputchannels"),
		CancelHotkey:      viper.GetString("cancelhotkey"),
		Debounce:          viper.GetDuration("debounce"),
		ReleasePoll:       viper.GetDuration("releasepoll"),
		WatchdogTimeout:   viper.GetDuration("watchdogtimeout"),
	}
}
