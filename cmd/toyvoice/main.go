package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/cmd/config"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/internal/audioapi"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/internal/input/hotkeybutton"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/internal/recording"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/internal/session"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/internal/storage"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/internal/utils"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/internal/watchdog"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice/device"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const usage = `usage: toyvoice [flags] <command>

commands:
  record [name]   record into name, or the next free RecordingNN
  play <name>     play a recording from the recording directory
  last            play the most recent recording
  devices         list audio devices
`

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// Run the CLI with args and return the process exit code.
// Deferred cleanup, including the log file, runs before main exits.
func realMain(args []string) int {
	flags := flag.NewFlagSet("toyvoice", flag.ContinueOnError)
	configFilePath := flags.String("configFilePath", "config.yaml", "Set the file path to the config file.")
	flags.Usage = func() {
		fmt.Fprint(flags.Output(), usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if err := config.LoadConfig(*configFilePath); err != nil {
		return 1
	}
	settings := config.Current()

	logFilePointer, err := utils.ConfigureDefaultLogger(settings.LogLevel, settings.LogFile, slog.HandlerOptions{})
	if err != nil {
		slog.Error("error while configuring default logger", "err", err)
		return 1
	}
	if logFilePointer != nil {
		defer logFilePointer.Close()
	}

	if flags.NArg() == 0 {
		flags.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings, flags.Args()); err != nil {
		slog.Error("toyvoice failed", "err", err)
		return 1
	}
	return 0
}

func newAudioAPI(settings config.Settings) (audioapi.AudioIODeviceAPI, error) {
	properties := audiodevice.DeviceProperties{
		SampleRate:  settings.SampleRate,
		NumChannels: settings.Channels,
	}
	if settings.DummyAudio {
		slog.Info("using dummy audio devices")
		return audioapi.NewDummyAudioIODeviceAPI(properties), nil
	}
	return audioapi.NewMalgoApi(properties, settings.QueueSize)
}

// Convert every recording to the fixed output format, when one is set.
func newOutput(api audioapi.AudioIODeviceAPI, settings config.Settings) (audiodevice.OutputDevice, error) {
	output, err := api.InitDefaultOutputDevice()
	if err != nil {
		return nil, err
	}
	if settings.OutputSampleRate <= 0 {
		return output, nil
	}
	channels := settings.OutputChannels
	if channels <= 0 {
		channels = 2
	}
	return device.NewAudioFormatConversionDevice(output, audiodevice.DeviceProperties{
		SampleRate:  settings.OutputSampleRate,
		NumChannels: channels,
	}), nil
}

// Replay settings.InputFile instead of capturing, when set.
func newSampler(api audioapi.AudioIODeviceAPI, settings config.Settings) (audiodevice.Sampler, error) {
	if settings.InputFile == "" {
		return api.InitDefaultInputDevice()
	}
	source, err := device.NewFileAudioSource(afero.NewOsFs(), settings.InputFile)
	if err != nil {
		return nil, err
	}
	if source.GetDeviceProperties().SampleRate != settings.SampleRate {
		slog.Warn("input file sample rate differs from the recording sample rate",
			"inputFile", settings.InputFile,
			"fileSampleRate", source.GetDeviceProperties().SampleRate,
			"sampleRate", settings.SampleRate,
		)
	}
	return device.NewFileSampler(source), nil
}

func run(ctx context.Context, settings config.Settings, args []string) error {
	api, err := newAudioAPI(settings)
	if err != nil {
		return err
	}
	defer api.Close()

	if args[0] == "devices" {
		printDevices(api)
		return nil
	}

	output, err := newOutput(api, settings)
	if err != nil {
		return fmt.Errorf("could not open output device: %w", err)
	}
	sampler, err := newSampler(api, settings)
	if err != nil {
		return fmt.Errorf("could not open input device: %w", err)
	}

	store := storage.NewStore(
		afero.NewBasePathFs(afero.NewOsFs(), settings.StorageRoot),
		settings.RecordingDir,
		settings.RecordingBaseName,
		slog.Default(),
	)

	monitor := watchdog.New(settings.WatchdogTimeout, nil, slog.Default())

	button := hotkeybutton.NewHotkeyButton(slog.Default())
	if err := button.Start(ctx, settings.CancelHotkey); err != nil {
		slog.Warn("cancel hotkey unavailable, recordings run to completion", "err", err)
	}
	defer button.Stop()

	controller := session.NewController(
		store,
		device.NewAudioAugmentationDevice(output),
		sampler,
		session.Config{
			SampleRate: settings.SampleRate,
			Channels:   settings.Channels,
			Recording: recording.Options{
				Button:      button,
				Feeder:      monitor,
				Debounce:    settings.Debounce,
				ReleasePoll: settings.ReleasePoll,
			},
		},
		slog.Default(),
	)
	defer controller.Close()
	controller.SetVolume(settings.Volume)
	controller.SetGain(settings.Gain)

	g, gctx := errgroup.WithContext(ctx)
	commandCtx, commandDone := context.WithCancel(gctx)
	g.Go(func() error {
		return monitor.Run(commandCtx)
	})
	g.Go(func() error {
		defer commandDone()
		return runCommand(commandCtx, controller, store, settings, args)
	})
	return g.Wait()
}

func runCommand(
	ctx context.Context,
	controller *session.Controller,
	store *storage.Store,
	settings config.Settings,
	args []string,
) error {
	switch args[0] {
	case "record":
		var result recording.Result
		var err error
		if len(args) > 1 {
			result, err = controller.Record(ctx, args[1], settings.RecordingLength)
		} else {
			result, err = controller.RecordNext(ctx, settings.RecordingLength)
		}
		if err != nil {
			return err
		}
		fmt.Printf("recorded %d samples to %s in %v (cancelled: %t)\n",
			result.Samples, result.Path, result.Elapsed, result.Cancelled)
		return nil

	case "play":
		if len(args) < 2 {
			return errors.New("play needs a recording name")
		}
		name := strings.TrimSuffix(args[1], storage.Extension)
		if err := controller.StartPlayback(store.PathFor(name)); err != nil {
			return err
		}
		return waitPlayback(ctx, controller)

	case "last":
		path, err := controller.PlayLast()
		if err != nil {
			return err
		}
		fmt.Printf("playing %s\n", path)
		return waitPlayback(ctx, controller)

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// Block until playback ends, stopping it early if ctx is done.
func waitPlayback(ctx context.Context, controller *session.Controller) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		controller.WaitPlayback()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return controller.StopPlayback()
	}
}

func printDevices(api audioapi.AudioIODeviceAPI) {
	fmt.Println("Input devices:")
	for _, d := range api.InputDevices() {
		fmt.Println(d)
	}
	fmt.Println("Output devices:")
	for _, d := range api.OutputDevices() {
		fmt.Println(d)
	}
}
