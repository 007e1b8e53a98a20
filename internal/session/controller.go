package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/internal/playback"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/internal/recording"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/internal/storage"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice/device"
)

var ErrBusy = errors.New("a recording is already in progress")

const (
	MinVolume = 0
	MaxVolume = 100
)

type Config struct {
	SampleRate int
	Channels   int
	Recording  recording.Options
}

// Controller arbitrates between playback and recording.
//
// At most one of the two is active: starting playback cancels a running
// recording and waits for it to be persisted, and recording stops playback.
type Controller struct {
	logger   *slog.Logger
	store    *storage.Store
	output   audiodevice.OutputDevice
	sampler  audiodevice.Sampler
	player   *playback.Player
	recorder *recording.Recorder
	config   Config

	mu              sync.Mutex
	volume          int
	cancelRecording context.CancelFunc
	recordingDone   chan struct{}
}

func NewController(
	store *storage.Store,
	output audiodevice.OutputDevice,
	sampler audiodevice.Sampler,
	config Config,
	logger *slog.Logger,
) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		logger:   logger,
		store:    store,
		output:   output,
		sampler:  sampler,
		player:   playback.NewPlayer(store, output, logger),
		recorder: recording.NewRecorder(sampler, store, config.Recording, logger),
		config:   config,
		volume:   MaxVolume,
	}
}

// Lock the controller once no recording is running, cancelling any that is.
func (c *Controller) lockIdle() {
	for {
		c.mu.Lock()
		if c.recordingDone == nil {
			return
		}
		cancel, done := c.cancelRecording, c.recordingDone
		c.mu.Unlock()

		c.logger.Info("cancelling recording in progress")
		cancel()
		<-done
	}
}

// Play the recording at path, superseding any playback or recording.
func (c *Controller) StartPlayback(path string) error {
	c.lockIdle()
	defer c.mu.Unlock()

	if err := c.player.Stop(); err != nil {
		return err
	}
	if err := c.player.Open(path); err != nil {
		return err
	}
	return c.player.Start()
}

// Play the most recently modified recording and return its path.
func (c *Controller) PlayLast() (string, error) {
	path, err := c.store.LastRecording()
	if err != nil {
		return "", err
	}
	return path, c.StartPlayback(path)
}

func (c *Controller) StopPlayback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player.Stop()
}

func (c *Controller) PausePlayback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player.Pause()
}

func (c *Controller) ResumePlayback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player.Resume()
}

func (c *Controller) PlaybackState() playback.State {
	return c.player.State()
}

// Block until the current playback, if any, ends.
func (c *Controller) WaitPlayback() {
	c.player.Wait()
}

func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordingDone != nil
}

// Record into <recording dir>/<name>.wav, stopping playback first.
//
// Returns ErrBusy if another recording is in progress.
func (c *Controller) Record(ctx context.Context, name string, duration time.Duration) (recording.Result, error) {
	c.mu.Lock()
	if c.recordingDone != nil {
		c.mu.Unlock()
		return recording.Result{}, ErrBusy
	}
	if err := c.player.Stop(); err != nil {
		c.mu.Unlock()
		return recording.Result{}, err
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancelRecording = cancel
	c.recordingDone = done
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		c.cancelRecording = nil
		c.recordingDone = nil
		c.mu.Unlock()
		close(done)
	}()

	return c.recorder.Record(ctx, recording.Request{
		Path:       c.store.PathFor(name),
		SampleRate: c.config.SampleRate,
		Channels:   c.config.Channels,
		Duration:   duration,
	})
}

// Record into the next free sequential name, see storage.Store.NextRecordingName.
func (c *Controller) RecordNext(ctx context.Context, duration time.Duration) (recording.Result, error) {
	return c.Record(ctx, c.store.NextRecordingName(), duration)
}

// Set the output volume, clamped to [MinVolume, MaxVolume]. Returns the value applied.
func (c *Controller) SetVolume(percent int) int {
	percent = min(max(percent, MinVolume), MaxVolume)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = percent
	c.output.SetVolume(percent)
	c.logger.Debug("volume set", "volume", percent)
	return percent
}

func (c *Controller) Volume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Set the input gain, clamped to [device.MinGain, device.MaxGain]. Returns the value applied.
func (c *Controller) SetGain(gain int) int {
	gain = min(max(gain, device.MinGain), device.MaxGain)
	applied := c.sampler.SetGain(gain)
	c.logger.Debug("gain set", "gain", applied)
	return applied
}

// Stop any recording and playback.
func (c *Controller) Close() error {
	c.lockIdle()
	defer c.mu.Unlock()
	return c.player.Stop()
}
