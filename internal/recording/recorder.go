package recording

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/internal/input"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/internal/storage"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/container"
	"github.com/google/uuid"
)

const (
	DefaultDebounce    = 50 * time.Millisecond
	DefaultReleasePoll = 10 * time.Millisecond
)

type Request struct {
	// Path of the recording on the store filesystem.
	Path       string
	SampleRate int
	Channels   int
	Duration   time.Duration
}

type Result struct {
	Path string

	// Samples stored in the recording, per channel.
	Samples int

	// Reads that produced no sample.
	Misses int

	Elapsed time.Duration

	// Stopped early by the cancel button or by ctx.
	Cancelled bool

	// Stopped because every slot of the buffer was filled.
	BufferFull bool
}

// Options of a Recorder. Zero values select the defaults.
type Options struct {
	Button      input.Button
	Feeder      Feeder
	Clock       Clock
	Debounce    time.Duration
	ReleasePoll time.Duration
}

// Recorder samples audio into memory and persists it as a container once
// the recording ends.
//
// Sampling runs on the caller's goroutine. The loop performs no storage I/O;
// the file is created and written after the last sample is taken.
type Recorder struct {
	logger      *slog.Logger
	sampler     audiodevice.Sampler
	store       *storage.Store
	button      input.Button
	feeder      Feeder
	clock       Clock
	debounce    time.Duration
	releasePoll time.Duration
}

func NewRecorder(sampler audiodevice.Sampler, store *storage.Store, options Options, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		logger:      logger,
		sampler:     sampler,
		store:       store,
		button:      options.Button,
		feeder:      options.Feeder,
		clock:       options.Clock,
		debounce:    options.Debounce,
		releasePoll: options.ReleasePoll,
	}
	if r.button == nil {
		r.button = input.NeverPressed{}
	}
	if r.feeder == nil {
		r.feeder = nopFeeder{}
	}
	if r.clock == nil {
		r.clock = SystemClock{}
	}
	if r.debounce <= 0 {
		r.debounce = DefaultDebounce
	}
	if r.releasePoll <= 0 {
		r.releasePoll = DefaultReleasePoll
	}
	return r
}

// Record samples for req.Duration, or until the cancel button is confirmed
// or ctx is done, then writes the samples taken to req.Path.
//
// Cancellation is not an error: the truncated recording is persisted and
// reported with Result.Cancelled set. Storage failures are returned wrapped.
func (r *Recorder) Record(ctx context.Context, req Request) (Result, error) {
	if req.SampleRate <= 0 {
		return Result{}, fmt.Errorf("unsupported sample rate %d", req.SampleRate)
	}
	if req.Channels != 1 && req.Channels != 2 {
		return Result{}, fmt.Errorf("unsupported channel count %d", req.Channels)
	}
	if req.Duration < 0 {
		return Result{}, fmt.Errorf("negative recording duration %v", req.Duration)
	}

	logger := r.logger.With("recording uuid", uuid.New(), "path", req.Path)
	logger.Info("recording started", "sampleRate", req.SampleRate, "channels", req.Channels, "duration", req.Duration)

	buffer := make([]int16, container.SamplesForDuration(req.SampleRate, req.Duration))
	result := r.sample(ctx, req, buffer, logger)
	result.Path = req.Path

	logger.Info("recording finished",
		"samples", result.Samples,
		"misses", result.Misses,
		"elapsed", result.Elapsed,
		"cancelled", result.Cancelled,
		"bufferFull", result.BufferFull,
	)

	if err := r.persist(req, buffer[:result.Samples]); err != nil {
		logger.Error("could not persist recording", "err", err)
		return result, err
	}
	return result, nil
}

// Catch-up scheduler: one read is due every period from the start time.
// A late loop issues the overdue reads back to back until it is on time.
func (r *Recorder) sample(ctx context.Context, req Request, buffer []int16, logger *slog.Logger) Result {
	period := time.Duration(1_000_000/req.SampleRate) * time.Microsecond

	var result Result
	r.sampler.Reset()
	start := r.clock.Now()
	next := start

	for {
		r.feeder.Feed()
		runtime.Gosched()

		if result.Samples >= len(buffer) {
			result.BufferFull = true
			break
		}
		if ctx.Err() != nil {
			logger.Info("recording cancelled", "reason", ctx.Err())
			result.Cancelled = true
			break
		}
		now := r.clock.Now()
		if now.Sub(start) >= req.Duration {
			break
		}
		if r.button.Pressed() && r.confirmCancel(ctx, logger) {
			result.Cancelled = true
			break
		}
		if now.Before(next) {
			continue
		}

		sample, err := r.sampler.ReadSample()
		if err != nil {
			result.Misses++
		} else {
			buffer[result.Samples] = sample
			result.Samples++
		}
		next = next.Add(period)
	}

	result.Elapsed = r.clock.Now().Sub(start)
	return result
}

// A press counts once it is still held after the debounce window. The loop
// then waits for release, so the press does not leak into whatever runs next.
func (r *Recorder) confirmCancel(ctx context.Context, logger *slog.Logger) bool {
	r.clock.Sleep(r.debounce)
	r.feeder.Feed()
	if !r.button.Pressed() {
		logger.Debug("ignoring cancel press shorter than debounce", "debounce", r.debounce)
		return false
	}

	logger.Info("recording cancelled by button, waiting for release")
	for r.button.Pressed() && ctx.Err() == nil {
		r.feeder.Feed()
		r.clock.Sleep(r.releasePoll)
	}
	return true
}

func (r *Recorder) persist(req Request, samples []int16) error {
	f, err := r.store.Create(req.Path)
	if err != nil {
		return fmt.Errorf("could not create recording: %w", err)
	}

	w, err := container.NewWriter(f, req.Channels, req.SampleRate, req.Duration)
	if err != nil {
		f.Close()
		return fmt.Errorf("could not start recording container: %w", err)
	}
	if err := w.WriteSamples(samples); err != nil {
		f.Close()
		return fmt.Errorf("could not write recording: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("could not finalize recording: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not close recording: %w", err)
	}
	return nil
}
