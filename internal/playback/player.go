package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/internal/storage"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/container"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var (
	ErrNotOpen    = errors.New("no recording is open for playback")
	ErrNotStopped = errors.New("playback is not stopped")
)

type State int32

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Samples decoded per read from the file.
const chunkSize = 256

// Player streams a recording to an OutputDevice, one sample at a time.
//
// A session is opened with Open and played by a single goroutine spawned by
// Start. The goroutine owns the file once started, and closes it when it
// exits, whether the recording ended or Stop was called.
type Player struct {
	logger *slog.Logger
	store  *storage.Store
	output audiodevice.OutputDevice

	mu      sync.Mutex
	state   atomic.Int32
	offset  atomic.Int64
	file    afero.File
	decoder *wav.Decoder
	header  container.Header
	session *slog.Logger
	wake    chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewPlayer(store *storage.Store, output audiodevice.OutputDevice, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		logger: logger,
		store:  store,
		output: output,
	}
}

func (p *Player) State() State {
	return State(p.state.Load())
}

// Bytes of the data region consumed by the current session.
func (p *Player) Offset() int64 {
	return p.offset.Load()
}

// Header of the open recording.
func (p *Player) Header() container.Header {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.header
}

// Open the recording at path and configure the output for it.
//
// A malformed header, or one whose lengths disagree with the data present
// (a recording abandoned before it was closed), is reported as a
// *container.FormatError, leaving the player untouched. An open but
// unstarted recording is released first.
func (p *Player) Open(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reapLocked()

	if p.State() != Stopped {
		return ErrNotStopped
	}

	f, err := p.store.Open(path)
	if err != nil {
		p.logger.Error("could not open recording", "path", path, "err", err)
		return err
	}

	header, err := container.Verify(f)
	if err != nil {
		f.Close()
		p.logger.Error("rejected recording", "path", path, "err", err)
		return fmt.Errorf("could not play %s: %w", path, err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return fmt.Errorf("could not rewind %s: %w", path, err)
	}
	decoder := wav.NewDecoder(f)
	if err := decoder.FwdToPCM(); err != nil {
		f.Close()
		p.logger.Error("could not find PCM data", "path", path, "err", err)
		return fmt.Errorf("could not find PCM data in %s: %w", path, err)
	}

	err = p.output.Configure(audiodevice.DeviceProperties{
		SampleRate:  int(header.SampleRate),
		NumChannels: int(header.NumChannels),
	})
	if err != nil {
		f.Close()
		p.logger.Error("could not configure output for recording", "path", path, "err", err)
		return err
	}

	if p.file != nil {
		p.file.Close()
	}
	p.file = f
	p.decoder = decoder
	p.header = header
	p.offset.Store(0)
	p.session = p.logger.With("playback uuid", uuid.New(), "path", path)
	p.session.Info("opened recording",
		"sampleRate", header.SampleRate,
		"channels", header.NumChannels,
		"duration", header.Duration(),
	)
	return nil
}

// Start playing the open recording. No-op while playing or paused.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reapLocked()

	if p.State() != Stopped {
		return nil
	}
	if p.file == nil || p.done != nil {
		return ErrNotOpen
	}

	if err := p.output.Start(); err != nil {
		p.session.Error("could not start output", "err", err)
		return fmt.Errorf("could not start output: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.wake = make(chan struct{}, 1)
	p.state.Store(int32(Playing))

	go p.run(ctx, p.file, p.decoder, p.wake, p.done, p.session)
	p.session.Debug("playback started")
	return nil
}

// Pause a playing recording. No-op in other states.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.state.CompareAndSwap(int32(Playing), int32(Paused)) {
		return nil
	}
	if err := p.output.Pause(); err != nil {
		p.session.Warn("could not pause output", "err", err)
	}
	p.session.Debug("playback paused", "offset", p.Offset())
	return nil
}

// Resume a paused recording from the next unread sample. No-op in other states.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.State() != Paused {
		return nil
	}
	if err := p.output.Resume(); err != nil {
		p.session.Warn("could not resume output", "err", err)
	}
	if !p.state.CompareAndSwap(int32(Paused), int32(Playing)) {
		return nil
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
	p.session.Debug("playback resumed", "offset", p.Offset())
	return nil
}

// Stop playback and release the recording. Returns once the playback
// goroutine has exited. No-op when nothing is open.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reapLocked()

	if p.file == nil {
		return nil
	}

	if p.done != nil {
		p.state.Store(int32(Stopped))
		p.cancel()
		if err := p.output.Stop(); err != nil {
			p.session.Warn("could not stop output", "err", err)
		}
		<-p.done
	} else {
		p.file.Close()
		if err := p.output.Stop(); err != nil {
			p.session.Warn("could not stop output", "err", err)
		}
	}

	p.session.Info("playback stopped", "offset", p.Offset())
	p.clearLocked()
	return nil
}

// Wait blocks until the playback goroutine, if any, exits.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Release a session whose goroutine has already exited on its own.
func (p *Player) reapLocked() {
	if p.done == nil {
		return
	}
	select {
	case <-p.done:
		p.clearLocked()
	default:
	}
}

func (p *Player) clearLocked() {
	p.state.Store(int32(Stopped))
	p.offset.Store(0)
	p.file = nil
	p.decoder = nil
	p.cancel = nil
	p.done = nil
	p.wake = nil
}

func (p *Player) run(
	ctx context.Context,
	file afero.File,
	decoder *wav.Decoder,
	wake <-chan struct{},
	done chan<- struct{},
	logger *slog.Logger,
) {
	defer close(done)
	defer file.Close()

	buf := &goaudio.IntBuffer{
		Data: make([]int, chunkSize),
		Format: &goaudio.Format{
			NumChannels: int(decoder.NumChans),
			SampleRate:  int(decoder.SampleRate),
		},
	}

	for {
		n, readErr := decoder.PCMBuffer(buf)

		for i := 0; i < n; i++ {
			if !p.waitPlaying(ctx, wake) {
				return
			}
			if err := p.output.WriteSample(int16(buf.Data[i])); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("output fault, stopping playback", "offset", p.Offset(), "err", err)
				p.finish(logger)
				return
			}
			p.offset.Add(container.BytesPerSample)
			runtime.Gosched()
		}

		if readErr != nil {
			logger.Warn("read fault, stopping playback", "offset", p.Offset(), "err", readErr)
			break
		}
		if n == 0 {
			logger.Info("end of recording", "offset", p.Offset())
			break
		}
	}
	p.finish(logger)
}

// Block while paused. Returns false once the session is cancelled.
func (p *Player) waitPlaying(ctx context.Context, wake <-chan struct{}) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		switch p.State() {
		case Playing:
			return true
		case Paused:
			select {
			case <-wake:
			case <-ctx.Done():
				return false
			}
		default:
			return false
		}
	}
}

// The recording ended without Stop.
func (p *Player) finish(logger *slog.Logger) {
	if err := p.output.Stop(); err != nil {
		logger.Warn("could not stop output", "err", err)
	}
	p.offset.Store(0)
	p.state.Store(int32(Stopped))
}
