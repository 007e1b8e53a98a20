package device

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
	"github.com/gen2brain/malgo"
	"github.com/google/uuid"
)

// MalgoOutputDevice is an OutputDevice that plays audio to speakers using malgo (miniaudio).
//
// Samples written with WriteSample are queued and pulled by the malgo data
// callback. When the queue is empty the callback fills the period with silence.
type MalgoOutputDevice struct {
	logger *slog.Logger
	uuid   uuid.UUID

	malgoContext *malgo.AllocatedContext
	deviceID     *malgo.DeviceID
	queueSize    int

	mu         sync.Mutex
	device     *malgo.Device
	properties audiodevice.DeviceProperties
	queue      chan int16
	stopped    chan struct{}
	running    bool
	paused     bool
}

// NewMalgoOutputDevice creates a new MalgoOutputDevice on the device with the given ID,
// or the default playback device if deviceID is nil.
// queueSize determines how many samples may be buffered ahead of the hardware.
func NewMalgoOutputDevice(deviceID *malgo.DeviceID, queueSize int) (*MalgoOutputDevice, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"malgo output device uuid", uuid,
	)

	malgoContext, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		logger.Error("failed to initialize malgo context", "err", err)
		return nil, fmt.Errorf("%w: %w", audiodevice.ErrPeripheralInit, err)
	}

	return &MalgoOutputDevice{
		logger:       logger,
		uuid:         uuid,
		malgoContext: malgoContext,
		deviceID:     deviceID,
		queueSize:    queueSize,
		stopped:      make(chan struct{}),
	}, nil
}

// Configure tears down any existing hardware stream and initializes a new one
// with the given sample rate and channel count.
func (d *MalgoOutputDevice) Configure(properties audiodevice.DeviceProperties) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.teardown()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(properties.NumChannels)
	deviceConfig.SampleRate = uint32(properties.SampleRate)
	if d.deviceID != nil {
		deviceConfig.Playback.DeviceID = d.deviceID.Pointer()
	}

	queue := make(chan int16, d.queueSize)
	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, framecount uint32) {
			underflow := false
			for i := 0; i+1 < len(pOutputSample); i += 2 {
				var sample int16
				select {
				case sample = <-queue:
				default:
					underflow = true
				}
				binary.LittleEndian.PutUint16(pOutputSample[i:], uint16(sample))
			}
			if underflow {
				d.logger.Debug("output underflow detected", "frames", framecount)
			}
		},
	}

	device, err := malgo.InitDevice(d.malgoContext.Context, deviceConfig, callbacks)
	if err != nil {
		d.logger.Error(
			"failed to initialize playback device",
			"sampleRate", properties.SampleRate,
			"channels", properties.NumChannels,
			"err", err,
		)
		return fmt.Errorf("%w: %w", audiodevice.ErrPeripheralInit, err)
	}

	d.device = device
	d.queue = queue
	d.properties = properties

	d.logger.Debug(
		"configured malgo output device",
		"sampleRate", properties.SampleRate,
		"channels", properties.NumChannels,
		"queueSize", d.queueSize,
	)
	return nil
}

func (d *MalgoOutputDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return fmt.Errorf("%w: device not configured", audiodevice.ErrPeripheralInit)
	}
	if d.running {
		return nil
	}
	if err := d.device.Start(); err != nil {
		d.logger.Error("failed to start audio stream", "err", err)
		return err
	}
	d.stopped = make(chan struct{})
	d.running = true
	d.paused = false
	return nil
}

func (d *MalgoOutputDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop()
}

func (d *MalgoOutputDevice) stop() error {
	if !d.running {
		return nil
	}
	d.running = false
	d.paused = false
	close(d.stopped)

	var err error
	if d.device.IsStarted() {
		err = d.device.Stop()
		if err != nil {
			d.logger.Error("error stopping audio stream", "err", err)
		}
	}

	// Discard anything still queued
	for {
		select {
		case <-d.queue:
		default:
			return err
		}
	}
}

func (d *MalgoOutputDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running || d.paused {
		return nil
	}
	d.paused = true
	return d.device.Stop()
}

func (d *MalgoOutputDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running || !d.paused {
		return nil
	}
	d.paused = false
	return d.device.Start()
}

// Queue a sample for the hardware, blocking while the queue is full.
// Returns an error if the stream is stopped before the sample is accepted.
func (d *MalgoOutputDevice) WriteSample(sample int16) error {
	d.mu.Lock()
	queue, stopped, running := d.queue, d.stopped, d.running
	d.mu.Unlock()

	if !running {
		return errDeviceNotRunning
	}
	select {
	case queue <- sample:
		return nil
	case <-stopped:
		return errDeviceNotRunning
	}
}

// No-op: the device has no hardware volume control.
// Wrap it in an AudioAugmentationDevice to scale samples instead.
func (d *MalgoOutputDevice) SetVolume(percent int) {}

func (d *MalgoOutputDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.properties
}

// Close stops the audio stream and frees the malgo context.
func (d *MalgoOutputDevice) Close() {
	d.logger.Debug("shutdown called")
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teardown()
	if d.malgoContext != nil {
		_ = d.malgoContext.Uninit()
		d.malgoContext.Free()
		d.malgoContext = nil
	}
	d.logger.Info("malgo output device closed")
}

// Must hold d.mu
func (d *MalgoOutputDevice) teardown() {
	if d.device == nil {
		return
	}
	_ = d.stop()
	d.device.Uninit()
	d.device = nil
}
