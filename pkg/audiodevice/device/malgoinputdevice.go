package device

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
	"github.com/gen2brain/malgo"
	"github.com/google/uuid"
)

// MalgoInputDevice is a RawSource capturing from a microphone using malgo (miniaudio).
//
// The capture callback pushes the first channel of every frame into a bounded
// queue; ReadRaw pops from that queue without blocking. Frames arriving while
// the queue is full are dropped and counted as overruns.
//
// Wrap in a ScaledSampler with NewMalgoSampler to obtain an audiodevice.Sampler.
type MalgoInputDevice struct {
	logger *slog.Logger
	uuid   uuid.UUID

	malgoContext *malgo.AllocatedContext
	device       *malgo.Device
	properties   audiodevice.DeviceProperties
	queue        chan int16
	overruns     atomic.Int64

	closeOnce sync.Once
}

// NewMalgoInputDevice creates and starts a capture stream on the device with the given ID,
// or the default capture device if deviceID is nil.
func NewMalgoInputDevice(
	deviceID *malgo.DeviceID,
	properties audiodevice.DeviceProperties,
	queueSize int,
) (*MalgoInputDevice, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"malgo input device uuid", uuid,
	)

	malgoContext, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		logger.Error("failed to initialize malgo context", "err", err)
		return nil, fmt.Errorf("%w: %w", audiodevice.ErrPeripheralInit, err)
	}

	d := &MalgoInputDevice{
		logger:       logger,
		uuid:         uuid,
		malgoContext: malgoContext,
		properties:   properties,
		queue:        make(chan int16, queueSize),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(properties.NumChannels)
	deviceConfig.SampleRate = uint32(properties.SampleRate)
	if deviceID != nil {
		deviceConfig.Capture.DeviceID = deviceID.Pointer()
	}

	frameBytes := properties.NumChannels * 2
	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, framecount uint32) {
			for i := 0; i+frameBytes <= len(pInputSamples); i += frameBytes {
				sample := int16(binary.LittleEndian.Uint16(pInputSamples[i:]))
				select {
				case d.queue <- sample:
				default:
					d.overruns.Add(1)
				}
			}
		},
	}

	device, err := malgo.InitDevice(malgoContext.Context, deviceConfig, callbacks)
	if err != nil {
		logger.Error("failed to initialize capture device", "err", err)
		_ = malgoContext.Uninit()
		malgoContext.Free()
		return nil, fmt.Errorf("%w: %w", audiodevice.ErrPeripheralInit, err)
	}
	if err := device.Start(); err != nil {
		logger.Error("failed to start capture device", "err", err)
		device.Uninit()
		_ = malgoContext.Uninit()
		malgoContext.Free()
		return nil, fmt.Errorf("%w: %w", audiodevice.ErrPeripheralInit, err)
	}
	d.device = device

	logger.Debug(
		"started malgo input device",
		"sampleRate", properties.SampleRate,
		"channels", properties.NumChannels,
		"queueSize", queueSize,
	)
	return d, nil
}

// NewMalgoSampler wraps a MalgoInputDevice so that full scale int16 captures map
// onto the Sampler range.
func NewMalgoSampler(d *MalgoInputDevice) *ScaledSampler {
	return NewScaledSampler(d, math.MinInt16, math.MaxInt16)
}

func (d *MalgoInputDevice) ReadRaw() (int, error) {
	select {
	case sample := <-d.queue:
		return int(sample), nil
	default:
		return 0, errNoSample
	}
}

// Drop every queued sample. Capture keeps running.
func (d *MalgoInputDevice) Reset() {
	dropped := 0
	for {
		select {
		case <-d.queue:
			dropped++
		default:
			d.logger.Debug("flushed capture queue", "dropped", dropped)
			return
		}
	}
}

// Number of captured frames dropped because the queue was full.
func (d *MalgoInputDevice) Overruns() int64 {
	return d.overruns.Load()
}

func (d *MalgoInputDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.properties
}

func (d *MalgoInputDevice) Close() {
	d.logger.Debug("shutdown called")
	d.closeOnce.Do(func() {
		if err := d.device.Stop(); err != nil {
			d.logger.Error("error stopping capture device", "err", err)
		}
		d.device.Uninit()
		_ = d.malgoContext.Uninit()
		d.malgoContext.Free()
		d.logger.Info("malgo input device closed")
	})
}
