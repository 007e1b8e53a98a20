package audiodevice

import "errors"

// Wrapped by device implementations when the underlying peripheral
// cannot be initialized or configured. Fatal to the requested session,
// not to the process.
var ErrPeripheralInit = errors.New("audio peripheral initialization failed")

// Range of the values produced by a Sampler.
const (
	SampleRangeMin = -10000
	SampleRangeMax = 10000
)

type DeviceProperties struct {
	SampleRate  int
	NumChannels int
}

// Interface for audio output devices, e.g. an I2S amplifier or speakers.
//
// Output devices consume one 16-bit PCM sample at a time. The stream must be
// configured (Configure) and started (Start) before samples are written.
type OutputDevice interface {
	// Reconfigure the device for a new stream. Any running stream is stopped.
	// Errors wrap ErrPeripheralInit.
	Configure(properties DeviceProperties) error

	// Start the hardware stream.
	Start() error

	// Halt the hardware stream. Any blocked WriteSample returns.
	// Calling Stop on a stopped device is a no-op.
	Stop() error

	// Pause the hardware stream, keeping buffered samples.
	Pause() error

	// Resume a paused hardware stream.
	Resume() error

	// Write a single sample, blocking until the device accepts it.
	WriteSample(sample int16) error

	// Advisory output volume, as a percentage in [0,100].
	SetVolume(percent int)

	GetDeviceProperties() DeviceProperties
}

// Interface for audio sampling devices, e.g. an analog microphone behind an ADC.
type Sampler interface {
	// Read a single sample scaled to [SampleRangeMin, SampleRangeMax].
	//
	// ReadSample must not block: if no sample is available an error is returned
	// and the caller treats the read as a miss.
	ReadSample() (int16, error)

	// Set the input gain. Implementations clamp the value to their
	// supported range and return the value applied.
	SetGain(gain int) int

	// Discard anything captured before now, so the next read is fresh.
	Reset()

	GetDeviceProperties() DeviceProperties
}
