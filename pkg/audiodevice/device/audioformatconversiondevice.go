package device

import (
	"log/slog"
	"math"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
	"github.com/oov/audio/resampler"
)

const (
	// Output buffer per channel for a single resampled frame.
	// Enough for upsampling by a factor well beyond 48000/8000.
	resampleBufferSize = 64

	resampleQuality = 10
)

// Middle-man output device to handle format mismatches between the stream
// being played and an output that only runs at fixed properties.
//
// e.g. if the recording is 8000Hz mono, but the amplifier only runs at
// 48000Hz stereo, this device converts every frame on the way through.
//
// Configure records the properties of the stream being played and always
// configures the wrapped device with its fixed sink properties.
type AudioFormatConversionDevice struct {
	audiodevice.OutputDevice

	sinkProperties audiodevice.DeviceProperties

	mu                        sync.Mutex
	sourceProperties          audiodevice.DeviceProperties
	formatConversionFunctions []audioFormatConversionFunction
	pending                   []float32
}

// Create a new AudioFormatConversionDevice over sink, which is always
// configured with sinkProperties.
func NewAudioFormatConversionDevice(
	sink audiodevice.OutputDevice,
	sinkProperties audiodevice.DeviceProperties,
) *AudioFormatConversionDevice {
	return &AudioFormatConversionDevice{
		OutputDevice:     sink,
		sinkProperties:   sinkProperties,
		sourceProperties: sinkProperties,
	}
}

func (d *AudioFormatConversionDevice) Configure(properties audiodevice.DeviceProperties) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.OutputDevice.Configure(d.sinkProperties); err != nil {
		return err
	}

	formatConversionFunctions := make([]audioFormatConversionFunction, 0)
	if properties.NumChannels == 1 && d.sinkProperties.NumChannels == 2 {
		slog.Debug("adding mono to stereo")
		formatConversionFunctions = append(formatConversionFunctions, monoToStereo)
	}
	if properties.NumChannels == 2 && d.sinkProperties.NumChannels == 1 {
		slog.Debug("adding stereo to mono")
		formatConversionFunctions = append(formatConversionFunctions, stereoToMono)
	}
	if properties.SampleRate != d.sinkProperties.SampleRate {
		slog.Debug("adding resampler")
		formatConversionFunctions = append(formatConversionFunctions, newResampleFunction(properties, d.sinkProperties))
	}

	d.sourceProperties = properties
	d.formatConversionFunctions = formatConversionFunctions
	d.pending = make([]float32, 0, properties.NumChannels)
	return nil
}

// Buffer sample until a full source frame is available, then convert
// the frame and write the result to the wrapped device.
func (d *AudioFormatConversionDevice) WriteSample(sample int16) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = append(d.pending, float32(sample)/math.MaxInt16)
	if len(d.pending) < d.sourceProperties.NumChannels {
		return nil
	}

	frame := d.pending
	for _, f := range d.formatConversionFunctions {
		frame = f(frame)
	}
	d.pending = d.pending[:0]

	for _, v := range frame {
		if err := d.OutputDevice.WriteSample(toInt16(v)); err != nil {
			return err
		}
	}
	return nil
}

// Properties of the stream being played, not of the wrapped device.
func (d *AudioFormatConversionDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sourceProperties
}

func (d *AudioFormatConversionDevice) GetSinkDeviceProperties() audiodevice.DeviceProperties {
	return d.sinkProperties
}

// --------------------------------------------------------------------------------

// Converts one interleaved frame.
type audioFormatConversionFunction func(sourceFrame []float32) []float32

func monoToStereo(sourceFrame []float32) []float32 {
	return []float32{sourceFrame[0], sourceFrame[0]}
}

func stereoToMono(sourceFrame []float32) []float32 {
	return []float32{(sourceFrame[0] + sourceFrame[1]) / 2}
}

func newResampleFunction(sourceProperties audiodevice.DeviceProperties, sinkProperties audiodevice.DeviceProperties) audioFormatConversionFunction {
	channels := sinkProperties.NumChannels
	r := resampler.New(channels, sourceProperties.SampleRate, sinkProperties.SampleRate, resampleQuality)

	sinkBufs := make([][]float32, channels)
	for c := range sinkBufs {
		sinkBufs[c] = make([]float32, resampleBufferSize)
	}
	buf := make([]float32, 0, channels*resampleBufferSize)

	return func(sourceFrame []float32) []float32 {
		written := 0
		for c := 0; c < channels; c++ {
			_, written = r.ProcessFloat32(c, sourceFrame[c:c+1], sinkBufs[c])
		}

		// Interleave again
		buf = buf[:0]
		for i := 0; i < written; i++ {
			for c := 0; c < channels; c++ {
				buf = append(buf, sinkBufs[c][i])
			}
		}
		return buf
	}
}

func toInt16(v float32) int16 {
	scaled := math.Round(float64(v) * math.MaxInt16)
	switch {
	case scaled > math.MaxInt16:
		return math.MaxInt16
	case scaled < math.MinInt16:
		return math.MinInt16
	}
	return int16(scaled)
}
