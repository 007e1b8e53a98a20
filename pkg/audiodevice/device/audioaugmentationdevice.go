package device

import (
	"math"
	"sync/atomic"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
)

// Middle-man output device to handle audio augmentations,
// such as volume controls.
// Every sample written is augmented and then forwarded to the wrapped device,
// stream control calls are forwarded untouched.
type AudioAugmentationDevice struct {
	audiodevice.OutputDevice

	augmentationFunctions []audioAugmentationFunction

	// Volume as a percentage in [0,100]
	volume atomic.Int32
}

// Create a new AudioAugmentationDevice wrapping output, automatically adding
// audioAugmentationFunctions:
//   - volumeAdjust (controlled with AudioAugmentationDevice.SetVolume)
//
// The initial volume is 100 percent, which leaves samples unchanged.
func NewAudioAugmentationDevice(output audiodevice.OutputDevice) *AudioAugmentationDevice {
	device := &AudioAugmentationDevice{
		OutputDevice: output,
	}
	device.volume.Store(100)

	device.augmentationFunctions = []audioAugmentationFunction{
		device.volumeAdjust,
	}
	return device
}

func (d *AudioAugmentationDevice) WriteSample(sample int16) error {
	for _, f := range d.augmentationFunctions {
		sample = f(sample)
	}
	return d.OutputDevice.WriteSample(sample)
}

// Set the volume, clamped to [0,100]. 0 mutes, 100 is natural scaling.
// The clamped value is forwarded to the wrapped device as well.
func (d *AudioAugmentationDevice) SetVolume(percent int) {
	percent = min(max(percent, 0), 100)
	d.volume.Store(int32(percent))
	d.OutputDevice.SetVolume(percent)
}

func (d *AudioAugmentationDevice) GetVolume() int {
	return int(d.volume.Load())
}

// --------------------------------------------------------------------------------

// There is an expectation that an audioAugmentationFunction never changes
// the length or format of the stream, only sample values.
type audioAugmentationFunction func(sample int16) int16

func (d *AudioAugmentationDevice) volumeAdjust(sample int16) int16 {
	volume := d.volume.Load()
	if volume == 100 {
		return sample
	}
	return int16(math.Round(float64(sample) * float64(volume) / 100))
}
