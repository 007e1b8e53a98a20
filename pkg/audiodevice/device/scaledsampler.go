package device

import (
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
)

const (
	MinGain = 0
	MaxGain = 5
)

// Source of raw, unscaled readings, e.g. an ADC channel or a capture stream.
type RawSource interface {
	// Read a single raw value without blocking.
	ReadRaw() (int, error)
	GetDeviceProperties() audiodevice.DeviceProperties
}

// Implemented by RawSources that have a hardware gain control.
type GainController interface {
	SetGain(gain int)
}

// Implemented by RawSources that buffer readings ahead of ReadRaw.
type Resetter interface {
	Reset()
}

// A Sampler that maps raw readings from [InMin, InMax] linearly onto
// [audiodevice.SampleRangeMin, audiodevice.SampleRangeMax].
//
// For example a 10 bit ADC has InMin 0 and InMax 1024.
type ScaledSampler struct {
	source RawSource
	inMin  int
	inMax  int

	mu   sync.Mutex
	gain int
}

func NewScaledSampler(source RawSource, inMin int, inMax int) *ScaledSampler {
	return &ScaledSampler{
		source: source,
		inMin:  inMin,
		inMax:  inMax,
		gain:   1,
	}
}

func (s *ScaledSampler) ReadSample() (int16, error) {
	raw, err := s.source.ReadRaw()
	if err != nil {
		return 0, err
	}
	return Scale(raw, s.inMin, s.inMax, audiodevice.SampleRangeMin, audiodevice.SampleRangeMax), nil
}

// Clamp gain to [MinGain, MaxGain] and forward it to the source if it has a gain control.
func (s *ScaledSampler) SetGain(gain int) int {
	gain = clampGain(gain)
	s.mu.Lock()
	s.gain = gain
	s.mu.Unlock()
	if gc, ok := s.source.(GainController); ok {
		gc.SetGain(gain)
	}
	return gain
}

// Forward to the source if it buffers readings.
func (s *ScaledSampler) Reset() {
	if r, ok := s.source.(Resetter); ok {
		r.Reset()
	}
}

func (s *ScaledSampler) GetDeviceProperties() audiodevice.DeviceProperties {
	return s.source.GetDeviceProperties()
}

// Linearly map v from [inMin, inMax] onto [outMin, outMax], saturating at the int16 limits.
// Values outside the input range extrapolate.
func Scale(v int, inMin int, inMax int, outMin int, outMax int) int16 {
	if inMax == inMin {
		return int16(outMin)
	}
	scaled := int64(v-inMin)*int64(outMax-outMin)/int64(inMax-inMin) + int64(outMin)
	switch {
	case scaled > 32767:
		return 32767
	case scaled < -32768:
		return -32768
	}
	return int16(scaled)
}

func clampGain(gain int) int {
	return min(max(gain, MinGain), MaxGain)
}
