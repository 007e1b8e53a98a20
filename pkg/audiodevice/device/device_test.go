package device

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monoProperties = audiodevice.DeviceProperties{SampleRate: 8000, NumChannels: 1}

type fakeRawSource struct {
	values []int
	gain   int
}

func (s *fakeRawSource) ReadRaw() (int, error) {
	if len(s.values) == 0 {
		return 0, errNoSample
	}
	v := s.values[0]
	s.values = s.values[1:]
	return v, nil
}

func (s *fakeRawSource) SetGain(gain int) { s.gain = gain }

func (s *fakeRawSource) GetDeviceProperties() audiodevice.DeviceProperties {
	return monoProperties
}

func TestScaleMapsAdcRange(t *testing.T) {
	assert.Equal(t, int16(-10000), Scale(0, 0, 1024, -10000, 10000))
	assert.Equal(t, int16(0), Scale(512, 0, 1024, -10000, 10000))
	assert.Equal(t, int16(10000), Scale(1024, 0, 1024, -10000, 10000))
	assert.Equal(t, int16(-10000), Scale(-32768, -32768, 32767, -10000, 10000))
	assert.Equal(t, int16(10000), Scale(32767, -32768, 32767, -10000, 10000))
	assert.Equal(t, int16(-10000), Scale(5, 5, 5, -10000, 10000))
	assert.Equal(t, int16(32767), Scale(100000, 0, 1, 0, 1))
}

func TestScaledSampler(t *testing.T) {
	source := &fakeRawSource{values: []int{0, 1024}}
	sampler := NewScaledSampler(source, 0, 1024)

	s, err := sampler.ReadSample()
	require.NoError(t, err)
	assert.Equal(t, int16(audiodevice.SampleRangeMin), s)

	s, err = sampler.ReadSample()
	require.NoError(t, err)
	assert.Equal(t, int16(audiodevice.SampleRangeMax), s)

	_, err = sampler.ReadSample()
	assert.Error(t, err)

	assert.Equal(t, MaxGain, sampler.SetGain(9))
	assert.Equal(t, MaxGain, source.gain)
	assert.Equal(t, MinGain, sampler.SetGain(-1))
	assert.Equal(t, 3, sampler.SetGain(3))
	assert.Equal(t, monoProperties, sampler.GetDeviceProperties())
}

func TestScaledSamplerResetWithoutResetter(t *testing.T) {
	source := &fakeRawSource{values: []int{512}}
	sampler := NewScaledSampler(source, 0, 1024)
	sampler.Reset()

	s, err := sampler.ReadSample()
	require.NoError(t, err)
	assert.Equal(t, int16(0), s)
}

func TestMalgoInputDeviceResetDrainsQueue(t *testing.T) {
	d := &MalgoInputDevice{
		logger: slog.Default(),
		queue:  make(chan int16, 8),
	}
	for i := int16(1); i <= 8; i++ {
		d.queue <- i
	}

	sampler := NewMalgoSampler(d)
	sampler.Reset()
	_, err := sampler.ReadSample()
	assert.ErrorIs(t, err, errNoSample)

	d.queue <- 0
	s, err := sampler.ReadSample()
	require.NoError(t, err)
	assert.Equal(t, int16(0), s)
}

func TestMalgoOutputDeviceVolumeIsNoOp(t *testing.T) {
	d := &MalgoOutputDevice{properties: monoProperties}
	d.SetVolume(10)
	assert.Equal(t, monoProperties, d.GetDeviceProperties())
}

func TestAudioAugmentationDeviceVolume(t *testing.T) {
	output := NewDummyOutputDevice(monoProperties)
	device := NewAudioAugmentationDevice(output)
	require.NoError(t, device.Start())

	require.NoError(t, device.WriteSample(1000))
	device.SetVolume(50)
	require.NoError(t, device.WriteSample(1000))
	device.SetVolume(150)
	assert.Equal(t, 100, device.GetVolume())
	device.SetVolume(-3)
	assert.Equal(t, 0, device.GetVolume())
	assert.Equal(t, 0, output.Volume())
	require.NoError(t, device.WriteSample(1000))

	assert.Equal(t, []int16{1000, 500, 0}, output.Samples())
}

func TestDummyOutputDevice(t *testing.T) {
	output := NewDummyOutputDevice(monoProperties)
	assert.Error(t, output.WriteSample(1), "writes before Start are rejected")

	output.ConfigureErr = errors.New("bus busy")
	err := output.Configure(audiodevice.DeviceProperties{SampleRate: 16000, NumChannels: 2})
	require.ErrorIs(t, err, audiodevice.ErrPeripheralInit)
	assert.Equal(t, monoProperties, output.GetDeviceProperties())

	require.NoError(t, output.Configure(audiodevice.DeviceProperties{SampleRate: 16000, NumChannels: 2}))
	assert.Equal(t, 1, output.Configures())
	require.NoError(t, output.Start())
	require.NoError(t, output.Pause())
	assert.True(t, output.Paused())
	require.NoError(t, output.Resume())
	require.NoError(t, output.WriteSample(7))
	require.NoError(t, output.Stop())
	assert.False(t, output.Running())
	assert.Equal(t, []int16{7}, output.Samples())
}

func TestDummySamplerMisses(t *testing.T) {
	sampler := NewDummySampler(monoProperties, []int16{1, 2, 3})
	sampler.Misses = map[int]bool{1: true}

	var got []int16
	for i := 0; i < 5; i++ {
		s, err := sampler.ReadSample()
		if err != nil {
			continue
		}
		got = append(got, s)
	}
	assert.Equal(t, []int16{1, 2, 3, 1}, got)
	assert.Equal(t, 5, sampler.Reads())
	assert.Equal(t, MaxGain, sampler.SetGain(42))

	sampler.Reset()
	assert.Equal(t, 1, sampler.Resets())
	s, err := sampler.ReadSample()
	require.NoError(t, err)
	assert.Equal(t, int16(1), s)
}
