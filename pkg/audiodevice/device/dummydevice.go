package device

import (
	"errors"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
)

var (
	errDeviceNotRunning = errors.New("device is not running")
	errNoSample         = errors.New("no sample available")
)

// An OutputDevice that keeps every sample written to it.
//
// A minimal example of the architecture of an OutputDevice, useful in testing.
// Safe for concurrent use.
type DummyOutputDevice struct {
	mu         sync.Mutex
	properties audiodevice.DeviceProperties
	samples    []int16
	running    bool
	paused     bool
	volume     int
	configures int

	// Fails the next Configure call when set.
	ConfigureErr error

	// Delay applied to every WriteSample, to emulate a hardware stream.
	WriteDelay time.Duration
}

func NewDummyOutputDevice(properties audiodevice.DeviceProperties) *DummyOutputDevice {
	return &DummyOutputDevice{
		properties: properties,
		volume:     100,
	}
}

func (d *DummyOutputDevice) Configure(properties audiodevice.DeviceProperties) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ConfigureErr != nil {
		err := d.ConfigureErr
		d.ConfigureErr = nil
		return errors.Join(audiodevice.ErrPeripheralInit, err)
	}
	d.properties = properties
	d.running = false
	d.paused = false
	d.configures++
	return nil
}

func (d *DummyOutputDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = true
	d.paused = false
	return nil
}

func (d *DummyOutputDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	d.paused = false
	return nil
}

func (d *DummyOutputDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		d.paused = true
	}
	return nil
}

func (d *DummyOutputDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = false
	return nil
}

func (d *DummyOutputDevice) WriteSample(sample int16) error {
	if d.WriteDelay > 0 {
		time.Sleep(d.WriteDelay)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return errDeviceNotRunning
	}
	d.samples = append(d.samples, sample)
	return nil
}

func (d *DummyOutputDevice) SetVolume(percent int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = percent
}

func (d *DummyOutputDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.properties
}

// Copy of every sample written so far.
func (d *DummyOutputDevice) Samples() []int16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int16(nil), d.samples...)
}

func (d *DummyOutputDevice) SampleCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.samples)
}

func (d *DummyOutputDevice) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *DummyOutputDevice) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

func (d *DummyOutputDevice) Volume() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume
}

// Number of successful Configure calls.
func (d *DummyOutputDevice) Configures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configures
}

// --------------------------------------------------------------------------------

// A Sampler that replays a fixed sequence of samples, looping at the end.
//
// Indices listed in Misses fail instead of producing a sample, without
// consuming a value from the sequence.
type DummySampler struct {
	mu         sync.Mutex
	properties audiodevice.DeviceProperties
	sequence   []int16
	next       int
	reads      int
	resets     int
	gain       int

	Misses map[int]bool
}

func NewDummySampler(properties audiodevice.DeviceProperties, sequence []int16) *DummySampler {
	return &DummySampler{
		properties: properties,
		sequence:   sequence,
		gain:       1,
	}
}

func (s *DummySampler) ReadSample() (int16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	read := s.reads
	s.reads++
	if s.Misses[read] || len(s.sequence) == 0 {
		return 0, errNoSample
	}
	sample := s.sequence[s.next%len(s.sequence)]
	s.next++
	return sample, nil
}

func (s *DummySampler) SetGain(gain int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gain = clampGain(gain)
	return s.gain
}

// Restart the sequence. Misses stay indexed by total reads.
func (s *DummySampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = 0
	s.resets++
}

func (s *DummySampler) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

func (s *DummySampler) Gain() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain
}

// Total number of ReadSample calls, including misses.
func (s *DummySampler) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *DummySampler) GetDeviceProperties() audiodevice.DeviceProperties {
	return s.properties
}
