package device

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// --------------------------------------------------------------------------------
// FileAudioSource

// A RawSource that replays the first channel of a .WAV file in a loop.
//
// Stands in for a microphone, e.g. to record a known signal without
// capture hardware. The file must hold 16 bit PCM.
type FileAudioSource struct {
	logger *slog.Logger
	uuid   uuid.UUID

	properties audiodevice.DeviceProperties
	samples    []int

	mu   sync.Mutex
	next int
}

// Make a new FileAudioSource from the .WAV file at audioFilePath on fs.
// The whole file is decoded up front.
func NewFileAudioSource(fs afero.Fs, audioFilePath string) (*FileAudioSource, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"file audio source uuid", uuid,
	)

	f, err := fs.Open(audioFilePath)
	if err != nil {
		logger.Error(
			"could not open audio file",
			"audioFile", audioFilePath,
			"err", err,
		)
		return nil, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		logger.Error(
			"could not decode audio file",
			"audioFile", audioFilePath,
			"err", decoder.Err(),
		)
		return nil, errors.New("error while decoding audio file")
	}
	if decoder.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d", decoder.BitDepth)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		logger.Error(
			"could not get full PCM buffer from audio file",
			"audioFile", audioFilePath,
			"err", err,
		)
		return nil, err
	}

	channels := int(decoder.NumChans)
	samples := make([]int, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		samples = append(samples, buf.Data[i])
	}

	logger.Debug(
		"loaded audio file",
		"audioFile", audioFilePath,
		"sampleRate", decoder.SampleRate,
		"channels", decoder.NumChans,
		"samples", len(samples),
	)

	return &FileAudioSource{
		logger: logger,
		uuid:   uuid,
		properties: audiodevice.DeviceProperties{
			SampleRate:  int(decoder.SampleRate),
			NumChannels: 1,
		},
		samples: samples,
	}, nil
}

// NewFileSampler wraps a FileAudioSource so that full scale samples map
// onto the Sampler range.
func NewFileSampler(source *FileAudioSource) *ScaledSampler {
	return NewScaledSampler(source, math.MinInt16, math.MaxInt16)
}

func (s *FileAudioSource) ReadRaw() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) == 0 {
		return 0, errNoSample
	}
	sample := s.samples[s.next]
	s.next = (s.next + 1) % len(s.samples)
	return sample, nil
}

// Replay from the start of the file.
func (s *FileAudioSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = 0
}

func (s *FileAudioSource) GetDeviceProperties() audiodevice.DeviceProperties {
	return s.properties
}
