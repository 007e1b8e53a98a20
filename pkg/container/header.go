package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

const (
	// Size of the fixed header in bytes.
	HeaderSize = 44

	// Size of the "RIFF" tag and the file length field, which file length does not count.
	riffPreambleSize = 8

	pcmChunkSize  = 16
	pcmFormatTag  = 1
	bitsPerSample = 16

	// Bytes of a single sample of a single channel
	BytesPerSample = bitsPerSample / 8
)

var (
	riffTag = [4]byte{'R', 'I', 'F', 'F'}
	waveTag = [4]byte{'W', 'A', 'V', 'E'}
	fmtTag  = [4]byte{'f', 'm', 't', ' '}
	dataTag = [4]byte{'d', 'a', 't', 'a'}
)

// Header is the fixed 44 byte RIFF/WAVE header of a linear PCM recording.
//
// The field order matches the on-disk layout, so the struct can be
// written and read with encoding/binary directly.
type Header struct {
	RiffID     [4]byte // "RIFF"
	FileLength uint32  // DataLength + HeaderSize - 8
	WaveID     [4]byte // "WAVE"

	FmtID         [4]byte // "fmt "
	ChunkSize     uint32  // 16 for PCM
	FormatTag     uint16  // 1 for PCM
	NumChannels   uint16  // 1 for mono, 2 for stereo
	SampleRate    uint32  // Hz
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample/8
	BlockAlign    uint16  // NumChannels * BitsPerSample/8
	BitsPerSample uint16  // always 16

	DataID     [4]byte // "data"
	DataLength uint32  // samples written * NumChannels * 2
}

// FormatError reports a header that is truncated, carries an unexpected
// tag or constant, or declares a data length that does not match the file.
type FormatError struct {
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed container header: %s: %s", e.Field, e.Reason)
}

// Build a header for a recording of the given duration.
//
// The data length is provisional, computed as if every sample of the
// duration will be written. Use Finalize once the true count is known.
func Build(channels int, sampleRate int, duration time.Duration) Header {
	blockAlign := uint16(channels * BytesPerSample)
	h := Header{
		RiffID:        riffTag,
		WaveID:        waveTag,
		FmtID:         fmtTag,
		ChunkSize:     pcmChunkSize,
		FormatTag:     pcmFormatTag,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
		DataID:        dataTag,
	}
	return Finalize(h, SamplesForDuration(sampleRate, duration))
}

// SamplesForDuration returns the number of samples (per channel) that a
// stream at sampleRate produces over duration, rounded down.
func SamplesForDuration(sampleRate int, duration time.Duration) int {
	if sampleRate <= 0 || duration <= 0 {
		return 0
	}
	return int(int64(sampleRate) * int64(duration) / int64(time.Second))
}

// Finalize recomputes the data length and file length from the true number
// of samples written. The given header is not modified.
func Finalize(h Header, samplesWritten int) Header {
	h.DataLength = uint32(samplesWritten) * uint32(h.NumChannels) * BytesPerSample
	h.FileLength = h.DataLength + HeaderSize - riffPreambleSize
	return h
}

// Number of samples (per channel) the header declares.
func (h Header) Samples() int {
	if h.BlockAlign == 0 {
		return 0
	}
	return int(h.DataLength / uint32(h.BlockAlign))
}

// Duration of audio the header declares.
func (h Header) Duration() time.Duration {
	if h.SampleRate == 0 {
		return 0
	}
	return time.Duration(int64(h.Samples()) * int64(time.Second) / int64(h.SampleRate))
}

// Encode the header into its 44 byte little-endian representation.
func (h Header) Encode() []byte {
	var buf bytes.Buffer
	buf.Grow(HeaderSize)
	// Writes to a bytes.Buffer cannot fail
	_ = binary.Write(&buf, binary.LittleEndian, &h)
	return buf.Bytes()
}

// Parse a header from the first HeaderSize bytes of b.
//
// Returns a *FormatError if b is short or any fixed field does not hold
// its expected value.
func Parse(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, &FormatError{
			Field:  "header",
			Reason: fmt.Sprintf("need %d bytes, have %d", HeaderSize, len(b)),
		}
	}

	var h Header
	if err := binary.Read(bytes.NewReader(b[:HeaderSize]), binary.LittleEndian, &h); err != nil {
		return Header{}, &FormatError{Field: "header", Reason: err.Error()}
	}
	if err := h.validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// ReadHeader reads and parses a header from the start of r.
func ReadHeader(r io.Reader) (Header, error) {
	b := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, b)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return Parse(b[:n])
	}
	if err != nil {
		return Header{}, fmt.Errorf("could not read container header: %w", err)
	}
	return Parse(b)
}

func (h Header) validate() error {
	tags := []struct {
		field string
		got   [4]byte
		want  [4]byte
	}{
		{"riff tag", h.RiffID, riffTag},
		{"wave tag", h.WaveID, waveTag},
		{"fmt tag", h.FmtID, fmtTag},
		{"data tag", h.DataID, dataTag},
	}
	for _, tag := range tags {
		if tag.got != tag.want {
			return &FormatError{
				Field:  tag.field,
				Reason: fmt.Sprintf("got %q, want %q", tag.got[:], tag.want[:]),
			}
		}
	}

	switch {
	case h.ChunkSize != pcmChunkSize:
		return &FormatError{Field: "chunk size", Reason: fmt.Sprintf("got %d, want %d", h.ChunkSize, pcmChunkSize)}
	case h.FormatTag != pcmFormatTag:
		return &FormatError{Field: "format tag", Reason: fmt.Sprintf("got %d, want PCM", h.FormatTag)}
	case h.BitsPerSample != bitsPerSample:
		return &FormatError{Field: "bits per sample", Reason: fmt.Sprintf("got %d, want %d", h.BitsPerSample, bitsPerSample)}
	case h.NumChannels != 1 && h.NumChannels != 2:
		return &FormatError{Field: "channels", Reason: fmt.Sprintf("got %d, want 1 or 2", h.NumChannels)}
	case h.SampleRate == 0:
		return &FormatError{Field: "sample rate", Reason: "zero"}
	case h.BlockAlign != h.NumChannels*BytesPerSample:
		return &FormatError{Field: "block align", Reason: fmt.Sprintf("got %d for %d channels", h.BlockAlign, h.NumChannels)}
	}
	return nil
}
