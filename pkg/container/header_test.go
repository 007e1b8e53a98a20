package container

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParseRoundTrip(t *testing.T) {
	for _, channels := range []int{1, 2} {
		for _, sampleRate := range []int{1, 8000, 16000, 44100, 48000} {
			for _, seconds := range []int{0, 1, 2, 30} {
				h := Build(channels, sampleRate, time.Duration(seconds)*time.Second)
				parsed, err := Parse(h.Encode())
				require.NoError(t, err)

				assert.Equal(t, uint16(channels), parsed.NumChannels)
				assert.Equal(t, uint32(sampleRate), parsed.SampleRate)
				assert.Equal(t, uint32(sampleRate*seconds*channels*2), parsed.DataLength)
				assert.Equal(t, parsed.DataLength+HeaderSize-8, parsed.FileLength)
				assert.Equal(t, uint32(sampleRate*channels*2), parsed.ByteRate)
				assert.Equal(t, uint16(channels*2), parsed.BlockAlign)
				assert.Equal(t, h, parsed)
			}
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	b := Build(1, 8000, time.Second).Encode()
	require.Len(t, b, HeaderSize)
	assert.Equal(t, []byte("RIFF"), b[0:4])
	assert.Equal(t, []byte("WAVE"), b[8:12])
	assert.Equal(t, []byte("fmt "), b[12:16])
	assert.Equal(t, []byte("data"), b[36:40])
	// data length 8000 * 2 = 16000 = 0x3E80, little-endian
	assert.Equal(t, []byte{0x80, 0x3E, 0x00, 0x00}, b[40:44])
}

func TestFinalizeIdempotent(t *testing.T) {
	h := Build(2, 16000, 3*time.Second)
	once := Finalize(h, 1234)
	twice := Finalize(once, 1234)
	assert.True(t, bytes.Equal(once.Encode(), twice.Encode()))
	assert.Equal(t, uint32(1234*2*2), once.DataLength)
	assert.Equal(t, once.DataLength+36, once.FileLength)
	// The input header is untouched
	assert.Equal(t, uint32(16000*3*2*2), h.DataLength)
}

func TestSamplesForDurationFloors(t *testing.T) {
	assert.Equal(t, 16800, SamplesForDuration(8000, 2100*time.Millisecond))
	assert.Equal(t, 0, SamplesForDuration(8000, 0))
	assert.Equal(t, 0, SamplesForDuration(0, time.Second))
	assert.Equal(t, 7, SamplesForDuration(8000, 999*time.Microsecond))
}

func TestParseRejectsCorruptTags(t *testing.T) {
	offsets := map[string]int{
		"riff tag": 0,
		"wave tag": 8,
		"fmt tag":  12,
		"data tag": 36,
	}
	for field, offset := range offsets {
		t.Run(field, func(t *testing.T) {
			b := Build(1, 8000, time.Second).Encode()
			b[offset] ^= 0xFF

			_, err := Parse(b)
			var formatErr *FormatError
			require.True(t, errors.As(err, &formatErr), "expected FormatError, got %v", err)
			assert.Equal(t, field, formatErr.Field)
		})
	}
}

func TestParseRejectsUnsupportedFormat(t *testing.T) {
	cases := map[string]func(h *Header){
		"chunk size":      func(h *Header) { h.ChunkSize = 18 },
		"format tag":      func(h *Header) { h.FormatTag = 3 },
		"bits per sample": func(h *Header) { h.BitsPerSample = 24 },
		"channels":        func(h *Header) { h.NumChannels = 6 },
		"sample rate":     func(h *Header) { h.SampleRate = 0 },
		"block align":     func(h *Header) { h.BlockAlign = 7 },
	}
	for field, corrupt := range cases {
		t.Run(field, func(t *testing.T) {
			h := Build(1, 8000, time.Second)
			corrupt(&h)
			_, err := Parse(h.Encode())
			var formatErr *FormatError
			require.ErrorAs(t, err, &formatErr)
			assert.Equal(t, field, formatErr.Field)
		})
	}
}

func TestParseRejectsShortInput(t *testing.T) {
	b := Build(1, 8000, time.Second).Encode()
	for _, n := range []int{0, 1, 12, HeaderSize - 1} {
		_, err := Parse(b[:n])
		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr)
	}

	_, err := ReadHeader(bytes.NewReader(b[:20]))
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestWriterFinalizesOnClose(t *testing.T) {
	fs := afero.NewMemMapFs()
	f, err := fs.Create("rec.wav")
	require.NoError(t, err)
	defer f.Close()

	w, err := NewWriter(f, 2, 8000, time.Second)
	require.NoError(t, err)

	// Before close the header still carries the provisional length
	_, err = Verify(f)
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "data length", formatErr.Field)

	_, err = f.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	require.NoError(t, w.WriteSamples([]int16{1, -2, 3, 32767, -32768}))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	h, err := Verify(f)
	require.NoError(t, err)
	assert.Equal(t, uint32(5*2*2), h.DataLength)
	assert.Equal(t, 5, h.Samples())

	raw, err := afero.ReadFile(fs, "rec.wav")
	require.NoError(t, err)
	require.Len(t, raw, HeaderSize+20)
	// Each sample is replicated into both channels
	assert.Equal(t, []byte{0xFE, 0xFF, 0xFE, 0xFF}, raw[HeaderSize+4:HeaderSize+8])
	assert.Equal(t, []byte{0x00, 0x80, 0x00, 0x80}, raw[HeaderSize+16:HeaderSize+20])

	assert.Error(t, w.WriteFrame(1))
}

func TestWriterDropsSamplesBeyondDuration(t *testing.T) {
	fs := afero.NewMemMapFs()
	f, err := fs.Create("rec.wav")
	require.NoError(t, err)
	defer f.Close()

	w, err := NewWriter(f, 1, 4, time.Second)
	require.NoError(t, err)
	require.NoError(t, w.WriteSamples([]int16{1, 2, 3, 4, 5, 6}))
	assert.Equal(t, 4, w.SamplesWritten())
	require.NoError(t, w.Close())

	h, err := Verify(f)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), h.DataLength)
}

func TestNewWriterRejectsBadParameters(t *testing.T) {
	fs := afero.NewMemMapFs()
	f, err := fs.Create("rec.wav")
	require.NoError(t, err)
	defer f.Close()

	_, err = NewWriter(f, 3, 8000, time.Second)
	assert.Error(t, err)
	_, err = NewWriter(f, 1, 0, time.Second)
	assert.Error(t, err)
}
