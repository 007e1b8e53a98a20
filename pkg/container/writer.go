package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Writer streams 16-bit PCM frames into a container.
//
// The header is written with a provisional data length on creation, and
// rewritten with the true length by Close. A container whose Writer was
// never closed is malformed, see Verify.
type Writer struct {
	ws             io.WriteSeeker
	header         Header
	maxSamples     int
	samplesWritten int
	frame          []byte
	closed         bool
}

// Create a Writer over ws and write the provisional header.
//
// At most sampleRate * duration frames will be accepted.
func NewWriter(ws io.WriteSeeker, channels int, sampleRate int, duration time.Duration) (*Writer, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("unsupported sample rate %d", sampleRate)
	}

	header := Build(channels, sampleRate, duration)
	if _, err := ws.Write(header.Encode()); err != nil {
		return nil, fmt.Errorf("could not write provisional header: %w", err)
	}

	return &Writer{
		ws:         ws,
		header:     header,
		maxSamples: SamplesForDuration(sampleRate, duration),
		frame:      make([]byte, channels*BytesPerSample),
	}, nil
}

// Write one sample, replicated across every channel of the container.
//
// Samples beyond the duration given to NewWriter are dropped silently.
func (w *Writer) WriteFrame(sample int16) error {
	if w.closed {
		return fmt.Errorf("write to closed container")
	}
	if w.samplesWritten >= w.maxSamples {
		return nil
	}
	for c := 0; c < int(w.header.NumChannels); c++ {
		binary.LittleEndian.PutUint16(w.frame[c*BytesPerSample:], uint16(sample))
	}
	if _, err := w.ws.Write(w.frame); err != nil {
		return fmt.Errorf("could not write frame %d: %w", w.samplesWritten, err)
	}
	w.samplesWritten++
	return nil
}

// Write every sample of samples with WriteFrame.
func (w *Writer) WriteSamples(samples []int16) error {
	for _, s := range samples {
		if err := w.WriteFrame(s); err != nil {
			return err
		}
	}
	return nil
}

// Number of frames accepted so far.
func (w *Writer) SamplesWritten() int {
	return w.samplesWritten
}

// Header as it will be (or has been) finalized.
func (w *Writer) Header() Header {
	return Finalize(w.header, w.samplesWritten)
}

// Close rewrites the header with the true data length.
// The underlying WriteSeeker is left open for the caller to close.
// Calling Close more than once is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	w.header = Finalize(w.header, w.samplesWritten)
	if _, err := w.ws.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("could not seek to header: %w", err)
	}
	if _, err := w.ws.Write(w.header.Encode()); err != nil {
		return fmt.Errorf("could not rewrite header: %w", err)
	}
	if _, err := w.ws.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("could not seek to end: %w", err)
	}
	return nil
}

// Verify parses the header of r and checks the declared data length
// against the bytes actually present after the header.
//
// A container abandoned before its Writer was closed declares a
// provisional length and is rejected with a *FormatError.
func Verify(r io.ReadSeeker) (Header, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Header{}, fmt.Errorf("could not seek to header: %w", err)
	}
	h, err := ReadHeader(r)
	if err != nil {
		return Header{}, err
	}

	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return Header{}, fmt.Errorf("could not seek to end: %w", err)
	}
	present := end - HeaderSize
	if present != int64(h.DataLength) {
		return h, &FormatError{
			Field:  "data length",
			Reason: fmt.Sprintf("header declares %d bytes, file holds %d", h.DataLength, present),
		}
	}
	if h.FileLength != h.DataLength+HeaderSize-riffPreambleSize {
		return h, &FormatError{
			Field:  "file length",
			Reason: fmt.Sprintf("got %d for data length %d", h.FileLength, h.DataLength),
		}
	}
	return h, nil
}
