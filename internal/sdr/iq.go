package sdr

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/roman-kulish/radio-spectrum/internal/spectrum"
)

const (
	// IQUnsigned8 is the interleaved unsigned 8-bit format written by `rtl_sdr`
	IQUnsigned8 IQFormat = "u8"

	// IQSigned8 is the interleaved signed 8-bit format written by `hackrf_transfer`
	IQSigned8 IQFormat = "s8"
)

// IQFormat is the sample encoding of a raw IQ stream
type IQFormat string

func (f IQFormat) String() string {
	return string(f)
}

// IQReader reads interleaved 8-bit IQ samples from a stream, typically the
// output of `rtl_sdr` or `hackrf_transfer` piped to a file or stdin.
type IQReader struct {
	r          io.Reader
	format     IQFormat
	sampleRate float64
	centreFreq float64

	buf []byte
}

// NewIQReader creates a reader for a stream recorded at sampleRate and tuned to centreFreq
func NewIQReader(r io.Reader, format IQFormat, sampleRate, centreFreq float64) (*IQReader, error) {
	if format != IQUnsigned8 && format != IQSigned8 {
		return nil, fmt.Errorf("unsupported IQ format: %q", format)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive: %f given", sampleRate)
	}

	return &IQReader{
		r:          r,
		format:     format,
		sampleRate: sampleRate,
		centreFreq: centreFreq,
	}, nil
}

func (r *IQReader) SampleRate() float64 { return r.sampleRate }
func (r *IQReader) CentreFreq() float64 { return r.centreFreq }

// ReadSamples reads count complex samples. A short read at the end of the
// stream is reported as io.ErrUnexpectedEOF and the partial samples dropped.
func (r *IQReader) ReadSamples(ctx context.Context, count int) (spectrum.SampleBlock, error) {
	if err := ctx.Err(); err != nil {
		return spectrum.SampleBlock{}, err
	}
	if count <= 0 {
		return spectrum.SampleBlock{}, fmt.Errorf("invalid sample count: %d", count)
	}

	if cap(r.buf) < 2*count {
		r.buf = make([]byte, 2*count)
	}
	buf := r.buf[:2*count]

	if _, err := io.ReadFull(r.r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return spectrum.SampleBlock{}, io.EOF
		}
		return spectrum.SampleBlock{}, fmt.Errorf("reading IQ samples: %w", err)
	}

	iq := make([]complex128, count)
	for i := range iq {
		iq[i] = complex(r.decode(buf[2*i]), r.decode(buf[2*i+1]))
	}

	return spectrum.SampleBlock{IQ: iq}, nil
}

// decode maps a raw byte onto [-1, 1)
func (r *IQReader) decode(b byte) float64 {
	if r.format == IQSigned8 {
		return float64(int8(b)) / 128
	}
	return (float64(b) - 127.5) / 128
}
