package sdr

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestIQReader(t *testing.T) {
	tests := []struct {
		name   string
		format IQFormat
		raw    []byte
		want   []complex128
	}{
		{
			name:   "unsigned",
			format: IQUnsigned8,
			raw:    []byte{255, 0, 127, 128},
			want:   []complex128{complex(127.5/128, -127.5/128), complex(-0.5/128, 0.5/128)},
		},
		{
			name:   "signed",
			format: IQSigned8,
			raw:    []byte{0x7f, 0x80, 0x00, 0xff},
			want:   []complex128{complex(127.0/128, -1), complex(0, -1.0/128)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewIQReader(bytes.NewReader(tt.raw), tt.format, 2e6, 100e6)
			if err != nil {
				t.Fatalf("Failed to create reader: %v", err)
			}

			block, err := r.ReadSamples(context.Background(), 2)
			if err != nil {
				t.Fatalf("ReadSamples failed: %v", err)
			}
			if !block.Complex() || block.Len() != 2 {
				t.Fatalf("Expected 2 complex samples, got %d", block.Len())
			}
			for i, v := range block.IQ {
				if v != tt.want[i] {
					t.Errorf("Sample %d: expected %v, got %v", i, tt.want[i], v)
				}
			}

			if _, err = r.ReadSamples(context.Background(), 1); !errors.Is(err, io.EOF) {
				t.Errorf("Expected io.EOF at end of stream, got %v", err)
			}
		})
	}
}

func TestIQReader_ShortRead(t *testing.T) {
	r, err := NewIQReader(bytes.NewReader([]byte{1, 2, 3}), IQUnsigned8, 2e6, 100e6)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}

	if _, err = r.ReadSamples(context.Background(), 2); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestNewIQReader_Invalid(t *testing.T) {
	if _, err := NewIQReader(bytes.NewReader(nil), "f32", 2e6, 0); err == nil {
		t.Error("Expected error for unsupported format")
	}
	if _, err := NewIQReader(bytes.NewReader(nil), IQSigned8, 0, 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}
