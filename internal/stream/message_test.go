package stream

import (
	"errors"
	"reflect"
	"testing"

	"github.com/roman-kulish/radio-spectrum/internal/pipeline"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    pipeline.Command
		wantErr bool
	}{
		{"max hold", `{"type":"enableMaxHold"}`, pipeline.EnableMaxHold{}, false},
		{"pause", `{"type":"pause"}`, pipeline.Pause{}, false},
		{"centre", `{"type":"setCentre","frequency":2.45e9}`, pipeline.SetCentre{Frequency: 2.45e9}, false},
		{"span", `{"type":"setSpan","span":20e6}`, pipeline.SetSpan{Span: 20e6}, false},
		{"thresholds", `{"type":"setBandwidthThresholds","levels":[3,6]}`, pipeline.SetBandwidthThresholds{Levels: []float64{3, 6}}, false},
		{"preset", `{"type":"applyPreset","name":"ism-433"}`, pipeline.ApplyPreset{Name: "ism-433"}, false},
		{"unknown", `{"type":"selfDestruct"}`, nil, true},
		{"malformed", `{"type":`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommand([]byte(tt.message))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got %#v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeCommand failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestDecodeCommand_UnknownIsTyped(t *testing.T) {
	if _, err := DecodeCommand([]byte(`{"type":"nope"}`)); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}
}
