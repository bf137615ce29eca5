package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roman-kulish/radio-spectrum/internal/pipeline"
)

const (
	messageFrame = "frame"
	messageEvent = "event"
	messageError = "error"
)

// ErrUnknownCommand is returned for client messages with an unrecognised type
var ErrUnknownCommand = errors.New("unknown command")

// frameMessage carries one emission to the clients
type frameMessage struct {
	Type string             `json:"type"`
	Data *pipeline.Emission `json:"data"`
}

// eventMessage carries a pipeline event or a rejected client command
type eventMessage struct {
	Type  string `json:"type"`
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error,omitempty"`
}

// commandMessage is what clients send, e.g.
//
//	{"type": "setCentre", "frequency": 2.45e9}
//	{"type": "setBandwidthThresholds", "levels": [3, 6, 9]}
type commandMessage struct {
	Type      string    `json:"type"`
	Frequency float64   `json:"frequency"`
	Span      float64   `json:"span"`
	Levels    []float64 `json:"levels"`
	Name      string    `json:"name"`
}

var simpleCommands = map[string]pipeline.Command{
	"enableMaxHold":         pipeline.EnableMaxHold{},
	"disableMaxHold":        pipeline.DisableMaxHold{},
	"enableMinHold":         pipeline.EnableMinHold{},
	"disableMinHold":        pipeline.DisableMinHold{},
	"enableAverage":         pipeline.EnableAverage{},
	"disableAverage":        pipeline.DisableAverage{},
	"enablePeakSearch":      pipeline.EnablePeakSearch{},
	"disablePeakSearch":     pipeline.DisablePeakSearch{},
	"enableHeldPeakSearch":  pipeline.EnableHeldPeakSearch{},
	"disableHeldPeakSearch": pipeline.DisableHeldPeakSearch{},
	"resetHolds":            pipeline.ResetHolds{},
	"pause":                 pipeline.Pause{},
	"resume":                pipeline.Resume{},
}

// DecodeCommand turns a client message into a pipeline command
func DecodeCommand(data []byte) (pipeline.Command, error) {
	var msg commandMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decoding command: %w", err)
	}

	if cmd, ok := simpleCommands[msg.Type]; ok {
		return cmd, nil
	}

	switch msg.Type {
	case "setStart":
		return pipeline.SetStart{Frequency: msg.Frequency}, nil
	case "setStop":
		return pipeline.SetStop{Frequency: msg.Frequency}, nil
	case "setSpan":
		return pipeline.SetSpan{Span: msg.Span}, nil
	case "setCentre":
		return pipeline.SetCentre{Frequency: msg.Frequency}, nil
	case "setBandwidthThresholds":
		return pipeline.SetBandwidthThresholds{Levels: msg.Levels}, nil
	case "applyPreset":
		return pipeline.ApplyPreset{Name: msg.Name}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, msg.Type)
	}
}
