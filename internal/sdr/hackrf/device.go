package hackrf

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/roman-kulish/radio-spectrum/internal/sdr"
)

const (
	Runtime = "hackrf_sweep"
	Device  = "HackRF"

	timeLayout = "2006-01-02 15:04:05.000000"
)

// handler runs `hackrf_sweep`
type handler struct {
	binPath string
	args    []string
}

// New creates a HackRF handler sweeping [start, stop] Hz
func New(config *Config, start, stop float64) (sdr.Handler, error) {
	args, err := config.Args(start, stop)
	if err != nil {
		return nil, fmt.Errorf("error creating args: %w", err)
	}

	binPath, err := sdr.FindRuntime(Runtime)
	if err != nil {
		return nil, fmt.Errorf("error finding runtime: %w", err)
	}

	return &handler{binPath, args}, nil
}

// Cmd returns an exec.Cmd for the HackRF handler
func (h handler) Cmd(ctx context.Context) *exec.Cmd {
	return exec.CommandContext(ctx, h.binPath, h.args...)
}

// Parse parses a line of `hackrf_sweep` output
func (h handler) Parse(line string, deviceID string) (*sdr.SweepResult, error) {
	result, err := sdr.ParseSweepLine(line, timeLayout)
	if err != nil {
		return nil, err
	}

	result.Device = Device
	result.DeviceID = deviceID
	return result, nil
}

// Device returns the device type
func (h handler) Device() string {
	return Device
}
