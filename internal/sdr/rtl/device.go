package rtl

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/roman-kulish/radio-spectrum/internal/sdr"
)

const (
	Runtime = "rtl_power"
	Device  = "RTL-SDR"

	timeLayout = "2006-01-02 15:04:05"
)

// handler runs `rtl_power`
type handler struct {
	binPath string
	args    []string
}

// New creates an RTL-SDR handler sweeping [start, stop] Hz
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

// DeviceID returns the identifier rtl devices are known by
func DeviceID(config *Config) string {
	return strconv.Itoa(config.DeviceIndex)
}

// Cmd returns an exec.Cmd for the RTL-SDR handler
func (h handler) Cmd(ctx context.Context) *exec.Cmd {
	return exec.CommandContext(ctx, h.binPath, h.args...)
}

// Parse parses a line of `rtl_power` output
func (h handler) Parse(line string, deviceID string) (*sdr.SweepResult, error) {
	result, err := sdr.ParseSweepLine(line, timeLayout)
	if err != nil {
		return nil, err
	}

	result.Device = Device
	result.DeviceID = deviceID
	return result, nil
}

func (h handler) Device() string {
	return Device
}
