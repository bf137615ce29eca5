package rtl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BinWidthMin = 1
	BinWidthMax = 2_800_000

	// WindowFunctionRectangle is the default window function
	WindowFunctionRectangle      WindowFunction = "rectangle"
	WindowFunctionHamming        WindowFunction = "hamming"
	WindowFunctionBlackman       WindowFunction = "blackman"
	WindowFunctionBlackmanHarris WindowFunction = "blackman-harris"
	WindowFunctionHannPoisson    WindowFunction = "hann-poisson"
	WindowFunctionBartlett       WindowFunction = "bartlett"
	WindowFunctionYoussef        WindowFunction = "youssef"
	WindowFunctionKaiser         WindowFunction = "kaiser"

	// SmoothingAvg is the default smoothing method
	SmoothingAvg SmoothingMethod = "avg"
	SmoothingIIR SmoothingMethod = "iir"
)

var (
	validWindowFunctions = map[WindowFunction]struct{}{
		WindowFunctionRectangle:      {},
		WindowFunctionHamming:        {},
		WindowFunctionBlackman:       {},
		WindowFunctionBlackmanHarris: {},
		WindowFunctionHannPoisson:    {},
		WindowFunctionYoussef:        {},
		WindowFunctionKaiser:         {},
		WindowFunctionBartlett:       {},
	}

	validSmoothingMethods = map[SmoothingMethod]struct{}{
		SmoothingAvg: {},
		SmoothingIIR: {},
	}
)

type WindowFunction string

func (w WindowFunction) String() string {
	return string(w)
}

type SmoothingMethod string

func (s SmoothingMethod) String() string {
	return string(s)
}

// TimeDuration is a duration in the whole-unit notation `rtl_power` accepts
type TimeDuration time.Duration

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("rtl.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d TimeDuration) Validate() error {
	duration := time.Duration(d)

	if duration < 0 {
		return fmt.Errorf("rtl.TimeDuration: must not be negative: %s", duration)
	}
	if duration > 0 && duration < time.Second {
		return fmt.Errorf("rtl.TimeDuration: must be at least 1 second: %s given", duration)
	}

	return nil
}

func (d TimeDuration) String() string {
	duration := time.Duration(d)
	switch {
	case duration%time.Hour == 0:
		return fmt.Sprintf("%dh", int(duration/time.Hour))
	case duration%time.Minute == 0:
		return fmt.Sprintf("%dm", int(duration/time.Minute))
	default:
		return fmt.Sprintf("%ds", int(duration/time.Second))
	}
}

// Config is the `rtl_power` tool configuration. The swept range follows the
// frequency range of the pipeline and is passed to Args.
//
// See https://manpages.debian.org/bookworm/rtl-sdr/rtl_power.1.en.html
type Config struct {
	BinWidth int64 `yaml:"binWidth"` // -f bin_size Bin size in Hz (valid range 1Hz - 2.8MHz)

	Interval    TimeDuration `yaml:"interval"`    // -i integration_interval (default: 10 seconds)
	DeviceIndex int          `yaml:"deviceIndex"` // -d device_index (default: 0)
	Gain        int          `yaml:"gain"`        // -g tuner_gain (default: automatic)
	PPMError    int          `yaml:"ppmError"`    // -p ppm_error (default: 0)

	Smoothing  SmoothingMethod `yaml:"smoothing"`  // -s [avg|iir] Smoothing (default: avg)
	FFTThreads int             `yaml:"fftThreads"` // -t threads Number of FFT threads

	WindowFunction WindowFunction `yaml:"windowFunction"` // -w window (default: rectangle)
	Crop           float32        `yaml:"crop"`           // -c crop_percent (default: 0%, recommended: 20%-50%)
	FIRSize        *int           `yaml:"firSize"`        // -F fir_size (default: disabled, can be 0 or 9)

	PeakHold       bool `yaml:"peakHold"`       // -P enables peak hold (default: off)
	DirectSampling bool `yaml:"directSampling"` // -D enable direct sampling (default: off)
	OffsetTuning   bool `yaml:"offsetTuning"`   // -O enable offset tuning (default: off)
	BiasTee        bool `yaml:"biasTee"`        // -T enable bias-tee (default: off)
}

func (c *Config) Validate() error {
	if c.BinWidth < BinWidthMin || c.BinWidth > BinWidthMax {
		return fmt.Errorf("rtl.Config: invalid bin width: %d, must be between %d and %d Hz", c.BinWidth, BinWidthMin, BinWidthMax)
	}

	if err := c.Interval.Validate(); err != nil {
		return fmt.Errorf("rtl.Config: invalid interval: %w", err)
	}

	if c.DeviceIndex < 0 {
		return fmt.Errorf("rtl.Config: device index cannot be negative: %d", c.DeviceIndex)
	}

	if c.WindowFunction != "" {
		if _, ok := validWindowFunctions[c.WindowFunction]; !ok {
			return fmt.Errorf("rtl.Config: invalid window function: %s", c.WindowFunction)
		}
	}

	if c.Smoothing != "" {
		if _, ok := validSmoothingMethods[c.Smoothing]; !ok {
			return fmt.Errorf("rtl.Config: invalid smoothing method: %s", c.Smoothing)
		}
	}

	if c.Crop < 0 || c.Crop > 1 {
		return fmt.Errorf("rtl.Config: crop percent must be between 0 and 1: %0.2f given", c.Crop)
	}

	if c.FIRSize != nil && *c.FIRSize != 0 && *c.FIRSize != 9 {
		return fmt.Errorf("rtl.Config: FIR size must be 0 or 9: %d given", *c.FIRSize)
	}

	return nil
}

// Args returns the `rtl_power` arguments for sweeping [start, stop] Hz to stdout
func (c *Config) Args(start, stop float64) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if start <= 0 || stop <= start {
		return nil, fmt.Errorf("rtl.Config: invalid sweep range: %f - %f Hz", start, stop)
	}

	args := []string{
		"-f", fmt.Sprintf("%d:%d:%d", int64(start), int64(stop), c.BinWidth),
		"-d", strconv.Itoa(c.DeviceIndex), // 0 is the default device index
	}

	if c.Interval > 0 {
		args = append(args, "-i", c.Interval.String())
	}

	if c.Gain > 0 {
		args = append(args, "-g", strconv.Itoa(c.Gain))
	}

	if c.PPMError != 0 {
		args = append(args, "-p", strconv.Itoa(c.PPMError))
	}

	if c.Smoothing != "" {
		args = append(args, "-s", c.Smoothing.String())
	}

	if c.FFTThreads > 0 {
		args = append(args, "-t", strconv.Itoa(c.FFTThreads))
	}

	if c.WindowFunction != "" {
		args = append(args, "-w", c.WindowFunction.String())
	}

	if c.Crop > 0 {
		args = append(args, "-c", strconv.FormatFloat(float64(c.Crop), 'f', 2, 32))
	}

	if c.FIRSize != nil {
		args = append(args, "-F", strconv.Itoa(*c.FIRSize))
	}

	if c.PeakHold {
		args = append(args, "-P")
	}

	if c.DirectSampling {
		args = append(args, "-D")
	}

	if c.OffsetTuning {
		args = append(args, "-O")
	}

	if c.BiasTee {
		args = append(args, "-T")
	}

	args = append(args, "-") // Always dump to stdout

	return args, nil
}

// CommandLine renders the tool invocation for logging
func (c *Config) CommandLine(start, stop float64) string {
	args, err := c.Args(start, stop)
	if err != nil {
		return fmt.Sprintf("rtl.Config: failed to build args: %s", err)
	}
	return fmt.Sprintf("%s %s", Runtime, strings.Join(args, " "))
}
