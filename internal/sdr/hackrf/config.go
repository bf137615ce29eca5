package hackrf

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

const (
	MinNumSamples = 8192
	MaxLNAGain    = 40
	MaxVGAGain    = 62
	LNAGainStep   = 8
	VGAGainStep   = 2

	// MaxFrequency is the upper tuning limit of `hackrf_sweep`
	MaxFrequency = 7_250_000_000
)

// Config is the `hackrf_sweep` tool configuration. The swept range is not part
// of it: it always follows the frequency range of the pipeline.
//
// See https://manpages.debian.org/bookworm/hackrf/hackrf_sweep.1.en.html
type Config struct {
	SerialNumber string `yaml:"serialNumber"` // -d serial_number Serial number of desired HackRF

	LNAGain    *int  `yaml:"lnaGain"`    // -l gain_db LNA (IF) gain, 0-40dB, 8dB steps
	VGAGain    *int  `yaml:"vgaGain"`    // -g gain_db VGA (baseband) gain, 0-62dB, 2dB steps
	BinWidth   int64 `yaml:"binWidth"`   // -w bin_width FFT bin width (frequency resolution) in Hz
	NumSamples int64 `yaml:"numSamples"` // -n num_samples Number of samples per frequency, 8192-4294967296

	EnableAmp    bool `yaml:"enableAmp"`    // -a amp_enable RX RF amplifier 1=Enable, 0=Disable
	AntennaPower bool `yaml:"antennaPower"` // -p antenna_enable Antenna port power, 1=Enable, 0=Disable
}

func (c *Config) Validate() error {
	// LNA gain validation (0-40dB in 8dB steps)
	if c.LNAGain != nil {
		if *c.LNAGain < 0 || *c.LNAGain > MaxLNAGain {
			return fmt.Errorf("hackrf.Config: LNA gain must be between 0 and 40 dB: %d given", *c.LNAGain)
		}
		if *c.LNAGain%LNAGainStep != 0 {
			return errors.New("hackrf.Config: LNA gain must be a multiple of 8 dB")
		}
	}

	// VGA gain validation (0-62dB in 2dB steps)
	if c.VGAGain != nil {
		if *c.VGAGain < 0 || *c.VGAGain > MaxVGAGain {
			return fmt.Errorf("hackrf.Config: VGA gain must be between 0 and 62 dB: %d given", *c.VGAGain)
		}
		if *c.VGAGain%VGAGainStep != 0 {
			return errors.New("hackrf.Config: VGA gain must be a multiple of 2 dB")
		}
	}

	if c.BinWidth < 0 {
		return fmt.Errorf("hackrf.Config: bin width cannot be negative: %d given", c.BinWidth)
	}

	if c.NumSamples > 0 && c.NumSamples < MinNumSamples {
		return fmt.Errorf("hackrf.Config: number of samples must be at least 8192: %d given", c.NumSamples)
	}

	return nil
}

// Args builds the `hackrf_sweep` arguments for sweeping [start, stop] Hz
// continuously. The tool takes whole MHz, so the range is widened to the
// enclosing MHz boundaries.
func (c *Config) Args(start, stop float64) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if start < 0 || stop > MaxFrequency || start >= stop {
		return nil, fmt.Errorf("hackrf.Config: invalid sweep range: %f - %f Hz", start, stop)
	}

	lower, upper := SweepRange(start, stop)
	args := []string{"-f", fmt.Sprintf("%d:%d", int64(lower/1e6), int64(upper/1e6))}

	if c.SerialNumber != "" {
		args = append(args, "-d", c.SerialNumber)
	}

	if c.BinWidth > 0 {
		args = append(args, "-w", strconv.FormatInt(c.BinWidth, 10))
	}

	if c.LNAGain != nil {
		args = append(args, "-l", strconv.Itoa(*c.LNAGain))
	}

	if c.VGAGain != nil {
		args = append(args, "-g", strconv.Itoa(*c.VGAGain))
	}

	if c.NumSamples >= MinNumSamples {
		args = append(args, "-n", strconv.FormatInt(c.NumSamples, 10))
	}

	if c.EnableAmp {
		args = append(args, "-a", "1")
	}

	if c.AntennaPower {
		args = append(args, "-p", "1")
	}

	return args, nil
}

// SweepRange returns the range `hackrf_sweep` actually covers when asked for
// [start, stop] Hz
func SweepRange(start, stop float64) (float64, float64) {
	lower := math.Floor(start / 1e6)
	upper := math.Ceil(stop / 1e6)
	if upper == lower {
		upper++
	}
	return lower * 1e6, upper * 1e6
}
