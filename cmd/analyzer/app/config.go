package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/radio-spectrum/internal/pipeline"
	"github.com/roman-kulish/radio-spectrum/internal/sdr"
	"github.com/roman-kulish/radio-spectrum/internal/sdr/hackrf"
	"github.com/roman-kulish/radio-spectrum/internal/sdr/rtl"
	"github.com/roman-kulish/radio-spectrum/internal/spectrum"
)

const (
	SourceHackRF SourceType = "hackrf"
	SourceRTL    SourceType = "rtl"
	SourceIQ     SourceType = "iq"
	SourceTone   SourceType = "tone"
)

const (
	defaultTickInterval = 40 * time.Millisecond
	defaultListen       = "127.0.0.1:8080"
	defaultStorageDir   = "data"
)

// SourceType selects where spectrum data comes from
type SourceType string

// Frequency is a value in Hz which accepts SI notation in YAML, e.g. "2.4G",
// "433.05MHz" or a plain number
type Frequency float64

func (f *Frequency) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	hz, err := ParseFrequency(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	*f = Frequency(hz)
	return nil
}

func (f Frequency) String() string {
	return spectrum.FormatHz(float64(f))
}

// ParseFrequency parses s as Hz, with an optional SI prefix and "Hz" unit
func ParseFrequency(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if hz, err := strconv.ParseFloat(s, 64); err == nil {
		return hz, nil
	}

	hz, unit, err := humanize.ParseSI(s)
	if err != nil {
		return 0, fmt.Errorf("invalid frequency '%s': %w", s, err)
	}
	if unit != "" && !strings.EqualFold(unit, "hz") {
		return 0, fmt.Errorf("invalid frequency '%s': unexpected unit '%s'", s, unit)
	}
	return hz, nil
}

// Duration is a time.Duration in time.ParseDuration notation
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration '%s': %w", value.Line, s, err)
	}

	*d = Duration(v)
	return nil
}

// Config represents the main application configuration
type Config struct {
	Settings  Settings                `yaml:"settings"`
	Source    SourceConfig            `yaml:"source"`
	Frequency FrequencyConfig         `yaml:"frequency"`
	Hold      HoldConfig              `yaml:"hold"`
	Peak      PeakConfig              `yaml:"peak"`
	Window    spectrum.WindowFunction `yaml:"window"`
	Storage   StorageConfig           `yaml:"storage"`
	Server    ServerConfig            `yaml:"server"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel     string   `yaml:"logLevel"`
	TickInterval Duration `yaml:"tickInterval"`
	SampleCount  int      `yaml:"sampleCount"` // Block size for iq and tone sources
}

// Level returns the parsed log level
func (s *Settings) Level() (slog.Level, error) {
	var level slog.Level
	if s.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return level, fmt.Errorf("settings: invalid log level '%s'", s.LogLevel)
	}
	return level, nil
}

func (s *Settings) Validate() error {
	if _, err := s.Level(); err != nil {
		return err
	}
	if s.TickInterval <= 0 {
		return fmt.Errorf("settings: tick interval must be positive: %s given", time.Duration(s.TickInterval))
	}
	if s.SampleCount <= 0 {
		return fmt.Errorf("settings: sample count must be positive: %d given", s.SampleCount)
	}
	return nil
}

// SourceConfig selects the source and carries the block for its type
type SourceConfig struct {
	Type   SourceType     `yaml:"type"`
	HackRF *hackrf.Config `yaml:"hackrf"`
	RTL    *rtl.Config    `yaml:"rtl"`
	IQ     *IQConfig      `yaml:"iq"`
	Tone   *ToneConfig    `yaml:"tone"`
}

// Sweeping reports whether the source is an external sweep tool
func (c *SourceConfig) Sweeping() bool {
	return c.Type == SourceHackRF || c.Type == SourceRTL
}

func (c *SourceConfig) Validate() error {
	var err error
	switch c.Type {
	case SourceHackRF:
		if c.HackRF == nil {
			c.HackRF = &hackrf.Config{}
		}
		err = c.HackRF.Validate()

	case SourceRTL:
		if c.RTL == nil {
			c.RTL = &rtl.Config{}
		}
		err = c.RTL.Validate()

	case SourceIQ:
		if c.IQ == nil {
			return errors.New("source: iq block is required")
		}
		err = c.IQ.Validate()

	case SourceTone:
		if c.Tone == nil {
			c.Tone = &ToneConfig{}
		}
		err = c.Tone.Validate()

	default:
		return fmt.Errorf("source: unknown type '%s'", c.Type)
	}

	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	return nil
}

// IQConfig describes a raw IQ recording or pipe
type IQConfig struct {
	Path            string       `yaml:"path"` // "-" or empty reads stdin
	Format          sdr.IQFormat `yaml:"format"`
	SampleRate      Frequency    `yaml:"sampleRate"`
	CentreFrequency Frequency    `yaml:"centreFrequency"`
}

func (c *IQConfig) Validate() error {
	if c.Format == "" {
		c.Format = sdr.IQUnsigned8
	}
	if c.Format != sdr.IQUnsigned8 && c.Format != sdr.IQSigned8 {
		return fmt.Errorf("iq: unsupported format '%s'", c.Format)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("iq: sample rate must be positive: %s given", c.SampleRate)
	}
	if c.CentreFrequency < 0 {
		return fmt.Errorf("iq: centre frequency cannot be negative: %s given", c.CentreFrequency)
	}
	return nil
}

// ToneConfig describes a synthetic test signal
type ToneConfig struct {
	SampleRate      Frequency `yaml:"sampleRate"`
	CentreFrequency Frequency `yaml:"centreFrequency"`
	Offset          Frequency `yaml:"offset"` // Tone position relative to the centre
	Amplitude       float64   `yaml:"amplitude"`
	Noise           float64   `yaml:"noise"`
	Seed            uint64    `yaml:"seed"`
	Real            bool      `yaml:"real"`
}

func (c *ToneConfig) Validate() error {
	if c.SampleRate == 0 {
		c.SampleRate = 2.4e6
	}
	if c.Amplitude == 0 {
		c.Amplitude = 1
	}
	if c.SampleRate < 0 {
		return fmt.Errorf("tone: sample rate must be positive: %s given", c.SampleRate)
	}
	if c.Noise < 0 {
		return fmt.Errorf("tone: noise amplitude cannot be negative: %f given", c.Noise)
	}
	return nil
}

// FrequencyConfig is the range swept by hackrf and rtl sources. Block sources
// derive the range from the signal and only use it until the first frame.
type FrequencyConfig struct {
	Start    Frequency         `yaml:"start"`
	Stop     Frequency         `yaml:"stop"`
	SpanMode spectrum.SpanMode `yaml:"spanMode"`
}

func (c *FrequencyConfig) Validate(required bool) error {
	switch c.SpanMode {
	case "":
		c.SpanMode = spectrum.SpanKeepStart
	case spectrum.SpanKeepStart, spectrum.SpanKeepCentre:
	default:
		return fmt.Errorf("frequency: unknown span mode '%s'", c.SpanMode)
	}

	if !required && c.Start == 0 && c.Stop == 0 {
		return nil
	}
	if c.Start < 0 || c.Stop <= c.Start {
		return fmt.Errorf("frequency: invalid range %s - %s", c.Start, c.Stop)
	}
	return nil
}

// HoldConfig selects the hold traces enabled at start
type HoldConfig struct {
	Max     bool `yaml:"max"`
	Min     bool `yaml:"min"`
	Average bool `yaml:"average"`
}

// PeakConfig controls peak search and bandwidth analysis
type PeakConfig struct {
	Live  bool      `yaml:"live"`
	Held  bool      `yaml:"held"`
	Drops []float64 `yaml:"drops"` // dB below the peak, in reporting order
}

func (c *PeakConfig) Validate() error {
	if err := spectrum.ValidateDropLevels(c.Drops); err != nil {
		return fmt.Errorf("peak: %w", err)
	}
	return nil
}

// StorageConfig represents storage settings
type StorageConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DataDirectory string `yaml:"dataDirectory"`
	AllFrames     bool   `yaml:"allFrames"` // Record frames without peaks too
}

// ServerConfig is the HTTP listener for /metrics and /ws. An empty listen
// address disables it.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// PipelineSettings converts the configuration into the orchestrator settings
func (c *Config) PipelineSettings() pipeline.Settings {
	s := pipeline.DefaultSettings()
	s.MaxHold = c.Hold.Max
	s.MinHold = c.Hold.Min
	s.Average = c.Hold.Average
	s.PeakSearch = c.Peak.Live
	s.HeldPeakSearch = c.Peak.Held
	s.DropLevels = slices.Clone(c.Peak.Drops)
	s.SampleCount = c.Settings.SampleCount
	if c.Window != "" {
		s.Window = c.Window
	}
	return s
}

func (c *Config) Validate() error {
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Frequency.Validate(c.Source.Sweeping()); err != nil {
		return err
	}
	if err := c.Peak.Validate(); err != nil {
		return err
	}
	if !c.Window.Valid() {
		return fmt.Errorf("window: unknown function '%s'", c.Window)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel:     "info",
			TickInterval: Duration(defaultTickInterval),
			SampleCount:  pipeline.DefaultSampleCount,
		},
		Source: SourceConfig{Type: SourceTone},
		Peak: PeakConfig{
			Live:  true,
			Drops: slices.Clone(spectrum.DefaultDropLevels),
		},
		Window:  spectrum.WindowHamming,
		Storage: StorageConfig{DataDirectory: defaultStorageDir},
		Server:  ServerConfig{Listen: defaultListen},
	}
}

// LoadConfig reads and validates the configuration file. Missing values
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML configuration
func ParseConfig(data []byte) (*Config, error) {
	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
