package rtl

import (
	"slices"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestConfig_Args(t *testing.T) {
	c := Config{
		BinWidth:       125_000,
		Interval:       TimeDuration(5 * time.Minute),
		DeviceIndex:    1,
		Gain:           30,
		WindowFunction: WindowFunctionHamming,
		Crop:           0.25,
		BiasTee:        true,
	}

	args, err := c.Args(88_000_000, 108_000_000)
	if err != nil {
		t.Fatalf("Failed to build args: %v", err)
	}

	want := []string{"-f", "88000000:108000000:125000", "-d", "1", "-i", "5m", "-g", "30", "-w", "hamming", "-c", "0.25", "-T", "-"}
	if !slices.Equal(args, want) {
		t.Errorf("Expected %v, got %v", want, args)
	}
}

func TestConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		start  float64
		stop   float64
	}{
		{"bin width", Config{BinWidth: 0}, 88e6, 108e6},
		{"interval", Config{BinWidth: 1000, Interval: TimeDuration(time.Millisecond)}, 88e6, 108e6},
		{"window", Config{BinWidth: 1000, WindowFunction: "triangle"}, 88e6, 108e6},
		{"smoothing", Config{BinWidth: 1000, Smoothing: "median"}, 88e6, 108e6},
		{"crop", Config{BinWidth: 1000, Crop: 1.5}, 88e6, 108e6},
		{"range", Config{BinWidth: 1000}, 108e6, 88e6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.config.Args(tt.start, tt.stop); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestTimeDuration(t *testing.T) {
	var c struct {
		Interval TimeDuration `yaml:"interval"`
	}
	if err := yaml.Unmarshal([]byte("interval: 90s"), &c); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if got := c.Interval.String(); got != "90s" {
		t.Errorf("Expected 90s, got %s", got)
	}
	if got := TimeDuration(2 * time.Hour).String(); got != "2h" {
		t.Errorf("Expected 2h, got %s", got)
	}
}
