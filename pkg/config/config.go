package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itohio/cxmidi/pkg/scan"
)

// Config represents the host side configuration.
type Config struct {
	Decoder DecoderConfig `yaml:"decoder"`
	Serial  SerialConfig  `yaml:"serial"`
	MIDI    MIDIConfig    `yaml:"midi"`
	Mock    MockConfig    `yaml:"mock"`
}

// DecoderConfig mirrors the firmware build constants so the simulator and the
// monitor agree with the keyboard.
type DecoderConfig struct {
	Transpose     int8 `yaml:"transpose"`
	QueueSize     int  `yaml:"queue_size"`      // output queue bytes, power of two
	SyncSpinLimit int  `yaml:"sync_spin_limit"` // polls before a sync wait gives up
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// MIDIConfig contains the MIDI bridge configuration.
type MIDIConfig struct {
	OutPort string `yaml:"out_port"` // opened as a virtual port if no such port exists
}

// MockConfig contains mock keyboard configuration.
type MockConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval"` // time per scan frame
	PressInterval time.Duration `yaml:"press_interval"` // time between random key presses, 0 disables
	HoldDuration  time.Duration `yaml:"hold_duration"`  // how long a random key is held
	PedalInterval time.Duration `yaml:"pedal_interval"` // time between pedal toggles, 0 disables
	Seed          uint64        `yaml:"seed"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Decoder: DecoderConfig{
			Transpose:     0,
			QueueSize:     scan.DefaultQueueSize,
			SyncSpinLimit: scan.DefaultSyncSpinLimit,
		},
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 31250, // MIDI line rate
		},
		MIDI: MIDIConfig{
			OutPort: "cxmidi",
		},
		Mock: MockConfig{
			FrameInterval: 1200 * time.Microsecond,
			PressInterval: 400 * time.Millisecond,
			HoldDuration:  250 * time.Millisecond,
			PedalInterval: 3 * time.Second,
			Seed:          1,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Decoder.Transpose < scan.MinTranspose || c.Decoder.Transpose > scan.MaxTranspose {
		return fmt.Errorf("transpose %d out of range [%d, %d]", c.Decoder.Transpose, scan.MinTranspose, scan.MaxTranspose)
	}
	if c.Decoder.QueueSize < scan.MessageSize+1 {
		return fmt.Errorf("queue size %d cannot hold a single message", c.Decoder.QueueSize)
	}
	return nil
}

// Options returns the decoder options for this configuration.
func (c *Config) Options() scan.Options {
	return scan.Options{
		Transpose:     c.Decoder.Transpose,
		QueueSize:     c.Decoder.QueueSize,
		SyncSpinLimit: c.Decoder.SyncSpinLimit,
	}
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Decoder.QueueSize == 0 {
		c.Decoder.QueueSize = def.Decoder.QueueSize
	}
	if c.Decoder.SyncSpinLimit == 0 {
		c.Decoder.SyncSpinLimit = def.Decoder.SyncSpinLimit
	}

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.MIDI.OutPort == "" {
		c.MIDI.OutPort = def.MIDI.OutPort
	}

	if c.Mock.FrameInterval == 0 {
		c.Mock.FrameInterval = def.Mock.FrameInterval
	}
	if c.Mock.HoldDuration == 0 {
		c.Mock.HoldDuration = def.Mock.HoldDuration
	}
}
