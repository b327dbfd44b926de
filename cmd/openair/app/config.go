package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openair-rf/openair/internal/spectrum"
)

const (
	TransportSerial TransportType = "serial"
	TransportTCP    TransportType = "tcp"
)

type TransportType string

// Config represents the main application configuration
type Config struct {
	Settings   Settings         `yaml:"settings"`
	Instrument InstrumentConfig `yaml:"instrument"`
	Scan       ScanConfig       `yaml:"scan"`
	Storage    StorageConfig    `yaml:"storage"`
	Export     ExportConfig     `yaml:"export"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// SlogLevel parses the configured log level, defaulting to info.
func (s Settings) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// InstrumentConfig describes how to reach the instrument's VISA bridge.
type InstrumentConfig struct {
	Transport      TransportType `yaml:"transport"`
	Port           string        `yaml:"port"`     // serial device path
	BaudRate       int           `yaml:"baudRate"` // serial only
	Address        string        `yaml:"address"`  // tcp host:port
	TimeoutSeconds float64       `yaml:"timeoutSeconds"`
}

// Timeout returns the response timeout, defaulting to 5s.
func (c InstrumentConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

// BandConfig is one selectable band. Frequencies are configured in MHz, the
// unit operators think in.
type BandConfig struct {
	Name     string  `yaml:"name"`
	StartMHz float64 `yaml:"startMHz"`
	StopMHz  float64 `yaml:"stopMHz"`
	Enabled  bool    `yaml:"enabled"`
}

// ScanConfig holds every scan parameter.
type ScanConfig struct {
	Name              string       `yaml:"name"`
	RBWHz             float64      `yaml:"rbwHz"`
	RefLevelDBm       float64      `yaml:"refLevelDbm"`
	FreqShiftHz       float64      `yaml:"freqShiftHz"`
	MaxSegmentSpanMHz float64      `yaml:"maxSegmentSpanMHz"`
	HighSensitivity   bool         `yaml:"highSensitivity"`
	Preamp            bool         `yaml:"preamp"`
	Bands             []BandConfig `yaml:"bands"`
}

// SelectedBands returns the enabled bands converted to Hz.
func (c ScanConfig) SelectedBands() []spectrum.Band {
	var bands []spectrum.Band
	for _, b := range c.Bands {
		if !b.Enabled {
			continue
		}
		bands = append(bands, spectrum.Band{
			Name:    b.Name,
			StartHz: b.StartMHz * spectrum.MHzToHz,
			StopHz:  b.StopMHz * spectrum.MHzToHz,
		})
	}
	return bands
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

// ExportConfig represents CSV export settings
type ExportConfig struct {
	OutputDirectory  string `yaml:"outputDirectory"`
	SegmentDirectory string `yaml:"segmentDirectory"`
}

// LoadConfig reads and validates the YAML configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration file: %w", err)
	}

	switch config.Instrument.Transport {
	case TransportSerial:
		if config.Instrument.Port == "" {
			return nil, fmt.Errorf("serial transport requires a port")
		}
	case TransportTCP:
		if config.Instrument.Address == "" {
			return nil, fmt.Errorf("tcp transport requires an address")
		}
	case "":
		return nil, fmt.Errorf("no instrument transport specified")
	default:
		return nil, fmt.Errorf("unknown instrument transport '%s'", config.Instrument.Transport)
	}

	if config.Scan.RBWHz <= 0 {
		return nil, fmt.Errorf("scan rbwHz must be positive")
	}

	return &config, nil
}
