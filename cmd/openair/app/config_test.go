package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, yaml string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
settings:
  logLevel: debug
instrument:
  transport: serial
  port: /dev/ttyUSB0
  baudRate: 115200
  timeoutSeconds: 2.5
scan:
  name: site survey
  rbwHz: 100000
  refLevelDbm: -30
  maxSegmentSpanMHz: 25
  highSensitivity: true
  bands:
    - name: FM Radio
      startMHz: 88
      stopMHz: 108
      enabled: true
    - name: Airband
      startMHz: 118
      stopMHz: 137
      enabled: false
storage:
  dataDirectory: /var/lib/openair
  maxBatchSize: 250
export:
  outputDirectory: /tmp/scans
  segmentDirectory: /tmp/scans/segments
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, config.Settings.SlogLevel())
	assert.Equal(t, TransportSerial, config.Instrument.Transport)
	assert.Equal(t, "/dev/ttyUSB0", config.Instrument.Port)
	assert.Equal(t, 115200, config.Instrument.BaudRate)
	assert.Equal(t, 2500*time.Millisecond, config.Instrument.Timeout())
	assert.Equal(t, "site survey", config.Scan.Name)
	assert.Equal(t, 100000.0, config.Scan.RBWHz)
	assert.Equal(t, -30.0, config.Scan.RefLevelDBm)
	assert.True(t, config.Scan.HighSensitivity)
	assert.Equal(t, "/var/lib/openair", config.Storage.DataDirectory)
	assert.Equal(t, 250, config.Storage.MaxBatchSize)
	assert.Equal(t, "/tmp/scans", config.Export.OutputDirectory)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			"missing transport",
			`
scan:
  rbwHz: 100000
`,
		},
		{
			"unknown transport",
			`
instrument:
  transport: gpib
scan:
  rbwHz: 100000
`,
		},
		{
			"serial without port",
			`
instrument:
  transport: serial
scan:
  rbwHz: 100000
`,
		},
		{
			"tcp without address",
			`
instrument:
  transport: tcp
scan:
  rbwHz: 100000
`,
		},
		{
			"non-positive rbw",
			`
instrument:
  transport: serial
  port: /dev/ttyUSB0
scan:
  rbwHz: 0
`,
		},
		{
			"malformed yaml",
			`scan: [`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfigFile(t, tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestScanConfig_SelectedBands(t *testing.T) {
	config := ScanConfig{
		Bands: []BandConfig{
			{Name: "FM Radio", StartMHz: 88, StopMHz: 108, Enabled: true},
			{Name: "Airband", StartMHz: 118, StopMHz: 137, Enabled: false},
			{Name: "PMR446", StartMHz: 446, StopMHz: 446.2, Enabled: true},
		},
	}

	bands := config.SelectedBands()
	require.Len(t, bands, 2)

	assert.Equal(t, "FM Radio", bands[0].Name)
	assert.Equal(t, 88e6, bands[0].StartHz)
	assert.Equal(t, 108e6, bands[0].StopHz)
	assert.Equal(t, "PMR446", bands[1].Name)
	assert.InDelta(t, 446.2e6, bands[1].StopHz, 1e-3)
}

func TestSettings_SlogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Settings{LogLevel: tt.input}.SlogLevel(), "level %q", tt.input)
	}
}

func TestInstrumentConfig_Timeout(t *testing.T) {
	assert.Equal(t, 5*time.Second, InstrumentConfig{}.Timeout())
	assert.Equal(t, 5*time.Second, InstrumentConfig{TimeoutSeconds: -1}.Timeout())
	assert.Equal(t, 500*time.Millisecond, InstrumentConfig{TimeoutSeconds: 0.5}.Timeout())
}
