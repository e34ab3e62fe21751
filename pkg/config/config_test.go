package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/cxmidi/pkg/scan"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	_, err = tmpfile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	return tmpfile.Name()
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, int8(0), cfg.Decoder.Transpose)
	assert.Equal(t, 64, cfg.Decoder.QueueSize)
	assert.Equal(t, scan.DefaultSyncSpinLimit, cfg.Decoder.SyncSpinLimit)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 31250, cfg.Serial.BaudRate)
	assert.Equal(t, "cxmidi", cfg.MIDI.OutPort)
	assert.Equal(t, 1200*time.Microsecond, cfg.Mock.FrameInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	name := writeConfig(t, `
decoder:
  transpose: -12
  queue_size: 128
  sync_spin_limit: 1000

serial:
  port: "/dev/ttyACM0"
  baud_rate: 115200

midi:
  out_port: "organ"

mock:
  frame_interval: 2ms
  press_interval: 1s
  hold_duration: 500ms
  pedal_interval: 0s
  seed: 42
`)

	cfg, err := Load(name)
	require.NoError(t, err)

	assert.Equal(t, int8(-12), cfg.Decoder.Transpose)
	assert.Equal(t, 128, cfg.Decoder.QueueSize)
	assert.Equal(t, 1000, cfg.Decoder.SyncSpinLimit)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, "organ", cfg.MIDI.OutPort)
	assert.Equal(t, 2*time.Millisecond, cfg.Mock.FrameInterval)
	assert.Equal(t, time.Second, cfg.Mock.PressInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Mock.HoldDuration)
	assert.Equal(t, time.Duration(0), cfg.Mock.PedalInterval)
	assert.Equal(t, uint64(42), cfg.Mock.Seed)

	opts := cfg.Options()
	assert.Equal(t, scan.Options{Transpose: -12, QueueSize: 128, SyncSpinLimit: 1000}, opts)
}

func TestLoad_InvalidYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "invalid: yaml: content: ["))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
serial:
  port: "/dev/ttyACM0"
`))
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 31250, cfg.Serial.BaudRate)
	assert.Equal(t, 64, cfg.Decoder.QueueSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Mock.HoldDuration)
}

func TestLoad_TransposeOutOfRange(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
decoder:
  transpose: 40
`))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestValidate_QueueTooSmall(t *testing.T) {
	cfg := Default()
	cfg.Decoder.QueueSize = 2
	assert.Error(t, cfg.Validate())
}
