package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"

	"github.com/itohio/cxmidi/pkg/config"
)

func quietConfig() *config.Config {
	cfg := config.Default()
	cfg.Mock.FrameInterval = time.Millisecond
	cfg.Mock.PressInterval = 0
	cfg.Mock.PedalInterval = 0
	return cfg
}

func next(t *testing.T, ch <-chan Event) midi.Message {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "events channel closed")
		return ev.Message
	case <-time.After(2 * time.Second):
		t.Fatal("no event within timeout")
		return nil
	}
}

func TestNewMock_NilConfig(t *testing.T) {
	dev := NewMock(nil)
	assert.NotNil(t, dev)
	assert.Equal(t, config.Default().Mock, dev.cfg)
	assert.NotNil(t, dev.events)
	assert.False(t, dev.IsConnected())
}

func TestMock_KeysAndPedal(t *testing.T) {
	dev := NewMock(quietConfig())
	require.NoError(t, dev.Connect())
	defer dev.Close()

	assert.ErrorIs(t, dev.Connect(), ErrAlreadyConnected)

	require.NoError(t, dev.SetNote(60, true))
	assert.Equal(t, midi.Message{0x90, 60, 0x40}, next(t, dev.Events()))

	require.NoError(t, dev.SetNote(60, false))
	assert.Equal(t, midi.Message{0x80, 60, 0x00}, next(t, dev.Events()))

	dev.SetPedal(true)
	assert.Equal(t, midi.Message{0xB0, 0x40, 0x00}, next(t, dev.Events()))

	assert.Error(t, dev.SetNote(10, true))
	assert.NotZero(t, dev.Stats().Frames)
}

func TestMock_Transpose(t *testing.T) {
	cfg := quietConfig()
	cfg.Decoder.Transpose = 5
	dev := NewMock(cfg)
	require.NoError(t, dev.Connect())
	defer dev.Close()

	require.NoError(t, dev.SetNote(101, true))
	assert.Equal(t, midi.Message{0x90, 101, 0x40}, next(t, dev.Events()))
}

func TestMock_Script(t *testing.T) {
	cfg := quietConfig()
	cfg.Mock.PressInterval = 5 * time.Millisecond
	cfg.Mock.HoldDuration = 5 * time.Millisecond
	dev := NewMock(cfg)
	require.NoError(t, dev.Connect())
	defer dev.Close()

	var ch, key, vel uint8
	msg := next(t, dev.Events())
	assert.True(t, msg.GetNoteStart(&ch, &key, &vel), "got %s", msg)
}

// TestMock_GracefulShutdown tests that Mock closes the events channel when
// Close() is called.
func TestMock_GracefulShutdown(t *testing.T) {
	cfg := quietConfig()
	cfg.Mock.PressInterval = 2 * time.Millisecond
	cfg.Mock.HoldDuration = 2 * time.Millisecond

	dev := NewMock(cfg)
	require.NoError(t, dev.Connect())

	events := dev.Events()

	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range events {
			received++
			if received == 3 {
				go dev.Close()
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("events channel did not close within timeout")
	}

	assert.GreaterOrEqual(t, received, 3)
	assert.False(t, dev.IsConnected())
	assert.ErrorIs(t, dev.Connect(), ErrStopped)
}
