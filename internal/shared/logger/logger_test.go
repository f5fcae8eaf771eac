package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEntryFieldsReachZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := New(zap.New(core))

	log.Error(Entry{
		Action:     "booking_create_failed",
		Message:    "boom",
		BookingID:  "b-1",
		CarID:      "c-1",
		Error:      &ErrObj{Msg: "boom"},
		Additional: map[string]any{"attempt": 2},
	})

	require.Equal(t, 1, logs.Len())
	got := logs.All()[0]
	assert.Equal(t, "boom", got.Message)
	assert.Equal(t, zapcore.ErrorLevel, got.Level)

	ctx := got.ContextMap()
	assert.Equal(t, "booking_create_failed", ctx["action"])
	assert.Equal(t, "b-1", ctx["booking_id"])
	assert.Equal(t, "c-1", ctx["car_id"])
	assert.Contains(t, ctx, "error")
	assert.Contains(t, ctx, "additional")
}

func TestOptionalFieldsOmitted(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := New(zap.New(core))

	log.Debug(Entry{Action: "hidden"})
	log.Info(Entry{Action: "visible", Message: "ok"})

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.NotContains(t, ctx, "booking_id")
	assert.NotContains(t, ctx, "request_id")
	assert.NotContains(t, ctx, "error")
}

func TestWithAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := New(zap.New(core)).With(map[string]any{"worker": "reminders"})

	log.Info(Entry{Action: "tick"})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "reminders", logs.All()[0].ContextMap()["worker"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("whatever"))
}
