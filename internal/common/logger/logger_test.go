package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestZapWrapper_FieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	log.WithFields(map[string]interface{}{"userId": "demo-user-1"}).
		Info("submit settled", map[string]interface{}{
			"outcome": "result",
			"cause":   errors.New("boom"),
		})

	entries := logs.All()
	assert.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "demo-user-1", ctx["userId"])
	assert.Equal(t, "result", ctx["outcome"])
	assert.Equal(t, "boom", ctx["cause"])
}

func TestZapWrapper_WithError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	log.WithError(errors.New("connection refused")).Warn("health check failed", nil)

	entries := logs.FilterMessage("health check failed").All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "connection refused", entries[0].ContextMap()["error"])
}

func TestNewNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.With(map[string]interface{}{"k": "v"}).Debug("ignored", nil)
	})
}
