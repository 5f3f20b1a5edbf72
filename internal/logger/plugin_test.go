package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPluginLoggerPrefixesAndTags(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewPluginLogger(zap.New(core), false).With("create")

	l.Info("created")
	l.Debug("hidden")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "[paystack-plugin][create] created", entries[0].Message)
		assert.Equal(t, "create", entries[0].ContextMap()["context"])
	}
}

func TestPluginLoggerVerboseDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewPluginLogger(zap.New(core), true)

	l.Debug("details")
	l.Warn("careful")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "[paystack-plugin] [debug] details", entries[0].Message)
		assert.Equal(t, zap.WarnLevel, entries[1].Level)
	}
}
