package logger

import (
	"go.uber.org/zap"
)

const pluginPrefix = "[paystack-plugin]"

// PluginLogger prefixes every message with the plugin tag and an optional context
// such as "create" or "webhook". Debug output only appears when verbose is on.
type PluginLogger struct {
	base    *zap.Logger
	context string
	verbose bool
}

func NewPluginLogger(base *zap.Logger, verbose bool) *PluginLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &PluginLogger{base: base, verbose: verbose}
}

// With returns a logger tagged with context; the receiver is left untouched.
func (l *PluginLogger) With(context string) *PluginLogger {
	return &PluginLogger{
		base:    l.base.With(zap.String("context", context)),
		context: context,
		verbose: l.verbose,
	}
}

// Verbose reports whether Debug output is enabled, so callers can skip building costly fields.
func (l *PluginLogger) Verbose() bool {
	return l.verbose
}

func (l *PluginLogger) prefix(msg string) string {
	if l.context == "" {
		return pluginPrefix + " " + msg
	}
	return pluginPrefix + "[" + l.context + "] " + msg
}

func (l *PluginLogger) Info(msg string, fields ...zap.Field) {
	l.base.Info(l.prefix(msg), fields...)
}

func (l *PluginLogger) Warn(msg string, fields ...zap.Field) {
	l.base.Warn(l.prefix(msg), fields...)
}

func (l *PluginLogger) Error(msg string, fields ...zap.Field) {
	l.base.Error(l.prefix(msg), fields...)
}

// Debug is emitted at info level when verbose logging is enabled, so it shows up
// under production encoders too.
func (l *PluginLogger) Debug(msg string, fields ...zap.Field) {
	if !l.verbose {
		return
	}
	l.base.Info(l.prefix("[debug] "+msg), fields...)
}
