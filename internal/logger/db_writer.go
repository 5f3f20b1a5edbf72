package logger

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogEntry holds the data passed from Zap to our worker
type LogEntry struct {
	Time    time.Time
	Level   zapcore.Level
	Message string
	Context string
	Caller  string // Function name
	Fields  map[string]any
}

// LogSink persists one log record, e.g. into a document collection.
type LogSink func(ctx context.Context, record map[string]any) error

// DBLogWriter handles the async writing
type DBLogWriter struct {
	sink    LogSink
	logChan chan LogEntry
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewDBLogWriter starts the background worker immediately.
func NewDBLogWriter(sink LogSink, buffer int) *DBLogWriter {
	if buffer <= 0 {
		buffer = 1000
	}
	writer := &DBLogWriter{
		sink:    sink,
		logChan: make(chan LogEntry, buffer),
		done:    make(chan struct{}),
	}
	go writer.processLogs()
	return writer
}

// AddLog never blocks; entries are dropped when the buffer is full.
func (w *DBLogWriter) AddLog(entry LogEntry) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.logChan <- entry:
	default:
		fmt.Fprintln(os.Stderr, "DB log channel full, dropping log:", entry.Message)
	}
}

// Close stops accepting entries and waits until the buffered ones are written.
func (w *DBLogWriter) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.logChan)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *DBLogWriter) processLogs() {
	defer close(w.done)
	for entry := range w.logChan {
		record := map[string]any{
			"level":     entry.Level.String(),
			"levelId":   mapLevelToInt(entry.Level),
			"message":   entry.Message,
			"createdAt": entry.Time.UTC(),
		}
		if entry.Context != "" {
			record["context"] = entry.Context
		}
		if entry.Caller != "" {
			record["caller"] = entry.Caller
		}
		if len(entry.Fields) > 0 {
			record["fields"] = entry.Fields
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		// errors are ignored to keep the app running
		_ = w.sink(ctx, record)
		cancel()
	}
}

// WithDBLogs returns a logger that also persists plugin-prefixed entries through sink.
// The writer is drained when the fx app stops.
func WithDBLogs(lc fx.Lifecycle, base *zap.Logger, sink LogSink) *zap.Logger {
	writer := NewDBLogWriter(sink, 1000)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			writer.Close()
			return nil
		},
	})
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return NewDBCore(core, writer)
	}))
}

func mapLevelToInt(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return 10
	case zapcore.InfoLevel:
		return 20
	case zapcore.WarnLevel:
		return 30
	case zapcore.ErrorLevel:
		return 40
	case zapcore.FatalLevel:
		return 50
	default:
		return 20
	}
}
