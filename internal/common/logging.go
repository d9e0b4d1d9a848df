// Package common provides logging and build information shared by the
// doc-mcp-server packages.
package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

var (
	memoryOnce  sync.Once
	memoryStore writers.IWriter
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string   `toml:"level" yaml:"level" json:"level"`
	Outputs    []string `toml:"outputs" yaml:"outputs" json:"outputs"`
	FilePath   string   `toml:"file_path" yaml:"file_path" json:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int      `toml:"max_backups" yaml:"max_backups" json:"max_backups"`
}

// Logger wraps arbor.ILogger to provide a consistent interface
type Logger struct {
	arbor.ILogger
}

// discardWriter implements writers.IWriter and discards all output.
// Used by NewSilentLogger to prevent dispatch to globally-registered writers.
type discardWriter struct{}

func (w *discardWriter) Write(p []byte) (int, error)           { return len(p), nil }
func (w *discardWriter) WithLevel(_ log.Level) writers.IWriter { return w }
func (w *discardWriter) GetFilePath() string                   { return "" }
func (w *discardWriter) Close() error                          { return nil }

// writerAdapter renders arbor's JSON events as single text lines on an
// arbitrary io.Writer.
type writerAdapter struct {
	mu    sync.Mutex
	out   io.Writer
	level log.Level
}

func (w *writerAdapter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var evt models.LogEvent
	if err := json.Unmarshal(p, &evt); err != nil {
		return w.out.Write(p)
	}
	if evt.Level < w.level {
		return len(p), nil
	}
	msg := evt.Message
	for k, v := range evt.Fields {
		msg += fmt.Sprintf(" %s=%v", k, v)
	}
	if evt.Error != "" {
		msg += fmt.Sprintf(" error=%s", evt.Error)
	}
	msg += "\n"
	if _, err := w.out.Write([]byte(msg)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *writerAdapter) WithLevel(level log.Level) writers.IWriter {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.level = level
	return w
}

func (w *writerAdapter) GetFilePath() string { return "" }
func (w *writerAdapter) Close() error        { return nil }

// NewLogger creates a console logger on stderr at the given level.
func NewLogger(level string) *Logger {
	return NewLoggerFromConfig(LoggingConfig{Level: level}, os.Stderr)
}

// NewLoggerFromConfig creates a logger configured from LoggingConfig.
//
// The console output is written to diag, which is the diagnostic sink for the
// process. It must never be the stream carrying protocol traffic; a nil diag
// falls back to stderr. Writers are private to the returned logger, so two
// loggers built with different sinks never share output.
func NewLoggerFromConfig(cfg LoggingConfig, diag io.Writer) *Logger {
	if diag == nil {
		diag = os.Stderr
	}
	level := cfg.Level
	if level == "" {
		level = "info"
	}

	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []string{"console"}
	}

	var ws []writers.IWriter
	for _, out := range outputs {
		switch out {
		case "console":
			ws = append(ws, &writerAdapter{out: diag, level: log.TraceLevel})
		case "file":
			filePath := cfg.FilePath
			if filePath == "" {
				filePath = "logs/doc-mcp-server.log"
			}
			maxSize := int64(cfg.MaxSizeMB) * 1024 * 1024
			if maxSize <= 0 {
				maxSize = 500 * 1024
			}
			maxBackups := cfg.MaxBackups
			if maxBackups <= 0 {
				maxBackups = 20
			}
			ws = append(ws, writers.FileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   filePath,
				MaxSize:    maxSize,
				MaxBackups: maxBackups,
				TimeFormat: timeFormat,
			}))
		}
	}

	return newLogger(level, append(ws, memoryStoreWriter()))
}

// NewLoggerWithOutput creates a logger writing plain text lines to w.
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	return newLogger(level, []writers.IWriter{
		&writerAdapter{out: w, level: log.TraceLevel},
		memoryStoreWriter(),
	})
}

func newLogger(level string, ws []writers.IWriter) *Logger {
	l := arbor.NewLogger().WithWriters(ws).WithLevelFromString(level)
	return &Logger{ILogger: l}
}

// memoryStoreWriter returns a writer feeding the process-wide memory store
// that GetMemoryLogsForCorrelation reads, registering the store on first use.
func memoryStoreWriter() writers.IWriter {
	memoryOnce.Do(func() {
		cfg := models.WriterConfiguration{Type: models.LogWriterTypeMemory}
		mw := writers.MemoryWriter(cfg)
		arbor.RegisterWriter(arbor.WRITER_MEMORY, mw)
		memoryStore = writers.LogStoreWriter(mw.GetStore(), cfg)
	})
	return memoryStore
}

// NewSilentLogger creates a logger that discards all output.
func NewSilentLogger() *Logger {
	arborLogger := arbor.NewLogger().WithWriters([]writers.IWriter{&discardWriter{}})
	return &Logger{ILogger: arborLogger}
}

// WithCorrelationId returns a new Logger tagged with a correlation ID.
func (l *Logger) WithCorrelationId(id string) *Logger {
	return &Logger{ILogger: l.ILogger.WithCorrelationId(id)}
}
