package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/miviz/miviz/internal/errors"
)

// LevelTrace sits below slog.LevelDebug and is rendered as TRACE.
const LevelTrace = slog.Level(-8)

var (
	globalLogger   *CentralLogger
	globalLoggerMu sync.Mutex
)

// SetGlobal replaces the logger returned by Global.
func SetGlobal(cl *CentralLogger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = cl
}

// Global returns the logger installed by SetGlobal, or a console logger at
// info level when none has been installed yet.
func Global() *CentralLogger {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()

	if globalLogger == nil {
		cfg := &LoggingConfig{}
		applyConfigDefaults(cfg)
		globalLogger = &CentralLogger{
			config:   cfg,
			timezone: time.Local,
			levels:   map[string]slog.Level{},
			handler:  newTextHandler(os.Stderr, slog.LevelInfo),
		}
	}
	return globalLogger
}

// CentralLogger owns the output handlers and hands out module loggers.
// Console output is text without timestamps; file output is JSON rotated
// by lumberjack.
type CentralLogger struct {
	config   *LoggingConfig
	timezone *time.Location
	handler  slog.Handler
	levels   map[string]slog.Level

	mu   sync.Mutex
	file *lumberjack.Logger
}

// NewCentralLogger creates a logger with console output on stderr.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	return NewCentralLoggerWithConsole(cfg, os.Stderr)
}

// NewCentralLoggerWithConsole creates a logger whose console output goes to
// console. A nil console disables console output.
func NewCentralLoggerWithConsole(cfg *LoggingConfig, console io.Writer) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	tz, err := loadTimezone(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	cl := &CentralLogger{
		config:   cfg,
		timezone: tz,
		levels:   make(map[string]slog.Level, len(cfg.ModuleLevels)),
	}
	for module, level := range cfg.ModuleLevels {
		cl.levels[module] = parseLogLevel(level)
	}

	var handlers []slog.Handler
	if cfg.Console.Enabled && console != nil {
		handlers = append(handlers, newTextHandler(console, parseLogLevel(cfg.Console.Level)))
	}
	if cfg.FileOutput.Enabled {
		h, err := cl.openFile(cfg.FileOutput)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, h)
	}

	switch len(handlers) {
	case 0:
		cl.handler = slog.DiscardHandler
	case 1:
		cl.handler = handlers[0]
	default:
		cl.handler = newMultiWriterHandler(handlers...)
	}
	return cl, nil
}

// NewSlogLogger returns a Logger writing text to w, without configuration.
// Used by tests and by components constructed outside the app. Console
// records carry no timestamp, so the location is unused.
func NewSlogLogger(w io.Writer, level LogLevel, _ *time.Location) Logger {
	l := parseLogLevel(string(level))
	return &moduleLogger{
		handler: newTextHandler(w, l),
		level:   l,
	}
}

func loadTimezone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", name, err)
	}
	return tz, nil
}

func (cl *CentralLogger) openFile(fo *FileOutput) (slog.Handler, error) {
	if dir := filepath.Dir(fo.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.New(fmt.Errorf("failed to create log directory %s: %w", dir, err)).
				Component("logger").
				Category(errors.CategoryFileIO).
				Build()
		}
	}

	cl.file = &lumberjack.Logger{
		Filename:   fo.Path,
		MaxSize:    fo.MaxSize,
		MaxAge:     fo.MaxAge,
		MaxBackups: fo.MaxRotatedFiles,
		Compress:   fo.Compress,
		LocalTime:  cl.timezone != time.UTC,
	}

	return slog.NewJSONHandler(cl.file, &slog.HandlerOptions{
		Level: parseLogLevel(fo.Level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.In(cl.timezone).Format(time.RFC3339))
				}
				return a
			}
			return renameTrace(a)
		},
	}), nil
}

// Module returns a logger scoped to name. Dotted names inherit the level
// of their closest configured parent, so "pipeline.session" uses the
// "pipeline" level unless it has its own.
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}
	return &moduleLogger{
		central: cl,
		module:  name,
		handler: cl.handler,
		level:   cl.levelFor(name),
	}
}

func (cl *CentralLogger) levelFor(module string) slog.Level {
	for name := module; name != ""; {
		if level, ok := cl.levels[name]; ok {
			return level
		}
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return parseLogLevel(cl.config.DefaultLevel)
}

// Close closes the rotating log file, if any. Calling it twice is safe.
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.file == nil {
		return nil
	}
	err := cl.file.Close()
	cl.file = nil
	if err != nil {
		return errors.New(fmt.Errorf("failed to close log file: %w", err)).
			Component("logger").
			Category(errors.CategoryFileIO).
			Build()
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch LogLevel(level) {
	case LogLevelTrace:
		return LevelTrace
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func renameTrace(a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// newTextHandler builds the console handler. Timestamps are dropped.
func newTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return renameTrace(a)
		},
	})
}
