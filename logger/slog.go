package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/phsym/console-slog"
)

// Format selects the slog handler used by a SlogLogger.
type Format string

const (
	// FormatJSON writes one JSON object per record, the time key renamed to "ts".
	FormatJSON Format = "json"
	// FormatConsole writes colored human readable lines through console-slog.
	FormatConsole Format = "console"
)

// ParseFormat converts a format name to a Format. An empty name selects FormatJSON.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatConsole:
		return FormatConsole, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format %q", name)
	}
}

// SlogOptions configures NewSlogWithOptions.
type SlogOptions struct {
	Level     Level
	AddSource bool
	Format    Format
	// Output defaults to os.Stdout.
	Output io.Writer
}

type SlogLogger struct {
	mu     *sync.Mutex
	logger *slog.Logger
	level  *slog.LevelVar
}

// NewSlog create a slog instance writing JSON to stdout.
//
// The console handler is selected instead when the ENV environment variable is "development".
func NewSlog(level Level, addSource bool) Logger {
	format := FormatJSON
	if os.Getenv("ENV") == "development" {
		format = FormatConsole
		addSource = true
	}

	return NewSlogWithOptions(SlogOptions{Level: level, AddSource: addSource, Format: format})
}

// NewSlogWithOptions creates a slog instance with an explicit handler format and output.
func NewSlogWithOptions(opts SlogOptions) Logger {
	inst := &SlogLogger{mu: &sync.Mutex{}}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	inst.level = &slog.LevelVar{}
	inst.level.Set(toSlogLevel(opts.Level))

	var handler slog.Handler
	if opts.Format == FormatConsole {
		handler = console.NewHandler(output, &console.HandlerOptions{
			AddSource: opts.AddSource,
			Level:     inst.level,
		})
	} else {
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{
			AddSource: opts.AddSource,
			Level:     inst.level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					a.Key = "ts"
				}
				return a
			},
		})
	}
	inst.logger = slog.New(handler)

	return inst
}

func (l *SlogLogger) Debug(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelDebug, msg, keysAndValues...)
}

func (l *SlogLogger) Info(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelInfo, msg, keysAndValues...)
}

func (l *SlogLogger) Warn(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelWarn, msg, keysAndValues...)
}

func (l *SlogLogger) Error(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelError, msg, keysAndValues...)
}

func (l *SlogLogger) Fatal(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelError, msg, keysAndValues...)
	os.Exit(1)
}

// With returns a child logger sharing the level of its parent.
func (l *SlogLogger) With(keyValues ...any) Logger {
	return &SlogLogger{
		mu:     l.mu,
		logger: l.logger.With(keyValues...),
		level:  l.level,
	}
}

func (l *SlogLogger) Level() Level {
	switch lv := l.level.Level(); {
	case lv <= slog.LevelDebug:
		return DebugLevel
	case lv <= slog.LevelInfo:
		return InfoLevel
	case lv <= slog.LevelWarn:
		return WarnLevel
	default:
		return ErrorLevel
	}
}

func (l *SlogLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.level.Set(toSlogLevel(level))
}

// log is the low-level logging method for methods that take ...any.
// It must always be called directly by an exported logging method
// or function, because it uses a fixed call depth to obtain the pc.
func (l *SlogLogger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.logger.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	// skip [runtime.Callers, this function, this function's caller]
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.logger.Handler().Handle(ctx, r)
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
