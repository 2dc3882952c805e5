package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"winenotes/internal/config"
)

// LogFilePattern matches the daily log files written by NewFromConfig.
const LogFilePattern = "winenotes-*.log"

// Options describes logger construction parameters.
type Options struct {
	// Level applies to file outputs, and to console outputs when
	// ConsoleLevel is empty.
	Level        string
	ConsoleLevel string
	Format       string
	// OutputPaths lists files plus the special names "stdout" and "stderr".
	OutputPaths []string
	Development bool
}

type sink struct {
	w       io.Writer
	console bool
}

// New builds a logger with one handler per output, each filtered by its own
// level.
func New(opts Options) (*slog.Logger, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}
	if format != "console" && format != "json" {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	fileLevel := parseLevel(opts.Level)
	consoleLevel := fileLevel
	if strings.TrimSpace(opts.ConsoleLevel) != "" {
		consoleLevel = parseLevel(opts.ConsoleLevel)
	}

	sinks, err := openSinks(opts.OutputPaths)
	if err != nil {
		return nil, err
	}
	handlers := make([]slog.Handler, 0, len(sinks))
	for _, s := range sinks {
		level := fileLevel
		if s.console {
			level = consoleLevel
		}
		addSource := opts.Development || level <= slog.LevelDebug
		if format == "json" {
			handlers = append(handlers, newJSONHandler(s.w, level, addSource))
		} else {
			handlers = append(handlers, newPrettyHandler(s.w, level, addSource))
		}
	}
	return slog.New(newFanoutHandler(handlers...)), nil
}

// NewFromConfig writes the configured level to a daily file under log_dir
// and only warnings to stderr, so command output stays readable. Debug and
// error levels apply to both.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "warn"})
	}

	console := "warn"
	switch cfg.Logging.Level {
	case "debug", "error":
		console = cfg.Logging.Level
	}

	outputs := []string{"stderr"}
	if cfg.Paths.LogDir != "" {
		outputs = append(outputs, DailyLogPath(cfg.Paths.LogDir, time.Now()))
	}

	return New(Options{
		Level:        cfg.Logging.Level,
		ConsoleLevel: console,
		Format:       cfg.Logging.Format,
		OutputPaths:  outputs,
	})
}

// DailyLogPath names the log file NewFromConfig writes on the given day.
func DailyLogPath(dir string, day time.Time) string {
	return filepath.Join(dir, strings.Replace(LogFilePattern, "*", day.Format("20060102"), 1))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openSinks(paths []string) ([]sink, error) {
	if len(paths) == 0 {
		paths = []string{"stderr"}
	}
	seen := make(map[string]struct{}, len(paths))
	var sinks []sink
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}

		switch path {
		case "stdout":
			sinks = append(sinks, sink{w: os.Stdout, console: true})
		case "stderr":
			sinks = append(sinks, sink{w: os.Stderr, console: true})
		default:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("ensure log directory: %w", err)
			}
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", path, err)
			}
			sinks = append(sinks, sink{w: file})
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, sink{w: os.Stderr, console: true})
	}
	return sinks, nil
}

func newJSONHandler(w io.Writer, level slog.Level, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	})
}
