package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rollbar/rollbar-go"
)

var (
	mu      sync.RWMutex
	logger  = newLogger(os.Stdout)
	reports bool
)

// SetOutput redirects log lines; tests use it to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w)
}

// ConfigureRollbar enables forwarding of Error lines to Rollbar.
// An empty token disables forwarding.
func ConfigureRollbar(token, env, codeVersion string) {
	mu.Lock()
	defer mu.Unlock()
	token = strings.TrimSpace(token)
	reports = token != ""
	if !reports {
		rollbar.SetEnabled(false)
		return
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	if codeVersion != "" {
		rollbar.SetCodeVersion(codeVersion)
	}
	rollbar.SetEnabled(true)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write(slog.LevelInfo, msg, fields)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	write(slog.LevelWarn, msg, fields)
}

// Error writes an error-level log line with the given fields and reports it
// to Rollbar when configured.
func Error(msg string, fields map[string]any) {
	write(slog.LevelError, msg, fields)

	mu.RLock()
	enabled := reports
	mu.RUnlock()
	if enabled {
		rollbar.Error(reportError(msg, fields), fields)
	}
}

func write(level slog.Level, msg string, fields map[string]any) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	l.LogAttrs(context.Background(), level, msg, attrs...)
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339))
			case slog.LevelKey:
				return slog.String("level", strings.ToLower(a.Value.String()))
			}
			return a
		},
	}))
}

func reportError(msg string, fields map[string]any) error {
	if raw, ok := fields["error"]; ok {
		switch e := raw.(type) {
		case error:
			return e
		case string:
			if e != "" {
				return errors.New(msg + ": " + e)
			}
		}
	}
	return errors.New(msg)
}
