package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/c360/livebridge/errors"
)

// NewLogger builds the process logger. Output goes to Log.File when set,
// otherwise to w. The returned close func releases the file.
func (lc LogConfig) NewLogger(service string, w io.Writer) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(lc.Level)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() error { return nil }
	if lc.File != "" {
		f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, errors.WrapFatal(err, "LogConfig", "NewLogger", fmt.Sprintf("open %s", lc.File))
		}
		w = f
		closeFn = f.Close
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	switch lc.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(
		"service", service,
		"pid", os.Getpid(),
	), closeFn, nil
}
