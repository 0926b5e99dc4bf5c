// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/junsooki/deskview/internal/config"
)

// Setup sets the global level and output. Output is human readable when
// stderr is a terminal or when console output is forced.
func Setup(cfg config.Logging) error {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return errors.Wrapf(err, "log level %q", cfg.Level)
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	console := cfg.Console || term.IsTerminal(int(os.Stderr.Fd()))
	log.Logger = New(os.Stderr, console)
	return nil
}

// New builds a timestamped logger writing to w.
func New(w io.Writer, console bool) zerolog.Logger {
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}
