package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/kiliankoe/insignia/internal/config"
)

// Setup configures the global zerolog logger: human-friendly console output
// unless format is json or the app runs in production.
func Setup(cfg config.Log, env string) {
	SetupTo(os.Stdout, cfg, env)
}

func SetupTo(out io.Writer, cfg config.Log, env string) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" || env == "production" {
		zerologlog.Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}
	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)
}
