package log

import (
	"io"
	"log/slog"

	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog/v2"
)

// Окружения запуска.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Setup собирает корневой логгер под окружение:
//   - local: текстовый формат, debug;
//   - dev: JSON, debug;
//   - prod: zerolog (JSON, info) через slog-адаптер;
//   - неизвестное окружение ведёт себя как local.
func Setup(env string, w io.Writer) *slog.Logger {
	switch env {
	case EnvDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case EnvProd:
		zl := zerolog.New(w).With().Timestamp().Logger()
		opts := slogzerolog.Option{Level: slog.LevelInfo, Logger: &zl}
		return slog.New(opts.NewZerologHandler())
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
