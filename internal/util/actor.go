package util

import (
	"log/slog"
	"os"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"github.com/sirupsen/logrus"
)

// WithActorLogger actor 系统日志走 slog + tint，级别跟随 logrus
func WithActorLogger() actor.ConfigOption {
	return actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		handler := tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slogLevel(logrus.GetLevel()),
			TimeFormat: time.DateTime,
		})
		return slog.New(handler).With("system", system.ID)
	})
}

func slogLevel(lvl logrus.Level) slog.Level {
	switch {
	case lvl >= logrus.DebugLevel:
		return slog.LevelDebug
	case lvl == logrus.InfoLevel:
		return slog.LevelInfo
	case lvl == logrus.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
