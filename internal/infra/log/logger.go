package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger настраивает zerolog для сервисов сканирования: JSON в
// stdout, метки времени RFC3339, debug-уровень в dev-окружении.
// Компонент добавляется вызывающим через With().
func NewLogger(appEnv string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if appEnv == "dev" {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}
