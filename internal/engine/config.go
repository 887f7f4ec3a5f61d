package engine

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config хранит параметры запуска сервиса.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// Жнец: как часто проверять и какой возраст считать мусором.
	// Завершенные партии живут ReapAge после последнего обновления.
	ReapInterval time.Duration `env:"REAP_INTERVAL" envDefault:"1h"`
	ReapAge      time.Duration `env:"REAP_AGE" envDefault:"24h"`

	// Архив завершенных партий. Пустая директория отключает архивацию.
	ArchiveDir   string `env:"ARCHIVE_DIR" envDefault:""`
	ArchiveIndex string `env:"ARCHIVE_INDEX" envDefault:""`
}

// LoadConfig читает конфигурацию из переменных окружения.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// DefaultConfig - конфиг по умолчанию (для тестов и встраивания).
func DefaultConfig() Config {
	return Config{
		Port:         "8080",
		ReapInterval: time.Hour,
		ReapAge:      24 * time.Hour,
	}
}
