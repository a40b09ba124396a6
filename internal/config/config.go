package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string   `yml:"env" default:"local"`
	Postgres Postgres `yml:"postgres"`
	Server   Server   `yml:"server" env-required:"true"`
	Redis    Redis    `yml:"redis"`
	Poller   Poller   `yml:"poller"`
	Meeting  Meeting  `yml:"meeting"`
	Email    Email    `yml:"email"`
}

type Postgres struct {
	Username        string        `env:"POSTGRES_USER" env-required:"true"`
	Password        string        `env:"POSTGRES_PASSWORD" env-required:"true"`
	Host            string        `yml:"host" env-required:"true"`
	Port            string        `env:"POSTGRES_PORT" env-required:"true"`
	Database        string        `env:"POSTGRES_DB" env-required:"true"`
	MaxOpenConns    int           `yml:"max_open_conns" default:"50"`
	MaxIdleConns    int           `yml:"max_idle_conns" default:"10"`
	ConnMaxLifetime time.Duration `yml:"conn_max_lifetime" default:"5m"`
	ConnMaxIdleTime time.Duration `yml:"conn_max_idle_time" default:"1m"`
}

type Server struct {
	Host    string        `yml:"host" default:"localhost"`
	Port    string        `yml:"port" default:"8080"`
	Timeout time.Duration `yml:"timeout" default:"5s"`
}

type Redis struct {
	Host            string `yml:"host" default:"localhost"`
	Port            string `env:"REDIS_PORT" default:"6379"`
	RequestsChannel string `yml:"requests_channel" default:"match.requests"`
	PairsChannel    string `yml:"pairs_channel" default:"match.pairs"`
}

type Poller struct {
	// Schedule is a cron expression; the default fires at the top of every hour.
	Schedule string        `yml:"schedule" default:"0 * * * *"`
	Window   time.Duration `yml:"window" default:"1h"`
}

type Meeting struct {
	Provider string `yml:"provider" default:"static"`
	BaseURL  string `yml:"base_url" default:"https://meet.peerview.dev"`
}

type Email struct {
	APIKey string `env:"RESEND_API_KEY"`
	Sender string `yml:"sender" default:"PeerView <no-reply@peerview.dev>"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		return nil, errors.New("CONFIG_PATH is not set")
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file does not exist: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	return &cfg, nil
}
