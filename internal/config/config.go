package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds every externally injected setting. Values come from the
// environment at process start; nothing here is read again afterwards.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	MySQLUser     string `env:"MYSQL_USER"`
	MySQLPassword string `env:"MYSQL_PASSWORD"`
	MySQLHost     string `env:"MYSQL_HOST"`
	MySQLPort     string `env:"MYSQL_PORT" envDefault:"3306"`
	MySQLDatabase string `env:"MYSQL_DATABASE"`

	RedisHost string `env:"REDIS_HOST"`

	RabbitURL      string `env:"RABBITMQ_URL"`
	RabbitExchange string `env:"RABBITMQ_EXCHANGE" envDefault:"shop.orders"`

	AppBaseURL     string `env:"APP_BASE_URL"`
	HypBaseURL     string `env:"HYP_BASE_URL"`
	HypMasof       string `env:"HYP_MASOF"`
	HypPassP       string `env:"HYP_PASSP"`
	HypKey         string `env:"HYP_KEY"`
	HypSuccessPath string `env:"HYP_SUCCESS_PATH" envDefault:"/payment/success"`
	HypFailurePath string `env:"HYP_FAILURE_PATH" envDefault:"/payment/failure"`
	HypCancelPath  string `env:"HYP_CANCEL_PATH" envDefault:"/payment/cancel"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM"`

	AdminEmail string `env:"ADMIN_EMAIL"`

	DevSecret string `env:"DEV_SECRET"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
