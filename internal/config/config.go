package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Payment: Crypto Bot (https://help.crypt.bot/crypto-pay-api).
	// Empty token disables the pending-payment check.
	CryptoBotToken string `env:"CRYPTO_BOT_TOKEN"`
	CryptoBotURL   string `env:"CRYPTO_BOT_API_URL" envDefault:"https://pay.crypt.bot/api"`
	CryptoBotAsset string `env:"CRYPTO_BOT_ASSET" envDefault:"USDT"`

	// Admin
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	// Backup. Empty directory disables the backup task.
	BackupDir  string `env:"BACKUP_DIR"`
	BackupKeep int    `env:"BACKUP_KEEP" envDefault:"7"`

	// Metrics
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
