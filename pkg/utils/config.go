package utils

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Referral   ReferralConfig
	Reconciler ReconcilerConfig
	Admin      AdminConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
}

type ReferralConfig struct {
	CodePrefix   string
	CodeLength   int
	MaxAttempts  int
	StoreRetries int
	RetryBackoff time.Duration
}

type ReconcilerConfig struct {
	PageSize    int
	Concurrency int
}

type AdminConfig struct {
	APIKey string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REFERRAL_CODE_PREFIX", "TAL")
	viper.SetDefault("REFERRAL_CODE_LENGTH", 8)
	viper.SetDefault("REFERRAL_MAX_ATTEMPTS", 10)
	viper.SetDefault("REFERRAL_STORE_RETRIES", 3)
	viper.SetDefault("REFERRAL_RETRY_BACKOFF_MS", 100)
	viper.SetDefault("RECONCILER_PAGE_SIZE", 200)
	viper.SetDefault("RECONCILER_CONCURRENCY", 8)

	if err := viper.ReadInConfig(); err != nil {
		// .env is optional when everything comes from the environment
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASS"),
		},
		Referral: ReferralConfig{
			CodePrefix:   viper.GetString("REFERRAL_CODE_PREFIX"),
			CodeLength:   viper.GetInt("REFERRAL_CODE_LENGTH"),
			MaxAttempts:  viper.GetInt("REFERRAL_MAX_ATTEMPTS"),
			StoreRetries: viper.GetInt("REFERRAL_STORE_RETRIES"),
			RetryBackoff: time.Duration(viper.GetInt("REFERRAL_RETRY_BACKOFF_MS")) * time.Millisecond,
		},
		Reconciler: ReconcilerConfig{
			PageSize:    viper.GetInt("RECONCILER_PAGE_SIZE"),
			Concurrency: viper.GetInt("RECONCILER_CONCURRENCY"),
		},
		Admin: AdminConfig{
			APIKey: viper.GetString("ADMIN_API_KEY"),
		},
	}

	return config, nil
}
