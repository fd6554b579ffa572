package utils

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Booking  BookingConfig
	Reaper   ReaperConfig
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
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type QueueConfig struct {
	// Backend selects the queue implementation: "memory" or "kafka".
	Backend         string
	Brokers         []string
	GroupID         string
	MaxReceiveCount int
	BufferSize      int
}

type BookingConfig struct {
	HoldTTL           time.Duration
	MaxTicketsPerUser int
	HoldRetryAttempts int
	HoldRetryBackoff  time.Duration
}

type ReaperConfig struct {
	Interval  time.Duration
	BatchSize int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_TTL_SECONDS", 10)
	viper.SetDefault("QUEUE_BACKEND", "memory")
	viper.SetDefault("QUEUE_BROKERS", "localhost:9092")
	viper.SetDefault("QUEUE_GROUP_ID", "ticket-booking")
	viper.SetDefault("QUEUE_MAX_RECEIVE_COUNT", 3)
	viper.SetDefault("QUEUE_BUFFER_SIZE", 1024)
	viper.SetDefault("HOLD_TTL_MINUTES", 5)
	viper.SetDefault("MAX_TICKETS_PER_USER", 6)
	viper.SetDefault("HOLD_RETRY_ATTEMPTS", 4)
	viper.SetDefault("HOLD_RETRY_BACKOFF_MS", 25)
	viper.SetDefault("REAPER_INTERVAL_SECONDS", 30)
	viper.SetDefault("REAPER_BATCH_SIZE", 100)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
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
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASS"),
			DB:       viper.GetInt("REDIS_DB"),
			CacheTTL: viper.GetDuration("CACHE_TTL_SECONDS") * time.Second,
		},
		Queue: QueueConfig{
			Backend:         viper.GetString("QUEUE_BACKEND"),
			Brokers:         viper.GetStringSlice("QUEUE_BROKERS"),
			GroupID:         viper.GetString("QUEUE_GROUP_ID"),
			MaxReceiveCount: viper.GetInt("QUEUE_MAX_RECEIVE_COUNT"),
			BufferSize:      viper.GetInt("QUEUE_BUFFER_SIZE"),
		},
		Booking: BookingConfig{
			HoldTTL:           viper.GetDuration("HOLD_TTL_MINUTES") * time.Minute,
			MaxTicketsPerUser: viper.GetInt("MAX_TICKETS_PER_USER"),
			HoldRetryAttempts: viper.GetInt("HOLD_RETRY_ATTEMPTS"),
			HoldRetryBackoff:  viper.GetDuration("HOLD_RETRY_BACKOFF_MS") * time.Millisecond,
		},
		Reaper: ReaperConfig{
			Interval:  viper.GetDuration("REAPER_INTERVAL_SECONDS") * time.Second,
			BatchSize: viper.GetInt("REAPER_BATCH_SIZE"),
		},
	}

	return config, nil
}
