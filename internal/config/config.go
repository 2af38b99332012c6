package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr       string
	RequestTimeout time.Duration

	DatabaseDSN   string
	RunMigrations bool

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SessionCartTTL time.Duration

	// Empty RabbitMQURL delivers notifications in-process.
	RabbitMQURL     string
	NotifyQueueSize int

	ReturnWindowDays int

	CORSAllowOrigins []string
}

func Load() Config {
	return Config{
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		RequestTimeout: parseDuration(getenv("REQUEST_TIMEOUT", "5s"), 5*time.Second),

		DatabaseDSN:   getenv("DATABASE_DSN", ""),
		RunMigrations: envBool("RUN_MIGRATIONS", true),

		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		RedisDB:        envInt("REDIS_DB", 0),
		SessionCartTTL: parseDuration(getenv("SESSION_CART_TTL", "24h"), 24*time.Hour),

		RabbitMQURL:     getenv("RABBITMQ_URL", ""),
		NotifyQueueSize: envInt("NOTIFY_QUEUE_SIZE", 128),

		ReturnWindowDays: envInt("RETURN_WINDOW_DAYS", 30),

		CORSAllowOrigins: splitCSV(getenv("CORS_ALLOW_ORIGINS", "*")),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	b, err := strconv.ParseBool(getenv(k, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return b
}

func envInt(k string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(getenv(k, strconv.Itoa(def))))
	if err != nil || n < 0 {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
