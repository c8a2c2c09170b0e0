package utils

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Store    StoreConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	NATS     NATSConfig
	TMDB     TMDBConfig
}

type AppConfig struct {
	Name        string
	Port        string
	Debug       bool
	LogPath     string
	CORSOrigins []string
}

type StoreConfig struct {
	Driver string // mongo, postgres or memory
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type MongoConfig struct {
	URL      string
	Database string
}

type RedisConfig struct {
	URL string
}

type NATSConfig struct {
	URL string
}

type TMDBConfig struct {
	BaseURL           string
	APIKey            string
	AccessToken       string
	RequestsPerSecond float64
	MaxRetries        int
	RetryDelay        time.Duration
	ConnectTimeout    time.Duration
	ReadTimeout       time.Duration
	GenreTTL          time.Duration
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")

	v.SetDefault("APP_NAME", "movie-catalog")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	v.SetDefault("DOCSTORE_DRIVER", "mongo")
	v.SetDefault("MONGO_URL", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DB", "movie_review_db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("NATS_URL", "")

	v.SetDefault("TMDB_API_BASE_URL", "https://api.themoviedb.org/3")
	v.SetDefault("TMDB_API_KEY", "")
	v.SetDefault("TMDB_ACCESS_TOKEN", "")
	v.SetDefault("TMDB_REQUESTS_PER_SECOND", 0.5)
	v.SetDefault("TMDB_MAX_RETRIES", 3)
	v.SetDefault("TMDB_RETRY_DELAY", "1s")
	v.SetDefault("TMDB_CONNECT_TIMEOUT", "5s")
	v.SetDefault("TMDB_READ_TIMEOUT", "10s")
	v.SetDefault("TMDB_GENRE_TTL", "0s")
	v.SetDefault("TMDB_BREAKER_FAILURES", 5)
	v.SetDefault("TMDB_BREAKER_TIMEOUT", "30s")

	// .env is optional; environment variables always apply
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:        v.GetString("APP_NAME"),
			Port:        v.GetString("PORT"),
			Debug:       v.GetBool("DEBUG"),
			LogPath:     v.GetString("LOG_PATH"),
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("DOCSTORE_DRIVER")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Mongo: MongoConfig{
			URL:      v.GetString("MONGO_URL"),
			Database: v.GetString("MONGODB_DB"),
		},
		Redis: RedisConfig{URL: v.GetString("REDIS_URL")},
		NATS:  NATSConfig{URL: v.GetString("NATS_URL")},
		TMDB: TMDBConfig{
			BaseURL:           v.GetString("TMDB_API_BASE_URL"),
			APIKey:            v.GetString("TMDB_API_KEY"),
			AccessToken:       v.GetString("TMDB_ACCESS_TOKEN"),
			RequestsPerSecond: v.GetFloat64("TMDB_REQUESTS_PER_SECOND"),
			MaxRetries:        v.GetInt("TMDB_MAX_RETRIES"),
			RetryDelay:        durationSetting(v, "TMDB_RETRY_DELAY"),
			ConnectTimeout:    durationSetting(v, "TMDB_CONNECT_TIMEOUT"),
			ReadTimeout:       durationSetting(v, "TMDB_READ_TIMEOUT"),
			GenreTTL:          durationSetting(v, "TMDB_GENRE_TTL"),
			BreakerFailures:   v.GetUint32("TMDB_BREAKER_FAILURES"),
			BreakerTimeout:    durationSetting(v, "TMDB_BREAKER_TIMEOUT"),
		},
	}

	return config, nil
}

// durationSetting reads a bare number as seconds and anything else as a
// Go duration such as "1500ms".
func durationSetting(v *viper.Viper, key string) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return v.GetDuration(key)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
