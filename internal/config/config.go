package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

type Config struct {
	AppEnv     string
	Locale     language.Tag
	SessionTTL time.Duration

	CartAPI CartAPIConfig
	Cache   CacheConfig
	Redis   RedisConfig
	Breaker BreakerConfig
	Kafka   KafkaConfig
	Server  ServerConfig
}

type CartAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CacheConfig selects the cache medium. Path is only read by the sqlite driver.
type CacheConfig struct {
	Driver string
	Prefix string
	Path   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type BreakerConfig struct {
	Enabled     bool
	MaxFailures int
	OpenTimeout time.Duration
}

// KafkaConfig is disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// ServerConfig configures the local cart API started by "cartsync serve".
type ServerConfig struct {
	Port           string
	StoreDriver    string
	MongoURI       string
	MongoDB        string
	MongoMaxPool   int
	MongoTimeout   time.Duration
	AllowedOrigins []string
}

// Load reads the environment, after a .env file in the working directory if
// one exists, and returns every invalid value as a single joined error.
func Load() (*Config, error) {
	_ = godotenv.Load() // ignore if .env missing (local only)

	l := &loader{}
	cfg := &Config{
		AppEnv: l.getEnv("APP_ENV", "development"),
		CartAPI: CartAPIConfig{
			BaseURL: l.getEnv("CART_API_URL", "http://localhost:8000/api/v1"),
			Timeout: l.getDuration("CART_REQUEST_TIMEOUT", 10*time.Second),
		},
		Cache: CacheConfig{
			Driver: l.oneOf("CACHE_DRIVER", DriverSQLite, DriverMemory, DriverRedis, DriverSQLite),
			Prefix: l.getEnv("CACHE_PREFIX", "shop:"),
			Path:   l.getEnv("CACHE_PATH", defaultCachePath()),
		},
		Redis: RedisConfig{
			Addr:     l.getEnv("REDIS_ADDR", "localhost:6379"),
			Password: l.getEnv("REDIS_PASSWORD", ""),
			DB:       l.getInt("REDIS_DB", 0),
		},
		Breaker: BreakerConfig{
			Enabled:     l.getBool("BREAKER_ENABLED", true),
			MaxFailures: l.getInt("BREAKER_FAILURES", 5),
			OpenTimeout: l.getDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: l.getList("KAFKA_BROKERS"),
			Topic:   l.getEnv("KAFKA_TOPIC", "cart-events"),
		},
		Server: ServerConfig{
			Port:           l.getEnv("HTTP_PORT", "8000"),
			StoreDriver:    l.oneOf("STORE_DRIVER", DriverMemory, DriverMemory, DriverMongo),
			MongoURI:       l.getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDB:        l.getEnv("MONGO_DB_NAME", "cartsync"),
			MongoMaxPool:   l.getInt("MONGO_MAX_POOL_SIZE", 20),
			MongoTimeout:   l.getDuration("MONGO_TIMEOUT", 5*time.Second),
			AllowedOrigins: l.getList("ALLOWED_ORIGINS"),
		},
		SessionTTL: l.getDuration("SESSION_TTL", 24*time.Hour),
	}

	localeValue := l.getEnv("LOCALE", "en-US")
	locale, err := language.Parse(localeValue)
	if err != nil {
		l.fail("LOCALE", "language tag", localeValue)
		locale = language.AmericanEnglish
	}
	cfg.Locale = locale

	if cfg.Breaker.MaxFailures <= 0 {
		l.fail("BREAKER_FAILURES", "positive int", l.getEnv("BREAKER_FAILURES", ""))
		cfg.Breaker.MaxFailures = 5
	}
	if cfg.Server.MongoMaxPool <= 0 {
		l.fail("MONGO_MAX_POOL_SIZE", "positive int", l.getEnv("MONGO_MAX_POOL_SIZE", ""))
		cfg.Server.MongoMaxPool = 20
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:8000"}
	}

	if err := l.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "cartsync", "cache.db")
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
