package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all the configuration for the application.
type Config struct {
	Env          string `yaml:"env" env:"ENV" env-default:"production"`
	HTTPServer   `yaml:"http_server"`
	Database     `yaml:"database"`
	Redis        `yaml:"redis"`
	URLShortener `yaml:"url_shortener"`
	Safety       `yaml:"safety"`
	Auth         `yaml:"auth"`
	Clicks       `yaml:"clicks"`
	RateLimit    `yaml:"rate_limit"`
}

// HTTPServer holds HTTP server specific configuration.
type HTTPServer struct {
	Address      string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// Database holds PostgreSQL connection configuration.
type Database struct {
	Host            string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string `yaml:"user" env:"DB_USER" env-default:"linkloom"`
	Password        string `yaml:"password" env:"DB_PASSWORD"`
	DBName          string `yaml:"dbname" env:"DB_NAME" env-default:"linkloom"`
	SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	Timezone        string `yaml:"timezone" env:"DB_TIMEZONE" env-default:"UTC"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"50"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
	SeedData        bool   `yaml:"seed_data" env:"DB_SEED_DATA" env-default:"true"`
}

// Redis holds the optional resolution-cache configuration. An empty host
// disables the cache entirely.
type Redis struct {
	Host     string        `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int           `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"10m"`
}

// URLShortener holds service-specific configuration.
type URLShortener struct {
	BaseURL               string `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	MaxGenerationAttempts int    `yaml:"max_generation_attempts" env:"MAX_GENERATION_ATTEMPTS" env-default:"10"`
}

// Safety holds the destination safety-check collaborator configuration. An
// empty endpoint means the allow-all fallback is used.
type Safety struct {
	Endpoint string        `yaml:"endpoint" env:"SAFETY_ENDPOINT" env-default:""`
	Timeout  time.Duration `yaml:"timeout" env:"SAFETY_TIMEOUT" env-default:"2s"`
}

// Auth holds JWT configuration.
type Auth struct {
	Secret          string        `yaml:"secret" env:"AUTH_SECRET" env-required:"true"`
	Issuer          string        `yaml:"issuer" env:"AUTH_ISSUER" env-default:"LinkLoom-Backend"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"AUTH_ACCESS_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"AUTH_REFRESH_TTL" env-default:"168h"`
}

// Clicks holds click-accountant tuning.
type Clicks struct {
	Workers       int           `yaml:"workers" env:"CLICKS_WORKERS" env-default:"3"`
	QueueSize     int           `yaml:"queue_size" env:"CLICKS_QUEUE_SIZE" env-default:"1000"`
	RetryAttempts int           `yaml:"retry_attempts" env:"CLICKS_RETRY_ATTEMPTS" env-default:"3"`
	RetryDelay    time.Duration `yaml:"retry_delay" env:"CLICKS_RETRY_DELAY" env-default:"1s"`
}

// RateLimit holds creation-endpoint rate limiting.
type RateLimit struct {
	Enabled bool    `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	RPS     float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"10"`
	Burst   int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"20"`
}

// MustLoad loads the application configuration.
func MustLoad() *Config {
	// Try to load .env file (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment variables")
	}

	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yml" // default path
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			log.Fatalf("cannot read config: %s", err)
		}
	} else {
		// If config file doesn't exist, use environment variables only
		log.Println("Config file not found, using environment variables only")
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("cannot read config from environment: %s", err)
		}
	}

	return &cfg
}
