package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	Port            string          `yaml:"port"`
	Environment     string          `yaml:"environment"`
	AllowedOrigins  []string        `yaml:"allowed_origins"`
	JWTSecret       string          `yaml:"jwt_secret"`
	LogLevel        string          `yaml:"log_level"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	Redis           RedisConfig     `yaml:"redis"`
	Signaling       SignalingConfig `yaml:"signaling"`
	NATS            NATSConfig      `yaml:"nats"`
	WebSocket       WebSocketConfig `yaml:"websocket"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SignalingConfig bounds the shared store calls made while handling events
type SignalingConfig struct {
	TokenCheckTimeout time.Duration `yaml:"token_check_timeout"`
	StoreWriteTimeout time.Duration `yaml:"store_write_timeout"`
}

// NATSConfig configures the presence feed. An empty URL disables it.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `yaml:"ping_interval"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	SendBuffer     int           `yaml:"send_buffer"`
}

// Load reads .env (if present), then the environment, then the YAML file
// named by CONFIG_FILE. Keys present in the file win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		AllowedOrigins:  splitOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		JWTSecret:       getEnv("JWT_SECRET", defaultJWTSecret),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Signaling: SignalingConfig{
			TokenCheckTimeout: getEnvAsDuration("TOKEN_CHECK_TIMEOUT", 2*time.Second),
			StoreWriteTimeout: getEnvAsDuration("STORE_WRITE_TIMEOUT", 2*time.Second),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "flowsync"),
		},
		WebSocket: WebSocketConfig{
			PingInterval:   getEnvAsDuration("WS_PING_INTERVAL", 25*time.Second),
			ReadTimeout:    getEnvAsDuration("WS_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:   getEnvAsDuration("WS_WRITE_TIMEOUT", 10*time.Second),
			MaxMessageSize: int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 64*1024)),
			SendBuffer:     getEnvAsInt("WS_SEND_BUFFER", 256),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Environment == "production" && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.Signaling.TokenCheckTimeout <= 0 {
		return fmt.Errorf("token check timeout must be positive, got %s", c.Signaling.TokenCheckTimeout)
	}
	if c.WebSocket.PingInterval >= c.WebSocket.ReadTimeout {
		return fmt.Errorf("ping interval %s must be shorter than read timeout %s",
			c.WebSocket.PingInterval, c.WebSocket.ReadTimeout)
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("send buffer must be positive, got %d", c.WebSocket.SendBuffer)
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func splitOrigins(s string) []string {
	var origins []string
	for _, origin := range strings.Split(s, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
