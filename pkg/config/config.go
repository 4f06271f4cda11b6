package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Notification delivery modes.
const (
	NotifyModeDirect = "direct"
	NotifyModeOutbox = "outbox"
	NotifyModeNATS   = "nats"
)

const defaults = `
port: "8080"
env: development
mongo_uri: mongodb://localhost:27017
mongo_database: studynest
postgres_url: ""
jwt_secret: ""
jwt_expiry: 72h
firebase_credentials_path: ""
firebase_storage_bucket: ""
upload_dir: ./uploads
max_upload_bytes: 10485760
ai_api_key: ""
ai_base_url: ""
ai_model: gpt-4o-mini
ai_timeout: 60s
ai_rate_limit: 0.5
notify_mode: outbox
nats_url: nats://127.0.0.1:4222
outbox_poll_interval: 2s
outbox_lease: 1m
sentry_dsn: ""
metrics_port: "9090"
log_level: info
cors_origins: "*"
`

type Config struct {
	Port                    string        `koanf:"port"`
	Env                     string        `koanf:"env"`
	MongoURI                string        `koanf:"mongo_uri"`
	MongoDatabase           string        `koanf:"mongo_database"`
	PostgresUrl             string        `koanf:"postgres_url"`
	JWTSecret               string        `koanf:"jwt_secret"`
	JWTExpiry               time.Duration `koanf:"jwt_expiry"`
	FirebaseCredentialsPath string        `koanf:"firebase_credentials_path"`
	FirebaseStorageBucket   string        `koanf:"firebase_storage_bucket"`
	UploadDir               string        `koanf:"upload_dir"`
	MaxUploadBytes          int64         `koanf:"max_upload_bytes"`
	AIAPIKey                string        `koanf:"ai_api_key"`
	AIBaseURL               string        `koanf:"ai_base_url"`
	AIModel                 string        `koanf:"ai_model"`
	AITimeout               time.Duration `koanf:"ai_timeout"`
	AIRateLimit             float64       `koanf:"ai_rate_limit"`
	NotifyMode              string        `koanf:"notify_mode"`
	NatsURL                 string        `koanf:"nats_url"`
	OutboxPollInterval      time.Duration `koanf:"outbox_poll_interval"`
	OutboxLease             time.Duration `koanf:"outbox_lease"`
	SentryDSN               string        `koanf:"sentry_dsn"`
	MetricsPort             string        `koanf:"metrics_port"`
	LogLevel                string        `koanf:"log_level"`
	CORSOrigins             []string      `koanf:"cors_origins"`
}

// Load reads configuration from built-in defaults, an optional YAML file named by
// CONFIG_FILE and the process environment, in increasing order of precedence.
// A .env file in the working directory is loaded into the environment first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider([]byte(defaults)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	known := make(map[string]bool, len(k.Keys()))
	for _, key := range k.Keys() {
		known[key] = true
	}
	envProvider := env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if !known[key] {
			return ""
		}
		return key
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	for i, origin := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(origin)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether the server runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development"
}

// Validate checks settings that have no safe fallback.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET must be set when ENV=%s", c.Env)
		}
		c.JWTSecret = "supersecretjwtkey"
	}
	switch c.NotifyMode {
	case NotifyModeDirect, NotifyModeOutbox, NotifyModeNATS:
	default:
		return fmt.Errorf("unknown NOTIFY_MODE %q", c.NotifyMode)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI environment variable not set")
	}
	return nil
}
