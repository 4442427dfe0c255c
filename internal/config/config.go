package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Services ServicesConfig `yaml:"services"`
	Presence PresenceConfig `yaml:"presence"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	ServiceURL string `yaml:"service_url"`
	SecretKey  string `yaml:"secret_key"`
}

type ServicesConfig struct {
	UserServiceURL  string `yaml:"user_service_url"`
	VenueServiceURL string `yaml:"venue_service_url"`
}

// PresenceConfig tunes the count cache and the optional stale-presence sweep
type PresenceConfig struct {
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	Cleanup         CleanupConfig `yaml:"cleanup"`
}

// CleanupConfig controls the stale-presence cleanup job. Disabled by default:
// presence is explicit-set/explicit-clear, the sweep exists for deployments
// that opt into expiring users who never clear themselves.
type CleanupConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MaxAgeHours int    `yaml:"max_age_hours"`
	Schedule    string `yaml:"schedule"`
}

// CacheTTL returns the count cache TTL as a duration
func (c PresenceConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// MaxAge returns the cleanup cutoff age as a duration
func (c CleanupConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours) * time.Hour
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     8004,
			BasePath: "/api/venues",
			Env:      "dev",
			LogLevel: "debug",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
			DB:   0,
		},
		Presence: PresenceConfig{
			CacheTTLSeconds: 3600,
			Cleanup: CleanupConfig{
				Enabled:     false,
				MaxAgeHours: 12,
				Schedule:    "*/30 * * * *",
			},
		},
	}

	// Load from yaml file if exists
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override with environment variables
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if basePath := os.Getenv("SERVER_BASE_PATH"); basePath != "" {
		cfg.Server.BasePath = basePath
	}
	if env := os.Getenv("ENV"); env != "" {
		cfg.Server.Env = env
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		cfg.Redis.Host = redisHost
	}
	if redisPort := os.Getenv("REDIS_PORT"); redisPort != "" {
		if p, err := strconv.Atoi(redisPort); err == nil {
			cfg.Redis.Port = p
		}
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.Redis.Password = redisPassword
	}
	if authURL := os.Getenv("AUTH_SERVICE_URL"); authURL != "" {
		cfg.Auth.ServiceURL = authURL
	}
	if secretKey := os.Getenv("SECRET_KEY"); secretKey != "" {
		cfg.Auth.SecretKey = secretKey
	}
	if userURL := os.Getenv("USER_SERVICE_URL"); userURL != "" {
		cfg.Services.UserServiceURL = userURL
	}
	if venueURL := os.Getenv("VENUE_SERVICE_URL"); venueURL != "" {
		cfg.Services.VenueServiceURL = venueURL
	}
	if ttl := os.Getenv("PRESENCE_CACHE_TTL_SECONDS"); ttl != "" {
		if t, err := strconv.Atoi(ttl); err == nil {
			cfg.Presence.CacheTTLSeconds = t
		}
	}
	if enabled := os.Getenv("PRESENCE_CLEANUP_ENABLED"); enabled != "" {
		cfg.Presence.Cleanup.Enabled = enabled == "true" || enabled == "1"
	}
	if maxAge := os.Getenv("PRESENCE_CLEANUP_MAX_AGE_HOURS"); maxAge != "" {
		if h, err := strconv.Atoi(maxAge); err == nil {
			cfg.Presence.Cleanup.MaxAgeHours = h
		}
	}

	return cfg, nil
}
