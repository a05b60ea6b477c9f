package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"civicwatch/internal/domain"
)

const configPathEnv = "CIVICWATCH_CONFIG"

// Config holds every tunable of the service. Defaults work out of the box;
// a YAML file (CIVICWATCH_CONFIG) and environment variables override them.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Auth    AuthConfig    `yaml:"auth"`
	Scoring ScoringConfig `yaml:"scoring"`
	Reports ReportsConfig `yaml:"reports"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Port       string `yaml:"port"`
	InstanceID string `yaml:"instanceId"`
}

// RedisConfig describes the event bus connection. An empty host disables
// Redis publishing and the service runs on the in-process bus.
type RedisConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// AuthConfig carries the JWT signing secret.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
}

// ScoringConfig drives the priority score computation. Scores live on the
// 0-100 scale; severity weights are per-category bases.
type ScoringConfig struct {
	SeverityWeights    map[domain.Category]float64 `yaml:"severityWeights"`
	UpvoteStep         float64                     `yaml:"upvoteStep"`
	RecencyBonus       float64                     `yaml:"recencyBonus"`
	RecencyWindowHours float64                     `yaml:"recencyWindowHours"`
	ScaleMin           float64                     `yaml:"scaleMin"`
	ScaleMax           float64                     `yaml:"scaleMax"`
}

// RecencyWindow returns the recency window as a duration.
func (s ScoringConfig) RecencyWindow() time.Duration {
	return time.Duration(s.RecencyWindowHours * float64(time.Hour))
}

// ReportsConfig bounds report content and the escalation workflow.
type ReportsConfig struct {
	MaxPhotos           int     `yaml:"maxPhotos"`
	EscalationThreshold float64 `yaml:"escalationThreshold"`
	NearbyRadiusMeters  float64 `yaml:"nearbyRadiusMeters"`
	WatchIntervalSec    int     `yaml:"watchIntervalSeconds"`
}

// WatchInterval returns the escalation watcher period as a duration.
func (r ReportsConfig) WatchInterval() time.Duration {
	return time.Duration(r.WatchIntervalSec) * time.Second
}

// Load builds the configuration from defaults, the optional YAML file, and
// environment overrides, in that order.
func Load() Config {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("config: cannot read %s: %v (using defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (using defaults)", path, err)
			cfg = Default()
		}
	}

	cfg.applyEnvOverrides()
	cfg.fillMissing()
	return cfg
}

// Default returns the documented defaults: 0-100 score scale, escalation
// threshold 90, at most 3 photos per report.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8080", InstanceID: "civicwatch-1"},
		Redis:  RedisConfig{Host: "", Port: "6379"},
		Auth:   AuthConfig{JWTSecret: "poc-secret-key-do-not-use-in-production"},
		Scoring: ScoringConfig{
			SeverityWeights: map[domain.Category]float64{
				domain.CategoryWater: 60,
				domain.CategoryRoads: 50,
				domain.CategoryPower: 40,
				domain.CategoryWaste: 30,
			},
			UpvoteStep:         5,
			RecencyBonus:       10,
			RecencyWindowHours: 24,
			ScaleMin:           0,
			ScaleMax:           100,
		},
		Reports: ReportsConfig{
			MaxPhotos:           3,
			EscalationThreshold: 90,
			NearbyRadiusMeters:  250,
			WatchIntervalSec:    30,
		},
	}
}

func (c *Config) applyEnvOverrides() {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.InstanceID = getEnv("INSTANCE_ID", c.Server.InstanceID)
	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnv("REDIS_PORT", c.Redis.Port)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)

	if v := os.Getenv("ESCALATION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Reports.EscalationThreshold = f
		} else {
			log.Printf("config: invalid ESCALATION_THRESHOLD %q, keeping %v", v, c.Reports.EscalationThreshold)
		}
	}
	if v := os.Getenv("MAX_PHOTOS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Reports.MaxPhotos = n
		}
	}
}

// fillMissing repairs partial YAML overrides so downstream code never sees
// zero-valued scale bounds or an empty weight table.
func (c *Config) fillMissing() {
	def := Default()
	if len(c.Scoring.SeverityWeights) == 0 {
		c.Scoring.SeverityWeights = def.Scoring.SeverityWeights
	}
	if c.Scoring.ScaleMax <= c.Scoring.ScaleMin {
		c.Scoring.ScaleMin = def.Scoring.ScaleMin
		c.Scoring.ScaleMax = def.Scoring.ScaleMax
	}
	if c.Reports.MaxPhotos <= 0 {
		c.Reports.MaxPhotos = def.Reports.MaxPhotos
	}
	if c.Reports.WatchIntervalSec <= 0 {
		c.Reports.WatchIntervalSec = def.Reports.WatchIntervalSec
	}
	if c.Reports.NearbyRadiusMeters <= 0 {
		c.Reports.NearbyRadiusMeters = def.Reports.NearbyRadiusMeters
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
