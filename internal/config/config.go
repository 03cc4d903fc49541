package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Leaderboard backends accepted by leaderboard.store.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Leaderboard struct {
		Store      string `yaml:"store"`
		MaxEntries int    `yaml:"max_entries"`
		MaxPerUser int    `yaml:"max_per_user"`
	} `yaml:"leaderboard"`
	Game struct {
		Scoring string `yaml:"scoring"`
		Seed    int64  `yaml:"seed"`
	} `yaml:"game"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LeaderboardStore resolves which backend holds the leaderboard. An explicit
// leaderboard.store wins; otherwise the first configured of postgres, redis
// is used, falling back to memory.
func (c Config) LeaderboardStore() string {
	if s := strings.ToLower(strings.TrimSpace(c.Leaderboard.Store)); s != "" {
		return s
	}
	switch {
	case c.Postgres.URL != "":
		return StorePostgres
	case c.Redis.Addr != "":
		return StoreRedis
	default:
		return StoreMemory
	}
}

// MongoDatabase returns the configured database name, "mathquiz" if unset.
func (c Config) MongoDatabase() string {
	if c.Mongo.Database == "" {
		return "mathquiz"
	}
	return c.Mongo.Database
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
