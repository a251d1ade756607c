package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json or pretty
	} `yaml:"log"`
	Storage struct {
		// Driver selects where progress and quizzes live: memory, redis, postgres or sqlite.
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"` // sqlite file
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL             string  `yaml:"ttl"`
		ProximityRadius float64 `yaml:"proximityRadius"`
		// Seed creates the bundled sample quiz on start.
		Seed      bool       `yaml:"seed"`
		Locations []Location `yaml:"locations"`
	} `yaml:"quiz"`
}

// Location pins a question of the seeded quiz to a point.
type Location struct {
	Question int     `yaml:"question"`
	Lat      float64 `yaml:"lat"`
	Lng      float64 `yaml:"lng"`
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
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "quizwalk.db"
	}
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
