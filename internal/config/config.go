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
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Bank struct {
		ID  string `yaml:"id"`
		TTL string `yaml:"ttl"`
	} `yaml:"bank"`
	Game GameConfig `yaml:"game"`
}

// GameConfig exposes every cycle tunable; nothing game-related is hardcoded.
type GameConfig struct {
	StartingScore    int    `yaml:"starting_score"`
	MinPlayers       int    `yaml:"min_players"`
	QuestionSeconds  int    `yaml:"question_seconds"`
	PreGameDelay     string `yaml:"pre_game_delay"`
	ResultsDelay     string `yaml:"results_delay"`
	Tick             string `yaml:"tick"`
	Elimination      bool   `yaml:"elimination"`
	PrivateQuestions bool   `yaml:"private_questions"`
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
