package mafia

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seat names one participant before roles are assigned.
type Seat struct {
	Name    string `yaml:"name" json:"name"`
	Persona string `yaml:"persona" json:"persona"`
}

type Config struct {
	// Roster
	Players []Seat `yaml:"players" json:"players"`

	// Role distribution: NumMafia mafia, one doctor, one detective,
	// villagers for the rest.
	NumMafia int `yaml:"num_mafia" json:"num_mafia"`

	// Fixed number of discussion rounds per day.
	DiscussionRounds int `yaml:"discussion_rounds" json:"discussion_rounds"`

	// Safety cap on game rounds (0 = default). A game that reaches the cap
	// without a winner is declared stalled.
	MaxRounds int `yaml:"max_rounds" json:"max_rounds"`

	// RNG seed for role shuffle (0 => time-based)
	Seed int64 `yaml:"seed" json:"seed"`
}

func (c Config) validate() error {
	if len(c.Players) < 4 {
		return fmt.Errorf("need at least 4 players, got %d", len(c.Players))
	}
	if c.NumMafia <= 0 {
		return fmt.Errorf("NumMafia must be > 0")
	}
	// one doctor and one detective are always dealt
	if len(c.Players) < c.NumMafia+3 {
		return fmt.Errorf("%d players cannot seat %d mafia plus doctor, detective and a villager", len(c.Players), c.NumMafia)
	}
	if c.DiscussionRounds <= 0 {
		return fmt.Errorf("DiscussionRounds must be > 0")
	}
	if c.MaxRounds < 0 {
		return fmt.Errorf("MaxRounds must be >= 0")
	}
	seen := make(map[string]bool, len(c.Players))
	for _, s := range c.Players {
		if s.Name == "" {
			return fmt.Errorf("player name must not be empty")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate player name %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// LoadConfigFile reads a match config from a YAML file.
func LoadConfigFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read match config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse match config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
