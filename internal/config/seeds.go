package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"match-collector/internal/domain"
	"match-collector/internal/tier"

	"gopkg.in/yaml.v3"
)

// Seeds are the players and matches the work pool starts from. Tiers with no
// seeded players can only be reached through players discovered in matches of
// other tiers.
type Seeds struct {
	Players map[tier.Tier][]domain.PlayerID
	Matches map[tier.Tier][]domain.MatchID
}

type seedFile struct {
	Players map[string][]string `yaml:"players"`
	Matches map[string][]string `yaml:"matches"`
}

// DefaultSeeds is used when no seed file exists.
func DefaultSeeds() *Seeds {
	players := map[tier.Tier][]string{
		tier.Bronze:     {"43910145", "70283319", "29267527"},
		tier.Silver:     {"69362057", "37384719", "21880129", "65751659", "47172330"},
		tier.Gold:       {"28119202", "51784114"},
		tier.Platinum:   {"49159160", "183802", "51891458"},
		tier.Diamond:    {"19245322", "31559474"},
		tier.Master:     {"36653735"},
		tier.Challenger: {"35590582"},
	}

	s := &Seeds{
		Players: make(map[tier.Tier][]domain.PlayerID, len(players)),
		Matches: make(map[tier.Tier][]domain.MatchID),
	}
	for t, ids := range players {
		for _, id := range ids {
			s.Players[t] = append(s.Players[t], domain.PlayerID(id))
		}
	}
	return s
}

// LoadSeeds reads a YAML seed file. A missing file yields DefaultSeeds.
func LoadSeeds(path string) (*Seeds, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultSeeds(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeeds(b)
}

func ParseSeeds(b []byte) (*Seeds, error) {
	var raw seedFile
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	s := &Seeds{
		Players: make(map[tier.Tier][]domain.PlayerID),
		Matches: make(map[tier.Tier][]domain.MatchID),
	}
	for name, ids := range raw.Players {
		t, err := tier.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("seed players: %w", err)
		}
		for _, id := range ids {
			s.Players[t] = append(s.Players[t], domain.PlayerID(id))
		}
	}
	for name, ids := range raw.Matches {
		t, err := tier.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("seed matches: %w", err)
		}
		for _, id := range ids {
			s.Matches[t] = append(s.Matches[t], domain.MatchID(id))
		}
	}
	return s, nil
}

func (s *Seeds) PlayerCount() int {
	n := 0
	for _, ids := range s.Players {
		n += len(ids)
	}
	return n
}
