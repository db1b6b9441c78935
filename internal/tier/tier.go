// Package tier holds the fixed skill tiers, their score table and the per-tier
// processed-match counters that drive collection fairness.
package tier

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

type Tier int

const (
	Bronze Tier = iota
	Silver
	Gold
	Platinum
	Diamond
	Master
	Challenger
)

var (
	ErrUnknownTier     = errors.New("unknown tier")
	ErrUnknownSubBand  = errors.New("unknown sub-band")
	ErrScoreOutOfRange = errors.New("score below lowest tier base")
)

var names = [...]string{"BRONZE", "SILVER", "GOLD", "PLATINUM", "DIAMOND", "MASTER", "CHALLENGER"}

var baseScores = [...]float64{800, 1150, 1500, 1850, 2200, 2550, 2700}

const (
	bandWidth = 350
	// scores at or above this land in the top tier regardless of bucketing
	topThreshold = 2600
)

// All returns every tier in registry order, lowest first.
func All() []Tier {
	return []Tier{Bronze, Silver, Gold, Platinum, Diamond, Master, Challenger}
}

func (t Tier) Valid() bool {
	return t >= Bronze && t <= Challenger
}

func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return names[t]
}

// Parse maps a remote tier name to a Tier, ignoring case and surrounding space.
func Parse(name string) (Tier, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range names {
		if n == name {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTier, name)
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTier, int(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// HasSubBands reports whether the tier is divided into sub-bands.
func (t Tier) HasSubBands() bool {
	return t != Master && t != Challenger
}

func (t Tier) BaseScore() float64 {
	return baseScores[t]
}

type SubBand int

const (
	IV SubBand = iota
	III
	II
	I
)

var subBandNames = [...]string{"IV", "III", "II", "I"}

var subBandOffsets = [...]float64{0, 70, 140, 210}

func SubBands() []SubBand {
	return []SubBand{IV, III, II, I}
}

func (sb SubBand) String() string {
	if sb < IV || sb > I {
		return fmt.Sprintf("SubBand(%d)", int(sb))
	}
	return subBandNames[sb]
}

func ParseSubBand(name string) (SubBand, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range subBandNames {
		if n == name {
			return SubBand(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSubBand, name)
}

// Score returns the numeric score of a tier and sub-band. The sub-band is
// ignored for tiers without sub-bands.
func Score(t Tier, sb SubBand) float64 {
	if !t.HasSubBands() || sb < IV || sb > I {
		return baseScores[t]
	}
	return baseScores[t] + subBandOffsets[sb]
}

// ScoreToTier buckets a score into its tier. Scores below the lowest tier's
// base have no bucket and fail with ErrScoreOutOfRange.
func ScoreToTier(score float64) (Tier, error) {
	if math.IsNaN(score) || score < baseScores[Bronze] {
		return 0, fmt.Errorf("%w: %.1f", ErrScoreOutOfRange, score)
	}
	if score >= topThreshold {
		return Challenger, nil
	}
	return Tier(int((score - baseScores[Bronze]) / bandWidth)), nil
}
