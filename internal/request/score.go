package request

import (
	"match-collector/internal/domain"
	"match-collector/internal/tier"
)

// RankedQueue is the queue whose standing defines a player's score.
const RankedQueue = "RANKED_SOLO_5x5"

// PlayerScore returns the score of a player's solo queue standing. ok is false
// for players without one, or whose tier is not in the registry.
func PlayerScore(entries []domain.TierEntry) (float64, bool) {
	for _, e := range entries {
		if e.Queue != RankedQueue {
			continue
		}
		t, err := tier.Parse(e.Tier)
		if err != nil {
			return 0, false
		}
		if !t.HasSubBands() {
			return tier.Score(t, tier.I), true
		}
		sb, err := tier.ParseSubBand(e.Rank)
		if err != nil {
			return 0, false
		}
		return tier.Score(t, sb), true
	}
	return 0, false
}

// EffectiveScore is the mean score of the ranked players of a match.
// Unranked players count in neither the sum nor the divisor.
func EffectiveScore(players []domain.PlayerID, entries map[domain.PlayerID][]domain.TierEntry) (float64, error) {
	var total float64
	ranked := 0
	for _, id := range players {
		score, ok := PlayerScore(entries[id])
		if !ok {
			continue
		}
		total += score
		ranked++
	}
	if ranked == 0 {
		return 0, ErrNoRankedPlayers
	}
	return total / float64(ranked), nil
}
