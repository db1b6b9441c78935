package request

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"match-collector/internal/domain"
	"match-collector/internal/tier"
)

// FetchMatch downloads a match and schedules the tier lookup of its participants.
type FetchMatch struct {
	Match domain.MatchID
}

func (r *FetchMatch) Kind() Kind  { return KindFetchMatch }
func (r *FetchMatch) Key() string { return string(r.Match) }
func (r *FetchMatch) isRequest()  {}

func (r *FetchMatch) Execute(ctx context.Context, api API) (*Effect, error) {
	doc, err := api.GetMatch(ctx, r.Match)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch match %s: %w", r.Match, err)
	}

	return &Effect{
		FollowUps: []Request{&FetchPlayerSummary{Match: r.Match, Players: doc.Participants}},
		Documents: []domain.Document{{
			Category: domain.CategoryMatch,
			ID:       string(r.Match),
			Body:     doc.Raw,
		}},
		Consumed: []domain.MatchID{r.Match},
	}, nil
}

// FetchMatchHistory expands a player into recent matches queued under Tier.
type FetchMatchHistory struct {
	Player  domain.PlayerID
	Tier    tier.Tier
	Options HistoryOptions
}

func (r *FetchMatchHistory) Kind() Kind  { return KindFetchMatchHistory }
func (r *FetchMatchHistory) Key() string { return string(r.Player) }
func (r *FetchMatchHistory) isRequest()  {}

func (r *FetchMatchHistory) Execute(ctx context.Context, api API) (*Effect, error) {
	refs, err := api.GetMatchHistory(ctx, r.Player, r.Options.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch match history for %s: %w", r.Player, err)
	}

	effect := &Effect{}
	for _, ref := range refs {
		if !ref.Timestamp.After(r.Options.Cutoff) {
			continue
		}
		if ref.Mode != "" && len(r.Options.Modes) > 0 && !slices.Contains(r.Options.Modes, ref.Mode) {
			continue
		}
		effect.Matches = append(effect.Matches, MatchAssignment{Match: ref.MatchID, Tier: r.Tier})
	}
	return effect, nil
}

// FetchPlayerSummary looks up the tiers of a match's participants, credits the
// match to the tier of its effective score and queues every ranked participant
// under their own tier.
type FetchPlayerSummary struct {
	Match   domain.MatchID
	Players []domain.PlayerID
}

func (r *FetchPlayerSummary) Kind() Kind  { return KindFetchPlayerSummary }
func (r *FetchPlayerSummary) Key() string { return string(r.Match) }
func (r *FetchPlayerSummary) isRequest()  {}

// Execute returns a non-nil Effect alongside an error wrapping
// ErrNoRankedPlayers when no participant is ranked: the lookup is still
// persisted but no tier is credited.
func (r *FetchPlayerSummary) Execute(ctx context.Context, api API) (*Effect, error) {
	entries, err := api.GetPlayerTiers(ctx, r.Players)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch player tiers for match %s: %w", r.Match, err)
	}

	body, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode player tiers for match %s: %w", r.Match, err)
	}

	effect := &Effect{
		Documents: []domain.Document{{
			Category: domain.CategoryPlayerTiers,
			ID:       string(r.Match),
			Body:     body,
		}},
	}

	for _, id := range r.Players {
		score, ok := PlayerScore(entries[id])
		if !ok {
			continue
		}
		t, err := tier.ScoreToTier(score)
		if err != nil {
			continue
		}
		effect.Players = append(effect.Players, PlayerAssignment{Player: id, Tier: t})
	}

	score, err := EffectiveScore(r.Players, entries)
	if err != nil {
		return effect, fmt.Errorf("match %s: %w", r.Match, err)
	}
	matchTier, err := tier.ScoreToTier(score)
	if err != nil {
		return nil, fmt.Errorf("failed to bucket match %s: %w", r.Match, err)
	}
	effect.Scored = &matchTier
	return effect, nil
}
