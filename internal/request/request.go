// Package request defines the units of work the collector issues against the
// remote API. Executing a unit never touches collector state: it returns an
// Effect describing the follow-up work, pool additions and documents, and the
// collector applies it.
package request

import (
	"context"
	"time"

	"match-collector/internal/domain"
	"match-collector/internal/tier"
)

// API is the subset of the remote statistics API the collector needs.
type API interface {
	GetMatch(ctx context.Context, id domain.MatchID) (*domain.MatchDocument, error)
	GetMatchHistory(ctx context.Context, player domain.PlayerID, filter QueueFilter) ([]domain.MatchRef, error)
	GetPlayerTiers(ctx context.Context, players []domain.PlayerID) (map[domain.PlayerID][]domain.TierEntry, error)
}

// QueueFilter restricts a match history lookup to a set of queue ids.
type QueueFilter struct {
	Queues []int
}

// HistoryOptions configures how match histories are expanded.
type HistoryOptions struct {
	Filter QueueFilter
	// only matches played after Cutoff are queued
	Cutoff time.Time
	// Modes keeps matches of these game modes. Matches of unknown mode are kept.
	Modes  []string
}

// Request is one unit of work. The set of implementations is closed:
// *FetchMatch, *FetchMatchHistory and *FetchPlayerSummary.
type Request interface {
	Execute(ctx context.Context, api API) (*Effect, error)
	Kind() Kind
	Key() string
	isRequest()
}

type Kind string

const (
	KindFetchMatch         Kind = "fetch-match"
	KindFetchMatchHistory  Kind = "fetch-match-history"
	KindFetchPlayerSummary Kind = "fetch-player-summary"
)

type MatchAssignment struct {
	Match domain.MatchID
	Tier  tier.Tier
}

type PlayerAssignment struct {
	Player domain.PlayerID
	Tier   tier.Tier
}

// Effect is what a successful execution asks the collector to apply.
type Effect struct {
	FollowUps []Request
	Documents []domain.Document
	Matches   []MatchAssignment
	Players   []PlayerAssignment
	// Scored is the tier credited with one processed match, if any.
	Scored   *tier.Tier
	Consumed []domain.MatchID
}
