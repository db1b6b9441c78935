// Package pool keeps the per-tier sets of match and player ids waiting to be
// fetched, plus the run-wide sets of ids that were already handed out.
//
// A Pool is not safe for concurrent use. It is owned by the collector loop.
package pool

import (
	"errors"
	"fmt"

	"match-collector/internal/domain"
	"match-collector/internal/tier"
)

var (
	ErrEmptyPool       = errors.New("empty pool")
	ErrAlreadySeeded   = errors.New("pool already seeded")
	ErrInvalidSeedTier = errors.New("invalid seed tier")
)

type Pool struct {
	matches map[tier.Tier]map[domain.MatchID]struct{}
	players map[tier.Tier]map[domain.PlayerID]struct{}

	processedMatches map[domain.MatchID]struct{}
	processedPlayers map[domain.PlayerID]struct{}

	seeded bool
}

type Stats struct {
	PendingMatches   map[tier.Tier]int `json:"pending_matches"`
	PendingPlayers   map[tier.Tier]int `json:"pending_players"`
	ProcessedMatches int               `json:"processed_matches"`
	ProcessedPlayers int               `json:"processed_players"`
}

func New() *Pool {
	p := &Pool{
		matches:          make(map[tier.Tier]map[domain.MatchID]struct{}),
		players:          make(map[tier.Tier]map[domain.PlayerID]struct{}),
		processedMatches: make(map[domain.MatchID]struct{}),
		processedPlayers: make(map[domain.PlayerID]struct{}),
	}
	for _, t := range tier.All() {
		p.matches[t] = make(map[domain.MatchID]struct{})
		p.players[t] = make(map[domain.PlayerID]struct{})
	}
	return p
}

// Seed loads the initial players and matches. It may be called once.
func (p *Pool) Seed(players map[tier.Tier][]domain.PlayerID, matches map[tier.Tier][]domain.MatchID) error {
	if p.seeded {
		return ErrAlreadySeeded
	}
	for t := range players {
		if !t.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidSeedTier, int(t))
		}
	}
	for t := range matches {
		if !t.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidSeedTier, int(t))
		}
	}

	for t, ids := range players {
		for _, id := range ids {
			p.EnqueuePlayer(id, t)
		}
	}
	for t, ids := range matches {
		for _, id := range ids {
			p.EnqueueMatch(id, t)
		}
	}
	p.seeded = true
	return nil
}

func (p *Pool) HasPendingMatches(t tier.Tier) bool {
	p.pruneMatches(t)
	return len(p.matches[t]) > 0
}

// PopMatch removes and returns an arbitrary pending match for the tier.
// Matches that were processed after being queued here are dropped on the way.
func (p *Pool) PopMatch(t tier.Tier) (domain.MatchID, error) {
	for id := range p.matches[t] {
		delete(p.matches[t], id)
		if _, done := p.processedMatches[id]; done {
			continue
		}
		return id, nil
	}
	return "", fmt.Errorf("%w: no pending matches for %s", ErrEmptyPool, t)
}

func (p *Pool) HasPendingPlayers(t tier.Tier) bool {
	p.prunePlayers(t)
	return len(p.players[t]) > 0
}

// PopPlayer removes and returns an arbitrary pending player for the tier.
// An empty result means the tier cannot discover new matches on its own.
func (p *Pool) PopPlayer(t tier.Tier) (domain.PlayerID, error) {
	for id := range p.players[t] {
		delete(p.players[t], id)
		if _, done := p.processedPlayers[id]; done {
			continue
		}
		return id, nil
	}
	return "", fmt.Errorf("%w: no pending players for %s", ErrEmptyPool, t)
}

// EnqueueMatch queues a match under a tier. It reports false, and does
// nothing, when the match was already processed.
func (p *Pool) EnqueueMatch(id domain.MatchID, t tier.Tier) bool {
	if _, done := p.processedMatches[id]; done {
		return false
	}
	p.matches[t][id] = struct{}{}
	return true
}

func (p *Pool) EnqueuePlayer(id domain.PlayerID, t tier.Tier) bool {
	if _, done := p.processedPlayers[id]; done {
		return false
	}
	p.players[t][id] = struct{}{}
	return true
}

func (p *Pool) MarkMatchProcessed(id domain.MatchID) {
	p.processedMatches[id] = struct{}{}
}

func (p *Pool) MarkPlayerProcessed(id domain.PlayerID) {
	p.processedPlayers[id] = struct{}{}
}

func (p *Pool) MatchProcessed(id domain.MatchID) bool {
	_, ok := p.processedMatches[id]
	return ok
}

func (p *Pool) PlayerProcessed(id domain.PlayerID) bool {
	_, ok := p.processedPlayers[id]
	return ok
}

func (p *Pool) Stats() Stats {
	s := Stats{
		PendingMatches:   make(map[tier.Tier]int, len(p.matches)),
		PendingPlayers:   make(map[tier.Tier]int, len(p.players)),
		ProcessedMatches: len(p.processedMatches),
		ProcessedPlayers: len(p.processedPlayers),
	}
	for _, t := range tier.All() {
		s.PendingMatches[t] = len(p.matches[t])
		s.PendingPlayers[t] = len(p.players[t])
	}
	return s
}

func (p *Pool) pruneMatches(t tier.Tier) {
	for id := range p.matches[t] {
		if _, done := p.processedMatches[id]; done {
			delete(p.matches[t], id)
		}
	}
}

func (p *Pool) prunePlayers(t tier.Tier) {
	for id := range p.players[t] {
		if _, done := p.processedPlayers[id]; done {
			delete(p.players[t], id)
		}
	}
}
