// Package scheduler decides which unit of work runs next.
//
// Retries and follow-ups always go first. Otherwise the tier with the fewest
// processed matches is served, draining its pending matches before expanding
// one of its pending players.
package scheduler

import (
	"errors"
	"fmt"

	"match-collector/internal/pool"
	"match-collector/internal/request"
	"match-collector/internal/tier"
)

var (
	ErrExhaustedTier     = errors.New("tier exhausted")
	ErrAllTiersExhausted = errors.New("all tiers exhausted")
)

// ExhaustedTierError reports a tier with no pending matches and no players
// left to expand. Collection for that tier cannot continue.
type ExhaustedTierError struct {
	Tier tier.Tier
}

func (e *ExhaustedTierError) Error() string {
	return fmt.Sprintf("tier %s exhausted: no pending matches or players", e.Tier)
}

func (e *ExhaustedTierError) Is(target error) bool {
	return target == ErrExhaustedTier
}

type Scheduler struct {
	pool     *pool.Pool
	counters *tier.Counters
	history  request.HistoryOptions

	queue   []request.Request
	retired map[tier.Tier]bool
}

func New(p *pool.Pool, counters *tier.Counters, history request.HistoryOptions) *Scheduler {
	return &Scheduler{
		pool:     p,
		counters: counters,
		history:  history,
		retired:  make(map[tier.Tier]bool),
	}
}

// Requeue pushes a unit on top of the retry queue; it is the next unit Next returns.
func (s *Scheduler) Requeue(r request.Request) {
	s.queue = append(s.queue, r)
}

func (s *Scheduler) QueueLen() int {
	return len(s.queue)
}

// Retire drops a tier from fairness selection until new work is queued for it.
func (s *Scheduler) Retire(t tier.Tier) {
	s.retired[t] = true
}

func (s *Scheduler) Retired() []tier.Tier {
	var out []tier.Tier
	for _, t := range tier.All() {
		if s.retired[t] {
			out = append(out, t)
		}
	}
	return out
}

func (s *Scheduler) active() []tier.Tier {
	for t := range s.retired {
		if s.pool.HasPendingMatches(t) || s.pool.HasPendingPlayers(t) {
			delete(s.retired, t)
		}
	}

	var out []tier.Tier
	for _, t := range tier.All() {
		if !s.retired[t] {
			out = append(out, t)
		}
	}
	return out
}

// Next returns the next unit of work. It fails with an *ExhaustedTierError
// when the most under-covered tier has nothing left to fetch, and with
// ErrAllTiersExhausted once every tier has been retired.
func (s *Scheduler) Next() (request.Request, error) {
	if n := len(s.queue); n > 0 {
		r := s.queue[n-1]
		s.queue[n-1] = nil
		s.queue = s.queue[:n-1]
		return r, nil
	}

	t, ok := s.counters.Min(s.active())
	if !ok {
		return nil, ErrAllTiersExhausted
	}

	if s.pool.HasPendingMatches(t) {
		id, err := s.pool.PopMatch(t)
		if err != nil {
			return nil, err
		}
		s.pool.MarkMatchProcessed(id)
		return &request.FetchMatch{Match: id}, nil
	}

	if s.pool.HasPendingPlayers(t) {
		id, err := s.pool.PopPlayer(t)
		if err != nil {
			return nil, err
		}
		s.pool.MarkPlayerProcessed(id)
		return &request.FetchMatchHistory{Player: id, Tier: t, Options: s.history}, nil
	}

	return nil, &ExhaustedTierError{Tier: t}
}
