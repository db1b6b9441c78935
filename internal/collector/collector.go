package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"match-collector/internal/constants"
	"match-collector/internal/domain"
	"match-collector/internal/pool"
	"match-collector/internal/request"
	"match-collector/internal/scheduler"
	"match-collector/internal/tier"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Store persists collected documents. Saving the same category and id twice
// overwrites the first write.
type Store interface {
	Save(ctx context.Context, doc domain.Document) error
}

type Options struct {
	RunID string
	// MaxTransientRetries bounds transient failures in a row. Any answer from
	// the remote, including not found and rate limited, starts a new budget.
	MaxTransientRetries uint64
	// ContinueOnExhaustion retires an exhausted tier instead of stopping the run.
	ContinueOnExhaustion bool
	// MaxMatches stops the run once this many matches were credited to tiers. Zero means no limit.
	MaxMatches int
}

// Collector is the single worker that drives the scheduler: it executes one
// unit at a time, backs off on rate limits and transient failures, and applies
// the effect of every successful unit.
type Collector struct {
	api      request.API
	store    Store
	sched    *scheduler.Scheduler
	pool     *pool.Pool
	counters *tier.Counters
	opts     Options
	logger   zerolog.Logger

	backoff  backoff.BackOff
	sleep    func(ctx context.Context, d time.Duration) error
	requests int
	progress *progressHolder
}

func New(api request.API, store Store, sched *scheduler.Scheduler, p *pool.Pool, counters *tier.Counters, opts Options, logger zerolog.Logger) *Collector {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = constants.TransientBackoffInitial
	eb.MaxInterval = constants.TransientBackoffMax
	eb.MaxElapsedTime = 0

	c := &Collector{
		api:      api,
		store:    store,
		sched:    sched,
		pool:     p,
		counters: counters,
		opts:     opts,
		logger:   logger.With().Str("run_id", opts.RunID).Logger(),
		backoff:  backoff.WithMaxRetries(eb, opts.MaxTransientRetries),
		sleep:    sleepContext,
		progress: &progressHolder{},
	}
	c.publish(StateIdle, nil)
	return c
}

// Run executes units until the context is cancelled, the match limit is
// reached or an unrecoverable error occurs. Cancellation is a clean stop and
// returns nil.
func (c *Collector) Run(ctx context.Context) (err error) {
	c.logger.Info().
		Uint64("max_transient_retries", c.opts.MaxTransientRetries).
		Bool("continue_on_exhaustion", c.opts.ContinueOnExhaustion).
		Int("max_matches", c.opts.MaxMatches).
		Msg("collector starting")
	c.publish(StateRunning, nil)

	defer func() {
		c.publish(StateStopped, err)
		ev := c.logger.Info()
		if err != nil {
			ev = c.logger.Error().Err(err)
		}
		ev.Int("requests", c.requests).
			Interface("counts", c.counters.Snapshot()).
			Msg("collector stopped")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if c.opts.MaxMatches > 0 && c.counters.Total() >= c.opts.MaxMatches {
			c.logger.Info().Int("total", c.counters.Total()).Msg("match limit reached")
			return nil
		}

		unit, err := c.sched.Next()
		if err != nil {
			var exhausted *scheduler.ExhaustedTierError
			if errors.As(err, &exhausted) && c.opts.ContinueOnExhaustion {
				c.logger.Warn().Str("tier", exhausted.Tier.String()).Msg("not enough players in tier, retiring it")
				c.sched.Retire(exhausted.Tier)
				continue
			}
			return err
		}

		if err := c.step(ctx, unit); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		c.publish(StateRunning, nil)
	}
}

func (c *Collector) step(ctx context.Context, unit request.Request) error {
	c.requests++
	c.logger.Debug().
		Str("kind", string(unit.Kind())).
		Str("key", unit.Key()).
		Int("retry_queue", c.sched.QueueLen()).
		Msg("making request")

	effect, err := unit.Execute(ctx, c.api)

	switch request.Classify(err) {
	case request.OutcomeOK:
		c.backoff.Reset()
		return c.apply(ctx, effect)

	case request.OutcomeNoRankedPlayers:
		c.backoff.Reset()
		c.logger.Warn().Err(err).Str("key", unit.Key()).Msg("match has no ranked players, not counted")
		return c.apply(ctx, effect)

	case request.OutcomeNotFound:
		c.backoff.Reset()
		c.logger.Info().
			Str("kind", string(unit.Kind())).
			Str("key", unit.Key()).
			Msg("not found, discarding request")
		return nil

	case request.OutcomeRateLimited:
		var rl *request.RateLimitedError
		errors.As(err, &rl)
		wait := rl.RetryAfter
		if wait <= 0 {
			wait = constants.DefaultRetryAfter
		}
		c.backoff.Reset()
		c.sched.Requeue(unit)
		c.logger.Warn().
			Str("kind", string(unit.Kind())).
			Str("key", unit.Key()).
			Str("scope", rl.Scope).
			Dur("retry_after", wait).
			Msg("rate limited, sleeping")
		return c.sleep(ctx, wait)

	case request.OutcomeTransient:
		wait := c.backoff.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("giving up on %s %s after %d transient failures: %w",
				unit.Kind(), unit.Key(), c.opts.MaxTransientRetries, err)
		}
		c.sched.Requeue(unit)
		c.logger.Warn().
			Err(err).
			Str("kind", string(unit.Kind())).
			Str("key", unit.Key()).
			Dur("backoff", wait).
			Msg("transient failure, retrying")
		return c.sleep(ctx, wait)

	default:
		return fmt.Errorf("failed to execute %s %s: %w", unit.Kind(), unit.Key(), err)
	}
}

// apply persists the effect's documents first so that a failed write leaves
// the collector state untouched.
func (c *Collector) apply(ctx context.Context, effect *request.Effect) error {
	for _, doc := range effect.Documents {
		if err := c.store.Save(ctx, doc); err != nil {
			return fmt.Errorf("failed to save %s document %s: %w", doc.Category, doc.ID, err)
		}
	}

	for _, id := range effect.Consumed {
		c.pool.MarkMatchProcessed(id)
	}
	queued := 0
	for _, m := range effect.Matches {
		if c.pool.EnqueueMatch(m.Match, m.Tier) {
			queued++
		}
	}
	for _, p := range effect.Players {
		c.pool.EnqueuePlayer(p.Player, p.Tier)
	}
	if len(effect.Matches) > 0 {
		c.logger.Debug().Int("returned", len(effect.Matches)).Int("queued", queued).Msg("match history expanded")
	}

	if effect.Scored != nil {
		c.counters.Increment(*effect.Scored)
		c.logger.Info().
			Str("tier", effect.Scored.String()).
			Interface("counts", c.counters.Snapshot()).
			Msg("match processed")
	}

	// pushed in reverse so the first follow-up runs first
	for i := len(effect.FollowUps) - 1; i >= 0; i-- {
		c.sched.Requeue(effect.FollowUps[i])
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
