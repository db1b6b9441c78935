package collector

import (
	"sync"
	"time"

	"match-collector/internal/pool"
	"match-collector/internal/tier"
)

type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
	StateStopped State = "STOPPED"
)

// Progress is a point-in-time view of a run, safe to hand to other goroutines.
type Progress struct {
	RunID      string            `json:"run_id"`
	State      State             `json:"state"`
	Requests   int               `json:"requests"`
	Counts     map[tier.Tier]int `json:"counts"`
	Pool       pool.Stats        `json:"pool"`
	RetryQueue int               `json:"retry_queue"`
	Retired    []tier.Tier       `json:"retired,omitempty"`
	Error      string            `json:"error,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

type progressHolder struct {
	mu sync.RWMutex
	p  Progress
}

func (h *progressHolder) set(p Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.p = p
}

func (h *progressHolder) get() Progress {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.p
}

// Progress returns the latest snapshot. It may be called from any goroutine.
func (c *Collector) Progress() Progress {
	return c.progress.get()
}

func (c *Collector) publish(state State, err error) {
	p := Progress{
		RunID:      c.opts.RunID,
		State:      state,
		Requests:   c.requests,
		Counts:     c.counters.Snapshot(),
		Pool:       c.pool.Stats(),
		RetryQueue: c.sched.QueueLen(),
		Retired:    c.sched.Retired(),
		UpdatedAt:  time.Now(),
	}
	if err != nil {
		p.Error = err.Error()
	}
	c.progress.set(p)
}
