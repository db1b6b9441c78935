package tier

// Counters tracks how many matches have been fully processed and attributed
// to each tier. Counts only ever grow.
type Counters struct {
	counts [len(names)]int
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) Increment(t Tier) {
	c.counts[t]++
}

func (c *Counters) Count(t Tier) int {
	return c.counts[t]
}

func (c *Counters) Total() int {
	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}

func (c *Counters) Snapshot() map[Tier]int {
	out := make(map[Tier]int, len(c.counts))
	for _, t := range All() {
		out[t] = c.counts[t]
	}
	return out
}

// Min returns the candidate with the lowest count. Ties go to the candidate
// earliest in registry order. ok is false when there are no candidates.
func (c *Counters) Min(candidates []Tier) (Tier, bool) {
	best, found := Tier(0), false
	for _, t := range candidates {
		if !found || c.counts[t] < c.counts[best] || (c.counts[t] == c.counts[best] && t < best) {
			best, found = t, true
		}
	}
	return best, found
}
