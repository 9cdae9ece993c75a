// Package match resolves identity between records that share no primary
// key, using a composite soft key: caller id, time proximity, and payout
// equality as a tie-break.
package match

import (
	"time"

	"github.com/ringledger/callsync/internal/domain"
	"github.com/ringledger/callsync/internal/recon/amount"
)

// Query is one side of a match: a caller observed at a point in time,
// optionally with the payout we expect the counterpart to carry.
type Query struct {
	CallerID       string
	At             time.Time
	ExpectedPayout *float64
}

// Engine selects at most one candidate for a query. Selection is
// deterministic: the candidate with the smallest absolute time delta within
// the window wins; ties go to payout equality when an expected payout is
// given, then to the lowest record id.
type Engine struct {
	Window time.Duration
}

func NewEngine(window time.Duration) *Engine {
	return &Engine{Window: window}
}

// Best returns the closest candidate within the window, or nil when no
// candidate qualifies. Candidates from a different caller or a different
// calendar day never match, and a missing timestamp on either side rules
// the pair out.
func (e *Engine) Best(q Query, candidates []domain.CallRecord) *domain.CallRecord {
	if q.At.IsZero() {
		return nil
	}

	var best *domain.CallRecord
	var bestDelta time.Duration

	for i := range candidates {
		c := &candidates[i]
		if !e.eligible(q, c) {
			continue
		}

		delta := absDelta(q.At, c.CallAt)
		if delta > e.Window {
			continue
		}

		if best == nil || less(delta, c, bestDelta, best, q.ExpectedPayout) {
			best = c
			bestDelta = delta
		}
	}

	return best
}

// BestOnDay is the fallback tier: any same-caller candidate on the query's
// calendar day qualifies, preferring an exact payout match, then the
// smallest time delta, then the lowest id.
func (e *Engine) BestOnDay(q Query, candidates []domain.CallRecord) *domain.CallRecord {
	if q.At.IsZero() {
		return nil
	}

	var best *domain.CallRecord
	var bestDelta time.Duration

	for i := range candidates {
		c := &candidates[i]
		if !e.eligible(q, c) {
			continue
		}

		delta := absDelta(q.At, c.CallAt)

		if best == nil {
			best = c
			bestDelta = delta
			continue
		}

		switch {
		case payoutMatches(c, q.ExpectedPayout) != payoutMatches(best, q.ExpectedPayout):
			if payoutMatches(c, q.ExpectedPayout) {
				best = c
				bestDelta = delta
			}
		case delta != bestDelta:
			if delta < bestDelta {
				best = c
				bestDelta = delta
			}
		case c.ID < best.ID:
			best = c
			bestDelta = delta
		}
	}

	return best
}

func (e *Engine) eligible(q Query, c *domain.CallRecord) bool {
	if c.CallAt.IsZero() {
		return false
	}
	if q.CallerID != "" && c.CallerID != q.CallerID {
		return false
	}
	return sameDay(q.At, c.CallAt)
}

// less reports whether candidate c at delta beats the current best.
func less(delta time.Duration, c *domain.CallRecord, bestDelta time.Duration, best *domain.CallRecord, expectedPayout *float64) bool {
	if delta != bestDelta {
		return delta < bestDelta
	}
	if payoutMatches(c, expectedPayout) != payoutMatches(best, expectedPayout) {
		return payoutMatches(c, expectedPayout)
	}
	return c.ID < best.ID
}

func payoutMatches(c *domain.CallRecord, expected *float64) bool {
	if expected == nil || c.Payout == nil {
		return false
	}
	return amount.Equal(*c.Payout, *expected)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func absDelta(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
