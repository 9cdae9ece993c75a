package match

import (
	"testing"
	"time"

	"github.com/ringledger/callsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func candidate(id, caller string, at time.Time, payout *float64) domain.CallRecord {
	return domain.CallRecord{
		ID:       id,
		CallerID: caller,
		CallAt:   at,
		Payout:   payout,
	}
}

func f(v float64) *float64 { return &v }

func TestBestPicksSmallestDelta(t *testing.T) {
	engine := NewEngine(30 * time.Minute)
	query := Query{CallerID: "15551234567", At: day.Add(12 * time.Hour)}

	candidates := []domain.CallRecord{
		candidate("a", "15551234567", day.Add(12*time.Hour+20*time.Minute), nil),
		candidate("b", "15551234567", day.Add(12*time.Hour+5*time.Minute), nil),
		candidate("c", "15551234567", day.Add(12*time.Hour-10*time.Minute), nil),
	}

	best := engine.Best(query, candidates)
	require.NotNil(t, best)
	assert.Equal(t, "b", best.ID)
}

func TestBestIsDeterministicOnTies(t *testing.T) {
	engine := NewEngine(30 * time.Minute)
	query := Query{CallerID: "15551234567", At: day.Add(12 * time.Hour)}

	// Equidistant candidates resolve to the lowest id, regardless of slice
	// order.
	candidates := []domain.CallRecord{
		candidate("b", "15551234567", day.Add(12*time.Hour+10*time.Minute), nil),
		candidate("a", "15551234567", day.Add(12*time.Hour-10*time.Minute), nil),
	}

	best := engine.Best(query, candidates)
	require.NotNil(t, best)
	assert.Equal(t, "a", best.ID)

	candidates[0], candidates[1] = candidates[1], candidates[0]
	best = engine.Best(query, candidates)
	require.NotNil(t, best)
	assert.Equal(t, "a", best.ID)
}

func TestBestWindowBoundary(t *testing.T) {
	engine := NewEngine(30 * time.Minute)
	query := Query{CallerID: "15551234567", At: day.Add(12 * time.Hour)}

	atBoundary := []domain.CallRecord{
		candidate("a", "15551234567", day.Add(12*time.Hour+30*time.Minute), nil),
	}
	require.NotNil(t, engine.Best(query, atBoundary), "candidate exactly at the window boundary is included")

	beyondBoundary := []domain.CallRecord{
		candidate("a", "15551234567", day.Add(12*time.Hour+31*time.Minute), nil),
	}
	assert.Nil(t, engine.Best(query, beyondBoundary), "candidate one minute beyond the window is excluded")
}

func TestBestPayoutBreaksTies(t *testing.T) {
	engine := NewEngine(30 * time.Minute)
	query := Query{CallerID: "15551234567", At: day.Add(12 * time.Hour), ExpectedPayout: f(25)}

	candidates := []domain.CallRecord{
		candidate("a", "15551234567", day.Add(12*time.Hour-10*time.Minute), f(10)),
		candidate("b", "15551234567", day.Add(12*time.Hour+10*time.Minute), f(25)),
	}

	best := engine.Best(query, candidates)
	require.NotNil(t, best)
	assert.Equal(t, "b", best.ID)
}

func TestBestRejectsOtherCallersAndDays(t *testing.T) {
	engine := NewEngine(30 * time.Minute)
	query := Query{CallerID: "15551234567", At: day.Add(23*time.Hour + 50*time.Minute)}

	candidates := []domain.CallRecord{
		candidate("a", "15559999999", day.Add(23*time.Hour+55*time.Minute), nil),
		// Ten minutes away but on the next calendar day.
		candidate("b", "15551234567", day.Add(24*time.Hour), nil),
	}

	assert.Nil(t, engine.Best(query, candidates))
}

func TestBestMissingTimestamps(t *testing.T) {
	engine := NewEngine(30 * time.Minute)

	assert.Nil(t, engine.Best(Query{CallerID: "15551234567"}, []domain.CallRecord{
		candidate("a", "15551234567", day, nil),
	}), "zero query time never matches")

	assert.Nil(t, engine.Best(Query{CallerID: "15551234567", At: day}, []domain.CallRecord{
		candidate("a", "15551234567", time.Time{}, nil),
	}), "zero candidate time never matches")
}

func TestBestEmptyCandidates(t *testing.T) {
	engine := NewEngine(30 * time.Minute)
	assert.Nil(t, engine.Best(Query{CallerID: "15551234567", At: day}, nil))
}

func TestBestOnDayPrefersExactPayout(t *testing.T) {
	engine := NewEngine(30 * time.Minute)
	query := Query{CallerID: "15551234567", At: day.Add(12 * time.Hour), ExpectedPayout: f(40)}

	candidates := []domain.CallRecord{
		// Closest in time but wrong payout.
		candidate("a", "15551234567", day.Add(11*time.Hour), f(10)),
		// Hours away but the payout matches exactly.
		candidate("b", "15551234567", day.Add(18*time.Hour), f(40)),
	}

	best := engine.BestOnDay(query, candidates)
	require.NotNil(t, best)
	assert.Equal(t, "b", best.ID)
}

func TestBestOnDayFallsBackToDelta(t *testing.T) {
	engine := NewEngine(30 * time.Minute)
	query := Query{CallerID: "15551234567", At: day.Add(12 * time.Hour)}

	candidates := []domain.CallRecord{
		candidate("a", "15551234567", day.Add(18*time.Hour), nil),
		candidate("b", "15551234567", day.Add(13*time.Hour), nil),
	}

	best := engine.BestOnDay(query, candidates)
	require.NotNil(t, best)
	assert.Equal(t, "b", best.ID)
}

func TestAdjustmentScenarioTwoCallsTenMinutesApart(t *testing.T) {
	// Two same-caller records ten minutes apart with a 30 minute window:
	// the adjustment resolves to the nearer one.
	engine := NewEngine(30 * time.Minute)
	query := Query{CallerID: "15551234567", At: day.Add(12*time.Hour + 2*time.Minute)}

	candidates := []domain.CallRecord{
		candidate("a", "15551234567", day.Add(12*time.Hour), nil),
		candidate("b", "15551234567", day.Add(12*time.Hour+10*time.Minute), nil),
	}

	best := engine.Best(query, candidates)
	require.NotNil(t, best)
	assert.Equal(t, "a", best.ID)
}
