package platform

import (
	"context"
	"time"
)

// CallCandidate is one call the platform proposes for a lookup query,
// identified only by soft key (caller id + approximate time).
type CallCandidate struct {
	CallID  string    `json:"callId"`
	CallAt  time.Time `json:"callAt"`
	Payout  float64   `json:"payout"`
	Revenue float64   `json:"revenue"`
}

// Leg is one segment of a possibly multi-hop call inside the billing
// platform. Links point at the sibling legs this leg transferred to.
type Leg struct {
	LegID     string   `json:"legId"`
	Connected bool     `json:"connected"`
	Revenue   float64  `json:"revenue"`
	Payout    float64  `json:"payout"`
	Links     []string `json:"links"`
}

// OverrideRequest carries the new payment figures for one leg. Nil fields
// are left untouched by the platform.
type OverrideRequest struct {
	NewPayoutAmount     *float64 `json:"newPayoutAmount,omitempty"`
	NewConversionAmount *float64 `json:"newConversionAmount,omitempty"`
	Reason              string   `json:"reason"`
}

// OverrideResult is the platform's answer to an override, kept raw for the
// audit trail.
type OverrideResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Raw     string `json:"-"`
}

// Gateway is the billing platform surface the sync engine depends on.
type Gateway interface {
	// LookupCall returns the call matching callerID within windowMinutes of
	// approxTime, or nil when the platform has no candidate. A non-nil
	// expectedPayout is used by the platform to break ties between
	// same-window candidates.
	LookupCall(ctx context.Context, callerID string, approxTime time.Time, windowMinutes int, expectedPayout *float64) (*CallCandidate, error)

	// GetLegChain returns every leg reachable from the call's originating
	// leg through transfer and reroute links.
	GetLegChain(ctx context.Context, callID string) ([]Leg, error)

	// OverridePayment rewrites the payment figures of one leg.
	OverridePayment(ctx context.Context, legID string, req OverrideRequest) (*OverrideResult, error)
}
