// Package legs decides which segment of a transfer chain is authoritative
// for payout and which for revenue.
package legs

import (
	"errors"
	"fmt"

	"github.com/ringledger/callsync/internal/platform"
)

var (
	ErrEmptyChain = errors.New("leg chain is empty")

	// ErrChainCycle is returned when transfer links loop back on a leg
	// already visited. Malformed transfer data must fail closed instead of
	// looping.
	ErrChainCycle = errors.New("leg chain contains a cycle")
)

// Resolution names the authoritative legs of one chain: the originating leg
// carries the payout, the leg actually bridged to an agent carries the
// revenue. A single-leg chain collapses both onto the same leg.
type Resolution struct {
	PayoutLegID  string
	RevenueLegID string
	PayoutLeg    *platform.Leg
	RevenueLeg   *platform.Leg
	MultiLeg     bool
}

// Resolve walks the chain from its originating leg following transfer
// links. The originating leg is the one no other leg links to; when the
// links are malformed and every leg has an inbound link, the first leg
// returned by the platform is taken as origin.
func Resolve(chain []platform.Leg) (*Resolution, error) {
	if len(chain) == 0 {
		return nil, ErrEmptyChain
	}

	byID := make(map[string]*platform.Leg, len(chain))
	inbound := make(map[string]bool, len(chain))
	for i := range chain {
		leg := &chain[i]
		if _, dup := byID[leg.LegID]; dup {
			return nil, fmt.Errorf("duplicate leg id %q in chain", leg.LegID)
		}
		byID[leg.LegID] = leg
	}
	for i := range chain {
		for _, link := range chain[i].Links {
			if _, known := byID[link]; known {
				inbound[link] = true
			}
		}
	}

	origin := &chain[0]
	for i := range chain {
		if !inbound[chain[i].LegID] {
			origin = &chain[i]
			break
		}
	}

	// Depth-first walk with an explicit visited set. Revisiting a leg means
	// the transfer data loops; fail closed.
	visited := make(map[string]bool, len(chain))
	var revenueLeg *platform.Leg

	var walk func(leg *platform.Leg) error
	walk = func(leg *platform.Leg) error {
		if visited[leg.LegID] {
			return fmt.Errorf("%w: revisited leg %q", ErrChainCycle, leg.LegID)
		}
		visited[leg.LegID] = true

		if revenueLeg == nil && leg.Connected {
			revenueLeg = leg
		}

		for _, link := range leg.Links {
			next, known := byID[link]
			if !known {
				// Links may reference legs outside the fetched chain.
				continue
			}
			if err := walk(next); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(origin); err != nil {
		return nil, err
	}

	// No connected leg: revenue falls back to the origin. The platform may
	// reject the revenue write for it; the sync engine tolerates that.
	if revenueLeg == nil {
		revenueLeg = origin
	}

	return &Resolution{
		PayoutLegID:  origin.LegID,
		RevenueLegID: revenueLeg.LegID,
		PayoutLeg:    origin,
		RevenueLeg:   revenueLeg,
		MultiLeg:     len(chain) > 1,
	}, nil
}
