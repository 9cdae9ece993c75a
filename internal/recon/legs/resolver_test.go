package legs

import (
	"testing"

	"github.com/ringledger/callsync/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSingleLeg(t *testing.T) {
	chain := []platform.Leg{
		{LegID: "L1", Connected: true, Payout: 80, Revenue: 80},
	}

	res, err := Resolve(chain)
	require.NoError(t, err)

	assert.Equal(t, "L1", res.PayoutLegID)
	assert.Equal(t, "L1", res.RevenueLegID)
	assert.Same(t, res.PayoutLeg, res.RevenueLeg)
	assert.False(t, res.MultiLeg)
}

func TestResolveThreeLegMiddleConnected(t *testing.T) {
	chain := []platform.Leg{
		{LegID: "L1", Links: []string{"L2"}},
		{LegID: "L2", Connected: true, Links: []string{"L3"}},
		{LegID: "L3"},
	}

	res, err := Resolve(chain)
	require.NoError(t, err)

	assert.Equal(t, "L1", res.PayoutLegID)
	assert.Equal(t, "L2", res.RevenueLegID)
	assert.True(t, res.MultiLeg)
}

func TestResolveOriginIsUnlinkedLeg(t *testing.T) {
	// Chain arrives out of order; the origin is the leg nothing links to.
	chain := []platform.Leg{
		{LegID: "L2", Connected: true},
		{LegID: "L1", Links: []string{"L2"}},
	}

	res, err := Resolve(chain)
	require.NoError(t, err)

	assert.Equal(t, "L1", res.PayoutLegID)
	assert.Equal(t, "L2", res.RevenueLegID)
}

func TestResolveNoConnectedLeg(t *testing.T) {
	chain := []platform.Leg{
		{LegID: "L1", Links: []string{"L2"}},
		{LegID: "L2"},
	}

	res, err := Resolve(chain)
	require.NoError(t, err)

	// Revenue falls back to the origin; the platform may reject the write.
	assert.Equal(t, "L1", res.PayoutLegID)
	assert.Equal(t, "L1", res.RevenueLegID)
	assert.True(t, res.MultiLeg)
}

func TestResolveCycleFailsClosed(t *testing.T) {
	chain := []platform.Leg{
		{LegID: "L1", Links: []string{"L2"}},
		{LegID: "L2", Links: []string{"L3"}},
		{LegID: "L3", Links: []string{"L1"}},
	}

	_, err := Resolve(chain)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChainCycle)
}

func TestResolveEmptyChain(t *testing.T) {
	_, err := Resolve(nil)
	assert.ErrorIs(t, err, ErrEmptyChain)
}

func TestResolveLinksOutsideChainIgnored(t *testing.T) {
	chain := []platform.Leg{
		{LegID: "L1", Links: []string{"L2", "external-leg"}},
		{LegID: "L2", Connected: true},
	}

	res, err := Resolve(chain)
	require.NoError(t, err)
	assert.Equal(t, "L2", res.RevenueLegID)
}
