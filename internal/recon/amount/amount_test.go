package amount

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	assert.True(t, Equal(100.0, 100.0))
	assert.True(t, Equal(100.0, 100.01))
	assert.True(t, Equal(100.01, 100.0))
	assert.False(t, Equal(100.0, 100.02))
	assert.False(t, Equal(0, 0.02))
	assert.True(t, Equal(-5.0, -5.005))
}

func TestSnap(t *testing.T) {
	assert.Equal(t, 0.0, Snap(0.0049))
	assert.Equal(t, 0.0, Snap(-0.0049))
	assert.Equal(t, 0.005, Snap(0.005))
	assert.Equal(t, 12.34, Snap(12.34))
	assert.Equal(t, 0.0, Snap(0))
}

func TestChoose(t *testing.T) {
	payout := 42.5
	secondary := 17.0
	zeroish := 0.004

	assert.Equal(t, 42.5, Choose(&payout, &secondary))
	assert.Equal(t, 17.0, Choose(nil, &secondary))
	assert.Equal(t, 0.0, Choose(nil, nil))

	// residue on the chosen value is snapped away
	assert.Equal(t, 0.0, Choose(&zeroish, &secondary))
}
