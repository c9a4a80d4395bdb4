package bucket

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildstyl3r/rfbucket/internal/constants"
)

// stationaryArea is the closed form acceptance of a single harmonic
// stationary bucket above transition [eV s].
func stationaryArea(b *RFBucket, h, voltage float64) float64 {
	q := constants.ElementaryCharge
	dpMax := math.Sqrt(2 * q * voltage / (math.Pi * h * b.P0() * b.Eta0() * b.Beta() * constants.SpeedOfLight))
	return 2 * b.P0() / q * 4 * b.R() / h * dpMax
}

func TestStationaryArea(t *testing.T) {
	b := newBucket(t, sps(4e6, 0))
	area, err := b.BucketArea()
	require.NoError(t, err)
	assert.InEpsilon(t, stationaryArea(b, 4620, 4e6), area, 1e-3)
}

func TestAreaGrowsWithVoltage(t *testing.T) {
	prev := 0.
	for _, v := range []float64{1e6, 2e6, 4e6, 8e6} {
		b := newBucket(t, sps(v, 0))
		area, err := b.BucketArea()
		require.NoError(t, err)
		assert.Greater(t, area, prev, "V = %g", v)
		prev = area
	}
}

func TestAccelerationShrinksArea(t *testing.T) {
	stationary, err := newBucket(t, sps(4e6, 0)).BucketArea()
	require.NoError(t, err)
	moving, err := newBucket(t, accelerating()).BucketArea()
	require.NoError(t, err)

	assert.Positive(t, moving)
	assert.Less(t, moving, stationary)
}

func TestDoubleHarmonicBucket(t *testing.T) {
	p := sps(4e6, 0)
	// bunch lengthening mode: fourth harmonic in counter phase
	p.Kicks = append(p.Kicks, Kick{Harmonic: 4 * 4620, Voltage: 0.4e6, PhaseOffset: math.Pi})
	b := newBucket(t, p)
	lambda := 6911. / 4620

	left, right := b.Interval()
	assert.InDelta(t, 1.01*lambda, right-left, 1e-12)

	sfp, err := b.ZSFP()
	require.NoError(t, err)
	require.Len(t, sfp, 1)
	assert.InDelta(t, 0, sfp[0], 1e-9)

	zleft, zright, err := b.Boundaries()
	require.NoError(t, err)
	assert.InDelta(t, -lambda/2, zleft, 1e-9)
	assert.InDelta(t, lambda/2, zright, 1e-9)

	area, err := b.BucketArea()
	require.NoError(t, err)
	assert.Positive(t, area)

	// the flattened potential still peaks at the bucket centre
	hsfp, err := b.HSFP(true)
	require.NoError(t, err)
	h, err := b.Hamiltonian(0.1, 0, true)
	require.NoError(t, err)
	assert.Less(t, h, hsfp)
}
