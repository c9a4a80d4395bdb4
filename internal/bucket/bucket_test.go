package bucket

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildstyl3r/rfbucket/internal/constants"
	"github.com/wildstyl3r/rfbucket/internal/utils"
)

// sps returns the 26 GeV proton configuration of the SPS-like ring.
func sps(voltage, pIncrement float64) Parameters {
	return Parameters{
		Circumference: 6911,
		Gamma:         26e9 * constants.ElementaryCharge / (constants.ProtonMass * constants.SpeedOfLight * constants.SpeedOfLight),
		Mass:          constants.ProtonMass,
		Charge:        constants.ElementaryCharge,
		Alpha:         []float64{0.0031},
		PIncrement:    pIncrement,
		Kicks:         []Kick{{Harmonic: 4620, Voltage: voltage}},
	}
}

func newBucket(t *testing.T, p Parameters) *RFBucket {
	t.Helper()
	b, err := New(p)
	require.NoError(t, err)
	return b
}

// accelerating bucket gaining 1 MeV per turn
func accelerating() Parameters {
	p := sps(4e6, 0)
	gamma := p.Gamma
	beta := math.Sqrt(1 - 1/(gamma*gamma))
	p.PIncrement = 1e6 * constants.ElementaryCharge / (beta * constants.SpeedOfLight)
	return p
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	for name, mutate := range map[string]func(*Parameters){
		"no kicks":          func(p *Parameters) { p.Kicks = nil },
		"zero harmonic":     func(p *Parameters) { p.Kicks[0].Harmonic = 0 },
		"gamma below one":   func(p *Parameters) { p.Gamma = 0.5 },
		"no alpha":          func(p *Parameters) { p.Alpha = nil },
		"zero charge":       func(p *Parameters) { p.Charge = 0 },
		"at transition":     func(p *Parameters) { p.Alpha = []float64{1 / (p.Gamma * p.Gamma)} },
		"negative interval": func(p *Parameters) { p.Subintervals = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			p := sps(4e6, 0)
			mutate(&p)
			_, err := New(p)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSynchrotronTune(t *testing.T) {
	b := newBucket(t, sps(4e6, 0))

	gamma := b.Gamma()
	eta := 0.0031 - 1/(gamma*gamma)
	p0 := math.Sqrt(gamma*gamma-1) * constants.ProtonMass * constants.SpeedOfLight
	want := math.Sqrt(constants.ElementaryCharge * eta * 4620 * 4e6 /
		(2 * math.Pi * p0 * b.Beta() * constants.SpeedOfLight))

	assert.InEpsilon(t, want, b.Qs(), 0.01)
	assert.InDelta(t, 0.0143, b.Qs(), 0.0002)
	assert.InEpsilon(t, math.Abs(eta*b.R()/b.Qs()), b.BetaZ(), 1e-12)
}

func TestSearchInterval(t *testing.T) {
	b := newBucket(t, sps(4e6, 0))
	zmax := 6911. / (2 * 4620)
	left, right := b.Interval()
	assert.InDelta(t, -1.01*zmax, left, 1e-12)
	assert.InDelta(t, 1.01*zmax, right, 1e-12)

	// below transition the interval is centred on the pi-shifted phase
	p := sps(4e6, 0)
	p.Alpha = []float64{1e-4}
	below := newBucket(t, p)
	require.Negative(t, below.Eta0())
	assert.InDelta(t, math.Pi*below.R()/4620, below.ZOffset(), 1e-12)

	offset := 0.1
	p = sps(4e6, 0)
	p.ZOffset = &offset
	fixed := newBucket(t, p)
	left, right = fixed.Interval()
	assert.InDelta(t, offset, (left+right)/2, 1e-12)
}

func TestStationaryFixedPoints(t *testing.T) {
	b := newBucket(t, sps(4e6, 0))
	lambda := 6911. / 4620

	sfp, err := b.ZSFP()
	require.NoError(t, err)
	ufp, err := b.ZUFP()
	require.NoError(t, err)
	require.Len(t, sfp, 1)
	require.Len(t, ufp, 2)
	assert.InDelta(t, 0, sfp[0], 1e-9)
	assert.InDelta(t, -lambda/2, ufp[0], 1e-9)
	assert.InDelta(t, lambda/2, ufp[1], 1e-9)

	zleft, zright, err := b.Boundaries()
	require.NoError(t, err)
	assert.InDelta(t, -lambda/2, zleft, 1e-9)
	assert.InDelta(t, lambda/2, zright, 1e-9)
}

func TestBelowTransitionFixedPoints(t *testing.T) {
	p := sps(4e6, 0)
	p.Alpha = []float64{1e-4}
	b := newBucket(t, p)
	lambda := 6911. / 4620

	sfp, err := b.ZSFP()
	require.NoError(t, err)
	require.Len(t, sfp, 1)
	assert.InDelta(t, lambda/2, sfp[0], 1e-9)

	in, err := b.IsInSeparatrix(sfp[0], 0, 0)
	require.NoError(t, err)
	assert.True(t, in)
}

func TestAcceleratingFixedPoints(t *testing.T) {
	b := newBucket(t, accelerating())
	sfp, err := b.ZSFP()
	require.NoError(t, err)
	zSep, err := b.ZUFPSeparatrix()
	require.NoError(t, err)

	require.Len(t, sfp, 1)
	// above transition with positive momentum gain the separatrix ufp lies right of the sfp
	assert.Greater(t, zSep, sfp[0])
	assert.InDelta(t, 0, b.AccForce(sfp[0]), 1e-9*math.Abs(b.TotalForce(0.1, true)))

	zleft, zright, err := b.Boundaries()
	require.NoError(t, err)
	assert.InDelta(t, zSep, zright, 1e-12)
	assert.Less(t, zleft, sfp[0])
}

func TestCalibrationInvariant(t *testing.T) {
	for name, p := range map[string]Parameters{
		"stationary":   sps(4e6, 0),
		"accelerating": accelerating(),
	} {
		t.Run(name, func(t *testing.T) {
			b := newBucket(t, p)
			zSep, err := b.ZUFPSeparatrix()
			require.NoError(t, err)
			h, err := b.Hamiltonian(zSep, 0, false)
			require.NoError(t, err)
			assert.InDelta(t, 0, h, 1e-12)

			u, err := b.AccPotential(zSep, true)
			require.NoError(t, err)
			assert.Zero(t, u)
		})
	}
}

func TestContainment(t *testing.T) {
	for name, p := range map[string]Parameters{
		"stationary":   sps(4e6, 0),
		"accelerating": accelerating(),
	} {
		t.Run(name, func(t *testing.T) {
			b := newBucket(t, p)
			zSFP, err := b.ZSFPExtr()
			require.NoError(t, err)
			in, err := b.IsInSeparatrix(zSFP, 0, 0)
			require.NoError(t, err)
			assert.True(t, in)

			zright, err := b.ZRight()
			require.NoError(t, err)
			in, err = b.IsInSeparatrix(zright+1e-6, 0, 0)
			require.NoError(t, err)
			assert.False(t, in)

			dp, err := b.Separatrix(zSFP)
			require.NoError(t, err)
			in, err = b.IsInSeparatrix(zSFP, 1.01*dp, 0)
			require.NoError(t, err)
			assert.False(t, in)
			in, err = b.IsInSeparatrix(zSFP, 0.99*dp, 0)
			require.NoError(t, err)
			assert.True(t, in)
		})
	}
}

func TestMarginShrinksAcceptance(t *testing.T) {
	b := newBucket(t, sps(4e6, 0))
	dp, err := b.Separatrix(0)
	require.NoError(t, err)

	loose, err := b.AcceptanceFunc(0)
	require.NoError(t, err)
	tight, err := b.AcceptanceFunc(0.5)
	require.NoError(t, err)

	assert.True(t, loose(0, 0.8*dp))
	// H(0, 0.8 dp) = 0.36 H_sfp < 0.5 H_sfp
	assert.False(t, tight(0, 0.8*dp))
	assert.True(t, tight(0, 0.5*dp))
}

func TestEquihamiltonian(t *testing.T) {
	b := newBucket(t, sps(4e6, 0))
	zcut := 0.2
	dpAt, err := b.Equihamiltonian(zcut)
	require.NoError(t, err)
	hcut, err := b.Hamiltonian(zcut, 0, false)
	require.NoError(t, err)

	for _, z := range []float64{-0.15, -0.05, 0, 0.1} {
		h, err := b.Hamiltonian(z, dpAt(z), false)
		require.NoError(t, err)
		assert.InDelta(t, hcut, h, 1e-9*math.Abs(hcut))
	}
	// outside the contour the value is clamped rather than NaN
	assert.Zero(t, dpAt(0.3))
	assert.Zero(t, dpAt(-0.6))

	dpMax, err := b.DPMax(zcut)
	require.NoError(t, err)
	assert.InDelta(t, dpAt(0), dpMax, 1e-15)

	hsfp, err := b.HSFP(true)
	require.NoError(t, err)
	assert.Positive(t, hsfp)
}

func TestBatchEvaluation(t *testing.T) {
	b := newBucket(t, accelerating())
	z := []float64{-0.3, -0.1, 0, 0.1, 0.3, 0.5, 0.9}
	dp := []float64{0, 1e-4, 0, -1e-3, 2e-4, 0, 0}

	hs, err := b.Hamiltonians(nil, z, dp, true)
	require.NoError(t, err)
	seps, err := b.Separatrices(make([]float64, 2), z)
	require.NoError(t, err)
	accepted, err := b.AcceptedBatch(z, dp, 0, 3)
	require.NoError(t, err)
	require.Len(t, accepted, len(z))

	for i := range z {
		h, err := b.Hamiltonian(z[i], dp[i], true)
		require.NoError(t, err)
		assert.Equal(t, h, hs[i])
		sep, err := b.Separatrix(z[i])
		require.NoError(t, err)
		assert.Equal(t, sep, seps[i])
		in, err := b.IsInSeparatrix(z[i], dp[i], 0)
		require.NoError(t, err)
		assert.Equal(t, in, accepted[i], "particle %d", i)
	}

	_, err = b.Hamiltonians(nil, z, dp[:2], false)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNoBucket(t *testing.T) {
	p := sps(0, 0)
	p.PIncrement = 1e-20
	b := newBucket(t, p)

	_, err := b.ZSFP()
	assert.ErrorIs(t, err, ErrNoBucket)
	_, err = b.BucketArea()
	assert.ErrorIs(t, err, ErrNoBucket)
	_, err = b.Hamiltonian(0, 0, false)
	assert.ErrorIs(t, err, ErrNoBucket)

	var refinement *utils.RefinementError
	assert.False(t, errors.As(err, &refinement))
}

func TestZeroAreaBucket(t *testing.T) {
	p := sps(1e-3, 0)
	gamma := p.Gamma
	beta := math.Sqrt(1 - 1/(gamma*gamma))
	p.PIncrement = 0.5e-3 * constants.ElementaryCharge / (beta * constants.SpeedOfLight)
	b := newBucket(t, p)

	// a stiff linear focusing perturbation leaves a single fixed point
	const (
		k  = 1e-12 // [C V m^-2]
		z0 = 3e-4
	)
	b.AddFields(
		[]Field{func(z float64) float64 { return -k * (z - z0) }},
		[]Field{func(z float64) float64 { return 0.5 * k * (z - z0) * (z - z0) }},
	)

	sfp, err := b.ZSFP()
	require.NoError(t, err)
	ufp, err := b.ZUFP()
	require.NoError(t, err)
	require.Len(t, sfp, 1)
	assert.Equal(t, sfp, ufp)
	assert.InDelta(t, z0, sfp[0], 1e-9)

	zleft, zright, err := b.Boundaries()
	require.NoError(t, err)
	assert.Equal(t, zleft, zright)

	area, err := b.BucketArea()
	require.NoError(t, err)
	assert.Zero(t, area)
}
