package bucket

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/wildstyl3r/rfbucket/internal/constants"
)

const DefaultSubintervals = 1000

// Kick is a single RF harmonic component.
type Kick struct {
	Harmonic    int
	Voltage     float64 // [V]
	PhaseOffset float64 // [rad]
}

// Field is a perturbation force [C V m^-1] or potential energy [C V] as a function of z.
type Field func(z float64) float64

type Parameters struct {
	Circumference float64   // [m]
	Gamma         float64   // relativistic gamma of the synchronous particle
	Mass          float64   // [kg]
	Charge        float64   // [C]
	Alpha         []float64 // momentum compaction, only Alpha[0] is used
	PIncrement    float64   // momentum gain per turn [kg m s^-1]
	Kicks         []Kick
	ZOffset       *float64 // [m], derived from the fundamental harmonic when nil
	Subintervals  int      // finder resolution, DefaultSubintervals when 0
}

type fixedPoints struct {
	sfp, ufp []float64
	zUFPSep  float64
}

type boundaries struct {
	zleft, zright float64
	roots         []float64
}

type RFBucket struct {
	circumference float64
	mass          float64
	charge        float64

	gamma float64
	beta  float64
	p0    float64

	alpha0     float64
	pIncrement float64
	kicks      []Kick

	zOffset      float64
	zOffsetFixed bool
	interval     [2]float64
	subintervals int

	addForces     []Field
	addPotentials []Field

	mu          sync.Mutex
	fixedPoints *fixedPoints // nil until computed
	boundaries  *boundaries  // nil until computed
}

func New(p Parameters) (*RFBucket, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	b := &RFBucket{
		circumference: p.Circumference,
		mass:          p.Mass,
		charge:        p.Charge,
		gamma:         p.Gamma,
		beta:          math.Sqrt(1 - 1/(p.Gamma*p.Gamma)),
		p0:            math.Sqrt(p.Gamma*p.Gamma-1) * p.Mass * constants.SpeedOfLight,
		alpha0:        p.Alpha[0],
		pIncrement:    p.PIncrement,
		kicks:         slices.Clone(p.Kicks),
		subintervals:  p.Subintervals,
	}
	if b.subintervals == 0 {
		b.subintervals = DefaultSubintervals
	}
	if p.ZOffset != nil {
		b.zOffset = *p.ZOffset
		b.zOffsetFixed = true
	}
	if b.Eta0() == 0 {
		return nil, fmt.Errorf("%w: slip factor is zero at gamma %g", ErrInvalidConfig, p.Gamma)
	}
	b.updateInterval()
	return b, nil
}

func (p *Parameters) validate() error {
	switch {
	case !(p.Circumference > 0):
		return fmt.Errorf("%w: circumference must be positive", ErrInvalidConfig)
	case !(p.Gamma > 1):
		return fmt.Errorf("%w: gamma must exceed 1, got %g", ErrInvalidConfig, p.Gamma)
	case !(p.Mass > 0):
		return fmt.Errorf("%w: mass must be positive", ErrInvalidConfig)
	case p.Charge == 0:
		return fmt.Errorf("%w: charge must be nonzero", ErrInvalidConfig)
	case len(p.Alpha) == 0:
		return fmt.Errorf("%w: momentum compaction not given", ErrInvalidConfig)
	case len(p.Kicks) == 0:
		return fmt.Errorf("%w: at least one RF harmonic is required", ErrInvalidConfig)
	case p.Subintervals < 0:
		return fmt.Errorf("%w: negative subinterval count", ErrInvalidConfig)
	}
	return validateKicks(p.Kicks)
}

func validateKicks(kicks []Kick) error {
	for i := range kicks {
		if kicks[i].Harmonic <= 0 {
			return fmt.Errorf("%w: harmonic %d must be positive, got %d", ErrInvalidConfig, i, kicks[i].Harmonic)
		}
	}
	return nil
}

// fundamental returns the index of the lowest harmonic.
func (b *RFBucket) fundamental() (iFund int) {
	for i := range b.kicks {
		if b.kicks[i].Harmonic < b.kicks[iFund].Harmonic {
			iFund = i
		}
	}
	return
}

// updateInterval sizes the search interval to the fundamental harmonic wavelength.
func (b *RFBucket) updateInterval() {
	fund := b.kicks[b.fundamental()]
	if !b.zOffsetFixed {
		phiOffset := fund.PhaseOffset
		// relative to the normal setting: 0 above transition, pi below
		if b.Eta0() < 0 {
			phiOffset -= math.Pi
		}
		b.zOffset = -phiOffset * b.R() / float64(fund.Harmonic)
	}
	zmax := b.circumference / (2 * float64(fund.Harmonic))
	b.interval = [2]float64{b.zOffset - 1.01*zmax, b.zOffset + 1.01*zmax}
}

// reconfigure replaces the RF parameters. The caller is responsible for Invalidate.
func (b *RFBucket) reconfigure(kicks []Kick, pIncrement float64) {
	b.kicks = slices.Clone(kicks)
	b.pIncrement = pIncrement
	b.updateInterval()
}

// Invalidate discards fixed points and boundaries; they are recomputed on the next query.
func (b *RFBucket) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fixedPoints = nil
	b.boundaries = nil
}

// AddFields registers additional forces [C V m^-1] and potential energies [C V]
// (space charge and the like) on top of the RF field, and invalidates derived state.
func (b *RFBucket) AddFields(forces, potentials []Field) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addForces = append(b.addForces, forces...)
	b.addPotentials = append(b.addPotentials, potentials...)
	b.fixedPoints = nil
	b.boundaries = nil
}

func (b *RFBucket) Circumference() float64 { return b.circumference }
func (b *RFBucket) Mass() float64          { return b.mass }
func (b *RFBucket) Charge() float64        { return b.charge }
func (b *RFBucket) Gamma() float64         { return b.gamma }
func (b *RFBucket) Beta() float64          { return b.beta }
func (b *RFBucket) P0() float64            { return b.p0 }
func (b *RFBucket) Alpha0() float64        { return b.alpha0 }
func (b *RFBucket) PIncrement() float64    { return b.pIncrement }
func (b *RFBucket) Kicks() []Kick          { return slices.Clone(b.kicks) }
func (b *RFBucket) ZOffset() float64       { return b.zOffset }
func (b *RFBucket) Subintervals() int      { return b.subintervals }

func (b *RFBucket) Interval() (float64, float64) {
	return b.interval[0], b.interval[1]
}

// R is the machine radius [m].
func (b *RFBucket) R() float64 {
	return b.circumference / (2 * math.Pi)
}

// DeltaE is the energy gain per turn [J].
func (b *RFBucket) DeltaE() float64 {
	return b.pIncrement * b.beta * constants.SpeedOfLight
}

// Eta0 is the leading order slip factor; positive above transition.
func (b *RFBucket) Eta0() float64 {
	return b.alpha0 - 1/(b.gamma*b.gamma)
}

// Qs is the small amplitude synchrotron tune in the linear approximation.
func (b *RFBucket) Qs() float64 {
	var hV float64
	for _, k := range b.kicks {
		hV += float64(k.Harmonic) * k.Voltage
	}
	return math.Sqrt(math.Abs(b.charge) * math.Abs(b.Eta0()) * hV /
		(2 * math.Pi * b.p0 * b.beta * constants.SpeedOfLight))
}

// BetaZ is the longitudinal beta function |eta R / Qs| [m].
func (b *RFBucket) BetaZ() float64 {
	return math.Abs(b.Eta0() * b.R() / b.Qs())
}
