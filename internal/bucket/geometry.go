package bucket

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/wildstyl3r/rfbucket/internal/utils"
)

// ZeroCrossings returns the refined roots of f over the search interval.
// A non-positive subintervals uses the bucket's own resolution.
func (b *RFBucket) ZeroCrossings(f Field, subintervals int) ([]float64, error) {
	if subintervals <= 0 {
		subintervals = b.subintervals
	}
	return utils.ZeroCrossings(f, b.interval[0], b.interval[1], subintervals)
}

func (b *RFBucket) geometry() (*fixedPoints, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fixedPointsLocked()
}

func (b *RFBucket) bounds() (*fixedPoints, *boundaries, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fp, err := b.fixedPointsLocked()
	if err != nil {
		return nil, nil, err
	}
	if b.boundaries == nil {
		bd, err := b.findBoundaries(fp)
		if err != nil {
			return nil, nil, err
		}
		b.boundaries = bd
	}
	return fp, b.boundaries, nil
}

func (b *RFBucket) fixedPointsLocked() (*fixedPoints, error) {
	if b.fixedPoints == nil {
		fp, err := b.classifyFixedPoints()
		if err != nil {
			return nil, err
		}
		b.fixedPoints = fp
	}
	return b.fixedPoints, nil
}

// classifyFixedPoints splits the roots of the net force into stable and
// unstable points. Small oscillations about z0 obey z'' ∝ -eta F'(z0) (z-z0),
// so a root is stable when sign(eta) F'(z0) > 0.
func (b *RFBucket) classifyFixedPoints() (*fixedPoints, error) {
	z0, err := b.ZeroCrossings(b.AccForce, 0)
	if err != nil {
		return nil, fmt.Errorf("locating fixed points: %w", err)
	}

	fp := &fixedPoints{}
	switch len(z0) {
	case 0:
		return nil, ErrNoBucket
	case 1: // exactly zero bucket area
		fp.sfp, fp.ufp = z0, slices.Clone(z0)
	default:
		step := 1e-3 * (b.interval[1] - b.interval[0]) / float64(b.subintervals)
		etaSign := utils.Sign(b.Eta0())
		for _, z := range z0 {
			slope := utils.Sign(b.AccForce(z+step) - b.AccForce(z-step))
			if slope*etaSign > 0 {
				fp.sfp = append(fp.sfp, z)
			} else {
				fp.ufp = append(fp.ufp, z)
			}
		}
		if len(fp.sfp) == 0 || len(fp.ufp) == 0 {
			return nil, fmt.Errorf("%w: fixed points at %v do not alternate in stability", ErrInvalidConfig, z0)
		}
	}

	if b.Eta0()*b.pIncrement > 0 {
		// separatrix ufp right of sfp
		fp.zUFPSep = fp.ufp[len(fp.ufp)-1]
	} else {
		// separatrix ufp left of sfp
		fp.zUFPSep = fp.ufp[0]
	}
	return fp, nil
}

// findBoundaries takes the outermost of the calibrated potential's roots and the unstable points.
func (b *RFBucket) findBoundaries(fp *fixedPoints) (*boundaries, error) {
	roots, err := b.ZeroCrossings(func(z float64) float64 {
		return b.accPotential(z, fp.zUFPSep, false)
	}, 0)
	if err != nil {
		return nil, fmt.Errorf("locating bucket boundaries: %w", err)
	}
	roots = append(roots, fp.ufp...)
	return &boundaries{
		zleft:  floats.Min(roots),
		zright: floats.Max(roots),
		roots:  roots,
	}, nil
}

// ZSFP returns the stable fixed points in increasing z.
func (b *RFBucket) ZSFP() ([]float64, error) {
	fp, err := b.geometry()
	if err != nil {
		return nil, err
	}
	return slices.Clone(fp.sfp), nil
}

// ZUFP returns the unstable fixed points in increasing z.
func (b *RFBucket) ZUFP() ([]float64, error) {
	fp, err := b.geometry()
	if err != nil {
		return nil, err
	}
	return slices.Clone(fp.ufp), nil
}

// ZUFPSeparatrix returns the unstable fixed point that bounds the bucket:
// right-most when eta*pIncrement > 0, left-most otherwise.
func (b *RFBucket) ZUFPSeparatrix() (float64, error) {
	fp, err := b.geometry()
	if err != nil {
		return 0, err
	}
	return fp.zUFPSep, nil
}

// Boundaries returns the left and right edges of the bucket in z.
func (b *RFBucket) Boundaries() (zleft, zright float64, err error) {
	_, bd, err := b.bounds()
	if err != nil {
		return 0, 0, err
	}
	return bd.zleft, bd.zright, nil
}

func (b *RFBucket) ZLeft() (float64, error) {
	zleft, _, err := b.Boundaries()
	return zleft, err
}

func (b *RFBucket) ZRight() (float64, error) {
	_, zright, err := b.Boundaries()
	return zright, err
}
