package bucket

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

const (
	areaPanels = 64
	areaOrder  = 16
)

// BucketArea integrates the separatrix over [zleft, zright] and returns the
// longitudinal acceptance in eV s.
func (b *RFBucket) BucketArea() (float64, error) {
	fp, bd, err := b.bounds()
	if err != nil {
		return 0, err
	}
	if !(bd.zright > bd.zleft) {
		return 0, nil
	}
	separatrix := b.equihamiltonian(fp, fp.zUFPSep)

	// Gauss-Legendre nodes avoid the panel ends, where the separatrix has
	// square-root behaviour or is clamped to zero.
	width := (bd.zright - bd.zleft) / areaPanels
	var area float64
	for i := range areaPanels {
		lo := bd.zleft + float64(i)*width
		area += quad.Fixed(separatrix, lo, lo+width, areaOrder, nil, 0)
	}
	return area * 2 * b.p0 / math.Abs(b.charge), nil
}
