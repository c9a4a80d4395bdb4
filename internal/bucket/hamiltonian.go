package bucket

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/wildstyl3r/rfbucket/internal/constants"
)

// Hamiltonian at (z, dp) [m s^-1]. With convex set it is multiplied by
// sign(eta), so the bucket centre is always a maximum.
func (b *RFBucket) Hamiltonian(z, dp float64, convex bool) (float64, error) {
	fp, err := b.geometry()
	if err != nil {
		return 0, err
	}
	return b.hamiltonian(fp, z, dp, convex), nil
}

func (b *RFBucket) hamiltonian(fp *fixedPoints, z, dp float64, convex bool) float64 {
	h := -0.5*b.Eta0()*b.beta*constants.SpeedOfLight*dp*dp +
		b.accPotential(z, fp.zUFPSep, false)/b.p0
	if convex {
		h *= math.Copysign(1, b.Eta0())
	}
	return h
}

// Hamiltonians evaluates the Hamiltonian for every (z[i], dp[i]) into dst.
func (b *RFBucket) Hamiltonians(dst, z, dp []float64, convex bool) ([]float64, error) {
	if len(z) != len(dp) {
		return nil, fmt.Errorf("%w: %d z values for %d dp values", ErrInvalidConfig, len(z), len(dp))
	}
	fp, err := b.geometry()
	if err != nil {
		return nil, err
	}
	dst = resize(dst, len(z))
	for i := range z {
		dst[i] = b.hamiltonian(fp, z[i], dp[i], convex)
	}
	return dst, nil
}

// Equihamiltonian returns dp_at(z), the non-negative dp on the contour
// H(z, dp) = H(zcut, 0). Outside the contour dp_at is clamped to zero.
func (b *RFBucket) Equihamiltonian(zcut float64) (func(z float64) float64, error) {
	fp, err := b.geometry()
	if err != nil {
		return nil, err
	}
	return b.equihamiltonian(fp, zcut), nil
}

func (b *RFBucket) equihamiltonian(fp *fixedPoints, zcut float64) func(z float64) float64 {
	hcut := b.hamiltonian(fp, zcut, 0, false)
	k := 2. / (b.Eta0() * b.beta * constants.SpeedOfLight)
	return func(z float64) float64 {
		r := k * (b.accPotential(z, fp.zUFPSep, false)/b.p0 - hcut)
		return math.Sqrt(max(r, 0))
	}
}

// Separatrix returns the positive dp of the separatrix at z.
func (b *RFBucket) Separatrix(z float64) (float64, error) {
	sep, err := b.SeparatrixFunc()
	if err != nil {
		return 0, err
	}
	return sep(z), nil
}

func (b *RFBucket) SeparatrixFunc() (func(z float64) float64, error) {
	fp, err := b.geometry()
	if err != nil {
		return nil, err
	}
	return b.equihamiltonian(fp, fp.zUFPSep), nil
}

// Separatrices evaluates the separatrix at every z into dst.
func (b *RFBucket) Separatrices(dst, z []float64) ([]float64, error) {
	sep, err := b.SeparatrixFunc()
	if err != nil {
		return nil, err
	}
	dst = resize(dst, len(z))
	for i := range z {
		dst[i] = sep(z[i])
	}
	return dst, nil
}

func (b *RFBucket) zSFPExtr(fp *fixedPoints) float64 {
	h := make([]float64, len(fp.sfp))
	for i := range fp.sfp {
		h[i] = b.hamiltonian(fp, fp.sfp[i], 0, true)
	}
	return fp.sfp[floats.MaxIdx(h)]
}

// ZSFPExtr returns the stable fixed point with the largest convex Hamiltonian.
func (b *RFBucket) ZSFPExtr() (float64, error) {
	fp, err := b.geometry()
	if err != nil {
		return 0, err
	}
	return b.zSFPExtr(fp), nil
}

// HSFP returns the Hamiltonian at the extremal stable fixed point.
func (b *RFBucket) HSFP(convex bool) (float64, error) {
	fp, err := b.geometry()
	if err != nil {
		return 0, err
	}
	return b.hamiltonian(fp, b.zSFPExtr(fp), 0, convex), nil
}

// DPMax returns the largest dp on the equihamiltonian through (zcut, 0),
// taken over all stable fixed points.
func (b *RFBucket) DPMax(zcut float64) (float64, error) {
	fp, err := b.geometry()
	if err != nil {
		return 0, err
	}
	dpAt := b.equihamiltonian(fp, zcut)
	dp := make([]float64, len(fp.sfp))
	for i := range fp.sfp {
		dp[i] = dpAt(fp.sfp[i])
	}
	return floats.Max(dp), nil
}

// AcceptanceFunc returns is_accepted(z, dp): strictly inside (zleft, zright)
// and above margin times the stable fixed point Hamiltonian (convex form).
// Margin 0 is the separatrix itself.
func (b *RFBucket) AcceptanceFunc(margin float64) (func(z, dp float64) bool, error) {
	fp, bd, err := b.bounds()
	if err != nil {
		return nil, err
	}
	threshold := margin * b.hamiltonian(fp, b.zSFPExtr(fp), 0, true)
	return func(z, dp float64) bool {
		return bd.zleft < z && z < bd.zright &&
			b.hamiltonian(fp, z, dp, true) > threshold
	}, nil
}

func (b *RFBucket) IsInSeparatrix(z, dp, margin float64) (bool, error) {
	accepted, err := b.AcceptanceFunc(margin)
	if err != nil {
		return false, err
	}
	return accepted(z, dp), nil
}

// AcceptedBatch classifies an ensemble, splitting it over threads goroutines.
func (b *RFBucket) AcceptedBatch(z, dp []float64, margin float64, threads int) ([]bool, error) {
	if len(z) != len(dp) {
		return nil, fmt.Errorf("%w: %d z values for %d dp values", ErrInvalidConfig, len(z), len(dp))
	}
	accepted, err := b.AcceptanceFunc(margin)
	if err != nil {
		return nil, err
	}
	result := make([]bool, len(z))
	threads = max(1, min(threads, len(z)))
	chunk := (len(z) + threads - 1) / threads

	var wg sync.WaitGroup
	for from := 0; from < len(z); from += chunk {
		to := min(from+chunk, len(z))
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := from; i < to; i++ {
				result[i] = accepted(z[i], dp[i])
			}
		}()
	}
	wg.Wait()
	return result, nil
}

// H0FromSigma estimates the Hamiltonian value of a bi-Gaussian bunch of rms
// length z0 in a linear bucket. It is a starting guess for matching, not exact.
func (b *RFBucket) H0FromSigma(z0 float64, convex bool) float64 {
	h0 := b.beta * constants.SpeedOfLight * (z0 / b.BetaZ()) * (z0 / b.BetaZ())
	if convex {
		h0 *= math.Abs(b.Eta0())
	}
	return h0
}

// H0FromEpsn is H0FromSigma for the rms length matching the longitudinal
// emittance epsn [eV s] in a linear bucket.
func (b *RFBucket) H0FromEpsn(epsn float64, convex bool) float64 {
	z0 := math.Sqrt(epsn / (4 * math.Pi) * b.BetaZ() * math.Abs(b.charge) / b.p0)
	return b.H0FromSigma(z0, convex)
}

func resize(dst []float64, n int) []float64 {
	if cap(dst) < n {
		return make([]float64, n)
	}
	return dst[:n]
}
