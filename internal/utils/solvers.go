package utils

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrNotBracketed  = errors.New("utils: function values at the bracket ends have the same sign")
	ErrNoConvergence = errors.New("utils: root refinement did not converge")
)

const (
	BrentXTol    = 2e-12
	BrentRTol    = 4 * 2.220446049250313e-16
	BrentMaxIter = 100
)

// RefinementError reports a sign-change bracket that could not be refined to a root.
type RefinementError struct {
	Left, Right float64
	Err         error
}

func (e *RefinementError) Error() string {
	return fmt.Sprintf("refining root in [%g, %g]: %v", e.Left, e.Right, e.Err)
}

func (e *RefinementError) Unwrap() error {
	return e.Err
}

// return the point of the condition support that is not farther than eps from the support boundary
// invariant: at *right* condition must be TRUE
func BinarySearch(condition func(float64) bool, falseDom, trueDom, eps float64) (float64, float64) {
	for math.Abs(trueDom-falseDom) > eps {
		c := (falseDom + trueDom) * 0.5
		if condition(c) {
			trueDom = c
		} else {
			falseDom = c
		}
	}
	return falseDom, trueDom
}

// Brent finds a root of f inside [a, b] by Brent's method; f(a) and f(b) must differ in sign.
func Brent(f func(float64) float64, a, b, xtol, rtol float64, maxIter int) (float64, error) {
	xpre, xcur := a, b
	fpre, fcur := f(xpre), f(xcur)
	if fpre == 0 {
		return xpre, nil
	}
	if fcur == 0 {
		return xcur, nil
	}
	if math.Signbit(fpre) == math.Signbit(fcur) {
		return 0, ErrNotBracketed
	}

	var xblk, fblk, spre, scur float64
	for range maxIter {
		if fpre != 0 && fcur != 0 && math.Signbit(fpre) != math.Signbit(fcur) {
			xblk, fblk = xpre, fpre
			spre = xcur - xpre
			scur = spre
		}
		if math.Abs(fblk) < math.Abs(fcur) {
			xpre, xcur, xblk = xcur, xblk, xcur
			fpre, fcur, fblk = fcur, fblk, fcur
		}

		delta := (xtol + rtol*math.Abs(xcur)) * 0.5
		sbis := (xblk - xcur) * 0.5
		if fcur == 0 || math.Abs(sbis) < delta {
			return xcur, nil
		}

		if math.Abs(spre) > delta && math.Abs(fcur) < math.Abs(fpre) {
			var stry float64
			if xpre == xblk {
				// secant
				stry = -fcur * (xcur - xpre) / (fcur - fpre)
			} else {
				// inverse quadratic
				dpre := (fpre - fcur) / (xpre - xcur)
				dblk := (fblk - fcur) / (xblk - xcur)
				stry = -fcur * (fblk*dblk - fpre*dpre) / (dblk * dpre * (fblk - fpre))
			}
			if 2*math.Abs(stry) < min(math.Abs(spre), 3*math.Abs(sbis)-delta) {
				spre, scur = scur, stry
			} else {
				spre, scur = sbis, sbis
			}
		} else {
			spre, scur = sbis, sbis
		}

		xpre, fpre = xcur, fcur
		if math.Abs(scur) > delta {
			xcur += scur
		} else if sbis > 0 {
			xcur += delta
		} else {
			xcur -= delta
		}
		fcur = f(xcur)
	}
	return xcur, ErrNoConvergence
}

// ZeroCrossings samples f at subintervals+1 evenly spaced points of [left, right]
// and refines every strict sign flip between neighbours with Brent's method.
// A sample that is exactly zero counts as a root only when its neighbours have
// opposite signs; touching zero is not a crossing.
func ZeroCrossings(f func(float64) float64, left, right float64, subintervals int) ([]float64, error) {
	if subintervals < 1 {
		return nil, fmt.Errorf("utils: need at least one subinterval, got %d", subintervals)
	}
	x := floats.Span(make([]float64, subintervals+1), left, right)
	sign := make([]float64, len(x))
	for i := range x {
		sign[i] = Sign(f(x[i]))
	}

	var roots []float64
	for i := 0; i+1 < len(x); i++ {
		if sign[i] == 0 && i > 0 && sign[i-1]*sign[i+1] < 0 {
			roots = append(roots, x[i])
			continue
		}
		if math.Abs(sign[i+1]-sign[i]) != 2 {
			continue
		}
		root, err := Brent(f, x[i], x[i+1], BrentXTol, BrentRTol, BrentMaxIter)
		if err != nil {
			return roots, &RefinementError{Left: x[i], Right: x[i+1], Err: err}
		}
		roots = append(roots, root)
	}
	return roots, nil
}
