package bucket

import "math"

// TotalForce is the electric force of all RF harmonics at z [C V m^-1],
// plus the registered perturbation forces unless ignoreAdd is set.
func (b *RFBucket) TotalForce(z float64, ignoreAdd bool) (f float64) {
	q := math.Abs(b.charge)
	R := b.R()
	for _, k := range b.kicks {
		f += q * k.Voltage / b.circumference * math.Sin(float64(k.Harmonic)*z/R+k.PhaseOffset)
	}
	if !ignoreAdd {
		for _, add := range b.addForces {
			f += add(z)
		}
	}
	return
}

// TotalPotential is the electric potential energy of all RF harmonics at z [C V],
// plus the registered perturbation potentials unless ignoreAdd is set.
func (b *RFBucket) TotalPotential(z float64, ignoreAdd bool) (u float64) {
	q := math.Abs(b.charge)
	R := b.R()
	for _, k := range b.kicks {
		h := float64(k.Harmonic)
		u += q * k.Voltage / (2 * math.Pi * h) * math.Cos(h*z/R+k.PhaseOffset)
	}
	if !ignoreAdd {
		for _, add := range b.addPotentials {
			u += add(z)
		}
	}
	return
}

// AccForce is the net force including the deceleration implied by the energy gain per turn.
func (b *RFBucket) AccForce(z float64) float64 {
	return b.TotalForce(z, false) - b.DeltaE()/b.circumference
}

// AccPotential is the net potential energy [C V] calibrated to vanish at the
// separatrix unstable fixed point. With convex set it is multiplied by sign(eta).
func (b *RFBucket) AccPotential(z float64, convex bool) (float64, error) {
	fp, err := b.geometry()
	if err != nil {
		return 0, err
	}
	return b.accPotential(z, fp.zUFPSep, convex), nil
}

func (b *RFBucket) accPotential(z, zBoundary float64, convex bool) float64 {
	v := b.TotalPotential(z, false) - b.TotalPotential(zBoundary, false) +
		b.DeltaE()/b.circumference*(z-zBoundary)
	if convex {
		v *= math.Copysign(1, b.Eta0())
	}
	return v
}
