package bucket

import (
	"fmt"
	"slices"
)

// RFSystem owns the RF parameters and hands out buckets per gamma.
// Every parameter change re-applies the RF settings to the buckets it has
// handed out and invalidates their derived state.
type RFSystem struct {
	template Parameters
	buckets  map[float64]*RFBucket
}

// NewRFSystem keeps a copy of p; p.Gamma is ignored, the energy is chosen per Bucket call.
func NewRFSystem(p Parameters) (*RFSystem, error) {
	p.Gamma = 2 // placeholder to pass validation
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.Kicks = slices.Clone(p.Kicks)
	p.Alpha = slices.Clone(p.Alpha)
	return &RFSystem{template: p, buckets: map[float64]*RFBucket{}}, nil
}

// Bucket returns the bucket for the given gamma, building it on first use.
func (s *RFSystem) Bucket(gamma float64) (*RFBucket, error) {
	if b, ok := s.buckets[gamma]; ok {
		return b, nil
	}
	p := s.template
	p.Gamma = gamma
	b, err := New(p)
	if err != nil {
		return nil, err
	}
	s.buckets[gamma] = b
	return b, nil
}

func (s *RFSystem) Kicks() []Kick {
	return slices.Clone(s.template.Kicks)
}

func (s *RFSystem) PIncrement() float64 {
	return s.template.PIncrement
}

func (s *RFSystem) SetVoltage(i int, voltage float64) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.template.Kicks[i].Voltage = voltage
	s.cleanBuckets()
	return nil
}

func (s *RFSystem) SetPhaseOffset(i int, phase float64) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.template.Kicks[i].PhaseOffset = phase
	s.cleanBuckets()
	return nil
}

func (s *RFSystem) SetHarmonic(i int, harmonic int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if harmonic <= 0 {
		return fmt.Errorf("%w: harmonic must be positive, got %d", ErrInvalidConfig, harmonic)
	}
	s.template.Kicks[i].Harmonic = harmonic
	s.cleanBuckets()
	return nil
}

func (s *RFSystem) SetPIncrement(pIncrement float64) {
	s.template.PIncrement = pIncrement
	s.cleanBuckets()
}

func (s *RFSystem) checkIndex(i int) error {
	if i < 0 || i >= len(s.template.Kicks) {
		return fmt.Errorf("%w: no RF harmonic with index %d", ErrInvalidConfig, i)
	}
	return nil
}

func (s *RFSystem) cleanBuckets() {
	for _, b := range s.buckets {
		b.reconfigure(s.template.Kicks, s.template.PIncrement)
		b.Invalidate()
	}
}
