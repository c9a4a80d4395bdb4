// Package bucket models the longitudinal RF bucket of a circular accelerator:
// the region of (z, dp) phase space in which a particle performs bounded
// synchrotron oscillations under a superposition of RF harmonics.
//
// An [RFBucket] is built from a fixed RF configuration snapshot. Fixed points,
// bucket boundaries and the Hamiltonian calibration are derived lazily and
// cached until [RFBucket.AddFields] or [RFBucket.Invalidate] discards them.
// The [RFSystem] owns the RF parameters and calls Invalidate on its buckets
// after every parameter change.
//
// # Thread Safety
//
// Queries may run concurrently. Registering perturbations or changing RF
// parameters must not overlap with any query.
package bucket
