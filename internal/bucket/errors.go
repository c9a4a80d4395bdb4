package bucket

import "errors"

var (
	// ErrNoBucket means the net force has no zero crossing in the search
	// interval: the RF voltage cannot sustain the demanded acceleration.
	ErrNoBucket = errors.New("bucket: no bucket, RF force too weak for the requested momentum increment")

	ErrInvalidConfig = errors.New("bucket: invalid configuration")
)
