package fresnel

import "errors"

// Configuration errors. They are returned wrapped with the offending values, so
// callers should test for them with errors.Is.
var (
	ErrInvalidGrid       = errors.New("fresnel: invalid grid")
	ErrInvalidWavelength = errors.New("fresnel: wavelength must be positive and finite")
	ErrInvalidAperture   = errors.New("fresnel: invalid aperture")
	ErrShapeMismatch     = errors.New("fresnel: array shape mismatch")
	ErrNoDistances       = errors.New("fresnel: no propagation distances given")
	ErrInvalidDistance   = errors.New("fresnel: propagation distance must be finite")

	// ErrNonFinite is returned when an intensity volume holds NaN or Inf values.
	ErrNonFinite = errors.New("fresnel: intensity volume holds non-finite values")

	// ErrDarkVolume is returned when every element of an intensity volume is zero,
	// which would make the global normalization divide by zero.
	ErrDarkVolume = errors.New("fresnel: intensity volume is entirely dark")
)
