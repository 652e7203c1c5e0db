package fresnel

import (
	"fmt"
	"math"
)

// FresnelNumber is a²/(λz) for an aperture of characteristic half-size a. Values well
// above 1 are near field, well below 1 far field.
func FresnelNumber(a, wavelength, z float64) float64 {
	return a * a / (wavelength * z)
}

// FresnelScale is sqrt(λz/2), the length over which diffraction fringes develop.
func FresnelScale(wavelength, z float64) float64 {
	return math.Sqrt(wavelength * z / 2)
}

// CriticalDistance is N·dx²/λ. Beyond it the transfer function is undersampled and
// the periodic window aliases noticeably.
func CriticalDistance(g *Grid, wavelength float64) float64 {
	return float64(g.N) * g.Dx * g.Dx / wavelength
}

// ParaxialLimit is the distance below which the Fresnel approximation is no longer
// safe: z³ >> π·ρ⁴/(4λ), where ρ = a + L/√2 is the largest transverse distance between
// a point of the aperture and a point of the observation window.
func ParaxialLimit(g *Grid, wavelength, halfSize float64) float64 {
	rho := halfSize + g.L/math.Sqrt2
	return math.Cbrt(math.Pi * math.Pow(rho, 4) / (4 * wavelength))
}

// WarningKind groups accuracy warnings.
type WarningKind string

const (
	WarnParaxial      WarningKind = "paraxial"
	WarnFresnelNumber WarningKind = "fresnel-number"
	WarnAliasing      WarningKind = "aliasing"
	WarnUndersampling WarningKind = "undersampling"
	WarnWindow        WarningKind = "window"
)

// Warning describes a parameter range in which results may be inaccurate. The engine
// never refuses to run because of one.
type Warning struct {
	Kind    WarningKind
	Message string
}

// Diagnose inspects a planned run. halfSize is the aperture's characteristic half-size
// (radius, half slit height).
func Diagnose(g *Grid, wavelength, halfSize float64, zValues []float64) []Warning {
	if len(zValues) == 0 || g == nil || !(wavelength > 0) {
		return nil
	}
	zMin, zMax := zValues[0], zValues[0]
	for _, z := range zValues {
		zMin = math.Min(zMin, z)
		zMax = math.Max(zMax, z)
	}

	var warnings []Warning
	if halfSize > 0 {
		if limit := ParaxialLimit(g, wavelength, halfSize); zMin < limit {
			warnings = append(warnings, Warning{
				Kind:    WarnParaxial,
				Message: fmt.Sprintf("z_min=%g m is below %g m, where the paraxial approximation starts to break down", zMin, limit),
			})
		}
	}
	if zMax > 0 && halfSize > 0 {
		if nf := FresnelNumber(halfSize, wavelength, zMax); nf < 1 {
			warnings = append(warnings, Warning{
				Kind:    WarnFresnelNumber,
				Message: fmt.Sprintf("Fresnel number at z=%g m is %0.3f (below 1); paraxial accuracy is not guaranteed", zMax, nf),
			})
		}
	}
	if zMax > CriticalDistance(g, wavelength) {
		warnings = append(warnings, Warning{
			Kind: WarnAliasing,
			Message: fmt.Sprintf("z=%g m exceeds the critical distance %g m (N*dx^2/lambda); energy wraps around the window",
				zMax, CriticalDistance(g, wavelength)),
		})
	}
	if zMin > 0 {
		if samples := FresnelScale(wavelength, zMin) / g.Dx; samples < 5 {
			warnings = append(warnings, Warning{
				Kind:    WarnUndersampling,
				Message: fmt.Sprintf("only %0.1f samples per Fresnel scale at z=%g m (at least 5 are needed to resolve fringes)", samples, zMin),
			})
		}
	}
	if halfSize > 0 && g.L < 2*halfSize {
		warnings = append(warnings, Warning{
			Kind:    WarnWindow,
			Message: fmt.Sprintf("window L=%g m is smaller than the aperture (%g m)", g.L, 2*halfSize),
		})
	}
	return warnings
}
