// FilePath: internal/agronomy/agronomy.go

// Package agronomy provides the pure index calculations derived from raw
// sensor readings. All functions are total over the real numbers; non-finite
// results (e.g. dew point at rh <= 0) propagate and must be guarded by the
// caller before storage.
package agronomy

import "math"

const (
	magnusA = 17.27
	magnusB = 237.7

	// DefaultGDDBase is the base temperature for growing-degree-day
	// accumulation, in degrees Celsius.
	DefaultGDDBase = 10.0
)

// DewPoint returns the dew point in degrees Celsius for air temperature t
// (degrees C) and relative humidity rh (percent), using the Magnus
// approximation. Returns NaN for rh <= 0.
func DewPoint(t, rh float64) float64 {
	alpha := (magnusA*t)/(magnusB+t) + math.Log(rh/100)
	return (magnusB * alpha) / (magnusA - alpha)
}

// SaturationVaporPressure returns es in kPa for temperature t (degrees C)
func SaturationVaporPressure(t float64) float64 {
	return 0.6108 * math.Exp((17.27*t)/(t+237.3))
}

// VPD returns the vapor pressure deficit in kPa for temperature t (degrees C)
// and relative humidity rh (percent)
func VPD(t, rh float64) float64 {
	es := SaturationVaporPressure(t)
	ea := es * (rh / 100)
	return es - ea
}

// GDD returns the growing-degree-day contribution of temperature t above the
// given base temperature, floored at zero
func GDD(t, baseTemp float64) float64 {
	return math.Max(0, t-baseTemp)
}

// SoilDryingRate returns the drying rate in percent per minute between two
// consecutive soil moisture readings taken dtMinutes apart. Positive values
// indicate drying, negative wetting. Returns 0 when dtMinutes <= 0.
func SoilDryingRate(prevSoil, currSoil, dtMinutes float64) float64 {
	if dtMinutes <= 0 {
		return 0
	}
	return (prevSoil - currSoil) / dtMinutes
}

// Finite reports whether v is a usable real number
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FiniteOrZero replaces non-finite values with zero so they can be stored
func FiniteOrZero(v float64) float64 {
	if !Finite(v) {
		return 0
	}
	return v
}
