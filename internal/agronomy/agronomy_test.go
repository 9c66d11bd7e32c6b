package agronomy

import (
	"math"
	"testing"

	"github.com/matryer/is"
)

func TestVPDAtDocumentedBoundary(t *testing.T) {
	is := is.New(t)

	// 25C / 50% rh: es ~= 3.17 kPa, deficit factor 0.5
	es := SaturationVaporPressure(25)
	got := VPD(25, 50)
	is.True(math.Abs(got-es*0.5) < 0.01)
	is.True(math.Abs(got-1.58) < 0.01)
}

func TestVPDSaturatedAirIsZero(t *testing.T) {
	is := is.New(t)
	is.True(math.Abs(VPD(20, 100)) < 1e-9)
}

func TestDewPointBelowAirTemperature(t *testing.T) {
	is := is.New(t)

	dp := DewPoint(25, 50)
	is.True(dp < 25)
	is.True(dp > 10) // ~13.9C for 25C/50%
	is.True(dp < 15)

	// saturated air dews at air temperature
	is.True(math.Abs(DewPoint(20, 100)-20) < 0.1)
}

func TestDewPointPropagatesNaNForZeroHumidity(t *testing.T) {
	is := is.New(t)
	is.True(math.IsNaN(DewPoint(25, 0)) || math.IsInf(DewPoint(25, 0), 0))
	is.True(!Finite(DewPoint(25, 0)))
}

func TestGDD(t *testing.T) {
	is := is.New(t)
	is.Equal(GDD(25, DefaultGDDBase), 15.0)
	is.Equal(GDD(10, DefaultGDDBase), 0.0)
	is.Equal(GDD(4, DefaultGDDBase), 0.0)
}

func TestSoilDryingRate(t *testing.T) {
	is := is.New(t)

	// 50 -> 40 over 10 minutes dries at 1 %/min
	is.Equal(SoilDryingRate(50, 40, 10), 1.0)

	// wetting is negative
	is.Equal(SoilDryingRate(40, 50, 10), -1.0)

	// degenerate intervals yield zero
	is.Equal(SoilDryingRate(50, 40, 0), 0.0)
	is.Equal(SoilDryingRate(50, 40, -5), 0.0)
}

func TestFiniteOrZero(t *testing.T) {
	is := is.New(t)
	is.Equal(FiniteOrZero(1.5), 1.5)
	is.Equal(FiniteOrZero(math.NaN()), 0.0)
	is.Equal(FiniteOrZero(math.Inf(1)), 0.0)
}
