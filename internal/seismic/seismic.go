// Package seismic implements the empirical intensity and wave travel time
// model used to evaluate an earthquake warning at a fixed target point.
// All functions are pure and safe for concurrent use.
package seismic

import (
	"math"
	"strconv"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.008

// siteAmplification converts the 600 m/s reference PGV to 400 m/s soil.
const siteAmplification = 1.31

// Crustal velocity gradient parameters for the two-layer P-wave model.
// S-wave gradients are these divided by sqrt(3).
const (
	shallowG0 = 5.10298
	shallowG  = 0.06659
	deepG0    = 7.804799
	deepG     = 0.004573

	shallowDepthLimitKm = 40

	// Implied-velocity caps; the closed-form ray solution is unstable at
	// very short distances.
	maxPVelocityKmS = 7
	maxSVelocityKmS = 4
)

// GeoPoint is a geographic coordinate in decimal degrees.
type GeoPoint struct {
	Lat float64
	Lon float64
}

// WaveTime holds P and S wave travel times in seconds from hypocenter to
// target. Values may be non-finite for degenerate geometry; callers should
// treat a non-finite phase as already arrived.
type WaveTime struct {
	P float64
	S float64
}

// Valid reports whether both phases are finite and positive.
func (w WaveTime) Valid() bool {
	return !math.IsNaN(w.P) && !math.IsInf(w.P, 0) && w.P > 0 &&
		!math.IsNaN(w.S) && !math.IsInf(w.S, 0) && w.S > 0
}

// Distance returns the great-circle distance between two points in km using
// the spherical law of cosines.
func Distance(a, b GeoPoint) float64 {
	latA := a.Lat * math.Pi / 180
	lonA := a.Lon * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	lonB := b.Lon * math.Pi / 180

	cosCentral := math.Sin(latA)*math.Sin(latB) +
		math.Cos(latA)*math.Cos(latB)*math.Cos(lonA-lonB)

	// Floating point error can push the cosine a hair outside [-1, 1].
	cosCentral = math.Max(-1, math.Min(1, cosCentral))

	return math.Acos(cosCentral) * EarthRadiusKm
}

// IntensityPGV returns the continuous intensity at target derived from peak
// ground velocity, using the Si & Midorikawa attenuation regression with an
// effective distance shortened by the fault rupture half-length.
func IntensityPGV(epicenter, target GeoPoint, depthKm, magnitude float64) float64 {
	halfRupture := math.Pow(10, 0.5*magnitude-1.85) / 2
	epicentralKm := Distance(epicenter, target)

	hypocentralKm := math.Sqrt(depthKm*depthKm+epicentralKm*epicentralKm) - halfRupture
	x := math.Max(hypocentralKm, 3)

	pgv600 := math.Pow(10,
		0.58*magnitude+
			0.0038*depthKm-
			1.29-
			math.Log10(x+0.0028*math.Pow(10, 0.5*magnitude))-
			0.002*x)

	pgv := pgv600 * siteAmplification

	return 2.68 + 1.72*math.Log10(pgv)
}

// IntensityPGA returns the continuous intensity at target derived from peak
// ground acceleration. Cheap but only accurate at low intensities.
func IntensityPGA(epicenter, target GeoPoint, depthKm, magnitude float64) float64 {
	surfaceKm := Distance(epicenter, target)
	hypocentralKm := math.Sqrt(surfaceKm*surfaceKm + depthKm*depthKm)
	pga := 1.657 * math.Exp(1.533*magnitude) * math.Pow(hypocentralKm, -1.607)
	return 2*math.Log10(pga) + 0.7
}

// ContinuousIntensity estimates the continuous intensity at target. The PGA
// estimator is evaluated first; when it indicates 4.5 or more the PGV
// estimator is substituted for accuracy at higher intensities.
func ContinuousIntensity(epicenter, target GeoPoint, depthKm, magnitude float64) float64 {
	i := IntensityPGA(epicenter, target, depthKm, magnitude)
	if i >= 4.5 {
		i = IntensityPGV(epicenter, target, depthKm, magnitude)
	}
	return i
}

// Classify maps a continuous intensity to the integer level in [0, 9].
// This is the single canonical mapping; every intensity consumer must use
// it rather than rounding independently.
func Classify(value float64) int {
	switch {
	case value < 0:
		return 0
	case value < 4.5:
		return int(math.Round(value))
	case value < 5:
		return 5
	case value < 5.5:
		return 6
	case value < 6:
		return 7
	case value < 6.5:
		return 8
	default:
		return 9
	}
}

// Label returns the display label for an integer intensity level.
func Label(level int) string {
	switch level {
	case 5:
		return "5-"
	case 6:
		return "5+"
	case 7:
		return "6-"
	case 8:
		return "6+"
	case 9:
		return "7"
	default:
		return strconv.Itoa(level)
	}
}

// TravelTimes returns P and S wave travel times from a hypocenter at
// depthKm below a point surfaceKm away from the target, modeling the crust
// as a linear velocity gradient medium and solving the critical-angle
// refraction ray in closed form. Each phase's implied velocity is capped.
func TravelTimes(depthKm, surfaceKm float64) WaveTime {
	g0 := shallowG0
	g := shallowG
	if depthKm > shallowDepthLimitKm {
		g0 = deepG0
		g = deepG
	}

	sqrt3 := math.Sqrt(3)
	p := rayTime(g0, g, depthKm, surfaceKm)
	s := rayTime(g0/sqrt3, g/sqrt3, depthKm, surfaceKm)

	if surfaceKm/p > maxPVelocityKmS {
		p = surfaceKm / maxPVelocityKmS
	}
	if surfaceKm/s > maxSVelocityKmS {
		s = surfaceKm / maxSVelocityKmS
	}

	return WaveTime{P: p, S: s}
}

// rayTime solves the travel time of a refraction ray through a medium whose
// velocity increases linearly with depth (v = g0 + g*z). The ray is a
// circular arc; the time integral has the closed form
// (1/g)*ln(tan(thetaA/2)/tan(thetaB/2)) between the take-off and emergence
// angles. Returns NaN for degenerate geometry (e.g. zero surface distance).
func rayTime(g0, g, depthKm, surfaceKm float64) float64 {
	if surfaceKm <= 0 {
		return math.NaN()
	}

	za := depthKm
	xb := surfaceKm

	// Center of the circular ray arc; zc is the virtual depth where the
	// gradient extrapolates to zero velocity.
	zc := -(g0 / g)
	xc := (xb*xb - 2*(g0/g)*za - za*za) / (2 * xb)

	thetaA := math.Atan((za - zc) / xc)
	if thetaA < 0 {
		thetaA += math.Pi
	}
	thetaA = math.Pi - thetaA

	thetaB := math.Atan(-zc / (xb - xc))

	return (1 / g) * math.Log(math.Tan(thetaA/2)/math.Tan(thetaB/2))
}
