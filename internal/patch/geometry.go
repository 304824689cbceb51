package patch

import (
	"math"

	"github.com/star/cesched/internal/transform"
)

const (
	// centerCorners is the number of corners synthesized around a patch center.
	centerCorners = 8

	// controlStep is the maximum spacing of rectangle edge control points.
	controlStep = 5 * math.Pi / 180.0
)

// CenterWidth synthesizes an 8-corner polygon on a circle of diameter width
// around (lon, lat) given in system c. The center is converted to J2000
// equatorial first; the azimuthal offsets are stretched by 1/cos(dec).
func CenterWidth(c transform.CoordSystem, lon, lat, width float64) []transform.Equatorial {
	center := transform.ToEquatorial(c, lon, lat)
	r := width / 2
	step := 2 * math.Pi / centerCorners

	corners := make([]transform.Equatorial, 0, centerCorners)
	for i := 0; i < centerCorners; i++ {
		sinA, cosA := math.Sincos(step * float64(i))
		dDec := cosA * r
		dRA := sinA * r / math.Cos(center.Dec+dDec)
		corners = append(corners, transform.Equatorial{
			RA:  transform.NormalizeAngle(center.RA + dRA),
			Dec: center.Dec + dDec,
		})
	}
	return corners
}

// Rectangle builds the polygon NW, NE, SE, SW of a (lon, lat) box in system c,
// inserting control points every 5 deg or less along each edge so that large
// boxes keep their shape after conversion. Longitude decreases from the left
// edge to the right edge, as on a sky map. Control points are placed in the
// native system and each converted to J2000 equatorial.
func Rectangle(c transform.CoordSystem, lonLeft, latTop, lonRight, latBottom float64) []transform.Equatorial {
	var native [][2]float64
	add := func(lon, lat float64) {
		native = append(native, [2]float64{transform.NormalizeAngle(lon), lat})
	}

	// Top edge, left to right.
	add(lonLeft, latTop)
	span := lonLeft - lonRight
	if span < 0 {
		span += 2 * math.Pi
	}
	for _, lon := range interior(lonLeft, -span, controlStep/math.Cos(latTop)) {
		add(lon, latTop)
	}

	// Right edge, top to bottom.
	add(lonRight, latTop)
	for _, lat := range interior(latTop, latBottom-latTop, controlStep) {
		add(lonRight, lat)
	}

	// Bottom edge, right to left.
	add(lonRight, latBottom)
	for _, lon := range interior(lonRight, span, controlStep/math.Cos(latBottom)) {
		add(lon, latBottom)
	}

	// Left edge, bottom to top.
	add(lonLeft, latBottom)
	for _, lat := range interior(latBottom, latTop-latBottom, controlStep) {
		add(lonLeft, lat)
	}

	corners := make([]transform.Equatorial, len(native))
	for i, p := range native {
		corners[i] = transform.ToEquatorial(c, p[0], p[1])
	}
	return corners
}

// interior returns the evenly spaced points strictly between from and
// from+delta, using the fewest points that keep spacing at or below step.
func interior(from, delta, step float64) []float64 {
	n := int(math.Floor(math.Abs(delta) / step))
	if n <= 0 {
		return nil
	}
	inc := delta / float64(n+1)
	out := make([]float64, n)
	for k := range out {
		out[k] = from + float64(k+1)*inc
	}
	return out
}

// Explicit converts (lon, lat) pairs in system c to J2000 equatorial corners.
func Explicit(c transform.CoordSystem, pairs [][2]float64) []transform.Equatorial {
	corners := make([]transform.Equatorial, len(pairs))
	for i, p := range pairs {
		corners[i] = transform.ToEquatorial(c, p[0], p[1])
	}
	return corners
}
