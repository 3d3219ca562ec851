package grid

import (
	"math"

	"github.com/notargets/gobem/types"
)

// Geometry is the affine (triangle, segment) or bilinear (quadrilateral)
// map from the reference element to an element in 3D. Reference elements
// are the unit segment [0,1], the unit triangle {u,v >= 0, u+v <= 1} and
// the unit square with corners counterclockwise from the origin.
type Geometry struct {
	Variant types.ElementVariant
	Corners [][3]float64
}

func NewGeometry(corners [][3]float64) Geometry {
	return Geometry{
		Variant: types.ElementVariant(len(corners)),
		Corners: corners,
	}
}

func (g Geometry) Dim() int {
	if g.Variant == types.VariantSegment {
		return 1
	}
	return 2
}

// Global maps a reference point to world coordinates
func (g Geometry) Global(local [2]float64) (x [3]float64) {
	u, v := local[0], local[1]
	c := g.Corners
	for i := 0; i < 3; i++ {
		switch g.Variant {
		case types.VariantSegment:
			x[i] = c[0][i] + u*(c[1][i]-c[0][i])
		case types.VariantTriangle:
			x[i] = c[0][i] + u*(c[1][i]-c[0][i]) + v*(c[2][i]-c[0][i])
		case types.VariantQuad:
			x[i] = (1-u)*(1-v)*c[0][i] + u*(1-v)*c[1][i] + u*v*c[2][i] + (1-u)*v*c[3][i]
		}
	}
	return
}

// Jacobian returns the tangent vectors dx/du and dx/dv. The second is zero
// on segments.
func (g Geometry) Jacobian(local [2]float64) (tu, tv [3]float64) {
	u, v := local[0], local[1]
	c := g.Corners
	for i := 0; i < 3; i++ {
		switch g.Variant {
		case types.VariantSegment:
			tu[i] = c[1][i] - c[0][i]
		case types.VariantTriangle:
			tu[i] = c[1][i] - c[0][i]
			tv[i] = c[2][i] - c[0][i]
		case types.VariantQuad:
			tu[i] = (1-v)*(c[1][i]-c[0][i]) + v*(c[2][i]-c[3][i])
			tv[i] = (1-u)*(c[3][i]-c[0][i]) + u*(c[2][i]-c[1][i])
		}
	}
	return
}

// IntegrationElement is the surface (or length) measure density at a
// reference point
func (g Geometry) IntegrationElement(local [2]float64) float64 {
	tu, tv := g.Jacobian(local)
	if g.Variant == types.VariantSegment {
		return norm(tu)
	}
	return norm(Cross(tu, tv))
}

// Normal returns the unit normal, oriented by the right hand rule on the
// corner ordering
func (g Geometry) Normal(local [2]float64) (n [3]float64) {
	tu, tv := g.Jacobian(local)
	n = Cross(tu, tv)
	l := norm(n)
	if l == 0 {
		return
	}
	for i := range n {
		n[i] /= l
	}
	return
}

// ReferenceCenter is the barycenter of the reference element
func (g Geometry) ReferenceCenter() [2]float64 {
	switch g.Variant {
	case types.VariantSegment:
		return [2]float64{0.5, 0}
	case types.VariantTriangle:
		return [2]float64{1. / 3., 1. / 3.}
	}
	return [2]float64{0.5, 0.5}
}

func (g Geometry) Center() [3]float64 { return g.Global(g.ReferenceCenter()) }

// ReferenceVolume is the measure of the reference element
func (g Geometry) ReferenceVolume() float64 {
	if g.Variant == types.VariantTriangle {
		return 0.5
	}
	return 1
}

// Volume is the element area, or length for segments
func (g Geometry) Volume() float64 {
	if g.Variant != types.VariantQuad {
		return g.ReferenceVolume() * g.IntegrationElement(g.ReferenceCenter())
	}
	// 2x2 Gauss is exact for planar quadrilaterals
	var (
		a    = 0.5 - 0.5/math.Sqrt(3)
		b    = 0.5 + 0.5/math.Sqrt(3)
		area float64
	)
	for _, u := range [2]float64{a, b} {
		for _, v := range [2]float64{a, b} {
			area += 0.25 * g.IntegrationElement([2]float64{u, v})
		}
	}
	return area
}

// Diameter is the largest corner to corner distance
func (g Geometry) Diameter() (h float64) {
	for i := range g.Corners {
		for j := i + 1; j < len(g.Corners); j++ {
			h = math.Max(h, Distance(g.Corners[i], g.Corners[j]))
		}
	}
	return
}

func (g Geometry) BoundingBox() (bb types.BoundingBox) {
	bb = types.EmptyBoundingBox()
	for _, c := range g.Corners {
		bb.Extend(c)
	}
	bb.Reference = types.NewPoint3D(g.Center())
	return
}

func Cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func Dot(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func Distance(a, b [3]float64) float64 {
	return math.Sqrt((a[0]-b[0])*(a[0]-b[0]) + (a[1]-b[1])*(a[1]-b[1]) + (a[2]-b[2])*(a[2]-b[2]))
}

func norm(a [3]float64) float64 { return math.Sqrt(Dot(a, a)) }
