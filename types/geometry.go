package types

import "math"

type Point3D struct {
	X, Y, Z float64
}

func NewPoint3D(x [3]float64) Point3D { return Point3D{x[0], x[1], x[2]} }

func (p Point3D) Array() [3]float64 { return [3]float64{p.X, p.Y, p.Z} }

func (p Point3D) Sub(q Point3D) Point3D { return Point3D{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }

func (p Point3D) Norm() float64 { return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z) }

// BoundingBox is the axis aligned box enclosing the support of a DOF.
// Reference is the DOF position and always lies inside [Lbound, Ubound].
type BoundingBox struct {
	Reference      Point3D
	Lbound, Ubound Point3D
}

// EmptyBoundingBox returns an inverted box that any Extend call will reset.
func EmptyBoundingBox() BoundingBox {
	return BoundingBox{
		Lbound: Point3D{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64},
		Ubound: Point3D{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64},
	}
}

func (bb *BoundingBox) Extend(x [3]float64) {
	bb.Lbound.X = math.Min(bb.Lbound.X, x[0])
	bb.Lbound.Y = math.Min(bb.Lbound.Y, x[1])
	bb.Lbound.Z = math.Min(bb.Lbound.Z, x[2])
	bb.Ubound.X = math.Max(bb.Ubound.X, x[0])
	bb.Ubound.Y = math.Max(bb.Ubound.Y, x[1])
	bb.Ubound.Z = math.Max(bb.Ubound.Z, x[2])
}

func (bb *BoundingBox) Merge(o BoundingBox) {
	bb.Extend(o.Lbound.Array())
	bb.Extend(o.Ubound.Array())
}

func (bb BoundingBox) Contains(p Point3D) bool {
	return p.X >= bb.Lbound.X && p.Y >= bb.Lbound.Y && p.Z >= bb.Lbound.Z &&
		p.X <= bb.Ubound.X && p.Y <= bb.Ubound.Y && p.Z <= bb.Ubound.Z
}

// Diameter is the length of the box diagonal
func (bb BoundingBox) Diameter() float64 {
	return bb.Ubound.Sub(bb.Lbound).Norm()
}

// Distance returns the Euclidean gap between two boxes, 0 if they overlap
func (bb BoundingBox) Distance(o BoundingBox) float64 {
	gap := func(l1, u1, l2, u2 float64) float64 {
		switch {
		case u1 < l2:
			return l2 - u1
		case u2 < l1:
			return l1 - u2
		}
		return 0
	}
	dx := gap(bb.Lbound.X, bb.Ubound.X, o.Lbound.X, o.Ubound.X)
	dy := gap(bb.Lbound.Y, bb.Ubound.Y, o.Lbound.Y, o.Ubound.Y)
	dz := gap(bb.Lbound.Z, bb.Ubound.Z, o.Lbound.Z, o.Ubound.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
