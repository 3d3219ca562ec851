package basis

import (
	"fmt"

	"github.com/notargets/gobem/types"
)

// DataFlags selects which basis data Evaluate computes
type DataFlags uint8

const (
	Values DataFlags = 1 << iota
	Derivatives
)

// Data holds basis data at a set of reference points, indexed
// [local dof][point]. Derivatives are with respect to the reference
// coordinates (u, v).
type Data struct {
	Values      [][]float64
	Derivatives [][][2]float64
}

// Basis is a set of shape functions on a reference element
type Basis interface {
	Variant() types.ElementVariant
	Order() int
	Size() int
	// Nodes are the reference positions of the local dofs
	Nodes() [][2]float64
	Evaluate(what DataFlags, points [][2]float64) Data
}

const MaxTriangleOrder = 10

// New returns the Lagrange basis of the given order on a reference element
func New(variant types.ElementVariant, order int) (b Basis, err error) {
	if order < 0 {
		err = fmt.Errorf("%w: negative polynomial order %d", types.ErrConfiguration, order)
		return
	}
	switch variant {
	case types.VariantSegment:
		switch order {
		case 0:
			b = Constant{variant}
		case 1:
			b = LinearSegment{}
		default:
			err = fmt.Errorf("%w: segment basis of order %d", types.ErrConfiguration, order)
		}
	case types.VariantTriangle:
		switch {
		case order == 0:
			b = Constant{variant}
		case order == 1:
			b = LinearTriangle{}
		case order <= MaxTriangleOrder:
			b = NewLagrangeTriangle(order)
		default:
			err = fmt.Errorf("%w: triangle basis order %d exceeds %d",
				types.ErrConfiguration, order, MaxTriangleOrder)
		}
	case types.VariantQuad:
		switch {
		case order == 0:
			b = Constant{variant}
		case order == 1:
			b = LinearQuad{}
		case order <= MaxTriangleOrder:
			b = NewLagrangeQuad(order)
		default:
			err = fmt.Errorf("%w: quadrilateral basis order %d exceeds %d",
				types.ErrConfiguration, order, MaxTriangleOrder)
		}
	default:
		err = fmt.Errorf("%w: no basis for %v", types.ErrUnsupported, variant)
	}
	return
}

func newData(what DataFlags, size, nPts int) (d Data) {
	if what&Values != 0 {
		d.Values = make([][]float64, size)
		for i := range d.Values {
			d.Values[i] = make([]float64, nPts)
		}
	}
	if what&Derivatives != 0 {
		d.Derivatives = make([][][2]float64, size)
		for i := range d.Derivatives {
			d.Derivatives[i] = make([][2]float64, nPts)
		}
	}
	return
}

// Constant is the order 0 basis on any reference element
type Constant struct {
	variant types.ElementVariant
}

func (c Constant) Variant() types.ElementVariant { return c.variant }
func (Constant) Order() int                      { return 0 }
func (Constant) Size() int                       { return 1 }

func (c Constant) Nodes() [][2]float64 {
	switch c.variant {
	case types.VariantTriangle:
		return [][2]float64{{1. / 3, 1. / 3}}
	case types.VariantSegment:
		return [][2]float64{{0.5, 0}}
	}
	return [][2]float64{{0.5, 0.5}}
}

func (Constant) Evaluate(what DataFlags, points [][2]float64) (d Data) {
	d = newData(what, 1, len(points))
	if d.Values != nil {
		for i := range points {
			d.Values[0][i] = 1
		}
	}
	return
}

type LinearSegment struct{}

func (LinearSegment) Variant() types.ElementVariant { return types.VariantSegment }
func (LinearSegment) Order() int                    { return 1 }
func (LinearSegment) Size() int                     { return 2 }
func (LinearSegment) Nodes() [][2]float64           { return [][2]float64{{0, 0}, {1, 0}} }

func (LinearSegment) Evaluate(what DataFlags, points [][2]float64) (d Data) {
	d = newData(what, 2, len(points))
	for i, p := range points {
		if d.Values != nil {
			d.Values[0][i], d.Values[1][i] = 1-p[0], p[0]
		}
		if d.Derivatives != nil {
			d.Derivatives[0][i], d.Derivatives[1][i] = [2]float64{-1, 0}, [2]float64{1, 0}
		}
	}
	return
}

// LinearTriangle has one dof per corner, in corner order
type LinearTriangle struct{}

func (LinearTriangle) Variant() types.ElementVariant { return types.VariantTriangle }
func (LinearTriangle) Order() int                    { return 1 }
func (LinearTriangle) Size() int                     { return 3 }
func (LinearTriangle) Nodes() [][2]float64           { return [][2]float64{{0, 0}, {1, 0}, {0, 1}} }

func (LinearTriangle) Evaluate(what DataFlags, points [][2]float64) (d Data) {
	d = newData(what, 3, len(points))
	for i, p := range points {
		if d.Values != nil {
			d.Values[0][i] = 1 - p[0] - p[1]
			d.Values[1][i] = p[0]
			d.Values[2][i] = p[1]
		}
		if d.Derivatives != nil {
			d.Derivatives[0][i] = [2]float64{-1, -1}
			d.Derivatives[1][i] = [2]float64{1, 0}
			d.Derivatives[2][i] = [2]float64{0, 1}
		}
	}
	return
}

// LinearQuad has one dof per corner, counterclockwise from the origin
type LinearQuad struct{}

func (LinearQuad) Variant() types.ElementVariant { return types.VariantQuad }
func (LinearQuad) Order() int                    { return 1 }
func (LinearQuad) Size() int                     { return 4 }
func (LinearQuad) Nodes() [][2]float64           { return [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}} }

func (LinearQuad) Evaluate(what DataFlags, points [][2]float64) (d Data) {
	d = newData(what, 4, len(points))
	for i, p := range points {
		u, v := p[0], p[1]
		if d.Values != nil {
			d.Values[0][i] = (1 - u) * (1 - v)
			d.Values[1][i] = u * (1 - v)
			d.Values[2][i] = u * v
			d.Values[3][i] = (1 - u) * v
		}
		if d.Derivatives != nil {
			d.Derivatives[0][i] = [2]float64{-(1 - v), -(1 - u)}
			d.Derivatives[1][i] = [2]float64{1 - v, -u}
			d.Derivatives[2][i] = [2]float64{v, u}
			d.Derivatives[3][i] = [2]float64{-v, 1 - u}
		}
	}
	return
}
