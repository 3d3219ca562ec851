package types

import (
	"fmt"
	"math"
)

/*
EdgeKey is an always positive number that stores an edge's vertices as indices in a way that can be compared.
An edge between vertices [4] and [0] will always be stored as [0,4], in the ascending order of the index values,
so the two elements sharing a mesh edge compute the same key regardless of their orientation.
*/
type EdgeKey uint64

func NewEdgeKey(verts [2]int) (packed EdgeKey) {
	var (
		limit = math.MaxUint32
	)
	for _, vert := range verts {
		if vert < 0 || vert > limit {
			panic(fmt.Errorf("unable to pack two ints into a uint64, have %d and %d as inputs",
				verts[0], verts[1]))
		}
	}
	var i1, i2 int
	if verts[0] <= verts[1] {
		i1, i2 = verts[0], verts[1]
	} else {
		i1, i2 = verts[1], verts[0]
	}
	packed = EdgeKey(i1 + i2<<32)
	return
}

func (ek EdgeKey) GetVertices(rev bool) (verts [2]int) {
	var (
		enTmp EdgeKey
	)
	enTmp = ek >> 32
	verts[1] = int(enTmp)
	verts[0] = int(ek - enTmp*(1<<32))
	if rev {
		verts[0], verts[1] = verts[1], verts[0]
	}
	return
}

// ElementVariant identifies the shape of an element by its corner count:
// 2 = segment, 3 = triangle, 4 = quadrilateral.
type ElementVariant int

const (
	VariantSegment  ElementVariant = 2
	VariantTriangle ElementVariant = 3
	VariantQuad     ElementVariant = 4
)

func (ev ElementVariant) String() string {
	switch ev {
	case VariantSegment:
		return "segment"
	case VariantTriangle:
		return "triangle"
	case VariantQuad:
		return "quadrilateral"
	}
	return fmt.Sprintf("variant(%d)", int(ev))
}

// ResultType is the scalar type an operator's discrete weak form is
// represented in. Storage is always complex128; Real operators carry
// zero imaginary parts.
type ResultType uint8

const (
	Real ResultType = iota
	Complex
)

func (rt ResultType) String() string {
	if rt == Complex {
		return "complex128"
	}
	return "float64"
}

// NewResultType parses the names used in input files
func NewResultType(label string) (rt ResultType, err error) {
	switch label {
	case "", "real", "float64", "Real":
		rt = Real
	case "complex", "complex128", "Complex":
		rt = Complex
	default:
		err = fmt.Errorf("%w: unknown result type %q", ErrConfiguration, label)
	}
	return
}
