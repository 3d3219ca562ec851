package fiber

import (
	"fmt"

	"github.com/notargets/gobem/grid"
	"github.com/notargets/gobem/types"
	"gonum.org/v1/gonum/mat"
)

// GeomDeps is a mask of the geometrical quantities an evaluation needs
type GeomDeps uint8

const (
	Globals GeomDeps = 1 << iota
	Normals
	IntegrationElements
	Jacobians
	JacobianInversesTransposed
)

// GeometricalData holds per point geometry of one element. Slices not
// requested in Deps are nil.
type GeometricalData struct {
	Deps                       GeomDeps
	Globals                    [][3]float64
	Normals                    [][3]float64
	IntegrationElements        []float64
	Jacobians                  [][2][3]float64 // tangents dx/du, dx/dv
	JacobianInversesTransposed [][2][3]float64 // columns of J (J^T J)^-1
}

// ComputeGeometricalData evaluates the requested quantities of an element at
// reference points
func ComputeGeometricalData(geom grid.Geometry, element int, points [][2]float64,
	deps GeomDeps) (gd GeometricalData, err error) {
	var (
		np = len(points)
	)
	if deps&(Normals|JacobianInversesTransposed) != 0 && geom.Dim() != 2 {
		err = fmt.Errorf("%w: normals of %v element %d", types.ErrUnsupported, geom.Variant, element)
		return
	}
	gd.Deps = deps
	if deps&Globals != 0 {
		gd.Globals = make([][3]float64, np)
	}
	if deps&Normals != 0 {
		gd.Normals = make([][3]float64, np)
	}
	if deps&IntegrationElements != 0 {
		gd.IntegrationElements = make([]float64, np)
	}
	if deps&Jacobians != 0 {
		gd.Jacobians = make([][2][3]float64, np)
	}
	if deps&JacobianInversesTransposed != 0 {
		gd.JacobianInversesTransposed = make([][2][3]float64, np)
	}
	for ip, pt := range points {
		if gd.Globals != nil {
			gd.Globals[ip] = geom.Global(pt)
		}
		if gd.IntegrationElements != nil {
			ie := geom.IntegrationElement(pt)
			if ie <= 0 {
				err = types.NewElementError(element, "zero integration element")
				return
			}
			gd.IntegrationElements[ip] = ie
		}
		if gd.Normals != nil {
			gd.Normals[ip] = geom.Normal(pt)
		}
		if gd.Jacobians == nil && gd.JacobianInversesTransposed == nil {
			continue
		}
		tu, tv := geom.Jacobian(pt)
		if gd.Jacobians != nil {
			gd.Jacobians[ip] = [2][3]float64{tu, tv}
		}
		if gd.JacobianInversesTransposed != nil {
			if gd.JacobianInversesTransposed[ip], err = pseudoInverseTransposed(tu, tv); err != nil {
				err = types.NewElementError(element, err.Error())
				return
			}
		}
	}
	return
}

// ComputeGeometricalDataBatch evaluates the same reference points on a list
// of elements
func ComputeGeometricalDataBatch(g grid.Grid, elements []int, points [][2]float64,
	deps GeomDeps) (gds []GeometricalData, err error) {
	gds = make([]GeometricalData, len(elements))
	for i, e := range elements {
		if gds[i], err = ComputeGeometricalData(g.Geometry(e), e, points, deps); err != nil {
			return nil, err
		}
	}
	return
}

// pseudoInverseTransposed returns the columns of J (J^T J)^-1 for the 3x2
// Jacobian J = [tu tv]. Applied to a reference gradient it gives the
// surface gradient.
func pseudoInverseTransposed(tu, tv [3]float64) (jit [2][3]float64, err error) {
	var (
		J    = mat.NewDense(3, 2, []float64{tu[0], tv[0], tu[1], tv[1], tu[2], tv[2]})
		G    mat.Dense
		Ginv mat.Dense
		JIT  mat.Dense
	)
	G.Mul(J.T(), J)
	if err = Ginv.Inverse(&G); err != nil {
		return jit, fmt.Errorf("degenerate jacobian: %v", err)
	}
	JIT.Mul(J, &Ginv)
	for c := 0; c < 2; c++ {
		for i := 0; i < 3; i++ {
			jit[c][i] = JIT.At(i, c)
		}
	}
	return
}
