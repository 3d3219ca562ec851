package fiber

import (
	"fmt"

	"github.com/notargets/gobem/basis"
	"github.com/notargets/gobem/types"
)

// TransformationFunctor maps reference shape function data to the physical
// quantity entering an integrand
type TransformationFunctor interface {
	Name() string
	ComponentCount() int
	AddDependencies(basisDeps *basis.DataFlags, geomDeps *GeomDeps)
	// Check fails if data the transformation declared is missing
	Check(b basis.Data, geom *GeometricalData) error
	// Evaluate writes the components of shape function dof at point into out
	Evaluate(b basis.Data, geom *GeometricalData, dof, point int, out []float64)
}

func missing(name, what string) error {
	return fmt.Errorf("%w: %s transformation evaluated without %s", types.ErrConfiguration, name, what)
}

// ScalarValue is the identity transformation
type ScalarValue struct{}

func (ScalarValue) Name() string        { return "scalar value" }
func (ScalarValue) ComponentCount() int { return 1 }

func (ScalarValue) AddDependencies(basisDeps *basis.DataFlags, geomDeps *GeomDeps) {
	*basisDeps |= basis.Values
}

func (s ScalarValue) Check(b basis.Data, geom *GeometricalData) error {
	if b.Values == nil {
		return missing(s.Name(), "basis values")
	}
	return nil
}

func (ScalarValue) Evaluate(b basis.Data, geom *GeometricalData, dof, point int, out []float64) {
	out[0] = b.Values[dof][point]
}

// SurfaceGradient is the tangential gradient J (J^T J)^-1 grad_ref
type SurfaceGradient struct{}

func (SurfaceGradient) Name() string        { return "surface gradient" }
func (SurfaceGradient) ComponentCount() int { return 3 }

func (SurfaceGradient) AddDependencies(basisDeps *basis.DataFlags, geomDeps *GeomDeps) {
	*basisDeps |= basis.Derivatives
	*geomDeps |= JacobianInversesTransposed
}

func (s SurfaceGradient) Check(b basis.Data, geom *GeometricalData) error {
	if b.Derivatives == nil {
		return missing(s.Name(), "basis derivatives")
	}
	if geom.JacobianInversesTransposed == nil {
		return missing(s.Name(), "jacobian inverses")
	}
	return nil
}

func (SurfaceGradient) Evaluate(b basis.Data, geom *GeometricalData, dof, point int, out []float64) {
	var (
		d   = b.Derivatives[dof][point]
		jit = geom.JacobianInversesTransposed[point]
	)
	for i := 0; i < 3; i++ {
		out[i] = d[0]*jit[0][i] + d[1]*jit[1][i]
	}
}

// SurfaceCurl is n x grad_surface
type SurfaceCurl struct{}

func (SurfaceCurl) Name() string        { return "surface curl" }
func (SurfaceCurl) ComponentCount() int { return 3 }

func (SurfaceCurl) AddDependencies(basisDeps *basis.DataFlags, geomDeps *GeomDeps) {
	*basisDeps |= basis.Derivatives
	*geomDeps |= JacobianInversesTransposed | Normals
}

func (s SurfaceCurl) Check(b basis.Data, geom *GeometricalData) error {
	if err := (SurfaceGradient{}).Check(b, geom); err != nil {
		return err
	}
	if geom.Normals == nil {
		return missing(s.Name(), "normals")
	}
	return nil
}

func (SurfaceCurl) Evaluate(b basis.Data, geom *GeometricalData, dof, point int, out []float64) {
	var (
		g [3]float64
		n = geom.Normals[point]
	)
	SurfaceGradient{}.Evaluate(b, geom, dof, point, g[:])
	out[0] = n[1]*g[2] - n[2]*g[1]
	out[1] = n[2]*g[0] - n[0]*g[2]
	out[2] = n[0]*g[1] - n[1]*g[0]
}

// ValueTimesNormal is the shape function value times the unit normal
type ValueTimesNormal struct{}

func (ValueTimesNormal) Name() string        { return "value times normal" }
func (ValueTimesNormal) ComponentCount() int { return 3 }

func (ValueTimesNormal) AddDependencies(basisDeps *basis.DataFlags, geomDeps *GeomDeps) {
	*basisDeps |= basis.Values
	*geomDeps |= Normals
}

func (s ValueTimesNormal) Check(b basis.Data, geom *GeometricalData) error {
	if b.Values == nil {
		return missing(s.Name(), "basis values")
	}
	if geom.Normals == nil {
		return missing(s.Name(), "normals")
	}
	return nil
}

func (ValueTimesNormal) Evaluate(b basis.Data, geom *GeometricalData, dof, point int, out []float64) {
	v := b.Values[dof][point]
	n := geom.Normals[point]
	out[0], out[1], out[2] = v*n[0], v*n[1], v*n[2]
}

// UnionDependencies merges the declarations of a set of transformations
func UnionDependencies(transformations []TransformationFunctor) (basisDeps basis.DataFlags, geomDeps GeomDeps) {
	for _, tr := range transformations {
		tr.AddDependencies(&basisDeps, &geomDeps)
	}
	return
}
