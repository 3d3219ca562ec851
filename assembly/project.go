package assembly

import (
	"fmt"

	"github.com/notargets/gobem/basis"
	"github.com/notargets/gobem/fiber"
	"github.com/notargets/gobem/quadrature"
	"github.com/notargets/gobem/space"
	"github.com/notargets/gobem/types"
	"github.com/notargets/gobem/utils"
)

// SurfaceFunction is evaluated at a surface point with its unit normal
type SurfaceFunction func(x, normal [3]float64) complex128

// ProjectFunction returns the projections <f, psi_i> of a function onto the
// dofs of a dual space
func ProjectFunction(dual space.Space, f SurfaceFunction, opts Options) (proj []complex128, err error) {
	if dual == nil || f == nil {
		return nil, fmt.Errorf("%w: projection needs a space and a function", types.ErrConfiguration)
	}
	var (
		g         = dual.Grid()
		nElements = g.EntityCount(0)
	)
	proj = make([]complex128, dual.GlobalDofCount())
	for e := 0; e < nElements; e++ {
		var (
			b     = dual.Basis(e)
			geom  = g.Geometry(e)
			order = b.Order() + opts.Accuracy.RegularIncrement
			rule  quadrature.Rule
			gd    fiber.GeometricalData
		)
		if rule, err = quadrature.ElementRule(geom.Variant, max(order, 1)); err != nil {
			return nil, err
		}
		deps := fiber.Globals | fiber.IntegrationElements
		if geom.Dim() == 2 {
			deps |= fiber.Normals
		}
		if gd, err = fiber.ComputeGeometricalData(geom, e, rule.Points, deps); err != nil {
			return nil, err
		}
		values := b.Evaluate(basis.Values, rule.Points).Values
		for a, i := range dual.GlobalDofs(e) {
			for q, w := range rule.Weights {
				var n [3]float64
				if gd.Normals != nil {
					n = gd.Normals[q]
				}
				proj[i] += f(gd.Globals[q], n) * complex(w*gd.IntegrationElements[q]*values[a][q], 0)
			}
		}
	}
	if utils.IsNonFinite(proj) {
		return nil, fmt.Errorf("%w: non-finite projection", types.ErrNumerical)
	}
	return
}
