package quadrature

import (
	"fmt"
	"sync"

	"github.com/notargets/gobem/types"
)

// Rule is a quadrature rule on a reference element. Weights sum to the
// reference measure: 1 for segments and squares, 1/2 for the triangle.
type Rule struct {
	Points  [][2]float64
	Weights []float64
	Order   int
}

func (r Rule) Len() int { return len(r.Weights) }

type ruleKey struct {
	variant types.ElementVariant
	order   int
}

var ruleCache sync.Map // ruleKey -> Rule

// ElementRule returns a rule on the reference element of the given variant
// exact for polynomials of total degree order (per direction on squares).
// Rules are shared and must not be modified.
func ElementRule(variant types.ElementVariant, order int) (rule Rule, err error) {
	if order < 0 {
		order = 0
	}
	key := ruleKey{variant, order}
	if r, ok := ruleCache.Load(key); ok {
		return r.(Rule), nil
	}
	switch variant {
	case types.VariantSegment:
		rule = SegmentRule(order)
	case types.VariantTriangle:
		rule = TriangleRule(order)
	case types.VariantQuad:
		rule = QuadRule(order)
	default:
		err = fmt.Errorf("%w: no quadrature for element %v", types.ErrUnsupported, variant)
		return
	}
	ruleCache.Store(key, rule)
	return
}

func SegmentRule(order int) (rule Rule) {
	x, w := GaussLegendre01(PointsForOrder(order))
	rule = Rule{Order: order, Weights: w, Points: make([][2]float64, len(x))}
	for i := range x {
		rule.Points[i] = [2]float64{x[i], 0}
	}
	return
}

// TriangleRule is the collapsed (Duffy) product of Gauss-Legendre and
// Gauss-Jacobi(1,0) rules mapped to the unit triangle
func TriangleRule(order int) (rule Rule) {
	var (
		n      = PointsForOrder(order)
		a, wa  = GaussJacobi(0, 0, n)
		b, wb  = GaussJacobi(1, 0, n)
		points = make([][2]float64, 0, n*n)
		w      = make([]float64, 0, n*n)
	)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			r := (1+a[i])*(1-b[j])/2 - 1
			s := b[j]
			points = append(points, [2]float64{(1 + r) / 2, (1 + s) / 2})
			w = append(w, 0.5*wa[i]*wb[j]/4)
		}
	}
	return Rule{Points: points, Weights: w, Order: order}
}

// QuadRule is the tensor Gauss-Legendre rule on the unit square
func QuadRule(order int) (rule Rule) {
	var (
		x, wx  = GaussLegendre01(PointsForOrder(order))
		n      = len(x)
		points = make([][2]float64, 0, n*n)
		w      = make([]float64, 0, n*n)
	)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			points = append(points, [2]float64{x[i], x[j]})
			w = append(w, wx[i]*wx[j])
		}
	}
	return Rule{Points: points, Weights: w, Order: order}
}
