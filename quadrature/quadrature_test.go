package quadrature

import (
	"math"
	"testing"

	"github.com/notargets/gobem/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestGaussJacobi(t *testing.T) {
	{ // Legendre nodes and weights for n = 3
		x, w := GaussJacobi(0, 0, 3)
		assert.InDeltaSlice(t, []float64{-math.Sqrt(0.6), 0, math.Sqrt(0.6)}, x, 1.e-14)
		assert.InDeltaSlice(t, []float64{5. / 9, 8. / 9, 5. / 9}, w, 1.e-14)
	}
	{ // Exactness for degree 2n-1 against the weight (1-x)
		x, w := GaussJacobi(1, 0, 4)
		for deg := 0; deg <= 7; deg++ {
			var sum float64
			for i := range x {
				sum += w[i] * math.Pow(x[i], float64(deg))
			}
			// integral of (1-x) x^d over [-1,1]
			var exact float64
			if deg%2 == 0 {
				exact = 2. / float64(deg+1)
			} else {
				exact = -2. / float64(deg+2)
			}
			assert.InDeltaf(t, exact, sum, 1.e-13, "degree %d", deg)
		}
		x, w = GaussJacobi(1, 0, 1)
		assert.InDelta(t, -1./3, x[0], 1.e-15)
		assert.InDelta(t, 2., w[0], 1.e-15)
	}
	{
		x, w := GaussLegendre01(5)
		assert.InDelta(t, 1., floats.Sum(w), 1.e-14)
		assert.True(t, floats.Min(x) > 0 && floats.Max(x) < 1)
	}
}

func TestElementRules(t *testing.T) {
	monomial := func(p [2]float64, a, b int) float64 {
		return math.Pow(p[0], float64(a)) * math.Pow(p[1], float64(b))
	}
	factorial := func(n int) float64 { return math.Gamma(float64(n + 1)) }
	for order := 0; order <= 8; order++ {
		tri, err := ElementRule(types.VariantTriangle, order)
		require.NoError(t, err)
		quad, err := ElementRule(types.VariantQuad, order)
		require.NoError(t, err)
		for a := 0; a <= order; a++ {
			for b := 0; a+b <= order; b++ {
				var sTri, sQuad float64
				for i, p := range tri.Points {
					sTri += tri.Weights[i] * monomial(p, a, b)
				}
				for i, p := range quad.Points {
					sQuad += quad.Weights[i] * monomial(p, a, b)
				}
				// integral of u^a v^b over the unit triangle
				exact := factorial(a) * factorial(b) / factorial(a+b+2)
				assert.InDeltaf(t, exact, sTri, 1.e-13, "triangle order %d, u^%d v^%d", order, a, b)
				assert.InDeltaf(t, 1./float64((a+1)*(b+1)), sQuad, 1.e-13, "quad u^%d v^%d", a, b)
			}
		}
	}
	seg, err := ElementRule(types.VariantSegment, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, seg.Len())
	_, err = ElementRule(types.ElementVariant(5), 3)
	assert.ErrorIs(t, err, types.ErrUnsupported)
}

var (
	cornerA = [3]float64{0, 0, 0}
	cornerB = [3]float64{1, 0.1, 0.2}
	cornerC = [3]float64{0.3, 1.2, 0.1}
	cornerD = [3]float64{0.5, -1, 0.3}
	cornerE = [3]float64{-1, 0.2, 0.5}
)

func affine(P [3][3]float64, p [2]float64) (x [3]float64) {
	for i := 0; i < 3; i++ {
		x[i] = P[0][i] + p[0]*(P[1][i]-P[0][i]) + p[1]*(P[2][i]-P[0][i])
	}
	return
}

func twiceArea(P [3][3]float64) float64 {
	var u, v [3]float64
	for i := 0; i < 3; i++ {
		u[i], v[i] = P[1][i]-P[0][i], P[2][i]-P[0][i]
	}
	c := [3]float64{u[1]*v[2] - u[2]*v[1], u[2]*v[0] - u[0]*v[2], u[0]*v[1] - u[1]*v[0]}
	return math.Sqrt(c[0]*c[0] + c[1]*c[1] + c[2]*c[2])
}

func integratePair(pr PairRule, P1, P2 [3][3]float64, f func(x, y [3]float64) float64) (sum float64) {
	for i, w := range pr.Weights {
		sum += w * f(affine(P1, pr.Test[i]), affine(P2, pr.Trial[i]))
	}
	return sum * twiceArea(P1) * twiceArea(P2)
}

func TestSauterSchwab(t *testing.T) {
	var (
		coincident = [2][3][3]float64{{cornerA, cornerB, cornerC}, {cornerA, cornerB, cornerC}}
		edge       = [2][3][3]float64{{cornerA, cornerB, cornerC}, {cornerA, cornerB, cornerD}}
		vertex     = [2][3][3]float64{{cornerA, cornerB, cornerC}, {cornerA, cornerD, cornerE}}
		cases      = map[Adjacency][2][3][3]float64{
			Coincident: coincident, SharedEdge: edge, SharedVertex: vertex,
		}
		smooth = func(x, y [3]float64) float64 {
			return 1 + x[0]*y[1]*y[1] + (x[0]-y[0])*(x[0]-y[0])*x[2] + y[2]*x[1]
		}
		inverseDistance = func(x, y [3]float64) float64 {
			dx, dy, dz := x[0]-y[0], x[1]-y[1], x[2]-y[2]
			return 1 / math.Sqrt(dx*dx+dy*dy+dz*dz)
		}
	)
	{ // Polynomial integrands agree with the tensor rule
		tri := TriangleRule(8)
		tensor := TensorPairRule(tri, tri)
		for adj, P := range cases {
			pr, err := SauterSchwabRule(adj, 5)
			require.NoError(t, err)
			assert.InDeltaf(t, 0.25, floats.Sum(pr.Weights), 1.e-13, "%v", adj)
			assert.InDeltaf(t, integratePair(tensor, P[0], P[1], smooth),
				integratePair(pr, P[0], P[1], smooth), 1.e-12, "%v", adj)
		}
	}
	{ // Weakly singular integrand against converged reference values
		reference := map[Adjacency]float64{
			Coincident:   1.3257001230036933,
			SharedEdge:   0.5041439178895849,
			SharedVertex: 0.3755874921973411,
		}
		for adj, P := range cases {
			pr, err := SauterSchwabRule(adj, 10)
			require.NoError(t, err)
			assert.InEpsilonf(t, reference[adj], integratePair(pr, P[0], P[1], inverseDistance),
				1.e-7, "%v", adj)
		}
	}
	{ // Singular rule agrees with a very high order regular rule on a vertex pair
		tri := TriangleRule(40)
		regular := integratePair(TensorPairRule(tri, tri), vertex[0], vertex[1], inverseDistance)
		pr, _ := SauterSchwabRule(SharedVertex, 8)
		assert.InEpsilon(t, regular, integratePair(pr, vertex[0], vertex[1], inverseDistance), 1.e-5)
	}
	{
		_, err := SauterSchwabRule(Disjoint, 3)
		assert.Error(t, err)
		_, err = SauterSchwabRule(Coincident, 0)
		assert.Error(t, err)
		pr, _ := SauterSchwabRule(Coincident, 2)
		assert.Equal(t, 6*16, pr.Len())
	}
}

func TestStrategy(t *testing.T) {
	ns := NewNumericalStrategy(DefaultAccuracyOptions())
	d := PairDescriptor{
		TestVariant: types.VariantTriangle, TrialVariant: types.VariantTriangle,
		TestBasisOrder: 0, TrialBasisOrder: 1,
		TestSize: 1, TrialSize: 1,
		SingularityOrder: 1,
	}
	for _, tc := range []struct {
		distance  float64
		testOrder int
	}{{0.4, 5}, {1, 4}, {1.5, 3}, {3, 2}, {10, 1}} {
		d.Distance = tc.distance
		testOrder, trialOrder := ns.RegularOrders(d)
		assert.Equalf(t, tc.testOrder, testOrder, "distance %v", tc.distance)
		assert.Equal(t, max(tc.testOrder+1, 1), trialOrder)
	}
	{ // Orders increase with oscillation
		d.Distance = 3
		d.WaveNumber = complex(0, -5)
		testOrder, _ := ns.RegularOrders(d)
		assert.Equal(t, 7, testOrder)
		assert.Equal(t, 1+3+5, ns.SingularPointCount(d))
		d.WaveNumber = 2
		assert.Equal(t, 4, ns.SingularPointCount(d))
	}
	{ // Far pairs are clamped at the minimum order
		d.Distance, d.WaveNumber = 100, 0
		d.TestBasisOrder = 0
		opts := DefaultAccuracyOptions()
		opts.RegularIncrement = 0
		testOrder, _ := NewNumericalStrategy(opts).RegularOrders(d)
		assert.Equal(t, 1, testOrder)
	}
}
