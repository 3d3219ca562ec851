package fiber

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/notargets/gobem/grid"
	"github.com/notargets/gobem/quadrature"
	"github.com/notargets/gobem/space"
	"github.com/notargets/gobem/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slpTerm(t *testing.T, kappa complex128, rt types.ResultType) Term {
	k, err := NewKernel(SingleLayer, kappa, rt)
	require.NoError(t, err)
	return Term{
		Kernel:               k,
		TestTransformations:  []TransformationFunctor{ScalarValue{}},
		TrialTransformations: []TransformationFunctor{ScalarValue{}},
		Integrand:            ScalarProductIntegrand{},
		Weight:               1,
	}
}

func accurateStrategy(singular int) quadrature.Strategy {
	opts := quadrature.DefaultAccuracyOptions()
	opts.SingularIncrement = singular
	return quadrature.NewNumericalStrategy(opts)
}

func TestClassify(t *testing.T) {
	{
		m, err := grid.NewTwoTriangles()
		require.NoError(t, err)
		pa, err := Classify(m, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, quadrature.Coincident, pa.Kind)
		assert.Equal(t, 3, pa.NShared)
		pa, err = Classify(m, 0, 1)
		require.NoError(t, err)
		assert.Equal(t, quadrature.SharedEdge, pa.Kind)
		// Elements (0,1,2) and (0,2,3) share corners 0 and 2 of the first
		assert.Equal(t, SharedCorner{0, 0}, pa.Shared[0])
		assert.Equal(t, SharedCorner{2, 1}, pa.Shared[1])
	}
	{
		m, err := grid.NewScreen(2, 2, true)
		require.NoError(t, err)
		pa, err := Classify(m, 0, 2)
		require.NoError(t, err)
		assert.Equal(t, quadrature.SharedVertex, pa.Kind)
		pa, err = Classify(m, 0, 1)
		require.NoError(t, err)
		assert.Equal(t, quadrature.SharedEdge, pa.Kind)
	}
	{ // Duplicate elements are rejected
		m, err := grid.NewMesh([][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			[][]int{{0, 1, 2}, {1, 2, 0}})
		require.NoError(t, err)
		_, err = Classify(m, 0, 1)
		assert.ErrorIs(t, err, types.ErrConfiguration)
	}
	{ // Quad parts cover the square
		testPts, trialPts, w, err := buildSingularRule(types.VariantQuad, types.VariantQuad,
			PairAdjacency{Kind: quadrature.Coincident, NShared: 4,
				Shared: [4]SharedCorner{{0, 0}, {1, 1}, {2, 2}, {3, 3}}}, 3)
		require.NoError(t, err)
		var sum float64
		for q := range w {
			sum += w[q]
			for _, p := range [][2]float64{testPts[q], trialPts[q]} {
				assert.True(t, p[0] >= 0 && p[0] <= 1 && p[1] >= 0 && p[1] <= 1)
			}
		}
		assert.InDelta(t, 1., sum, 1.e-13)
	}
}

func TestKernels(t *testing.T) {
	{
		_, err := NewKernel(SingleLayer, complex(0, -2), types.Real)
		assert.ErrorIs(t, err, types.ErrConfiguration)
		_, err = NewKernel(SingleLayer, -1, types.Real)
		assert.ErrorIs(t, err, types.ErrConfiguration)
		k, err := NewKernel(SingleLayer, complex(0, -2), types.Complex)
		require.NoError(t, err)
		assert.Equal(t, 1., k.EstimateRelativeScale(10))
		k, _ = NewKernel(SingleLayer, 0.5, types.Real)
		assert.InDelta(t, math.Exp(-1), k.EstimateRelativeScale(2), 1.e-15)
		assert.Equal(t, 1, k.SingularityOrder())
	}
	var (
		x     = [3]float64{0.1, 0.2, 0.3}
		y     = [3]float64{1, -0.5, 0.7}
		ny    = [3]float64{0, 0.6, 0.8}
		nx    = [3]float64{1, 0, 0}
		test  = GeometricalData{Globals: [][3]float64{x}, Normals: [][3]float64{nx}}
		trial = GeometricalData{Globals: [][3]float64{y}, Normals: [][3]float64{ny}}
		kappa = complex(0.3, -1.1)
	)
	{ // Double layer kernels are normal derivatives of the single layer
		slp, _ := NewKernel(SingleLayer, kappa, types.Complex)
		dlp, _ := NewKernel(DoubleLayer, kappa, types.Complex)
		adlp, _ := NewKernel(AdjointDoubleLayer, kappa, types.Complex)
		r := grid.Distance(x, y)
		assert.InDelta(t, 0., cmplx.Abs(slp.Evaluate(&test, &trial, 0, 0)-
			cmplx.Exp(-kappa*complex(r, 0))/complex(4*math.Pi*r, 0)), 1.e-15)
		const eps = 1.e-6
		shifted := func(p, n [3]float64, s float64) GeometricalData {
			return GeometricalData{Globals: [][3]float64{{p[0] + s*n[0], p[1] + s*n[1], p[2] + s*n[2]}}}
		}
		yp, ym := shifted(y, ny, eps), shifted(y, ny, -eps)
		fd := (slp.Evaluate(&test, &yp, 0, 0) - slp.Evaluate(&test, &ym, 0, 0)) / (2 * eps)
		assert.InDelta(t, 0., cmplx.Abs(fd-dlp.Evaluate(&test, &trial, 0, 0)), 1.e-8)
		xp, xm := shifted(x, nx, eps), shifted(x, nx, -eps)
		fd = (slp.Evaluate(&xp, &trial, 0, 0) - slp.Evaluate(&xm, &trial, 0, 0)) / (2 * eps)
		assert.InDelta(t, 0., cmplx.Abs(fd-adlp.Evaluate(&test, &trial, 0, 0)), 1.e-8)

		var tg, sg GeomDeps
		dlp.AddGeometricalDependencies(&tg, &sg)
		assert.Equal(t, Globals, tg)
		assert.Equal(t, Globals|Normals, sg)
	}
	{ // Interpolated kernel
		base, _ := NewKernel(DoubleLayer, kappa, types.Complex)
		ik, err := NewInterpolatedKernel(base, 4, DefaultPointsPerWavelength, 1.e-9)
		require.NoError(t, err)
		for _, r := range []float64{0, 0.013, 0.5, 1.7, 3.99, 6} {
			assert.InDeltaf(t, 0., cmplx.Abs(ik.Exp(r)-cmplx.Exp(-kappa*complex(r, 0))), 1.e-9, "r = %v", r)
		}
		assert.InDelta(t, 0., cmplx.Abs(ik.Evaluate(&test, &trial, 0, 0)-base.Evaluate(&test, &trial, 0, 0)), 1.e-9)
		coarse, _ := NewInterpolatedKernel(base, 4, DefaultPointsPerWavelength, 1.e-3)
		assert.True(t, coarse.Intervals() < ik.Intervals())
		laplace, _ := NewKernel(SingleLayer, 0, types.Real)
		lk, _ := NewInterpolatedKernel(laplace, 4, DefaultPointsPerWavelength, 1.e-12)
		assert.Equal(t, minimumIntervals, lk.Intervals())
		_, err = NewInterpolatedKernel(base, 0, 10, 1.e-6)
		assert.ErrorIs(t, err, types.ErrConfiguration)
	}
	{ // Distances just below the table end use the last interval
		kappa := complex(0, -3)
		base, _ := NewKernel(SingleLayer, kappa, types.Complex)
		for _, md := range []float64{2 * math.Sqrt(3), math.Sqrt(3)} {
			ik, err := NewInterpolatedKernel(base, md, DefaultPointsPerWavelength, DefaultInterpolationTol)
			require.NoError(t, err)
			r := math.Nextafter(md, 0)
			assert.InDeltaf(t, 0., cmplx.Abs(ik.Exp(r)-cmplx.Exp(-kappa*complex(r, 0))), 1.e-9, "r = %v", r)
		}
	}
}

func TestGeometricalData(t *testing.T) {
	g := grid.NewGeometry([][3]float64{{0, 0, 0}, {2, 0, 0}, {0, 1, 1}})
	pts := [][2]float64{{0.2, 0.3}}
	gd, err := ComputeGeometricalData(g, 0, pts, Globals|Normals|IntegrationElements|Jacobians|JacobianInversesTransposed)
	require.NoError(t, err)
	// J^T (J (J^T J)^-1) is the identity
	for a := 0; a < 2; a++ {
		for b := 0; b < 2; b++ {
			expected := 0.
			if a == b {
				expected = 1
			}
			assert.InDelta(t, expected, grid.Dot(gd.Jacobians[0][a], gd.JacobianInversesTransposed[0][b]), 1.e-14)
		}
	}
	assert.InDelta(t, 2*math.Sqrt2, gd.IntegrationElements[0], 1.e-14)
	assert.InDelta(t, 0., grid.Dot(gd.Normals[0], gd.Jacobians[0][0]), 1.e-14)

	partial, err := ComputeGeometricalData(g, 0, pts, Globals)
	require.NoError(t, err)
	assert.Nil(t, partial.Normals)

	_, err = ComputeGeometricalData(grid.NewGeometry([][3]float64{{0, 0, 0}, {1, 0, 0}}), 3, pts, Normals)
	assert.ErrorIs(t, err, types.ErrUnsupported)

	flat := grid.NewGeometry([][3]float64{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}})
	_, err = ComputeGeometricalData(flat, 5, pts, IntegrationElements)
	assert.ErrorIs(t, err, types.ErrNumerical)
	var ne *types.NumericalError
	assert.ErrorAs(t, err, &ne)
	assert.Equal(t, 5, ne.TestElement)

	m, _ := grid.NewScreen(2, 1, false)
	batch, err := ComputeGeometricalDataBatch(m, []int{0, 1, 3}, pts, Globals)
	require.NoError(t, err)
	assert.Len(t, batch, 3)
	assert.Equal(t, m.Geometry(3).Global(pts[0]), batch[2].Globals[0])
}

func TestTransformations(t *testing.T) {
	var (
		g   = grid.NewGeometry([][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
		pts = [][2]float64{{0.25, 0.25}}
	)
	sp, _ := space.NewLinearContinuous(mustTwoTriangles(t))
	b := sp.Basis(0)
	bd := b.Evaluate(3, pts)
	gd, err := ComputeGeometricalData(g, 0, pts, Normals|JacobianInversesTransposed)
	require.NoError(t, err)
	out := make([]float64, 3)
	SurfaceGradient{}.Evaluate(bd, &gd, 1, 0, out)
	assert.InDeltaSlice(t, []float64{1, 0, 0}, out, 1.e-14)
	SurfaceCurl{}.Evaluate(bd, &gd, 1, 0, out)
	assert.InDeltaSlice(t, []float64{0, 1, 0}, out, 1.e-14)
	ValueTimesNormal{}.Evaluate(bd, &gd, 0, 0, out)
	assert.InDeltaSlice(t, []float64{0, 0, 0.5}, out, 1.e-14)

	bdeps, gdeps := UnionDependencies([]TransformationFunctor{SurfaceCurl{}, ValueTimesNormal{}})
	assert.Equal(t, GeomDeps(Normals|JacobianInversesTransposed), gdeps)
	assert.Equal(t, 3, int(bdeps))

	noValues := b.Evaluate(2, pts)
	assert.ErrorIs(t, ScalarValue{}.Check(noValues, &gd), types.ErrConfiguration)
	noNormals, _ := ComputeGeometricalData(g, 0, pts, JacobianInversesTransposed)
	assert.ErrorIs(t, SurfaceCurl{}.Check(bd, &noNormals), types.ErrConfiguration)
}

func mustTwoTriangles(t *testing.T) *grid.Mesh {
	m, err := grid.NewTwoTriangles()
	require.NoError(t, err)
	return m
}
