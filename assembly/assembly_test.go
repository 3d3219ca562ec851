package assembly

import (
	"math"
	"math/cmplx"
	"math/rand"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/notargets/gobem/fiber"
	"github.com/notargets/gobem/grid"
	"github.com/notargets/gobem/space"
	"github.com/notargets/gobem/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func scalarTerm(t *testing.T, form fiber.KernelForm, kappa complex128) fiber.Term {
	rt := types.Real
	if imag(kappa) != 0 {
		rt = types.Complex
	}
	k, err := fiber.NewKernel(form, kappa, rt)
	require.NoError(t, err)
	return fiber.Term{
		Kernel:               k,
		TestTransformations:  []fiber.TransformationFunctor{fiber.ScalarValue{}},
		TrialTransformations: []fiber.TransformationFunctor{fiber.ScalarValue{}},
		Integrand:            fiber.ScalarProductIntegrand{},
		Weight:               1,
	}
}

func localAssembler(t *testing.T, test, trial space.Space, opts Options, terms ...fiber.Term) *fiber.LocalAssembler {
	la, err := fiber.NewLocalAssembler(test, trial, terms, opts.Strategy(), opts.SingularIntegralCaching)
	require.NoError(t, err)
	return la
}

func randomVector(rng *rand.Rand, n int) []complex128 {
	x := make([]complex128, n)
	for i := range x {
		x[i] = complex(rng.Float64()-0.5, rng.Float64()-0.5)
	}
	return x
}

func relativeDifference(a, b []complex128) float64 {
	var num, den float64
	for i := range a {
		d := cmplx.Abs(a[i] - b[i])
		num += d * d
		den += cmplx.Abs(b[i]) * cmplx.Abs(b[i])
	}
	return math.Sqrt(num / den)
}

func TestOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.NoError(t, opts.Validate())
	assert.True(t, opts.SingularIntegralCaching)
	assert.True(t, opts.SparseStorageOfMassMatrices)
	assert.False(t, opts.JointAssembly)
	{
		bad := opts
		bad.MaxThreadCount = 0
		assert.ErrorIs(t, bad.Validate(), types.ErrConfiguration)
		bad.MaxThreadCount = -3
		assert.ErrorIs(t, bad.Validate(), types.ErrConfiguration)
	}
	{
		aca := opts
		aca.SwitchToAca(AcaOptions{Eps: 1.e-3, Eta: 0, MinimumBlockSize: 8})
		assert.Equal(t, ACA, aca.Mode)
		assert.ErrorIs(t, aca.Validate(), types.ErrConfiguration)
		aca.SwitchToDense()
		assert.NoError(t, aca.Validate())
	}
	{
		m, err := NewMode("ACA")
		assert.NoError(t, err)
		assert.Equal(t, ACA, m)
		_, err = NewMode("fmm")
		assert.ErrorIs(t, err, types.ErrConfiguration)
		assert.Equal(t, "dense", Dense.String())
	}
	{ // Verbosity filters the configured logger
		core, logs := observer.New(zapcore.DebugLevel)
		o := DefaultOptions()
		o.Logger = zap.New(core)
		o.Verbosity = Low
		o.logger().Info("hidden")
		o.logger().Warn("shown")
		o.Verbosity = Default
		o.logger().Debug("hidden")
		o.logger().Info("shown")
		o.Verbosity = High
		o.logger().Debug("shown")
		assert.Equal(t, 3, logs.FilterMessage("shown").Len())
		assert.Equal(t, 0, logs.FilterMessage("hidden").Len())
	}
}

func TestAssembleDense(t *testing.T) {
	{ // Two triangle Laplace single layer
		m, err := grid.NewTwoTriangles()
		require.NoError(t, err)
		p0, err := space.NewPiecewiseConstant(m)
		require.NoError(t, err)
		opts := DefaultOptions()
		opts.Accuracy.SingularIncrement = 10
		op, err := AssembleDense(localAssembler(t, p0, p0, opts, scalarTerm(t, fiber.SingleLayer, 0)), opts)
		require.NoError(t, err)
		assert.Equal(t, 2, op.RowCount())
		assert.Equal(t, 2, op.ColumnCount())
		for i := 0; i < 2; i++ {
			assert.InEpsilon(t, 0.07982144689828319, real(op.M.At(i, i)), 1.e-8)
			assert.InEpsilon(t, 0.03847880419790958, real(op.M.At(i, 1-i)), 1.e-8)
		}
		y, err := op.Apply([]complex128{1, 1})
		require.NoError(t, err)
		assert.InEpsilon(t, 0.07982144689828319+0.03847880419790958, real(y[0]), 1.e-8)
		_, err = op.Apply([]complex128{1})
		assert.ErrorIs(t, err, types.ErrConfiguration)
	}
	m, err := grid.NewIcosphere(1)
	require.NoError(t, err)
	p1, err := space.NewLinearContinuous(m)
	require.NoError(t, err)
	p0, err := space.NewPiecewiseConstant(m)
	require.NoError(t, err)
	{ // Results do not depend on the thread count
		opts := DefaultOptions()
		la := localAssembler(t, p0, p1, opts, scalarTerm(t, fiber.SingleLayer, complex(0, -2)))
		opts.MaxThreadCount = 1
		serial, err := AssembleDense(la, opts)
		require.NoError(t, err)
		opts.MaxThreadCount = max(4, runtime.GOMAXPROCS(0))
		parallel, err := AssembleDense(la, opts)
		require.NoError(t, err)
		assert.Equal(t, serial.M.RawCMatrix().Data, parallel.M.RawCMatrix().Data)
		assert.Equal(t, p0.GlobalDofCount(), serial.RowCount())
		assert.Equal(t, p1.GlobalDofCount(), serial.ColumnCount())
	}
	{ // Gauss lemma: the double layer of a constant is -1/2 on a closed surface
		opts := DefaultOptions()
		op, err := AssembleDense(localAssembler(t, p0, p0, opts, scalarTerm(t, fiber.DoubleLayer, 0)), opts)
		require.NoError(t, err)
		ones := make([]complex128, p0.GlobalDofCount())
		for i := range ones {
			ones[i] = 1
		}
		y, err := op.Apply(ones)
		require.NoError(t, err)
		for e := range y {
			area := m.Geometry(e).Volume()
			assert.InEpsilon(t, -0.5*area, real(y[e]), 2.e-3)
			assert.Zero(t, imag(y[e]))
		}
	}
	{ // Memory limit
		opts := DefaultOptions()
		opts.DenseMemoryLimit = 1024
		_, err := AssembleDense(localAssembler(t, p0, p0, opts, scalarTerm(t, fiber.SingleLayer, 0)), opts)
		assert.ErrorIs(t, err, types.ErrAllocation)
	}
}

func TestAssembleACA(t *testing.T) {
	m, err := grid.NewIcosphere(2)
	require.NoError(t, err)
	p0, err := space.NewPiecewiseConstant(m)
	require.NoError(t, err)
	var (
		rng  = rand.New(rand.NewSource(1))
		opts = DefaultOptions()
	)
	for _, kappa := range []complex128{0, complex(0, -3)} {
		la := localAssembler(t, p0, p0, opts, scalarTerm(t, fiber.SingleLayer, kappa))
		dense, err := AssembleDense(la, opts)
		require.NoError(t, err)
		acaOpts := opts
		acaOpts.SwitchToAca(AcaOptions{Eps: 1.e-6, Eta: 1.2, MinimumBlockSize: 16, Recompress: true})
		op, err := AssembleWeakForm(la, acaOpts)
		require.NoError(t, err)
		h, ok := op.(*HMatrix)
		require.True(t, ok)
		st := h.Stats()
		assert.True(t, st.AdmissibleLeaves > 0)
		for trial := 0; trial < 3; trial++ {
			x := randomVector(rng, p0.GlobalDofCount())
			yd, err := dense.Apply(x)
			require.NoError(t, err)
			yh, err := h.Apply(x)
			require.NoError(t, err)
			assert.Less(t, relativeDifference(yh, yd), 1.e-4)
		}
		// Expansion gives back the dense matrix
		full := h.AsMatrix()
		var diff, norm float64
		for i := 0; i < h.RowCount(); i++ {
			for j := 0; j < h.ColumnCount(); j++ {
				diff = math.Max(diff, cmplx.Abs(full.At(i, j)-dense.M.At(i, j)))
				norm = math.Max(norm, cmplx.Abs(dense.M.At(i, j)))
			}
		}
		assert.Less(t, diff, 1.e-4*norm)
	}
	{ // Strongly decaying kernels drop far blocks
		la := localAssembler(t, p0, p0, opts, scalarTerm(t, fiber.SingleLayer, 40))
		acaOpts := opts
		acaOpts.SwitchToAca(DefaultAcaOptions())
		h, err := AssembleACA(la, acaOpts)
		require.NoError(t, err)
		var empty int
		for _, hl := range h.leaves {
			if hl.admissible && hl.rank == 0 && hl.dense == nil {
				empty++
			}
		}
		assert.True(t, empty > 0)
	}
}

type countingWeakForm struct {
	LocalWeakForm
	pairs atomic.Int64
}

func (c *countingWeakForm) EvaluateLocalWeakForms(pairs []fiber.ElementPair) ([]fiber.LocalBlock, error) {
	c.pairs.Add(int64(len(pairs)))
	return c.LocalWeakForm.EvaluateLocalWeakForms(pairs)
}

func TestBlockCache(t *testing.T) {
	m, err := grid.NewIcosphere(2)
	require.NoError(t, err)
	p0, err := space.NewPiecewiseConstant(m)
	require.NoError(t, err)
	p1, err := space.NewLinearContinuous(m)
	require.NoError(t, err)
	opts := DefaultOptions()
	{ // Rows and columns of a block share their element pairs
		cw := &countingWeakForm{LocalWeakForm: localAssembler(t, p1, p1, opts, scalarTerm(t, fiber.SingleLayer, 0))}
		var (
			rows  = []int{0, 1, 2, 3, 4, 5}
			cols  = []int{40, 41, 42, 43, 44, 45, 46, 47}
			cache = newBlockCache(cw)
		)
		full, err := evaluateBlock(cw, rows, cols)
		require.NoError(t, err)
		evaluated := cw.pairs.Load()
		cw.pairs.Store(0)
		for i := range rows {
			r, err := cache.evaluate(rows[i:i+1], cols)
			require.NoError(t, err)
			for j := range cols {
				assert.Equal(t, full.At(i, j), r.At(0, j))
			}
		}
		for j := range cols {
			c, err := cache.evaluate(rows, cols[j:j+1])
			require.NoError(t, err)
			for i := range rows {
				assert.Equal(t, full.At(i, j), c.At(i, 0))
			}
		}
		assert.Equal(t, evaluated, cw.pairs.Load())
		again, err := cache.evaluate(rows, cols)
		require.NoError(t, err)
		assert.Equal(t, full.RawCMatrix().Data, again.RawCMatrix().Data)
		assert.Equal(t, evaluated, cw.pairs.Load())
	}
	{ // ACA on P0 evaluates every element pair at most once
		cw := &countingWeakForm{LocalWeakForm: localAssembler(t, p0, p0, opts, scalarTerm(t, fiber.SingleLayer, 0))}
		acaOpts := opts
		acaOpts.SwitchToAca(AcaOptions{Eps: 1.e-6, Eta: 1.2, MinimumBlockSize: 16, Recompress: true})
		_, err := AssembleACA(cw, acaOpts)
		require.NoError(t, err)
		n := int64(m.EntityCount(0))
		assert.LessOrEqual(t, cw.pairs.Load(), n*n)
	}
}

func TestAssembleIdentity(t *testing.T) {
	m, err := grid.NewIcosphere(1)
	require.NoError(t, err)
	p0, err := space.NewPiecewiseConstant(m)
	require.NoError(t, err)
	ma, err := fiber.NewMassAssembler(p0, p0)
	require.NoError(t, err)
	opts := DefaultOptions()
	op, err := AssembleIdentity(ma, opts)
	require.NoError(t, err)
	sp, ok := op.(*SparseOperator)
	require.True(t, ok)
	assert.Equal(t, p0.GlobalDofCount(), sp.M.NNZ())
	sp.M.DoNonZero(func(i, j int, v float64) {
		assert.Equal(t, i, j)
		assert.InDelta(t, m.Geometry(i).Volume(), v, 1.e-14)
	})
	opts.SparseStorageOfMassMatrices = false
	dop, err := AssembleIdentity(ma, opts)
	require.NoError(t, err)
	_, ok = dop.(*DenseOperator)
	require.True(t, ok)
	x := randomVector(rand.New(rand.NewSource(3)), p0.GlobalDofCount())
	ys, err := op.Apply(x)
	require.NoError(t, err)
	yd, err := dop.Apply(x)
	require.NoError(t, err)
	assert.Less(t, relativeDifference(ys, yd), 1.e-14)
	{ // Linear functions have a banded mass matrix whose entries sum to the area
		p1, _ := space.NewLinearContinuous(m)
		ma1, _ := fiber.NewMassAssembler(p1, p1)
		op1, err := AssembleIdentity(ma1, DefaultOptions())
		require.NoError(t, err)
		var total, area float64
		op1.(*SparseOperator).M.DoNonZero(func(i, j int, v float64) { total += v })
		for e := 0; e < m.EntityCount(0); e++ {
			area += m.Geometry(e).Volume()
		}
		assert.InDelta(t, area, total, 1.e-12)
	}
}

func TestOperatorAlgebra(t *testing.T) {
	m, err := grid.NewTwoTriangles()
	require.NoError(t, err)
	p1, err := space.NewLinearContinuous(m)
	require.NoError(t, err)
	opts := DefaultOptions()
	slp, err := AssembleDense(localAssembler(t, p1, p1, opts, scalarTerm(t, fiber.SingleLayer, 0)), opts)
	require.NoError(t, err)
	ma, _ := fiber.NewMassAssembler(p1, p1)
	id, err := AssembleIdentity(ma, opts)
	require.NoError(t, err)
	sum, err := NewSumOperator(slp, &ScaledOperator{Alpha: -0.5, Op: id})
	require.NoError(t, err)
	var (
		x      = []complex128{1, 2i, -1, 0.5}
		ys, _  = slp.Apply(x)
		yi, _  = id.Apply(x)
		yt, e2 = sum.Apply(x)
	)
	require.NoError(t, e2)
	for i := range yt {
		assert.InDelta(t, 0., cmplx.Abs(yt[i]-(ys[i]-0.5*yi[i])), 1.e-15)
	}
	full := sum.AsMatrix()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			expected := slp.M.At(i, j) - 0.5*id.AsMatrix().At(i, j)
			assert.InDelta(t, 0., cmplx.Abs(full.At(i, j)-expected), 1.e-15)
		}
	}
	p0, _ := space.NewPiecewiseConstant(m)
	rect, err := AssembleDense(localAssembler(t, p0, p1, opts, scalarTerm(t, fiber.SingleLayer, 0)), opts)
	require.NoError(t, err)
	_, err = NewSumOperator(slp, rect)
	assert.ErrorIs(t, err, types.ErrConfiguration)
	_, err = NewSumOperator()
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestProjectFunction(t *testing.T) {
	m, err := grid.NewIcosphere(2)
	require.NoError(t, err)
	p1, err := space.NewLinearContinuous(m)
	require.NoError(t, err)
	proj, err := ProjectFunction(p1, func(x, n [3]float64) complex128 { return 1 }, DefaultOptions())
	require.NoError(t, err)
	var total complex128
	for _, v := range proj {
		total += v
	}
	// Linear hat functions sum to one so the projections sum to the area
	assert.InDelta(t, 12.329848595234688, real(total), 1.e-12)

	// x.n is one on the unit sphere up to the flattening of the elements
	proj, err = ProjectFunction(p1, func(x, n [3]float64) complex128 {
		return complex(grid.Dot(x, n), 0)
	}, DefaultOptions())
	require.NoError(t, err)
	for i, v := range proj {
		assert.True(t, real(v) > 0, "dof %d", i)
	}
	_, err = ProjectFunction(p1, nil, DefaultOptions())
	assert.ErrorIs(t, err, types.ErrConfiguration)
}
