package fiber

import (
	"fmt"
	"math"
	"sync"

	"github.com/notargets/gobem/basis"
	"github.com/notargets/gobem/grid"
	"github.com/notargets/gobem/quadrature"
	"github.com/notargets/gobem/space"
	"github.com/notargets/gobem/types"
	"github.com/notargets/gobem/utils"
)

// Term is one weighted kernel integral of a weak form
type Term struct {
	Kernel    KernelFunctor
	FarKernel KernelFunctor // optional, replaces Kernel on pairs that do not touch

	TestTransformations  []TransformationFunctor
	TrialTransformations []TransformationFunctor
	Integrand            IntegrandFunctor
	Weight               complex128
}

func (t Term) validate() error {
	if t.Kernel == nil || t.Integrand == nil {
		return fmt.Errorf("%w: term without kernel or integrand", types.ErrConfiguration)
	}
	if len(t.TestTransformations) == 0 || len(t.TestTransformations) != len(t.TrialTransformations) {
		return fmt.Errorf("%w: %s term has %d test and %d trial transformations", types.ErrConfiguration,
			t.Integrand.Name(), len(t.TestTransformations), len(t.TrialTransformations))
	}
	for i, tr := range t.TestTransformations {
		if tr.ComponentCount() != t.TrialTransformations[i].ComponentCount() {
			return fmt.Errorf("%w: %s and %s transformations have different component counts",
				types.ErrConfiguration, tr.Name(), t.TrialTransformations[i].Name())
		}
	}
	return nil
}

type ElementPair struct {
	Test, Trial int
}

// LocalBlock is indexed [test local dof][trial local dof]
type LocalBlock [][]complex128

func NewLocalBlock(rows, cols int) (lb LocalBlock) {
	data := make([]complex128, rows*cols)
	lb = make(LocalBlock, rows)
	for i := range lb {
		lb[i] = data[i*cols : (i+1)*cols]
	}
	return
}

// LocalAssembler evaluates the weak form of a sum of terms on element pairs.
// It is safe for concurrent use.
type LocalAssembler struct {
	grid                          grid.Grid
	testSpace, trialSpace         space.Space
	terms                         []Term
	strategy                      quadrature.Strategy
	cache                         *SingularCache
	testBasisDeps, trialBasisDeps basis.DataFlags
	testGeomDeps, trialGeomDeps   GeomDeps
	basisData                     sync.Map // basisKey -> basis.Data
}

// NewLocalAssembler binds terms to a pair of spaces on the same grid. When
// cacheSingular is set, singular quadrature data is shared between pairs
// with the same reference configuration.
func NewLocalAssembler(testSpace, trialSpace space.Space, terms []Term,
	strategy quadrature.Strategy, cacheSingular bool) (la *LocalAssembler, err error) {
	if testSpace == nil || trialSpace == nil || !space.Compatible(testSpace, trialSpace) {
		err = fmt.Errorf("%w: local assembly needs test and trial spaces on the same grid",
			types.ErrConfiguration)
		return
	}
	if len(terms) == 0 {
		err = fmt.Errorf("%w: no terms to assemble", types.ErrConfiguration)
		return
	}
	if strategy == nil {
		strategy = quadrature.NewNumericalStrategy(quadrature.DefaultAccuracyOptions())
	}
	la = &LocalAssembler{
		grid:       testSpace.Grid(),
		testSpace:  testSpace,
		trialSpace: trialSpace,
		terms:      terms,
		strategy:   strategy,
	}
	if cacheSingular {
		la.cache = NewSingularCache()
	}
	la.testGeomDeps, la.trialGeomDeps = IntegrationElements, IntegrationElements
	for _, t := range terms {
		if err = t.validate(); err != nil {
			return nil, err
		}
		t.Kernel.AddGeometricalDependencies(&la.testGeomDeps, &la.trialGeomDeps)
		if t.FarKernel != nil {
			t.FarKernel.AddGeometricalDependencies(&la.testGeomDeps, &la.trialGeomDeps)
		}
		for _, tr := range t.TestTransformations {
			tr.AddDependencies(&la.testBasisDeps, &la.testGeomDeps)
		}
		for _, tr := range t.TrialTransformations {
			tr.AddDependencies(&la.trialBasisDeps, &la.trialGeomDeps)
		}
	}
	return
}

func (la *LocalAssembler) TestSpace() space.Space  { return la.testSpace }
func (la *LocalAssembler) TrialSpace() space.Space { return la.trialSpace }

// SingularCache is nil when caching is disabled
func (la *LocalAssembler) SingularCache() *SingularCache { return la.cache }

// EstimateRelativeScale is the largest kernel decay factor at a distance
func (la *LocalAssembler) EstimateRelativeScale(distance float64) (scale float64) {
	for _, t := range la.terms {
		scale = math.Max(scale, t.Kernel.EstimateRelativeScale(distance))
	}
	return
}

type basisKey struct {
	trial   bool
	variant types.ElementVariant
	order   int
}

func (la *LocalAssembler) ruleBasisData(trial bool, b basis.Basis, rule quadrature.Rule) basis.Data {
	key := basisKey{trial, b.Variant(), rule.Order}
	if d, ok := la.basisData.Load(key); ok {
		return d.(basis.Data)
	}
	deps := la.testBasisDeps
	if trial {
		deps = la.trialBasisDeps
	}
	d := b.Evaluate(deps, rule.Points)
	la.basisData.Store(key, d)
	return d
}

type geomKey struct {
	trial   bool
	element int
	order   int
}

// evaluation holds per call memoized element geometry
type evaluation struct {
	la    *LocalAssembler
	geoms map[geomKey]*GeometricalData
}

func (ev *evaluation) regularGeometry(trial bool, element int, rule quadrature.Rule) (*GeometricalData, error) {
	key := geomKey{trial, element, rule.Order}
	if gd, ok := ev.geoms[key]; ok {
		return gd, nil
	}
	deps := ev.la.testGeomDeps
	if trial {
		deps = ev.la.trialGeomDeps
	}
	gd, err := ComputeGeometricalData(ev.la.grid.Geometry(element), element, rule.Points, deps)
	if err != nil {
		return nil, err
	}
	ev.geoms[key] = &gd
	return &gd, nil
}

// EvaluateLocalWeakForms returns one block per pair. The first failing pair
// aborts the evaluation.
func (la *LocalAssembler) EvaluateLocalWeakForms(pairs []ElementPair) (blocks []LocalBlock, err error) {
	ev := &evaluation{la: la, geoms: make(map[geomKey]*GeometricalData)}
	blocks = make([]LocalBlock, len(pairs))
	for ip, p := range pairs {
		if blocks[ip], err = ev.evaluatePair(p); err != nil {
			return nil, err
		}
	}
	return
}

func (ev *evaluation) evaluatePair(p ElementPair) (block LocalBlock, err error) {
	var (
		la = ev.la
		pa PairAdjacency
	)
	if pa, err = Classify(la.grid, p.Test, p.Trial); err != nil {
		return
	}
	block = NewLocalBlock(la.testSpace.Basis(p.Test).Size(), la.trialSpace.Basis(p.Trial).Size())
	if pa.Kind == quadrature.Disjoint {
		err = ev.regular(p, pa, block)
	} else {
		err = ev.singular(p, pa, block)
	}
	if err != nil {
		return nil, err
	}
	for _, row := range block {
		if utils.IsNonFinite(row) {
			return nil, types.NewPairError(p.Test, p.Trial, "non-finite local weak form")
		}
	}
	return
}

func (la *LocalAssembler) descriptor(p ElementPair, pa PairAdjacency, kernel KernelFunctor) quadrature.PairDescriptor {
	var (
		gT = la.grid.Geometry(p.Test)
		gS = la.grid.Geometry(p.Trial)
	)
	return quadrature.PairDescriptor{
		TestVariant:      gT.Variant,
		TrialVariant:     gS.Variant,
		TestBasisOrder:   la.testSpace.Basis(p.Test).Order(),
		TrialBasisOrder:  la.trialSpace.Basis(p.Trial).Order(),
		TestSize:         gT.Diameter(),
		TrialSize:        gS.Diameter(),
		Distance:         grid.Distance(gT.Center(), gS.Center()),
		SingularityOrder: kernel.SingularityOrder(),
		WaveNumber:       kernel.WaveNumber(),
		Adjacency:        pa.Kind,
	}
}

// transformed holds [dof][point][transformation][component]
type transformed [][][][]float64

func transform(trs []TransformationFunctor, b basis.Data, gd *GeometricalData,
	nDofs, nPts int) (tv transformed, err error) {
	for _, tr := range trs {
		if err = tr.Check(b, gd); err != nil {
			return
		}
	}
	tv = make(transformed, nDofs)
	for dof := range tv {
		tv[dof] = make([][][]float64, nPts)
		for pt := range tv[dof] {
			tv[dof][pt] = make([][]float64, len(trs))
			for it, tr := range trs {
				out := make([]float64, tr.ComponentCount())
				tr.Evaluate(b, gd, dof, pt, out)
				tv[dof][pt][it] = out
			}
		}
	}
	return
}

// regular integrates a pair that does not touch with tensor rules. Terms
// whose orders agree share the rules and geometry.
func (ev *evaluation) regular(p ElementPair, pa PairAdjacency, block LocalBlock) (err error) {
	var (
		la       = ev.la
		testB    = la.testSpace.Basis(p.Test)
		trialB   = la.trialSpace.Basis(p.Trial)
		nTest    = testB.Size()
		nTrial   = trialB.Size()
		groups   = make(map[[2]int][]int)
		orderKey [][2]int
	)
	for it, t := range la.terms {
		to, so := la.strategy.RegularOrders(la.descriptor(p, pa, t.Kernel))
		key := [2]int{to, so}
		if _, ok := groups[key]; !ok {
			orderKey = append(orderKey, key)
		}
		groups[key] = append(groups[key], it)
	}
	for _, key := range orderKey {
		var (
			testRule, trialRule quadrature.Rule
			gT, gS              *GeometricalData
		)
		if testRule, err = quadrature.ElementRule(testB.Variant(), key[0]); err != nil {
			return
		}
		if trialRule, err = quadrature.ElementRule(trialB.Variant(), key[1]); err != nil {
			return
		}
		if gT, err = ev.regularGeometry(false, p.Test, testRule); err != nil {
			return
		}
		if gS, err = ev.regularGeometry(true, p.Trial, trialRule); err != nil {
			return
		}
		bT := la.ruleBasisData(false, testB, testRule)
		bS := la.ruleBasisData(true, trialB, trialRule)
		for _, it := range groups[key] {
			var (
				t      = la.terms[it]
				kernel = t.Kernel
				tvT    transformed
				tvS    transformed
			)
			if t.FarKernel != nil {
				kernel = t.FarKernel
			}
			if tvT, err = transform(t.TestTransformations, bT, gT, nTest, testRule.Len()); err != nil {
				return
			}
			if tvS, err = transform(t.TrialTransformations, bS, gS, nTrial, trialRule.Len()); err != nil {
				return
			}
			for ip := range testRule.Weights {
				wT := testRule.Weights[ip] * gT.IntegrationElements[ip]
				for jp := range trialRule.Weights {
					w := wT * trialRule.Weights[jp] * gS.IntegrationElements[jp]
					k := kernel.Evaluate(gT, gS, ip, jp) * t.Weight * complex(w, 0)
					for i := 0; i < nTest; i++ {
						for j := 0; j < nTrial; j++ {
							block[i][j] += t.Integrand.Evaluate(k, tvT[i][ip], tvS[j][jp])
						}
					}
				}
			}
		}
	}
	return
}

// singular integrates a touching pair with singularity removing rules
func (ev *evaluation) singular(p ElementPair, pa PairAdjacency, block LocalBlock) (err error) {
	var (
		la     = ev.la
		testB  = la.testSpace.Basis(p.Test)
		trialB = la.trialSpace.Basis(p.Trial)
		nTest  = testB.Size()
		nTrial = trialB.Size()
	)
	for _, t := range la.terms {
		var (
			n    = la.strategy.SingularPointCount(la.descriptor(p, pa, t.Kernel))
			rule *SingularRule
			gT   GeometricalData
			gS   GeometricalData
			tvT  transformed
			tvS  transformed
		)
		if rule, err = la.singularRule(testB, trialB, pa, n); err != nil {
			return
		}
		gT, err = ComputeGeometricalData(la.grid.Geometry(p.Test), p.Test, rule.TestPoints, la.testGeomDeps)
		if err != nil {
			return
		}
		gS, err = ComputeGeometricalData(la.grid.Geometry(p.Trial), p.Trial, rule.TrialPoints, la.trialGeomDeps)
		if err != nil {
			return
		}
		if tvT, err = transform(t.TestTransformations, rule.TestBasis, &gT, nTest, len(rule.Weights)); err != nil {
			return
		}
		if tvS, err = transform(t.TrialTransformations, rule.TrialBasis, &gS, nTrial, len(rule.Weights)); err != nil {
			return
		}
		for q, wq := range rule.Weights {
			w := wq * gT.IntegrationElements[q] * gS.IntegrationElements[q]
			k := t.Kernel.Evaluate(&gT, &gS, q, q) * t.Weight * complex(w, 0)
			for i := 0; i < nTest; i++ {
				for j := 0; j < nTrial; j++ {
					block[i][j] += t.Integrand.Evaluate(k, tvT[i][q], tvS[j][q])
				}
			}
		}
	}
	return
}

func (la *LocalAssembler) singularRule(testB, trialB basis.Basis, pa PairAdjacency, n int) (*SingularRule, error) {
	build := func() (rule *SingularRule, err error) {
		rule = &SingularRule{}
		rule.TestPoints, rule.TrialPoints, rule.Weights, err =
			buildSingularRule(testB.Variant(), trialB.Variant(), pa, n)
		if err != nil {
			return nil, err
		}
		rule.TestBasis = testB.Evaluate(la.testBasisDeps, rule.TestPoints)
		rule.TrialBasis = trialB.Evaluate(la.trialBasisDeps, rule.TrialPoints)
		return
	}
	if la.cache == nil {
		return build()
	}
	key := singularKey{
		testVariant:  testB.Variant(),
		trialVariant: trialB.Variant(),
		adjacency:    pa.Kind,
		shared:       pa.Shared,
		nShared:      pa.NShared,
		testOrder:    testB.Order(),
		trialOrder:   trialB.Order(),
		points:       n,
	}
	return la.cache.get(key, build)
}
