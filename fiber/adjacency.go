package fiber

import (
	"fmt"

	"github.com/notargets/gobem/grid"
	"github.com/notargets/gobem/quadrature"
	"github.com/notargets/gobem/types"
)

// SharedCorner pairs a local corner of the test element with the local
// corner of the trial element at the same grid vertex
type SharedCorner struct {
	Test, Trial int8
}

type PairAdjacency struct {
	Kind    quadrature.Adjacency
	Shared  [4]SharedCorner
	NShared int
}

func (pa PairAdjacency) trialCorner(testCorner int) int {
	for _, sc := range pa.Shared[:pa.NShared] {
		if int(sc.Test) == testCorner {
			return int(sc.Trial)
		}
	}
	return -1
}

// Classify determines how two elements of a grid touch. An element paired
// with itself is coincident; distinct elements with the same vertex set are
// a configuration error. Otherwise a shared edge takes precedence over a
// shared vertex.
func Classify(g grid.Grid, test, trial int) (pa PairAdjacency, err error) {
	var (
		tv = g.ElementVertices(test)
		sv = g.ElementVertices(trial)
	)
	if test == trial {
		pa.Kind = quadrature.Coincident
		for i := range tv {
			pa.Shared[i] = SharedCorner{int8(i), int8(i)}
		}
		pa.NShared = len(tv)
		return
	}
	for a, va := range tv {
		for b, vb := range sv {
			if va == vb {
				pa.Shared[pa.NShared] = SharedCorner{int8(a), int8(b)}
				pa.NShared++
			}
		}
	}
	switch {
	case pa.NShared == 0:
		pa.Kind = quadrature.Disjoint
	case pa.NShared == len(tv) && pa.NShared == len(sv):
		err = fmt.Errorf("%w: elements %d and %d are duplicates", types.ErrConfiguration, test, trial)
	case pa.NShared >= 2 && pa.hasCommonEdge(len(tv), len(sv)):
		pa.Kind = quadrature.SharedEdge
	default:
		pa.Kind = quadrature.SharedVertex
	}
	return
}

func (pa PairAdjacency) hasCommonEdge(nTest, nTrial int) bool {
	adjacent := func(i, j, n int) bool { return (i+1)%n == j || (j+1)%n == i }
	for x := 0; x < pa.NShared; x++ {
		for y := x + 1; y < pa.NShared; y++ {
			a, b := pa.Shared[x], pa.Shared[y]
			if adjacent(int(a.Test), int(b.Test), nTest) && adjacent(int(a.Trial), int(b.Trial), nTrial) {
				return true
			}
		}
	}
	return false
}

// part is a triangle made of element corners, with the reference
// coordinates of those corners. Quadrilaterals split along the 0-2 diagonal.
type part struct {
	corners [3]int
	ref     [3][2]float64
}

var (
	triangleParts = []part{
		{[3]int{0, 1, 2}, [3][2]float64{{0, 0}, {1, 0}, {0, 1}}},
	}
	quadParts = []part{
		{[3]int{0, 1, 2}, [3][2]float64{{0, 0}, {1, 0}, {1, 1}}},
		{[3]int{0, 2, 3}, [3][2]float64{{0, 0}, {1, 1}, {0, 1}}},
	}
)

func elementParts(variant types.ElementVariant) ([]part, error) {
	switch variant {
	case types.VariantTriangle:
		return triangleParts, nil
	case types.VariantQuad:
		return quadParts, nil
	}
	return nil, fmt.Errorf("%w: singular integration on %v elements", types.ErrUnsupported, variant)
}

// toElement maps canonical unit triangle coordinates to element reference
// coordinates. Canonical corner i is part corner perm[i].
func (p part) toElement(canonical [2]float64, perm [3]int) (x [2]float64) {
	lambda := [3]float64{1 - canonical[0] - canonical[1], canonical[0], canonical[1]}
	for i := 0; i < 3; i++ {
		r := p.ref[perm[i]]
		x[0] += lambda[i] * r[0]
		x[1] += lambda[i] * r[1]
	}
	return
}

// buildSingularRule assembles the quadrature over all part pairs of two
// touching elements
func buildSingularRule(testVariant, trialVariant types.ElementVariant, pa PairAdjacency,
	n int) (testPts, trialPts [][2]float64, weights []float64, err error) {
	var (
		testParts, trialParts []part
	)
	if testParts, err = elementParts(testVariant); err != nil {
		return
	}
	if trialParts, err = elementParts(trialVariant); err != nil {
		return
	}
	for _, tp := range testParts {
		for _, sp := range trialParts {
			var (
				testPerm, trialPerm [3]int
				nShared             int
				usedTest, usedTrial [3]bool
			)
			for a := 0; a < 3; a++ {
				b := -1
				trialCorner := pa.trialCorner(tp.corners[a])
				for k := 0; k < 3; k++ {
					if sp.corners[k] == trialCorner {
						b = k
					}
				}
				if b < 0 {
					continue
				}
				testPerm[nShared], trialPerm[nShared] = a, b
				usedTest[a], usedTrial[b] = true, true
				nShared++
			}
			fill := func(perm *[3]int, used [3]bool) {
				k := nShared
				for c := 0; c < 3; c++ {
					if !used[c] {
						perm[k] = c
						k++
					}
				}
			}
			fill(&testPerm, usedTest)
			fill(&trialPerm, usedTrial)

			var pr quadrature.PairRule
			switch nShared {
			case 0:
				tri := quadrature.TriangleRule(2*n - 1)
				pr = quadrature.TensorPairRule(tri, tri)
			case 1:
				pr, err = quadrature.SauterSchwabRule(quadrature.SharedVertex, n)
			case 2:
				pr, err = quadrature.SauterSchwabRule(quadrature.SharedEdge, n)
			default:
				pr, err = quadrature.SauterSchwabRule(quadrature.Coincident, n)
			}
			if err != nil {
				return
			}
			for q, w := range pr.Weights {
				testPts = append(testPts, tp.toElement(pr.Test[q], testPerm))
				trialPts = append(trialPts, sp.toElement(pr.Trial[q], trialPerm))
				weights = append(weights, w)
			}
		}
	}
	return
}
