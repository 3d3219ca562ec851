package assembly

import (
	"slices"

	"github.com/notargets/gobem/fiber"
	"github.com/notargets/gobem/space"
	"gonum.org/v1/gonum/mat"
)

// LocalWeakForm evaluates element pair blocks of a weak form. It is
// implemented by fiber.LocalAssembler and must be safe for concurrent use.
type LocalWeakForm interface {
	TestSpace() space.Space
	TrialSpace() space.Space
	EvaluateLocalWeakForms(pairs []fiber.ElementPair) ([]fiber.LocalBlock, error)
	EstimateRelativeScale(distance float64) float64
}

// elementsOfDofs returns the sorted elements supporting any of the dofs
func elementsOfDofs(sp space.Space, dofs []int) (elements []int) {
	var (
		g2l  = sp.Global2LocalDofs()
		seen = make(map[int]struct{})
	)
	for _, d := range dofs {
		for _, ld := range g2l[d] {
			if _, ok := seen[ld.Element]; !ok {
				seen[ld.Element] = struct{}{}
				elements = append(elements, ld.Element)
			}
		}
	}
	slices.Sort(elements)
	return
}

func indexOf(dofs []int) map[int]int {
	idx := make(map[int]int, len(dofs))
	for k, d := range dofs {
		idx[d] = k
	}
	return idx
}

// blockCache memoizes the element pair blocks evaluated for one matrix
// block, so that the rows and columns fetched by ACA share the local weak
// forms of their common elements. It is not safe for concurrent use.
type blockCache struct {
	lwf    LocalWeakForm
	blocks map[fiber.ElementPair]fiber.LocalBlock
}

func newBlockCache(lwf LocalWeakForm) *blockCache {
	return &blockCache{lwf: lwf, blocks: make(map[fiber.ElementPair]fiber.LocalBlock)}
}

// evaluate returns the entries of the weak form on test dofs rows and trial
// dofs cols. Only pairs not seen before are evaluated. Contributions are
// summed in increasing test then trial element order.
func (bc *blockCache) evaluate(rows, cols []int) (*mat.CDense, error) {
	var (
		test, trial = bc.lwf.TestSpace(), bc.lwf.TrialSpace()
		testElems   = elementsOfDofs(test, rows)
		trialElems  = elementsOfDofs(trial, cols)
		rowIdx      = indexOf(rows)
		colIdx      = indexOf(cols)
		missing     []fiber.ElementPair
		m           = mat.NewCDense(len(rows), len(cols), nil)
		raw         = m.RawCMatrix()
	)
	for _, te := range testElems {
		for _, se := range trialElems {
			p := fiber.ElementPair{Test: te, Trial: se}
			if _, ok := bc.blocks[p]; !ok {
				missing = append(missing, p)
			}
		}
	}
	if len(missing) != 0 {
		blocks, err := bc.lwf.EvaluateLocalWeakForms(missing)
		if err != nil {
			return nil, err
		}
		for ip, p := range missing {
			bc.blocks[p] = blocks[ip]
		}
	}
	for _, te := range testElems {
		testDofs := test.GlobalDofs(te)
		for _, se := range trialElems {
			var (
				block     = bc.blocks[fiber.ElementPair{Test: te, Trial: se}]
				trialDofs = trial.GlobalDofs(se)
			)
			for a, i := range testDofs {
				r, ok := rowIdx[i]
				if !ok {
					continue
				}
				for b, j := range trialDofs {
					if c, ok := colIdx[j]; ok {
						raw.Data[r*raw.Stride+c] += block[a][b]
					}
				}
			}
		}
	}
	return m, nil
}

// evaluateBlock evaluates the weak form on rows x cols without caching
func evaluateBlock(lwf LocalWeakForm, rows, cols []int) (*mat.CDense, error) {
	return newBlockCache(lwf).evaluate(rows, cols)
}
