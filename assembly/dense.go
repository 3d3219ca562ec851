package assembly

import (
	"fmt"
	"slices"
	"time"

	"github.com/notargets/gobem/fiber"
	"github.com/notargets/gobem/types"
	"github.com/notargets/gobem/utils"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

const bytesPerEntry = 16

func checkDenseAllocation(rows, cols int, limit int64) error {
	if rows == 0 || cols == 0 {
		return fmt.Errorf("%w: empty %dx%d weak form", types.ErrConfiguration, rows, cols)
	}
	if need := int64(rows) * int64(cols) * bytesPerEntry; limit > 0 && need > limit {
		return fmt.Errorf("%w: dense %dx%d weak form needs %d bytes, limit is %d",
			types.ErrAllocation, rows, cols, need, limit)
	}
	return nil
}

// AssembleDense evaluates every element pair into a dense matrix. Rows are
// partitioned among workers and each worker only writes the rows it owns,
// so the result does not depend on the thread count.
func AssembleDense(lwf LocalWeakForm, opts Options) (op *DenseOperator, err error) {
	if err = opts.Validate(); err != nil {
		return
	}
	var (
		test, trial = lwf.TestSpace(), lwf.TrialSpace()
		rows, cols  = test.GlobalDofCount(), trial.GlobalDofCount()
		log         = opts.logger()
		start       = time.Now()
	)
	if err = checkDenseAllocation(rows, cols, opts.DenseMemoryLimit); err != nil {
		return
	}
	var (
		M        = mat.NewCDense(rows, cols, nil)
		raw      = M.RawCMatrix()
		nTrial   = trial.Grid().EntityCount(0)
		threads  = min(utils.ThreadCount(opts.MaxThreadCount), rows)
		pm       = utils.NewPartitionMap(threads, rows)
		g2l      = test.Global2LocalDofs()
		trialAll = make([]int, nTrial)
	)
	for e := range trialAll {
		trialAll[e] = e
	}
	log.Info("assembling dense weak form",
		zap.Int("rows", rows), zap.Int("columns", cols), zap.Int("threads", threads))

	err = pm.RunBuckets(func(bn, kMin, kMax int) error {
		var testElems []int
		for i := kMin; i < kMax; i++ {
			for _, ld := range g2l[i] {
				testElems = append(testElems, ld.Element)
			}
		}
		slices.Sort(testElems)
		testElems = slices.Compact(testElems)
		pairs := make([]fiber.ElementPair, nTrial)
		for _, te := range testElems {
			for k, se := range trialAll {
				pairs[k] = fiber.ElementPair{Test: te, Trial: se}
			}
			blocks, err := lwf.EvaluateLocalWeakForms(pairs)
			if err != nil {
				return err
			}
			testDofs := test.GlobalDofs(te)
			for k, se := range trialAll {
				trialDofs := trial.GlobalDofs(se)
				for a, i := range testDofs {
					if i < kMin || i >= kMax {
						continue
					}
					row := raw.Data[i*raw.Stride : i*raw.Stride+cols]
					for b, j := range trialDofs {
						row[j] += blocks[k][a][b]
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("dense assembly finished", zap.Duration("elapsed", time.Since(start)))
	return NewDenseOperator(M), nil
}
