package assembly

import (
	"time"

	"github.com/notargets/gobem/space"
	"github.com/notargets/gobem/utils"
	"go.uber.org/zap"
)

// LocalMassForm evaluates element mass blocks, see fiber.MassAssembler
type LocalMassForm interface {
	TestSpace() space.Space
	TrialSpace() space.Space
	EvaluateLocalWeakForm(element int) ([][]float64, error)
}

// AssembleIdentity scatters element mass blocks into a sparse or, when
// sparse storage of mass matrices is disabled, a dense operator
func AssembleIdentity(lmf LocalMassForm, opts Options) (DiscreteBoundaryOperator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	var (
		test, trial = lmf.TestSpace(), lmf.TrialSpace()
		rows, cols  = test.GlobalDofCount(), trial.GlobalDofCount()
		nElements   = test.Grid().EntityCount(0)
		dok         = utils.NewDOK(rows, cols)
		start       = time.Now()
	)
	for e := 0; e < nElements; e++ {
		block, err := lmf.EvaluateLocalWeakForm(e)
		if err != nil {
			return nil, err
		}
		trialDofs := trial.GlobalDofs(e)
		for a, i := range test.GlobalDofs(e) {
			for b, j := range trialDofs {
				if block[a][b] != 0 {
					dok.Add(i, j, block[a][b])
				}
			}
		}
	}
	dok.SetReadOnly("identity")
	csr := dok.ToCSR()
	opts.logger().Info("identity assembled",
		zap.Int("rows", rows), zap.Int("columns", cols), zap.Int("nnz", csr.NNZ()),
		zap.Bool("sparse", opts.SparseStorageOfMassMatrices), zap.Duration("elapsed", time.Since(start)))
	sp := &SparseOperator{M: csr}
	if opts.SparseStorageOfMassMatrices {
		return sp, nil
	}
	if err := checkDenseAllocation(rows, cols, opts.DenseMemoryLimit); err != nil {
		return nil, err
	}
	return NewDenseOperator(sp.AsMatrix()), nil
}
