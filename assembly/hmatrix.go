package assembly

import (
	"sync/atomic"
	"time"

	"github.com/notargets/gobem/utils"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// hLeaf is a block of the tree ordered matrix. It is stored dense, as
// U V with U m x k and V k x n, or not at all when its rank is zero.
type hLeaf struct {
	rowStart, rowEnd int
	colStart, colEnd int
	admissible       bool
	dense            *mat.CDense
	u, v             *mat.CDense
	rank             int
}

func (hl *hLeaf) storage() int {
	switch {
	case hl.dense != nil:
		r, c := hl.dense.Dims()
		return r * c
	case hl.rank > 0:
		return hl.rank * (hl.rowEnd - hl.rowStart + hl.colEnd - hl.colStart)
	}
	return 0
}

// HMatrix is a hierarchical matrix built by adaptive cross approximation
type HMatrix struct {
	rows, cols         int
	rowOrder, colOrder []int
	leaves             []hLeaf
}

func (h *HMatrix) RowCount() int    { return h.rows }
func (h *HMatrix) ColumnCount() int { return h.cols }

func (h *HMatrix) Apply(x []complex128) (y []complex128, err error) {
	if err = checkOperand(h, x); err != nil {
		return
	}
	var (
		xt = make([]complex128, h.cols)
		yt = make([]complex128, h.rows)
	)
	for p, d := range h.colOrder {
		xt[p] = x[d]
	}
	for i := range h.leaves {
		var (
			hl = &h.leaves[i]
			xs = xt[hl.colStart:hl.colEnd]
			ys = yt[hl.rowStart:hl.rowEnd]
		)
		switch {
		case hl.dense != nil:
			gemv(1, hl.dense, xs, ys)
		case hl.rank > 0:
			tmp := make([]complex128, hl.rank)
			gemv(1, hl.v, xs, tmp)
			gemv(1, hl.u, tmp, ys)
		}
	}
	y = make([]complex128, h.rows)
	for p, d := range h.rowOrder {
		y[d] = yt[p]
	}
	return
}

func (h *HMatrix) AsMatrix() *mat.CDense {
	m := mat.NewCDense(h.rows, h.cols, nil)
	for i := range h.leaves {
		hl := &h.leaves[i]
		if hl.dense == nil && hl.rank == 0 {
			continue
		}
		var block *mat.CDense
		if hl.dense != nil {
			block = hl.dense
		} else {
			block = mat.NewCDense(hl.rowEnd-hl.rowStart, hl.colEnd-hl.colStart, nil)
			for a := 0; a < hl.rowEnd-hl.rowStart; a++ {
				for b := 0; b < hl.colEnd-hl.colStart; b++ {
					var s complex128
					for l := 0; l < hl.rank; l++ {
						s += hl.u.At(a, l) * hl.v.At(l, b)
					}
					block.Set(a, b, s)
				}
			}
		}
		for a := hl.rowStart; a < hl.rowEnd; a++ {
			for b := hl.colStart; b < hl.colEnd; b++ {
				i, j := h.rowOrder[a], h.colOrder[b]
				m.Set(i, j, m.At(i, j)+block.At(a-hl.rowStart, b-hl.colStart))
			}
		}
	}
	return m
}

// HMatrixStats summarizes the compression of an HMatrix
type HMatrixStats struct {
	Leaves, AdmissibleLeaves int
	MaximumRank              int
	CompressionRatio         float64 // stored entries over rows*cols
}

func (h *HMatrix) Stats() (st HMatrixStats) {
	var stored int
	st.Leaves = len(h.leaves)
	for i := range h.leaves {
		hl := &h.leaves[i]
		if hl.admissible {
			st.AdmissibleLeaves++
			st.MaximumRank = max(st.MaximumRank, hl.rank)
		}
		stored += hl.storage()
	}
	st.CompressionRatio = float64(stored) / float64(h.rows*h.cols)
	return
}

func factorsToDense(lr lowRank, m, n int) (u, v *mat.CDense) {
	k := lr.rank()
	u = mat.NewCDense(m, k, nil)
	v = mat.NewCDense(k, n, nil)
	for l := 0; l < k; l++ {
		for i := 0; i < m; i++ {
			u.Set(i, l, lr.us[l][i])
		}
		for j := 0; j < n; j++ {
			v.Set(l, j, lr.vs[l][j])
		}
	}
	return
}

// AssembleACA builds an HMatrix. Dofs are clustered by their bounding
// boxes, admissible blocks are approximated by partially pivoted ACA and
// all other blocks are evaluated densely. Leaves are assembled in parallel
// and each owns its storage.
func AssembleACA(lwf LocalWeakForm, opts Options) (h *HMatrix, err error) {
	if err = opts.Validate(); err != nil {
		return
	}
	var (
		test, trial = lwf.TestSpace(), lwf.TrialSpace()
		aca         = opts.Aca
		log         = opts.logger()
		start       = time.Now()
		rowTree     = NewClusterTree(test.GlobalDofBoundingBoxes(), aca.MinimumBlockSize)
		colTree     = NewClusterTree(trial.GlobalDofBoundingBoxes(), aca.MinimumBlockSize)
		blocks      = BlockClusterLeaves(rowTree, colTree, aca.Eta)
		fallbacks   atomic.Int64
	)
	if err = checkDenseAllocation(test.GlobalDofCount(), trial.GlobalDofCount(), 0); err != nil {
		return
	}
	h = &HMatrix{
		rows:     test.GlobalDofCount(),
		cols:     trial.GlobalDofCount(),
		rowOrder: rowTree.Order,
		colOrder: colTree.Order,
		leaves:   make([]hLeaf, len(blocks)),
	}
	log.Info("assembling ACA weak form",
		zap.Int("rows", h.rows), zap.Int("columns", h.cols),
		zap.Int("blocks", len(blocks)), zap.Float64("eps", aca.Eps), zap.Float64("eta", aca.Eta))

	err = utils.ForEach(opts.MaxThreadCount, len(blocks), func(ib int) (err error) {
		var (
			bl   = blocks[ib]
			rows = rowTree.Order[bl.Row.Start:bl.Row.End]
			cols = colTree.Order[bl.Col.Start:bl.Col.End]
			hl   = &h.leaves[ib]
		)
		*hl = hLeaf{
			rowStart: bl.Row.Start, rowEnd: bl.Row.End,
			colStart: bl.Col.Start, colEnd: bl.Col.End,
			admissible: bl.Admissible,
		}
		if !bl.Admissible {
			hl.dense, err = evaluateBlock(lwf, rows, cols)
			return
		}
		var (
			scale = lwf.EstimateRelativeScale(bl.Row.BoundingBox.Distance(bl.Col.BoundingBox))
			eps   = aca.Eps
		)
		if scale <= eps {
			// negligible relative to the nearfield
			return
		}
		eps /= scale
		cache := newBlockCache(lwf)
		row := func(i int) ([]complex128, error) {
			b, err := cache.evaluate(rows[i:i+1], cols)
			if err != nil {
				return nil, err
			}
			return b.RawCMatrix().Data, nil
		}
		col := func(j int) ([]complex128, error) {
			b, err := cache.evaluate(rows, cols[j:j+1])
			if err != nil {
				return nil, err
			}
			return b.RawCMatrix().Data, nil
		}
		lr, converged, err := partialACA(len(rows), len(cols), row, col, eps, aca.MaximumRank)
		if err != nil {
			return
		}
		if !converged {
			fallbacks.Add(1)
			hl.dense, err = cache.evaluate(rows, cols)
			return
		}
		if aca.Recompress {
			lr = recompress(lr, eps)
		}
		hl.rank = lr.rank()
		if hl.rank > 0 {
			hl.u, hl.v = factorsToDense(lr, len(rows), len(cols))
		}
		log.Debug("admissible block",
			zap.Int("rows", len(rows)), zap.Int("columns", len(cols)), zap.Int("rank", hl.rank))
		return
	})
	if err != nil {
		return nil, err
	}
	st := h.Stats()
	log.Info("ACA assembly finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("leaves", st.Leaves), zap.Int("admissible", st.AdmissibleLeaves),
		zap.Int("maxRank", st.MaximumRank), zap.Int64("denseFallbacks", fallbacks.Load()),
		zap.Float64("compression", st.CompressionRatio))
	return
}

// AssembleWeakForm dispatches on the assembly mode
func AssembleWeakForm(lwf LocalWeakForm, opts Options) (DiscreteBoundaryOperator, error) {
	if opts.Mode == ACA {
		h, err := AssembleACA(lwf, opts)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	d, err := AssembleDense(lwf, opts)
	if err != nil {
		return nil, err
	}
	return d, nil
}
