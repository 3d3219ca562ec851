package assembly

import (
	"fmt"

	"github.com/notargets/gobem/types"
	"github.com/notargets/gobem/utils"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"
)

// DiscreteBoundaryOperator is an assembled weak form. Its rows are the
// dofs of the dual to range space and its columns the dofs of the domain.
type DiscreteBoundaryOperator interface {
	RowCount() int
	ColumnCount() int
	// Apply returns A x
	Apply(x []complex128) ([]complex128, error)
	// AsMatrix expands the operator into a new dense matrix
	AsMatrix() *mat.CDense
}

func checkOperand(op DiscreteBoundaryOperator, x []complex128) error {
	if len(x) != op.ColumnCount() {
		return fmt.Errorf("%w: operand of length %d for a %dx%d operator",
			types.ErrConfiguration, len(x), op.RowCount(), op.ColumnCount())
	}
	return nil
}

// gemv computes y += alpha A x for a block of a dense matrix
func gemv(alpha complex128, a *mat.CDense, x, y []complex128) {
	var (
		raw  = a.RawCMatrix()
		r, c = a.Dims()
	)
	if r == 0 || c == 0 {
		return
	}
	cblas128.Gemv(blas.NoTrans, alpha, raw,
		cblas128.Vector{N: c, Inc: 1, Data: x},
		1, cblas128.Vector{N: r, Inc: 1, Data: y})
}

type DenseOperator struct {
	M *mat.CDense
}

func NewDenseOperator(m *mat.CDense) *DenseOperator { return &DenseOperator{M: m} }

func (d *DenseOperator) RowCount() int    { r, _ := d.M.Dims(); return r }
func (d *DenseOperator) ColumnCount() int { _, c := d.M.Dims(); return c }

func (d *DenseOperator) Apply(x []complex128) (y []complex128, err error) {
	if err = checkOperand(d, x); err != nil {
		return
	}
	y = make([]complex128, d.RowCount())
	gemv(1, d.M, x, y)
	return
}

func (d *DenseOperator) AsMatrix() *mat.CDense {
	r, c := d.M.Dims()
	m := mat.NewCDense(r, c, nil)
	addScaled(m, 1, d.M)
	return m
}

// addScaled computes dst += alpha src
func addScaled(dst *mat.CDense, alpha complex128, src *mat.CDense) {
	var (
		rd   = dst.RawCMatrix()
		rs   = src.RawCMatrix()
		r, c = src.Dims()
	)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			rd.Data[i*rd.Stride+j] += alpha * rs.Data[i*rs.Stride+j]
		}
	}
}

// SparseOperator holds a real sparse weak form such as a mass matrix
type SparseOperator struct {
	M utils.CSR
}

func (s *SparseOperator) RowCount() int    { r, _ := s.M.Dims(); return r }
func (s *SparseOperator) ColumnCount() int { _, c := s.M.Dims(); return c }

func (s *SparseOperator) Apply(x []complex128) (y []complex128, err error) {
	if err = checkOperand(s, x); err != nil {
		return
	}
	y = make([]complex128, s.RowCount())
	s.M.MulVecC(y, x, false)
	return
}

func (s *SparseOperator) AsMatrix() *mat.CDense {
	m := mat.NewCDense(s.RowCount(), s.ColumnCount(), nil)
	s.M.DoNonZero(func(i, j int, v float64) {
		m.Set(i, j, complex(v, 0))
	})
	return m
}

// SumOperator adds operators of equal shape
type SumOperator struct {
	Terms []DiscreteBoundaryOperator
}

func NewSumOperator(terms ...DiscreteBoundaryOperator) (*SumOperator, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: empty operator sum", types.ErrConfiguration)
	}
	for _, t := range terms[1:] {
		if t.RowCount() != terms[0].RowCount() || t.ColumnCount() != terms[0].ColumnCount() {
			return nil, fmt.Errorf("%w: cannot add %dx%d and %dx%d operators", types.ErrConfiguration,
				terms[0].RowCount(), terms[0].ColumnCount(), t.RowCount(), t.ColumnCount())
		}
	}
	return &SumOperator{Terms: terms}, nil
}

func (s *SumOperator) RowCount() int    { return s.Terms[0].RowCount() }
func (s *SumOperator) ColumnCount() int { return s.Terms[0].ColumnCount() }

func (s *SumOperator) Apply(x []complex128) (y []complex128, err error) {
	if err = checkOperand(s, x); err != nil {
		return
	}
	y = make([]complex128, s.RowCount())
	for _, t := range s.Terms {
		var yt []complex128
		if yt, err = t.Apply(x); err != nil {
			return nil, err
		}
		for i := range y {
			y[i] += yt[i]
		}
	}
	return
}

func (s *SumOperator) AsMatrix() *mat.CDense {
	m := s.Terms[0].AsMatrix()
	for _, t := range s.Terms[1:] {
		addScaled(m, 1, t.AsMatrix())
	}
	return m
}

// ScaledOperator is Alpha times an operator
type ScaledOperator struct {
	Alpha complex128
	Op    DiscreteBoundaryOperator
}

func (s *ScaledOperator) RowCount() int    { return s.Op.RowCount() }
func (s *ScaledOperator) ColumnCount() int { return s.Op.ColumnCount() }

func (s *ScaledOperator) Apply(x []complex128) (y []complex128, err error) {
	if y, err = s.Op.Apply(x); err != nil {
		return
	}
	for i := range y {
		y[i] *= s.Alpha
	}
	return
}

func (s *ScaledOperator) AsMatrix() *mat.CDense {
	m := mat.NewCDense(s.RowCount(), s.ColumnCount(), nil)
	addScaled(m, s.Alpha, s.Op.AsMatrix())
	return m
}
