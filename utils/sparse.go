package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// DOK accumulates real sparse entries during assembly. Weak forms of the
// identity operator are real for every supported space, complex operands
// are handled at apply time.
type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return mat.Transpose{Matrix: m} }

func (m *DOK) SetReadOnly(name ...string) {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
}

// Add accumulates val into entry (i,j)
func (m DOK) Add(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M:    m.M.ToCSR(),
		name: m.name,
	}
}

// CSR is the compressed row form used for matrix vector products
type CSR struct {
	M    *sparse.CSR
	name string
}

func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return mat.Transpose{Matrix: m} }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }
func (m CSR) NNZ() int                      { return len(m.RawMatrix().Data) }

// MulVecC computes dst = A x, or dst = A^T x when trans is set, for a
// complex operand
func (m CSR) MulVecC(dst, x []complex128, trans bool) {
	var (
		nr, nc = m.Dims()
		raw    = m.RawMatrix()
	)
	if trans {
		nr, nc = nc, nr
	}
	if len(x) != nc || len(dst) != nr {
		panic(fmt.Errorf("dimension mismatch in %q: matrix %dx%d, len(x) = %d, len(dst) = %d",
			m.name, nr, nc, len(x), len(dst)))
	}
	for i := range dst {
		dst[i] = 0
	}
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
			j, v := raw.Ind[jj], complex(raw.Data[jj], 0)
			if trans {
				dst[j] += v * x[i]
			} else {
				dst[i] += v * x[j]
			}
		}
	}
}

// DoNonZero visits stored entries in row order
func (m CSR) DoNonZero(fn func(i, j int, v float64)) {
	var (
		rows, _ = m.Dims()
		raw     = m.RawMatrix()
	)
	for i := 0; i < rows; i++ {
		for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
			fn(i, raw.Ind[jj], raw.Data[jj])
		}
	}
}
