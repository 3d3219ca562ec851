package basis

import (
	"fmt"
	"math"

	"github.com/notargets/gobem/types"
	"gonum.org/v1/gonum/mat"
)

// LagrangeTriangle is the nodal basis on the equispaced lattice of the unit
// triangle. Local dof ldof sits at (ldofx/p, ldofy/p) with
// ldof = ldofy*(p+1) - ldofy*(ldofy-1)/2 + ldofx, so corner dofs are 0, p
// and the last one.
type LagrangeTriangle struct {
	P     int
	nodes [][2]float64
	Vinv  *mat.Dense // modal to nodal coefficients
}

func NewLagrangeTriangle(p int) (lt *LagrangeTriangle) {
	var (
		Np = (p + 1) * (p + 2) / 2
	)
	lt = &LagrangeTriangle{P: p, nodes: make([][2]float64, Np)}
	for ldofy := 0; ldofy <= p; ldofy++ {
		for ldofx := 0; ldofx+ldofy <= p; ldofx++ {
			ldof := ldofy*(p+1) - ldofy*(ldofy-1)/2 + ldofx
			lt.nodes[ldof] = [2]float64{float64(ldofx) / float64(p), float64(ldofy) / float64(p)}
		}
	}
	V := mat.NewDense(Np, Np, nil)
	for i, node := range lt.nodes {
		r, s := 2*node[0]-1, 2*node[1]-1
		var sk int
		for ii := 0; ii <= p; ii++ {
			for jj := 0; jj <= p-ii; jj++ {
				V.Set(i, sk, simplex2DPTerm(r, s, ii, jj))
				sk++
			}
		}
	}
	lt.Vinv = mat.NewDense(Np, Np, nil)
	if err := lt.Vinv.Inverse(V); err != nil {
		panic(fmt.Errorf("vandermonde of order %d is singular: %v", p, err))
	}
	return
}

func (lt *LagrangeTriangle) Variant() types.ElementVariant { return types.VariantTriangle }
func (lt *LagrangeTriangle) Order() int                    { return lt.P }
func (lt *LagrangeTriangle) Size() int                     { return len(lt.nodes) }
func (lt *LagrangeTriangle) Nodes() [][2]float64           { return lt.nodes }

func (lt *LagrangeTriangle) Evaluate(what DataFlags, points [][2]float64) (d Data) {
	var (
		Np    = lt.Size()
		modes = make([]float64, Np)
		ddr   = make([]float64, Np)
		dds   = make([]float64, Np)
	)
	d = newData(what, Np, len(points))
	for ip, pt := range points {
		r, s := 2*pt[0]-1, 2*pt[1]-1
		var sk int
		for ii := 0; ii <= lt.P; ii++ {
			for jj := 0; jj <= lt.P-ii; jj++ {
				if d.Values != nil {
					modes[sk] = simplex2DPTerm(r, s, ii, jj)
				}
				if d.Derivatives != nil {
					ddr[sk], dds[sk] = gradSimplex2DPTerm(r, s, ii, jj)
				}
				sk++
			}
		}
		for k := 0; k < Np; k++ {
			var val, du, dv float64
			for j := 0; j < Np; j++ {
				c := lt.Vinv.At(j, k)
				val += c * modes[j]
				du += c * ddr[j]
				dv += c * dds[j]
			}
			if d.Values != nil {
				d.Values[k][ip] = val
			}
			if d.Derivatives != nil {
				// d/du = 2 d/dr
				d.Derivatives[k][ip] = [2]float64{2 * du, 2 * dv}
			}
		}
	}
	return
}

// JacobiP computes the Jacobi polynomial of degree n with parameters alpha, beta
func JacobiP(x float64, alpha, beta float64, n int) float64 {
	if n == 0 {
		return 1.0
	}
	if n == 1 {
		return 0.5 * (alpha - beta + (alpha+beta+2)*x)
	}

	// Three-term recurrence
	p0 := 1.0
	p1 := 0.5 * (alpha - beta + (alpha+beta+2)*x)

	for k := 1; k < n; k++ {
		kF := float64(k)
		a1 := 2 * (kF + 1) * (kF + alpha + beta + 1) * (2*kF + alpha + beta)
		a2 := (2*kF + alpha + beta + 1) * (alpha*alpha - beta*beta)
		a3 := (2*kF + alpha + beta) * (2*kF + alpha + beta + 1) * (2*kF + alpha + beta + 2)
		a4 := 2 * (kF + alpha) * (kF + beta) * (2*kF + alpha + beta + 2)

		p2 := ((a2+a3*x)*p1 - a4*p0) / a1
		p0 = p1
		p1 = p2
	}

	return p1
}

// GradJacobiP computes the derivative of Jacobi polynomial
func GradJacobiP(x float64, alpha, beta float64, n int) float64 {
	if n == 0 {
		return 0.0
	}
	return 0.5 * (alpha + beta + float64(n) + 1) * JacobiP(x, alpha+1, beta+1, n-1)
}

func rsToab(r, s float64) (a, b float64) {
	if s != 1 {
		a = 2*(1+r)/(1-s) - 1
	} else {
		a = -1
	}
	b = s
	return
}

// simplex2DPTerm is the orthogonal Dubiner mode (i,j) on the triangle
// with corners (-1,-1), (1,-1), (-1,1)
func simplex2DPTerm(r, s float64, i, j int) float64 {
	a, b := rsToab(r, s)
	h1 := JacobiP(a, 0, 0, i)
	h2 := JacobiP(b, float64(2*i+1), 0, j)
	return math.Sqrt2 * h1 * h2 * math.Pow(1-b, float64(i))
}

func gradSimplex2DPTerm(r, s float64, id, jd int) (ddr, dds float64) {
	var (
		a, b = rsToab(r, s)
		fa   = JacobiP(a, 0, 0, id)
		dfa  = GradJacobiP(a, 0, 0, id)
		gb   = JacobiP(b, 2*float64(id)+1, 0, jd)
		dgb  = GradJacobiP(b, 2*float64(id)+1, 0, jd)
		half = 0.5 * (1 - b)
	)
	// d/dr = da/dr d/da + db/dr d/db = (2/(1-s)) d/da
	ddr = dfa * gb
	if id > 0 {
		ddr *= math.Pow(half, float64(id-1))
	}
	// d/ds = ((1+a)/2)/((1-b)/2) d/da + d/db
	dds = 0.5 * dfa * gb * (1 + a)
	if id > 0 {
		dds *= math.Pow(half, float64(id-1))
	}
	tmp := dgb * math.Pow(half, float64(id))
	if id > 0 {
		tmp -= 0.5 * float64(id) * gb * math.Pow(half, float64(id-1))
	}
	dds += fa * tmp
	// Normalize
	norm := math.Pow(2, float64(id)+0.5)
	ddr *= norm
	dds *= norm
	return
}

// LagrangeQuad is the tensor product of equispaced 1D Lagrange bases.
// Local dof j*(p+1)+i sits at (i/p, j/p).
type LagrangeQuad struct {
	P     int
	t     []float64
	nodes [][2]float64
}

func NewLagrangeQuad(p int) (lq *LagrangeQuad) {
	lq = &LagrangeQuad{P: p, t: make([]float64, p+1)}
	for i := range lq.t {
		lq.t[i] = float64(i) / float64(p)
	}
	for j := 0; j <= p; j++ {
		for i := 0; i <= p; i++ {
			lq.nodes = append(lq.nodes, [2]float64{lq.t[i], lq.t[j]})
		}
	}
	return
}

func (lq *LagrangeQuad) Variant() types.ElementVariant { return types.VariantQuad }
func (lq *LagrangeQuad) Order() int                    { return lq.P }
func (lq *LagrangeQuad) Size() int                     { return len(lq.nodes) }
func (lq *LagrangeQuad) Nodes() [][2]float64           { return lq.nodes }

func (lq *LagrangeQuad) lagrange1D(k int, x float64) (val, deriv float64) {
	val = 1
	for m, tm := range lq.t {
		if m == k {
			continue
		}
		val *= (x - tm) / (lq.t[k] - tm)
	}
	for n, tn := range lq.t {
		if n == k {
			continue
		}
		term := 1 / (lq.t[k] - tn)
		for m, tm := range lq.t {
			if m == k || m == n {
				continue
			}
			term *= (x - tm) / (lq.t[k] - tm)
		}
		deriv += term
	}
	return
}

func (lq *LagrangeQuad) Evaluate(what DataFlags, points [][2]float64) (d Data) {
	var (
		n1 = lq.P + 1
	)
	d = newData(what, lq.Size(), len(points))
	lu, du := make([]float64, n1), make([]float64, n1)
	lv, dv := make([]float64, n1), make([]float64, n1)
	for ip, pt := range points {
		for k := 0; k < n1; k++ {
			lu[k], du[k] = lq.lagrange1D(k, pt[0])
			lv[k], dv[k] = lq.lagrange1D(k, pt[1])
		}
		for j := 0; j < n1; j++ {
			for i := 0; i < n1; i++ {
				ldof := j*n1 + i
				if d.Values != nil {
					d.Values[ldof][ip] = lu[i] * lv[j]
				}
				if d.Derivatives != nil {
					d.Derivatives[ldof][ip] = [2]float64{du[i] * lv[j], lu[i] * dv[j]}
				}
			}
		}
	}
	return
}
