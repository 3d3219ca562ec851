package assembly

import (
	"math"
	"math/cmplx"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// lowRank is sum_l us[l] vs[l]^T
type lowRank struct {
	us, vs [][]complex128
}

func (lr lowRank) rank() int { return len(lr.us) }

func argmaxAbs(x []complex128, skip []bool) int {
	abs := make([]float64, len(x))
	for i, v := range x {
		if skip == nil || !skip[i] {
			abs[i] = cmplx.Abs(v)
		} else {
			abs[i] = -1
		}
	}
	return floats.MaxIdx(abs)
}

func dotc(x, y []complex128) (s complex128) {
	for i := range x {
		s += cmplx.Conj(x[i]) * y[i]
	}
	return
}

func norm2(x []complex128) (s float64) {
	for _, v := range x {
		s += real(v)*real(v) + imag(v)*imag(v)
	}
	return
}

// partialACA builds a cross approximation of an m x n block from single rows
// and columns. It stops when the last cross is below eps times the estimated
// Frobenius norm of the approximation. converged is false if maxRank was
// reached or the factors would outgrow the block.
func partialACA(m, n int, row func(i int) ([]complex128, error), col func(j int) ([]complex128, error),
	eps float64, maxRank int) (lr lowRank, converged bool, err error) {
	var (
		usedRows = make([]bool, m)
		nUsed    int
		normS2   float64
		i        int
	)
	for {
		if maxRank > 0 && lr.rank() >= maxRank {
			return
		}
		if (lr.rank()+1)*(m+n) > m*n {
			return
		}
		var r []complex128
		if r, err = row(i); err != nil {
			return
		}
		usedRows[i] = true
		nUsed++
		for l := range lr.us {
			alpha := lr.us[l][i]
			for j := range r {
				r[j] -= alpha * lr.vs[l][j]
			}
		}
		j := argmaxAbs(r, nil)
		pivot := r[j]
		if pivot == 0 {
			if nUsed == m {
				converged = true
				return
			}
			for usedRows[i] {
				i = (i + 1) % m
			}
			continue
		}
		for k := range r {
			r[k] /= pivot
		}
		var c []complex128
		if c, err = col(j); err != nil {
			return
		}
		for l := range lr.us {
			beta := lr.vs[l][j]
			for k := range c {
				c[k] -= beta * lr.us[l][k]
			}
		}
		var (
			uu, vv = norm2(c), norm2(r)
			cross  float64
		)
		for l := range lr.us {
			cross += 2 * real(dotc(lr.us[l], c)*dotc(lr.vs[l], r))
		}
		normS2 += cross + uu*vv
		lr.us = append(lr.us, c)
		lr.vs = append(lr.vs, r)
		if math.Sqrt(uu*vv) <= eps*math.Sqrt(math.Abs(normS2)) || nUsed == m {
			converged = true
			return
		}
		i = argmaxAbs(c, usedRows)
		if usedRows[i] {
			for usedRows[i] {
				i = (i + 1) % m
			}
		}
	}
}

// mgs orthonormalizes columns by modified Gram-Schmidt, returning Q and the
// upper triangular R with cols = Q R. Dependent columns give zero Q columns.
func mgs(cols [][]complex128) (q [][]complex128, r [][]complex128) {
	k := len(cols)
	q = make([][]complex128, k)
	r = make([][]complex128, k)
	for a := range r {
		r[a] = make([]complex128, k)
	}
	for a := 0; a < k; a++ {
		v := slices.Clone(cols[a])
		for b := 0; b < a; b++ {
			rb := dotc(q[b], v)
			r[b][a] = rb
			for i := range v {
				v[i] -= rb * q[b][i]
			}
		}
		nrm := math.Sqrt(norm2(v))
		r[a][a] = complex(nrm, 0)
		if nrm > 0 {
			for i := range v {
				v[i] /= complex(nrm, 0)
			}
		}
		q[a] = v
	}
	return
}

// jacobiSVD factors a square matrix c[row][col] = W diag(sigma) Z^H by
// one-sided Jacobi rotations. w and z hold columns; sigma is descending.
func jacobiSVD(c [][]complex128) (sigma []float64, w, z [][]complex128) {
	const (
		tol       = 1.e-15
		maxSweeps = 60
	)
	var (
		k = len(c)
		g = make([][]complex128, k)
	)
	z = make([][]complex128, k)
	for p := 0; p < k; p++ {
		g[p] = make([]complex128, k)
		z[p] = make([]complex128, k)
		for a := 0; a < k; a++ {
			g[p][a] = c[a][p]
		}
		z[p][p] = 1
	}
	for sweep := 0; sweep < maxSweeps; sweep++ {
		rotated := false
		for p := 0; p < k-1; p++ {
			for q := p + 1; q < k; q++ {
				var (
					alpha = norm2(g[p])
					beta  = norm2(g[q])
					gamma = dotc(g[p], g[q])
					agam  = cmplx.Abs(gamma)
				)
				if agam == 0 || agam <= tol*math.Sqrt(alpha*beta) {
					continue
				}
				rotated = true
				phase := cmplx.Conj(gamma) / complex(agam, 0)
				for a := 0; a < k; a++ {
					g[q][a] *= phase
					z[q][a] *= phase
				}
				var (
					zeta = (beta - alpha) / (2 * agam)
					t    = 1 / (math.Abs(zeta) + math.Sqrt(1+zeta*zeta))
				)
				if zeta < 0 {
					t = -t
				}
				cs := 1 / math.Sqrt(1+t*t)
				sn := cs * t
				for _, m := range [][][]complex128{g, z} {
					for a := 0; a < k; a++ {
						xp, xq := m[p][a], m[q][a]
						m[p][a] = complex(cs, 0)*xp - complex(sn, 0)*xq
						m[q][a] = complex(sn, 0)*xp + complex(cs, 0)*xq
					}
				}
			}
		}
		if !rotated {
			break
		}
	}
	sigma = make([]float64, k)
	w = make([][]complex128, k)
	for p := 0; p < k; p++ {
		sigma[p] = math.Sqrt(norm2(g[p]))
		w[p] = g[p]
		if sigma[p] > 0 {
			for a := range w[p] {
				w[p][a] /= complex(sigma[p], 0)
			}
		}
	}
	order := make([]int, k)
	for p := range order {
		order[p] = p
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case sigma[a] > sigma[b]:
			return -1
		case sigma[a] < sigma[b]:
			return 1
		}
		return 0
	})
	var (
		s2 = make([]float64, k)
		w2 = make([][]complex128, k)
		z2 = make([][]complex128, k)
	)
	for p, o := range order {
		s2[p], w2[p], z2[p] = sigma[o], w[o], z[o]
	}
	return s2, w2, z2
}

// recompress reduces the rank of a cross approximation by truncating the
// singular values below eps times the largest
func recompress(lr lowRank, eps float64) lowRank {
	k := lr.rank()
	if k <= 1 {
		return lr
	}
	var (
		qu, ru = mgs(lr.us)
		qv, rv = mgs(lr.vs)
		c      = make([][]complex128, k)
	)
	// c = Ru Rv^T
	for a := 0; a < k; a++ {
		c[a] = make([]complex128, k)
		for b := 0; b < k; b++ {
			for l := 0; l < k; l++ {
				c[a][b] += ru[a][l] * rv[b][l]
			}
		}
	}
	sigma, w, z := jacobiSVD(c)
	r := 0
	for r < k && sigma[r] > eps*sigma[0] {
		r++
	}
	var (
		m, n = len(lr.us[0]), len(lr.vs[0])
		out  = lowRank{us: make([][]complex128, r), vs: make([][]complex128, r)}
	)
	for p := 0; p < r; p++ {
		u := make([]complex128, m)
		v := make([]complex128, n)
		for a := 0; a < k; a++ {
			wa := w[p][a] * complex(sigma[p], 0)
			for i := range u {
				u[i] += wa * qu[a][i]
			}
			zb := cmplx.Conj(z[p][a])
			for j := range v {
				v[j] += zb * qv[a][j]
			}
		}
		out.us[p], out.vs[p] = u, v
	}
	return out
}
