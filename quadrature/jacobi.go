package quadrature

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// GaussJacobi computes the n point Gauss quadrature on [-1,1] for the
// weight (1-x)^alpha (1+x)^beta using the Golub-Welsch eigenvalue method.
// The rule is exact for polynomials of degree 2n-1.
func GaussJacobi(alpha, beta float64, n int) (x, w []float64) {
	var (
		N          = n - 1
		fac        float64
		h1, d0, d1 []float64
	)
	if n < 1 {
		panic(fmt.Errorf("gauss jacobi rule needs at least one point, have %d", n))
	}
	if N == 0 {
		x = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		w = []float64{gamma0(alpha, beta)}
		return
	}

	h1 = make([]float64, N+1)
	for i := 0; i < N+1; i++ {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// main diagonal: diag(-1/2*(alpha^2-beta^2)./(h1+2)./h1)
	d0 = make([]float64, N+1)
	fac = -.5 * (alpha*alpha - beta*beta)
	for i := 0; i < N+1; i++ {
		val := h1[i]
		d0[i] = fac / (val * (val + 2.))
	}
	// Handle division by zero
	eps := 1.e-16
	if alpha+beta < 10*eps {
		d0[0] = 0.
	}

	// 1st upper diagonal: diag(2./(h1(1:N)+2).*sqrt((1:N).*((1:N)+alpha+beta) .* ((1:N)+alpha).*((1:N)+beta)./(h1(1:N)+1)./(h1(1:N)+3)),1);
	var ip1 float64
	d1 = make([]float64, N)
	for i := 0; i < N; i++ {
		ip1 = float64(i + 1)
		val := h1[i]
		d1[i] = 2. / (val + 2.)
		d1[i] *= math.Sqrt(ip1 * (ip1 + alpha + beta) * (ip1 + alpha) * (ip1 + beta) / ((val + 1.) * (val + 3.)))
	}

	JJ := mat.NewSymDense(N+1, nil)
	for i := 0; i < N+1; i++ {
		JJ.SetSym(i, i, d0[i])
		if i < N {
			JJ.SetSym(i, i+1, d1[i])
		}
	}

	var eig mat.EigenSym
	ok := eig.Factorize(JJ, true)
	if !ok {
		panic("eigenvalue decomposition failed")
	}
	x = eig.Values(nil)

	VVr := mat.NewDense(N+1, N+1, nil)
	eig.VectorsTo(VVr)
	g0 := gamma0(alpha, beta)
	w = make([]float64, N+1)
	for i := range w {
		v := VVr.At(0, i)
		w[i] = v * v * g0
	}
	return
}

// gamma0 is the integral of the Jacobi weight over [-1,1]
func gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	a1 := alpha + 1.
	b1 := beta + 1.
	return math.Gamma(a1) * math.Gamma(b1) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}

// GaussLegendre01 is the n point Gauss-Legendre rule mapped to [0,1]
func GaussLegendre01(n int) (x, w []float64) {
	x, w = GaussJacobi(0, 0, n)
	for i := range x {
		x[i] = 0.5 * (x[i] + 1)
		w[i] *= 0.5
	}
	return
}

// PointsForOrder is the Gauss point count exact for degree order
func PointsForOrder(order int) int {
	if order < 0 {
		order = 0
	}
	return order/2 + 1
}
