package fiber

// IntegrandFunctor combines a kernel value with the transformed test and
// trial shape functions. test[t] holds the components of test
// transformation t, likewise for trial. It is bilinear in test and trial.
type IntegrandFunctor interface {
	Name() string
	Evaluate(kernel complex128, test, trial [][]float64) complex128
}

// ScalarProductIntegrand is K sum_c T_test,c T_trial,c over the first
// transformation of each side
type ScalarProductIntegrand struct{}

func (ScalarProductIntegrand) Name() string { return "scalar product" }

func (ScalarProductIntegrand) Evaluate(kernel complex128, test, trial [][]float64) complex128 {
	var sum float64
	for c, v := range test[0] {
		sum += v * trial[0][c]
	}
	return kernel * complex(sum, 0)
}

// HypersingularIntegrand is K (curl.curl + kappa^2 (phi n_x).(psi n_y)) for
// test and trial transformations {SurfaceCurl, ValueTimesNormal}
type HypersingularIntegrand struct {
	Kappa complex128
}

func (HypersingularIntegrand) Name() string { return "hypersingular" }

func (hi HypersingularIntegrand) Evaluate(kernel complex128, test, trial [][]float64) complex128 {
	var curls, normals float64
	for c := 0; c < 3; c++ {
		curls += test[0][c] * trial[0][c]
		normals += test[1][c] * trial[1][c]
	}
	return kernel * (complex(curls, 0) + hi.Kappa*hi.Kappa*complex(normals, 0))
}
