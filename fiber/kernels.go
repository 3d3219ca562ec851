package fiber

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/notargets/gobem/types"
)

// KernelFunctor evaluates a kernel between a test and a trial point
type KernelFunctor interface {
	Name() string
	// AddGeometricalDependencies ors the quantities Evaluate reads into the masks
	AddGeometricalDependencies(test, trial *GeomDeps)
	// Evaluate returns the kernel between test point i and trial point j
	Evaluate(test, trial *GeometricalData, i, j int) complex128
	// EstimateRelativeScale is the magnitude decay of the kernel at a distance
	EstimateRelativeScale(distance float64) float64
	// SingularityOrder is p for a kernel behaving like 1/r^p
	SingularityOrder() int
	// WaveNumber is the modified Helmholtz parameter kappa
	WaveNumber() complex128
}

// KernelForm selects the derivative of the Green's function
type KernelForm uint8

const (
	SingleLayer KernelForm = iota
	DoubleLayer
	AdjointDoubleLayer
)

func (kf KernelForm) String() string {
	return [...]string{"single layer", "double layer", "adjoint double layer"}[kf]
}

// ModifiedHelmholtzKernel is built on G = exp(-kappa r) / (4 pi r). Laplace
// is kappa = 0 and the Helmholtz wave number k maps to kappa = -ik.
type ModifiedHelmholtzKernel struct {
	Form  KernelForm
	Kappa complex128
}

// NewKernel validates kappa against the result type: a real operator needs
// a real kappa
func NewKernel(form KernelForm, kappa complex128, resultType types.ResultType) (*ModifiedHelmholtzKernel, error) {
	if resultType == types.Real && imag(kappa) != 0 {
		return nil, fmt.Errorf("%w: real %v kernel with complex wave number %v",
			types.ErrConfiguration, form, kappa)
	}
	if cmplx.IsNaN(kappa) || cmplx.IsInf(kappa) {
		return nil, fmt.Errorf("%w: wave number %v", types.ErrConfiguration, kappa)
	}
	if real(kappa) < 0 {
		return nil, fmt.Errorf("%w: kernel grows with distance for kappa %v", types.ErrConfiguration, kappa)
	}
	return &ModifiedHelmholtzKernel{Form: form, Kappa: kappa}, nil
}

func (k *ModifiedHelmholtzKernel) Name() string { return k.Form.String() }

func (k *ModifiedHelmholtzKernel) AddGeometricalDependencies(test, trial *GeomDeps) {
	*test |= Globals
	*trial |= Globals
	switch k.Form {
	case DoubleLayer:
		*trial |= Normals
	case AdjointDoubleLayer:
		*test |= Normals
	}
}

func (k *ModifiedHelmholtzKernel) Evaluate(test, trial *GeometricalData, i, j int) complex128 {
	var (
		x, y = test.Globals[i], trial.Globals[j]
		d    = [3]float64{x[0] - y[0], x[1] - y[1], x[2] - y[2]}
		r    = math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
	)
	return k.evaluate(expKappa(k.Kappa, r), d, r, test, trial, i, j)
}

// evaluate applies the form to a precomputed exp(-kappa r). d = x - y.
func (k *ModifiedHelmholtzKernel) evaluate(e complex128, d [3]float64, r float64,
	test, trial *GeometricalData, i, j int) complex128 {
	switch k.Form {
	case DoubleLayer:
		// -exp(-kr)(1+kr) (y-x).n_y / (4 pi r^3)
		n := trial.Normals[j]
		dot := -(d[0]*n[0] + d[1]*n[1] + d[2]*n[2])
		return -e * (1 + k.Kappa*complex(r, 0)) * complex(dot/(4*math.Pi*r*r*r), 0)
	case AdjointDoubleLayer:
		n := test.Normals[i]
		dot := d[0]*n[0] + d[1]*n[1] + d[2]*n[2]
		return -e * (1 + k.Kappa*complex(r, 0)) * complex(dot/(4*math.Pi*r*r*r), 0)
	}
	return e / complex(4*math.Pi*r, 0)
}

func (k *ModifiedHelmholtzKernel) EstimateRelativeScale(distance float64) float64 {
	return math.Exp(-real(k.Kappa) * distance)
}

func (k *ModifiedHelmholtzKernel) SingularityOrder() int {
	if k.Form == SingleLayer {
		return 1
	}
	return 2
}

func (k *ModifiedHelmholtzKernel) WaveNumber() complex128 { return k.Kappa }

func expKappa(kappa complex128, r float64) complex128 {
	if kappa == 0 {
		return 1
	}
	return cmplx.Exp(-kappa * complex(r, 0))
}
