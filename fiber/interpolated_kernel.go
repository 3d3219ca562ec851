package fiber

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/notargets/gobem/types"
)

const (
	DefaultPointsPerWavelength = 10
	DefaultInterpolationTol    = 1.e-10
	minimumIntervals           = 4
)

// InterpolatedKernel replaces exp(-kappa r) in a modified Helmholtz kernel
// by a cubic Hermite interpolant on [0, MaxDistance]. It is only valid for
// pairs of elements that do not touch; beyond MaxDistance the kernel is
// evaluated directly.
type InterpolatedKernel struct {
	*ModifiedHelmholtzKernel
	MaxDistance float64
	h           float64
	values      []complex128 // exp(-kappa r_i)
	derivs      []complex128 // -kappa exp(-kappa r_i)
}

// NewInterpolatedKernel sizes the table from points per wavelength of the
// oscillation and refines it until the Hermite error bound
// (|kappa| h)^4 / 384 is below tolerance
func NewInterpolatedKernel(base *ModifiedHelmholtzKernel, maxDistance float64,
	pointsPerWavelength int, tolerance float64) (ik *InterpolatedKernel, err error) {
	if base == nil || maxDistance <= 0 || pointsPerWavelength < 1 || tolerance <= 0 {
		err = fmt.Errorf("%w: interpolated kernel needs a kernel, a positive range, "+
			"points per wavelength and tolerance", types.ErrConfiguration)
		return
	}
	var (
		kabs      = cmplx.Abs(base.Kappa)
		intervals = int(math.Ceil(float64(pointsPerWavelength) * maxDistance * kabs / (2 * math.Pi)))
	)
	intervals = max(intervals, minimumIntervals)
	for {
		h := maxDistance / float64(intervals)
		if math.Pow(kabs*h, 4)/384 <= tolerance {
			break
		}
		intervals *= 2
	}
	ik = &InterpolatedKernel{
		ModifiedHelmholtzKernel: base,
		MaxDistance:             maxDistance,
		h:                       maxDistance / float64(intervals),
		values:                  make([]complex128, intervals+1),
		derivs:                  make([]complex128, intervals+1),
	}
	for i := range ik.values {
		r := float64(i) * ik.h
		ik.values[i] = expKappa(base.Kappa, r)
		ik.derivs[i] = -base.Kappa * ik.values[i]
	}
	return
}

func (ik *InterpolatedKernel) Name() string { return "interpolated " + ik.ModifiedHelmholtzKernel.Name() }

func (ik *InterpolatedKernel) Intervals() int { return len(ik.values) - 1 }

// Exp returns the interpolated exp(-kappa r)
func (ik *InterpolatedKernel) Exp(r float64) complex128 {
	if r >= ik.MaxDistance || r < 0 {
		return expKappa(ik.Kappa, r)
	}
	var (
		i   = min(int(r/ik.h), len(ik.values)-2)
		t   = r/ik.h - float64(i)
		t2  = t * t
		t3  = t2 * t
		h00 = complex(2*t3-3*t2+1, 0)
		h10 = complex((t3-2*t2+t)*ik.h, 0)
		h01 = complex(-2*t3+3*t2, 0)
		h11 = complex((t3-t2)*ik.h, 0)
	)
	return h00*ik.values[i] + h10*ik.derivs[i] + h01*ik.values[i+1] + h11*ik.derivs[i+1]
}

func (ik *InterpolatedKernel) Evaluate(test, trial *GeometricalData, i, j int) complex128 {
	var (
		x, y = test.Globals[i], trial.Globals[j]
		d    = [3]float64{x[0] - y[0], x[1] - y[1], x[2] - y[2]}
		r    = math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
	)
	return ik.evaluate(ik.Exp(r), d, r, test, trial, i, j)
}
