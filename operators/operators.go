package operators

import (
	"fmt"
	"math"

	"github.com/notargets/gobem/assembly"
	"github.com/notargets/gobem/fiber"
	"github.com/notargets/gobem/space"
	"github.com/notargets/gobem/types"
	"github.com/notargets/gobem/utils"
)

// BoundaryOperator maps functions in Domain to Range, tested against
// DualToRange. Operators are immutable; assembling the weak form returns a
// new discrete operator.
type BoundaryOperator interface {
	Domain() space.Space
	Range() space.Space
	DualToRange() space.Space
	Label() string
	AssembleWeakForm(opts assembly.Options) (assembly.DiscreteBoundaryOperator, error)
}

type Symmetry uint8

const (
	Symmetric Symmetry = 1 << iota
	Hermitian

	NoSymmetry Symmetry = 0
)

// Kind tags the weak form of an elementary operator
type Kind uint8

const (
	SingleLayer Kind = iota
	DoubleLayer
	AdjointDoubleLayer
	Hypersingular
	Identity
)

func (k Kind) String() string {
	return [...]string{"slp", "dlp", "adlp", "hyp", "id"}[k]
}

// Elementary is a boundary operator with a single integral term
type Elementary struct {
	domain, rng, dual   space.Space
	label               string
	kind                Kind
	kappa               complex128
	resultType          types.ResultType
	symmetry            Symmetry
	pointsPerWavelength int // interpolate the far field kernel when > 0
}

func checkSpaces(domain, rng, dual space.Space) error {
	if domain == nil || rng == nil || dual == nil {
		return fmt.Errorf("%w: operator needs domain, range and dual to range spaces", types.ErrConfiguration)
	}
	if dual.GlobalDofCount() != rng.GlobalDofCount() {
		return fmt.Errorf("%w: dual to range has %d dofs, range has %d", types.ErrConfiguration,
			dual.GlobalDofCount(), rng.GlobalDofCount())
	}
	if !space.Compatible(domain, dual) {
		return fmt.Errorf("%w: domain and dual to range live on different grids", types.ErrConfiguration)
	}
	return nil
}

func newElementary(kind Kind, domain, rng, dual space.Space, kappa complex128,
	rt types.ResultType, family string) (e *Elementary, err error) {
	if err = checkSpaces(domain, rng, dual); err != nil {
		return
	}
	e = &Elementary{
		domain:     domain,
		rng:        rng,
		dual:       dual,
		kind:       kind,
		kappa:      kappa,
		resultType: rt,
		label:      fmt.Sprintf("%s %v", family, kind),
	}
	if kind != Identity {
		if _, err = fiber.NewKernel(fiber.SingleLayer, kappa, rt); err != nil {
			return nil, err
		}
	}
	if (kind == SingleLayer || kind == Hypersingular || kind == Identity) && domain == dual {
		e.symmetry = Symmetric
		if rt == types.Real {
			e.symmetry |= Hermitian
		}
	}
	return
}

func (e *Elementary) Domain() space.Space          { return e.domain }
func (e *Elementary) Range() space.Space           { return e.rng }
func (e *Elementary) DualToRange() space.Space     { return e.dual }
func (e *Elementary) Label() string                { return e.label }
func (e *Elementary) Kind() Kind                   { return e.kind }
func (e *Elementary) Symmetry() Symmetry           { return e.symmetry }
func (e *Elementary) ResultType() types.ResultType { return e.resultType }

// WaveNumber is the modified Helmholtz parameter kappa of the kernel
func (e *Elementary) WaveNumber() complex128 { return e.kappa }

// WithInterpolation returns a copy whose kernel is tabulated for element
// pairs that do not touch
func (e *Elementary) WithInterpolation(pointsPerWavelength int) *Elementary {
	c := *e
	c.pointsPerWavelength = pointsPerWavelength
	return &c
}

// Term builds the kernel, transformations and integrand of the weak form
func (e *Elementary) Term() (term fiber.Term, err error) {
	var (
		form = fiber.SingleLayer
		trs  = []fiber.TransformationFunctor{fiber.ScalarValue{}}
	)
	term = fiber.Term{
		TestTransformations:  trs,
		TrialTransformations: trs,
		Integrand:            fiber.ScalarProductIntegrand{},
		Weight:               1,
	}
	switch e.kind {
	case DoubleLayer:
		form = fiber.DoubleLayer
	case AdjointDoubleLayer:
		form = fiber.AdjointDoubleLayer
	case Hypersingular:
		hyp := []fiber.TransformationFunctor{fiber.SurfaceCurl{}, fiber.ValueTimesNormal{}}
		term.TestTransformations, term.TrialTransformations = hyp, hyp
		term.Integrand = fiber.HypersingularIntegrand{Kappa: e.kappa}
	case Identity:
		err = fmt.Errorf("%w: the identity has no kernel", types.ErrConfiguration)
		return
	}
	var k *fiber.ModifiedHelmholtzKernel
	if k, err = fiber.NewKernel(form, e.kappa, e.resultType); err != nil {
		return
	}
	term.Kernel = k
	if e.pointsPerWavelength > 0 && e.kappa != 0 {
		bb := e.dual.Grid().BoundingBox()
		bb.Merge(e.domain.Grid().BoundingBox())
		maxDistance := math.Max(bb.Diameter(), utils.NODETOL)
		if term.FarKernel, err = fiber.NewInterpolatedKernel(k, maxDistance, e.pointsPerWavelength,
			fiber.DefaultInterpolationTol); err != nil {
			return
		}
	}
	return
}

func (e *Elementary) AssembleWeakForm(opts assembly.Options) (assembly.DiscreteBoundaryOperator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if e.kind == Identity {
		ma, err := fiber.NewMassAssembler(e.dual, e.domain)
		if err != nil {
			return nil, err
		}
		return assembly.AssembleIdentity(ma, opts)
	}
	term, err := e.Term()
	if err != nil {
		return nil, err
	}
	la, err := fiber.NewLocalAssembler(e.dual, e.domain, []fiber.Term{term},
		opts.Strategy(), opts.SingularIntegralCaching)
	if err != nil {
		return nil, err
	}
	return assembly.AssembleWeakForm(la, opts)
}

// NewIdentity is the mass operator <phi, psi>
func NewIdentity(domain, rng, dual space.Space) (*Elementary, error) {
	return newElementary(Identity, domain, rng, dual, 0, types.Real, "identity")
}

func NewLaplace3dSingleLayer(domain, rng, dual space.Space) (*Elementary, error) {
	return newElementary(SingleLayer, domain, rng, dual, 0, types.Real, "laplace")
}

func NewLaplace3dDoubleLayer(domain, rng, dual space.Space) (*Elementary, error) {
	return newElementary(DoubleLayer, domain, rng, dual, 0, types.Real, "laplace")
}

func NewLaplace3dAdjointDoubleLayer(domain, rng, dual space.Space) (*Elementary, error) {
	return newElementary(AdjointDoubleLayer, domain, rng, dual, 0, types.Real, "laplace")
}

func NewLaplace3dHypersingular(domain, rng, dual space.Space) (*Elementary, error) {
	return newElementary(Hypersingular, domain, rng, dual, 0, types.Real, "laplace")
}

// helmholtzKappa maps a Helmholtz wave number k to kappa = -ik. Waves are
// outgoing for Im k >= 0.
func helmholtzKappa(k complex128) complex128 { return complex(0, -1) * k }

func NewHelmholtz3dSingleLayer(domain, rng, dual space.Space, k complex128) (*Elementary, error) {
	return newElementary(SingleLayer, domain, rng, dual, helmholtzKappa(k), types.Complex, "helmholtz")
}

func NewHelmholtz3dDoubleLayer(domain, rng, dual space.Space, k complex128) (*Elementary, error) {
	return newElementary(DoubleLayer, domain, rng, dual, helmholtzKappa(k), types.Complex, "helmholtz")
}

func NewHelmholtz3dAdjointDoubleLayer(domain, rng, dual space.Space, k complex128) (*Elementary, error) {
	return newElementary(AdjointDoubleLayer, domain, rng, dual, helmholtzKappa(k), types.Complex, "helmholtz")
}

func NewHelmholtz3dHypersingular(domain, rng, dual space.Space, k complex128) (*Elementary, error) {
	return newElementary(Hypersingular, domain, rng, dual, helmholtzKappa(k), types.Complex, "helmholtz")
}

// NewModifiedHelmholtz3dSingleLayer is built on exp(-kappa r)/(4 pi r). A
// real result type requires a real kappa.
func NewModifiedHelmholtz3dSingleLayer(domain, rng, dual space.Space, kappa complex128,
	rt types.ResultType) (*Elementary, error) {
	return newElementary(SingleLayer, domain, rng, dual, kappa, rt, "modified helmholtz")
}

func NewModifiedHelmholtz3dDoubleLayer(domain, rng, dual space.Space, kappa complex128,
	rt types.ResultType) (*Elementary, error) {
	return newElementary(DoubleLayer, domain, rng, dual, kappa, rt, "modified helmholtz")
}

func NewModifiedHelmholtz3dAdjointDoubleLayer(domain, rng, dual space.Space, kappa complex128,
	rt types.ResultType) (*Elementary, error) {
	return newElementary(AdjointDoubleLayer, domain, rng, dual, kappa, rt, "modified helmholtz")
}

func NewModifiedHelmholtz3dHypersingular(domain, rng, dual space.Space, kappa complex128,
	rt types.ResultType) (*Elementary, error) {
	return newElementary(Hypersingular, domain, rng, dual, kappa, rt, "modified helmholtz")
}
