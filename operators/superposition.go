package operators

import (
	"fmt"
	"strings"

	"github.com/notargets/gobem/assembly"
	"github.com/notargets/gobem/fiber"
	"github.com/notargets/gobem/space"
	"github.com/notargets/gobem/types"
)

type weighted struct {
	alpha complex128
	op    *Elementary
}

// Superposition is a weighted sum of elementary operators sharing domain,
// range and dual to range
type Superposition struct {
	terms []weighted
}

func flatten(alpha complex128, op BoundaryOperator) ([]weighted, error) {
	switch o := op.(type) {
	case *Elementary:
		return []weighted{{alpha, o}}, nil
	case *Superposition:
		out := make([]weighted, len(o.terms))
		for i, t := range o.terms {
			out[i] = weighted{alpha * t.alpha, t.op}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: cannot combine operator %q", types.ErrConfiguration, op.Label())
}

func sameSpaces(a, b BoundaryOperator) bool {
	same := func(x, y space.Space) bool {
		return x == y || (space.Compatible(x, y) && x.Label() == y.Label() &&
			x.GlobalDofCount() == y.GlobalDofCount())
	}
	return same(a.Domain(), b.Domain()) && same(a.Range(), b.Range()) &&
		same(a.DualToRange(), b.DualToRange())
}

// NewSuperposition returns sum_i weights[i] ops[i]
func NewSuperposition(ops []BoundaryOperator, weights []complex128) (sp *Superposition, err error) {
	if len(ops) == 0 || len(ops) != len(weights) {
		return nil, fmt.Errorf("%w: superposition of %d operators with %d weights",
			types.ErrConfiguration, len(ops), len(weights))
	}
	sp = &Superposition{}
	for i, op := range ops {
		if op == nil {
			return nil, fmt.Errorf("%w: nil operator in superposition", types.ErrConfiguration)
		}
		if !sameSpaces(ops[0], op) {
			return nil, fmt.Errorf("%w: %q and %q act between different spaces",
				types.ErrConfiguration, ops[0].Label(), op.Label())
		}
		var terms []weighted
		if terms, err = flatten(weights[i], op); err != nil {
			return nil, err
		}
		sp.terms = append(sp.terms, terms...)
	}
	return
}

// Add returns a + b
func Add(a, b BoundaryOperator) (*Superposition, error) {
	return NewSuperposition([]BoundaryOperator{a, b}, []complex128{1, 1})
}

// Scale returns alpha op
func Scale(alpha complex128, op BoundaryOperator) (*Superposition, error) {
	return NewSuperposition([]BoundaryOperator{op}, []complex128{alpha})
}

func (s *Superposition) Domain() space.Space      { return s.terms[0].op.Domain() }
func (s *Superposition) Range() space.Space       { return s.terms[0].op.Range() }
func (s *Superposition) DualToRange() space.Space { return s.terms[0].op.DualToRange() }

func (s *Superposition) Label() string {
	parts := make([]string, len(s.terms))
	for i, t := range s.terms {
		parts[i] = fmt.Sprintf("%v*%s", t.alpha, t.op.Label())
	}
	return strings.Join(parts, " + ")
}

// AssembleWeakForm assembles the terms into a sum of discrete operators.
// Identity terms are always assembled on their own so they keep sparse
// storage. With joint assembly, integral terms on the same pair of spaces
// are evaluated in one pass into a single operator.
func (s *Superposition) AssembleWeakForm(opts assembly.Options) (assembly.DiscreteBoundaryOperator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	type spacePair struct{ dual, domain space.Space }
	var (
		parts  []assembly.DiscreteBoundaryOperator
		joint  = make(map[spacePair][]fiber.Term)
		orders []spacePair
	)
	for _, t := range s.terms {
		if t.op.Kind() == Identity || !opts.JointAssembly {
			op, err := t.op.AssembleWeakForm(opts)
			if err != nil {
				return nil, err
			}
			if t.alpha != 1 {
				op = &assembly.ScaledOperator{Alpha: t.alpha, Op: op}
			}
			parts = append(parts, op)
			continue
		}
		term, err := t.op.Term()
		if err != nil {
			return nil, err
		}
		term.Weight = t.alpha
		key := spacePair{t.op.DualToRange(), t.op.Domain()}
		if _, ok := joint[key]; !ok {
			orders = append(orders, key)
		}
		joint[key] = append(joint[key], term)
	}
	for _, key := range orders {
		la, err := fiber.NewLocalAssembler(key.dual, key.domain, joint[key],
			opts.Strategy(), opts.SingularIntegralCaching)
		if err != nil {
			return nil, err
		}
		op, err := assembly.AssembleWeakForm(la, opts)
		if err != nil {
			return nil, err
		}
		parts = append(parts, op)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return assembly.NewSumOperator(parts...)
}
