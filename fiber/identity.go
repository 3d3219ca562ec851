package fiber

import (
	"fmt"

	"github.com/notargets/gobem/basis"
	"github.com/notargets/gobem/quadrature"
	"github.com/notargets/gobem/space"
	"github.com/notargets/gobem/types"
)

// MassAssembler evaluates element mass blocks int phi_i psi_j for the
// identity operator. Only elements on the diagonal contribute.
type MassAssembler struct {
	testSpace, trialSpace space.Space
}

func NewMassAssembler(testSpace, trialSpace space.Space) (*MassAssembler, error) {
	if testSpace == nil || trialSpace == nil || !space.Compatible(testSpace, trialSpace) {
		return nil, fmt.Errorf("%w: identity needs test and trial spaces on the same grid",
			types.ErrConfiguration)
	}
	return &MassAssembler{testSpace: testSpace, trialSpace: trialSpace}, nil
}

func (ma *MassAssembler) TestSpace() space.Space  { return ma.testSpace }
func (ma *MassAssembler) TrialSpace() space.Space { return ma.trialSpace }

// EvaluateLocalWeakForm returns the [test dof][trial dof] mass block of an element
func (ma *MassAssembler) EvaluateLocalWeakForm(element int) (block [][]float64, err error) {
	var (
		testB  = ma.testSpace.Basis(element)
		trialB = ma.trialSpace.Basis(element)
		geom   = ma.testSpace.Grid().Geometry(element)
		order  = testB.Order() + trialB.Order()
		rule   quadrature.Rule
		gd     GeometricalData
	)
	if geom.Variant == types.VariantQuad {
		order += 2
	}
	if rule, err = quadrature.ElementRule(geom.Variant, order); err != nil {
		return
	}
	if gd, err = ComputeGeometricalData(geom, element, rule.Points, IntegrationElements); err != nil {
		return
	}
	var (
		bT = testB.Evaluate(basis.Values, rule.Points)
		bS = trialB.Evaluate(basis.Values, rule.Points)
	)
	block = make([][]float64, testB.Size())
	for i := range block {
		block[i] = make([]float64, trialB.Size())
		for j := range block[i] {
			for q, w := range rule.Weights {
				block[i][j] += w * gd.IntegrationElements[q] * bT.Values[i][q] * bS.Values[j][q]
			}
		}
	}
	return
}
