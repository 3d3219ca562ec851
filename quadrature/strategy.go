package quadrature

import (
	"math"

	"github.com/notargets/gobem/types"
)

// DistanceIncrement adds Increment to the regular order of pairs whose
// relative distance is at most MaxRelativeDistance
type DistanceIncrement struct {
	MaxRelativeDistance float64
	Increment           int
}

// AccuracyOptions is the tunable policy table for quadrature order
// selection. The values are empirical.
type AccuracyOptions struct {
	RegularIncrement   int                 // added to the basis order of regular rules
	DistanceTable      []DistanceIncrement // ascending MaxRelativeDistance
	FarIncrement       int                 // beyond the last table entry
	SingularIncrement  int                 // added to the basis order for singular points per direction
	WaveNumberFactor   float64             // scales ceil(|Im kappa| h)
	MinimumOrder       int
	MinimumSingularPts int
}

func DefaultAccuracyOptions() AccuracyOptions {
	return AccuracyOptions{
		RegularIncrement: 2,
		DistanceTable: []DistanceIncrement{
			{0.5, 3},
			{1, 2},
			{2, 1},
			{4, 0},
		},
		FarIncrement:       -1,
		SingularIncrement:  3,
		WaveNumberFactor:   1,
		MinimumOrder:       1,
		MinimumSingularPts: 1,
	}
}

// PairDescriptor is what order selection knows about an element pair
type PairDescriptor struct {
	TestVariant, TrialVariant       types.ElementVariant
	TestBasisOrder, TrialBasisOrder int
	TestSize, TrialSize             float64 // element diameters
	Distance                        float64 // between element centers
	SingularityOrder                int     // 1 for 1/r, 2 for 1/r^2 kernels
	WaveNumber                      complex128
	Adjacency                       Adjacency
}

// RelativeDistance is the center distance in units of the larger element
func (d PairDescriptor) RelativeDistance() float64 {
	h := math.Max(d.TestSize, d.TrialSize)
	if h == 0 {
		return math.Inf(1)
	}
	return d.Distance / h
}

// Strategy selects quadrature orders for element pairs
type Strategy interface {
	RegularOrders(d PairDescriptor) (testOrder, trialOrder int)
	SingularPointCount(d PairDescriptor) int
}

type NumericalStrategy struct {
	Options AccuracyOptions
}

func NewNumericalStrategy(opts AccuracyOptions) *NumericalStrategy {
	return &NumericalStrategy{Options: opts}
}

func (ns *NumericalStrategy) oscillationIncrement(d PairDescriptor) int {
	h := math.Max(d.TestSize, d.TrialSize)
	return int(math.Ceil(ns.Options.WaveNumberFactor * math.Abs(imag(d.WaveNumber)) * h))
}

func (ns *NumericalStrategy) distanceIncrement(relDist float64) int {
	for _, entry := range ns.Options.DistanceTable {
		if relDist <= entry.MaxRelativeDistance {
			return entry.Increment
		}
	}
	return ns.Options.FarIncrement
}

func (ns *NumericalStrategy) RegularOrders(d PairDescriptor) (testOrder, trialOrder int) {
	var (
		inc = ns.Options.RegularIncrement +
			ns.distanceIncrement(d.RelativeDistance()) +
			ns.oscillationIncrement(d)
	)
	if d.SingularityOrder > 1 {
		inc += d.SingularityOrder - 1
	}
	testOrder = max(d.TestBasisOrder+inc, ns.Options.MinimumOrder)
	trialOrder = max(d.TrialBasisOrder+inc, ns.Options.MinimumOrder)
	return
}

func (ns *NumericalStrategy) SingularPointCount(d PairDescriptor) int {
	n := max(d.TestBasisOrder, d.TrialBasisOrder) + ns.Options.SingularIncrement +
		ns.oscillationIncrement(d)
	return max(n, ns.Options.MinimumSingularPts)
}
