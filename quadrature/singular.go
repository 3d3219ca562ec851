package quadrature

import (
	"fmt"
	"sync"
)

// Adjacency classifies how two elements touch
type Adjacency uint8

const (
	Disjoint Adjacency = iota
	SharedVertex
	SharedEdge
	Coincident
)

func (a Adjacency) String() string {
	return [...]string{"disjoint", "shared vertex", "shared edge", "coincident"}[a]
}

// PairRule integrates over a pair of unit triangles. Test and Trial hold
// reference coordinates in the canonical corner order of each triangle:
// shared corners come first and in the same order on both sides (a shared
// edge is corners 0,1 and a shared vertex is corner 0). Weights sum to 1/4.
type PairRule struct {
	Test, Trial [][2]float64
	Weights     []float64
}

func (pr PairRule) Len() int { return len(pr.Weights) }

type pairKey struct {
	adjacency Adjacency
	n         int
}

var pairCache sync.Map

// SauterSchwabRule returns the singularity removing rule for a pair of
// triangles with the given adjacency using n Gauss points per direction of
// the four dimensional transformed cube. The integrand may be weakly
// singular (like 1/r) where the triangles touch.
func SauterSchwabRule(adjacency Adjacency, n int) (pr PairRule, err error) {
	if n < 1 {
		err = fmt.Errorf("singular rule needs at least one point per direction, have %d", n)
		return
	}
	key := pairKey{adjacency, n}
	if r, ok := pairCache.Load(key); ok {
		return r.(PairRule), nil
	}
	var (
		x, w = GaussLegendre01(n)
		add  = func(tx, ty [2]float64, weight float64) {
			// (x1,x2) on {0 <= x2 <= x1 <= 1} to unit triangle coordinates
			pr.Test = append(pr.Test, [2]float64{tx[0] - tx[1], tx[1]})
			pr.Trial = append(pr.Trial, [2]float64{ty[0] - ty[1], ty[1]})
			pr.Weights = append(pr.Weights, weight)
		}
	)
	if adjacency == Disjoint {
		err = fmt.Errorf("no singular rule for disjoint elements")
		return
	}
	for i1 := 0; i1 < n; i1++ {
		for i2 := 0; i2 < n; i2++ {
			for i3 := 0; i3 < n; i3++ {
				for i4 := 0; i4 < n; i4++ {
					var (
						xi, e1, e2, e3 = x[i1], x[i2], x[i3], x[i4]
						wt             = w[i1] * w[i2] * w[i3] * w[i4]
					)
					switch adjacency {
					case Coincident:
						jac := wt * xi * xi * xi * e1 * e1 * e2
						a := [2]float64{xi, xi * (1 - e1 + e1*e2)}
						b := [2]float64{xi * (1 - e1*e2*e3), xi * (1 - e1)}
						add(a, b, jac)
						add(b, a, jac)
						a = [2]float64{xi, xi * e1 * (1 - e2 + e2*e3)}
						b = [2]float64{xi * (1 - e1*e2), xi * e1 * (1 - e2)}
						add(a, b, jac)
						add(b, a, jac)
						a = [2]float64{xi * (1 - e1*e2*e3), xi * e1 * (1 - e2*e3)}
						b = [2]float64{xi, xi * e1 * (1 - e2)}
						add(a, b, jac)
						add(b, a, jac)
					case SharedEdge:
						jac := wt * xi * xi * xi * e1 * e1
						add([2]float64{xi, xi * e1 * e3},
							[2]float64{xi * (1 - e1*e2), xi * e1 * (1 - e2)}, jac)
						jac *= e2
						add([2]float64{xi, xi * e1},
							[2]float64{xi * (1 - e1*e2*e3), xi * e1 * e2 * (1 - e3)}, jac)
						add([2]float64{xi * (1 - e1*e2), xi * e1 * (1 - e2)},
							[2]float64{xi, xi * e1 * e2 * e3}, jac)
						add([2]float64{xi * (1 - e1*e2*e3), xi * e1 * e2 * (1 - e3)},
							[2]float64{xi, xi * e1}, jac)
						add([2]float64{xi * (1 - e1*e2*e3), xi * e1 * (1 - e2*e3)},
							[2]float64{xi, xi * e1 * e2}, jac)
					case SharedVertex:
						jac := wt * xi * xi * xi * e2
						a := [2]float64{xi, xi * e1}
						b := [2]float64{xi * e2, xi * e2 * e3}
						add(a, b, jac)
						add(b, a, jac)
					}
				}
			}
		}
	}
	pairCache.Store(key, pr)
	return
}

// TensorPairRule is the plain product of two element rules, used for
// touching pairs of quadrilateral sub-triangles that share no corner
func TensorPairRule(test, trial Rule) (pr PairRule) {
	n := test.Len() * trial.Len()
	pr.Test = make([][2]float64, 0, n)
	pr.Trial = make([][2]float64, 0, n)
	pr.Weights = make([]float64, 0, n)
	for i := range test.Weights {
		for j := range trial.Weights {
			pr.Test = append(pr.Test, test.Points[i])
			pr.Trial = append(pr.Trial, trial.Points[j])
			pr.Weights = append(pr.Weights, test.Weights[i]*trial.Weights[j])
		}
	}
	return
}
