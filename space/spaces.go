package space

import (
	"fmt"
	"sync"

	"github.com/notargets/gobem/grid"
	"github.com/notargets/gobem/types"
)

// PiecewiseConstant has one dof per element located at its center
type PiecewiseConstant struct {
	*dofMap
}

func NewPiecewiseConstant(g grid.Grid) (s *PiecewiseConstant, err error) {
	var dm *dofMap
	if dm, err = newDofMap("P0", g, 0); err != nil {
		return
	}
	nElements := g.EntityCount(0)
	dm.local2global = make([][]int, nElements)
	for e := range dm.local2global {
		dm.local2global[e] = []int{e}
	}
	if err = dm.assignDofs(nElements); err != nil {
		return
	}
	s = &PiecewiseConstant{dm}
	return
}

func (s *PiecewiseConstant) IsDiscontinuous() bool              { return true }
func (s *PiecewiseConstant) DiscontinuousSpace() (Space, error) { return s, nil }

// PolynomialDiscontinuous has Lagrange shape functions of a fixed order
// with dofs private to each element
type PolynomialDiscontinuous struct {
	*dofMap
}

func NewPolynomialDiscontinuous(g grid.Grid, order int) (s *PolynomialDiscontinuous, err error) {
	var dm *dofMap
	if dm, err = newDofMap(fmt.Sprintf("DP%d", order), g, order); err != nil {
		return
	}
	var (
		nElements = g.EntityCount(0)
		next      int
	)
	dm.local2global = make([][]int, nElements)
	for e := range dm.local2global {
		size := dm.Basis(e).Size()
		dm.local2global[e] = make([]int, size)
		for ldof := range dm.local2global[e] {
			dm.local2global[e][ldof] = next
			next++
		}
	}
	if err = dm.assignDofs(next); err != nil {
		return
	}
	s = &PolynomialDiscontinuous{dm}
	return
}

func (s *PolynomialDiscontinuous) IsDiscontinuous() bool              { return true }
func (s *PolynomialDiscontinuous) DiscontinuousSpace() (Space, error) { return s, nil }

// LinearContinuous has one dof per grid vertex, numbered in vertex order
// over the vertices used by elements
type LinearContinuous struct {
	*dofMap
	discontinuous func() (*PolynomialDiscontinuous, error)
}

func NewLinearContinuous(g grid.Grid) (s *LinearContinuous, err error) {
	var dm *dofMap
	if dm, err = newDofMap("P1", g, 1); err != nil {
		return
	}
	var (
		nElements = g.EntityCount(0)
		vertexDof = make([]int, g.EntityCount(g.Dim()))
		used      = make([]bool, len(vertexDof))
		next      int
	)
	for e := 0; e < nElements; e++ {
		for _, v := range g.ElementVertices(e) {
			used[v] = true
		}
	}
	for v := range vertexDof {
		vertexDof[v] = -1
		if used[v] {
			vertexDof[v] = next
			next++
		}
	}
	dm.local2global = make([][]int, nElements)
	for e := range dm.local2global {
		verts := g.ElementVertices(e)
		dm.local2global[e] = make([]int, len(verts))
		for i, v := range verts {
			dm.local2global[e][i] = vertexDof[v]
		}
	}
	if err = dm.assignDofs(next); err != nil {
		return
	}
	s = &LinearContinuous{
		dofMap: dm,
		discontinuous: sync.OnceValues(func() (*PolynomialDiscontinuous, error) {
			return NewPolynomialDiscontinuous(g, 1)
		}),
	}
	return
}

func (s *LinearContinuous) IsDiscontinuous() bool { return false }

func (s *LinearContinuous) DiscontinuousSpace() (Space, error) {
	ds, err := s.discontinuous()
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// New builds a space by name: "P0", "P1" or "DP<order>"
func New(name string, g grid.Grid) (Space, error) {
	switch name {
	case "P0", "constant":
		return NewPiecewiseConstant(g)
	case "P1", "linear":
		return NewLinearContinuous(g)
	}
	var order int
	if _, err := fmt.Sscanf(name, "DP%d", &order); err == nil {
		return NewPolynomialDiscontinuous(g, order)
	}
	return nil, fmt.Errorf("%w: unknown space %q", types.ErrConfiguration, name)
}

// Compatible reports whether two spaces live on the same grid
func Compatible(a, b Space) bool { return a.Grid() == b.Grid() }
