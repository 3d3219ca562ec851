package space

import (
	"fmt"
	"math"

	"github.com/notargets/gobem/basis"
	"github.com/notargets/gobem/grid"
	"github.com/notargets/gobem/types"
)

// LocalDof addresses a shape function on one element
type LocalDof struct {
	Element, Dof int
}

// Space is a finite element space of scalar functions on a grid. All maps
// are built by the constructor and are read-only afterwards.
type Space interface {
	Label() string
	Grid() grid.Grid
	Order() int
	IsDiscontinuous() bool
	Basis(element int) basis.Basis

	GlobalDofCount() int
	FlatLocalDofCount() int
	// GlobalDofs is the local to global map of an element, indexed by local dof
	GlobalDofs(element int) []int
	Global2LocalDofs() [][]LocalDof
	FlatLocal2LocalDofs() []LocalDof

	GlobalDofPositions() [][3]float64
	GlobalDofBoundingBoxes() []types.BoundingBox
	GlobalDofNormals() [][3]float64

	// DiscontinuousSpace is the space with the same shape functions whose
	// dofs are not shared between elements
	DiscontinuousSpace() (Space, error)
}

// dofMap holds the bookkeeping shared by all spaces
type dofMap struct {
	label        string
	grid         grid.Grid
	order        int
	bases        map[types.ElementVariant]basis.Basis
	local2global [][]int
	global2local [][]LocalDof
	flatLocal    []LocalDof
	positions    [][3]float64
	bboxes       []types.BoundingBox
	normals      [][3]float64
}

func (dm *dofMap) Label() string                              { return dm.label }
func (dm *dofMap) Grid() grid.Grid                            { return dm.grid }
func (dm *dofMap) Order() int                                 { return dm.order }
func (dm *dofMap) GlobalDofCount() int                        { return len(dm.global2local) }
func (dm *dofMap) FlatLocalDofCount() int                     { return len(dm.flatLocal) }
func (dm *dofMap) GlobalDofs(element int) []int               { return dm.local2global[element] }
func (dm *dofMap) Global2LocalDofs() [][]LocalDof             { return dm.global2local }
func (dm *dofMap) FlatLocal2LocalDofs() []LocalDof            { return dm.flatLocal }
func (dm *dofMap) GlobalDofPositions() [][3]float64           { return dm.positions }
func (dm *dofMap) GlobalDofBoundingBoxes() []types.BoundingBox { return dm.bboxes }
func (dm *dofMap) GlobalDofNormals() [][3]float64             { return dm.normals }

func (dm *dofMap) Basis(element int) basis.Basis {
	return dm.bases[dm.grid.ElementVariant(element)]
}

// newDofMap creates the bases of every element variant present in the grid
func newDofMap(label string, g grid.Grid, order int) (dm *dofMap, err error) {
	if g == nil {
		err = fmt.Errorf("%w: space %s has no grid", types.ErrConfiguration, label)
		return
	}
	dm = &dofMap{
		label: label,
		grid:  g,
		order: order,
		bases: make(map[types.ElementVariant]basis.Basis),
	}
	for e := 0; e < g.EntityCount(0); e++ {
		variant := g.ElementVariant(e)
		if _, ok := dm.bases[variant]; ok {
			continue
		}
		var b basis.Basis
		if b, err = basis.New(variant, order); err != nil {
			return
		}
		dm.bases[variant] = b
	}
	return
}

// assignDofs builds the inverse maps and dof geometry from local2global.
// Every global dof must be referenced by at least one element.
func (dm *dofMap) assignDofs(globalCount int) (err error) {
	dm.global2local = make([][]LocalDof, globalCount)
	dm.positions = make([][3]float64, globalCount)
	dm.bboxes = make([]types.BoundingBox, globalCount)
	dm.normals = make([][3]float64, globalCount)
	for i := range dm.bboxes {
		dm.bboxes[i] = types.EmptyBoundingBox()
	}
	seen := make([]bool, globalCount)
	for e, dofs := range dm.local2global {
		var (
			geom  = dm.grid.Geometry(e)
			nodes = dm.Basis(e).Nodes()
			ebb   = geom.BoundingBox()
		)
		if len(dofs) == 0 {
			return fmt.Errorf("%w: element %d has no dofs", types.ErrConfiguration, e)
		}
		for ldof, gdof := range dofs {
			dm.flatLocal = append(dm.flatLocal, LocalDof{e, ldof})
			dm.global2local[gdof] = append(dm.global2local[gdof], LocalDof{e, ldof})
			if !seen[gdof] {
				dm.positions[gdof] = geom.Global(nodes[ldof])
				seen[gdof] = true
			}
			dm.bboxes[gdof].Merge(ebb)
			n := geom.Normal(nodes[ldof])
			for i := range n {
				dm.normals[gdof][i] += n[i]
			}
		}
	}
	for gdof := range dm.global2local {
		if !seen[gdof] {
			return fmt.Errorf("%w: global dof %d is not used by any element", types.ErrConfiguration, gdof)
		}
		dm.bboxes[gdof].Reference = types.NewPoint3D(dm.positions[gdof])
		n := dm.normals[gdof]
		l := math.Sqrt(grid.Dot(n, n))
		if l > 0 {
			dm.normals[gdof] = [3]float64{n[0] / l, n[1] / l, n[2] / l}
		}
	}
	return
}
