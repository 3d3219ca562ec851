package space

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/notargets/gobem/grid"
	"github.com/notargets/gobem/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkMaps(t *testing.T, s Space) {
	t.Helper()
	g := s.Grid()
	// local to global and global to local are mutual inverses
	var flat []LocalDof
	for e := 0; e < g.EntityCount(0); e++ {
		dofs := s.GlobalDofs(e)
		assert.Equal(t, s.Basis(e).Size(), len(dofs))
		for ldof, gdof := range dofs {
			assert.Contains(t, s.Global2LocalDofs()[gdof], LocalDof{e, ldof})
			flat = append(flat, LocalDof{e, ldof})
		}
	}
	if diff := cmp.Diff(flat, s.FlatLocal2LocalDofs()); diff != "" {
		t.Errorf("flat local dofs mismatch (-want +got):\n%s", diff)
	}
	for gdof, locals := range s.Global2LocalDofs() {
		require.NotEmpty(t, locals)
		for _, ld := range locals {
			assert.Equal(t, gdof, s.GlobalDofs(ld.Element)[ld.Dof])
		}
	}
	// Reference points lie in their bounding boxes
	assert.Equal(t, s.GlobalDofCount(), len(s.GlobalDofBoundingBoxes()))
	for gdof, bb := range s.GlobalDofBoundingBoxes() {
		assert.Truef(t, bb.Contains(bb.Reference), "%s dof %d", s.Label(), gdof)
		assert.Equal(t, types.NewPoint3D(s.GlobalDofPositions()[gdof]), bb.Reference)
	}
}

func TestSpaces(t *testing.T) {
	sphere, err := grid.NewIcosphere(1)
	require.NoError(t, err)
	screen, err := grid.NewScreen(2, 3, true)
	require.NoError(t, err)
	{
		s, err := NewPiecewiseConstant(sphere)
		require.NoError(t, err)
		assert.Equal(t, 80, s.GlobalDofCount())
		assert.Equal(t, 80, s.FlatLocalDofCount())
		assert.True(t, s.IsDiscontinuous())
		checkMaps(t, s)
		for gdof, n := range s.GlobalDofNormals() {
			assert.True(t, grid.Dot(n, s.GlobalDofPositions()[gdof]) > 0)
		}
		ds, err := s.DiscontinuousSpace()
		require.NoError(t, err)
		assert.Same(t, Space(s), ds)
	}
	{
		s, err := NewLinearContinuous(sphere)
		require.NoError(t, err)
		assert.Equal(t, 42, s.GlobalDofCount())
		assert.Equal(t, 240, s.FlatLocalDofCount())
		assert.False(t, s.IsDiscontinuous())
		checkMaps(t, s)
		for _, n := range s.GlobalDofNormals() {
			assert.InDelta(t, 1., grid.Dot(n, n), 1.e-12)
		}
		ds1, err := s.DiscontinuousSpace()
		require.NoError(t, err)
		ds2, _ := s.DiscontinuousSpace()
		assert.Same(t, ds1, ds2)
		assert.Equal(t, 240, ds1.GlobalDofCount())
		checkMaps(t, ds1)
	}
	{ // Continuous space on quadrilaterals shares corner dofs
		s, err := NewLinearContinuous(screen)
		require.NoError(t, err)
		assert.Equal(t, 12, s.GlobalDofCount())
		checkMaps(t, s)
		edgeMid := s.Global2LocalDofs()[1]
		assert.Len(t, edgeMid, 2)
	}
	{
		for order := 0; order <= 4; order++ {
			s, err := NewPolynomialDiscontinuous(sphere, order)
			require.NoError(t, err)
			assert.Equal(t, 80*(order+1)*(order+2)/2, s.GlobalDofCount())
			checkMaps(t, s)
		}
		s, err := New("DP2", screen)
		require.NoError(t, err)
		assert.Equal(t, 6*9, s.GlobalDofCount())
		checkMaps(t, s)
	}
	{
		_, err := NewPolynomialDiscontinuous(sphere, 11)
		assert.ErrorIs(t, err, types.ErrConfiguration)
		_, err = New("RT0", sphere)
		assert.ErrorIs(t, err, types.ErrConfiguration)
		_, err = NewPiecewiseConstant(nil)
		assert.ErrorIs(t, err, types.ErrConfiguration)
	}
}
