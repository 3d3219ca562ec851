package grid

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/notargets/gobem/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeshConnectivity(t *testing.T) {
	{ // Two triangles share the diagonal
		m, err := NewTwoTriangles()
		require.NoError(t, err)
		assert.Equal(t, 2, m.Dim())
		assert.Equal(t, 3, m.DimWorld())
		assert.Equal(t, 2, m.EntityCount(0))
		assert.Equal(t, 5, m.EntityCount(1))
		assert.Equal(t, 4, m.EntityCount(2))
		shared := m.EdgeMap[types.NewEdgeKey([2]int{2, 0})]
		assert.Contains(t, m.ElementEdges(0), shared)
		assert.Contains(t, m.ElementEdges(1), shared)
		assert.Equal(t, []int{0, 1}, m.VToE[0])
		assert.Equal(t, types.VariantTriangle, m.ElementVariant(1))
	}
	{ // Quad screen
		m, err := NewScreen(3, 2, true)
		require.NoError(t, err)
		assert.Equal(t, 6, m.EntityCount(0))
		assert.Equal(t, 12, m.EntityCount(2))
		assert.Equal(t, 3*3+4*2, m.EntityCount(1))
		var area float64
		for e := 0; e < m.EntityCount(0); e++ {
			area += m.Geometry(e).Volume()
		}
		assert.InDelta(t, 1., area, 1.e-14)
		bb := m.BoundingBox()
		assert.Equal(t, types.Point3D{X: 1, Y: 1, Z: 0}, bb.Ubound)
	}
	{
		_, err := NewMesh([][3]float64{{0, 0, 0}}, [][]int{{0, 1, 2}})
		assert.ErrorIs(t, err, types.ErrConfiguration)
		_, err = NewMesh([][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}}, [][]int{{0, 1, 2}, {0, 1}})
		assert.ErrorIs(t, err, types.ErrUnsupported)
		_, err = NewScreen(0, 1, false)
		assert.ErrorIs(t, err, types.ErrConfiguration)
	}
}

func TestIcosphere(t *testing.T) {
	for level, nElements := range []int{20, 80, 320} {
		m, err := NewIcosphere(level)
		require.NoError(t, err)
		assert.Equal(t, nElements, m.EntityCount(0))
		// Euler characteristic of a sphere
		assert.Equal(t, 2, m.EntityCount(2)-m.EntityCount(1)+m.EntityCount(0))
		var area float64
		for e := 0; e < m.EntityCount(0); e++ {
			g := m.Geometry(e)
			assert.True(t, Dot(g.Normal(g.ReferenceCenter()), g.Center()) > 0)
			area += g.Volume()
		}
		assert.True(t, area < 4*math.Pi)
		if level == 2 {
			assert.InDelta(t, 12.329848595234688, area, 1.e-9)
		}
	}
}

func TestGeometry(t *testing.T) {
	{
		g := NewGeometry([][3]float64{{0, 0, 0}, {2, 0, 0}, {0, 1, 0}})
		assert.Equal(t, [3]float64{1, 0.5, 0}, g.Global([2]float64{0.5, 0.5}))
		assert.InDelta(t, 2., g.IntegrationElement([2]float64{0.2, 0.1}), 1.e-15)
		assert.Equal(t, [3]float64{0, 0, 1}, g.Normal([2]float64{}))
		assert.InDelta(t, 1., g.Volume(), 1.e-15)
		assert.InDelta(t, math.Sqrt(5), g.Diameter(), 1.e-15)
		bb := g.BoundingBox()
		assert.True(t, bb.Contains(bb.Reference))
	}
	{ // Non-planar quad: measure density varies over the element
		g := NewGeometry([][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 1}, {0, 1, 0}})
		tu, tv := g.Jacobian([2]float64{0, 0})
		assert.Equal(t, [3]float64{1, 0, 0}, tu)
		assert.Equal(t, [3]float64{0, 1, 0}, tv)
		assert.Equal(t, [3]float64{1, 1, 1}, g.Global([2]float64{1, 1}))
		assert.True(t, g.Volume() > 1)
	}
	{
		g := NewGeometry([][3]float64{{0, 0, 0}, {3, 4, 0}})
		assert.Equal(t, 1, g.Dim())
		assert.InDelta(t, 5., g.Volume(), 1.e-15)
	}
}

const gmshSquare = `$MeshFormat
2.2 0 8
$EndMeshFormat
$PhysicalNames
1
2 1 "screen"
$EndPhysicalNames
$Nodes
5
1 0 0 0
2 1 0 0
3 1 1 0
4 0 1 0
5 0.5 0.5 0
$EndNodes
$Elements
6
1 15 2 0 1 1
2 1 2 0 1 1 2
3 2 2 1 1 1 2 5
4 2 2 1 1 2 3 5
5 2 2 1 1 3 4 5
6 2 2 1 1 4 1 5
$EndElements
`

func TestReadGmsh(t *testing.T) {
	m, err := ReadGmsh(strings.NewReader(gmshSquare))
	require.NoError(t, err)
	assert.Equal(t, 4, m.EntityCount(0))
	assert.Equal(t, 5, m.EntityCount(2))
	assert.Equal(t, []int{0, 1, 4}, m.ElementVertices(0))
	assert.Equal(t, 8, m.EntityCount(1))

	_, err = ReadGmsh(strings.NewReader("$MeshFormat\n4.1 0 8\n$EndMeshFormat\n"))
	assert.ErrorIs(t, err, types.ErrUnsupported)
	_, err = ReadMeshFile("mesh.neu")
	assert.ErrorIs(t, err, types.ErrUnsupported)

	for _, bad := range []string{"3 x 2 1 1 1 2 5", "3 2 y 1 1 1 2 5", "3 2 2 1 1 1 2 z"} {
		_, err = ReadGmsh(strings.NewReader(strings.Replace(gmshSquare, "3 2 2 1 1 1 2 5", bad, 1)))
		var numErr *strconv.NumError
		assert.Truef(t, errors.As(err, &numErr), "element line %q", bad)
	}
}
