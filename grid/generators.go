package grid

import (
	"fmt"
	"math"

	"github.com/notargets/gobem/types"
)

// NewIcosphere returns a triangulated unit sphere obtained by refining an
// icosahedron `refinements` times, with outward normals. The element count
// is 20 * 4^refinements.
func NewIcosphere(refinements int) (*Mesh, error) {
	if refinements < 0 {
		return nil, fmt.Errorf("%w: negative refinement level %d", types.ErrConfiguration, refinements)
	}
	t := (1 + math.Sqrt(5)) / 2
	verts := [][3]float64{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	for i := range verts {
		verts[i] = unit(verts[i])
	}
	tris := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	for r := 0; r < refinements; r++ {
		var (
			mid  = make(map[types.EdgeKey]int)
			next = make([][3]int, 0, 4*len(tris))
		)
		midpoint := func(a, b int) int {
			key := types.NewEdgeKey([2]int{a, b})
			if id, ok := mid[key]; ok {
				return id
			}
			var x [3]float64
			for i := range x {
				x[i] = 0.5 * (verts[a][i] + verts[b][i])
			}
			verts = append(verts, unit(x))
			mid[key] = len(verts) - 1
			return len(verts) - 1
		}
		for _, tri := range tris {
			a := midpoint(tri[0], tri[1])
			b := midpoint(tri[1], tri[2])
			c := midpoint(tri[2], tri[0])
			next = append(next,
				[3]int{tri[0], a, c}, [3]int{tri[1], b, a},
				[3]int{tri[2], c, b}, [3]int{a, b, c})
		}
		tris = next
	}
	elements := make([][]int, len(tris))
	for k, tri := range tris {
		var (
			g = NewGeometry([][3]float64{verts[tri[0]], verts[tri[1]], verts[tri[2]]})
		)
		if Dot(g.Normal(g.ReferenceCenter()), g.Center()) < 0 {
			tri[1], tri[2] = tri[2], tri[1]
		}
		elements[k] = []int{tri[0], tri[1], tri[2]}
	}
	return NewMesh(verts, elements)
}

// NewScreen returns the unit square [0,1]^2 in the z = 0 plane split into
// nx by ny cells, each a quadrilateral or two triangles
func NewScreen(nx, ny int, quads bool) (*Mesh, error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("%w: screen needs at least one cell per direction, have %dx%d",
			types.ErrConfiguration, nx, ny)
	}
	var (
		verts    = make([][3]float64, 0, (nx+1)*(ny+1))
		elements [][]int
		id       = func(i, j int) int { return j*(nx+1) + i }
	)
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			verts = append(verts, [3]float64{float64(i) / float64(nx), float64(j) / float64(ny), 0})
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v0, v1, v2, v3 := id(i, j), id(i+1, j), id(i+1, j+1), id(i, j+1)
			if quads {
				elements = append(elements, []int{v0, v1, v2, v3})
			} else {
				elements = append(elements, []int{v0, v1, v2}, []int{v0, v2, v3})
			}
		}
	}
	return NewMesh(verts, elements)
}

// NewTwoTriangles returns the unit square split along its diagonal into
// two triangles sharing the edge (0,0,0)-(1,1,0)
func NewTwoTriangles() (*Mesh, error) {
	return NewScreen(1, 1, false)
}

func unit(x [3]float64) [3]float64 {
	l := norm(x)
	return [3]float64{x[0] / l, x[1] / l, x[2] / l}
}
