package grid

import (
	"fmt"

	"github.com/notargets/gobem/types"
)

// Grid is the read-only view of a surface mesh consumed by spaces and
// assemblers. Codimension 0 entities are elements, 1 edges and 2 vertices.
type Grid interface {
	Dim() int
	DimWorld() int
	EntityCount(codim int) int
	ElementVariant(e int) types.ElementVariant
	ElementVertices(e int) []int
	ElementEdges(e int) []int
	Vertex(v int) [3]float64
	Geometry(e int) Geometry
	BoundingBox() types.BoundingBox
}

// Mesh is an unstructured surface mesh of triangles and quadrilaterals,
// or a curve of segments, embedded in 3D
type Mesh struct {
	Vertices [][3]float64
	Elements [][]int // Element to vertex connectivity, counterclockwise seen from the normal side

	// Connectivity (built during initialization)
	Edges   [][2]int              // Sorted vertex pairs
	EdgeMap map[types.EdgeKey]int // Edge id by packed vertex pair
	EToEdge [][]int               // Local edge i joins local vertices i and i+1
	VToE    [][]int               // Elements incident on each vertex

	dim        int
	geometries []Geometry
	bbox       types.BoundingBox
}

// NewMesh builds the connectivity of a mesh. All elements must have the
// same topological dimension.
func NewMesh(vertices [][3]float64, elements [][]int) (m *Mesh, err error) {
	m = &Mesh{
		Vertices: vertices,
		Elements: elements,
		EdgeMap:  make(map[types.EdgeKey]int),
	}
	if len(elements) == 0 {
		err = fmt.Errorf("%w: mesh has no elements", types.ErrConfiguration)
		return
	}
	for e, verts := range elements {
		var dim int
		switch len(verts) {
		case 2:
			dim = 1
		case 3, 4:
			dim = 2
		default:
			err = fmt.Errorf("%w: element %d has %d corners", types.ErrUnsupported, e, len(verts))
			return
		}
		if e == 0 {
			m.dim = dim
		} else if dim != m.dim {
			err = fmt.Errorf("%w: mixed element dimensions in mesh", types.ErrUnsupported)
			return
		}
		for _, v := range verts {
			if v < 0 || v >= len(vertices) {
				err = fmt.Errorf("%w: element %d references vertex %d of %d",
					types.ErrConfiguration, e, v, len(vertices))
				return
			}
		}
	}
	m.BuildConnectivity()
	return
}

// BuildConnectivity builds the edge numbering and vertex to element lists
// and caches element geometries
func (m *Mesh) BuildConnectivity() {
	m.EToEdge = make([][]int, len(m.Elements))
	m.VToE = make([][]int, len(m.Vertices))
	m.geometries = make([]Geometry, len(m.Elements))
	m.bbox = types.EmptyBoundingBox()
	for _, x := range m.Vertices {
		m.bbox.Extend(x)
	}
	for k, verts := range m.Elements {
		for _, v := range verts {
			m.VToE[v] = append(m.VToE[v], k)
		}
		corners := make([][3]float64, len(verts))
		for i, v := range verts {
			corners[i] = m.Vertices[v]
		}
		m.geometries[k] = NewGeometry(corners)
		if m.dim == 1 {
			continue
		}
		nv := len(verts)
		m.EToEdge[k] = make([]int, nv)
		for i := 0; i < nv; i++ {
			key := types.NewEdgeKey([2]int{verts[i], verts[(i+1)%nv]})
			edgeID, exists := m.EdgeMap[key]
			if !exists {
				edgeID = len(m.Edges)
				m.Edges = append(m.Edges, key.GetVertices(false))
				m.EdgeMap[key] = edgeID
			}
			m.EToEdge[k][i] = edgeID
		}
	}
}

func (m *Mesh) Dim() int      { return m.dim }
func (m *Mesh) DimWorld() int { return 3 }

func (m *Mesh) EntityCount(codim int) int {
	switch {
	case codim == 0:
		return len(m.Elements)
	case codim == m.dim:
		return len(m.Vertices)
	case codim == 1 && m.dim == 2:
		return len(m.Edges)
	}
	return 0
}

func (m *Mesh) ElementVariant(e int) types.ElementVariant {
	return types.ElementVariant(len(m.Elements[e]))
}

func (m *Mesh) ElementVertices(e int) []int     { return m.Elements[e] }
func (m *Mesh) ElementEdges(e int) []int        { return m.EToEdge[e] }
func (m *Mesh) Vertex(v int) [3]float64         { return m.Vertices[v] }
func (m *Mesh) Geometry(e int) Geometry         { return m.geometries[e] }
func (m *Mesh) BoundingBox() types.BoundingBox { return m.bbox }

// PrintStatistics prints mesh statistics
func (m *Mesh) PrintStatistics() {
	fmt.Printf("Mesh Statistics:\n")
	fmt.Printf("  Vertices: %d\n", len(m.Vertices))
	fmt.Printf("  Elements: %d\n", len(m.Elements))
	fmt.Printf("  Edges: %d\n", len(m.Edges))

	typeCounts := make(map[types.ElementVariant]int)
	for e := range m.Elements {
		typeCounts[m.ElementVariant(e)]++
	}
	fmt.Printf("  Element types:\n")
	for t, count := range typeCounts {
		fmt.Printf("    %s: %d\n", t, count)
	}
	var area float64
	for _, g := range m.geometries {
		area += g.Volume()
	}
	fmt.Printf("  Total measure: %.6f\n", area)
}
