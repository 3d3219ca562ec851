package assembly

import (
	"slices"

	"github.com/notargets/gobem/types"
)

// ClusterNode is a contiguous range [Start, End) of the tree ordering of
// dofs. BoundingBox encloses the supports of its dofs.
type ClusterNode struct {
	Start, End  int
	BoundingBox types.BoundingBox
	Children    []*ClusterNode
}

func (cn *ClusterNode) Size() int         { return cn.End - cn.Start }
func (cn *ClusterNode) IsLeaf() bool      { return len(cn.Children) == 0 }
func (cn *ClusterNode) Diameter() float64 { return cn.BoundingBox.Diameter() }

// ClusterTree orders dofs so that every node is contiguous. Order maps
// tree positions to dofs.
type ClusterTree struct {
	Root      *ClusterNode
	Order     []int
	LeafCount int
}

// NewClusterTree bisects the dofs at the median of their reference points
// along the longest axis until a node holds at most minBlockSize dofs
func NewClusterTree(boxes []types.BoundingBox, minBlockSize int) (ct *ClusterTree) {
	ct = &ClusterTree{Order: make([]int, len(boxes))}
	for i := range ct.Order {
		ct.Order[i] = i
	}
	ct.Root = ct.split(boxes, 0, len(boxes), max(minBlockSize, 1))
	return
}

func (ct *ClusterTree) split(boxes []types.BoundingBox, start, end, minBlockSize int) (cn *ClusterNode) {
	var (
		refBox = types.EmptyBoundingBox()
		dofs   = ct.Order[start:end]
	)
	cn = &ClusterNode{Start: start, End: end, BoundingBox: types.EmptyBoundingBox()}
	for _, d := range dofs {
		cn.BoundingBox.Merge(boxes[d])
		refBox.Extend(boxes[d].Reference.Array())
	}
	if end-start <= minBlockSize {
		ct.LeafCount++
		return
	}
	var (
		extent = refBox.Ubound.Sub(refBox.Lbound).Array()
		axis   int
	)
	for k := 1; k < 3; k++ {
		if extent[k] > extent[axis] {
			axis = k
		}
	}
	slices.SortStableFunc(dofs, func(a, b int) int {
		xa, xb := boxes[a].Reference.Array()[axis], boxes[b].Reference.Array()[axis]
		switch {
		case xa < xb:
			return -1
		case xa > xb:
			return 1
		}
		return a - b
	})
	mid := start + (end-start)/2
	cn.Children = []*ClusterNode{
		ct.split(boxes, start, mid, minBlockSize),
		ct.split(boxes, mid, end, minBlockSize),
	}
	return
}

// BlockLeaf is a leaf of the block cluster tree
type BlockLeaf struct {
	Row, Col   *ClusterNode
	Admissible bool
}

// Admissible reports whether two clusters are far enough apart for a low
// rank approximation: min(diam) <= eta * dist with dist > 0
func Admissible(row, col *ClusterNode, eta float64) bool {
	dist := row.BoundingBox.Distance(col.BoundingBox)
	if dist <= 0 {
		return false
	}
	return min(row.Diameter(), col.Diameter()) <= eta*dist
}

// BlockClusterLeaves partitions rows x cols into admissible and dense
// leaves by recursive subdivision
func BlockClusterLeaves(rows, cols *ClusterTree, eta float64) (leaves []BlockLeaf) {
	var walk func(r, c *ClusterNode)
	walk = func(r, c *ClusterNode) {
		switch {
		case Admissible(r, c, eta):
			leaves = append(leaves, BlockLeaf{Row: r, Col: c, Admissible: true})
		case r.IsLeaf() && c.IsLeaf():
			leaves = append(leaves, BlockLeaf{Row: r, Col: c})
		case r.IsLeaf():
			for _, cc := range c.Children {
				walk(r, cc)
			}
		case c.IsLeaf():
			for _, rc := range r.Children {
				walk(rc, c)
			}
		default:
			for _, rc := range r.Children {
				for _, cc := range c.Children {
					walk(rc, cc)
				}
			}
		}
	}
	walk(rows.Root, cols.Root)
	return
}
