package grid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/notargets/gobem/types"
)

// ReadMeshFile reads a mesh file based on extension
func ReadMeshFile(filename string) (*Mesh, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".msh":
		file, err := os.Open(filename)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return ReadGmsh(file)
	default:
		return nil, fmt.Errorf("%w: unsupported mesh format: %s", types.ErrUnsupported, ext)
	}
}

// ReadGmsh reads a Gmsh MSH file format version 2.2 (ASCII). Triangles and
// quadrilaterals form the surface, lower dimensional elements are skipped.
func ReadGmsh(r io.Reader) (*Mesh, error) {
	var (
		scanner  = bufio.NewScanner(r)
		vertices [][3]float64
		nodeMap  = make(map[int]int) // Gmsh node tag to vertex index
		elements [][]int
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "$MeshFormat":
			if !scanner.Scan() {
				return nil, fmt.Errorf("unexpected EOF in MeshFormat")
			}
			parts := strings.Fields(scanner.Text())
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid MeshFormat line")
			}
			if !strings.HasPrefix(parts[0], "2") {
				return nil, fmt.Errorf("%w: gmsh format version %s, only 2.x is read",
					types.ErrUnsupported, parts[0])
			}
			if parts[1] != "0" {
				return nil, fmt.Errorf("%w: binary gmsh files", types.ErrUnsupported)
			}
			skipTo(scanner, "$EndMeshFormat")

		case "$Nodes":
			if !scanner.Scan() {
				return nil, fmt.Errorf("unexpected EOF in Nodes")
			}
			numNodes, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
			if err != nil {
				return nil, fmt.Errorf("invalid node count: %v", err)
			}
			vertices = make([][3]float64, 0, numNodes)
			for i := 0; i < numNodes; i++ {
				if !scanner.Scan() {
					return nil, fmt.Errorf("unexpected EOF reading nodes")
				}
				parts := strings.Fields(scanner.Text())
				if len(parts) < 4 {
					return nil, fmt.Errorf("invalid node line: %s", scanner.Text())
				}
				tag, err := strconv.Atoi(parts[0])
				if err != nil {
					return nil, fmt.Errorf("invalid node tag: %v", err)
				}
				var x [3]float64
				for j := 0; j < 3; j++ {
					if x[j], err = strconv.ParseFloat(parts[j+1], 64); err != nil {
						return nil, fmt.Errorf("invalid coordinate at node %d: %v", tag, err)
					}
				}
				nodeMap[tag] = len(vertices)
				vertices = append(vertices, x)
			}
			skipTo(scanner, "$EndNodes")

		case "$Elements":
			if !scanner.Scan() {
				return nil, fmt.Errorf("unexpected EOF in Elements")
			}
			numElements, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
			if err != nil {
				return nil, fmt.Errorf("invalid element count: %v", err)
			}
			for i := 0; i < numElements; i++ {
				if !scanner.Scan() {
					return nil, fmt.Errorf("unexpected EOF reading elements")
				}
				parts := strings.Fields(scanner.Text())
				if len(parts) < 3 {
					return nil, fmt.Errorf("invalid element line: %s", scanner.Text())
				}
				elemType, err := strconv.Atoi(parts[1])
				if err != nil {
					return nil, fmt.Errorf("invalid element type: %w", err)
				}
				numTags, err := strconv.Atoi(parts[2])
				if err != nil {
					return nil, fmt.Errorf("invalid tag count: %w", err)
				}
				var numNodes int
				switch elemType {
				case 2: // 3-node triangle
					numNodes = 3
				case 3: // 4-node quadrangle
					numNodes = 4
				default:
					continue
				}
				nodeStart := 3 + numTags
				if len(parts) < nodeStart+numNodes {
					return nil, fmt.Errorf("insufficient nodes for element: %s", scanner.Text())
				}
				elem := make([]int, numNodes)
				for j := 0; j < numNodes; j++ {
					tag, err := strconv.Atoi(parts[nodeStart+j])
					if err != nil {
						return nil, fmt.Errorf("invalid node reference: %w", err)
					}
					idx, ok := nodeMap[tag]
					if !ok {
						return nil, fmt.Errorf("%w: element references unknown node %d",
							types.ErrConfiguration, tag)
					}
					elem[j] = idx
				}
				elements = append(elements, elem)
			}
			skipTo(scanner, "$EndElements")

		case "$PhysicalNames", "$Periodic", "$NodeData", "$ElementData", "$ElementNodeData":
			skipTo(scanner, "$End"+line[1:])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %v", err)
	}
	return NewMesh(vertices, elements)
}

func skipTo(scanner *bufio.Scanner, endMarker string) {
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == endMarker {
			break
		}
	}
}
