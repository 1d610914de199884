package rtmsim

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/rtmsim/rtmsim/internal/hash"
)

// CellClass tags the role a cell plays in the boundary-condition
// state machine. Classes are fixed at assembly time and never change
// during a run; the only runtime "state machine" is the solver's
// overall phase (init -> running -> snapshotting -> ... -> terminated).
type CellClass int

const (
	ClassInterior CellClass = iota
	ClassWall
	ClassPressureInlet
	ClassPressureOutlet
)

func (c CellClass) String() string {
	switch c {
	case ClassInterior:
		return "interior"
	case ClassWall:
		return "wall"
	case ClassPressureInlet:
		return "pressure_inlet"
	case ClassPressureOutlet:
		return "pressure_outlet"
	default:
		return "unknown"
	}
}

// PatchType tags the purpose of a Patch.
type PatchType int

const (
	PatchIgnored PatchType = iota
	PatchInlet
	PatchOutlet
	PatchPreformOverride
)

// Properties bundles the per-cell physical parameters of the porous
// preform.
type Properties struct {
	Thickness       float64
	Porosity        float64
	K               float64 // principal permeability
	AlphaK          float64 // K multiplier along the secondary principal direction
	PrincipalDir    r3.Vec  // principal permeability direction, global frame; need not be tangent
	Viscosity       float64
}

// Validate checks the invariants required of a Properties tuple
// (spec §3 invariants).
func (p Properties) Validate() error {
	if p.Thickness <= 0 {
		return &ConfigInvalidError{Field: "Thickness", Reason: "must be > 0"}
	}
	if p.Porosity <= 0 || p.Porosity > 1 {
		return &ConfigInvalidError{Field: "Porosity", Reason: "must be in (0, 1]"}
	}
	if p.K <= 0 {
		return &ConfigInvalidError{Field: "K", Reason: "must be > 0"}
	}
	if p.AlphaK <= 0 {
		return &ConfigInvalidError{Field: "AlphaK", Reason: "must be > 0 (multiplier of K, not raw permeability)"}
	}
	if p.Viscosity <= 0 {
		return &ConfigInvalidError{Field: "Viscosity", Reason: "must be > 0"}
	}
	return nil
}

// Patch is an unordered set of external triangle ids sharing a type
// tag and, for PatchPreformOverride, a property override.
type Patch struct {
	Type     PatchType
	Cells    []int // external triangle ids
	Override Properties
}

// Node is an immutable mesh vertex.
type Node struct {
	ExternalID int
	Pos        r3.Vec
}

// Neighbor is one entry of a cell's flattened-geometry adjacency list
// (spec §3 "Neighbor record"). Neighbors are stored CSR-style on the
// owning Mesh rather than as a fixed [10]Neighbor array, so there is
// no sentinel value and no compile-time cap; the 10-neighbor limit is
// still enforced as a mesh-hygiene guard at assembly time.
type Neighbor struct {
	Cell   int        // index of the neighboring cell
	Normal [2]float64 // outward unit face normal, owner's local frame
	Area   float64    // face area (averaged thickness x edge length)
	Delta  [2]float64 // owner center -> flattened neighbor center, owner's local frame
	T      [2][2]float64
}

// Cell is a mesh triangle together with its precomputed local frame
// and physical properties.
type Cell struct {
	Nodes  [3]int // node indices, canonically sorted by external id
	Center r3.Vec
	Class  CellClass

	Properties

	// Basis holds the three orthonormal local-frame vectors (b1, b2, b3)
	// in the global frame, after the reference-direction rotation.
	Basis [3]r3.Vec
	// Origin is the global position of Nodes[0], the local frame's
	// origin.
	Origin r3.Vec
	// LocalDir is PrincipalDir projected into the local frame.
	LocalDir [2]float64
	// Verts2D holds the three node positions expressed in this cell's
	// local frame (origin at Nodes[0]).
	Verts2D [3][2]float64

	Area   float64 // triangle area
	Volume float64 // Area * Thickness

	IsWall bool
}

// TriangleInput is one externally-identified mesh triangle.
type TriangleInput struct {
	ExternalID int
	Nodes      [3]int // external node ids
}

// NodeInput is one externally-identified mesh node.
type NodeInput struct {
	ExternalID int
	Pos        r3.Vec
}

// Mesh is the assembled, immutable shell mesh: adjacency, local
// frames, and per-cell properties. It is built once by AssembleMesh
// and never mutated afterward.
type Mesh struct {
	Nodes []Node
	Cells []Cell

	// neighborOffsets has len(Cells)+1 entries; cell c's neighbors are
	// Neighbors[neighborOffsets[c]:neighborOffsets[c+1]].
	neighborOffsets []int
	Neighbors       []Neighbor
}

// CellNeighbors returns the flattened-geometry neighbor list for cell
// c.
func (m *Mesh) CellNeighbors(c int) []Neighbor {
	return m.Neighbors[m.neighborOffsets[c]:m.neighborOffsets[c+1]]
}

// Fingerprint summarizes the mesh's node/cell counts and bounding
// extent for use alongside a Config fingerprint (internal/hash) when
// validating a restart snapshot against the mesh it was written for.
func (m *Mesh) Fingerprint() hash.MeshFingerprint {
	fp := hash.MeshFingerprint{NumNodes: len(m.Nodes), NumCells: len(m.Cells)}
	if len(m.Nodes) == 0 {
		return fp
	}
	fp.Min = [3]float64{m.Nodes[0].Pos.X, m.Nodes[0].Pos.Y, m.Nodes[0].Pos.Z}
	fp.Max = fp.Min
	for _, n := range m.Nodes[1:] {
		fp.Min[0], fp.Max[0] = math.Min(fp.Min[0], n.Pos.X), math.Max(fp.Max[0], n.Pos.X)
		fp.Min[1], fp.Max[1] = math.Min(fp.Min[1], n.Pos.Y), math.Max(fp.Max[1], n.Pos.Y)
		fp.Min[2], fp.Max[2] = math.Min(fp.Min[2], n.Pos.Z), math.Max(fp.Max[2], n.Pos.Z)
	}
	return fp
}

const maxNeighborsPerCell = 10

type halfEdgeKey struct{ lo, hi int }

// validateNeighborCap enforces the mesh-hygiene guard of at most
// maxNeighborsPerCell (10) neighbors per cell. Every cell assembled by
// assembleTopology is a triangle with exactly three edges, so in
// practice ns never exceeds 3 here; the cap is kept as a structural
// guard against any future cell representation (e.g. polygonal cells)
// that could legitimately carry more edges.
func validateNeighborCap(cellExtID int, ns []int) error {
	if len(ns) > maxNeighborsPerCell {
		return &MeshDegenerateError{
			CellOrEdge: fmt.Sprintf("cell %d", cellExtID),
			Reason:     fmt.Sprintf("has %d neighbors, at most %d supported", len(ns), maxNeighborsPerCell),
		}
	}
	return nil
}

// AssembleMesh runs C1 (topology + patches), C2 (local frames and
// flattened neighbor geometry), and C3 (property assignment) in
// sequence, exactly the data flow of the system overview.
func AssembleMesh(nodes []NodeInput, tris []TriangleInput, patches []Patch, refDir r3.Vec, defaults Properties) (*Mesh, error) {
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	m, extTriByIdx, err := assembleTopology(nodes, tris)
	if err != nil {
		return nil, err
	}
	if err := computeGeometry(m, refDir); err != nil {
		return nil, err
	}
	if err := assignProperties(m, extTriByIdx, patches, defaults); err != nil {
		return nil, err
	}
	return m, nil
}

// assembleTopology implements C1: external-id resolution, canonical
// node ordering, half-edge grouping, neighbor/wall classification,
// and the 10-neighbor guard.
func assembleTopology(nodes []NodeInput, tris []TriangleInput) (*Mesh, []int, error) {
	nodeIndex := make(map[int]int, len(nodes))
	outNodes := make([]Node, len(nodes))
	for i, n := range nodes {
		if _, dup := nodeIndex[n.ExternalID]; dup {
			return nil, nil, &MeshDegenerateError{CellOrEdge: fmt.Sprintf("node %d", n.ExternalID), Reason: "duplicate external node id"}
		}
		nodeIndex[n.ExternalID] = i
		outNodes[i] = Node{ExternalID: n.ExternalID, Pos: n.Pos}
	}

	cells := make([]Cell, len(tris))
	extTriByIdx := make([]int, len(tris))
	seenTriples := make(map[[3]int]bool, len(tris))

	for i, t := range tris {
		extNodes := t.Nodes
		sort.Ints(extNodes[:]) // canonical order: smallest, middle, largest *original* id
		var idx [3]int
		for j, extNode := range extNodes {
			ni, ok := nodeIndex[extNode]
			if !ok {
				return nil, nil, &MeshDegenerateError{
					CellOrEdge: fmt.Sprintf("triangle %d", t.ExternalID),
					Reason:     fmt.Sprintf("references unknown node %d", extNode),
				}
			}
			idx[j] = ni
		}
		if seenTriples[idx] {
			return nil, nil, &MeshDegenerateError{
				CellOrEdge: fmt.Sprintf("triangle %d", t.ExternalID),
				Reason:     "duplicate triangle (same canonical node triple)",
			}
		}
		seenTriples[idx] = true
		cells[i] = Cell{Nodes: idx}
		extTriByIdx[i] = t.ExternalID
	}

	// Group half-edges keyed by (min, max) node index.
	edgeCells := make(map[halfEdgeKey][]int, 3*len(cells))
	for ci, c := range cells {
		edges := [3][2]int{
			{c.Nodes[0], c.Nodes[1]},
			{c.Nodes[1], c.Nodes[2]},
			{c.Nodes[0], c.Nodes[2]},
		}
		for _, e := range edges {
			key := halfEdgeKey{lo: e[0], hi: e[1]}
			edgeCells[key] = append(edgeCells[key], ci)
		}
	}

	neighborSets := make([][]int, len(cells))
	for key, owners := range edgeCells {
		switch len(owners) {
		case 1:
			cells[owners[0]].IsWall = true
		case 2:
			a, b := owners[0], owners[1]
			neighborSets[a] = append(neighborSets[a], b)
			neighborSets[b] = append(neighborSets[b], a)
		default:
			return nil, nil, &MeshDegenerateError{
				CellOrEdge: fmt.Sprintf("edge (%d,%d)", key.lo, key.hi),
				Reason:     fmt.Sprintf("shared by %d triangles, at most 2 supported", len(owners)),
			}
		}
	}

	offsets := make([]int, len(cells)+1)
	var total int
	for ci, ns := range neighborSets {
		if err := validateNeighborCap(extTriByIdx[ci], ns); err != nil {
			return nil, nil, err
		}
		offsets[ci] = total
		total += len(ns)
	}
	offsets[len(cells)] = total

	neighbors := make([]Neighbor, total)
	for ci, ns := range neighborSets {
		for k, nb := range ns {
			neighbors[offsets[ci]+k] = Neighbor{Cell: nb}
		}
	}

	for ci := range cells {
		if cells[ci].IsWall {
			cells[ci].Class = ClassWall
		} else {
			cells[ci].Class = ClassInterior
		}
	}

	return &Mesh{Nodes: outNodes, Cells: cells, neighborOffsets: offsets, Neighbors: neighbors}, extTriByIdx, nil
}
