package rtmsim

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestAssembleMeshWallAndNeighbors(t *testing.T) {
	nodes, tris := twoTriangleSquare()
	mesh, err := AssembleMesh(nodes, tris, nil, r3.Vec{X: 1}, defaultProperties())
	if err != nil {
		t.Fatalf("AssembleMesh: %v", err)
	}
	if len(mesh.Cells) != 2 {
		t.Fatalf("got %d cells, want 2", len(mesh.Cells))
	}
	for ci, c := range mesh.Cells {
		if c.Class != ClassWall {
			t.Errorf("cell %d: got class %v, want wall", ci, c.Class)
		}
		if got := len(mesh.CellNeighbors(ci)); got != 1 {
			t.Errorf("cell %d: got %d neighbors, want 1", ci, got)
		}
	}
	// Symmetry of neighborship (spec §8).
	for ci := range mesh.Cells {
		for _, nb := range mesh.CellNeighbors(ci) {
			found := false
			for _, back := range mesh.CellNeighbors(nb.Cell) {
				if back.Cell == ci {
					found = true
				}
			}
			if !found {
				t.Errorf("cell %d lists %d as neighbor, but not vice versa", ci, nb.Cell)
			}
		}
	}
}

func TestAssembleMeshRejectsTripleSharedEdge(t *testing.T) {
	nodes := []NodeInput{
		{ExternalID: 0, Pos: r3.Vec{X: 0, Y: 0, Z: 0}},
		{ExternalID: 1, Pos: r3.Vec{X: 1, Y: 0, Z: 0}},
		{ExternalID: 2, Pos: r3.Vec{X: 0, Y: 1, Z: 0}},
		{ExternalID: 3, Pos: r3.Vec{X: -1, Y: 0.5, Z: 0}},
		{ExternalID: 4, Pos: r3.Vec{X: 0.5, Y: -1, Z: 0}},
	}
	tris := []TriangleInput{
		{ExternalID: 0, Nodes: [3]int{0, 1, 2}},
		{ExternalID: 1, Nodes: [3]int{0, 1, 3}},
		{ExternalID: 2, Nodes: [3]int{0, 1, 4}},
	}
	_, err := AssembleMesh(nodes, tris, nil, r3.Vec{X: 1}, defaultProperties())
	var kerr *MeshDegenerateError
	if err == nil {
		t.Fatal("expected MeshDegenerateError, got nil")
	}
	if !asMeshDegenerate(err, &kerr) {
		t.Fatalf("got %T, want *MeshDegenerateError", err)
	}
}

func TestAssembleMeshRejectsDuplicateTriangle(t *testing.T) {
	nodes, _ := twoTriangleSquare()
	tris := []TriangleInput{
		{ExternalID: 100, Nodes: [3]int{0, 1, 2}},
		{ExternalID: 101, Nodes: [3]int{2, 1, 0}}, // same canonical triple
	}
	_, err := AssembleMesh(nodes, tris, nil, r3.Vec{X: 1}, defaultProperties())
	if err == nil {
		t.Fatal("expected MeshDegenerateError for duplicate triangle, got nil")
	}
}

func TestAssembleMeshToleratesThreeSharedEdgeNeighbors(t *testing.T) {
	// A triangle has exactly three edges, so 3 shared-edge neighbors is
	// the maximum any cell can have under assembleTopology's half-edge
	// model; this is the boundary case below the 10-neighbor cap, to
	// guard against an off-by-one in validateNeighborCap.
	nodes := []NodeInput{
		{ExternalID: 0, Pos: r3.Vec{X: 0, Y: 0, Z: 0}},
		{ExternalID: 1, Pos: r3.Vec{X: 1, Y: 0, Z: 0}},
		{ExternalID: 2, Pos: r3.Vec{X: 0.5, Y: 1, Z: 0}},
		{ExternalID: 3, Pos: r3.Vec{X: -0.5, Y: 0.5, Z: 0}},
		{ExternalID: 4, Pos: r3.Vec{X: 1.5, Y: 0.5, Z: 0}},
		{ExternalID: 5, Pos: r3.Vec{X: 0.5, Y: -1, Z: 0}},
	}
	tris := []TriangleInput{
		{ExternalID: 0, Nodes: [3]int{0, 1, 2}}, // center
		{ExternalID: 1, Nodes: [3]int{0, 2, 3}},
		{ExternalID: 2, Nodes: [3]int{1, 2, 4}},
		{ExternalID: 3, Nodes: [3]int{0, 1, 5}},
	}
	mesh, err := AssembleMesh(nodes, tris, nil, r3.Vec{X: 1}, defaultProperties())
	if err != nil {
		t.Fatalf("AssembleMesh: %v", err)
	}
	if len(mesh.CellNeighbors(0)) != 3 {
		t.Fatalf("center cell: got %d neighbors, want 3", len(mesh.CellNeighbors(0)))
	}
	if mesh.Cells[0].Class != ClassInterior {
		t.Fatalf("center cell: got class %v, want interior", mesh.Cells[0].Class)
	}
}

func TestValidateNeighborCapRejectsMoreThanTenNeighbors(t *testing.T) {
	// No triangular cell assembled by assembleTopology can actually
	// reach 11 distinct neighbors (each cell has exactly 3 edges, and
	// each edge contributes at most one neighbor), so the rejection
	// branch is exercised directly against the extracted guard rather
	// than via AssembleMesh.
	ns := make([]int, maxNeighborsPerCell+1)
	for i := range ns {
		ns[i] = i
	}
	err := validateNeighborCap(7, ns)
	var degenerate *MeshDegenerateError
	if !asMeshDegenerate(err, &degenerate) {
		t.Fatalf("expected MeshDegenerateError for %d neighbors, got %v", len(ns), err)
	}
}

func TestValidateNeighborCapAcceptsExactlyTenNeighbors(t *testing.T) {
	ns := make([]int, maxNeighborsPerCell)
	for i := range ns {
		ns[i] = i
	}
	if err := validateNeighborCap(7, ns); err != nil {
		t.Fatalf("validateNeighborCap(10 neighbors): %v", err)
	}
}

func asMeshDegenerate(err error, target **MeshDegenerateError) bool {
	if e, ok := err.(*MeshDegenerateError); ok {
		*target = e
		return true
	}
	return false
}
