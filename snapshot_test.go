package rtmsim

import (
	"bytes"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestSaveLoadRestartRoundTrip(t *testing.T) {
	mesh := inletOutletMesh(t)
	cfg := validConfig()
	s, err := NewSolver(mesh, cfg)
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := s.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}

	var buf bytes.Buffer
	if err := SaveRestart(&buf, s); err != nil {
		t.Fatalf("SaveRestart: %v", err)
	}

	restored, err := NewSolver(mesh, cfg)
	if err != nil {
		t.Fatalf("NewSolver (restore target): %v", err)
	}
	if err := LoadRestart(&buf, restored); err != nil {
		t.Fatalf("LoadRestart: %v", err)
	}
	if restored.T() != s.T() {
		t.Errorf("restored T=%v, want %v", restored.T(), s.T())
	}
	for ci, st := range restored.State() {
		want := s.State()[ci]
		if st != want {
			t.Errorf("cell %d: restored state %+v, want %+v", ci, st, want)
		}
	}
}

func TestLoadRestartRejectsMismatchedConfig(t *testing.T) {
	mesh := inletOutletMesh(t)
	cfg := validConfig()
	s, err := NewSolver(mesh, cfg)
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}
	var buf bytes.Buffer
	if err := SaveRestart(&buf, s); err != nil {
		t.Fatalf("SaveRestart: %v", err)
	}

	other := validConfig()
	other.Physics.TMax = cfg.Physics.TMax * 2
	restored, err := NewSolver(mesh, other)
	if err != nil {
		t.Fatalf("NewSolver (mismatched config): %v", err)
	}
	if err := LoadRestart(&buf, restored); err == nil {
		t.Fatal("expected ConfigInvalidError for mismatched config fingerprint, got nil")
	}
}

func TestLoadRestartRejectsMismatchedMesh(t *testing.T) {
	mesh := inletOutletMesh(t)
	cfg := validConfig()
	s, err := NewSolver(mesh, cfg)
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}
	var buf bytes.Buffer
	if err := SaveRestart(&buf, s); err != nil {
		t.Fatalf("SaveRestart: %v", err)
	}

	// Same config, same cell count, but every node shifted - same
	// topology, different geometry, so only the mesh fingerprint (not
	// the cell-count check) can catch the mismatch.
	nodes, tris := twoTriangleSquare()
	for i := range nodes {
		nodes[i].Pos = nodes[i].Pos.Add(r3.Vec{X: 10})
	}
	patches := []Patch{
		{Type: PatchInlet, Cells: []int{100}},
		{Type: PatchOutlet, Cells: []int{101}},
	}
	shifted, err := AssembleMesh(nodes, tris, patches, r3.Vec{X: 1}, defaultProperties())
	if err != nil {
		t.Fatalf("AssembleMesh (shifted): %v", err)
	}
	restored, err := NewSolver(shifted, cfg)
	if err != nil {
		t.Fatalf("NewSolver (mismatched mesh): %v", err)
	}
	if err := LoadRestart(&buf, restored); err == nil {
		t.Fatal("expected ConfigInvalidError for mismatched mesh fingerprint, got nil")
	}
}

func TestBuildResultSnapshotEncodesGammaHatForBoundaryCells(t *testing.T) {
	mesh := inletOutletMesh(t)
	cfg := validConfig()
	s, err := NewSolver(mesh, cfg)
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}
	rs := BuildResultSnapshot(s, 0)
	for ci, c := range mesh.Cells {
		switch c.Class {
		case ClassPressureInlet:
			if rs.GammaHat.Elements[ci] != -1 {
				t.Errorf("inlet cell %d: gammaHat=%v, want -1", ci, rs.GammaHat.Elements[ci])
			}
		case ClassPressureOutlet:
			if rs.GammaHat.Elements[ci] != -2 {
				t.Errorf("outlet cell %d: gammaHat=%v, want -2", ci, rs.GammaHat.Elements[ci])
			}
		default:
			if rs.GammaHat.Elements[ci] != s.State()[ci].Gamma {
				t.Errorf("interior cell %d: gammaHat=%v, want %v", ci, rs.GammaHat.Elements[ci], s.State()[ci].Gamma)
			}
		}
	}
}
