package rtmsim

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func inletOutletMesh(t *testing.T) *Mesh {
	t.Helper()
	nodes, tris := twoTriangleSquare()
	patches := []Patch{
		{Type: PatchInlet, Cells: []int{100}},
		{Type: PatchOutlet, Cells: []int{101}},
	}
	mesh, err := AssembleMesh(nodes, tris, patches, r3.Vec{X: 1}, defaultProperties())
	if err != nil {
		t.Fatalf("AssembleMesh: %v", err)
	}
	return mesh
}

func TestSolverStepPreservesInvariants(t *testing.T) {
	mesh := inletOutletMesh(t)
	cfg := validConfig()
	s, err := NewSolver(mesh, cfg)
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}
	for i := 0; i < 20; i++ {
		if err := s.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		for ci, st := range s.State() {
			if st.Gamma < 0 || st.Gamma > 1 {
				t.Fatalf("step %d cell %d: gamma=%v out of [0,1]", i, ci, st.Gamma)
			}
			if st.Rho < 0 {
				t.Fatalf("step %d cell %d: rho=%v < 0", i, ci, st.Rho)
			}
			if math.IsNaN(st.Rho) || math.IsInf(st.Rho, 0) {
				t.Fatalf("step %d cell %d: rho is not finite: %v", i, ci, st.Rho)
			}
		}
	}
}

func TestSolverInletCellStaysPinned(t *testing.T) {
	mesh := inletOutletMesh(t)
	cfg := validConfig()
	s, err := NewSolver(mesh, cfg)
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}
	var inletIdx, outletIdx int = -1, -1
	for ci, c := range mesh.Cells {
		switch c.Class {
		case ClassPressureInlet:
			inletIdx = ci
		case ClassPressureOutlet:
			outletIdx = ci
		}
	}
	if inletIdx < 0 || outletIdx < 0 {
		t.Fatal("fixture did not produce an inlet/outlet pair")
	}
	for i := 0; i < 5; i++ {
		if err := s.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	state := s.State()
	if state[inletIdx].Gamma != 1 {
		t.Errorf("inlet cell gamma = %v, want 1 (always pinned)", state[inletIdx].Gamma)
	}
	if state[outletIdx].Gamma != 0 {
		t.Errorf("outlet cell gamma = %v, want 0 (always pinned)", state[outletIdx].Gamma)
	}
}

func TestSolverAdaptDtRespectsCap(t *testing.T) {
	mesh := inletOutletMesh(t)
	cfg := validConfig()
	cfg.Schedule.NPICS = 4
	s, err := NewSolver(mesh, cfg)
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}
	dtCap := cfg.Physics.TMax / float64(4*cfg.Schedule.NPICS)
	for i := 0; i < 30; i++ {
		if err := s.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		// The cap applies once adaptation starts, after the first NPICS steps.
		if s.step > cfg.Schedule.NPICS && s.Dt() > dtCap+1e-12 {
			t.Fatalf("step %d: dt=%v exceeds cap %v", i, s.Dt(), dtCap)
		}
	}
}
