package rtmsim

import (
	"context"
	"fmt"
)

// MeshBuilder supplies the raw geometry and patch data a run is
// assembled from. Parsing any concrete on-disk mesh format remains an
// external collaborator (spec §1); this is the seam a caller wires a
// parser into.
type MeshBuilder interface {
	Nodes() []NodeInput
	Triangles() []TriangleInput
	Patches() []PatchConfig
}

// Result is what C8 returns: the final cell state plus bookkeeping
// needed to locate emitted snapshots.
type Result struct {
	Mesh        *Mesh
	FinalState  []CellState
	Steps       int
	T           float64
	SnapshotsOut int
}

// Run is the port façade (C8): validates Config, builds a Solver over
// mesh, then drives the time loop (C6) emitting scheduled snapshots
// until t > TMax. mesh must already be assembled (C1-C3, and C7 when
// requested), e.g. by BuildMesh; Run does not assemble it.
//
// writeSnapshot, when non-nil, is called once per scheduled instant
// with the 1-based snapshot index and the solver's state at that
// instant; it is the caller's seam to persist both the restart and
// results snapshots (A4) under whatever naming scheme it chooses.
func Run(ctx context.Context, cfg Config, mesh *Mesh, writeSnapshot func(n int, s *Solver) error, obs ...StepObserver) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := NewSolver(mesh, cfg)
	if err != nil {
		return nil, err
	}

	nextSnapshot := cfg.Schedule.SnapshotInterval
	nOut := 0
	emit := func() error {
		nOut++
		if writeSnapshot != nil {
			if err := writeSnapshot(nOut, s); err != nil {
				return fmt.Errorf("rtmsim: snapshot %d: %w", nOut, err)
			}
		}
		return nil
	}

	for s.t <= cfg.Physics.TMax {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.Step(); err != nil {
			return nil, err
		}
		for _, o := range obs {
			o(s.step, s.t, s.dt, len(mesh.Cells))
		}
		if s.t >= nextSnapshot || s.t+s.dt > cfg.Physics.TMax {
			if err := emit(); err != nil {
				return nil, err
			}
			nextSnapshot += cfg.Schedule.SnapshotInterval
		}
	}

	return &Result{
		Mesh:         mesh,
		FinalState:   s.State(),
		Steps:        s.step,
		T:            s.t,
		SnapshotsOut: nOut,
	}, nil
}

// BuildMesh runs C1-C3 (and C7 when requested) over externally
// supplied geometry, translating Config's patch/inlet declarations
// into the Patch values AssembleMesh expects.
func BuildMesh(b MeshBuilder, cfg Config) (*Mesh, []int, error) {
	nodes := b.Nodes()
	tris := b.Triangles()

	var patches []Patch
	for _, pc := range b.Patches() {
		patches = append(patches, Patch{Type: pc.Type, Cells: pc.Cells, Override: pc.Override})
	}
	for _, pc := range cfg.Patches {
		patches = append(patches, Patch{Type: pc.Type, Cells: pc.Cells, Override: pc.Override})
	}

	m, extTriByIdx, err := assembleTopology(nodes, tris)
	if err != nil {
		return nil, nil, err
	}
	if err := computeGeometry(m, cfg.RefDir); err != nil {
		return nil, nil, err
	}

	if cfg.Inlet.Mode != InteractiveNone {
		seedPatch := ResolveInletSeeds(m, extTriByIdx, cfg.Inlet.Seeds, cfg.Inlet.Radius)
		if cfg.Inlet.Mode == InteractiveReplaceInlets {
			patches = dropInletPatches(patches)
		}
		patches = append(patches, seedPatch)
	}

	if err := assignProperties(m, extTriByIdx, patches, cfg.Physics.Defaults); err != nil {
		return nil, nil, err
	}
	return m, extTriByIdx, nil
}

func dropInletPatches(patches []Patch) []Patch {
	out := patches[:0]
	for _, p := range patches {
		if p.Type != PatchInlet {
			out = append(out, p)
		}
	}
	return out
}
