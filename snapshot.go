package rtmsim

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/rtmsim/rtmsim/internal/hash"
)

// restartSnapshotVersion guards gob compatibility across builds,
// mirroring the teacher's save.go versionCells wrapper.
const restartSnapshotVersion = "rtmsim-restart-v1"

// restartSnapshot is the exact state needed to resume a run: the
// scalar clock plus every cell's state. It deliberately excludes the
// adaptive Δt (spec §9 "restart coupling" — recomputed from the
// initial rule on restore).
type restartSnapshot struct {
	DataVersion string
	ConfigHash  string
	Step        int
	T           float64
	States      []CellState
}

// SaveRestart writes a restart snapshot in the teacher's gob
// Save/Load style.
func SaveRestart(w io.Writer, s *Solver) error {
	snap := restartSnapshot{
		DataVersion: restartSnapshotVersion,
		ConfigHash:  hash.Of(s.Cfg, s.Mesh.Fingerprint()),
		Step:        s.step,
		T:           s.t,
		States:      s.old,
	}
	return gob.NewEncoder(w).Encode(&snap)
}

// LoadRestart restores a solver's clock and cell state from a restart
// snapshot previously written over the same mesh and config. It fails
// loudly if the config fingerprint has drifted, rather than silently
// resuming against a different setup.
func LoadRestart(r io.Reader, s *Solver) error {
	var snap restartSnapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return &MeshMissingError{Source: "restart snapshot", Err: err}
	}
	if snap.DataVersion != restartSnapshotVersion {
		return &ConfigInvalidError{Field: "Mesh.SnapshotID", Reason: "restart snapshot was written by an incompatible version"}
	}
	if snap.ConfigHash != hash.Of(s.Cfg, s.Mesh.Fingerprint()) {
		return &ConfigInvalidError{Field: "Mesh.SnapshotID", Reason: "restart snapshot does not match the current configuration or mesh"}
	}
	if len(snap.States) != len(s.Mesh.Cells) {
		return &ConfigInvalidError{Field: "Mesh.SnapshotID", Reason: "restart snapshot cell count does not match the mesh"}
	}
	s.step = snap.Step
	s.t = snap.T
	copy(s.old, snap.States)
	copy(s.new, snap.States)
	s.dt = s.initialDt()
	return nil
}

// ResultSnapshot is the canonical per-cell results layout (spec §6
// "Snapshot layout"): scalars plus per-cell ρ, u, v, p, γ, γ̂ and mesh
// arrays, held as ctessum/sparse.DenseArray so they can be written
// with the same self-describing NetCDF codec (ctessum/cdf) the
// teacher uses for its gridded output.
type ResultSnapshot struct {
	T     float64
	NOut  int
	N     int
	Rho   *sparse.DenseArray
	U     *sparse.DenseArray
	V     *sparse.DenseArray
	P     *sparse.DenseArray
	Gamma *sparse.DenseArray
	GammaHat *sparse.DenseArray

	NodeX, NodeY, NodeZ *sparse.DenseArray
	CellNodeIDs         *sparse.DenseArray
}

// BuildResultSnapshot assembles a ResultSnapshot from the solver's
// current state, computing the output-only γ̂ encoding (spec §3 —
// inlet cells report −1, outlet cells report −2; never stored on
// CellState itself).
func BuildResultSnapshot(s *Solver, nOut int) *ResultSnapshot {
	n := len(s.Mesh.Cells)
	rs := &ResultSnapshot{
		T: s.t, NOut: nOut, N: n,
		Rho: sparse.ZerosDense(n), U: sparse.ZerosDense(n), V: sparse.ZerosDense(n),
		P: sparse.ZerosDense(n), Gamma: sparse.ZerosDense(n), GammaHat: sparse.ZerosDense(n),
	}
	for i, st := range s.old {
		c := s.Mesh.Cells[i]
		rs.Rho.Elements[i] = st.Rho
		rs.U.Elements[i] = st.U
		rs.V.Elements[i] = st.V
		rs.P.Elements[i] = st.P
		rs.Gamma.Elements[i] = st.Gamma
		switch c.Class {
		case ClassPressureInlet:
			rs.GammaHat.Elements[i] = -1
		case ClassPressureOutlet:
			rs.GammaHat.Elements[i] = -2
		default:
			rs.GammaHat.Elements[i] = st.Gamma
		}
	}

	nn := len(s.Mesh.Nodes)
	rs.NodeX, rs.NodeY, rs.NodeZ = sparse.ZerosDense(nn), sparse.ZerosDense(nn), sparse.ZerosDense(nn)
	for i, nd := range s.Mesh.Nodes {
		rs.NodeX.Elements[i] = nd.Pos.X
		rs.NodeY.Elements[i] = nd.Pos.Y
		rs.NodeZ.Elements[i] = nd.Pos.Z
	}
	rs.CellNodeIDs = sparse.ZerosDense(n, 3)
	for i, c := range s.Mesh.Cells {
		for j := 0; j < 3; j++ {
			rs.CellNodeIDs.Elements[i*3+j] = float64(c.Nodes[j])
		}
	}
	return rs
}

// WriteNetCDF writes the canonical results snapshot to path as a
// self-describing NetCDF file, mirroring vargrid.go's CTMData.Write.
func (rs *ResultSnapshot) WriteNetCDF(path string) error {
	h := cdf.NewHeader(
		[]string{"cell", "node", "corner"},
		[]int{rs.N, len(rs.NodeX.Elements), 3},
	)
	vars := map[string]*sparse.DenseArray{
		"rho": rs.Rho, "u": rs.U, "v": rs.V, "p": rs.P,
		"gamma": rs.Gamma, "gammaHat": rs.GammaHat,
	}
	for name, arr := range vars {
		h.AddVariable(name, []string{"cell"}, arr.Elements)
	}
	h.AddVariable("nodeX", []string{"node"}, rs.NodeX.Elements)
	h.AddVariable("nodeY", []string{"node"}, rs.NodeY.Elements)
	h.AddVariable("nodeZ", []string{"node"}, rs.NodeZ.Elements)
	h.AddVariable("cellNodeIDs", []string{"cell", "corner"}, rs.CellNodeIDs.Elements)
	h.AddAttribute("", "t", []float64{rs.T})
	h.AddAttribute("", "nOut", []float64{float64(rs.NOut)})
	h.Define()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rtmsim: creating results snapshot: %w", err)
	}
	defer f.Close()
	w, err := cdf.Create(f, h)
	if err != nil {
		return fmt.Errorf("rtmsim: writing results snapshot header: %w", err)
	}
	for name, arr := range vars {
		if _, err := w.Writer(name, []int{0}, []int{len(arr.Elements)}).Write(arr.Elements); err != nil {
			return fmt.Errorf("rtmsim: writing results snapshot variable %q: %w", name, err)
		}
	}
	nodeVars := map[string]*sparse.DenseArray{"nodeX": rs.NodeX, "nodeY": rs.NodeY, "nodeZ": rs.NodeZ}
	for name, arr := range nodeVars {
		if _, err := w.Writer(name, []int{0}, []int{len(arr.Elements)}).Write(arr.Elements); err != nil {
			return fmt.Errorf("rtmsim: writing results snapshot variable %q: %w", name, err)
		}
	}
	if _, err := w.Writer("cellNodeIDs", []int{0, 0}, []int{rs.N, 3}).Write(rs.CellNodeIDs.Elements); err != nil {
		return fmt.Errorf("rtmsim: writing results snapshot variable %q: %w", "cellNodeIDs", err)
	}
	return nil
}
