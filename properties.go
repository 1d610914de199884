package rtmsim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// assignProperties implements C3: it maps patch membership onto
// per-cell properties and class, then finalizes the thickness-weighted
// geometry (cell volume, neighbor face area) that C2 left pending.
//
// Running this twice over the same mesh and patch set yields the same
// per-cell property arrays (spec §8 "idempotence of property
// assignment"): per-cell properties are assigned from defaults/patch
// data, never accumulated. Neighbor face areas are different: each is
// rescaled in place from the edge length computeGeometry left in
// Neighbor.Area, so a second call without a fresh computeGeometry pass
// multiplies them by the averaged thickness again.
func assignProperties(m *Mesh, extTriByIdx []int, patches []Patch, defaults Properties) error {
	extToIdx := make(map[int]int, len(extTriByIdx))
	for idx, ext := range extTriByIdx {
		extToIdx[ext] = idx
	}

	for ci := range m.Cells {
		m.Cells[ci].Properties = defaults
	}

	for pi, patch := range patches {
		if patch.Type == PatchPreformOverride {
			if err := patch.Override.Validate(); err != nil {
				return fmt.Errorf("rtmsim: patch %d: %w", pi, err)
			}
		}
		for _, ext := range patch.Cells {
			ci, ok := extToIdx[ext]
			if !ok {
				return &ConfigInvalidError{
					Field:  "Patch.Cells",
					Reason: fmt.Sprintf("patch %d references undefined triangle %d", pi, ext),
				}
			}
			switch patch.Type {
			case PatchPreformOverride:
				m.Cells[ci].Properties = patch.Override
			case PatchInlet:
				m.Cells[ci].Class = ClassPressureInlet
			case PatchOutlet:
				m.Cells[ci].Class = ClassPressureOutlet
			case PatchIgnored:
				// no-op; membership is acknowledged but carries no effect.
			}
		}
	}

	for ci := range m.Cells {
		c := &m.Cells[ci]
		x := r3.Dot(c.PrincipalDir, c.Basis[0])
		y := r3.Dot(c.PrincipalDir, c.Basis[1])
		n := math.Hypot(x, y)
		if n == 0 {
			// Principal direction normal to the surface: fall back to
			// the frame's own first axis.
			c.LocalDir = [2]float64{1, 0}
		} else {
			c.LocalDir = [2]float64{x / n, y / n}
		}
		c.Volume = c.Area * c.Thickness
		if c.Volume <= 0 {
			return &MeshDegenerateError{CellOrEdge: fmt.Sprintf("cell %d", ci), Reason: "non-positive volume"}
		}
	}

	for ci := range m.Cells {
		for k := range m.Neighbors[m.neighborOffsets[ci]:m.neighborOffsets[ci+1]] {
			nb := &m.Neighbors[m.neighborOffsets[ci]+k]
			edgeLen := nb.Area // stashed by computeGeometry
			tAvg := 0.5 * (m.Cells[ci].Thickness + m.Cells[nb.Cell].Thickness)
			nb.Area = tAvg * edgeLen
		}
	}
	return nil
}
