package rtmsim

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// ResolveInletSeeds implements C7: for each seed point, grow a search
// radius by 1.1x until at least one cell center falls within it,
// accumulating every matched cell (external triangle ids, via
// extTriByIdx) into a single inlet patch.
func ResolveInletSeeds(m *Mesh, extTriByIdx []int, seeds []r3.Vec, radius float64) Patch {
	points := make(kdtree.Points, len(m.Cells))
	for i, c := range m.Cells {
		points[i] = kdtree.Point{c.Center.X, c.Center.Y, c.Center.Z}
	}
	tree := kdtree.New(points, false)

	seen := make(map[int]bool)
	var cells []int
	for _, seed := range seeds {
		q := kdtree.Point{seed.X, seed.Y, seed.Z}
		r := radius
		for {
			keeper := kdtree.NewDistKeeper(r * r)
			tree.NearestSet(keeper, q)
			// With no point within r, the keeper holds only its
			// sentinel entry, whose Comparable is nil.
			if len(keeper.Heap) > 0 && keeper.Heap[0].Comparable != nil {
				for _, cd := range keeper.Heap {
					if cd.Comparable == nil {
						continue
					}
					idx := pointIndex(points, cd.Comparable.(kdtree.Point))
					if idx >= 0 && !seen[idx] {
						seen[idx] = true
						cells = append(cells, extTriByIdx[idx])
					}
				}
				break
			}
			r *= 1.1
		}
	}
	return Patch{Type: PatchInlet, Cells: cells}
}

// pointIndex recovers the cell index backing a kdtree.Point match.
// The kdtree stores point values, not indices, so matching is done by
// value identity against the original slice.
func pointIndex(points kdtree.Points, p kdtree.Point) int {
	for i, q := range points {
		if q[0] == p[0] && q[1] == p[1] && q[2] == p[2] {
			return i
		}
	}
	return -1
}
