package rtmsim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// computeGeometry implements C2: per-cell orthonormal local frames
// aligned with refDir, followed by the flattened-neighbor construction
// (face normal, flattened center-to-center vector, and the 2x2
// frame-rotation matrix T) for every neighbor pair. Face areas and
// cell volumes are thickness-weighted and therefore finalized by
// assignProperties (C3) once thickness is known.
func computeGeometry(m *Mesh, refDir r3.Vec) error {
	for ci := range m.Cells {
		c := &m.Cells[ci]
		p1 := m.Nodes[c.Nodes[0]].Pos
		p2 := m.Nodes[c.Nodes[1]].Pos
		p3 := m.Nodes[c.Nodes[2]].Pos

		e1 := r3.Sub(p2, p1)
		e2 := r3.Sub(p3, p1)

		b1raw := e1
		nb1 := r3.Norm(b1raw)
		if nb1 == 0 {
			return &MeshDegenerateError{CellOrEdge: fmt.Sprintf("cell %d", ci), Reason: "zero-length edge"}
		}
		b1raw = r3.Scale(1/nb1, b1raw)

		proj := r3.Scale(r3.Dot(b1raw, e2), b1raw)
		b2raw := r3.Sub(e2, proj)
		nb2 := r3.Norm(b2raw)
		if nb2 == 0 {
			return &MeshDegenerateError{CellOrEdge: fmt.Sprintf("cell %d", ci), Reason: "collinear nodes (zero area)"}
		}
		b2raw = r3.Scale(1/nb2, b2raw)
		b3 := r3.Cross(b1raw, b2raw)

		rx := r3.Dot(refDir, b1raw)
		ry := r3.Dot(refDir, b2raw)
		theta := math.Atan2(ry, rx)
		ct, st := math.Cos(theta), math.Sin(theta)

		b1 := r3.Add(r3.Scale(ct, b1raw), r3.Scale(st, b2raw))
		b2 := r3.Add(r3.Scale(-st, b1raw), r3.Scale(ct, b2raw))

		c.Center = r3.Scale(1.0/3.0, r3.Add(r3.Add(p1, p2), p3))
		c.Basis = [3]r3.Vec{b1, b2, b3}
		c.Origin = p1

		toLocal := func(p r3.Vec) [2]float64 {
			d := r3.Sub(p, p1)
			return [2]float64{r3.Dot(d, b1), r3.Dot(d, b2)}
		}
		c.Verts2D = [3][2]float64{toLocal(p1), toLocal(p2), toLocal(p3)}

		// Triangle area from the raw (pre-rotation) orthogonal basis is
		// invariant under the in-plane rotation applied above.
		c.Area = 0.5 * r3.Norm(r3.Cross(e1, e2))
		if c.Area <= 0 {
			return &MeshDegenerateError{CellOrEdge: fmt.Sprintf("cell %d", ci), Reason: "zero-area triangle"}
		}
	}

	for ci := range m.Cells {
		owner := &m.Cells[ci]
		ownerCentroid2D := centroid2D(owner.Verts2D)
		for k := range m.Neighbors[m.neighborOffsets[ci]:m.neighborOffsets[ci+1]] {
			nb := &m.Neighbors[m.neighborOffsets[ci]+k]
			neighCell := &m.Cells[nb.Cell]

			n1, n2, ok := sharedEdge(owner, neighCell)
			if !ok {
				return &MeshDegenerateError{
					CellOrEdge: fmt.Sprintf("cells %d,%d", ci, nb.Cell),
					Reason:     "neighbors do not share exactly two nodes",
				}
			}
			e1Local := localCoord(owner, n1)
			e2Local := localCoord(owner, n2)
			edgeLen := math.Hypot(e2Local[0]-e1Local[0], e2Local[1]-e1Local[1])

			edgeDir := [2]float64{(e2Local[0] - e1Local[0]) / edgeLen, (e2Local[1] - e1Local[1]) / edgeLen}
			perp := [2]float64{-edgeDir[1], edgeDir[0]}

			ownerProj := projectOntoLine(ownerCentroid2D, e1Local, edgeDir)
			l1 := dist2D(ownerCentroid2D, ownerProj)
			if side2D(ownerCentroid2D, e1Local, perp) > 0 {
				perp = [2]float64{-perp[0], -perp[1]} // perp now points away from owner
			}

			aGlobal := neighCell.Center
			aLocal := toCellLocal(owner, aGlobal)
			aProj := projectOntoLine(aLocal, e1Local, edgeDir)
			l2 := dist2D(aLocal, aProj)
			_ = l1 // l1 is used only to express the construction; (l2/l1)*l1 == l2.

			flattened := [2]float64{aProj[0] + perp[0]*l2, aProj[1] + perp[1]*l2}

			nb.Normal = perp
			nb.Delta = [2]float64{flattened[0] - ownerCentroid2D[0], flattened[1] - ownerCentroid2D[1]}
			// Area is finalized in assignProperties; stash the edge
			// length here so it can compute (t_P+t_A)/2 * edgeLen.
			nb.Area = edgeLen

			dOwner := projectDir(owner, m.Nodes[n2].Pos, m.Nodes[n1].Pos)
			dNeigh := projectDir(neighCell, m.Nodes[n2].Pos, m.Nodes[n1].Pos)
			phi := math.Atan2(dOwner[1], dOwner[0]) - math.Atan2(dNeigh[1], dNeigh[0])
			cp, sp := math.Cos(phi), math.Sin(phi)
			nb.T = [2][2]float64{{cp, -sp}, {sp, cp}}
		}
	}
	return nil
}

func centroid2D(v [3][2]float64) [2]float64 {
	return [2]float64{(v[0][0] + v[1][0] + v[2][0]) / 3, (v[0][1] + v[1][1] + v[2][1]) / 3}
}

// localCoord returns cell c's local 2D coordinate for its node slot
// matching global node index n.
func localCoord(c *Cell, n int) [2]float64 {
	for i, ni := range c.Nodes {
		if ni == n {
			return c.Verts2D[i]
		}
	}
	return [2]float64{}
}

// toCellLocal projects a global point into cell c's local 2D frame,
// using c.Origin as the origin (dropping the out-of-plane component).
func toCellLocal(c *Cell, p r3.Vec) [2]float64 {
	d := r3.Sub(p, c.Origin)
	return [2]float64{r3.Dot(d, c.Basis[0]), r3.Dot(d, c.Basis[1])}
}

func projectOntoLine(p, a [2]float64, dir [2]float64) [2]float64 {
	t := (p[0]-a[0])*dir[0] + (p[1]-a[1])*dir[1]
	return [2]float64{a[0] + t*dir[0], a[1] + t*dir[1]}
}

func dist2D(a, b [2]float64) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}

func side2D(p, a [2]float64, perp [2]float64) float64 {
	return (p[0]-a[0])*perp[0] + (p[1]-a[1])*perp[1]
}

func sharedEdge(a, b *Cell) (n1, n2 int, ok bool) {
	var found []int
	bSet := map[int]bool{b.Nodes[0]: true, b.Nodes[1]: true, b.Nodes[2]: true}
	for _, n := range a.Nodes {
		if bSet[n] {
			found = append(found, n)
		}
	}
	if len(found) != 2 {
		return 0, 0, false
	}
	return found[0], found[1], true
}

// projectDir returns the unit 2D direction of (to - from) expressed in
// cell c's own local frame basis.
func projectDir(c *Cell, to, from r3.Vec) [2]float64 {
	d := r3.Sub(to, from)
	x := r3.Dot(d, c.Basis[0])
	y := r3.Dot(d, c.Basis[1])
	n := math.Hypot(x, y)
	if n == 0 {
		return [2]float64{1, 0}
	}
	return [2]float64{x / n, y / n}
}
