package rtmsim

import "gonum.org/v1/gonum/mat"

// CellGradient computes the least-squares pressure gradient at cell
// ci (C4): for M neighbors, A's rows are the flattened center-to-center
// vectors P->k, b's entries are p_k - p_P; the normal-equation system
// (AtA) g = Atb is solved in closed form. Cells with fewer than two
// neighbors, or a singular AtA, report a zero gradient.
func CellGradient(m *Mesh, ci int, pressure []float64) (gx, gy float64) {
	neighbors := m.CellNeighbors(ci)
	if len(neighbors) < 2 {
		return 0, 0
	}

	a := mat.NewDense(len(neighbors), 2, nil)
	b := mat.NewVecDense(len(neighbors), nil)
	pP := pressure[ci]
	for i, nb := range neighbors {
		a.Set(i, 0, nb.Delta[0])
		a.Set(i, 1, nb.Delta[1])
		b.SetVec(i, pressure[nb.Cell]-pP)
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)
	var atb mat.VecDense
	atb.MulVec(a.T(), b)

	a11, a12 := ata.At(0, 0), ata.At(0, 1)
	a21, a22 := ata.At(1, 0), ata.At(1, 1)
	det := a11*a22 - a12*a21
	if det == 0 {
		return 0, 0
	}
	r0, r1 := atb.AtVec(0), atb.AtVec(1)
	gx = (a22*r0 - a12*r1) / det
	gy = (a11*r1 - a21*r0) / det
	return gx, gy
}
