package rtmsim

// CellState is the per-cell conserved/primitive state (spec §3 "Cell
// state"): density, in-plane velocity in the cell's own local frame,
// pressure, and fill fraction.
type CellState struct {
	Rho, U, V, P, Gamma float64
}

// CellFluxes accumulates the raw (not yet volume-divided) face-flux
// sums for one cell over one step: mass, the two momentum components,
// the transported fill-fraction flux, and the bare volumetric flux
// (used by the non-conservative γ correction, spec §4.5/§9).
type CellFluxes struct {
	Rho, U, V, Gamma, Vol float64
}

// AccumulateFluxes implements C5: first-order upwind fluxes on the
// flattened interface for every cell's neighbor list. grads holds the
// per-cell (dp/dx, dp/dy) from C4; the owner's gradient is used only for
// the Darcy through-face velocity at faces shared with an inlet cell.
func AccumulateFluxes(m *Mesh, states []CellState, grads [][2]float64) []CellFluxes {
	out := make([]CellFluxes, len(m.Cells))
	for ci := range m.Cells {
		p := &m.Cells[ci]
		sp := states[ci]
		var acc CellFluxes
		for _, nb := range m.CellNeighbors(ci) {
			a := &m.Cells[nb.Cell]
			sa := states[nb.Cell]

			// Rotate the neighbor's velocity into the owner's frame.
			uA := nb.T[0][0]*sa.U + nb.T[0][1]*sa.V
			vA := nb.T[1][0]*sa.U + nb.T[1][1]*sa.V

			area := nb.Area
			var nDotUbar float64

			switch a.Class {
			case ClassPressureOutlet:
				// Outflow determined entirely by the interior owner's
				// own velocity (spec §4.5).
				area = nb.Area * p.Thickness / (0.5 * (p.Thickness + a.Thickness))
				nDotUbar = nb.Normal[0]*sp.U + nb.Normal[1]*sp.V
			case ClassPressureInlet:
				area = nb.Area * p.Thickness / (0.5 * (p.Thickness + a.Thickness))
				g := grads[ci]
				ubarX := -1.0 / p.Viscosity * p.K * g[0]
				ubarY := -1.0 / p.Viscosity * p.AlphaK * p.K * g[1]
				nDotRaw := nb.Normal[0]*ubarX + nb.Normal[1]*ubarY
				nDotUbar = nDotRaw
				if nDotUbar > 0 {
					nDotUbar = 0 // no backflow past the injection port
				}
			default:
				uBar := 0.5 * (sp.U + uA)
				vBar := 0.5 * (sp.V + vA)
				nDotUbar = nb.Normal[0]*uBar + nb.Normal[1]*vBar
			}

			rhoAvg := 0.5 * (sp.Rho + sa.Rho)
			fVol := nDotUbar * area
			fRho := rhoAvg * fVol

			var fu, fv float64
			if rhoAvg*nDotUbar >= 0 {
				fu = rhoAvg * nDotUbar * sp.U
				fv = rhoAvg * nDotUbar * sp.V
			} else {
				fu = rhoAvg * nDotUbar * uA
				fv = rhoAvg * nDotUbar * vA
			}

			var fGamma float64
			if fVol >= 0 {
				fGamma = fVol * sp.Gamma
			} else {
				fGamma = fVol * sa.Gamma
			}

			acc.Rho += fRho
			acc.U += fu
			acc.V += fv
			acc.Gamma += fGamma
			acc.Vol += fVol
		}
		out[ci] = acc
	}
	return out
}
