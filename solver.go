package rtmsim

import (
	"math"
	"runtime"
	"sync"
)

const (
	normalizationEpsilon = 100.0
	beta1                = 1.0
	relaxWeight          = 0.5
)

// Solver holds the immutable mesh and the evolving cell state for one
// run (spec §4.6, §4.8). States are true double-buffered: Step reads
// old and writes new, then swaps — no per-cell locking is needed
// because each pass writes only to its own cell's slot (spec §5).
type Solver struct {
	Mesh *Mesh
	Cfg  Config
	eos  *EoS

	old, new []CellState
	t        float64
	dt       float64
	step     int

	deltaPA, deltaPInit, rhoA, rhoInit float64
}

// DomainManipulator is one stage of the C8 orchestration pipeline,
// following the teacher's func(*Domain) error idiom.
type DomainManipulator func(*Solver) error

// StepObserver is invoked once per completed step.
type StepObserver func(step int, t, dt float64, nCells int)

// NewSolver builds a Solver over an already-assembled mesh and
// initializes cell state at t=0 (spec §3 "Lifecycle").
func NewSolver(mesh *Mesh, cfg Config) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	phys := cfg.Physics
	s := &Solver{
		Mesh:       mesh,
		Cfg:        cfg,
		eos:        NewEoS(phys.GammaEoS, phys.PRef, phys.RhoRef, phys.PA, phys.PInit, normalizationEpsilon),
		deltaPInit: normalizationEpsilon,
		deltaPA:    phys.PA - phys.PInit + normalizationEpsilon,
	}
	s.rhoInit = s.eos.Rho(s.deltaPInit, phys.RhoRef)
	s.rhoA = s.eos.Rho(s.deltaPA, phys.RhoRef)

	n := len(mesh.Cells)
	s.old = make([]CellState, n)
	s.new = make([]CellState, n)
	for i, c := range mesh.Cells {
		st := CellState{Rho: s.rhoInit, P: s.deltaPInit}
		switch c.Class {
		case ClassPressureInlet:
			st = CellState{Rho: s.rhoA, P: s.deltaPA, Gamma: 1}
		case ClassPressureOutlet:
			st = CellState{Rho: s.rhoInit, P: s.deltaPInit, Gamma: 0}
		}
		s.old[i] = st
		s.new[i] = st
	}
	s.dt = s.initialDt()
	return s, nil
}

// State returns the current (post-swap) cell state.
func (s *Solver) State() []CellState { return s.old }

// T returns the current simulated time.
func (s *Solver) T() float64 { return s.t }

// Dt returns the current adaptive timestep.
func (s *Solver) Dt() float64 { return s.dt }

// initialDt implements spec §4.6's initial timestep rule.
func (s *Solver) initialDt() float64 {
	minArea := math.Inf(1)
	vMax := 0.0
	for i, c := range s.Mesh.Cells {
		if c.Area < minArea {
			minArea = c.Area
		}
		st := s.old[i]
		deltaP := s.eos.DeltaP(st.Rho)
		v := c.K * deltaP / (c.Viscosity * c.Area)
		if v > vMax {
			vMax = v
		}
	}
	if vMax == 0 {
		return s.Cfg.Physics.TMax / float64(4*s.Cfg.Schedule.NPICS)
	}
	return beta1 * math.Sqrt(minArea) / vMax
}

// parallelCells partitions [0,n) across GOMAXPROCS goroutines and runs
// fn over each index, following the teacher's run.go Calculations
// concurrency idiom. Safe whenever fn only touches cell ii's own
// outputs.
func parallelCells(n int, fn func(ii int)) {
	nprocs := runtime.GOMAXPROCS(0)
	if nprocs > n {
		nprocs = n
	}
	if nprocs <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var wg sync.WaitGroup
	for p := 0; p < nprocs; p++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for ii := start; ii < n; ii += nprocs {
				fn(ii)
			}
		}(p)
	}
	wg.Wait()
}

// Step advances the solver by one Δt (spec §4.6 "per step" 1-7, minus
// snapshot emission which the caller, C8, drives).
func (s *Solver) Step() error {
	n := len(s.Mesh.Cells)

	grads := make([][2]float64, n)
	parallelCells(n, func(ii int) {
		gx, gy := CellGradient(s.Mesh, ii, pressureOf(s.old))
		grads[ii] = [2]float64{gx, gy}
	})

	fluxes := AccumulateFluxes(s.Mesh, s.old, grads)

	var instabilityErr error
	var mu sync.Mutex
	parallelCells(n, func(ii int) {
		c := &s.Mesh.Cells[ii]
		old := s.old[ii]
		if c.Class == ClassPressureInlet || c.Class == ClassPressureOutlet {
			s.new[ii] = old // re-pinned explicitly below; keep until then
			return
		}
		f := fluxes[ii]
		g := grads[ii]

		rhoNew := old.Rho - (s.dt/c.Volume)*f.Rho
		if rhoNew < 0 {
			rhoNew = 0
		}
		uNew := (old.Rho*old.U - (s.dt/c.Volume)*f.U - s.dt*g[0]) / (rhoNew + s.dt*c.Viscosity/c.K)
		vNew := (old.Rho*old.V - (s.dt/c.Volume)*f.V - s.dt*g[1]) / (rhoNew + s.dt*c.Viscosity/(c.AlphaK*c.K))
		gammaNew := (c.Porosity*old.Gamma - (s.dt/c.Volume)*(f.Gamma-old.Gamma*f.Vol)) / c.Porosity
		if gammaNew < 0 {
			gammaNew = 0
		} else if gammaNew > 1 {
			gammaNew = 1
		}
		pNew := s.eos.DeltaP(rhoNew)

		if !finite(rhoNew) || !finite(uNew) || !finite(vNew) || !finite(gammaNew) || !finite(pNew) {
			mu.Lock()
			if instabilityErr == nil {
				instabilityErr = &NumericalInstabilityError{Variable: "state", Cell: ii, Step: s.step}
			}
			mu.Unlock()
			return
		}
		s.new[ii] = CellState{Rho: rhoNew, U: uNew, V: vNew, P: pNew, Gamma: gammaNew}
	})
	if instabilityErr != nil {
		return instabilityErr
	}

	for ii, c := range s.Mesh.Cells {
		switch c.Class {
		case ClassPressureInlet:
			s.new[ii] = CellState{Rho: s.rhoA, P: s.deltaPA, Gamma: 1}
		case ClassPressureOutlet:
			s.new[ii] = CellState{Rho: s.rhoInit, P: s.deltaPInit, Gamma: 0}
		}
	}

	s.old, s.new = s.new, s.old
	s.t += s.dt
	s.step++

	if s.step > s.Cfg.Schedule.NPICS {
		s.adaptDt()
	}
	return nil
}

// adaptDt implements spec §4.6 step 6.
func (s *Solver) adaptDt() {
	beta2 := 0.1
	if s.eos.mode == EoSQuasiIncompressible {
		beta2 = 0.01
	}
	minVal := math.Inf(1)
	for i, c := range s.Mesh.Cells {
		st := s.old[i]
		speed := math.Hypot(st.U, st.V)
		if speed == 0 {
			continue
		}
		v := math.Sqrt(c.Volume/c.Thickness) / speed
		if v < minVal {
			minVal = v
		}
	}
	if math.IsInf(minVal, 1) {
		minVal = 0
	}
	dt := (1-relaxWeight)*s.dt + relaxWeight*beta2*minVal
	dtCap := s.Cfg.Physics.TMax / float64(4*s.Cfg.Schedule.NPICS)
	if dt > dtCap {
		dt = dtCap
	}
	s.dt = dt
}

func pressureOf(states []CellState) []float64 {
	out := make([]float64, len(states))
	for i, st := range states {
		out[i] = st.P
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
