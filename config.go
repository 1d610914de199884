package rtmsim

import "gonum.org/v1/gonum/spatial/r3"

// InteractiveMode controls how C7's inlet-seed resolution combines
// with patch-declared inlets.
type InteractiveMode int

const (
	InteractiveNone InteractiveMode = iota
	InteractiveReplaceInlets
	InteractiveAddInlets
)

// MeshSource identifies where C1 should obtain its nodes/triangles/
// patches from. Parsing any concrete on-disk format is an external
// collaborator (spec §1); Config only carries the identifier through
// to whichever loader the caller wires in.
type MeshSource struct {
	Identifier string
	Restart    bool
	SnapshotID string
}

// PhysicsConfig bundles the equation-of-state and boundary-pressure
// parameters (spec §6 "Required inputs").
type PhysicsConfig struct {
	TMax     float64
	PRef     float64
	RhoRef   float64
	GammaEoS float64
	Mu       float64
	PA       float64 // inlet pressure
	PInit    float64 // initial/ambient pressure
	Defaults Properties
}

// PatchConfig is one of up to four patch-override slots a run may
// declare (spec §6).
type PatchConfig struct {
	Type     PatchType
	Cells    []int
	Override Properties
}

// InletConfig governs C7 seed-based inlet resolution.
type InletConfig struct {
	Mode   InteractiveMode
	Seeds  []r3.Vec
	Radius float64
}

// ScheduleConfig governs the Δt adaptation rule and snapshot cadence.
type ScheduleConfig struct {
	NPICS            int
	SnapshotInterval float64
}

// Config is the single validated entry point replacing the reference
// implementation's many-argument call (spec §9 "dynamic parameter
// bundles").
type Config struct {
	Mesh     MeshSource
	Physics  PhysicsConfig
	Patches  []PatchConfig
	Inlet    InletConfig
	Schedule ScheduleConfig
	RefDir   r3.Vec
}

// Validate checks every field-level constraint from spec §6, returning
// a *ConfigInvalidError naming the first offending field.
func (c *Config) Validate() error {
	if c.Mesh.Identifier == "" && !c.Mesh.Restart {
		return &ConfigInvalidError{Field: "Mesh.Identifier", Reason: "must be set unless restarting"}
	}
	if c.Mesh.Restart && c.Mesh.SnapshotID == "" {
		return &ConfigInvalidError{Field: "Mesh.SnapshotID", Reason: "required when Restart is set"}
	}
	if c.Physics.TMax <= 0 {
		return &ConfigInvalidError{Field: "Physics.TMax", Reason: "must be > 0"}
	}
	if c.Physics.PRef <= 0 {
		return &ConfigInvalidError{Field: "Physics.PRef", Reason: "must be > 0"}
	}
	if c.Physics.RhoRef <= 0 {
		return &ConfigInvalidError{Field: "Physics.RhoRef", Reason: "must be > 0"}
	}
	if c.Physics.GammaEoS <= 1 {
		return &ConfigInvalidError{Field: "Physics.GammaEoS", Reason: "must be > 1"}
	}
	if c.Physics.Mu <= 0 {
		return &ConfigInvalidError{Field: "Physics.Mu", Reason: "must be > 0"}
	}
	if c.Physics.PInit < 0 {
		return &ConfigInvalidError{Field: "Physics.PInit", Reason: "must be >= 0"}
	}
	if c.Physics.PA <= c.Physics.PInit {
		return &ConfigInvalidError{Field: "Physics.PA", Reason: "must be > Physics.PInit"}
	}
	if err := c.Physics.Defaults.Validate(); err != nil {
		return err
	}
	if len(c.Patches) > 4 {
		return &ConfigInvalidError{Field: "Patches", Reason: "at most four patch overrides supported"}
	}
	if c.Inlet.Mode != InteractiveNone && len(c.Inlet.Seeds) == 0 {
		return &ConfigInvalidError{Field: "Inlet.Seeds", Reason: "required when Inlet.Mode requests seed resolution"}
	}
	if c.Inlet.Mode != InteractiveNone && c.Inlet.Radius <= 0 {
		return &ConfigInvalidError{Field: "Inlet.Radius", Reason: "must be > 0 when Inlet.Mode requests seed resolution"}
	}
	if c.Schedule.NPICS < 4 {
		c.Schedule.NPICS = 4
	} else if c.Schedule.NPICS > 100 {
		c.Schedule.NPICS = 100
	}
	c.Schedule.NPICS = roundUpToMultiple(c.Schedule.NPICS, 4)
	return nil
}

func roundUpToMultiple(n, m int) int {
	if n%m == 0 {
		return n
	}
	return n + (m - n%m)
}
