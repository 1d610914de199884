// Package hash computes stable fingerprints for configuration and mesh
// data so that restart snapshots can be checked against the inputs that
// produced them.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// Of returns a fingerprint combining every object passed to it,
// suitable for embedding in a snapshot header to detect drift between a
// run and a restart of that run. Callers fingerprint a restart by
// passing both the run's Config and a MeshFingerprint together, so that
// a restart against a config-compatible but structurally different
// mesh is caught rather than silently accepted.
func Of(objects ...interface{}) string {
	h := fnv.New128a()
	for _, object := range objects {
		writeFingerprint(h, object)
	}
	bKey := h.Sum([]byte{})
	return fmt.Sprintf("%x", bKey[0:h.Size()])
}

// writeFingerprint feeds a stable encoding of object into h. Most
// values gob-encode directly; values gob cannot encode (for example a
// struct with no exported fields) fall back to a deterministic spew dump.
func writeFingerprint(h hash.Hash, object interface{}) {
	if s, ok := object.(fmt.Stringer); ok {
		fmt.Fprint(h, s.String())
		return
	}
	if err := gob.NewEncoder(h).Encode(object); err == nil {
		return
	}
	printer := spew.ConfigState{
		Indent:                  " ",
		SortKeys:                true,
		DisableMethods:          true,
		SpewKeys:                true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	printer.Fprintf(h, "%#v", object)
}

// MeshFingerprint captures the mesh properties a restart is checked
// against: node/cell counts and the mesh's bounding extent. Cheap to
// compute and sensitive to the structural changes that matter — a
// different mesh with the same cell count but different geometry still
// changes the extent.
type MeshFingerprint struct {
	NumNodes int
	NumCells int
	Min, Max [3]float64
}
