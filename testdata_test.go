package rtmsim

import "gonum.org/v1/gonum/spatial/r3"

// twoTriangleSquare returns a unit square split into two triangles
// sharing one interior edge, the smallest mesh exercising a real
// neighbor relationship plus wall boundary edges (spec §8 S4).
func twoTriangleSquare() ([]NodeInput, []TriangleInput) {
	nodes := []NodeInput{
		{ExternalID: 0, Pos: r3.Vec{X: 0, Y: 0, Z: 0}},
		{ExternalID: 1, Pos: r3.Vec{X: 1, Y: 0, Z: 0}},
		{ExternalID: 2, Pos: r3.Vec{X: 1, Y: 1, Z: 0}},
		{ExternalID: 3, Pos: r3.Vec{X: 0, Y: 1, Z: 0}},
	}
	tris := []TriangleInput{
		{ExternalID: 100, Nodes: [3]int{0, 1, 2}},
		{ExternalID: 101, Nodes: [3]int{0, 2, 3}},
	}
	return nodes, tris
}

func defaultProperties() Properties {
	return Properties{
		Thickness:    3e-3,
		Porosity:     0.7,
		K:            3e-10,
		AlphaK:       1,
		PrincipalDir: r3.Vec{X: 1, Y: 0, Z: 0},
		Viscosity:    0.06,
	}
}
