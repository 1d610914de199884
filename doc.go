// Package rtmsim implements a finite-area (surface finite-volume)
// solver for resin impregnation of a thin fibrous preform during
// Resin Transfer Moulding. Given a triangulated shell mesh, per-cell
// anisotropic porous-medium properties, and pressure boundary
// conditions, it advances a compressible Darcy-flow model in time and
// reports, at scheduled intervals, per-cell fill fraction, pressure,
// density, and in-plane velocity.
package rtmsim
