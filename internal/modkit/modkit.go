// Package modkit assembles service modules. A module is constructed from the
// shared Deps plus a list of Options, and hands its ports back to main for
// cross wiring.
package modkit

// Module is the surface every service module exposes to main
type Module interface {
	// Ports returns the module's port bundle for cross wiring
	Ports() any

	// Name identifies the module in logs and the registry
	Name() string
}
