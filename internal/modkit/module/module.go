// Package module carries the module contract and the bootstrap port registry.
// It sits beside modkit so a service module can import the contract without
// pulling in the wiring helpers.
package module

// Module mirrors modkit's module surface
type Module interface {
	Ports() any
	Name() string
}
