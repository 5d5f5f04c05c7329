package modkit

// Option mutates module build configuration
type Option func(*buildCfg)

// buildCfg accumulates option state during Build
type buildCfg struct {
	name  string
	ports any
}

// WithName sets the module name used in logs and the registry
func WithName(name string) Option {
	return func(c *buildCfg) { c.name = name }
}

// WithPorts hands a module the ports another module declared. The concrete
// type stays owned by the module that imports them
func WithPorts[T any](p T) Option {
	return func(c *buildCfg) { c.ports = p }
}
