package modkit

// Built is the resolved option set a module constructor reads back
type Built struct {
	Name  string
	Ports any
}

// Build folds opts into a Built, later options override earlier ones
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		o(&c)
	}
	return Built{
		Name:  c.name,
		Ports: c.ports,
	}
}
