// Package module wires the ingest service behind modkit ports
package module

import (
	"lakefill/internal/adapters/gharchive"
	"lakefill/internal/adapters/lake"
	"lakefill/internal/adapters/lakeconfig"
	"lakefill/internal/modkit"
	modreg "lakefill/internal/modkit/module"
	perr "lakefill/internal/platform/errors"
	str "lakefill/internal/platform/strings"
	"lakefill/internal/services/ingest/domain"
	"lakefill/internal/services/ingest/service"
)

// Ports exposed by the ingest module.
// The collaborators are exported so sibling modules can borrow the
// constructed collector and writer instead of building their own
type Ports struct {
	Runner    domain.RunnerPort
	Collector domain.Collector
	Storage   domain.Storage
}

// Overrides carries caller supplied collaborators and option tweaks.
// Zero fields fall back to env options and defaults built from the provider
type Overrides struct {
	Provider  domain.ConfigProvider
	Collector domain.Collector
	Storage   domain.Storage

	Dataset    string
	ConfigPath string
}

// Module bundles the ingest service behind its public port
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the ingest module.
// The provider is consulted exactly once here, so a broken settings source
// fails construction before any fetch is attempted
func New(deps modkit.Deps, overrides Overrides) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if overrides.Dataset != "" {
		opts.Dataset = overrides.Dataset
	}
	if overrides.ConfigPath != "" {
		opts.ConfigPath = overrides.ConfigPath
	}

	// Keys are built as <dataset>/<YYYY>/<MM>/<DD>/<HH>.json.gz, so a stray
	// slash here would corrupt every key the module ever writes
	opts.Dataset = str.CleanBase(opts.Dataset)
	if opts.Dataset == "" {
		return nil, perr.Configf("ingest: dataset base path is empty")
	}

	provider := overrides.Provider
	if provider == nil {
		if opts.ConfigPath != "" {
			provider = lakeconfig.NewFileProvider(opts.ConfigPath)
		} else {
			provider = lakeconfig.NewEnvProvider(deps.Cfg)
		}
	}

	cfg, err := provider.Config()
	if err != nil {
		return nil, err
	}

	storage := overrides.Storage
	if storage == nil {
		w, werr := lake.NewWriter(lake.Options{
			Endpoint:  cfg.AWS.EndpointURL,
			Region:    cfg.AWS.Region,
			AccessKey: cfg.AWS.AccessKeyID,
			SecretKey: cfg.AWS.SecretAccessKey,
			Bucket:    cfg.Lake.Bronze,
		})
		if werr != nil {
			return nil, werr
		}
		storage = w
	}

	collector := overrides.Collector
	if collector == nil {
		base := gharchive.NewHTTPCollector(opts.HTTPTimeout)
		if opts.CacheDir != "" {
			collector = gharchive.NewCachedCollector(
				opts.CacheDir,
				base,
				gharchive.WithRefreshRecent(opts.RefreshRecent),
				gharchive.WithRetention(opts.RetainMaxAge, opts.RetainMaxBytes),
			)
		} else {
			collector = base
		}
	}

	svc := service.New(collector, storage, service.Config{Dataset: opts.Dataset})

	return &Module{
		deps:  deps,
		ports: Ports{Runner: svc, Collector: collector, Storage: storage},
	}, nil
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "ingest" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// Register constructs the module and publishes its ports for cross wiring
func Register(deps modkit.Deps, overrides Overrides) (*Module, error) {
	m, err := New(deps, overrides)
	if err != nil {
		return nil, err
	}
	modreg.Register(m.Name(), m.Ports())
	return m, nil
}
