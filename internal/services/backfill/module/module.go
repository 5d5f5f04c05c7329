// Package module provides the backfill module implementation
package module

import (
	"lakefill/internal/modkit"
	"lakefill/internal/modkit/repokit"
	str "lakefill/internal/platform/strings"

	"lakefill/internal/services/backfill/domain"
	"lakefill/internal/services/backfill/guardrails"
	"lakefill/internal/services/backfill/repo"
	"lakefill/internal/services/backfill/service"
)

// Ports defines the backfill module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the backfill module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the backfill module.
// The collaborator ports come in via modkit.WithPorts so the driver shares
// the ingest wiring instead of building a second collector and writer
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("backfill"),
	}, opts...)...)

	// Basic guardrails against incorrect wiring
	ports, ok := b.Ports.(domain.Ports)
	if !ok {
		panic("backfill module: expected WithPorts(backfill/domain.Ports)")
	}
	if ports.Collector == nil || ports.Storage == nil {
		panic("backfill module: Ports missing Collector or Storage")
	}

	// Merge config + overrides
	cfg := FromConfig(deps.Cfg)
	if overrides.Workers != 0 {
		cfg.Workers = overrides.Workers
	}
	if overrides.MaxRetries != 0 {
		cfg.MaxRetries = overrides.MaxRetries
	}
	if overrides.RetryBase != 0 {
		cfg.RetryBase = overrides.RetryBase
	}
	if overrides.DelayPerHour != 0 {
		cfg.DelayPerHour = overrides.DelayPerHour
	}
	if overrides.FetchTimeout != 0 {
		cfg.FetchTimeout = overrides.FetchTimeout
	}
	if overrides.StoreTimeout != 0 {
		cfg.StoreTimeout = overrides.StoreTimeout
	}
	if overrides.MaxRangeHours != 0 {
		cfg.MaxRangeHours = overrides.MaxRangeHours
	}
	if overrides.Dataset != "" {
		cfg.Dataset = overrides.Dataset
	}
	cfg.Dataset = str.CleanBase(cfg.Dataset)
	if cfg.Dataset == "" {
		panic("backfill module: dataset base path is empty")
	}

	// Journal transactions get SET LOCAL tuning applied at tx start
	db := repokit.WithBeginHooks(deps.PG, repokit.SetLocalHook("SET LOCAL statement_timeout = 0"))

	leaseFn := guardrails.MakeAdvisoryLease(deps)

	svc := service.New(
		db, repo.NewPG(),
		ports.Collector, ports.Storage,
		service.Config{
			Workers:       cfg.Workers,
			DelayPerHour:  cfg.DelayPerHour,
			MaxRetries:    cfg.MaxRetries,
			RetryBase:     cfg.RetryBase,
			FetchTimeout:  cfg.FetchTimeout,
			StoreTimeout:  cfg.StoreTimeout,
			MaxRangeHours: cfg.MaxRangeHours,
			EnableLeases:  cfg.EnableLeases,
			Dataset:       cfg.Dataset,
		},
		leaseFn,
	)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "backfill" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }
