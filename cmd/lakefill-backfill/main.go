package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/google/uuid"

	"lakefill/internal/core/version"
	"lakefill/internal/modkit"
	"lakefill/internal/modkit/module"
	"lakefill/internal/modkit/repokit"
	"lakefill/internal/platform/config"
	"lakefill/internal/platform/logger"
	"lakefill/internal/platform/store"

	bfdom "lakefill/internal/services/backfill/domain"
	bfmod "lakefill/internal/services/backfill/module"
	ingmod "lakefill/internal/services/ingest/module"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")

	l := logger.Get()

	bi := version.Info("lakefill-backfill")
	l.Info().
		Str("version", bi.Version).
		Str("commit", bi.Commit).
		Str("date", bi.Date).
		Msg("lakefill-backfill starting")

	st, err := store.Open(context.Background(), store.Config{
		AppName: "lakefill-backfill",
		PG: store.PGConfig{
			Enabled:        true,
			URL:            pgCfg.MustString("DBURL"),
			MaxConns:       int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs:    pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:         pgCfg.MayBool("LOG_SQL", true),
			ConnectRetries: pgCfg.MayInt("CONNECT_RETRIES", 0),
			PingTimeout:    pgCfg.MayDuration("PING_TIMEOUT", 0),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	var (
		fStart    = flag.String("start", "", "UTC start hour YYYY-MM-DDTHH")
		fEnd      = flag.String("end", "", "UTC end hour YYYY-MM-DDTHH inclusive")
		fPlanOnly = flag.Bool("plan-only", false, "seed ingest_hours for the range and exit without processing")
		fResume   = flag.Bool("resume", false, "ignore -start/-end and drain any pending/error/missing hours")
		fWorkers  = flag.Int("workers", 0, "worker concurrency (default: CORE_BACKFILL_WORKERS)")
		fLeases   = flag.Bool("leases", true, "use advisory hour leases")
		fDataset  = flag.String("dataset", "", "sink base path under the bronze bucket (default: CORE_INGEST_DATASET)")
		fConfig   = flag.String("config", "", "INI settings file for lake credentials (default: environment variables)")
	)
	flag.Parse()

	// Validate flag combos
	if *fPlanOnly && *fResume {
		l.Panic().Msg("--plan-only and --resume are mutually exclusive")
	}
	if !*fResume && (*fStart == "" || *fEnd == "") {
		l.Panic().Msg("must provide -start and -end (unless --resume)")
	}
	var start, end time.Time
	if *fStart != "" {
		t, err := time.Parse("2006-01-02T15", *fStart)
		if err != nil {
			l.Panic().Err(err).Msg("bad -start")
		}
		start = t
	}
	if *fEnd != "" {
		t, err := time.Parse("2006-01-02T15", *fEnd)
		if err != nil {
			l.Panic().Err(err).Msg("bad -end")
		}
		end = t
		if end.Before(start) {
			l.Panic().Str("start", start.String()).Str("end", end.String()).Msg("-end before -start")
		}
	}

	// Shared deps for modules
	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		Log: *l,
	}

	// Surface lease opt to the module, which reads CORE_BACKFILL_LEASES
	mustSetEnv("CORE_BACKFILL_LEASES", map[bool]string{true: "1", false: "0"}[*fLeases])

	// Ingest module first so the backfill driver can borrow its collector
	// and writer instead of building a second lake client
	im, err := ingmod.New(deps, ingmod.Overrides{
		Dataset:    *fDataset,
		ConfigPath: *fConfig,
	})
	if err != nil {
		l.Fatal().Err(err).Msg("ingest module wiring failed")
	}
	ip := module.MustPortsOf[ingmod.Ports](im)

	bf := bfmod.New(
		deps,
		bfmod.Options{
			Workers: *fWorkers,
			Dataset: *fDataset,
		},
		modkit.WithPorts(bfdom.Ports{
			Collector: ip.Collector,
			Storage:   ip.Storage,
		}),
	)

	// Register ports
	module.Register(im.Name(), im.Ports())
	module.Register(bf.Name(), bf.Ports())

	dataset := *fDataset
	if dataset == "" {
		dataset = root.Prefix("CORE_INGEST_").MayString("DATASET", "gharchive/events")
	}
	ctx := logger.WithRun(context.Background(), uuid.NewString(), dataset)

	// Fail on a dead journal or a bad destination before any hour is claimed
	repokit.MustGuard(ctx, st)
	if chk, ok := ip.Storage.(interface{ Check(context.Context) error }); ok {
		if err := chk.Check(ctx); err != nil {
			l.Fatal().Err(err).Msg("lake destination check failed")
		}
	}

	// Plan-only / resume / run-range
	bfPorts := bf.Ports().(bfmod.Ports)
	switch {
	case *fPlanOnly:
		if err := bfPorts.Runner.PlanRange(ctx, start.UTC(), end.UTC()); err != nil {
			l.Fatal().Err(err).Msg("backfill plan-only failed")
		}
		return

	case *fResume:
		if err := bfPorts.Runner.RunResume(ctx); err != nil {
			l.Fatal().Err(err).Msg("backfill resume failed")
		}
		return

	default:
		if err := bfPorts.Runner.RunRange(ctx, start.UTC(), end.UTC()); err != nil {
			l.Fatal().Err(err).Msg("backfill failed")
		}
	}
}
