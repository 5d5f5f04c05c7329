package main

import (
	"context"
	"flag"
	"time"

	"github.com/google/uuid"

	"lakefill/internal/core/version"
	"lakefill/internal/modkit"
	"lakefill/internal/platform/config"
	"lakefill/internal/platform/logger"
	ptime "lakefill/internal/platform/time"

	ingdom "lakefill/internal/services/ingest/domain"
	ingmod "lakefill/internal/services/ingest/module"
)

func main() {
	root := config.New()
	l := logger.Get()

	var (
		fHour    = flag.String("hour", "", "UTC hour to ingest, YYYY-MM-DDTHH (default: last completed hour)")
		fDataset = flag.String("dataset", "", "sink base path under the bronze bucket (default: CORE_INGEST_DATASET)")
		fConfig  = flag.String("config", "", "INI settings file (default: environment variables)")
	)
	flag.Parse()

	bi := version.Info("lakefill-ingest")
	l.Info().
		Str("version", bi.Version).
		Str("commit", bi.Commit).
		Str("date", bi.Date).
		Msg("lakefill-ingest starting")

	var hour ingdom.Hour
	if *fHour == "" {
		hour = ingdom.NewHour(ptime.LatestClosedHour(time.Now()))
	} else {
		h, err := ingdom.ParseHour(*fHour)
		if err != nil {
			l.Panic().Err(err).Msg("bad -hour")
		}
		hour = h
	}

	dataset := *fDataset
	if dataset == "" {
		dataset = root.Prefix("CORE_INGEST_").MayString("DATASET", "gharchive/events")
	}

	deps := modkit.Deps{
		Cfg: root,
		Log: *l,
	}

	im, err := ingmod.Register(deps, ingmod.Overrides{
		Dataset:    *fDataset,
		ConfigPath: *fConfig,
	})
	if err != nil {
		l.Fatal().Err(err).Msg("ingest module wiring failed")
	}
	ports := im.Ports().(ingmod.Ports)

	// Every run gets its own id so log lines from retries or overlapping
	// cron invocations stay attributable
	runID := uuid.NewString()
	ctx := logger.WithRun(context.Background(), runID, dataset)

	// Fail on a bad destination before any fetch happens
	if chk, ok := ports.Storage.(interface{ Check(context.Context) error }); ok {
		if err := chk.Check(ctx); err != nil {
			l.Fatal().Err(err).Msg("lake destination check failed")
		}
	}

	if err := ports.Runner.IngestHourly(ctx, hour); err != nil {
		l.Fatal().Str("hour", hour.String()).Err(err).Msg("ingest failed")
	}
	l.Info().Str("hour", hour.String()).Str("run_id", runID).Msg("ingest complete")
}
