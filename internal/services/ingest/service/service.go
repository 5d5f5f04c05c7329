// Package service implements the hourly ingestion orchestrator
package service

import (
	"context"

	"lakefill/internal/adapters/gharchive"
	"lakefill/internal/platform/logger"
	"lakefill/internal/services/ingest/domain"
)

// Config holds assembly settings for the orchestrator
type Config struct {
	// Dataset is the sink base path under the bronze bucket
	Dataset string
}

// Service drives one archive hour from source to the bronze zone.
// It holds no mutable state, so concurrent calls for different hours are fine
// as long as the injected collaborators tolerate them
type Service struct {
	collector domain.Collector
	storage   domain.Storage
	dataset   string
}

// New assembles the orchestrator from its two I/O collaborators
func New(collector domain.Collector, storage domain.Storage, cfg Config) *Service {
	return &Service{collector: collector, storage: storage, dataset: cfg.Dataset}
}

// IngestHourly fetches one archive hour and writes it at its derived key.
// Collaborator failures propagate unchanged so callers can tell the sides apart
func (s *Service) IngestHourly(ctx context.Context, hour domain.Hour) error {
	src := gharchive.HourRef(hour).SourceURL()
	key := domain.SinkKey(s.dataset, hour)

	l := logger.C(ctx)
	l.Info().
		Str("hour", hour.String()).
		Str("source", src).
		Str("key", key).
		Msg("ingest: hour begin")

	payload, err := s.collector.Collect(ctx, src)
	if err != nil {
		return err
	}
	defer func() { _ = payload.Close() }()

	if err := s.storage.Store(ctx, payload, key); err != nil {
		return err
	}

	l.Info().Str("key", key).Msg("ingest: hour stored")
	return nil
}
