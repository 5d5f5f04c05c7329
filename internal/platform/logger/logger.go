// Package logger wraps zerolog behind a few small helpers. It owns the
// process root logger plus run scoped children for ingest runs
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"lakefill/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the project-wide logging type. An alias keeps call sites on
// plain zerolog while leaving room to swap the backend later
type Logger = zerolog.Logger

var (
	initOnce sync.Once
	rootLog  atomic.Pointer[zerolog.Logger]
	inited   atomic.Bool
)

// Options configures the root logger
type Options struct {
	Level        string
	Format       string
	Service      string
	Component    string
	Writer       io.Writer
	WithCaller   bool
	SampleEvery  int
	StaticFields map[string]string
}

// FromEnv builds Options through the raw config view, which never logs,
// so logger and config stay cycle free
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:       strings.ToLower(rc.Get("LEVEL", "debug")),
		Format:      strings.ToLower(rc.Get("FORMAT", "console")),
		Service:     rc.Get("SERVICE", ""),
		Component:   rc.Get("COMPONENT", ""),
		WithCaller:  rc.GetBool("CALLER", false),
		SampleEvery: rc.GetInt("SAMPLE_EVERY", 0),
	}
}

// Get returns the process root logger, initializing from env on first use
func Get() *Logger {
	if !inited.Load() {
		Init(FromEnv())
	}
	return rootLog.Load()
}

// Init configures zerolog once and installs the root logger. Later
// calls are no-ops
func Init(opt Options) {
	initOnce.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		log := assemble(opt)
		rootLog.Store(&log)
		inited.Store(true)
	})
}

// assemble builds the root logger from opt
func assemble(opt Options) zerolog.Logger {
	w := opt.Writer
	if w == nil {
		w = os.Stdout
	}
	if opt.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	lc := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		lc = lc.Str("go_version", bi.GoVersion)
	}
	if opt.Service != "" {
		lc = lc.Str("service", opt.Service)
	}
	if opt.Component != "" {
		lc = lc.Str("component", opt.Component)
	}
	for k, v := range opt.StaticFields {
		lc = lc.Str(k, v)
	}

	log := lc.Logger()
	if opt.WithCaller {
		log = log.With().Caller().Logger()
	}
	if opt.SampleEvery > 1 {
		log = log.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return log
}

// parseLevel maps a level string to zerolog, unknown or empty means debug
func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	if s != "" {
		if lvl, err := zerolog.ParseLevel(s); err == nil {
			return lvl
		}
	}
	return zerolog.DebugLevel
}

type ctxKey struct{ name string }

var (
	keyRunID   = ctxKey{"run_id"}
	keyDataset = ctxKey{"dataset"}
)

// WithRun annotates ctx with the fields shared by every log line of a
// backfill or ingest run
func WithRun(ctx context.Context, runID, dataset string) context.Context {
	if runID != "" {
		ctx = context.WithValue(ctx, keyRunID, runID)
	}
	if dataset != "" {
		ctx = context.WithValue(ctx, keyDataset, dataset)
	}
	return ctx
}

func ctxStr(ctx context.Context, key ctxKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// C returns a child logger carrying whatever run fields ctx holds
func C(ctx context.Context) *Logger {
	builder := Get().With()
	if s := ctxStr(ctx, keyRunID); s != "" {
		builder = builder.Str("run_id", s)
	}
	if s := ctxStr(ctx, keyDataset); s != "" {
		builder = builder.Str("dataset", s)
	}
	ll := builder.Logger()
	return &ll
}

// Named returns a child logger with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	ll := Get().With().Str("component", component).Logger()
	return &ll
}
