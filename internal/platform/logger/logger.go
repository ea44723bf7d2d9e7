// Package logger wraps zerolog. Commands log to stderr so stdout stays
// reserved for tables and exported data; every line of an ingestion run
// carries its run id and dataset
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

	"impfmon/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the project-wide logging type
type Logger = zerolog.Logger

// Options configures the root logger
type Options struct {
	Level   string
	Format  string // "console" or "json"
	Service string
	// Writer replaces stderr, tests point it at a buffer
	Writer  io.Writer
	Caller  bool
	NoColor bool
	// SampleEvery keeps one line in N; 0 and 1 keep everything
	SampleEvery int
}

// FromEnv reads LOG_* through the raw view, config itself logs and cannot be used here
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:       strings.ToLower(rc.Get("LEVEL", "info")),
		Format:      strings.ToLower(rc.Get("FORMAT", "console")),
		Service:     rc.Get("SERVICE", "impfmon"),
		Caller:      rc.GetBool("CALLER", false),
		NoColor:     rc.GetBool("NO_COLOR", false),
		SampleEvery: rc.GetInt("SAMPLE_EVERY", 0),
	}
}

var (
	once sync.Once
	root atomic.Pointer[Logger]
)

// Init builds the root logger; only the first call has an effect
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano
		l := build(opt)
		root.Store(&l)
	})
}

// Get returns the root logger, initialising it from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

func build(opt Options) Logger {
	out := opt.Writer
	if out == nil {
		out = os.Stderr
	}
	if opt.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05", NoColor: opt.NoColor || opt.Writer != nil}
	}

	c := zerolog.New(out).Level(level(opt.Level)).With().Timestamp()
	if opt.Service != "" {
		c = c.Str("service", opt.Service)
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		c = c.Str("version", bi.Main.Version)
	}
	if opt.Caller {
		c = c.Caller()
	}
	l := c.Logger()
	if opt.SampleEvery > 1 {
		l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return l
}

// level accepts zerolog names plus "warning"; anything unknown logs at info
func level(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return zerolog.WarnLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

type runKey struct{}

type run struct {
	id      string
	dataset string
}

// WithRun stamps ctx with the ingestion run; blank values keep what ctx already has
func WithRun(ctx context.Context, runID, dataset string) context.Context {
	r, _ := ctx.Value(runKey{}).(run)
	if runID != "" {
		r.id = runID
	}
	if dataset != "" {
		r.dataset = dataset
	}
	if r == (run{}) {
		return ctx
	}
	return context.WithValue(ctx, runKey{}, r)
}

// RunID returns the id stored by WithRun, or ""
func RunID(ctx context.Context) string {
	r, _ := ctx.Value(runKey{}).(run)
	return r.id
}

// C returns the root logger with the run fields of ctx attached
func C(ctx context.Context) *Logger {
	r, ok := ctx.Value(runKey{}).(run)
	if !ok {
		return Get()
	}
	c := Get().With()
	if r.id != "" {
		c = c.Str("run_id", r.id)
	}
	if r.dataset != "" {
		c = c.Str("dataset", r.dataset)
	}
	l := c.Logger()
	return &l
}

// Named returns the root logger tagged with a component
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}
