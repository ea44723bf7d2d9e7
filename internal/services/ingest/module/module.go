// Package module wires up the ingest pipeline for one dataset as a modkit.Module
package module

import (
	"path/filepath"

	"impfmon/internal/adapters/source"
	"impfmon/internal/modkit"
	modreg "impfmon/internal/modkit/module"
	"impfmon/internal/services/ingest/domain"
	"impfmon/internal/services/ingest/extract"
	"impfmon/internal/services/ingest/guardrails"
	"impfmon/internal/services/ingest/history"
	"impfmon/internal/services/ingest/registry"
	"impfmon/internal/services/ingest/runstate"
	"impfmon/internal/services/ingest/service"
)

// Ports exported by the ingest module
type Ports struct {
	Runner   domain.RunnerPort
	History  domain.HistoryReader
	State    domain.StateRepo
	Registry *registry.Registry
	// Archive is nil when CORE_INGEST_ARCHIVE is off
	Archive *source.Archive
}

// Overrides replaces wired adapters; pass with modkit.WithPorts
type Overrides struct {
	Fetch domain.Fetcher
	Local domain.LocalReader
}

// Module implements modkit.Module for one dataset
type Module struct {
	name      string
	deps      modkit.Deps
	opts      Options
	dataset   Dataset
	ledger    *history.Repo
	leasePath string
	ports     Ports
}

var _ modkit.Module = (*Module)(nil)

// New constructs and wires the ingest module for dataset using deps.Cfg
func New(deps modkit.Deps, dataset string, options ...modkit.Option) (*Module, error) {
	built := modkit.Build(options...)
	ov, _ := built.Ports.(Overrides)
	opts := FromConfig(deps.Cfg)
	ds, err := Lookup(deps.Cfg, dataset)
	if err != nil {
		return nil, err
	}
	reg, err := registry.Load(opts.RegistryPath)
	if err != nil {
		return nil, err
	}
	x, err := extract.New(ds.Format)
	if err != nil {
		return nil, err
	}

	m := &Module{
		name:      "ingest",
		deps:      deps,
		opts:      opts,
		dataset:   ds,
		ledger:    history.New(opts.DataDir, ds.Name),
		leasePath: guardrails.LeasePath(opts.DataDir, ds.Name),
	}
	if built.Name != "" {
		m.name = built.Name
	}

	var archive *source.Archive
	if opts.Archive {
		archive = source.NewArchive(filepath.Join(opts.DataDir, "archive", ds.Name))
	}
	httpCfg := ds.Source
	httpCfg.Timeout = opts.FetchTimeout

	d := service.Deps{
		Fetch:    source.NewHTTPFetcher(httpCfg, archive),
		Local:    source.FileReader{},
		Extract:  x,
		Registry: reg,
		Ledger:   m.ledger,
		State:    runstate.New(opts.DataDir, ds.Name),
	}
	if ov.Fetch != nil {
		d.Fetch = ov.Fetch
	}
	if ov.Local != nil {
		d.Local = ov.Local
	}
	// a nil *Archive must not become a non-nil interface
	if archive != nil {
		d.Archive = archive
	}
	cfg := service.Config{
		Dataset:    ds.Name,
		Metrics:    ds.Format.MetricNames(),
		Cumulative: ds.Format.Cumulative(),
		Retries:    opts.Retries,
		RetryBase:  opts.RetryBase,
		RetryMax:   opts.RetryMax,
		Timeouts:   opts.Timeouts,
	}
	if opts.Lock {
		cfg.LeasePath = m.leasePath
	}

	m.ports = Ports{
		Runner:   service.New(d, cfg),
		History:  m.ledger,
		State:    d.State,
		Registry: reg,
		Archive:  archive,
	}
	deps.Logger().Debug().
		Str("module", m.name).
		Str("dataset", ds.Name).
		Str("data_dir", opts.DataDir).
		Str("registry", reg.Source()).
		Bool("archive", opts.Archive).
		Bool("lock", opts.Lock).
		Msg("ingest module wired")
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Dataset returns the dataset this module ingests
func (m *Module) Dataset() Dataset { return m.dataset }

// Options returns the resolved configuration
func (m *Module) Options() Options { return m.opts }

// LedgerPath is the CSV file holding the dataset history
func (m *Module) LedgerPath() string { return m.ledger.Path() }

// LeasePath is the lock file guarding ingestion runs
func (m *Module) LeasePath() string { return m.leasePath }

// Register convenience: allow others to resolve our ports via registry
func Register(deps modkit.Deps, dataset string, options ...modkit.Option) (*Module, error) {
	m, err := New(deps, dataset, options...)
	if err != nil {
		return nil, err
	}
	modreg.Register(m.Name(), m.ports)
	return m, nil
}
