// Package service runs one ingestion: fetch, change gate, extract, merge, persist
package service

import (
	"context"
	"errors"
	"time"

	"impfmon/internal/core/change"
	"impfmon/internal/core/ledger"
	perr "impfmon/internal/platform/errors"
	"impfmon/internal/platform/logger"
	ptime "impfmon/internal/platform/time"
	"impfmon/internal/services/ingest/domain"
	"impfmon/internal/services/ingest/guardrails"

	"github.com/cenkalti/backoff/v4"
)

// Config holds the per-dataset knobs of the pipeline
type Config struct {
	Dataset string

	// Metrics is the preferred column order for new ledger columns
	Metrics []string
	// Cumulative metrics are checked for monotonicity after every merge
	Cumulative []string

	// Fetch retry: attempts after the first; only transport errors are retried
	Retries   int
	RetryBase time.Duration
	RetryMax  time.Duration

	Timeouts guardrails.Timeouts

	// LeasePath serialises runs on one dataset; empty disables the lease
	LeasePath string
}

// Deps are the adapters the pipeline drives. Archive and Local are optional
type Deps struct {
	Fetch    domain.Fetcher
	Local    domain.LocalReader
	Archive  domain.Archive
	Extract  domain.Extractor
	Registry domain.Registry
	Ledger   domain.LedgerRepo
	State    domain.StateRepo
}

// Service implements domain.RunnerPort
type Service struct {
	deps Deps
	cfg  Config
}

var _ domain.RunnerPort = (*Service)(nil)

// New constructs the pipeline
func New(deps Deps, cfg Config) *Service {
	if deps.Extract == nil || deps.Registry == nil || deps.Ledger == nil || deps.State == nil {
		panic("ingest.Service requires extractor, registry, ledger and state")
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 30 * time.Second
	}
	return &Service{deps: deps, cfg: cfg}
}

// Run performs one ingestion. Unchanged sources return StatusUnchanged and a nil
// error. Any failure leaves the ledger and run state as they were
func (s *Service) Run(ctx context.Context, opts domain.RunOptions) (out domain.Outcome, err error) {
	ctx, cancel := guardrails.WithRun(ctx, s.cfg.Timeouts)
	defer cancel()

	if s.cfg.LeasePath == "" {
		return s.run(ctx, opts)
	}
	err = guardrails.WithLease(ctx, s.cfg.LeasePath, func(ctx context.Context) error {
		var rerr error
		out, rerr = s.run(ctx, opts)
		return rerr
	})
	return out, err
}

func (s *Service) run(ctx context.Context, opts domain.RunOptions) (domain.Outcome, error) {
	log := logger.C(ctx)
	start := time.Now()

	st, err := s.deps.State.Load(ctx)
	if err != nil {
		return domain.Outcome{}, err
	}

	t0 := time.Now()
	rev, err := s.obtain(ctx, opts)
	if err != nil {
		return domain.Outcome{}, err
	}
	log.Info().
		Str("token", rev.Token.Short()).
		Str("url", rev.URL).
		Int("bytes", len(rev.Bytes)).
		Bool("replayed", rev.Replayed).
		Int64("fetch_ms", time.Since(t0).Milliseconds()).
		Msg("revision obtained")

	if !opts.Force && !change.ShouldProcess(rev, st.LastToken) {
		log.Info().Str("token", rev.Token.Short()).Str("last_run", st.UpdatedOn.String()).Msg("source unchanged; nothing to do")
		return domain.Outcome{Status: domain.StatusUnchanged, Token: rev.Token}, nil
	}

	t1 := time.Now()
	exCtx, exCancel := guardrails.ForExtract(ctx, s.cfg.Timeouts)
	ext, err := s.deps.Extract.Extract(exCtx, rev, s.deps.Registry)
	exCancel()
	if err != nil {
		log.Error().Err(err).Str("token", rev.Token.Short()).Msg("extraction failed; ledger untouched")
		return domain.Outcome{}, err
	}
	log.Info().
		Int("records", len(ext.Records)).
		Int("skipped", ext.Skipped).
		Str("data_date", ext.DataDate.String()).
		Int64("extract_ms", time.Since(t1).Milliseconds()).
		Msg("extracted")

	t2 := time.Now()
	existing, err := s.deps.Ledger.Load(ctx)
	if err != nil {
		return domain.Outcome{}, err
	}
	merged, rep, err := ledger.Merge(existing, ext.Records, ledger.MergeOptions{
		Metrics:           s.cfg.Metrics,
		AcceptCorrections: opts.AcceptCorrections,
	})
	if err != nil {
		var me *ledger.MergeError
		if errors.As(err, &me) {
			for _, c := range me.Conflicts {
				log.Error().
					Str("date", c.Date.String()).
					Str("region", c.Region).
					Str("metric", c.Metric).
					Str("stored", ledger.FormatValue(c.Old)).
					Str("incoming", ledger.FormatValue(c.New)).
					Msg("merge conflict")
			}
		}
		return domain.Outcome{}, err
	}
	for _, c := range rep.Corrections {
		log.Warn().
			Str("date", c.Date.String()).
			Str("region", c.Region).
			Str("metric", c.Metric).
			Str("stored", ledger.FormatValue(c.Old)).
			Str("incoming", ledger.FormatValue(c.New)).
			Msg("correction accepted by operator override")
	}
	if v := ledger.CheckMonotonic(merged, s.cfg.Cumulative, rep.Touched); len(v) > 0 {
		for _, x := range v {
			log.Error().Str("violation", x.String()).Msg("cumulative metric decreased")
		}
		return domain.Outcome{}, &ledger.MonotonicError{Violations: v}
	}
	if gone := existing.Absent(ext.Records); len(gone) > 0 {
		log.Warn().Strs("regions", gone).Msg("regions missing from source; history retained")
	}
	log.Info().
		Int("inserted", rep.Inserted).
		Int("enriched", rep.Enriched).
		Int("unchanged", rep.Unchanged).
		Int("corrections", len(rep.Corrections)).
		Strs("new_metrics", rep.NewMetrics).
		Int64("merge_ms", time.Since(t2).Milliseconds()).
		Msg("merged")

	t3 := time.Now()
	pCtx, pCancel := guardrails.ForPersist(ctx, s.cfg.Timeouts)
	defer pCancel()
	if rep.Changed() {
		if err := s.deps.Ledger.Save(pCtx, merged); err != nil {
			return domain.Outcome{}, err
		}
	}
	tok := rev.Token
	if err := s.deps.State.Save(pCtx, domain.RunState{LastToken: &tok, UpdatedOn: ptime.Today()}); err != nil {
		return domain.Outcome{}, err
	}

	status := domain.StatusUnchanged
	if rep.Changed() {
		status = domain.StatusUpdated
	}
	log.Info().
		Str("status", status.String()).
		Int("rows", merged.Len()).
		Int64("persist_ms", time.Since(t3).Milliseconds()).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("ingest finished")

	return domain.Outcome{
		Status:   status,
		Token:    rev.Token,
		Records:  len(ext.Records),
		Skipped:  ext.Skipped,
		Report:   rep,
		DataDate: ext.DataDate,
	}, nil
}

// obtain picks the revision source: an archived token, a local file, or the publisher
func (s *Service) obtain(ctx context.Context, opts domain.RunOptions) (domain.SourceRevision, error) {
	switch {
	case opts.Replay != "":
		if s.deps.Archive == nil {
			return domain.SourceRevision{}, perr.InvalidArgf("replay needs the archive (CORE_INGEST_ARCHIVE)")
		}
		return s.deps.Archive.Replay(opts.Replay)
	case opts.FromFile != "":
		if s.deps.Local == nil {
			return domain.SourceRevision{}, perr.InvalidArgf("no local reader configured")
		}
		rev, err := s.deps.Local.ReadFile(ctx, opts.FromFile)
		if err != nil {
			return domain.SourceRevision{}, err
		}
		s.archive(ctx, rev)
		return rev, nil
	}
	if s.deps.Fetch == nil {
		return domain.SourceRevision{}, perr.InvalidArgf("dataset %s has no fetcher", s.cfg.Dataset)
	}
	rev, err := s.fetchWithRetry(ctx)
	if err != nil {
		return domain.SourceRevision{}, err
	}
	s.archive(ctx, rev)
	return rev, nil
}

// archive keeps a copy of rev; failure is logged, the run continues
func (s *Service) archive(ctx context.Context, rev domain.SourceRevision) {
	if s.deps.Archive == nil {
		return
	}
	if err := s.deps.Archive.Put(rev); err != nil {
		logger.C(ctx).Warn().Err(err).Str("token", rev.Token.Short()).Msg("archive put failed")
	}
}

// fetchWithRetry retries transport failures with exponential backoff, bounded by
// Retries and by the fetch budget
func (s *Service) fetchWithRetry(ctx context.Context) (domain.SourceRevision, error) {
	fctx, cancel := guardrails.ForFetch(ctx, s.cfg.Timeouts)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryBase
	b.MaxInterval = s.cfg.RetryMax
	b.MaxElapsedTime = 0
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	var rev domain.SourceRevision
	operation := func() error {
		r, err := s.deps.Fetch.Fetch(fctx)
		if err != nil {
			if !perr.Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		rev = r
		return nil
	}
	attempt := 0
	notify := func(err error, next time.Duration) {
		attempt++
		logger.C(ctx).Warn().Err(err).Int("attempt", attempt).Dur("next_retry_in", next).Msg("fetch failed, retrying")
	}

	retries := uint64(max(s.cfg.Retries, 0))
	if err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(b, retries), fctx), notify); err != nil {
		return domain.SourceRevision{}, perr.Transport(err, "fetch "+s.cfg.Dataset)
	}
	return rev, nil
}
