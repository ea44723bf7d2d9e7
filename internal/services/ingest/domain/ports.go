package domain

import (
	"context"

	"impfmon/internal/core/ledger"
)

// RunOptions selects how a single ingestion run obtains its revision and how it merges
type RunOptions struct {
	// FromFile ingests a local document instead of fetching
	FromFile string
	// Replay re-extracts an archived revision by token without network access
	Replay ChangeToken
	// Force bypasses the change gate; the merge keeps the run idempotent
	Force bool
	// AcceptCorrections lets conflicting values overwrite stored ones (logged)
	AcceptCorrections bool
}

// RunnerPort is the public port of the ingest module
type RunnerPort interface {
	Run(ctx context.Context, opts RunOptions) (Outcome, error)
}

// Fetcher obtains the current revision of the dataset
type Fetcher interface {
	Fetch(ctx context.Context) (SourceRevision, error)
}

// LocalReader loads a revision from a local file
type LocalReader interface {
	ReadFile(ctx context.Context, path string) (SourceRevision, error)
}

// Archive keeps fetched revisions keyed by token
type Archive interface {
	Put(rev SourceRevision) error
	Replay(token ChangeToken) (SourceRevision, error)
}

// Registry resolves publisher labels to canonical regions. Read-only after load
type Registry interface {
	Resolve(label string) (Region, bool)
	Lookup(id string) (Region, bool)
	Suggest(label string) string
	Regions() []Region
}

// Extractor turns a revision into records. It stops between rows once ctx is done
type Extractor interface {
	Extract(ctx context.Context, rev SourceRevision, reg Registry) (Extraction, error)
}

// Extraction is the result of extracting one revision
type Extraction struct {
	Records []Record
	// Skipped counts rows of ignored regions
	Skipped int
	// DataDate is the latest observation date in Records
	DataDate Day
}

// LedgerRepo persists the history ledger
type LedgerRepo interface {
	Load(ctx context.Context) (*ledger.Ledger, error)
	Save(ctx context.Context, l *ledger.Ledger) error
}

// StateRepo persists the run checkpoint
type StateRepo interface {
	Load(ctx context.Context) (RunState, error)
	Save(ctx context.Context, st RunState) error
}

// HistoryReader is the read side the renderer and listings use
type HistoryReader interface {
	Load(ctx context.Context) (*ledger.Ledger, error)
}
