// Package domain holds the types and ports of the ingestion pipeline
package domain

import (
	"impfmon/internal/core/change"
	"impfmon/internal/core/ledger"
	ptime "impfmon/internal/platform/time"
)

// SourceRevision re-exports the fetched snapshot shape used by fetchers and the change gate
type SourceRevision = change.Revision

// ChangeToken re-exports the content fingerprint
type ChangeToken = change.Token

// Record re-exports one normalized observation
type Record = ledger.Record

// Day re-exports the civil date
type Day = ptime.Day

// RegionKind classifies a region
type RegionKind string

const (
	// KindCountry is a whole country, e.g. DE
	KindCountry RegionKind = "country"
	// KindState is a federal state, e.g. DE-BY
	KindState RegionKind = "state"
	// KindCounty is a district or city
	KindCounty RegionKind = "county"
)

// Region is one registry entry. Ignored regions are recognised labels that are
// deliberately not ingested (federal direct deliveries, totals rows)
type Region struct {
	ID         string     `csv:"id" validate:"required,region_id"`
	Name       string     `csv:"name" validate:"required"`
	Kind       RegionKind `csv:"kind" validate:"required,oneof=country state county"`
	Population int64      `csv:"population" validate:"min=0"`
	Aliases    []string   `csv:"aliases"`
	Ignored    bool       `csv:"ignored"`
}

// Metric describes one metric column of a dataset
type Metric struct {
	Name string
	// Cumulative metrics must never decrease per region over time
	Cumulative bool
}

// RunState is the checkpoint of the last successful ingestion
type RunState struct {
	LastToken *ChangeToken
	UpdatedOn Day
}

// Status is the result class of a run
type Status int

const (
	// StatusUnchanged means the source revision was already ingested
	StatusUnchanged Status = iota
	// StatusUpdated means new data was merged and persisted
	StatusUpdated
)

func (s Status) String() string {
	if s == StatusUpdated {
		return "updated"
	}
	return "unchanged"
}

// Outcome is what a run reports back to the command surface
type Outcome struct {
	Status   Status
	Token    ChangeToken
	Records  int
	Skipped  int
	Report   ledger.Report
	DataDate Day
}
