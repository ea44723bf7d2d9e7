package module

import (
	"time"

	"impfmon/internal/platform/config"
	"impfmon/internal/services/ingest/guardrails"
)

// Options for the ingest module
type Options struct {
	DataDir      string
	RegistryPath string
	FetchTimeout time.Duration
	Retries      int
	RetryBase    time.Duration
	RetryMax     time.Duration
	Archive      bool
	Lock         bool
	Timeouts     guardrails.Timeouts
}

// FromConfig fills options from environment
// CORE_INGEST_DATA_DIR (default "data") holds ledger/, state/ and archive/
// CORE_INGEST_REGISTRY (default embedded German states) is a region CSV replacing the default
// CORE_INGEST_FETCH_TIMEOUT (default 60s) caps one HTTP request
// CORE_INGEST_RETRIES (default 3) is the number of fetch retries after the first attempt
// CORE_INGEST_RETRY_BASE (default 2s) is the first backoff interval, doubled per attempt up to CORE_INGEST_RETRY_MAX
// CORE_INGEST_ARCHIVE (default true) keeps every fetched revision for replay
// CORE_INGEST_LOCK (default true) serialises runs on one dataset with a lock file
// CORE_INGEST_RUN_TIMEOUT, _FETCH_BUDGET, _EXTRACT_TIMEOUT, _PERSIST_TIMEOUT bound the phases (0 = none)
func FromConfig(cfg config.Conf) Options {
	n := cfg.Prefix("CORE_INGEST_")
	return Options{
		DataDir:      n.MayPath("DATA_DIR", "data"),
		RegistryPath: n.MayPath("REGISTRY", ""),
		FetchTimeout: n.MayDuration("FETCH_TIMEOUT", 60*time.Second),
		Retries:      max(n.MayInt("RETRIES", 3), 0),
		RetryBase:    n.MayDuration("RETRY_BASE", 2*time.Second),
		RetryMax:     n.MayDuration("RETRY_MAX", time.Minute),
		Archive:      n.MayBool("ARCHIVE", true),
		Lock:         n.MayBool("LOCK", true),
		Timeouts: guardrails.Timeouts{
			Run:     n.MayDuration("RUN_TIMEOUT", 10*time.Minute),
			Fetch:   n.MayDuration("FETCH_BUDGET", 5*time.Minute),
			Extract: n.MayDuration("EXTRACT_TIMEOUT", time.Minute),
			Persist: n.MayDuration("PERSIST_TIMEOUT", 30*time.Second),
		},
	}
}
