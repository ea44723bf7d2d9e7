// Package change decides whether a fetched source revision is worth processing.
// Revisions are identified by a content fingerprint, never by publisher
// timestamps, which are missing or wrong often enough to be useless as a gate
package change

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	ptime "impfmon/internal/platform/time"
)

// Token is the lowercase hex sha256 of a revision's raw bytes
type Token string

// TokenOf fingerprints raw document bytes
func TokenOf(b []byte) Token {
	sum := sha256.Sum256(b)
	return Token(hex.EncodeToString(sum[:]))
}

// Valid reports whether t has the shape of a sha256 hex digest
func (t Token) Valid() bool {
	if len(t) != sha256.Size*2 {
		return false
	}
	for _, c := range t {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Short is the first 12 characters, for logs and file listings
func (t Token) Short() string {
	if len(t) <= 12 {
		return string(t)
	}
	return string(t[:12])
}

// Revision is one fetched snapshot of a published document
type Revision struct {
	URL   string
	Bytes []byte
	Token Token

	// AsOf is the publisher date of this revision (Last-Modified, else fetch day).
	// Used only when the document carries no date of its own
	AsOf ptime.Day

	ETag         string
	LastModified string
	FetchedAt    time.Time

	// Replayed is set when the bytes came from the local archive
	Replayed bool
}

// NewRevision fingerprints b and stamps the fetch time
func NewRevision(url string, b []byte, fetchedAt time.Time) Revision {
	return Revision{
		URL:       url,
		Bytes:     b,
		Token:     TokenOf(b),
		AsOf:      ptime.DayOf(fetchedAt),
		FetchedAt: fetchedAt.UTC(),
	}
}

// ShouldProcess is false iff current carries exactly the last processed token.
// No last token (first run) always processes
func ShouldProcess(current Revision, last *Token) bool {
	if last == nil {
		return true
	}
	return current.Token != *last
}
