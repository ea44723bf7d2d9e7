package source

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"impfmon/internal/adapters/tabular"
	"impfmon/internal/core/change"
	"impfmon/internal/platform/atomicfile"
	perr "impfmon/internal/platform/errors"
	ptime "impfmon/internal/platform/time"
	"impfmon/internal/services/ingest/domain"
)

// latestFile names the pointer to the most recently stored revision
const latestFile = "LATEST"

// minPrefix is the shortest token prefix Replay accepts
const minPrefix = 8

// archiveMeta is the sidecar json stored next to each revision
type archiveMeta struct {
	Token        change.Token `json:"token"`
	URL          string       `json:"url"`
	Ext          string       `json:"ext"`
	ETag         string       `json:"etag,omitempty"`
	LastModified string       `json:"last_modified,omitempty"`
	AsOf         ptime.Day    `json:"as_of"`
	Size         int64        `json:"size"`
	FetchedAt    time.Time    `json:"fetched_at"`
}

// Entry describes one archived revision
type Entry struct {
	Token     change.Token
	URL       string
	AsOf      ptime.Day
	Size      int64
	FetchedAt time.Time
	Path      string
}

// Archive keeps every distinct revision of one dataset as <token><ext> plus a
// .meta sidecar, so past revisions can be re-extracted without network access
type Archive struct {
	dir string
}

var _ domain.Archive = (*Archive)(nil)

// NewArchive returns the archive rooted at dir (<data>/archive/<dataset>)
func NewArchive(dir string) *Archive { return &Archive{dir: dir} }

// Dir is the archive directory
func (a *Archive) Dir() string { return a.dir }

// Put stores rev. Bytes already present under the same token are not rewritten
// but the sidecar and the latest pointer are refreshed
func (a *Archive) Put(rev domain.SourceRevision) error {
	if !rev.Token.Valid() {
		return perr.InvalidArgf("archive: revision has no valid token")
	}
	ext := tabular.Extension(rev.Bytes)
	data := filepath.Join(a.dir, string(rev.Token)+ext)
	if _, err := os.Stat(data); errors.Is(err, os.ErrNotExist) {
		if err := atomicfile.WriteBytes(data, 0o644, rev.Bytes); err != nil {
			return err
		}
	}
	m := archiveMeta{
		Token:        rev.Token,
		URL:          rev.URL,
		Ext:          ext,
		ETag:         rev.ETag,
		LastModified: rev.LastModified,
		AsOf:         rev.AsOf,
		Size:         int64(len(rev.Bytes)),
		FetchedAt:    rev.FetchedAt.UTC(),
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodePersistence, "encode archive meta")
	}
	if err := atomicfile.WriteBytes(a.metaPath(rev.Token), 0o644, append(b, '\n')); err != nil {
		return err
	}
	return atomicfile.WriteBytes(filepath.Join(a.dir, latestFile), 0o644, []byte(string(rev.Token)+"\n"))
}

// Replay loads an archived revision by token or unique token prefix
func (a *Archive) Replay(token domain.ChangeToken) (domain.SourceRevision, error) {
	full, err := a.expand(string(token))
	if err != nil {
		return domain.SourceRevision{}, err
	}
	m, err := a.loadMeta(full)
	if err != nil {
		return domain.SourceRevision{}, err
	}
	b, err := os.ReadFile(filepath.Join(a.dir, string(full)+m.Ext))
	if err != nil {
		return domain.SourceRevision{}, perr.Wrapf(err, perr.ErrorCodePersistence, "read archived revision %s", full.Short())
	}
	if got := change.TokenOf(b); got != full {
		return domain.SourceRevision{}, perr.Persistencef("archived revision %s is corrupt (content hashes to %s)", full.Short(), got.Short())
	}
	return domain.SourceRevision{
		URL:          m.URL,
		Bytes:        b,
		Token:        full,
		AsOf:         m.AsOf,
		ETag:         m.ETag,
		LastModified: m.LastModified,
		FetchedAt:    m.FetchedAt,
		Replayed:     true,
	}, nil
}

// Latest returns the most recently stored revision; ok is false for an empty archive
func (a *Archive) Latest() (domain.SourceRevision, bool, error) {
	b, err := os.ReadFile(filepath.Join(a.dir, latestFile))
	if errors.Is(err, os.ErrNotExist) {
		return domain.SourceRevision{}, false, nil
	}
	if err != nil {
		return domain.SourceRevision{}, false, perr.Wrap(err, perr.ErrorCodePersistence, "read archive pointer")
	}
	rev, err := a.Replay(change.Token(strings.TrimSpace(string(b))))
	if err != nil {
		return domain.SourceRevision{}, false, err
	}
	return rev, true, nil
}

// List returns archived revisions, newest first
func (a *Archive) List() ([]Entry, error) {
	metas, err := filepath.Glob(filepath.Join(a.dir, "*.meta"))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodePersistence, "list archive")
	}
	out := make([]Entry, 0, len(metas))
	for _, p := range metas {
		tok := change.Token(strings.TrimSuffix(filepath.Base(p), ".meta"))
		m, err := a.loadMeta(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{
			Token: m.Token, URL: m.URL, AsOf: m.AsOf, Size: m.Size, FetchedAt: m.FetchedAt,
			Path: filepath.Join(a.dir, string(m.Token)+m.Ext),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FetchedAt.After(out[j].FetchedAt) })
	return out, nil
}

func (a *Archive) metaPath(t change.Token) string {
	return filepath.Join(a.dir, string(t)+".meta")
}

func (a *Archive) loadMeta(t change.Token) (archiveMeta, error) {
	b, err := os.ReadFile(a.metaPath(t))
	if errors.Is(err, os.ErrNotExist) {
		return archiveMeta{}, perr.NotFoundf("no archived revision %s", t.Short())
	}
	if err != nil {
		return archiveMeta{}, perr.Wrapf(err, perr.ErrorCodePersistence, "read archive meta %s", t.Short())
	}
	var m archiveMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return archiveMeta{}, perr.Wrapf(err, perr.ErrorCodePersistence, "decode archive meta %s", t.Short())
	}
	return m, nil
}

// expand resolves a token prefix to exactly one archived token
func (a *Archive) expand(prefix string) (change.Token, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if t := change.Token(prefix); t.Valid() {
		return t, nil
	}
	if strings.Trim(prefix, "0123456789abcdef") != "" {
		return "", perr.InvalidArgf("token %q is not hexadecimal", prefix)
	}
	if len(prefix) < minPrefix {
		return "", perr.InvalidArgf("token prefix %q is too short (need %d characters)", prefix, minPrefix)
	}
	metas, _ := filepath.Glob(filepath.Join(a.dir, prefix+"*.meta"))
	switch len(metas) {
	case 0:
		return "", perr.NotFoundf("no archived revision %s", prefix)
	case 1:
		return change.Token(strings.TrimSuffix(filepath.Base(metas[0]), ".meta")), nil
	}
	return "", perr.InvalidArgf("token prefix %s is ambiguous (%d revisions)", prefix, len(metas))
}
