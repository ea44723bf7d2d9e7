package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"impfmon/internal/core/change"
	perr "impfmon/internal/platform/errors"
	kit "impfmon/internal/platform/testkit"
	ptime "impfmon/internal/platform/time"
)

const tsv = "code\tvaccinationsTotal\nDE-BW\t100\n"

func TestFetchPlain(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Header().Set("Last-Modified", "Tue, 01 Jun 2021 08:00:00 GMT")
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(tsv))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPConfig{URL: srv.URL + "/states.tsv"}, nil)
	rev, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if rev.Token != change.TokenOf([]byte(tsv)) || rev.ETag != `"v1"` {
		t.Fatalf("rev = %+v", rev)
	}
	if rev.AsOf != ptime.MustDay("2021-06-01") {
		t.Fatalf("AsOf = %s", rev.AsOf)
	}
	kit.MustContain(t, ua, "impfmon/")
}

func TestFetchFollowsPageLink(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Daten/Impfquoten-Tab.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<a href="/other.pdf">PDF</a>
			<a href="/Daten/Impfquotenmonitoring.xlsx?__blob=publicationFile">Download</a>
		</body></html>`))
	})
	mux.HandleFunc("/Daten/Impfquotenmonitoring.xlsx", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("workbook bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewHTTPFetcher(HTTPConfig{PageURL: srv.URL + "/Daten/Impfquoten-Tab.html", LinkPattern: "Impfquotenmonitoring.xlsx"}, nil)
	rev, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.HasSuffix(rev.URL, "/Daten/Impfquotenmonitoring.xlsx?__blob=publicationFile") || string(rev.Bytes) != "workbook bytes" {
		t.Fatalf("rev = %s %q", rev.URL, rev.Bytes)
	}

	missing := NewHTTPFetcher(HTTPConfig{PageURL: srv.URL + "/Daten/Impfquoten-Tab.html", LinkPattern: "nope.xlsx"}, nil)
	_, err = missing.Fetch(context.Background())
	kit.MustCode(t, err, perr.ErrorCodeExtraction)
}

func TestConditionalFetchServesArchive(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(tsv))
	}))
	defer srv.Close()

	arch := NewArchive(t.TempDir())
	f := NewHTTPFetcher(HTTPConfig{URL: srv.URL}, arch)
	first, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if err := arch.Put(first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	second, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if hits != 2 || second.Token != first.Token || string(second.Bytes) != tsv || second.Replayed {
		t.Fatalf("hits=%d second=%+v", hits, second)
	}
}

func TestFetchStatusClassification(t *testing.T) {
	cases := []struct {
		status    int
		code      perr.ErrorCode
		retryable bool
	}{
		{http.StatusTooManyRequests, perr.ErrorCodeTooManyRequests, true},
		{http.StatusBadGateway, perr.ErrorCodeUnavailable, true},
		{http.StatusNotFound, perr.ErrorCodeUnavailable, false},
	}
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
		}))
		_, err := NewHTTPFetcher(HTTPConfig{URL: srv.URL}, nil).Fetch(context.Background())
		srv.Close()
		kit.MustCode(t, err, c.code)
		if perr.Retryable(err) != c.retryable {
			t.Fatalf("status %d: Retryable = %v", c.status, perr.Retryable(err))
		}
	}
}

func TestFetchEmptyBodyAndTimeout(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("  \n"))
	}))
	defer empty.Close()
	_, err := NewHTTPFetcher(HTTPConfig{URL: empty.URL}, nil).Fetch(context.Background())
	kit.MustCode(t, err, perr.ErrorCodeUnavailable)

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(tsv))
	}))
	defer slow.Close()
	_, err = NewHTTPFetcher(HTTPConfig{URL: slow.URL, Timeout: 20 * time.Millisecond}, nil).Fetch(context.Background())
	if !perr.Retryable(err) {
		t.Fatalf("timeout should be retryable, got %v (%v)", err, perr.CodeOf(err))
	}
}

func TestArchiveReplayAndList(t *testing.T) {
	arch := NewArchive(filepath.Join(t.TempDir(), "archive", "dashboard-states"))
	if _, ok, err := arch.Latest(); ok || err != nil {
		t.Fatalf("empty Latest = %v, %v", ok, err)
	}

	r1 := change.NewRevision("https://example.org/a.tsv", []byte(tsv), time.Date(2021, 6, 1, 8, 0, 0, 0, time.UTC))
	r1.AsOf = ptime.MustDay("2021-05-31")
	r2 := change.NewRevision("https://example.org/a.tsv", []byte(tsv+"DE-BY\t5\n"), time.Date(2021, 6, 2, 8, 0, 0, 0, time.UTC))
	for _, r := range []change.Revision{r1, r2} {
		if err := arch.Put(r); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	got, err := arch.Replay(r1.Token)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !got.Replayed || got.AsOf != r1.AsOf || string(got.Bytes) != tsv {
		t.Fatalf("Replay = %+v", got)
	}

	byPrefix, err := arch.Replay(change.Token(r2.Token[:10]))
	if err != nil || byPrefix.Token != r2.Token {
		t.Fatalf("Replay(prefix) = %v, %v", byPrefix.Token, err)
	}
	_, err = arch.Replay("abc")
	kit.MustCode(t, err, perr.ErrorCodeInvalidArgument)
	_, err = arch.Replay(change.TokenOf([]byte("never stored")))
	kit.MustCode(t, err, perr.ErrorCodeNotFound)

	latest, ok, err := arch.Latest()
	if err != nil || !ok || latest.Token != r2.Token {
		t.Fatalf("Latest = %v %v %v", latest.Token, ok, err)
	}
	list, err := arch.List()
	if err != nil || len(list) != 2 || list[0].Token != r2.Token {
		t.Fatalf("List = %+v, %v", list, err)
	}
	if _, err := os.Stat(list[1].Path); err != nil || !strings.HasPrefix(filepath.Base(list[1].Path), string(r1.Token)) {
		t.Fatalf("archived file %s: %v", list[1].Path, err)
	}
}

func TestArchiveDetectsCorruption(t *testing.T) {
	arch := NewArchive(t.TempDir())
	r := change.NewRevision("u", []byte(tsv), time.Now())
	if err := arch.Put(r); err != nil {
		t.Fatalf("Put: %v", err)
	}
	list, err := arch.List()
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %+v, %v", list, err)
	}
	if err := os.WriteFile(list[0].Path, []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = arch.Replay(r.Token)
	kit.MustCode(t, err, perr.ErrorCodePersistence)
}

func TestFileReader(t *testing.T) {
	dir := t.TempDir()
	p := kit.WriteFile(t, dir, "states.tsv", tsv)
	mod := time.Date(2021, 3, 23, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(p, mod, mod); err != nil {
		t.Fatal(err)
	}
	rev, err := FileReader{}.ReadFile(context.Background(), p)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if rev.AsOf != ptime.MustDay("2021-03-23") || !strings.HasPrefix(rev.URL, "file://") {
		t.Fatalf("rev = %+v", rev)
	}

	_, err = FileReader{}.ReadFile(context.Background(), filepath.Join(dir, "missing.tsv"))
	kit.MustCode(t, err, perr.ErrorCodeNotFound)
	empty := kit.WriteFile(t, dir, "empty.tsv", "\n")
	_, err = FileReader{}.ReadFile(context.Background(), empty)
	kit.MustCode(t, err, perr.ErrorCodeExtraction)
}
