package download_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/andrew-torda/pdbadapt/pdb/download"
)

const entry = "data_5ZCK\n_entry.id 5ZCK\n"

// site serves one test mirror. fail is how many requests get a 503
// before things work. gz says if the reply is compressed.
type site struct {
	srv  *httptest.Server
	hits atomic.Int32
}

func newSite(t *testing.T, status int, fail int32, gz bool) *site {
	s := &site{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := s.hits.Add(1)
		if n <= fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		if !gz {
			io.WriteString(w, entry)
			return
		}
		zw := gzip.NewWriter(w)
		io.WriteString(zw, entry)
		zw.Close()
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *site) mirror() Mirror {
	return Mirror{Name: s.srv.URL, URL: func(code, format string) string {
		return s.srv.URL + "/" + code + "." + format
	}}
}

func opts(sites ...*site) Options {
	var mm []Mirror
	for _, s := range sites {
		mm = append(mm, s.mirror())
	}
	return Options{Mirrors: mm, Delay: time.Millisecond, Logger: log.New(io.Discard)}
}

func TestFetch(t *testing.T) {
	for _, gz := range []bool{false, true} {
		s := newSite(t, http.StatusOK, 0, gz)
		dir := t.TempDir()
		path, err := Fetch(context.Background(), "5ZCK", dir, opts(s))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "5zck.cif"), path)
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, entry, string(b), "gzip %v", gz)
	}
}

func TestSkipIfPresent(t *testing.T) {
	s := newSite(t, http.StatusOK, 0, false)
	dir := t.TempDir()
	o := opts(s)
	_, err := Fetch(context.Background(), "5zck", dir, o)
	require.NoError(t, err)
	_, err = Fetch(context.Background(), "5zck", dir, o)
	require.NoError(t, err)
	assert.Equal(t, int32(1), s.hits.Load())

	o.Force = true
	_, err = Fetch(context.Background(), "5zck", dir, o)
	require.NoError(t, err)
	assert.Equal(t, int32(2), s.hits.Load())
}

func TestNextMirror(t *testing.T) {
	missing := newSite(t, http.StatusNotFound, 0, false)
	good := newSite(t, http.StatusOK, 0, true)
	path, err := Fetch(context.Background(), "1abc", t.TempDir(), opts(missing, good))
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, int32(1), missing.hits.Load(), "404 should not be retried")

	o := opts(missing, good)
	o.Site = 1
	_, err = Fetch(context.Background(), "1abc", t.TempDir(), o)
	require.NoError(t, err)
	assert.Equal(t, int32(1), missing.hits.Load(), "should start at the second site")
}

func TestRetry(t *testing.T) {
	flaky := newSite(t, http.StatusOK, 2, false)
	_, err := Fetch(context.Background(), "1abc", t.TempDir(), opts(flaky))
	require.NoError(t, err)
	assert.Equal(t, int32(3), flaky.hits.Load())

	dead := newSite(t, http.StatusOK, 100, false)
	o := opts(dead)
	o.Attempts = 2
	_, err = Fetch(context.Background(), "1abc", t.TempDir(), o)
	assert.Error(t, err)
	assert.Equal(t, int32(2), dead.hits.Load())
}

func TestFetchErrors(t *testing.T) {
	missing := newSite(t, http.StatusNotFound, 0, false)
	dir := t.TempDir()
	_, err := Fetch(context.Background(), "1abc", dir, opts(missing, missing))
	assert.ErrorIs(t, err, ErrNotFound)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "no partial files")

	_, err = Fetch(context.Background(), "1abcd", dir, opts(missing))
	assert.ErrorIs(t, err, ErrBadCode)

	o := opts(missing)
	o.Format = "xml"
	_, err = Fetch(context.Background(), "1abc", dir, o)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	good := newSite(t, http.StatusOK, 0, false)
	_, err = Fetch(ctx, "1abc", dir, opts(good))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPdbFormat(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.URL.Path)
		io.Copy(w, bytes.NewReader([]byte("END\n")))
	}))
	defer srv.Close()
	o := Options{Format: "PDB", Logger: log.New(io.Discard), Mirrors: []Mirror{{
		Name: "test", URL: func(code, format string) string { return srv.URL + "/" + code + "." + format },
	}}}
	path, err := Fetch(context.Background(), "2XYZ", t.TempDir(), o)
	require.NoError(t, err)
	assert.Equal(t, "2xyz.pdb", filepath.Base(path))
	assert.Equal(t, "/2xyz.pdb", got.Load())
}

func TestMirrorURLs(t *testing.T) {
	for _, m := range Mirrors {
		for _, f := range []string{"cif", "pdb"} {
			u := m.URL("5pti", f)
			assert.Contains(t, u, "5pti", m.Name)
			assert.Contains(t, u, "https://", m.Name)
		}
	}
}
