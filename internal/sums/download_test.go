package sums

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caretsuite/sumsync/internal/common"
	"github.com/caretsuite/sumsync/internal/httpx"
)

type fakeRecents struct {
	specFiles []string
	outDirs   []string
}

func (f *fakeRecents) AddRecentSpecFile(_ context.Context, path string) error {
	f.specFiles = append(f.specFiles, path)
	return nil
}

func (f *fakeRecents) AddRecentOutputDir(_ context.Context, path string) error {
	f.outDirs = append(f.outDirs, path)
	return nil
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// downloadServer serves logon plus a per-path body function.
func downloadServer(t *testing.T, serve func(path string, attempt int) ([]byte, int)) *Session {
	t.Helper()
	attempts := map[string]int{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/sums/logon.do") {
			w.Header().Set("Set-Cookie", "JSESSIONID=DL; Path=/sums")
			w.WriteHeader(http.StatusFound)
			return
		}
		require.Contains(t, r.URL.Path, ";jsessionid=DL")
		key := strings.SplitN(r.URL.Path, ";", 2)[0]
		attempts[key]++
		body, status := serve(key, attempts[key])
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)

	s := NewSession(httpx.New(5), ts.URL, false, nil)
	require.NoError(t, s.LoginVisitor(context.Background()))
	return s
}

func TestDownloadPipeline_PlainFiles(t *testing.T) {
	content := []byte("coordinate payload")
	s := downloadServer(t, func(path string, _ int) ([]byte, int) {
		return content, http.StatusOK
	})

	listing := &Listing{Records: []*Record{
		{FileName: "H.R.coord", Subdir: "surfaces", Size: int64(len(content)),
			URL: "/sums/download.do?archive_id=1", Selected: true},
		{FileName: "skip.me", URL: "/sums/download.do?archive_id=2"},
	}}

	outDir := t.TempDir()
	recents := &fakeRecents{}
	var events []Progress
	p := NewDownloadPipeline(s, 3, recents, func(ev Progress) { events = append(events, ev) }, nil)

	before, err := os.Getwd()
	require.NoError(t, err)

	result, err := p.Run(context.Background(), listing, outDir, "")
	require.NoError(t, err)
	require.Len(t, result.Downloaded, 1)
	assert.Empty(t, result.Failed)

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	got, err := os.ReadFile(filepath.Join(outDir, "surfaces", "H.R.coord"))
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].Index)
	assert.Equal(t, 1, events[0].Total)
	assert.Equal(t, []string{outDir}, recents.outDirs)
}

func TestDownloadPipeline_CommonPrefixAppended(t *testing.T) {
	s := downloadServer(t, func(string, int) ([]byte, int) {
		return []byte("x"), http.StatusOK
	})
	listing := &Listing{Records: []*Record{
		{FileName: "H.R.topo", Size: 1, URL: "/sums/download.do?archive_id=1", Selected: true},
	}}

	outDir := t.TempDir()
	p := NewDownloadPipeline(s, 1, nil, nil, nil)
	_, err := p.Run(context.Background(), listing, outDir, "case01")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(outDir, "case01", "H.R.topo"))
	assert.NoError(t, err)
}

func TestDownloadPipeline_RecordsRecentSpecFile(t *testing.T) {
	s := downloadServer(t, func(string, int) ([]byte, int) {
		return []byte("specbody"), http.StatusOK
	})
	listing := &Listing{Records: []*Record{
		{FileName: "H.R.spec", Size: 8, URL: "/sums/download.do?archive_id=1", Selected: true},
	}}

	outDir := t.TempDir()
	recents := &fakeRecents{}
	p := NewDownloadPipeline(s, 1, recents, nil, nil)
	_, err := p.Run(context.Background(), listing, outDir, "")
	require.NoError(t, err)

	require.Len(t, recents.specFiles, 1)
	assert.Equal(t, filepath.Join(outDir, "H.R.spec"), recents.specFiles[0])
}

func TestDownloadPipeline_GzipSizeMismatchRetries(t *testing.T) {
	full := []byte("the complete volume payload, all of it")
	truncated := full[:10]

	// Succeeds on attempt k; a truncated transfer still decodes as a
	// complete gzip frame, only the expanded size gives it away.
	run := func(t *testing.T, k, maxAttempts int) (*DownloadResult, error) {
		s := downloadServer(t, func(path string, attempt int) ([]byte, int) {
			if attempt < k {
				return gzipBytes(t, truncated), http.StatusOK
			}
			return gzipBytes(t, full), http.StatusOK
		})
		listing := &Listing{Records: []*Record{
			{FileName: "brain.BRIK", Size: int64(len(full)),
				URL: "/sums/download.do?archive_id=9&downloadgzip=yes", Selected: true},
		}}
		p := NewDownloadPipeline(s, maxAttempts, nil, nil, nil)
		return p.Run(context.Background(), listing, t.TempDir(), "")
	}

	t.Run("succeeds when attempts suffice", func(t *testing.T) {
		result, err := run(t, 3, 4)
		require.NoError(t, err)
		require.Len(t, result.Downloaded, 1)
		assert.Empty(t, result.Failed)

		got, err := os.ReadFile(result.Downloaded[0])
		require.NoError(t, err)
		assert.Equal(t, full, got)
		// The intermediate .gz is gone.
		_, err = os.Stat(result.Downloaded[0] + ".gz")
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("fails when attempts run out", func(t *testing.T) {
		result, err := run(t, 4, 2)
		require.NoError(t, err)
		assert.Empty(t, result.Downloaded)
		require.Len(t, result.Failed, 1)
		assert.Contains(t, result.Failed[0].Error(), "size mismatch")
	})
}

func TestDownloadPipeline_ServerErrorRetriesThenFails(t *testing.T) {
	s := downloadServer(t, func(string, int) ([]byte, int) {
		return nil, http.StatusInternalServerError
	})
	listing := &Listing{Records: []*Record{
		{FileName: "x.coord", Size: 1, URL: "/sums/download.do?archive_id=1", Selected: true},
	}}

	p := NewDownloadPipeline(s, 2, nil, nil, nil)
	result, err := p.Run(context.Background(), listing, t.TempDir(), "")
	require.NoError(t, err)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed[0].Error(), "status 500")
}

func TestDownloadPipeline_NothingSelected(t *testing.T) {
	s := downloadServer(t, func(string, int) ([]byte, int) { return nil, http.StatusOK })
	listing := &Listing{Records: []*Record{{FileName: "a"}}}

	p := NewDownloadPipeline(s, 1, nil, nil, nil)
	_, err := p.Run(context.Background(), listing, t.TempDir(), "")
	assert.ErrorIs(t, err, common.ErrNothingSelected)
}

func TestDownloadPipeline_SubdirectoryFailureAbortsRun(t *testing.T) {
	var served int
	s := downloadServer(t, func(string, int) ([]byte, int) {
		served++
		return []byte("x"), http.StatusOK
	})
	listing := &Listing{Records: []*Record{
		{FileName: "a.coord", Subdir: "blocked", Size: 1,
			URL: "/sums/download.do?archive_id=1", Selected: true},
		{FileName: "b.coord", Size: 1,
			URL: "/sums/download.do?archive_id=2", Selected: true},
	}}

	// A plain file where the subdirectory must go makes mkdir fail.
	outDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "blocked"), []byte("in the way"), 0o600))

	p := NewDownloadPipeline(s, 1, nil, nil, nil)
	result, err := p.Run(context.Background(), listing, outDir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create subdirectory")

	// Nothing is fetched or recorded after the failure.
	assert.Equal(t, 0, served)
	assert.Empty(t, result.Downloaded)
	assert.Empty(t, result.Failed)
}

func TestDownloadPipeline_CancelBetweenFiles(t *testing.T) {
	var served int
	s := downloadServer(t, func(string, int) ([]byte, int) {
		served++
		return []byte("x"), http.StatusOK
	})
	listing := &Listing{Records: []*Record{
		{FileName: "a.coord", Size: 1, URL: "/sums/download.do?archive_id=1", Selected: true},
		{FileName: "b.coord", Size: 1, URL: "/sums/download.do?archive_id=2", Selected: true},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	p := NewDownloadPipeline(s, 1, nil, func(Progress) { cancel() }, nil)
	result, err := p.Run(ctx, listing, t.TempDir(), "")
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, result.Downloaded, 1)
	assert.Equal(t, 1, served)
}
