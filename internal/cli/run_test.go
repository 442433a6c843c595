package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/youtube"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	goodURL = "https://youtu.be/abc12345678"
	badURL  = "https://example.com"
)

type fakeExtractor struct {
	calls atomic.Int32
}

func (f *fakeExtractor) Extract(_ context.Context, rawURL, _ string) (*youtube.Result, error) {
	f.calls.Add(1)
	if rawURL == badURL {
		return nil, &youtube.Error{Reason: youtube.ReasonInvalidURL, Err: errors.New("no id")}
	}
	r := youtube.Format([]youtube.CaptionUnit{
		{Text: "Hello", Start: 0, Duration: 1},
		{Text: "World", Start: 1, Duration: 1.25},
	})
	return &r, nil
}

type cliRun struct {
	stdout, stderr bytes.Buffer
	cfg            engine.Config
	ex             *fakeExtractor
	err            error
}

func execute(t *testing.T, stdin string, args ...string) *cliRun {
	t.Helper()
	color.NoColor = true
	t.Setenv("TRANSCRIPT_CONFIG", "")
	require.NoError(t, os.Unsetenv("TRANSCRIPT_CONFIG"))

	cr := &cliRun{ex: &fakeExtractor{}}
	root := newRootCmd(func(cfg engine.Config) (extractor, error) {
		cr.cfg = cfg
		return cr.ex, nil
	})
	root.SetOut(&cr.stdout)
	root.SetErr(&cr.stderr)
	root.SetIn(strings.NewReader(stdin))
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	cr.err = root.Execute()
	return cr
}

func TestSingleURLText(t *testing.T) {
	cr := execute(t, "", goodURL)
	require.NoError(t, cr.err)
	assert.Equal(t, "Hello World\n", cr.stdout.String())
	assert.NotContains(t, cr.stderr.String(), "Summary")
}

func TestSingleURLSegments(t *testing.T) {
	cr := execute(t, "", "--segments", goodURL)
	require.NoError(t, cr.err)
	lines := strings.Split(strings.TrimSpace(cr.stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[  0]     0.00s  Hello", lines[0])
	assert.Equal(t, "[  1]     1.00s  World", lines[1])
}

func TestSingleURLFailure(t *testing.T) {
	cr := execute(t, "", badURL)
	require.Error(t, cr.err)
	assert.Empty(t, cr.stdout.String())
	assert.Contains(t, cr.stderr.String(), "could not extract transcript (invalid_url)")
}

func TestBatchSummary(t *testing.T) {
	cr := execute(t, "", "--parallel", "3", goodURL, badURL, goodURL)
	require.Error(t, cr.err)
	assert.Contains(t, cr.err.Error(), "1 of 3 extractions failed")
	assert.Contains(t, cr.stderr.String(), "Summary: 2 successful, 1 failed")
	assert.Equal(t, 2, strings.Count(cr.stdout.String(), "# "+goodURL))
	assert.EqualValues(t, 3, cr.ex.calls.Load())
}

func TestFileInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("# my list\n\n"+goodURL+"\n  "+goodURL+"  \n"), 0o600))

	cr := execute(t, "", "--file", path)
	require.NoError(t, cr.err)
	assert.EqualValues(t, 2, cr.ex.calls.Load())
	assert.Contains(t, cr.stderr.String(), "Summary: 2 successful, 0 failed")
}

func TestStdinInput(t *testing.T) {
	cr := execute(t, goodURL+"\n", "-f", "-")
	require.NoError(t, cr.err)
	assert.Equal(t, "Hello World\n", cr.stdout.String())
}

func TestNoURLs(t *testing.T) {
	cr := execute(t, "")
	require.Error(t, cr.err)
	assert.Contains(t, cr.err.Error(), "no URLs given")
	assert.Zero(t, cr.ex.calls.Load())
}

func TestJSONOutput(t *testing.T) {
	cr := execute(t, "", "--json", goodURL)
	require.NoError(t, cr.err)

	var rec jsonRecord
	require.NoError(t, json.Unmarshal(cr.stdout.Bytes(), &rec))
	assert.True(t, rec.Success)
	assert.Equal(t, "abc12345678", rec.VideoID)
	assert.Equal(t, "Hello World", rec.Text)
	assert.Equal(t, 2, rec.WordCount)
	assert.Len(t, rec.Segments, 2)
}

func TestJSONBatch(t *testing.T) {
	cr := execute(t, "", "--json", goodURL, badURL)
	require.Error(t, cr.err)

	var recs []jsonRecord
	require.NoError(t, json.Unmarshal(cr.stdout.Bytes(), &recs))
	require.Len(t, recs, 2)
	assert.True(t, recs[0].Success)
	assert.False(t, recs[1].Success)
	assert.Equal(t, "invalid_url", recs[1].Error)
}

func TestFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ytt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client_version: \"2.2\"\ntransport:\n  retries: 9\n"), 0o600))

	cr := execute(t, "", "--config", path, "--retries", "1", "--timeout", "2s", goodURL)
	require.NoError(t, cr.err)
	assert.Equal(t, "2.2", cr.cfg.ClientVersion)
	assert.Equal(t, 1, cr.cfg.Transport.Retries)
	assert.Equal(t, 2*time.Second, cr.cfg.Transport.Timeout)
}

func TestReadURLs(t *testing.T) {
	urls, err := readURLs(strings.NewReader("a\n#b\n\n  c  \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, urls)
}
