package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watchHTML = `<!DOCTYPE html><html><head><script>
ytcfg.set({"INNERTUBE_API_KEY":"AIzaSyTest1234567890","INNERTUBE_CLIENT_NAME":"WEB"});
</script></head><body><script>
var ytInitialData = {"engagementPanels":[{"engagementPanelSectionListRenderer":{"content":{"continuationItemRenderer":{"continuationEndpoint":{"getTranscriptEndpoint":{"params":"CgthYmMxMjM0NTY3OBIOQ2dBU0FtVnVHZ0El"}}}}}}]};
</script></body></html>`

// upstream fakes the watch page and /get_transcript.
type upstream struct {
	t          *testing.T
	watchHTML  string
	watchCode  int
	apiCode    int
	apiBody    []byte
	watchHits  atomic.Int32
	apiHits    atomic.Int32
	lastAPIKey atomic.Value
	lastParams atomic.Value
}

func (u *upstream) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		u.watchHits.Add(1)
		if u.watchCode != 0 {
			w.WriteHeader(u.watchCode)
			return
		}
		_, _ = w.Write([]byte(u.watchHTML))
	})
	mux.HandleFunc("/youtubei/v1/get_transcript", func(w http.ResponseWriter, r *http.Request) {
		u.apiHits.Add(1)
		u.lastAPIKey.Store(r.URL.Query().Get("key"))

		var req getTranscriptReq
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			u.lastParams.Store(req.Params)
			assert.Equal(u.t, "WEB", req.Context.Client.ClientName)
		}
		assert.Equal(u.t, http.MethodPost, r.Method)
		assert.Equal(u.t, "https://www.youtube.com", r.Header.Get("Origin"))

		if u.apiCode != 0 {
			w.WriteHeader(u.apiCode)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(u.apiBody)
	})
	return mux
}

func newTestExtractor(t *testing.T, u *upstream) *Extractor {
	t.Helper()
	u.t = t
	srv := httptest.NewServer(u.handler())
	t.Cleanup(srv.Close)

	cfg := engine.DefaultConfig()
	cfg.WatchURL = srv.URL + "/watch"
	cfg.TranscriptAPIURL = srv.URL + "/youtubei/v1/get_transcript"
	cfg.Transport.BackoffFactor = time.Millisecond
	cfg.Transport.Timeout = 2 * time.Second

	ex, err := NewExtractor(cfg)
	require.NoError(t, err)
	return ex
}

func TestExtractEndToEnd(t *testing.T) {
	u := &upstream{
		watchHTML: watchHTML,
		apiBody: transcriptBody(t,
			segment("Hello", "0", "1200"),
			map[string]any{"transcriptSectionHeaderRenderer": map[string]any{}},
			segment("  ", "1200", "1500"),
			segment("world", "1500", nil),
			segment("broken", nil, nil),
		),
	}
	ex := newTestExtractor(t, u)

	res, err := ex.Extract(context.Background(), "https://www.youtube.com/watch?v=abc12345678", "en")
	require.NoError(t, err)

	assert.Equal(t, "Hello world", res.Text)
	require.Len(t, res.Segments, 2)
	assert.Equal(t, Segment{ID: 0, Text: "Hello", Start: 0, Duration: 1.2}, res.Segments[0])
	assert.Equal(t, Segment{ID: 1, Text: "world", Start: 1.5, Duration: 1}, res.Segments[1])
	assert.Nil(t, res.Language)

	assert.Equal(t, "AIzaSyTest1234567890", u.lastAPIKey.Load())
	assert.Equal(t, "CgthYmMxMjM0NTY3OBIOQ2dBU0FtVnVHZ0El", u.lastParams.Load())
	assert.EqualValues(t, 1, u.watchHits.Load())
	assert.EqualValues(t, 1, u.apiHits.Load())
}

func TestExtractRateLimitedIsAbsence(t *testing.T) {
	u := &upstream{watchHTML: watchHTML, apiCode: http.StatusTooManyRequests}
	ex := newTestExtractor(t, u)

	res, err := ex.Extract(context.Background(), "https://youtu.be/abc12345678", "")
	assert.Nil(t, res)
	assert.Equal(t, ReasonRateLimited, ReasonOf(err))
	assert.ErrorIs(t, err, engine.ErrRateLimited)
	assert.EqualValues(t, 4, u.apiHits.Load(), "initial attempt plus 3 retries")

	_, ok := ex.ExtractTranscript(context.Background(), "https://youtu.be/abc12345678", "")
	assert.False(t, ok)
}

func TestExtractFailureReasons(t *testing.T) {
	tests := []struct {
		name     string
		upstream *upstream
		want     Reason
	}{
		{"no transcript endpoint", &upstream{watchHTML: `{"INNERTUBE_API_KEY":"k"}`}, ReasonNoTranscript},
		{"no api key", &upstream{watchHTML: `{"getTranscriptEndpoint":{"params":"p"}}`}, ReasonNoAPIKey},
		{"watch page not found", &upstream{watchCode: http.StatusNotFound}, ReasonPageFetch},
		{"api forbidden", &upstream{watchHTML: watchHTML, apiCode: http.StatusForbidden}, ReasonUpstreamStatus},
		{"api server error", &upstream{watchHTML: watchHTML, apiCode: http.StatusServiceUnavailable}, ReasonUpstreamStatus},
		{"api shape changed", &upstream{watchHTML: watchHTML, apiBody: []byte(`{"actions":[]}`)}, ReasonShapeMismatch},
		{"no parseable segments", &upstream{watchHTML: watchHTML, apiBody: transcriptBody(t, segment("x", nil, nil))}, ReasonNoCaptions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := newTestExtractor(t, tt.upstream)
			res, err := ex.Extract(context.Background(), "https://www.youtube.com/watch?v=abc12345678", "")
			assert.Nil(t, res)
			assert.Equal(t, tt.want, ReasonOf(err))
		})
	}
}

func TestExtractInvalidURLMakesNoRequest(t *testing.T) {
	for _, url := range []string{"", "https://example.com"} {
		u := &upstream{watchHTML: watchHTML}
		ex := newTestExtractor(t, u)

		res, err := ex.Extract(context.Background(), url, "")
		assert.Nil(t, res)
		assert.Equal(t, ReasonInvalidURL, ReasonOf(err))
		assert.Zero(t, u.watchHits.Load())
		assert.Zero(t, u.apiHits.Load())
	}
}

func TestExtractConcurrent(t *testing.T) {
	u := &upstream{watchHTML: watchHTML, apiBody: transcriptBody(t, segment("hi", "0", "500"))}
	ex := newTestExtractor(t, u)

	const n = 8
	errs := make(chan error, n)
	for range n {
		go func() {
			_, err := ex.Extract(context.Background(), "https://www.youtube.com/watch?v=abc12345678", "")
			errs <- err
		}()
	}
	for range n {
		assert.NoError(t, <-errs)
	}
	assert.EqualValues(t, n, u.apiHits.Load())
}

// trackingDoer counts connection releases; panicOnDo makes every request panic.
type trackingDoer struct {
	client    *http.Client
	panicOnDo bool
	closes    atomic.Int32
}

func (d *trackingDoer) Do(req *http.Request) (*http.Response, error) {
	if d.panicOnDo {
		panic("doer exploded")
	}
	return d.client.Do(req)
}

func (d *trackingDoer) CloseIdleConnections() {
	d.closes.Add(1)
	d.client.CloseIdleConnections()
}

// useTrackingDoer routes ex through doer and counts transports built.
func useTrackingDoer(ex *Extractor, doer *trackingDoer) *atomic.Int32 {
	var built atomic.Int32
	ex.newTransport = func(cfg engine.TransportConfig) (*engine.Transport, error) {
		built.Add(1)
		return engine.NewTransportWithDoer(cfg, doer), nil
	}
	return &built
}

func TestExtractReleasesTransport(t *testing.T) {
	tests := []struct {
		name     string
		upstream *upstream
		panics   bool
		want     Reason
	}{
		{"success", &upstream{watchHTML: watchHTML, apiBody: transcriptBody(t, segment("hi", "0", "500"))}, false, ""},
		{"scrape miss", &upstream{watchHTML: `{"INNERTUBE_API_KEY":"k"}`}, false, ReasonNoTranscript},
		{"rate limited", &upstream{watchHTML: watchHTML, apiCode: http.StatusTooManyRequests}, false, ReasonRateLimited},
		{"shape mismatch", &upstream{watchHTML: watchHTML, apiBody: []byte(`{"actions":[]}`)}, false, ReasonShapeMismatch},
		{"doer panics", &upstream{watchHTML: watchHTML}, true, ReasonInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := newTestExtractor(t, tt.upstream)
			doer := &trackingDoer{client: &http.Client{}, panicOnDo: tt.panics}
			built := useTrackingDoer(ex, doer)

			res, err := ex.Extract(context.Background(), "https://www.youtube.com/watch?v=abc12345678", "")
			if tt.want == "" {
				require.NoError(t, err)
				assert.NotNil(t, res)
			} else {
				assert.Nil(t, res)
				assert.Equal(t, tt.want, ReasonOf(err))
			}
			assert.EqualValues(t, 1, built.Load())
			assert.EqualValues(t, 1, doer.closes.Load())
		})
	}
}

func TestExtractInvalidURLBuildsNoTransport(t *testing.T) {
	ex := newTestExtractor(t, &upstream{watchHTML: watchHTML})
	doer := &trackingDoer{client: &http.Client{}}
	built := useTrackingDoer(ex, doer)

	_, err := ex.Extract(context.Background(), "https://example.com", "")
	assert.Equal(t, ReasonInvalidURL, ReasonOf(err))
	assert.Zero(t, built.Load())
	assert.Zero(t, doer.closes.Load())
}
