package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxakollen/taxa-cli/internal/config"
	"github.com/taxakollen/taxa-cli/internal/pipeline"
	"github.com/taxakollen/taxa-cli/internal/reference"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	c, err := config.Load()
	require.NoError(t, err)
	cfg = c

	p := pipeline.New(cfg.Pipeline, reference.Default())
	return newRouter(p)
}

func TestRouter_HealthEndpoint(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_IngestAndStats(t *testing.T) {
	r := newTestRouter(t)

	payload := `{"municipality":"Stockholm","fee_name":"Bygglov nybyggnad enbostadshus","amount_raw":"24 500 kr","source_url":"https://stockholm.se/taxor","extraction_method":"pdf","extraction_confidence":0.9}`

	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["cluster_id"])
	assert.Equal(t, false, resp["duplicate"])

	// identical record again lands in the same cluster
	req = httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(payload))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var dup map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dup))
	assert.Equal(t, true, dup["duplicate"])
	assert.Equal(t, resp["cluster_id"], dup["cluster_id"])

	statsReq := httptest.NewRequest(http.MethodGet, "/stats", nil)
	statsRR := httptest.NewRecorder()
	r.ServeHTTP(statsRR, statsReq)

	assert.Equal(t, http.StatusOK, statsRR.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(statsRR.Body.Bytes(), &stats))
	assert.EqualValues(t, 2, stats["total_processed"])
}

func TestRouter_Ingest_BadBody(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader("{{"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestShutdownServer_DrainsInflightRequests(t *testing.T) {
	started := make(chan struct{})
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}),
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln) //nolint:errcheck

	type result struct {
		code int
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			done <- result{err: err}
			return
		}
		resp.Body.Close()
		done <- result{code: resp.StatusCode}
	}()

	<-started
	require.NoError(t, shutdownServer(srv, 5*time.Second))

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, http.StatusOK, got.code)
}
