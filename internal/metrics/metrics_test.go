package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/creditclean/internal/core"
)

func TestObserveRun_Success(t *testing.T) {
	r := New()
	r.ObserveRun(&core.Report{
		RowsLoaded:        10,
		DroppedMissing:    2,
		DroppedDuplicates: 1,
		RowsOut:           7,
		Blanked:           map[string]int{"fecha_de_beneficio": 3},
		Duration:          20 * time.Millisecond,
	}, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("success", "")))
	assert.Equal(t, 10.0, testutil.ToFloat64(r.rows.WithLabelValues("loaded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.rows.WithLabelValues("dropped_missing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rows.WithLabelValues("dropped_duplicates")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.rows.WithLabelValues("out")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.blanked.WithLabelValues("fecha_de_beneficio")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.runDuration))
}

func TestObserveRun_Failure(t *testing.T) {
	r := New()
	r.ObserveRun(nil, fmt.Errorf("clean: %w", core.ErrMissingColumn))
	r.ObserveRun(nil, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("failure", "COL001")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("failure", "GEN001")))
	assert.Equal(t, 0, testutil.CollectAndCount(r.rows))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveRun(&core.Report{}, nil)
		r.ObserveHTTP("GET", "/api/health", 200, time.Millisecond)
		r.RegisterLimiter(core.NewRunLimiter(1, time.Second))
	})
	assert.Nil(t, r.Registry())
}

func TestHandler(t *testing.T) {
	r := New()
	r.RegisterLimiter(core.NewRunLimiter(3, time.Second))
	r.ObserveHTTP(http.MethodPost, "/api/clean", http.StatusOK, 15*time.Millisecond)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `creditclean_http_requests_total{method="POST",route="/api/clean",status="200"} 1`)
	assert.Contains(t, string(body), "creditclean_runs_max_concurrent 3")
	assert.Contains(t, string(body), "go_goroutines")
}
