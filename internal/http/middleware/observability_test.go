package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	testlog "service-master-dispatch/internal/testutil"
)

func TestObservability_LabelsByRoutePattern(t *testing.T) {
	t.Parallel()

	const pattern = "/observability-test/jobs/{id}/dispatch"
	rec := testlog.New()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(Observability(rec.Logger()))
	r.Post(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, pattern, "202"))
	beforeCount := histogramCount(t, httpRequestDuration, http.MethodPost, pattern, "202")

	for _, id := range []string{"1", "2"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/observability-test/jobs/"+id+"/dispatch", nil))
		require.Equal(t, http.StatusAccepted, rr.Code)
	}

	require.Equal(t, before+2, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, pattern, "202")))
	require.Equal(t, beforeCount+2, histogramCount(t, httpRequestDuration, http.MethodPost, pattern, "202"))

	entries := rec.Entries()
	require.Len(t, entries, 2)
	fields := map[string]any{}
	for _, f := range entries[0].Fields {
		fields[f.Key] = f.Value
	}
	require.Equal(t, "http request", entries[0].Msg)
	require.Equal(t, pattern, fields["path"])
	require.Equal(t, http.StatusAccepted, fields["status"])
	require.NotEmpty(t, fields["req_id"])
}

func TestObservability_UnmatchedUsesURLPath(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	h := Observability(rec.Logger())(http.NotFoundHandler())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	entries := rec.Entries()
	require.Len(t, entries, 1)
	for _, f := range entries[0].Fields {
		if f.Key == "path" {
			require.Equal(t, "/nowhere", f.Value)
		}
	}
}

func histogramCount(t *testing.T, hv *prometheus.HistogramVec, method, path, status string) uint64 {
	t.Helper()

	obs, err := hv.GetMetricWithLabelValues(method, path, status)
	require.NoError(t, err)

	metric, ok := obs.(prometheus.Metric)
	require.True(t, ok, "must implement prometheus.Metric")

	m := &dto.Metric{}
	require.NoError(t, metric.Write(m))

	h := m.GetHistogram()
	require.NotNil(t, h)
	return h.GetSampleCount()
}
