package metrics

import (
	"context"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/civicwatch/incident-reports/report"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveSync(t *testing.T) {
	m := New()
	p := report.BoundedCount(0)

	m.ObserveSync(p, report.Snapshot{
		Records: []report.Record{{ID: 0, Reward: new(big.Int)}, {ID: 1, Reward: big.NewInt(1)}},
		Failures: []report.ReadFailure{
			{Index: 2, Kind: report.FailureTransient, Err: errors.New("boom")},
		},
	}, nil, time.Second)

	m.ObserveSync(p, report.Snapshot{}, report.ErrCountUnavailable, time.Millisecond)
	m.ObserveSync(report.Probing(1), report.Snapshot{}, context.Canceled, time.Millisecond)
	m.ObserveSync(report.Probing(1), report.Snapshot{}, errors.New("unexpected"), time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(m.syncs.WithLabelValues("bounded", OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.syncs.WithLabelValues("bounded", OutcomeCountUnavailable)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.syncs.WithLabelValues("probing", OutcomeCanceled)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.syncs.WithLabelValues("probing", OutcomeError)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("transient")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.records))
}

func TestMetrics_ProbingEnd(t *testing.T) {
	m := New()
	p := report.Probing(1)

	m.ObserveSync(p, report.Snapshot{
		Records:  []report.Record{{ID: 1, Reward: new(big.Int)}},
		Failures: []report.ReadFailure{{Index: 2, Kind: report.FailureNotFound, Err: report.ErrNotFound}},
	}, nil, time.Millisecond)

	require.Zero(t, testutil.ToFloat64(m.failures.WithLabelValues("not_found")))

	m.ObserveSync(p, report.Snapshot{
		Failures: []report.ReadFailure{{Index: 1, Kind: report.FailureTransient, Err: errors.New("timeout")}},
	}, nil, time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("transient")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/reports", "200")
	m.ObserveSync(report.BoundedCount(0), report.Snapshot{}, nil, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `reports_sync_total{outcome="ok",policy="bounded"} 1`)
	require.Contains(t, string(body), `reports_http_requests_total{code="200",route="/api/reports"} 1`)
	require.Contains(t, string(body), "go_goroutines")
}
