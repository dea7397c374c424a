/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagridio/go-shell-cron/api"
)

func Test_Metrics(t *testing.T) {
	t.Parallel()

	t.Run("nil metrics record nothing", func(t *testing.T) {
		t.Parallel()

		var m *Metrics
		m.SetJobsActive(1)
		m.ObserveRun("a", api.StatusSuccess, time.Second)
		m.HistoryAppendFailed()
		m.JobRemoved("unsatisfiable")
		m.ObserveLag(time.Second)
	})

	t.Run("collectors are updated", func(t *testing.T) {
		t.Parallel()

		reg := prometheus.NewRegistry()
		m := New(reg)

		m.SetJobsActive(3)
		m.ObserveRun("a", api.StatusSuccess, time.Second)
		m.ObserveRun("a", api.StatusError, time.Second)
		m.ObserveRun("a", api.StatusError, time.Second)
		m.HistoryAppendFailed()
		m.JobRemoved("unsatisfiable")
		m.ObserveLag(1500 * time.Millisecond)

		assert.InDelta(t, 3.0, testutil.ToFloat64(m.jobsActive), 0)
		assert.InDelta(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("a", "SUCCESS")), 0)
		assert.InDelta(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("a", "ERROR")), 0)
		assert.InDelta(t, 1.0, testutil.ToFloat64(m.appendFailures), 0)
		assert.InDelta(t, 1.0, testutil.ToFloat64(m.jobsRemoved.WithLabelValues("unsatisfiable")), 0)
		assert.InDelta(t, 1.5, testutil.ToFloat64(m.scheduleLag), 0)
		assert.Equal(t, 1, testutil.CollectAndCount(m.runDuration))
	})
}

func Test_Server(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg).SetJobsActive(2)

	srv := NewServer(ServerOptions{Log: logr.Discard(), Addr: "127.0.0.1:0", Gatherer: reg})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	addr, err := srv.Addr(ctx)
	require.NoError(t, err)

	//nolint:noctx
	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.True(t, strings.Contains(string(body), "crond_jobs_active 2"), string(body))

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
