package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"yoga-studio/internal/infra/metrics"
	"yoga-studio/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAllRecordsOutcomes(t *testing.T) {
	m := metrics.New()
	calls := 0
	s := New(m, logging.Discard(),
		Task{Name: "expire_subscriptions", Run: func(ctx context.Context) (int64, error) {
			calls++
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return 2, nil
		}},
		Task{Name: "sweep_classes", Run: func(context.Context) (int64, error) {
			calls++
			return 0, errors.New("db down")
		}},
	)

	s.RunAll(context.Background())

	assert.Equal(t, 2, calls)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `yoga_job_runs_total{job="expire_subscriptions",result="ok"} 1`)
	assert.Contains(t, body, `yoga_job_runs_total{job="sweep_classes",result="error"} 1`)
}

func TestScheduleRunsTasks(t *testing.T) {
	done := make(chan struct{}, 1)
	s := New(nil, logging.Discard(), Task{Name: "tick", Run: func(context.Context) (int64, error) {
		select {
		case done <- struct{}{}:
		default:
		}
		return 0, nil
	}})

	require.NoError(t, s.Schedule("@every 1s"))
	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	s := New(nil, logging.Discard(), Task{Name: "x", Run: func(context.Context) (int64, error) { return 0, nil }})
	assert.Error(t, s.Schedule("every now and then"))
}
