package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sioms/sioms/internal/inventory"
	jobmetrics "github.com/sioms/sioms/internal/jobs"
	"github.com/sioms/sioms/internal/shared"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeVerifier struct {
	checks map[int64]inventory.LedgerCheck
	err    error
}

func (f fakeVerifier) VerifyLedger(_ context.Context, id int64) (inventory.LedgerCheck, error) {
	if f.err != nil {
		return inventory.LedgerCheck{}, f.err
	}
	check, ok := f.checks[id]
	if !ok {
		return inventory.LedgerCheck{}, &shared.NotFoundError{Entity: "product", ID: id}
	}
	return check, nil
}

func (f fakeVerifier) VerifyAll(context.Context) ([]inventory.LedgerCheck, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	var drift []inventory.LedgerCheck
	for _, c := range f.checks {
		if !c.Consistent {
			drift = append(drift, c)
		}
	}
	return drift, len(f.checks), nil
}

func verifier() fakeVerifier {
	return fakeVerifier{checks: map[int64]inventory.LedgerCheck{
		1: {ProductID: 1, StockQuantity: 5, Replayed: 5, Consistent: true},
		2: {ProductID: 2, StockQuantity: 4, Replayed: 6, Consistent: false},
	}}
}

func TestLedgerCheckReportsDrift(t *testing.T) {
	job := NewLedgerCheckJob(verifier(), discardLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	result, err := job.Run(context.Background(), LedgerCheckPayload{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Checked)
	require.Len(t, result.Drift, 1)
	assert.Equal(t, int64(2), result.Drift[0].ProductID)

	single, err := job.Run(context.Background(), LedgerCheckPayload{ProductID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, single.Checked)
	assert.Empty(t, single.Drift)
}

func TestLedgerCheckHandleTask(t *testing.T) {
	job := NewLedgerCheckJob(verifier(), discardLogger(), nil)

	task, err := NewLedgerCheckTask(LedgerCheckPayload{ProductID: 2})
	require.NoError(t, err)
	assert.Equal(t, TaskLedgerCheck, task.Type())
	require.NoError(t, job.Handle(context.Background(), task))

	missing, err := NewLedgerCheckTask(LedgerCheckPayload{ProductID: 9})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), missing), shared.ErrNotFound)

	bad := asynq.NewTask(TaskLedgerCheck, []byte("{"))
	assert.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)
}

func TestLedgerCheckPropagatesFailure(t *testing.T) {
	boom := errors.New("connection reset")
	job := NewLedgerCheckJob(fakeVerifier{err: boom}, discardLogger(), nil)

	_, err := job.Run(context.Background(), LedgerCheckPayload{})
	assert.ErrorIs(t, err, boom)
}

type purger struct {
	got time.Duration
	n   int64
	err error
}

func (p *purger) Cleanup(_ context.Context, d time.Duration) (int64, error) {
	p.got = d
	return p.n, p.err
}

func (p *purger) PurgeRead(_ context.Context, d time.Duration) (int64, error) {
	p.got = d
	return p.n, p.err
}

func TestCleanupAppliesRetention(t *testing.T) {
	idem := &purger{n: 4}
	notif := &purger{n: 2}
	job := &CleanupJob{
		Idempotency:           idem,
		Notifications:         notif,
		IdempotencyRetention:  72 * time.Hour,
		NotificationRetention: 30 * 24 * time.Hour,
		Logger:                discardLogger(),
	}

	result, err := job.Run(context.Background(), CleanupPayload{NotificationRetention: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, CleanupResult{IdempotencyKeys: 4, Notifications: 2}, result)
	assert.Equal(t, 72*time.Hour, idem.got)
	assert.Equal(t, time.Hour, notif.got)
}

func TestCleanupContinuesAfterFailure(t *testing.T) {
	boom := errors.New("timeout")
	notif := &purger{n: 3}
	job := &CleanupJob{
		Idempotency:           &purger{err: boom},
		Notifications:         notif,
		IdempotencyRetention:  time.Hour,
		NotificationRetention: time.Hour,
		Logger:                discardLogger(),
	}

	task, err := NewCleanupTask(CleanupPayload{})
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, time.Hour, notif.got)
}

type fakeEnqueuer struct {
	payloads []LedgerCheckPayload
	err      error
}

func (f *fakeEnqueuer) EnqueueLedgerCheck(_ context.Context, p LedgerCheckPayload) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.payloads = append(f.payloads, p)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

type fakeInspector struct{ err error }

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.QueueInfo{Queue: queue, Pending: 3, Active: 1}, nil
}

func jobsRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{UserID: 1, Role: "admin"})))
		})
	})
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestHandlerHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	jobsRouter(NewHandler(fakeInspector{}, nil, discardLogger())).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body["pending"])

	rr = httptest.NewRecorder()
	jobsRouter(NewHandler(fakeInspector{err: errors.New("down")}, nil, discardLogger())).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	jobsRouter(NewHandler(nil, nil, discardLogger())).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandlerLedgerCheck(t *testing.T) {
	enq := &fakeEnqueuer{}
	router := jobsRouter(NewHandler(nil, enq, discardLogger()))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/ledger-check?product_id=4", nil))
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "task-1")
	require.Len(t, enq.payloads, 1)
	assert.Equal(t, LedgerCheckPayload{ProductID: 4, RequestedBy: 1}, enq.payloads[0])

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/ledger-check?product_id=x", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	enq.err = asynq.ErrDuplicateTask
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/ledger-check", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	jobsRouter(NewHandler(nil, nil, discardLogger())).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/ledger-check", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
