package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glassline-erp/glassline-erp/internal/shared"
)

type stubEnqueuer struct {
	payloads []QuotesExpirePayload
	err      error
}

func (s *stubEnqueuer) EnqueueQuotesExpire(ctx context.Context, p QuotesExpirePayload) (*asynq.TaskInfo, error) {
	s.payloads = append(s.payloads, p)
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func mountJobsHandler(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func expireRequest(authed bool) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/expire", nil)
	if authed {
		sess := &shared.Session{ID: "test-session"}
		sess.SetUser(7)
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	return req
}

func TestExpireEndpointEnqueuesSweep(t *testing.T) {
	enq := &stubEnqueuer{}
	h := NewHandler(nil, enq, 30*24*time.Hour, discardLogger())

	res := httptest.NewRecorder()
	mountJobsHandler(h).ServeHTTP(res, expireRequest(true))

	require.Equal(t, http.StatusAccepted, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"task_id":"task-1"`)
	require.Len(t, enq.payloads, 1)
	assert.Equal(t, 30*24*time.Hour, enq.payloads[0].Validity)
}

func TestExpireEndpointRequiresSession(t *testing.T) {
	enq := &stubEnqueuer{}
	h := NewHandler(nil, enq, time.Hour, discardLogger())

	res := httptest.NewRecorder()
	mountJobsHandler(h).ServeHTTP(res, expireRequest(false))

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Empty(t, enq.payloads)
}

func TestExpireEndpointReportsEnqueueFailure(t *testing.T) {
	h := NewHandler(nil, &stubEnqueuer{err: errors.New("redis down")}, time.Hour, discardLogger())

	res := httptest.NewRecorder()
	mountJobsHandler(h).ServeHTTP(res, expireRequest(true))

	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}
