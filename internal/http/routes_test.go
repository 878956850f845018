package httpx

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsdeck/opsdeck/internal/service"
)

func newTestRouter(secret string) http.Handler {
	return NewRouter(RouterServices{
		Scheduler:       &stubScheduler{result: &service.RunResult{}},
		Dispatcher:      &stubDispatcher{},
		Jobs:            &stubJobDirectory{},
		Runs:            &stubRunLister{},
		SchedulerSecret: secret,
		Logger:          slog.New(slog.DiscardHandler),
	})
}

func TestRouterHealthz(t *testing.T) {
	router := newTestRouter("")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterSchedulerGuarded(t *testing.T) {
	router := newTestRouter("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/api/agent/scheduler/run", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/agent/scheduler/run", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterActionsNotGuarded(t *testing.T) {
	router := newTestRouter("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/api/agent/jobs?tenant_id=tenant-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
