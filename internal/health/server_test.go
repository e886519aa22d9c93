package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func decodeReady(t *testing.T, rec *httptest.ResponseRecorder) readyResponse {
	t.Helper()
	var resp readyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestReadyRequiresSchedulerAndDatabase(t *testing.T) {
	srv := NewServer(Config{ServiceName: "collector", Logger: quietLogger(), DB: &fakePinger{}})

	rec := httptest.NewRecorder()
	srv.handleReady(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 503, rec.Code)
	assert.Equal(t, "not_started", decodeReady(t, rec).Checks["scheduler"])

	srv.SetReady(true)
	rec = httptest.NewRecorder()
	srv.handleReady(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 200, rec.Code)

	srv.db = &fakePinger{err: errors.New("connection refused")}
	rec = httptest.NewRecorder()
	srv.handleReady(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 503, rec.Code)
	assert.Contains(t, decodeReady(t, rec).Checks["database"], "connection refused")
}

func TestReadyGatesOnPipelineLag(t *testing.T) {
	lag := 30.0
	srv := NewServer(Config{
		ServiceName: "collector",
		Logger:      quietLogger(),
		Lag:         func() float64 { return lag },
		MaxLagSecs:  300,
	})
	srv.SetReady(true)

	rec := httptest.NewRecorder()
	srv.handleReady(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, 30.0, decodeReady(t, rec).PipelineLagSec)

	lag = 900
	rec = httptest.NewRecorder()
	srv.handleReady(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 503, rec.Code)
	assert.Contains(t, decodeReady(t, rec).Checks["pipeline"], "lagging")
}

func TestHealthReportsBuildInfo(t *testing.T) {
	srv := NewServer(Config{ServiceName: "collector", Version: "1.2.0", Commit: "abc123"})

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, 200, rec.Code)

	var resp statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.0", resp.Version)
	assert.Equal(t, "abc123", resp.Commit)
}
