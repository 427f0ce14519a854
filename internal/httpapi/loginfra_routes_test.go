package httpapi

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaveen-balasooriya/hive/internal/loginfra"
	"github.com/shaveen-balasooriya/hive/internal/runtime"
	"github.com/shaveen-balasooriya/hive/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEverythingPodmanBinary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-podman")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 1\n"), 0755))
	return path
}

func newTestLogInfraAPI(t *testing.T) *LogInfraAPI {
	t.Helper()
	d, err := runtime.New(missingEverythingPodmanBinary(t), time.Second)
	require.NoError(t, err)
	orch := loginfra.New(d, loginfra.Config{
		SearchImage:     "opensearchproject/opensearch:2",
		DashboardImage:  "opensearchproject/opensearch-dashboards:2",
		MessageBusImage: "nats:2-alpine",
		SearchUser:      "admin",
	})
	return &LogInfraAPI{orchestrator: orch, pool: worker.New(1)}
}

func existingPodmanBinary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-podman")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0755))
	return path
}

func TestCreateListsExistingContainersOnConflict(t *testing.T) {
	d, err := runtime.New(existingPodmanBinary(t), time.Second)
	require.NoError(t, err)
	orch := loginfra.New(d, loginfra.Config{SearchUser: "admin"})
	api := &LogInfraAPI{orchestrator: orch, pool: worker.New(1)}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/create", bytes.NewBufferString(`{"admin_password": "longenough"}`))
	api.create(rec, req)

	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), loginfra.SearchNodeName)
	assert.Contains(t, rec.Body.String(), loginfra.MessageBusName)
	assert.Contains(t, rec.Body.String(), loginfra.LogCollectorName)
}

func TestCreateRejectsShortPassword(t *testing.T) {
	api := newTestLogInfraAPI(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/create", bytes.NewBufferString(`{"admin_password": "short"}`))

	api.create(rec, req)
	assert.Equal(t, 400, rec.Code)
}

func TestCreateRejectsMalformedBody(t *testing.T) {
	api := newTestLogInfraAPI(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/create", bytes.NewBufferString(`not json`))

	api.create(rec, req)
	assert.Equal(t, 400, rec.Code)
}

func TestStartRejectsWhenInfrastructureMissing(t *testing.T) {
	api := newTestLogInfraAPI(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/start", nil)

	api.start(rec, req)
	assert.Equal(t, 400, rec.Code)
}

func TestStopRejectsWhenInfrastructureMissing(t *testing.T) {
	api := newTestLogInfraAPI(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/stop", nil)

	api.stop(rec, req)
	assert.Equal(t, 400, rec.Code)
}

func TestDeleteRejectsWhenInfrastructureMissing(t *testing.T) {
	api := newTestLogInfraAPI(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/delete", nil)

	api.delete(rec, req)
	assert.Equal(t, 400, rec.Code)
}

func TestStatusReportsNotFoundForEverything(t *testing.T) {
	api := newTestLogInfraAPI(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/status", nil)

	api.status(rec, req)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "not-found")
}

func TestServicesEmptyWhenNothingRunning(t *testing.T) {
	api := newTestLogInfraAPI(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/services", nil)

	api.services(rec, req)
	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, "null", rec.Body.String())
}
