package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaveen-balasooriya/hive/internal/honeypot"
	"github.com/shaveen-balasooriya/hive/internal/runtime"
	"github.com/shaveen-balasooriya/hive/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyPodmanBinary always exits 0 with no stdout, so label queries
// resolve to an empty container list.
func emptyPodmanBinary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-podman")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0755))
	return path
}

func newTestHoneypotAPI(t *testing.T) *HoneypotAPI {
	t.Helper()
	d, err := runtime.New(emptyPodmanBinary(t), time.Second)
	require.NoError(t, err)
	m := honeypot.New(d, honeypot.NewCatalogLoader(""))
	return &HoneypotAPI{manager: m, pool: worker.New(1)}
}

func TestListTypesReturnsCatalogKeys(t *testing.T) {
	api := newTestHoneypotAPI(t)
	rec := httptest.NewRecorder()
	api.listTypes(rec, httptest.NewRequest("GET", "/types", nil))

	assert.Equal(t, 200, rec.Code)
	var types []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &types))
	assert.Contains(t, types, "ssh")
	assert.Contains(t, types, "ftp")
	assert.Contains(t, types, "http")
}

func TestTypeConfigUnknownType(t *testing.T) {
	api := newTestHoneypotAPI(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/types/bogus/config", nil)
	req = withChiParam(req, "t", "bogus")

	api.typeConfig(rec, req)
	assert.Equal(t, 404, rec.Code)
}

func TestAuthDetailsNotFoundWhenNoOverrideSet(t *testing.T) {
	api := newTestHoneypotAPI(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/types/ssh/auth-details", nil)
	req = withChiParam(req, "t", "ssh")

	api.authDetails(rec, req)
	assert.Equal(t, 404, rec.Code)
}

func TestCreateRejectsMissingHoneypotType(t *testing.T) {
	api := newTestHoneypotAPI(t)
	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"honeypot_port": 2222}`)
	req := httptest.NewRequest("POST", "/", body)

	api.create(rec, req)
	assert.Equal(t, 400, rec.Code)
}

func TestCreateRejectsMalformedBody(t *testing.T) {
	api := newTestHoneypotAPI(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`not json`))

	api.create(rec, req)
	assert.Equal(t, 400, rec.Code)
}

func TestPortCheckRejectsNonIntegerPort(t *testing.T) {
	api := newTestHoneypotAPI(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/port-check/abc", nil)
	req = withChiParam(req, "port", "abc")

	api.portCheck(rec, req)
	assert.Equal(t, 400, rec.Code)
}

func TestListAllEmptyWhenNoContainersExist(t *testing.T) {
	api := newTestHoneypotAPI(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)

	api.listAll(rec, req)
	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
