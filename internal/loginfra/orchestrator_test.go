package loginfra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaveen-balasooriya/hive/internal/hiveerr"
	"github.com/shaveen-balasooriya/hive/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constantExitBinary returns a fake podman binary that exits with the
// same code for every invocation.
func constantExitBinary(t *testing.T, exitCode int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-podman")
	script := fmt.Sprintf("#!/bin/sh\nexit %d\n", exitCode)
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func driverAlways(t *testing.T, exitCode int) *runtime.Driver {
	t.Helper()
	d, err := runtime.New(constantExitBinary(t, exitCode), time.Second)
	require.NoError(t, err)
	return d
}

func testConfig() Config {
	return Config{
		SearchImage:      "opensearchproject/opensearch:2",
		DashboardImage:   "opensearchproject/opensearch-dashboards:2",
		MessageBusImage:  "nats:2-alpine",
		CollectorContext: "log-collector",
		SearchUser:       "admin",
	}
}

func TestMissingWhenNothingExists(t *testing.T) {
	o := New(driverAlways(t, 1), testConfig()) // every exists probe fails
	missing, err := o.Missing(context.Background())
	require.NoError(t, err)
	assert.True(t, missing)
}

func TestAnyExistsFalseWhenNothingExists(t *testing.T) {
	o := New(driverAlways(t, 1), testConfig())
	exists, err := o.AnyExists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExistingNamesEmptyWhenNothingExists(t *testing.T) {
	o := New(driverAlways(t, 1), testConfig())
	names, err := o.ExistingNames(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestExistingNamesListsAllThreeWhenAllExist(t *testing.T) {
	o := New(driverAlways(t, 0), testConfig())
	names, err := o.ExistingNames(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{SearchNodeName, MessageBusName, LogCollectorName}, names)
}

func TestAnyRunningFalseWhenNotFound(t *testing.T) {
	o := New(driverAlways(t, 1), testConfig())
	running, err := o.AnyRunning(context.Background())
	require.NoError(t, err)
	assert.False(t, running)
}

func TestDeleteAllNoOpWhenNothingExists(t *testing.T) {
	o := New(driverAlways(t, 1), testConfig())
	err := o.DeleteAll(context.Background())
	assert.NoError(t, err)
}

func TestRunningServicesEmptyWhenNothingRunning(t *testing.T) {
	o := New(driverAlways(t, 1), testConfig())
	names, err := o.RunningServices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestStatusReportAllNotFound(t *testing.T) {
	o := New(driverAlways(t, 1), testConfig())
	report, err := o.StatusReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "not-found", report.OpenSearchNode)
	assert.Equal(t, "not-found", report.NatsServer)
	assert.Equal(t, "not-found", report.LogCollector)
	assert.Equal(t, "not-found", report.OpenSearchDashboard)
}

func TestStartAllTimesOutOnContextCancel(t *testing.T) {
	o := New(driverAlways(t, 0), testConfig()) // every call succeeds
	// The deadline passes after the start calls but well before
	// bootstrapWait elapses, so it fires during the bootstrap wait.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := o.StartAll(ctx)
	require.Error(t, err)
	he, ok := hiveerr.As(err)
	require.True(t, ok)
	assert.Equal(t, hiveerr.KindBootstrapTimeout, he.Kind)
}
