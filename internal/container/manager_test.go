package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaveen-balasooriya/hive/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSpec is a minimal container.Spec for exercising Manager.
type fakeSpec struct {
	name          string
	preCreateErr  error
	postCreateErr error
	preCalled     bool
	postCalled    bool
}

func (s *fakeSpec) Name() string  { return s.name }
func (s *fakeSpec) Image() string { return "hive-fake-image" }
func (s *fakeSpec) ExtraArgs() []string {
	return []string{"--network", "hive-net"}
}
func (s *fakeSpec) PreCreate(ctx context.Context) error {
	s.preCalled = true
	return s.preCreateErr
}
func (s *fakeSpec) PostCreate(ctx context.Context) error {
	s.postCalled = true
	return s.postCreateErr
}

func sequencedBinary(t *testing.T, codes ...int) string {
	t.Helper()
	dir := t.TempDir()
	counter := filepath.Join(dir, "count")
	require.NoError(t, os.WriteFile(counter, []byte("0"), 0644))

	script := "#!/bin/sh\n"
	script += fmt.Sprintf("COUNT_FILE=%q\n", counter)
	script += `N=$(cat "$COUNT_FILE")` + "\n"
	script += `N=$((N+1))` + "\n"
	script += `echo "$N" > "$COUNT_FILE"` + "\n"
	script += "case $N in\n"
	for i, code := range codes {
		script += fmt.Sprintf("%d) exit %d ;;\n", i+1, code)
	}
	script += fmt.Sprintf("*) exit %d ;;\n", codes[len(codes)-1])
	script += "esac\n"

	path := filepath.Join(dir, "fake-podman")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func newDriver(t *testing.T, codes ...int) *runtime.Driver {
	t.Helper()
	d, err := runtime.New(sequencedBinary(t, codes...), time.Second)
	require.NoError(t, err)
	return d
}

func TestCreateSkipsIfExists(t *testing.T) {
	d := newDriver(t, 0) // container exists probe succeeds
	mgr := New(d)
	s := &fakeSpec{name: "hive-ssh-2222"}

	require.NoError(t, mgr.Create(context.Background(), s))
	assert.False(t, s.preCalled, "PreCreate must not run when the container already exists")
}

func TestCreateRunsPrePostOnSuccess(t *testing.T) {
	d := newDriver(t, 1, 0, 0) // exists=false, create=ok, (post-create makes no runtime call)
	mgr := New(d)
	s := &fakeSpec{name: "hive-ssh-2222"}

	require.NoError(t, mgr.Create(context.Background(), s))
	assert.True(t, s.preCalled)
	assert.True(t, s.postCalled)
}

func TestCreatePropagatesPreCreateError(t *testing.T) {
	d := newDriver(t, 1) // exists=false
	mgr := New(d)
	s := &fakeSpec{name: "hive-ssh-2222", preCreateErr: assert.AnError}

	err := mgr.Create(context.Background(), s)
	require.Error(t, err)
	assert.False(t, s.postCalled)
}

func TestDeleteNoOpWhenAbsent(t *testing.T) {
	d := newDriver(t, 1) // exists probe fails
	mgr := New(d)
	s := &fakeSpec{name: "hive-ssh-2222"}

	require.NoError(t, mgr.Delete(context.Background(), s))
}

func TestStartStopRestart(t *testing.T) {
	d := newDriver(t, 0)
	mgr := New(d)
	s := &fakeSpec{name: "hive-ssh-2222"}

	assert.NoError(t, mgr.Start(context.Background(), s))
	assert.NoError(t, mgr.Stop(context.Background(), s))
	assert.NoError(t, mgr.Restart(context.Background(), s))
}
