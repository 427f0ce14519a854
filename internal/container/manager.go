// Package container implements the lifecycle template used by every
// managed container (spec.md §4.3). Rather than a subclass hierarchy,
// concrete containers are values implementing the small Spec
// capability interface; Manager holds the one generic algorithm
// (spec.md §9's substitute for "subclass polymorphism").
package container

import (
	"context"
	"fmt"

	"github.com/shaveen-balasooriya/hive/internal/metrics"
	"github.com/shaveen-balasooriya/hive/internal/runtime"
	"github.com/shaveen-balasooriya/hive/internal/types"
)

// Spec is the capability every managed container must implement.
type Spec interface {
	// Name is the unique runtime record name.
	Name() string
	// Image is the tag or registry reference to run.
	Image() string
	// ExtraArgs returns subclass-specific `podman create` flags: port
	// publications, resource limits, mounts, environment, labels.
	ExtraArgs() []string
	// PreCreate runs before the runtime create call: ensuring the
	// network, building/pulling the image, writing config, etc.
	PreCreate(ctx context.Context) error
	// PostCreate runs after a successful create: attaching aliases,
	// starting sidecars, connecting networks.
	PostCreate(ctx context.Context) error
}

// Manager is the generic lifecycle algorithm shared by every managed
// container type.
type Manager struct {
	driver *runtime.Driver
}

// New constructs a Manager over the shared runtime driver.
func New(driver *runtime.Driver) *Manager {
	return &Manager{driver: driver}
}

// Exists reports whether s's container record exists in the runtime.
func (m *Manager) Exists(ctx context.Context, s Spec) bool {
	return m.driver.ContainerExists(ctx, s.Name())
}

// Create creates s's container if it does not already exist, running
// PreCreate before and PostCreate after the runtime call.
func (m *Manager) Create(ctx context.Context, s Spec) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ContainerLifecycleDuration, "create")

	if m.Exists(ctx, s) {
		return nil
	}
	if err := s.PreCreate(ctx); err != nil {
		return fmt.Errorf("pre-create: %w", err)
	}

	args := []string{"create", "--name", s.Name()}
	args = append(args, s.ExtraArgs()...)
	args = append(args, s.Image())

	if _, err := m.driver.Run(ctx, args); err != nil {
		return err
	}

	if err := s.PostCreate(ctx); err != nil {
		return fmt.Errorf("post-create: %w", err)
	}
	return nil
}

// Start starts s's container.
func (m *Manager) Start(ctx context.Context, s Spec) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ContainerLifecycleDuration, "start")
	_, err := m.driver.Run(ctx, []string{"start", s.Name()})
	return err
}

// Stop stops s's container.
func (m *Manager) Stop(ctx context.Context, s Spec) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ContainerLifecycleDuration, "stop")
	_, err := m.driver.Run(ctx, []string{"stop", s.Name()})
	return err
}

// Restart restarts s's container.
func (m *Manager) Restart(ctx context.Context, s Spec) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ContainerLifecycleDuration, "restart")
	_, err := m.driver.Run(ctx, []string{"restart", s.Name()})
	return err
}

// Delete force-removes s's container. It is a no-op if the record is
// already gone.
func (m *Manager) Delete(ctx context.Context, s Spec) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ContainerLifecycleDuration, "delete")
	if !m.Exists(ctx, s) {
		return nil
	}
	_, err := m.driver.Run(ctx, []string{"rm", "-f", s.Name()})
	return err
}

// Status reports s's current lifecycle state, or StatusNotFound if
// the record is gone.
func (m *Manager) Status(ctx context.Context, s Spec) (types.Status, error) {
	return m.driver.Status(ctx, s.Name())
}
