// Package resources implements the idempotent ensure-exists utilities
// of spec.md §4.2: the shared private network, named volumes, and
// images (pull or build). These are pure utilities with no state
// beyond the shared runtime driver handle.
package resources

import (
	"context"
	"fmt"

	"github.com/shaveen-balasooriya/hive/internal/runtime"
)

// NetworkManager owns the single shared private network every
// managed container attaches to.
type NetworkManager struct {
	driver *runtime.Driver
}

// NewNetworkManager constructs a NetworkManager over the shared driver.
func NewNetworkManager(driver *runtime.Driver) *NetworkManager {
	return &NetworkManager{driver: driver}
}

// EnsureExists creates the named network if it is absent. Calling it
// any number of times is equivalent to calling it once (spec.md §8
// "Idempotent ensures").
func (n *NetworkManager) EnsureExists(ctx context.Context, name string) error {
	if n.driver.NetworkExists(ctx, name) {
		return nil
	}
	_, err := n.driver.Run(ctx, []string{"network", "create", name})
	if err != nil {
		// Tolerate a race where another caller created it first.
		if n.driver.NetworkExists(ctx, name) {
			return nil
		}
		return err
	}
	return nil
}

// Connect attaches a container to the network, optionally under a
// DNS alias for intra-network discovery.
func (n *NetworkManager) Connect(ctx context.Context, network, container, alias string) error {
	args := []string{"network", "connect"}
	if alias != "" {
		args = append(args, "--alias", alias)
	}
	args = append(args, network, container)
	_, err := n.driver.Run(ctx, args)
	return err
}

// VolumeManager owns named volumes used by honeypots and the search node.
type VolumeManager struct {
	driver *runtime.Driver
}

// NewVolumeManager constructs a VolumeManager over the shared driver.
func NewVolumeManager(driver *runtime.Driver) *VolumeManager {
	return &VolumeManager{driver: driver}
}

// EnsureExists creates the named volume if it is absent.
func (v *VolumeManager) EnsureExists(ctx context.Context, name string) error {
	if v.driver.VolumeExists(ctx, name) {
		return nil
	}
	_, err := v.driver.Run(ctx, []string{"volume", "create", name})
	if err != nil {
		if v.driver.VolumeExists(ctx, name) {
			return nil
		}
		return err
	}
	return nil
}

// ImageManager pulls or builds the images managed containers run from.
type ImageManager struct {
	driver *runtime.Driver
}

// NewImageManager constructs an ImageManager over the shared driver.
func NewImageManager(driver *runtime.Driver) *ImageManager {
	return &ImageManager{driver: driver}
}

// EnsurePulled pulls ref if no image with that reference exists.
func (m *ImageManager) EnsurePulled(ctx context.Context, ref string) error {
	if m.driver.ImageExists(ctx, ref) {
		return nil
	}
	_, err := m.driver.Run(ctx, []string{"pull", ref})
	return err
}

// EnsureBuilt builds tag from contextDir iff no image with that tag
// already exists. dockerfile is relative to contextDir; an empty
// string uses the runtime's default discovery.
func (m *ImageManager) EnsureBuilt(ctx context.Context, tag, contextDir, dockerfile string) error {
	if m.driver.ImageExists(ctx, tag) {
		return nil
	}
	args := []string{"build", "-t", tag}
	if dockerfile != "" {
		args = append(args, "-f", fmt.Sprintf("%s/%s", contextDir, dockerfile))
	}
	args = append(args, contextDir)
	_, err := m.driver.Run(ctx, args)
	return err
}
