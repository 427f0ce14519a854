package runtime

import (
	"context"
	"encoding/json"

	"github.com/shaveen-balasooriya/hive/internal/types"
)

// inspectEntry is the subset of `podman inspect` output this driver
// depends on: the State.Status field.
type inspectEntry struct {
	State struct {
		Status string `json:"Status"`
	} `json:"State"`
}

// Status inspects name and returns its rendered lifecycle status. A
// container that no longer exists in the runtime renders as
// StatusNotFound rather than an error (spec.md §4.3 "status()").
func (d *Driver) Status(ctx context.Context, name string) (types.Status, error) {
	if !d.ContainerExists(ctx, name) {
		return types.StatusNotFound, nil
	}
	out, err := d.Inspect(ctx, name)
	if err != nil {
		return types.StatusNotFound, err
	}
	var entries []inspectEntry
	if err := json.Unmarshal(out, &entries); err != nil || len(entries) == 0 {
		return types.StatusNotFound, nil
	}
	return mapState(entries[0].State.Status), nil
}

// mapState translates podman's container state vocabulary to H.I.V.E's.
func mapState(state string) types.Status {
	switch state {
	case "running":
		return types.StatusRunning
	case "exited", "stopped":
		return types.StatusExited
	case "created", "configured":
		return types.StatusConfigured
	default:
		return types.StatusConfigured
	}
}
