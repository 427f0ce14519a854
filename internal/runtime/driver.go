// Package runtime provides the single shared synchronous wrapper over
// the rootless container runtime CLI (spec.md §4.1). Every managed
// container in H.I.V.E — honeypot or infrastructure — goes through
// this one Driver; it never talks to a runtime daemon API directly,
// only to the `podman` binary via subprocess.
package runtime

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/shaveen-balasooriya/hive/internal/hiveerr"
	"github.com/shaveen-balasooriya/hive/internal/log"
	"github.com/shaveen-balasooriya/hive/internal/metrics"
)

// DefaultBinary is the executable name resolved via PATH.
const DefaultBinary = "podman"

// DefaultTimeout bounds any single runtime invocation unless a
// WithTimeout option replaces it for that call; a shorter deadline on
// the caller's context still applies.
const DefaultTimeout = 30 * time.Second

// Driver is the process-wide handle passed by reference into every
// manager at construction (spec.md §9 "cyclic/global handles").
type Driver struct {
	binary  string
	timeout time.Duration
	logger  zerolog.Logger
}

// New resolves the runtime binary on PATH and returns a shared Driver.
// A missing binary fails fast with HostResourceFailure, matching
// spec.md §4.1's "Missing runtime executable" case.
func New(binary string, timeout time.Duration) (*Driver, error) {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, hiveerr.HostResourceFailure(
			fmt.Sprintf("container runtime executable %q not found on PATH", binary), err)
	}
	return &Driver{binary: resolved, timeout: timeout, logger: log.WithComponent("runtime")}, nil
}

// runOptions configures a single Run call.
type runOptions struct {
	capture bool
	timeout time.Duration
}

// RunOption customizes a Run invocation.
type RunOption func(*runOptions)

// WithCapture requests stdout be captured and returned.
func WithCapture() RunOption {
	return func(o *runOptions) { o.capture = true }
}

// WithTimeout overrides the driver's default timeout for one call.
func WithTimeout(d time.Duration) RunOption {
	return func(o *runOptions) { o.timeout = d }
}

// Run executes args against the runtime binary. On success it returns
// captured stdout (or nil, if WithCapture was not given). On a
// non-zero exit it returns a *hiveerr.HiveError of kind
// KindRuntimeFailure (KindPermissionDenied when stderr reports
// permission denied), carrying the simplified stderr and the raw form.
func (d *Driver) Run(ctx context.Context, args []string, opts ...RunOption) ([]byte, error) {
	o := runOptions{timeout: d.timeout}
	for _, opt := range opts {
		opt(&o)
	}

	runCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(runCtx, d.binary, args...)

	var stdout, stderr bytes.Buffer
	if o.capture {
		cmd.Stdout = &stdout
	}
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start)

	entry := d.logger.Debug().Strs("args", args).Dur("elapsed", elapsed)
	if err != nil {
		entry = d.logger.Error().Strs("args", args).Dur("elapsed", elapsed).Str("stderr", stderr.String())
	}
	entry.Msg("runtime invocation")

	subcommand := "unknown"
	if len(args) > 0 {
		subcommand = args[0]
	}
	if err != nil {
		metrics.RuntimeInvocationsTotal.WithLabelValues(subcommand, "error").Inc()
		return nil, hiveerr.RuntimeFailure(append([]string{d.binary}, args...), stderr.String())
	}
	metrics.RuntimeInvocationsTotal.WithLabelValues(subcommand, "ok").Inc()
	if o.capture {
		return stdout.Bytes(), nil
	}
	return nil, nil
}

// Probe executes args and reports only whether the command exited
// zero. It never returns an error — callers use it for existence
// checks (spec.md §4.1's "Thin probes"), which by design do not raise
// on non-zero exit.
func (d *Driver) Probe(ctx context.Context, args []string) bool {
	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, d.binary, args...)
	var discard bytes.Buffer
	cmd.Stdout = &discard
	cmd.Stderr = &discard
	return cmd.Run() == nil
}

// ContainerExists reports whether a container by that name exists.
func (d *Driver) ContainerExists(ctx context.Context, name string) bool {
	return d.Probe(ctx, []string{"container", "exists", name})
}

// ImageExists reports whether an image by that reference exists.
func (d *Driver) ImageExists(ctx context.Context, ref string) bool {
	return d.Probe(ctx, []string{"image", "exists", ref})
}

// NetworkExists reports whether a network by that name exists.
func (d *Driver) NetworkExists(ctx context.Context, name string) bool {
	return d.Probe(ctx, []string{"network", "exists", name})
}

// VolumeExists reports whether a named volume exists.
func (d *Driver) VolumeExists(ctx context.Context, name string) bool {
	return d.Probe(ctx, []string{"volume", "exists", name})
}

// PodExists reports whether a pod by that name exists.
func (d *Driver) PodExists(ctx context.Context, name string) bool {
	return d.Probe(ctx, []string{"pod", "exists", name})
}

// Inspect returns the raw `podman inspect` JSON for an object (container or pod).
func (d *Driver) Inspect(ctx context.Context, name string) ([]byte, error) {
	return d.Run(ctx, []string{"inspect", name}, WithCapture())
}
