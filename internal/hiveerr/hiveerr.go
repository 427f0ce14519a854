// Package hiveerr implements the error taxonomy of spec.md §7: a
// closed set of error kinds, each mapped to an HTTP status by the
// httpapi package, plus the stderr-simplification used to turn raw
// podman error text into a short user-facing message.
package hiveerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is one member of the closed error taxonomy.
type Kind string

const (
	// Honeypot control plane (spec.md §7)
	KindHoneypotAlreadyExists Kind = "honeypot_already_exists"
	KindUnknownType           Kind = "unknown_type"
	KindImageFailure          Kind = "image_failure"
	KindContainerFailure      Kind = "container_failure"
	KindPrivilegedPort        Kind = "privileged_port"
	KindActiveConnections     Kind = "active_connections"
	KindPortInUse             Kind = "port_in_use"
	KindContainerBusy         Kind = "container_busy"
	KindAlreadyRunning        Kind = "already_running"
	KindNotFound              Kind = "not_found"
	KindBadRequest            Kind = "bad_request"

	// Infra control plane
	KindRuntimeFailure      Kind = "runtime_failure"
	KindHostResourceFailure Kind = "host_resource_failure"
	KindBootstrapTimeout    Kind = "bootstrap_timeout"
	KindPermissionDenied    Kind = "permission_denied"
)

// HiveError is the concrete error type for every taxonomy member.
type HiveError struct {
	Kind    Kind
	Message string // short, one-line, suitable for an HTTP response body
	Cause   error  // original error, retained for debug logs only
}

func (e *HiveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *HiveError) Unwrap() error { return e.Cause }

// New builds a HiveError of the given kind with a message and optional cause.
func New(kind Kind, message string, cause error) *HiveError {
	return &HiveError{Kind: kind, Message: message, Cause: cause}
}

// As extracts a *HiveError from err, if any is present in its chain.
func As(err error) (*HiveError, bool) {
	var he *HiveError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// RuntimeFailure reports a non-zero exit from the container runtime,
// carrying both the simplified message and the raw stderr for debug
// logs. A recognized permission-denied stderr is classified as
// KindPermissionDenied rather than the generic KindRuntimeFailure, so
// it reaches the 403 mapping spec.md §7 defines.
func RuntimeFailure(command []string, stderr string) *HiveError {
	kind := KindRuntimeFailure
	if strings.Contains(strings.ToLower(stderr), "permission denied") {
		kind = KindPermissionDenied
	}
	return &HiveError{
		Kind:    kind,
		Message: Simplify(stderr),
		Cause:   fmt.Errorf("command %q failed: %s", strings.Join(command, " "), stderr),
	}
}

// HostResourceFailure reports a missing binary or insufficient host
// resource (e.g. disk space).
func HostResourceFailure(message string, cause error) *HiveError {
	return &HiveError{Kind: KindHostResourceFailure, Message: message, Cause: cause}
}

// pattern is one recognized stderr substring and its user-facing rewrite.
type pattern struct {
	substr  string
	message string
}

// patterns is the closed set of recognized runtime stderr shapes
// (spec.md §7 "Propagation policy"). Patterns are checked in order;
// the first match wins. Unrecognized text is surfaced as its first
// non-blank line (see Simplify).
var patterns = []pattern{
	{"already in use", "the requested resource is already in use"},
	{"already exists", "the requested resource already exists"},
	{"no such container", "no such container"},
	{"no such image", "no such image"},
	{"no such network", "no such network"},
	{"no such volume", "no such volume"},
	{"permission denied", "permission denied"},
	{"already running", "the container is already running"},
	{"is not running", "the container is not running"},
	{"cannot remove", "the container could not be removed"},
}

// Simplify rewrites recognized stderr patterns to a short, stable
// user message. Unrecognized text is trimmed and cut to its first
// line; blank text becomes a generic "command failed" message. The raw
// form is always retained by callers at debug log level, never lost.
func Simplify(raw string) string {
	lower := strings.ToLower(raw)
	for _, p := range patterns {
		if strings.Contains(lower, p.substr) {
			return p.message
		}
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "container runtime command failed"
	}
	// Keep it one line even if stderr was multi-line.
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}
