package honeypot

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/shaveen-balasooriya/hive/internal/container"
	"github.com/shaveen-balasooriya/hive/internal/hiveerr"
	"github.com/shaveen-balasooriya/hive/internal/metrics"
	"github.com/shaveen-balasooriya/hive/internal/resources"
	"github.com/shaveen-balasooriya/hive/internal/runtime"
	"github.com/shaveen-balasooriya/hive/internal/types"
)

// SharedNetwork is the private network every honeypot and infra
// container attaches to.
const SharedNetwork = "hive-net"

// BusAlias is the DNS name honeypots and the log infrastructure reach
// the message bus by (spec.md §4.4/§4.5's bus-endpoint wiring).
const BusAlias = "hive-bus"

// BusPort is the message bus's client port.
const BusPort = "4222"

// Manager is the Honeypot Manager of spec.md §4.4.
type Manager struct {
	driver   *runtime.Driver
	lifecyle *container.Manager
	network  *resources.NetworkManager
	volumes  *resources.VolumeManager
	images   *resources.ImageManager
	catalog  *CatalogLoader

	locks sync.Map // name -> *sync.Mutex, per-name mutual exclusion (spec.md §5)
}

// New constructs a Manager.
func New(driver *runtime.Driver, catalog *CatalogLoader) *Manager {
	return &Manager{
		driver:   driver,
		lifecyle: container.New(driver),
		network:  resources.NewNetworkManager(driver),
		volumes:  resources.NewVolumeManager(driver),
		images:   resources.NewImageManager(driver),
		catalog:  catalog,
	}
}

func (m *Manager) lockFor(name string) *sync.Mutex {
	v, _ := m.locks.LoadOrStore(name, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// CreateParams is the input to Create (spec.md §4.4).
type CreateParams struct {
	Type            string
	HostPort        int
	CPUPeriod       int64
	CPUQuota        int64
	MemoryLimit     string
	MemorySwapLimit string
	Authentication  []types.Credential
	Banner          string
}

// Create implements spec.md §4.4's create operation: validate
// preconditions, optionally rewrite the type's on-disk config,
// ensure the network exists, ensure the image is built, then create
// the container in one non-recursive pass (resolving the Open
// Question in SPEC_FULL.md §9).
func (m *Manager) Create(ctx context.Context, p CreateParams) (*types.Honeypot, error) {
	tc, ok := m.catalog.Catalog().Get(p.Type)
	if !ok {
		return nil, hiveerr.New(hiveerr.KindUnknownType, fmt.Sprintf("unknown honeypot type %q", p.Type), nil)
	}
	if p.HostPort < 1 || p.HostPort > 65535 {
		return nil, hiveerr.New(hiveerr.KindBadRequest, "host_port must be in [1,65535]", nil)
	}
	if p.HostPort < privilegedThreshold && !isElevated() {
		return nil, hiveerr.New(hiveerr.KindPrivilegedPort,
			fmt.Sprintf("port %d is privileged and requires elevated privileges", p.HostPort), nil)
	}

	name := types.Name(p.Type, p.HostPort)
	lock := m.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	if m.lifecyle.Exists(ctx, &honeypotSpec{name: name}) {
		return nil, hiveerr.New(hiveerr.KindHoneypotAlreadyExists,
			fmt.Sprintf("honeypot %q already exists (port %d)", name, p.HostPort), nil)
	}

	claimed, err := m.portClaimedByLabel(ctx, p.HostPort)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, hiveerr.New(hiveerr.KindPortInUse, fmt.Sprintf("port %d is already claimed", p.HostPort), nil)
	}

	if len(p.Authentication) > 0 || p.Banner != "" {
		if err := m.catalog.WriteOverride(p.Type, p.Authentication, p.Banner); err != nil {
			return nil, hiveerr.New(hiveerr.KindContainerFailure, "failed to write honeypot config override", err)
		}
		tc, _ = m.catalog.Catalog().Get(p.Type)
	}

	policy := tc.Resources
	if p.CPUPeriod > 0 {
		policy.CPUPeriod = p.CPUPeriod
	}
	if p.CPUQuota > 0 {
		policy.CPUQuota = p.CPUQuota
	}
	if p.MemoryLimit != "" {
		policy.MemoryLimit = canonicalMemory(p.MemoryLimit)
	}
	if p.MemorySwapLimit != "" {
		policy.MemorySwapLimit = canonicalMemory(p.MemorySwapLimit)
	}

	spec := &honeypotSpec{
		name:       name,
		image:      types.Image(p.Type),
		honeyType:  p.Type,
		hostPort:   p.HostPort,
		tc:         tc,
		policy:     policy,
		configPath: m.catalog.Path(),
		network:    m.network,
		images:     m.images,
		volumes:    m.volumes,
	}

	if err := m.lifecyle.Create(ctx, spec); err != nil {
		if he, ok := hiveerr.As(err); ok {
			return nil, he
		}
		return nil, hiveerr.New(hiveerr.KindContainerFailure, "failed to create honeypot container", err)
	}

	return &types.Honeypot{
		Name:      name,
		Type:      p.Type,
		HostPort:  p.HostPort,
		Image:     spec.image,
		Labels:    spec.labels(),
		Status:    types.StatusConfigured,
		Resources: policy,
	}, nil
}

// canonicalMemory appends "m" to bare integer inputs, per spec.md §3.6.
func canonicalMemory(v string) string {
	for _, c := range v {
		if c < '0' || c > '9' {
			return v
		}
	}
	return v + "m"
}

// Start implements spec.md §4.4's start guard: fails with
// AlreadyRunning if already running.
func (m *Manager) Start(ctx context.Context, name string) error {
	lock := m.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	spec := &honeypotSpec{name: name}
	status, err := m.lifecyle.Status(ctx, spec)
	if err != nil {
		return err
	}
	if status == types.StatusNotFound {
		return hiveerr.New(hiveerr.KindNotFound, fmt.Sprintf("honeypot %q not found", name), nil)
	}
	if status == types.StatusRunning {
		return hiveerr.New(hiveerr.KindAlreadyRunning, fmt.Sprintf("honeypot %q is already running", name), nil)
	}
	return m.lifecyle.Start(ctx, spec)
}

// Stop implements spec.md §4.4's stop guard: fails with
// ActiveConnections if the host port has an ESTABLISHED session.
func (m *Manager) Stop(ctx context.Context, name string) error {
	lock := m.lockFor(name)
	lock.Lock()
	defer lock.Unlock()
	return m.guardedStop(ctx, name)
}

func (m *Manager) guardedStop(ctx context.Context, name string) error {
	spec := &honeypotSpec{name: name}
	status, err := m.lifecyle.Status(ctx, spec)
	if err != nil {
		return err
	}
	if status == types.StatusNotFound {
		return hiveerr.New(hiveerr.KindNotFound, fmt.Sprintf("honeypot %q not found", name), nil)
	}

	port, err := portFromName(name)
	if err == nil {
		active, aerr := hasActiveConnections(ctx, port)
		if aerr != nil {
			return aerr
		}
		if active {
			return hiveerr.New(hiveerr.KindActiveConnections,
				fmt.Sprintf("honeypot %q has an active attacker connection", name), nil)
		}
	}

	if status != types.StatusRunning {
		return nil // cosmetic: stopping an already-stopped container is success (spec.md §7)
	}
	return m.lifecyle.Stop(ctx, spec)
}

// Restart implements spec.md §4.4's restart guard: running -> running only.
func (m *Manager) Restart(ctx context.Context, name string) error {
	lock := m.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	spec := &honeypotSpec{name: name}
	status, err := m.lifecyle.Status(ctx, spec)
	if err != nil {
		return err
	}
	if status != types.StatusRunning {
		return hiveerr.New(hiveerr.KindContainerFailure,
			fmt.Sprintf("honeypot %q must be running to restart", name), nil)
	}
	return m.lifecyle.Restart(ctx, spec)
}

// Delete implements spec.md §4.4's delete guards: ActiveConnections
// takes priority, then ContainerBusy if still running.
func (m *Manager) Delete(ctx context.Context, name string) error {
	lock := m.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	spec := &honeypotSpec{name: name}
	status, err := m.lifecyle.Status(ctx, spec)
	if err != nil {
		return err
	}
	if status == types.StatusNotFound {
		return nil
	}

	port, err := portFromName(name)
	if err == nil {
		active, aerr := hasActiveConnections(ctx, port)
		if aerr != nil {
			return aerr
		}
		if active {
			return hiveerr.New(hiveerr.KindActiveConnections,
				fmt.Sprintf("honeypot %q has an active attacker connection", name), nil)
		}
	}
	if status == types.StatusRunning {
		return hiveerr.New(hiveerr.KindContainerBusy,
			fmt.Sprintf("honeypot %q is running; stop it before deleting", name), nil)
	}
	return m.lifecyle.Delete(ctx, spec)
}

// Inspect implements spec.md §4.4's inspect(identifier).
func (m *Manager) Inspect(ctx context.Context, name string) (*types.Honeypot, error) {
	hp, err := m.describe(ctx, name)
	if err != nil {
		return nil, err
	}
	if hp == nil {
		return nil, hiveerr.New(hiveerr.KindNotFound, fmt.Sprintf("honeypot %q not found", name), nil)
	}
	return hp, nil
}

// ListAll implements spec.md §4.4's list_all() via label discovery.
func (m *Manager) ListAll(ctx context.Context) ([]*types.Honeypot, error) {
	names, err := m.listNamesByLabel(ctx, "service="+types.HoneypotManagerService)
	if err != nil {
		return nil, err
	}
	all, err := m.describeAll(ctx, names)
	if err != nil {
		return nil, err
	}
	m.recordMetrics(all)
	return all, nil
}

// ListByType implements spec.md §4.4's list_by_type(t).
func (m *Manager) ListByType(ctx context.Context, honeypotType string) ([]*types.Honeypot, error) {
	names, err := m.listNamesByLabel(ctx, "hive.type="+honeypotType)
	if err != nil {
		return nil, err
	}
	return m.describeAll(ctx, names)
}

// ListByStatus implements spec.md §4.4's list_by_status(s), filtering
// in-process on the externally-rendered status (spec.md §8 "Filter
// equivalence").
func (m *Manager) ListByStatus(ctx context.Context, externalStatus string) ([]*types.Honeypot, error) {
	all, err := m.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Honeypot, 0, len(all))
	for _, hp := range all {
		if hp.Status.External() == externalStatus {
			out = append(out, hp)
		}
	}
	return out, nil
}

// Catalog exposes the active type catalog, e.g. for GET /types.
func (m *Manager) Catalog() *Catalog {
	return m.catalog.Catalog()
}

func (m *Manager) describe(ctx context.Context, name string) (*types.Honeypot, error) {
	spec := &honeypotSpec{name: name}
	status, err := m.lifecyle.Status(ctx, spec)
	if err != nil {
		return nil, err
	}
	if status == types.StatusNotFound {
		return nil, nil
	}
	honeypotType, port, err := parseName(name)
	if err != nil {
		return nil, hiveerr.New(hiveerr.KindContainerFailure, "managed container has an unrecognized name", err)
	}
	tc, _ := m.catalog.Catalog().Get(honeypotType)
	return &types.Honeypot{
		Name:      name,
		Type:      honeypotType,
		HostPort:  port,
		Image:     types.Image(honeypotType),
		Labels:    (&honeypotSpec{name: name, honeyType: honeypotType, hostPort: port}).labels(),
		Status:    status,
		Resources: tc.Resources,
	}, nil
}

func (m *Manager) describeAll(ctx context.Context, names []string) ([]*types.Honeypot, error) {
	out := make([]*types.Honeypot, 0, len(names))
	for _, name := range names {
		hp, err := m.describe(ctx, name)
		if err != nil {
			return nil, err
		}
		if hp != nil {
			out = append(out, hp)
		}
	}
	return out, nil
}

// listNamesByLabel queries the runtime for container names matching
// a label filter (spec.md §4.4 "discover by label").
func (m *Manager) listNamesByLabel(ctx context.Context, labelFilter string) ([]string, error) {
	out, err := m.driver.Run(ctx, []string{
		"ps", "-a", "--filter", "label=" + labelFilter, "--format", "{{.Names}}",
	}, runtime.WithCapture())
	if err != nil {
		return nil, err
	}
	return splitNonEmptyLines(out), nil
}

func splitNonEmptyLines(out []byte) []string {
	var names []string
	start := 0
	for i, b := range out {
		if b == '\n' {
			if line := string(out[start:i]); line != "" {
				names = append(names, line)
			}
			start = i + 1
		}
	}
	if start < len(out) {
		if line := string(out[start:]); line != "" {
			names = append(names, line)
		}
	}
	return names
}

func parseName(name string) (honeypotType string, port int, err error) {
	const prefix = "hive-"
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return "", 0, fmt.Errorf("not a hive container name: %s", name)
	}
	rest := name[len(prefix):]
	idx := -1
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == '-' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", 0, fmt.Errorf("malformed honeypot name: %s", name)
	}
	honeypotType = rest[:idx]
	port, err = strconv.Atoi(rest[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed honeypot name: %s", name)
	}
	return honeypotType, port, nil
}

func portFromName(name string) (int, error) {
	_, port, err := parseName(name)
	return port, err
}

// recordMetrics refreshes the hive_honeypots_total gauge from a fresh listing.
func (m *Manager) recordMetrics(all []*types.Honeypot) {
	counts := map[[2]string]int{}
	for _, hp := range all {
		counts[[2]string{hp.Type, hp.Status.External()}]++
	}
	for k, v := range counts {
		metrics.HoneypotsTotal.WithLabelValues(k[0], k[1]).Set(float64(v))
	}
}
