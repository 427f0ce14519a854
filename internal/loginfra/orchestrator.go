package loginfra

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/shaveen-balasooriya/hive/internal/container"
	"github.com/shaveen-balasooriya/hive/internal/hiveerr"
	"github.com/shaveen-balasooriya/hive/internal/honeypot"
	"github.com/shaveen-balasooriya/hive/internal/log"
	"github.com/shaveen-balasooriya/hive/internal/metrics"
	"github.com/shaveen-balasooriya/hive/internal/resources"
	"github.com/shaveen-balasooriya/hive/internal/runtime"
	"github.com/shaveen-balasooriya/hive/internal/types"
)

// minFreeDiskBytes is spec.md §4.5's "≥ 8 GiB free disk" requirement.
const minFreeDiskBytes = 8 * 1024 * 1024 * 1024

// candidateStoragePaths are checked in order by checkDiskSpace; the
// check passes on the first path with enough free space.
var candidateStoragePaths = []string{"/var/lib/containers/storage", "/var/lib", "/"}

// bootstrapWait is the pause start_all() observes between starting
// the bus and starting the collector (spec.md §4.5).
var bootstrapWait = 5 * time.Second

// Config carries the orchestrator's construction-time inputs.
type Config struct {
	SearchImage      string
	DashboardImage   string
	MessageBusImage  string
	CollectorContext string
	SearchUser       string
}

// Orchestrator composes the infrastructure trio's container.Spec
// values under one batched lifecycle (spec.md §4.5), grounded in the
// teacher's pkg/reconciler orchestration-over-subsystems shape.
type Orchestrator struct {
	driver   *runtime.Driver
	lifecyle *container.Manager
	network  *resources.NetworkManager
	images   *resources.ImageManager
	volumes  *resources.VolumeManager

	cfg    Config
	logger zerolog.Logger
}

// New constructs an Orchestrator over the shared runtime driver.
func New(driver *runtime.Driver, cfg Config) *Orchestrator {
	return &Orchestrator{
		driver:   driver,
		lifecyle: container.New(driver),
		network:  resources.NewNetworkManager(driver),
		images:   resources.NewImageManager(driver),
		volumes:  resources.NewVolumeManager(driver),
		cfg:      cfg,
		logger:   log.WithComponent("loginfra"),
	}
}

func (o *Orchestrator) searchSpec(adminPassword string) *searchNode {
	return &searchNode{
		cfg: searchNodeConfig{
			Image:          o.cfg.SearchImage,
			DashboardImage: o.cfg.DashboardImage,
			AdminPassword:  adminPassword,
		},
		network: o.network,
		images:  o.images,
		volumes: o.volumes,
	}
}

func (o *Orchestrator) dashboardSpec() *dashboard {
	return &dashboard{image: o.cfg.DashboardImage, images: o.images}
}

func (o *Orchestrator) busSpec() *messageBus {
	return newMessageBus(o.cfg.MessageBusImage, o.network, o.images)
}

func (o *Orchestrator) collectorSpec(env LogCollectorEnv) *logCollector {
	return &logCollector{
		env:          env,
		buildContext: o.cfg.CollectorContext,
		network:      o.network,
		images:       o.images,
	}
}

// ensurePod creates the search pod if absent, joined to the shared
// network so the collector (itself on that network) can resolve the
// search node by name (spec.md §4.5).
func (o *Orchestrator) ensurePod(ctx context.Context) error {
	if o.driver.PodExists(ctx, SearchPodName) {
		return nil
	}
	if err := o.network.EnsureExists(ctx, honeypot.SharedNetwork); err != nil {
		return err
	}
	_, err := o.driver.Run(ctx, []string{"pod", "create", "--name", SearchPodName, "--network", honeypot.SharedNetwork})
	if err != nil {
		if o.driver.PodExists(ctx, SearchPodName) {
			return nil
		}
		return err
	}
	return nil
}

// checkDiskSpace implements spec.md §4.5's "requires ≥ 8 GiB free
// disk on any of a known list of storage paths" precondition: it
// passes as soon as one candidate clears the threshold, and only
// fails once every candidate has been checked.
func checkDiskSpace() error {
	var lastErr error
	checked := false
	for _, path := range candidateStoragePaths {
		var stat syscall.Statfs_t
		if err := syscall.Statfs(path, &stat); err != nil {
			lastErr = err
			continue
		}
		checked = true
		free := stat.Bavail * uint64(stat.Bsize)
		if free >= minFreeDiskBytes {
			return nil
		}
	}
	if !checked {
		return hiveerr.HostResourceFailure("no candidate storage path is statable", lastErr)
	}
	return hiveerr.New(hiveerr.KindHostResourceFailure,
		"insufficient free disk on every candidate storage path: need 8 GiB", nil)
}

// CreateAll creates the trio in dependency-safe order: network →
// search → bus → collector (spec.md §4.5).
func (o *Orchestrator) CreateAll(ctx context.Context, adminPassword string, env LogCollectorEnv) error {
	if err := checkDiskSpace(); err != nil {
		return err
	}
	if err := o.ensurePod(ctx); err != nil {
		return err
	}

	search := o.searchSpec(adminPassword)
	if err := o.lifecyle.Create(ctx, search); err != nil {
		return err
	}
	if err := o.lifecyle.Create(ctx, o.dashboardSpec()); err != nil {
		return err
	}
	if err := o.lifecyle.Create(ctx, o.busSpec()); err != nil {
		return err
	}
	if err := o.lifecyle.Create(ctx, o.collectorSpec(env)); err != nil {
		return err
	}
	return nil
}

// StartAll starts search, then the bus, then waits bootstrapWait
// before starting the collector so its initial connect succeeds
// (spec.md §4.5).
func (o *Orchestrator) StartAll(ctx context.Context) error {
	if err := o.lifecyle.Start(ctx, &searchNode{}); err != nil {
		return err
	}
	if err := o.lifecyle.Start(ctx, &dashboard{}); err != nil {
		return err
	}
	if err := o.lifecyle.Start(ctx, &messageBus{}); err != nil {
		return err
	}

	select {
	case <-time.After(bootstrapWait):
	case <-ctx.Done():
		return hiveerr.New(hiveerr.KindBootstrapTimeout, "context canceled during bootstrap wait", ctx.Err())
	}

	if err := o.lifecyle.Start(ctx, &logCollector{}); err != nil {
		return err
	}
	return nil
}

// StopAll stops in reverse order, skipping whatever is not running.
func (o *Orchestrator) StopAll(ctx context.Context) error {
	specs := []container.Spec{&logCollector{}, &messageBus{}, &dashboard{}, &searchNode{}}
	for _, s := range specs {
		status, err := o.lifecyle.Status(ctx, s)
		if err != nil {
			return err
		}
		if status != types.StatusRunning {
			continue
		}
		if err := o.lifecyle.Stop(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll refuses to proceed if any of the trio is running.
func (o *Orchestrator) DeleteAll(ctx context.Context) error {
	running, err := o.AnyRunning(ctx)
	if err != nil {
		return err
	}
	if running {
		return hiveerr.New(hiveerr.KindContainerBusy, "cannot delete infrastructure while any component is running", nil)
	}
	specs := []container.Spec{&logCollector{}, &messageBus{}, &dashboard{}, &searchNode{}}
	for _, s := range specs {
		if err := o.lifecyle.Delete(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// StatusReport is the {open_search_node, nats_server, log_collector,
// open_search_dashboard} shape of spec.md §6.2's `GET /status`.
type StatusReport struct {
	OpenSearchNode      string `json:"open_search_node"`
	NatsServer          string `json:"nats_server"`
	LogCollector        string `json:"log_collector"`
	OpenSearchDashboard string `json:"open_search_dashboard"`
}

func (o *Orchestrator) StatusReport(ctx context.Context) (*StatusReport, error) {
	search, err := o.lifecyle.Status(ctx, &searchNode{})
	if err != nil {
		return nil, err
	}
	bus, err := o.lifecyle.Status(ctx, &messageBus{})
	if err != nil {
		return nil, err
	}
	collector, err := o.lifecyle.Status(ctx, &logCollector{})
	if err != nil {
		return nil, err
	}
	dash, err := o.lifecyle.Status(ctx, &dashboard{})
	if err != nil {
		return nil, err
	}
	report := &StatusReport{
		OpenSearchNode:      string(search),
		NatsServer:          string(bus),
		LogCollector:        string(collector),
		OpenSearchDashboard: string(dash),
	}
	o.recordMetrics(report)
	return report, nil
}

func (o *Orchestrator) recordMetrics(r *StatusReport) {
	up := func(name, status string) float64 {
		if status == string(types.StatusRunning) {
			return 1
		}
		return 0
	}
	metrics.InfraContainersUp.WithLabelValues(SearchNodeName).Set(up(SearchNodeName, r.OpenSearchNode))
	metrics.InfraContainersUp.WithLabelValues(MessageBusName).Set(up(MessageBusName, r.NatsServer))
	metrics.InfraContainersUp.WithLabelValues(LogCollectorName).Set(up(LogCollectorName, r.LogCollector))
	metrics.InfraContainersUp.WithLabelValues(DashboardName).Set(up(DashboardName, r.OpenSearchDashboard))
}

// AnyExists reports whether any of the trio (excluding the dashboard
// sidecar) has a runtime record.
func (o *Orchestrator) AnyExists(ctx context.Context) (bool, error) {
	for _, s := range []container.Spec{&searchNode{}, &messageBus{}, &logCollector{}} {
		if o.lifecyle.Exists(ctx, s) {
			return true, nil
		}
	}
	return false, nil
}

// ExistingNames lists the names of the trio (excluding the dashboard
// sidecar) that already have a runtime record, so callers can report
// exactly which containers block a create (spec.md §6.2's `POST
// /create` conflict detail).
func (o *Orchestrator) ExistingNames(ctx context.Context) ([]string, error) {
	var names []string
	for _, s := range []container.Spec{&searchNode{}, &messageBus{}, &logCollector{}} {
		if o.lifecyle.Exists(ctx, s) {
			names = append(names, s.Name())
		}
	}
	return names, nil
}

// AnyRunning reports whether any of the trio is currently running.
func (o *Orchestrator) AnyRunning(ctx context.Context) (bool, error) {
	for _, s := range []container.Spec{&searchNode{}, &messageBus{}, &logCollector{}} {
		status, err := o.lifecyle.Status(ctx, s)
		if err != nil {
			return false, err
		}
		if status == types.StatusRunning {
			return true, nil
		}
	}
	return false, nil
}

// Missing reports whether any of the trio is absent.
func (o *Orchestrator) Missing(ctx context.Context) (bool, error) {
	for _, s := range []container.Spec{&searchNode{}, &messageBus{}, &logCollector{}} {
		status, err := o.lifecyle.Status(ctx, s)
		if err != nil {
			return false, err
		}
		if status == types.StatusNotFound {
			return true, nil
		}
	}
	return false, nil
}

// NotRunning reports whether any of the trio is not currently running.
func (o *Orchestrator) NotRunning(ctx context.Context) (bool, error) {
	for _, s := range []container.Spec{&searchNode{}, &messageBus{}, &logCollector{}} {
		status, err := o.lifecyle.Status(ctx, s)
		if err != nil {
			return false, err
		}
		if status != types.StatusRunning {
			return true, nil
		}
	}
	return false, nil
}

// RunningServices lists the currently-running managed container
// names, for spec.md §6.2's `GET /services`.
func (o *Orchestrator) RunningServices(ctx context.Context) ([]string, error) {
	var names []string
	all := map[string]container.Spec{
		SearchNodeName:   &searchNode{},
		DashboardName:    &dashboard{},
		MessageBusName:   &messageBus{},
		LogCollectorName: &logCollector{},
	}
	for name, s := range all {
		status, err := o.lifecyle.Status(ctx, s)
		if err != nil {
			return nil, err
		}
		if status == types.StatusRunning {
			names = append(names, name)
		}
	}
	return names, nil
}
