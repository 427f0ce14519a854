// Package loginfra implements the Log Infrastructure Orchestrator of
// spec.md §4.5: three container.Spec values (search node, message
// bus, log collector) composed under one batched create/start/stop/
// delete/status-report contract.
package loginfra

import (
	"context"
	"fmt"

	"github.com/shaveen-balasooriya/hive/internal/honeypot"
	"github.com/shaveen-balasooriya/hive/internal/resources"
	"github.com/shaveen-balasooriya/hive/internal/types"
)

// Fixed names for the infrastructure trio (spec.md §3.5).
const (
	SearchNodeName   = "hive-search-node"
	SearchPodName    = "hive-search-pod"
	DashboardName    = "hive-search-dashboard"
	MessageBusName   = "hive-message-bus"
	LogCollectorName = "hive-log-collector"

	searchVolume = "hive-search-data"
)

func infraLabels(role string) map[string]string {
	return map[string]string{
		types.LabelType:  role,
		types.LabelOwner: types.OwnerValue,
	}
}

// searchNodeConfig carries the bootstrap-time inputs the search node
// and its dashboard sidecar need.
type searchNodeConfig struct {
	Image         string
	DashboardImage string
	AdminPassword string
}

// searchNode is the container.Spec for the search engine container,
// run inside a shared pod so the dashboard sidecar can reach it over
// loopback (spec.md §4.5).
type searchNode struct {
	cfg     searchNodeConfig
	network *resources.NetworkManager
	images  *resources.ImageManager
	volumes *resources.VolumeManager
}

func (s *searchNode) Name() string  { return SearchNodeName }
func (s *searchNode) Image() string { return s.cfg.Image }

func (s *searchNode) ExtraArgs() []string {
	args := []string{"--pod", SearchPodName}
	for k, v := range infraLabels("search-node") {
		args = append(args, "--label", fmt.Sprintf("%s=%s", k, v))
	}
	args = append(args,
		"-v", searchVolume+":/usr/share/opensearch/data",
		"-e", "discovery.type=single-node",
		"-e", "OPENSEARCH_JAVA_OPTS=-Xms1g -Xmx1g",
		"-e", "OPENSEARCH_INITIAL_ADMIN_PASSWORD="+s.cfg.AdminPassword,
	)
	return args
}

func (s *searchNode) PreCreate(ctx context.Context) error {
	if err := s.network.EnsureExists(ctx, honeypot.SharedNetwork); err != nil {
		return err
	}
	if err := s.volumes.EnsureExists(ctx, searchVolume); err != nil {
		return err
	}
	return s.images.EnsurePulled(ctx, s.cfg.Image)
}

func (s *searchNode) PostCreate(ctx context.Context) error { return nil }

// dashboard is the search engine's UI sidecar, sharing the search
// node's pod so it reaches the search engine over loopback without
// its own network hop (spec.md §4.5).
type dashboard struct {
	image  string
	images *resources.ImageManager
}

func (d *dashboard) Name() string  { return DashboardName }
func (d *dashboard) Image() string { return d.image }

func (d *dashboard) ExtraArgs() []string {
	args := []string{"--pod", SearchPodName}
	for k, v := range infraLabels("search-dashboard") {
		args = append(args, "--label", fmt.Sprintf("%s=%s", k, v))
	}
	return args
}

func (d *dashboard) PreCreate(ctx context.Context) error {
	if d.images == nil {
		return nil
	}
	return d.images.EnsurePulled(ctx, d.image)
}

func (d *dashboard) PostCreate(ctx context.Context) error { return nil }

// messageBus is the container.Spec for the JetStream-enabled NATS
// server, registered under a fixed DNS alias so honeypots can reach
// it by name without hardcoding an address (spec.md §4.5).
type messageBus struct {
	cfg     struct{ Image string }
	network *resources.NetworkManager
	images  *resources.ImageManager
}

func newMessageBus(image string, network *resources.NetworkManager, images *resources.ImageManager) *messageBus {
	m := &messageBus{network: network, images: images}
	m.cfg.Image = image
	return m
}

func (b *messageBus) Name() string  { return MessageBusName }
func (b *messageBus) Image() string { return b.cfg.Image }

func (b *messageBus) ExtraArgs() []string {
	args := []string{
		"-p", "4222:4222", "-p", "8222:8222",
		"--network", fmt.Sprintf("%s:alias=%s", honeypot.SharedNetwork, honeypot.BusAlias),
	}
	for k, v := range infraLabels("message-bus") {
		args = append(args, "--label", fmt.Sprintf("%s=%s", k, v))
	}
	args = append(args, "--", "-js", "-m", "8222")
	return args
}

func (b *messageBus) PreCreate(ctx context.Context) error {
	if err := b.network.EnsureExists(ctx, honeypot.SharedNetwork); err != nil {
		return err
	}
	return b.images.EnsurePulled(ctx, b.cfg.Image)
}

func (b *messageBus) PostCreate(ctx context.Context) error { return nil }

// LogCollectorEnv carries the endpoint/credential inputs the
// collector container needs at create time (spec.md §6.5).
type LogCollectorEnv struct {
	SearchHost     string
	SearchUser     string
	SearchPassword string
	BusURL         string
}

// logCollector is the container.Spec for the collector's own image,
// built from a project-local context (spec.md §4.5).
type logCollector struct {
	env          LogCollectorEnv
	buildContext string
	network      *resources.NetworkManager
	images       *resources.ImageManager
}

func (c *logCollector) Name() string  { return LogCollectorName }
func (c *logCollector) Image() string { return "hive-log-collector-image" }

func (c *logCollector) ExtraArgs() []string {
	args := []string{"--network", honeypot.SharedNetwork}
	for k, v := range infraLabels("log-collector") {
		args = append(args, "--label", fmt.Sprintf("%s=%s", k, v))
	}
	args = append(args,
		"-e", "OPENSEARCH_HOST="+c.env.SearchHost,
		"-e", "OPENSEARCH_USER="+c.env.SearchUser,
		"-e", "OPENSEARCH_PASSWORD="+c.env.SearchPassword,
		"-e", "NATS_URL="+c.env.BusURL,
	)
	return args
}

func (c *logCollector) PreCreate(ctx context.Context) error {
	if err := c.network.EnsureExists(ctx, honeypot.SharedNetwork); err != nil {
		return err
	}
	return c.images.EnsureBuilt(ctx, c.Image(), c.buildContext, "")
}

func (c *logCollector) PostCreate(ctx context.Context) error { return nil }
