package honeypot

import (
	"fmt"
	"strconv"
	"strings"

	"context"

	"github.com/shaveen-balasooriya/hive/internal/resources"
	"github.com/shaveen-balasooriya/hive/internal/types"
)

// honeypotSpec implements container.Spec for a single honeypot
// instance (spec.md §4.4). Port publication follows §3.3: declared
// container ports publish host_port:container_port; a passive range,
// if the type declares one, publishes 1:1 so the container sees the
// same port numbers the client connects to (FTP passive data mode).
type honeypotSpec struct {
	name       string
	image      string
	honeyType  string
	hostPort   int
	tc         types.TypeConfig
	policy     types.ResourcePolicy
	configPath string // on-disk catalog document, bind-mounted read-only

	network *resources.NetworkManager
	images  *resources.ImageManager
	volumes *resources.VolumeManager
}

func (s *honeypotSpec) Name() string  { return s.name }
func (s *honeypotSpec) Image() string { return s.image }

func (s *honeypotSpec) labels() map[string]string {
	return map[string]string{
		types.LabelService: types.HoneypotManagerService,
		types.LabelType:    s.honeyType,
		types.LabelPort:    strconv.Itoa(s.hostPort),
		types.LabelOwner:   types.OwnerValue,
	}
}

func (s *honeypotSpec) ExtraArgs() []string {
	var args []string

	for k, v := range s.labels() {
		args = append(args, "--label", fmt.Sprintf("%s=%s", k, v))
	}

	for _, containerPort := range s.tc.ContainerPort {
		proto := containerPort
		port := containerPort
		if idx := strings.IndexByte(containerPort, '/'); idx >= 0 {
			port = containerPort[:idx]
			proto = containerPort[idx+1:]
		} else {
			proto = "tcp"
		}
		args = append(args, "-p", fmt.Sprintf("%d:%s/%s", s.hostPort, port, proto))
	}

	if s.tc.PassiveRange != nil {
		for p := s.tc.PassiveRange.Start; p <= s.tc.PassiveRange.End; p++ {
			args = append(args, "-p", fmt.Sprintf("%d:%d/tcp", p, p))
		}
	}

	for _, vol := range s.tc.Volumes {
		args = append(args, "-v", fmt.Sprintf("%s:%s", volumeName(s.name, vol), vol))
	}

	if s.configPath != "" {
		args = append(args, "-v", fmt.Sprintf("%s:/app/config.yaml:ro", s.configPath))
	}

	if s.policy.CPUPeriod > 0 {
		args = append(args, "--cpu-period", strconv.FormatInt(s.policy.CPUPeriod, 10))
	}
	if s.policy.CPUQuota > 0 {
		args = append(args, "--cpu-quota", strconv.FormatInt(s.policy.CPUQuota, 10))
	}
	if s.policy.MemoryLimit != "" {
		args = append(args, "--memory", s.policy.MemoryLimit)
	}
	if s.policy.MemorySwapLimit != "" {
		args = append(args, "--memory-swap", s.policy.MemorySwapLimit)
	}

	args = append(args, "--network", SharedNetwork)

	args = append(args, "--env", fmt.Sprintf("NATS_URL=nats://%s:%s", BusAlias, BusPort))

	if s.tc.Banner != "" {
		args = append(args, "--env", "HIVE_BANNER="+s.tc.Banner)
	}
	for i, cred := range s.tc.Authentication {
		args = append(args, "--env", fmt.Sprintf("HIVE_AUTH_%d_USER=%s", i, cred.Username))
		args = append(args, "--env", fmt.Sprintf("HIVE_AUTH_%d_PASS=%s", i, cred.Password))
	}

	return args
}

// volumeName derives a per-container volume name for a mount point
// declared by the type catalog, keeping volumes isolated per instance.
func volumeName(containerName, mountPoint string) string {
	clean := strings.ReplaceAll(strings.TrimPrefix(mountPoint, "/"), "/", "-")
	return containerName + "-" + clean
}

// PreCreate ensures the shared network, the honeypot's image, and any
// declared volumes exist before the runtime create call (spec.md §9's
// non-recursive create sequencing: ensure-dependencies-then-create,
// never ensure-inside-create).
func (s *honeypotSpec) PreCreate(ctx context.Context) error {
	if err := s.network.EnsureExists(ctx, SharedNetwork); err != nil {
		return err
	}
	if s.tc.BuildContext != "" {
		if err := s.images.EnsureBuilt(ctx, s.image, s.tc.BuildContext, s.tc.Dockerfile); err != nil {
			return err
		}
	} else {
		if err := s.images.EnsurePulled(ctx, s.image); err != nil {
			return err
		}
	}
	for _, vol := range s.tc.Volumes {
		if err := s.volumes.EnsureExists(ctx, volumeName(s.name, vol)); err != nil {
			return err
		}
	}
	return nil
}

// PostCreate is a no-op for honeypots: everything needed at runtime
// (network, labels, env) is set at create time via ExtraArgs.
func (s *honeypotSpec) PostCreate(ctx context.Context) error {
	return nil
}
