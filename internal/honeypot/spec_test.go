package honeypot

import (
	"fmt"
	"testing"

	"github.com/shaveen-balasooriya/hive/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestHoneypotSpecExtraArgsPublishesPortsAndLimits(t *testing.T) {
	s := &honeypotSpec{
		name:      "hive-ssh-2222",
		honeyType: "ssh",
		hostPort:  2222,
		tc: types.TypeConfig{
			ContainerPort: []string{"22/tcp"},
			Banner:        "Welcome",
			Authentication: []types.Credential{
				{Username: "admin", Password: "hunter2"},
			},
		},
		policy: types.ResourcePolicy{
			CPUPeriod:   100000,
			CPUQuota:    50000,
			MemoryLimit: "512m",
		},
	}

	args := s.ExtraArgs()
	assert.Contains(t, args, "-p")
	assert.Contains(t, args, "2222:22/tcp")
	assert.Contains(t, args, "--cpu-period")
	assert.Contains(t, args, "100000")
	assert.Contains(t, args, "--memory")
	assert.Contains(t, args, "512m")
	assert.Contains(t, args, "--network")
	assert.Contains(t, args, SharedNetwork)
	assert.Contains(t, args, "HIVE_BANNER=Welcome")
	assert.Contains(t, args, "HIVE_AUTH_0_USER=admin")
	assert.Contains(t, args, "HIVE_AUTH_0_PASS=hunter2")
	assert.Contains(t, args, fmt.Sprintf("NATS_URL=nats://%s:%s", BusAlias, BusPort))
}

func TestHoneypotSpecExtraArgsMountsConfigReadOnly(t *testing.T) {
	s := &honeypotSpec{
		name:       "hive-ssh-2222",
		honeyType:  "ssh",
		hostPort:   2222,
		configPath: "/etc/hive/catalog.yaml",
	}
	args := s.ExtraArgs()
	assert.Contains(t, args, "/etc/hive/catalog.yaml:/app/config.yaml:ro")
}

func TestHoneypotSpecExtraArgsOmitsConfigMountWhenPathEmpty(t *testing.T) {
	s := &honeypotSpec{name: "hive-ssh-2222", honeyType: "ssh", hostPort: 2222}
	args := s.ExtraArgs()
	for _, a := range args {
		assert.NotContains(t, a, "/app/config.yaml")
	}
}

func TestHoneypotSpecExtraArgsPublishesPassiveRange(t *testing.T) {
	s := &honeypotSpec{
		name:      "hive-ftp-2121",
		honeyType: "ftp",
		hostPort:  2121,
		tc: types.TypeConfig{
			ContainerPort: []string{"21/tcp"},
			PassiveRange:  &types.PassiveRange{Start: 30000, End: 30002},
		},
	}

	args := s.ExtraArgs()
	assert.Contains(t, args, "30000:30000/tcp")
	assert.Contains(t, args, "30001:30001/tcp")
	assert.Contains(t, args, "30002:30002/tcp")
}

func TestVolumeNameIsolatesPerInstance(t *testing.T) {
	assert.Equal(t, "hive-ftp-2121-data", volumeName("hive-ftp-2121", "/data"))
}

func TestHoneypotSpecLabels(t *testing.T) {
	s := &honeypotSpec{name: "hive-ssh-2222", honeyType: "ssh", hostPort: 2222}
	labels := s.labels()
	assert.Equal(t, "ssh", labels[types.LabelType])
	assert.Equal(t, "2222", labels[types.LabelPort])
	assert.Equal(t, types.OwnerValue, labels[types.LabelOwner])
}
