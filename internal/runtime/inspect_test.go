package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/shaveen-balasooriya/hive/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestMapState(t *testing.T) {
	cases := []struct {
		state string
		want  types.Status
	}{
		{"running", types.StatusRunning},
		{"exited", types.StatusExited},
		{"stopped", types.StatusExited},
		{"created", types.StatusConfigured},
		{"configured", types.StatusConfigured},
		{"unknown-state", types.StatusConfigured},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, mapState(c.state))
	}
}

func TestStatusNotFoundWhenContainerAbsent(t *testing.T) {
	bin := fakeBinary(t, 1, "", "") // "container exists" probe fails => absent
	d, err := New(bin, time.Second)
	assert.NoError(t, err)

	status, err := d.Status(context.Background(), "hive-ssh-2222")
	assert.NoError(t, err)
	assert.Equal(t, types.StatusNotFound, status)
}
