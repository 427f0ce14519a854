package honeypot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaveen-balasooriya/hive/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogCoversBuiltinTypes(t *testing.T) {
	cat := defaultCatalog()
	for _, typeKey := range []string{"ssh", "ftp", "http"} {
		_, ok := cat.Get(typeKey)
		assert.True(t, ok, "expected built-in type %q", typeKey)
	}
}

func TestDecodeCatalog(t *testing.T) {
	raw := []byte(`
types:
  telnet:
    container_port: ["23/tcp"]
    build_context: honeypots/telnet
    resources:
      cpu_period: 200000
      cpu_quota: 100000
      memory_limit: "1g"
`)
	cat, err := decodeCatalog(raw)
	require.NoError(t, err)

	tc, ok := cat.Get("telnet")
	require.True(t, ok)
	assert.Equal(t, []string{"23/tcp"}, tc.ContainerPort)
	assert.Equal(t, int64(200000), tc.Resources.CPUPeriod)
	assert.Equal(t, int64(100000), tc.Resources.CPUQuota)
	assert.Equal(t, "1g", tc.Resources.MemoryLimit)
	// Unset fields in the document fall back to policy defaults.
	assert.Equal(t, "512m", tc.Resources.MemorySwapLimit)
}

func TestCatalogLoaderFallsBackToDefaultWithNoPath(t *testing.T) {
	loader := NewCatalogLoader("")
	_, ok := loader.Catalog().Get("ssh")
	assert.True(t, ok)
	assert.Equal(t, "", loader.Path())
}

func TestCatalogLoaderPathReturnsConstructedPath(t *testing.T) {
	loader := NewCatalogLoader("/etc/hive/catalog.yaml")
	assert.Equal(t, "/etc/hive/catalog.yaml", loader.Path())
}

func TestCatalogLoaderReloadsOnMtimeChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
types:
  ssh:
    container_port: ["22/tcp"]
    build_context: honeypots/ssh
`), 0644))

	loader := NewCatalogLoader(path)
	_, ok := loader.Catalog().Get("ssh")
	require.True(t, ok)
	_, ok = loader.Catalog().Get("ftp")
	assert.False(t, ok, "document only declares ssh")

	// Bump the mtime with new content and poll again.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`
types:
  ssh:
    container_port: ["22/tcp"]
    build_context: honeypots/ssh
  ftp:
    container_port: ["21/tcp"]
    build_context: honeypots/ftp
`), 0644))
	loader.Poll()

	_, ok = loader.Catalog().Get("ftp")
	assert.True(t, ok, "expected reload to pick up the new ftp entry")
}

func TestWriteOverridePersistsAuthAndBanner(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
types:
  ssh:
    container_port: ["22/tcp"]
    build_context: honeypots/ssh
`), 0644))

	loader := NewCatalogLoader(path)
	creds := []types.Credential{{Username: "root", Password: "toor"}}
	require.NoError(t, loader.WriteOverride("ssh", creds, "Welcome to corp-gateway"))

	tc, ok := loader.Catalog().Get("ssh")
	require.True(t, ok)
	assert.Equal(t, creds, tc.Authentication)
	assert.Equal(t, "Welcome to corp-gateway", tc.Banner)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Welcome to corp-gateway")
}

func TestWriteOverrideUnknownType(t *testing.T) {
	loader := NewCatalogLoader("")
	err := loader.WriteOverride("nonexistent", nil, "banner")
	assert.Error(t, err)
}
