// Package honeypot implements the Honeypot Manager of spec.md §4.4:
// the type catalog, port policy, active-connection safety, and the
// public create/start/stop/restart/delete/inspect/list contract.
package honeypot

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaveen-balasooriya/hive/internal/log"
	"github.com/shaveen-balasooriya/hive/internal/types"
)

// Catalog is a snapshot of the honeypot type catalog (spec.md §3.3).
// Consumers receive a snapshot reference (spec.md §9) and never
// observe a partially-reloaded document.
type Catalog struct {
	Types map[string]types.TypeConfig
}

// Get looks up a type by key.
func (c *Catalog) Get(typeKey string) (types.TypeConfig, bool) {
	tc, ok := c.Types[typeKey]
	return tc, ok
}

// Keys returns the catalog's type keys.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.Types))
	for k := range c.Types {
		keys = append(keys, k)
	}
	return keys
}

// defaultCatalog is the built-in fallback used when no document is
// present on disk, covering the three honeypot types named in
// spec.md §3.3.
func defaultCatalog() *Catalog {
	return &Catalog{
		Types: map[string]types.TypeConfig{
			"ssh": {
				Type:          "ssh",
				ContainerPort: []string{"22/tcp"},
				BuildContext:  "honeypots/ssh",
				Resources:     types.DefaultResourcePolicy(),
			},
			"ftp": {
				Type:          "ftp",
				ContainerPort: []string{"21/tcp"},
				PassiveRange:  &types.PassiveRange{Start: 30000, End: 30010},
				BuildContext:  "honeypots/ftp",
				Resources:     types.DefaultResourcePolicy(),
			},
			"http": {
				Type:          "http",
				ContainerPort: []string{"80/tcp"},
				BuildContext:  "honeypots/http",
				Resources:     types.DefaultResourcePolicy(),
			},
		},
	}
}

// document is the on-disk YAML shape the catalog is decoded from.
type document struct {
	Types map[string]typeDocument `yaml:"types"`
}

type rangeDocument struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

type resourcesDocument struct {
	CPUPeriod       int64  `yaml:"cpu_period"`
	CPUQuota        int64  `yaml:"cpu_quota"`
	MemoryLimit     string `yaml:"memory_limit"`
	MemorySwapLimit string `yaml:"memory_swap_limit"`
}

type typeDocument struct {
	ContainerPort  []string            `yaml:"container_port"`
	PassiveRange   *rangeDocument       `yaml:"passive_range"`
	Volumes        []string            `yaml:"volumes"`
	BuildContext   string              `yaml:"build_context"`
	Dockerfile     string              `yaml:"dockerfile"`
	Resources      *resourcesDocument  `yaml:"resources"`
	Authentication []types.Credential  `yaml:"authentication"`
	Banner         string              `yaml:"banner"`
}

func decodeCatalog(raw []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	cat := &Catalog{Types: make(map[string]types.TypeConfig, len(doc.Types))}
	for key, entry := range doc.Types {
		tc := types.TypeConfig{
			Type:           key,
			ContainerPort:  entry.ContainerPort,
			Volumes:        entry.Volumes,
			BuildContext:   entry.BuildContext,
			Dockerfile:     entry.Dockerfile,
			Authentication: entry.Authentication,
			Banner:         entry.Banner,
			Resources:      types.DefaultResourcePolicy(),
		}
		if entry.PassiveRange != nil {
			tc.PassiveRange = &types.PassiveRange{Start: entry.PassiveRange.Start, End: entry.PassiveRange.End}
		}
		if entry.Resources != nil {
			if entry.Resources.CPUPeriod > 0 {
				tc.Resources.CPUPeriod = entry.Resources.CPUPeriod
			}
			if entry.Resources.CPUQuota > 0 {
				tc.Resources.CPUQuota = entry.Resources.CPUQuota
			}
			if entry.Resources.MemoryLimit != "" {
				tc.Resources.MemoryLimit = entry.Resources.MemoryLimit
			}
			if entry.Resources.MemorySwapLimit != "" {
				tc.Resources.MemorySwapLimit = entry.Resources.MemorySwapLimit
			}
		}
		cat.Types[key] = tc
	}
	return cat, nil
}

// CatalogLoader reloads the catalog document when its mtime changes
// and atomically swaps the active snapshot (spec.md §9 "Dynamic config").
type CatalogLoader struct {
	path string

	current atomic.Pointer[Catalog]
	mtime   atomic.Int64 // unix nanos of the last-loaded mtime

	mu sync.Mutex // serializes writes to the on-disk document (per-type overrides)
}

// NewCatalogLoader constructs a loader for the document at path. If
// path is empty or unreadable at construction time, the built-in
// default catalog is used until a document appears.
func NewCatalogLoader(path string) *CatalogLoader {
	l := &CatalogLoader{path: path}
	l.current.Store(defaultCatalog())
	l.reload()
	return l
}

// Catalog returns the current snapshot.
func (l *CatalogLoader) Catalog() *Catalog {
	return l.current.Load()
}

// Path returns the on-disk catalog document path, or "" if the loader
// has none (built-in default only).
func (l *CatalogLoader) Path() string {
	return l.path
}

// Poll checks the document's mtime and reloads if it changed. Callers
// run this on a ticker; readers of Catalog() never block on a reload.
func (l *CatalogLoader) Poll() {
	l.reload()
}

func (l *CatalogLoader) reload() {
	if l.path == "" {
		return
	}
	info, err := os.Stat(l.path)
	if err != nil {
		return
	}
	mtime := info.ModTime().UnixNano()
	if mtime == l.mtime.Load() {
		return
	}
	raw, err := os.ReadFile(l.path)
	if err != nil {
		log.WithComponent("honeypot.catalog").Warn().Err(err).Msg("failed to read catalog document")
		return
	}
	cat, err := decodeCatalog(raw)
	if err != nil {
		log.WithComponent("honeypot.catalog").Warn().Err(err).Msg("failed to decode catalog document")
		return
	}
	l.current.Store(cat)
	l.mtime.Store(mtime)
}

// PollLoop runs Poll on interval until stop is closed.
func (l *CatalogLoader) PollLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Poll()
		case <-stop:
			return
		}
	}
}

// WriteOverride rewrites the on-disk config for typeKey with the
// given authentication/banner overrides, serialized per type (spec.md
// §5 "Shared resources": "writes are serialized per type"), and swaps
// the in-memory snapshot directly so subsequent reads see the change
// without waiting for a reload.
func (l *CatalogLoader) WriteOverride(typeKey string, auth []types.Credential, banner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cat := l.current.Load()
	tc, ok := cat.Get(typeKey)
	if !ok {
		return fmt.Errorf("unknown type %q", typeKey)
	}
	if len(auth) > 0 {
		tc.Authentication = auth
	}
	if banner != "" {
		tc.Banner = banner
	}

	updated := &Catalog{Types: make(map[string]types.TypeConfig, len(cat.Types))}
	for k, v := range cat.Types {
		updated.Types[k] = v
	}
	updated.Types[typeKey] = tc
	l.current.Store(updated)

	if l.path != "" {
		return l.persist(updated)
	}
	return nil
}

func (l *CatalogLoader) persist(cat *Catalog) error {
	doc := document{Types: make(map[string]typeDocument, len(cat.Types))}

	for key, tc := range cat.Types {
		entry := typeDocument{
			ContainerPort:  tc.ContainerPort,
			Volumes:        tc.Volumes,
			BuildContext:   tc.BuildContext,
			Dockerfile:     tc.Dockerfile,
			Authentication: tc.Authentication,
			Banner:         tc.Banner,
			Resources: &resourcesDocument{
				CPUPeriod:       tc.Resources.CPUPeriod,
				CPUQuota:        tc.Resources.CPUQuota,
				MemoryLimit:     tc.Resources.MemoryLimit,
				MemorySwapLimit: tc.Resources.MemorySwapLimit,
			},
		}
		if tc.PassiveRange != nil {
			entry.PassiveRange = &rangeDocument{Start: tc.PassiveRange.Start, End: tc.PassiveRange.End}
		}
		doc.Types[key] = entry
	}

	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return os.WriteFile(l.path, raw, 0644)
}
