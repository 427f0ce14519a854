package collector

import (
	"context"
	"time"

	"github.com/shaveen-balasooriya/hive/internal/log"
	"github.com/shaveen-balasooriya/hive/internal/metrics"
	"github.com/shaveen-balasooriya/hive/internal/types"
)

// Config carries the Log Collector daemon's construction-time inputs
// (spec.md §6.5).
type Config struct {
	GeoDatabasePath string
	Search          IndexConfig
	BusURL          string
}

// Daemon is the Log Collector of spec.md §4.6: bus consumer → enricher
// → indexer, owning the index template/mapping and the bus stream.
type Daemon struct {
	geo   *GeoLookup
	index *Index
	bus   *Bus
}

// Boot implements spec.md §4.6's boot sequence: open the geo database,
// bootstrap the search index, connect and bind the bus.
func Boot(ctx context.Context, cfg Config) (*Daemon, error) {
	geo, err := OpenGeoLookup(cfg.GeoDatabasePath)
	if err != nil {
		return nil, err
	}

	index, err := NewIndex(cfg.Search)
	if err != nil {
		geo.Close()
		return nil, err
	}
	if err := index.Bootstrap(ctx); err != nil {
		geo.Close()
		return nil, err
	}

	bus, err := Connect(cfg.BusURL)
	if err != nil {
		geo.Close()
		return nil, err
	}

	return &Daemon{geo: geo, index: index, bus: bus}, nil
}

// Close tears down the bus connection and the geo database handle.
func (d *Daemon) Close() {
	d.bus.Close()
	d.geo.Close()
}

// Run drives the single-threaded cooperative loop until ctx is
// canceled, enriching and indexing each delivered event.
func (d *Daemon) Run(ctx context.Context) error {
	logger := log.WithComponent("collector")
	logger.Info().Msg("log collector entering run loop")
	return d.bus.Run(ctx, func(ctx context.Context, event types.HoneypotEvent) error {
		timer := metrics.NewTimer()
		defer timer.ObserveDuration(metrics.CollectorIndexDuration)

		enriched := enrich(event, d.geo, time.Now())
		return d.index.Document(ctx, enriched)
	})
}
