package collector

import (
	"time"

	"github.com/shaveen-balasooriya/hive/internal/types"
)

// durationOfAttack implements spec.md §4.6 step 2: floor((exit -
// entry).total_seconds()), or 0 on any parse failure. A span where exit
// precedes entry also yields 0.
func durationOfAttack(timeOfEntry, timeOfExit string) int {
	if timeOfEntry == "" || timeOfExit == "" {
		return 0
	}
	entry, err := time.Parse(time.RFC3339, timeOfEntry)
	if err != nil {
		return 0
	}
	exit, err := time.Parse(time.RFC3339, timeOfExit)
	if err != nil {
		return 0
	}
	seconds := int(exit.Sub(entry).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}

// enrich turns a raw bus event into the indexed document shape (spec.md
// §4.6 steps 2–4). Geo lookup failures never fail the record — location
// and country are simply omitted (step 3).
func enrich(event types.HoneypotEvent, geo *GeoLookup, now time.Time) types.EnrichedEvent {
	enriched := types.EnrichedEvent{
		HoneypotEvent:    event,
		DurationOfAttack: durationOfAttack(event.TimeOfEntry, event.TimeOfExit),
		Timestamp:        now.UTC(),
	}
	if geo != nil {
		if loc, country, ok := geo.Lookup(event.AttackerIP); ok {
			enriched.Location = loc
			enriched.Country = country
		}
	}
	return enriched
}
