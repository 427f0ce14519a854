package collector

import (
	"testing"
	"time"

	"github.com/shaveen-balasooriya/hive/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestDurationOfAttack(t *testing.T) {
	cases := []struct {
		name  string
		entry string
		exit  string
		want  int
	}{
		{"normal span", "2026-07-29T10:00:00Z", "2026-07-29T10:00:30Z", 30},
		{"empty entry", "", "2026-07-29T10:00:30Z", 0},
		{"empty exit", "2026-07-29T10:00:00Z", "", 0},
		{"unparseable entry", "not-a-time", "2026-07-29T10:00:30Z", 0},
		{"exit before entry", "2026-07-29T10:00:30Z", "2026-07-29T10:00:00Z", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, durationOfAttack(tc.entry, tc.exit))
		})
	}
}

func TestEnrichPopulatesDurationAndTimestampWithoutGeo(t *testing.T) {
	event := types.HoneypotEvent{
		HoneypotType: "ssh",
		AttackerIP:   "203.0.113.5",
		TimeOfEntry:  "2026-07-29T10:00:00Z",
		TimeOfExit:   "2026-07-29T10:01:00Z",
	}
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)

	enriched := enrich(event, nil, now)

	assert.Equal(t, 60, enriched.DurationOfAttack)
	assert.Equal(t, now, enriched.Timestamp)
	assert.Nil(t, enriched.Location)
	assert.Empty(t, enriched.Country)
	assert.Equal(t, event.AttackerIP, enriched.AttackerIP)
}
