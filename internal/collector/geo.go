package collector

import (
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/shaveen-balasooriya/hive/internal/types"
)

// GeoLookup resolves an attacker IP to a location, kept open for the
// process lifetime (spec.md §4.6 step 1).
type GeoLookup struct {
	reader *geoip2.Reader
}

// OpenGeoLookup opens the MaxMind database at path, read-only.
func OpenGeoLookup(path string) (*GeoLookup, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoLookup{reader: reader}, nil
}

// Close releases the underlying database handle.
func (g *GeoLookup) Close() error {
	return g.reader.Close()
}

// Lookup resolves ip to a location and country. ok is false when the
// address can't be parsed, has no city record, the coordinates fall
// outside WGS-84 bounds (spec.md §4.6 step 3), or the record carries
// the (0, 0) placeholder coordinates — callers must
// simply omit both fields rather than fail the record.
func (g *GeoLookup) Lookup(ip string) (loc *types.Location, country string, ok bool) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, "", false
	}
	record, err := g.reader.City(parsed)
	if err != nil {
		return nil, "", false
	}
	lat := record.Location.Latitude
	lon := record.Location.Longitude
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, "", false
	}
	if lat == 0 && lon == 0 {
		return nil, "", false
	}
	name := record.Country.Names["en"]
	return &types.Location{Lat: lat, Lon: lon}, name, true
}
