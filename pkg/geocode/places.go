package geocode

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/sells-group/leadsnap/internal/db"
)

// nearbyRadiusKM bounds the centroid fallback when no polygon contains the
// point. Coordinates taken outside city limits (highways, rural lots) still
// resolve to the closest town.
const nearbyRadiusKM = 25.0

// PlacesGeocoder reverse geocodes against the geo_places table. Candidate
// rows are narrowed by bounding box in SQL and the boundary test runs on the
// stored WKB geometry, so no spatial extension is needed.
type PlacesGeocoder struct {
	pool db.Pool
}

// NewPlacesGeocoder creates a reverse geocoder backed by geo_places.
func NewPlacesGeocoder(pool db.Pool) *PlacesGeocoder {
	return &PlacesGeocoder{pool: pool}
}

// Reverse resolves lat/lon to the census place containing it. When no
// boundary contains the point it falls back to the nearest place centroid
// within nearbyRadiusKM. Returns nil, nil when nothing matches.
func (g *PlacesGeocoder) Reverse(ctx context.Context, lat, lon float64) (*Result, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, eris.Errorf("geocode: coordinates out of range: %f, %f", lat, lon)
	}

	res, err := g.containing(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}

	return g.nearest(ctx, lat, lon)
}

// containing returns the smallest place whose boundary contains the point.
func (g *PlacesGeocoder) containing(ctx context.Context, lat, lon float64) (*Result, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT name, state, geom
		FROM geo_places
		WHERE $1 BETWEEN min_lon AND max_lon
		  AND $2 BETWEEN min_lat AND max_lat
		ORDER BY (max_lon - min_lon) * (max_lat - min_lat) ASC`,
		lon, lat,
	)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: query bbox candidates")
	}
	defer rows.Close()

	for rows.Next() {
		var name, state string
		var raw []byte
		if err := rows.Scan(&name, &state, &raw); err != nil {
			return nil, eris.Wrap(err, "geocode: scan candidate")
		}
		if len(raw) == 0 {
			continue
		}

		shape, err := ewkb.Unmarshal(raw)
		if err != nil {
			zap.L().Debug("geocode: skipping undecodable geometry",
				zap.String("place", name),
				zap.Error(err),
			)
			continue
		}

		if geomContains(shape, lon, lat) {
			return &Result{City: name, State: state}, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "geocode: iterate candidates")
	}
	return nil, nil
}

// nearest returns the closest place centroid within nearbyRadiusKM, or
// nil, nil when none is that close.
func (g *PlacesGeocoder) nearest(ctx context.Context, lat, lon float64) (*Result, error) {
	// 0.5 degrees of latitude is ~55km, comfortably past the cutoff even
	// after longitude shrinkage; the exact distance check happens below.
	const window = 0.5

	rows, err := g.pool.Query(ctx, `
		SELECT name, state, lat, lon
		FROM geo_places
		WHERE lat BETWEEN $1 - $3 AND $1 + $3
		  AND lon BETWEEN $2 - $3 AND $2 + $3`,
		lat, lon, window,
	)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: query nearby places")
	}
	defer rows.Close()

	var best *Result
	bestKM := nearbyRadiusKM

	for rows.Next() {
		var name, state string
		var plat, plon float64
		if err := rows.Scan(&name, &state, &plat, &plon); err != nil {
			return nil, eris.Wrap(err, "geocode: scan nearby place")
		}

		if d := haversineKM(lat, lon, plat, plon); d <= bestKM {
			bestKM = d
			best = &Result{City: name, State: state}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "geocode: iterate nearby places")
	}
	return best, nil
}

// geomContains reports whether the point lies inside the polygon or
// multipolygon, honoring interior rings as holes.
func geomContains(shape geom.T, x, y float64) bool {
	switch s := shape.(type) {
	case *geom.Polygon:
		return polygonContains(s, x, y)
	case *geom.MultiPolygon:
		for i := 0; i < s.NumPolygons(); i++ {
			if polygonContains(s.Polygon(i), x, y) {
				return true
			}
		}
	}
	return false
}

func polygonContains(p *geom.Polygon, x, y float64) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	stride := p.Layout().Stride()
	if !ringContains(p.LinearRing(0).FlatCoords(), stride, x, y) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if ringContains(p.LinearRing(i).FlatCoords(), stride, x, y) {
			return false
		}
	}
	return true
}

// ringContains runs the even-odd ray casting test over flat coordinates.
func ringContains(flat []float64, stride int, x, y float64) bool {
	if stride < 2 {
		return false
	}
	n := len(flat) / stride
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := flat[i*stride], flat[i*stride+1]
		xj, yj := flat[j*stride], flat[j*stride+1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// haversineKM returns the great-circle distance between two coordinates.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371.0

	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}
