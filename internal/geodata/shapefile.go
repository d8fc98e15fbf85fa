package geodata

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"
)

// parsePlaces reads a TIGER PLACE shapefile into Place rows. Records missing
// identity fields or with an unknown state FIPS are dropped.
func parsePlaces(shpPath string) ([]Place, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "geodata: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	attr := func(name string) string {
		idx, ok := fieldIdx[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
	}

	var places []Place
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		p, ok := buildPlace(attr("geoid"), attr("name"), attr("statefp"),
			attr("intptlat"), attr("intptlon"), shape)
		if !ok {
			skipped++
			continue
		}
		places = append(places, p)
	}

	if skipped > 0 {
		zap.L().Debug("geodata: skipped malformed place records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	return places, nil
}

// buildPlace assembles one Place from raw shapefile fields. The internal
// point (INTPTLAT/INTPTLON) is the centroid used by the nearest-place
// fallback; records without a decodable boundary still load with a
// degenerate bounding box at the centroid.
func buildPlace(geoid, name, statefp, latStr, lonStr string, shape shp.Shape) (Place, bool) {
	state, okState := abbrFromFIPS(statefp)
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	if geoid == "" || name == "" || !okState || errLat != nil || errLon != nil {
		return Place{}, false
	}

	p := Place{
		GeoID:  geoid,
		Name:   name,
		State:  state,
		Lat:    lat,
		Lon:    lon,
		MinLat: lat,
		MinLon: lon,
		MaxLat: lat,
		MaxLon: lon,
	}

	if poly, ok := shape.(*shp.Polygon); ok && poly != nil {
		if wkb, err := encodePolygon(poly); err != nil {
			zap.L().Debug("geodata: boundary encode failed",
				zap.String("geoid", geoid),
				zap.Error(err),
			)
		} else {
			box := poly.BBox()
			p.MinLon, p.MinLat = box.MinX, box.MinY
			p.MaxLon, p.MaxLat = box.MaxX, box.MaxY
			p.Geom = wkb
		}
	}

	return p, true
}

// encodePolygon converts a shapefile polygon to EWKB multipolygon bytes with
// SRID 4326. Each shapefile part becomes its own single-ring polygon.
func encodePolygon(p *shp.Polygon) ([]byte, error) {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil, eris.New("geodata: empty polygon")
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("geodata: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("geodata: skipping malformed part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}
	if mp.NumPolygons() == 0 {
		return nil, eris.New("geodata: no usable rings")
	}

	data, err := ewkb.Marshal(mp, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geodata: encode boundary")
	}
	return data, nil
}
