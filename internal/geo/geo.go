// Package geo georeferences the local scene frame. The configured origin
// latitude/longitude maps to local (0,0); +Y points north and +X east,
// with local distances in centimetres.
package geo

import (
	"errors"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/tellofleet/sim/internal/model"
)

// Metres spanned by one degree of latitude on the WGS84 ellipsoid.
const metresPerDegree = 111320.0

// ErrInvalidOrigin is returned for origin coordinates off the ellipsoid.
var ErrInvalidOrigin = errors.New("origin coordinates out of range")

// Anchor converts local scene positions to geodetic and Web Mercator
// coordinates. Snapshots are published in 4326 and 3857 so downstream
// consumers never need the scene origin.
type Anchor struct {
	lat, lon   float64
	toMercator func(a, b, c float64) (float64, float64, float64)
}

func NewAnchor(lat, lon float64) (*Anchor, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, ErrInvalidOrigin
	}
	return &Anchor{
		lat:        lat,
		lon:        lon,
		toMercator: wgs84.EPSG().Transform(4326, 3857),
	}, nil
}

// Geodetic maps a local position in centimetres to the published
// geodetic block.
func (a *Anchor) Geodetic(p model.Vec3) model.GeoPosition {
	lat := a.lat + (p.Y/100)/metresPerDegree
	lon := a.lon + (p.X/100)/(metresPerDegree*math.Cos(a.lat*math.Pi/180))
	mx, my, _ := a.toMercator(lon, lat, 0)
	return model.GeoPosition{
		Latitude:  lat,
		Longitude: lon,
		AltitudeM: p.Z / 100,
		MercX:     mx,
		MercY:     my,
	}
}

// Point builds the 3857 point for a local position, elevation in metres.
func (a *Anchor) Point(p model.Vec3) geom.Point {
	g := a.Geodetic(p)
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: g.MercX, Y: g.MercY},
			Z:    g.AltitudeM,
			Type: geom.CoordinatesType(geom.DimXYZ),
		},
	)
}

// SceneFootprint is the scene boundary rectangle in the local frame,
// closed ring wound counter-clockwise.
func SceneFootprint(bounds model.Vec3) geom.Polygon {
	hx, hy := bounds.X/2, bounds.Y/2
	seq := geom.NewSequence([]float64{
		-hx, -hy,
		hx, -hy,
		hx, hy,
		-hx, hy,
		-hx, -hy,
	}, geom.DimXY)
	ring := geom.NewLineString(seq)
	return geom.NewPolygon([]geom.LineString{ring})
}
