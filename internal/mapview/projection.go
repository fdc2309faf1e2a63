package mapview

import "math"

const (
	tileSize = 256.0
	// A terminal cell is roughly twice as tall as it is wide.
	cellW = 8.0
	cellH = 16.0

	MinZoom = 2
	MaxZoom = 18

	maxLat = 85.05112878
)

// LatLon is a geographic position in degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

// worldSize is the width (and height) of the Web-Mercator world in pixels.
func worldSize(zoom float64) float64 {
	return tileSize * math.Pow(2, zoom)
}

// project converts a position to world pixel coordinates at zoom.
func project(p LatLon, zoom float64) (x, y float64) {
	size := worldSize(zoom)
	lat := clamp(p.Lat, -maxLat, maxLat)
	sin := math.Sin(lat * math.Pi / 180)
	x = (p.Lon + 180) / 360 * size
	y = (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)) * size
	return x, y
}

// unproject is the inverse of project. Longitude wraps into [-180, 180).
func unproject(x, y, zoom float64) LatLon {
	size := worldSize(zoom)
	lon := x/size*360 - 180
	n := math.Pi - 2*math.Pi*y/size
	lat := 180 / math.Pi * math.Atan(math.Sinh(n))
	return LatLon{Lat: clamp(lat, -maxLat, maxLat), Lon: wrapLon(lon)}
}

func wrapLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
