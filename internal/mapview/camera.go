package mapview

import (
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
)

const (
	fps         = 60
	frameTime   = time.Second / fps
	settleCoord = 1e-6
	settleZoom  = 1e-3
	settleVeloc = 1e-4
	springFreq  = 7.0
	springDamp  = 1.0
)

// FrameMsg advances the camera animation by one frame.
type FrameMsg struct{}

// axis is one spring-driven camera coordinate.
type axis struct {
	pos, vel, target float64
	eps              float64
}

func (a *axis) settled() bool {
	return math.Abs(a.pos-a.target) < a.eps && math.Abs(a.vel) < settleVeloc
}

func (a *axis) snap() {
	a.pos = a.target
	a.vel = 0
}

// camera eases the visible center and zoom towards their targets.
type camera struct {
	spring harmonica.Spring
	lat    axis
	lon    axis
	zoom   axis
}

func newCamera(center LatLon, zoom float64) camera {
	return camera{
		spring: harmonica.NewSpring(harmonica.FPS(fps), springFreq, springDamp),
		lat:    axis{pos: center.Lat, target: center.Lat, eps: settleCoord},
		lon:    axis{pos: center.Lon, target: center.Lon, eps: settleCoord},
		zoom:   axis{pos: zoom, target: zoom, eps: settleZoom},
	}
}

func (c *camera) center() LatLon {
	return LatLon{Lat: c.lat.pos, Lon: wrapLon(c.lon.pos)}
}

func (c *camera) targetCenter() LatLon {
	return LatLon{Lat: c.lat.target, Lon: c.lon.target}
}

func (c *camera) setTarget(center LatLon, zoom float64) {
	// Take the short way round the antimeridian.
	if d := center.Lon - c.lon.pos; d > 180 {
		c.lon.pos += 360
	} else if d < -180 {
		c.lon.pos -= 360
	}
	c.lat.target = center.Lat
	c.lon.target = center.Lon
	c.zoom.target = zoom
}

func (c *camera) animating() bool {
	return !(c.lat.settled() && c.lon.settled() && c.zoom.settled())
}

func (c *camera) step() {
	for _, a := range []*axis{&c.lat, &c.lon, &c.zoom} {
		if a.settled() {
			a.snap()
			continue
		}
		a.pos, a.vel = c.spring.Update(a.pos, a.vel, a.target)
	}
}

func (c *camera) jump() {
	c.lat.snap()
	c.lon.snap()
	c.zoom.snap()
}

func tick() tea.Cmd {
	return tea.Tick(frameTime, func(time.Time) tea.Msg { return FrameMsg{} })
}
