package mapview

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/FeS1111/TSP/internal/client"
	"github.com/FeS1111/TSP/internal/theme"
	tea "github.com/charmbracelet/bubbletea"
)

var moscow = LatLon{Lat: 55.751574, Lon: 37.573856}

type selectMsg struct{ id int64 }

func selectHandler(id int64) tea.Msg { return selectMsg{id: id} }

func eventAt(id int64, p LatLon) client.Event {
	return client.Event{ID: id, Title: "event", Latitude: client.At(p.Lat), Longitude: client.At(p.Lon)}
}

func newMap(t *testing.T) *Map {
	t.Helper()
	m := New(3)
	m.SetSize(40, 20)
	if err := m.CreateMap(moscow, 10); err != nil {
		t.Fatalf("CreateMap: %v", err)
	}
	return m
}

// lonOffset returns the longitude that lies cols cells east of p at zoom.
func lonOffset(p LatLon, zoom, cols float64) LatLon {
	x, y := project(p, zoom)
	return unproject(x+cols*cellW, y, zoom)
}

func TestProjectionRoundTrip(t *testing.T) {
	points := []LatLon{moscow, {0, 0}, {-33.86, 151.2}, {40.7, -74.0}, {84, 179.9}}
	for _, p := range points {
		for _, zoom := range []float64{MinZoom, 10, MaxZoom} {
			x, y := project(p, zoom)
			got := unproject(x, y, zoom)
			if math.Abs(got.Lat-p.Lat) > 1e-9 || math.Abs(got.Lon-p.Lon) > 1e-9 {
				t.Errorf("round trip of %v at zoom %v = %v", p, zoom, got)
			}
		}
	}
}

func TestWrapLon(t *testing.T) {
	tests := map[float64]float64{0: 0, 180: -180, -180: -180, 181: -179, -181: 179, 540: -180}
	for in, want := range tests {
		if got := wrapLon(in); math.Abs(got-want) > 1e-9 {
			t.Errorf("wrapLon(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestCreateMapRejectsBadZoom(t *testing.T) {
	m := New(3)
	if err := m.CreateMap(moscow, 1); !errors.Is(err, ErrBadZoom) {
		t.Errorf("zoom 1: err = %v", err)
	}
	if err := m.CreateMap(moscow, 19); !errors.Is(err, ErrBadZoom) {
		t.Errorf("zoom 19: err = %v", err)
	}
	if m.Created() {
		t.Error("map should not be created")
	}
}

func TestAddMarkerBeforeCreate(t *testing.T) {
	m := New(3)
	if err := m.AddMarker(eventAt(1, moscow), selectHandler); !errors.Is(err, ErrNotCreated) {
		t.Errorf("err = %v, want ErrNotCreated", err)
	}
}

func TestAddMarkerSkipsMissingCoordinates(t *testing.T) {
	m := newMap(t)
	noLat := client.Event{ID: 1, Longitude: client.At(37.5)}
	noLon := client.Event{ID: 2, Latitude: client.At(55.7)}

	for _, e := range []client.Event{noLat, noLon} {
		if err := m.AddMarker(e, selectHandler); !errors.Is(err, ErrNoCoordinates) {
			t.Errorf("event %d: err = %v, want ErrNoCoordinates", e.ID, err)
		}
	}
	if m.MarkerCount() != 0 {
		t.Errorf("MarkerCount() = %d, want 0", m.MarkerCount())
	}
}

func TestAddMarkerReplacesSameID(t *testing.T) {
	m := newMap(t)
	m.AddMarker(eventAt(1, moscow), selectHandler)
	m.AddMarker(eventAt(1, lonOffset(moscow, 10, 5)), selectHandler)
	if m.MarkerCount() != 1 {
		t.Errorf("MarkerCount() = %d, want 1", m.MarkerCount())
	}
}

func TestClusterMarkersCountsPlaced(t *testing.T) {
	m := newMap(t)
	events := []client.Event{
		eventAt(1, moscow),
		{ID: 2, Title: "nowhere"},
		eventAt(3, lonOffset(moscow, 10, 8)),
	}
	if n := m.ClusterMarkers(events, selectHandler); n != 2 {
		t.Errorf("ClusterMarkers() = %d, want 2", n)
	}
	if m.HasMarker(2) {
		t.Error("event without coordinates must not get a marker")
	}
	if !m.Clustering() {
		t.Error("ClusterMarkers should turn clustering on")
	}
}

func TestClickResolvesMarkerID(t *testing.T) {
	m := newMap(t)
	a := eventAt(41, moscow)
	b := eventAt(42, lonOffset(moscow, 10, 6))
	m.AddMarker(a, selectHandler)
	m.AddMarker(b, selectHandler)

	if !m.MoveCursorTo(LatLon{Lat: b.Latitude.Value, Lon: b.Longitude.Value}) {
		t.Fatal("marker should be on screen")
	}
	msg := m.Click()
	sel, ok := msg.(selectMsg)
	if !ok {
		t.Fatalf("Click() = %#v, want selectMsg", msg)
	}
	if sel.id != 42 {
		t.Errorf("clicked id = %d, want 42", sel.id)
	}
	if id, ok := m.MarkerUnderCursor(); !ok || id != 42 {
		t.Errorf("MarkerUnderCursor() = %d, %v", id, ok)
	}
}

func TestClickOnEmptyGround(t *testing.T) {
	m := newMap(t)
	m.AddMarker(eventAt(1, moscow), selectHandler)
	m.MoveCursor(-5, -5)

	msg, ok := m.Click().(MapClickMsg)
	if !ok {
		t.Fatal("expected MapClickMsg")
	}
	want := m.CursorLatLon()
	if msg.At != want {
		t.Errorf("At = %v, want %v", msg.At, want)
	}
}

func TestClusteringGroupsNearbyMarkers(t *testing.T) {
	m := newMap(t)
	// The center falls in cell (20, 10); 1.5 cells west lands in cell 18,
	// which shares a 3-cell bucket with it.
	near := lonOffset(moscow, 10, -1.5)
	m.AddMarker(eventAt(1, moscow), selectHandler)
	m.AddMarker(eventAt(2, near), selectHandler)

	if got := len(m.layout()); got != 2 {
		t.Fatalf("without clustering: %d glyphs, want 2", got)
	}

	m.SetClustering(true)
	glyphs := m.layout()
	if len(glyphs) != 1 {
		t.Fatalf("with clustering: %d glyphs, want 1", len(glyphs))
	}
	if len(glyphs[0].ids) != 2 {
		t.Errorf("cluster ids = %v", glyphs[0].ids)
	}

	m.cursorCol, m.cursorRow = glyphs[0].col, glyphs[0].row
	cc, ok := m.Click().(ClusterClickMsg)
	if !ok {
		t.Fatal("expected ClusterClickMsg")
	}
	if len(cc.IDs) != 2 {
		t.Errorf("IDs = %v", cc.IDs)
	}
}

func TestSameCellAlwaysGroups(t *testing.T) {
	m := newMap(t)
	m.AddMarker(eventAt(1, moscow), selectHandler)
	m.AddMarker(eventAt(2, LatLon{Lat: moscow.Lat, Lon: moscow.Lon + 1e-7}), selectHandler)

	if got := len(m.layout()); got != 1 {
		t.Errorf("%d glyphs, want 1", got)
	}
}

func TestFitToMarkers(t *testing.T) {
	m := newMap(t)
	pts := []LatLon{{0, 0}, {0, 40}, {20, 20}}
	for i, p := range pts {
		m.AddMarker(eventAt(int64(i+1), p), selectHandler)
	}
	m.FitToMarkers()
	m.JumpToTarget()

	for _, p := range pts {
		if _, _, ok := m.cellOf(p); !ok {
			t.Errorf("%v is off screen at zoom %d", p, m.Zoom())
		}
	}
	// One more zoom level must not fit everything.
	m.ZoomBy(1)
	m.JumpToTarget()
	allVisible := true
	for _, p := range pts {
		if _, _, ok := m.cellOf(p); !ok {
			allVisible = false
		}
	}
	if allVisible {
		t.Errorf("zoom %d still fits all markers; fit was not tight", m.Zoom())
	}
}

func TestFitToMarkersSingle(t *testing.T) {
	m := newMap(t)
	m.AddMarker(eventAt(1, LatLon{Lat: 10, Lon: 10}), selectHandler)
	m.FitToMarkers()
	m.JumpToTarget()
	if m.Zoom() != 15 {
		t.Errorf("Zoom() = %d, want 15", m.Zoom())
	}
	c := m.Center()
	if math.Abs(c.Lat-10) > 1e-6 || math.Abs(c.Lon-10) > 1e-6 {
		t.Errorf("Center() = %v", c)
	}
}

func TestFitToMarkersEmptyKeepsView(t *testing.T) {
	m := newMap(t)
	m.FitToMarkers()
	if m.Animating() {
		t.Error("fit with no markers should not move the camera")
	}
}

func TestZoomByClamps(t *testing.T) {
	m := newMap(t)
	m.ZoomBy(100)
	if m.Zoom() != MaxZoom {
		t.Errorf("Zoom() = %d, want %d", m.Zoom(), MaxZoom)
	}
	m.ZoomBy(-100)
	if m.Zoom() != MinZoom {
		t.Errorf("Zoom() = %d, want %d", m.Zoom(), MinZoom)
	}
}

func TestCameraSettles(t *testing.T) {
	m := newMap(t)
	target := LatLon{Lat: 48.85, Lon: 2.35}
	m.CenterOn(target, 12)
	if !m.Animating() {
		t.Fatal("expected animation after CenterOn")
	}
	if m.Tick() == nil {
		t.Fatal("Tick() should schedule a frame while animating")
	}

	frames := 0
	for m.Animating() && frames < 2000 {
		m.Step()
		frames++
	}
	if m.Animating() {
		t.Fatalf("camera still moving after %d frames", frames)
	}
	c := m.Center()
	if math.Abs(c.Lat-target.Lat) > 1e-5 || math.Abs(c.Lon-target.Lon) > 1e-5 {
		t.Errorf("Center() = %v, want %v", c, target)
	}
	if m.Tick() != nil {
		t.Error("Tick() should be nil once settled")
	}
}

func TestCameraCrossesAntimeridian(t *testing.T) {
	m := New(3)
	m.SetSize(40, 20)
	m.CreateMap(LatLon{Lat: 0, Lon: 179}, 5)
	m.SetCenter(LatLon{Lat: 0, Lon: -179})

	for i := 0; i < 2000 && m.Animating(); i++ {
		m.Step()
		if lon := m.Center().Lon; math.Abs(lon) < 170 {
			t.Fatalf("frame %d: lon = %v, camera went the long way", i, lon)
		}
	}
}

func TestMoveCursorPansAtEdge(t *testing.T) {
	m := newMap(t)
	before := m.cam.targetCenter()
	m.MoveCursor(-100, 0)

	if col, _ := m.Cursor(); col != 0 {
		t.Errorf("cursor col = %d, want 0", col)
	}
	if after := m.cam.targetCenter(); after.Lon >= before.Lon {
		t.Errorf("map should pan west: before %v, after %v", before, after)
	}
}

func TestBalloon(t *testing.T) {
	m := newMap(t)
	if _, _, ok := m.Balloon(); ok {
		t.Fatal("no balloon expected")
	}
	at := lonOffset(moscow, 10, 4)
	m.OpenBalloon("hello", at)

	content, got, ok := m.Balloon()
	if !ok || content != "hello" || got != at {
		t.Errorf("Balloon() = %q, %v, %v", content, got, ok)
	}
	if !strings.Contains(m.View(), theme.GlyphBalloon) {
		t.Error("view should mark the balloon anchor")
	}
	m.CloseBalloon()
	if _, _, ok := m.Balloon(); ok {
		t.Error("balloon should be closed")
	}
}

func TestViewDimensions(t *testing.T) {
	m := newMap(t)
	m.AddMarker(eventAt(1, moscow), selectHandler)
	lines := strings.Split(m.View(), "\n")
	if len(lines) != 20 {
		t.Errorf("View() has %d lines, want 20", len(lines))
	}
}

func TestViewDrawsMarkerKinds(t *testing.T) {
	m := newMap(t)
	m.SetMarkerKinds(func(e client.Event) MarkerKind {
		if e.ID == 2 {
			return MarkerMine
		}
		return MarkerDefault
	})
	m.AddMarker(eventAt(1, moscow), selectHandler)
	m.AddMarker(eventAt(2, lonOffset(moscow, 10, 6)), selectHandler)

	v := m.View()
	if !strings.Contains(v, theme.GlyphMarker) || !strings.Contains(v, theme.GlyphMine) {
		t.Errorf("view missing marker glyphs:\n%s", v)
	}
}
