// Package mapview is the terminal map widget: a Web-Mercator view rendered
// onto a character grid, with clickable event markers, clustering, a cursor
// and a balloon anchored to a position.
//
// Markers always carry the id of the event they were created from, so a click
// resolves to an event id directly and never by comparing coordinates.
package mapview

import (
	"errors"
	"math"
	"sort"

	"github.com/FeS1111/TSP/internal/client"
	tea "github.com/charmbracelet/bubbletea"
)

var (
	// ErrNoCoordinates is returned by AddMarker for events that cannot be placed.
	ErrNoCoordinates = errors.New("event has no coordinates")
	// ErrNotCreated is returned when a marker is added before CreateMap.
	ErrNotCreated = errors.New("map not created")
	// ErrBadZoom is returned by CreateMap for zoom levels outside [MinZoom, MaxZoom].
	ErrBadZoom = errors.New("zoom out of range")
)

// ClickHandler turns a marker click into a message for the UI loop.
type ClickHandler func(eventID int64) tea.Msg

// MapClickMsg reports a click on an empty part of the map.
type MapClickMsg struct {
	At LatLon
}

// ClusterClickMsg reports a click on a group of markers.
type ClusterClickMsg struct {
	At  LatLon
	IDs []int64
}

// MarkerKind selects how a marker is drawn.
type MarkerKind int

const (
	MarkerDefault MarkerKind = iota
	MarkerGoing
	MarkerMine
)

type marker struct {
	id      int64
	title   string
	pos     LatLon
	kind    MarkerKind
	onClick ClickHandler
}

type balloon struct {
	content string
	at      LatLon
}

// Map is the widget state. It is owned by the UI loop.
type Map struct {
	created bool
	width   int
	height  int

	cam camera

	markers     []marker
	byID        map[int64]int
	clustering  bool
	clusterCell int
	kindOf      func(client.Event) MarkerKind

	cursorCol int
	cursorRow int

	balloon *balloon
}

// New creates an uninitialised map widget; call CreateMap before use.
func New(clusterCell int) *Map {
	if clusterCell < 1 {
		clusterCell = 1
	}
	return &Map{
		byID:        make(map[int64]int),
		clusterCell: clusterCell,
		width:       60,
		height:      20,
	}
}

// CreateMap initialises the view at center and zoom.
func (m *Map) CreateMap(center LatLon, zoom int) error {
	if zoom < MinZoom || zoom > MaxZoom {
		return ErrBadZoom
	}
	m.cam = newCamera(LatLon{Lat: clamp(center.Lat, -maxLat, maxLat), Lon: wrapLon(center.Lon)}, float64(zoom))
	m.created = true
	m.centerCursor()
	return nil
}

// Created reports whether CreateMap has succeeded.
func (m *Map) Created() bool {
	return m.created
}

// SetSize sets the drawing area in cells.
func (m *Map) SetSize(width, height int) {
	if width < 10 {
		width = 10
	}
	if height < 5 {
		height = 5
	}
	m.width, m.height = width, height
	m.cursorCol = int(clamp(float64(m.cursorCol), 0, float64(width-1)))
	m.cursorRow = int(clamp(float64(m.cursorRow), 0, float64(height-1)))
}

// Size returns the drawing area in cells.
func (m *Map) Size() (width, height int) {
	return m.width, m.height
}

// SetMarkerKinds installs the function used to pick a marker's look.
func (m *Map) SetMarkerKinds(fn func(client.Event) MarkerKind) {
	m.kindOf = fn
}

// AddMarker places a marker for e. A marker with the same id is replaced.
func (m *Map) AddMarker(e client.Event, onClick ClickHandler) error {
	if !m.created {
		return ErrNotCreated
	}
	if !e.HasCoords() {
		return ErrNoCoordinates
	}
	mk := marker{
		id:      e.ID,
		title:   e.Title,
		pos:     LatLon{Lat: e.Latitude.Value, Lon: e.Longitude.Value},
		onClick: onClick,
	}
	if m.kindOf != nil {
		mk.kind = m.kindOf(e)
	}
	if i, ok := m.byID[e.ID]; ok {
		m.markers[i] = mk
		return nil
	}
	m.byID[e.ID] = len(m.markers)
	m.markers = append(m.markers, mk)
	return nil
}

// ClearMarkers removes every marker.
func (m *Map) ClearMarkers() {
	m.markers = nil
	m.byID = make(map[int64]int)
}

// ClusterMarkers replaces the markers with events and turns clustering on.
// Events without coordinates are skipped. It returns the number of markers
// placed.
func (m *Map) ClusterMarkers(events []client.Event, onClick ClickHandler) int {
	m.ClearMarkers()
	m.clustering = true
	n := 0
	for _, e := range events {
		if m.AddMarker(e, onClick) == nil {
			n++
		}
	}
	return n
}

// SetClustering toggles marker grouping.
func (m *Map) SetClustering(on bool) {
	m.clustering = on
}

// Clustering reports whether marker grouping is on.
func (m *Map) Clustering() bool {
	return m.clustering
}

// MarkerCount returns the number of markers placed.
func (m *Map) MarkerCount() int {
	return len(m.markers)
}

// HasMarker reports whether a marker exists for eventID.
func (m *Map) HasMarker(eventID int64) bool {
	_, ok := m.byID[eventID]
	return ok
}

// Center returns the current (possibly mid-animation) center.
func (m *Map) Center() LatLon {
	return m.cam.center()
}

// Zoom returns the target zoom level.
func (m *Map) Zoom() int {
	return int(math.Round(m.cam.zoom.target))
}

// SetCenter moves the view to center, keeping the zoom.
func (m *Map) SetCenter(center LatLon) {
	m.cam.setTarget(center, m.cam.zoom.target)
}

// CenterOn moves the view to center at zoom.
func (m *Map) CenterOn(center LatLon, zoom int) {
	z := clamp(float64(zoom), MinZoom, MaxZoom)
	m.cam.setTarget(center, z)
}

// ZoomBy changes the zoom level by delta, clamped to the valid range.
func (m *Map) ZoomBy(delta int) {
	z := clamp(math.Round(m.cam.zoom.target)+float64(delta), MinZoom, MaxZoom)
	m.cam.setTarget(m.cam.targetCenter(), z)
}

// Pan shifts the view by dx, dy cells.
func (m *Map) Pan(dx, dy int) {
	zoom := m.cam.zoom.target
	x, y := project(m.cam.targetCenter(), zoom)
	x += float64(dx) * cellW
	y += float64(dy) * cellH
	y = clamp(y, 0, worldSize(zoom))
	m.cam.setTarget(unproject(x, y, zoom), zoom)
}

// FitToMarkers centers on the markers and picks the largest zoom at which
// they all fit on screen. It does nothing when there are no markers.
func (m *Map) FitToMarkers() {
	if len(m.markers) == 0 {
		return
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, mk := range m.markers {
		x, y := project(mk.pos, 0)
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	center := unproject((minX+maxX)/2, (minY+maxY)/2, 0)

	availW := float64(m.width-2) * cellW
	availH := float64(m.height-2) * cellH
	zoom := MinZoom
	for z := MaxZoom; z >= MinZoom; z-- {
		scale := math.Pow(2, float64(z))
		if (maxX-minX)*scale <= availW && (maxY-minY)*scale <= availH {
			zoom = z
			break
		}
	}
	if len(m.markers) == 1 && zoom > 15 {
		zoom = 15
	}
	m.cam.setTarget(center, float64(zoom))
}

// Animating reports whether the camera is still moving.
func (m *Map) Animating() bool {
	return m.cam.animating()
}

// Tick returns the command that schedules the next animation frame, or nil
// when the camera has settled.
func (m *Map) Tick() tea.Cmd {
	if !m.cam.animating() {
		return nil
	}
	return tick()
}

// Step advances the animation by one frame.
func (m *Map) Step() {
	m.cam.step()
}

// JumpToTarget ends any animation immediately.
func (m *Map) JumpToTarget() {
	m.cam.jump()
}

// OpenBalloon shows content anchored at at. Only one balloon is open at a time.
func (m *Map) OpenBalloon(content string, at LatLon) {
	m.balloon = &balloon{content: content, at: at}
}

// CloseBalloon hides the balloon, if any.
func (m *Map) CloseBalloon() {
	m.balloon = nil
}

// Balloon returns the open balloon's content and anchor.
func (m *Map) Balloon() (string, LatLon, bool) {
	if m.balloon == nil {
		return "", LatLon{}, false
	}
	return m.balloon.content, m.balloon.at, true
}

// MoveCursor moves the cursor by dx, dy cells. Moving past an edge pans the
// map instead.
func (m *Map) MoveCursor(dx, dy int) {
	col, row := m.cursorCol+dx, m.cursorRow+dy
	panX, panY := 0, 0
	if col < 0 {
		panX, col = col, 0
	} else if col >= m.width {
		panX, col = col-(m.width-1), m.width-1
	}
	if row < 0 {
		panY, row = row, 0
	} else if row >= m.height {
		panY, row = row-(m.height-1), m.height-1
	}
	m.cursorCol, m.cursorRow = col, row
	if panX != 0 || panY != 0 {
		m.Pan(panX, panY)
	}
}

// Cursor returns the cursor cell.
func (m *Map) Cursor() (col, row int) {
	return m.cursorCol, m.cursorRow
}

// CursorLatLon returns the geographic position under the cursor.
func (m *Map) CursorLatLon() LatLon {
	return m.cellLatLon(m.cursorCol, m.cursorRow)
}

// MoveCursorTo puts the cursor on the cell showing p, if it is on screen.
func (m *Map) MoveCursorTo(p LatLon) bool {
	col, row, ok := m.cellOf(p)
	if ok {
		m.cursorCol, m.cursorRow = col, row
	}
	return ok
}

// Click activates whatever is under the cursor: a single marker calls its
// handler, a group yields ClusterClickMsg, empty ground yields MapClickMsg.
func (m *Map) Click() tea.Msg {
	if g, ok := m.glyphAt(m.cursorCol, m.cursorRow); ok {
		if len(g.ids) == 1 {
			mk := m.markers[m.byID[g.ids[0]]]
			if mk.onClick == nil {
				return nil
			}
			return mk.onClick(mk.id)
		}
		return ClusterClickMsg{At: m.cellLatLon(g.col, g.row), IDs: g.ids}
	}
	return MapClickMsg{At: m.CursorLatLon()}
}

// MarkerUnderCursor returns the id of the single marker under the cursor.
func (m *Map) MarkerUnderCursor() (int64, bool) {
	g, ok := m.glyphAt(m.cursorCol, m.cursorRow)
	if !ok || len(g.ids) != 1 {
		return 0, false
	}
	return g.ids[0], true
}

// TitleUnderCursor returns a label for whatever is under the cursor.
func (m *Map) TitleUnderCursor() string {
	g, ok := m.glyphAt(m.cursorCol, m.cursorRow)
	if !ok {
		return ""
	}
	if len(g.ids) == 1 {
		return m.markers[m.byID[g.ids[0]]].title
	}
	return pluralEvents(len(g.ids))
}

// CenterCursor puts the cursor on the middle cell.
func (m *Map) CenterCursor() {
	m.centerCursor()
}

func (m *Map) centerCursor() {
	m.cursorCol, m.cursorRow = m.width/2, m.height/2
}

// cellOf returns the screen cell showing p.
func (m *Map) cellOf(p LatLon) (col, row int, ok bool) {
	zoom := m.cam.zoom.pos
	cx, cy := project(m.cam.center(), zoom)
	x, y := project(p, zoom)

	// Pick the copy of the world nearest the center.
	size := worldSize(zoom)
	if dx := x - cx; dx > size/2 {
		x -= size
	} else if dx < -size/2 {
		x += size
	}

	col = int(math.Floor((x-cx)/cellW + float64(m.width)/2))
	row = int(math.Floor((y-cy)/cellH + float64(m.height)/2))
	ok = col >= 0 && col < m.width && row >= 0 && row < m.height
	return col, row, ok
}

// cellLatLon returns the position at the middle of a screen cell.
func (m *Map) cellLatLon(col, row int) LatLon {
	zoom := m.cam.zoom.pos
	cx, cy := project(m.cam.center(), zoom)
	x := cx + (float64(col)+0.5-float64(m.width)/2)*cellW
	y := cy + (float64(row)+0.5-float64(m.height)/2)*cellH
	return unproject(x, y, zoom)
}

// glyph is one drawn symbol: a marker or a cluster of them.
type glyph struct {
	col, row int
	ids      []int64
	kind     MarkerKind
}

// layout computes the glyphs for the current view. Markers sharing a cell
// always merge; with clustering on, markers in the same clusterCell bucket
// merge too and are drawn at their mean cell.
func (m *Map) layout() []glyph {
	type bucket struct {
		sumCol, sumRow int
		ids            []int64
		kind           MarkerKind
	}
	buckets := make(map[[2]int]*bucket)
	var keys [][2]int

	size := m.clusterCell
	if !m.clustering {
		size = 1
	}

	for _, mk := range m.markers {
		col, row, ok := m.cellOf(mk.pos)
		if !ok {
			continue
		}
		key := [2]int{floorDiv(col, size), floorDiv(row, size)}
		b, exists := buckets[key]
		if !exists {
			b = &bucket{}
			buckets[key] = b
			keys = append(keys, key)
		}
		b.sumCol += col
		b.sumRow += row
		b.ids = append(b.ids, mk.id)
		if mk.kind > b.kind {
			b.kind = mk.kind
		}
	}

	glyphs := make([]glyph, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		n := len(b.ids)
		glyphs = append(glyphs, glyph{
			col:  int(math.Round(float64(b.sumCol) / float64(n))),
			row:  int(math.Round(float64(b.sumRow) / float64(n))),
			ids:  b.ids,
			kind: b.kind,
		})
	}
	sort.Slice(glyphs, func(i, j int) bool {
		if glyphs[i].row != glyphs[j].row {
			return glyphs[i].row < glyphs[j].row
		}
		return glyphs[i].col < glyphs[j].col
	})
	return glyphs
}

func (m *Map) glyphAt(col, row int) (glyph, bool) {
	for _, g := range m.layout() {
		if g.col == col && g.row == row {
			return g, true
		}
	}
	return glyph{}, false
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
