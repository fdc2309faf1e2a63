package app

import (
	"fmt"

	"github.com/FeS1111/TSP/internal/client"
	"github.com/FeS1111/TSP/internal/mapview"
	"github.com/FeS1111/TSP/internal/theme"
	"github.com/FeS1111/TSP/internal/views/balloon"
	"github.com/FeS1111/TSP/internal/views/login"
	tea "github.com/charmbracelet/bubbletea"
)

// --- map ---

func (m Model) click(tea.KeyMsg) (Model, tea.Cmd) {
	switch msg := m.ms.view.Click().(type) {
	case markerMsg:
		return m.openBalloon(msg.id)
	case mapview.ClusterClickMsg:
		if m.ms.view.Zoom() >= mapview.MaxZoom {
			return m.openBalloon(msg.IDs[0])
		}
		m.ms.view.CenterOn(msg.At, m.ms.view.Zoom()+2)
		m.ms.view.CenterCursor()
		cmd := m.animate()
		return m, cmd
	case mapview.MapClickMsg:
		return m.openModal(msg.At)
	}
	return m, nil
}

func (m Model) newEvent(tea.KeyMsg) (Model, tea.Cmd) {
	return m.openModal(m.ms.view.CursorLatLon())
}

func (m Model) toggleClustering(tea.KeyMsg) (Model, tea.Cmd) {
	on := !m.ms.view.Clustering()
	m.ms.view.SetClustering(on)
	if on {
		m.statusBar.Info("Clustering on")
	} else {
		m.statusBar.Info("Clustering off")
	}
	return m, nil
}

func (m Model) fit(tea.KeyMsg) (Model, tea.Cmd) {
	m.ms.view.FitToMarkers()
	m.ms.view.CenterCursor()
	cmd := m.animate()
	return m, cmd
}

func moveCursor(dx, dy int) handler {
	return func(m Model, _ tea.KeyMsg) (Model, tea.Cmd) {
		m.ms.view.MoveCursor(dx, dy)
		m.showCursorTitle()
		cmd := m.animate()
		return m, cmd
	}
}

func pan(dx, dy int) handler {
	return func(m Model, _ tea.KeyMsg) (Model, tea.Cmd) {
		m.ms.view.Pan(dx, dy)
		cmd := m.animate()
		return m, cmd
	}
}

func zoom(delta int) handler {
	return func(m Model, _ tea.KeyMsg) (Model, tea.Cmd) {
		m.ms.view.ZoomBy(delta)
		cmd := m.animate()
		return m, cmd
	}
}

func (m *Model) showCursorTitle() {
	if title := m.ms.view.TitleUnderCursor(); title != "" {
		m.statusBar.Info(title)
	} else if _, isErr := m.statusBar.Message(); !isErr {
		m.statusBar.Clear()
	}
}

// animate starts the frame loop if the camera has somewhere to go.
func (m *Model) animate() tea.Cmd {
	if m.opts.NoAnimation {
		m.ms.view.JumpToTarget()
		return nil
	}
	if m.ticking {
		return nil
	}
	cmd := m.ms.view.Tick()
	m.ticking = cmd != nil
	return cmd
}

// --- modal ---

func (m Model) openModal(at mapview.LatLon) (Model, tea.Cmd) {
	cmd := m.ms.form.Open(at.Lat, at.Lon)
	m.state = StateModalOpen
	return m, cmd
}

func (m Model) cancelModal(tea.KeyMsg) (Model, tea.Cmd) {
	m.ms.form.Reset()
	m.state = StateMapReady
	return m, nil
}

func (m Model) submitEvent(tea.KeyMsg) (Model, tea.Cmd) {
	if m.ms.form.Submitting {
		return m, nil
	}
	d, err := m.ms.form.Draft()
	if err != nil {
		m.ms.form.Err = err.Error()
		return m, nil
	}
	m.ms.form.Err = ""
	m.ms.form.Submitting = true
	return m, createCmd(m.ms.ctx, m.api, m.ms.gen, d)
}

func (m Model) created(msg createdMsg) (Model, tea.Cmd) {
	if m.stale(msg.gen) {
		return m, nil
	}
	m.ms.form.Submitting = false
	if msg.err != nil {
		if client.IsKind(msg.err, client.KindAuth) {
			return m.authFailed(msg.err)
		}
		m.log.Warn("create rejected", "app.create", "error", msg.err)
		m.ms.form.Err = client.MessageOf(msg.err)
		if !client.IsKind(msg.err, client.KindValidation) {
			m.statusBar.Error(client.KindOf(msg.err).String(), client.MessageOf(msg.err))
		}
		return m, nil
	}
	m.log.Info("event created", "app.create", "event_id", msg.event.ID)
	m.ms.form.Reset()
	if m.state == StateModalOpen {
		m.state = StateMapReady
	}
	m.statusBar.Info("Event created")
	return m, startFetch(m.ms, m.api, m.userID())
}

// --- balloon ---

func (m Model) openBalloon(id int64) (Model, tea.Cmd) {
	if m.ms == nil {
		return m, nil
	}
	e, ok := m.ms.cache.Find(id)
	if !ok {
		m.statusBar.Error(client.KindNotFound.String(), "This event is no longer available.")
		return m, nil
	}
	b := balloon.New(e, m.ms.catalog.Name(e.Category), m.currentUser().Username, m.isCreator(e))
	m.ms.balloon = &b
	if e.HasCoords() {
		m.ms.view.OpenBalloon(b.Content(), mapview.LatLon{Lat: e.Latitude.Value, Lon: e.Longitude.Value})
	}
	m.state = StateBalloonOpen
	m.layout()
	return m, nil
}

func (m *Model) closeBalloon() {
	m.ms.balloon = nil
	m.ms.view.CloseBalloon()
	if m.state == StateBalloonOpen || m.state == StateConfirmOpen {
		m.state = StateMapReady
	}
	m.layout()
}

func (m Model) escapeBalloon(tea.KeyMsg) (Model, tea.Cmd) {
	m.closeBalloon()
	return m, nil
}

// closing wraps a map handler so that it closes the balloon first.
func closing(h handler) handler {
	return func(m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
		m.closeBalloon()
		return h(m, msg)
	}
}

func (m Model) reactGoing(tea.KeyMsg) (Model, tea.Cmd) {
	return m.react(client.ReactionGoing)
}

func (m Model) reactNotGoing(tea.KeyMsg) (Model, tea.Cmd) {
	return m.react(client.ReactionNotGoing)
}

// react sends the user's answer. Picking the answer already given asks
// whether to withdraw it instead.
func (m Model) react(t client.ReactionType) (Model, tea.Cmd) {
	ms := m.ms
	e, ok := ms.cache.Find(ms.balloon.Event.ID)
	if !ok {
		m.closeBalloon()
		return m, nil
	}
	if e.MyReaction == t {
		return m.askUnreact(e), nil
	}

	patch, patched := ms.cache.ApplyLocalReaction(e.ID, t, m.currentUser().Username)
	ms.balloon.Notice = ""
	m.renderMarkers()
	m.refreshViews()
	return m, reactCmd(ms.ctx, m.api, ms.gen, e.ID, t, patch, patched)
}

func (m Model) reacted(msg reactedMsg) (Model, tea.Cmd) {
	if m.stale(msg.gen) {
		return m, nil
	}
	ms := m.ms
	if msg.err == nil {
		m.setNotice(msg.eventID, "Saved: "+theme.ReactionLabel(string(msg.typ)), false)
		return m, startFetch(ms, m.api, m.userID())
	}

	if msg.patched && ms.cache.Restore(msg.patch) {
		m.renderMarkers()
		m.refreshViews()
	}
	if client.IsKind(msg.err, client.KindAuth) {
		return m.authFailed(msg.err)
	}
	m.log.Warn("reaction rejected", "app.react", "event_id", msg.eventID, "error", msg.err)
	if client.IsKind(msg.err, client.KindValidation) && m.balloonOn(msg.eventID) && m.state == StateBalloonOpen {
		// The backend already holds a reaction for this event.
		e, _ := ms.cache.Find(msg.eventID)
		return m.askUnreact(e), nil
	}
	m.setNotice(msg.eventID, client.MessageOf(msg.err), true)
	m.statusBar.Error(client.KindOf(msg.err).String(), client.MessageOf(msg.err))
	return m, nil
}

func (m Model) askUnreact(e client.Event) Model {
	label := theme.ReactionLabel(string(e.MyReaction))
	if e.MyReaction == client.ReactionNone {
		label = "a reaction"
	}
	m.ms.confirm = &confirmPrompt{
		kind:    confirmUnreact,
		eventID: e.ID,
		text:    fmt.Sprintf("You already answered %s to %q. Cancel it?", label, e.Title),
	}
	m.state = StateConfirmOpen
	return m
}

func (m Model) unreacted(msg unreactedMsg) (Model, tea.Cmd) {
	if m.stale(msg.gen) {
		return m, nil
	}
	if msg.err != nil {
		if client.IsKind(msg.err, client.KindAuth) {
			return m.authFailed(msg.err)
		}
		m.setNotice(msg.eventID, client.MessageOf(msg.err), true)
		m.statusBar.Error(client.KindOf(msg.err).String(), client.MessageOf(msg.err))
		return m, nil
	}
	m.setNotice(msg.eventID, "Reaction removed", false)
	return m, startFetch(m.ms, m.api, m.userID())
}

func (m Model) askDelete(tea.KeyMsg) (Model, tea.Cmd) {
	e := m.ms.balloon.Event
	m.ms.confirm = &confirmPrompt{
		kind:    confirmDelete,
		eventID: e.ID,
		text:    fmt.Sprintf("Delete %q? This cannot be undone.", e.Title),
	}
	m.state = StateConfirmOpen
	return m, nil
}

func (m Model) deleted(msg deletedMsg) (Model, tea.Cmd) {
	if m.stale(msg.gen) {
		return m, nil
	}
	if msg.err != nil {
		switch {
		case client.IsKind(msg.err, client.KindAuth):
			return m.authFailed(msg.err)
		case client.IsKind(msg.err, client.KindPermission):
			m.setNotice(msg.eventID, "Only the creator can delete this event.", true)
		case client.IsKind(msg.err, client.KindNotFound):
			m.setNotice(msg.eventID, "This event no longer exists.", true)
		default:
			m.setNotice(msg.eventID, client.MessageOf(msg.err), true)
		}
		m.log.Warn("delete rejected", "app.delete", "event_id", msg.eventID, "error", msg.err)
		m.statusBar.Error(client.KindOf(msg.err).String(), client.MessageOf(msg.err))
		return m, nil
	}
	if m.balloonOn(msg.eventID) {
		m.closeBalloon()
	}
	m.statusBar.Info("Event deleted")
	return m, startFetch(m.ms, m.api, m.userID())
}

func (m Model) balloonOn(eventID int64) bool {
	return m.ms.balloon != nil && m.ms.balloon.Event.ID == eventID
}

func (m *Model) setNotice(eventID int64, text string, isErr bool) {
	if !m.balloonOn(eventID) {
		return
	}
	m.ms.balloon.Notice = text
	m.ms.balloon.NoticeErr = isErr
}

// --- confirm ---

func (m Model) confirmYes(tea.KeyMsg) (Model, tea.Cmd) {
	c := m.ms.confirm
	m.leaveConfirm()
	if c == nil {
		return m, nil
	}
	switch c.kind {
	case confirmUnreact:
		return m, unreactCmd(m.ms.ctx, m.api, m.ms.gen, c.eventID, m.userID())
	case confirmDelete:
		return m, deleteCmd(m.ms.ctx, m.api, m.ms.gen, c.eventID)
	}
	return m, nil
}

func (m Model) confirmNo(tea.KeyMsg) (Model, tea.Cmd) {
	m.leaveConfirm()
	return m, nil
}

func (m *Model) leaveConfirm() {
	m.ms.confirm = nil
	if m.ms.balloon != nil {
		m.state = StateBalloonOpen
	} else {
		m.state = StateMapReady
	}
}

// --- list ---

func (m *Model) showList() {
	m.ms.list.SetEvents(m.ms.cache.Events(), m.ms.catalog, m.userID())
	if m.ms.balloon != nil {
		m.closeBalloon()
	}
	m.state = StateEventList
	m.route = RouteEvents
	m.layout()
}

func (m Model) openList(tea.KeyMsg) (Model, tea.Cmd) {
	m.showList()
	return m, nil
}

func (m Model) closeList(tea.KeyMsg) (Model, tea.Cmd) {
	m.route = RouteMap
	m.state = StateMapReady
	if !m.ms.loaded {
		m.state = StateMapLoading
	}
	return m, nil
}

func (m Model) listUp(tea.KeyMsg) (Model, tea.Cmd) {
	m.ms.list.Up()
	return m, nil
}

func (m Model) listDown(tea.KeyMsg) (Model, tea.Cmd) {
	m.ms.list.Down()
	return m, nil
}

// listSelect centers the map on the selected event and opens it.
func (m Model) listSelect(tea.KeyMsg) (Model, tea.Cmd) {
	e, ok := m.ms.list.Selected()
	if !ok {
		return m, nil
	}
	m.route = RouteMap
	m.state = StateMapReady
	var cmd tea.Cmd
	if e.HasCoords() {
		z := m.ms.view.Zoom()
		if z < 14 {
			z = 14
		}
		m.ms.view.CenterOn(mapview.LatLon{Lat: e.Latitude.Value, Lon: e.Longitude.Value}, z)
		m.ms.view.CenterCursor()
		cmd = m.animate()
	}
	m, _ = m.openBalloon(e.ID)
	return m, cmd
}

// --- session ---

func (m Model) submitLogin(tea.KeyMsg) (Model, tea.Cmd) {
	if m.login.Busy {
		return m, nil
	}
	if err := m.login.Validate(); err != nil {
		m.login.SetFlash(err.Error(), true)
		return m, nil
	}
	m.login.Busy = true
	username, email, password := m.login.Credentials()
	if m.login.Mode() == login.ModeRegister {
		return m, registerCmd(m.ctx, m.api, username, email, password)
	}
	return m, loginCmd(m.ctx, m.api, username, password)
}

func (m Model) toggleRegister(tea.KeyMsg) (Model, tea.Cmd) {
	if m.login.Mode() == login.ModeRegister {
		m.route = RouteLogin
		m.login.SetFlash("", false)
		cmd := m.login.SetMode(login.ModeLogin)
		return m, cmd
	}
	m.route = RouteRegister
	m.login.SetFlash("", false)
	cmd := m.login.SetMode(login.ModeRegister)
	return m, cmd
}

func (m Model) loginEscape(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.login.Mode() == login.ModeRegister {
		return m.toggleRegister(msg)
	}
	return m.quit(msg)
}

func (m Model) loginNext(tea.KeyMsg) (Model, tea.Cmd) {
	cmd := m.login.Next()
	return m, cmd
}

func (m Model) loginPrev(tea.KeyMsg) (Model, tea.Cmd) {
	cmd := m.login.Prev()
	return m, cmd
}

func (m Model) logout(tea.KeyMsg) (Model, tea.Cmd) {
	m.statusBar.Info("Signing out…")
	return m, logoutCmd(m.ctx, m.api)
}

func (m Model) quit(tea.KeyMsg) (Model, tea.Cmd) {
	m.teardown()
	m.cancel()
	return m, tea.Quit
}

func (m Model) openDebug(tea.KeyMsg) (Model, tea.Cmd) {
	m.debugOpen = true
	return m, nil
}

// --- form ---

func (m Model) formNext(tea.KeyMsg) (Model, tea.Cmd) {
	cmd := m.ms.form.Next()
	return m, cmd
}

func (m Model) formPrev(tea.KeyMsg) (Model, tea.Cmd) {
	cmd := m.ms.form.Prev()
	return m, cmd
}

func cycleCategory(delta int) handler {
	return func(m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
		if m.ms.form.CycleCategory(delta) {
			return m, nil
		}
		var cmd tea.Cmd
		m.ms.form, cmd = m.ms.form.Update(msg)
		return m, cmd
	}
}
