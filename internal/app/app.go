package app

import (
	"context"
	"fmt"

	"github.com/FeS1111/TSP/internal/client"
	"github.com/FeS1111/TSP/internal/logger"
	"github.com/FeS1111/TSP/internal/mapview"
	"github.com/FeS1111/TSP/internal/theme"
	"github.com/FeS1111/TSP/internal/tokenstore"
	"github.com/FeS1111/TSP/internal/views/debug"
	"github.com/FeS1111/TSP/internal/views/login"
	"github.com/FeS1111/TSP/internal/views/status"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// State is the controller's position in the navigation flow.
type State int

const (
	StateUnauthenticated State = iota
	StateMapLoading
	StateMapReady
	StateModalOpen
	StateBalloonOpen
	StateConfirmOpen
	StateEventList
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "Unauthenticated"
	case StateMapLoading:
		return "MapLoading"
	case StateMapReady:
		return "MapReady"
	case StateModalOpen:
		return "ModalOpen"
	case StateBalloonOpen:
		return "BalloonOpen"
	case StateConfirmOpen:
		return "ConfirmOpen"
	case StateEventList:
		return "EventList"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	statusHeight = 3
	footerHeight = 1

	loadFailedText = "Could not load events. Press r to retry."
	expiredText    = "Your session has expired. Please sign in again."
	loggedOutText  = "You have been logged out."
)

// Options configures the controller.
type Options struct {
	Center      mapview.LatLon
	Zoom        int
	ClusterCell int
	Logger      logger.AppLogger
	// NoAnimation makes camera moves jump and disables the spinner, so no
	// timer commands are issued.
	NoAnimation bool
}

// Model is the root Bubble Tea model.
type Model struct {
	api    API
	opts   Options
	log    logger.AppLogger
	ctx    context.Context
	cancel context.CancelFunc

	keys     KeyMap
	bindings map[State][]binding
	help     help.Model
	spinner  spinner.Model
	width    int
	height   int

	// Navigation.
	state     State
	route     string
	redirects int

	// Map route state; nil outside it.
	gen uint64
	ms  *mapSession

	// Sub-views.
	login     login.Model
	statusBar status.Model
	debug     debug.Model
	debugOpen bool

	ticking bool
	loadErr string
}

// New creates the root model.
func New(api API, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Zoom == 0 {
		opts.Zoom = 10
	}
	if opts.ClusterCell < 1 {
		opts.ClusterCell = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	keys := DefaultKeyMap()
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorMarker)

	return Model{
		api:       api,
		opts:      opts,
		log:       opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
		keys:      keys,
		bindings:  bindingTable(keys),
		help:      help.New(),
		spinner:   sp,
		login:     login.New(),
		statusBar: status.New(),
		debug:     debug.New(),
	}
}

// Init routes to the map when a session is stored and to the login view
// otherwise.
func (m Model) Init() tea.Cmd {
	if _, ok := m.api.Session(); ok {
		return navigate(RouteMap)
	}
	return navigate(RouteLogin)
}

// State returns the current state.
func (m Model) State() State {
	return m.state
}

// Route returns the current client route.
func (m Model) Route() string {
	return m.route
}

// Redirects returns how many times the login view has been entered.
func (m Model) Redirects() int {
	return m.redirects
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.help.Width = msg.Width
		m.layout()
		if m.ms != nil {
			m.ms.view.CenterCursor()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case navigateMsg:
		return m.navigate(msg.route)

	case client.RequestLog:
		m.debug.Add(debug.KindAPI, formatRequest(msg))
		return m, nil

	case loginMsg:
		return m.loginDone(msg)

	case registerMsg:
		return m.registerDone(msg)

	case loggedOutMsg:
		if msg.err != nil {
			m.log.Warn("logout request failed", "app.logout", "error", msg.err)
			m.debug.Add(debug.KindErr, "logout: "+msg.err.Error())
		}
		return m.showLogin(RouteLogout, loggedOutText, false)

	case categoriesMsg:
		return m.categoriesLoaded(msg)

	case eventsMsg:
		return m.eventsLoaded(msg)

	case createdMsg:
		return m.created(msg)

	case reactedMsg:
		return m.reacted(msg)

	case unreactedMsg:
		return m.unreacted(msg)

	case deletedMsg:
		return m.deleted(msg)

	case markerMsg:
		return m.openBalloon(msg.id)

	case mapview.FrameMsg:
		if m.ms == nil {
			m.ticking = false
			return m, nil
		}
		m.ms.view.Step()
		cmd := m.ms.view.Tick()
		m.ticking = cmd != nil
		return m, cmd

	case spinner.TickMsg:
		if m.state != StateMapLoading || m.opts.NoAnimation {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		m.cancel()
		return m, tea.Quit
	}

	if m.debugOpen {
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Debug):
			m.debugOpen = false
		case key.Matches(msg, m.keys.Up):
			m.debug.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.debug.ScrollDown(1)
		case key.Matches(msg, m.keys.Clear):
			m.debug.Clear()
		case key.Matches(msg, m.keys.Errors):
			m.debug.ToggleErrors()
		}
		return m, nil
	}

	for _, b := range m.bindings[m.state] {
		if key.Matches(msg, b.key) {
			return b.run(m, msg)
		}
	}

	// Unbound keys are text input.
	var cmd tea.Cmd
	switch m.state {
	case StateUnauthenticated:
		m.login, cmd = m.login.Update(msg)
	case StateModalOpen:
		m.ms.form, cmd = m.ms.form.Update(msg)
	}
	return m, cmd
}

// navigate moves to a client route. Map routes need a stored session; without
// one the login view is shown instead.
func (m Model) navigate(raw string) (Model, tea.Cmd) {
	r := parseRoute(raw)
	_, hasSession := m.api.Session()
	if r.path == "" {
		if hasSession {
			r.path = RouteMap
		} else {
			r.path = RouteLogin
		}
	}
	m.debug.Add(debug.KindNav, raw)
	m.log.Info("navigate", "app.navigate", "route", raw)

	if r.needsSession() && !hasSession {
		return m.showLogin(RouteLogin, "", false)
	}

	switch r.path {
	case RouteLogin:
		if r.logout {
			return m.showLogin(RouteLogout, loggedOutText, false)
		}
		return m.showLogin(RouteLogin, "", false)

	case RouteRegister:
		m, _ = m.showLogin(RouteRegister, "", false)
		cmd := m.login.SetMode(login.ModeRegister)
		return m, cmd

	case RouteEvents:
		var cmd tea.Cmd
		m, cmd = m.enterMap()
		if m.ms != nil {
			m.showList()
		}
		return m, cmd

	default:
		return m.enterMap()
	}
}

// showLogin tears down the map route and shows the login view.
func (m Model) showLogin(route, flash string, isErr bool) (Model, tea.Cmd) {
	if m.state != StateUnauthenticated || m.route == "" {
		m.redirects++
	}
	m.teardown()
	m.state = StateUnauthenticated
	m.route = route
	m.login.Busy = false
	m.login.SetMode(login.ModeLogin)
	m.login.SetFlash(flash, isErr)
	m.statusBar.User = ""
	m.statusBar.SetCounts(0, 0)
	m.statusBar.Clear()
	m.statusBar.Zoom = 0
	return m, nil
}

// enterMap builds a fresh map session and starts loading it. An existing
// session is reused.
func (m Model) enterMap() (Model, tea.Cmd) {
	if m.ms != nil {
		m.route = RouteMap
		m.state = StateMapReady
		if !m.ms.loaded {
			m.state = StateMapLoading
		}
		m.ms.confirm = nil
		if m.ms.balloon != nil {
			m.closeBalloon()
		}
		m.layout()
		return m, nil
	}

	m.gen++
	ms, err := newMapSession(m.ctx, m.gen, m.opts)
	if err != nil {
		m.log.Error(err, "app.enterMap")
		m.statusBar.Error("MapError", err.Error())
		return m, nil
	}
	m.ms = ms
	m.state = StateMapLoading
	m.route = RouteMap
	m.loadErr = ""
	m.statusBar.Clear()
	if u, ok := m.api.CurrentUser(); ok {
		m.statusBar.User = u.Username
		if u.Username == "" {
			m.statusBar.User = fmt.Sprintf("user #%d", u.ID)
		}
	}
	m.layout()
	m.ms.view.CenterCursor()

	cmds := []tea.Cmd{
		categoriesCmd(ms.ctx, m.api, ms.gen),
		startFetch(ms, m.api, m.userID()),
	}
	if !m.opts.NoAnimation {
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) teardown() {
	if m.ms == nil {
		return
	}
	m.ms.close()
	m.ms = nil
	m.ticking = false
	m.loadErr = ""
}

// stale reports whether a result belongs to a map session that is gone.
func (m Model) stale(gen uint64) bool {
	return m.ms == nil || m.ms.gen != gen
}

// authFailed sends the user to the login view once. The client has already
// dropped the stored token.
func (m Model) authFailed(err error) (Model, tea.Cmd) {
	m.log.Warn("session rejected", "app.auth", "error", err)
	m.debug.Add(debug.KindErr, err.Error())
	if m.state == StateUnauthenticated {
		return m, nil
	}
	return m.showLogin(RouteLogin, expiredText, true)
}

func (m Model) currentUser() tokenstore.Profile {
	u, _ := m.api.CurrentUser()
	return u
}

func (m Model) userID() int64 {
	return m.currentUser().ID
}

func (m Model) isCreator(e client.Event) bool {
	id := m.userID()
	return id != 0 && e.CreatorID == id
}

// --- login ---

func (m Model) loginDone(msg loginMsg) (Model, tea.Cmd) {
	m.login.Busy = false
	m.login.ClearPassword()
	if msg.err != nil {
		m.log.Warn("login failed", "app.login", "error", msg.err)
		text := client.MessageOf(msg.err)
		if client.IsKind(msg.err, client.KindAuth) {
			text = "Invalid username or password."
		}
		m.login.SetFlash(text, true)
		return m, nil
	}
	m.login.SetFlash("", false)
	return m.navigate(RouteMap)
}

func (m Model) registerDone(msg registerMsg) (Model, tea.Cmd) {
	m.login.Busy = false
	if msg.err != nil {
		m.login.SetFlash(client.MessageOf(msg.err), true)
		return m, nil
	}
	text := msg.message
	if text == "" {
		text = "Account created. Please sign in."
	}
	cmd := m.login.SetMode(login.ModeLogin)
	m.login.SetFlash(text, false)
	m.route = RouteLogin
	return m, cmd
}

// --- loading ---

func (m Model) categoriesLoaded(msg categoriesMsg) (Model, tea.Cmd) {
	if m.stale(msg.gen) {
		return m, nil
	}
	if msg.err != nil {
		if client.IsKind(msg.err, client.KindAuth) {
			return m.authFailed(msg.err)
		}
		m.log.Warn("categories unavailable", "app.categories", "error", msg.err)
		m.debug.Add(debug.KindErr, "categories: "+client.MessageOf(msg.err))
		return m, nil
	}
	m.ms.catalog = client.NewCatalog(msg.cats)
	m.ms.form.SetCategories(m.ms.catalog.List())
	m.refreshViews()
	return m, nil
}

func (m Model) eventsLoaded(msg eventsMsg) (Model, tea.Cmd) {
	if m.stale(msg.gen) {
		return m, nil
	}
	ms := m.ms
	if msg.err != nil {
		if client.IsKind(msg.err, client.KindAuth) {
			return m.authFailed(msg.err)
		}
		m.log.Error(msg.err, "app.events")
		m.debug.Add(debug.KindErr, "events: "+msg.err.Error())
		if !ms.loaded {
			m.loadErr = loadFailedText
			m.statusBar.Error(client.KindOf(msg.err).String(), loadFailedText)
			return m, nil
		}
		m.statusBar.Error(client.KindOf(msg.err).String(), client.MessageOf(msg.err))
		return m, nil
	}

	if !ms.cache.ReplaceFrom(msg.seq, msg.events) {
		m.debug.Add(debug.KindMap, fmt.Sprintf("dropped stale fetch #%d", msg.seq))
		return m, nil
	}
	if msg.reactionsOK {
		ms.cache.MergeReactions(msg.reactions)
	}
	ms.loaded = true
	m.loadErr = ""
	if m.state == StateMapLoading {
		m.state = StateMapReady
		if text, isErr := m.statusBar.Message(); isErr && text == loadFailedText {
			m.statusBar.Clear()
		}
	}
	m.debug.Add(debug.KindMap, fmt.Sprintf("fetch #%d: %d events", msg.seq, ms.cache.Len()))
	m.renderMarkers()
	m.refreshViews()
	return m, nil
}

func (m Model) retryLoad(tea.KeyMsg) (Model, tea.Cmd) {
	if m.ms == nil {
		return m.enterMap()
	}
	m.loadErr = ""
	m.statusBar.Clear()
	return m, tea.Batch(
		categoriesCmd(m.ms.ctx, m.api, m.ms.gen),
		startFetch(m.ms, m.api, m.userID()),
	)
}

func (m Model) refresh(tea.KeyMsg) (Model, tea.Cmd) {
	if m.ms == nil {
		return m, nil
	}
	cmds := []tea.Cmd{startFetch(m.ms, m.api, m.userID())}
	if m.ms.catalog.Len() == 0 {
		cmds = append(cmds, categoriesCmd(m.ms.ctx, m.api, m.ms.gen))
	}
	m.statusBar.Info("Refreshing…")
	return m, tea.Batch(cmds...)
}

// renderMarkers redraws every marker from the cache.
func (m *Model) renderMarkers() {
	ms := m.ms
	uid := m.userID()
	ms.view.SetMarkerKinds(func(e client.Event) mapview.MarkerKind {
		switch {
		case uid != 0 && e.CreatorID == uid:
			return mapview.MarkerMine
		case e.MyReaction == client.ReactionGoing:
			return mapview.MarkerGoing
		default:
			return mapview.MarkerDefault
		}
	})
	clustering := ms.view.Clustering()
	placed := ms.view.ClusterMarkers(ms.cache.Events(), func(id int64) tea.Msg {
		return markerMsg{id: id}
	})
	ms.view.SetClustering(clustering)
	m.statusBar.SetCounts(ms.cache.Len(), placed)
}

// refreshViews re-reads the open balloon and the list from the cache.
func (m *Model) refreshViews() {
	ms := m.ms
	ms.list.SetEvents(ms.cache.Events(), ms.catalog, m.userID())
	if ms.balloon == nil {
		return
	}
	e, ok := ms.cache.Find(ms.balloon.Event.ID)
	if !ok {
		m.closeBalloon()
		return
	}
	ms.balloon.Event = e
	ms.balloon.Category = ms.catalog.Name(e.Category)
	ms.balloon.IsCreator = m.isCreator(e)
}
