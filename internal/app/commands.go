package app

import (
	"context"

	"github.com/FeS1111/TSP/internal/client"
	"github.com/FeS1111/TSP/internal/eventcache"
	"github.com/FeS1111/TSP/internal/tokenstore"
	tea "github.com/charmbracelet/bubbletea"
)

// Commands only talk to the backend and report back; every change to the
// cache and the map happens in Update.

type navigateMsg struct {
	route string
}

type loginMsg struct {
	session tokenstore.Session
	err     error
}

type registerMsg struct {
	message string
	err     error
}

type loggedOutMsg struct {
	err error
}

type categoriesMsg struct {
	gen  uint64
	cats []client.Category
	err  error
}

type eventsMsg struct {
	gen       uint64
	seq       uint64
	events    []client.Event
	reactions []client.Reaction

	// reactionsOK is false when the reaction list could not be loaded; the
	// cached answers are then kept as they are.
	reactionsOK bool
	err         error
}

type createdMsg struct {
	gen   uint64
	event client.Event
	err   error
}

type reactedMsg struct {
	gen     uint64
	eventID int64
	typ     client.ReactionType
	patch   eventcache.Patch
	patched bool
	err     error
}

type unreactedMsg struct {
	gen     uint64
	eventID int64
	err     error
}

type deletedMsg struct {
	gen     uint64
	eventID int64
	err     error
}

// markerMsg is produced by a click on a single marker.
type markerMsg struct {
	id int64
}

func navigate(route string) tea.Cmd {
	return func() tea.Msg { return navigateMsg{route: route} }
}

func loginCmd(ctx context.Context, api API, username, password string) tea.Cmd {
	return func() tea.Msg {
		s, err := api.Login(ctx, username, password)
		return loginMsg{session: s, err: err}
	}
}

func registerCmd(ctx context.Context, api API, username, email, password string) tea.Cmd {
	return func() tea.Msg {
		msg, err := api.Register(ctx, username, email, password)
		return registerMsg{message: msg, err: err}
	}
}

func logoutCmd(ctx context.Context, api API) tea.Cmd {
	return func() tea.Msg {
		return loggedOutMsg{err: api.Logout(ctx)}
	}
}

func categoriesCmd(ctx context.Context, api API, gen uint64) tea.Cmd {
	return func() tea.Msg {
		cats, err := api.ListCategories(ctx)
		return categoriesMsg{gen: gen, cats: cats, err: err}
	}
}

// fetchCmd loads the events and the user's reactions. A reaction failure
// does not fail the fetch unless it is an auth error.
func fetchCmd(ctx context.Context, api API, gen, seq uint64, userID int64) tea.Cmd {
	return func() tea.Msg {
		events, err := api.ListEvents(ctx)
		if err != nil {
			return eventsMsg{gen: gen, seq: seq, err: err}
		}
		reactions, err := api.ListReactions(ctx)
		if err != nil && client.IsKind(err, client.KindAuth) {
			return eventsMsg{gen: gen, seq: seq, err: err}
		}
		return eventsMsg{
			gen:         gen,
			seq:         seq,
			events:      events,
			reactions:   ownReactions(reactions, userID),
			reactionsOK: err == nil,
		}
	}
}

func createCmd(ctx context.Context, api API, gen uint64, d client.EventDraft) tea.Cmd {
	return func() tea.Msg {
		e, err := api.CreateEvent(ctx, d)
		return createdMsg{gen: gen, event: e, err: err}
	}
}

func reactCmd(ctx context.Context, api API, gen uint64, eventID int64, t client.ReactionType, patch eventcache.Patch, patched bool) tea.Cmd {
	return func() tea.Msg {
		_, err := api.SetReaction(ctx, eventID, t)
		return reactedMsg{gen: gen, eventID: eventID, typ: t, patch: patch, patched: patched, err: err}
	}
}

// unreactCmd removes the user's reaction to eventID. The reaction id is
// looked up first because the event list does not carry it.
func unreactCmd(ctx context.Context, api API, gen uint64, eventID, userID int64) tea.Cmd {
	return func() tea.Msg {
		reactions, err := api.ListReactions(ctx)
		if err != nil {
			return unreactedMsg{gen: gen, eventID: eventID, err: err}
		}
		for _, r := range ownReactions(reactions, userID) {
			if r.EventID == eventID {
				err = api.DeleteReaction(ctx, r.ID)
				return unreactedMsg{gen: gen, eventID: eventID, err: err}
			}
		}
		return unreactedMsg{gen: gen, eventID: eventID, err: &client.Error{
			Kind:    client.KindNotFound,
			Op:      "app.unreact",
			Message: "reaction not found",
		}}
	}
}

func deleteCmd(ctx context.Context, api API, gen uint64, eventID int64) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{gen: gen, eventID: eventID, err: api.DeleteEvent(ctx, eventID)}
	}
}

// ownReactions keeps the reactions made by userID. The backend may list
// everyone's reactions; when the user id is unknown all are kept.
func ownReactions(rs []client.Reaction, userID int64) []client.Reaction {
	if userID == 0 {
		return rs
	}
	out := rs[:0:0]
	for _, r := range rs {
		if r.UserID == 0 || r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

// startFetch numbers a new fetch against cache and returns its command.
func startFetch(ms *mapSession, api API, userID int64) tea.Cmd {
	seq := ms.cache.BeginFetch()
	return fetchCmd(ms.ctx, api, ms.gen, seq, userID)
}
