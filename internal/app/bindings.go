package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// handler reacts to a key in a given state.
type handler func(Model, tea.KeyMsg) (Model, tea.Cmd)

type binding struct {
	key    key.Binding
	run    handler
	hidden bool // left out of the footer help
}

func bind(k key.Binding, h handler) binding {
	return binding{key: k, run: h}
}

func hide(k key.Binding, h handler) binding {
	return binding{key: k, run: h, hidden: true}
}

// bindingTable maps every state to its keys. It is built once; the first
// matching binding wins, and keys matching nothing go to the focused text
// input (login and modal states only).
func bindingTable(k KeyMap) map[State][]binding {
	mapKeys := []binding{
		bind(k.Up, moveCursor(0, -1)),
		hide(k.Down, moveCursor(0, 1)),
		hide(k.Left, moveCursor(-1, 0)),
		hide(k.Right, moveCursor(1, 0)),
		bind(k.PanUp, pan(0, -4)),
		hide(k.PanDown, pan(0, 4)),
		hide(k.PanLeft, pan(-8, 0)),
		hide(k.PanRight, pan(8, 0)),
		bind(k.ZoomIn, zoom(1)),
		hide(k.ZoomOut, zoom(-1)),
	}

	// Any map movement closes an open balloon.
	balloonMapKeys := make([]binding, len(mapKeys))
	for i, b := range mapKeys {
		b.run = closing(b.run)
		b.hidden = true
		balloonMapKeys[i] = b
	}

	common := []binding{
		bind(k.Refresh, Model.refresh),
		bind(k.Logout, Model.logout),
		bind(k.Debug, Model.openDebug),
		bind(k.Quit, Model.quit),
	}

	return map[State][]binding{
		StateUnauthenticated: {
			bind(k.Enter, Model.submitLogin),
			bind(k.Next, Model.loginNext),
			hide(k.Prev, Model.loginPrev),
			bind(k.Register, Model.toggleRegister),
			hide(k.Escape, Model.loginEscape),
		},

		StateMapLoading: {
			bind(k.Refresh, Model.retryLoad),
			bind(k.Logout, Model.logout),
			bind(k.Debug, Model.openDebug),
			bind(k.Quit, Model.quit),
		},

		StateMapReady: concat(
			[]binding{bind(k.Enter, Model.click)},
			mapKeys,
			[]binding{
				bind(k.NewEvent, Model.newEvent),
				bind(k.Fit, Model.fit),
				bind(k.Cluster, Model.toggleClustering),
				bind(k.List, Model.openList),
			},
			common,
		),

		StateModalOpen: {
			bind(k.Enter, Model.submitEvent),
			bind(k.Next, Model.formNext),
			hide(k.Prev, Model.formPrev),
			hide(k.Left, cycleCategory(-1)),
			hide(k.Right, cycleCategory(1)),
			bind(k.Escape, Model.cancelModal),
		},

		StateBalloonOpen: concat(
			[]binding{
				bind(k.Going, Model.reactGoing),
				bind(k.NotGoing, Model.reactNotGoing),
				bind(k.Delete, Model.askDelete),
				bind(k.Escape, Model.escapeBalloon),
				hide(k.Enter, closing(Model.click)),
			},
			balloonMapKeys,
			common,
		),

		StateConfirmOpen: {
			bind(k.Yes, Model.confirmYes),
			bind(k.No, Model.confirmNo),
		},

		StateEventList: concat(
			[]binding{
				bind(k.Up, Model.listUp),
				hide(k.Down, Model.listDown),
				bind(k.Enter, Model.listSelect),
				bind(k.Escape, Model.closeList),
				hide(k.List, Model.closeList),
			},
			common,
		),
	}
}

func concat(groups ...[]binding) []binding {
	var out []binding
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
