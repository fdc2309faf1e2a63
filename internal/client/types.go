// Package client provides the HTTP client for the events backend.
// Types mirror the backend's JSON without depending on any server code.
package client

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReactionType is the user's answer to an event.
type ReactionType string

const (
	ReactionNone     ReactionType = ""
	ReactionGoing    ReactionType = "going"
	ReactionNotGoing ReactionType = "not_going"
)

// Valid reports whether t is one of the values the backend accepts.
func (t ReactionType) Valid() bool {
	return t == ReactionGoing || t == ReactionNotGoing
}

// Coord is a latitude or longitude. The backend serializes decimals as
// strings ("55.75157400"), and either coordinate may be null.
type Coord struct {
	Value float64
	Valid bool
}

// At returns a valid coordinate.
func At(v float64) Coord {
	return Coord{Value: v, Valid: true}
}

func (c *Coord) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*c = Coord{}
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
		if s == "" {
			*c = Coord{}
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("coordinate %s: %w", string(data), err)
	}
	*c = Coord{Value: v, Valid: true}
	return nil
}

func (c Coord) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(strconv.FormatFloat(c.Value, 'f', 8, 64))
}

// GoingUser is the short user record listed under an event.
type GoingUser struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Event is a map entry as returned by /api/events/.
type Event struct {
	ID          int64       `json:"event_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Datetime    time.Time   `json:"datetime"`
	Latitude    Coord       `json:"latitude"`
	Longitude   Coord       `json:"longitude"`
	Category    *int64      `json:"category"`
	CreatorID   int64       `json:"creator"`
	GoingUsers  []GoingUser `json:"going_users"`
	// GoingCount is sent by some backend versions; GoingTotal falls back to
	// len(GoingUsers) when it is absent.
	GoingCount *int `json:"going_count,omitempty"`

	// MyReaction is filled in by the client from /api/reactions/.
	MyReaction ReactionType `json:"my_reaction,omitempty"`
}

// HasCoords reports whether the event can be placed on a map.
func (e Event) HasCoords() bool {
	return e.Latitude.Valid && e.Longitude.Valid
}

// GoingTotal returns the aggregate "going" count.
func (e Event) GoingTotal() int {
	if e.GoingCount != nil {
		return *e.GoingCount
	}
	return len(e.GoingUsers)
}

// IsGoing reports whether username is in the going list.
func (e Event) IsGoing(username string) bool {
	for _, u := range e.GoingUsers {
		if u.Username == username {
			return true
		}
	}
	return false
}

// EventDraft is the body of POST /api/events/.
type EventDraft struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Datetime    time.Time `json:"datetime"`
	Latitude    Coord     `json:"latitude"`
	Longitude   Coord     `json:"longitude"`
	Category    *int64    `json:"category,omitempty"`
}

// Reaction is one user's answer to one event.
type Reaction struct {
	ID      int64        `json:"reaction_id"`
	UserID  int64        `json:"user"`
	EventID int64        `json:"event"`
	Type    ReactionType `json:"type"`
}

// Category is an event category.
type Category struct {
	ID   int64  `json:"category_id"`
	Name string `json:"name"`
}

// --- request/response bodies ---

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

type reactionRequest struct {
	Event int64        `json:"event"`
	Type  ReactionType `json:"type"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}
