package app

import (
	"context"

	"github.com/FeS1111/TSP/internal/client"
	"github.com/FeS1111/TSP/internal/tokenstore"
)

// API is the part of the backend client the UI uses. *client.HTTPClient
// implements it.
type API interface {
	Session() (tokenstore.Session, bool)
	CurrentUser() (tokenstore.Profile, bool)

	Login(ctx context.Context, username, password string) (tokenstore.Session, error)
	Register(ctx context.Context, username, email, password string) (string, error)
	Logout(ctx context.Context) error

	ListEvents(ctx context.Context) ([]client.Event, error)
	ListReactions(ctx context.Context) ([]client.Reaction, error)
	ListCategories(ctx context.Context) ([]client.Category, error)
	CreateEvent(ctx context.Context, d client.EventDraft) (client.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	SetReaction(ctx context.Context, eventID int64, t client.ReactionType) (client.Reaction, error)
	DeleteReaction(ctx context.Context, reactionID int64) error
}

var _ API = (*client.HTTPClient)(nil)
