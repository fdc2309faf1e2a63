// Package eventcache mirrors the last applied event fetch.
//
// The backend is the only source of truth. Every write is followed by a full
// refetch that replaces the cache wholesale; local patches (ApplyLocalReaction)
// only bridge the gap until that refetch lands. Fetches are numbered so that a
// response overtaken by a newer one is dropped instead of applied.
//
// A Cache is owned by the UI loop and is not safe for concurrent use.
package eventcache

import "github.com/FeS1111/TSP/internal/client"

// Cache is an ordered collection of events.
type Cache struct {
	events []client.Event
	index  map[int64]int

	started uint64 // last sequence handed out by BeginFetch
	applied uint64 // sequence of the fetch currently held
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{index: make(map[int64]int)}
}

// Replace swaps in events wholesale. Duplicate ids keep their first
// occurrence.
func (c *Cache) Replace(events []client.Event) {
	c.events = make([]client.Event, 0, len(events))
	c.index = make(map[int64]int, len(events))
	for _, e := range events {
		if _, dup := c.index[e.ID]; dup {
			continue
		}
		c.index[e.ID] = len(c.events)
		c.events = append(c.events, e)
	}
}

// BeginFetch returns the sequence number for a fetch about to start.
func (c *Cache) BeginFetch() uint64 {
	c.started++
	return c.started
}

// ReplaceFrom applies the result of fetch seq unless a newer fetch has
// already been applied. It reports whether the events were applied.
func (c *Cache) ReplaceFrom(seq uint64, events []client.Event) bool {
	if seq <= c.applied {
		return false
	}
	c.applied = seq
	c.Replace(events)
	return true
}

// Latest returns the sequence of the most recently started fetch.
func (c *Cache) Latest() uint64 {
	return c.started
}

// Applied returns the sequence of the fetch the cache currently reflects.
func (c *Cache) Applied() uint64 {
	return c.applied
}

// Find returns the event with the given id.
func (c *Cache) Find(id int64) (client.Event, bool) {
	i, ok := c.index[id]
	if !ok {
		return client.Event{}, false
	}
	return c.events[i], true
}

// Events returns the events in fetch order. The slice must not be modified.
func (c *Cache) Events() []client.Event {
	return c.events
}

// Len returns the number of cached events.
func (c *Cache) Len() int {
	return len(c.events)
}

// Patch records an optimistic change: the event as it was, and the fetch the
// change was made on top of.
type Patch struct {
	Prev client.Event
	Seq  uint64
}

// ApplyLocalReaction optimistically records the user's reaction on event id
// and adjusts the going list. The returned Patch lets the caller Restore the
// event if the server rejects the change.
func (c *Cache) ApplyLocalReaction(id int64, t client.ReactionType, username string) (Patch, bool) {
	i, ok := c.index[id]
	if !ok {
		return Patch{}, false
	}
	prev := c.events[i]
	next := cloneEvent(prev)

	wasGoing := prev.MyReaction == client.ReactionGoing
	next.MyReaction = t

	switch {
	case t == client.ReactionGoing && !wasGoing:
		if username != "" && !next.IsGoing(username) {
			next.GoingUsers = append(next.GoingUsers, client.GoingUser{Username: username})
		}
		if next.GoingCount != nil {
			n := *next.GoingCount + 1
			next.GoingCount = &n
		}
	case t != client.ReactionGoing && wasGoing:
		next.GoingUsers = removeUser(next.GoingUsers, username)
		if next.GoingCount != nil && *next.GoingCount > 0 {
			n := *next.GoingCount - 1
			next.GoingCount = &n
		}
	}

	c.events[i] = next
	return Patch{Prev: prev, Seq: c.applied}, true
}

// Restore undoes p and reports whether it did. Once a newer fetch has been
// applied the cache already holds server state, so nothing is restored.
func (c *Cache) Restore(p Patch) bool {
	if p.Seq != c.applied {
		return false
	}
	i, ok := c.index[p.Prev.ID]
	if !ok {
		return false
	}
	c.events[i] = p.Prev
	return true
}

// MergeReactions sets MyReaction on every cached event from the user's
// reaction list. Events without a reaction are reset to ReactionNone.
func (c *Cache) MergeReactions(reactions []client.Reaction) {
	mine := make(map[int64]client.ReactionType, len(reactions))
	for _, r := range reactions {
		mine[r.EventID] = r.Type
	}
	for i := range c.events {
		c.events[i].MyReaction = mine[c.events[i].ID]
	}
}

func cloneEvent(e client.Event) client.Event {
	e.GoingUsers = append([]client.GoingUser(nil), e.GoingUsers...)
	if e.GoingCount != nil {
		n := *e.GoingCount
		e.GoingCount = &n
	}
	return e
}

func removeUser(users []client.GoingUser, username string) []client.GoingUser {
	if username == "" {
		return users
	}
	out := users[:0]
	for _, u := range users {
		if u.Username != username {
			out = append(out, u)
		}
	}
	return out
}
