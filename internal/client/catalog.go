package client

import "sort"

// Catalog is the client-side category index, built from /api/categories/.
type Catalog struct {
	byID  map[int64]Category
	order []Category
}

// NewCatalog indexes cats, ordered by name.
func NewCatalog(cats []Category) Catalog {
	c := Catalog{byID: make(map[int64]Category, len(cats))}
	for _, cat := range cats {
		if _, dup := c.byID[cat.ID]; dup {
			continue
		}
		c.byID[cat.ID] = cat
		c.order = append(c.order, cat)
	}
	sort.SliceStable(c.order, func(i, j int) bool {
		return c.order[i].Name < c.order[j].Name
	})
	return c
}

// List returns the categories in display order.
func (c Catalog) List() []Category {
	return c.order
}

// Len returns the number of categories.
func (c Catalog) Len() int {
	return len(c.order)
}

// Name returns the category name for id, or "" when id is nil or unknown.
func (c Catalog) Name(id *int64) string {
	if id == nil {
		return ""
	}
	return c.byID[*id].Name
}

// EventsByCategory groups events by category name; events without a known
// category go under "".
func (c Catalog) EventsByCategory(events []Event) map[string][]Event {
	out := make(map[string][]Event)
	for _, e := range events {
		name := c.Name(e.Category)
		out[name] = append(out[name], e)
	}
	return out
}
