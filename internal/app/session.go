package app

import (
	"context"

	"github.com/FeS1111/TSP/internal/client"
	"github.com/FeS1111/TSP/internal/eventcache"
	"github.com/FeS1111/TSP/internal/mapview"
	"github.com/FeS1111/TSP/internal/views/balloon"
	"github.com/FeS1111/TSP/internal/views/eventform"
	"github.com/FeS1111/TSP/internal/views/eventlist"
)

// mapSession is everything that lives while the map route is shown. It is
// built on entering /map/ and dropped on navigation away; results carrying
// another generation are ignored.
type mapSession struct {
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc

	cache   *eventcache.Cache
	view    *mapview.Map
	catalog client.Catalog
	loaded  bool

	form    eventform.Model
	balloon *balloon.Model
	confirm *confirmPrompt
	list    eventlist.Model
}

func newMapSession(parent context.Context, gen uint64, opts Options) (*mapSession, error) {
	ctx, cancel := context.WithCancel(parent)
	ms := &mapSession{
		gen:     gen,
		ctx:     ctx,
		cancel:  cancel,
		cache:   eventcache.New(),
		view:    mapview.New(opts.ClusterCell),
		catalog: client.NewCatalog(nil),
		form:    eventform.New(nil),
		list:    eventlist.New(),
	}
	if err := ms.view.CreateMap(opts.Center, opts.Zoom); err != nil {
		cancel()
		return nil, err
	}
	ms.view.SetClustering(true)
	return ms, nil
}

func (ms *mapSession) close() {
	if ms != nil {
		ms.cancel()
	}
}

// confirmKind is what a yes/no prompt will do when accepted.
type confirmKind int

const (
	confirmUnreact confirmKind = iota
	confirmDelete
)

type confirmPrompt struct {
	kind    confirmKind
	eventID int64
	text    string
}
