package app

import (
	"context"
	"errors"

	"github.com/opencomp/recordcache/internal/cache"
	"github.com/opencomp/recordcache/internal/config"
)

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config  *config.Config
	Cache   *cache.View
	Store   cache.Store
	Fetcher cache.Fetcher

	BaseCtx context.Context
	Cancel  context.CancelFunc

	refresherDone <-chan struct{}
}

func New(cfg *config.Config, view *cache.View, store cache.Store, fetcher cache.Fetcher) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if view == nil {
		return nil, errors.New("cache view is nil")
	}
	if store == nil {
		return nil, errors.New("snapshot store is nil")
	}
	if fetcher == nil {
		return nil, errors.New("fetcher is nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config:  cfg,
		Cache:   view,
		Store:   store,
		Fetcher: fetcher,
		BaseCtx: ctx,
		Cancel:  cancel,
	}, nil
}

// StartRefresher initializes the cache (publishing persisted or freshly
// fetched data) and launches the background refresh loop. It must succeed
// before the HTTP servers start serving; its error is fatal.
func (a *App) StartRefresher() error {
	r := cache.NewRefresher(a.Cache, a.Store, a.Fetcher, a.Config.Data.RefreshInterval)
	done, err := r.Start(a.BaseCtx)
	if err != nil {
		return err
	}
	a.refresherDone = done
	return nil
}

// Shutdown cancels the lifecycle context and waits for the refresher to stop.
func (a *App) Shutdown() {
	if a == nil || a.Cancel == nil {
		return
	}
	a.Cancel()
	if a.refresherDone != nil {
		<-a.refresherDone
	}
}
