package deps

import (
	"context"
	"fmt"
	"log"

	"github.com/bwise1/querydesk/config"
	"github.com/bwise1/querydesk/internal/storage"
	"github.com/bwise1/querydesk/internal/storage/postgres"
	"github.com/bwise1/querydesk/internal/storage/sqlite"
	"github.com/bwise1/querydesk/util/websockets"
)

type Dependencies struct {
	Store storage.Store
	Feed  *websockets.CommentFeed
}

// New opens the store selected by cfg.StoreDriver and creates the comment
// feed. The caller runs the feed and closes the store.
func New(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	var (
		store storage.Store
		err   error
	)
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		store, err = postgres.Open(ctx, cfg.Dsn)
	case config.DriverSQLite:
		store, err = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[Deps]: using %s store", cfg.StoreDriver)

	return &Dependencies{
		Store: store,
		Feed:  websockets.NewCommentFeed(),
	}, nil
}

// Close stops the feed and releases the store.
func (d *Dependencies) Close() error {
	if d.Feed != nil {
		d.Feed.Stop()
	}
	if d.Store != nil {
		return d.Store.Close()
	}
	return nil
}
