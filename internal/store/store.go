// Package store caches enrichment lookups and fetched page text between
// pipeline runs.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Store is the cache used by the enrichment stages. Lookup values are
// short strings keyed by source, field and lead identity; an empty cached
// value is a remembered miss. Pages are fetched text keyed by URL.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error

	GetPage(ctx context.Context, url string) ([]byte, error)
	SetPage(ctx context.Context, url string, content []byte) error

	DeleteExpired(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store selected by driver: "sqlite" opens path, "none"
// disables caching.
func Open(ctx context.Context, driver, path string, ttl time.Duration) (Store, error) {
	switch driver {
	case "sqlite":
		s, err := NewSQLite(path, ttl)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case "none", "":
		return Noop{}, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

// Noop is a Store that never holds anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, bool, error)  { return "", false, nil }
func (Noop) Set(context.Context, string, string) error          { return nil }
func (Noop) GetPage(context.Context, string) ([]byte, error)    { return nil, nil }
func (Noop) SetPage(context.Context, string, []byte) error      { return nil }
func (Noop) DeleteExpired(context.Context) (int, error)         { return 0, nil }
func (Noop) Migrate(context.Context) error                      { return nil }
func (Noop) Close() error                                       { return nil }
