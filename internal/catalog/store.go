package catalog

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"biaslens/internal/logging"
	"biaslens/internal/metrics"
)

// Store caches the catalog built from a Source and rebuilds it on request.
type Store struct {
	src   Source
	snap  atomic.Pointer[Catalog]
	group singleflight.Group
}

func NewStore(src Source) *Store {
	return &Store{src: src}
}

// Load returns the cached snapshot, building it on first use or when
// forceRefresh is set. A failed build is logged and yields Empty. Empty is
// also published if nothing was before, so later matches degrade to
// unresolved until the next refresh; a good snapshot is never replaced by it.
func (s *Store) Load(ctx context.Context, forceRefresh bool) *Catalog {
	if !forceRefresh {
		if c := s.snap.Load(); c != nil {
			return c
		}
	}
	key := "load"
	if forceRefresh {
		key = "refresh"
	}
	v, _, _ := s.group.Do(key, func() (any, error) {
		if !forceRefresh {
			if c := s.snap.Load(); c != nil {
				return c, nil
			}
		}
		return s.build(ctx), nil
	})
	return v.(*Catalog)
}

// Current returns the published snapshot, loading it if nothing has been published.
func (s *Store) Current() *Catalog {
	return s.Load(context.Background(), false)
}

func (s *Store) build(ctx context.Context) *Catalog {
	metrics.CatalogLoads.Inc()
	if s.src == nil {
		return s.fail(errNoSource)
	}
	rows, err := s.src.LoadBiasRows(ctx)
	if err != nil {
		return s.fail(err)
	}
	c := New(Parse(rows))
	s.snap.Store(c)
	metrics.CatalogSize.Set(float64(c.Len()))
	logging.Info("catalog_loaded", map[string]any{"sources": c.Len()})
	return c
}

var errNoSource = errors.New("no bias source configured")

func (s *Store) fail(err error) *Catalog {
	metrics.CatalogLoadErrors.Inc()
	logging.Error("catalog_load_error", map[string]any{"error": err.Error()})
	s.snap.CompareAndSwap(nil, Empty)
	return Empty
}
