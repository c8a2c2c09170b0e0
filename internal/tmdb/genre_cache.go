package tmdb

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const DefaultGenreTimeout = 30 * time.Second

// PopulateFunc lists every genre from the source of truth.
type PopulateFunc func(ctx context.Context) ([]Genre, error)

// GenreStore is an optional second-level store shared between processes.
type GenreStore interface {
	Load(ctx context.Context) (map[int]string, bool, error)
	Save(ctx context.Context, genres map[int]string, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// GenreCache owns the id -> name map. It is filled on first use; with a TTL
// of zero it is never refreshed unless Invalidate is called. Concurrent
// callers on a cold cache share one populate call.
type GenreCache struct {
	populate PopulateFunc
	ttl      time.Duration
	timeout  time.Duration
	store    GenreStore
	log      *zap.Logger
	now      func() time.Time

	mu       sync.RWMutex
	genres   map[int]string
	loadedAt time.Time

	group singleflight.Group
}

type GenreCacheOption func(*GenreCache)

func WithGenreTTL(ttl time.Duration) GenreCacheOption {
	return func(g *GenreCache) { g.ttl = ttl }
}

// WithGenreTimeout bounds one populate call, retries included.
func WithGenreTimeout(d time.Duration) GenreCacheOption {
	return func(g *GenreCache) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithGenreStore(s GenreStore) GenreCacheOption {
	return func(g *GenreCache) { g.store = s }
}

func WithGenreLogger(log *zap.Logger) GenreCacheOption {
	return func(g *GenreCache) { g.log = log }
}

func NewGenreCache(populate PopulateFunc, opts ...GenreCacheOption) *GenreCache {
	g := &GenreCache{
		populate: populate,
		timeout:  DefaultGenreTimeout,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Get returns the cached map, populating it if empty or expired. The
// returned map must not be modified.
func (g *GenreCache) Get(ctx context.Context) (map[int]string, error) {
	if m, ok := g.cached(); ok {
		return m, nil
	}

	// the shared populate outlives any single caller; each caller still
	// stops waiting when its own context ends
	ch := g.group.DoChan("genres", func() (any, error) {
		if m, ok := g.cached(); ok {
			return m, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
		return g.load(loadCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[int]string), nil
	}
}

// Invalidate drops the local copy and, when configured, the shared one.
func (g *GenreCache) Invalidate(ctx context.Context) {
	g.mu.Lock()
	g.genres = nil
	g.loadedAt = time.Time{}
	g.mu.Unlock()

	if g.store != nil {
		if err := g.store.Clear(ctx); err != nil {
			g.log.Warn("Failed to clear shared genre cache", zap.Error(err))
		}
	}
}

func (g *GenreCache) cached() (map[int]string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.genres == nil {
		return nil, false
	}
	if g.ttl > 0 && g.now().Sub(g.loadedAt) >= g.ttl {
		return nil, false
	}
	return g.genres, true
}

func (g *GenreCache) load(ctx context.Context) (map[int]string, error) {
	if g.store != nil {
		m, found, err := g.store.Load(ctx)
		switch {
		case err != nil:
			g.log.Warn("Failed to read shared genre cache", zap.Error(err))
		case found && len(m) > 0:
			g.set(m)
			return m, nil
		}
	}

	list, err := g.populate(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[int]string, len(list))
	for _, genre := range list {
		m[genre.ID] = genre.Name
	}
	g.set(m)
	g.log.Info("Genre map loaded", zap.Int("genres", len(m)))

	if g.store != nil {
		if err := g.store.Save(ctx, m, g.ttl); err != nil {
			g.log.Warn("Failed to write shared genre cache", zap.Error(err))
		}
	}
	return m, nil
}

func (g *GenreCache) set(m map[int]string) {
	g.mu.Lock()
	g.genres = m
	g.loadedAt = g.now()
	g.mu.Unlock()
}
