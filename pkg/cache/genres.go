package cache

import (
	"context"
	"strconv"
	"time"
)

const genreKey = "tmdb:genres:movie"

// GenreStore keeps the upstream genre map in Redis so every instance
// resolves names from one copy.
type GenreStore struct {
	cache *RedisCache
}

func NewGenreStore(c *RedisCache) *GenreStore {
	return &GenreStore{cache: c}
}

func (s *GenreStore) Load(ctx context.Context) (map[int]string, bool, error) {
	// JSON object keys are strings
	var raw map[string]string
	found, err := s.cache.Get(ctx, genreKey, &raw)
	if err != nil || !found {
		return nil, false, err
	}
	out := make(map[int]string, len(raw))
	for k, name := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[id] = name
	}
	return out, true, nil
}

func (s *GenreStore) Save(ctx context.Context, genres map[int]string, ttl time.Duration) error {
	return s.cache.Set(ctx, genreKey, genres, ttl)
}

func (s *GenreStore) Clear(ctx context.Context) error {
	return s.cache.Delete(ctx, genreKey)
}
