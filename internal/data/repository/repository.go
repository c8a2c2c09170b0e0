package repository

import (
	"context"

	"movie-catalog/pkg/docstore"

	"go.uber.org/zap"
)

type Repository struct {
	Review ReviewRepository
}

func NewRepository(store docstore.Store, log *zap.Logger) *Repository {
	return &Repository{
		Review: NewReviewRepository(store, log),
	}
}

// EnsureIndexes creates the indexes every repository relies on.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	return r.Review.EnsureIndexes(ctx)
}
