package usecase

import (
	"movie-catalog/internal/data/repository"

	"go.uber.org/zap"
)

type Service struct {
	Movie  MovieService
	Review ReviewService
}

func NewService(repo *repository.Repository, catalog MovieCatalog, publisher EventPublisher, log *zap.Logger) *Service {
	review := NewReviewService(repo, publisher, log)
	return &Service{
		Movie:  NewMovieService(catalog, review, log),
		Review: review,
	}
}
