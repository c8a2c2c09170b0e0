package repository

import (
	"context"
	"errors"
	"fmt"

	"movie-catalog/internal/data/entity"
	"movie-catalog/pkg/docstore"

	"go.uber.org/zap"
)

const reviewCollection = "reviews"

// ListOptions pages and orders a review listing.
type ListOptions struct {
	Skip      int
	Limit     int
	SortBy    string
	SortOrder docstore.SortOrder
}

type ReviewRepository interface {
	EnsureIndexes(ctx context.Context) error

	// Create stores the review and sets its ID. A second review for the same
	// movie and user fails with docstore.ErrDuplicateKey.
	Create(ctx context.Context, review *entity.Review) error
	FindByID(ctx context.Context, id string) (*entity.Review, error)
	FindByMovieID(ctx context.Context, movieID string, opts ListOptions) ([]*entity.Review, error)
	FindByUserID(ctx context.Context, userID string, opts ListOptions) ([]*entity.Review, error)
	FindByUserAndMovie(ctx context.Context, userID, movieID string) (*entity.Review, error)
	FindRecent(ctx context.Context, limit int) ([]*entity.Review, error)
	CountByMovieID(ctx context.Context, movieID string) (int64, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
	// Update applies fields and returns the updated review. Fails with
	// docstore.ErrNoDocuments when id is unknown.
	Update(ctx context.Context, id string, fields docstore.Document) (*entity.Review, error)
	Delete(ctx context.Context, id string) error

	// RatingDistribution counts the movie's reviews per rating value.
	RatingDistribution(ctx context.Context, movieID string) ([]docstore.GroupCount, error)
}

type reviewRepository struct {
	coll docstore.Collection
	log  *zap.Logger
}

func NewReviewRepository(store docstore.Store, log *zap.Logger) ReviewRepository {
	return &reviewRepository{
		coll: store.Collection(reviewCollection, docstore.WithTimeFields(entity.FieldCreatedAt, entity.FieldUpdatedAt)),
		log:  log.With(zap.String("repository", "review")),
	}
}

func reviewIndexes() []docstore.IndexSpec {
	return []docstore.IndexSpec{
		{
			Name: "unique_user_movie_review",
			Keys: []docstore.SortField{
				{Field: entity.FieldMovieID, Order: docstore.Ascending},
				{Field: entity.FieldUserID, Order: docstore.Ascending},
			},
			Unique: true,
		},
		{
			Name: "movie_reviews_pagination",
			Keys: []docstore.SortField{
				{Field: entity.FieldMovieID, Order: docstore.Ascending},
				{Field: entity.FieldCreatedAt, Order: docstore.Descending},
			},
		},
		{
			Name: "user_reviews_pagination",
			Keys: []docstore.SortField{
				{Field: entity.FieldUserID, Order: docstore.Ascending},
				{Field: entity.FieldCreatedAt, Order: docstore.Descending},
			},
		},
		{
			Name: "movie_rating_sort",
			Keys: []docstore.SortField{
				{Field: entity.FieldMovieID, Order: docstore.Ascending},
				{Field: entity.FieldRating, Order: docstore.Descending},
			},
		},
	}
}

func (r *reviewRepository) EnsureIndexes(ctx context.Context) error {
	for _, spec := range reviewIndexes() {
		if err := r.coll.EnsureIndex(ctx, spec); err != nil {
			r.log.Error("Failed to ensure index", zap.Error(err), zap.String("index", spec.Name))
			return fmt.Errorf("ensure review index %s: %w", spec.Name, err)
		}
	}
	r.log.Info("Review indexes ensured")
	return nil
}

func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	id, err := r.coll.InsertOne(ctx, review)
	if err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			r.log.Warn("Duplicate review rejected",
				zap.String("user_id", review.UserID),
				zap.String("movie_id", review.MovieID),
			)
		} else {
			r.log.Error("Failed to create review",
				zap.Error(err),
				zap.String("user_id", review.UserID),
				zap.String("movie_id", review.MovieID),
			)
		}
		return fmt.Errorf("create review for movie %s by user %s: %w", review.MovieID, review.UserID, err)
	}

	review.ID = id
	return nil
}

func (r *reviewRepository) findOne(ctx context.Context, filter docstore.Filter) (*entity.Review, error) {
	var review entity.Review
	err := r.coll.FindOne(ctx, filter, &review)
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) FindByID(ctx context.Context, id string) (*entity.Review, error) {
	review, err := r.findOne(ctx, docstore.Filter{docstore.IDField: id})
	if err != nil {
		r.log.Error("Failed to find review by ID", zap.Error(err), zap.String("review_id", id))
		return nil, fmt.Errorf("find review by ID %s: %w", id, err)
	}
	return review, nil
}

func (r *reviewRepository) find(ctx context.Context, filter docstore.Filter, opts ListOptions) ([]*entity.Review, error) {
	sort := []docstore.SortField{{Field: opts.SortBy, Order: opts.SortOrder}}
	if opts.SortBy != entity.FieldCreatedAt {
		sort = append(sort, docstore.SortField{Field: entity.FieldCreatedAt, Order: docstore.Descending})
	}

	reviews := make([]*entity.Review, 0)
	err := r.coll.Find(ctx, filter, docstore.FindOptions{
		Skip:  int64(opts.Skip),
		Limit: int64(opts.Limit),
		Sort:  sort,
	}, &reviews)
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *reviewRepository) FindByMovieID(ctx context.Context, movieID string, opts ListOptions) ([]*entity.Review, error) {
	reviews, err := r.find(ctx, docstore.Filter{entity.FieldMovieID: movieID}, opts)
	if err != nil {
		r.log.Error("Failed to find reviews by movie ID",
			zap.Error(err),
			zap.String("movie_id", movieID),
			zap.Int("skip", opts.Skip),
			zap.Int("limit", opts.Limit),
		)
		return nil, fmt.Errorf("find reviews by movie ID %s: %w", movieID, err)
	}
	return reviews, nil
}

func (r *reviewRepository) FindByUserID(ctx context.Context, userID string, opts ListOptions) ([]*entity.Review, error) {
	reviews, err := r.find(ctx, docstore.Filter{entity.FieldUserID: userID}, opts)
	if err != nil {
		r.log.Error("Failed to find reviews by user ID",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.Int("skip", opts.Skip),
			zap.Int("limit", opts.Limit),
		)
		return nil, fmt.Errorf("find reviews by user ID %s: %w", userID, err)
	}
	return reviews, nil
}

func (r *reviewRepository) FindByUserAndMovie(ctx context.Context, userID, movieID string) (*entity.Review, error) {
	review, err := r.findOne(ctx, docstore.Filter{entity.FieldUserID: userID, entity.FieldMovieID: movieID})
	if err != nil {
		r.log.Error("Failed to find review by user and movie",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("movie_id", movieID),
		)
		return nil, fmt.Errorf("find review by user %s and movie %s: %w", userID, movieID, err)
	}
	return review, nil
}

func (r *reviewRepository) FindRecent(ctx context.Context, limit int) ([]*entity.Review, error) {
	reviews, err := r.find(ctx, nil, ListOptions{
		Limit:     limit,
		SortBy:    entity.FieldCreatedAt,
		SortOrder: docstore.Descending,
	})
	if err != nil {
		r.log.Error("Failed to find recent reviews", zap.Error(err), zap.Int("limit", limit))
		return nil, fmt.Errorf("find recent reviews: %w", err)
	}
	return reviews, nil
}

func (r *reviewRepository) CountByMovieID(ctx context.Context, movieID string) (int64, error) {
	count, err := r.coll.Count(ctx, docstore.Filter{entity.FieldMovieID: movieID})
	if err != nil {
		r.log.Error("Failed to count reviews by movie ID", zap.Error(err), zap.String("movie_id", movieID))
		return 0, fmt.Errorf("count reviews by movie ID %s: %w", movieID, err)
	}
	return count, nil
}

func (r *reviewRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	count, err := r.coll.Count(ctx, docstore.Filter{entity.FieldUserID: userID})
	if err != nil {
		r.log.Error("Failed to count reviews by user ID", zap.Error(err), zap.String("user_id", userID))
		return 0, fmt.Errorf("count reviews by user ID %s: %w", userID, err)
	}
	return count, nil
}

func (r *reviewRepository) Update(ctx context.Context, id string, fields docstore.Document) (*entity.Review, error) {
	var review entity.Review
	err := r.coll.UpdateOne(ctx, docstore.Filter{docstore.IDField: id}, fields, &review)
	if err != nil {
		if !errors.Is(err, docstore.ErrNoDocuments) {
			r.log.Error("Failed to update review", zap.Error(err), zap.String("review_id", id))
		}
		return nil, fmt.Errorf("update review %s: %w", id, err)
	}
	return &review, nil
}

func (r *reviewRepository) Delete(ctx context.Context, id string) error {
	if err := r.coll.DeleteOne(ctx, docstore.Filter{docstore.IDField: id}); err != nil {
		if !errors.Is(err, docstore.ErrNoDocuments) {
			r.log.Error("Failed to delete review", zap.Error(err), zap.String("review_id", id))
		}
		return fmt.Errorf("delete review %s: %w", id, err)
	}

	r.log.Info("Review deleted", zap.String("review_id", id))
	return nil
}

func (r *reviewRepository) RatingDistribution(ctx context.Context, movieID string) ([]docstore.GroupCount, error) {
	groups, err := r.coll.GroupCount(ctx, docstore.Filter{entity.FieldMovieID: movieID}, entity.FieldRating)
	if err != nil {
		r.log.Error("Failed to aggregate ratings", zap.Error(err), zap.String("movie_id", movieID))
		return nil, fmt.Errorf("aggregate ratings for movie %s: %w", movieID, err)
	}
	return groups, nil
}
