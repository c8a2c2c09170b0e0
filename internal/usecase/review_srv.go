package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"movie-catalog/internal/data/entity"
	"movie-catalog/internal/data/repository"
	"movie-catalog/internal/dto/request"
	"movie-catalog/internal/dto/response"
	"movie-catalog/pkg/apperr"
	"movie-catalog/pkg/docstore"
	"movie-catalog/pkg/events"
	"movie-catalog/pkg/utils"

	"go.uber.org/zap"
)

const (
	minRating        = 0
	maxRating        = 10
	maxCommentLength = 1000
)

// EventPublisher receives review lifecycle events. Failures never fail the
// operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

type ReviewService interface {
	CreateReview(ctx context.Context, req *request.CreateReviewRequest) (*response.ReviewResponse, error)
	GetReview(ctx context.Context, reviewID string) (*response.ReviewResponse, error)
	GetMovieReviews(ctx context.Context, movieID string, req *request.ListReviewsRequest) (*response.PaginatedResponse[response.ReviewResponse], error)
	GetUserReviews(ctx context.Context, userID string, req *request.ListReviewsRequest) (*response.PaginatedResponse[response.ReviewResponse], error)
	GetUserReviewForMovie(ctx context.Context, userID, movieID string) (*response.ReviewResponse, error)
	GetRecentReviews(ctx context.Context, req *request.RecentReviewsRequest) ([]response.ReviewResponse, error)
	// UpdateReview assumes the caller already checked ownership.
	UpdateReview(ctx context.Context, reviewID string, req *request.UpdateReviewRequest) (*response.ReviewResponse, error)
	DeleteReview(ctx context.Context, reviewID string) error

	GetMovieRatingStats(ctx context.Context, movieID string) (*response.MovieRatingStats, error)
}

type reviewService struct {
	repo   *repository.Repository
	events EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

func NewReviewService(repo *repository.Repository, publisher EventPublisher, log *zap.Logger) ReviewService {
	return &reviewService{
		repo:   repo,
		events: publisher,
		log:    log.With(zap.String("service", "review")),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func validationError(errs map[string]string) error {
	return apperr.Validation("%s", utils.FormatValidationErrors(errs))
}

func checkRating(rating int) error {
	if rating < minRating || rating > maxRating {
		return apperr.Validation("Rating must be between %d and %d", minRating, maxRating)
	}
	return nil
}

// normalizeComment trims the comment and enforces 1..1000 characters.
func normalizeComment(comment string) (string, error) {
	trimmed := strings.TrimSpace(comment)
	if trimmed == "" {
		return "", apperr.Validation("Comment must not be empty")
	}
	if utf8.RuneCountInString(trimmed) > maxCommentLength {
		return "", apperr.Validation("Comment must be at most %d characters", maxCommentLength)
	}
	return trimmed, nil
}

func (s *reviewService) CreateReview(ctx context.Context, req *request.CreateReviewRequest) (*response.ReviewResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create review validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}
	if err := checkRating(*req.Rating); err != nil {
		return nil, err
	}
	comment, err := normalizeComment(req.Comment)
	if err != nil {
		return nil, err
	}

	review := &entity.Review{
		MovieID:    req.MovieID,
		MovieTitle: req.MovieTitle,
		UserID:     req.UserID,
		Username:   req.Username,
		Rating:     *req.Rating,
		Comment:    comment,
		Timestamps: entity.Timestamps{CreatedAt: s.now()},
	}

	// the unique index decides between concurrent submissions
	if err := s.repo.Review.Create(ctx, review); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, apperr.Validation("You have already reviewed this movie")
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.log.Info("Review created",
		zap.String("review_id", review.ID),
		zap.String("user_id", review.UserID),
		zap.String("movie_id", review.MovieID),
		zap.Int("rating", review.Rating),
	)

	resp := response.ReviewToResponse(review)
	s.publish(ctx, events.SubjectReviewCreated, resp)
	return &resp, nil
}

func (s *reviewService) GetReview(ctx context.Context, reviewID string) (*response.ReviewResponse, error) {
	review, err := s.repo.Review.FindByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review == nil {
		return nil, apperr.NotFound("Review not found")
	}
	resp := response.ReviewToResponse(review)
	return &resp, nil
}

func listOptions(req *request.ListReviewsRequest) (repository.ListOptions, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return repository.ListOptions{}, validationError(errs)
	}
	order := docstore.Descending
	if req.SortOrder == "asc" {
		order = docstore.Ascending
	}
	return repository.ListOptions{
		Skip:      req.Skip,
		Limit:     req.Limit,
		SortBy:    req.SortBy,
		SortOrder: order,
	}, nil
}

func (s *reviewService) GetMovieReviews(ctx context.Context, movieID string, req *request.ListReviewsRequest) (*response.PaginatedResponse[response.ReviewResponse], error) {
	opts, err := listOptions(req)
	if err != nil {
		return nil, err
	}

	reviews, err := s.repo.Review.FindByMovieID(ctx, movieID, opts)
	if err != nil {
		return nil, fmt.Errorf("get movie reviews: %w", err)
	}

	total, err := s.repo.Review.CountByMovieID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("count movie reviews: %w", err)
	}

	s.log.Debug("Movie reviews retrieved",
		zap.String("movie_id", movieID),
		zap.Int("count", len(reviews)),
		zap.Int64("total", total),
		zap.String("sort_by", opts.SortBy),
	)

	return response.NewPaginatedResponse(response.ReviewsToResponse(reviews), opts.Skip, opts.Limit, total), nil
}

func (s *reviewService) GetUserReviews(ctx context.Context, userID string, req *request.ListReviewsRequest) (*response.PaginatedResponse[response.ReviewResponse], error) {
	opts, err := listOptions(req)
	if err != nil {
		return nil, err
	}

	reviews, err := s.repo.Review.FindByUserID(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("get user reviews: %w", err)
	}

	total, err := s.repo.Review.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count user reviews: %w", err)
	}

	s.log.Debug("User reviews retrieved",
		zap.String("user_id", userID),
		zap.Int("count", len(reviews)),
		zap.Int64("total", total),
	)

	return response.NewPaginatedResponse(response.ReviewsToResponse(reviews), opts.Skip, opts.Limit, total), nil
}

func (s *reviewService) GetUserReviewForMovie(ctx context.Context, userID, movieID string) (*response.ReviewResponse, error) {
	review, err := s.repo.Review.FindByUserAndMovie(ctx, userID, movieID)
	if err != nil {
		return nil, fmt.Errorf("get user review for movie: %w", err)
	}
	if review == nil {
		return nil, apperr.NotFound("Review not found")
	}
	resp := response.ReviewToResponse(review)
	return &resp, nil
}

func (s *reviewService) GetRecentReviews(ctx context.Context, req *request.RecentReviewsRequest) ([]response.ReviewResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	reviews, err := s.repo.Review.FindRecent(ctx, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("get recent reviews: %w", err)
	}
	return response.ReviewsToResponse(reviews), nil
}

func (s *reviewService) UpdateReview(ctx context.Context, reviewID string, req *request.UpdateReviewRequest) (*response.ReviewResponse, error) {
	if req.Empty() {
		return nil, apperr.Validation("No valid fields to update")
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Update review validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}

	fields := docstore.Document{}
	if req.Rating != nil {
		if err := checkRating(*req.Rating); err != nil {
			return nil, err
		}
		fields[entity.FieldRating] = *req.Rating
	}
	if req.Comment != nil {
		comment, err := normalizeComment(*req.Comment)
		if err != nil {
			return nil, err
		}
		fields[entity.FieldComment] = comment
	}
	fields[entity.FieldUpdatedAt] = s.now()

	review, err := s.repo.Review.Update(ctx, reviewID, fields)
	if err != nil {
		if errors.Is(err, docstore.ErrNoDocuments) {
			return nil, apperr.NotFound("Review not found")
		}
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.log.Info("Review updated",
		zap.String("review_id", reviewID),
		zap.Bool("rating_changed", req.Rating != nil),
		zap.Bool("comment_changed", req.Comment != nil),
	)

	resp := response.ReviewToResponse(review)
	s.publish(ctx, events.SubjectReviewUpdated, resp)
	return &resp, nil
}

func (s *reviewService) DeleteReview(ctx context.Context, reviewID string) error {
	if err := s.repo.Review.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, docstore.ErrNoDocuments) {
			return apperr.NotFound("Review not found")
		}
		return fmt.Errorf("delete review: %w", err)
	}

	s.publish(ctx, events.SubjectReviewDeleted, map[string]string{"id": reviewID})
	return nil
}

func (s *reviewService) GetMovieRatingStats(ctx context.Context, movieID string) (*response.MovieRatingStats, error) {
	groups, err := s.repo.Review.RatingDistribution(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("get movie rating stats: %w", err)
	}
	return ratingStats(movieID, groups), nil
}

// ratingStats folds per-rating counts into the fixed 11-bucket histogram and
// a mean rounded half to even at one decimal.
func ratingStats(movieID string, groups []docstore.GroupCount) *response.MovieRatingStats {
	stats := &response.MovieRatingStats{
		MovieID:      movieID,
		Distribution: make([]response.RatingBucket, maxRating-minRating+1),
	}
	for i := range stats.Distribution {
		stats.Distribution[i].Rating = minRating + i
	}

	var sum int64
	for _, g := range groups {
		if g.Key < minRating || g.Key > maxRating {
			continue
		}
		stats.Distribution[g.Key-minRating].Count += g.Count
		stats.TotalReviews += g.Count
		sum += g.Key * g.Count
	}
	if stats.TotalReviews > 0 {
		avg := float64(sum) / float64(stats.TotalReviews)
		stats.AverageRating = math.RoundToEven(avg*10) / 10
	}
	return stats
}

func (s *reviewService) publish(ctx context.Context, subject string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, subject, payload); err != nil {
		s.log.Warn("Failed to publish review event", zap.String("subject", subject), zap.Error(err))
	}
}
