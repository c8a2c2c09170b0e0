package response

import (
	"time"

	"movie-catalog/internal/data/entity"
)

type ReviewResponse struct {
	ID         string     `json:"id"`
	MovieID    string     `json:"movie_id"`
	MovieTitle string     `json:"movie_title"`
	UserID     string     `json:"user_id"`
	Username   string     `json:"username"`
	Rating     int        `json:"rating"`
	Comment    string     `json:"comment"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

// RatingBucket is the number of reviews with one exact rating.
type RatingBucket struct {
	Rating int   `json:"rating"`
	Count  int64 `json:"count"`
}

// MovieRatingStats is derived on demand and never stored. Distribution
// always holds one bucket per rating 0 through 10.
type MovieRatingStats struct {
	MovieID       string         `json:"movie_id"`
	AverageRating float64        `json:"average_rating"`
	TotalReviews  int64          `json:"total_reviews"`
	Distribution  []RatingBucket `json:"rating_distribution"`
}

func ReviewToResponse(review *entity.Review) ReviewResponse {
	return ReviewResponse{
		ID:         review.ID,
		MovieID:    review.MovieID,
		MovieTitle: review.MovieTitle,
		UserID:     review.UserID,
		Username:   review.Username,
		Rating:     review.Rating,
		Comment:    review.Comment,
		CreatedAt:  review.CreatedAt,
		UpdatedAt:  review.UpdatedAt,
	}
}

func ReviewsToResponse(reviews []*entity.Review) []ReviewResponse {
	out := make([]ReviewResponse, len(reviews))
	for i, r := range reviews {
		out[i] = ReviewToResponse(r)
	}
	return out
}
