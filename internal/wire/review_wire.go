package wire

import (
	"movie-catalog/internal/adaptor"
	"movie-catalog/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

func wireReview(r chi.Router, reviewHandler *adaptor.ReviewHandler) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/movies/{id}/reviews", reviewHandler.GetMovieReviews)
	r.Get("/api/movies/{id}/rating", reviewHandler.GetMovieRating)
	r.Get("/api/reviews/recent", reviewHandler.GetRecentReviews)
	r.Get("/api/reviews/{id}", reviewHandler.GetReview)
	r.Get("/api/users/{id}/reviews", reviewHandler.GetUserReviews)

	// ==================== CALLER ROUTES (gateway identity) ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity)

		r.Post("/api/movies/{id}/reviews", reviewHandler.CreateReview)
		r.Get("/api/movies/{id}/reviews/me", reviewHandler.GetMyMovieReview)
		r.Get("/api/users/me/reviews", reviewHandler.GetMyReviews)

		// owner only, checked in the handler
		r.Put("/api/reviews/{id}", reviewHandler.UpdateReview)
		r.Delete("/api/reviews/{id}", reviewHandler.DeleteReview)
	})
}
