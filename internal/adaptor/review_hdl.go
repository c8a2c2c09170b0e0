package adaptor

import (
	"encoding/json"
	"net/http"

	"movie-catalog/internal/dto/request"
	"movie-catalog/internal/usecase"
	"movie-catalog/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ReviewHandler struct {
	service usecase.ReviewService
	movies  usecase.MovieService
	log     *zap.Logger
}

func NewReviewHandler(service usecase.ReviewService, movies usecase.MovieService, log *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		movies:  movies,
		log:     log.With(zap.String("handler", "review")),
	}
}

// CreateReview handles POST /api/movies/{id}/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentity(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	movieID := chi.URLParam(r, "id")
	title, err := h.movies.MovieTitle(r.Context(), movieID)
	if err != nil {
		h.handleServiceError(w, err, "create review")
		return
	}

	req.MovieID = movieID
	req.MovieTitle = title
	req.UserID = identity.UserID
	req.Username = identity.Username

	review, err := h.service.CreateReview(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "create review")
		return
	}

	utils.ResponseCreated(w, "Review created", review)
}

// GetMovieReviews handles GET /api/movies/{id}/reviews
func (h *ReviewHandler) GetMovieReviews(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "id")

	reviews, err := h.service.GetMovieReviews(r.Context(), movieID, parseListReviews(r.URL.Query()))
	if err != nil {
		h.handleServiceError(w, err, "get movie reviews")
		return
	}

	utils.ResponseSuccess(w, "success", reviews)
}

// GetMyMovieReview handles GET /api/movies/{id}/reviews/me
func (h *ReviewHandler) GetMyMovieReview(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentity(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	review, err := h.service.GetUserReviewForMovie(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "get user review for movie")
		return
	}

	utils.ResponseSuccess(w, "success", review)
}

// GetMovieRating handles GET /api/movies/{id}/rating
func (h *ReviewHandler) GetMovieRating(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetMovieRatingStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "get movie rating stats")
		return
	}

	utils.ResponseSuccess(w, "success", stats)
}

// GetRecentReviews handles GET /api/reviews/recent
func (h *ReviewHandler) GetRecentReviews(w http.ResponseWriter, r *http.Request) {
	req := &request.RecentReviewsRequest{
		Limit: utils.ParseInt(r.URL.Query().Get("limit"), request.DefaultLimit),
	}

	reviews, err := h.service.GetRecentReviews(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err, "get recent reviews")
		return
	}

	utils.ResponseSuccess(w, "success", reviews)
}

// GetReview handles GET /api/reviews/{id}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.service.GetReview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "get review")
		return
	}

	utils.ResponseSuccess(w, "success", review)
}

// GetUserReviews handles GET /api/users/{id}/reviews
func (h *ReviewHandler) GetUserReviews(w http.ResponseWriter, r *http.Request) {
	h.listUserReviews(w, r, chi.URLParam(r, "id"))
}

// GetMyReviews handles GET /api/users/me/reviews
func (h *ReviewHandler) GetMyReviews(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentity(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	h.listUserReviews(w, r, identity.UserID)
}

func (h *ReviewHandler) listUserReviews(w http.ResponseWriter, r *http.Request, userID string) {
	reviews, err := h.service.GetUserReviews(r.Context(), userID, parseListReviews(r.URL.Query()))
	if err != nil {
		h.handleServiceError(w, err, "get user reviews")
		return
	}

	utils.ResponseSuccess(w, "success", reviews)
}

// UpdateReview handles PUT /api/reviews/{id} (owner only)
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "id")
	if !h.authorizeOwner(w, r, reviewID, "update review") {
		return
	}

	var req request.UpdateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	review, err := h.service.UpdateReview(r.Context(), reviewID, &req)
	if err != nil {
		h.handleServiceError(w, err, "update review")
		return
	}

	utils.ResponseSuccess(w, "Review updated", review)
}

// DeleteReview handles DELETE /api/reviews/{id} (owner only)
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "id")
	if !h.authorizeOwner(w, r, reviewID, "delete review") {
		return
	}

	if err := h.service.DeleteReview(r.Context(), reviewID); err != nil {
		h.handleServiceError(w, err, "delete review")
		return
	}

	utils.ResponseSuccess(w, "Review deleted", nil)
}

// authorizeOwner writes the error response and returns false unless the
// caller wrote the review.
func (h *ReviewHandler) authorizeOwner(w http.ResponseWriter, r *http.Request, reviewID, operation string) bool {
	identity, ok := utils.GetIdentity(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return false
	}

	review, err := h.service.GetReview(r.Context(), reviewID)
	if err != nil {
		h.handleServiceError(w, err, operation)
		return false
	}

	if review.UserID != identity.UserID {
		h.log.Warn(operation+" forbidden - not the owner",
			zap.String("review_id", reviewID),
			zap.String("user_id", identity.UserID),
		)
		utils.ResponseForbidden(w, "You can only modify your own reviews")
		return false
	}
	return true
}

func (h *ReviewHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	writeServiceError(w, h.log, err, operation)
}
