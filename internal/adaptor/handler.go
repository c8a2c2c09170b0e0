package adaptor

import (
	"net/http"
	"net/url"

	"movie-catalog/internal/dto/request"
	"movie-catalog/internal/usecase"
	"movie-catalog/pkg/apperr"
	"movie-catalog/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Movie  *MovieHandler
	Review *ReviewHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Movie:  NewMovieHandler(service.Movie, log),
		Review: NewReviewHandler(service.Review, service.Movie, log),
	}
}

// writeServiceError maps an error kind onto its HTTP status.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	kind := apperr.KindOf(err)
	msg := apperr.Message(err)

	switch kind {
	case apperr.KindNotFound:
		log.Warn(operation+" failed - not found", zap.Error(err), zap.String("operation", operation))
		utils.ResponseNotFound(w, msg)

	case apperr.KindValidation:
		log.Warn(operation+" validation failed", zap.Error(err), zap.String("operation", operation))
		utils.ResponseBadRequest(w, msg, nil)

	case apperr.KindUnauthorized:
		log.Error(operation+" failed - upstream rejected credentials", zap.Error(err), zap.String("operation", operation))
		utils.ResponseUnauthorized(w, msg)

	case apperr.KindRateLimited:
		log.Warn(operation+" failed - rate limited", zap.Error(err), zap.String("operation", operation))
		utils.ResponseTooManyRequests(w, msg)

	default:
		log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation),
			zap.String("kind", string(kind)),
		)
		utils.ResponseInternalError(w, "Internal server error")
	}
}

// parseListReviews reads skip, limit, sort_by and sort_order over the defaults.
func parseListReviews(query url.Values) *request.ListReviewsRequest {
	req := request.NewListReviewsRequest()
	req.Skip = utils.ParseInt(query.Get("skip"), req.Skip)
	req.Limit = utils.ParseInt(query.Get("limit"), req.Limit)
	if v := query.Get("sort_by"); v != "" {
		req.SortBy = v
	}
	if v := query.Get("sort_order"); v != "" {
		req.SortOrder = v
	}
	return &req
}

func parsePage(query url.Values) int {
	return utils.ParseInt(query.Get("page"), 1)
}
