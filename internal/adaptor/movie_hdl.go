package adaptor

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"movie-catalog/internal/dto/request"
	"movie-catalog/internal/tmdb"
	"movie-catalog/internal/usecase"
	"movie-catalog/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type MovieHandler struct {
	service usecase.MovieService
	log     *zap.Logger
}

func NewMovieHandler(service usecase.MovieService, log *zap.Logger) *MovieHandler {
	return &MovieHandler{
		service: service,
		log:     log.With(zap.String("handler", "movie")),
	}
}

func (h *MovieHandler) writePage(w http.ResponseWriter, r *http.Request, operation string,
	fetch func(ctx context.Context, page int) (*tmdb.MoviePage, error)) {
	movies, err := fetch(r.Context(), parsePage(r.URL.Query()))
	if err != nil {
		h.handleServiceError(w, err, operation)
		return
	}
	utils.ResponseSuccess(w, "success", movies)
}

// GetPopular handles GET /api/movies/popular
func (h *MovieHandler) GetPopular(w http.ResponseWriter, r *http.Request) {
	h.writePage(w, r, "get popular movies", h.service.GetPopular)
}

// GetTopRated handles GET /api/movies/top-rated
func (h *MovieHandler) GetTopRated(w http.ResponseWriter, r *http.Request) {
	h.writePage(w, r, "get top rated movies", h.service.GetTopRated)
}

// GetNowPlaying handles GET /api/movies/now-playing
func (h *MovieHandler) GetNowPlaying(w http.ResponseWriter, r *http.Request) {
	h.writePage(w, r, "get now playing movies", h.service.GetNowPlaying)
}

// Search handles GET /api/movies/search
func (h *MovieHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.SearchMoviesRequest{
		Query:              query.Get("query"),
		Page:               parsePage(query),
		Language:           query.Get("language"),
		IncludeAdult:       utils.ParseBool(query.Get("include_adult"), false),
		Year:               utils.ParseInt(query.Get("year"), 0),
		PrimaryReleaseYear: utils.ParseInt(query.Get("primary_release_year"), 0),
		Region:             query.Get("region"),
		WithGenres:         parseIntList(query.Get("with_genres")),
		SortBy:             query.Get("sort_by"),
	}

	movies, err := h.service.Search(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err, "search movies")
		return
	}

	utils.ResponseSuccess(w, "success", movies)
}

// Discover handles GET /api/movies/discover
func (h *MovieHandler) Discover(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.DiscoverMoviesRequest{
		GenreID: utils.ParseInt(query.Get("genre_id"), 0),
		Year:    utils.ParseInt(query.Get("year"), 0),
		SortBy:  query.Get("sort_by"),
		Page:    parsePage(query),
	}

	movies, err := h.service.Discover(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err, "discover movies")
		return
	}

	utils.ResponseSuccess(w, "success", movies)
}

// GetGenres handles GET /api/movies/genres (?refresh=true drops the cache)
func (h *MovieHandler) GetGenres(w http.ResponseWriter, r *http.Request) {
	var (
		genres []tmdb.Genre
		err    error
	)
	if utils.ParseBool(r.URL.Query().Get("refresh"), false) {
		genres, err = h.service.RefreshGenres(r.Context())
	} else {
		genres, err = h.service.ListGenres(r.Context())
	}
	if err != nil {
		h.handleServiceError(w, err, "get genres")
		return
	}

	utils.ResponseSuccess(w, "success", genres)
}

// GetMovie handles GET /api/movies/{id} (?details=true for the aggregated record)
func (h *MovieHandler) GetMovie(w http.ResponseWriter, r *http.Request) {
	details := utils.ParseBool(r.URL.Query().Get("details"), false)

	movie, err := h.service.GetMovie(r.Context(), chi.URLParam(r, "id"), details)
	if err != nil {
		h.handleServiceError(w, err, "get movie")
		return
	}

	utils.ResponseSuccess(w, "success", movie)
}

// GetCredits handles GET /api/movies/{id}/credits
func (h *MovieHandler) GetCredits(w http.ResponseWriter, r *http.Request) {
	credits, err := h.service.GetCredits(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "get movie credits")
		return
	}

	utils.ResponseSuccess(w, "success", credits)
}

// GetVideos handles GET /api/movies/{id}/videos
func (h *MovieHandler) GetVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.service.GetVideos(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "get movie videos")
		return
	}

	utils.ResponseSuccess(w, "success", videos)
}

// GetUpstreamReviews handles GET /api/movies/{id}/tmdb-reviews
func (h *MovieHandler) GetUpstreamReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.GetUpstreamReviews(r.Context(), chi.URLParam(r, "id"), parsePage(r.URL.Query()))
	if err != nil {
		h.handleServiceError(w, err, "get upstream reviews")
		return
	}

	utils.ResponseSuccess(w, "success", reviews)
}

func (h *MovieHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	writeServiceError(w, h.log, err, operation)
}

// parseIntList reads "28,12" style lists, skipping malformed entries.
func parseIntList(value string) []int {
	if value == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
