package wire

import (
	"movie-catalog/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireMovie(r chi.Router, movieHandler *adaptor.MovieHandler) {
	// ==================== LISTS ====================
	r.Get("/api/movies/popular", movieHandler.GetPopular)
	r.Get("/api/movies/top-rated", movieHandler.GetTopRated)
	r.Get("/api/movies/now-playing", movieHandler.GetNowPlaying)
	r.Get("/api/movies/search", movieHandler.Search)
	r.Get("/api/movies/discover", movieHandler.Discover)

	// GET /api/movies/genres?refresh=true drops the cached genre map
	r.Get("/api/movies/genres", movieHandler.GetGenres)

	// ==================== SINGLE MOVIE ====================
	// GET /api/movies/{id}?details=true merges credits, videos and upstream reviews
	r.Get("/api/movies/{id}", movieHandler.GetMovie)
	r.Get("/api/movies/{id}/credits", movieHandler.GetCredits)
	r.Get("/api/movies/{id}/videos", movieHandler.GetVideos)
	r.Get("/api/movies/{id}/tmdb-reviews", movieHandler.GetUpstreamReviews)
}
