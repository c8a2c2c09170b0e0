package usecase

import (
	"context"

	"movie-catalog/internal/dto/request"
	"movie-catalog/internal/dto/response"
	"movie-catalog/internal/tmdb"
	"movie-catalog/pkg/apperr"
	"movie-catalog/pkg/utils"

	"go.uber.org/zap"
)

const unknownMovieTitle = "Unknown Movie"

// MovieCatalog is the upstream metadata source. *tmdb.Client implements it.
type MovieCatalog interface {
	GetMovie(ctx context.Context, id string) (*tmdb.MovieDetails, error)
	GetMovieDetails(ctx context.Context, id string) (*tmdb.MovieDetails, error)
	PopularMovies(ctx context.Context, page int) (*tmdb.MoviePage, error)
	TopRatedMovies(ctx context.Context, page int) (*tmdb.MoviePage, error)
	NowPlayingMovies(ctx context.Context, page int) (*tmdb.MoviePage, error)
	SearchMovies(ctx context.Context, p tmdb.SearchParams) (*tmdb.MoviePage, error)
	DiscoverMovies(ctx context.Context, p tmdb.DiscoverParams) (*tmdb.MoviePage, error)
	GenreMap(ctx context.Context) (map[int]string, error)
	InvalidateGenres(ctx context.Context)
	Credits(ctx context.Context, id string) (*tmdb.Credits, error)
	Videos(ctx context.Context, id string) (*tmdb.Videos, error)
	Reviews(ctx context.Context, id string, page int) (*tmdb.ReviewPage, error)
}

type MovieService interface {
	GetPopular(ctx context.Context, page int) (*tmdb.MoviePage, error)
	GetTopRated(ctx context.Context, page int) (*tmdb.MoviePage, error)
	GetNowPlaying(ctx context.Context, page int) (*tmdb.MoviePage, error)
	Search(ctx context.Context, req *request.SearchMoviesRequest) (*tmdb.MoviePage, error)
	Discover(ctx context.Context, req *request.DiscoverMoviesRequest) (*tmdb.MoviePage, error)

	ListGenres(ctx context.Context) ([]tmdb.Genre, error)
	RefreshGenres(ctx context.Context) ([]tmdb.Genre, error)

	// GetMovie returns the movie with its local rating summary attached.
	// With details set, credits, videos and upstream reviews are merged in.
	GetMovie(ctx context.Context, movieID string, details bool) (*response.MovieResponse, error)
	GetCredits(ctx context.Context, movieID string) (*tmdb.Credits, error)
	GetVideos(ctx context.Context, movieID string) (*tmdb.Videos, error)
	GetUpstreamReviews(ctx context.Context, movieID string, page int) (*tmdb.ReviewPage, error)

	// MovieTitle resolves the title stored on new reviews. Upstream failures
	// fall back to a placeholder; only a malformed id is an error.
	MovieTitle(ctx context.Context, movieID string) (string, error)
}

type movieService struct {
	catalog MovieCatalog
	reviews ReviewService
	log     *zap.Logger
}

func NewMovieService(catalog MovieCatalog, reviews ReviewService, log *zap.Logger) MovieService {
	return &movieService{
		catalog: catalog,
		reviews: reviews,
		log:     log.With(zap.String("service", "movie")),
	}
}

func (s *movieService) GetPopular(ctx context.Context, page int) (*tmdb.MoviePage, error) {
	return s.catalog.PopularMovies(ctx, page)
}

func (s *movieService) GetTopRated(ctx context.Context, page int) (*tmdb.MoviePage, error) {
	return s.catalog.TopRatedMovies(ctx, page)
}

func (s *movieService) GetNowPlaying(ctx context.Context, page int) (*tmdb.MoviePage, error) {
	return s.catalog.NowPlayingMovies(ctx, page)
}

func (s *movieService) Search(ctx context.Context, req *request.SearchMoviesRequest) (*tmdb.MoviePage, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	return s.catalog.SearchMovies(ctx, tmdb.SearchParams{
		Query:              req.Query,
		Page:               req.Page,
		Language:           req.Language,
		IncludeAdult:       req.IncludeAdult,
		Year:               req.Year,
		PrimaryReleaseYear: req.PrimaryReleaseYear,
		Region:             req.Region,
		WithGenres:         req.WithGenres,
		SortBy:             req.SortBy,
	})
}

func (s *movieService) Discover(ctx context.Context, req *request.DiscoverMoviesRequest) (*tmdb.MoviePage, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	return s.catalog.DiscoverMovies(ctx, tmdb.DiscoverParams{
		GenreID: req.GenreID,
		Year:    req.Year,
		SortBy:  req.SortBy,
		Page:    req.Page,
	})
}

func (s *movieService) ListGenres(ctx context.Context) ([]tmdb.Genre, error) {
	m, err := s.catalog.GenreMap(ctx)
	if err != nil {
		return nil, err
	}
	return response.GenresFromMap(m), nil
}

func (s *movieService) RefreshGenres(ctx context.Context) ([]tmdb.Genre, error) {
	s.catalog.InvalidateGenres(ctx)
	genres, err := s.ListGenres(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("Genre map refreshed", zap.Int("genres", len(genres)))
	return genres, nil
}

func (s *movieService) GetMovie(ctx context.Context, movieID string, details bool) (*response.MovieResponse, error) {
	var (
		movie *tmdb.MovieDetails
		err   error
	)
	if details {
		movie, err = s.catalog.GetMovieDetails(ctx, movieID)
	} else {
		movie, err = s.catalog.GetMovie(ctx, movieID)
	}
	if err != nil {
		return nil, err
	}

	resp := &response.MovieResponse{MovieDetails: movie}
	if s.reviews == nil {
		return resp, nil
	}

	// the local rating is decoration; a storage failure does not hide the movie
	stats, err := s.reviews.GetMovieRatingStats(ctx, movieID)
	if err != nil {
		s.log.Error("Failed to get local rating stats", zap.String("movie_id", movieID), zap.Error(err))
		return resp, nil
	}
	resp.LocalRating = stats
	return resp, nil
}

func (s *movieService) GetCredits(ctx context.Context, movieID string) (*tmdb.Credits, error) {
	return s.catalog.Credits(ctx, movieID)
}

func (s *movieService) GetVideos(ctx context.Context, movieID string) (*tmdb.Videos, error) {
	return s.catalog.Videos(ctx, movieID)
}

func (s *movieService) GetUpstreamReviews(ctx context.Context, movieID string, page int) (*tmdb.ReviewPage, error) {
	return s.catalog.Reviews(ctx, movieID, page)
}

func (s *movieService) MovieTitle(ctx context.Context, movieID string) (string, error) {
	if !utils.IsDigits(movieID) {
		return "", apperr.Validation("Invalid movie ID format")
	}

	movie, err := s.catalog.GetMovie(ctx, movieID)
	if err != nil {
		s.log.Error("Failed to fetch movie title",
			zap.String("movie_id", movieID),
			zap.String("kind", string(apperr.KindOf(err))),
			zap.Error(err),
		)
		return unknownMovieTitle, nil
	}
	if movie == nil || movie.Title == "" {
		return unknownMovieTitle, nil
	}
	return movie.Title, nil
}

var _ MovieCatalog = (*tmdb.Client)(nil)
