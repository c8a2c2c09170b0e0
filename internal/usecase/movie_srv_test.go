package usecase

import (
	"context"
	"testing"

	"movie-catalog/internal/dto/request"
	"movie-catalog/internal/tmdb"
	"movie-catalog/pkg/apperr"

	"go.uber.org/zap"
)

type fakeCatalog struct {
	movie       *tmdb.MovieDetails
	err         error
	genres      map[int]string
	invalidated int
	search      tmdb.SearchParams
}

func (f *fakeCatalog) GetMovie(context.Context, string) (*tmdb.MovieDetails, error) {
	return f.movie, f.err
}

func (f *fakeCatalog) GetMovieDetails(context.Context, string) (*tmdb.MovieDetails, error) {
	return f.movie, f.err
}

func (f *fakeCatalog) PopularMovies(context.Context, int) (*tmdb.MoviePage, error) {
	return &tmdb.MoviePage{}, f.err
}

func (f *fakeCatalog) TopRatedMovies(context.Context, int) (*tmdb.MoviePage, error) {
	return &tmdb.MoviePage{}, f.err
}

func (f *fakeCatalog) NowPlayingMovies(context.Context, int) (*tmdb.MoviePage, error) {
	return &tmdb.MoviePage{}, f.err
}

func (f *fakeCatalog) SearchMovies(_ context.Context, p tmdb.SearchParams) (*tmdb.MoviePage, error) {
	f.search = p
	return &tmdb.MoviePage{}, f.err
}

func (f *fakeCatalog) DiscoverMovies(context.Context, tmdb.DiscoverParams) (*tmdb.MoviePage, error) {
	return &tmdb.MoviePage{}, f.err
}

func (f *fakeCatalog) GenreMap(context.Context) (map[int]string, error) {
	return f.genres, f.err
}

func (f *fakeCatalog) InvalidateGenres(context.Context) { f.invalidated++ }

func (f *fakeCatalog) Credits(context.Context, string) (*tmdb.Credits, error) {
	return &tmdb.Credits{}, f.err
}

func (f *fakeCatalog) Videos(context.Context, string) (*tmdb.Videos, error) {
	return &tmdb.Videos{}, f.err
}

func (f *fakeCatalog) Reviews(context.Context, string, int) (*tmdb.ReviewPage, error) {
	return &tmdb.ReviewPage{}, f.err
}

func TestMovieTitle(t *testing.T) {
	catalog := &fakeCatalog{movie: &tmdb.MovieDetails{Movie: tmdb.Movie{ID: "550", Title: "Fight Club"}}}
	svc := NewMovieService(catalog, nil, zap.NewNop())

	title, err := svc.MovieTitle(context.Background(), "550")
	if err != nil || title != "Fight Club" {
		t.Fatalf("expected Fight Club, got %q (%v)", title, err)
	}

	catalog.err = apperr.Transient(nil, "upstream down")
	title, err = svc.MovieTitle(context.Background(), "550")
	if err != nil || title != "Unknown Movie" {
		t.Fatalf("expected fallback title, got %q (%v)", title, err)
	}

	if _, err := svc.MovieTitle(context.Background(), "abc"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation for non-numeric id, got %v", err)
	}
}

func TestGetMovieAttachesLocalRating(t *testing.T) {
	reviews := newTestReviewService(t, nil)
	mustCreate(t, reviews, "550", "a", 9)
	mustCreate(t, reviews, "550", "b", 6)

	catalog := &fakeCatalog{movie: &tmdb.MovieDetails{Movie: tmdb.Movie{ID: "550", Title: "Fight Club"}}}
	svc := NewMovieService(catalog, reviews, zap.NewNop())

	resp, err := svc.GetMovie(context.Background(), "550", false)
	if err != nil {
		t.Fatalf("get movie: %v", err)
	}
	if resp.Title != "Fight Club" || resp.LocalRating == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.LocalRating.AverageRating != 7.5 || resp.LocalRating.TotalReviews != 2 {
		t.Fatalf("unexpected local rating: %+v", resp.LocalRating)
	}
}

func TestGetMoviePropagatesUpstreamError(t *testing.T) {
	catalog := &fakeCatalog{err: apperr.NotFound("The resource you requested could not be found.")}
	svc := NewMovieService(catalog, nil, zap.NewNop())

	if _, err := svc.GetMovie(context.Background(), "1", true); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGenres(t *testing.T) {
	catalog := &fakeCatalog{genres: map[int]string{18: "Drama", 28: "Action", 35: "Comedy"}}
	svc := NewMovieService(catalog, nil, zap.NewNop())

	genres, err := svc.RefreshGenres(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if catalog.invalidated != 1 {
		t.Fatalf("expected one invalidation, got %d", catalog.invalidated)
	}
	if len(genres) != 3 || genres[0].Name != "Action" || genres[2].Name != "Drama" {
		t.Fatalf("expected genres ordered by name, got %+v", genres)
	}
}

func TestSearchValidatesBeforeCalling(t *testing.T) {
	catalog := &fakeCatalog{}
	svc := NewMovieService(catalog, nil, zap.NewNop())

	_, err := svc.Search(context.Background(), &request.SearchMoviesRequest{Query: "  ", Page: 1})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
	if catalog.search.Query != "" {
		t.Fatal("catalog must not be called for invalid input")
	}

	if _, err := svc.Search(context.Background(), &request.SearchMoviesRequest{Query: "matrix", Page: 2, Year: 1999}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if catalog.search.Query != "matrix" || catalog.search.Year != 1999 || catalog.search.Page != 2 {
		t.Fatalf("params not forwarded: %+v", catalog.search)
	}
}
