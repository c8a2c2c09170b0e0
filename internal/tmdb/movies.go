package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"movie-catalog/pkg/apperr"
	"movie-catalog/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func checkID(id string) error {
	if !utils.IsDigits(id) {
		return apperr.Validation("Invalid movie id %q", id)
	}
	return nil
}

func pageQuery(page int) url.Values {
	if page < 1 {
		page = 1
	}
	return url.Values{"page": {strconv.Itoa(page)}}
}

// GenreMap returns the cached id -> name mapping.
func (c *Client) GenreMap(ctx context.Context) (map[int]string, error) {
	return c.genres.Get(ctx)
}

// InvalidateGenres drops the cached genre mapping so the next lookup refetches it.
func (c *Client) InvalidateGenres(ctx context.Context) {
	c.genres.Invalidate(ctx)
}

// Genres lists movie genres straight from the upstream, bypassing the cache.
func (c *Client) Genres(ctx context.Context) ([]Genre, error) {
	var out rawGenres
	if err := c.get(ctx, "/genre/movie/list", nil, &out); err != nil {
		return nil, err
	}
	if out.Genres == nil {
		out.Genres = []Genre{}
	}
	return out.Genres, nil
}

func (c *Client) genresFor(ctx context.Context, raws ...rawMovie) (map[int]string, error) {
	if !needsGenreMap(raws...) {
		return nil, nil
	}
	m, err := c.genres.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve genres: %w", err)
	}
	return m, nil
}

func (c *Client) getDetails(ctx context.Context, id string) (*MovieDetails, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var raw rawMovie
	if err := c.get(ctx, "/movie/"+id, nil, &raw); err != nil {
		return nil, err
	}
	genres, err := c.genresFor(ctx, raw)
	if err != nil {
		return nil, err
	}
	d := normalizeDetails(raw, genres)
	return &d, nil
}

// GetMovie fetches one movie's base detail record.
func (c *Client) GetMovie(ctx context.Context, id string) (*MovieDetails, error) {
	return c.getDetails(ctx, id)
}

// GetMovieDetails merges the base record with the first reviews page,
// credits and videos. Any failure fails the whole call.
func (c *Client) GetMovieDetails(ctx context.Context, id string) (*MovieDetails, error) {
	movie, err := c.getDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		reviews *ReviewPage
		credits *Credits
		videos  *Videos
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		reviews, err = c.Reviews(gctx, id, 1)
		return err
	})
	g.Go(func() (err error) {
		credits, err = c.Credits(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		videos, err = c.Videos(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		c.log.Error("Failed to fetch movie details", zap.String("movie_id", id), zap.Error(err))
		return nil, err
	}

	movie.Reviews = reviews.Results
	movie.TotalReviews = reviews.TotalResults
	movie.Credits = credits
	movie.Videos = videos
	movie.Trailers = trailers(videos)
	return movie, nil
}

func (c *Client) listMovies(ctx context.Context, endpoint string, query url.Values) (*MoviePage, error) {
	var raw rawPage
	if err := c.get(ctx, endpoint, query, &raw); err != nil {
		return nil, err
	}
	genres, err := c.genresFor(ctx, raw.Results...)
	if err != nil {
		return nil, err
	}
	return normalizePage(raw, genres), nil
}

func (c *Client) PopularMovies(ctx context.Context, page int) (*MoviePage, error) {
	return c.listMovies(ctx, "/movie/popular", pageQuery(page))
}

func (c *Client) TopRatedMovies(ctx context.Context, page int) (*MoviePage, error) {
	return c.listMovies(ctx, "/movie/top_rated", pageQuery(page))
}

func (c *Client) NowPlayingMovies(ctx context.Context, page int) (*MoviePage, error) {
	return c.listMovies(ctx, "/movie/now_playing", pageQuery(page))
}

func (c *Client) SearchMovies(ctx context.Context, p SearchParams) (*MoviePage, error) {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return nil, apperr.Validation("Search query is required")
	}

	q := pageQuery(p.Page)
	q.Set("query", query)
	q.Set("include_adult", strconv.FormatBool(p.IncludeAdult))
	language := p.Language
	if language == "" {
		language = "en-US"
	}
	q.Set("language", language)
	if p.Year > 0 {
		q.Set("year", strconv.Itoa(p.Year))
	}
	if p.PrimaryReleaseYear > 0 {
		q.Set("primary_release_year", strconv.Itoa(p.PrimaryReleaseYear))
	}
	if p.Region != "" {
		q.Set("region", p.Region)
	}
	if len(p.WithGenres) > 0 {
		ids := make([]string, len(p.WithGenres))
		for i, g := range p.WithGenres {
			ids[i] = strconv.Itoa(g)
		}
		q.Set("with_genres", strings.Join(ids, ","))
	}
	if p.SortBy != "" {
		q.Set("sort_by", p.SortBy)
	}

	page, err := c.listMovies(ctx, "/search/movie", q)
	if err != nil {
		return nil, err
	}
	c.log.Info("Movie search completed", zap.String("query", query), zap.Int("total_results", page.TotalResults))
	return page, nil
}

func (c *Client) DiscoverMovies(ctx context.Context, p DiscoverParams) (*MoviePage, error) {
	q := pageQuery(p.Page)
	if p.GenreID > 0 {
		q.Set("with_genres", strconv.Itoa(p.GenreID))
	}
	if p.Year > 0 {
		q.Set("primary_release_year", strconv.Itoa(p.Year))
	}
	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = "popularity.desc"
	}
	q.Set("sort_by", sortBy)
	return c.listMovies(ctx, "/discover/movie", q)
}

func (c *Client) Credits(ctx context.Context, id string) (*Credits, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var out Credits
	if err := c.get(ctx, "/movie/"+id+"/credits", nil, &out); err != nil {
		return nil, err
	}
	normalizeCredits(&out)
	return &out, nil
}

func (c *Client) Videos(ctx context.Context, id string) (*Videos, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var out Videos
	if err := c.get(ctx, "/movie/"+id+"/videos", nil, &out); err != nil {
		return nil, err
	}
	normalizeVideos(&out)
	return &out, nil
}

// Reviews returns one page of upstream review excerpts.
func (c *Client) Reviews(ctx context.Context, id string, page int) (*ReviewPage, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var out ReviewPage
	if err := c.get(ctx, "/movie/"+id+"/reviews", pageQuery(page), &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []Review{}
	}
	return &out, nil
}
