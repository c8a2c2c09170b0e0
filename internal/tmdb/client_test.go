package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"movie-catalog/pkg/apperr"
	"movie-catalog/pkg/ratelimit"
)

func newTestClient(t *testing.T, srv *httptest.Server, retry RetryPolicy, opts ...Option) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:           srv.URL,
		AccessToken:       "token",
		RequestsPerSecond: 1000,
		Retry:             retry,
	}
	return New(cfg, append([]Option{WithLimiter(ratelimit.New(1000))}, opts...)...)
}

func fastRetry(n int) RetryPolicy {
	return RetryPolicy{MaxRetries: n, BaseDelay: 10 * time.Millisecond}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRetryAfterHonouredOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorBody{StatusCode: 25, StatusMessage: "Too many requests"})
			return
		}
		writeJSON(w, http.StatusOK, rawGenres{Genres: []Genre{{ID: 28, Name: "Action"}}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, fastRetry(3))
	start := time.Now()
	genres, err := c.Genres(context.Background())
	if err != nil {
		t.Fatalf("Genres: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("expected to wait at least 1s, waited %v", elapsed)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected exactly one retry, got %d requests", hits.Load())
	}
	if len(genres) != 1 || genres[0].Name != "Action" {
		t.Fatalf("unexpected genres: %+v", genres)
	}
}

func TestRateLimitedAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, fastRetry(2))
	_, err := c.PopularMovies(context.Background(), 1)
	if !apperr.IsKind(err, apperr.KindRateLimited) {
		t.Fatalf("expected rate_limited, got %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 1 attempt + 2 retries, got %d", hits.Load())
	}
}

func TestNonRetriedStatuses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		kind   apperr.Kind
	}{
		{"not found", http.StatusNotFound, apperr.KindNotFound},
		{"unauthorized", http.StatusUnauthorized, apperr.KindUnauthorized},
		{"server error", http.StatusServiceUnavailable, apperr.KindUpstream},
		{"teapot", http.StatusTeapot, apperr.KindUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				writeJSON(w, tc.status, errorBody{StatusMessage: "upstream says no"})
			}))
			defer srv.Close()

			c := newTestClient(t, srv, fastRetry(3))
			_, err := c.GetMovie(context.Background(), "550")
			if got := apperr.KindOf(err); got != tc.kind {
				t.Fatalf("expected %s, got %s (%v)", tc.kind, got, err)
			}
			if hits.Load() != 1 {
				t.Fatalf("expected no retry, got %d requests", hits.Load())
			}
			if tc.kind == apperr.KindUpstream {
				var e *apperr.Error
				if !errors.As(err, &e) || e.Status != tc.status || e.Message != "upstream says no" {
					t.Fatalf("expected status and message carried, got %+v", e)
				}
			}
		})
	}
}

func TestTransientRetriedThenSurfaced(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("response writer cannot hijack")
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	c := newTestClient(t, srv, fastRetry(2))
	_, err := c.Credits(context.Background(), "550")
	if !apperr.IsKind(err, apperr.KindTransient) {
		t.Fatalf("expected transient, got %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestListResolvesGenreIDs(t *testing.T) {
	var genreCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/genre/movie/list":
			genreCalls.Add(1)
			writeJSON(w, http.StatusOK, rawGenres{Genres: []Genre{{ID: 28, Name: "Action"}, {ID: 12, Name: "Adventure"}}})
		case "/movie/popular":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"page":1,"total_pages":1,"total_results":2,"results":[
				{"id":550,"title":"Fight Club","original_title":"Fight Club","genre_ids":[28,12],"release_date":"1999-10-15","vote_average":8.4,"vote_count":100,"popularity":61.4},
				{"id":551,"title":"Other","original_title":"Other","genre_ids":[99],"release_date":""}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, fastRetry(0))
	for i := 0; i < 2; i++ {
		page, err := c.PopularMovies(context.Background(), 1)
		if err != nil {
			t.Fatalf("PopularMovies: %v", err)
		}
		first := page.Results[0]
		if first.ID != "550" {
			t.Fatalf("expected string id 550, got %q", first.ID)
		}
		want := []Genre{{ID: 28, Name: "Action"}, {ID: 12, Name: "Adventure"}}
		if len(first.Genres) != 2 || first.Genres[0] != want[0] || first.Genres[1] != want[1] {
			t.Fatalf("unexpected genres: %+v", first.Genres)
		}
		if first.ReleaseDate == nil || *first.ReleaseDate != "1999-10-15" {
			t.Fatalf("unexpected release date: %v", first.ReleaseDate)
		}
		second := page.Results[1]
		if second.Genres[0].Name != "Unknown" || second.ReleaseDate != nil {
			t.Fatalf("unexpected second movie: %+v", second)
		}

		b, _ := json.Marshal(first)
		if strings.Contains(string(b), "genre_ids") {
			t.Fatalf("raw genre ids leaked: %s", b)
		}
	}
	if genreCalls.Load() != 1 {
		t.Fatalf("expected genre list fetched once, got %d", genreCalls.Load())
	}
}

func TestInvalidIDSkipsUpstream(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, fastRetry(0))
	if _, err := c.Videos(context.Background(), "abc"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
	if _, err := c.SearchMovies(context.Background(), SearchParams{Query: "  "}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation for empty query, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no upstream call, got %d", hits.Load())
	}
}

func TestAuthentication(t *testing.T) {
	var gotAuth, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.URL.Query().Get("api_key")
		writeJSON(w, http.StatusOK, rawGenres{})
	}))
	defer srv.Close()

	bearer := New(Config{BaseURL: srv.URL, AccessToken: "tok", APIKey: "key"}, WithLimiter(ratelimit.New(1000)))
	if _, err := bearer.Genres(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok" || gotKey != "" {
		t.Fatalf("expected bearer only, got auth=%q key=%q", gotAuth, gotKey)
	}

	keyed := New(Config{BaseURL: srv.URL, APIKey: "key"}, WithLimiter(ratelimit.New(1000)))
	if _, err := keyed.Genres(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "" || gotKey != "key" {
		t.Fatalf("expected api_key only, got auth=%q key=%q", gotAuth, gotKey)
	}
}

func detailsServer(t *testing.T, videosStatus int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie/550":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":550,"title":"Fight Club","original_title":"Fight Club",
				"genres":[{"id":18,"name":"Drama"}],"runtime":139,"budget":63000000,"tagline":"Mischief."}`))
		case "/movie/550/reviews":
			writeJSON(w, http.StatusOK, ReviewPage{ID: 550, Page: 1, TotalResults: 7, Results: []Review{{ID: "r1", Author: "a", Content: "c"}}})
		case "/movie/550/credits":
			writeJSON(w, http.StatusOK, Credits{ID: 550,
				Cast: []CastMember{{ID: 1, Name: "Edward Norton", Character: "Narrator"}},
				Crew: []CrewMember{{ID: 7467, Name: "David Fincher", Job: "Director"}, {ID: 2, Name: "Someone", Job: "Editor"}},
			})
		case "/movie/550/videos":
			if videosStatus != http.StatusOK {
				writeJSON(w, videosStatus, errorBody{StatusMessage: "videos down"})
				return
			}
			writeJSON(w, http.StatusOK, Videos{ID: 550, Results: []Video{
				{ID: "v1", Key: "abc", Site: "YouTube", Type: "Trailer"},
				{ID: "v2", Key: "xyz", Site: "Vimeo", Type: "Trailer"},
			}})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestGetMovieDetailsMerges(t *testing.T) {
	srv := detailsServer(t, http.StatusOK)
	defer srv.Close()

	c := newTestClient(t, srv, fastRetry(0))
	d, err := c.GetMovieDetails(context.Background(), "550")
	if err != nil {
		t.Fatalf("GetMovieDetails: %v", err)
	}
	if d.ID != "550" || d.Genres[0].Name != "Drama" || d.Runtime == nil || *d.Runtime != 139 {
		t.Fatalf("unexpected base record: %+v", d.Movie)
	}
	if d.TotalReviews != 7 || len(d.Reviews) != 1 {
		t.Fatalf("unexpected reviews: %d %+v", d.TotalReviews, d.Reviews)
	}
	if len(d.Credits.Directors) != 1 || d.Credits.Directors[0].Name != "David Fincher" {
		t.Fatalf("unexpected directors: %+v", d.Credits.Directors)
	}
	if d.Videos.Results[0].YouTubeURL != "https://www.youtube.com/watch?v=abc" || d.Videos.Results[1].YouTubeURL != "" {
		t.Fatalf("unexpected video urls: %+v", d.Videos.Results)
	}
	if len(d.Trailers) != 1 || d.Trailers[0].ID != "v1" {
		t.Fatalf("unexpected trailers: %+v", d.Trailers)
	}
}

func TestGetMovieDetailsFailsOnSecondaryError(t *testing.T) {
	srv := detailsServer(t, http.StatusInternalServerError)
	defer srv.Close()

	c := newTestClient(t, srv, fastRetry(0))
	d, err := c.GetMovieDetails(context.Background(), "550")
	if !apperr.IsKind(err, apperr.KindUpstream) || d != nil {
		t.Fatalf("expected upstream error and no partial result, got %v %+v", err, d)
	}
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusBadGateway, errorBody{StatusMessage: "bad gateway"})
	}))
	defer srv.Close()

	cb := NewBreaker("tmdb-test", 2, time.Minute, nil)
	c := newTestClient(t, srv, fastRetry(0), WithBreaker(cb))

	for i := 0; i < 2; i++ {
		if _, err := c.TopRatedMovies(context.Background(), 1); !apperr.IsKind(err, apperr.KindUpstream) {
			t.Fatalf("call %d: expected upstream, got %v", i, err)
		}
	}
	_, err := c.TopRatedMovies(context.Background(), 1)
	if !apperr.IsKind(err, apperr.KindTransient) {
		t.Fatalf("expected transient from open breaker, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected open breaker to skip upstream, got %d requests", hits.Load())
	}
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{StatusMessage: "missing"})
	}))
	defer srv.Close()

	cb := NewBreaker("tmdb-test", 1, time.Minute, nil)
	c := newTestClient(t, srv, fastRetry(0), WithBreaker(cb))
	for i := 0; i < 3; i++ {
		if _, err := c.GetMovie(context.Background(), "1"); !apperr.IsKind(err, apperr.KindNotFound) {
			t.Fatalf("call %d: expected not_found, got %v", i, err)
		}
	}
}
