package response

import (
	"sort"

	"movie-catalog/internal/tmdb"
)

// MovieResponse is an upstream movie decorated with locally stored review
// statistics.
type MovieResponse struct {
	*tmdb.MovieDetails
	LocalRating *MovieRatingStats `json:"local_rating,omitempty"`
}

// GenresFromMap lists a genre map ordered by name.
func GenresFromMap(m map[int]string) []tmdb.Genre {
	out := make([]tmdb.Genre, 0, len(m))
	for id, name := range m {
		out = append(out, tmdb.Genre{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}
