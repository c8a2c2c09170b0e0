package tmdb

import (
	"strconv"
	"time"
)

const (
	unknownGenre  = "Unknown"
	youtubeWatch  = "https://www.youtube.com/watch?v="
	jobDirector   = "Director"
	videoTrailer  = "Trailer"
	siteYouTube   = "YouTube"
	releaseLayout = "2006-01-02"
)

// needsGenreMap reports whether any entry only carries genre ids.
func needsGenreMap(raws ...rawMovie) bool {
	for _, r := range raws {
		if len(r.Genres) == 0 && len(r.GenreIDs) > 0 {
			return true
		}
	}
	return false
}

func normalizeMovie(r rawMovie, genres map[int]string) Movie {
	return Movie{
		ID:               strconv.FormatInt(r.ID, 10),
		Title:            r.Title,
		OriginalTitle:    r.OriginalTitle,
		Overview:         r.Overview,
		PosterPath:       deref(r.PosterPath),
		BackdropPath:     deref(r.BackdropPath),
		ReleaseDate:      normalizeDate(r.ReleaseDate),
		Genres:           resolveGenres(r, genres),
		Adult:            r.Adult,
		VoteAverage:      r.VoteAverage,
		VoteCount:        max(r.VoteCount, 0),
		Popularity:       max(r.Popularity, 0),
		OriginalLanguage: r.OriginalLanguage,
	}
}

func normalizeDetails(r rawMovie, genres map[int]string) MovieDetails {
	return MovieDetails{
		Movie:               normalizeMovie(r, genres),
		Runtime:             r.Runtime,
		Budget:              r.Budget,
		Revenue:             r.Revenue,
		Status:              r.Status,
		Tagline:             r.Tagline,
		Homepage:            r.Homepage,
		IMDbID:              deref(r.IMDbID),
		ProductionCompanies: r.ProductionCompanies,
		ProductionCountries: r.ProductionCountries,
		SpokenLanguages:     r.SpokenLanguages,
	}
}

func normalizePage(p rawPage, genres map[int]string) *MoviePage {
	out := &MoviePage{
		Page:         p.Page,
		TotalPages:   p.TotalPages,
		TotalResults: p.TotalResults,
		Results:      make([]Movie, 0, len(p.Results)),
	}
	for _, r := range p.Results {
		out.Results = append(out.Results, normalizeMovie(r, genres))
	}
	return out
}

// resolveGenres keeps genre objects the upstream already sent, otherwise maps
// ids to names in their original order.
func resolveGenres(r rawMovie, genres map[int]string) []Genre {
	if len(r.Genres) > 0 {
		return r.Genres
	}
	out := make([]Genre, 0, len(r.GenreIDs))
	for _, id := range r.GenreIDs {
		name, ok := genres[id]
		if !ok {
			name = unknownGenre
		}
		out = append(out, Genre{ID: id, Name: name})
	}
	return out
}

func normalizeDate(s string) *string {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(releaseLayout, s); err != nil {
		return nil
	}
	return &s
}

func normalizeCredits(c *Credits) {
	c.Directors = make([]CrewMember, 0, 1)
	for _, m := range c.Crew {
		if m.Job == jobDirector {
			c.Directors = append(c.Directors, m)
		}
	}
}

func normalizeVideos(v *Videos) {
	for i := range v.Results {
		if v.Results[i].Site == siteYouTube && v.Results[i].Key != "" {
			v.Results[i].YouTubeURL = youtubeWatch + v.Results[i].Key
		} else {
			v.Results[i].YouTubeURL = ""
		}
	}
}

func trailers(v *Videos) []Video {
	var out []Video
	for _, vid := range v.Results {
		if vid.Type == videoTrailer && vid.YouTubeURL != "" {
			out = append(out, vid)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
