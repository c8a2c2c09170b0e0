package request

// SearchMoviesRequest is the /api/movies/search query.
type SearchMoviesRequest struct {
	Query              string `query:"query" validate:"required,notblank"`
	Page               int    `query:"page" validate:"gte=1,lte=500"`
	Language           string `query:"language"`
	IncludeAdult       bool   `query:"include_adult"`
	Year               int    `query:"year" validate:"omitempty,gte=1870,lte=2100"`
	PrimaryReleaseYear int    `query:"primary_release_year" validate:"omitempty,gte=1870,lte=2100"`
	Region             string `query:"region" validate:"omitempty,len=2"`
	WithGenres         []int  `query:"with_genres"`
	SortBy             string `query:"sort_by"`
}

// DiscoverMoviesRequest selects movies by genre or release year.
type DiscoverMoviesRequest struct {
	GenreID int    `query:"genre_id" validate:"omitempty,gte=1"`
	Year    int    `query:"year" validate:"omitempty,gte=1870,lte=2100"`
	SortBy  string `query:"sort_by" validate:"omitempty,oneof=popularity.desc popularity.asc vote_average.desc vote_average.asc release_date.desc release_date.asc"`
	Page    int    `query:"page" validate:"gte=1,lte=500"`
}
