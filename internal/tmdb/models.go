package tmdb

// Genre is a resolved genre as exposed to callers.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Movie is the normalized list/search/detail record. It never carries raw
// genre ids.
type Movie struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path,omitempty"`
	BackdropPath     string  `json:"backdrop_path,omitempty"`
	ReleaseDate      *string `json:"release_date"`
	Genres           []Genre `json:"genres"`
	Adult            bool    `json:"adult"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	OriginalLanguage string  `json:"original_language,omitempty"`
}

// MovieDetails is a Movie merged with its detail fields and, when fetched
// through GetMovieDetails, its reviews, credits and videos.
type MovieDetails struct {
	Movie
	Runtime             *int                `json:"runtime"`
	Budget              int64               `json:"budget"`
	Revenue             int64               `json:"revenue"`
	Status              string              `json:"status,omitempty"`
	Tagline             string              `json:"tagline,omitempty"`
	Homepage            string              `json:"homepage,omitempty"`
	IMDbID              string              `json:"imdb_id,omitempty"`
	ProductionCompanies []ProductionCompany `json:"production_companies,omitempty"`
	ProductionCountries []ProductionCountry `json:"production_countries,omitempty"`
	SpokenLanguages     []SpokenLanguage    `json:"spoken_languages,omitempty"`

	Reviews      []Review `json:"reviews,omitempty"`
	TotalReviews int      `json:"total_reviews,omitempty"`
	Credits      *Credits `json:"credits,omitempty"`
	Videos       *Videos  `json:"videos,omitempty"`
	Trailers     []Video  `json:"trailers,omitempty"`
}

type ProductionCompany struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	LogoPath      string `json:"logo_path,omitempty"`
	OriginCountry string `json:"origin_country,omitempty"`
}

type ProductionCountry struct {
	ISO3166 string `json:"iso_3166_1"`
	Name    string `json:"name"`
}

type SpokenLanguage struct {
	ISO639      string `json:"iso_639_1"`
	Name        string `json:"name"`
	EnglishName string `json:"english_name,omitempty"`
}

// MoviePage is one page of a list, search or discover endpoint.
type MoviePage struct {
	Page         int     `json:"page"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
	Results      []Movie `json:"results"`
}

type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path,omitempty"`
	Order       int    `json:"order"`
}

type CrewMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Job         string `json:"job"`
	Department  string `json:"department"`
	ProfilePath string `json:"profile_path,omitempty"`
}

type Credits struct {
	ID        int          `json:"id"`
	Cast      []CastMember `json:"cast"`
	Crew      []CrewMember `json:"crew"`
	Directors []CrewMember `json:"directors"`
}

type Video struct {
	ID          string  `json:"id"`
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Site        string  `json:"site"`
	Type        string  `json:"type"`
	Official    bool    `json:"official"`
	PublishedAt *string `json:"published_at"`
	YouTubeURL  string  `json:"youtube_url"`
}

type Videos struct {
	ID      int     `json:"id"`
	Results []Video `json:"results"`
}

type AuthorDetails struct {
	Name       string   `json:"name,omitempty"`
	Username   string   `json:"username,omitempty"`
	AvatarPath string   `json:"avatar_path,omitempty"`
	Rating     *float64 `json:"rating"`
}

// Review is an upstream review excerpt, unrelated to locally stored reviews.
type Review struct {
	ID            string        `json:"id"`
	Author        string        `json:"author"`
	Content       string        `json:"content"`
	CreatedAt     string        `json:"created_at"`
	UpdatedAt     string        `json:"updated_at,omitempty"`
	URL           string        `json:"url,omitempty"`
	AuthorDetails AuthorDetails `json:"author_details"`
}

type ReviewPage struct {
	ID           int      `json:"id"`
	Page         int      `json:"page"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
	Results      []Review `json:"results"`
}

// SearchParams mirrors the /search/movie query. Zero values are omitted.
type SearchParams struct {
	Query              string
	Page               int
	Language           string
	IncludeAdult       bool
	Year               int
	PrimaryReleaseYear int
	Region             string
	WithGenres         []int
	SortBy             string
}

// DiscoverParams selects movies by genre and/or release year.
type DiscoverParams struct {
	GenreID int
	Year    int
	SortBy  string
	Page    int
}

// wire shapes

type rawMovie struct {
	ID                  int64               `json:"id"`
	Title               string              `json:"title"`
	OriginalTitle       string              `json:"original_title"`
	Overview            string              `json:"overview"`
	PosterPath          *string             `json:"poster_path"`
	BackdropPath        *string             `json:"backdrop_path"`
	ReleaseDate         string              `json:"release_date"`
	GenreIDs            []int               `json:"genre_ids"`
	Genres              []Genre             `json:"genres"`
	Adult               bool                `json:"adult"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int                 `json:"vote_count"`
	Popularity          float64             `json:"popularity"`
	OriginalLanguage    string              `json:"original_language"`
	Runtime             *int                `json:"runtime"`
	Budget              int64               `json:"budget"`
	Revenue             int64               `json:"revenue"`
	Status              string              `json:"status"`
	Tagline             string              `json:"tagline"`
	Homepage            string              `json:"homepage"`
	IMDbID              *string             `json:"imdb_id"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	SpokenLanguages     []SpokenLanguage    `json:"spoken_languages"`
}

type rawPage struct {
	Page         int        `json:"page"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
	Results      []rawMovie `json:"results"`
}

type rawGenres struct {
	Genres []Genre `json:"genres"`
}

type errorBody struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}
