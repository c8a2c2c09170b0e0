package entity

// Document field names used in filters, sorts and indexes.
const (
	FieldMovieID   = "movie_id"
	FieldUserID    = "user_id"
	FieldRating    = "rating"
	FieldComment   = "comment"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Review is one user's review of one movie. MovieTitle is a snapshot taken
// when the review was written.
type Review struct {
	ID         string `json:"_id,omitempty" bson:"_id,omitempty"`
	MovieID    string `json:"movie_id" bson:"movie_id"`
	MovieTitle string `json:"movie_title" bson:"movie_title"`
	UserID     string `json:"user_id" bson:"user_id"`
	Username   string `json:"username" bson:"username"`
	Rating     int    `json:"rating" bson:"rating"` // 0-10
	Comment    string `json:"comment" bson:"comment"`
	Timestamps `bson:",inline"`
}
