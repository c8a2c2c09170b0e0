package request

// CreateReviewRequest is the review body. MovieID, MovieTitle, UserID and
// Username are filled by the caller, not decoded.
type CreateReviewRequest struct {
	MovieID    string `json:"-" validate:"required"`
	MovieTitle string `json:"-"`
	UserID     string `json:"-" validate:"required"`
	Username   string `json:"-"`
	Rating     *int   `json:"rating" validate:"required,gte=0,lte=10"`
	Comment    string `json:"comment" validate:"required,notblank,max=1000"`
}

// UpdateReviewRequest is a partial update; nil fields are left alone.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,notblank,max=1000"`
}

func (r UpdateReviewRequest) Empty() bool {
	return r.Rating == nil && r.Comment == nil
}

type ListReviewsRequest struct {
	PaginatedRequest
	SortBy    string `query:"sort_by" validate:"oneof=created_at rating updated_at"`
	SortOrder string `query:"sort_order" validate:"oneof=asc desc"`
}

// NewListReviewsRequest returns the default listing: newest first.
func NewListReviewsRequest() ListReviewsRequest {
	return ListReviewsRequest{
		PaginatedRequest: NewPaginatedRequest(),
		SortBy:           "created_at",
		SortOrder:        "desc",
	}
}

type RecentReviewsRequest struct {
	Limit int `query:"limit" validate:"gte=1,lte=50"`
}
