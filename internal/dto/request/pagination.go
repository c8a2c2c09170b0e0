package request

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

type PaginatedRequest struct {
	Skip  int `query:"skip" validate:"gte=0"`
	Limit int `query:"limit" validate:"gte=1,lte=50"`
}

func NewPaginatedRequest() PaginatedRequest {
	return PaginatedRequest{Skip: 0, Limit: DefaultLimit}
}
