package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"movie-catalog/internal/data/repository"
	"movie-catalog/internal/dto/request"
	"movie-catalog/pkg/apperr"
	"movie-catalog/pkg/docstore"

	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return p.err
}

// newTestReviewService returns a service over an indexed in-memory store
// whose clock advances one second per call.
func newTestReviewService(t *testing.T, pub EventPublisher) *reviewService {
	t.Helper()
	repo := repository.NewRepository(docstore.NewMemoryStore(), zap.NewNop())
	if err := repo.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	svc := NewReviewService(repo, pub, zap.NewNop()).(*reviewService)

	var tick atomic.Int64
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		return base.Add(time.Duration(tick.Add(1)) * time.Second)
	}
	return svc
}

func intPtr(v int) *int { return &v }

func createReq(movieID, userID string, rating int) *request.CreateReviewRequest {
	return &request.CreateReviewRequest{
		MovieID:    movieID,
		MovieTitle: "Fight Club",
		UserID:     userID,
		Username:   userID,
		Rating:     intPtr(rating),
		Comment:    "  worth watching  ",
	}
}

func listReq(sortBy, order string) *request.ListReviewsRequest {
	req := request.NewListReviewsRequest()
	req.SortBy = sortBy
	req.SortOrder = order
	return &req
}

func mustCreate(t *testing.T, svc ReviewService, movieID, userID string, rating int) string {
	t.Helper()
	resp, err := svc.CreateReview(context.Background(), createReq(movieID, userID, rating))
	if err != nil {
		t.Fatalf("create review %s/%s: %v", movieID, userID, err)
	}
	return resp.ID
}

func TestCreateReviewTrimsCommentAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestReviewService(t, pub)

	resp, err := svc.CreateReview(context.Background(), createReq("550", "u1", 8))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.ID == "" || resp.Comment != "worth watching" || resp.Rating != 8 {
		t.Fatalf("unexpected review: %+v", resp)
	}
	if resp.UpdatedAt != nil {
		t.Fatalf("new review must not carry updated_at, got %v", resp.UpdatedAt)
	}
	if len(pub.subjects) != 1 || pub.subjects[0] != "reviews.created" {
		t.Fatalf("expected created event, got %v", pub.subjects)
	}
}

func TestCreateReviewDuplicate(t *testing.T) {
	svc := newTestReviewService(t, nil)
	mustCreate(t, svc, "550", "u1", 8)

	_, err := svc.CreateReview(context.Background(), createReq("550", "u1", 3))
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// same user, other movie is fine
	mustCreate(t, svc, "551", "u1", 3)
}

func TestCreateReviewConcurrentDuplicates(t *testing.T) {
	svc := newTestReviewService(t, nil)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateReview(context.Background(), createReq("550", "u1", 7))
			switch {
			case err == nil:
				succeeded.Add(1)
			case apperr.IsKind(err, apperr.KindValidation):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded.Load() != 1 || rejected.Load() != 19 {
		t.Fatalf("expected 1 success and 19 rejections, got %d/%d", succeeded.Load(), rejected.Load())
	}
}

func TestCreateReviewRejectsBadInput(t *testing.T) {
	svc := newTestReviewService(t, nil)

	tests := []struct {
		name   string
		mutate func(r *request.CreateReviewRequest)
	}{
		{"rating above range", func(r *request.CreateReviewRequest) { r.Rating = intPtr(11) }},
		{"negative rating", func(r *request.CreateReviewRequest) { r.Rating = intPtr(-1) }},
		{"missing rating", func(r *request.CreateReviewRequest) { r.Rating = nil }},
		{"blank comment", func(r *request.CreateReviewRequest) { r.Comment = "   " }},
		{"long comment", func(r *request.CreateReviewRequest) { r.Comment = strings.Repeat("x", 1001) }},
		{"missing user", func(r *request.CreateReviewRequest) { r.UserID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := createReq("550", "u1", 5)
			tt.mutate(req)
			_, err := svc.CreateReview(context.Background(), req)
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	// boundary ratings are accepted
	mustCreate(t, svc, "550", "zero", 0)
	mustCreate(t, svc, "550", "ten", 10)
}

func TestRatingStatsEmpty(t *testing.T) {
	svc := newTestReviewService(t, nil)

	stats, err := svc.GetMovieRatingStats(context.Background(), "550")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalReviews != 0 || stats.AverageRating != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
	if len(stats.Distribution) != 11 {
		t.Fatalf("expected 11 buckets, got %d", len(stats.Distribution))
	}
	for i, b := range stats.Distribution {
		if b.Rating != i || b.Count != 0 {
			t.Fatalf("bucket %d: %+v", i, b)
		}
	}
}

func TestRatingStats(t *testing.T) {
	svc := newTestReviewService(t, nil)
	for i, r := range []int{8, 8, 10, 6} {
		mustCreate(t, svc, "550", string(rune('a'+i)), r)
	}
	mustCreate(t, svc, "999", "a", 1)

	stats, err := svc.GetMovieRatingStats(context.Background(), "550")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.AverageRating != 8.0 || stats.TotalReviews != 4 {
		t.Fatalf("expected 8.0 over 4, got %v over %d", stats.AverageRating, stats.TotalReviews)
	}
	want := map[int]int64{6: 1, 8: 2, 10: 1}
	for _, b := range stats.Distribution {
		if b.Count != want[b.Rating] {
			t.Fatalf("rating %d: expected %d got %d", b.Rating, want[b.Rating], b.Count)
		}
	}
}

func TestRatingStatsRounding(t *testing.T) {
	tests := []struct {
		name   string
		groups []docstore.GroupCount
		want   float64
	}{
		{"thirds", []docstore.GroupCount{{Key: 7, Count: 2}, {Key: 8, Count: 1}}, 7.3},
		{"half rounds to even down", []docstore.GroupCount{{Key: 7, Count: 3}, {Key: 8, Count: 1}}, 7.2},
		{"half rounds to even up", []docstore.GroupCount{{Key: 7, Count: 1}, {Key: 8, Count: 3}}, 7.8},
		{"exact", []docstore.GroupCount{{Key: 6, Count: 1}, {Key: 7, Count: 1}}, 6.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := ratingStats("1", tt.groups)
			if stats.AverageRating != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, stats.AverageRating)
			}
		})
	}
}

func TestUpdateReview(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestReviewService(t, pub)
	id := mustCreate(t, svc, "550", "u1", 5)

	comment := " changed my mind "
	resp, err := svc.UpdateReview(context.Background(), id, &request.UpdateReviewRequest{Comment: &comment})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if resp.Rating != 5 || resp.Comment != "changed my mind" {
		t.Fatalf("unexpected review: %+v", resp)
	}
	if resp.UpdatedAt == nil || !resp.UpdatedAt.After(resp.CreatedAt) {
		t.Fatalf("expected updated_at after created_at, got %v / %v", resp.UpdatedAt, resp.CreatedAt)
	}

	got, err := svc.GetReview(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UpdatedAt == nil || got.Comment != "changed my mind" {
		t.Fatalf("update not persisted: %+v", got)
	}
}

func TestUpdateReviewErrors(t *testing.T) {
	svc := newTestReviewService(t, nil)
	id := mustCreate(t, svc, "550", "u1", 5)

	_, err := svc.UpdateReview(context.Background(), "missing", &request.UpdateReviewRequest{Rating: intPtr(3)})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	_, err = svc.UpdateReview(context.Background(), id, &request.UpdateReviewRequest{})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation for empty patch, got %v", err)
	}

	_, err = svc.UpdateReview(context.Background(), id, &request.UpdateReviewRequest{Rating: intPtr(42)})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation for rating, got %v", err)
	}
}

func TestDeleteReview(t *testing.T) {
	svc := newTestReviewService(t, nil)
	id := mustCreate(t, svc, "550", "u1", 5)

	if err := svc.DeleteReview(context.Background(), id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteReview(context.Background(), id); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := svc.GetReview(context.Background(), id); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	// the slot is free again
	mustCreate(t, svc, "550", "u1", 9)
}

func TestGetMovieReviewsSorting(t *testing.T) {
	svc := newTestReviewService(t, nil)
	for i, r := range []int{4, 9, 1} {
		mustCreate(t, svc, "550", string(rune('a'+i)), r)
	}

	_, err := svc.GetMovieReviews(context.Background(), "550", listReq("bogus_field", "desc"))
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation for unknown sort field, got %v", err)
	}

	tests := []struct {
		sortBy, order string
		want          []int
	}{
		{"rating", "asc", []int{1, 4, 9}},
		{"rating", "desc", []int{9, 4, 1}},
		{"created_at", "asc", []int{4, 9, 1}},
		{"created_at", "desc", []int{1, 9, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.sortBy+"_"+tt.order, func(t *testing.T) {
			page, err := svc.GetMovieReviews(context.Background(), "550", listReq(tt.sortBy, tt.order))
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(page.Data) != len(tt.want) {
				t.Fatalf("expected %d reviews, got %d", len(tt.want), len(page.Data))
			}
			for i, r := range page.Data {
				if r.Rating != tt.want[i] {
					t.Fatalf("position %d: expected rating %d got %d", i, tt.want[i], r.Rating)
				}
			}
			if page.Pagination.Total != 3 || page.Pagination.HasMore {
				t.Fatalf("unexpected pagination: %+v", page.Pagination)
			}
		})
	}
}

func TestGetMovieReviewsUpdatedAtNullsLast(t *testing.T) {
	svc := newTestReviewService(t, nil)
	first := mustCreate(t, svc, "550", "a", 4)
	mustCreate(t, svc, "550", "b", 6)

	if _, err := svc.UpdateReview(context.Background(), first, &request.UpdateReviewRequest{Rating: intPtr(5)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	page, err := svc.GetMovieReviews(context.Background(), "550", listReq("updated_at", "desc"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Data[0].ID != first || page.Data[1].UpdatedAt != nil {
		t.Fatalf("expected edited review first, got %+v", page.Data)
	}
}

func TestGetUserReviewsPagination(t *testing.T) {
	svc := newTestReviewService(t, nil)
	for _, movie := range []string{"1", "2", "3"} {
		mustCreate(t, svc, movie, "u1", 5)
	}
	mustCreate(t, svc, "1", "u2", 5)

	req := listReq("created_at", "desc")
	req.Limit = 2
	page, err := svc.GetUserReviews(context.Background(), "u1", req)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Data) != 2 || page.Pagination.Total != 3 || !page.Pagination.HasMore {
		t.Fatalf("unexpected page: %d items, %+v", len(page.Data), page.Pagination)
	}
	if page.Data[0].MovieID != "3" {
		t.Fatalf("expected newest first, got movie %s", page.Data[0].MovieID)
	}

	req.Skip = 2
	page, err = svc.GetUserReviews(context.Background(), "u1", req)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Data) != 1 || page.Pagination.HasMore {
		t.Fatalf("unexpected last page: %d items, %+v", len(page.Data), page.Pagination)
	}

	req.Limit = 51
	if _, err := svc.GetUserReviews(context.Background(), "u1", req); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation for limit 51, got %v", err)
	}
}

func TestGetUserReviewForMovie(t *testing.T) {
	svc := newTestReviewService(t, nil)
	id := mustCreate(t, svc, "550", "u1", 5)

	got, err := svc.GetUserReviewForMovie(context.Background(), "u1", "550")
	if err != nil || got.ID != id {
		t.Fatalf("expected review %s, got %+v (%v)", id, got, err)
	}
	if _, err := svc.GetUserReviewForMovie(context.Background(), "u2", "550"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetRecentReviews(t *testing.T) {
	svc := newTestReviewService(t, nil)
	mustCreate(t, svc, "1", "a", 5)
	mustCreate(t, svc, "2", "a", 5)
	last := mustCreate(t, svc, "3", "b", 5)

	got, err := svc.GetRecentReviews(context.Background(), &request.RecentReviewsRequest{Limit: 2})
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].ID != last {
		t.Fatalf("expected 2 reviews newest first, got %+v", got)
	}

	if _, err := svc.GetRecentReviews(context.Background(), &request.RecentReviewsRequest{Limit: 0}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation for limit 0, got %v", err)
	}
}
