package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marqueeapp/marquee-server/internal/domain"
	domainerrors "github.com/marqueeapp/marquee-server/internal/errors"
	"github.com/marqueeapp/marquee-server/internal/store"
)

// setupStoreTest creates a bare store for service tests that don't need
// the full auth stack.
func setupStoreTest(t *testing.T) (*store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "marquee-service-test-*")
	require.NoError(t, err)

	s, err := store.New(tmpDir+"/store", nil, store.NewNoopEmitter())
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	}
	return s, cleanup
}

func seedVenue(t *testing.T, s *store.Store, id string, tags ...string) *domain.Venue {
	t.Helper()
	venue := &domain.Venue{
		Syncable: domain.Syncable{ID: id},
		Name:     "Venue " + id,
		Brand:    "TOHO",
		Region:   "Tokyo",
		Tags:     tags,
	}
	require.NoError(t, s.UpsertVenue(context.Background(), venue))
	return venue
}

func reviewAuthor(id, name string) *domain.User {
	return &domain.User{
		Syncable:    domain.Syncable{ID: id},
		DisplayName: name,
		NicknameKey: name,
	}
}

func ratingReq(venueID, tag string, score float64) UpsertReviewRequest {
	return UpsertReviewRequest{
		VenueID: venueID,
		Tag:     tag,
		Screen:  score,
		Picture: score,
		Sound:   score,
		Seat:    score,
	}
}

func TestReviewService_UpsertReview(t *testing.T) {
	s, cleanup := setupStoreTest(t)
	defer cleanup()

	svc := NewReviewService(s, nil)
	ctx := context.Background()
	seedVenue(t, s, "venue_1", "IMAX")

	resp, err := svc.UpsertReview(ctx, reviewAuthor("user_a", "mina"), ratingReq("venue_1", "IMAX", 4.5))
	require.NoError(t, err)

	assert.Equal(t, 4.5, resp.Review.Overall)
	assert.Equal(t, "mina", resp.Review.AuthorName)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, 1, resp.Summary.Count)
	assert.InDelta(t, 4.5, resp.Summary.Average, 1e-9)
}

func TestReviewService_UpsertReview_Validation(t *testing.T) {
	s, cleanup := setupStoreTest(t)
	defer cleanup()

	svc := NewReviewService(s, nil)
	ctx := context.Background()
	seedVenue(t, s, "venue_1", "IMAX")
	author := reviewAuthor("user_a", "mina")

	t.Run("quarter step score", func(t *testing.T) {
		req := ratingReq("venue_1", "IMAX", 4.0)
		req.Sound = 3.25
		_, err := svc.UpsertReview(ctx, author, req)
		assert.True(t, errors.Is(err, domainerrors.ErrValidation), "got %v", err)
	})

	t.Run("score above range", func(t *testing.T) {
		req := ratingReq("venue_1", "IMAX", 4.0)
		req.Screen = 5.5
		_, err := svc.UpsertReview(ctx, author, req)
		assert.True(t, errors.Is(err, domainerrors.ErrValidation), "got %v", err)
	})

	t.Run("unknown venue", func(t *testing.T) {
		_, err := svc.UpsertReview(ctx, author, ratingReq("venue_ghost", "IMAX", 4.0))
		assert.True(t, errors.Is(err, domainerrors.ErrNotFound), "got %v", err)
	})

	t.Run("tag not offered by venue", func(t *testing.T) {
		_, err := svc.UpsertReview(ctx, author, ratingReq("venue_1", "4DX", 4.0))
		assert.True(t, errors.Is(err, domainerrors.ErrValidation), "got %v", err)
	})
}

func TestReviewService_DeleteReview_Idempotent(t *testing.T) {
	s, cleanup := setupStoreTest(t)
	defer cleanup()

	svc := NewReviewService(s, nil)
	ctx := context.Background()
	seedVenue(t, s, "venue_1", "IMAX")

	_, err := svc.UpsertReview(ctx, reviewAuthor("user_a", "mina"), ratingReq("venue_1", "IMAX", 4.0))
	require.NoError(t, err)

	summary, err := svc.DeleteReview(ctx, "venue_1", "IMAX", "user_a")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Count)

	// Second delete is a no-op, not an error, and still reports the
	// summary as it stands
	summary, err = svc.DeleteReview(ctx, "venue_1", "IMAX", "user_a")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.Count)
	assert.Zero(t, summary.Sum)
}

func TestReviewService_UpsertReview_DuplicateBurst(t *testing.T) {
	s, cleanup := setupStoreTest(t)
	defer cleanup()

	svc := NewReviewService(s, nil)
	ctx := context.Background()
	seedVenue(t, s, "venue_1", "IMAX")
	author := reviewAuthor("user_a", "mina")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.UpsertReview(ctx, author, ratingReq("venue_1", "IMAX", 4.0))
		}()
	}
	wg.Wait()

	summary, err := s.GetSummary(ctx, "venue_1", "IMAX")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count)
	assert.InDelta(t, 4.0, summary.Average, 1e-9)

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.DeleteReview(ctx, "venue_1", "IMAX", "user_a")
		}()
	}
	wg.Wait()

	summary, err = s.GetSummary(ctx, "venue_1", "IMAX")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Count)
	assert.Zero(t, summary.Sum)
}

func TestReviewService_ListReviews(t *testing.T) {
	s, cleanup := setupStoreTest(t)
	defer cleanup()

	svc := NewReviewService(s, nil)
	social := NewSocialService(s, nil)
	ctx := context.Background()
	seedVenue(t, s, "venue_1", "IMAX")

	_, err := svc.UpsertReview(ctx, reviewAuthor("user_a", "mina"), ratingReq("venue_1", "IMAX", 4.0))
	require.NoError(t, err)
	_, err = svc.UpsertReview(ctx, reviewAuthor("user_b", "kenji"), ratingReq("venue_1", "IMAX", 3.0))
	require.NoError(t, err)

	// Viewer likes one review
	_, err = social.ToggleLike(ctx, "venue_1", "IMAX", "user_a", "viewer")
	require.NoError(t, err)

	resp, err := svc.ListReviews(ctx, "venue_1", "IMAX", "viewer", "likes", store.PaginationParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "user_a", resp.Items[0].Review.AuthorID)
	assert.True(t, resp.Items[0].LikedByMe)
	assert.False(t, resp.Items[1].LikedByMe)
	assert.Equal(t, 2, resp.Summary.Count)
	assert.InDelta(t, 3.5, resp.Summary.Average, 1e-9)
}

func TestReviewService_ListReviews_BadSort(t *testing.T) {
	s, cleanup := setupStoreTest(t)
	defer cleanup()

	svc := NewReviewService(s, nil)
	_, err := svc.ListReviews(context.Background(), "venue_1", "IMAX", "", "random", store.PaginationParams{Limit: 10})
	assert.True(t, errors.Is(err, domainerrors.ErrValidation), "got %v", err)
}

func TestReviewService_MyReview(t *testing.T) {
	s, cleanup := setupStoreTest(t)
	defer cleanup()

	svc := NewReviewService(s, nil)
	ctx := context.Background()
	seedVenue(t, s, "venue_1", "IMAX")

	_, err := svc.MyReview(ctx, "venue_1", "IMAX", "user_a")
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound), "got %v", err)

	_, err = svc.UpsertReview(ctx, reviewAuthor("user_a", "mina"), ratingReq("venue_1", "IMAX", 4.0))
	require.NoError(t, err)

	resp, err := svc.MyReview(ctx, "venue_1", "IMAX", "user_a")
	require.NoError(t, err)
	assert.Equal(t, "user_a", resp.Review.AuthorID)
}

func TestReviewService_GetSummary_EmptyPair(t *testing.T) {
	s, cleanup := setupStoreTest(t)
	defer cleanup()

	svc := NewReviewService(s, nil)

	summary, err := svc.GetSummary(context.Background(), "venue_none", "IMAX")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Count)
	assert.Zero(t, summary.Average)
}
