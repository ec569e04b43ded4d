package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/marqueeapp/marquee-server/internal/errors"
)

func TestSocialService_ToggleLike(t *testing.T) {
	s, cleanup := setupStoreTest(t)
	defer cleanup()

	reviews := NewReviewService(s, nil)
	svc := NewSocialService(s, nil)
	ctx := context.Background()
	seedVenue(t, s, "venue_1", "IMAX")

	_, err := reviews.UpsertReview(ctx, reviewAuthor("user_a", "mina"), ratingReq("venue_1", "IMAX", 4.0))
	require.NoError(t, err)

	resp, err := svc.ToggleLike(ctx, "venue_1", "IMAX", "user_a", "user_b")
	require.NoError(t, err)
	assert.True(t, resp.LikedBy)
	assert.Equal(t, 1, resp.Review.LikeCount)

	resp, err = svc.ToggleLike(ctx, "venue_1", "IMAX", "user_a", "user_b")
	require.NoError(t, err)
	assert.False(t, resp.LikedBy)
	assert.Equal(t, 0, resp.Review.LikeCount)
}

func TestSocialService_ToggleLike_MissingReview(t *testing.T) {
	s, cleanup := setupStoreTest(t)
	defer cleanup()

	svc := NewSocialService(s, nil)

	_, err := svc.ToggleLike(context.Background(), "venue_1", "IMAX", "nobody", "user_b")
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound), "got %v", err)
}

// A burst of identical toggles must not flip the like more than once.
// The in-flight guard answers duplicates with current state, so the
// final like count is never negative and never exceeds one.
func TestSocialService_ToggleLike_DuplicateBurst(t *testing.T) {
	s, cleanup := setupStoreTest(t)
	defer cleanup()

	reviews := NewReviewService(s, nil)
	svc := NewSocialService(s, nil)
	ctx := context.Background()
	seedVenue(t, s, "venue_1", "IMAX")

	_, err := reviews.UpsertReview(ctx, reviewAuthor("user_a", "mina"), ratingReq("venue_1", "IMAX", 4.0))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.ToggleLike(ctx, "venue_1", "IMAX", "user_a", "user_b")
		}()
	}
	wg.Wait()

	review, err := s.GetReview(ctx, "venue_1", "IMAX", "user_a")
	require.NoError(t, err)
	assert.Contains(t, []int{0, 1}, review.LikeCount)

	markers, err := s.CountLikes(ctx, "venue_1", "IMAX", "user_a")
	require.NoError(t, err)
	assert.Equal(t, review.LikeCount, markers)
}

func TestSocialService_ToggleFavorite(t *testing.T) {
	s, cleanup := setupStoreTest(t)
	defer cleanup()

	svc := NewSocialService(s, nil)
	ctx := context.Background()
	seedVenue(t, s, "venue_1", "IMAX")

	resp, err := svc.ToggleFavorite(ctx, "user_a", "venue_1")
	require.NoError(t, err)
	assert.True(t, resp.Favorited)

	favorited, err := svc.IsFavorite(ctx, "user_a", "venue_1")
	require.NoError(t, err)
	assert.True(t, favorited)

	resp, err = svc.ToggleFavorite(ctx, "user_a", "venue_1")
	require.NoError(t, err)
	assert.False(t, resp.Favorited)
}

func TestSocialService_ToggleFavorite_MissingVenue(t *testing.T) {
	s, cleanup := setupStoreTest(t)
	defer cleanup()

	svc := NewSocialService(s, nil)

	_, err := svc.ToggleFavorite(context.Background(), "user_a", "venue_ghost")
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound), "got %v", err)
}

func TestSocialService_ListFavorites(t *testing.T) {
	s, cleanup := setupStoreTest(t)
	defer cleanup()

	svc := NewSocialService(s, nil)
	ctx := context.Background()
	seedVenue(t, s, "venue_1", "IMAX")
	seedVenue(t, s, "venue_2", "4DX")

	_, err := svc.ToggleFavorite(ctx, "user_a", "venue_1")
	require.NoError(t, err)
	_, err = svc.ToggleFavorite(ctx, "user_a", "venue_2")
	require.NoError(t, err)

	venues, err := svc.ListFavorites(ctx, "user_a")
	require.NoError(t, err)
	assert.Len(t, venues, 2)

	// Other users see their own lists only
	venues, err = svc.ListFavorites(ctx, "user_b")
	require.NoError(t, err)
	assert.Empty(t, venues)
}
