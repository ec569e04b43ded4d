package store

import (
	"context"
	"testing"

	"github.com/marqueeapp/marquee-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReview(authorID string, score float64) *domain.Review {
	return &domain.Review{
		VenueID:    "venue_test1",
		Tag:        "IMAX",
		AuthorID:   authorID,
		AuthorName: "reviewer " + authorID,
		Components: domain.RatingComponents{Screen: score, Picture: score, Sound: score, Seat: score},
		Comment:    "solid screen",
	}
}

func TestUpsertReview_Create(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	saved, summary, err := store.UpsertReview(ctx, testReview("user_a", 4))
	require.NoError(t, err)

	assert.InDelta(t, 4.0, saved.Overall, 1e-9)
	assert.Zero(t, saved.LikeCount)
	assert.False(t, saved.CreatedAt.IsZero())

	assert.Equal(t, 1, summary.Count)
	assert.InDelta(t, 4.0, summary.Sum, 1e-9)
	assert.InDelta(t, 4.0, summary.Average, 1e-9)
}

func TestUpsertReview_EditMovesSumByDelta(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	// Two authors at 4.0 and 3.0
	_, _, err := store.UpsertReview(ctx, testReview("user_a", 4))
	require.NoError(t, err)
	_, _, err = store.UpsertReview(ctx, testReview("user_b", 3))
	require.NoError(t, err)

	// user_a edits 4.0 -> 5.0; count stays 2, sum moves by +1
	saved, summary, err := store.UpsertReview(ctx, testReview("user_a", 5))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Count)
	assert.InDelta(t, 8.0, summary.Sum, 1e-9)
	assert.InDelta(t, 4.0, summary.Average, 1e-9)
	assert.InDelta(t, 5.0, saved.Overall, 1e-9)
}

func TestUpsertReview_EditPreservesLikesAndCreatedAt(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	first, _, err := store.UpsertReview(ctx, testReview("user_a", 4))
	require.NoError(t, err)

	_, _, err = store.ToggleLike(ctx, "venue_test1", "IMAX", "user_a", "user_liker")
	require.NoError(t, err)

	edited, _, err := store.UpsertReview(ctx, testReview("user_a", 2))
	require.NoError(t, err)

	assert.Equal(t, 1, edited.LikeCount)
	assert.Equal(t, first.CreatedAt.UnixNano(), edited.CreatedAt.UnixNano())
	assert.True(t, edited.UpdatedAt.After(first.UpdatedAt) || edited.UpdatedAt.Equal(first.UpdatedAt))
}

func TestUpsertReview_LegacyDocumentWithoutOverall(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	// Simulate a document written before overall was stored
	legacy := &storedReview{
		VenueID:    "venue_test1",
		Tag:        "IMAX",
		AuthorID:   "user_old",
		Components: domain.RatingComponents{Screen: 4, Picture: 4, Sound: 4, Seat: 4},
	}
	require.NoError(t, store.set([]byte(reviewKey("venue_test1", "IMAX", "user_old")), legacy))
	require.NoError(t, store.set([]byte(summaryKey("venue_test1", "IMAX")), &domain.RatingSummary{
		VenueID: "venue_test1", Tag: "IMAX", Count: 1, Sum: 4, Average: 4,
	}))

	// Reading falls back to the component mean
	got, err := store.GetReview(ctx, "venue_test1", "IMAX", "user_old")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got.Overall, 1e-9)

	// Editing uses the recomputed old overall for the summary delta
	_, summary, err := store.UpsertReview(ctx, testReview("user_old", 5))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count)
	assert.InDelta(t, 5.0, summary.Sum, 1e-9)
}

func TestDeleteReview(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	_, _, err := store.UpsertReview(ctx, testReview("user_a", 4))
	require.NoError(t, err)
	_, _, err = store.UpsertReview(ctx, testReview("user_b", 3))
	require.NoError(t, err)

	deleted, summary, err := store.DeleteReview(ctx, "venue_test1", "IMAX", "user_a")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 1, summary.Count)
	assert.InDelta(t, 3.0, summary.Sum, 1e-9)
	assert.InDelta(t, 3.0, summary.Average, 1e-9)

	_, err = store.GetReview(ctx, "venue_test1", "IMAX", "user_a")
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestDeleteReview_LastReviewZeroesSummary(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	_, _, err := store.UpsertReview(ctx, testReview("user_a", 3.5))
	require.NoError(t, err)

	deleted, summary, err := store.DeleteReview(ctx, "venue_test1", "IMAX", "user_a")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Zero(t, summary.Count)
	assert.Zero(t, summary.Sum)
	assert.Zero(t, summary.Average)
}

func TestDeleteReview_MissingIsNoop(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	deleted, summary, err := store.DeleteReview(ctx, "venue_test1", "IMAX", "user_ghost")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Nil(t, summary)

	// Summary untouched
	got, err := store.GetSummary(ctx, "venue_test1", "IMAX")
	require.NoError(t, err)
	assert.Zero(t, got.Count)
}

func TestDeleteReview_RemovesLikeMarkers(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	_, _, err := store.UpsertReview(ctx, testReview("user_a", 4))
	require.NoError(t, err)

	_, _, err = store.ToggleLike(ctx, "venue_test1", "IMAX", "user_a", "user_l1")
	require.NoError(t, err)
	_, _, err = store.ToggleLike(ctx, "venue_test1", "IMAX", "user_a", "user_l2")
	require.NoError(t, err)

	deleted, _, err := store.DeleteReview(ctx, "venue_test1", "IMAX", "user_a")
	require.NoError(t, err)
	assert.True(t, deleted)

	count, err := store.CountLikes(ctx, "venue_test1", "IMAX", "user_a")
	require.NoError(t, err)
	assert.Zero(t, count)

	liked, err := store.HasLiked(ctx, "venue_test1", "IMAX", "user_a", "user_l1")
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestGetSummary_EmptyPair(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	summary, err := store.GetSummary(context.Background(), "venue_never", "4DX")
	require.NoError(t, err)
	assert.Equal(t, "venue_never", summary.VenueID)
	assert.Zero(t, summary.Count)
	assert.Zero(t, summary.Average)
}

func TestListReviews_SortAndPaginate(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	for _, author := range []string{"user_a", "user_b", "user_c", "user_d", "user_e"} {
		_, _, err := store.UpsertReview(ctx, testReview(author, 4))
		require.NoError(t, err)
	}

	// user_c collects two likes, user_e one
	for _, liker := range []string{"user_l1", "user_l2"} {
		_, _, err := store.ToggleLike(ctx, "venue_test1", "IMAX", "user_c", liker)
		require.NoError(t, err)
	}
	_, _, err := store.ToggleLike(ctx, "venue_test1", "IMAX", "user_e", "user_l1")
	require.NoError(t, err)

	t.Run("by likes", func(t *testing.T) {
		page, err := store.ListReviews(ctx, "venue_test1", "IMAX", domain.ReviewSortLikes, PaginationParams{Limit: 2})
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "user_c", page.Items[0].AuthorID)
		assert.Equal(t, "user_e", page.Items[1].AuthorID)
		assert.True(t, page.HasMore)
		assert.Equal(t, 5, page.Total)

		// Second page continues past the liked reviews
		next, err := store.ListReviews(ctx, "venue_test1", "IMAX", domain.ReviewSortLikes, PaginationParams{Limit: 2, Cursor: page.NextCursor})
		require.NoError(t, err)
		require.Len(t, next.Items, 2)
		assert.True(t, next.HasMore)
	})

	t.Run("by latest", func(t *testing.T) {
		page, err := store.ListReviews(ctx, "venue_test1", "IMAX", domain.ReviewSortLatest, PaginationParams{Limit: 10})
		require.NoError(t, err)
		require.Len(t, page.Items, 5)
		for i := 1; i < len(page.Items); i++ {
			assert.False(t, page.Items[i].UpdatedAt.After(page.Items[i-1].UpdatedAt))
		}
		assert.False(t, page.HasMore)
	})

	t.Run("bad cursor", func(t *testing.T) {
		_, err := store.ListReviews(ctx, "venue_test1", "IMAX", domain.ReviewSortLatest, PaginationParams{Limit: 2, Cursor: "not-base64!"})
		assert.Error(t, err)
	})
}

// Exercises the central invariant across an interleaved sequence:
// count matches the number of reviews and sum matches their overalls
// after every operation.
func TestSummaryInvariantAcrossSequence(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	check := func(wantCount int, wantSum float64) {
		t.Helper()
		summary, err := store.GetSummary(ctx, "venue_test1", "IMAX")
		require.NoError(t, err)
		assert.Equal(t, wantCount, summary.Count)
		assert.InDelta(t, wantSum, summary.Sum, 1e-9)

		page, err := store.ListReviews(ctx, "venue_test1", "IMAX", domain.ReviewSortLatest, PaginationParams{Limit: 100})
		require.NoError(t, err)
		assert.Len(t, page.Items, wantCount)
		var sum float64
		for _, r := range page.Items {
			sum += r.Overall
		}
		assert.InDelta(t, wantSum, sum, 1e-9)
	}

	_, _, err := store.UpsertReview(ctx, testReview("user_a", 4))
	require.NoError(t, err)
	check(1, 4)

	_, _, err = store.UpsertReview(ctx, testReview("user_b", 3.5))
	require.NoError(t, err)
	check(2, 7.5)

	_, _, err = store.UpsertReview(ctx, testReview("user_a", 2))
	require.NoError(t, err)
	check(2, 5.5)

	_, _, err = store.DeleteReview(ctx, "venue_test1", "IMAX", "user_b")
	require.NoError(t, err)
	check(1, 2)

	_, _, err = store.DeleteReview(ctx, "venue_test1", "IMAX", "user_a")
	require.NoError(t, err)
	check(0, 0)
}
