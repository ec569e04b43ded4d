package store

import (
	"context"
	"testing"

	"github.com/marqueeapp/marquee-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVenue(id, name string) *domain.Venue {
	v := &domain.Venue{
		Name:    name,
		Brand:   "CGV",
		Region:  "Seoul",
		Address: "123 Cinema St",
		Tags:    []string{"IMAX", "Dolby"},
	}
	v.ID = id
	return v
}

func TestToggleFavorite(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	favorited, err := store.ToggleFavorite(ctx, "user_a", "venue_1")
	require.NoError(t, err)
	assert.True(t, favorited)

	is, err := store.IsFavorite(ctx, "user_a", "venue_1")
	require.NoError(t, err)
	assert.True(t, is)

	favorited, err = store.ToggleFavorite(ctx, "user_a", "venue_1")
	require.NoError(t, err)
	assert.False(t, favorited)

	is, err = store.IsFavorite(ctx, "user_a", "venue_1")
	require.NoError(t, err)
	assert.False(t, is)
}

func TestListFavoriteVenues_SkipsMissing(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, store.UpsertVenue(ctx, testVenue("venue_1", "CGV Yongsan")))

	// venue_2 was never seeded but the favorite marker exists
	_, err := store.ToggleFavorite(ctx, "user_a", "venue_1")
	require.NoError(t, err)
	_, err = store.ToggleFavorite(ctx, "user_a", "venue_2")
	require.NoError(t, err)

	venues, err := store.ListFavoriteVenues(ctx, "user_a")
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, "venue_1", venues[0].ID)
}

func TestListFavoriteVenueIDs_PerUser(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	_, err := store.ToggleFavorite(ctx, "user_a", "venue_1")
	require.NoError(t, err)
	_, err = store.ToggleFavorite(ctx, "user_b", "venue_2")
	require.NoError(t, err)

	ids, err := store.ListFavoriteVenueIDs(ctx, "user_a")
	require.NoError(t, err)
	assert.Equal(t, []string{"venue_1"}, ids)
}

func TestUpsertVenue_And_Filters(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, store.UpsertVenue(ctx, testVenue("venue_1", "CGV Yongsan")))
	other := testVenue("venue_2", "Megabox COEX")
	other.Brand = "Megabox"
	other.Tags = []string{"Dolby"}
	require.NoError(t, store.UpsertVenue(ctx, other))

	t.Run("get", func(t *testing.T) {
		venue, err := store.GetVenue(ctx, "venue_1")
		require.NoError(t, err)
		assert.Equal(t, "CGV Yongsan", venue.Name)
		assert.False(t, venue.CreatedAt.IsZero())
	})

	t.Run("missing", func(t *testing.T) {
		_, err := store.GetVenue(ctx, "venue_ghost")
		assert.ErrorIs(t, err, ErrVenueNotFound)
	})

	t.Run("filter by brand", func(t *testing.T) {
		venues, err := store.ListVenues(ctx, VenueFilter{Brand: "Megabox"})
		require.NoError(t, err)
		require.Len(t, venues, 1)
		assert.Equal(t, "venue_2", venues[0].ID)
	})

	t.Run("filter by tag", func(t *testing.T) {
		venues, err := store.ListVenues(ctx, VenueFilter{Tag: "IMAX"})
		require.NoError(t, err)
		require.Len(t, venues, 1)
		assert.Equal(t, "venue_1", venues[0].ID)
	})

	t.Run("reseed preserves created_at", func(t *testing.T) {
		before, err := store.GetVenue(ctx, "venue_1")
		require.NoError(t, err)

		renamed := testVenue("venue_1", "CGV Yongsan IMAX")
		require.NoError(t, store.UpsertVenue(ctx, renamed))

		after, err := store.GetVenue(ctx, "venue_1")
		require.NoError(t, err)
		assert.Equal(t, "CGV Yongsan IMAX", after.Name)
		assert.Equal(t, before.CreatedAt.UnixNano(), after.CreatedAt.UnixNano())
	})
}
