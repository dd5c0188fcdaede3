package community

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/Andrei-KV/sport-places-2025/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *inmemory.Store, *domain.Place) {
	store := inmemory.New()
	place, err := store.CreatePlace(context.Background(), &domain.Place{Name: "Court A", Description: "d", OwnerID: "user-1"})
	require.NoError(t, err)
	return NewService(store), store, place
}

func TestRate_SecondRatingUpdatesFirst(t *testing.T) {
	svc, store, place := newTestService(t)
	ctx := context.Background()

	_, err := svc.Rate(ctx, place.ID, "user-2", 2)
	require.NoError(t, err)
	_, err = svc.Rate(ctx, place.ID, "user-2", 4)
	require.NoError(t, err)

	ratings, err := store.GetRatingsByPlaceID(ctx, place.ID)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, 4, ratings[0].Value)
}

func TestRate_ConcurrentUpsertsKeepOneRow(t *testing.T) {
	svc, store, place := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for v := 1; v <= 5; v++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			_, err := svc.Rate(ctx, place.ID, "user-2", v)
			assert.NoError(t, err)
		}(v)
	}
	wg.Wait()

	ratings, err := store.GetRatingsByPlaceID(ctx, place.ID)
	require.NoError(t, err)
	assert.Len(t, ratings, 1)
}

func TestRate_Validation(t *testing.T) {
	svc, _, place := newTestService(t)
	ctx := context.Background()

	_, err := svc.Rate(ctx, place.ID, "user-2", 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Rate(ctx, place.ID, "user-2", 6)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Rate(ctx, place.ID, "", 3)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Rate(ctx, "missing", "user-2", 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddComment(t *testing.T) {
	svc, _, place := newTestService(t)
	ctx := context.Background()

	c, err := svc.AddComment(ctx, place.ID, "user-2", "  Great court!  ")
	require.NoError(t, err)
	assert.Equal(t, "Great court!", c.Text)

	_, err = svc.AddComment(ctx, place.ID, "user-2", "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.AddComment(ctx, place.ID, "user-2", strings.Repeat("a", 2001))
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.AddComment(ctx, "missing", "user-2", "hello")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetPlaceDetail(t *testing.T) {
	svc, store, place := newTestService(t)
	ctx := context.Background()

	detail, err := svc.GetPlaceDetail(ctx, place.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.AverageRating)
	assert.Empty(t, detail.Comments)

	_, err = svc.AddComment(ctx, place.ID, "user-2", "first")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, place.ID, "user-3", "second")
	require.NoError(t, err)
	_, err = svc.Rate(ctx, place.ID, "user-2", 3)
	require.NoError(t, err)
	_, err = svc.Rate(ctx, place.ID, "user-3", 4)
	require.NoError(t, err)
	_, err = store.CreatePhoto(ctx, &domain.Photo{ImageRef: "p.jpg", PlaceID: &place.ID})
	require.NoError(t, err)

	detail, err = svc.GetPlaceDetail(ctx, place.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.AverageRating)
	assert.InDelta(t, 3.5, *detail.AverageRating, 1e-9)
	assert.Equal(t, 2, detail.RatingsCount)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, "second", detail.Comments[0].Text)
	assert.Len(t, detail.Photos, 1)

	_, err = svc.GetPlaceDetail(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
