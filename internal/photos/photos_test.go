package photos

import (
	"context"
	"errors"
	"testing"

	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/Andrei-KV/sport-places-2025/internal/storage"
	"github.com/Andrei-KV/sport-places-2025/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlobs struct {
	deleted []string
	fail    map[string]bool
}

func (f *fakeBlobs) Delete(_ context.Context, ref string) error {
	if f.fail[ref] {
		return errors.New("disk error")
	}
	f.deleted = append(f.deleted, ref)
	return nil
}

func seed(t *testing.T, store *inmemory.Store, status domain.Status, refs ...string) (*domain.PendingSubmission, *domain.Place) {
	ctx := context.Background()
	place, err := store.CreatePlace(ctx, &domain.Place{Name: "Court A", Description: "d", OwnerID: "user-1"})
	require.NoError(t, err)
	sub, err := store.CreateSubmission(ctx, &domain.PendingSubmission{
		Name: "Court A", Description: "new", SubmitterID: "user-2", Action: domain.ActionEdit, OriginalPlaceID: &place.ID,
	})
	require.NoError(t, err)
	for _, ref := range refs {
		_, err := store.CreatePhoto(ctx, &domain.Photo{ImageRef: ref, SubmissionID: &sub.ID})
		require.NoError(t, err)
	}
	if status != domain.StatusPending {
		require.NoError(t, store.TransitionSubmission(ctx, sub.ID, status))
	}
	return sub, place
}

func TestReparent_MovesAllPhotos(t *testing.T) {
	store := inmemory.New()
	sub, place := seed(t, store, domain.StatusPending, "p1.jpg", "p2.jpg")
	ctx := context.Background()

	var moved int
	err := store.Transaction(ctx, func(tx storage.Repository) error {
		var err error
		moved, err = NewReparenter().Reparent(ctx, tx, sub.ID, place.ID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	photos, err := store.GetPhotosByPlaceID(ctx, place.ID)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	for _, p := range photos {
		// Ровно один владелец
		assert.Nil(t, p.SubmissionID)
		assert.NotNil(t, p.PlaceID)
	}
}

func TestReparent_NoPhotosIsNoop(t *testing.T) {
	store := inmemory.New()
	sub, place := seed(t, store, domain.StatusPending)

	moved, err := NewReparenter().Reparent(context.Background(), store, sub.ID, place.ID)
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestReparent_RequiresIDs(t *testing.T) {
	_, err := NewReparenter().Reparent(context.Background(), inmemory.New(), "", "place")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReparent_RollbackKeepsPhotosOnSubmission(t *testing.T) {
	store := inmemory.New()
	sub, place := seed(t, store, domain.StatusPending, "p1.jpg")
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx storage.Repository) error {
		if _, err := NewReparenter().Reparent(ctx, tx, sub.ID, place.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	photos, err := store.GetPhotosBySubmissionID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Len(t, photos, 1)
}

func TestPurgeRejected(t *testing.T) {
	store := inmemory.New()
	seed(t, store, domain.StatusRejected, "r1.jpg", "r2.jpg")
	pending, _ := seed(t, store, domain.StatusPending, "keep.jpg")
	blobs := &fakeBlobs{fail: map[string]bool{"r2.jpg": true}}

	purged, err := NewPurger(store, blobs).PurgeRejected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, purged)
	assert.Equal(t, []string{"r1.jpg"}, blobs.deleted)

	left, err := store.GetPhotosBySubmissionStatus(context.Background(), domain.StatusRejected)
	require.NoError(t, err)
	assert.Empty(t, left)

	kept, err := store.GetPhotosBySubmissionID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}
