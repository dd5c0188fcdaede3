package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingSubmission_CheckTarget(t *testing.T) {
	placeID := "place-1"
	empty := ""

	assert.NoError(t, (&PendingSubmission{Action: ActionAdd}).CheckTarget())
	assert.NoError(t, (&PendingSubmission{Action: ActionEdit, OriginalPlaceID: &placeID}).CheckTarget())
	assert.NoError(t, (&PendingSubmission{Action: ActionDelete, OriginalPlaceID: &placeID}).CheckTarget())

	err := (&PendingSubmission{Action: ActionAdd, OriginalPlaceID: &placeID}).CheckTarget()
	assert.ErrorIs(t, err, ErrValidation)

	err = (&PendingSubmission{Action: ActionEdit}).CheckTarget()
	assert.ErrorIs(t, err, ErrValidation)

	// Пустая строка считается отсутствием ссылки
	err = (&PendingSubmission{Action: ActionEdit, OriginalPlaceID: &empty}).CheckTarget()
	assert.ErrorIs(t, err, ErrValidation)

	err = (&PendingSubmission{Action: "merge"}).CheckTarget()
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, Status("archived").Valid())
}

func TestStorageError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&StorageError{Op: "create place", Err: cause})

	require.True(t, IsStorageError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "storage: create place: connection reset", err.Error())
	assert.False(t, IsStorageError(ErrNotFound))
}
