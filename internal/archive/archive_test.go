package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/country-form/internal/errs"
	"github.com/kuitang/country-form/internal/obs"
	"github.com/kuitang/country-form/internal/validation"
)

func TestArchive_SaveAndGet(t *testing.T) {
	store := TestStore(t, "archive-test")
	a := New(store)
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	ctx := obs.WithCorrelation(context.Background(), obs.Correlation{RequestID: "req-123"})
	in := validation.Input{Acronym: "FR", Country: "FR", EUResident: true, ConsentGiven: true}
	res := validation.Result{Success: true, Message: validation.MessageOK, Category: validation.CategoryOK}

	saved, err := a.Save(ctx, in, res)
	require.NoError(t, err)
	assert.Equal(t, "req-123", saved.RequestID)

	got, err := a.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(saved, got); diff != "" {
		t.Fatalf("record mismatch (-saved +got):\n%s", diff)
	}
	assert.True(t, got.ReceivedAt.Equal(fixed))
}

func TestArchive_GetMissingAndInvalid(t *testing.T) {
	a := New(TestStore(t, "archive-missing"))

	_, err := a.Get(context.Background(), "018f3a3c-1111-7000-8000-000000000000")
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))

	_, err = a.Get(context.Background(), "../../etc/passwd")
	assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}

func TestArchive_RecentIDsNewestFirst(t *testing.T) {
	a := New(TestStore(t, "archive-recent"))
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		rec, err := a.Save(ctx, validation.Input{}, validation.Result{Category: validation.CategoryMissingConsent})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	recent, err := a.RecentIDs(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[3], ids[2], ids[1]}, recent)
}

type failingStore struct{}

func (failingStore) PutObject(context.Context, string, []byte, string) error {
	return errors.New("connection reset by peer")
}

func (failingStore) GetObject(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection reset by peer")
}

func (failingStore) ListKeys(context.Context, string) ([]string, error) {
	return nil, errors.New("connection reset by peer")
}

func TestArchive_StoreFailuresAreUnavailable(t *testing.T) {
	a := New(failingStore{})
	ctx := context.Background()

	_, err := a.Save(ctx, validation.Input{}, validation.Result{})
	assert.Equal(t, errs.Unavailable, errs.CodeOf(err))
	assert.Equal(t, "archive unavailable", errs.MessageOf(err))

	_, err = a.Get(ctx, "018f3a3c-1111-7000-8000-000000000000")
	assert.Equal(t, errs.Unavailable, errs.CodeOf(err))

	_, err = a.RecentIDs(ctx, 10)
	assert.Equal(t, errs.Unavailable, errs.CodeOf(err))
}
