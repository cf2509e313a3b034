package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"pricewatch/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "watches.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createWatch(t *testing.T, db *DB, price string) int64 {
	t.Helper()
	id, err := db.Create(context.Background(), &models.Watch{
		OwnerName:      "Ada",
		OwnerContact:   "+15550001111",
		ProductURL:     "https://shop.example/item",
		ProductName:    "Widget",
		LastKnownPrice: dec(price),
	})
	require.NoError(t, err)
	return id
}

func TestCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id := createWatch(t, db, "100")

	w, err := db.Get(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "Ada", w.OwnerName)
	assert.Equal(t, "+15550001111", w.OwnerContact)
	assert.Equal(t, "Widget", w.ProductName)
	assert.True(t, w.LastKnownPrice.Equal(dec("100")))
	assert.Equal(t, models.StatePendingCriteria, w.State)
	assert.False(t, w.HasTargetPrice)
	assert.False(t, w.NotifyOnAnySale)
}

func TestGet_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetCriteria_ActivatesWatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id := createWatch(t, db, "100")

	target := dec("80")
	require.NoError(t, db.SetCriteria(ctx, id, &target, false))

	w, err := db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StateActive, w.State)
	assert.True(t, w.HasTargetPrice)
	assert.True(t, w.TargetPrice.Equal(dec("80")))

	active, err := db.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, id, active[0].ID)
}

func TestSetCriteria_TargetAboveCurrentRejected(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id := createWatch(t, db, "100")

	target := dec("150")
	err := db.SetCriteria(ctx, id, &target, false)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, ReasonTargetAboveCurrent, ve.Reason)

	// Nothing persisted: the watch stays pending and off the active list
	w, err := db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingCriteria, w.State)
	assert.False(t, w.HasTargetPrice)

	active, err := db.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSetCriteria_TargetEqualToCurrentAllowed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id := createWatch(t, db, "100")
	target := dec("100")
	assert.NoError(t, db.SetCriteria(ctx, id, &target, false))
}

func TestSetCriteria_RequiresSomeCriterion(t *testing.T) {
	db := newTestDB(t)

	id := createWatch(t, db, "100")

	err := db.SetCriteria(context.Background(), id, nil, false)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, ReasonNoCriteria, ve.Reason)
}

func TestSetCriteria_AnySaleOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id := createWatch(t, db, "100")
	require.NoError(t, db.SetCriteria(ctx, id, nil, true))

	w, err := db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StateActive, w.State)
	assert.True(t, w.NotifyOnAnySale)
	assert.False(t, w.HasTargetPrice)
}

func TestSetCriteria_UnknownWatch(t *testing.T) {
	db := newTestDB(t)

	target := dec("10")
	err := db.SetCriteria(context.Background(), 42, &target, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePrice(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id := createWatch(t, db, "100")
	require.NoError(t, db.UpdatePrice(ctx, id, dec("92.50")))

	w, err := db.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, w.LastKnownPrice.Equal(dec("92.5")))
	assert.False(t, w.LastChecked.IsZero())
}

func TestMarkFulfilled_ArchivesWatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id := createWatch(t, db, "100")
	target := dec("80")
	require.NoError(t, db.SetCriteria(ctx, id, &target, false))

	require.NoError(t, db.MarkFulfilled(ctx, id))

	w, err := db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StateFulfilled, w.State)

	active, err := db.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Repeated call is a no-op
	assert.NoError(t, db.MarkFulfilled(ctx, id))
}

func TestSetCriteria_FulfilledRejected(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id := createWatch(t, db, "100")
	target := dec("80")
	require.NoError(t, db.SetCriteria(ctx, id, &target, false))
	require.NoError(t, db.MarkFulfilled(ctx, id))

	err := db.SetCriteria(ctx, id, &target, false)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, ReasonFulfilled, ve.Reason)
}

func TestListActive_ExcludesPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createWatch(t, db, "100")
	active, err := db.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}
