package mirror

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func sampleEntry() *Entry {
	open := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	return &Entry{
		LocalID: uuid.New(),
		Status:  StatusPending,
		Capture: Capture{
			Barcode:   ptr("3337875597197"),
			Name:      "Cicaplast Baume B5",
			Brand:     "La Roche-Posay",
			SizeValue: ptr(40.0),
			SizeUnit:  ptr("ml"),
			PAOText:   ptr("12M"),
			OpenDate:  &open,
		},
	}
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	require.NoError(t, s.Migrate(context.Background(), discardLogger()))

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'goose_db_version'`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_InsertGet_RoundTrip(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	ctx := context.Background()
	e := sampleEntry()

	require.NoError(t, s.Insert(ctx, e))
	got, err := s.Get(ctx, e.LocalID)

	require.NoError(t, err)
	assert.Equal(t, e.LocalID, got.LocalID)
	assert.Nil(t, got.RemoteID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, e.Capture, got.Capture)
	assert.Nil(t, got.Patch)
	assert.Nil(t, got.Resolved)
	assert.WithinDuration(t, e.CreatedAt, got.CreatedAt, time.Microsecond)
}

func TestStore_Get_NotFound(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	_, err := s.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Save_PersistsSyncState(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	ctx := context.Background()
	e := sampleEntry()
	require.NoError(t, s.Insert(ctx, e))

	remote := uuid.New()
	expiry := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	e.RemoteID = &remote
	e.Status = StatusSynced
	e.Patch = &Patch{Favorite: ptr(true)}
	e.Resolved = &Resolved{CatalogID: uuid.New(), Name: "Cicaplast Baume B5", Brand: "La Roche-Posay", Quantity: 2, ExpiryDate: &expiry}
	e.Attempts = 1
	e.LastError = ptr("timeout")
	require.NoError(t, s.Save(ctx, e))

	got, err := s.Get(ctx, e.LocalID)
	require.NoError(t, err)
	require.NotNil(t, got.RemoteID)
	assert.Equal(t, remote, *got.RemoteID)
	assert.Equal(t, StatusSynced, got.Status)
	assert.Equal(t, e.Patch, got.Patch)
	assert.Equal(t, e.Resolved, got.Resolved)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "timeout", *got.LastError)
}

func TestStore_Save_EmptyPatchStoredAsNull(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	ctx := context.Background()
	e := sampleEntry()
	e.Patch = &Patch{}
	require.NoError(t, s.Insert(ctx, e))

	got, err := s.Get(ctx, e.LocalID)
	require.NoError(t, err)
	assert.Nil(t, got.Patch)
}

func TestStore_Save_Missing(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	err := s.Save(context.Background(), sampleEntry())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	ctx := context.Background()
	e := sampleEntry()
	require.NoError(t, s.Insert(ctx, e))

	require.NoError(t, s.Delete(ctx, e.LocalID))
	_, err := s.Get(ctx, e.LocalID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, e.LocalID), domain.ErrNotFound)
}

func TestStore_List_ByStatusInCreationOrder(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	ctx := context.Background()
	base := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	statuses := []Status{StatusSynced, StatusPending, StatusSyncFailed, StatusPending}
	ids := make([]uuid.UUID, len(statuses))
	for i, st := range statuses {
		e := sampleEntry()
		e.Status = st
		// Whole seconds and sub-second values must still sort correctly.
		e.CreatedAt = base.Add(time.Duration(i) * 500 * time.Millisecond)
		ids[i] = e.LocalID
		require.NoError(t, s.Insert(ctx, e))
	}

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := range all {
		assert.Equal(t, ids[i], all[i].LocalID)
	}

	dirty, err := s.List(ctx, StatusPending, StatusSyncFailed)
	require.NoError(t, err)
	require.Len(t, dirty, 3)
	assert.Equal(t, ids[1], dirty[0].LocalID)
	assert.Equal(t, ids[2], dirty[1].LocalID)
	assert.Equal(t, ids[3], dirty[2].LocalID)
}

func TestStore_ResetInFlight(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	ctx := context.Background()

	creating := sampleEntry()
	creating.Status = StatusSyncing
	deleting := sampleEntry()
	deleting.Status = StatusSyncing
	deleting.Deleted = true
	synced := sampleEntry()
	synced.Status = StatusSynced
	for _, e := range []*Entry{creating, deleting, synced} {
		require.NoError(t, s.Insert(ctx, e))
	}

	n, err := s.ResetInFlight(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := s.Get(ctx, creating.LocalID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	got, err = s.Get(ctx, deleting.LocalID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingDelete, got.Status)

	got, err = s.Get(ctx, synced.LocalID)
	require.NoError(t, err)
	assert.Equal(t, StatusSynced, got.Status)
}

// ---------------------------------------------------------------------------
// Failure paths (sqlmock)
// ---------------------------------------------------------------------------

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestStore_Get_DBError(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	id := uuid.New()
	mock.ExpectQuery(`(?s)^SELECT .* FROM mirror_entries WHERE local_id = \?$`).
		WithArgs(id.String()).
		WillReturnError(errors.New("disk I/O error"))

	_, err := s.Get(context.Background(), id)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_CorruptStatus(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	id := uuid.New()
	rows := sqlmock.NewRows([]string{"local_id", "remote_id", "status", "deleted", "capture", "patch",
		"resolved", "attempts", "last_error", "created_at", "updated_at"}).
		AddRow(id.String(), nil, "exploded", false, `{"name":"x"}`, nil, nil, 0, nil,
			"2024-03-01T12:00:00.000000000Z", "2024-03-01T12:00:00.000000000Z")
	mock.ExpectQuery(`SELECT .* FROM mirror_entries`).WillReturnRows(rows)

	_, err := s.Get(context.Background(), id)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown status "exploded"`)
}

func TestStore_Insert_DBError(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO mirror_entries`).
		WillReturnError(errors.New("database is locked"))

	err := s.Insert(context.Background(), sampleEntry())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert mirror entry")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Save_RowsAffectedError(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE mirror_entries SET`).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("no driver support")))

	err := s.Save(context.Background(), sampleEntry())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rows affected")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatch_Merge(t *testing.T) {
	t.Parallel()

	older := &Patch{Favorite: ptr(true), AmountRemaining: ptr(80)}
	newer := &Patch{AmountRemaining: ptr(40), Finished: ptr(false)}

	got := older.Merge(newer)

	require.NotNil(t, got)
	assert.True(t, *got.Favorite)
	assert.Equal(t, 40, *got.AmountRemaining)
	assert.False(t, *got.Finished)
	assert.Equal(t, 80, *older.AmountRemaining, "inputs untouched")

	var none *Patch
	assert.Nil(t, none.Merge(nil))
	assert.Nil(t, none.Merge(&Patch{}))
	assert.Equal(t, newer, none.Merge(newer))
}

func TestPatch_Merge_TagsAndBags(t *testing.T) {
	t.Parallel()

	a, b := uuid.New(), uuid.New()
	older := &Patch{TagIDs: &[]uuid.UUID{a}, BagIDs: &[]uuid.UUID{a}}
	newer := &Patch{TagIDs: &[]uuid.UUID{b}}

	got := older.Merge(newer)

	require.NotNil(t, got)
	assert.Equal(t, []uuid.UUID{b}, *got.TagIDs, "newer list replaces")
	assert.Equal(t, []uuid.UUID{a}, *got.BagIDs, "unset list is kept")

	cleared := older.Merge(&Patch{BagIDs: &[]uuid.UUID{}})
	require.NotNil(t, cleared.BagIDs)
	assert.Empty(t, *cleared.BagIDs)

	assert.False(t, (&Patch{TagIDs: &[]uuid.UUID{}}).IsEmpty(), "clearing tags is a change")
}

func TestStore_Save_ClearedListSurvives(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	ctx := context.Background()
	tag := uuid.New()
	e := sampleEntry()
	e.Capture.TagIDs = []uuid.UUID{tag}
	require.NoError(t, s.Insert(ctx, e))

	e.Patch = &Patch{BagIDs: &[]uuid.UUID{}}
	require.NoError(t, s.Save(ctx, e))

	got, err := s.Get(ctx, e.LocalID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{tag}, got.Capture.TagIDs)
	require.NotNil(t, got.Patch)
	require.NotNil(t, got.Patch.BagIDs, "an empty list is not the same as no change")
	assert.Empty(t, *got.Patch.BagIDs)
	assert.Equal(t, []uuid.UUID{tag}, got.Tags())
	assert.Empty(t, got.Bags())
}

func TestEntry_DisplayPrefersServer(t *testing.T) {
	t.Parallel()

	e := sampleEntry()
	assert.Equal(t, "Cicaplast Baume B5", e.Name())
	assert.Equal(t, 0, e.Quantity())

	serverExpiry := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	e.Resolved = &Resolved{Name: "Cicaplast Baume B5 40ml", Brand: "LRP", Quantity: 3, ExpiryDate: &serverExpiry}
	assert.Equal(t, "Cicaplast Baume B5 40ml", e.Name())
	assert.Equal(t, "LRP", e.Brand())
	assert.Equal(t, 3, e.Quantity())
	assert.Equal(t, serverExpiry, *e.Expiry())

	local := time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)
	e.Patch = &Patch{ExpiryDate: &local, Favorite: ptr(true)}
	assert.Equal(t, local, *e.Expiry())
	assert.True(t, e.Favorite())
}
