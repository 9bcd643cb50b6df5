package owned

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

func newMockRepo(t *testing.T) (*Repo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock), mock
}

func ptrFloat(f float64) *float64 { return &f }

func instanceRows(insts ...domain.OwnedInstance) *pgxmock.Rows {
	rows := pgxmock.NewRows(columns)
	for _, i := range insts {
		rows.AddRow(
			i.ID, i.UserID, i.CatalogID, i.SizeValue, i.SizeUnit, i.BatchCode,
			i.PurchaseDate, i.OpenDate, i.ExpiryDate, i.ExpiryOverridden,
			i.Favorite, i.Finished, i.FinishedAt, i.AmountRemaining, i.UsageCount,
			i.TagIDs, i.BagIDs, i.Quantity, i.CreatedAt, i.UpdatedAt,
		)
	}
	return rows
}

func sampleInstance() domain.OwnedInstance {
	now := time.Date(2024, time.May, 2, 9, 30, 0, 0, time.UTC)
	return domain.OwnedInstance{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		CatalogID:       uuid.New(),
		SizeValue:       ptrFloat(50),
		AmountRemaining: 100,
		TagIDs:          []uuid.UUID{},
		BagIDs:          []uuid.UUID{},
		Quantity:        1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestRepo_GetByID_ScopedToUser(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	inst := sampleInstance()

	mock.ExpectQuery(`SELECT .* FROM owned_products WHERE id = \$1 AND user_id = \$2`).
		WithArgs(inst.ID, inst.UserID).
		WillReturnRows(instanceRows(inst))

	got, err := repo.GetByID(context.Background(), inst.UserID, inst.ID)

	require.NoError(t, err)
	assert.Equal(t, inst.ID, got.ID)
	assert.Equal(t, 50.0, *got.SizeValue)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_GetByIDForUpdate_LocksRow(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	inst := sampleInstance()

	mock.ExpectQuery(`SELECT .* FROM owned_products WHERE id = \$1 AND user_id = \$2 FOR UPDATE`).
		WithArgs(inst.ID, inst.UserID).
		WillReturnRows(instanceRows(inst))

	got, err := repo.GetByIDForUpdate(context.Background(), inst.UserID, inst.ID)

	require.NoError(t, err)
	assert.Equal(t, inst.ID, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_GetByID_NotFound(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .* FROM owned_products`).
		WillReturnRows(pgxmock.NewRows(columns))

	_, err := repo.GetByID(context.Background(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepo_Delete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "deleted", affected: 1},
		{name: "missing", affected: 0, wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo, mock := newMockRepo(t)
			userID, id := uuid.New(), uuid.New()

			mock.ExpectExec(`DELETE FROM owned_products WHERE id = \$1 AND user_id = \$2`).
				WithArgs(id, userID).
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))

			err := repo.Delete(context.Background(), userID, id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepo_FindSimilar_WithSizeWindow(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	userID := uuid.New()
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM owned_products o JOIN catalog_products c ON c.id = o.catalog_id `+
		`WHERE c.brand_normalized = \$1 AND c.name_normalized = \$2 AND o.user_id = \$3 `+
		`AND \(o.size_value IS NULL OR \(o.size_value >= \$4 AND o.size_value <= \$5\)\) `+
		`ORDER BY o.created_at, o.id`).
		WithArgs("cerave", "moisturizing cream", userID, 40.0, 60.0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name_normalized", "brand_normalized", "size_value", "quantity"}).
			AddRow(a, "moisturizing cream", "cerave", ptrFloat(50), 2).
			AddRow(b, "moisturizing cream", "cerave", (*float64)(nil), 2))

	got, err := repo.FindSimilar(context.Background(), domain.SimilarityQuery{
		UserID:  userID,
		Name:    "moisturizing cream",
		Brand:   "cerave",
		SizeMin: ptrFloat(40),
		SizeMax: ptrFloat(60),
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].ID)
	assert.Nil(t, got[1].Size)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_FindSimilar_NoSizeBounds(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	userID := uuid.New()

	mock.ExpectQuery(`WHERE c.brand_normalized = \$1 AND c.name_normalized = \$2 AND o.user_id = \$3 ORDER BY`).
		WithArgs("the ordinary", "niacinamide 10%", userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name_normalized", "brand_normalized", "size_value", "quantity"}))

	got, err := repo.FindSimilar(context.Background(), domain.SimilarityQuery{
		UserID: userID,
		Name:   "niacinamide 10%",
		Brand:  "the ordinary",
	})

	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_UpdateMany(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	qty := 2

	mock.ExpectExec(`UPDATE owned_products SET quantity = \$1, updated_at = \$2 WHERE id IN \(\$3,\$4\)`).
		WithArgs(qty, pgxmock.AnyArg(), ids[0], ids[1]).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := repo.UpdateMany(context.Background(), ids, domain.OwnedBulkUpdate{Quantity: &qty})

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_UpdateMany_NothingToDo(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	qty := 3

	n, err := repo.UpdateMany(context.Background(), nil, domain.OwnedBulkUpdate{Quantity: &qty})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.UpdateMany(context.Background(), []uuid.UUID{uuid.New()}, domain.OwnedBulkUpdate{})
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_LockGroup(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	key := domain.NewSimilarityKey(uuid.New(), " Rose  Toner", "Pixi", nil)

	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtextextended\(\$1, 0\)\)`).
		WithArgs(key.GroupKey()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, repo.LockGroup(context.Background(), key))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_LockGroup_StoreDown(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)

	mock.ExpectExec(`pg_advisory_xact_lock`).
		WillReturnError(errors.New("closed pool"))

	err := repo.LockGroup(context.Background(), domain.NewSimilarityKey(uuid.New(), "a", "b", nil))

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestRepo_LockUser(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	userID := uuid.New()

	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtextextended\(\$1, 0\)\)`).
		WithArgs("user:" + userID.String()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, repo.LockUser(context.Background(), userID))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_List_Filtered(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	inst := sampleInstance()
	inst.Favorite = true
	fav := true

	mock.ExpectQuery(`SELECT count\(\*\) FROM owned_products WHERE \(user_id = \$1 AND favorite = \$2\)`).
		WithArgs(inst.UserID, true).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT .* FROM owned_products WHERE \(user_id = \$1 AND favorite = \$2\) ORDER BY created_at DESC, id LIMIT 1 OFFSET 3`).
		WithArgs(inst.UserID, true).
		WillReturnRows(instanceRows(inst))

	got, total, err := repo.List(context.Background(), inst.UserID, domain.OwnedFilter{Favorite: &fav, Limit: 1, Offset: 3})

	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, got, 1)
	assert.True(t, got[0].Favorite)
	require.NoError(t, mock.ExpectationsWereMet())
}
