package auth

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountColumnNames = []string{
	"id", "email", "password_hash", "full_name", "role", "is_active", "is_verified", "created_at", "updated_at",
}

func accountRow(id, email string, hash interface{}, verified bool) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(accountColumnNames).
		AddRow(id, email, hash, "Jane Doe", RoleUser, true, verified, now, now)
}

func TestAccountRepository_Create(t *testing.T) {
	hash := "$2a$10$hash"

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "inserts and returns the account",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO "accounts"`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnRows(accountRow("acc-1", "jane@example.com", hash, false))
			},
		},
		{
			name: "duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO "accounts"`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: ErrDuplicateEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewAccountRepository(mock)
			account, err := repo.Create(context.Background(), "jane@example.com", &hash, "Jane Doe", RoleUser, false)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "acc-1", account.ID)
				require.NotNil(t, account.PasswordHash)
				assert.Equal(t, hash, *account.PasswordHash)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAccountRepository_ExistsByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT 1 FROM "accounts"`).
		WithArgs("jane@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1 FROM "accounts"`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	repo := NewAccountRepository(mock)

	exists, err := repo.ExistsByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_FindByEmail_Missing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT (.+) FROM "accounts"`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	repo := NewAccountRepository(mock)
	account, err := repo.FindByEmail(context.Background(), "nobody@example.com")

	require.NoError(t, err)
	assert.Nil(t, account)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_FindLoginCandidate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT (.+) FROM "accounts"`).
		WithArgs("jane@example.com").
		WillReturnRows(accountRow("acc-1", "jane@example.com", "$2a$10$hash", true))

	repo := NewAccountRepository(mock)
	account, err := repo.FindLoginCandidate(context.Background(), "jane@example.com")

	require.NoError(t, err)
	require.NotNil(t, account)
	assert.True(t, account.IsVerified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_SetVerified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE "accounts" SET "is_verified"`).
		WithArgs("acc-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE "accounts" SET "is_verified"`).
		WithArgs("acc-missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewAccountRepository(mock)

	require.NoError(t, repo.SetVerified(context.Background(), "acc-1"))
	require.ErrorIs(t, repo.SetVerified(context.Background(), "acc-missing"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_UpdatePassword_Missing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE "accounts" SET "password_hash"`).
		WithArgs("$2a$10$new", "acc-missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewAccountRepository(mock)
	require.ErrorIs(t, repo.UpdatePassword(context.Background(), "acc-missing", "$2a$10$new"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_FindByOAuth(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INNER JOIN "oauth_accounts"`).
		WithArgs("google", "g-123").
		WillReturnRows(accountRow("acc-1", "jane@example.com", nil, true))
	mock.ExpectQuery(`INNER JOIN "oauth_accounts"`).
		WithArgs("google", "g-unknown").
		WillReturnError(pgx.ErrNoRows)

	repo := NewAccountRepository(mock)

	account, err := repo.FindByOAuth(context.Background(), "google", "g-123")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Nil(t, account.PasswordHash)

	account, err = repo.FindByOAuth(context.Background(), "google", "g-unknown")
	require.NoError(t, err)
	assert.Nil(t, account)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_LinkOAuth(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO "oauth_accounts"`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewAccountRepository(mock)
	require.NoError(t, repo.LinkOAuth(context.Background(), "acc-1", "google", "g-123"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
