package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"planquarter/internal/database"
)

const accountColumns = `"id","email","password_hash","full_name","role","is_active","is_verified","created_at","updated_at"`

// AccountRepository implements account persistence over postgres.
type AccountRepository struct {
	db database.DB
}

// OAuthAccount links an account to a federated identity provider.
type OAuthAccount struct {
	ID                string
	AccountID         string
	Provider          string
	ProviderAccountID string
	CreatedAt         time.Time
}

func NewAccountRepository(db database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account. A unique-constraint collision on email is
// reported as ErrDuplicateEmail.
func (r *AccountRepository) Create(ctx context.Context, email string, passwordHash *string, fullName, role string, verified bool) (*Account, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO "accounts"
		("id","email","password_hash","full_name","role","is_verified")
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+accountColumns,
		uuid.NewString(), email, passwordHash, fullName, role, verified)

	account, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return account, nil
}

// ExistsByEmail is an existence probe, cheaper than a full fetch.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	row := r.db.QueryRow(ctx, `SELECT 1 FROM "accounts" WHERE "email"=$1 LIMIT 1`, email)
	var dummy int
	if err := row.Scan(&dummy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM "accounts" WHERE "email"=$1`, email)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return account, err
}

// FindLoginCandidate matches only verified, active accounts. Unverified and
// deactivated accounts look exactly like missing ones to the login flow.
func (r *AccountRepository) FindLoginCandidate(ctx context.Context, email string) (*Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM "accounts"
		WHERE "email"=$1 AND "is_verified"=TRUE AND "is_active"=TRUE`, email)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return account, err
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM "accounts" WHERE "id"=$1`, id)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return account, err
}

func (r *AccountRepository) SetVerified(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE "accounts" SET "is_verified"=TRUE, "updated_at"=NOW() WHERE "id"=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE "accounts" SET "password_hash"=$1, "updated_at"=NOW() WHERE "id"=$2`, passwordHash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepository) FindByOAuth(ctx context.Context, provider, providerAccountID string) (*Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT a."id",a."email",a."password_hash",a."full_name",a."role",a."is_active",a."is_verified",a."created_at",a."updated_at"
		FROM "accounts" a
		INNER JOIN "oauth_accounts" oa ON oa."account_id" = a."id"
		WHERE oa."provider"=$1 AND oa."provider_account_id"=$2`, provider, providerAccountID)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return account, err
}

func (r *AccountRepository) LinkOAuth(ctx context.Context, accountID, provider, providerAccountID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO "oauth_accounts"
		("id","account_id","provider","provider_account_id")
		VALUES ($1,$2,$3,$4)
		ON CONFLICT ("provider","provider_account_id") DO UPDATE SET "account_id"=EXCLUDED."account_id"`,
		uuid.NewString(), accountID, provider, providerAccountID)
	return err
}

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		account      Account
		passwordHash sql.NullString
	)
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&passwordHash,
		&account.FullName,
		&account.Role,
		&account.IsActive,
		&account.IsVerified,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if passwordHash.Valid {
		account.PasswordHash = &passwordHash.String
	}
	return &account, nil
}
