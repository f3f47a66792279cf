package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"planquarter/internal/database"
)

const tokenColumns = `"id","account_id","email","kind","token","used","used_at","expires_at","created_at"`

// TokenStore persists disposable tokens in the disposable_tokens table.
type TokenStore struct {
	db database.DB
}

func NewTokenStore(db database.DB) *TokenStore {
	return &TokenStore{db: db}
}

// Issue creates a token with a fresh random string and a forward expiry of
// ttl (DefaultTokenTTL when ttl <= 0). Delivery is the caller's concern.
func (s *TokenStore) Issue(ctx context.Context, accountID, email string, kind TokenKind, ttl time.Duration) (*DisposableToken, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	token, err := NewDisposableTokenString()
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO "disposable_tokens"
		("id","account_id","email","kind","token","expires_at")
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+tokenColumns,
		uuid.NewString(), accountID, email, string(kind), token, time.Now().Add(ttl))

	return scanToken(row)
}

// Consume atomically marks the single matching unused, unexpired token of the
// given kind as used. The read-match-and-mark is one conditional UPDATE at
// the storage layer, so concurrent calls on the same token yield at most one
// success; every other caller gets ErrNotFound.
func (s *TokenStore) Consume(ctx context.Context, accountID, token string, kind TokenKind) (*DisposableToken, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE "disposable_tokens"
		SET "used"=TRUE, "used_at"=NOW()
		WHERE "account_id"=$1 AND "token"=$2 AND "kind"=$3 AND "used"=FALSE AND "expires_at" >= NOW()
		RETURNING `+tokenColumns,
		accountID, token, string(kind))

	rec, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// Peek checks the same predicate as Consume without mutating anything, so a
// client can confirm a reset link is still live before prompting for input.
func (s *TokenStore) Peek(ctx context.Context, accountID, token string, kind TokenKind) (*DisposableToken, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM "disposable_tokens"
		WHERE "account_id"=$1 AND "token"=$2 AND "kind"=$3 AND "used"=FALSE AND "expires_at" >= NOW()`,
		accountID, token, string(kind))

	rec, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// PurgeExpired bulk-deletes tokens past their expiry. Administrative only;
// normal consumption never deletes rows.
func (s *TokenStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM "disposable_tokens" WHERE "expires_at" < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanToken(row pgx.Row) (*DisposableToken, error) {
	var (
		rec    DisposableToken
		kind   string
		usedAt *time.Time
	)
	if err := row.Scan(&rec.ID, &rec.AccountID, &rec.Email, &kind, &rec.Token, &rec.Used, &usedAt, &rec.ExpiresAt, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Kind = TokenKind(kind)
	rec.UsedAt = usedAt
	return &rec, nil
}
