package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memAccounts struct {
	mu     sync.Mutex
	byID   map[string]*Account
	oauth  map[string]string // provider/providerAccountID -> account id
	nextID int
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: map[string]*Account{}, oauth: map[string]string{}}
}

func (m *memAccounts) Create(_ context.Context, email string, passwordHash *string, fullName, role string, verified bool) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			return nil, ErrDuplicateEmail
		}
	}
	m.nextID++
	account := &Account{
		ID:           fmt.Sprintf("acc-%d", m.nextID),
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         role,
		IsActive:     true,
		IsVerified:   verified,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.byID[account.ID] = account
	return account, nil
}

func (m *memAccounts) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAccounts) FindByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			out := *a
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memAccounts) FindLoginCandidate(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email && a.IsVerified && a.IsActive {
			out := *a
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memAccounts) FindByID(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		out := *a
		return &out, nil
	}
	return nil, nil
}

func (m *memAccounts) SetVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.IsVerified = true
	return nil
}

func (m *memAccounts) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = &passwordHash
	return nil
}

func (m *memAccounts) FindByOAuth(_ context.Context, provider, providerAccountID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.oauth[provider+"/"+providerAccountID]; ok {
		out := *m.byID[id]
		return &out, nil
	}
	return nil, nil
}

func (m *memAccounts) LinkOAuth(_ context.Context, accountID, provider, providerAccountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oauth[provider+"/"+providerAccountID] = accountID
	return nil
}

// memTokens mirrors the storage semantics: Consume is a single atomic
// check-and-mark under the lock.
type memTokens struct {
	mu     sync.Mutex
	tokens []*DisposableToken
	nextID int
}

func newMemTokens() *memTokens {
	return &memTokens{}
}

func (m *memTokens) Issue(_ context.Context, accountID, email string, kind TokenKind, ttl time.Duration) (*DisposableToken, error) {
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	token, err := NewDisposableTokenString()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec := &DisposableToken{
		ID:        fmt.Sprintf("tok-%d", m.nextID),
		AccountID: accountID,
		Email:     email,
		Kind:      kind,
		Token:     token,
		ExpiresAt: time.Now().Add(ttl),
		CreatedAt: time.Now(),
	}
	m.tokens = append(m.tokens, rec)
	return rec, nil
}

func (m *memTokens) Consume(_ context.Context, accountID, token string, kind TokenKind) (*DisposableToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.tokens {
		if rec.AccountID == accountID && rec.Token == token && rec.Kind == kind &&
			!rec.Used && time.Now().Before(rec.ExpiresAt) {
			rec.Used = true
			now := time.Now()
			rec.UsedAt = &now
			out := *rec
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memTokens) Peek(_ context.Context, accountID, token string, kind TokenKind) (*DisposableToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.tokens {
		if rec.AccountID == accountID && rec.Token == token && rec.Kind == kind &&
			!rec.Used && time.Now().Before(rec.ExpiresAt) {
			out := *rec
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memTokens) latest() *DisposableToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tokens) == 0 {
		return nil
	}
	out := *m.tokens[len(m.tokens)-1]
	return &out
}

type memNotifier struct {
	mu            sync.Mutex
	verifications []string
	resets        []string
	fail          bool
}

func (n *memNotifier) SendVerificationNotice(_ context.Context, email, _, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unavailable")
	}
	n.verifications = append(n.verifications, email+" "+link)
	return nil
}

func (n *memNotifier) SendPasswordResetNotice(_ context.Context, email, _, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unavailable")
	}
	n.resets = append(n.resets, email+" "+link)
	return nil
}

type fixedLinks struct{}

func (fixedLinks) VerifyLink(accountID, token string) string {
	return "https://app.test/verify-email?account=" + accountID + "&token=" + token
}

func (fixedLinks) ResetLink(accountID, token string) string {
	return "https://app.test/reset-password?account=" + accountID + "&token=" + token
}

type serviceFixture struct {
	svc      *Service
	accounts *memAccounts
	tokens   *memTokens
	notifier *memNotifier
	issuer   *TokenIssuer
}

func newServiceFixture(t *testing.T, verificationRequired bool) *serviceFixture {
	t.Helper()
	accounts := newMemAccounts()
	tokens := newMemTokens()
	notifier := &memNotifier{}
	issuer := NewTokenIssuer([]byte("test-signing-key"), time.Hour)
	svc := NewService(accounts, tokens, &BcryptHasher{Cost: bcrypt.MinCost}, issuer, notifier, fixedLinks{}, ServiceConfig{
		VerificationRequired: verificationRequired,
	})
	return &serviceFixture{svc: svc, accounts: accounts, tokens: tokens, notifier: notifier, issuer: issuer}
}

func TestService_SignUp(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, true)
	ctx := context.Background()

	account, err := f.svc.SignUp(ctx, "Jane@Example.COM ", "p1", "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", account.Email)
	assert.False(t, account.IsVerified)
	assert.Equal(t, RoleUser, account.Role)

	rec := f.tokens.latest()
	require.NotNil(t, rec)
	assert.Equal(t, TokenKindVerify, rec.Kind)
	assert.Equal(t, account.ID, rec.AccountID)

	require.Len(t, f.notifier.verifications, 1)
	assert.Contains(t, f.notifier.verifications[0], rec.Token)
}

func TestService_SignUpDuplicateEmail(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, "jane@example.com", "p1", "Jane")
	require.NoError(t, err)

	_, err = f.svc.SignUp(ctx, "JANE@example.com", "other", "Jane Again")
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestService_SignUpDeliveryFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, true)
	f.notifier.fail = true

	account, err := f.svc.SignUp(context.Background(), "jane@example.com", "p1", "Jane")
	require.NoError(t, err)

	// The token survives the failed delivery and can still be consumed.
	rec := f.tokens.latest()
	require.NotNil(t, rec)
	_, _, err = f.svc.VerifyEmail(context.Background(), account.ID, rec.Token)
	require.NoError(t, err)
}

func TestService_SignUpWithoutVerification(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, false)

	account, err := f.svc.SignUp(context.Background(), "jane@example.com", "p1", "Jane")
	require.NoError(t, err)
	assert.True(t, account.IsVerified)
	assert.Nil(t, f.tokens.latest())

	_, logged, err := f.svc.Login(context.Background(), "jane@example.com", "p1")
	require.NoError(t, err)
	assert.Equal(t, account.ID, logged.ID)
}

func TestService_LoginUniformFailure(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, true)
	ctx := context.Background()

	account, err := f.svc.SignUp(ctx, "jane@example.com", "p1", "Jane")
	require.NoError(t, err)

	// Unverified account: indistinguishable from a missing one.
	_, _, errUnverified := f.svc.Login(ctx, "jane@example.com", "p1")
	require.ErrorIs(t, errUnverified, ErrInvalidCredentials)

	rec := f.tokens.latest()
	_, _, err = f.svc.VerifyEmail(ctx, account.ID, rec.Token)
	require.NoError(t, err)

	_, _, errWrongPassword := f.svc.Login(ctx, "jane@example.com", "nope")
	_, _, errUnknownEmail := f.svc.Login(ctx, "nobody@example.com", "p1")
	require.ErrorIs(t, errWrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, errUnknownEmail, ErrInvalidCredentials)
	assert.Equal(t, errWrongPassword.Error(), errUnknownEmail.Error())
}

func TestService_VerifyEmailIssuesCredential(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, true)
	ctx := context.Background()

	account, err := f.svc.SignUp(ctx, "jane@example.com", "p1", "Jane")
	require.NoError(t, err)
	rec := f.tokens.latest()

	credential, verified, err := f.svc.VerifyEmail(ctx, account.ID, rec.Token)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	accountID, err := f.issuer.Parse(credential)
	require.NoError(t, err)
	assert.Equal(t, account.ID, accountID)

	// Replay of the same token fails.
	_, _, err = f.svc.VerifyEmail(ctx, account.ID, rec.Token)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_VerifyEmailWrongKindOrToken(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, true)
	ctx := context.Background()

	account, err := f.svc.SignUp(ctx, "jane@example.com", "p1", "Jane")
	require.NoError(t, err)

	// A reset token never satisfies verification.
	require.NoError(t, f.svc.ResetInit(ctx, "jane@example.com"))
	resetRec := f.tokens.latest()
	_, _, err = f.svc.VerifyEmail(ctx, account.ID, resetRec.Token)
	require.ErrorIs(t, err, ErrNotFound)

	_, _, err = f.svc.VerifyEmail(ctx, account.ID, "bogus")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_VerifyEmailExpiredToken(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, true)
	ctx := context.Background()

	account, err := f.svc.SignUp(ctx, "jane@example.com", "p1", "Jane")
	require.NoError(t, err)

	rec, err := f.tokens.Issue(ctx, account.ID, account.Email, TokenKindVerify, -time.Minute)
	require.NoError(t, err)

	_, _, err = f.svc.VerifyEmail(ctx, account.ID, rec.Token)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_VerifyEmailConcurrentConsume(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, true)
	ctx := context.Background()

	account, err := f.svc.SignUp(ctx, "jane@example.com", "p1", "Jane")
	require.NoError(t, err)
	rec := f.tokens.latest()

	const attempts = 16
	var successes atomic.Int32
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			if _, _, err := f.svc.VerifyEmail(ctx, account.ID, rec.Token); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load(), "exactly one concurrent consumption may succeed")
}

func TestService_ResendVerification(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, true)
	ctx := context.Background()

	account, err := f.svc.SignUp(ctx, "jane@example.com", "p1", "Jane")
	require.NoError(t, err)
	first := f.tokens.latest()

	require.NoError(t, f.svc.ResendVerification(ctx, "jane@example.com"))
	second := f.tokens.latest()
	assert.NotEqual(t, first.Token, second.Token)
	assert.Len(t, f.notifier.verifications, 2)

	// Unknown and already-verified addresses are silent no-ops.
	require.NoError(t, f.svc.ResendVerification(ctx, "nobody@example.com"))
	_, _, err = f.svc.VerifyEmail(ctx, account.ID, second.Token)
	require.NoError(t, err)
	require.NoError(t, f.svc.ResendVerification(ctx, "jane@example.com"))
	assert.Len(t, f.notifier.verifications, 2)
}

func TestService_ResetInitSilentForUnknownEmail(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, true)

	require.NoError(t, f.svc.ResetInit(context.Background(), "nobody@example.com"))
	assert.Nil(t, f.tokens.latest())
	assert.Empty(t, f.notifier.resets)
}

func TestService_ResetFlow(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, false)
	ctx := context.Background()

	account, err := f.svc.SignUp(ctx, "jane@example.com", "old-password", "Jane")
	require.NoError(t, err)

	require.NoError(t, f.svc.ResetInit(ctx, "jane@example.com"))
	rec := f.tokens.latest()
	require.NotNil(t, rec)
	assert.Equal(t, TokenKindResetPassword, rec.Kind)
	require.Len(t, f.notifier.resets, 1)

	// Check does not consume: it can run repeatedly before completion.
	for i := 0; i < 2; i++ {
		checked, err := f.svc.ResetCheck(ctx, account.ID, rec.Token)
		require.NoError(t, err)
		assert.Equal(t, account.ID, checked.ID)
	}

	require.NoError(t, f.svc.ResetComplete(ctx, account.ID, rec.Token, "new-password"))

	_, _, err = f.svc.Login(ctx, "jane@example.com", "old-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, logged, err := f.svc.Login(ctx, "jane@example.com", "new-password")
	require.NoError(t, err)
	assert.Equal(t, account.ID, logged.ID)

	// The consumed token is dead for both check and complete.
	_, err = f.svc.ResetCheck(ctx, account.ID, rec.Token)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, f.svc.ResetComplete(ctx, account.ID, rec.Token, "again"), ErrNotFound)
}

func TestService_ChangePassword(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, false)
	ctx := context.Background()

	account, err := f.svc.SignUp(ctx, "jane@example.com", "old-password", "Jane")
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, account.ID, "wrong", "new-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, f.svc.ChangePassword(ctx, account.ID, "old-password", "new-password"))
	_, _, err = f.svc.Login(ctx, "jane@example.com", "new-password")
	require.NoError(t, err)
}

func TestService_FederatedSignIn(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, true)
	ctx := context.Background()

	credential, account, err := f.svc.FederatedSignIn(ctx, "google", "g-123", "Jane@example.com", "Jane Doe")
	require.NoError(t, err)
	assert.True(t, account.IsVerified)
	assert.Nil(t, account.PasswordHash)
	assert.Equal(t, "jane@example.com", account.Email)

	accountID, err := f.issuer.Parse(credential)
	require.NoError(t, err)
	assert.Equal(t, account.ID, accountID)

	// Second federated login reuses the linked account.
	_, again, err := f.svc.FederatedSignIn(ctx, "google", "g-123", "jane@example.com", "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, account.ID, again.ID)

	// A federated account with no local password cannot password-login.
	_, _, err = f.svc.Login(ctx, "jane@example.com", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_FederatedSignInLinksExistingEmail(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, false)
	ctx := context.Background()

	existing, err := f.svc.SignUp(ctx, "jane@example.com", "p1", "Jane")
	require.NoError(t, err)

	_, linked, err := f.svc.FederatedSignIn(ctx, "google", "g-456", "jane@example.com", "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)
}
