package auth

import (
	"context"
	"fmt"
	"log"
	"time"
)

// AccountStore is the storage handle the flows depend on. The postgres
// implementation lives in AccountRepository; tests substitute doubles.
type AccountStore interface {
	Create(ctx context.Context, email string, passwordHash *string, fullName, role string, verified bool) (*Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindLoginCandidate(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	SetVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	FindByOAuth(ctx context.Context, provider, providerAccountID string) (*Account, error)
	LinkOAuth(ctx context.Context, accountID, provider, providerAccountID string) error
}

// DisposableTokenStore is what the flows need from the token storage.
type DisposableTokenStore interface {
	Issue(ctx context.Context, accountID, email string, kind TokenKind, ttl time.Duration) (*DisposableToken, error)
	Consume(ctx context.Context, accountID, token string, kind TokenKind) (*DisposableToken, error)
	Peek(ctx context.Context, accountID, token string, kind TokenKind) (*DisposableToken, error)
}

// Notifier delivers tokens to the account holder. Failures are logged by the
// flows, never surfaced: the token still exists and can be resent.
type Notifier interface {
	SendVerificationNotice(ctx context.Context, email, fullName, verifyLink string) error
	SendPasswordResetNotice(ctx context.Context, email, fullName, resetLink string) error
}

// LinkBuilder composes the client-facing URLs embedded in notices.
type LinkBuilder interface {
	VerifyLink(accountID, token string) string
	ResetLink(accountID, token string) string
}

// Service orchestrates the account lifecycle flows. All state lives in the
// stores; the service itself is safe for concurrent use.
type Service struct {
	accounts AccountStore
	tokens   DisposableTokenStore
	hasher   PasswordHasher
	issuer   *TokenIssuer
	notifier Notifier
	links    LinkBuilder

	// verificationRequired decides whether sign-up creates accounts
	// unverified and issues a verify token, or creates them ready to log in.
	verificationRequired bool
	tokenTTL             time.Duration
}

type ServiceConfig struct {
	VerificationRequired bool
	TokenTTL             time.Duration
}

func NewService(accounts AccountStore, tokens DisposableTokenStore, hasher PasswordHasher, issuer *TokenIssuer, notifier Notifier, links LinkBuilder, cfg ServiceConfig) *Service {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{
		accounts:             accounts,
		tokens:               tokens,
		hasher:               hasher,
		issuer:               issuer,
		notifier:             notifier,
		links:                links,
		verificationRequired: cfg.VerificationRequired,
		tokenTTL:             ttl,
	}
}

// SignUp creates a local account and, when verification is required, issues
// a verify token and hands it to the notifier.
func (s *Service) SignUp(ctx context.Context, email, password, fullName string) (*Account, error) {
	email = NormalizeEmail(email)

	exists, err := s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing account: %w", err)
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.Create(ctx, email, &hash, fullName, RoleUser, !s.verificationRequired)
	if err != nil {
		return nil, err
	}

	if s.verificationRequired {
		rec, err := s.tokens.Issue(ctx, account.ID, account.Email, TokenKindVerify, s.tokenTTL)
		if err != nil {
			return nil, fmt.Errorf("issue verify token: %w", err)
		}
		link := s.links.VerifyLink(account.ID, rec.Token)
		if err := s.notifier.SendVerificationNotice(ctx, account.Email, account.FullName, link); err != nil {
			log.Printf("sign-up: verification notice for %s failed: %v", account.Email, err)
		}
	}

	return account, nil
}

// Login authenticates an email/password pair and mints an access credential.
// Every failure cause collapses into ErrInvalidCredentials, and the missing-
// account path still runs a hash comparison so its latency matches the
// wrong-password path.
func (s *Service) Login(ctx context.Context, email, password string) (string, *Account, error) {
	account, err := s.accounts.FindLoginCandidate(ctx, NormalizeEmail(email))
	if err != nil {
		return "", nil, fmt.Errorf("login lookup: %w", err)
	}
	if account == nil {
		s.hasher.Compare(sentinelHash, password)
		return "", nil, ErrInvalidCredentials
	}

	hash := ""
	if account.PasswordHash != nil {
		hash = *account.PasswordHash
	}
	if !s.hasher.Compare(hash, password) {
		return "", nil, ErrInvalidCredentials
	}

	credential, err := s.issuer.Issue(account.ID)
	if err != nil {
		return "", nil, fmt.Errorf("issue access token: %w", err)
	}
	return credential, account, nil
}

// VerifyEmail consumes a verify token, flips the account verified and logs
// the holder straight in with a fresh access credential.
func (s *Service) VerifyEmail(ctx context.Context, accountID, token string) (string, *Account, error) {
	if _, err := s.tokens.Consume(ctx, accountID, token, TokenKindVerify); err != nil {
		return "", nil, err
	}

	if err := s.accounts.SetVerified(ctx, accountID); err != nil {
		return "", nil, err
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return "", nil, fmt.Errorf("load verified account: %w", err)
	}
	if account == nil {
		return "", nil, ErrNotFound
	}

	credential, err := s.issuer.Issue(account.ID)
	if err != nil {
		return "", nil, fmt.Errorf("issue access token: %w", err)
	}
	return credential, account, nil
}

// ResendVerification reissues a verify token for an unverified account. A
// missing or already-verified account is a silent no-op.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("resend lookup: %w", err)
	}
	if account == nil || account.IsVerified {
		return nil
	}

	rec, err := s.tokens.Issue(ctx, account.ID, account.Email, TokenKindVerify, s.tokenTTL)
	if err != nil {
		return fmt.Errorf("issue verify token: %w", err)
	}
	link := s.links.VerifyLink(account.ID, rec.Token)
	if err := s.notifier.SendVerificationNotice(ctx, account.Email, account.FullName, link); err != nil {
		log.Printf("resend-verification: notice for %s failed: %v", account.Email, err)
	}
	return nil
}

// ResetInit issues a reset token for a registered email. An unknown email
// succeeds silently with no side effect, so the response never reveals
// whether the address is registered.
func (s *Service) ResetInit(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("reset lookup: %w", err)
	}
	if account == nil {
		return nil
	}

	rec, err := s.tokens.Issue(ctx, account.ID, account.Email, TokenKindResetPassword, s.tokenTTL)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	link := s.links.ResetLink(account.ID, rec.Token)
	if err := s.notifier.SendPasswordResetNotice(ctx, account.Email, account.FullName, link); err != nil {
		log.Printf("reset-init: notice for %s failed: %v", account.Email, err)
	}
	return nil
}

// ResetCheck confirms a reset token is still live without consuming it, so
// a client can render the new-password form.
func (s *Service) ResetCheck(ctx context.Context, accountID, token string) (*Account, error) {
	if _, err := s.tokens.Peek(ctx, accountID, token, TokenKindResetPassword); err != nil {
		return nil, err
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account == nil {
		return nil, ErrNotFound
	}
	return account, nil
}

// ResetComplete consumes a reset token and installs the new password.
func (s *Service) ResetComplete(ctx context.Context, accountID, token, newPassword string) error {
	if _, err := s.tokens.Consume(ctx, accountID, token, TokenKindResetPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.accounts.UpdatePassword(ctx, accountID, hash)
}

// ChangePassword re-verifies the caller's current password before installing
// the new one. The caller is authenticated, so a wrong current password may
// be reported as such.
func (s *Service) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if account == nil {
		return ErrNotFound
	}

	hash := ""
	if account.PasswordHash != nil {
		hash = *account.PasswordHash
	}
	if !s.hasher.Compare(hash, currentPassword) {
		return ErrInvalidCredentials
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.accounts.UpdatePassword(ctx, accountID, newHash)
}

// FederatedSignIn is the entry point an external OAuth collaborator calls
// after completing its own dance. First federated login creates a verified
// account with no usable password hash.
func (s *Service) FederatedSignIn(ctx context.Context, provider, providerAccountID, email, fullName string) (string, *Account, error) {
	account, err := s.accounts.FindByOAuth(ctx, provider, providerAccountID)
	if err != nil {
		return "", nil, fmt.Errorf("federated lookup: %w", err)
	}

	if account == nil {
		email = NormalizeEmail(email)
		account, err = s.accounts.FindByEmail(ctx, email)
		if err != nil {
			return "", nil, fmt.Errorf("federated email lookup: %w", err)
		}
		if account == nil {
			account, err = s.accounts.Create(ctx, email, nil, fullName, RoleUser, true)
			if err != nil {
				return "", nil, err
			}
		}
		if err := s.accounts.LinkOAuth(ctx, account.ID, provider, providerAccountID); err != nil {
			return "", nil, fmt.Errorf("link federated identity: %w", err)
		}
	}

	credential, err := s.issuer.Issue(account.ID)
	if err != nil {
		return "", nil, fmt.Errorf("issue access token: %w", err)
	}
	return credential, account, nil
}
