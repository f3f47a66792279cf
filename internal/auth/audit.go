package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Audit event types recorded by the HTTP layer.
const (
	AuditSignUp         = "sign_up"
	AuditLogin          = "login"
	AuditLoginFailed    = "login_failed"
	AuditEmailVerified  = "email_verified"
	AuditResetInit      = "password_reset_init"
	AuditResetComplete  = "password_reset_complete"
	AuditPasswordChange = "password_change"
)

type AuditEvent struct {
	EventType string    `json:"eventType"`
	AccountID string    `json:"accountId,omitempty"`
	Email     string    `json:"email,omitempty"`
	IP        string    `json:"ip"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditLogger appends lifecycle events to capped redis lists, one global
// stream plus one per account.
type AuditLogger struct {
	Redis  *redis.Client
	MaxLen int64
}

func (a *AuditLogger) Log(ctx context.Context, e AuditEvent) error {
	e.Timestamp = time.Now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	key := "audit"
	if e.AccountID != "" {
		key = "audit:" + e.AccountID
	}

	pipe := a.Redis.Pipeline()
	pipe.RPush(ctx, key, data)
	if a.MaxLen > 0 {
		pipe.LTrim(ctx, key, -a.MaxLen, -1)
	}

	_, err = pipe.Exec(ctx)
	return err
}
