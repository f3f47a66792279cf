package auth

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	Redis *redis.Client
}

const (
	loginMaxAttempts    = 5
	loginAttemptTTL     = 10 * time.Minute
	loginBanTTL         = 1 * time.Hour
	verifyMaxAttempts   = 5
	verifyAttemptTTL    = 10 * time.Minute
	resetMaxAttempts    = 5
	resetAttemptTTL     = 15 * time.Minute
	signupMaxAttemptsIP = 10
	signupAttemptTTL    = 30 * time.Minute
	emailCooldown       = 60 * time.Second
	EmailCooldown       = emailCooldown
)

func (r *RateLimiter) loginAttemptKey(ip string) string {
	return "login_attempts:" + ip
}

func (r *RateLimiter) loginBanKey(ip string) string {
	return "login_ban:" + ip
}

func (r *RateLimiter) verifyAttemptKey(accountID string) string {
	return "verify_attempts:" + accountID
}

func (r *RateLimiter) resetAttemptKey(email string) string {
	if email == "" {
		return ""
	}
	return "reset_attempts:" + strings.ToLower(email)
}

func (r *RateLimiter) signupAttemptKey(ip string) string {
	if ip == "" {
		return ""
	}
	return "signup_attempts_ip:" + ip
}

func (r *RateLimiter) IsIPBanned(ctx context.Context, ip string) bool {
	exists, _ := r.Redis.Exists(ctx, r.loginBanKey(ip)).Result()
	return exists == 1
}

func (r *RateLimiter) RegisterLoginFailure(ctx context.Context, ip string) error {
	key := r.loginAttemptKey(ip)

	attempts, err := r.Redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if attempts == 1 {
		r.Redis.Expire(ctx, key, loginAttemptTTL)
	}
	if attempts >= loginMaxAttempts {
		r.Redis.Set(ctx, r.loginBanKey(ip), "1", loginBanTTL)
		r.Redis.Expire(ctx, key, loginBanTTL)
	}
	return nil
}

func (r *RateLimiter) ResetLogin(ctx context.Context, ip string) {
	r.Redis.Del(ctx, r.loginAttemptKey(ip))
}

func (r *RateLimiter) RegisterVerifyAttempt(ctx context.Context, accountID string) (bool, time.Duration, error) {
	key := r.verifyAttemptKey(accountID)

	attempts, err := r.Redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if attempts == 1 {
		r.Redis.Expire(ctx, key, verifyAttemptTTL)
	}
	ttl, _ := r.Redis.TTL(ctx, key).Result()
	return attempts >= verifyMaxAttempts, ttl, nil
}

func (r *RateLimiter) ResetVerify(ctx context.Context, accountID string) {
	r.Redis.Del(ctx, r.verifyAttemptKey(accountID))
}

func (r *RateLimiter) RegisterResetAttempt(ctx context.Context, email string) (bool, time.Duration, error) {
	key := r.resetAttemptKey(email)
	if key == "" {
		return false, 0, nil
	}

	attempts, err := r.Redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if attempts == 1 {
		r.Redis.Expire(ctx, key, resetAttemptTTL)
	}
	ttl, _ := r.Redis.TTL(ctx, key).Result()
	return attempts >= resetMaxAttempts, ttl, nil
}

func (r *RateLimiter) RegisterSignupAttempt(ctx context.Context, ip string) (bool, time.Duration, error) {
	key := r.signupAttemptKey(ip)
	if key == "" {
		return false, 0, nil
	}

	attempts, err := r.Redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if attempts == 1 {
		r.Redis.Expire(ctx, key, signupAttemptTTL)
	}
	ttl, _ := r.Redis.TTL(ctx, key).Result()
	return attempts >= signupMaxAttemptsIP, ttl, nil
}

func (r *RateLimiter) CooldownTTL(ctx context.Context, key string) time.Duration {
	ttl, err := r.Redis.TTL(ctx, key).Result()
	if err != nil {
		return 0
	}
	return ttl
}

func (r *RateLimiter) SetCooldown(ctx context.Context, key string, ttl time.Duration) {
	r.Redis.Set(ctx, key, "1", ttl)
}
