package server

import (
	"log"
	"net/http"

	"planquarter/internal/auth"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validateEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	if err := validatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	ip := clientIP(r, s.trustedProxies)
	if s.RateLimiter != nil {
		if locked, ttl, err := s.RateLimiter.RegisterSignupAttempt(ctx, ip); err != nil {
			log.Printf("sign-up: rate limit check failed: %v", err)
		} else if locked {
			writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
				"message":  "Too many sign-up attempts. Try again later.",
				"cooldown": int64(ttl.Seconds()),
			})
			return
		}
	}

	account, err := s.Auth.SignUp(ctx, req.Email, req.Password, req.FullName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.recordAudit(r, auth.AuditSignUp, account.ID, account.Email)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"account": account.Public(),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validateEmail(req.Email) || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, s.trustedProxies)
	if s.RateLimiter != nil && s.RateLimiter.IsIPBanned(ctx, ip) {
		writeError(w, http.StatusForbidden, "Too many failed attempts. Try again later.")
		return
	}

	token, account, err := s.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		if s.RateLimiter != nil {
			_ = s.RateLimiter.RegisterLoginFailure(ctx, ip)
		}
		s.recordAudit(r, auth.AuditLoginFailed, "", auth.NormalizeEmail(req.Email))
		writeServiceError(w, err)
		return
	}

	if s.RateLimiter != nil {
		s.RateLimiter.ResetLogin(ctx, ip)
	}
	s.recordAudit(r, auth.AuditLogin, account.ID, account.Email)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":   token,
		"account": account.Public(),
	})
}

type verifyEmailRequest struct {
	AccountID string `json:"accountId"`
	Token     string `json:"token"`
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AccountID == "" || req.Token == "" {
		writeError(w, http.StatusBadRequest, "Account id and token are required")
		return
	}

	ctx := r.Context()
	if s.RateLimiter != nil {
		locked, ttl, err := s.RateLimiter.RegisterVerifyAttempt(ctx, req.AccountID)
		if err != nil {
			log.Printf("verify-email: rate limit check failed: %v", err)
		} else if locked {
			writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
				"message":  "Too many verification attempts. Try again later.",
				"cooldown": int64(ttl.Seconds()),
			})
			return
		}
	}

	token, account, err := s.Auth.VerifyEmail(ctx, req.AccountID, req.Token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if s.RateLimiter != nil {
		s.RateLimiter.ResetVerify(ctx, req.AccountID)
	}
	s.recordAudit(r, auth.AuditEmailVerified, account.ID, account.Email)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":   token,
		"account": account.Public(),
	})
}

type resendVerificationRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validateEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	ctx := r.Context()
	if s.RateLimiter != nil {
		cooldownKey := "resend_cooldown:" + auth.NormalizeEmail(req.Email)
		if ttl := s.RateLimiter.CooldownTTL(ctx, cooldownKey); ttl > 0 {
			writeJSON(w, http.StatusTooManyRequests, map[string]int64{"cooldown": int64(ttl.Seconds())})
			return
		}
		defer s.RateLimiter.SetCooldown(ctx, cooldownKey, auth.EmailCooldown)
	}

	if err := s.Auth.ResendVerification(ctx, req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If the account exists and is unverified, a new verification link has been sent.",
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	accountID := accountIDFromContext(r.Context())
	if accountID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	account, err := s.Accounts.FindByID(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	writeJSON(w, http.StatusOK, account.Public())
}
