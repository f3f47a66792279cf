package server

import (
	"log"
	"net/http"

	"planquarter/internal/auth"
)

type resetInitRequest struct {
	Email string `json:"email"`
}

// handleResetInit responds identically whether or not the email is
// registered; the branch happens inside the flow, invisible to the caller.
func (s *Server) handleResetInit(w http.ResponseWriter, r *http.Request) {
	var req resetInitRequest
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
		if locked, ttl, err := s.RateLimiter.RegisterResetAttempt(ctx, req.Email); err != nil {
			log.Printf("password-reset: rate limit check failed: %v", err)
		} else if locked {
			writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
				"message":  "Too many reset requests. Try again later.",
				"cooldown": int64(ttl.Seconds()),
			})
			return
		}
	}

	if err := s.Auth.ResetInit(ctx, req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	s.recordAudit(r, auth.AuditResetInit, "", auth.NormalizeEmail(req.Email))
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If the email address exists, a password reset email has been sent.",
	})
}

type resetCheckRequest struct {
	AccountID string `json:"accountId"`
	Token     string `json:"token"`
}

func (s *Server) handleResetCheck(w http.ResponseWriter, r *http.Request) {
	var req resetCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AccountID == "" || req.Token == "" {
		writeError(w, http.StatusBadRequest, "Account id and token are required")
		return
	}

	account, err := s.Auth.ResetCheck(r.Context(), req.AccountID, req.Token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account": account.Public(),
	})
}

type resetCompleteRequest struct {
	AccountID   string `json:"accountId"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleResetComplete(w http.ResponseWriter, r *http.Request) {
	var req resetCompleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AccountID == "" || req.Token == "" {
		writeError(w, http.StatusBadRequest, "Account id and token are required")
		return
	}
	if err := validatePassword(req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.Auth.ResetComplete(r.Context(), req.AccountID, req.Token, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	s.recordAudit(r, auth.AuditResetComplete, req.AccountID, "")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset."})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	accountID := accountIDFromContext(r.Context())
	if accountID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CurrentPassword == "" {
		writeError(w, http.StatusBadRequest, "Current password is required")
		return
	}
	if err := validatePassword(req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.Auth.ChangePassword(r.Context(), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	s.recordAudit(r, auth.AuditPasswordChange, accountID, "")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been changed."})
}
