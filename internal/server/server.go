package server

import (
	"log"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"planquarter/internal/auth"
	"planquarter/internal/config"
)

type Server struct {
	Auth           *auth.Service
	Accounts       auth.AccountStore
	RateLimiter    *auth.RateLimiter
	Issuer         *auth.TokenIssuer
	Audit          *auth.AuditLogger
	Config         config.Config
	trustedProxies []net.IPNet
}

func NewServer(cfg config.Config, svc *auth.Service, accounts auth.AccountStore, rl *auth.RateLimiter, issuer *auth.TokenIssuer, audit *auth.AuditLogger) *Server {
	return &Server{
		Auth:           svc,
		Accounts:       accounts,
		RateLimiter:    rl,
		Issuer:         issuer,
		Audit:          audit,
		Config:         cfg,
		trustedProxies: parseProxyCIDRs(cfg.TrustedProxies),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	formatter := &middleware.DefaultLogFormatter{
		Logger:  log.New(log.Writer(), "", log.Flags()),
		NoColor: true,
	}
	r.Use(middleware.RequestLogger(formatter))
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders)
	r.Use(requestLocale)

	r.Get("/api/health", s.handleHealth)

	r.Post("/api/auth/sign-up", s.handleSignUp)
	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/verify-email", s.handleVerifyEmail)
	r.Post("/api/auth/resend-verification", s.handleResendVerification)
	r.Post("/api/auth/password-reset", s.handleResetInit)
	r.Post("/api/auth/password-reset/check", s.handleResetCheck)
	r.Post("/api/auth/password-reset/complete", s.handleResetComplete)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireAuth)

		pr.Get("/api/auth/me", s.handleMe)
		pr.Post("/api/auth/password", s.handleChangePassword)

		pr.Get("/api/plans/*", s.handlePlanProxy)
		pr.Post("/api/plans/*", s.handlePlanProxy)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// recordAudit is best-effort: a broken audit trail never blocks the flow.
func (s *Server) recordAudit(r *http.Request, eventType, accountID, email string) {
	if s.Audit == nil {
		return
	}
	event := auth.AuditEvent{
		EventType: eventType,
		AccountID: accountID,
		Email:     email,
		IP:        clientIP(r, s.trustedProxies),
	}
	if err := s.Audit.Log(r.Context(), event); err != nil {
		log.Printf("audit: record %s failed: %v", eventType, err)
	}
}
