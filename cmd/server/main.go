package main

import (
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"planquarter/internal/auth"
	"planquarter/internal/config"
	"planquarter/internal/database"
	"planquarter/internal/email"
	"planquarter/internal/logging"
	redisx "planquarter/internal/redis"
	"planquarter/internal/server"
)

const logMaxSizeBytes = 20 << 20

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logOutput := io.Writer(os.Stdout)
	if cfg.LogFile != "" {
		fileWriter, err := logging.NewRotatingFileWriter(cfg.LogFile, logMaxSizeBytes, 3)
		if err != nil {
			log.Fatalf("log setup error: %v", err)
		}
		defer fileWriter.Close()
		logOutput = io.MultiWriter(os.Stdout, fileWriter)
	}
	log.SetOutput(logOutput)
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lshortfile)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer db.Close()

	redisClient, err := redisx.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis error: %v", err)
	}
	defer redisClient.Close()

	accounts := auth.NewAccountRepository(db)
	tokens := auth.NewTokenStore(db)
	hasher := auth.NewBcryptHasher()
	issuer := auth.NewTokenIssuer([]byte(cfg.JWTSigningKey), cfg.AccessTokenTTL)
	mailer := email.NewSender(cfg.Email)
	notices := email.NewNotices(mailer, cfg.TokenTTL)
	links := email.NewLinks(cfg.BaseURL)
	rateLimiter := &auth.RateLimiter{Redis: redisClient}
	auditLog := &auth.AuditLogger{Redis: redisClient, MaxLen: 1000}

	svc := auth.NewService(accounts, tokens, hasher, issuer, notices, links, auth.ServiceConfig{
		VerificationRequired: !cfg.NoEmailVerify,
		TokenTTL:             cfg.TokenTTL,
	})

	api := server.NewServer(cfg, svc, accounts, rateLimiter, issuer, auditLog)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.Router(),
		ReadTimeout:  time.Minute,
		WriteTimeout: 2 * time.Minute,
	}

	log.Printf("Listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
