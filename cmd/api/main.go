package main

import (
	"io"
	"log"
	"os"

	"github.com/aktivo-app/aktivo-backend/internal/config"
	"github.com/aktivo-app/aktivo-backend/internal/logging"
	"github.com/aktivo-app/aktivo-backend/internal/repository/postgres"
	"github.com/aktivo-app/aktivo-backend/internal/service"
	transport "github.com/aktivo-app/aktivo-backend/internal/transport/http"
	"github.com/aktivo-app/aktivo-backend/internal/transport/mail"
	"github.com/aktivo-app/aktivo-backend/internal/util"
)

func main() {
	cfg := config.Load()

	if cfg.LogstashTCPAddr != "" {
		writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr, logging.Config{})
		if err != nil {
			log.Printf("logstash disabled: %v", err)
		} else {
			defer writer.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, writer))
		}
	}

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	users := postgres.NewUserRepo(db)
	sessions := postgres.NewSessionRepo(db)
	challenges := postgres.NewResetChallengeRepo(db)

	mailer := mail.NewPasswordResetMailer(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUsername,
		cfg.SMTPPassword,
		cfg.SMTPFrom,
	)

	jwtManager := util.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL)
	auth := service.NewAuthService(users, sessions, jwtManager, cfg.GoogleAudience, cfg.SessionTTL)
	resets := service.NewResetService(challenges, users, sessions, mailer, service.ResetConfig{
		OTPDigits:      cfg.PasswordResetOTPLength,
		CodeTTL:        cfg.PasswordResetCodeTTL,
		TokenTTL:       cfg.PasswordResetTokenTTL,
		MaxAttempts:    cfg.PasswordResetMaxAttempts,
		ResendInterval: cfg.PasswordResetResendInterval,
	})

	e := transport.NewRouter(cfg.AllowOrigins)
	transport.RegisterAuth(e, auth)
	transport.RegisterPasswordReset(e, resets)
	transport.RegisterSwagger(e)
	transport.RegisterPages(e)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
