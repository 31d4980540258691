package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DatabaseURL     string
	JWTSecret       string
	GoogleAudience  string
	AllowOrigins    []string
	LogstashTCPAddr string
	SessionTTL      time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	PasswordResetCodeTTL        time.Duration
	PasswordResetTokenTTL       time.Duration
	PasswordResetOTPLength      int
	PasswordResetMaxAttempts    int
	PasswordResetResendInterval time.Duration
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	return Config{
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     must("DATABASE_URL"),
		JWTSecret:       must("JWT_SECRET"),
		GoogleAudience:  getenv("GOOGLE_AUDIENCE", ""),
		AllowOrigins:    splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogstashTCPAddr: getenv("LOGSTASH_TCP_ADDR", ""),
		SessionTTL:      duration("SESSION_TTL", 24*time.Hour),

		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", ""),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),

		PasswordResetCodeTTL:        duration("PASSWORD_RESET_TTL", 10*time.Minute),
		PasswordResetTokenTTL:       duration("PASSWORD_RESET_TOKEN_TTL", 10*time.Minute),
		PasswordResetOTPLength:      positiveInt("PASSWORD_RESET_OTP_LENGTH", 6),
		PasswordResetMaxAttempts:    positiveInt("PASSWORD_RESET_MAX_ATTEMPTS", 5),
		PasswordResetResendInterval: duration("PASSWORD_RESET_RESEND_INTERVAL", time.Minute),
	}
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func duration(k string, d time.Duration) time.Duration {
	raw := getenv(k, "")
	if raw == "" {
		return d
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		log.Printf("Warning: invalid %s %q, using %s", k, raw, d)
		return d
	}
	return parsed
}

func positiveInt(k string, d int) int {
	raw := getenv(k, "")
	if raw == "" {
		return d
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		log.Printf("Warning: invalid %s %q, using %d", k, raw, d)
		return d
	}
	return parsed
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
