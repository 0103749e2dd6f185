package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	AppName     string
	Env         string
	Port        string
	DatabaseURL string
	LogLevel    string
	FrontendURL string
	Currency    string
	PayoutRate  decimal.Decimal
	CronEnabled bool

	JWTSecret string
	JWTTTL    time.Duration

	AdminEmail    string
	AdminPassword string
	AdminFullName string

	CloudinaryURL string

	SendgridAPIKey  string
	EmailSender     string
	EmailSenderName string

	Jitsi  JitsiConfig
	PayPal PayPalConfig
}

type JitsiConfig struct {
	Domain   string
	AppID    string
	Secret   string
	TokenTTL time.Duration
}

type PayPalConfig struct {
	APIBaseURL   string
	ClientID     string
	ClientSecret string
}

func (c *Config) IsDev() bool {
	return c.Env == "DEV"
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not read .env: %v", err)
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("APP_NAME", "Tutor Marketplace")
	v.SetDefault("ENV", "DEV")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("CURRENCY", "USD")
	v.SetDefault("PAYOUT_RATE", "0.80")
	v.SetDefault("CRON_ENABLED", true)
	v.SetDefault("JWT_TTL", 72*time.Hour)
	v.SetDefault("ADMIN_FULL_NAME", "Platform Admin")
	v.SetDefault("EMAIL_SENDER_NAME", "Tutor Marketplace")
	v.SetDefault("JITSI_DOMAIN", "meet.jit.si")
	v.SetDefault("JITSI_TOKEN_TTL", 3*time.Hour)
	v.SetDefault("PAYPAL_API_BASE_URL", "https://api-m.sandbox.paypal.com")
	for _, key := range []string{
		"DATABASE_URL", "JWT_SECRET", "ADMIN_EMAIL", "ADMIN_PASSWORD", "CLOUDINARY_URL",
		"SENDGRID_API_KEY", "EMAIL_SENDER", "JITSI_APP_ID", "JITSI_SECRET",
		"PAYPAL_CLIENT_ID", "PAYPAL_CLIENT_SECRET",
	} {
		v.SetDefault(key, "")
	}
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	rate, err := decimal.NewFromString(v.GetString("PAYOUT_RATE"))
	if err != nil {
		return nil, errors.Wrap(err, "config: PAYOUT_RATE")
	}
	if !rate.IsPositive() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, errors.Errorf("config: PAYOUT_RATE must be in (0, 1], got %s", rate)
	}

	cfg := &Config{
		AppName:     v.GetString("APP_NAME"),
		Env:         strings.ToUpper(v.GetString("ENV")),
		Port:        v.GetString("PORT"),
		DatabaseURL: v.GetString("DATABASE_URL"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		FrontendURL: strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		Currency:    strings.ToUpper(v.GetString("CURRENCY")),
		PayoutRate:  rate,
		CronEnabled: v.GetBool("CRON_ENABLED"),

		JWTSecret: v.GetString("JWT_SECRET"),
		JWTTTL:    v.GetDuration("JWT_TTL"),

		AdminEmail:    v.GetString("ADMIN_EMAIL"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
		AdminFullName: v.GetString("ADMIN_FULL_NAME"),

		CloudinaryURL: v.GetString("CLOUDINARY_URL"),

		SendgridAPIKey:  v.GetString("SENDGRID_API_KEY"),
		EmailSender:     v.GetString("EMAIL_SENDER"),
		EmailSenderName: v.GetString("EMAIL_SENDER_NAME"),

		Jitsi: JitsiConfig{
			Domain:   v.GetString("JITSI_DOMAIN"),
			AppID:    v.GetString("JITSI_APP_ID"),
			Secret:   v.GetString("JITSI_SECRET"),
			TokenTTL: v.GetDuration("JITSI_TOKEN_TTL"),
		},
		PayPal: PayPalConfig{
			APIBaseURL:   strings.TrimRight(v.GetString("PAYPAL_API_BASE_URL"), "/"),
			ClientID:     v.GetString("PAYPAL_CLIENT_ID"),
			ClientSecret: v.GetString("PAYPAL_CLIENT_SECRET"),
		},
	}

	if cfg.JWTSecret == "" && !cfg.IsDev() {
		return nil, errors.New("config: JWT_SECRET is required outside DEV")
	}
	return cfg, nil
}
