package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DbHost    string
	DbPort    string
	DbUser    string
	DbPass    string
	DbName    string
	DbSSLMode string

	JWTSecret       string
	AccessTokenTTL  string
	RefreshTokenTTL string

	Log      string
	LogLevel string
	Env      string // dev|prod

	MpesaConsumerKey    string
	MpesaConsumerSecret string
	MpesaShortcode      string
	MpesaPasskey        string
	MpesaBaseURL        string
	MpesaCallbackURL    string

	AssistantAPIKey  string
	AssistantBaseURL string
	AssistantModel   string

	QuestionPrice    float64
	MonthlyPlanPrice float64
	PaymentCurrency  string
}

// LoadConfig loads .env, reads environment variables and applies defaults.
// Does not log anything so it carries no dependency on logger.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	def := func(v, d string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return d
		}
		return v
	}

	defPrice := func(v string, d float64) float64 {
		v = strings.TrimSpace(v)
		if v == "" {
			return d
		}
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return d
		}
		return p
	}

	cfg := &Config{
		Port:      def(os.Getenv("PORT"), "8080"),
		DbHost:    os.Getenv("DB_HOST"),
		DbPort:    def(os.Getenv("DB_PORT"), "5432"),
		DbUser:    os.Getenv("DB_USER"),
		DbPass:    os.Getenv("DB_PASSWORD"),
		DbName:    os.Getenv("DB_NAME"),
		DbSSLMode: def(os.Getenv("DB_SSLMODE"), "disable"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		AccessTokenTTL:  def(os.Getenv("ACCESS_TOKEN_EXPIRY"), "15m"),
		RefreshTokenTTL: def(os.Getenv("REFRESH_TOKEN_EXPIRY"), "720h"),

		Log:      os.Getenv("LOG"),
		LogLevel: strings.ToLower(def(os.Getenv("LOGLEVEL"), "info")),
		Env:      strings.ToLower(def(os.Getenv("ENV"), "prod")),

		MpesaConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		MpesaConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
		MpesaShortcode:      os.Getenv("MPESA_BUSINESS_SHORTCODE"),
		MpesaPasskey:        os.Getenv("MPESA_PASSKEY"),
		MpesaBaseURL:        def(os.Getenv("MPESA_BASE_URL"), "https://sandbox.safaricom.co.ke"),
		MpesaCallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),

		AssistantAPIKey:  os.Getenv("ASSISTANT_API_KEY"),
		AssistantBaseURL: def(os.Getenv("ASSISTANT_BASE_URL"), "https://api.deepseek.com"),
		AssistantModel:   def(os.Getenv("ASSISTANT_MODEL"), "deepseek-chat"),

		QuestionPrice:    defPrice(os.Getenv("QUESTION_PRICE"), 10),
		MonthlyPlanPrice: defPrice(os.Getenv("MONTHLY_PLAN_PRICE"), 500),
		PaymentCurrency:  def(os.Getenv("PAYMENT_CURRENCY"), "KES"),
	}

	return cfg, nil
}

// Validate returns warnings and a fatal error (when critical).
func (c *Config) Validate() (warnings []string, err error) {
	if c.DbHost == "" || c.DbUser == "" || c.DbName == "" {
		return nil, fmt.Errorf("incomplete DB config (DB_HOST/DB_USER/DB_NAME)")
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		warnings = append(warnings, "JWT_SECRET is empty")
	}

	if c.MpesaConsumerKey == "" || c.MpesaConsumerSecret == "" || c.MpesaShortcode == "" || c.MpesaPasskey == "" {
		warnings = append(warnings, "M-Pesa credentials are not fully set")
	}
	if c.MpesaCallbackURL == "" {
		warnings = append(warnings, "MPESA_CALLBACK_URL is empty, payment callbacks will not arrive")
	}

	if c.AssistantAPIKey == "" {
		warnings = append(warnings, "ASSISTANT_API_KEY is empty")
	}

	if c.Port == "" {
		warnings = append(warnings, "PORT is empty, using default 8080")
	}

	return warnings, nil
}

// GetDSN returns the full DSN (with password).
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbPass, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

// GetDSNSafe returns the DSN without the password (for logs).
func (c *Config) GetDSNSafe() string {
	return fmt.Sprintf(
		"postgres://%s:***@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}
