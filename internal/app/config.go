package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration, loadable from
// environment variables (KIOSK_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (KIOSK_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for menu item images" flag:"image-base-url"`
	BillPrefix   string `default:"BILL" usage:"Prefix for generated bill numbers" flag:"bill-prefix"`
	Venue        VenueConfig
	Razorpay     RazorpayConfig
	Twilio       TwilioConfig
	Receipts     ReceiptsConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// VenueConfig describes the venue printed on receipts and used for pricing.
type VenueConfig struct {
	Name                    string  `default:"QuickServe Foods" usage:"Venue name shown on receipts"`
	AddressLine1            string  `default:"" usage:"Venue address line 1" flag:"venue-address1"`
	AddressLine2            string  `default:"" usage:"Venue address line 2" flag:"venue-address2"`
	City                    string  `default:"" usage:"Venue city"`
	State                   string  `default:"" usage:"Venue state"`
	CountryCode             string  `default:"+91" usage:"Phone country code for SMS normalization" flag:"country-code"`
	CurrencyCode            string  `default:"INR" usage:"ISO currency code sent to the payment gateway" flag:"currency-code"`
	CurrencyLabel           string  `default:"Rs." usage:"Currency label printed on receipts" flag:"currency-label"`
	ServiceChargeRate       string  `default:"0" usage:"Service charge percentage" flag:"service-charge-rate"`
	ServiceChargeDineInOnly bool    `default:"true" usage:"Charge the service rate on dine-in orders (take-away is never charged)" flag:"service-charge-dine-in-only"`
	ReceiptFooters          []string `default:"Thank you for your visit!" usage:"Footer lines printed on receipts" flag:"receipt-footers"`
}

// RazorpayConfig holds the payment gateway credentials.
type RazorpayConfig struct {
	KeyID     string `usage:"Razorpay key ID (KIOSK_RAZORPAY_KEY_ID)" flag:"razorpay-key-id"`
	KeySecret string `usage:"Razorpay key secret (KIOSK_RAZORPAY_KEY_SECRET)" flag:"razorpay-key-secret"`
}

// TwilioConfig holds the SMS provider credentials. All three values must be
// set for SMS delivery to be attempted; otherwise notifications report
// not_configured and the pipeline proceeds without them.
type TwilioConfig struct {
	AccountSID string `usage:"Twilio account SID" flag:"twilio-account-sid"`
	AuthToken  string `usage:"Twilio auth token" flag:"twilio-auth-token"`
	FromNumber string `usage:"Twilio sender phone number" flag:"twilio-from-number"`
}

// ReceiptsConfig controls where generated receipts are stored and how they
// are linked in SMS messages.
type ReceiptsConfig struct {
	Dir           string `default:"invoices" usage:"Directory for generated receipt files" flag:"receipts-dir"`
	PublicBaseURL string `default:"" usage:"Public base URL under which receipt files are served" flag:"receipts-base-url"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// ServiceChargeRateDecimal parses the configured service charge percentage.
func (v VenueConfig) ServiceChargeRateDecimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.ServiceChargeRate)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "parse service charge rate")
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("service charge rate must not be negative")
	}
	return d, nil
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "KIOSK",
		Files:     []string{"config.yaml", "/etc/kiosk/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set KIOSK_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeySecret == "" {
		return nil, errors.New("payment gateway credentials are required: set KIOSK_RAZORPAY_KEY_ID and KIOSK_RAZORPAY_KEY_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's KIOSK_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
