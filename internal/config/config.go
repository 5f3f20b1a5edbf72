package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalidConfig is wrapped by every validation failure so startup can abort on it.
var ErrInvalidConfig = errors.New("invalid configuration")

// SupportedCurrencies lists the ISO 4217 codes accepted as default product currency.
var SupportedCurrencies = []string{"NGN", "USD", "GHS", "ZAR", "KES"}

var secretKeyPattern = regexp.MustCompile(`^sk_(test|live)_[A-Za-z0-9]+$`)

type Config struct {
	Port        string
	JWTSecret   string
	SkipAuth    bool
	Environment string
	CORSOrigins string

	StoreDriver string // "mongodb", "postgres" or "memory"
	MongoURI    string
	DBName      string
	PostgresDSN string

	Paystack PaystackConfig
}

// PaystackConfig holds everything the synchronization engine reads.
type PaystackConfig struct {
	Enabled         bool
	SecretKey       string
	WebhookSecret   string
	BaseURL         string
	Rest            bool
	TestMode        bool
	DefaultCurrency string
	Logs            bool
	// LogCollection, when set, receives a copy of every plugin log entry.
	LogCollection string

	// UpdateProductsCurrency pushes DefaultCurrency to every remote product on startup.
	UpdateProductsCurrency bool

	Blacklist BlacklistConfig

	SyncFile string
	Sync     []SyncConfig

	// WebhookHandlers names built-in custom handlers to register.
	WebhookHandlers []string
}

type BlacklistConfig struct {
	Enabled        bool
	Polling        bool
	PageSize       int
	MaxPages       int
	RunImmediately bool
	Interval       time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	secretKey := getEnv("PAYSTACK_SECRET_KEY", "")
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		StoreDriver: getEnv("STORE_DRIVER", "mongodb"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "paystack-sync"),
		PostgresDSN: getEnv("POSTGRES_DSN", "postgres://localhost:5432/paystack_sync?sslmode=disable"),
		Paystack: PaystackConfig{
			Enabled:                getEnv("PAYSTACK_ENABLED", "true") == "true",
			SecretKey:              secretKey,
			WebhookSecret:          getEnv("PAYSTACK_WEBHOOK_SECRET", secretKey),
			BaseURL:                getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			Rest:                   getEnv("PAYSTACK_REST", "false") == "true",
			TestMode:               getEnv("PAYSTACK_TEST_MODE", "false") == "true",
			DefaultCurrency:        strings.ToUpper(getEnv("PAYSTACK_DEFAULT_CURRENCY", "NGN")),
			Logs:                   getEnv("PAYSTACK_LOGS", "false") == "true",
			LogCollection:          getEnv("PAYSTACK_LOG_COLLECTION", ""),
			UpdateProductsCurrency: getEnv("PAYSTACK_UPDATE_PRODUCTS_CURRENCY", "false") == "true",
			Blacklist: BlacklistConfig{
				Enabled:        getEnv("PAYSTACK_BLACKLIST", "false") == "true",
				Polling:        getEnv("PAYSTACK_POLLING", "false") == "true",
				PageSize:       getEnvInt("PAYSTACK_POLLING_PAGE_SIZE", 100),
				MaxPages:       getEnvInt("PAYSTACK_POLLING_MAX_PAGES", 20),
				RunImmediately: getEnv("PAYSTACK_POLLING_RUN_IMMEDIATELY", "false") == "true",
				Interval:       time.Duration(getEnvInt("PAYSTACK_POLLING_INTERVAL_MS", 3600000)) * time.Millisecond,
			},
			SyncFile:        getEnv("PAYSTACK_SYNC_FILE", "paystack.sync.yaml"),
			WebhookHandlers: splitList(getEnv("PAYSTACK_WEBHOOK_HANDLERS", "")),
		},
	}

	syncConfigs, err := LoadSyncFile(cfg.Paystack.SyncFile)
	if err != nil {
		return nil, err
	}
	cfg.Paystack.Sync = syncConfigs

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	p := &c.Paystack
	if !p.Enabled {
		return nil
	}
	if p.SecretKey == "" {
		return fmt.Errorf("%w: PAYSTACK_SECRET_KEY is required", ErrInvalidConfig)
	}
	if !secretKeyPattern.MatchString(p.SecretKey) {
		return fmt.Errorf("%w: PAYSTACK_SECRET_KEY must look like sk_test_... or sk_live_...", ErrInvalidConfig)
	}
	if !isSupportedCurrency(p.DefaultCurrency) {
		return fmt.Errorf("%w: unsupported default currency %q", ErrInvalidConfig, p.DefaultCurrency)
	}

	seen := make(map[string]bool, len(p.Sync))
	for _, sc := range p.Sync {
		if sc.Collection == "" || sc.ResourceType == "" {
			return fmt.Errorf("%w: sync entries need a collection and a resource type", ErrInvalidConfig)
		}
		if seen[sc.Collection] {
			return fmt.Errorf("%w: collection %q is configured for sync more than once", ErrInvalidConfig, sc.Collection)
		}
		seen[sc.Collection] = true
	}

	b := p.Blacklist
	if b.Enabled && b.Polling {
		if b.PageSize <= 0 || b.MaxPages <= 0 {
			return fmt.Errorf("%w: polling page size and max pages must be positive", ErrInvalidConfig)
		}
		if b.Interval <= 0 {
			return fmt.Errorf("%w: polling interval must be positive", ErrInvalidConfig)
		}
	}
	return nil
}

// IsTestKey reports whether the credential targets Paystack's test environment.
func (p *PaystackConfig) IsTestKey() bool {
	return strings.HasPrefix(p.SecretKey, "sk_test_")
}

// SyncFor returns the sync configuration for a local collection.
func (p *PaystackConfig) SyncFor(collection string) (*SyncConfig, bool) {
	for i := range p.Sync {
		if p.Sync[i].Collection == collection {
			return &p.Sync[i], true
		}
	}
	return nil, false
}

// SyncForResource returns the sync configuration whose singular resource type matches.
func (p *PaystackConfig) SyncForResource(singular string) (*SyncConfig, bool) {
	for i := range p.Sync {
		if p.Sync[i].Singular() == singular {
			return &p.Sync[i], true
		}
	}
	return nil, false
}

// MaskSecret keeps only a short prefix of a credential for logging.
func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:8] + "****"
}

func isSupportedCurrency(code string) bool {
	for _, c := range SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Printf("Ignoring non-numeric %s=%q", key, value)
		return fallback
	}
	return n
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
