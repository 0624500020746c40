package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultSandboxMSISDN = "46733123453"
	DefaultCurrency      = "GHS"
	sandboxEnvironment   = "sandbox"
)

type Config struct {
	Momo    MomoConfig
	DB      DBConfig
	Server  ServerConfig
	Log     LogConfig
	Sweeper SweeperConfig
}

// MomoConfig carries the credentials and endpoint of the Mobile Money provider.
type MomoConfig struct {
	SubscriptionKey   string
	APIUserID         string
	APIKey            string
	BaseURL           string
	TargetEnvironment string
	SandboxMSISDN     string
	DefaultCurrency   string
	HTTPTimeout       time.Duration
}

// IsSandbox reports whether payer numbers must be replaced by the sandbox test MSISDN.
func (m MomoConfig) IsSandbox() bool {
	return strings.EqualFold(strings.TrimSpace(m.TargetEnvironment), sandboxEnvironment)
}

// Complete reports whether all credentials needed to call the provider are present.
func (m MomoConfig) Complete() bool {
	return m.SubscriptionKey != "" && m.APIUserID != "" && m.APIKey != ""
}

type DBConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// ServerConfig describes the listeners. The API is served over TLS when both
// certificate files are set; AdminAddr enables the pprof listener.
type ServerConfig struct {
	Addr        string
	TLSCertFile string
	TLSKeyFile  string
	AdminAddr   string
}

func (s ServerConfig) TLSEnabled() bool {
	return s.TLSCertFile != "" && s.TLSKeyFile != ""
}

type LogConfig struct {
	Level string
	Dir   string
}

// SweeperConfig controls the background refresh of pending transactions.
// An empty Schedule disables it.
type SweeperConfig struct {
	Schedule string
	MinAge   time.Duration
	Batch    int
}

// Load reads config.env when present and then the process environment.
// Every missing required variable is reported in a single error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var missing []string
	required := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		Momo: MomoConfig{
			SubscriptionKey:   required("SUBSCRIPTION_PRIMARY_KEY"),
			APIUserID:         required("API_USER_ID"),
			APIKey:            required("API_KEY"),
			BaseURL:           strings.TrimRight(required("MOMO_BASE_URL"), "/"),
			TargetEnvironment: strings.TrimSpace(os.Getenv("TARGET_ENVIRONMENT")),
			SandboxMSISDN:     getEnv("MOMO_SANDBOX_MSISDN", DefaultSandboxMSISDN),
			DefaultCurrency:   strings.ToUpper(getEnv("MOMO_DEFAULT_CURRENCY", DefaultCurrency)),
		},
		DB: DBConfig{
			Host:     required("DB_HOST"),
			User:     required("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     required("DB_NAME"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Server: ServerConfig{
			Addr:        getEnv("HTTP_ADDR", ":8080"),
			TLSCertFile: strings.TrimSpace(os.Getenv("TLS_CERT_FILE")),
			TLSKeyFile:  strings.TrimSpace(os.Getenv("TLS_KEY_FILE")),
			AdminAddr:   strings.TrimSpace(os.Getenv("ADMIN_ADDR")),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			Dir:   os.Getenv("LOG_DIR"),
		},
		Sweeper: SweeperConfig{
			Schedule: os.Getenv("SWEEP_SCHEDULE"),
		},
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if (cfg.Server.TLSCertFile == "") != (cfg.Server.TLSKeyFile == "") {
		return nil, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	var err error
	if cfg.DB.Port, err = intEnv("DB_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.DB.MaxOpenConns, err = intEnv("DB_MAX_OPEN_CONNS", 10); err != nil {
		return nil, err
	}
	if cfg.DB.MaxIdleConns, err = intEnv("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	if cfg.Momo.HTTPTimeout, err = durationEnv("MOMO_HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Sweeper.MinAge, err = durationEnv("SWEEP_MIN_AGE", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Sweeper.Batch, err = intEnv("SWEEP_BATCH", 50); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultVal
}

func intEnv(key string, defaultVal int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
