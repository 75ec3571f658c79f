package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	IdempTTLSecs int

	// Ledger gateway; empty URL selects the in-memory ledger client.
	LedgerGatewayURL  string
	LedgerTimeoutSecs int
	TreasuryAccount   string
	EventChannel      string

	// Loan bounds
	MinPrincipalUsdc   decimal.Decimal
	MaxPrincipalUsdc   decimal.Decimal
	MinRateBps         int64
	MaxRateBps         int64
	MinDurationSecs    int64
	MaxDurationSecs    int64
	CollateralRatioBps int64

	// Valuation floor
	MinCropValueUsdc decimal.Decimal

	// Resilience
	RetryMaxAttempts    int
	RetryBaseDelayMS    int
	BreakerThreshold    int
	BreakerCooldownSecs int

	// Overdue sweep
	SweepSchedule string
	SweepBatch    int
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getint64(k string, d int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return d
}

func getdec(k, d string) decimal.Decimal {
	if v := os.Getenv(k); v != "" {
		if n, err := decimal.NewFromString(v); err == nil {
			return n
		}
	}
	out, _ := decimal.NewFromString(d)
	return out
}

func Load() *Config {
	return &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "mazaochain"),
		MySQLUser: getenv("MYSQL_USER", "mazao"),
		MySQLPass: getenv("MYSQL_PASS", "mazao"),

		RedisAddr:     getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getint("REDIS_DB", 0),

		IdempTTLSecs: getint("IDEMPOTENCY_TTL_SECONDS", 300),

		LedgerGatewayURL:  getenv("LEDGER_GATEWAY_URL", ""),
		LedgerTimeoutSecs: getint("LEDGER_TIMEOUT_SECONDS", 10),
		TreasuryAccount:   getenv("TREASURY_ACCOUNT", "0.0.98"),
		EventChannel:      getenv("EVENT_CHANNEL", "mazao.events"),

		MinPrincipalUsdc:   getdec("MIN_PRINCIPAL_USDC", "10"),
		MaxPrincipalUsdc:   getdec("MAX_PRINCIPAL_USDC", "100000"),
		MinRateBps:         getint64("MIN_RATE_BPS", 10),
		MaxRateBps:         getint64("MAX_RATE_BPS", 5000),
		MinDurationSecs:    getint64("MIN_DURATION_SECONDS", 86400),
		MaxDurationSecs:    getint64("MAX_DURATION_SECONDS", 2*365*86400),
		CollateralRatioBps: getint64("COLLATERAL_RATIO_BPS", 20000),

		MinCropValueUsdc: getdec("MIN_CROP_VALUE_USDC", "100"),

		RetryMaxAttempts:    getint("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelayMS:    getint("RETRY_BASE_DELAY_MS", 200),
		BreakerThreshold:    getint("BREAKER_THRESHOLD", 5),
		BreakerCooldownSecs: getint("BREAKER_COOLDOWN_SECONDS", 30),

		SweepSchedule: getenv("SWEEP_SCHEDULE", "@every 1m"),
		SweepBatch:    getint("SWEEP_BATCH", 100),
	}
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.CollateralRatioBps < 10000 {
		return fmt.Errorf("COLLATERAL_RATIO_BPS %d below 10000 (100%%)", c.CollateralRatioBps)
	}
	if c.MinRateBps < 1 || c.MaxRateBps < c.MinRateBps {
		return errors.New("invalid rate bounds (MIN_RATE_BPS/MAX_RATE_BPS)")
	}
	if c.MinDurationSecs < 1 || c.MaxDurationSecs < c.MinDurationSecs {
		return errors.New("invalid duration bounds (MIN_DURATION_SECONDS/MAX_DURATION_SECONDS)")
	}
	return nil
}

func (c *Config) LedgerTimeout() time.Duration {
	return time.Duration(c.LedgerTimeoutSecs) * time.Second
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
