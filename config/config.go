package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/adapters/logger" // Import the logger package for LogLevel
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
)

// BandSettings holds the operator-supplied parameters for one volatility
// band. The seed level/phase/time anchor the band to the exchange's own
// indicator state; multipliers are strategy parameters, not universal
// constants.
type BandSettings struct {
	Multiplier float64
	SeedLevel  float64
	SeedPhase  domain.Phase
	SeedTime   time.Time
}

// Config holds all application configuration.
type Config struct {
	// Kraken Futures API
	APIKey    string
	SecretKey string
	BaseURL   string // Derivatives API base
	ChartURL  string // Charts API base

	// Instrument
	Symbol         string
	CandleInterval time.Duration
	FetchCount     int // Closed bars fetched per cycle
	BufferCapacity int

	// Indicator Parameters
	RSIPeriod       int
	LegacyRSIPeriod int
	ATRPeriod       int
	VI1, VI2, VI3   BandSettings

	// Entry Gates
	MinVolume      float64
	MaxRSIJump     float64
	MinVolumeRatio float64
	MaxVolumeRatio float64
	RSIExtremeLow  float64
	RSIExtremeHigh float64
	VI1Protection  time.Duration // Counter-phase entry block after a VI1 flip

	// Exit Parameters
	ProtectionWindow  time.Duration // No exit evaluation before this dwell time
	ControlWindow     time.Duration // Start of the SHORT price-control check
	ControlRisePct    float64       // SHORT forced-exit price rise threshold
	EmergencyRSIRise  float64       // SHORT forced-exit RSI rise above entry
	ThresholdOverride string        // Optional JSON override of the exit threshold tables

	// Sizing
	Leverage           int
	Utilization        float64 // Fraction of leveraged margin actually deployed
	MinSize            float64
	MaxSize            float64
	MinAvailableMargin float64

	// Data Progression
	RequiredLiveBars int

	// Scheduler
	DebounceWindow time.Duration
	BoundarySlack  time.Duration

	// Reliability
	RetryMaxAttempts  int
	RetryMinDelay     time.Duration
	RetryMaxDelay     time.Duration
	AttemptTimeout    time.Duration
	BreakerThreshold  int
	BreakerOpenWindow time.Duration

	// Persistence
	StatePath string
	SeedPath  string
	DBPath    string

	// Monitoring
	MetricsAddr string

	// Live OHLC cross-check (optional)
	WSEnable bool
	WSURL    string

	// Notifications (Brevo transactional email)
	BrevoAPIKey        string
	BrevoSenderEmail   string
	BrevoReceiverEmail string

	// Logging
	LogLevel logger.LogLevel
	LogFile  string
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Kraken Futures API
	cfg.APIKey = getEnv("KRAKEN_API_KEY", "")
	cfg.SecretKey = getEnv("KRAKEN_API_SECRET", "")
	cfg.BaseURL = getEnv("KRAKEN_BASE_URL", "https://futures.kraken.com")
	cfg.ChartURL = getEnv("KRAKEN_CHART_URL", "https://futures.kraken.com")

	if cfg.APIKey == "" {
		errs = append(errs, "KRAKEN_API_KEY must be set")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "KRAKEN_API_SECRET must be set")
	}

	// Instrument
	cfg.Symbol = getEnv("SYMBOL", "PI_XBTUSD")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}
	cfg.CandleInterval = getEnvAsDuration("CANDLE_INTERVAL", 15*time.Minute)
	if cfg.CandleInterval <= 0 {
		errs = append(errs, "CANDLE_INTERVAL must be positive")
	}
	cfg.FetchCount = getEnvAsInt("FETCH_COUNT", 100)
	if cfg.FetchCount < 2 {
		errs = append(errs, "FETCH_COUNT must be at least 2")
	}
	cfg.BufferCapacity = getEnvAsInt("BUFFER_CAPACITY", 1920)
	if cfg.BufferCapacity <= 0 {
		errs = append(errs, "BUFFER_CAPACITY must be positive")
	}

	// Indicator Parameters
	cfg.RSIPeriod = getEnvAsInt("RSI_PERIOD", 40)
	cfg.LegacyRSIPeriod = getEnvAsInt("LEGACY_RSI_PERIOD", 12)
	cfg.ATRPeriod = getEnvAsInt("ATR_PERIOD", 28)
	if cfg.RSIPeriod <= 0 || cfg.LegacyRSIPeriod <= 0 || cfg.ATRPeriod <= 0 {
		errs = append(errs, "indicator periods (RSI, LEGACY_RSI, ATR) must be positive")
	}

	cfg.VI1, err = loadBandSettings("VI1", 1.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid VI1 settings: %v", err))
	}
	cfg.VI2, err = loadBandSettings("VI2", 2.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid VI2 settings: %v", err))
	}
	cfg.VI3, err = loadBandSettings("VI3", 3.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid VI3 settings: %v", err))
	}

	// Entry Gates
	cfg.MinVolume = getEnvAsFloat("MIN_VOLUME", 0)
	cfg.MaxRSIJump = getEnvAsFloat("MAX_RSI_JUMP", 15.0)
	cfg.MinVolumeRatio = getEnvAsFloat("MIN_VOLUME_RATIO", 0.1)
	cfg.MaxVolumeRatio = getEnvAsFloat("MAX_VOLUME_RATIO", 10.0)
	if cfg.MinVolumeRatio > cfg.MaxVolumeRatio {
		errs = append(errs, "MIN_VOLUME_RATIO must not exceed MAX_VOLUME_RATIO")
	}
	cfg.RSIExtremeLow = getEnvAsFloat("RSI_EXTREME_LOW", 10.0)
	cfg.RSIExtremeHigh = getEnvAsFloat("RSI_EXTREME_HIGH", 86.0)
	if cfg.RSIExtremeLow >= cfg.RSIExtremeHigh || cfg.RSIExtremeLow < 0 || cfg.RSIExtremeHigh > 100 {
		errs = append(errs, "invalid RSI extreme zone (LOW must be < HIGH, between 0-100)")
	}
	cfg.VI1Protection = getEnvAsDuration("VI1_PROTECTION", 72*time.Hour)

	// Exit Parameters
	cfg.ProtectionWindow = getEnvAsDuration("PROTECTION_WINDOW", 7*time.Hour)
	cfg.ControlWindow = getEnvAsDuration("CONTROL_WINDOW", 3*time.Hour)
	if cfg.ControlWindow > cfg.ProtectionWindow {
		errs = append(errs, "CONTROL_WINDOW must not exceed PROTECTION_WINDOW")
	}
	cfg.ControlRisePct = getEnvAsFloat("CONTROL_RISE_PCT", 1.0)
	cfg.EmergencyRSIRise = getEnvAsFloat("EMERGENCY_RSI_RISE", 18.0)
	cfg.ThresholdOverride = getEnv("EXIT_THRESHOLDS_JSON", "")

	// Sizing
	cfg.Leverage, err = getEnvAsIntRequired("LEVERAGE", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LEVERAGE: %v", err))
	} else if cfg.Leverage <= 0 {
		errs = append(errs, "LEVERAGE must be positive")
	}
	cfg.Utilization, err = getEnvAsFloatRequired("UTILIZATION", 0.95)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid UTILIZATION: %v", err))
	} else if cfg.Utilization <= 0 || cfg.Utilization > 1 {
		errs = append(errs, "UTILIZATION must be between 0.0 and 1.0")
	}
	cfg.MinSize = getEnvAsFloat("MIN_SIZE", 0.0001)
	cfg.MaxSize = getEnvAsFloat("MAX_SIZE", 1.0)
	if cfg.MinSize <= 0 || cfg.MaxSize < cfg.MinSize {
		errs = append(errs, "MIN_SIZE must be positive and not exceed MAX_SIZE")
	}
	cfg.MinAvailableMargin, err = getEnvAsFloatRequired("MIN_AVAILABLE_MARGIN", 10.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_AVAILABLE_MARGIN: %v", err))
	} else if cfg.MinAvailableMargin < 0 {
		errs = append(errs, "MIN_AVAILABLE_MARGIN cannot be negative")
	}

	// Data Progression
	cfg.RequiredLiveBars = getEnvAsInt("REQUIRED_LIVE_BARS", 80)
	if cfg.RequiredLiveBars < 0 {
		errs = append(errs, "REQUIRED_LIVE_BARS cannot be negative")
	}

	// Scheduler
	cfg.DebounceWindow = getEnvAsDuration("DEBOUNCE_WINDOW", 60*time.Second)
	cfg.BoundarySlack = getEnvAsDuration("BOUNDARY_SLACK", 2*time.Second)

	// Reliability
	cfg.RetryMaxAttempts = getEnvAsInt("RETRY_MAX_ATTEMPTS", 3)
	if cfg.RetryMaxAttempts <= 0 {
		errs = append(errs, "RETRY_MAX_ATTEMPTS must be positive")
	}
	cfg.RetryMinDelay = getEnvAsDuration("RETRY_MIN_DELAY", time.Second)
	cfg.RetryMaxDelay = getEnvAsDuration("RETRY_MAX_DELAY", 60*time.Second)
	cfg.AttemptTimeout = getEnvAsDuration("ATTEMPT_TIMEOUT", 30*time.Second)
	cfg.BreakerThreshold = getEnvAsInt("BREAKER_THRESHOLD", 5)
	cfg.BreakerOpenWindow = getEnvAsDuration("BREAKER_OPEN_WINDOW", 60*time.Second)

	// Persistence
	cfg.StatePath = getEnv("STATE_PATH", "./data/bot_state.json")
	cfg.SeedPath = getEnv("SEED_PATH", "./data/seed.json")
	cfg.DBPath = getEnv("DB_PATH", "./data/trades.db")
	if cfg.StatePath == "" {
		errs = append(errs, "STATE_PATH must be set")
	}
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Monitoring
	cfg.MetricsAddr = getEnv("METRICS_ADDR", ":9090")

	// Live OHLC cross-check
	cfg.WSEnable = getEnvAsBool("WS_ENABLE", false)
	cfg.WSURL = getEnv("WS_URL", "wss://futures.kraken.com/ws/v1")

	// Notifications
	cfg.BrevoAPIKey = getEnv("BREVO_API_KEY", "")
	cfg.BrevoSenderEmail = getEnv("BREVO_SENDER_EMAIL", "")
	cfg.BrevoReceiverEmail = getEnv("BREVO_RECEIVER_EMAIL", "")
	if cfg.BrevoAPIKey != "" && (cfg.BrevoSenderEmail == "" || cfg.BrevoReceiverEmail == "") {
		errs = append(errs, "BREVO_SENDER_EMAIL and BREVO_RECEIVER_EMAIL must be set when BREVO_API_KEY is set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogFile = getEnv("LOG_FILE", "")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// loadBandSettings reads the four env keys of one volatility band, e.g.
// VI1_MULTIPLIER, VI1_SEED_LEVEL, VI1_SEED_PHASE, VI1_SEED_TIME.
func loadBandSettings(prefix string, defaultMultiplier float64) (BandSettings, error) {
	s := BandSettings{
		Multiplier: getEnvAsFloat(prefix+"_MULTIPLIER", defaultMultiplier),
		SeedLevel:  getEnvAsFloat(prefix+"_SEED_LEVEL", 0),
	}
	if s.Multiplier <= 0 {
		return s, fmt.Errorf("%s_MULTIPLIER must be positive", prefix)
	}

	phaseStr := strings.ToUpper(getEnv(prefix+"_SEED_PHASE", string(domain.PhaseBearish)))
	switch domain.Phase(phaseStr) {
	case domain.PhaseBullish, domain.PhaseBearish:
		s.SeedPhase = domain.Phase(phaseStr)
	default:
		return s, fmt.Errorf("%s_SEED_PHASE must be BULLISH or BEARISH, got %q", prefix, phaseStr)
	}

	if timeStr := getEnv(prefix+"_SEED_TIME", ""); timeStr != "" {
		t, err := time.Parse(time.RFC3339, timeStr)
		if err != nil {
			return s, fmt.Errorf("invalid %s_SEED_TIME %q: %w", prefix, timeStr, err)
		}
		s.SeedTime = t.UTC()
	}
	return s, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
