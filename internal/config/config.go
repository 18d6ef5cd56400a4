package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the analyzer.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Quota    QuotaConfig    `yaml:"quota"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Report   ReportConfig   `yaml:"report"`
}

// ProviderConfig holds the ads data-provider API settings.
type ProviderConfig struct {
	BaseURL        string `yaml:"base_url"`
	DeveloperToken string `yaml:"developer_token"`
	CustomerID     string `yaml:"customer_id"`
}

// FetchConfig controls pagination, retries, and the overall request deadline.
type FetchConfig struct {
	PageSize              int     `yaml:"page_size"`
	MaxIDsPerRequest      int     `yaml:"max_ids_per_request"`
	MaxRetries            int     `yaml:"max_retries"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
	CompletenessFloor     float64 `yaml:"completeness_floor"`
}

// Timeout returns the whole-pipeline deadline as a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.RequestTimeoutSeconds) * time.Second
}

// QuotaConfig controls the shared provider-quota rate limiter.
// When RedisURL is set the limiter is backed by Redis so that several
// analyzer processes can share one provider quota; otherwise an in-process
// token bucket is used.
type QuotaConfig struct {
	RequestsPerSecond int    `yaml:"requests_per_second"`
	Burst             int    `yaml:"burst"`
	RedisURL          string `yaml:"redis_url"`
}

// AnalysisConfig holds every detection threshold and savings multiplier.
// The defaults are heuristic business choices inherited from operations;
// they are surfaced here as named, overridable values rather than re-derived.
type AnalysisConfig struct {
	MinImpressions            int            `yaml:"min_impressions"`
	MinImpressionsPerCategory map[string]int `yaml:"min_impressions_per_category"`
	MinRecordsForAnalysis     int            `yaml:"min_records_for_analysis"`

	HighCostThreshold     float64 `yaml:"high_cost_threshold"`
	LowROASThreshold      float64 `yaml:"low_roas_threshold"`
	MaxBroadCPAMultiplier float64 `yaml:"max_broad_cpa_multiplier"`
	ExactMatchRatio       float64 `yaml:"exact_match_ratio_threshold"`

	BidAdjustmentMin           float64 `yaml:"bid_adjustment_min"`
	BidAdjustmentMax           float64 `yaml:"bid_adjustment_max"`
	GeoOutperformMultiplier    float64 `yaml:"geo_outperform_multiplier"`
	GeoMinConversions          float64 `yaml:"geo_min_conversions"`
	GeoExclusionSpendThreshold float64 `yaml:"geo_exclusion_spend_threshold"`

	CannibalizationCPAMargin float64 `yaml:"cannibalization_cpa_margin"`

	// Conservative savings multipliers. Never 1.0: estimates must
	// understate rather than overstate recoverable spend.
	WasteRecoveryFraction    float64 `yaml:"waste_recovery_fraction"`
	ZeroConvRecoveryFraction float64 `yaml:"zero_conv_recovery_fraction"`
	CPAGapDampening          float64 `yaml:"cpa_gap_dampening"`
	MatchTypeSavingsFraction float64 `yaml:"match_type_savings_fraction"`

	BrandTerms          []string `yaml:"brand_terms"`
	LocalIntentPatterns []string `yaml:"local_intent_patterns"`
	IrrelevantPatterns  []string `yaml:"irrelevant_patterns"`
}

// ReportConfig bounds the compacted report.
type ReportConfig struct {
	MaxRecommendations int `yaml:"max_recommendations_per_report"`
	MaxReportBytes     int `yaml:"max_report_bytes"`
}

// ConfigurationError reports an invalid threshold or range detected at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Load reads and parses the configuration file, applying defaults for
// any zero-valued settings.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied and no
// provider credentials. Useful for tests and embedded use.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Fetch.PageSize == 0 {
		cfg.Fetch.PageSize = 1000
	}
	if cfg.Fetch.MaxIDsPerRequest == 0 {
		cfg.Fetch.MaxIDsPerRequest = 10000
	}
	if cfg.Fetch.MaxRetries == 0 {
		cfg.Fetch.MaxRetries = 3
	}
	if cfg.Fetch.RequestTimeoutSeconds == 0 {
		cfg.Fetch.RequestTimeoutSeconds = 120
	}
	if cfg.Fetch.CompletenessFloor == 0 {
		cfg.Fetch.CompletenessFloor = 0.8
	}

	if cfg.Quota.RequestsPerSecond == 0 {
		cfg.Quota.RequestsPerSecond = 10
	}
	if cfg.Quota.Burst == 0 {
		cfg.Quota.Burst = cfg.Quota.RequestsPerSecond
	}

	a := &cfg.Analysis
	if a.MinImpressions == 0 {
		a.MinImpressions = 100
	}
	if a.MinRecordsForAnalysis == 0 {
		a.MinRecordsForAnalysis = 10
	}
	if a.HighCostThreshold == 0 {
		a.HighCostThreshold = 100.0
	}
	if a.LowROASThreshold == 0 {
		a.LowROASThreshold = 1.5
	}
	if a.MaxBroadCPAMultiplier == 0 {
		a.MaxBroadCPAMultiplier = 2.0
	}
	if a.ExactMatchRatio == 0 {
		a.ExactMatchRatio = 0.6
	}
	if a.BidAdjustmentMin == 0 {
		a.BidAdjustmentMin = 0.20
	}
	if a.BidAdjustmentMax == 0 {
		a.BidAdjustmentMax = 0.50
	}
	if a.GeoOutperformMultiplier == 0 {
		a.GeoOutperformMultiplier = 2.0
	}
	if a.GeoMinConversions == 0 {
		a.GeoMinConversions = 10
	}
	if a.GeoExclusionSpendThreshold == 0 {
		a.GeoExclusionSpendThreshold = 500.0
	}
	if a.CannibalizationCPAMargin == 0 {
		a.CannibalizationCPAMargin = 0.30
	}
	if a.WasteRecoveryFraction == 0 {
		a.WasteRecoveryFraction = 0.7
	}
	if a.ZeroConvRecoveryFraction == 0 {
		a.ZeroConvRecoveryFraction = 0.8
	}
	if a.CPAGapDampening == 0 {
		a.CPAGapDampening = 0.5
	}
	if a.MatchTypeSavingsFraction == 0 {
		a.MatchTypeSavingsFraction = 0.5
	}
	if a.IrrelevantPatterns == nil {
		a.IrrelevantPatterns = []string{"free", "cheap", "diy", "jobs", "career", "salary"}
	}
	if a.LocalIntentPatterns == nil {
		a.LocalIntentPatterns = []string{"near me", "nearby", "open now", "directions to"}
	}

	if cfg.Report.MaxRecommendations == 0 {
		cfg.Report.MaxRecommendations = 10
	}
	if cfg.Report.MaxReportBytes == 0 {
		cfg.Report.MaxReportBytes = 16384
	}
}

// Validate checks threshold sanity. Invalid values are fatal for the run.
func (cfg *Config) Validate() error {
	if cfg.Fetch.PageSize < 1 {
		return &ConfigurationError{"fetch.page_size", "must be positive"}
	}
	if cfg.Fetch.PageSize > cfg.Fetch.MaxIDsPerRequest {
		return &ConfigurationError{"fetch.page_size", "exceeds max_ids_per_request"}
	}
	if cfg.Fetch.CompletenessFloor < 0 || cfg.Fetch.CompletenessFloor > 1 {
		return &ConfigurationError{"fetch.completeness_floor", "must be within [0,1]"}
	}
	if cfg.Fetch.RequestTimeoutSeconds < 1 {
		return &ConfigurationError{"fetch.request_timeout_seconds", "must be positive"}
	}
	a := cfg.Analysis
	if a.MinImpressions < 0 {
		return &ConfigurationError{"analysis.min_impressions", "must be non-negative"}
	}
	if a.HighCostThreshold < 0 {
		return &ConfigurationError{"analysis.high_cost_threshold", "must be non-negative"}
	}
	if a.LowROASThreshold < 0 {
		return &ConfigurationError{"analysis.low_roas_threshold", "must be non-negative"}
	}
	if a.MaxBroadCPAMultiplier <= 0 {
		return &ConfigurationError{"analysis.max_broad_cpa_multiplier", "must be positive"}
	}
	if a.ExactMatchRatio <= 0 || a.ExactMatchRatio > 1 {
		return &ConfigurationError{"analysis.exact_match_ratio_threshold", "must be within (0,1]"}
	}
	if a.BidAdjustmentMin < 0 || a.BidAdjustmentMax < a.BidAdjustmentMin {
		return &ConfigurationError{"analysis.bid_adjustment_range", "min must be non-negative and not exceed max"}
	}
	if a.GeoMinConversions < 0 {
		return &ConfigurationError{"analysis.geo_min_conversions", "must be non-negative"}
	}
	if a.GeoExclusionSpendThreshold < 0 {
		return &ConfigurationError{"analysis.geo_exclusion_spend_threshold", "must be non-negative"}
	}
	if a.CannibalizationCPAMargin < 0 {
		return &ConfigurationError{"analysis.cannibalization_cpa_margin", "must be non-negative"}
	}
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"analysis.waste_recovery_fraction", a.WasteRecoveryFraction},
		{"analysis.zero_conv_recovery_fraction", a.ZeroConvRecoveryFraction},
		{"analysis.cpa_gap_dampening", a.CPAGapDampening},
		{"analysis.match_type_savings_fraction", a.MatchTypeSavingsFraction},
	} {
		if f.val <= 0 || f.val >= 1 {
			return &ConfigurationError{f.name, "conservative multiplier must be within (0,1)"}
		}
	}
	if cfg.Report.MaxRecommendations < 1 {
		return &ConfigurationError{"report.max_recommendations_per_report", "must be positive"}
	}
	return nil
}

// MinImpressionsFor returns the per-category minimum-impressions threshold,
// falling back to the account-wide default.
func (a AnalysisConfig) MinImpressionsFor(category string) int {
	if v, ok := a.MinImpressionsPerCategory[category]; ok {
		return v
	}
	return a.MinImpressions
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets can
// live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ADS_API_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("ADS_DEVELOPER_TOKEN"); v != "" {
		cfg.Provider.DeveloperToken = v
	}
	if v := os.Getenv("ADS_CUSTOMER_ID"); v != "" {
		cfg.Provider.CustomerID = v
	}
	if v := os.Getenv("QUOTA_REDIS_URL"); v != "" {
		cfg.Quota.RedisURL = v
	}
	if v := os.Getenv("QUOTA_REQUESTS_PER_SECOND"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Quota.RequestsPerSecond = n
		}
	}

	return cfg, nil
}
