// Package config loads the SDK's runtime Options from environment
// variables and an optional .env file, grounded on the
// internal/config/config.go (viper.AutomaticEnv, typed getters, a
// validateConfig pass).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Options is spec.md §6's enumerated configuration table.
type Options struct {
	SDKKey string

	SpecsURL    string
	LogEventURL string
	IDListsURL  string

	SpecsSyncInterval   time.Duration
	IDListsSyncInterval time.Duration
	EnableIDLists       bool

	EventLoggingMaxQueueSize            int
	EventLoggingMaxPendingBatchQueueSize int
	EventLoggingFlushInterval           time.Duration

	InitTimeout time.Duration

	Environment string

	DisableAllLogging bool
	DisableNetwork    bool

	FallbackToStatsigAPI bool
	OutputLogLevel       int

	EnableCountryLookup     bool
	EnableUserAgentParsing  bool

	ServiceName string

	DatabaseDSN string
}

const (
	defaultSpecsURL           = "https://api.statsigcdn.com/v2/download_config_specs"
	defaultLogEventURL        = "https://prodregistryv2.org/v1/log_event"
	defaultIDListsURL         = "https://api.statsig.com/v1"
	defaultSpecsSyncMS        = 10_000
	defaultIDListsSyncMS      = 60_000
	defaultMaxQueueSize       = 10_000
	defaultMaxPendingBatches  = 60
	defaultFlushIntervalMS    = 60_000
	defaultInitTimeoutMS      = 3_000
)

// Load reads Options from the environment (and an optional .env file),
// environment variables taking precedence, applying spec.md §6's defaults.
func Load() (*Options, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	_ = v.ReadInConfig()
	v.AutomaticEnv()
	setDefaults(v)

	opts := &Options{
		SDKKey:      strings.TrimSpace(v.GetString("STATSIG_SDK_KEY")),
		SpecsURL:    strings.TrimSpace(v.GetString("STATSIG_SPECS_URL")),
		LogEventURL: strings.TrimSpace(v.GetString("STATSIG_LOG_EVENT_URL")),
		IDListsURL:  strings.TrimSpace(v.GetString("STATSIG_ID_LISTS_URL")),

		SpecsSyncInterval:   time.Duration(v.GetInt("STATSIG_SPECS_SYNC_INTERVAL_MS")) * time.Millisecond,
		IDListsSyncInterval: time.Duration(v.GetInt("STATSIG_ID_LISTS_SYNC_INTERVAL_MS")) * time.Millisecond,
		EnableIDLists:       v.GetBool("STATSIG_ENABLE_ID_LISTS"),

		EventLoggingMaxQueueSize:             v.GetInt("STATSIG_EVENT_LOGGING_MAX_QUEUE_SIZE"),
		EventLoggingMaxPendingBatchQueueSize: v.GetInt("STATSIG_EVENT_LOGGING_MAX_PENDING_BATCH_QUEUE_SIZE"),
		EventLoggingFlushInterval:            time.Duration(v.GetInt("STATSIG_EVENT_LOGGING_FLUSH_INTERVAL_MS")) * time.Millisecond,

		InitTimeout: time.Duration(v.GetInt("STATSIG_INIT_TIMEOUT_MS")) * time.Millisecond,

		Environment: strings.TrimSpace(v.GetString("STATSIG_ENVIRONMENT")),

		DisableAllLogging: v.GetBool("STATSIG_DISABLE_ALL_LOGGING"),
		DisableNetwork:    v.GetBool("STATSIG_DISABLE_NETWORK"),

		FallbackToStatsigAPI: v.GetBool("STATSIG_FALLBACK_TO_STATSIG_API"),
		OutputLogLevel:       v.GetInt("STATSIG_OUTPUT_LOG_LEVEL"),

		EnableCountryLookup:    v.GetBool("STATSIG_ENABLE_COUNTRY_LOOKUP"),
		EnableUserAgentParsing: v.GetBool("STATSIG_ENABLE_USER_AGENT_PARSING"),

		ServiceName: strings.TrimSpace(v.GetString("STATSIG_SERVICE_NAME")),

		DatabaseDSN: strings.TrimSpace(v.GetString("STATSIG_DATA_STORE_DSN")),
	}

	if err := validate(opts); err != nil {
		return nil, err
	}
	return opts, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("STATSIG_SPECS_URL", defaultSpecsURL)
	v.SetDefault("STATSIG_LOG_EVENT_URL", defaultLogEventURL)
	v.SetDefault("STATSIG_ID_LISTS_URL", defaultIDListsURL)
	v.SetDefault("STATSIG_SPECS_SYNC_INTERVAL_MS", defaultSpecsSyncMS)
	v.SetDefault("STATSIG_ID_LISTS_SYNC_INTERVAL_MS", defaultIDListsSyncMS)
	v.SetDefault("STATSIG_ENABLE_ID_LISTS", false)
	v.SetDefault("STATSIG_EVENT_LOGGING_MAX_QUEUE_SIZE", defaultMaxQueueSize)
	v.SetDefault("STATSIG_EVENT_LOGGING_MAX_PENDING_BATCH_QUEUE_SIZE", defaultMaxPendingBatches)
	v.SetDefault("STATSIG_EVENT_LOGGING_FLUSH_INTERVAL_MS", defaultFlushIntervalMS)
	v.SetDefault("STATSIG_INIT_TIMEOUT_MS", defaultInitTimeoutMS)
	v.SetDefault("STATSIG_ENVIRONMENT", "production")
	v.SetDefault("STATSIG_FALLBACK_TO_STATSIG_API", true)
	v.SetDefault("STATSIG_OUTPUT_LOG_LEVEL", 2)
	v.SetDefault("STATSIG_SERVICE_NAME", "statsig-go-sdk")
}

func validate(o *Options) error {
	if o.SDKKey == "" {
		return fmt.Errorf("STATSIG_SDK_KEY must not be empty")
	}
	if o.OutputLogLevel < 0 || o.OutputLogLevel > 4 {
		return fmt.Errorf("STATSIG_OUTPUT_LOG_LEVEL must be within 0..4, got %d", o.OutputLogLevel)
	}
	if o.EventLoggingMaxQueueSize <= 0 {
		return fmt.Errorf("STATSIG_EVENT_LOGGING_MAX_QUEUE_SIZE must be positive")
	}
	return nil
}
