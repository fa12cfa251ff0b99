package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/faultmap/faultmap-backend/internal/analysis"
)

type Config struct {
	Port               int      `mapstructure:"port"`
	GRPCPort           int      `mapstructure:"grpc_port"`
	LogLevel           string   `mapstructure:"log_level"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RequestTimeoutSec  int      `mapstructure:"request_timeout_sec"`  // HTTP read/write; 0 = use server default
	AnalysisTimeoutSec int      `mapstructure:"analysis_timeout_sec"` // Per-operation analysis context timeout
	ShutdownTimeoutSec int      `mapstructure:"shutdown_timeout_sec"` // Graceful shutdown wait

	// Graph store. Driver is "postgres", "sqlite", or "memory" (demo data).
	GraphDriver string `mapstructure:"graph_driver"`
	GraphDSN    string `mapstructure:"graph_dsn"`

	// Discovery change feed; empty disables the watcher (caches then expire
	// by TTL alone).
	DiscoveryFeedURL string `mapstructure:"discovery_feed_url"`

	// Deployment metadata; read from the graph store's deployment tables when
	// enabled.
	DeployMetaEnabled bool `mapstructure:"deploy_meta_enabled"`

	// Analysis knobs
	CacheTTLSec      int     `mapstructure:"cache_ttl_sec"`      // Analysis result cache TTL; 0 = cache disabled
	MaxDepth         int     `mapstructure:"max_depth"`          // Traversal depth cap
	MaxVisited       int     `mapstructure:"max_visited"`        // Traversal node-visit cap
	ThresholdProfile string  `mapstructure:"threshold_profile"`  // "standard" or "legacy"
	RuleProfile      string  `mapstructure:"rule_profile"`       // criticality table: "standard" or "legacy"
	MaxBodyBytes     int     `mapstructure:"max_body_bytes"`     // Max request body size; 0 = default 64KB
	TracingEndpoint  string  `mapstructure:"tracing_endpoint"`   // OTLP endpoint; empty disables tracing
	TracingSampling  float64 `mapstructure:"tracing_sampling"`   // [0,1] trace sampling rate
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/faultmap/")
	viper.AddConfigPath("$HOME/.faultmap")
	viper.AddConfigPath(".")

	// Defaults
	viper.SetDefault("port", 8080)
	viper.SetDefault("grpc_port", 9090)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("allowed_origins", []string{"*"})
	viper.SetDefault("request_timeout_sec", 30)
	viper.SetDefault("analysis_timeout_sec", 30)
	viper.SetDefault("shutdown_timeout_sec", 15)
	viper.SetDefault("graph_driver", "sqlite")
	viper.SetDefault("graph_dsn", "./faultmap.db")
	viper.SetDefault("discovery_feed_url", "")
	viper.SetDefault("deploy_meta_enabled", true)
	viper.SetDefault("cache_ttl_sec", 30)
	viper.SetDefault("max_depth", 10)
	viper.SetDefault("max_visited", 2000)
	viper.SetDefault("threshold_profile", "standard")
	viper.SetDefault("rule_profile", "standard")
	viper.SetDefault("max_body_bytes", 64*1024)
	viper.SetDefault("tracing_endpoint", "")
	viper.SetDefault("tracing_sampling", 0.1)

	// Environment variables
	viper.SetEnvPrefix("FAULTMAP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// AnalysisConfig materializes the analysis rule tables from the selected
// profiles and limits.
func (c *Config) AnalysisConfig() (analysis.Config, error) {
	cfg := analysis.DefaultConfig()

	switch c.ThresholdProfile {
	case "", "standard":
	case "legacy":
		cfg.Thresholds = analysis.LegacyThresholds()
	default:
		return cfg, fmt.Errorf("unknown threshold_profile %q", c.ThresholdProfile)
	}

	switch c.RuleProfile {
	case "", "standard":
	case "legacy":
		cfg.CriticalityRules = analysis.LegacyCriticalityRules()
	default:
		return cfg, fmt.Errorf("unknown rule_profile %q", c.RuleProfile)
	}

	if c.MaxDepth > 0 {
		cfg.MaxDepth = c.MaxDepth
	}
	if c.MaxVisited > 0 {
		cfg.MaxVisited = c.MaxVisited
	}
	return cfg, nil
}
