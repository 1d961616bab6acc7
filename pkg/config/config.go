package config

// Package config loads the node's YAML defaults and optional per-environment
// override files. The surface is deliberately small: one Config struct for
// the DAG node, resolved in a single pass over defaults, overrides and the
// process environment.

import (
	"github.com/spf13/viper"

	"tangle-network/pkg/utils"
)

// searchPaths are the directories probed for config files, in order.
var searchPaths = []string{"cmd/config", "config"}

// Config mirrors the structure of the YAML files under cmd/config.
type Config struct {
	Node struct {
		APIName     string   `mapstructure:"api_name" json:"api_name"`
		ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
		ExternalURL string   `mapstructure:"external_url" json:"external_url"`
		Neighbors   []string `mapstructure:"neighbors" json:"neighbors"`
	} `mapstructure:"node" json:"node"`

	DAG struct {
		MinimalDegree    int    `mapstructure:"minimal_degree" json:"minimal_degree"`
		BlockMBSizeLimit int    `mapstructure:"block_mb_size_limit" json:"block_mb_size_limit"`
		SnapshotPath     string `mapstructure:"snapshot_path" json:"snapshot_path"`
	} `mapstructure:"dag" json:"dag"`

	Ledger struct {
		DecimalPlaces    int    `mapstructure:"decimal_places" json:"decimal_places"`
		GenesisPublicKey string `mapstructure:"genesis_public_key" json:"genesis_public_key"`
	} `mapstructure:"ledger" json:"ledger"`

	API struct {
		RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second" json:"rate_limit_per_second"`
		RateLimitBurst     int     `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`
	} `mapstructure:"api" json:"api"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration from the most recent Load.
var AppConfig Config

// Load resolves the configuration: the default file, then the override file
// named by env (when nonempty) on top, then the process environment. Each
// call works on its own viper instance, so loads never leak state into one
// another.
func Load(env string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	for _, dir := range searchPaths {
		v.AddConfigPath(dir)
	}

	v.SetConfigName("default")
	if err := v.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "read default config")
	}
	if env != "" {
		v.SetConfigName(env)
		if err := v.MergeInConfig(); err != nil {
			return nil, utils.Wrapf(err, "merge %s overrides", env)
		}
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, utils.Wrap(err, "decode config")
	}
	AppConfig = *cfg
	return cfg, nil
}

// LoadFromEnv loads configuration for the environment named by TANGLE_ENV.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("TANGLE_ENV", ""))
}
