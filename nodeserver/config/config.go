package config

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	pkgconfig "tangle-network/pkg/config"
	"tangle-network/pkg/utils"
)

// ServerConfig is the fully resolved node server configuration: YAML
// defaults from cmd/config merged with the recognized environment
// variables. Environment wins.
type ServerConfig struct {
	APIName     string
	ListenAddr  string
	ExternalURL string
	Neighbors   []string

	SnapshotPath     string
	MinimalDegree    int
	BlockMBSizeLimit int
	DecimalPlaces    int

	GenesisPublicKey   string
	SebastianPublicKey string

	IsProduction         bool
	ProductionServerURL  string
	DevelopmentServerURL string
	LocalhostServerURL   string

	RateLimitPerSecond float64
	RateLimitBurst     int
	LogLevel           string
}

// AppConfig holds the loaded server configuration.
var AppConfig ServerConfig

// Load resolves the configuration. A missing .env or YAML file is not
// fatal; built-in defaults and the process environment still apply.
func Load() error {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("config: no .env file: %v", err)
	}

	base, err := pkgconfig.LoadFromEnv()
	if err != nil {
		logrus.Warnf("config: yaml defaults unavailable: %v", err)
		base = &pkgconfig.Config{}
	}

	cfg := ServerConfig{
		APIName:    utils.EnvOrDefault("API_NAME", base.Node.APIName),
		ListenAddr: utils.EnvOrDefault("LISTEN_ADDR", base.Node.ListenAddr),
		Neighbors:  base.Node.Neighbors,

		SnapshotPath:     utils.EnvOrDefault("SNAPSHOT_PATH", base.DAG.SnapshotPath),
		MinimalDegree:    base.DAG.MinimalDegree,
		BlockMBSizeLimit: base.DAG.BlockMBSizeLimit,
		DecimalPlaces:    base.Ledger.DecimalPlaces,

		GenesisPublicKey:   utils.EnvOrDefault("GENESIS_PUBLIC_KEY", base.Ledger.GenesisPublicKey),
		SebastianPublicKey: utils.EnvOrDefault("SEBASTIAN_PUBLIC_KEY", ""),

		IsProduction:         utils.EnvOrDefaultBool("IS_PRODUCTION", false),
		ProductionServerURL:  utils.EnvOrDefault("PRODUCTION_SERVER_URL", ""),
		DevelopmentServerURL: utils.EnvOrDefault("DEVELOPMENT_SERVER_URL", ""),
		LocalhostServerURL:   utils.EnvOrDefault("LOCALHOST_SERVER_URL", "http://localhost:8000/"),

		RateLimitPerSecond: base.API.RateLimitPerSecond,
		RateLimitBurst:     base.API.RateLimitBurst,
		LogLevel:           utils.EnvOrDefault("LOG_LEVEL", base.Logging.Level),
	}

	if cfg.APIName == "" {
		cfg.APIName = "tangle"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8000"
	}
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = "shared/blockchain.json"
	}
	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = 20
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}

	// The node's own advertised URL follows the deployment flavor, the
	// way the reciprocal connect expects it.
	cfg.ExternalURL = utils.EnvOrDefault("EXTERNAL_URL", base.Node.ExternalURL)
	if cfg.ExternalURL == "" {
		if cfg.IsProduction {
			cfg.ExternalURL = cfg.ProductionServerURL
		} else {
			cfg.ExternalURL = cfg.LocalhostServerURL
		}
	}

	AppConfig = cfg
	return nil
}
