package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	// Mode
	NodeEnv string
	CI      bool

	// Database
	MongoDevelopmentURI string
	MongoProductionURI  string
	MongoDatabase       string
	RedisURL            string
	PostgresDSN         string // audit log, optional

	// Auth
	JWTSecret     string
	JWTExpiration time.Duration
	NonceTTL      time.Duration

	// Chain
	EthNodeURL              string
	ChainID                 int64
	CampaignContractAddress string
	CampaignContractABIPath string

	// Rate limit
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Uploads
	UploadMaxBytes int64
	UploadDir      string
	PublicURL      string
	S3Bucket       string
	S3Region       string
	S3EndpointURL  string

	// Indexer
	IndexerStartBlock    uint64
	IndexerConfirmations uint64
	IndexerPollInterval  time.Duration
	IndexerBatchSize     uint64

	// Server
	Port string
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		NodeEnv: getEnv("NODE_ENV", EnvDevelopment),
		CI:      os.Getenv("CI") != "",

		MongoDevelopmentURI: getEnv("MONGO_DEVELOPMENT_URI", "mongodb://localhost:27017"),
		MongoProductionURI:  getEnv("MONGO_PRODUCTION_URI", ""),
		MongoDatabase:       getEnv("MONGO_DATABASE", "crowdfund"),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
		PostgresDSN:         getEnv("POSTGRES_DSN", ""),

		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpiration: time.Duration(getEnvInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		NonceTTL:      time.Duration(getEnvInt("AUTH_NONCE_TTL_SECONDS", 300)) * time.Second,

		EthNodeURL:              getEnv("ETH_NODE_URL", "http://localhost:8545"),
		ChainID:                 int64(getEnvInt("CHAIN_ID", 11155111)),
		CampaignContractAddress: getEnv("CAMPAIGN_CONTRACT_ADDRESS", ""),
		CampaignContractABIPath: getEnv("CAMPAIGN_CONTRACT_ABI_PATH", ""),

		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 200),
		RateLimitWindow: time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		UploadMaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 5*1024*1024)),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		PublicURL:      getEnv("PUBLIC_URL", "http://localhost:8080"),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3EndpointURL:  getEnv("S3_ENDPOINT_URL", ""),

		IndexerStartBlock:    uint64(getEnvInt("INDEXER_START_BLOCK", 0)),
		IndexerConfirmations: uint64(getEnvInt("INDEXER_CONFIRMATIONS", 2)),
		IndexerPollInterval:  time.Duration(getEnvInt("INDEXER_POLL_SECONDS", 5)) * time.Second,
		IndexerBatchSize:     uint64(getEnvInt("INDEXER_BATCH_SIZE", 2000)),

		Port: getEnv("PORT", "8080"),
	}

	return cfg
}

// MongoURI picks the connection string for the current deployment mode.
func (c *Config) MongoURI() string {
	if c.NodeEnv == EnvProduction {
		return c.MongoProductionURI
	}
	return c.MongoDevelopmentURI
}

func (c *Config) IsProduction() bool {
	return c.NodeEnv == EnvProduction
}

func (c *Config) Validate(log *zap.Logger) {
	if c.JWTSecret == "change-me-in-production" {
		log.Warn("JWT_SECRET is default, change in production")
	}
	if c.IsProduction() && c.MongoProductionURI == "" {
		log.Warn("MONGO_PRODUCTION_URI is not set")
	}
	if c.CampaignContractAddress == "" {
		log.Warn("CAMPAIGN_CONTRACT_ADDRESS is not set")
	}
	if c.PostgresDSN == "" {
		log.Info("POSTGRES_DSN is not set, audit log disabled")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
