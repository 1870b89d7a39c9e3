package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr   string
	PGDSN        string
	MongoURI     string
	RedisAddr    string
	RabbitURL    string
	OTLPEndpoint string

	// OwnerAddress is the single administrator; fixed for the process lifetime.
	OwnerAddress string
	// VaultAddress receives token payments pulled via transfer-from.
	VaultAddress string
	// TokenAddress is the token contract settlements pull from.
	TokenAddress string
	// SettlementURL is the gateway executing transfers. Empty means dev mode:
	// transfers are logged, not executed.
	SettlementURL string

	// Fixed conversion constants; there is no dynamic pricing.
	EthToUSDRate    uint64
	AdminFeePercent uint64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	rate := envUint("ETH_TO_USD_RATE", 3000)
	feePercent := envUint("ADMIN_FEE_PERCENT", 10)

	listen := os.Getenv("LISTEN_ADDR")
	if listen == "" {
		listen = ":8080"
	}

	return &Config{
		ListenAddr:      listen,
		PGDSN:           os.Getenv("PG_DSN"),
		MongoURI:        os.Getenv("MONGO_URI"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RabbitURL:       os.Getenv("RABBIT_URL"),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OwnerAddress:    os.Getenv("OWNER_ADDRESS"),
		VaultAddress:    os.Getenv("VAULT_ADDRESS"),
		TokenAddress:    os.Getenv("TOKEN_ADDRESS"),
		SettlementURL:   os.Getenv("SETTLEMENT_URL"),
		EthToUSDRate:    rate,
		AdminFeePercent: feePercent,
	}, nil
}

func envUint(key string, fallback uint64) uint64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
