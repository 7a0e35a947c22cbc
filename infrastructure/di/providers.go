package di

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"memoryd/infrastructure/config"
	"memoryd/infrastructure/persistence/abstractions"
	"memoryd/infrastructure/persistence/filelog"
	"memoryd/infrastructure/persistence/redislist"
	"memoryd/pkg/auth"
	"memoryd/pkg/observability"
)

// developmentSecret keeps local setups working without JWT_SECRET set.
// Config.Validate rejects an empty secret in production.
const developmentSecret = "development-secret-change-in-production"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// ProvideStore creates the backend selected by configuration
func ProvideStore(cfg *config.Config, logger *zap.Logger) (abstractions.Store, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return filelog.New(cfg.MemoryDir, logger)
	case config.BackendRedis:
		return redislist.New(redislist.Options{
			Host:          cfg.RedisHost,
			Port:          cfg.RedisPort,
			DB:            cfg.RedisDB,
			Password:      cfg.RedisPassword,
			RetentionDays: cfg.RetentionDays,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// ProvideCollector creates the metrics collector
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("memoryd")
}

// ProvideJWTValidator creates the token validator
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		secret = developmentSecret
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
	})
}
