package di

import (
	"io"

	"go.uber.org/zap"

	"memoryd/application/services"
	"memoryd/infrastructure/config"
	"memoryd/infrastructure/persistence/abstractions"
	"memoryd/pkg/auth"
	"memoryd/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Store        abstractions.Store
	Metrics      *observability.Collector
	JWTValidator *auth.JWTValidator
	Memory       *services.MemoryService
	Context      *services.ContextService
	Insight      *services.InsightService
}

// InitializeContainer creates a fully wired container
func InitializeContainer(cfg *config.Config) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	store, err := ProvideStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	validator, err := ProvideJWTValidator(cfg)
	if err != nil {
		return nil, err
	}

	metrics := ProvideCollector()
	memorySvc := services.NewMemoryService(store, metrics, logger)

	return &Container{
		Config:       cfg,
		Logger:       logger,
		Store:        store,
		Metrics:      metrics,
		JWTValidator: validator,
		Memory:       memorySvc,
		Context:      services.NewContextService(memorySvc, logger),
		Insight:      services.NewInsightService(memorySvc, logger),
	}, nil
}

// Cleanup releases resources held by the container
func (c *Container) Cleanup() {
	if closer, ok := c.Store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			c.Logger.Warn("store close failed", zap.Error(err))
		}
	}
	c.Logger.Sync()
}
