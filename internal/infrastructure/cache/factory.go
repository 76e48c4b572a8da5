package cache

import (
	"fmt"

	"github.com/finz/backend/internal/application/remediation"
	"github.com/finz/backend/internal/domain/allocation"
	"github.com/finz/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// RemediationStoreFactory creates remediation stores based on configuration
type RemediationStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// RemediationStoreFactoryOption is a functional option for configuring the factory
type RemediationStoreFactoryOption func(*RemediationStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) RemediationStoreFactoryOption {
	return func(f *RemediationStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory
// store when Redis is unavailable. Default is true (allow fallback)
func WithInMemoryFallback(allow bool) RemediationStoreFactoryOption {
	return func(f *RemediationStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewRemediationStoreFactory creates a new factory
func NewRemediationStoreFactory(cfg config.RedisConfig, opts ...RemediationStoreFactoryOption) *RemediationStoreFactory {
	f := &RemediationStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// RemediationStore is the combined surface both backends provide:
// checkpoint persistence plus report caching.
type RemediationStore interface {
	allocation.CheckpointStore
	remediation.ReportCache
	Close() error
}

// CreateRedisStore creates a Redis-based remediation store
func (f *RemediationStoreFactory) CreateRedisStore() (*RedisRemediationStore, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	store, err := NewRedisRemediationStore(redisCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis remediation store: %w", err)
	}

	return store, nil
}

// CreateInMemoryStore creates an in-memory remediation store
// This is suitable for single-instance deployments and testing
// WARNING: in-memory stores do not share state across process
// instances, so an interrupted scan can only resume on the instance
// that started it
func (f *RemediationStoreFactory) CreateInMemoryStore() *InMemoryRemediationStore {
	return NewInMemoryRemediationStore()
}

// CreateStore creates a remediation store based on whether Redis is
// available. It tries Redis first and falls back to in-memory when
// Redis is unreachable and AllowInMemoryFallback is true
func (f *RemediationStoreFactory) CreateStore() (RemediationStore, error) {
	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("using Redis remediation store")
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for remediation checkpoints but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory remediation store. "+
		"Interrupted scans will only be resumable on this instance.",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}
