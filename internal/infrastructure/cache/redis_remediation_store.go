package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/finz/backend/internal/application/remediation"
	"github.com/finz/backend/internal/domain/allocation"
	"github.com/redis/go-redis/v9"
)

// RedisRemediationStore keeps remediation scan checkpoints and reports
// in Redis. This is suitable for distributed deployments where a scan
// interrupted on one instance must be resumable from another.
type RedisRemediationStore struct {
	client           *redis.Client
	checkpointPrefix string
	reportPrefix     string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisRemediationStore creates a new Redis-based remediation store
func NewRedisRemediationStore(cfg RedisConfig) (*RedisRemediationStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRemediationStore{
		client:           client,
		checkpointPrefix: "remediation:checkpoint:",
		reportPrefix:     "remediation:report:",
	}, nil
}

// NewRedisRemediationStoreWithClient creates a store with an existing
// Redis client. This is useful for testing or when sharing a client
// across components
func NewRedisRemediationStoreWithClient(client *redis.Client) *RedisRemediationStore {
	return &RedisRemediationStore{
		client:           client,
		checkpointPrefix: "remediation:checkpoint:",
		reportPrefix:     "remediation:report:",
	}
}

// SaveCheckpoint stores scan progress with a TTL
func (s *RedisRemediationStore) SaveCheckpoint(ctx context.Context, checkpoint allocation.Checkpoint, ttl time.Duration) error {
	payload, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	key := s.checkpointPrefix + checkpoint.ScanID
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the stored progress for a scan, or nil when
// none exists
func (s *RedisRemediationStore) LoadCheckpoint(ctx context.Context, scanID string) (*allocation.Checkpoint, error) {
	payload, err := s.client.Get(ctx, s.checkpointPrefix+scanID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var checkpoint allocation.Checkpoint
	if err := json.Unmarshal(payload, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &checkpoint, nil
}

// ClearCheckpoint removes stored progress once a scan completes
func (s *RedisRemediationStore) ClearCheckpoint(ctx context.Context, scanID string) error {
	if err := s.client.Del(ctx, s.checkpointPrefix+scanID).Err(); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	return nil
}

// SaveReport stores a finished scan report with a TTL
func (s *RedisRemediationStore) SaveReport(ctx context.Context, report *allocation.RemediationReport, ttl time.Duration) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	key := s.reportPrefix + report.ScanID
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport returns a stored scan report, or nil when none exists
func (s *RedisRemediationStore) GetReport(ctx context.Context, scanID string) (*allocation.RemediationReport, error) {
	payload, err := s.client.Get(ctx, s.reportPrefix+scanID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	var report allocation.RemediationReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

// Close closes the Redis client
func (s *RedisRemediationStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisRemediationStore) GetClient() *redis.Client {
	return s.client
}

// Ensure RedisRemediationStore implements both remediation ports
var (
	_ allocation.CheckpointStore = (*RedisRemediationStore)(nil)
	_ remediation.ReportCache    = (*RedisRemediationStore)(nil)
)
