package cache

import (
	"context"
	"sync"
	"time"

	"github.com/finz/backend/internal/application/remediation"
	"github.com/finz/backend/internal/domain/allocation"
)

type checkpointEntry struct {
	checkpoint allocation.Checkpoint
	expiresAt  time.Time
}

type reportEntry struct {
	report    allocation.RemediationReport
	expiresAt time.Time
}

// InMemoryRemediationStore keeps remediation checkpoints and reports in
// process memory. This is suitable for single-instance deployments and
// testing; an interrupted scan is only resumable on the same instance.
type InMemoryRemediationStore struct {
	mu          sync.RWMutex
	checkpoints map[string]checkpointEntry
	reports     map[string]reportEntry
	stopChan    chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// NewInMemoryRemediationStore creates a new in-memory remediation store
// It starts a background goroutine to clean up expired entries
func NewInMemoryRemediationStore() *InMemoryRemediationStore {
	store := &InMemoryRemediationStore{
		checkpoints: make(map[string]checkpointEntry),
		reports:     make(map[string]reportEntry),
		stopChan:    make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// SaveCheckpoint stores scan progress with a TTL
func (s *InMemoryRemediationStore) SaveCheckpoint(ctx context.Context, checkpoint allocation.Checkpoint, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoints[checkpoint.ScanID] = checkpointEntry{
		checkpoint: checkpoint,
		expiresAt:  time.Now().Add(ttl),
	}
	return nil
}

// LoadCheckpoint returns the stored progress for a scan, or nil when
// none exists
func (s *InMemoryRemediationStore) LoadCheckpoint(ctx context.Context, scanID string) (*allocation.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.checkpoints[scanID]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, nil
	}

	checkpoint := e.checkpoint
	return &checkpoint, nil
}

// ClearCheckpoint removes stored progress once a scan completes
func (s *InMemoryRemediationStore) ClearCheckpoint(ctx context.Context, scanID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, scanID)
	return nil
}

// SaveReport stores a finished scan report with a TTL
func (s *InMemoryRemediationStore) SaveReport(ctx context.Context, report *allocation.RemediationReport, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[report.ScanID] = reportEntry{
		report:    *report,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// GetReport returns a stored scan report, or nil when none exists
func (s *InMemoryRemediationStore) GetReport(ctx context.Context, scanID string) (*allocation.RemediationReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.reports[scanID]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, nil
	}

	report := e.report
	return &report, nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (s *InMemoryRemediationStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryRemediationStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryRemediationStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for scanID, e := range s.checkpoints {
		if now.After(e.expiresAt) {
			delete(s.checkpoints, scanID)
		}
	}
	for scanID, e := range s.reports {
		if now.After(e.expiresAt) {
			delete(s.reports, scanID)
		}
	}
}

// Size returns the number of stored checkpoints (for testing/monitoring)
func (s *InMemoryRemediationStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.checkpoints)
}

// Ensure InMemoryRemediationStore implements both remediation ports
var (
	_ allocation.CheckpointStore = (*InMemoryRemediationStore)(nil)
	_ remediation.ReportCache    = (*InMemoryRemediationStore)(nil)
)
