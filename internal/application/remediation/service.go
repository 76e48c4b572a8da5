package remediation

import (
	"context"
	"time"

	"github.com/finz/backend/internal/domain/allocation"
	"github.com/finz/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const reportTTL = 7 * 24 * time.Hour

// ReportCache keeps recent scan reports retrievable by scan ID
type ReportCache interface {
	// SaveReport stores a report with a TTL
	SaveReport(ctx context.Context, report *allocation.RemediationReport, ttl time.Duration) error

	// GetReport returns a stored report, or nil when none exists
	GetReport(ctx context.Context, scanID string) (*allocation.RemediationReport, error)
}

// ReportArchive persists scan reports to durable storage
type ReportArchive interface {
	// ArchiveReport stores a report and returns its storage key
	ArchiveReport(ctx context.Context, report *allocation.RemediationReport) (string, error)
}

// Service runs remediation scans and keeps their reports around. The
// cache and archive are both optional; a scan's outcome never depends
// on either being reachable.
type Service struct {
	scanner *Scanner
	cache   ReportCache
	archive ReportArchive
	logger  *zap.Logger
}

// NewService creates a new remediation Service
func NewService(scanner *Scanner, cache ReportCache, archive ReportArchive, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scanner: scanner,
		cache:   cache,
		archive: archive,
		logger:  logger,
	}
}

// Run executes one scan and stores its report. Cache and archive
// failures are logged and swallowed: the report in hand is the source
// of truth and still reaches the caller.
func (s *Service) Run(ctx context.Context, opts ScanOptions) (*allocation.RemediationReport, error) {
	report, err := s.scanner.Scan(ctx, opts)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SaveReport(ctx, report, reportTTL); err != nil {
			s.logger.Warn("remediation report cache failed",
				zap.String("scan_id", report.ScanID),
				zap.Error(err))
		}
	}

	if s.archive != nil {
		key, err := s.archive.ArchiveReport(ctx, report)
		if err != nil {
			s.logger.Warn("remediation report archive failed",
				zap.String("scan_id", report.ScanID),
				zap.Error(err))
		} else {
			s.logger.Info("remediation report archived",
				zap.String("scan_id", report.ScanID),
				zap.String("key", key))
		}
	}

	return report, nil
}

// GetReport returns a recent scan's report by ID
func (s *Service) GetReport(ctx context.Context, scanID string) (*allocation.RemediationReport, error) {
	if s.cache == nil {
		return nil, shared.ErrNotFound
	}
	report, err := s.cache.GetReport(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, shared.ErrNotFound
	}
	return report, nil
}
