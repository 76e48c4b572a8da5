// Package storage provides object storage backends for archived scan reports.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/finz/backend/internal/application/remediation"
	"github.com/finz/backend/internal/domain/allocation"
)

// StubReportArchive is an in-process placeholder for ReportArchive.
// Use this for development until a real storage backend (S3, RustFS,
// etc.) is configured; archived reports live only as long as the
// process does.
type StubReportArchive struct {
	mu      sync.Mutex
	reports map[string]*allocation.RemediationReport
}

// NewStubReportArchive creates a new StubReportArchive
func NewStubReportArchive() *StubReportArchive {
	return &StubReportArchive{
		reports: make(map[string]*allocation.RemediationReport),
	}
}

// Ensure StubReportArchive implements ReportArchive
var _ remediation.ReportArchive = (*StubReportArchive)(nil)

// ArchiveReport keeps the report in memory and returns a key shaped
// like the real archive's
func (s *StubReportArchive) ArchiveReport(ctx context.Context, report *allocation.RemediationReport) (string, error) {
	if report == nil {
		return "", errors.New("report is required")
	}
	if report.ScanID == "" {
		return "", errors.New("report scan ID is required")
	}

	key := fmt.Sprintf("remediation/%s/%s.json", report.StartedAt.UTC().Format("2006-01-02"), report.ScanID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[key] = report
	return key, nil
}

// Get returns an archived report by key (for testing)
func (s *StubReportArchive) Get(key string) (*allocation.RemediationReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[key]
	return report, ok
}

// Size returns the number of archived reports (for testing)
func (s *StubReportArchive) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}
