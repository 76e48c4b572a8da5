package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/finz/backend/internal/domain/allocation"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// cronTickerInterval is the interval at which the cron scheduler checks for execution
const cronTickerInterval = 1 * time.Minute

// RemediationCronSchedulerConfig holds configuration for the nightly
// remediation scan scheduler
type RemediationCronSchedulerConfig struct {
	// Enabled indicates if the cron scheduler is enabled
	Enabled bool
	// CronHour is the hour (0-23) to run the nightly scan
	CronHour int
	// CronMinute is the minute (0-59) to run the nightly scan
	CronMinute int
	// DailyCronSchedule is the cron expression (parsed to extract hour/minute)
	DailyCronSchedule string
	// Mode is the scan mode for scheduled runs. Nightly runs default to
	// DRY_RUN; rewrites stay an explicit operator action.
	Mode allocation.ScanMode
	// BatchSize bounds each scan page
	BatchSize int
	// JobTimeout is the maximum time a single scan job can run
	JobTimeout time.Duration
	// MaxConcurrentJobs is the maximum number of concurrent scan jobs
	MaxConcurrentJobs int
	// RetryAttempts is the number of retry attempts for failed jobs
	RetryAttempts int
	// RetryDelay is the delay between retries
	RetryDelay time.Duration
}

// DefaultRemediationCronSchedulerConfig returns default cron scheduler
// configuration. Defaults to a dry run at 3:00 AM daily
func DefaultRemediationCronSchedulerConfig() RemediationCronSchedulerConfig {
	return RemediationCronSchedulerConfig{
		Enabled:           true,
		CronHour:          3, // 3 AM
		CronMinute:        0, // 0 minutes
		DailyCronSchedule: "0 3 * * *",
		Mode:              allocation.ScanModeDryRun,
		JobTimeout:        30 * time.Minute,
		MaxConcurrentJobs: 1,
		RetryAttempts:     3,
		RetryDelay:        5 * time.Minute,
	}
}

// ParseCronSchedule parses a cron expression "minute hour * * *" to extract hour and minute
// Returns defaults (3:00) if parsing fails or expression is empty
func ParseCronSchedule(cronExpr string) (hour, minute int, err error) {
	// Default values
	hour = 3
	minute = 0

	if cronExpr == "" {
		return hour, minute, nil
	}

	// Use strings.Fields for simple whitespace splitting
	parts := strings.Fields(cronExpr)

	if len(parts) < 2 {
		return hour, minute, nil
	}

	// Parse minute
	if parts[0] != "*" {
		if val, parseErr := parseIntOrDefault(parts[0], 0); parseErr == nil {
			minute = val
		}
	}

	// Parse hour
	if parts[1] != "*" {
		if val, parseErr := parseIntOrDefault(parts[1], 3); parseErr == nil {
			hour = val
		}
	}

	// Validate ranges
	if minute < 0 || minute > 59 {
		return 3, 0, fmt.Errorf("minute must be 0-59, got %d", minute)
	}
	if hour < 0 || hour > 23 {
		return 3, 0, fmt.Errorf("hour must be 0-23, got %d", hour)
	}

	return hour, minute, nil
}

// parseIntOrDefault parses an int string or returns default
func parseIntOrDefault(s string, defaultVal int) (int, error) {
	if s == "" || s == "*" {
		return defaultVal, nil
	}
	var val int
	for _, c := range s {
		if c < '0' || c > '9' {
			return defaultVal, ErrInvalidConfig
		}
		val = val*10 + int(c-'0')
	}
	return val, nil
}

// ScanJobRecord represents a record of a scheduled scan execution
type ScanJobRecord struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ScanID      string     `gorm:"column:scan_id;size:64;not null"`
	Mode        string     `gorm:"column:mode;size:20;not null"`
	Status      string     `gorm:"column:last_run_status;size:20"`
	Error       string     `gorm:"column:last_error;type:text"`
	StartedAt   *time.Time `gorm:"column:last_run_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	NextRunAt   *time.Time `gorm:"column:next_run_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name for GORM
func (ScanJobRecord) TableName() string {
	return "remediation_scheduler_jobs"
}

// ScanJobRepository handles persistence of scheduler job records
type ScanJobRepository struct {
	db *gorm.DB
}

// NewScanJobRepository creates a new ScanJobRepository
func NewScanJobRepository(db *gorm.DB) *ScanJobRepository {
	return &ScanJobRepository{db: db}
}

// RecordJobStart records the start of a scan execution
func (r *ScanJobRepository) RecordJobStart(ctx context.Context, scanID string, mode allocation.ScanMode) (uuid.UUID, error) {
	now := time.Now()
	record := &ScanJobRecord{
		ID:        uuid.New(),
		ScanID:    scanID,
		Mode:      mode.String(),
		Status:    string(JobStatusRunning),
		StartedAt: &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return uuid.Nil, err
	}
	return record.ID, nil
}

// RecordJobComplete records the completion of a scan
func (r *ScanJobRepository) RecordJobComplete(ctx context.Context, jobID uuid.UUID, success bool, errMsg string) error {
	now := time.Now()
	status := string(JobStatusSuccess)
	if !success {
		status = string(JobStatusFailed)
	}
	return r.db.WithContext(ctx).
		Model(&ScanJobRecord{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"last_run_status": status,
			"last_error":      errMsg,
			"completed_at":    now,
			"updated_at":      now,
		}).Error
}

// GetLastJobStatus gets the most recent scan execution record
func (r *ScanJobRepository) GetLastJobStatus(ctx context.Context) (*ScanJobRecord, error) {
	var record ScanJobRecord
	if err := r.db.WithContext(ctx).Order("last_run_at DESC").First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// RemediationCronScheduler runs the nightly ledger hygiene scan. Each
// night it submits one dry-run scan of the whole allocation ledger, so
// legacy identifiers that crept in are surfaced before anyone applies
// a rewrite.
type RemediationCronScheduler struct {
	config    RemediationCronSchedulerConfig
	executor  JobExecutor
	jobRepo   *ScanJobRepository
	logger    *zap.Logger
	scheduler *Scheduler

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Last execution tracking
	lastRunAt *time.Time
	nextRunAt *time.Time
}

// NewRemediationCronScheduler creates a new cron-based scan scheduler
func NewRemediationCronScheduler(
	config RemediationCronSchedulerConfig,
	executor JobExecutor,
	jobRepo *ScanJobRepository,
	logger *zap.Logger,
) *RemediationCronScheduler {
	schedulerConfig := SchedulerConfig{
		Enabled:           config.Enabled,
		MaxConcurrentJobs: config.MaxConcurrentJobs,
		JobTimeout:        config.JobTimeout,
		RetryAttempts:     config.RetryAttempts,
		RetryDelay:        config.RetryDelay,
	}
	scheduler := NewScheduler(schedulerConfig, executor, logger)

	return &RemediationCronScheduler{
		config:    config,
		executor:  executor,
		jobRepo:   jobRepo,
		logger:    logger,
		scheduler: scheduler,
	}
}

// Start starts the cron scheduler
func (s *RemediationCronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	// Start the underlying job scheduler
	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	// Calculate next run time
	s.calculateNextRunTime()

	// Start the cron ticker
	s.wg.Add(1)
	go s.cronLoop(ctx)

	s.logger.Info("Remediation cron scheduler started",
		zap.Int("cron_hour", s.config.CronHour),
		zap.Int("cron_minute", s.config.CronMinute),
		zap.String("mode", s.config.Mode.String()),
		zap.Timep("next_run_at", s.nextRunAt),
	)

	return nil
}

// Stop stops the cron scheduler
func (s *RemediationCronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	// Cancel the cron loop
	if s.cancel != nil {
		s.cancel()
	}

	// Wait for cron loop to finish
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// Now stop the underlying scheduler
		if err := s.scheduler.Stop(ctx); err != nil {
			s.logger.Warn("Error stopping underlying scheduler", zap.Error(err))
		}
		s.logger.Info("Remediation cron scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Remediation cron scheduler stop timed out")
		return ctx.Err()
	}
}

// cronLoop runs the main cron loop
func (s *RemediationCronScheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	// Use a ticker that checks every minute for cron execution
	ticker := time.NewTicker(cronTickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.runNightlyScan(ctx)
				s.calculateNextRunTime()
			}
		}
	}
}

// shouldRun checks if the cron should run at the given time
func (s *RemediationCronScheduler) shouldRun(now time.Time) bool {
	return now.Hour() == s.config.CronHour && now.Minute() == s.config.CronMinute
}

// calculateNextRunTime calculates the next run time
func (s *RemediationCronScheduler) calculateNextRunTime() {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.CronHour, s.config.CronMinute, 0, 0, now.Location())

	// If we've already passed today's run time, schedule for tomorrow
	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}

	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()
}

// runNightlyScan submits the nightly scan job
func (s *RemediationCronScheduler) runNightlyScan(ctx context.Context) {
	s.logger.Info("Starting nightly remediation scan")

	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	scanID := "nightly-" + now.Format("2006-01-02")

	// Record job start
	var jobID uuid.UUID
	if s.jobRepo != nil {
		var recordErr error
		jobID, recordErr = s.jobRepo.RecordJobStart(ctx, scanID, s.config.Mode)
		if recordErr != nil {
			s.logger.Warn("Failed to record scan job start",
				zap.String("scan_id", scanID),
				zap.Error(recordErr),
			)
		}
	}

	if err := s.scheduler.ScheduleScan(scanID, s.config.Mode, s.config.BatchSize); err != nil {
		s.logger.Error("Failed to submit nightly scan job",
			zap.String("scan_id", scanID),
			zap.Error(err),
		)
		if s.jobRepo != nil && jobID != uuid.Nil {
			_ = s.jobRepo.RecordJobComplete(ctx, jobID, false, err.Error())
		}
		return
	}

	s.logger.Info("Nightly remediation scan scheduled",
		zap.String("scan_id", scanID),
		zap.String("mode", s.config.Mode.String()),
	)
}

// TriggerManualRun triggers a manual run of the nightly scan
// Note: uses background context to avoid premature cancellation when the HTTP request completes
func (s *RemediationCronScheduler) TriggerManualRun(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	go s.runNightlyScan(context.Background())
	return nil
}

// TriggerScan submits a scan with explicit options
func (s *RemediationCronScheduler) TriggerScan(scanID string, mode allocation.ScanMode, batchSize int) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	return s.scheduler.ScheduleScan(scanID, mode, batchSize)
}

// GetStatus returns the current status of the cron scheduler
func (s *RemediationCronScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"enabled":       s.config.Enabled,
		"is_running":    s.isRunning,
		"cron_hour":     s.config.CronHour,
		"cron_minute":   s.config.CronMinute,
		"cron_schedule": "Daily",
		"mode":          s.config.Mode.String(),
		"last_run_at":   s.lastRunAt,
		"next_run_at":   s.nextRunAt,
	}
}

// GetNextRunAt returns when the next scheduled run will occur
func (s *RemediationCronScheduler) GetNextRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// GetLastRunAt returns when the last run occurred
func (s *RemediationCronScheduler) GetLastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}
