package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/finz/backend/internal/domain/allocation"
	"github.com/stretchr/testify/assert"
)

func TestParseCronSchedule(t *testing.T) {
	tests := []struct {
		name         string
		cronExpr     string
		expectedHour int
		expectedMin  int
	}{
		{
			name:         "Default 3am",
			cronExpr:     "0 3 * * *",
			expectedHour: 3,
			expectedMin:  0,
		},
		{
			name:         "4:30am",
			cronExpr:     "30 4 * * *",
			expectedHour: 4,
			expectedMin:  30,
		},
		{
			name:         "Midnight",
			cronExpr:     "0 0 * * *",
			expectedHour: 0,
			expectedMin:  0,
		},
		{
			name:         "11pm",
			cronExpr:     "0 23 * * *",
			expectedHour: 23,
			expectedMin:  0,
		},
		{
			name:         "Empty string defaults",
			cronExpr:     "",
			expectedHour: 3,
			expectedMin:  0,
		},
		{
			name:         "Extra whitespace",
			cronExpr:     "  15   4   *   *   *  ",
			expectedHour: 4,
			expectedMin:  15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour, minute, err := ParseCronSchedule(tt.cronExpr)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedHour, hour, "hour mismatch")
			assert.Equal(t, tt.expectedMin, minute, "minute mismatch")
		})
	}
}

func TestDefaultRemediationCronSchedulerConfig(t *testing.T) {
	cfg := DefaultRemediationCronSchedulerConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 3, cfg.CronHour)
	assert.Equal(t, 0, cfg.CronMinute)
	assert.Equal(t, allocation.ScanModeDryRun, cfg.Mode)
	assert.Equal(t, 1, cfg.MaxConcurrentJobs)
	assert.Equal(t, 30*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 5*time.Minute, cfg.RetryDelay)
}

func TestShouldRun(t *testing.T) {
	cfg := DefaultRemediationCronSchedulerConfig()
	cfg.CronHour = 3
	cfg.CronMinute = 30

	// Create a minimal scheduler for testing shouldRun
	s := &RemediationCronScheduler{
		config: cfg,
	}

	tests := []struct {
		name     string
		time     time.Time
		expected bool
	}{
		{
			name:     "Exact match",
			time:     time.Date(2026, 1, 15, 3, 30, 0, 0, time.UTC),
			expected: true,
		},
		{
			name:     "Wrong hour",
			time:     time.Date(2026, 1, 15, 4, 30, 0, 0, time.UTC),
			expected: false,
		},
		{
			name:     "Wrong minute",
			time:     time.Date(2026, 1, 15, 3, 31, 0, 0, time.UTC),
			expected: false,
		},
		{
			name:     "Midnight vs 3:30",
			time:     time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.shouldRun(tt.time)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCalculateNextRunTime(t *testing.T) {
	cfg := DefaultRemediationCronSchedulerConfig()
	cfg.CronHour = 3
	cfg.CronMinute = 0

	s := &RemediationCronScheduler{
		config: cfg,
	}

	s.calculateNextRunTime()
	assert.NotNil(t, s.nextRunAt)
	assert.Equal(t, cfg.CronHour, s.nextRunAt.Hour())
	assert.Equal(t, cfg.CronMinute, s.nextRunAt.Minute())
	assert.True(t, s.nextRunAt.After(time.Now()) || s.nextRunAt.Equal(time.Now()))
}

func TestScanJobRecord(t *testing.T) {
	record := ScanJobRecord{}
	assert.Equal(t, "remediation_scheduler_jobs", record.TableName())
}

func TestRemediationCronScheduler_GetStatus(t *testing.T) {
	cfg := DefaultRemediationCronSchedulerConfig()
	s := &RemediationCronScheduler{
		config:    cfg,
		isRunning: true,
	}

	status := s.GetStatus()

	assert.Equal(t, true, status["enabled"])
	assert.Equal(t, true, status["is_running"])
	assert.Equal(t, cfg.CronHour, status["cron_hour"])
	assert.Equal(t, cfg.CronMinute, status["cron_minute"])
	assert.Equal(t, "Daily", status["cron_schedule"])
	assert.Equal(t, "DRY_RUN", status["mode"])
}

func TestRemediationCronScheduler_TriggerManualRun_NotRunning(t *testing.T) {
	cfg := DefaultRemediationCronSchedulerConfig()
	s := &RemediationCronScheduler{
		config:    cfg,
		isRunning: false,
	}

	err := s.TriggerManualRun(context.Background())
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestRemediationCronScheduler_TriggerScan_NotRunning(t *testing.T) {
	cfg := DefaultRemediationCronSchedulerConfig()
	s := &RemediationCronScheduler{
		config:    cfg,
		isRunning: false,
	}

	err := s.TriggerScan("scan-1", allocation.ScanModeDryRun, 100)
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestJobRetryLifecycle(t *testing.T) {
	job := NewJob("scan-1", allocation.ScanModeDryRun, 100, 2)
	assert.Equal(t, JobStatusPending, job.Status)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)

	job.Fail("taxonomy unavailable")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.True(t, job.ShouldRetry())

	job.ScheduleRetry(time.Minute)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, "scan-1", job.ScanID, "retries keep the scan ID for checkpoint resume")

	job.Start()
	job.Fail("still unavailable")
	job.ScheduleRetry(time.Minute)
	job.Start()
	job.Fail("gave up")
	assert.False(t, job.ShouldRetry())
}

func TestNewJobGeneratesScanID(t *testing.T) {
	job := NewJob("", allocation.ScanModeApply, 0, 1)
	assert.NotEmpty(t, job.ScanID)
	assert.Equal(t, allocation.ScanModeApply, job.Mode)
}
