package services

import (
	"github.com/robfig/cron/v3"

	"github.com/peerhub/peerhub/pkg/logger"
)

var logCleanupCron *cron.Cron

// StartLogCleanupScheduler prunes old audit entries nightly.
func StartLogCleanupScheduler(logs *SystemLogService, retentionDays int) {
	if retentionDays <= 0 {
		logger.Info().Msg("system log retention disabled, cleanup scheduler not started")
		return
	}

	logCleanupCron = cron.New()
	_, err := logCleanupCron.AddFunc("0 3 * * *", func() {
		if err := logs.Cleanup(retentionDays); err != nil {
			logger.Errorf("system log cleanup: %v", err)
		}
	})
	if err != nil {
		logger.Errorf("registering system log cleanup: %v", err)
		return
	}
	logCleanupCron.Start()
	logger.Infof("system log cleanup scheduled, retention %d days", retentionDays)
}

// StopLogCleanupScheduler stops the cleanup job during shutdown.
func StopLogCleanupScheduler() {
	if logCleanupCron != nil {
		logCleanupCron.Stop()
	}
}
