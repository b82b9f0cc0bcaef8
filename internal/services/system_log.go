package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/peerhub/peerhub/internal/models"
	"github.com/peerhub/peerhub/pkg/logger"
)

// SystemLogService writes audit entries for the actions administrators want
// a trail of: logins, project lifecycle, membership decisions.
type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

// Record stores one audit entry. Failures are logged, never surfaced; audit
// writes must not break the action they describe.
func (s *SystemLogService) Record(level, module, action, message string, userID *uint, ip string) {
	entry := &models.SystemLog{
		Level:   level,
		Module:  module,
		Action:  action,
		Message: message,
		UserID:  userID,
		IP:      ip,
	}
	if err := s.db.Create(entry).Error; err != nil {
		logger.Errorf("writing system log: %v", err)
	}
}

// ListQuery filters the audit listing.
type ListQuery struct {
	Level  string `form:"level"`
	Module string `form:"module"`
	Page   int    `form:"page"`
	Size   int    `form:"size"`
}

// List pages through audit entries, newest first. Admin only; the handler
// enforces the role.
func (s *SystemLogService) List(q *ListQuery) ([]models.SystemLog, int64, error) {
	query := s.db.Model(&models.SystemLog{})
	if q.Level != "" {
		query = query.Where("level = ?", q.Level)
	}
	if q.Module != "" {
		query = query.Where("module = ?", q.Module)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.Size
	if size < 1 || size > 100 {
		size = 20
	}

	var logs []models.SystemLog
	err := query.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&logs).Error
	return logs, total, err
}

// Cleanup deletes audit entries older than the retention window.
func (s *SystemLogService) Cleanup(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		logger.Infof("system log cleanup removed %d entries", result.RowsAffected)
	}
	return nil
}
