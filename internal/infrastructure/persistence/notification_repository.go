package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/notification"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormNotificationRepository implements notification.Repository using GORM
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// FindAllForCompany lists the notification log, newest first
func (r *GormNotificationRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter notification.Filter) ([]notification.Notification, int64, error) {
	filter.Normalize()
	q := conn(ctx, r.db).Model(&notification.Notification{}).
		Scopes(forCompany(companyID), search(filter.Search, "recipient", "subject"))
	if filter.Channel != "" {
		q = q.Where("channel = ?", filter.Channel)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ReferenceID != nil {
		q = q.Where("reference_id = ?", *filter.ReferenceID)
	}
	return findPage[notification.Notification](q, filter.Filter, map[string]string{"created_at": "created_at", "sent_at": "sent_at"}, "created_at DESC")
}

// Save upserts a notification
func (r *GormNotificationRepository) Save(ctx context.Context, n *notification.Notification) error {
	return conn(ctx, r.db).Clauses(clause.OnConflict{UpdateAll: true}).Create(n).Error
}
