package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/cash"
	"gorm.io/gorm"
)

// GormCashSessionRepository implements cash.SessionRepository using GORM
type GormCashSessionRepository struct {
	db *gorm.DB
}

// NewGormCashSessionRepository creates a new GormCashSessionRepository
func NewGormCashSessionRepository(db *gorm.DB) *GormCashSessionRepository {
	return &GormCashSessionRepository{db: db}
}

func withMovements(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Movements", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Totals")
}

// FindByIDForCompany loads a session with its movements and totals
func (r *GormCashSessionRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*cash.Session, error) {
	return findOne[cash.Session](conn(ctx, r.db).Scopes(withMovements), "company_id = ? AND id = ?", companyID, id)
}

// FindOpenByOperator loads the open session of an operator
func (r *GormCashSessionRepository) FindOpenByOperator(ctx context.Context, companyID, operatorID uuid.UUID) (*cash.Session, error) {
	return findOne[cash.Session](conn(ctx, r.db).Scopes(withMovements),
		"company_id = ? AND operator_id = ? AND status = ?", companyID, operatorID, cash.SessionOpen)
}

var sessionOrder = map[string]string{"opened_at": "opened_at", "closed_at": "closed_at", "difference": "difference"}

// FindAllForCompany lists sessions, newest first
func (r *GormCashSessionRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter cash.SessionFilter) ([]cash.Session, int64, error) {
	filter.Normalize()
	q := conn(ctx, r.db).Model(&cash.Session{}).Scopes(forCompany(companyID))
	if filter.OperatorID != nil {
		q = q.Where("operator_id = ?", *filter.OperatorID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		q = q.Where("opened_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("opened_at < ?", *filter.To)
	}
	sessions, total, err := findPage[cash.Session](q, filter.Filter, sessionOrder, "opened_at DESC")
	if err != nil {
		return nil, 0, err
	}
	markAll(sessions)
	return sessions, total, nil
}

// Save writes the session and, once closed, its per-method totals
func (r *GormCashSessionRepository) Save(ctx context.Context, s *cash.Session) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := saveVersioned(tx, s); err != nil {
			return err
		}
		if s.Status != cash.SessionClosed {
			return nil
		}
		if err := tx.Where("session_id = ?", s.ID).Delete(&cash.MethodTotal{}).Error; err != nil {
			return err
		}
		if len(s.Totals) == 0 {
			return nil
		}
		return tx.Create(&s.Totals).Error
	})
}

// AddMovement appends a movement and bumps the session version
func (r *GormCashSessionRepository) AddMovement(ctx context.Context, s *cash.Session, m *cash.Movement) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := saveVersioned(tx, s); err != nil {
			return err
		}
		return tx.Create(m).Error
	})
}

// CountOpen counts the open sessions of a company
func (r *GormCashSessionRepository) CountOpen(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&cash.Session{}).
		Scopes(forCompany(companyID)).
		Where("status = ?", cash.SessionOpen).
		Count(&n).Error
	return n, err
}
