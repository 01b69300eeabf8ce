package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Counter is a per-company monotonic sequence
type Counter struct {
	CompanyID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(50);primaryKey"`
	Value     int64     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (Counter) TableName() string {
	return "company_counters"
}

const nextCounterSQL = `INSERT INTO company_counters (company_id, name, value) VALUES (?, ?, 1)
ON CONFLICT (company_id, name) DO UPDATE SET value = company_counters.value + 1
RETURNING value`

// nextValue increments and returns a counter. The row lock taken by the
// upsert serializes concurrent callers until their transaction ends.
func nextValue(ctx context.Context, db *gorm.DB, companyID uuid.UUID, name string) (int64, error) {
	var value int64
	if err := conn(ctx, db).Raw(nextCounterSQL, companyID, name).Scan(&value).Error; err != nil {
		return 0, err
	}
	return value, nil
}
