package persistence

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forCompany restricts a query to one tenant
func forCompany(companyID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("company_id = ?", companyID)
	}
}

// paginate applies offset and limit of a normalized filter
func paginate(f shared.Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(f.Offset()).Limit(f.PageSize)
	}
}

// ordered applies the requested ordering when the column is whitelisted
func ordered(f shared.Filter, allowed map[string]string, fallback string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		col, ok := allowed[f.OrderBy]
		if !ok {
			return db.Order(fallback)
		}
		dir := "DESC"
		if strings.EqualFold(f.OrderDir, "asc") {
			dir = "ASC"
		}
		return db.Order(col + " " + dir)
	}
}

// search matches term case-insensitively against any of columns
func search(term string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term = strings.TrimSpace(term)
		if term == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + strings.ToLower(term) + "%"
		conds := make([]string, len(columns))
		args := make([]any, len(columns))
		for i, c := range columns {
			conds[i] = "LOWER(" + c + ") LIKE ?"
			args[i] = pattern
		}
		return db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
}

// notFound maps gorm.ErrRecordNotFound to shared.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// writeError maps constraint violations to domain errors
func writeError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

type versioned interface {
	PersistedVersion() int
	MarkPersisted()
}

// saveVersioned inserts a new aggregate or updates it guarded by the version
// it was loaded with. Associations are written by the caller.
func saveVersioned(db *gorm.DB, model versioned) error {
	if model.PersistedVersion() == 0 {
		// Select("*") so zero values are written instead of column defaults
		if err := db.Select("*").Omit(clause.Associations).Create(model).Error; err != nil {
			return writeError(err)
		}
		model.MarkPersisted()
		return nil
	}
	res := db.Model(model).
		Where("version = ?", model.PersistedVersion()).
		Select("*").
		Omit(clause.Associations).
		Updates(model)
	if res.Error != nil {
		return writeError(res.Error)
	}
	if res.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	model.MarkPersisted()
	return nil
}

// markAll flags loaded aggregates as persisted
func markAll[T any, P interface {
	*T
	versioned
}](items []T) {
	for i := range items {
		P(&items[i]).MarkPersisted()
	}
}

// deleteForCompany removes a row of model owned by the company
func deleteForCompany(db *gorm.DB, model any, companyID, id uuid.UUID) error {
	res := db.Where("company_id = ? AND id = ?", companyID, id).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// exists reports whether a row matching the conditions exists
func exists(db *gorm.DB, model any, query string, args ...any) (bool, error) {
	var count int64
	if err := db.Model(model).Where(query, args...).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// findOne loads the first aggregate matching the conditions
func findOne[T any, P interface {
	*T
	versioned
}](db *gorm.DB, query string, args ...any) (*T, error) {
	var item T
	if err := db.Where(query, args...).First(&item).Error; err != nil {
		return nil, notFound(err)
	}
	P(&item).MarkPersisted()
	return &item, nil
}

// findPage counts the rows of q and loads the requested page into dest
func findPage[T any](q *gorm.DB, f shared.Filter, allowed map[string]string, fallback string) ([]T, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := make([]T, 0)
	if total == 0 {
		return items, 0, nil
	}
	if err := q.Scopes(ordered(f, allowed, fallback), paginate(f)).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
