package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/bill"
	"github.com/pdv/backend/internal/domain/cash"
	"github.com/pdv/backend/internal/domain/catalog"
	"github.com/pdv/backend/internal/domain/company"
	"github.com/pdv/backend/internal/domain/customer"
	"github.com/pdv/backend/internal/domain/fiscal"
	"github.com/pdv/backend/internal/domain/identity"
	"github.com/pdv/backend/internal/domain/notification"
	"github.com/pdv/backend/internal/domain/printing"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/seller"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory SQLite database with every table migrated
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// each connection of :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&company.Company{},
		&identity.User{},
		&catalog.Product{},
		&catalog.StockMovement{},
		&seller.Seller{},
		&customer.Customer{},
		&sale.Sale{},
		&sale.SaleItem{},
		&sale.SalePayment{},
		&bill.Bill{},
		&cash.Session{},
		&cash.Movement{},
		&cash.MethodTotal{},
		&fiscal.Document{},
		&fiscal.Sequence{},
		&printing.Printer{},
		&printing.Job{},
		&notification.Notification{},
		&Counter{},
	)
	require.NoError(t, err)
	return db
}

func createTestProduct(t *testing.T, db *gorm.DB, companyID uuid.UUID, code string, price string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(companyID, code, "Produto "+code, "UN", decimal.RequireFromString(price))
	require.NoError(t, err)
	require.NoError(t, NewGormProductRepository(db).Save(context.Background(), p))
	return p
}

func snapshotOf(p *catalog.Product) sale.ProductSnapshot {
	return sale.ProductSnapshot{
		ProductID: p.ID,
		Code:      p.Code,
		Name:      p.Name,
		Unit:      p.Unit,
		CFOP:      p.CFOP,
	}
}
