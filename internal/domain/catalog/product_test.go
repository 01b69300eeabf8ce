package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProduct(t *testing.T) *Product {
	t.Helper()
	p, err := NewProduct(uuid.New(), "cafe-500", "Café Torrado 500g", "un", decimal.RequireFromString("18.9"))
	require.NoError(t, err)
	return p
}

func TestNewProduct(t *testing.T) {
	t.Run("normalizes code and unit", func(t *testing.T) {
		p := newTestProduct(t)
		assert.Equal(t, "CAFE-500", p.Code)
		assert.Equal(t, "UN", p.Unit)
		assert.Equal(t, DefaultCFOP, p.CFOP)
		assert.True(t, p.TrackStock)
		assert.True(t, p.SalePrice.Equal(decimal.RequireFromString("18.90")))
		require.Len(t, p.GetDomainEvents(), 1)
	})

	t.Run("rejects invalid data", func(t *testing.T) {
		companyID := uuid.New()
		_, err := NewProduct(companyID, "", "Name", "UN", decimal.NewFromInt(1))
		assert.Error(t, err)
		_, err = NewProduct(companyID, "A B", "Name", "UN", decimal.NewFromInt(1))
		assert.Error(t, err)
		_, err = NewProduct(companyID, "A1", "Name", "BAG", decimal.NewFromInt(1))
		assert.Error(t, err)
		_, err = NewProduct(companyID, "A1", "Name", "UN", decimal.Zero)
		assert.Error(t, err)
	})
}

func TestProduct_SetFiscalData(t *testing.T) {
	p := newTestProduct(t)

	require.NoError(t, p.SetFiscalData("0901.21.00", "", "", 0, "102"))
	assert.Equal(t, "09012100", p.NCM)
	assert.Equal(t, DefaultCFOP, p.CFOP)

	assert.Error(t, p.SetFiscalData("123", "", "5102", 0, ""))
	assert.Error(t, p.SetFiscalData("09012100", "12", "5102", 0, ""))
	assert.Error(t, p.SetFiscalData("09012100", "", "51X2", 0, ""))
	assert.Error(t, p.SetFiscalData("09012100", "", "5102", 9, ""))
}

func TestProduct_Stock(t *testing.T) {
	p := newTestProduct(t)
	require.NoError(t, p.AdjustStock(decimal.NewFromInt(10)))

	t.Run("remove within balance", func(t *testing.T) {
		require.NoError(t, p.RemoveStock(decimal.NewFromInt(4), false))
		assert.True(t, p.StockQuantity.Equal(decimal.NewFromInt(6)))
	})

	t.Run("insufficient stock", func(t *testing.T) {
		err := p.RemoveStock(decimal.NewFromInt(7), false)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.True(t, p.StockQuantity.Equal(decimal.NewFromInt(6)))
	})

	t.Run("negative allowed by company", func(t *testing.T) {
		require.NoError(t, p.RemoveStock(decimal.NewFromInt(7), true))
		assert.True(t, p.StockQuantity.Equal(decimal.NewFromInt(-1)))
		p.ReturnStock(decimal.NewFromInt(7))
		assert.True(t, p.StockQuantity.Equal(decimal.NewFromInt(6)))
	})

	t.Run("adjustment cannot go negative", func(t *testing.T) {
		assert.Error(t, p.AdjustStock(decimal.NewFromInt(-10)))
		assert.Error(t, p.AdjustStock(decimal.Zero))
	})

	t.Run("untracked products ignore sales", func(t *testing.T) {
		require.NoError(t, p.SetStockControl(false, decimal.Zero))
		require.NoError(t, p.RemoveStock(decimal.NewFromInt(100), false))
		assert.True(t, p.StockQuantity.Equal(decimal.NewFromInt(6)))
		assert.Error(t, p.AdjustStock(decimal.NewFromInt(1)))
	})
}

func TestProduct_LowStockAndMargin(t *testing.T) {
	p := newTestProduct(t)
	require.NoError(t, p.SetStockControl(true, decimal.NewFromInt(5)))
	assert.True(t, p.IsLowStock())
	require.NoError(t, p.AdjustStock(decimal.NewFromInt(6)))
	assert.False(t, p.IsLowStock())

	require.NoError(t, p.UpdatePrices(decimal.NewFromInt(15), decimal.NewFromInt(10)))
	assert.True(t, p.Margin().Equal(decimal.NewFromInt(50)))
}

func TestProduct_StatusTransitions(t *testing.T) {
	p := newTestProduct(t)
	assert.Error(t, p.Activate())
	require.NoError(t, p.Deactivate())
	assert.False(t, p.IsActive())
	assert.Error(t, p.Deactivate())
	require.NoError(t, p.Activate())
}

func TestProduct_SetBarcode(t *testing.T) {
	p := newTestProduct(t)
	require.NoError(t, p.SetBarcode("7891000315507"))
	assert.Error(t, p.SetBarcode("7891000315508"))
	require.NoError(t, p.SetBarcode(""))
	assert.Empty(t, p.Barcode)
}
