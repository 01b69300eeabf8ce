package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/catalog"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/pdv/backend/internal/infrastructure/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	products  *MockProductRepository
	movements *MockStockMovementRepository
	objects   *storage.StubObjectStorage
	service   *ProductService
}

func newFixture() *fixture {
	f := &fixture{
		products:  new(MockProductRepository),
		movements: new(MockStockMovementRepository),
		objects:   storage.NewStubObjectStorage(),
	}
	f.service = NewProductService(f.products, f.movements, passthroughTx{}, f.objects, nopPublisher{}, zap.NewNop())
	return f
}

func newProduct(t *testing.T, companyID uuid.UUID) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(companyID, "ARZ-5", "Arroz 5kg", "UN", decimal.NewFromFloat(24.90))
	require.NoError(t, err)
	return p
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	de, ok := shared.AsDomainError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	return de.Code
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()
	companyID, userID := uuid.New(), uuid.New()

	t.Run("with initial stock", func(t *testing.T) {
		f := newFixture()
		f.products.On("ExistsByCode", ctx, companyID, "CAF-1").Return(false, nil)
		f.products.On("ExistsByBarcode", ctx, companyID, "7891000315507").Return(false, nil)
		f.products.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)
		f.movements.On("Create", ctx, mock.Anything).Return(nil)

		initial := decimal.NewFromInt(12)
		cost := decimal.NewFromFloat(9.5)
		resp, err := f.service.Create(ctx, companyID, userID, CreateProductRequest{
			Code:         "caf-1",
			Barcode:      "7891000315507",
			Name:         "Café 500g",
			Unit:         "un",
			NCM:          "0901.21.00",
			SalePrice:    decimal.NewFromFloat(18.9),
			CostPrice:    &cost,
			InitialStock: &initial,
		})
		require.NoError(t, err)
		assert.Equal(t, "CAF-1", resp.Code)
		assert.Equal(t, "UN", resp.Unit)
		assert.Equal(t, "09012100", resp.NCM)
		assert.Equal(t, catalog.DefaultCFOP, resp.CFOP)
		assert.True(t, resp.StockQuantity.Equal(initial))

		movements := f.movements.Calls[0].Arguments.Get(1).([]*catalog.StockMovement)
		require.Len(t, movements, 1)
		assert.Equal(t, catalog.MovementAdjustment, movements[0].Type)
		assert.True(t, movements[0].BalanceAfter.Equal(initial))
	})

	t.Run("duplicate code", func(t *testing.T) {
		f := newFixture()
		f.products.On("ExistsByCode", ctx, companyID, "CAF-1").Return(true, nil)

		_, err := f.service.Create(ctx, companyID, userID, CreateProductRequest{
			Code: "CAF-1", Name: "Café", Unit: "UN", SalePrice: decimal.NewFromInt(10),
		})
		assert.Equal(t, "ALREADY_EXISTS", codeOf(t, err))
		f.products.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("invalid barcode", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.Create(ctx, companyID, userID, CreateProductRequest{
			Code: "X", Name: "Café", Unit: "UN", Barcode: "7891000315500", SalePrice: decimal.NewFromInt(10),
		})
		assert.Equal(t, "INVALID_BARCODE", codeOf(t, err))
	})

	t.Run("zero price", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.Create(ctx, companyID, userID, CreateProductRequest{
			Code: "X", Name: "Café", Unit: "UN", SalePrice: decimal.Zero,
		})
		assert.Equal(t, "INVALID_PRICE", codeOf(t, err))
	})
}

func TestProductService_AdjustStock(t *testing.T) {
	ctx := context.Background()
	companyID, userID := uuid.New(), uuid.New()

	f := newFixture()
	product := newProduct(t, companyID)
	f.products.On("FindByIDForCompany", ctx, companyID, product.ID).Return(product, nil)
	f.products.On("Save", ctx, product).Return(nil)
	f.movements.On("Create", ctx, mock.Anything).Return(nil)

	resp, err := f.service.AdjustStock(ctx, companyID, userID, product.ID, AdjustStockRequest{
		Delta: decimal.NewFromInt(10), Reason: "Compra fornecedor",
	})
	require.NoError(t, err)
	assert.True(t, resp.StockQuantity.Equal(decimal.NewFromInt(10)))

	_, err = f.service.AdjustStock(ctx, companyID, userID, product.ID, AdjustStockRequest{
		Delta: decimal.NewFromInt(-11), Reason: "Quebra",
	})
	assert.Equal(t, "NEGATIVE_STOCK", codeOf(t, err))
	f.movements.AssertNumberOfCalls(t, "Create", 1)
}

func TestProductService_Delete(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()

	t.Run("sold product", func(t *testing.T) {
		f := newFixture()
		product := newProduct(t, companyID)
		f.products.On("FindByIDForCompany", ctx, companyID, product.ID).Return(product, nil)
		f.products.On("HasSales", ctx, companyID, product.ID).Return(true, nil)

		err := f.service.Delete(ctx, companyID, product.ID)
		assert.Equal(t, "PRODUCT_HAS_SALES", codeOf(t, err))
		f.products.AssertNotCalled(t, "DeleteForCompany", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("removes image", func(t *testing.T) {
		f := newFixture()
		product := newProduct(t, companyID)
		product.ImageKey = storage.Key(companyID, storage.KindProduct, product.ID, "foto.png")
		require.NoError(t, f.objects.Upload(ctx, product.ImageKey, []byte("png"), "image/png"))
		f.products.On("FindByIDForCompany", ctx, companyID, product.ID).Return(product, nil)
		f.products.On("HasSales", ctx, companyID, product.ID).Return(false, nil)
		f.products.On("DeleteForCompany", ctx, companyID, product.ID).Return(nil)

		require.NoError(t, f.service.Delete(ctx, companyID, product.ID))
		_, stored := f.objects.Object(product.ImageKey)
		assert.False(t, stored)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture()
		id := uuid.New()
		f.products.On("FindByIDForCompany", ctx, companyID, id).Return(nil, shared.ErrNotFound)
		assert.ErrorIs(t, f.service.Delete(ctx, companyID, id), shared.ErrNotFound)
	})
}

func TestProductService_UpdateBarcodeConflict(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	f := newFixture()
	product := newProduct(t, companyID)
	f.products.On("FindByIDForCompany", ctx, companyID, product.ID).Return(product, nil)
	f.products.On("ExistsByBarcode", ctx, companyID, "7891000315507").Return(true, nil)

	barcode := "7891000315507"
	_, err := f.service.Update(ctx, companyID, product.ID, UpdateProductRequest{
		Name: "Arroz 5kg", Unit: "UN", Barcode: &barcode,
	})
	assert.Equal(t, "ALREADY_EXISTS", codeOf(t, err))
	f.products.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestProductService_UpdatePriceKeepsCost(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	f := newFixture()
	product := newProduct(t, companyID)
	require.NoError(t, product.UpdatePrices(product.SalePrice, decimal.NewFromInt(20)))
	f.products.On("FindByIDForCompany", ctx, companyID, product.ID).Return(product, nil)
	f.products.On("Save", ctx, product).Return(nil)

	resp, err := f.service.UpdatePrice(ctx, companyID, product.ID, UpdatePriceRequest{SalePrice: decimal.NewFromInt(30)})
	require.NoError(t, err)
	assert.True(t, resp.SalePrice.Equal(decimal.NewFromInt(30)))
	assert.True(t, resp.CostPrice.Equal(decimal.NewFromInt(20)))
	assert.True(t, resp.Margin.Equal(decimal.NewFromInt(50)))
}

func TestProductService_ListFilters(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	f := newFixture()
	f.products.On("FindAllForCompany", ctx, companyID, mock.MatchedBy(func(df shared.Filter) bool {
		return df.Filters["status"] == "active" && df.Filters["low_stock"] == "true" && df.Search == "arroz"
	})).Return([]catalog.Product{*newProduct(t, companyID)}, int64(1), nil)

	items, total, err := f.service.List(ctx, companyID, ProductListFilter{Search: "arroz", Status: "active", LowStock: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)
}

func TestProductService_ImageUploadURL(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	f := newFixture()
	product := newProduct(t, companyID)
	f.products.On("FindByIDForCompany", ctx, companyID, product.ID).Return(product, nil)
	f.products.On("Save", ctx, product).Return(nil)

	resp, err := f.service.ImageUploadURL(ctx, companyID, product.ID, UploadRequest{FileName: "arroz.jpg", ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, storage.Key(companyID, storage.KindProduct, product.ID, "arroz.jpg"), product.ImageKey)
	assert.Equal(t, product.ImageKey, resp.Key)
}
