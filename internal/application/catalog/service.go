package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/catalog"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/pdv/backend/internal/infrastructure/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	uploadURLExpiry = 15 * time.Minute
	imageURLExpiry  = time.Hour
)

// ProductService handles product catalog operations
type ProductService struct {
	products  catalog.ProductRepository
	movements catalog.StockMovementRepository
	tx        shared.Transactor
	storage   storage.ObjectStorage
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(
	products catalog.ProductRepository,
	movements catalog.StockMovementRepository,
	tx shared.Transactor,
	objects storage.ObjectStorage,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *ProductService {
	return &ProductService{
		products:  products,
		movements: movements,
		tx:        tx,
		storage:   objects,
		publisher: publisher,
		logger:    logger,
	}
}

// Create creates a product. A positive initial stock is recorded as an adjustment.
func (s *ProductService) Create(ctx context.Context, companyID, userID uuid.UUID, req CreateProductRequest) (*ProductResponse, error) {
	product, err := catalog.NewProduct(companyID, req.Code, req.Name, req.Unit, req.SalePrice)
	if err != nil {
		return nil, err
	}
	product.SetCreatedBy(userID)
	product.Description = strings.TrimSpace(req.Description)
	if err := product.SetBarcode(req.Barcode); err != nil {
		return nil, err
	}
	if err := product.SetFiscalData(req.NCM, req.CEST, req.CFOP, req.Origin, req.TaxCode); err != nil {
		return nil, err
	}
	if req.CostPrice != nil {
		if err := product.UpdatePrices(product.SalePrice, *req.CostPrice); err != nil {
			return nil, err
		}
	}
	track := true
	if req.TrackStock != nil {
		track = *req.TrackStock
	}
	minStock := decimal.Zero
	if req.MinStock != nil {
		minStock = *req.MinStock
	}
	if err := product.SetStockControl(track, minStock); err != nil {
		return nil, err
	}

	var movement *catalog.StockMovement
	if req.InitialStock != nil && req.InitialStock.IsPositive() {
		if err := product.AdjustStock(*req.InitialStock); err != nil {
			return nil, err
		}
		movement = catalog.NewStockMovement(product, catalog.MovementAdjustment, *req.InitialStock, nil, "Initial stock", userID)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureUnique(ctx, product); err != nil {
			return err
		}
		if err := s.products.Save(ctx, product); err != nil {
			return err
		}
		if movement != nil {
			return s.movements.Create(ctx, movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("code", product.Code))
	return s.response(ctx, product), nil
}

// Get returns a product
func (s *ProductService) Get(ctx context.Context, companyID, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.products.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return s.response(ctx, product), nil
}

// GetByBarcode returns the product with the given GTIN
func (s *ProductService) GetByBarcode(ctx context.Context, companyID uuid.UUID, barcode string) (*ProductResponse, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, shared.NewDomainError("INVALID_BARCODE", "Barcode is required")
	}
	product, err := s.products.FindByBarcode(ctx, companyID, barcode)
	if err != nil {
		return nil, err
	}
	return s.response(ctx, product), nil
}

// List returns a page of products
func (s *ProductService) List(ctx context.Context, companyID uuid.UUID, filter ProductListFilter) ([]ProductResponse, int64, error) {
	df := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.Status != "" {
		df.Filters["status"] = filter.Status
	}
	if filter.LowStock {
		df.Filters["low_stock"] = "true"
	}
	products, total, err := s.products.FindAllForCompany(ctx, companyID, df)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = *s.response(ctx, &products[i])
	}
	return out, total, nil
}

// Update changes descriptive, fiscal and stock control data
func (s *ProductService) Update(ctx context.Context, companyID, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.products.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	previousBarcode := product.Barcode

	if err := product.Update(req.Name, req.Description, req.Unit); err != nil {
		return nil, err
	}
	if req.Barcode != nil {
		if err := product.SetBarcode(*req.Barcode); err != nil {
			return nil, err
		}
	}
	if req.NCM != nil || req.CEST != nil || req.CFOP != nil || req.Origin != nil || req.TaxCode != nil {
		err := product.SetFiscalData(
			valueOr(req.NCM, product.NCM),
			valueOr(req.CEST, product.CEST),
			valueOr(req.CFOP, product.CFOP),
			intOr(req.Origin, product.Origin),
			valueOr(req.TaxCode, product.TaxCode),
		)
		if err != nil {
			return nil, err
		}
	}
	if req.TrackStock != nil || req.MinStock != nil {
		track := product.TrackStock
		if req.TrackStock != nil {
			track = *req.TrackStock
		}
		minStock := product.MinStock
		if req.MinStock != nil {
			minStock = *req.MinStock
		}
		if err := product.SetStockControl(track, minStock); err != nil {
			return nil, err
		}
	}

	if product.Barcode != "" && product.Barcode != previousBarcode {
		exists, err := s.products.ExistsByBarcode(ctx, companyID, product.Barcode)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Another product already uses this barcode")
		}
	}
	return s.save(ctx, product)
}

// UpdatePrice changes the sale price and optionally the cost price
func (s *ProductService) UpdatePrice(ctx context.Context, companyID, id uuid.UUID, req UpdatePriceRequest) (*ProductResponse, error) {
	product, err := s.products.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	cost := product.CostPrice
	if req.CostPrice != nil {
		cost = *req.CostPrice
	}
	if err := product.UpdatePrices(req.SalePrice, cost); err != nil {
		return nil, err
	}
	return s.save(ctx, product)
}

// AdjustStock applies a manual correction and records it as a stock movement
func (s *ProductService) AdjustStock(ctx context.Context, companyID, userID, id uuid.UUID, req AdjustStockRequest) (*ProductResponse, error) {
	var product *catalog.Product
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		product, err = s.products.FindByIDForCompany(ctx, companyID, id)
		if err != nil {
			return err
		}
		if err := product.AdjustStock(req.Delta); err != nil {
			return err
		}
		if err := s.products.Save(ctx, product); err != nil {
			return err
		}
		movement := catalog.NewStockMovement(product, catalog.MovementAdjustment, req.Delta, nil, strings.TrimSpace(req.Reason), userID)
		return s.movements.Create(ctx, movement)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Stock adjusted",
		zap.String("product_id", product.ID.String()),
		zap.String("delta", req.Delta.String()),
		zap.String("balance", product.StockQuantity.String()))
	return s.response(ctx, product), nil
}

// Movements returns the stock history of a product
func (s *ProductService) Movements(ctx context.Context, companyID, id uuid.UUID, page, pageSize int) ([]StockMovementResponse, int64, error) {
	if _, err := s.products.FindByIDForCompany(ctx, companyID, id); err != nil {
		return nil, 0, err
	}
	movements, total, err := s.movements.FindByProduct(ctx, companyID, id, shared.Filter{Page: page, PageSize: pageSize})
	if err != nil {
		return nil, 0, err
	}
	return ToStockMovementResponses(movements), total, nil
}

// Activate makes a product sellable
func (s *ProductService) Activate(ctx context.Context, companyID, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.products.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := product.Activate(); err != nil {
		return nil, err
	}
	return s.save(ctx, product)
}

// Deactivate hides a product from sale
func (s *ProductService) Deactivate(ctx context.Context, companyID, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.products.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := product.Deactivate(); err != nil {
		return nil, err
	}
	return s.save(ctx, product)
}

// Delete removes a product that was never sold. Sold products can only be deactivated.
func (s *ProductService) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	product, err := s.products.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return err
	}
	sold, err := s.products.HasSales(ctx, companyID, id)
	if err != nil {
		return err
	}
	if sold {
		return shared.NewDomainError("PRODUCT_HAS_SALES", "Product has sales and cannot be deleted, deactivate it instead")
	}
	if err := s.products.DeleteForCompany(ctx, companyID, id); err != nil {
		return err
	}
	if product.ImageKey != "" {
		if err := s.storage.Delete(ctx, product.ImageKey); err != nil {
			s.logger.Warn("Failed to delete product image", zap.String("key", product.ImageKey), zap.Error(err))
		}
	}
	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

// ImageUploadURL reserves the image key and returns a presigned upload URL for it
func (s *ProductService) ImageUploadURL(ctx context.Context, companyID, id uuid.UUID, req UploadRequest) (*UploadURLResponse, error) {
	product, err := s.products.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	key := storage.Key(companyID, storage.KindProduct, id, req.FileName)
	url, expires, err := s.storage.PresignUpload(ctx, key, req.ContentType, uploadURLExpiry)
	if err != nil {
		return nil, shared.WrapDomainError("STORAGE_ERROR", "Failed to create upload URL", err)
	}
	product.SetImageKey(key)
	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}
	return &UploadURLResponse{UploadURL: url, Key: key, ExpiresAt: expires}, nil
}

func (s *ProductService) ensureUnique(ctx context.Context, product *catalog.Product) error {
	exists, err := s.products.ExistsByCode(ctx, product.CompanyID, product.Code)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_EXISTS", "A product with this code already exists")
	}
	if product.Barcode == "" {
		return nil
	}
	exists, err = s.products.ExistsByBarcode(ctx, product.CompanyID, product.Barcode)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_EXISTS", "A product with this barcode already exists")
	}
	return nil
}

func (s *ProductService) save(ctx context.Context, product *catalog.Product) (*ProductResponse, error) {
	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)
	return s.response(ctx, product), nil
}

func (s *ProductService) publish(ctx context.Context, product *catalog.Product) {
	if err := shared.PublishAndClear(ctx, s.publisher, product); err != nil {
		s.logger.Warn("Failed to publish product events", zap.Error(err))
	}
}

func (s *ProductService) response(ctx context.Context, product *catalog.Product) *ProductResponse {
	resp := ToProductResponse(product)
	if product.ImageKey != "" && s.storage != nil {
		if url, _, err := s.storage.PresignDownload(ctx, product.ImageKey, imageURLExpiry); err == nil {
			resp.ImageURL = url
		}
	}
	return &resp
}

func valueOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
