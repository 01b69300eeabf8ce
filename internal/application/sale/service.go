package sale

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/cash"
	"github.com/pdv/backend/internal/domain/catalog"
	"github.com/pdv/backend/internal/domain/company"
	"github.com/pdv/backend/internal/domain/customer"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/seller"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/pdv/backend/internal/infrastructure/cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CompanyLookup resolves the tenant settings that drive sale rules
type CompanyLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (*company.Company, error)
}

// FiscalCanceller cancels the fiscal document authorized for a sale.
// Implementations return nil when the sale has no authorized document.
type FiscalCanceller interface {
	CancelForSale(ctx context.Context, companyID, userID, saleID uuid.UUID, reason string) error
}

// Service handles point of sale operations
type Service struct {
	sales       sale.SaleRepository
	products    catalog.ProductRepository
	movements   catalog.StockMovementRepository
	customers   customer.CustomerRepository
	sellers     seller.SellerRepository
	sessions    cash.SessionRepository
	companies   CompanyLookup
	fiscal      FiscalCanceller
	tx          shared.Transactor
	idempotency *cache.Idempotency
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// Deps groups the collaborators of the sale service
type Deps struct {
	Sales       sale.SaleRepository
	Products    catalog.ProductRepository
	Movements   catalog.StockMovementRepository
	Customers   customer.CustomerRepository
	Sellers     seller.SellerRepository
	Sessions    cash.SessionRepository
	Companies   CompanyLookup
	Fiscal      FiscalCanceller
	Tx          shared.Transactor
	Idempotency *cache.Idempotency
	Publisher   shared.EventPublisher
}

// NewService creates a new sale service
func NewService(deps Deps, logger *zap.Logger) *Service {
	return &Service{
		sales:       deps.Sales,
		products:    deps.Products,
		movements:   deps.Movements,
		customers:   deps.Customers,
		sellers:     deps.Sellers,
		sessions:    deps.Sessions,
		companies:   deps.Companies,
		fiscal:      deps.Fiscal,
		tx:          deps.Tx,
		idempotency: deps.Idempotency,
		publisher:   deps.Publisher,
		logger:      logger,
	}
}

// SetFiscalCanceller wires the fiscal service after construction
func (s *Service) SetFiscalCanceller(fc FiscalCanceller) {
	s.fiscal = fc
}

// Create opens a sale with the requested items
func (s *Service) Create(ctx context.Context, companyID, userID uuid.UUID, req CreateSaleRequest) (*SaleResponse, error) {
	var created *sale.Sale
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sl, err := s.build(ctx, companyID, userID, req)
		if err != nil {
			return err
		}
		if err := s.sales.Save(ctx, sl); err != nil {
			return err
		}
		created = sl
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Sale opened",
		zap.String("sale_id", created.ID.String()),
		zap.Int64("number", created.Number),
		zap.String("company_id", companyID.String()))
	resp := ToSaleResponse(created)
	return &resp, nil
}

// Get returns a sale
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*SaleResponse, error) {
	sl, err := s.sales.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	resp := ToSaleResponse(sl)
	return &resp, nil
}

// List returns the sales of a company
func (s *Service) List(ctx context.Context, companyID uuid.UUID, filter SaleListFilter) ([]SaleResponse, int64, error) {
	df := sale.SaleFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		},
		Status:     sale.Status(filter.Status),
		SellerID:   filter.SellerID,
		CustomerID: filter.CustomerID,
		OperatorID: filter.OperatorID,
	}
	if filter.From != nil {
		from := shared.StartOfDay(*filter.From)
		df.From = &from
	}
	if filter.To != nil {
		to := shared.StartOfDay(*filter.To).AddDate(0, 0, 1)
		df.To = &to
	}
	sales, total, err := s.sales.FindAllForCompany(ctx, companyID, df)
	if err != nil {
		return nil, 0, err
	}
	return ToSaleResponses(sales), total, nil
}

// AddItem appends a product line to an open sale
func (s *Service) AddItem(ctx context.Context, companyID, id uuid.UUID, req ItemRequest) (*SaleResponse, error) {
	return s.mutate(ctx, companyID, id, func(ctx context.Context, sl *sale.Sale) error {
		return s.addItem(ctx, companyID, sl, req)
	})
}

// RemoveItem removes a line from an open sale
func (s *Service) RemoveItem(ctx context.Context, companyID, id, itemID uuid.UUID) (*SaleResponse, error) {
	return s.mutate(ctx, companyID, id, func(_ context.Context, sl *sale.Sale) error {
		return sl.RemoveItem(itemID)
	})
}

// ApplyDiscount sets the sale level discount of an open sale
func (s *Service) ApplyDiscount(ctx context.Context, companyID, id uuid.UUID, req DiscountRequest) (*SaleResponse, error) {
	return s.mutate(ctx, companyID, id, func(_ context.Context, sl *sale.Sale) error {
		return sl.ApplyDiscount(req.Discount)
	})
}

// Complete pays an open sale, takes the items out of stock and links it to
// the operator's open cash session
func (s *Service) Complete(ctx context.Context, companyID, userID, id uuid.UUID, req CompleteSaleRequest) (*SaleResponse, error) {
	var completed *sale.Sale
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sl, err := s.sales.FindByIDForCompany(ctx, companyID, id)
		if err != nil {
			return err
		}
		if err := s.complete(ctx, companyID, userID, sl, toPaymentInputs(req.Payments)); err != nil {
			return err
		}
		completed = sl
		return s.sales.Save(ctx, sl)
	})
	if err != nil {
		return nil, err
	}
	s.afterComplete(ctx, completed)
	resp := ToSaleResponse(completed)
	return &resp, nil
}

// Checkout creates and completes a sale in a single transaction. A repeated
// idempotency key returns the sale created by the first request.
func (s *Service) Checkout(ctx context.Context, companyID, userID uuid.UUID, idempotencyKey string, req CheckoutRequest) (*SaleResponse, error) {
	key := ""
	if idempotencyKey != "" && s.idempotency != nil {
		key = fmt.Sprintf("checkout:%s:%s", companyID, idempotencyKey)
		result, started, err := s.idempotency.Begin(ctx, key)
		if errors.Is(err, cache.ErrRequestInProgress) {
			return nil, shared.NewDomainError("REQUEST_IN_PROGRESS", "A checkout with this idempotency key is still being processed")
		}
		if err != nil {
			return nil, err
		}
		if !started {
			saleID, err := uuid.Parse(result)
			if err != nil {
				return nil, fmt.Errorf("stored checkout result: %w", err)
			}
			s.logger.Debug("Checkout replayed", zap.String("sale_id", result))
			return s.Get(ctx, companyID, saleID)
		}
	}

	var completed *sale.Sale
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sl, err := s.build(ctx, companyID, userID, req.CreateSaleRequest)
		if err != nil {
			return err
		}
		if err := s.complete(ctx, companyID, userID, sl, toPaymentInputs(req.Payments)); err != nil {
			return err
		}
		completed = sl
		return s.sales.Save(ctx, sl)
	})
	if err != nil {
		if key != "" {
			if abortErr := s.idempotency.Abort(ctx, key); abortErr != nil {
				s.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(abortErr))
			}
		}
		return nil, err
	}
	if key != "" {
		if err := s.idempotency.Finish(ctx, key, completed.ID.String()); err != nil {
			s.logger.Warn("Failed to store checkout result", zap.String("key", key), zap.Error(err))
		}
	}
	s.afterComplete(ctx, completed)
	resp := ToSaleResponse(completed)
	return &resp, nil
}

// Cancel cancels a sale. For completed sales the authorized fiscal document
// is cancelled first and the stock is returned.
func (s *Service) Cancel(ctx context.Context, companyID, userID, id uuid.UUID, req CancelSaleRequest) (*SaleResponse, error) {
	sl, err := s.sales.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := sl.ValidateCancel(req.Reason); err != nil {
		return nil, err
	}
	if sl.IsCompleted() && s.fiscal != nil {
		if err := s.fiscal.CancelForSale(ctx, companyID, userID, sl.ID, req.Reason); err != nil {
			return nil, err
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		wasCompleted := sl.IsCompleted()
		if err := sl.Cancel(userID, req.Reason); err != nil {
			return err
		}
		if wasCompleted {
			if err := s.returnStock(ctx, companyID, userID, sl); err != nil {
				return err
			}
		}
		return s.sales.Save(ctx, sl)
	})
	if err != nil {
		return nil, err
	}
	if err := shared.PublishAndClear(ctx, s.publisher, sl); err != nil {
		s.logger.Warn("Failed to publish sale events", zap.String("sale_id", sl.ID.String()), zap.Error(err))
	}
	s.logger.Info("Sale cancelled",
		zap.String("sale_id", sl.ID.String()),
		zap.Int64("number", sl.Number),
		zap.String("user_id", userID.String()))
	resp := ToSaleResponse(sl)
	return &resp, nil
}

func (s *Service) mutate(ctx context.Context, companyID, id uuid.UUID, fn func(ctx context.Context, sl *sale.Sale) error) (*SaleResponse, error) {
	var updated *sale.Sale
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sl, err := s.sales.FindByIDForCompany(ctx, companyID, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, sl); err != nil {
			return err
		}
		updated = sl
		return s.sales.Save(ctx, sl)
	})
	if err != nil {
		return nil, err
	}
	resp := ToSaleResponse(updated)
	return &resp, nil
}

// build allocates a number and assembles an open sale. The operator's seller
// record is used when no seller is given.
func (s *Service) build(ctx context.Context, companyID, userID uuid.UUID, req CreateSaleRequest) (*sale.Sale, error) {
	number, err := s.sales.NextNumber(ctx, companyID)
	if err != nil {
		return nil, err
	}
	sl, err := sale.NewSale(companyID, userID, number)
	if err != nil {
		return nil, err
	}

	if req.CustomerID != nil {
		c, err := s.customers.FindByIDForCompany(ctx, companyID, *req.CustomerID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer not found")
			}
			return nil, err
		}
		if !c.Active {
			return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer is inactive")
		}
		if err := sl.SetCustomer(c.ID); err != nil {
			return nil, err
		}
	}

	if err := s.assignSeller(ctx, companyID, userID, sl, req.SellerID); err != nil {
		return nil, err
	}
	if err := sl.SetConsumer(req.ConsumerDocument, req.ConsumerName); err != nil {
		return nil, err
	}
	if req.Notes != "" {
		sl.SetNotes(req.Notes)
	}
	for _, item := range req.Items {
		if err := s.addItem(ctx, companyID, sl, item); err != nil {
			return nil, err
		}
	}
	if req.Discount.IsPositive() {
		if err := sl.ApplyDiscount(req.Discount); err != nil {
			return nil, err
		}
	}
	return sl, nil
}

func (s *Service) assignSeller(ctx context.Context, companyID, userID uuid.UUID, sl *sale.Sale, sellerID *uuid.UUID) error {
	if sellerID == nil {
		sel, err := s.sellers.FindByUserID(ctx, companyID, userID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !sel.Active {
			return nil
		}
		return sl.SetSeller(sel.ID)
	}
	sel, err := s.sellers.FindByIDForCompany(ctx, companyID, *sellerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("INVALID_SELLER", "Seller not found")
		}
		return err
	}
	if !sel.Active {
		return shared.NewDomainError("INVALID_SELLER", "Seller is inactive")
	}
	return sl.SetSeller(sel.ID)
}

func (s *Service) addItem(ctx context.Context, companyID uuid.UUID, sl *sale.Sale, req ItemRequest) error {
	p, err := s.products.FindByIDForCompany(ctx, companyID, req.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("INVALID_PRODUCT", "Product not found")
		}
		return err
	}
	if !p.IsActive() {
		return shared.NewDomainError("INVALID_PRODUCT", "Product "+p.Code+" is inactive")
	}
	price := p.SalePrice
	if req.UnitPrice != nil {
		price = *req.UnitPrice
	}
	_, err = sl.AddItem(sale.ProductSnapshot{
		ProductID: p.ID,
		Code:      p.Code,
		Barcode:   p.Barcode,
		Name:      p.Name,
		Unit:      p.Unit,
		NCM:       p.NCM,
		CFOP:      p.CFOP,
		Origin:    p.Origin,
		TaxCode:   p.TaxCode,
	}, req.Quantity, price, req.Discount)
	return err
}

// complete must run inside a transaction
func (s *Service) complete(ctx context.Context, companyID, userID uuid.UUID, sl *sale.Sale, payments []sale.PaymentInput) error {
	session, err := s.sessions.FindOpenByOperator(ctx, companyID, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewDomainError("CASH_SESSION_REQUIRED", "Open a cash session before completing sales")
	}
	if err != nil {
		return err
	}
	if err := sl.Complete(payments, session.ID); err != nil {
		return err
	}
	return s.takeStock(ctx, companyID, userID, sl)
}

func (s *Service) takeStock(ctx context.Context, companyID, userID uuid.UUID, sl *sale.Sale) error {
	allowNegative := false
	if s.companies != nil {
		comp, err := s.companies.Lookup(ctx, companyID)
		if err != nil {
			return err
		}
		allowNegative = comp.Fiscal.AllowNegativeStock
	}

	products, quantities, err := s.loadProducts(ctx, companyID, sl)
	if err != nil {
		return err
	}
	movements := make([]*catalog.StockMovement, 0, len(products))
	for i := range products {
		p := &products[i]
		if !p.TrackStock {
			continue
		}
		qty := quantities[p.ID]
		if err := p.RemoveStock(qty, allowNegative); err != nil {
			return err
		}
		if err := s.products.Save(ctx, p); err != nil {
			return err
		}
		movements = append(movements, catalog.NewStockMovement(p, catalog.MovementSale, qty.Neg(), &sl.ID,
			fmt.Sprintf("Venda #%d", sl.Number), userID))
	}
	if len(movements) == 0 {
		return nil
	}
	return s.movements.Create(ctx, movements...)
}

func (s *Service) returnStock(ctx context.Context, companyID, userID uuid.UUID, sl *sale.Sale) error {
	products, quantities, err := s.loadProducts(ctx, companyID, sl)
	if err != nil {
		return err
	}
	movements := make([]*catalog.StockMovement, 0, len(products))
	for i := range products {
		p := &products[i]
		if !p.TrackStock {
			continue
		}
		qty := quantities[p.ID]
		p.ReturnStock(qty)
		if err := s.products.Save(ctx, p); err != nil {
			return err
		}
		movements = append(movements, catalog.NewStockMovement(p, catalog.MovementCancellation, qty, &sl.ID,
			fmt.Sprintf("Cancelamento da venda #%d", sl.Number), userID))
	}
	if len(movements) == 0 {
		return nil
	}
	return s.movements.Create(ctx, movements...)
}

// loadProducts returns the products of the sale and the quantity sold of each
func (s *Service) loadProducts(ctx context.Context, companyID uuid.UUID, sl *sale.Sale) ([]catalog.Product, map[uuid.UUID]decimal.Decimal, error) {
	quantities := make(map[uuid.UUID]decimal.Decimal)
	ids := make([]uuid.UUID, 0, len(sl.Items))
	for _, it := range sl.Items {
		if _, seen := quantities[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
			quantities[it.ProductID] = decimal.Zero
		}
		quantities[it.ProductID] = quantities[it.ProductID].Add(it.Quantity)
	}
	products, err := s.products.FindByIDs(ctx, companyID, ids)
	if err != nil {
		return nil, nil, err
	}
	return products, quantities, nil
}

func (s *Service) afterComplete(ctx context.Context, sl *sale.Sale) {
	if err := shared.PublishAndClear(ctx, s.publisher, sl); err != nil {
		s.logger.Warn("Failed to publish sale events", zap.String("sale_id", sl.ID.String()), zap.Error(err))
	}
	s.logger.Info("Sale completed",
		zap.String("sale_id", sl.ID.String()),
		zap.Int64("number", sl.Number),
		zap.String("total", sl.Total.StringFixed(2)),
		zap.String("change", sl.Change.StringFixed(2)))
}
