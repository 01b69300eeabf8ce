package printing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/cash"
	"github.com/pdv/backend/internal/domain/company"
	"github.com/pdv/backend/internal/domain/customer"
	"github.com/pdv/backend/internal/domain/fiscal"
	"github.com/pdv/backend/internal/domain/identity"
	"github.com/pdv/backend/internal/domain/printing"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/seller"
	"github.com/pdv/backend/internal/domain/shared"
	printer "github.com/pdv/backend/internal/infrastructure/printing"
	"go.uber.org/zap"
)

// CompanyLookup resolves the company printed on headers
type CompanyLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (*company.Company, error)
}

// SessionSource returns a cash session with its figures filled in
type SessionSource interface {
	Session(ctx context.Context, companyID, id uuid.UUID) (*cash.Session, error)
}

// FiscalSource returns the NFCe of a sale
type FiscalSource interface {
	Document(ctx context.Context, companyID, saleID uuid.UUID) (*fiscal.Document, error)
}

// JobRecorder observes print job outcomes
type JobRecorder interface {
	PrintJob(kind, status string)
}

// Service manages printers and sends print jobs
type Service struct {
	printers  printing.PrinterRepository
	jobs      printing.JobRepository
	driver    printer.Driver
	receipts  *ReceiptLoader
	sessions  SessionSource
	users     identity.UserRepository
	companies CompanyLookup
	metrics   JobRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// Deps groups the collaborators of the printing service
type Deps struct {
	Printers  printing.PrinterRepository
	Jobs      printing.JobRepository
	Driver    printer.Driver
	Receipts  *ReceiptLoader
	Sessions  SessionSource
	Users     identity.UserRepository
	Companies CompanyLookup
	Metrics   JobRecorder // optional
}

// NewService creates a new printing service
func NewService(deps Deps, logger *zap.Logger) *Service {
	return &Service{
		printers:  deps.Printers,
		jobs:      deps.Jobs,
		driver:    deps.Driver,
		receipts:  deps.Receipts,
		sessions:  deps.Sessions,
		users:     deps.Users,
		companies: deps.Companies,
		metrics:   deps.Metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Create registers a printer. The first printer of a company becomes the default.
func (s *Service) Create(ctx context.Context, companyID uuid.UUID, req CreatePrinterRequest) (*PrinterResponse, error) {
	p, err := printing.NewPrinter(companyID, req.Name, printing.Connection(req.Connection), req.Address, req.PaperWidth)
	if err != nil {
		return nil, err
	}
	existing, err := s.printers.FindAllForCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := s.printers.Save(ctx, p); err != nil {
		return nil, err
	}
	if req.IsDefault || len(existing) == 0 {
		if err := s.printers.SetDefault(ctx, companyID, p.ID); err != nil {
			return nil, err
		}
		p.IsDefault = true
	}
	s.logger.Info("Printer registered",
		zap.String("printer_id", p.ID.String()),
		zap.String("connection", string(p.Connection)))
	resp := ToPrinterResponse(p)
	return &resp, nil
}

// Get returns a printer
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*PrinterResponse, error) {
	p, err := s.printers.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	resp := ToPrinterResponse(p)
	return &resp, nil
}

// List returns the printers of a company
func (s *Service) List(ctx context.Context, companyID uuid.UUID) ([]PrinterResponse, error) {
	printers, err := s.printers.FindAllForCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]PrinterResponse, len(printers))
	for i := range printers {
		out[i] = ToPrinterResponse(&printers[i])
	}
	return out, nil
}

// Update changes a printer
func (s *Service) Update(ctx context.Context, companyID, id uuid.UUID, req UpdatePrinterRequest) (*PrinterResponse, error) {
	p, err := s.printers.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := p.Update(req.Name, printing.Connection(req.Connection), req.Address, req.PaperWidth); err != nil {
		return nil, err
	}
	if err := s.printers.Save(ctx, p); err != nil {
		return nil, err
	}
	resp := ToPrinterResponse(p)
	return &resp, nil
}

// SetDefault makes a printer the company default
func (s *Service) SetDefault(ctx context.Context, companyID, id uuid.UUID) (*PrinterResponse, error) {
	p, err := s.printers.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, shared.NewDomainError("PRINTER_INACTIVE", "An inactive printer cannot be the default")
	}
	if err := s.printers.SetDefault(ctx, companyID, id); err != nil {
		return nil, err
	}
	p.IsDefault = true
	resp := ToPrinterResponse(p)
	return &resp, nil
}

// Activate enables a printer
func (s *Service) Activate(ctx context.Context, companyID, id uuid.UUID) (*PrinterResponse, error) {
	return s.mutate(ctx, companyID, id, (*printing.Printer).Activate)
}

// Deactivate disables a printer
func (s *Service) Deactivate(ctx context.Context, companyID, id uuid.UUID) (*PrinterResponse, error) {
	return s.mutate(ctx, companyID, id, (*printing.Printer).Deactivate)
}

// Delete removes a printer
func (s *Service) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	if _, err := s.printers.FindByIDForCompany(ctx, companyID, id); err != nil {
		return err
	}
	return s.printers.DeleteForCompany(ctx, companyID, id)
}

// TestPrint sends a test page
func (s *Service) TestPrint(ctx context.Context, companyID, userID, id uuid.UUID) (*JobResponse, error) {
	p, err := s.printers.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, shared.NewDomainError("PRINTER_INACTIVE", "Printer is inactive")
	}
	job := printing.NewJob(companyID, p.ID, printing.KindTest, nil, userID)
	return s.dispatch(ctx, p, job, printer.RenderTestPage(p.Name, p.Columns(), s.now()))
}

// PrintSaleReceipt prints the receipt of a completed sale, as a DANFE NFC-e
// when the sale has an authorized NFCe
func (s *Service) PrintSaleReceipt(ctx context.Context, companyID, userID, saleID uuid.UUID, req PrintRequest) (*JobResponse, error) {
	p, err := s.resolve(ctx, companyID, req.PrinterID)
	if err != nil {
		return nil, err
	}
	data, err := s.receipts.Load(ctx, companyID, saleID)
	if err != nil {
		return nil, err
	}
	if data.Sale.Status != sale.StatusCompleted {
		return nil, shared.NewDomainError("SALE_NOT_COMPLETED", "Only completed sales have a receipt")
	}
	job := printing.NewJob(companyID, p.ID, printing.KindSaleReceipt, &saleID, userID)
	return s.dispatch(ctx, p, job, printer.RenderSaleReceipt(data, p.Columns()))
}

// PrintCashClosure prints the closure report of a session; an open session
// prints a partial reading
func (s *Service) PrintCashClosure(ctx context.Context, companyID, userID, sessionID uuid.UUID, req PrintRequest) (*JobResponse, error) {
	p, err := s.resolve(ctx, companyID, req.PrinterID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.Session(ctx, companyID, sessionID)
	if err != nil {
		return nil, err
	}
	comp, err := s.companies.Lookup(ctx, companyID)
	if err != nil {
		return nil, err
	}
	data := printer.ClosureData{Company: comp, Session: session}
	if u, err := s.users.FindByIDForCompany(ctx, companyID, session.OperatorID); err == nil {
		data.OperatorName = u.Name
	}
	job := printing.NewJob(companyID, p.ID, printing.KindCashClosure, &sessionID, userID)
	return s.dispatch(ctx, p, job, printer.RenderCashClosure(data, p.Columns()))
}

// ListJobs returns the print jobs of a company, newest first
func (s *Service) ListJobs(ctx context.Context, companyID uuid.UUID, filter JobListFilter) ([]JobResponse, int64, error) {
	jf := printing.JobFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  "created_at",
			OrderDir: "desc",
		},
		PrinterID: filter.PrinterID,
		Status:    printing.JobStatus(filter.Status),
	}
	if filter.From != nil {
		from := shared.StartOfDay(*filter.From)
		jf.From = &from
	}
	jobs, total, err := s.jobs.FindAllForCompany(ctx, companyID, jf)
	if err != nil {
		return nil, 0, err
	}
	out := make([]JobResponse, len(jobs))
	for i := range jobs {
		out[i] = ToJobResponse(&jobs[i])
	}
	return out, total, nil
}

func (s *Service) mutate(ctx context.Context, companyID, id uuid.UUID, fn func(*printing.Printer)) (*PrinterResponse, error) {
	p, err := s.printers.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	fn(p)
	if err := s.printers.Save(ctx, p); err != nil {
		return nil, err
	}
	resp := ToPrinterResponse(p)
	return &resp, nil
}

func (s *Service) resolve(ctx context.Context, companyID uuid.UUID, printerID *uuid.UUID) (*printing.Printer, error) {
	var (
		p   *printing.Printer
		err error
	)
	if printerID != nil {
		p, err = s.printers.FindByIDForCompany(ctx, companyID, *printerID)
	} else {
		p, err = s.printers.FindDefault(ctx, companyID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NO_DEFAULT_PRINTER", "No default printer is configured")
		}
	}
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, shared.NewDomainError("PRINTER_INACTIVE", "Printer is inactive")
	}
	return p, nil
}

// dispatch records the job and sends it. A driver failure is stored on the
// job and returned as PRINT_FAILED.
func (s *Service) dispatch(ctx context.Context, p *printing.Printer, job *printing.Job, data []byte) (*JobResponse, error) {
	if err := job.Start(); err != nil {
		return nil, err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, err
	}

	sendErr := s.driver.Send(ctx, p, data)
	if sendErr != nil {
		job.Fail(sendErr)
		s.logger.Warn("Print job failed",
			zap.String("job_id", job.ID.String()),
			zap.String("printer", p.Name),
			zap.String("kind", string(job.Kind)),
			zap.Error(sendErr))
	} else {
		job.Complete()
	}
	if s.metrics != nil {
		s.metrics.PrintJob(string(job.Kind), string(job.Status))
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, err
	}
	if sendErr != nil {
		return nil, shared.WrapDomainError("PRINT_FAILED", "The printer did not accept the job", sendErr)
	}
	resp := ToJobResponse(job)
	return &resp, nil
}

// ReceiptLoader gathers the data printed on a sale receipt
type ReceiptLoader struct {
	sales     sale.SaleRepository
	customers customer.CustomerRepository
	sellers   seller.SellerRepository
	users     identity.UserRepository
	fiscal    FiscalSource
	companies CompanyLookup
}

// NewReceiptLoader creates a new receipt loader
func NewReceiptLoader(sales sale.SaleRepository, customers customer.CustomerRepository, sellers seller.SellerRepository,
	users identity.UserRepository, fiscalDocs FiscalSource, companies CompanyLookup) *ReceiptLoader {
	return &ReceiptLoader{
		sales:     sales,
		customers: customers,
		sellers:   sellers,
		users:     users,
		fiscal:    fiscalDocs,
		companies: companies,
	}
}

// Load returns the receipt of a sale. Names that cannot be resolved are left blank.
func (l *ReceiptLoader) Load(ctx context.Context, companyID, saleID uuid.UUID) (printer.ReceiptData, error) {
	sl, err := l.sales.FindByIDForCompany(ctx, companyID, saleID)
	if err != nil {
		return printer.ReceiptData{}, err
	}
	comp, err := l.companies.Lookup(ctx, companyID)
	if err != nil {
		return printer.ReceiptData{}, err
	}
	data := printer.ReceiptData{Company: comp, Sale: sl}
	if u, err := l.users.FindByIDForCompany(ctx, companyID, sl.OperatorID); err == nil {
		data.OperatorName = u.Name
	}
	if sl.SellerID != nil {
		if sel, err := l.sellers.FindByIDForCompany(ctx, companyID, *sl.SellerID); err == nil {
			data.SellerName = sel.Name
		}
	}
	if sl.CustomerID != nil {
		if c, err := l.customers.FindByIDForCompany(ctx, companyID, *sl.CustomerID); err == nil {
			data.CustomerName = c.Name
		}
	}
	if l.fiscal != nil {
		doc, err := l.fiscal.Document(ctx, companyID, saleID)
		switch {
		case err == nil && doc.Status == fiscal.StatusAuthorized:
			data.Fiscal = doc
		case err != nil && !errors.Is(err, shared.ErrNotFound):
			return printer.ReceiptData{}, err
		}
	}
	return data, nil
}

// Customer returns the customer of a sale, nil when the sale has none
func (l *ReceiptLoader) Customer(ctx context.Context, companyID uuid.UUID, sl *sale.Sale) (*customer.Customer, error) {
	if sl.CustomerID == nil {
		return nil, nil
	}
	return l.customers.FindByIDForCompany(ctx, companyID, *sl.CustomerID)
}
