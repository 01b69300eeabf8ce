package fiscal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/company"
	"github.com/pdv/backend/internal/domain/customer"
	"github.com/pdv/backend/internal/domain/fiscal"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/shared"
	fiscalgw "github.com/pdv/backend/internal/infrastructure/fiscal"
	"github.com/pdv/backend/internal/infrastructure/storage"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	downloadExpiry = 15 * time.Minute
	// syncGrace leaves fresh documents to the webhook before polling them
	syncGrace = time.Minute
)

// CompanyLookup resolves the issuing company
type CompanyLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (*company.Company, error)
}

// Config holds the fiscal service settings
type Config struct {
	Enabled       bool
	WebhookSecret string
}

// Service issues and manages fiscal documents
type Service struct {
	documents fiscal.DocumentRepository
	sequences fiscal.SequenceRepository
	sales     sale.SaleRepository
	customers customer.CustomerRepository
	companies CompanyLookup
	gateway   fiscal.Gateway
	storage   storage.ObjectStorage
	tx        shared.Transactor
	publisher shared.EventPublisher
	config    Config
	logger    *zap.Logger
	now       func() time.Time
}

// Deps groups the collaborators of the fiscal service
type Deps struct {
	Documents fiscal.DocumentRepository
	Sequences fiscal.SequenceRepository
	Sales     sale.SaleRepository
	Customers customer.CustomerRepository
	Companies CompanyLookup
	Gateway   fiscal.Gateway
	Storage   storage.ObjectStorage
	Tx        shared.Transactor
	Publisher shared.EventPublisher
}

// NewService creates a new fiscal service
func NewService(deps Deps, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		documents: deps.Documents,
		sequences: deps.Sequences,
		sales:     deps.Sales,
		customers: deps.Customers,
		companies: deps.Companies,
		gateway:   deps.Gateway,
		storage:   deps.Storage,
		tx:        deps.Tx,
		publisher: deps.Publisher,
		config:    cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// IssueForSale issues an NFCe or NFe for a completed sale. A sale holds at
// most one active document per type.
func (s *Service) IssueForSale(ctx context.Context, companyID, saleID uuid.UUID, req IssueForSaleRequest) (*DocumentResponse, error) {
	comp, err := s.issuer(ctx, companyID)
	if err != nil {
		return nil, err
	}
	docType := fiscal.DocumentType(req.Type)
	if docType != fiscal.TypeNFCe && docType != fiscal.TypeNFe {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Sales are documented by NFCe or NFe")
	}
	sl, err := s.sales.FindByIDForCompany(ctx, companyID, saleID)
	if err != nil {
		return nil, err
	}
	if !sl.IsCompleted() {
		return nil, shared.NewDomainError("SALE_NOT_COMPLETED", "Only completed sales can be documented")
	}

	var doc *fiscal.Document
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.documents.FindActiveBySale(ctx, companyID, saleID, docType)
		if err == nil {
			return shared.NewDomainError("DOCUMENT_ALREADY_ISSUED",
				fmt.Sprintf("Sale already has an active %s (%s)", docType, existing.Status))
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		doc, err = s.allocate(ctx, comp, docType, sl.Total)
		if err != nil {
			return err
		}
		doc.LinkSale(sl.ID)
		name, document, err := s.recipientOfSale(ctx, sl)
		if err != nil {
			return err
		}
		if err := doc.SetRecipient(name, document); err != nil {
			return err
		}
		if err := doc.AssignAccessKey(comp.Address.State, comp.CNPJ, s.now()); err != nil {
			return err
		}
		return s.documents.Save(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	payload := BuildProductPayload(comp, doc, sl, s.now())
	if err := s.send(ctx, doc, payload); err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// IssueService issues an NFSe
func (s *Service) IssueService(ctx context.Context, companyID uuid.UUID, req IssueServiceRequest) (*DocumentResponse, error) {
	comp, err := s.issuer(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if comp.MunicipalRegistration == "" {
		return nil, shared.NewDomainError("MUNICIPAL_REGISTRATION_REQUIRED", "Municipal registration is required to issue NFSe")
	}
	if !req.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Service amount must be positive")
	}

	name, document, email := req.RecipientName, req.RecipientDocument, ""
	if req.CustomerID != nil {
		c, err := s.customers.FindByIDForCompany(ctx, companyID, *req.CustomerID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer not found")
			}
			return nil, err
		}
		name, document, email = c.Name, c.Document, c.Email
	}

	var doc *fiscal.Document
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.allocate(ctx, comp, fiscal.TypeNFSe, req.Amount)
		if err != nil {
			return err
		}
		if req.CustomerID != nil {
			id := *req.CustomerID
			doc.CustomerID = &id
		}
		if err := doc.SetRecipient(name, document); err != nil {
			return err
		}
		if err := doc.SetService(fiscal.ServiceData{
			Description: req.Description,
			Code:        req.ServiceCode,
			ISSRate:     req.ISSRate,
		}); err != nil {
			return err
		}
		return s.documents.Save(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	if err := s.send(ctx, doc, BuildServicePayload(comp, doc, email, s.now())); err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// Get returns a document
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.documents.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// List returns the documents of a company
func (s *Service) List(ctx context.Context, companyID uuid.UUID, filter DocumentListFilter) ([]DocumentResponse, int64, error) {
	df := fiscal.DocumentFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		},
		Type:   fiscal.DocumentType(filter.Type),
		Status: fiscal.Status(filter.Status),
		SaleID: filter.SaleID,
	}
	if filter.From != nil {
		from := shared.StartOfDay(*filter.From)
		df.From = &from
	}
	if filter.To != nil {
		to := shared.StartOfDay(*filter.To).AddDate(0, 0, 1)
		df.To = &to
	}
	docs, total, err := s.documents.FindAllForCompany(ctx, companyID, df)
	if err != nil {
		return nil, 0, err
	}
	out := make([]DocumentResponse, len(docs))
	for i := range docs {
		out[i] = ToDocumentResponse(&docs[i])
	}
	return out, total, nil
}

// Retry resends a rejected document with the same number
func (s *Service) Retry(ctx context.Context, companyID, id uuid.UUID) (*DocumentResponse, error) {
	comp, err := s.issuer(ctx, companyID)
	if err != nil {
		return nil, err
	}
	doc, err := s.documents.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != fiscal.StatusRejected {
		return nil, shared.NewDomainError("INVALID_STATE", "Only rejected documents can be retried")
	}

	var payload any
	if doc.Type == fiscal.TypeNFSe {
		email := ""
		if doc.CustomerID != nil {
			if c, err := s.customers.FindByIDForCompany(ctx, companyID, *doc.CustomerID); err == nil {
				email = c.Email
			}
		}
		payload = BuildServicePayload(comp, doc, email, s.now())
	} else {
		if doc.SaleID == nil {
			return nil, shared.NewDomainError("INVALID_STATE", "Document has no sale")
		}
		sl, err := s.sales.FindByIDForCompany(ctx, companyID, *doc.SaleID)
		if err != nil {
			return nil, err
		}
		payload = BuildProductPayload(comp, doc, sl, s.now())
	}
	if err := s.send(ctx, doc, payload); err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// Cancel cancels an authorized document within its cancellation window
func (s *Service) Cancel(ctx context.Context, companyID, id uuid.UUID, req CancelDocumentRequest) (*DocumentResponse, error) {
	doc, err := s.documents.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := s.cancel(ctx, doc, req.Justification); err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// CancelForSale cancels the documents authorized for a sale. It returns nil
// when the sale has no active document, and refuses while one is still being
// processed or once the cancellation window has passed.
func (s *Service) CancelForSale(ctx context.Context, companyID, _ uuid.UUID, saleID uuid.UUID, reason string) error {
	for _, docType := range []fiscal.DocumentType{fiscal.TypeNFCe, fiscal.TypeNFe} {
		doc, err := s.documents.FindActiveBySale(ctx, companyID, saleID, docType)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if doc.Status != fiscal.StatusAuthorized {
			return shared.NewDomainError("FISCAL_DOCUMENT_PROCESSING",
				fmt.Sprintf("The %s of this sale is still being processed", doc.Type))
		}
		if err := s.cancel(ctx, doc, reason); err != nil {
			return err
		}
	}
	return nil
}

// SyncStatus polls the gateway for documents still processing and returns how
// many changed
func (s *Service) SyncStatus(ctx context.Context, batch int) (int, error) {
	if !s.config.Enabled || s.gateway == nil {
		return 0, nil
	}
	docs, err := s.documents.FindProcessing(ctx, s.now().Add(-syncGrace), batch)
	if err != nil {
		return 0, err
	}
	changed := 0
	for i := range docs {
		doc := &docs[i]
		res, err := s.gateway.Query(ctx, doc.Type, doc.ProviderRef)
		if errors.Is(err, fiscal.ErrGatewayUnavailable) {
			s.logger.Warn("Fiscal gateway unavailable, stopping sync", zap.Error(err))
			break
		}
		if err != nil {
			s.logger.Warn("Failed to query fiscal document",
				zap.String("document_id", doc.ID.String()), zap.Error(err))
			continue
		}
		ok, err := s.apply(ctx, doc, res)
		if err != nil {
			s.logger.Error("Failed to apply fiscal status",
				zap.String("document_id", doc.ID.String()), zap.Error(err))
			continue
		}
		if ok {
			changed++
		}
	}
	if changed > 0 {
		s.logger.Info("Fiscal documents synchronized", zap.Int("changed", changed), zap.Int("checked", len(docs)))
	}
	return changed, nil
}

// HandleWebhook applies a gateway callback authenticated by the shared secret
func (s *Service) HandleWebhook(ctx context.Context, secret string, body []byte) error {
	if !fiscalgw.VerifyWebhookSecret(s.config.WebhookSecret, secret) {
		return shared.NewDomainError("INVALID_WEBHOOK_SECRET", "Webhook secret does not match")
	}
	ref := gjson.GetBytes(body, "ref").String()
	if ref == "" {
		return shared.NewDomainError("INVALID_WEBHOOK", "Webhook has no document reference")
	}
	doc, err := s.documents.FindByProviderRef(ctx, ref)
	if err != nil {
		return err
	}
	res := fiscalgw.ParseResult(doc.Type, body)
	changed, err := s.apply(ctx, doc, res)
	if err != nil {
		return err
	}
	s.logger.Info("Fiscal webhook received",
		zap.String("document_id", doc.ID.String()),
		zap.String("status", string(doc.Status)),
		zap.Bool("changed", changed))
	return nil
}

// DownloadURL returns a presigned link to the stored XML or PDF
func (s *Service) DownloadURL(ctx context.Context, companyID, id uuid.UUID, kind string) (*DownloadResponse, error) {
	doc, err := s.documents.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	key := doc.PDFKey
	if kind == "xml" {
		key = doc.XMLKey
	}
	if key == "" {
		return nil, shared.NewDomainError("FILE_NOT_AVAILABLE", "The file is not available for this document")
	}
	url, expires, err := s.storage.PresignDownload(ctx, key, downloadExpiry)
	if err != nil {
		return nil, err
	}
	return &DownloadResponse{URL: url, ExpiresAt: expires}, nil
}

// Document returns the domain document, used by receipt printing
func (s *Service) Document(ctx context.Context, companyID, saleID uuid.UUID) (*fiscal.Document, error) {
	return s.documents.FindActiveBySale(ctx, companyID, saleID, fiscal.TypeNFCe)
}

func (s *Service) issuer(ctx context.Context, companyID uuid.UUID) (*company.Company, error) {
	if !s.config.Enabled || s.gateway == nil {
		return nil, shared.NewDomainError("FISCAL_DISABLED", "Fiscal issuing is disabled")
	}
	comp, err := s.companies.Lookup(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if !comp.IsActive() {
		return nil, shared.NewDomainError("COMPANY_SUSPENDED", "Company is suspended")
	}
	if err := comp.CanIssueFiscal(); err != nil {
		return nil, err
	}
	return comp, nil
}

// allocate reserves the next number of the company series; a rejected
// document keeps its number
func (s *Service) allocate(ctx context.Context, comp *company.Company, docType fiscal.DocumentType, total decimal.Decimal) (*fiscal.Document, error) {
	series := comp.Fiscal.NFCeSeries
	switch docType {
	case fiscal.TypeNFe:
		series = comp.Fiscal.NFeSeries
	case fiscal.TypeNFSe:
		series = comp.Fiscal.NFSeSeries
	}
	number, err := s.sequences.Next(ctx, comp.ID, docType, series)
	if err != nil {
		return nil, err
	}
	return fiscal.NewDocument(comp.ID, docType, series, number, string(comp.Fiscal.Environment), total)
}

func (s *Service) recipientOfSale(ctx context.Context, sl *sale.Sale) (string, string, error) {
	if sl.CustomerID != nil {
		c, err := s.customers.FindByIDForCompany(ctx, sl.CompanyID, *sl.CustomerID)
		if err == nil && c.Document != "" {
			return c.Name, c.Document, nil
		}
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return "", "", err
		}
	}
	return sl.ConsumerName, sl.ConsumerDocument, nil
}

// send submits a saved document. An unreachable gateway leaves it processing
// for the sync job.
func (s *Service) send(ctx context.Context, doc *fiscal.Document, payload any) error {
	if err := doc.StartProcessing(); err != nil {
		return err
	}
	if err := s.documents.Save(ctx, doc); err != nil {
		return err
	}

	res, err := s.gateway.Issue(ctx, doc.Type, doc.ProviderRef, payload)
	if err != nil {
		var apiErr *fiscalgw.APIError
		switch {
		case errors.Is(err, fiscal.ErrGatewayUnavailable):
			s.logger.Warn("Fiscal gateway unavailable, document left processing",
				zap.String("document_id", doc.ID.String()), zap.Error(err))
			return nil
		case errors.As(err, &apiErr):
			if rejErr := doc.Reject(apiErr.Code, apiErr.Message); rejErr != nil {
				return rejErr
			}
			return s.persist(ctx, doc)
		default:
			return err
		}
	}
	if _, err := s.apply(ctx, doc, res); err != nil {
		return err
	}
	s.logger.Info("Fiscal document sent",
		zap.String("document_id", doc.ID.String()),
		zap.String("type", string(doc.Type)),
		zap.Int64("number", doc.Number),
		zap.String("status", string(doc.Status)))
	return nil
}

// apply moves doc to the gateway state, stores its files once authorized
// and persists it
func (s *Service) apply(ctx context.Context, doc *fiscal.Document, res *fiscal.GatewayResult) (bool, error) {
	changed, err := doc.Apply(res)
	if err != nil {
		return false, err
	}
	if doc.Status == fiscal.StatusAuthorized && (doc.XMLKey == "" || doc.PDFKey == "") {
		s.storeFiles(ctx, doc, res)
		changed = true
	}
	if !changed {
		return false, nil
	}
	return true, s.persist(ctx, doc)
}

func (s *Service) persist(ctx context.Context, doc *fiscal.Document) error {
	if err := s.documents.Save(ctx, doc); err != nil {
		return err
	}
	if err := shared.PublishAndClear(ctx, s.publisher, doc); err != nil {
		s.logger.Warn("Failed to publish fiscal events", zap.String("document_id", doc.ID.String()), zap.Error(err))
	}
	return nil
}

// storeFiles copies the XML and PDF from the gateway into object storage.
// Failures are logged; the sync job retries them.
func (s *Service) storeFiles(ctx context.Context, doc *fiscal.Document, res *fiscal.GatewayResult) {
	if res == nil {
		return
	}
	name := doc.AccessKey
	if name == "" {
		name = fmt.Sprintf("%s-%d-%d", doc.Type, doc.Series, doc.Number)
	}
	var xmlKey, pdfKey string
	if doc.XMLKey == "" && res.XMLPath != "" {
		xmlKey = s.copyFile(ctx, doc, res.XMLPath, storage.KindFiscalXML, name+".xml", "application/xml")
	}
	if doc.PDFKey == "" && res.PDFPath != "" {
		pdfKey = s.copyFile(ctx, doc, res.PDFPath, storage.KindFiscalPDF, name+".pdf", "application/pdf")
	}
	doc.SetFiles(xmlKey, pdfKey)
}

func (s *Service) copyFile(ctx context.Context, doc *fiscal.Document, path, kind, file, contentType string) string {
	data, err := s.gateway.Download(ctx, path)
	if err != nil {
		s.logger.Warn("Failed to download fiscal file",
			zap.String("document_id", doc.ID.String()), zap.String("path", path), zap.Error(err))
		return ""
	}
	key := storage.Key(doc.CompanyID, kind, doc.ID, file)
	if err := s.storage.Upload(ctx, key, data, contentType); err != nil {
		s.logger.Warn("Failed to store fiscal file",
			zap.String("document_id", doc.ID.String()), zap.String("key", key), zap.Error(err))
		return ""
	}
	return key
}

func (s *Service) cancel(ctx context.Context, doc *fiscal.Document, justification string) error {
	now := s.now()
	if err := doc.ValidateCancel(justification, now); err != nil {
		return err
	}
	if !s.config.Enabled || s.gateway == nil {
		return shared.NewDomainError("FISCAL_DISABLED", "Fiscal issuing is disabled")
	}
	res, err := s.gateway.Cancel(ctx, doc.Type, doc.ProviderRef, justification)
	if err != nil {
		var apiErr *fiscalgw.APIError
		if errors.As(err, &apiErr) {
			return shared.WrapDomainError("CANCEL_REJECTED", apiErr.Message, err)
		}
		return err
	}
	if res.Status != fiscal.StatusCancelled {
		msg := res.Message
		if msg == "" {
			msg = "The gateway did not confirm the cancellation"
		}
		return shared.NewDomainError("CANCEL_REJECTED", msg)
	}
	if err := doc.Cancel(justification, now); err != nil {
		return err
	}
	if err := s.persist(ctx, doc); err != nil {
		return err
	}
	s.logger.Info("Fiscal document cancelled",
		zap.String("document_id", doc.ID.String()),
		zap.String("type", string(doc.Type)),
		zap.Int64("number", doc.Number))
	return nil
}
