package fiscal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/company"
	"github.com/pdv/backend/internal/domain/fiscal"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/shared"
	fiscalgw "github.com/pdv/backend/internal/infrastructure/fiscal"
	"github.com/pdv/backend/internal/infrastructure/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const webhookSecret = "segredo-webhook"

var fixedNow = time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC)

type fixture struct {
	company   *company.Company
	documents *MockDocumentRepository
	sequences *MockSequenceRepository
	sales     *MockSaleRepository
	customers *MockCustomerRepository
	gateway   *MockGateway
	objects   *storage.StubObjectStorage
	publisher *recordingPublisher
	service   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	comp, err := company.NewCompany("Mercado Central", "11222333000181", company.TaxRegimeSimplesNacional)
	require.NoError(t, err)
	require.NoError(t, comp.SetAddress(company.Address{City: "Campinas", CityCode: "3509502", State: "SP"}))
	require.NoError(t, comp.UpdateProfile("Mercado Central", "", "123456789", "998877", "", "", ""))

	f := &fixture{
		company:   comp,
		documents: new(MockDocumentRepository),
		sequences: new(MockSequenceRepository),
		sales:     new(MockSaleRepository),
		customers: new(MockCustomerRepository),
		gateway:   new(MockGateway),
		objects:   storage.NewStubObjectStorage(),
		publisher: &recordingPublisher{},
	}
	f.service = NewService(Deps{
		Documents: f.documents,
		Sequences: f.sequences,
		Sales:     f.sales,
		Customers: f.customers,
		Companies: staticCompanies{company: comp},
		Gateway:   f.gateway,
		Storage:   f.objects,
		Tx:        passthroughTx{},
		Publisher: f.publisher,
	}, Config{Enabled: true, WebhookSecret: webhookSecret}, zap.NewNop())
	f.service.now = func() time.Time { return fixedNow }
	return f
}

func completedSale(t *testing.T, companyID uuid.UUID) *sale.Sale {
	t.Helper()
	sl, err := sale.NewSale(companyID, uuid.New(), 42)
	require.NoError(t, err)
	_, err = sl.AddItem(sale.ProductSnapshot{
		ProductID: uuid.New(), Code: "CAF-1", Name: "Café 500g", Unit: "UN", NCM: "09012100", CFOP: "5102",
	}, decimal.NewFromInt(2), decimal.NewFromFloat(18.9), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, sl.Complete([]sale.PaymentInput{{Method: sale.MethodCash, Amount: decimal.NewFromInt(40)}}, uuid.New()))
	sl.ClearDomainEvents()
	return sl
}

func authorizedDocument(t *testing.T, companyID uuid.UUID, docType fiscal.DocumentType, at time.Time) *fiscal.Document {
	t.Helper()
	doc, err := fiscal.NewDocument(companyID, docType, 1, 10, "homologation", decimal.NewFromFloat(37.8))
	require.NoError(t, err)
	require.NoError(t, doc.StartProcessing())
	require.NoError(t, doc.Authorize("", "135240000000001", at))
	doc.ClearDomainEvents()
	return doc
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	de, ok := shared.AsDomainError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	return de.Code
}

func TestService_IssueForSale(t *testing.T) {
	ctx := context.Background()

	t.Run("authorized and files stored", func(t *testing.T) {
		f := newFixture(t)
		sl := completedSale(t, f.company.ID)
		f.sales.On("FindByIDForCompany", ctx, f.company.ID, sl.ID).Return(sl, nil)
		f.documents.On("FindActiveBySale", ctx, f.company.ID, sl.ID, fiscal.TypeNFCe).Return(nil, shared.ErrNotFound)
		f.sequences.On("Next", ctx, f.company.ID, fiscal.TypeNFCe, 1).Return(int64(7), nil)
		f.documents.On("Save", ctx, mock.Anything).Return(nil)
		f.gateway.On("Issue", ctx, fiscal.TypeNFCe, mock.Anything, mock.AnythingOfType("fiscal.ProductPayload")).Return(&fiscal.GatewayResult{
			Status:    fiscal.StatusAuthorized,
			Protocol:  "135240000000077",
			XMLPath:   "/arquivos/nfce.xml",
			PDFPath:   "/arquivos/danfce.pdf",
			QRCodeURL: "https://sefaz/qrcode",
		}, nil)
		f.gateway.On("Download", ctx, "/arquivos/nfce.xml").Return([]byte("<nfeProc/>"), nil)
		f.gateway.On("Download", ctx, "/arquivos/danfce.pdf").Return([]byte("%PDF"), nil)

		resp, err := f.service.IssueForSale(ctx, f.company.ID, sl.ID, IssueForSaleRequest{Type: "nfce"})
		require.NoError(t, err)
		assert.Equal(t, "authorized", resp.Status)
		assert.Equal(t, int64(7), resp.Number)
		assert.Len(t, resp.AccessKey, fiscal.AccessKeyLength)
		assert.True(t, resp.HasXML)
		assert.True(t, resp.HasPDF)
		assert.Equal(t, 1, resp.Attempts)

		data, ok := f.objects.Object(storage.Key(f.company.ID, storage.KindFiscalXML, resp.ID, resp.AccessKey+".xml"))
		require.True(t, ok)
		assert.Equal(t, "<nfeProc/>", string(data))
		assert.Equal(t, []string{fiscal.EventTypeDocumentAuthorized}, f.publisher.types())
	})

	t.Run("gateway unavailable keeps processing", func(t *testing.T) {
		f := newFixture(t)
		sl := completedSale(t, f.company.ID)
		f.sales.On("FindByIDForCompany", ctx, f.company.ID, sl.ID).Return(sl, nil)
		f.documents.On("FindActiveBySale", ctx, f.company.ID, sl.ID, fiscal.TypeNFCe).Return(nil, shared.ErrNotFound)
		f.sequences.On("Next", ctx, f.company.ID, fiscal.TypeNFCe, 1).Return(int64(8), nil)
		f.documents.On("Save", ctx, mock.Anything).Return(nil)
		f.gateway.On("Issue", ctx, fiscal.TypeNFCe, mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("timeout: %w", fiscal.ErrGatewayUnavailable))

		resp, err := f.service.IssueForSale(ctx, f.company.ID, sl.ID, IssueForSaleRequest{Type: "nfce"})
		require.NoError(t, err)
		assert.Equal(t, "processing", resp.Status)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("rejection keeps the number", func(t *testing.T) {
		f := newFixture(t)
		sl := completedSale(t, f.company.ID)
		f.sales.On("FindByIDForCompany", ctx, f.company.ID, sl.ID).Return(sl, nil)
		f.documents.On("FindActiveBySale", ctx, f.company.ID, sl.ID, fiscal.TypeNFCe).Return(nil, shared.ErrNotFound)
		f.sequences.On("Next", ctx, f.company.ID, fiscal.TypeNFCe, 1).Return(int64(9), nil)
		f.documents.On("Save", ctx, mock.Anything).Return(nil)
		f.gateway.On("Issue", ctx, fiscal.TypeNFCe, mock.Anything, mock.Anything).
			Return(nil, &fiscalgw.APIError{StatusCode: 422, Code: "778", Message: "NCM inexistente"})

		resp, err := f.service.IssueForSale(ctx, f.company.ID, sl.ID, IssueForSaleRequest{Type: "nfce"})
		require.NoError(t, err)
		assert.Equal(t, "rejected", resp.Status)
		assert.Equal(t, int64(9), resp.Number)
		assert.Equal(t, "778", resp.RejectionCode)
		assert.Equal(t, []string{fiscal.EventTypeDocumentRejected}, f.publisher.types())
	})

	t.Run("already issued", func(t *testing.T) {
		f := newFixture(t)
		sl := completedSale(t, f.company.ID)
		existing := authorizedDocument(t, f.company.ID, fiscal.TypeNFCe, fixedNow)
		f.sales.On("FindByIDForCompany", ctx, f.company.ID, sl.ID).Return(sl, nil)
		f.documents.On("FindActiveBySale", ctx, f.company.ID, sl.ID, fiscal.TypeNFCe).Return(existing, nil)

		_, err := f.service.IssueForSale(ctx, f.company.ID, sl.ID, IssueForSaleRequest{Type: "nfce"})
		assert.Equal(t, "DOCUMENT_ALREADY_ISSUED", codeOf(t, err))
		f.sequences.AssertNotCalled(t, "Next", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("open sale", func(t *testing.T) {
		f := newFixture(t)
		sl, err := sale.NewSale(f.company.ID, uuid.New(), 1)
		require.NoError(t, err)
		f.sales.On("FindByIDForCompany", ctx, f.company.ID, sl.ID).Return(sl, nil)

		_, err = f.service.IssueForSale(ctx, f.company.ID, sl.ID, IssueForSaleRequest{Type: "nfce"})
		assert.Equal(t, "SALE_NOT_COMPLETED", codeOf(t, err))
	})

	t.Run("nfe needs a recipient document", func(t *testing.T) {
		f := newFixture(t)
		sl := completedSale(t, f.company.ID)
		f.sales.On("FindByIDForCompany", ctx, f.company.ID, sl.ID).Return(sl, nil)
		f.documents.On("FindActiveBySale", ctx, f.company.ID, sl.ID, fiscal.TypeNFe).Return(nil, shared.ErrNotFound)
		f.sequences.On("Next", ctx, f.company.ID, fiscal.TypeNFe, 1).Return(int64(1), nil)

		_, err := f.service.IssueForSale(ctx, f.company.ID, sl.ID, IssueForSaleRequest{Type: "nfe"})
		assert.Equal(t, "RECIPIENT_REQUIRED", codeOf(t, err))
		f.gateway.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t)
		f.service.config.Enabled = false
		_, err := f.service.IssueForSale(ctx, f.company.ID, uuid.New(), IssueForSaleRequest{Type: "nfce"})
		assert.Equal(t, "FISCAL_DISABLED", codeOf(t, err))
	})

	t.Run("incomplete registration", func(t *testing.T) {
		f := newFixture(t)
		f.company.StateRegistration = ""
		_, err := f.service.IssueForSale(ctx, f.company.ID, uuid.New(), IssueForSaleRequest{Type: "nfce"})
		assert.Equal(t, "STATE_REGISTRATION_REQUIRED", codeOf(t, err))
	})
}

func TestService_IssueService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.sequences.On("Next", ctx, f.company.ID, fiscal.TypeNFSe, 1).Return(int64(3), nil)
	f.documents.On("Save", ctx, mock.Anything).Return(nil)
	f.gateway.On("Issue", ctx, fiscal.TypeNFSe, mock.Anything, mock.AnythingOfType("fiscal.ServicePayload")).
		Return(&fiscal.GatewayResult{Status: fiscal.StatusProcessing}, nil)

	resp, err := f.service.IssueService(ctx, f.company.ID, IssueServiceRequest{
		RecipientName:     "Maria Souza",
		RecipientDocument: "529.982.247-25",
		Description:       "Manutenção de balança",
		ServiceCode:       "14.01",
		ISSRate:           decimal.NewFromInt(3),
		Amount:            decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	assert.Equal(t, "nfse", resp.Type)
	assert.Equal(t, "processing", resp.Status)
	assert.Equal(t, "52998224725", resp.RecipientDocument)
	assert.Empty(t, resp.AccessKey)
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()
	justification := "Cliente desistiu da compra no caixa"

	t.Run("within window", func(t *testing.T) {
		f := newFixture(t)
		doc := authorizedDocument(t, f.company.ID, fiscal.TypeNFCe, fixedNow.Add(-10*time.Minute))
		f.documents.On("FindByIDForCompany", ctx, f.company.ID, doc.ID).Return(doc, nil)
		f.documents.On("Save", ctx, doc).Return(nil)
		f.gateway.On("Cancel", ctx, fiscal.TypeNFCe, doc.ProviderRef, justification).
			Return(&fiscal.GatewayResult{Status: fiscal.StatusCancelled}, nil)

		resp, err := f.service.Cancel(ctx, f.company.ID, doc.ID, CancelDocumentRequest{Justification: justification})
		require.NoError(t, err)
		assert.Equal(t, "cancelled", resp.Status)
		assert.Equal(t, justification, resp.CancelReason)
		assert.Equal(t, []string{fiscal.EventTypeDocumentCancelled}, f.publisher.types())
	})

	t.Run("window expired", func(t *testing.T) {
		f := newFixture(t)
		doc := authorizedDocument(t, f.company.ID, fiscal.TypeNFCe, fixedNow.Add(-31*time.Minute))
		f.documents.On("FindByIDForCompany", ctx, f.company.ID, doc.ID).Return(doc, nil)

		_, err := f.service.Cancel(ctx, f.company.ID, doc.ID, CancelDocumentRequest{Justification: justification})
		assert.Equal(t, "CANCEL_WINDOW_EXPIRED", codeOf(t, err))
		f.gateway.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("refused by gateway", func(t *testing.T) {
		f := newFixture(t)
		doc := authorizedDocument(t, f.company.ID, fiscal.TypeNFe, fixedNow.Add(-time.Hour))
		f.documents.On("FindByIDForCompany", ctx, f.company.ID, doc.ID).Return(doc, nil)
		f.gateway.On("Cancel", ctx, fiscal.TypeNFe, doc.ProviderRef, justification).
			Return(&fiscal.GatewayResult{Status: fiscal.StatusAuthorized, Message: "Rejeição: prazo"}, nil)

		_, err := f.service.Cancel(ctx, f.company.ID, doc.ID, CancelDocumentRequest{Justification: justification})
		assert.Equal(t, "CANCEL_REJECTED", codeOf(t, err))
		assert.Equal(t, fiscal.StatusAuthorized, doc.Status)
	})
}

func TestService_CancelForSale(t *testing.T) {
	ctx := context.Background()
	reason := "Venda lançada em duplicidade"

	t.Run("no documents", func(t *testing.T) {
		f := newFixture(t)
		saleID := uuid.New()
		f.documents.On("FindActiveBySale", ctx, f.company.ID, saleID, mock.Anything).Return(nil, shared.ErrNotFound)

		assert.NoError(t, f.service.CancelForSale(ctx, f.company.ID, uuid.New(), saleID, reason))
	})

	t.Run("document still processing", func(t *testing.T) {
		f := newFixture(t)
		saleID := uuid.New()
		doc, err := fiscal.NewDocument(f.company.ID, fiscal.TypeNFCe, 1, 5, "homologation", decimal.NewFromInt(10))
		require.NoError(t, err)
		require.NoError(t, doc.StartProcessing())
		f.documents.On("FindActiveBySale", ctx, f.company.ID, saleID, fiscal.TypeNFCe).Return(doc, nil)

		err = f.service.CancelForSale(ctx, f.company.ID, uuid.New(), saleID, reason)
		assert.Equal(t, "FISCAL_DOCUMENT_PROCESSING", codeOf(t, err))
	})

	t.Run("cancels the authorized nfce", func(t *testing.T) {
		f := newFixture(t)
		saleID := uuid.New()
		doc := authorizedDocument(t, f.company.ID, fiscal.TypeNFCe, fixedNow.Add(-5*time.Minute))
		f.documents.On("FindActiveBySale", ctx, f.company.ID, saleID, fiscal.TypeNFCe).Return(doc, nil)
		f.documents.On("FindActiveBySale", ctx, f.company.ID, saleID, fiscal.TypeNFe).Return(nil, shared.ErrNotFound)
		f.documents.On("Save", ctx, doc).Return(nil)
		f.gateway.On("Cancel", ctx, fiscal.TypeNFCe, doc.ProviderRef, reason).
			Return(&fiscal.GatewayResult{Status: fiscal.StatusCancelled}, nil)

		require.NoError(t, f.service.CancelForSale(ctx, f.company.ID, uuid.New(), saleID, reason))
		assert.Equal(t, fiscal.StatusCancelled, doc.Status)
	})
}

func TestService_HandleWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong secret", func(t *testing.T) {
		f := newFixture(t)
		err := f.service.HandleWebhook(ctx, "outro", []byte(`{"ref":"x"}`))
		assert.Equal(t, "INVALID_WEBHOOK_SECRET", codeOf(t, err))
		f.documents.AssertNotCalled(t, "FindByProviderRef", mock.Anything, mock.Anything)
	})

	t.Run("authorizes", func(t *testing.T) {
		f := newFixture(t)
		doc, err := fiscal.NewDocument(f.company.ID, fiscal.TypeNFCe, 1, 11, "homologation", decimal.NewFromInt(10))
		require.NoError(t, err)
		require.NoError(t, doc.StartProcessing())
		f.documents.On("FindByProviderRef", ctx, doc.ProviderRef).Return(doc, nil)
		f.documents.On("Save", ctx, doc).Return(nil)
		f.gateway.On("Download", ctx, "/x.xml").Return([]byte("<xml/>"), nil)
		f.gateway.On("Download", ctx, "/d.pdf").Return(nil, errors.New("not found"))

		body := fmt.Sprintf(`{"ref":%q,"status":"autorizado","protocolo":"135","caminho_xml_nota_fiscal":"/x.xml","caminho_danfe":"/d.pdf"}`, doc.ProviderRef)
		require.NoError(t, f.service.HandleWebhook(ctx, webhookSecret, []byte(body)))
		assert.Equal(t, fiscal.StatusAuthorized, doc.Status)
		assert.NotEmpty(t, doc.XMLKey)
		assert.Empty(t, doc.PDFKey)
		f.documents.AssertCalled(t, "Save", ctx, doc)
	})
}

func TestService_SyncStatusStopsWhenUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	docs := make([]fiscal.Document, 2)
	for i := range docs {
		doc, err := fiscal.NewDocument(f.company.ID, fiscal.TypeNFCe, 1, int64(i+1), "homologation", decimal.NewFromInt(10))
		require.NoError(t, err)
		require.NoError(t, doc.StartProcessing())
		docs[i] = *doc
	}
	f.documents.On("FindProcessing", ctx, fixedNow.Add(-syncGrace), 50).Return(docs, nil)
	f.gateway.On("Query", ctx, fiscal.TypeNFCe, docs[0].ProviderRef).Return(nil, fiscal.ErrGatewayUnavailable)

	changed, err := f.service.SyncStatus(ctx, 50)
	require.NoError(t, err)
	assert.Zero(t, changed)
	f.gateway.AssertNumberOfCalls(t, "Query", 1)
}

func TestService_SyncStatusRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc, err := fiscal.NewDocument(f.company.ID, fiscal.TypeNFCe, 1, 1, "homologation", decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, doc.StartProcessing())
	f.documents.On("FindProcessing", ctx, mock.Anything, 20).Return([]fiscal.Document{*doc}, nil)
	f.documents.On("Save", ctx, mock.Anything).Return(nil)
	f.gateway.On("Query", ctx, fiscal.TypeNFCe, doc.ProviderRef).
		Return(&fiscal.GatewayResult{Status: fiscal.StatusRejected, StatusCode: "539", Message: "Duplicidade"}, nil)

	changed, err := f.service.SyncStatus(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, []string{fiscal.EventTypeDocumentRejected}, f.publisher.types())
}

func TestService_DownloadURL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := authorizedDocument(t, f.company.ID, fiscal.TypeNFCe, fixedNow)
	f.documents.On("FindByIDForCompany", ctx, f.company.ID, doc.ID).Return(doc, nil)

	_, err := f.service.DownloadURL(ctx, f.company.ID, doc.ID, "pdf")
	assert.Equal(t, "FILE_NOT_AVAILABLE", codeOf(t, err))

	doc.SetFiles(storage.Key(f.company.ID, storage.KindFiscalXML, doc.ID, "nota.xml"), "")
	resp, err := f.service.DownloadURL(ctx, f.company.ID, doc.ID, "xml")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.URL)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
}

func TestAutoNFCeHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled by company", func(t *testing.T) {
		f := newFixture(t)
		h := NewAutoNFCeHandler(f.service, staticCompanies{company: f.company}, zap.NewNop())
		sl := completedSale(t, f.company.ID)

		require.NoError(t, h.Handle(ctx, sale.NewSaleCompletedEvent(sl)))
		f.sales.AssertNotCalled(t, "FindByIDForCompany", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ignores documents already issued", func(t *testing.T) {
		f := newFixture(t)
		f.company.Fiscal.AutoIssueNFCe = true
		h := NewAutoNFCeHandler(f.service, staticCompanies{company: f.company}, zap.NewNop())
		sl := completedSale(t, f.company.ID)
		f.sales.On("FindByIDForCompany", ctx, f.company.ID, sl.ID).Return(sl, nil)
		f.documents.On("FindActiveBySale", ctx, f.company.ID, sl.ID, fiscal.TypeNFCe).
			Return(authorizedDocument(t, f.company.ID, fiscal.TypeNFCe, fixedNow), nil)

		assert.NoError(t, h.Handle(ctx, sale.NewSaleCompletedEvent(sl)))
	})
}
