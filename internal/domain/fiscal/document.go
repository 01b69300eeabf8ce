package fiscal

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DocumentType is the kind of electronic fiscal document
type DocumentType string

const (
	TypeNFCe DocumentType = "nfce"
	TypeNFe  DocumentType = "nfe"
	TypeNFSe DocumentType = "nfse"
)

// IsValid checks if the document type is known
func (t DocumentType) IsValid() bool {
	switch t {
	case TypeNFCe, TypeNFe, TypeNFSe:
		return true
	}
	return false
}

// Model returns the SEFAZ model code (65 for NFCe, 55 for NFe). NFSe has none.
func (t DocumentType) Model() string {
	switch t {
	case TypeNFCe:
		return "65"
	case TypeNFe:
		return "55"
	}
	return ""
}

// CancelWindow is how long after authorization the document may be cancelled
func (t DocumentType) CancelWindow() time.Duration {
	switch t {
	case TypeNFCe:
		return 30 * time.Minute
	case TypeNFe:
		return 24 * time.Hour
	}
	// municipal rules vary; the gateway has the final word
	return 30 * 24 * time.Hour
}

// Status is the authorization state of a document
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusAuthorized Status = "authorized"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
)

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusProcessing
	case StatusProcessing:
		return target == StatusAuthorized || target == StatusRejected
	case StatusRejected:
		return target == StatusProcessing
	case StatusAuthorized:
		return target == StatusCancelled
	}
	return false
}

// IsActive reports whether the document still counts for its sale
func (s Status) IsActive() bool {
	return s != StatusRejected && s != StatusCancelled
}

const (
	MinJustificationLength = 15
	MaxJustificationLength = 255
)

// ServiceData describes the service of an NFSe
type ServiceData struct {
	Description string          `gorm:"column:service_description;type:text"`
	Code        string          `gorm:"column:service_code;type:varchar(20)"`
	ISSRate     decimal.Decimal `gorm:"column:iss_rate;type:decimal(5,2)"`
}

// Document is an NFCe, NFe or NFSe issued for a company
type Document struct {
	shared.CompanyAggregateRoot
	Type              DocumentType    `gorm:"type:varchar(10);not null;index"`
	SaleID            *uuid.UUID      `gorm:"type:uuid;index"`
	CustomerID        *uuid.UUID      `gorm:"type:uuid"`
	Series            int             `gorm:"not null"`
	Number            int64           `gorm:"not null"`
	Environment       string          `gorm:"type:varchar(20);not null"`
	Status            Status          `gorm:"type:varchar(20);not null;default:'pending';index"`
	AccessKey         string          `gorm:"type:varchar(44);index"`
	Protocol          string          `gorm:"type:varchar(50)"`
	RejectionCode     string          `gorm:"type:varchar(10)"`
	RejectionMessage  string          `gorm:"type:text"`
	XMLKey            string          `gorm:"column:xml_key;type:varchar(500)"`
	PDFKey            string          `gorm:"column:pdf_key;type:varchar(500)"`
	QRCodeURL         string          `gorm:"column:qrcode_url;type:text"`
	RecipientName     string          `gorm:"type:varchar(200)"`
	RecipientDocument string          `gorm:"type:varchar(14)"`
	Total             decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Service           ServiceData     `gorm:"embedded"`
	Attempts          int             `gorm:"not null;default:0"`
	ProviderRef       string          `gorm:"type:varchar(100);uniqueIndex"`
	AuthorizedAt      *time.Time
	CancelledAt       *time.Time
	CancelReason      string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Document) TableName() string {
	return "fiscal_documents"
}

// NewDocument creates a pending document with an allocated number
func NewDocument(companyID uuid.UUID, docType DocumentType, series int, number int64, environment string, total decimal.Decimal) (*Document, error) {
	if !docType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Document type must be nfce, nfe or nfse")
	}
	if series < 0 || series > 999 {
		return nil, shared.NewDomainError("INVALID_SERIES", "Series must be between 0 and 999")
	}
	if number <= 0 || number > 999999999 {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Number must be between 1 and 999999999")
	}
	if total.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total cannot be negative")
	}
	d := &Document{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Type:                 docType,
		Series:               series,
		Number:               number,
		Environment:          environment,
		Status:               StatusPending,
		Total:                shared.RoundMoney(total),
	}
	d.ProviderRef = d.ID.String()
	return d, nil
}

// LinkSale ties the document to the sale it was issued for
func (d *Document) LinkSale(saleID uuid.UUID) {
	d.SaleID = &saleID
}

// SetRecipient sets the buyer identification
func (d *Document) SetRecipient(name, document string) error {
	document = shared.OnlyDigits(document)
	if document != "" && !shared.ValidDocument(document) {
		return shared.NewDomainError("INVALID_DOCUMENT", "Recipient document must be a valid CPF or CNPJ")
	}
	if d.Type == TypeNFe && document == "" {
		return shared.NewDomainError("RECIPIENT_REQUIRED", "NFe requires the recipient CPF or CNPJ")
	}
	d.RecipientName = strings.TrimSpace(name)
	d.RecipientDocument = document
	return nil
}

// SetService sets the service data of an NFSe
func (d *Document) SetService(svc ServiceData) error {
	if d.Type != TypeNFSe {
		return shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Service data only applies to NFSe")
	}
	if strings.TrimSpace(svc.Description) == "" {
		return shared.NewDomainError("INVALID_SERVICE", "Service description is required")
	}
	if strings.TrimSpace(svc.Code) == "" {
		return shared.NewDomainError("INVALID_SERVICE", "Service code is required")
	}
	if svc.ISSRate.IsNegative() || svc.ISSRate.GreaterThan(decimal.NewFromInt(5)) {
		return shared.NewDomainError("INVALID_ISS_RATE", "ISS rate must be between 0 and 5 percent")
	}
	d.Service = svc
	return nil
}

// AssignAccessKey computes the 44 digit access key for NFCe/NFe
func (d *Document) AssignAccessKey(uf, cnpj string, issuedAt time.Time) error {
	if d.Type == TypeNFSe {
		return nil
	}
	key, err := BuildAccessKey(AccessKeyParams{
		UF:       uf,
		IssuedAt: issuedAt,
		CNPJ:     cnpj,
		Model:    d.Type.Model(),
		Series:   d.Series,
		Number:   d.Number,
		Code:     NumericCode(d.ID),
	})
	if err != nil {
		return err
	}
	d.AccessKey = key
	return nil
}

// StartProcessing marks the document as sent to the gateway
func (d *Document) StartProcessing() error {
	if err := d.transition(StatusProcessing); err != nil {
		return err
	}
	d.Attempts++
	d.RejectionCode = ""
	d.RejectionMessage = ""
	return nil
}

// Authorize records the authorization returned by the gateway
func (d *Document) Authorize(accessKey, protocol string, at time.Time) error {
	if err := d.transition(StatusAuthorized); err != nil {
		return err
	}
	if accessKey != "" {
		d.AccessKey = accessKey
	}
	d.Protocol = protocol
	if at.IsZero() {
		at = time.Now()
	}
	d.AuthorizedAt = &at
	d.AddDomainEvent(NewDocumentAuthorizedEvent(d))
	return nil
}

// Reject records a SEFAZ/municipality rejection
func (d *Document) Reject(code, message string) error {
	if err := d.transition(StatusRejected); err != nil {
		return err
	}
	d.RejectionCode = code
	d.RejectionMessage = message
	d.AddDomainEvent(NewDocumentRejectedEvent(d))
	return nil
}

// ValidateCancel checks the cancellation window and justification without changing state
func (d *Document) ValidateCancel(justification string, now time.Time) error {
	if !d.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel a %s document", d.Status))
	}
	n := len([]rune(strings.TrimSpace(justification)))
	if n < MinJustificationLength || n > MaxJustificationLength {
		return shared.NewDomainError("INVALID_JUSTIFICATION", "Justification must have between 15 and 255 characters")
	}
	if d.AuthorizedAt != nil && now.Sub(*d.AuthorizedAt) > d.Type.CancelWindow() {
		return shared.NewDomainError("CANCEL_WINDOW_EXPIRED", "The cancellation window for this document has expired")
	}
	return nil
}

// Cancel cancels an authorized document
func (d *Document) Cancel(justification string, now time.Time) error {
	if err := d.ValidateCancel(justification, now); err != nil {
		return err
	}
	if err := d.transition(StatusCancelled); err != nil {
		return err
	}
	d.CancelledAt = &now
	d.CancelReason = strings.TrimSpace(justification)
	d.AddDomainEvent(NewDocumentCancelledEvent(d))
	return nil
}

// SetFiles records the storage keys of the XML and PDF
func (d *Document) SetFiles(xmlKey, pdfKey string) {
	if xmlKey != "" {
		d.XMLKey = xmlKey
	}
	if pdfKey != "" {
		d.PDFKey = pdfKey
	}
	d.Touch()
}

func (d *Document) transition(target Status) error {
	if !d.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot move fiscal document from %s to %s", d.Status, target))
	}
	d.Status = target
	d.IncrementVersion()
	return nil
}
