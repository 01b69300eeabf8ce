package fiscal

import (
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/fiscal"
	"github.com/shopspring/decimal"
)

// IssueForSaleRequest issues an NFCe or NFe for a completed sale
type IssueForSaleRequest struct {
	Type string `json:"type" binding:"required,oneof=nfce nfe"`
}

// IssueServiceRequest issues an NFSe
type IssueServiceRequest struct {
	CustomerID        *uuid.UUID      `json:"customer_id"`
	RecipientName     string          `json:"recipient_name" binding:"max=200"`
	RecipientDocument string          `json:"recipient_document" binding:"max=18"`
	Description       string          `json:"description" binding:"required,min=3,max=2000"`
	ServiceCode       string          `json:"service_code" binding:"required,max=20"`
	ISSRate           decimal.Decimal `json:"iss_rate"`
	Amount            decimal.Decimal `json:"amount" binding:"required"`
}

// CancelDocumentRequest cancels an authorized document
type CancelDocumentRequest struct {
	Justification string `json:"justification" binding:"required,min=15,max=255"`
}

// DocumentListFilter represents filter options for the document list
type DocumentListFilter struct {
	Search   string     `form:"search"`
	Type     string     `form:"type" binding:"omitempty,oneof=nfce nfe nfse"`
	Status   string     `form:"status" binding:"omitempty,oneof=pending processing authorized rejected cancelled"`
	SaleID   *uuid.UUID `form:"sale_id"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string     `form:"order_by" binding:"omitempty,oneof=number created_at authorized_at total"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// DownloadResponse is a presigned link to a stored fiscal file
type DownloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DocumentResponse represents a fiscal document in API responses
type DocumentResponse struct {
	ID                uuid.UUID       `json:"id"`
	Type              string          `json:"type"`
	SaleID            *uuid.UUID      `json:"sale_id,omitempty"`
	Series            int             `json:"series"`
	Number            int64           `json:"number"`
	Environment       string          `json:"environment"`
	Status            string          `json:"status"`
	AccessKey         string          `json:"access_key,omitempty"`
	Protocol          string          `json:"protocol,omitempty"`
	RejectionCode     string          `json:"rejection_code,omitempty"`
	RejectionMessage  string          `json:"rejection_message,omitempty"`
	HasXML            bool            `json:"has_xml"`
	HasPDF            bool            `json:"has_pdf"`
	QRCodeURL         string          `json:"qrcode_url,omitempty"`
	RecipientName     string          `json:"recipient_name,omitempty"`
	RecipientDocument string          `json:"recipient_document,omitempty"`
	Total             decimal.Decimal `json:"total"`
	Attempts          int             `json:"attempts"`
	AuthorizedAt      *time.Time      `json:"authorized_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason      string          `json:"cancel_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ToDocumentResponse converts a domain document to a response
func ToDocumentResponse(d *fiscal.Document) DocumentResponse {
	return DocumentResponse{
		ID:                d.ID,
		Type:              string(d.Type),
		SaleID:            d.SaleID,
		Series:            d.Series,
		Number:            d.Number,
		Environment:       d.Environment,
		Status:            string(d.Status),
		AccessKey:         d.AccessKey,
		Protocol:          d.Protocol,
		RejectionCode:     d.RejectionCode,
		RejectionMessage:  d.RejectionMessage,
		HasXML:            d.XMLKey != "",
		HasPDF:            d.PDFKey != "",
		QRCodeURL:         d.QRCodeURL,
		RecipientName:     d.RecipientName,
		RecipientDocument: d.RecipientDocument,
		Total:             d.Total,
		Attempts:          d.Attempts,
		AuthorizedAt:      d.AuthorizedAt,
		CancelledAt:       d.CancelledAt,
		CancelReason:      d.CancelReason,
		CreatedAt:         d.CreatedAt,
	}
}
