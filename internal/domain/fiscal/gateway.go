package fiscal

import (
	"context"
	"errors"
	"time"
)

// ErrGatewayUnavailable is returned when the fiscal gateway cannot be reached
// after retrying. The document stays in processing and is picked up by the sync job.
var ErrGatewayUnavailable = errors.New("fiscal gateway unavailable")

// GatewayResult is the gateway view of a document
type GatewayResult struct {
	Ref          string
	Status       Status
	AccessKey    string
	Protocol     string
	StatusCode   string
	Message      string
	XMLPath      string
	PDFPath      string
	QRCodeURL    string
	AuthorizedAt time.Time
}

// Gateway issues documents through the external fiscal provider
type Gateway interface {
	Issue(ctx context.Context, docType DocumentType, ref string, payload any) (*GatewayResult, error)
	Query(ctx context.Context, docType DocumentType, ref string) (*GatewayResult, error)
	Cancel(ctx context.Context, docType DocumentType, ref, justification string) (*GatewayResult, error)
	Download(ctx context.Context, path string) ([]byte, error)
}

// Apply moves the document to the state reported by the gateway.
// It returns false when the result does not change anything.
func (d *Document) Apply(r *GatewayResult) (bool, error) {
	if r == nil || r.Status == d.Status {
		return false, nil
	}
	if r.QRCodeURL != "" {
		d.QRCodeURL = r.QRCodeURL
	}
	switch r.Status {
	case StatusAuthorized:
		return true, d.Authorize(r.AccessKey, r.Protocol, r.AuthorizedAt)
	case StatusRejected:
		return true, d.Reject(r.StatusCode, r.Message)
	case StatusCancelled:
		if d.Status != StatusAuthorized {
			return false, nil
		}
		now := time.Now()
		d.Status = StatusCancelled
		d.CancelledAt = &now
		d.IncrementVersion()
		d.AddDomainEvent(NewDocumentCancelledEvent(d))
		return true, nil
	}
	return false, nil
}
