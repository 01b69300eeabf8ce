package printing

import (
	"context"
	"errors"
	"time"
)

// RenderRequest contains the parameters for rendering HTML to PDF
type RenderRequest struct {
	HTML  string
	Title string
	// PaperWidthMM is the page width; receipts use 80 or 58, documents 210 (A4)
	PaperWidthMM int
	// MarginMM applies to all sides
	MarginMM int
	// Timeout overrides the default rendering timeout
	Timeout time.Duration
}

// IsReceipt reports whether the page is a roll of thermal paper
func (r *RenderRequest) IsReceipt() bool {
	return r.PaperWidthMM > 0 && r.PaperWidthMM <= 80
}

// RenderResult contains the output from PDF rendering
type RenderResult struct {
	PDFData        []byte
	RenderDuration time.Duration
}

// PDFRenderer defines the interface for rendering HTML to PDF
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// RenderError represents an error during PDF rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeInvalidHTML   = "INVALID_HTML"
	ErrCodeDisabled      = "RENDER_DISABLED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrRenderingDisabled is returned by NoopRenderer
var ErrRenderingDisabled = NewRenderError(ErrCodeDisabled, "PDF rendering is disabled", nil)

// NoopRenderer is used when no browser is available; callers fall back to
// sending the receipt without attachment.
type NoopRenderer struct{}

func (NoopRenderer) Render(context.Context, *RenderRequest) (*RenderResult, error) {
	return nil, ErrRenderingDisabled
}

func (NoopRenderer) Close() error { return nil }

// IsDisabled reports whether err means PDF rendering is turned off
func IsDisabled(err error) bool {
	var re *RenderError
	return errors.As(err, &re) && re.Code == ErrCodeDisabled
}
