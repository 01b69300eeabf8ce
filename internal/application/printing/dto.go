package printing

import (
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/printing"
)

// CreatePrinterRequest registers a printer
type CreatePrinterRequest struct {
	Name       string `json:"name" binding:"required,min=1,max=100"`
	Connection string `json:"connection" binding:"required,oneof=network usb shared"`
	// Address is host[:port] for network printers, the device path for usb
	// and the spooler queue or share name for shared printers
	Address    string `json:"address" binding:"required,max=255"`
	PaperWidth int    `json:"paper_width" binding:"omitempty,oneof=58 80"`
	IsDefault  bool   `json:"is_default"`
}

// UpdatePrinterRequest changes a printer
type UpdatePrinterRequest struct {
	Name       string `json:"name" binding:"required,min=1,max=100"`
	Connection string `json:"connection" binding:"required,oneof=network usb shared"`
	Address    string `json:"address" binding:"required,max=255"`
	PaperWidth int    `json:"paper_width" binding:"omitempty,oneof=58 80"`
}

// PrintRequest selects the printer of a job; empty uses the company default
type PrintRequest struct {
	PrinterID *uuid.UUID `json:"printer_id"`
}

// JobListFilter represents filter options for the print job list
type JobListFilter struct {
	PrinterID *uuid.UUID `form:"printer_id"`
	Status    string     `form:"status" binding:"omitempty,oneof=pending printing completed failed"`
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// PrinterResponse represents a printer in API responses
type PrinterResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Connection string    `json:"connection"`
	Address    string    `json:"address"`
	PaperWidth int       `json:"paper_width"`
	Columns    int       `json:"columns"`
	IsDefault  bool      `json:"is_default"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// JobResponse represents a print job in API responses
type JobResponse struct {
	ID          uuid.UUID  `json:"id"`
	PrinterID   uuid.UUID  `json:"printer_id"`
	Kind        string     `json:"kind"`
	ReferenceID *uuid.UUID `json:"reference_id,omitempty"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Attempts    int        `json:"attempts"`
	CreatedAt   time.Time  `json:"created_at"`
	PrintedAt   *time.Time `json:"printed_at,omitempty"`
}

// ToPrinterResponse converts a domain printer to a response
func ToPrinterResponse(p *printing.Printer) PrinterResponse {
	return PrinterResponse{
		ID:         p.ID,
		Name:       p.Name,
		Connection: string(p.Connection),
		Address:    p.Address,
		PaperWidth: p.PaperWidth,
		Columns:    p.Columns(),
		IsDefault:  p.IsDefault,
		Active:     p.Active,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// ToJobResponse converts a domain job to a response
func ToJobResponse(j *printing.Job) JobResponse {
	return JobResponse{
		ID:          j.ID,
		PrinterID:   j.PrinterID,
		Kind:        string(j.Kind),
		ReferenceID: j.ReferenceID,
		Status:      string(j.Status),
		Error:       j.Error,
		Attempts:    j.Attempts,
		CreatedAt:   j.CreatedAt,
		PrintedAt:   j.PrintedAt,
	}
}
