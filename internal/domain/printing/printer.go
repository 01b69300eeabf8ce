package printing

import (
	"context"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
)

// Connection is how the backend reaches a printer
type Connection string

const (
	ConnectionNetwork Connection = "network"
	ConnectionUSB     Connection = "usb"
	ConnectionShared  Connection = "shared"
)

// IsValid checks if the connection is known
func (c Connection) IsValid() bool {
	switch c {
	case ConnectionNetwork, ConnectionUSB, ConnectionShared:
		return true
	}
	return false
}

// DefaultRawPort is the JetDirect/raw printing port
const DefaultRawPort = 9100

// Printer is a thermal receipt printer of a company
type Printer struct {
	shared.CompanyAggregateRoot
	Name       string     `gorm:"type:varchar(100);not null"`
	Connection Connection `gorm:"type:varchar(20);not null"`
	Address    string     `gorm:"type:varchar(255);not null"`
	PaperWidth int        `gorm:"not null;default:80"`
	IsDefault  bool       `gorm:"not null;default:false"`
	Active     bool       `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Printer) TableName() string {
	return "printers"
}

// NewPrinter creates an active printer
func NewPrinter(companyID uuid.UUID, name string, conn Connection, address string, paperWidth int) (*Printer, error) {
	p := &Printer{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Active:               true,
	}
	if err := p.Update(name, conn, address, paperWidth); err != nil {
		return nil, err
	}
	p.Version = 1
	return p, nil
}

// Update changes the printer configuration
func (p *Printer) Update(name string, conn Connection, address string, paperWidth int) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Printer name must have between 1 and 100 characters")
	}
	if !conn.IsValid() {
		return shared.NewDomainError("INVALID_CONNECTION", "Connection must be network, usb or shared")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Printer address is required")
	}
	if len(address) > 255 {
		return shared.NewDomainError("INVALID_ADDRESS", "Printer address cannot exceed 255 characters")
	}
	if conn == ConnectionNetwork {
		normalized, err := normalizeNetworkAddress(address)
		if err != nil {
			return err
		}
		address = normalized
	} else if err := ValidateLocalAddress(address); err != nil {
		return err
	}
	if paperWidth == 0 {
		paperWidth = 80
	}
	if paperWidth != 58 && paperWidth != 80 {
		return shared.NewDomainError("INVALID_PAPER_WIDTH", "Paper width must be 58 or 80 mm")
	}
	p.Name = name
	p.Connection = conn
	p.Address = address
	p.PaperWidth = paperWidth
	p.IncrementVersion()
	return nil
}

// Columns returns the characters per line in the normal font
func (p *Printer) Columns() int {
	if p.PaperWidth == 58 {
		return 32
	}
	return 48
}

// SetDefault marks or unmarks the printer as the company default
func (p *Printer) SetDefault(def bool) {
	p.IsDefault = def
	p.IncrementVersion()
}

// Activate enables the printer
func (p *Printer) Activate() {
	p.Active = true
	p.IncrementVersion()
}

// Deactivate disables the printer; a disabled printer is never the default
func (p *Printer) Deactivate() {
	p.Active = false
	p.IsDefault = false
	p.IncrementVersion()
}

// DevicePrefix is the only filesystem location a local printer may point at
const DevicePrefix = "/dev/"

// ValidateLocalAddress checks a spooler queue name, a UNC share or a device
// path. Device paths must already be clean and stay under /dev/.
func ValidateLocalAddress(address string) error {
	if strings.Contains(address, "..") {
		return shared.NewDomainError("INVALID_ADDRESS", "Printer address cannot contain '..'")
	}
	if strings.ContainsAny(address, "\x00\r\n") {
		return shared.NewDomainError("INVALID_ADDRESS", "Printer address contains invalid characters")
	}
	if strings.HasPrefix(address, "/") {
		if !IsDevicePath(address) {
			return shared.NewDomainError("INVALID_ADDRESS", "Printer device must be a clean path under /dev/")
		}
	}
	return nil
}

// IsDevicePath reports whether p is a clean path below /dev/
func IsDevicePath(p string) bool {
	return strings.HasPrefix(p, DevicePrefix) && path.Clean(p) == p && len(p) > len(DevicePrefix)
}

func normalizeNetworkAddress(address string) (string, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		// bare host
		host, port = address, strconv.Itoa(DefaultRawPort)
	}
	if host == "" {
		return "", shared.NewDomainError("INVALID_ADDRESS", "Printer host is required")
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return "", shared.NewDomainError("INVALID_ADDRESS", "Printer port is not valid")
	}
	return net.JoinHostPort(host, port), nil
}

// PrinterRepository defines persistence for printers
type PrinterRepository interface {
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Printer, error)
	FindDefault(ctx context.Context, companyID uuid.UUID) (*Printer, error)
	FindAllForCompany(ctx context.Context, companyID uuid.UUID) ([]Printer, error)
	Save(ctx context.Context, printer *Printer) error
	// SetDefault clears the default flag of every other printer of the company
	SetDefault(ctx context.Context, companyID, id uuid.UUID) error
	DeleteForCompany(ctx context.Context, companyID, id uuid.UUID) error
}

// JobFilter narrows print job listings
type JobFilter struct {
	shared.Filter
	PrinterID *uuid.UUID
	Status    JobStatus
	From      *time.Time
}
