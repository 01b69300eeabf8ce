// Package storage provides object storage implementations for product images,
// company logos and fiscal XML/PDF files.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyKey is returned when an operation receives a blank object key
var ErrEmptyKey = errors.New("storage key is required")

// Object kinds used in keys
const (
	KindLogo       = "logo"
	KindProduct    = "products"
	KindFiscalXML  = "fiscal-xml"
	KindFiscalPDF  = "fiscal-pdf"
	KindReceiptPDF = "receipts"
)

// ObjectStorage is the set of operations every backend provides
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, time.Time, error)
	PresignDownload(ctx context.Context, key string, expires time.Duration) (string, time.Time, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	EnsureBucket(ctx context.Context) error
}

// Key builds companies/{company}/{kind}/{id}/{file}.
// The file name is reduced to its base name so callers cannot escape the prefix.
func Key(companyID uuid.UUID, kind string, id uuid.UUID, file string) string {
	file = path.Base(strings.ReplaceAll(file, "\\", "/"))
	if file == "." || file == "/" || file == ".." {
		file = "file"
	}
	return path.Join("companies", companyID.String(), kind, id.String(), file)
}

// CompanyOf returns the company id encoded in a key built by Key
func CompanyOf(key string) (uuid.UUID, bool) {
	parts := strings.Split(key, "/")
	if len(parts) < 2 || parts[0] != "companies" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
