package printing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
)

// DocumentKind is what a print job prints
type DocumentKind string

const (
	KindSaleReceipt DocumentKind = "sale_receipt"
	KindCashClosure DocumentKind = "cash_closure"
	KindTest        DocumentKind = "test"
)

// JobStatus is the state of a print job
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobPrinting  JobStatus = "printing"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// MaxJobAttempts bounds retries of a failed job
const MaxJobAttempts = 3

// Job is a print request sent to a printer
type Job struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID    `gorm:"type:uuid;not null;index"`
	PrinterID   uuid.UUID    `gorm:"type:uuid;not null;index"`
	Kind        DocumentKind `gorm:"type:varchar(20);not null"`
	ReferenceID *uuid.UUID   `gorm:"type:uuid"`
	Status      JobStatus    `gorm:"type:varchar(20);not null;default:'pending'"`
	Error       string       `gorm:"type:text"`
	Attempts    int          `gorm:"not null;default:0"`
	RequestedBy *uuid.UUID   `gorm:"type:uuid"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PrintedAt   *time.Time
}

// TableName returns the table name for GORM
func (Job) TableName() string {
	return "print_jobs"
}

// NewJob creates a pending job
func NewJob(companyID, printerID uuid.UUID, kind DocumentKind, referenceID *uuid.UUID, userID uuid.UUID) *Job {
	now := time.Now()
	j := &Job{
		ID:          uuid.New(),
		CompanyID:   companyID,
		PrinterID:   printerID,
		Kind:        kind,
		ReferenceID: referenceID,
		Status:      JobPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if userID != uuid.Nil {
		j.RequestedBy = &userID
	}
	return j
}

// Start moves the job to printing
func (j *Job) Start() error {
	if j.Status != JobPending && j.Status != JobFailed {
		return shared.NewDomainError("INVALID_STATE", "Job is not waiting to print")
	}
	if j.Attempts >= MaxJobAttempts {
		return shared.NewDomainError("MAX_ATTEMPTS", "Job reached the maximum number of attempts")
	}
	j.Status = JobPrinting
	j.Attempts++
	j.Error = ""
	j.UpdatedAt = time.Now()
	return nil
}

// Complete marks the job as printed
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobCompleted
	j.PrintedAt = &now
	j.UpdatedAt = now
}

// Fail records the driver error
func (j *Job) Fail(err error) {
	j.Status = JobFailed
	if err != nil {
		j.Error = err.Error()
	}
	j.UpdatedAt = time.Now()
}

// JobRepository defines persistence for print jobs
type JobRepository interface {
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter JobFilter) ([]Job, int64, error)
	Save(ctx context.Context, job *Job) error
}
