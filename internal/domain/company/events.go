package company

import (
	"github.com/pdv/backend/internal/domain/shared"
)

const AggregateTypeCompany = "Company"

const (
	EventTypeCompanyRegistered            = "CompanyRegistered"
	EventTypeCompanyStatusChanged         = "CompanyStatusChanged"
	EventTypeCompanyFiscalSettingsChanged = "CompanyFiscalSettingsChanged"
)

// CompanyRegisteredEvent is published when a new company signs up
type CompanyRegisteredEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
	CNPJ string `json:"cnpj"`
}

// NewCompanyRegisteredEvent creates a CompanyRegisteredEvent
func NewCompanyRegisteredEvent(c *Company) *CompanyRegisteredEvent {
	return &CompanyRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCompanyRegistered, AggregateTypeCompany, c.ID, c.ID),
		Name:            c.Name,
		CNPJ:            c.CNPJ,
	}
}

// CompanyStatusChangedEvent is published on suspension and reactivation
type CompanyStatusChangedEvent struct {
	shared.BaseDomainEvent
	OldStatus Status `json:"old_status"`
	NewStatus Status `json:"new_status"`
}

// NewCompanyStatusChangedEvent creates a CompanyStatusChangedEvent
func NewCompanyStatusChangedEvent(c *Company, old Status) *CompanyStatusChangedEvent {
	return &CompanyStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCompanyStatusChanged, AggregateTypeCompany, c.ID, c.ID),
		OldStatus:       old,
		NewStatus:       c.Status,
	}
}

// CompanyFiscalSettingsChangedEvent is published when fiscal settings change
type CompanyFiscalSettingsChangedEvent struct {
	shared.BaseDomainEvent
	Environment FiscalEnvironment `json:"environment"`
}

// NewCompanyFiscalSettingsChangedEvent creates a CompanyFiscalSettingsChangedEvent
func NewCompanyFiscalSettingsChangedEvent(c *Company) *CompanyFiscalSettingsChangedEvent {
	return &CompanyFiscalSettingsChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCompanyFiscalSettingsChanged, AggregateTypeCompany, c.ID, c.ID),
		Environment:     c.Fiscal.Environment,
	}
}
