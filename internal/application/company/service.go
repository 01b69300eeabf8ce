package company

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/application/identity"
	"github.com/pdv/backend/internal/domain/company"
	domainidentity "github.com/pdv/backend/internal/domain/identity"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/pdv/backend/internal/infrastructure/auth"
	"github.com/pdv/backend/internal/infrastructure/cache"
	"github.com/pdv/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

const uploadURLExpiry = 15 * time.Minute

// Service handles company (tenant) operations
type Service struct {
	companies company.CompanyRepository
	users     domainidentity.UserRepository
	tx        shared.Transactor
	jwt       *auth.JWTService
	storage   storage.ObjectStorage
	loader    *cache.Loader
	cacheTTL  time.Duration
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewService creates a new company Service
func NewService(
	companies company.CompanyRepository,
	users domainidentity.UserRepository,
	tx shared.Transactor,
	jwt *auth.JWTService,
	objects storage.ObjectStorage,
	loader *cache.Loader,
	cacheTTL time.Duration,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{
		companies: companies,
		users:     users,
		tx:        tx,
		jwt:       jwt,
		storage:   objects,
		loader:    loader,
		cacheTTL:  cacheTTL,
		publisher: publisher,
		logger:    logger,
	}
}

func cacheKey(id uuid.UUID) string {
	return "company:" + id.String()
}

// Register creates a company with its owner and logs the owner in
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*identity.LoginResponse, error) {
	comp, err := company.NewCompany(req.Name, req.CNPJ, company.TaxRegime(req.TaxRegime))
	if err != nil {
		return nil, err
	}
	if err := comp.UpdateProfile(req.Name, req.TradeName, "", "", req.Phone, req.Email, ""); err != nil {
		return nil, err
	}
	if req.Address != nil {
		if err := comp.SetAddress(req.Address.toDomain()); err != nil {
			return nil, err
		}
	}
	owner, err := domainidentity.NewUser(comp.ID, req.OwnerName, req.OwnerEmail, req.OwnerPassword, domainidentity.RoleOwner)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.companies.ExistsByCNPJ(ctx, comp.CNPJ)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError("ALREADY_EXISTS", "A company with this CNPJ is already registered")
		}
		exists, err = s.users.ExistsByEmail(ctx, owner.Email)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError("ALREADY_EXISTS", "A user with this email already exists")
		}
		if err := s.companies.Save(ctx, comp); err != nil {
			return err
		}
		return s.users.Save(ctx, owner)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, comp)
	if err := shared.PublishAndClear(ctx, s.publisher, owner); err != nil {
		s.logger.Warn("Failed to publish user events", zap.Error(err))
	}

	pair, err := s.jwt.GenerateTokenPair(identity.SubjectOf(owner))
	if err != nil {
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens", err)
	}
	s.logger.Info("Company registered",
		zap.String("company_id", comp.ID.String()),
		zap.String("owner_id", owner.ID.String()))
	return identity.NewLoginResponse(pair, owner), nil
}

// Lookup returns the company through the cache. The result is read only and
// must not be saved.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (*company.Company, error) {
	load := func(ctx context.Context) (*company.Company, error) {
		return s.companies.FindByID(ctx, id)
	}
	if s.loader == nil {
		return load(ctx)
	}
	return cache.Fetch(ctx, s.loader, cacheKey(id), s.cacheTTL, load)
}

// Get returns the company with a presigned logo URL
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*CompanyResponse, error) {
	comp, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.response(ctx, comp), nil
}

// Update changes the registration data
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateCompanyRequest) (*CompanyResponse, error) {
	return s.mutate(ctx, id, func(c *company.Company) error {
		if err := c.UpdateProfile(req.Name, req.TradeName, req.StateRegistration, req.MunicipalRegistration, req.Phone, req.Email, req.WhatsApp); err != nil {
			return err
		}
		if req.TaxRegime != "" && company.TaxRegime(req.TaxRegime) != c.TaxRegime {
			if err := c.SetTaxRegime(company.TaxRegime(req.TaxRegime)); err != nil {
				return err
			}
		}
		if req.Address != nil {
			return c.SetAddress(req.Address.toDomain())
		}
		return nil
	})
}

// UpdateFiscalSettings replaces the fiscal settings. An empty CSC token keeps
// the stored one.
func (s *Service) UpdateFiscalSettings(ctx context.Context, id uuid.UUID, req FiscalSettingsRequest) (*CompanyResponse, error) {
	return s.mutate(ctx, id, func(c *company.Company) error {
		token := req.NFCeCSCToken
		if token == "" {
			token = c.Fiscal.NFCeCSCToken
		}
		return c.UpdateFiscalSettings(company.FiscalSettings{
			Environment:        company.FiscalEnvironment(req.Environment),
			NFCeCSCID:          req.NFCeCSCID,
			NFCeCSCToken:       token,
			NFCeSeries:         req.NFCeSeries,
			NFeSeries:          req.NFeSeries,
			NFSeSeries:         req.NFSeSeries,
			AutoIssueNFCe:      req.AutoIssueNFCe,
			AllowNegativeStock: req.AllowNegativeStock,
		})
	})
}

// Suspend blocks the company
func (s *Service) Suspend(ctx context.Context, id uuid.UUID) (*CompanyResponse, error) {
	return s.mutate(ctx, id, func(c *company.Company) error { return c.Suspend() })
}

// Activate re-enables the company
func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*CompanyResponse, error) {
	return s.mutate(ctx, id, func(c *company.Company) error { return c.Activate() })
}

// LogoUploadURL reserves the logo key and returns a presigned upload URL for it
func (s *Service) LogoUploadURL(ctx context.Context, id uuid.UUID, req UploadRequest) (*UploadURLResponse, error) {
	key := storage.Key(id, storage.KindLogo, id, req.FileName)
	url, expires, err := s.storage.PresignUpload(ctx, key, req.ContentType, uploadURLExpiry)
	if err != nil {
		return nil, shared.WrapDomainError("STORAGE_ERROR", "Failed to create upload URL", err)
	}
	if _, err := s.mutate(ctx, id, func(c *company.Company) error {
		c.SetLogoKey(key)
		return nil
	}); err != nil {
		return nil, err
	}
	return &UploadURLResponse{UploadURL: url, Key: key, ExpiresAt: expires}, nil
}

// ActiveIDs lists the ids of active companies
func (s *Service) ActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.companies.FindActiveIDs(ctx)
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(*company.Company) error) (*CompanyResponse, error) {
	comp, err := s.companies.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(comp); err != nil {
		return nil, err
	}
	if err := s.companies.Save(ctx, comp); err != nil {
		return nil, err
	}
	if s.loader != nil {
		if err := s.loader.Invalidate(ctx, cacheKey(id)); err != nil {
			s.logger.Warn("Failed to invalidate company cache", zap.Error(err))
		}
	}
	s.publish(ctx, comp)
	return s.response(ctx, comp), nil
}

func (s *Service) response(ctx context.Context, comp *company.Company) *CompanyResponse {
	resp := ToCompanyResponse(comp)
	if comp.LogoKey != "" && s.storage != nil {
		url, _, err := s.storage.PresignDownload(ctx, comp.LogoKey, time.Hour)
		if err != nil {
			s.logger.Warn("Failed to presign logo", zap.Error(err))
		} else {
			resp.LogoURL = url
		}
	}
	return &resp
}

func (s *Service) publish(ctx context.Context, comp *company.Company) {
	if err := shared.PublishAndClear(ctx, s.publisher, comp); err != nil {
		s.logger.Warn("Failed to publish company events", zap.Error(err))
	}
}

// IsNotFound reports whether err means the company does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
