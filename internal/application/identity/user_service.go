package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/identity"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/pdv/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// UserService manages the users of a company
type UserService struct {
	users     identity.UserRepository
	blacklist auth.TokenBlacklist
	publisher shared.EventPublisher
	config    AuthServiceConfig
	logger    *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	users identity.UserRepository,
	blacklist auth.TokenBlacklist,
	publisher shared.EventPublisher,
	config AuthServiceConfig,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:     users,
		blacklist: blacklist,
		publisher: publisher,
		config:    config,
		logger:    logger,
	}
}

// Create creates a user in the actor's company
func (s *UserService) Create(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error) {
	role := identity.Role(req.Role)
	if err := canAssign(actor, role); err != nil {
		return nil, err
	}
	exists, err := s.users.ExistsByEmail(ctx, normalize(req.Email))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A user with this email already exists")
	}

	user, err := identity.NewUser(actor.CompanyID, req.Name, req.Email, req.Password, role)
	if err != nil {
		return nil, err
	}
	user.SetCreatedBy(actor.UserID)
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	s.publish(ctx, user)

	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))
	resp := ToUserResponse(user)
	return &resp, nil
}

// Get returns a user of the company
func (s *UserService) Get(ctx context.Context, companyID, id uuid.UUID) (*UserResponse, error) {
	user, err := s.users.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// List lists the users of the company
func (s *UserService) List(ctx context.Context, companyID uuid.UUID, filter UserListFilter) ([]UserResponse, int64, error) {
	df := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.Role != "" {
		df.Filters["role"] = filter.Role
	}
	if filter.Status != "" {
		df.Filters["status"] = filter.Status
	}
	users, total, err := s.users.FindAllForCompany(ctx, companyID, df)
	if err != nil {
		return nil, 0, err
	}
	return ToUserResponses(users), total, nil
}

// Update changes name and email
func (s *UserService) Update(ctx context.Context, actor Actor, id uuid.UUID, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.manageable(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}
	if user.Email != normalize(req.Email) {
		exists, err := s.users.ExistsByEmail(ctx, normalize(req.Email))
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "A user with this email already exists")
		}
	}
	if err := user.Update(req.Name, req.Email); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// ChangeRole assigns a new role. Tokens of the user are revoked so the new
// permissions apply on the next login.
func (s *UserService) ChangeRole(ctx context.Context, actor Actor, id uuid.UUID, req ChangeRoleRequest) (*UserResponse, error) {
	role := identity.Role(req.Role)
	if err := canAssign(actor, role); err != nil {
		return nil, err
	}
	user, err := s.manageable(ctx, actor, id, false)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		resp := ToUserResponse(user)
		return &resp, nil
	}
	if err := user.ChangeRole(role); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	s.publish(ctx, user)
	s.revokeTokens(ctx, user)
	resp := ToUserResponse(user)
	return &resp, nil
}

// Activate re-enables a user
func (s *UserService) Activate(ctx context.Context, actor Actor, id uuid.UUID) (*UserResponse, error) {
	user, err := s.manageable(ctx, actor, id, false)
	if err != nil {
		return nil, err
	}
	if err := user.Activate(); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// Deactivate disables a user and revokes their tokens
func (s *UserService) Deactivate(ctx context.Context, actor Actor, id uuid.UUID) (*UserResponse, error) {
	if actor.UserID == id {
		return nil, shared.NewDomainError("CANNOT_DEACTIVATE_SELF", "You cannot deactivate your own account")
	}
	user, err := s.users.FindByIDForCompany(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	// owner first so the owner lock wins over the rank check
	if user.Role == identity.RoleOwner {
		return nil, shared.NewDomainError("OWNER_ROLE_LOCKED", "The company owner cannot be deactivated")
	}
	if user.Role.Rank() >= actor.Role.Rank() {
		return nil, shared.NewDomainError("FORBIDDEN", "You cannot manage a user with an equal or higher role")
	}
	if err := user.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	s.publish(ctx, user)
	s.revokeTokens(ctx, user)
	resp := ToUserResponse(user)
	return &resp, nil
}

// ResetPassword sets a temporary password the user must change
func (s *UserService) ResetPassword(ctx context.Context, actor Actor, id uuid.UUID, req ResetPasswordRequest) error {
	user, err := s.manageable(ctx, actor, id, false)
	if err != nil {
		return err
	}
	if err := user.ResetPassword(req.TemporaryPassword); err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	s.revokeTokens(ctx, user)
	s.logger.Info("Password reset",
		zap.String("user_id", user.ID.String()),
		zap.String("by", actor.UserID.String()))
	return nil
}

// manageable loads a user the actor may manage: one of lower rank, or the
// actor itself when allowSelf is set
func (s *UserService) manageable(ctx context.Context, actor Actor, id uuid.UUID, allowSelf bool) (*identity.User, error) {
	user, err := s.users.FindByIDForCompany(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if allowSelf && user.ID == actor.UserID {
		return user, nil
	}
	if user.Role.Rank() >= actor.Role.Rank() {
		return nil, shared.NewDomainError("FORBIDDEN", "You cannot manage a user with an equal or higher role")
	}
	return user, nil
}

func (s *UserService) revokeTokens(ctx context.Context, user *identity.User) {
	if err := s.blacklist.RevokeUser(ctx, user.ID.String(), s.config.RevocationTTL); err != nil {
		s.logger.Error("Failed to revoke user tokens", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

func (s *UserService) publish(ctx context.Context, user *identity.User) {
	if err := shared.PublishAndClear(ctx, s.publisher, user); err != nil {
		s.logger.Warn("Failed to publish user events", zap.Error(err))
	}
}

// canAssign checks that the actor outranks the role being assigned
func canAssign(actor Actor, role identity.Role) error {
	if !role.IsValid() || role == identity.RoleOwner {
		return shared.NewDomainError("INVALID_ROLE", "Role cannot be assigned")
	}
	if role.Rank() >= actor.Role.Rank() {
		return shared.NewDomainError("FORBIDDEN", "You cannot assign a role equal to or above your own")
	}
	return nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
