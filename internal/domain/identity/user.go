package identity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

const bcryptCost = 12

// User is an operator of a company: owner, back office staff, cashier or seller
type User struct {
	shared.CompanyAggregateRoot
	Name               string     `gorm:"type:varchar(200);not null"`
	Email              string     `gorm:"type:varchar(200);not null;uniqueIndex"`
	PasswordHash       string     `gorm:"type:varchar(255);not null"`
	Role               Role       `gorm:"type:varchar(20);not null"`
	Status             UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
	FailedAttempts     int        `gorm:"not null;default:0"`
	LockedUntil        *time.Time
	LastLoginAt        *time.Time
	PasswordChangedAt  *time.Time
	MustChangePassword bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// NewUser creates an active user with a hashed password
func NewUser(companyID uuid.UUID, name, email, password string, role Role) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "User name cannot be empty")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown role")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := &User{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Name:                 name,
		Email:                email,
		PasswordHash:         hash,
		Role:                 role,
		Status:               UserStatusActive,
		PasswordChangedAt:    &now,
	}
	u.AddDomainEvent(NewUserCreatedEvent(u))
	return u, nil
}

// Update changes the user's name and email
func (u *User) Update(name, email string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "User name cannot be empty")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	u.Name = name
	u.Email = email
	u.IncrementVersion()
	return nil
}

// ChangeRole assigns a new role. The owner role is only transferred, never assigned here.
func (u *User) ChangeRole(role Role) error {
	if !role.IsValid() {
		return shared.NewDomainError("INVALID_ROLE", "Unknown role")
	}
	if u.Role == RoleOwner {
		return shared.NewDomainError("OWNER_ROLE_LOCKED", "The company owner role cannot be changed")
	}
	if role == RoleOwner {
		return shared.NewDomainError("OWNER_ROLE_LOCKED", "The owner role cannot be assigned")
	}
	old := u.Role
	u.Role = role
	u.IncrementVersion()
	u.AddDomainEvent(NewUserRoleChangedEvent(u, old))
	return nil
}

// ChangePassword verifies the current password before setting a new one
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	return u.SetPassword(newPassword)
}

// SetPassword replaces the password without checking the old one (admin reset)
func (u *User) SetPassword(newPassword string) error {
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	now := time.Now()
	u.PasswordHash = hash
	u.PasswordChangedAt = &now
	u.MustChangePassword = false
	u.IncrementVersion()
	return nil
}

// ResetPassword sets a temporary password the user must change on next login
func (u *User) ResetPassword(temporary string) error {
	if err := u.SetPassword(temporary); err != nil {
		return err
	}
	u.MustChangePassword = true
	return nil
}

// VerifyPassword compares password with the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Activate re-enables the user and clears any lock
func (u *User) Activate() error {
	if u.Status == UserStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "User is already active")
	}
	u.Status = UserStatusActive
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.IncrementVersion()
	return nil
}

// Deactivate disables the user. Owners cannot be deactivated.
func (u *User) Deactivate() error {
	if u.Role == RoleOwner {
		return shared.NewDomainError("OWNER_ROLE_LOCKED", "The company owner cannot be deactivated")
	}
	if u.Status == UserStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "User is already inactive")
	}
	u.Status = UserStatusInactive
	u.IncrementVersion()
	u.AddDomainEvent(NewUserDeactivatedEvent(u))
	return nil
}

// RecordLoginSuccess resets the failure counter
func (u *User) RecordLoginSuccess() {
	now := time.Now()
	u.LastLoginAt = &now
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.IncrementVersion()
}

// RecordLoginFailure counts a failed attempt and locks the account once
// maxAttempts is reached. It returns true when the account became locked.
func (u *User) RecordLoginFailure(maxAttempts int, lockDuration time.Duration) bool {
	u.FailedAttempts++
	u.IncrementVersion()
	if u.FailedAttempts >= maxAttempts {
		until := time.Now().Add(lockDuration)
		u.LockedUntil = &until
		u.FailedAttempts = 0
		return true
	}
	return false
}

// IsLocked reports whether a login lock is in effect
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

// IsActive reports whether the user is active
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Permissions returns the permission codes granted by the user's role
func (u *User) Permissions() []string {
	return u.Role.Permissions()
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", shared.NewDomainError("INVALID_EMAIL", "Email is not valid")
	}
	return email, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", shared.NewDomainError("WEAK_PASSWORD", "Password must have at least 8 characters")
	}
	if len(password) > 72 {
		return "", shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", shared.WrapDomainError("PASSWORD_HASH_ERROR", "Failed to hash password", err)
	}
	return string(hash), nil
}
