package users

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/personachat/backend/internal/identity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the referenced user does not exist.
	ErrNotFound = errors.New("users: not found")
	// ErrInvalidHandle indicates an empty or unusable identity claim.
	ErrInvalidHandle = errors.New("users: invalid handle")

	noOpLogger = zap.NewNop()
)

// ServiceConfig describes the dependencies of the user service.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service manages accounts keyed on normalized ldap handles.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService constructs the user service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database handle is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, logger: logger}, nil
}

// FindOrCreate resolves the user for an identity claim, creating the account
// with a generated avatar on first sight. Lookups are case-insensitive.
func (s *Service) FindOrCreate(ctx context.Context, handle string) (*User, error) {
	normalized := identity.Normalize(handle)
	if normalized == "" {
		return nil, ErrInvalidHandle
	}

	var user User
	err := s.db.WithContext(ctx).Where("ldap = ?", normalized).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = User{
		Ldap:   normalized,
		Name:   normalized,
		Avatar: defaultAvatar(normalized),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// Concurrent first-sight of the same handle: fall back to a lookup.
		var existing User
		if lookupErr := s.db.WithContext(ctx).Where("ldap = ?", normalized).First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, err
	}
	s.logger.Info("user created", zap.String("ldap", normalized))
	return &user, nil
}

// GetByID loads a user by id.
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateInput carries optional user fields; nil fields are left unchanged.
type UpdateInput struct {
	Name   *string
	Avatar *string
}

// Update applies the provided fields to the user's account.
func (s *Service) Update(ctx context.Context, userID int64, input UpdateInput) (*User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Avatar != nil && strings.TrimSpace(*input.Avatar) != "" {
		user.Avatar = strings.TrimSpace(*input.Avatar)
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, err
	}
	s.logger.Info("user updated", zap.Int64("user_id", user.ID), zap.String("ldap", user.Ldap))
	return user, nil
}

// defaultAvatar builds an initial-letter avatar URL for a fresh account. The
// initial is the first rune, not the first byte, so multi-byte names survive.
func defaultAvatar(handle string) string {
	first, _ := utf8.DecodeRuneInString(handle)
	initial := strings.ToUpper(string(first))
	return fmt.Sprintf(
		"https://ui-avatars.com/api/?name=%s&size=200&background=random&color=ffffff&bold=true",
		url.QueryEscape(initial),
	)
}
