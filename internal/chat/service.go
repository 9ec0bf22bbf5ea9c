package chat

import (
	"context"
	"errors"
	"time"

	"github.com/personachat/backend/internal/ai"
	"github.com/personachat/backend/internal/profiles"
	"github.com/personachat/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound reports a missing room, message, or emoticon, and also
	// masks rooms the caller is not a member of.
	ErrNotFound = errors.New("chat: not found")
	// ErrInvalidArgument reports a request that can never succeed.
	ErrInvalidArgument = errors.New("chat: invalid argument")
)

// Collaborator is the slice of the language-model client the message
// pipeline needs. The pipeline degrades gracefully when calls fail, so
// implementations may error freely.
type Collaborator interface {
	GuardEmotion(ctx context.Context, text string, personaLabel string) (ai.GuardVerdict, error)
	TransformText(ctx context.Context, text string, formality float64, relationship string, personaLabel string) (ai.TransformResult, error)
}

// ServiceConfig wires the chat service dependencies.
type ServiceConfig struct {
	Database     *gorm.DB
	Clock        func() time.Time
	Logger       *zap.Logger
	Profiles     *profiles.Service
	Users        *users.Service
	Collaborator Collaborator
}

// Service owns rooms, messages, reactions, read state, and the outgoing
// message pipeline.
type Service struct {
	db           *gorm.DB
	clock        func() time.Time
	logger       *zap.Logger
	profiles     *profiles.Service
	users        *users.Service
	collaborator Collaborator
}

// NewService validates the configuration and returns a chat service.
func NewService(config ServiceConfig) (*Service, error) {
	if config.Database == nil {
		return nil, errors.New("chat: database handle is required")
	}
	if config.Profiles == nil {
		return nil, errors.New("chat: profiles service is required")
	}
	if config.Users == nil {
		return nil, errors.New("chat: users service is required")
	}
	if config.Collaborator == nil {
		return nil, errors.New("chat: collaborator is required")
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:           config.Database,
		clock:        clock,
		logger:       logger,
		profiles:     config.Profiles,
		users:        config.Users,
		collaborator: config.Collaborator,
	}, nil
}

// memberOf returns the caller's membership row, or ErrNotFound. Non-members
// learn nothing about whether the room exists.
func (s *Service) memberOf(ctx context.Context, roomID int64, userID int64) (*ChatRoomMember, error) {
	var member ChatRoomMember
	err := s.db.WithContext(ctx).
		Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *Service) roomByID(ctx context.Context, roomID int64) (*ChatRoom, error) {
	var room ChatRoom
	err := s.db.WithContext(ctx).First(&room, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}
