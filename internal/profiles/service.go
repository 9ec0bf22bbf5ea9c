package profiles

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/personachat/backend/internal/persona"
	"github.com/personachat/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the profile does not exist or is not owned by the caller.
	ErrNotFound = errors.New("profiles: not found")
	// ErrInvalidArgument indicates a request the profile model cannot honor.
	ErrInvalidArgument = errors.New("profiles: invalid argument")

	noOpLogger = zap.NewNop()
)

// ServiceConfig describes the dependencies of the profile service.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service manages persona profiles and their linked-room partitions.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService constructs the profile service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("profiles: database handle is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, logger: logger}, nil
}

// ListForUser returns the user's profiles, default profile first. The default
// profile is created lazily on the first listing.
func (s *Service) ListForUser(ctx context.Context, user *users.User) ([]Profile, error) {
	var list []Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).Find(&list).Error; err != nil {
		return nil, err
	}

	hasDefault := false
	for _, profile := range list {
		if profile.IsDefault {
			hasDefault = true
			break
		}
	}
	if !hasDefault {
		created, err := s.createDefault(ctx, user)
		if err != nil {
			return nil, err
		}
		list = append(list, *created)
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].IsDefault && !list[j].IsDefault
	})
	return list, nil
}

func (s *Service) createDefault(ctx context.Context, user *users.User) (*Profile, error) {
	profile := Profile{
		UserID:         user.ID,
		Name:           user.Name,
		Description:    "Default profile",
		DefaultPersona: persona.CasualPolite,
		IsDefault:      true,
		Avatar:         defaultProfileAvatar(user.Name),
	}
	if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
		return nil, err
	}
	s.logger.Info("default profile created",
		zap.Int64("user_id", user.ID),
		zap.Int64("profile_id", profile.ID))
	return &profile, nil
}

// FindDefault returns the user's default profile, or nil when it has not been
// created yet.
func (s *Service) FindDefault(ctx context.Context, userID int64) (*Profile, error) {
	var profile Profile
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_default = ?", userID, true).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Get loads a profile by id, requiring ownership. A profile owned by another
// user surfaces as NotFound so existence is not leaked.
func (s *Service) Get(ctx context.Context, userID, profileID int64) (*Profile, error) {
	var profile Profile
	err := s.db.WithContext(ctx).Where("id = ?", profileID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: profile %d", ErrNotFound, profileID)
	}
	if err != nil {
		return nil, err
	}
	if profile.UserID != userID {
		return nil, fmt.Errorf("%w: profile %d", ErrNotFound, profileID)
	}
	return &profile, nil
}

// CreateInput carries the fields of a new profile.
type CreateInput struct {
	Name           string
	Avatar         string
	Description    string
	DefaultPersona string
	LinkedRoomIDs  []int64
}

// Create persists a new non-default profile. When linked rooms are supplied,
// the rooms are removed from every other non-default profile of the same user
// so a room is never assigned twice.
func (s *Service) Create(ctx context.Context, user *users.User, input CreateInput) (*Profile, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: profile name is required", ErrInvalidArgument)
	}

	profile := Profile{
		UserID:         user.ID,
		Name:           strings.TrimSpace(input.Name),
		Avatar:         strings.TrimSpace(input.Avatar),
		Description:    input.Description,
		DefaultPersona: input.DefaultPersona,
		IsDefault:      false,
		LinkedRoomIDs:  RoomIDList(input.LinkedRoomIDs),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		if len(input.LinkedRoomIDs) > 0 {
			return s.removeFromOtherProfiles(tx, user.ID, profile.ID, input.LinkedRoomIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile created",
		zap.Int64("user_id", user.ID),
		zap.Int64("profile_id", profile.ID),
		zap.Int("linked_rooms", len(profile.LinkedRoomIDs)))
	return &profile, nil
}

// UpdateInput carries optional profile fields; nil fields are left unchanged.
type UpdateInput struct {
	Name           *string
	Avatar         *string
	Description    *string
	DefaultPersona *string
	LinkedRoomIDs  *[]int64
}

// Update applies the provided fields. Reassigning linked rooms sweeps them
// out of the user's other non-default profiles in the same transaction.
func (s *Service) Update(ctx context.Context, userID, profileID int64, input UpdateInput) (*Profile, error) {
	profile, err := s.Get(ctx, userID, profileID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		profile.Name = strings.TrimSpace(*input.Name)
	}
	if input.Avatar != nil && strings.TrimSpace(*input.Avatar) != "" {
		profile.Avatar = strings.TrimSpace(*input.Avatar)
	}
	if input.Description != nil {
		profile.Description = *input.Description
	}
	if input.DefaultPersona != nil {
		profile.DefaultPersona = *input.DefaultPersona
	}
	if input.LinkedRoomIDs != nil {
		profile.LinkedRoomIDs = RoomIDList(*input.LinkedRoomIDs)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(profile).Error; err != nil {
			return err
		}
		if input.LinkedRoomIDs != nil && len(*input.LinkedRoomIDs) > 0 {
			return s.removeFromOtherProfiles(tx, userID, profileID, *input.LinkedRoomIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", zap.Int64("profile_id", profileID))
	return profile, nil
}

// Delete removes a non-default profile. The default profile cannot be deleted.
func (s *Service) Delete(ctx context.Context, userID, profileID int64) error {
	profile, err := s.Get(ctx, userID, profileID)
	if err != nil {
		return err
	}
	if profile.IsDefault {
		return fmt.Errorf("%w: the default profile cannot be deleted", ErrInvalidArgument)
	}
	if err := s.db.WithContext(ctx).Delete(&Profile{}, profile.ID).Error; err != nil {
		return err
	}
	s.logger.Info("profile deleted", zap.Int64("profile_id", profileID))
	return nil
}

// removeFromOtherProfiles drops the given room ids from every other
// non-default profile of the user, preventing duplicate assignment.
func (s *Service) removeFromOtherProfiles(tx *gorm.DB, userID, keepProfileID int64, roomIDs []int64) error {
	var others []Profile
	if err := tx.Where("user_id = ? AND id <> ? AND is_default = ?", userID, keepProfileID, false).
		Find(&others).Error; err != nil {
		return err
	}
	for i := range others {
		kept, changed := others[i].LinkedRoomIDs.Without(roomIDs)
		if !changed {
			continue
		}
		others[i].LinkedRoomIDs = kept
		if err := tx.Save(&others[i]).Error; err != nil {
			return err
		}
		s.logger.Info("rooms reassigned away from profile",
			zap.Int64("profile_id", others[i].ID),
			zap.Int("remaining", len(kept)))
	}
	return nil
}

// Resolve determines the governing profile for an operation. An explicit
// reference wins when it is owned by the caller; a foreign or unknown
// reference is ignored, not an error. With no usable explicit reference the
// room's linking profile is looked up. A nil result means "use the system
// default" and is not an error.
func (s *Service) Resolve(ctx context.Context, ownerID int64, explicitID *int64, roomID *int64) (*Profile, error) {
	if explicitID != nil {
		profile, err := s.Get(ctx, ownerID, *explicitID)
		if err == nil {
			return profile, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		s.logger.Debug("explicit profile reference ignored",
			zap.Int64("profile_id", *explicitID),
			zap.Int64("user_id", ownerID))
	}
	if roomID != nil {
		return s.FindByLinkedRoom(ctx, ownerID, *roomID)
	}
	return nil, nil
}

// FindByLinkedRoom returns the first profile of the user whose linked-room
// set contains the room, or nil when no profile links it.
func (s *Service) FindByLinkedRoom(ctx context.Context, userID, roomID int64) (*Profile, error) {
	var list []Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].LinkedRoomIDs.Contains(roomID) {
			return &list[i], nil
		}
	}
	return nil, nil
}

// LinkRoom appends a room to the given profile's linked set, falling back to
// the user's default profile when no profile id is supplied. Linking is a
// no-op when the target profile cannot be resolved or already holds the room.
func (s *Service) LinkRoom(ctx context.Context, userID int64, profileID *int64, roomID int64) error {
	var target *Profile
	var err error
	if profileID != nil {
		target, err = s.Get(ctx, userID, *profileID)
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn("room link skipped, profile not owned",
				zap.Int64("profile_id", *profileID),
				zap.Int64("room_id", roomID))
			return nil
		}
	} else {
		target, err = s.FindDefault(ctx, userID)
	}
	if err != nil {
		return err
	}
	if target == nil || target.LinkedRoomIDs.Contains(roomID) {
		return nil
	}

	target.LinkedRoomIDs = append(target.LinkedRoomIDs, roomID)
	if err := s.db.WithContext(ctx).Save(target).Error; err != nil {
		return err
	}
	s.logger.Info("room linked to profile",
		zap.Int64("profile_id", target.ID),
		zap.Int64("room_id", roomID),
		zap.Bool("default", target.IsDefault))
	return nil
}

// UnlinkRoom removes a room from every profile of the user, used when a room
// is deleted.
func (s *Service) UnlinkRoom(ctx context.Context, userID, roomID int64) error {
	var list []Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&list).Error; err != nil {
		return err
	}
	for i := range list {
		kept, changed := list[i].LinkedRoomIDs.Without([]int64{roomID})
		if !changed {
			continue
		}
		list[i].LinkedRoomIDs = kept
		if err := s.db.WithContext(ctx).Save(&list[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// NonDefaultLinkedUnion returns the union of linked-room sets across all
// non-default profiles of the user. The default profile's visible rooms are
// the complement of this set.
func (s *Service) NonDefaultLinkedUnion(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	var list []Profile
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_default = ?", userID, false).
		Find(&list).Error; err != nil {
		return nil, err
	}
	union := make(map[int64]struct{})
	for _, profile := range list {
		for _, id := range profile.LinkedRoomIDs {
			union[id] = struct{}{}
		}
	}
	return union, nil
}

func defaultProfileAvatar(name string) string {
	initial := "?"
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		first, _ := utf8.DecodeRuneInString(trimmed)
		initial = strings.ToUpper(string(first))
	}
	return fmt.Sprintf(
		"https://ui-avatars.com/api/?name=%s&size=200&background=4F46E5&color=ffffff&bold=true",
		url.QueryEscape(initial),
	)
}
