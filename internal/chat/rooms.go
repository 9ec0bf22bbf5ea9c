package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/personachat/backend/internal/persona"
	"github.com/personachat/backend/internal/profiles"
	"github.com/personachat/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateRoomInput describes a 1:1 room request. Formality, when present,
// is a 0-100 score that is bucketed into a room label at creation time.
// ProfileID selects which of the caller's profiles the room links to; nil
// falls back to the default profile.
type CreateRoomInput struct {
	FriendHandle string
	Formality    *float64
	Relationship string
	Keywords     []string
	ProfileID    *int64
}

func pairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// CreateRoom creates, or returns the existing, 1:1 room between the caller
// and the named counterpart. The counterpart user is created on first
// reference. Creation is idempotent per user pair regardless of which side
// asks first.
func (s *Service) CreateRoom(ctx context.Context, caller *users.User, input CreateRoomInput) (*RoomView, error) {
	if strings.TrimSpace(input.FriendHandle) == "" {
		return nil, fmt.Errorf("%w: friend handle is required", ErrInvalidArgument)
	}
	if input.Formality != nil && (*input.Formality < 0 || *input.Formality > 100) {
		return nil, fmt.Errorf("%w: formality must be between 0 and 100", ErrInvalidArgument)
	}

	friend, err := s.users.FindOrCreate(ctx, input.FriendHandle)
	if err != nil {
		if errors.Is(err, users.ErrInvalidHandle) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return nil, err
	}
	if friend.ID == caller.ID {
		return nil, fmt.Errorf("%w: cannot open a room with yourself", ErrInvalidArgument)
	}

	key := pairKey(caller.ID, friend.ID)

	var existing ChatRoom
	err = s.db.WithContext(ctx).Where("pair_key = ?", key).First(&existing).Error
	if err == nil {
		return s.RoomDetail(ctx, caller, existing.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	formality := ""
	if input.Formality != nil {
		formality = persona.RoomLabel(*input.Formality)
	}

	room := ChatRoom{
		Name:         friend.Name,
		Avatar:       friend.Avatar,
		IsGroup:      false,
		Formality:    formality,
		Relationship: strings.TrimSpace(input.Relationship),
		Keywords:     StringList(input.Keywords),
		PairKey:      &key,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		members := []ChatRoomMember{
			{ChatRoomID: room.ID, UserID: caller.ID},
			{ChatRoomID: room.ID, UserID: friend.ID},
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		// A concurrent request for the same pair may have won the unique
		// constraint race. Treat that as success and return the winner.
		var winner ChatRoom
		lookupErr := s.db.WithContext(ctx).Where("pair_key = ?", key).First(&winner).Error
		if lookupErr == nil {
			return s.RoomDetail(ctx, caller, winner.ID)
		}
		return nil, err
	}

	if err := s.profiles.LinkRoom(ctx, caller.ID, input.ProfileID, room.ID); err != nil {
		s.logger.Warn("room created but profile link failed",
			zap.Int64("roomId", room.ID), zap.Error(err))
	}

	return s.RoomDetail(ctx, caller, room.ID)
}

// ListRooms returns the caller's rooms, newest activity first, optionally
// filtered to one profile's partition. The filter accepts "" or "all" for
// no filtering and a profile id otherwise; an unowned or unparseable filter
// fails open to the unfiltered list.
func (s *Service) ListRooms(ctx context.Context, caller *users.User, profileFilter string) ([]RoomView, error) {
	var memberships []ChatRoomMember
	if err := s.db.WithContext(ctx).Where("user_id = ?", caller.ID).Find(&memberships).Error; err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []RoomView{}, nil
	}

	memberByRoom := make(map[int64]*ChatRoomMember, len(memberships))
	roomIDs := make([]int64, 0, len(memberships))
	for i := range memberships {
		memberByRoom[memberships[i].ChatRoomID] = &memberships[i]
		roomIDs = append(roomIDs, memberships[i].ChatRoomID)
	}

	var rooms []ChatRoom
	if err := s.db.WithContext(ctx).Where("id IN ?", roomIDs).Find(&rooms).Error; err != nil {
		return nil, err
	}

	rooms, err := s.filterByProfile(ctx, caller, rooms, profileFilter)
	if err != nil {
		return nil, err
	}

	views := make([]RoomView, 0, len(rooms))
	for i := range rooms {
		view, err := s.roomView(ctx, &rooms[i], caller, false)
		if err != nil {
			return nil, err
		}
		member := memberByRoom[rooms[i].ID]
		unread, err := s.unreadCount(ctx, rooms[i].ID, caller.ID, member.LastReadMessageID)
		if err != nil {
			return nil, err
		}
		view.UnreadCount = unread
		views = append(views, *view)
	}

	// Newest activity first; rooms without messages sink to the bottom.
	sort.SliceStable(views, func(i, j int) bool {
		left, right := views[i].LastMessageTime, views[j].LastMessageTime
		switch {
		case left == nil:
			return false
		case right == nil:
			return true
		default:
			return left.After(*right)
		}
	})
	return views, nil
}

// filterByProfile narrows rooms to one profile's partition. The default
// profile owns every room not claimed by a non-default profile.
func (s *Service) filterByProfile(ctx context.Context, caller *users.User, rooms []ChatRoom, profileFilter string) ([]ChatRoom, error) {
	filter := strings.TrimSpace(profileFilter)
	if filter == "" || filter == "all" {
		return rooms, nil
	}
	profileID, err := strconv.ParseInt(filter, 10, 64)
	if err != nil {
		s.logger.Warn("ignoring unparseable profile filter", zap.String("filter", filter))
		return rooms, nil
	}
	profile, err := s.profiles.Get(ctx, caller.ID, profileID)
	if errors.Is(err, profiles.ErrNotFound) {
		s.logger.Warn("ignoring unknown profile filter", zap.Int64("profileId", profileID))
		return rooms, nil
	}
	if err != nil {
		return nil, err
	}

	if profile.IsDefault {
		claimed, err := s.profiles.NonDefaultLinkedUnion(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
		kept := make([]ChatRoom, 0, len(rooms))
		for _, room := range rooms {
			if _, taken := claimed[room.ID]; !taken {
				kept = append(kept, room)
			}
		}
		return kept, nil
	}

	kept := make([]ChatRoom, 0, len(rooms))
	for _, room := range rooms {
		if profile.LinkedRoomIDs.Contains(room.ID) {
			kept = append(kept, room)
		}
	}
	return kept, nil
}

// RoomDetail returns one room with its member list. Only members may look.
func (s *Service) RoomDetail(ctx context.Context, caller *users.User, roomID int64) (*RoomView, error) {
	member, err := s.memberOf(ctx, roomID, caller.ID)
	if err != nil {
		return nil, err
	}
	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	view, err := s.roomView(ctx, room, caller, true)
	if err != nil {
		return nil, err
	}
	unread, err := s.unreadCount(ctx, roomID, caller.ID, member.LastReadMessageID)
	if err != nil {
		return nil, err
	}
	view.UnreadCount = unread
	return view, nil
}

// roomView assembles the display shape of a room from the caller's side.
func (s *Service) roomView(ctx context.Context, room *ChatRoom, caller *users.User, includeMembers bool) (*RoomView, error) {
	view := &RoomView{
		ID:           room.ID,
		Name:         room.Name,
		Avatar:       room.Avatar,
		IsGroup:      room.IsGroup,
		Formality:    room.Formality,
		Relationship: room.Relationship,
		Keywords:     append([]string(nil), room.Keywords...),
	}
	if view.Keywords == nil {
		view.Keywords = []string{}
	}

	var last Message
	err := s.db.WithContext(ctx).
		Where("chat_room_id = ?", room.ID).
		Order("created_at DESC, id DESC").
		First(&last).Error
	if err == nil {
		content := last.Content
		timestamp := last.CreatedAt
		view.LastMessage = &content
		view.LastMessageTime = &timestamp
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var members []ChatRoomMember
	if err := s.db.WithContext(ctx).
		Where("chat_room_id = ?", room.ID).
		Order("id").
		Find(&members).Error; err != nil {
		return nil, err
	}
	memberUserIDs := make([]int64, 0, len(members))
	for _, member := range members {
		memberUserIDs = append(memberUserIDs, member.UserID)
	}
	memberUsers, err := s.usersByID(ctx, memberUserIDs)
	if err != nil {
		return nil, err
	}

	if !room.IsGroup {
		for _, member := range members {
			if member.UserID == caller.ID {
				continue
			}
			counterpart := memberUsers[member.UserID]
			if counterpart == nil {
				continue
			}
			view.Name = counterpart.Name
			view.Avatar = counterpart.Avatar
			linked, err := s.profiles.FindByLinkedRoom(ctx, counterpart.ID, room.ID)
			if err != nil {
				return nil, err
			}
			if linked != nil && linked.Avatar != "" {
				view.Avatar = linked.Avatar
			}
			break
		}
	}

	if includeMembers {
		view.Members = make([]MemberView, 0, len(members))
		for _, member := range members {
			view.Members = append(view.Members, MemberView{
				ID:                member.ID,
				User:              userView(memberUsers[member.UserID]),
				LastReadMessageID: member.LastReadMessageID,
				JoinedAt:          member.JoinedAt,
			})
		}
	}
	return view, nil
}

// unreadCount counts messages from other senders above the caller's
// watermark. A nil watermark counts every message from others.
func (s *Service) unreadCount(ctx context.Context, roomID int64, userID int64, watermark *int64) (int64, error) {
	query := s.db.WithContext(ctx).Model(&Message{}).
		Where("chat_room_id = ? AND sender_id <> ?", roomID, userID)
	if watermark != nil {
		query = query.Where("id > ?", *watermark)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead advances the caller's watermark. A nil message id means "up to
// the latest message"; marking an empty room is a no-op.
func (s *Service) MarkRead(ctx context.Context, caller *users.User, roomID int64, messageID *int64) error {
	member, err := s.memberOf(ctx, roomID, caller.ID)
	if err != nil {
		return err
	}

	target := messageID
	if target == nil {
		var last Message
		err := s.db.WithContext(ctx).
			Where("chat_room_id = ?", roomID).
			Order("id DESC").
			First(&last).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		target = &last.ID
	}

	return s.db.WithContext(ctx).Model(&ChatRoomMember{}).
		Where("id = ?", member.ID).
		Update("last_read_message_id", *target).Error
}

// DeleteRoom removes a room and everything hanging off it. Only members may
// delete. Profile links to the room are cleaned up afterwards.
func (s *Service) DeleteRoom(ctx context.Context, caller *users.User, roomID int64) error {
	if _, err := s.memberOf(ctx, roomID, caller.ID); err != nil {
		return err
	}

	var members []ChatRoomMember
	if err := s.db.WithContext(ctx).Where("chat_room_id = ?", roomID).Find(&members).Error; err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var messageIDs []int64
		if err := tx.Model(&Message{}).
			Where("chat_room_id = ?", roomID).
			Pluck("id", &messageIDs).Error; err != nil {
			return err
		}
		if len(messageIDs) > 0 {
			if err := tx.Where("message_id IN ?", messageIDs).Delete(&Reaction{}).Error; err != nil {
				return err
			}
			if err := tx.Where("message_id IN ?", messageIDs).Delete(&MessageRead{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("chat_room_id = ?", roomID).Delete(&Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_room_id = ?", roomID).Delete(&ChatRoomMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&ChatRoom{}, roomID).Error
	})
	if err != nil {
		return err
	}

	for _, member := range members {
		if err := s.profiles.UnlinkRoom(ctx, member.UserID, roomID); err != nil {
			s.logger.Warn("stale profile link left after room deletion",
				zap.Int64("roomId", roomID), zap.Int64("userId", member.UserID), zap.Error(err))
		}
	}
	return nil
}
