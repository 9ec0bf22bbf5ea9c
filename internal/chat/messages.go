package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/personachat/backend/internal/persona"
	"github.com/personachat/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SendInput describes an outgoing message. ProfileID optionally forces the
// speaking profile; otherwise the profile linked to the room, then none,
// resolves. Guard and transform run only when asked for.
type SendInput struct {
	Content         string
	ProfileID       *int64
	UseEmotionGuard bool
	UseTransform    bool
	IsEmoticon      bool
	EmoticonID      *int64
}

// SendMessage runs the outgoing pipeline and persists the result: resolve
// the speaking profile, derive a formality score, guard, transform the
// guarded text, then store. Collaborator failures degrade to pass-through,
// never to a rejected send.
func (s *Service) SendMessage(ctx context.Context, caller *users.User, roomID int64, input SendInput) (*MessageView, error) {
	if _, err := s.memberOf(ctx, roomID, caller.ID); err != nil {
		return nil, err
	}
	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if input.IsEmoticon {
		if input.EmoticonID == nil {
			return nil, fmt.Errorf("%w: emoticon message without an emoticon id", ErrInvalidArgument)
		}
		if _, err := s.GetEmoticon(ctx, *input.EmoticonID); err != nil {
			return nil, err
		}
	} else if strings.TrimSpace(input.Content) == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrInvalidArgument)
	}

	profile, err := s.profiles.Resolve(ctx, caller.ID, input.ProfileID, &roomID)
	if err != nil {
		return nil, err
	}

	personaLabel := ""
	var formality *float64
	var profileID *int64
	if profile != nil {
		profileID = &profile.ID
		personaLabel = profile.DefaultPersona
		score, known := persona.Score(personaLabel)
		if !known && personaLabel != "" {
			s.logger.Warn("profile carries unknown persona, using neutral formality",
				zap.Int64("profileId", profile.ID), zap.String("persona", personaLabel))
		}
		formality = &score
	} else if room.Formality != "" {
		score := persona.RoomLabelScore(room.Formality)
		formality = &score
	}

	original := input.Content
	content := original
	wasGuarded := false

	if input.UseEmotionGuard && !input.IsEmoticon {
		verdict, err := s.collaborator.GuardEmotion(ctx, content, personaLabel)
		if err != nil {
			s.logger.Warn("emotion guard unavailable, sending unguarded", zap.Error(err))
		} else if verdict.IsAggressive {
			wasGuarded = true
			if verdict.SuggestedText != "" {
				content = verdict.SuggestedText
			}
		}
	}

	if input.UseTransform && !input.IsEmoticon {
		if formality == nil {
			s.logger.Debug("transform skipped, no formality resolvable",
				zap.Int64("roomId", roomID))
		} else {
			result, err := s.collaborator.TransformText(ctx, content, *formality, room.Relationship, personaLabel)
			if err != nil {
				s.logger.Warn("transform unavailable, sending untransformed", zap.Error(err))
			} else {
				content = result.TransformedText
			}
		}
	}

	message := Message{
		ChatRoomID:      roomID,
		SenderID:        caller.ID,
		Content:         content,
		OriginalContent: original,
		WasGuarded:      wasGuarded,
		IsEmoticon:      input.IsEmoticon,
		EmoticonID:      input.EmoticonID,
		ProfileID:       profileID,
		CreatedAt:       s.clock(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&message).Error
	})
	if err != nil {
		return nil, err
	}

	views, err := s.buildMessageViews(ctx, caller, room, []Message{message})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListMessages returns the full room history, oldest first.
func (s *Service) ListMessages(ctx context.Context, caller *users.User, roomID int64) ([]MessageView, error) {
	if _, err := s.memberOf(ctx, roomID, caller.ID); err != nil {
		return nil, err
	}
	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	var messages []Message
	if err := s.db.WithContext(ctx).
		Where("chat_room_id = ?", roomID).
		Order("created_at, id").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return s.buildMessageViews(ctx, caller, room, messages)
}

// PollMessages returns messages created strictly after the given instant,
// oldest first. It backs client-side incremental polling.
func (s *Service) PollMessages(ctx context.Context, caller *users.User, roomID int64, since time.Time) ([]MessageView, error) {
	if _, err := s.memberOf(ctx, roomID, caller.ID); err != nil {
		return nil, err
	}
	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	var messages []Message
	if err := s.db.WithContext(ctx).
		Where("chat_room_id = ? AND created_at > ?", roomID, since).
		Order("created_at, id").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return s.buildMessageViews(ctx, caller, room, messages)
}

// MarkMessagesRead records a read marker for every message from other
// senders that the caller has not marked yet.
func (s *Service) MarkMessagesRead(ctx context.Context, caller *users.User, roomID int64) error {
	if _, err := s.memberOf(ctx, roomID, caller.ID); err != nil {
		return err
	}

	var unreadIDs []int64
	err := s.db.WithContext(ctx).Model(&Message{}).
		Where("chat_room_id = ? AND sender_id <> ?", roomID, caller.ID).
		Where("id NOT IN (?)", s.db.Model(&MessageRead{}).
			Select("message_id").
			Where("user_id = ?", caller.ID)).
		Pluck("id", &unreadIDs).Error
	if err != nil {
		return err
	}
	if len(unreadIDs) == 0 {
		return nil
	}

	markers := make([]MessageRead, 0, len(unreadIDs))
	now := s.clock()
	for _, id := range unreadIDs {
		markers = append(markers, MessageRead{MessageID: id, UserID: caller.ID, CreatedAt: now})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&markers).Error
	})
}

// AddReaction attaches an emoji to a message. Repeating an identical
// reaction is a no-op. Only room members may react.
func (s *Service) AddReaction(ctx context.Context, caller *users.User, messageID int64, emoji string) (*MessageView, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, fmt.Errorf("%w: emoji is required", ErrInvalidArgument)
	}
	message, room, err := s.messageForMember(ctx, caller, messageID)
	if err != nil {
		return nil, err
	}

	var existing Reaction
	err = s.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, caller.ID, emoji).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		reaction := Reaction{MessageID: messageID, UserID: caller.ID, Emoji: emoji, CreatedAt: s.clock()}
		if err := s.db.WithContext(ctx).Create(&reaction).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	views, err := s.buildMessageViews(ctx, caller, room, []Message{*message})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// RemoveReaction deletes the caller's own reaction. Removing a reaction
// that does not exist is a no-op.
func (s *Service) RemoveReaction(ctx context.Context, caller *users.User, messageID int64, emoji string) (*MessageView, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, fmt.Errorf("%w: emoji is required", ErrInvalidArgument)
	}
	message, room, err := s.messageForMember(ctx, caller, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, caller.ID, emoji).
		Delete(&Reaction{}).Error; err != nil {
		return nil, err
	}
	views, err := s.buildMessageViews(ctx, caller, room, []Message{*message})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// messageForMember loads a message and its room, verifying the caller is a
// member of that room.
func (s *Service) messageForMember(ctx context.Context, caller *users.User, messageID int64) (*Message, *ChatRoom, error) {
	var message Message
	err := s.db.WithContext(ctx).First(&message, messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.memberOf(ctx, message.ChatRoomID, caller.ID); err != nil {
		return nil, nil, err
	}
	room, err := s.roomByID(ctx, message.ChatRoomID)
	if err != nil {
		return nil, nil, err
	}
	return &message, room, nil
}

// buildMessageViews assembles message views from the caller's side. The
// read flag is asymmetric: the caller's own messages are read once the
// counterpart left a read marker, received messages are always read.
func (s *Service) buildMessageViews(ctx context.Context, caller *users.User, room *ChatRoom, messages []Message) ([]MessageView, error) {
	views := make([]MessageView, 0, len(messages))
	if len(messages) == 0 {
		return views, nil
	}

	messageIDs := make([]int64, 0, len(messages))
	for _, message := range messages {
		messageIDs = append(messageIDs, message.ID)
	}

	var counterpartID int64
	var members []ChatRoomMember
	if err := s.db.WithContext(ctx).
		Where("chat_room_id = ?", room.ID).
		Order("id").
		Find(&members).Error; err != nil {
		return nil, err
	}
	for _, member := range members {
		if member.UserID != caller.ID {
			counterpartID = member.UserID
			break
		}
	}

	readByCounterpart := make(map[int64]struct{})
	if counterpartID != 0 {
		var readIDs []int64
		if err := s.db.WithContext(ctx).Model(&MessageRead{}).
			Where("user_id = ? AND message_id IN ?", counterpartID, messageIDs).
			Pluck("message_id", &readIDs).Error; err != nil {
			return nil, err
		}
		for _, id := range readIDs {
			readByCounterpart[id] = struct{}{}
		}
	}

	var reactions []Reaction
	if err := s.db.WithContext(ctx).
		Where("message_id IN ?", messageIDs).
		Order("id").
		Find(&reactions).Error; err != nil {
		return nil, err
	}
	reactionsByMessage := make(map[int64][]Reaction)
	for _, reaction := range reactions {
		reactionsByMessage[reaction.MessageID] = append(reactionsByMessage[reaction.MessageID], reaction)
	}

	userIDSet := make(map[int64]struct{})
	for _, message := range messages {
		userIDSet[message.SenderID] = struct{}{}
	}
	for _, reaction := range reactions {
		userIDSet[reaction.UserID] = struct{}{}
	}
	userIDs := make([]int64, 0, len(userIDSet))
	for id := range userIDSet {
		userIDs = append(userIDs, id)
	}
	usersByID, err := s.usersByID(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	// Non-caller senders show the avatar of the profile they linked to
	// this room, when they linked one with an avatar.
	senderAvatars := make(map[int64]string)
	for _, message := range messages {
		if message.SenderID == caller.ID {
			continue
		}
		if _, cached := senderAvatars[message.SenderID]; cached {
			continue
		}
		linked, err := s.profiles.FindByLinkedRoom(ctx, message.SenderID, room.ID)
		if err != nil {
			return nil, err
		}
		if linked != nil && linked.Avatar != "" {
			senderAvatars[message.SenderID] = linked.Avatar
		} else {
			senderAvatars[message.SenderID] = ""
		}
	}

	for _, message := range messages {
		sender := userView(usersByID[message.SenderID])
		if avatar := senderAvatars[message.SenderID]; avatar != "" {
			sender.Avatar = avatar
		}

		isMine := message.SenderID == caller.ID
		isRead := true
		if isMine {
			_, isRead = readByCounterpart[message.ID]
		}

		reactionViews := make([]ReactionView, 0, len(reactionsByMessage[message.ID]))
		for _, reaction := range reactionsByMessage[message.ID] {
			reactionViews = append(reactionViews, ReactionView{
				ID:        reaction.ID,
				User:      userView(usersByID[reaction.UserID]),
				Emoji:     reaction.Emoji,
				CreatedAt: reaction.CreatedAt,
			})
		}

		views = append(views, MessageView{
			ID:              message.ID,
			Sender:          sender,
			Content:         message.Content,
			OriginalContent: message.OriginalContent,
			WasGuarded:      message.WasGuarded,
			IsEmoticon:      message.IsEmoticon,
			EmoticonID:      message.EmoticonID,
			ProfileID:       message.ProfileID,
			Timestamp:       message.CreatedAt,
			IsMine:          isMine,
			IsRead:          isRead,
			Reactions:       reactionViews,
		})
	}
	return views, nil
}
