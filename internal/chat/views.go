package chat

import (
	"context"
	"time"

	"github.com/personachat/backend/internal/users"
)

// UserView is the sender or member shape embedded in chat responses.
type UserView struct {
	ID     int64  `json:"id"`
	Ldap   string `json:"ldap"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// MemberView is one room member with their read watermark.
type MemberView struct {
	ID                int64     `json:"id"`
	User              UserView  `json:"user"`
	LastReadMessageID *int64    `json:"lastReadMessageId"`
	JoinedAt          time.Time `json:"joinedAt"`
}

// RoomView is the room shape returned by listings and detail lookups. For
// 1:1 rooms the name and avatar reflect the counterpart, preferring the
// avatar of the profile the counterpart linked to this room.
type RoomView struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	Avatar          string       `json:"avatar"`
	IsGroup         bool         `json:"isGroup"`
	Formality       string       `json:"formality,omitempty"`
	Relationship    string       `json:"relationship,omitempty"`
	Keywords        []string     `json:"keywords"`
	LastMessage     *string      `json:"lastMessage"`
	LastMessageTime *time.Time   `json:"lastMessageTime"`
	UnreadCount     int64        `json:"unreadCount"`
	Members         []MemberView `json:"members,omitempty"`
}

// ReactionView is one emoji reaction on a message.
type ReactionView struct {
	ID        int64     `json:"id"`
	User      UserView  `json:"user"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageView is the message shape returned to members. IsRead means "the
// counterpart has read this" for the caller's own messages, and is always
// true for received messages.
type MessageView struct {
	ID              int64          `json:"id"`
	Sender          UserView       `json:"sender"`
	Content         string         `json:"content"`
	OriginalContent string         `json:"originalContent"`
	WasGuarded      bool           `json:"wasGuarded"`
	IsEmoticon      bool           `json:"isEmoticon"`
	EmoticonID      *int64         `json:"emoticonId"`
	ProfileID       *int64         `json:"profileId"`
	Timestamp       time.Time      `json:"timestamp"`
	IsMine          bool           `json:"isMine"`
	IsRead          bool           `json:"isRead"`
	Reactions       []ReactionView `json:"reactions"`
}

// EmoticonView is one catalog emoticon.
type EmoticonView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
	Category string `json:"category"`
}

func userView(user *users.User) UserView {
	if user == nil {
		return UserView{}
	}
	return UserView{ID: user.ID, Ldap: user.Ldap, Name: user.Name, Avatar: user.Avatar}
}

// usersByID loads the given users into a map, skipping ids that no longer
// resolve.
func (s *Service) usersByID(ctx context.Context, ids []int64) (map[int64]*users.User, error) {
	result := make(map[int64]*users.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var records []users.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	for i := range records {
		result[records[i].ID] = &records[i]
	}
	return result, nil
}

func emoticonView(emoticon *Emoticon) EmoticonView {
	return EmoticonView{
		ID:       emoticon.ID,
		Name:     emoticon.Name,
		ImageURL: emoticon.ImageURL,
		Category: emoticon.Category,
	}
}
