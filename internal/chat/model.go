package chat

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StringList is an ordered list of strings persisted as a JSON array in a
// text column. Corrupt persisted data is logged and degrades to an empty
// list on read.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("chat: encode string list: %w", err)
	}
	return string(encoded), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	*l = nil
	if src == nil {
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		zap.L().Warn("discarding corrupt keyword list",
			zap.ByteString("raw", raw),
			zap.Error(err))
		return nil
	}
	*l = values
	return nil
}

// ChatRoom is a pairwise or group conversation. The stored name and avatar
// are authoritative only for group rooms; 1:1 rooms display the counterpart.
// PairKey holds the sorted user-id pair of a 1:1 room and carries the
// uniqueness constraint that makes pairwise creation idempotent under
// concurrent requests.
type ChatRoom struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string     `gorm:"column:name;size:190"`
	Avatar       string     `gorm:"column:avatar;size:512"`
	IsGroup      bool       `gorm:"column:is_group;not null;default:false"`
	Formality    string     `gorm:"column:formality;size:32"`
	Relationship string     `gorm:"column:relationship;size:64"`
	Keywords     StringList `gorm:"column:keywords;type:text"`
	PairKey      *string    `gorm:"column:pair_key;size:64;uniqueIndex"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (ChatRoom) TableName() string {
	return "chat_rooms"
}

// ChatRoomMember joins a user to a room and carries the coarse read
// watermark: the id of the last message this member acknowledged.
type ChatRoomMember struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ChatRoomID        int64     `gorm:"column:chat_room_id;not null;uniqueIndex:idx_members_room_user,priority:1"`
	UserID            int64     `gorm:"column:user_id;not null;uniqueIndex:idx_members_room_user,priority:2;index"`
	LastReadMessageID *int64    `gorm:"column:last_read_message_id"`
	JoinedAt          time.Time `gorm:"column:joined_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (ChatRoomMember) TableName() string {
	return "chat_room_members"
}

// Message is an immutable chat message. Content holds the possibly
// transformed outgoing text; OriginalContent always holds the literal input.
type Message struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ChatRoomID      int64     `gorm:"column:chat_room_id;not null;index"`
	SenderID        int64     `gorm:"column:sender_id;not null"`
	Content         string    `gorm:"column:content;type:text;not null"`
	OriginalContent string    `gorm:"column:original_content;type:text;not null"`
	WasGuarded      bool      `gorm:"column:was_guarded;not null;default:false"`
	IsEmoticon      bool      `gorm:"column:is_emoticon;not null;default:false"`
	EmoticonID      *int64    `gorm:"column:emoticon_id"`
	ProfileID       *int64    `gorm:"column:profile_id"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime;index"`
}

// TableName provides the explicit table binding for GORM.
func (Message) TableName() string {
	return "messages"
}

// Reaction is an emoji attached to a message, unique per
// (message, user, emoji).
type Reaction struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	MessageID int64     `gorm:"column:message_id;not null;uniqueIndex:idx_reactions_triple,priority:1"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:idx_reactions_triple,priority:2"`
	Emoji     string    `gorm:"column:emoji;size:32;not null;uniqueIndex:idx_reactions_triple,priority:3"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Reaction) TableName() string {
	return "reactions"
}

// MessageRead marks that a user has read a specific message. It is finer
// grained than the member watermark and drives the "seen by recipient" flag
// on the sender's own messages.
type MessageRead struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	MessageID int64     `gorm:"column:message_id;not null;uniqueIndex:idx_reads_message_user,priority:1"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:idx_reads_message_user,priority:2"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (MessageRead) TableName() string {
	return "message_reads"
}

// Emoticon is a catalog entry referenced from messages.
type Emoticon struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;size:190;not null"`
	ImageURL  string    `gorm:"column:image_url;size:512;not null"`
	Category  string    `gorm:"column:category;size:64;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Emoticon) TableName() string {
	return "emoticons"
}
