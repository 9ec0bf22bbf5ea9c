package profiles

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RoomIDList is an ordered set of chat room ids persisted as a JSON array in
// a single text column. A nil list is stored as NULL and means "no explicit
// assignment" — the default profile never stores a list at all.
type RoomIDList []int64

// Value implements driver.Valuer.
func (l RoomIDList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal([]int64(l))
	if err != nil {
		return nil, fmt.Errorf("profiles: encode room id list: %w", err)
	}
	return string(encoded), nil
}

// Scan implements sql.Scanner. Corrupt persisted data is logged and degrades
// to an empty list so a single bad row cannot take down every profile read.
// Returning an error here would abort the whole query, so the report goes to
// the process-wide logger instead.
func (l *RoomIDList) Scan(src any) error {
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
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		zap.L().Warn("discarding corrupt linked room list",
			zap.ByteString("raw", raw),
			zap.Error(err))
		return nil
	}
	*l = ids
	return nil
}

// Contains reports whether the list holds the given room id.
func (l RoomIDList) Contains(roomID int64) bool {
	for _, id := range l {
		if id == roomID {
			return true
		}
	}
	return false
}

// Without returns a copy of the list with the given room ids removed, keeping
// order. The second return value reports whether anything was dropped.
func (l RoomIDList) Without(roomIDs []int64) (RoomIDList, bool) {
	drop := make(map[int64]struct{}, len(roomIDs))
	for _, id := range roomIDs {
		drop[id] = struct{}{}
	}
	kept := make(RoomIDList, 0, len(l))
	for _, id := range l {
		if _, ok := drop[id]; ok {
			continue
		}
		kept = append(kept, id)
	}
	if len(kept) == len(l) {
		return l, false
	}
	return kept, true
}

// Profile is a user-owned persona context. It partitions which rooms are
// visible under which identity and supplies the default persona applied to
// outgoing text. Every user has exactly one default profile, created lazily.
type Profile struct {
	ID             int64      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID         int64      `gorm:"column:user_id;not null;index"`
	Name           string     `gorm:"column:name;size:190;not null"`
	Avatar         string     `gorm:"column:avatar;size:512"`
	Description    string     `gorm:"column:description;size:512"`
	DefaultPersona string     `gorm:"column:default_persona;size:32"`
	IsDefault      bool       `gorm:"column:is_default;not null;default:false"`
	LinkedRoomIDs  RoomIDList `gorm:"column:linked_room_ids;type:text"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Profile) TableName() string {
	return "profiles"
}
