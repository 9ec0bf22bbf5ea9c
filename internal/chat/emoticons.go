package chat

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ListEmoticons returns the emoticon catalog, optionally narrowed to one
// category.
func (s *Service) ListEmoticons(ctx context.Context, category string) ([]EmoticonView, error) {
	query := s.db.WithContext(ctx).Order("id")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var emoticons []Emoticon
	if err := query.Find(&emoticons).Error; err != nil {
		return nil, err
	}
	views := make([]EmoticonView, 0, len(emoticons))
	for i := range emoticons {
		views = append(views, emoticonView(&emoticons[i]))
	}
	return views, nil
}

// GetEmoticon returns one catalog entry.
func (s *Service) GetEmoticon(ctx context.Context, id int64) (*EmoticonView, error) {
	var emoticon Emoticon
	err := s.db.WithContext(ctx).First(&emoticon, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	view := emoticonView(&emoticon)
	return &view, nil
}
