package database

import (
	"errors"
	"time"

	"github.com/personachat/backend/internal/chat"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationSeedDefaultEmoticons = "2026-08-12_seed_default_emoticons"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationSeedDefaultEmoticons, apply: seedDefaultEmoticons},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

func seedDefaultEmoticons(db *gorm.DB) error {
	var count int64
	if err := db.Model(&chat.Emoticon{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []chat.Emoticon{
		{Name: "thumbs-up", ImageURL: "https://cdn.jsdelivr.net/gh/twitter/twemoji/assets/72x72/1f44d.png", Category: "reaction"},
		{Name: "heart", ImageURL: "https://cdn.jsdelivr.net/gh/twitter/twemoji/assets/72x72/2764.png", Category: "reaction"},
		{Name: "party", ImageURL: "https://cdn.jsdelivr.net/gh/twitter/twemoji/assets/72x72/1f389.png", Category: "celebration"},
		{Name: "wave", ImageURL: "https://cdn.jsdelivr.net/gh/twitter/twemoji/assets/72x72/1f44b.png", Category: "greeting"},
		{Name: "laughing", ImageURL: "https://cdn.jsdelivr.net/gh/twitter/twemoji/assets/72x72/1f602.png", Category: "reaction"},
		{Name: "thinking", ImageURL: "https://cdn.jsdelivr.net/gh/twitter/twemoji/assets/72x72/1f914.png", Category: "reaction"},
	}
	return db.Create(&defaults).Error
}
