package database

import (
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/personachat/backend/internal/chat"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsSeedsEmoticonsOnce(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&chat.Emoticon{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var seeded int64
	if err := database.Model(&chat.Emoticon{}).Count(&seeded).Error; err != nil {
		testContext.Fatalf("failed to count emoticons: %v", err)
	}
	if seeded == 0 {
		testContext.Fatalf("expected the default emoticon catalog to be seeded")
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationSeedDefaultEmoticons).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	// A second pass must not duplicate the catalog.
	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to re-apply migrations: %v", err)
	}
	var after int64
	if err := database.Model(&chat.Emoticon{}).Count(&after).Error; err != nil {
		testContext.Fatalf("failed to recount emoticons: %v", err)
	}
	if after != seeded {
		testContext.Fatalf("expected the catalog to stay at %d entries, got %d", seeded, after)
	}
}

func TestOpenSQLiteRequiresPath(testContext *testing.T) {
	if _, err := OpenSQLite("", zap.NewNop()); err == nil {
		testContext.Fatalf("expected an error for an empty database path")
	}
}
