package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("failed to migrate user schema: %v", err)
	}
	service, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func TestFindOrCreateIsCaseInsensitive(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	first, err := service.FindOrCreate(ctx, "JDoe")
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	if first.Ldap != "jdoe" {
		t.Fatalf("expected normalized handle jdoe, got %q", first.Ldap)
	}
	if first.Avatar == "" {
		t.Fatalf("expected generated default avatar")
	}

	second, err := service.FindOrCreate(ctx, "  jdoe ")
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same account, got ids %d and %d", first.ID, second.ID)
	}
}

func TestFindOrCreateKeepsMultiByteInitialIntact(t *testing.T) {
	service := newTestService(t)
	user, err := service.FindOrCreate(context.Background(), "김철수")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !strings.Contains(user.Avatar, "name=%EA%B9%80") {
		t.Fatalf("expected the full first rune in the avatar URL, got %q", user.Avatar)
	}
	if strings.Contains(user.Avatar, "%EF%BF%BD") {
		t.Fatalf("avatar URL carries a replacement character: %q", user.Avatar)
	}
}

func TestFindOrCreateRejectsBlankHandle(t *testing.T) {
	service := newTestService(t)
	if _, err := service.FindOrCreate(context.Background(), "   "); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("expected ErrInvalidHandle, got %v", err)
	}
}

func TestUpdateAppliesNonEmptyFields(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	user, err := service.FindOrCreate(ctx, "jdoe")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	name := "Jane Doe"
	blank := "   "
	updated, err := service.Update(ctx, user.ID, UpdateInput{Name: &name, Avatar: &blank})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "Jane Doe" {
		t.Fatalf("expected updated name, got %q", updated.Name)
	}
	if updated.Avatar != user.Avatar {
		t.Fatalf("expected blank avatar input to be ignored")
	}
}

func TestUpdateUnknownUserFails(t *testing.T) {
	service := newTestService(t)
	if _, err := service.Update(context.Background(), 999, UpdateInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
