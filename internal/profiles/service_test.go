package profiles

import (
	"context"
	"errors"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/personachat/backend/internal/persona"
	"github.com/personachat/backend/internal/users"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *users.Service) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Profile{}, &users.User{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	service, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to create profile service: %v", err)
	}
	userService, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to create user service: %v", err)
	}
	return service, userService
}

func mustUser(t *testing.T, userService *users.Service, handle string) *users.User {
	t.Helper()
	user, err := userService.FindOrCreate(context.Background(), handle)
	if err != nil {
		t.Fatalf("failed to create user %q: %v", handle, err)
	}
	return user
}

func TestListCreatesDefaultProfileLazily(t *testing.T) {
	service, userService := newTestService(t)
	ctx := context.Background()
	user := mustUser(t, userService, "jdoe")

	list, err := service.ListForUser(ctx, user)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected exactly the lazily created default profile, got %d", len(list))
	}
	if !list[0].IsDefault {
		t.Fatalf("expected default profile")
	}
	if list[0].DefaultPersona != persona.CasualPolite {
		t.Fatalf("expected casual-polite persona on default profile, got %q", list[0].DefaultPersona)
	}
	if list[0].LinkedRoomIDs != nil {
		t.Fatalf("default profile must not store a linked-room set")
	}

	// A second listing must not create another default.
	list, err = service.ListForUser(ctx, user)
	if err != nil {
		t.Fatalf("second list failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one profile after relisting, got %d", len(list))
	}
}

func TestListSortsDefaultFirst(t *testing.T) {
	service, userService := newTestService(t)
	ctx := context.Background()
	user := mustUser(t, userService, "jdoe")

	if _, err := service.Create(ctx, user, CreateInput{Name: "Work", DefaultPersona: persona.Formal}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	list, err := service.ListForUser(ctx, user)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected two profiles, got %d", len(list))
	}
	if !list[0].IsDefault {
		t.Fatalf("expected the default profile to sort first")
	}
}

func TestAssignmentSweepsOtherProfiles(t *testing.T) {
	service, userService := newTestService(t)
	ctx := context.Background()
	user := mustUser(t, userService, "jdoe")

	first, err := service.Create(ctx, user, CreateInput{Name: "Work", LinkedRoomIDs: []int64{1, 2, 3}})
	if err != nil {
		t.Fatalf("create first profile: %v", err)
	}

	second, err := service.Create(ctx, user, CreateInput{Name: "Friends", LinkedRoomIDs: []int64{2}})
	if err != nil {
		t.Fatalf("create second profile: %v", err)
	}
	if !second.LinkedRoomIDs.Contains(2) {
		t.Fatalf("expected room 2 on the new profile")
	}

	reloaded, err := service.Get(ctx, user.ID, first.ID)
	if err != nil {
		t.Fatalf("reload first profile: %v", err)
	}
	if reloaded.LinkedRoomIDs.Contains(2) {
		t.Fatalf("expected room 2 to be removed from the first profile, got %v", reloaded.LinkedRoomIDs)
	}
	if !reloaded.LinkedRoomIDs.Contains(1) || !reloaded.LinkedRoomIDs.Contains(3) {
		t.Fatalf("expected unrelated rooms to survive, got %v", reloaded.LinkedRoomIDs)
	}
}

func TestResolvePrecedence(t *testing.T) {
	service, userService := newTestService(t)
	ctx := context.Background()
	owner := mustUser(t, userService, "owner")
	other := mustUser(t, userService, "other")

	linked, err := service.Create(ctx, owner, CreateInput{Name: "Work", LinkedRoomIDs: []int64{7}})
	if err != nil {
		t.Fatalf("create owner profile: %v", err)
	}
	foreign, err := service.Create(ctx, other, CreateInput{Name: "Foreign"})
	if err != nil {
		t.Fatalf("create foreign profile: %v", err)
	}

	roomID := int64(7)

	// Explicit owned reference wins.
	resolved, err := service.Resolve(ctx, owner.ID, &linked.ID, &roomID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved == nil || resolved.ID != linked.ID {
		t.Fatalf("expected explicit profile to win")
	}

	// A foreign explicit reference is ignored and falls through to the room.
	resolved, err = service.Resolve(ctx, owner.ID, &foreign.ID, &roomID)
	if err != nil {
		t.Fatalf("resolve with foreign reference failed: %v", err)
	}
	if resolved == nil || resolved.ID != linked.ID {
		t.Fatalf("expected fall-through to room-linked profile")
	}

	// No reference at all resolves to nil without error.
	resolved, err = service.Resolve(ctx, owner.ID, nil, nil)
	if err != nil {
		t.Fatalf("resolve without references failed: %v", err)
	}
	if resolved != nil {
		t.Fatalf("expected nil profile when nothing resolves")
	}

	// Unlinked room resolves to nil without error.
	unlinked := int64(99)
	resolved, err = service.Resolve(ctx, owner.ID, nil, &unlinked)
	if err != nil {
		t.Fatalf("resolve unlinked room failed: %v", err)
	}
	if resolved != nil {
		t.Fatalf("expected nil profile for unlinked room")
	}
}

func TestDeleteDefaultProfileRejected(t *testing.T) {
	service, userService := newTestService(t)
	ctx := context.Background()
	user := mustUser(t, userService, "jdoe")

	list, err := service.ListForUser(ctx, user)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if err := service.Delete(ctx, user.ID, list[0].ID); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument deleting the default profile, got %v", err)
	}
}

func TestGetForeignProfileIsNotFound(t *testing.T) {
	service, userService := newTestService(t)
	ctx := context.Background()
	owner := mustUser(t, userService, "owner")
	intruder := mustUser(t, userService, "intruder")

	profile, err := service.Create(ctx, owner, CreateInput{Name: "Work"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := service.Get(ctx, intruder.ID, profile.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected NotFound for foreign profile, got %v", err)
	}
}

func TestDefaultProfileAvatarKeepsMultiByteInitialIntact(t *testing.T) {
	avatar := defaultProfileAvatar("김철수")
	if !strings.Contains(avatar, "name=%EA%B9%80") {
		t.Fatalf("expected the full first rune in the avatar URL, got %q", avatar)
	}
	if defaultProfileAvatar("   ") != defaultProfileAvatar("") {
		t.Fatalf("expected blank names to share the placeholder avatar")
	}
}

func TestRoomIDListScanToleratesAndReportsCorruptData(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	restoreGlobals := zap.ReplaceGlobals(zap.New(core))
	defer restoreGlobals()

	var list RoomIDList
	if err := list.Scan("not json"); err != nil {
		t.Fatalf("expected corrupt data to degrade, got error %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list after corrupt scan, got %v", list)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected the corruption to be reported once, got %d entries", len(entries))
	}
	if entries[0].Message != "discarding corrupt linked room list" {
		t.Fatalf("unexpected report message %q", entries[0].Message)
	}

	if err := list.Scan(`[1,2,3]`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 3 || list[0] != 1 {
		t.Fatalf("expected decoded ids, got %v", list)
	}
	if extra := logs.All(); len(extra) != 1 {
		t.Fatalf("expected no report for a clean scan, got %d entries", len(extra))
	}
}
