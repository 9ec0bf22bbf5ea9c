package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/personachat/backend/internal/ai"
	"github.com/personachat/backend/internal/chat"
	"github.com/personachat/backend/internal/profiles"
	"github.com/personachat/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&users.User{}, &profiles.Profile{},
		&chat.ChatRoom{}, &chat.ChatRoomMember{}, &chat.Message{},
		&chat.Reaction{}, &chat.MessageRead{}, &chat.Emoticon{},
	)
	if err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	userService, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to create user service: %v", err)
	}
	profileService, err := profiles.NewService(profiles.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to create profile service: %v", err)
	}
	aiClient, err := ai.NewClient(ai.Config{Model: "gpt-4o-mini", Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("failed to create ai client: %v", err)
	}
	chatService, err := chat.NewService(chat.ServiceConfig{
		Database:     db,
		Profiles:     profileService,
		Users:        userService,
		Collaborator: aiClient,
	})
	if err != nil {
		t.Fatalf("failed to create chat service: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		UsersService:    userService,
		ProfilesService: profileService,
		ChatService:     chatService,
		AIClient:        aiClient,
		Logger:          zap.NewNop(),
		IdentityHeader:  "X-LDAP",
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return handler
}

func doJSON(t *testing.T, handler http.Handler, method, path, ldap string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		payload = bytes.NewBuffer(encoded)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	request := httptest.NewRequest(method, path, payload)
	request.Header.Set("Content-Type", "application/json")
	if ldap != "" {
		request.Header.Set("X-LDAP", ldap)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestAPIRejectsMissingIdentityHeader(t *testing.T) {
	handler := newTestHandler(t)
	recorder := doJSON(t, handler, http.MethodGet, "/api/v1/users/me", "", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", recorder.Code)
	}
}

func TestHealthzIsOpen(t *testing.T) {
	handler := newTestHandler(t)
	recorder := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for healthz, got %d", recorder.Code)
	}
}

func TestCurrentUserCreatedOnFirstSight(t *testing.T) {
	handler := newTestHandler(t)
	recorder := doJSON(t, handler, http.MethodGet, "/api/v1/users/me", "  JDoe ", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload userPayload
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Ldap != "jdoe" {
		t.Fatalf("expected the identity to be normalized, got %q", payload.Ldap)
	}
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	handler := newTestHandler(t)

	created := doJSON(t, handler, http.MethodPost, "/api/v1/chatrooms", "alice", map[string]any{
		"friendLdap":   "bob",
		"formality":    85,
		"relationship": "boss",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", created.Code, created.Body.String())
	}
	var room chat.RoomView
	if err := json.Unmarshal(created.Body.Bytes(), &room); err != nil {
		t.Fatalf("failed to decode room: %v", err)
	}
	if room.Formality != "formal" {
		t.Fatalf("expected the formality score to be bucketed, got %q", room.Formality)
	}

	listed := doJSON(t, handler, http.MethodGet, "/api/v1/chatrooms", "bob", nil)
	if listed.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", listed.Code)
	}
	var rooms []chat.RoomView
	if err := json.Unmarshal(listed.Body.Bytes(), &rooms); err != nil {
		t.Fatalf("failed to decode rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "alice" {
		t.Fatalf("expected bob to see alice's room, got %+v", rooms)
	}
}

func TestServiceErrorsMapToStatuses(t *testing.T) {
	handler := newTestHandler(t)

	missing := doJSON(t, handler, http.MethodGet, "/api/v1/chatrooms/999", "alice", nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown room, got %d", missing.Code)
	}

	selfRoom := doJSON(t, handler, http.MethodPost, "/api/v1/chatrooms", "alice", map[string]any{
		"friendLdap": "Alice",
	})
	if selfRoom.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a self room, got %d", selfRoom.Code)
	}
}

func TestProfilesRoundTripOverHTTP(t *testing.T) {
	handler := newTestHandler(t)

	listed := doJSON(t, handler, http.MethodGet, "/api/v1/profiles", "alice", nil)
	if listed.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", listed.Code)
	}
	var list []profilePayload
	if err := json.Unmarshal(listed.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode profiles: %v", err)
	}
	if len(list) != 1 || !list[0].IsDefault {
		t.Fatalf("expected a lazily created default profile, got %+v", list)
	}

	created := doJSON(t, handler, http.MethodPost, "/api/v1/profiles", "alice", map[string]any{
		"name":           "Work",
		"defaultPersona": "formal",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", created.Code, created.Body.String())
	}

	foreign := doJSON(t, handler, http.MethodGet, "/api/v1/profiles/1", "mallory", nil)
	if foreign.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a foreign profile, got %d", foreign.Code)
	}
}
