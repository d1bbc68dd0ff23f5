package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/creatordesk/internal/auth"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/calendar"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/creators"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/database"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/metrics"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/spreadsheet"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	creatorsSheet = "Sheet1"
	calendarSheet = "Calendário"
)

// switchableClient fails appends while failing is set.
type switchableClient struct {
	*spreadsheet.MemoryClient
	mu      sync.Mutex
	failing bool
}

func (c *switchableClient) setFailing(failing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing = failing
}

func (c *switchableClient) AppendRows(ctx context.Context, title string, rows [][]string) error {
	c.mu.Lock()
	failing := c.failing
	c.mu.Unlock()
	if failing {
		return errors.New("sheets unavailable")
	}
	return c.MemoryClient.AppendRows(ctx, title, rows)
}

type testServer struct {
	handler http.Handler
	client  *switchableClient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	db, err := database.Open(database.Config{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "server.db")}, logger)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to create hasher: %v", err)
	}
	userService, err := users.NewService(users.ServiceConfig{Database: db, Hasher: hasher, Logger: logger})
	if err != nil {
		t.Fatalf("failed to create user service: %v", err)
	}
	tokens, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "creatordesk-auth",
		Audience:      "creatordesk-api",
		TokenTTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create token issuer: %v", err)
	}

	memory := spreadsheet.NewMemoryClient()
	memory.AddSheet(creatorsSheet, creators.MirrorHeader...)
	memory.AddSheet(calendarSheet, calendar.Header...)
	client := &switchableClient{MemoryClient: memory}

	creatorsTable, err := spreadsheet.NewTable(client, creatorsSheet)
	if err != nil {
		t.Fatalf("failed to bind creators table: %v", err)
	}
	mirror, err := creators.NewSheetMirror(creatorsTable, time.UTC)
	if err != nil {
		t.Fatalf("failed to create mirror: %v", err)
	}
	recorder := metrics.NewRecorder(false)
	creatorService, err := creators.NewService(creators.ServiceConfig{
		Database: db,
		Mirror:   mirror,
		Observer: recorder,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("failed to create creator service: %v", err)
	}

	calendarTable, err := spreadsheet.NewTable(client, calendarSheet)
	if err != nil {
		t.Fatalf("failed to bind calendar table: %v", err)
	}
	calendarService, err := calendar.NewService(calendarTable, logger)
	if err != nil {
		t.Fatalf("failed to create calendar service: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		TokenManager: tokens,
		Users:        userService,
		Creators:     creatorService,
		Calendar:     calendarService,
		Metrics:      recorder,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return &testServer{handler: handler, client: client}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder.Code, recorder.Body.Bytes()
}

func (s *testServer) loginAs(t *testing.T, username string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"firstName": strings.ToUpper(username[:1]) + username[1:],
		"username":  username,
		"password":  "pw-" + username,
	})
	if status != http.StatusOK {
		t.Fatalf("register %s: status %d body %s", username, status, body)
	}
	status, body = s.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": username,
		"password": "pw-" + username,
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, status, body)
	}
	var response loginResponsePayload
	decode(t, body, &response)
	if response.Token == "" || response.TokenType != "Bearer" || response.Username != username {
		t.Fatalf("unexpected login response %s", body)
	}
	return response.Token
}

func decode(t *testing.T, body []byte, target any) {
	t.Helper()
	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("failed to decode %s: %v", body, err)
	}
}

type testCreatorResponse struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"nome"`
	Username    string `json:"username"`
	CreatedAt   string `json:"created_at"`
	SheetSync   bool   `json:"sheetSync"`
	SheetStatus string `json:"sheetStatus"`
	Message     string `json:"message"`
}

func TestRegisterAndLoginErrors(t *testing.T) {
	server := newTestServer(t)
	server.loginAs(t, "alice")

	status, body := server.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": "x"})
	if status != http.StatusBadRequest {
		t.Fatalf("duplicate register: expected 400, got %d", status)
	}
	var failure errorResponse
	decode(t, body, &failure)
	if failure.Code != "users.register.username_taken" {
		t.Fatalf("unexpected code %q", failure.Code)
	}

	status, _ = server.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": "bob"})
	if status != http.StatusBadRequest {
		t.Fatalf("register without password: expected 400, got %d", status)
	}

	status, body = server.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "wrong"})
	if status != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", status)
	}
	decode(t, body, &failure)
	if failure.Error != "invalid_credentials" {
		t.Fatalf("unexpected error label %q", failure.Error)
	}

	status, _ = server.do(t, http.MethodGet, "/api/creators", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: expected 401, got %d", status)
	}
}

func TestCreatorLifecycle(t *testing.T) {
	server := newTestServer(t)
	alice := server.loginAs(t, "alice")
	bob := server.loginAs(t, "bob")

	status, body := server.do(t, http.MethodPost, "/api/creators", alice, map[string]string{"nome": "Rita", "instagram": "@rita"})
	if status != http.StatusOK {
		t.Fatalf("create: status %d body %s", status, body)
	}
	var synced testCreatorResponse
	decode(t, body, &synced)
	if !synced.SheetSync || synced.SheetStatus != "synced" || synced.Message != "" {
		t.Fatalf("expected synced create, got %s", body)
	}
	if synced.ID == 0 || synced.Username != "alice" || synced.CreatedAt == "" {
		t.Fatalf("expected stored identifiers, got %s", body)
	}

	server.client.setFailing(true)
	status, body = server.do(t, http.MethodPost, "/api/creators", alice, map[string]string{"nome": "Unmirrored"})
	server.client.setFailing(false)
	if status != http.StatusOK {
		t.Fatalf("create with mirror down: status %d body %s", status, body)
	}
	var unsynced testCreatorResponse
	decode(t, body, &unsynced)
	if unsynced.SheetSync || unsynced.Message == "" || unsynced.ID == 0 {
		t.Fatalf("expected unsynced create with local id, got %s", body)
	}

	status, body = server.do(t, http.MethodGet, "/api/creators", alice, nil)
	if status != http.StatusOK {
		t.Fatalf("list: status %d", status)
	}
	var listed []testCreatorResponse
	decode(t, body, &listed)
	if len(listed) != 2 || listed[0].ID != unsynced.ID || listed[1].ID != synced.ID {
		t.Fatalf("expected newest first, got %s", body)
	}

	status, body = server.do(t, http.MethodGet, "/api/creators?username=alice", bob, nil)
	decode(t, body, &listed)
	if status != http.StatusOK || len(listed) != 2 {
		t.Fatalf("expected queried owner's records, got %d %s", status, body)
	}

	path := "/api/creators/" + itoa(synced.ID)
	status, _ = server.do(t, http.MethodPut, path, bob, map[string]string{"nome": "Hijacked"})
	if status != http.StatusForbidden {
		t.Fatalf("non-owner update: expected 403, got %d", status)
	}
	status, _ = server.do(t, http.MethodDelete, path, bob, nil)
	if status != http.StatusForbidden {
		t.Fatalf("non-owner delete: expected 403, got %d", status)
	}

	status, body = server.do(t, http.MethodPut, path, alice, map[string]string{"nome": "Rita Lee"})
	if status != http.StatusOK {
		t.Fatalf("update: status %d body %s", status, body)
	}
	var mutation creatorMutationResponse
	decode(t, body, &mutation)
	if !mutation.SheetSync {
		t.Fatalf("expected synced update, got %s", body)
	}
	rows := server.client.Rows(creatorsSheet)
	if len(rows) != 2 || rows[1][3] != "Rita Lee" {
		t.Fatalf("expected rewritten mirror row, got %v", rows)
	}

	status, body = server.do(t, http.MethodDelete, "/api/creators/"+itoa(unsynced.ID), alice, nil)
	if status != http.StatusOK {
		t.Fatalf("delete unmirrored: status %d body %s", status, body)
	}
	decode(t, body, &mutation)
	if mutation.SheetSync || mutation.SheetStatus != "not_found" {
		t.Fatalf("expected not_found mirror status, got %s", body)
	}

	status, _ = server.do(t, http.MethodPut, "/api/creators/abc", alice, map[string]string{})
	if status != http.StatusBadRequest {
		t.Fatalf("invalid id: expected 400, got %d", status)
	}
	status, _ = server.do(t, http.MethodDelete, "/api/creators/999", alice, nil)
	if status != http.StatusNotFound {
		t.Fatalf("absent id: expected 404, got %d", status)
	}

	status, body = server.do(t, http.MethodDelete, "/api/creators", alice, nil)
	if status != http.StatusOK {
		t.Fatalf("delete all: status %d", status)
	}
	var deleted struct {
		Deleted int64 `json:"deleted"`
	}
	decode(t, body, &deleted)
	if deleted.Deleted != 1 {
		t.Fatalf("expected one remaining record deleted, got %s", body)
	}
	if len(server.client.Rows(creatorsSheet)) != 2 {
		t.Fatalf("delete all must leave the mirror untouched")
	}

	status, body = server.do(t, http.MethodGet, "/metrics", "", nil)
	if status != http.StatusOK || !strings.Contains(string(body), `creatordesk_mirror_writes_total{operation="append",status="failed"} 1`) {
		t.Fatalf("expected mirror metrics, got %d %s", status, body)
	}
}

func TestCalendarLifecycle(t *testing.T) {
	server := newTestServer(t)
	token := server.loginAs(t, "alice")

	status, body := server.do(t, http.MethodPost, "/api/calendar", token, map[string]string{"data": "2026-11-02"})
	if status != http.StatusBadRequest {
		t.Fatalf("missing location: expected 400, got %d %s", status, body)
	}

	var first, second calendar.Entry
	status, body = server.do(t, http.MethodPost, "/api/calendar", token, map[string]string{"data": "2026-11-02", "localizacao": "Lisboa"})
	if status != http.StatusOK {
		t.Fatalf("create: status %d body %s", status, body)
	}
	decode(t, body, &first)
	status, body = server.do(t, http.MethodPost, "/api/calendar", token, map[string]string{"data": "2026-11-03", "localizacao": "Porto", "notas": "stand 4"})
	if status != http.StatusOK {
		t.Fatalf("create: status %d body %s", status, body)
	}
	decode(t, body, &second)
	if first.ID != "1" || second.ID != "2" {
		t.Fatalf("expected sequential ids, got %q and %q", first.ID, second.ID)
	}

	status, body = server.do(t, http.MethodPut, "/api/calendar/1", token, map[string]string{"data": "2026-11-05", "localizacao": "Faro"})
	if status != http.StatusOK {
		t.Fatalf("update: status %d body %s", status, body)
	}

	status, _ = server.do(t, http.MethodDelete, "/api/calendar/42", token, nil)
	if status != http.StatusNotFound {
		t.Fatalf("absent entry: expected 404, got %d", status)
	}
	status, _ = server.do(t, http.MethodDelete, "/api/calendar/2", token, nil)
	if status != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", status)
	}

	status, body = server.do(t, http.MethodGet, "/api/calendar", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list: status %d", status)
	}
	var entries []calendar.Entry
	decode(t, body, &entries)
	if len(entries) != 1 || entries[0] != (calendar.Entry{ID: "1", Date: "2026-11-05", Location: "Faro"}) {
		t.Fatalf("unexpected calendar entries %s", body)
	}
}

func TestNewHTTPHandlerRequiresDependencies(t *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{}); !errors.Is(err, errMissingTokenManager) {
		t.Fatalf("expected missing token manager, got %v", err)
	}
	if _, err := NewHTTPHandler(Dependencies{TokenManager: stubTokenManager{}}); !errors.Is(err, errMissingUserDirectory) {
		t.Fatalf("expected missing user directory, got %v", err)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	server := newTestServer(t)
	request := httptest.NewRequest(http.MethodGet, "/api/calendar", http.NoBody)
	request.Header.Set(requestIDHeader, "req-123")
	recorder := httptest.NewRecorder()
	server.handler.ServeHTTP(recorder, request)

	if recorder.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("expected request id to be echoed, got %q", recorder.Header().Get(requestIDHeader))
	}

	recorder = httptest.NewRecorder()
	server.handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/calendar", http.NoBody))
	if recorder.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a generated request id")
	}
}

func itoa(value int64) string {
	return strconv.FormatInt(value, 10)
}
