package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"uicraft/internal/auth"
	"uicraft/internal/config"
	"uicraft/internal/models"
	"uicraft/internal/service/ai"
	"uicraft/internal/service/generate"
	"uicraft/internal/service/studio"
	"uicraft/internal/storage"
)

type mockCompletion struct {
	reply string
	err   error
	calls int
}

func (m *mockCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func TestGenerateEndToEnd(t *testing.T) {
	router, db, mock := newTestServer(t)
	defer db.Close()
	mock.reply = "```jsx\n<button style={{color:'red'}}>Go</button>\n```"

	token := registerAndLogin(t, router, "red@example.com")
	header := bearer(token)

	resp := doJSONRequest(t, router, http.MethodPost, "/api/generate",
		map[string]string{"prompt": "a red button"}, header)
	assertStatus(t, resp, http.StatusOK)
	var genBody struct {
		Code string `json:"code"`
	}
	decodeJSON(t, resp.Body.Bytes(), &genBody)
	if genBody.Code != mock.reply {
		t.Fatalf("code = %q, want verbatim completion reply", genBody.Code)
	}
	if mock.calls != 1 {
		t.Fatalf("expected one completion call, got %d", mock.calls)
	}

	lastResp := doJSONRequest(t, router, http.MethodGet, "/api/generate/last", nil, header)
	assertStatus(t, lastResp, http.StatusOK)
	var session models.Session
	decodeJSON(t, lastResp.Body.Bytes(), &session)
	if session.Markup != "<button style={{color:'red'}}>Go</button>" {
		t.Fatalf("markup = %q", session.Markup)
	}
	if session.Stylesheet != "" {
		t.Fatalf("stylesheet = %q, want empty", session.Stylesheet)
	}
	if session.Prompt != "a red button" {
		t.Fatalf("prompt = %q", session.Prompt)
	}
	if session.Title != models.DefaultSessionTitle {
		t.Fatalf("title = %q", session.Title)
	}
}

func TestGenerateWithoutAuthSkipsCompletion(t *testing.T) {
	router, db, mock := newTestServer(t)
	defer db.Close()
	mock.reply = "```jsx\n<div/>\n```"

	resp := doJSONRequest(t, router, http.MethodPost, "/api/generate",
		map[string]string{"prompt": "a red button"}, nil)
	assertStatus(t, resp, http.StatusUnauthorized)
	if mock.calls != 0 {
		t.Fatalf("completion client invoked despite missing credential")
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 0 {
		t.Fatalf("session created despite missing credential")
	}
}

func TestGenerateWithInvalidToken(t *testing.T) {
	router, db, mock := newTestServer(t)
	defer db.Close()

	resp := doJSONRequest(t, router, http.MethodPost, "/api/generate",
		map[string]string{"prompt": "x"}, bearer("not.a.valid.token"))
	assertStatus(t, resp, http.StatusUnauthorized)
	if mock.calls != 0 {
		t.Fatalf("completion client invoked with invalid credential")
	}
}

func TestGenerateRemoteFailure(t *testing.T) {
	router, db, mock := newTestServer(t)
	defer db.Close()
	mock.err = &ai.CompletionError{Stage: ai.StageRemote, Err: errors.New("bad gateway")}

	token := registerAndLogin(t, router, "fail@example.com")

	resp := doJSONRequest(t, router, http.MethodPost, "/api/generate",
		map[string]string{"prompt": "a red button"}, bearer(token))
	assertStatus(t, resp, http.StatusBadGateway)
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 0 {
		t.Fatalf("session persisted after completion failure")
	}
}

func TestUpdateForeignSessionIsOpaque(t *testing.T) {
	router, db, mock := newTestServer(t)
	defer db.Close()
	mock.reply = "```jsx\n<Card/>\n```"

	aliceToken := registerAndLogin(t, router, "alice@example.com")
	bobToken := registerAndLogin(t, router, "bob@example.com")

	resp := doJSONRequest(t, router, http.MethodPost, "/api/generate",
		map[string]string{"prompt": "alice's card"}, bearer(aliceToken))
	assertStatus(t, resp, http.StatusOK)

	lastResp := doJSONRequest(t, router, http.MethodGet, "/api/generate/last", nil, bearer(aliceToken))
	assertStatus(t, lastResp, http.StatusOK)
	var session models.Session
	decodeJSON(t, lastResp.Body.Bytes(), &session)

	patchResp := doJSONRequest(t, router, http.MethodPatch,
		fmt.Sprintf("/api/generate/%d", session.ID),
		map[string]string{"prompt": "stolen", "markup": "<Steal/>", "stylesheet": ""},
		bearer(bobToken))
	assertStatus(t, patchResp, http.StatusNotFound)

	// a flat-out nonexistent id answers identically
	missingResp := doJSONRequest(t, router, http.MethodPatch, "/api/generate/99999",
		map[string]string{"prompt": "x", "markup": "", "stylesheet": ""},
		bearer(bobToken))
	assertStatus(t, missingResp, http.StatusNotFound)

	// underlying record unchanged
	checkResp := doJSONRequest(t, router, http.MethodGet, "/api/generate/last", nil, bearer(aliceToken))
	assertStatus(t, checkResp, http.StatusOK)
	var current models.Session
	decodeJSON(t, checkResp.Body.Bytes(), &current)
	if current.Prompt != "alice's card" || current.Markup != "<Card/>" {
		t.Fatalf("record changed by foreign caller: %+v", current)
	}
}

func TestUpdateOwnSession(t *testing.T) {
	router, db, mock := newTestServer(t)
	defer db.Close()
	mock.reply = "```jsx\n<A/>\n```\n```css\n.a {}\n```"

	token := registerAndLogin(t, router, "edit@example.com")
	assertStatus(t, doJSONRequest(t, router, http.MethodPost, "/api/generate",
		map[string]string{"prompt": "v1"}, bearer(token)), http.StatusOK)

	lastResp := doJSONRequest(t, router, http.MethodGet, "/api/generate/last", nil, bearer(token))
	var session models.Session
	decodeJSON(t, lastResp.Body.Bytes(), &session)
	if session.Stylesheet != ".a {}" {
		t.Fatalf("stylesheet = %q", session.Stylesheet)
	}

	patchResp := doJSONRequest(t, router, http.MethodPatch,
		fmt.Sprintf("/api/generate/%d", session.ID),
		map[string]string{"prompt": "v2", "markup": "<B/>", "stylesheet": ".b {}"},
		bearer(token))
	assertStatus(t, patchResp, http.StatusOK)
	var updated models.Session
	decodeJSON(t, patchResp.Body.Bytes(), &updated)
	if updated.Prompt != "v2" || updated.Markup != "<B/>" || updated.Stylesheet != ".b {}" {
		t.Fatalf("update not applied: %+v", updated)
	}
}

func TestHistoryCapAndOrder(t *testing.T) {
	router, db, mock := newTestServer(t)
	defer db.Close()
	mock.reply = "```jsx\n<li/>\n```"

	token := registerAndLogin(t, router, "busy@example.com")
	for i := 0; i < 15; i++ {
		resp := doJSONRequest(t, router, http.MethodPost, "/api/generate",
			map[string]string{"prompt": fmt.Sprintf("item %d", i)}, bearer(token))
		assertStatus(t, resp, http.StatusOK)
	}

	histResp := doJSONRequest(t, router, http.MethodGet, "/api/generate/history", nil, bearer(token))
	assertStatus(t, histResp, http.StatusOK)
	var sessions []models.Session
	decodeJSON(t, histResp.Body.Bytes(), &sessions)
	if len(sessions) != 10 {
		t.Fatalf("expected 10 sessions, got %d", len(sessions))
	}
	if sessions[0].Prompt != "item 14" {
		t.Fatalf("expected newest first, got %q", sessions[0].Prompt)
	}
	for i := 1; i < len(sessions); i++ {
		if sessions[i].CreatedAt.After(sessions[i-1].CreatedAt) {
			t.Fatalf("history out of order at %d", i)
		}
	}
}

func TestDeleteSessionFlow(t *testing.T) {
	router, db, mock := newTestServer(t)
	defer db.Close()
	mock.reply = "```jsx\n<X/>\n```"

	token := registerAndLogin(t, router, "del@example.com")
	assertStatus(t, doJSONRequest(t, router, http.MethodPost, "/api/generate",
		map[string]string{"prompt": "doomed"}, bearer(token)), http.StatusOK)

	lastResp := doJSONRequest(t, router, http.MethodGet, "/api/generate/last", nil, bearer(token))
	var session models.Session
	decodeJSON(t, lastResp.Body.Bytes(), &session)

	delResp := doJSONRequest(t, router, http.MethodDelete,
		fmt.Sprintf("/api/generate/%d", session.ID), nil, bearer(token))
	assertStatus(t, delResp, http.StatusOK)
	var delBody struct {
		Success bool `json:"success"`
	}
	decodeJSON(t, delResp.Body.Bytes(), &delBody)
	if !delBody.Success {
		t.Fatalf("expected success true")
	}

	againResp := doJSONRequest(t, router, http.MethodDelete,
		fmt.Sprintf("/api/generate/%d", session.ID), nil, bearer(token))
	assertStatus(t, againResp, http.StatusNotFound)

	emptyResp := doJSONRequest(t, router, http.MethodGet, "/api/generate/last", nil, bearer(token))
	assertStatus(t, emptyResp, http.StatusNotFound)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	regResp := doJSONRequest(t, router, http.MethodPost, "/api/users/register",
		map[string]string{"email": "auth@example.com", "password": "pass123"}, nil)
	assertStatus(t, regResp, http.StatusCreated)

	badResp := doJSONRequest(t, router, http.MethodPost, "/api/users/login",
		map[string]string{"email": "auth@example.com", "password": "wrong"}, nil)
	assertStatus(t, badResp, http.StatusUnauthorized)

	dupResp := doJSONRequest(t, router, http.MethodPost, "/api/users/register",
		map[string]string{"email": "auth@example.com", "password": "pass123"}, nil)
	assertStatus(t, dupResp, http.StatusConflict)
}

func newTestServer(t *testing.T) (*gin.Engine, *sql.DB, *mockCompletion) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}

	store := studio.NewService(db, nil)
	authService := auth.NewService("test-secret", time.Hour)
	mock := &mockCompletion{}
	generator := generate.NewService(mock, store, time.Minute)
	handler := NewHandler(store, authService, generator)

	router := gin.New()
	handler.RegisterRoutes(router)
	return router, db, mock
}

func registerAndLogin(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()
	resp := doJSONRequest(t, router, http.MethodPost, "/api/users/register",
		map[string]string{"email": email, "password": "pass123"}, nil)
	assertStatus(t, resp, http.StatusCreated)
	var body struct {
		Token string `json:"token"`
	}
	decodeJSON(t, resp.Body.Bytes(), &body)
	if body.Token == "" {
		t.Fatalf("expected token from register")
	}
	return body.Token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func doJSONRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, data []byte, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decode response %s: %v", data, err)
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) *httptest.ResponseRecorder {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, want, rec.Body.String())
	}
	return rec
}
