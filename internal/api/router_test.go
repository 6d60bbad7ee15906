package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"socdash/internal/config"
	"socdash/internal/db"
	"socdash/internal/service"
	"socdash/internal/store"
)

var errSendDown = errors.New("smtp relay down")

// captureSender records invitation sends so tests can pull the activation
// link out of the generated message.
type captureSender struct {
	mu    sync.Mutex
	links []string
	fail  error
}

func (c *captureSender) SendInvitation(ctx context.Context, toEmail, role, link string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.links = append(c.links, link)
	return nil
}

func (c *captureSender) lastToken(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.links) == 0 {
		t.Fatalf("no invitation link captured")
	}
	u, err := url.Parse(c.links[len(c.links)-1])
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	token := u.Query().Get("token")
	if token == "" {
		t.Fatalf("link %q carries no token", c.links[len(c.links)-1])
	}
	return token
}

func newTestRouter(t *testing.T) (http.Handler, *store.Store, *captureSender) {
	t.Helper()
	sqdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "app.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })
	if err := db.ApplyMigrationFile(sqdb, filepath.Join("..", "..", "migrations", "001_init.sql")); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	cfg := config.Config{
		ListenAddr:        ":3001",
		Roles:             []string{"admin", "analyst", "viewer"},
		ActivationBaseURL: "http://localhost:3000",
		PasswordMinLength: 8,
		PasswordMaxLength: 128,
		NotifyTimeoutSec:  2,
		SLALocale:         "id",
	}

	st := store.New(sqdb, "sqlite")
	sender := &captureSender{}
	svc := service.New(cfg, st, sender)
	return NewRouter(cfg, svc), st, sender
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body: %v body=%s", err, rec.Body.String())
	}
	return out.Error
}

func inviteAndActivate(t *testing.T, router http.Handler, sender *captureSender, email, username, password string) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/invitation", map[string]string{
		"email": email,
		"role":  "analyst",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("invite: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodPost, "/api/activate", map[string]string{
		"token":    sender.lastToken(t),
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func containsHash(body string) bool {
	return strings.Contains(body, "$argon2id$") || strings.Contains(body, "password")
}
