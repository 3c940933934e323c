package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"cartscout/internal/auth"
	"cartscout/internal/http/server"
	"cartscout/internal/repos"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newApp(t *testing.T, opts server.Options) (*fiber.App, *sqlx.DB) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	iss := auth.NewIssuer("test-access", "test-refresh", 15*time.Minute, time.Hour)
	opts.AccessLog = false
	if opts.AuthMax == 0 {
		opts.AuthMax = 1000
		opts.AuthWindow = time.Minute
	}
	app, _ := server.New(db, iss, opts)
	return app, db
}

// call sends a JSON request and decodes the envelope. token may be empty.
func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			if err != nil {
				t.Fatal(err)
			}
			r = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: bad json %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, env
}

func decodeData(t *testing.T, env envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

type session struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

func register(t *testing.T, app *fiber.App, email string) session {
	t.Helper()
	status, env := call(t, app, "POST", "/api/v1/auth/register", "", map[string]string{"email": email, "password": "correct horse"})
	if status != fiber.StatusCreated {
		t.Fatalf("register %s: status %d %+v", email, status, env.Error)
	}
	var s session
	decodeData(t, env, &s)
	return s
}

func wantError(t *testing.T, status int, env envelope, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("expected status %d, got %d (%+v)", wantStatus, status, env.Error)
	}
	if env.Error == nil || env.Error.Code != wantCode {
		t.Fatalf("expected error code %s, got %+v", wantCode, env.Error)
	}
}
