package services_test

import (
	"testing"

	"cartscout/internal/domain"
	"cartscout/internal/services"
)

func TestRegisterLoginRefresh(t *testing.T) {
	e := newEnv(t)

	s, err := e.auth.Register("  Shopper@Example.com ", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if s.User.Email != "shopper@example.com" || s.AccessToken == "" || s.RefreshToken == "" || s.ExpiresIn != 900 {
		t.Fatalf("unexpected session: %+v", s)
	}

	_, err = e.auth.Register("shopper@example.com", "another password")
	wantCode(t, err, services.CodeConflict)
	_, err = e.auth.Register("x@example.com", "short")
	wantCode(t, err, services.CodeValidation)

	_, err = e.auth.Login("shopper@example.com", "wrong password")
	wantCode(t, err, services.CodeUnauthorized)
	_, err = e.auth.Login("nobody@example.com", "correct horse")
	wantCode(t, err, services.CodeUnauthorized)

	logged, err := e.auth.Login("SHOPPER@example.com", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if logged.User.ID != s.User.ID {
		t.Fatalf("login returned another user: %s", logged.User.ID)
	}

	next, err := e.auth.Refresh(logged.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if next.RefreshToken == logged.RefreshToken {
		t.Fatal("refresh token not rotated")
	}

	// The spent token cannot be used again.
	_, err = e.auth.Refresh(logged.RefreshToken)
	wantCode(t, err, services.CodeUnauthorized)

	_, err = e.auth.Refresh(next.AccessToken)
	wantCode(t, err, services.CodeUnauthorized)

	me, err := e.auth.Me(s.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if me.Email != "shopper@example.com" || me.CreatedAt == "" {
		t.Fatalf("unexpected me: %+v", me)
	}
	_, err = e.auth.Me("ghost")
	wantCode(t, err, services.CodeNotFound)
}

func TestPruneExpired(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "u1")
	if _, err := e.db.Exec(`INSERT INTO refresh_tokens(id,user_id,token_hash,expires_at,created_at) VALUES
	  ('old', ?, 'h1', '2000-01-01T00:00:00.000000Z', '2000-01-01T00:00:00.000000Z'),
	  ('new', ?, 'h2', '2999-01-01T00:00:00.000000Z', ?)`, u, u, domain.Now()); err != nil {
		t.Fatal(err)
	}
	n, err := e.auth.PruneExpired()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned token, got %d", n)
	}
}

func TestRegisterToken(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "a"), e.user(t, "b")

	_, err := e.push.RegisterToken(a, "  ", "ios")
	wantCode(t, err, services.CodeValidation)

	r, err := e.push.RegisterToken(a, "device-1", "symbian")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Registered || r.Platform != "web" {
		t.Fatalf("unexpected registration: %+v", r)
	}
	if _, err := e.push.RegisterToken(b, "device-1", "android"); err != nil {
		t.Fatal(err)
	}

	var rows []domain.PushToken
	if err := e.db.Select(&rows, `SELECT id,user_id,token,platform,created_at FROM push_tokens`); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].UserID != b || rows[0].Platform != "android" {
		t.Fatalf("token not upserted: %+v", rows)
	}
}
