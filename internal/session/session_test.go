package session

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/tgienger/taskmgr/internal/db"
	"github.com/tgienger/taskmgr/internal/models"
)

func openStore(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestLoginPersistsAcrossRestore(t *testing.T) {
	store := openStore(t)

	s := New(store)
	if s.IsAuthenticated() {
		t.Fatal("new session should not be authenticated")
	}
	if err := s.Login("tok-1", models.User{Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !s.IsAuthenticated() || s.Token() != "tok-1" {
		t.Fatalf("expected authenticated with tok-1, got %q", s.Token())
	}

	restored := New(store)
	if err := restored.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !restored.IsAuthenticated() {
		t.Fatal("expected restored session to be authenticated")
	}
	u, ok := restored.User()
	if !ok || u.Email != "ada@example.com" || u.Name != "Ada" {
		t.Fatalf("unexpected restored user: %+v ok=%v", u, ok)
	}
}

func TestLogoutClearsStorageAndMemory(t *testing.T) {
	store := openStore(t)
	s := New(store)
	if err := s.Login("tok", models.User{Email: "a@b.c"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := s.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if s.IsAuthenticated() {
		t.Fatal("expected unauthenticated after logout")
	}
	if _, ok := s.User(); ok {
		t.Fatal("expected no user after logout")
	}
	for _, k := range []string{TokenKey, UserKey} {
		if _, ok, _ := store.GetSetting(k); ok {
			t.Fatalf("expected %s removed from storage", k)
		}
	}
}

func TestRestorePartialSessionFailsClosed(t *testing.T) {
	cases := []struct {
		name    string
		entries map[string]string
	}{
		{"token only", map[string]string{TokenKey: "tok"}},
		{"user only", map[string]string{UserKey: `{"email":"a@b.c"}`}},
		{"unreadable user", map[string]string{TokenKey: "tok", UserKey: "{not json"}},
		{"blank token", map[string]string{TokenKey: "  ", UserKey: `{"email":"a@b.c"}`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := openStore(t)
			if err := store.SetSettings(tc.entries); err != nil {
				t.Fatalf("seed: %v", err)
			}
			s := New(store)
			if err := s.Restore(); err != nil {
				t.Fatalf("restore: %v", err)
			}
			if s.IsAuthenticated() {
				t.Fatal("partial session must not authenticate")
			}
			if _, ok := s.User(); ok {
				t.Fatal("partial session must not expose a user")
			}
			for _, k := range []string{TokenKey, UserKey} {
				if _, ok, _ := store.GetSetting(k); ok {
					t.Fatalf("expected stray %s to be removed", k)
				}
			}
		})
	}
}

type failingStore struct {
	Storage
	setErr error
	delErr error
}

func (f failingStore) SetSettings(map[string]string) error { return f.setErr }
func (f failingStore) DeleteSettings(...string) error      { return f.delErr }

func TestLoginDoesNotAuthenticateWhenPersistFails(t *testing.T) {
	s := New(failingStore{setErr: errors.New("disk full")})
	if err := s.Login("tok", models.User{Email: "a@b.c"}); err == nil {
		t.Fatal("expected persist error")
	}
	if s.IsAuthenticated() {
		t.Fatal("session must not authenticate when storage write fails")
	}
}

func TestLogoutClearsMemoryEvenWhenStorageFails(t *testing.T) {
	store := openStore(t)
	s := New(store)
	if err := s.Login("tok", models.User{Email: "a@b.c"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	s.store = failingStore{delErr: errors.New("locked")}
	if err := s.Logout(); err == nil {
		t.Fatal("expected storage error")
	}
	if s.IsAuthenticated() {
		t.Fatal("expected unauthenticated after failed logout")
	}
}

func TestLoginRejectsEmptyToken(t *testing.T) {
	s := New(openStore(t))
	if err := s.Login("", models.User{Email: "a@b.c"}); err == nil {
		t.Fatal("expected error for empty token")
	}
}
