// Package session holds the authenticated identity of the client and keeps it
// in durable storage across restarts.
package session

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/tgienger/taskmgr/internal/models"
)

// Storage keys. Both entries exist together or not at all.
const (
	TokenKey = "taskmanager_token"
	UserKey  = "taskmanager_user"
)

// Storage is the durable key/value store backing a Session. *db.DB satisfies it.
type Storage interface {
	GetSetting(key string) (string, bool, error)
	SetSettings(entries map[string]string) error
	DeleteSettings(keys ...string) error
}

// Session is the token and profile of the signed-in user. Safe for
// concurrent use; the zero value is not usable, call New.
type Session struct {
	store Storage

	mu    sync.RWMutex
	token string
	user  *models.User
}

func New(store Storage) *Session {
	return &Session{store: store}
}

// Restore hydrates the session from storage. A half-written session (only one
// of the two entries, or an unreadable profile) is treated as absent and the
// stray entry is removed.
func (s *Session) Restore() error {
	token, hasToken, err := s.store.GetSetting(TokenKey)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	raw, hasUser, err := s.store.GetSetting(UserKey)
	if err != nil {
		return fmt.Errorf("read user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.user = "", nil

	if !hasToken && !hasUser {
		return nil
	}

	var user models.User
	valid := hasToken && hasUser && strings.TrimSpace(token) != ""
	if valid {
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			log.Printf("session: stored profile unreadable: %v", err)
			valid = false
		}
	}
	if !valid {
		log.Printf("session: partial session in storage (token=%v user=%v), discarding", hasToken, hasUser)
		return s.store.DeleteSettings(TokenKey, UserKey)
	}

	s.token = token
	s.user = &user
	return nil
}

// Login stores token and user durably, then makes them visible in memory
func (s *Session) Login(token string, user models.User) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("login: empty token")
	}
	b, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SetSettings(map[string]string{TokenKey: token, UserKey: string(b)}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.token = token
	s.user = &user
	log.Printf("session: signed in as %s", user.Email)
	return nil
}

// Logout clears storage and memory. Memory is cleared even if storage fails,
// so the client never stays authenticated after a logout.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.store.DeleteSettings(TokenKey, UserKey)
	s.token = ""
	s.user = nil
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the bearer token, or "" when signed out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the profile; ok is false when signed out
func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}
