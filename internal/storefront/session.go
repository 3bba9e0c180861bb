package storefront

import (
	"encoding/json"
	"fmt"
)

// Session holds the bearer token. It is Anonymous when no token is stored and
// Authenticated otherwise.
type Session struct {
	store Storage
	token string
}

// LoadSession reads the stored token, if any.
func LoadSession(store Storage) (*Session, error) {
	s := &Session{store: store}
	raw, ok, err := store.Get(tokenKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if ok {
		// An unreadable token is treated as logged out.
		_ = json.Unmarshal(raw, &s.token)
	}
	return s, nil
}

// Token returns the current token, or "" when anonymous.
func (s *Session) Token() string { return s.token }

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool { return s.token != "" }

// SetToken stores a token received from signup, login or the OAuth redirect.
func (s *Session) SetToken(token string) error {
	if token == "" {
		return s.Clear()
	}
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	if err := s.store.Set(tokenKey, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.token = token
	return nil
}

// Clear logs out by discarding the token.
func (s *Session) Clear() error {
	s.token = ""
	if err := s.store.Delete(tokenKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
