// Package auth checks dashboard logins against an XML user list.
package auth

import (
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// ErrDuplicateUser is returned when adding a user name that already exists.
var ErrDuplicateUser = errors.New("user already exists")

// User is one <user> entry of the credential file.
type User struct {
	ID       string `xml:"id,omitempty"`
	Username string `xml:"usuario"`
	Name     string `xml:"nombre,omitempty"`
	Email    string `xml:"correo,omitempty"`
	Phone    string `xml:"telefono,omitempty"`
	Password string `xml:"contrasena"`
}

type userFile struct {
	XMLName xml.Name `xml:"users"`
	Users   []User   `xml:"user"`
}

// Store holds the credentials read at construction.
type Store struct {
	mu    sync.RWMutex
	path  string
	users []User
}

// Load reads the credential file at path. A missing file yields an empty
// store, so every login fails.
func Load(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("Credential file not found", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var f userFile
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse credentials %s: %w", path, err)
	}
	for _, u := range f.Users {
		u.Username = strings.TrimSpace(u.Username)
		u.Password = strings.TrimSpace(u.Password)
		if u.Username == "" {
			continue
		}
		s.users = append(s.users, u)
	}
	slog.Debug("Loaded credentials", "path", path, "users", len(s.users))
	return s, nil
}

// Len returns the number of known users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Check reports whether username and password match an entry exactly after
// trimming surrounding whitespace.
func (s *Store) Check(username, password string) bool {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username && u.Password == password {
			return true
		}
	}
	return false
}

// Lookup returns the entry for username.
func (s *Store) Lookup(username string) (User, bool) {
	username = strings.TrimSpace(username)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, true
		}
	}
	return User{}, false
}

// Users returns a copy of every known user.
func (s *Store) Users() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]User(nil), s.users...)
}

// Add appends a user in memory. Call Save to persist it.
func (s *Store) Add(u User) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Password = strings.TrimSpace(u.Password)
	if u.Username == "" {
		return fmt.Errorf("empty user name")
	}
	if _, ok := s.Lookup(u.Username); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateUser, u.Username)
	}
	s.mu.Lock()
	s.users = append(s.users, u)
	s.mu.Unlock()
	return nil
}

// Save writes the store back to the file it was loaded from.
func (s *Store) Save() error {
	s.mu.RLock()
	f := userFile{Users: append([]User(nil), s.users...)}
	s.mu.RUnlock()

	data, err := xml.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	data = append([]byte(xml.Header), data...)
	if err := os.WriteFile(s.path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}
