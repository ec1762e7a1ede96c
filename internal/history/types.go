// Package history records one session per login and the ordered list of
// tools opened during it.
package history

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when appending to an unknown session.
	ErrNotFound = errors.New("session not found")

	// ErrUnreachable wraps failures to reach the remote store.
	ErrUnreachable = errors.New("history store unreachable")
)

// Session is one login and the actions taken during it.
type Session struct {
	ID      string    `json:"id"`
	User    string    `json:"user"`
	LoginAt time.Time `json:"login_at"`
	Actions []string  `json:"actions"`
	Path    string    `json:"path"`
}

// ActionSummary joins the actions for table display.
func (s Session) ActionSummary() string {
	return strings.Join(s.Actions, ", ")
}

// Store persists sessions.
type Store interface {
	// Create records a new session with an empty action list.
	Create(ctx context.Context, user, path string) (Session, error)
	// AppendAction adds one action name to the end of a session's list.
	AppendAction(ctx context.Context, id, action string) error
	// List returns every session, oldest first.
	List(ctx context.Context) ([]Session, error)
	// DeleteAll removes every session and returns how many were removed.
	DeleteAll(ctx context.Context) (int64, error)
	Close() error
}
