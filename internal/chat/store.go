package chat

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for the user.
var ErrNotFound = errors.New("chat: record not found")

// Store persists user records and chat history. Repo (gorm) and RedisRepo
// implement it.
type Store interface {
	// GetSession returns the user's current session with its history, or ErrNotFound.
	GetSession(ctx context.Context, userID string) (*Session, error)
	// TouchSession sets last_active without touching any other field.
	TouchSession(ctx context.Context, userID string, at time.Time) error
	// PutSession overwrites the session fields of the record, creating it if
	// needed, and starts an empty history. Billing and profile fields survive.
	PutSession(ctx context.Context, s *Session) error
	// AppendMessage appends to the current history only if the record exists.
	// It reports false, without error, when the record is absent.
	AppendMessage(ctx context.Context, userID, content string) (bool, error)

	// UpdateSubscription upserts the billing fields.
	UpdateSubscription(ctx context.Context, userID, plan, status string) error
	// UpdateExtraData upserts the opaque profile metadata (JSON).
	UpdateExtraData(ctx context.Context, userID string, data []byte) error
}
