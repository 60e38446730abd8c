package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/common"
)

// SessionTTL is how long a session stays active after its last message.
const SessionTTL = 7 * 24 * time.Hour

type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		ttl:   SessionTTL,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// NewSessionID returns a fresh session generation id.
func NewSessionID() (string, error) {
	return common.NewULID()
}

// Active reports whether the session was used within the ttl.
func (s *Service) Active(sess *Session, now time.Time) bool {
	if sess.LastActive.IsZero() || sess.SessionID == "" {
		return false
	}
	return now.Sub(sess.LastActive) < s.ttl
}

// GetOrCreate returns the user's active session, refreshing last_active, or
// replaces it with an empty one. The lookup and the write are not atomic:
// two concurrent first messages for a user can both create a session and the
// later write wins.
func (s *Service) GetOrCreate(ctx context.Context, userID, connectionID string) (*Session, error) {
	now := s.now()

	sess, err := s.store.GetSession(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if sess != nil && s.Active(sess, now) {
		if err := s.store.TouchSession(ctx, userID, now); err != nil {
			return nil, fmt.Errorf("touch session: %w", err)
		}
		sess.LastActive = now
		return sess, nil
	}

	sid, err := NewSessionID()
	if err != nil {
		return nil, err
	}
	fresh := &Session{
		UserID:       userID,
		ConnectionID: connectionID,
		SessionID:    sid,
		LastActive:   now,
		History:      []string{},
	}
	if err := s.store.PutSession(ctx, fresh); err != nil {
		return nil, fmt.Errorf("put session: %w", err)
	}
	return fresh, nil
}

// AppendHistory records msg on the user's current session. It returns false
// when the user has no record; nothing is created in that case.
func (s *Service) AppendHistory(ctx context.Context, userID, msg string) (bool, error) {
	ok, err := s.store.AppendMessage(ctx, userID, msg)
	if err != nil {
		return false, fmt.Errorf("append history: %w", err)
	}
	return ok, nil
}

// UpdateSubscription marks the user's billing state.
func (s *Service) UpdateSubscription(ctx context.Context, userID, plan, status string) error {
	return s.store.UpdateSubscription(ctx, userID, plan, status)
}

func (s *Service) UpdateExtraData(ctx context.Context, userID string, data []byte) error {
	return s.store.UpdateExtraData(ctx, userID, data)
}
