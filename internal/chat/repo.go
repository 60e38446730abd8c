package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Models lists the tables the repo needs migrated.
func Models() []any {
	return []any{&Record{}, &Message{}}
}

func (r *Repo) GetRecord(ctx context.Context, userID string) (*Record, error) {
	var rec Record
	if err := r.db.WithContext(ctx).
		Where("ts_user_id = ?", userID).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) GetSession(ctx context.Context, userID string) (*Session, error) {
	rec, err := r.GetRecord(ctx, userID)
	if err != nil {
		return nil, err
	}

	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, rec.SessionID).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	s := &Session{
		UserID:       rec.UserID,
		ConnectionID: rec.ConnectionID,
		SessionID:    rec.SessionID,
		History:      make([]string, 0, len(msgs)),
	}
	if rec.LastActive != nil {
		s.LastActive = rec.LastActive.UTC()
	}
	for _, m := range msgs {
		s.History = append(s.History, m.Content)
	}
	return s, nil
}

func (r *Repo) TouchSession(ctx context.Context, userID string, at time.Time) error {
	at = at.UTC()
	return r.db.WithContext(ctx).Model(&Record{}).
		Where("ts_user_id = ?", userID).
		Update("last_active", &at).Error
}

func (r *Repo) PutSession(ctx context.Context, s *Session) error {
	at := s.LastActive.UTC()
	rec := &Record{
		UserID:       s.UserID,
		ConnectionID: s.ConnectionID,
		SessionID:    s.SessionID,
		LastActive:   &at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ts_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"connection_id", "session_id", "last_active", "updated_at"}),
	}).Create(rec).Error
}

// AppendMessage inserts into the current session's history in a single
// statement that only produces a row when the user record exists.
func (r *Repo) AppendMessage(ctx context.Context, userID, content string) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		"INSERT INTO chat_messages (user_id, session_id, content, created_at) "+
			"SELECT ts_user_id, session_id, ?, ? FROM user_records WHERE ts_user_id = ?",
		content, time.Now().UTC(), userID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repo) UpdateSubscription(ctx context.Context, userID, plan, status string) error {
	rec := &Record{UserID: userID, Plan: plan, PaymentStatus: status}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ts_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan", "payment_status", "updated_at"}),
	}).Create(rec).Error
}

func (r *Repo) UpdateExtraData(ctx context.Context, userID string, data []byte) error {
	rec := &Record{UserID: userID, ExtraData: datatypes.JSON(data)}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ts_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"extra_data", "updated_at"}),
	}).Create(rec).Error
}
