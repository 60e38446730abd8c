package chat

import (
	"time"

	"gorm.io/datatypes"
)

// Record is the per-user row keyed by TS_user_id. Session fields are owned by
// the session store; Plan/PaymentStatus by billing; ExtraData by profile updates.
type Record struct {
	UserID        string         `gorm:"column:ts_user_id;primaryKey;size:128" json:"TS_user_id"`
	ConnectionID  string         `gorm:"column:connection_id;size:128" json:"connectionId"`
	SessionID     string         `gorm:"type:varchar(26);index" json:"session_id"`
	LastActive    *time.Time     `json:"last_active"`
	Plan          string         `gorm:"type:varchar(32)" json:"plan,omitempty"`
	PaymentStatus string         `gorm:"type:varchar(32)" json:"payment_status,omitempty"`
	ExtraData     datatypes.JSON `json:"extra_data,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (Record) TableName() string { return "user_records" }

// Message is one chat_history entry. It belongs to the session generation
// identified by SessionID, so replacing a session detaches the old history.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:varchar(128);not null;index:idx_chat_msg_user_session,priority:1" json:"-"`
	SessionID string    `gorm:"type:varchar(26);not null;index:idx_chat_msg_user_session,priority:2" json:"session_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }

// Session is the store-independent view of a user's current chat session.
type Session struct {
	UserID       string
	ConnectionID string
	SessionID    string
	// LastActive is zero when the record exists but never held a session.
	LastActive time.Time
	History    []string
}
