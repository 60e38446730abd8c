package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type AuditEntry struct {
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
}

// Line renders the entry the way it is stored in the audit bucket.
func (e AuditEntry) Line() string {
	return fmt.Sprintf("User: %s, Action: %s, File: %s, Timestamp: %s\n",
		e.UserID, e.Action, e.Filename, e.Timestamp.UTC().Format(time.RFC3339Nano))
}

type AuditSink interface {
	Record(ctx context.Context, e AuditEntry) error
}

// JSONPublisher is satisfied by the rabbitmq publisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, v any) error
}

// QueueAudit hands entries to the audit worker through the message queue.
type QueueAudit struct {
	pub JSONPublisher
}

func NewQueueAudit(pub JSONPublisher) *QueueAudit {
	return &QueueAudit{pub: pub}
}

func (q *QueueAudit) Record(ctx context.Context, e AuditEntry) error {
	return q.pub.PublishJSON(ctx, e)
}

// DecodeAuditEntry parses a queued entry. Entries without a user or action
// cannot be attributed and are rejected.
func DecodeAuditEntry(body []byte) (AuditEntry, error) {
	var e AuditEntry
	if err := json.Unmarshal(body, &e); err != nil {
		return AuditEntry{}, fmt.Errorf("decode audit entry: %w", err)
	}
	if e.UserID == "" || e.Action == "" {
		return AuditEntry{}, errors.New("audit entry missing user_id or action")
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return e, nil
}
