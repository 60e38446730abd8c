package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldConnectionID  = "connectionId"
	fieldSessionID     = "session_id"
	fieldLastActive    = "last_active"
	fieldPlan          = "plan"
	fieldPaymentStatus = "payment_status"
	fieldExtraData     = "extra_data"
)

// appendIfExists pushes onto the history list only while the record hash exists.
var appendIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
return redis.call('RPUSH', KEYS[2], ARGV[1])
`)

// RedisRepo keeps each user record as a hash and the current session's
// history as a list next to it.
type RedisRepo struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisRepo(rdb *redis.Client, prefix string) *RedisRepo {
	if prefix == "" {
		prefix = "ts"
	}
	return &RedisRepo{rdb: rdb, prefix: prefix}
}

func (r *RedisRepo) recordKey(userID string) string {
	return fmt.Sprintf("%s:user:%s", r.prefix, userID)
}

func (r *RedisRepo) historyKey(userID string) string {
	return fmt.Sprintf("%s:user:%s:history", r.prefix, userID)
}

func (r *RedisRepo) GetSession(ctx context.Context, userID string) (*Session, error) {
	vals, err := r.rdb.HGetAll(ctx, r.recordKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall: %w", err)
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}

	s := &Session{
		UserID:       userID,
		ConnectionID: vals[fieldConnectionID],
		SessionID:    vals[fieldSessionID],
	}
	if raw := vals[fieldLastActive]; raw != "" {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse last_active %q: %w", raw, err)
		}
		s.LastActive = at.UTC()
	}

	history, err := r.rdb.LRange(ctx, r.historyKey(userID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("lrange: %w", err)
	}
	s.History = history
	if s.History == nil {
		s.History = []string{}
	}
	return s, nil
}

func (r *RedisRepo) TouchSession(ctx context.Context, userID string, at time.Time) error {
	return r.rdb.HSet(ctx, r.recordKey(userID), fieldLastActive, at.UTC().Format(time.RFC3339Nano)).Err()
}

func (r *RedisRepo) PutSession(ctx context.Context, s *Session) error {
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.historyKey(s.UserID))
		p.HSet(ctx, r.recordKey(s.UserID),
			fieldConnectionID, s.ConnectionID,
			fieldSessionID, s.SessionID,
			fieldLastActive, s.LastActive.UTC().Format(time.RFC3339Nano),
		)
		return nil
	})
	return err
}

func (r *RedisRepo) AppendMessage(ctx context.Context, userID, content string) (bool, error) {
	n, err := appendIfExists.Run(ctx, r.rdb,
		[]string{r.recordKey(userID), r.historyKey(userID)}, content).Int64()
	if err != nil {
		return false, err
	}
	return n >= 0, nil
}

func (r *RedisRepo) UpdateSubscription(ctx context.Context, userID, plan, status string) error {
	return r.rdb.HSet(ctx, r.recordKey(userID),
		fieldPlan, plan,
		fieldPaymentStatus, status,
	).Err()
}

func (r *RedisRepo) UpdateExtraData(ctx context.Context, userID string, data []byte) error {
	return r.rdb.HSet(ctx, r.recordKey(userID), fieldExtraData, string(data)).Err()
}
