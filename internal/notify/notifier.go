// Package notify is the per-session toast side channel the storefront UI polls.
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notification struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Notifier interface {
	Notify(ctx context.Context, sessionID string, n Notification) error
	Drain(ctx context.Context, sessionID string) ([]Notification, error)
}

type listStore interface {
	AppendCapped(ctx context.Context, key string, max int64, ttl time.Duration, values ...any) error
	List(ctx context.Context, key string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
	NotificationsKey(sessionID string) string
}

// RedisNotifier keeps the newest limit notifications per session in a Redis list.
type RedisNotifier struct {
	store listStore
	limit int64
	ttl   time.Duration
	now   func() time.Time
}

func NewRedisNotifier(store listStore, limit int, ttl time.Duration) *RedisNotifier {
	if limit <= 0 {
		limit = 20
	}
	return &RedisNotifier{store: store, limit: int64(limit), ttl: ttl, now: time.Now}
}

func (r *RedisNotifier) Notify(ctx context.Context, sessionID string, n Notification) error {
	if r == nil || r.store == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "notification store unavailable")
	}
	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if n.Level == "" {
		n.Level = LevelInfo
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now().UTC()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode notification")
	}
	if err := r.store.AppendCapped(ctx, r.store.NotificationsKey(sid), r.limit, r.ttl, string(payload)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store notification")
	}
	return nil
}

// Drain returns pending notifications oldest first and clears them.
// Undecodable entries are skipped.
func (r *RedisNotifier) Drain(ctx context.Context, sessionID string) ([]Notification, error) {
	if r == nil || r.store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification store unavailable")
	}
	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	key := r.store.NotificationsKey(sid)
	raw, err := r.store.List(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notifications")
	}
	out := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	if len(raw) > 0 {
		if err := r.store.Del(ctx, key); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear notifications")
		}
	}
	return out, nil
}
