package checkout

import "context"

// Store persists whole sessions. Load returns nil, nil when nothing is stored.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, sessionID string, session *Session) error
	Delete(ctx context.Context, sessionID string) error
}
