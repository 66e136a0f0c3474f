package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rinaldiihsan/sixstreet-sub001/pkg/db/models"
	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
)

// SQLStore keeps sessions in the checkout_sessions table, one row per
// (session, storage name). Expired rows read as absent.
type SQLStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func NewSQLStore(db *gorm.DB, ttl time.Duration) *SQLStore {
	return &SQLStore{db: db, ttl: ttl, now: time.Now}
}

func (s *SQLStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	var row models.CheckoutSession
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND name = ?", sessionID, StorageName).
		Where("expires_at > ?", s.now().UTC()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	var session Session
	if err := json.Unmarshal([]byte(row.Payload), &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode checkout session")
	}
	return session.normalize(), nil
}

func (s *SQLStore) Save(ctx context.Context, sessionID string, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode checkout session")
	}
	now := s.now().UTC()
	row := models.CheckoutSession{
		SessionID: sessionID,
		Name:      StorageName,
		Payload:   string(payload),
		ExpiresAt: now.Add(s.ttl),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save checkout session")
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, sessionID string) error {
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND name = ?", sessionID, StorageName).
		Delete(&models.CheckoutSession{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete checkout session")
	}
	return nil
}

// PurgeExpired removes rows past their expiry and reports how many were deleted.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.now().UTC()).
		Delete(&models.CheckoutSession{})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "purge checkout sessions")
	}
	return res.RowsAffected, nil
}
