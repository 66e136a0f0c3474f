package models

import "time"

// CheckoutSession is one persisted storefront checkout state, keyed by the
// browser session and the storage entry name.
type CheckoutSession struct {
	SessionID string    `gorm:"column:session_id;type:varchar(64);primaryKey"`
	Name      string    `gorm:"column:name;type:varchar(64);primaryKey"`
	Payload   string    `gorm:"column:payload;type:text;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CheckoutSession) TableName() string {
	return "checkout_sessions"
}
