package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionEntry is one JSON value stored for a checkout session.
//
// Keys in use: guest_cart, checkout_selection, selected_address, addresses, last_order.
type SessionEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID string    `gorm:"size:64;not null;uniqueIndex:idx_session_entries_session_key" json:"session_id"`
	Key       string    `gorm:"size:64;not null;uniqueIndex:idx_session_entries_session_key" json:"key"`
	Value     []byte    `gorm:"type:jsonb" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

// TableName pins the table name.
func (SessionEntry) TableName() string {
	return "session_entries"
}

// BeforeCreate assigns a UUID when the caller left it empty.
func (e *SessionEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
