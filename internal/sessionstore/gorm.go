package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/pharmacy-checkout/internal/models"
)

// Gorm stores session values in the session_entries table.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps an already migrated connection.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) Get(ctx context.Context, sessionID, key string, dst any) error {
	var entry models.SessionEntry
	err := g.db.WithContext(ctx).
		Where("session_id = ? AND key = ?", sessionID, key).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load session value %s: %w", key, err)
	}

	if err := json.Unmarshal(entry.Value, dst); err != nil {
		return fmt.Errorf("decode session value %s: %w", key, err)
	}
	return nil
}

func (g *Gorm) Put(ctx context.Context, sessionID, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session value %s: %w", key, err)
	}

	entry := models.SessionEntry{
		SessionID: sessionID,
		Key:       key,
		Value:     raw,
	}

	err = g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": raw, "updated_at": time.Now()}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("save session value %s: %w", key, err)
	}
	return nil
}

func (g *Gorm) Delete(ctx context.Context, sessionID, key string) error {
	err := g.db.WithContext(ctx).
		Where("session_id = ? AND key = ?", sessionID, key).
		Delete(&models.SessionEntry{}).Error
	if err != nil {
		return fmt.Errorf("delete session value %s: %w", key, err)
	}
	return nil
}

// Prune drops values last written before cutoff.
func (g *Gorm) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res := g.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&models.SessionEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune session values: %w", res.Error)
	}
	return res.RowsAffected, nil
}
