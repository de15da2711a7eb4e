package preference

import (
	"context"
	"errors"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/infrastructure/persistence/postgres/connection"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrPreferenceNotFound = errors.New("preference not found")

// Repository defines the interface for preference persistence operations
type Repository interface {
	Upsert(ctx context.Context, pref *Preference) error
	CreateIfAbsent(ctx context.Context, pref *Preference) (bool, error)
	Find(ctx context.Context, userID, key string) (*Preference, error)
	FindAll(ctx context.Context, userID string) ([]Preference, error)
	Delete(ctx context.Context, userID, key string) (bool, error)
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

func (r *repository) Upsert(ctx context.Context, pref *Preference) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "source", "updated_at"}),
	}).Create(pref).Error
}

// CreateIfAbsent writes the preference only when no row exists yet for the
// (user, key) pair. Existing values are never overwritten by observation.
func (r *repository) CreateIfAbsent(ctx context.Context, pref *Preference) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
		DoNothing: true,
	}).Create(pref)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) Find(ctx context.Context, userID, key string) (*Preference, error) {
	var pref Preference
	result := r.db.WithContext(ctx).Where("user_id = ? AND key = ?", userID, key).First(&pref)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPreferenceNotFound
		}
		return nil, result.Error
	}
	return &pref, nil
}

func (r *repository) FindAll(ctx context.Context, userID string) ([]Preference, error) {
	var prefs []Preference
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("key").Find(&prefs).Error; err != nil {
		return nil, err
	}
	return prefs, nil
}

func (r *repository) Delete(ctx context.Context, userID, key string) (bool, error) {
	result := r.db.WithContext(ctx).Where("user_id = ? AND key = ?", userID, key).Delete(&Preference{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
