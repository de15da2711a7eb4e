package preference

import (
	"time"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/flow"
	"github.com/google/uuid"
)

// Preference keys form a fixed enumeration; writes outside it are rejected.
const (
	KeyPaymentMethod     = "payment_method"
	KeyDefaultAmount     = "default_amount"
	KeyLanguage          = "language"
	KeyNotificationLevel = "notification_level"
	KeyFavoriteCategory  = "favorite_category"
)

// Preference sources.
const (
	SourceExplicit = "explicit"
	SourceLearned  = "learned"
)

// allowedValues holds the closed value sets. Keys absent here (default_amount)
// accept free-form values.
var allowedValues = map[string][]string{
	KeyPaymentMethod:     flow.PaymentMethods,
	KeyLanguage:          {"amharic", "english", "afaan oromo"},
	KeyNotificationLevel: {"all", "important", "none"},
	KeyFavoriteCategory:  flow.SearchCategories,
}

// KnownKey reports whether the key belongs to the fixed enumeration.
func KnownKey(key string) bool {
	switch key {
	case KeyPaymentMethod, KeyDefaultAmount, KeyLanguage, KeyNotificationLevel, KeyFavoriteCategory:
		return true
	}
	return false
}

// ValidValue reports whether the value is acceptable for the key. Free-form
// keys accept anything non-empty.
func ValidValue(key, value string) bool {
	if value == "" {
		return false
	}
	set, closed := allowedValues[key]
	if !closed {
		return true
	}
	for _, v := range set {
		if v == value {
			return true
		}
	}
	return false
}

// Preference is one durable per-user default, unique on (user_id, key).
// Never auto-deleted.
type Preference struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_preferences_user_key" json:"user_id"`
	Key       string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_preferences_user_key" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	Source    string    `gorm:"type:varchar(20);not null;default:'explicit'" json:"source"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

// TableName specifies the table name for preferences
func (Preference) TableName() string {
	return "preferences"
}
