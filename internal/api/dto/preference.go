package dto

// SetPreferenceRequest writes one per-user default.
type SetPreferenceRequest struct {
	Key   string `json:"key" binding:"required" validate:"required,not_empty"`
	Value string `json:"value" binding:"required" validate:"required,not_empty"`
}

// PreferencesResponse is the full key/value map for a user.
type PreferencesResponse struct {
	UserID      string            `json:"user_id"`
	Preferences map[string]string `json:"preferences"`
}
