package analytics

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Tracked event types.
const (
	EventStarted                = "started"
	EventStepCompleted          = "step_completed"
	EventClarificationRequested = "clarification_requested"
	EventContextSwitched        = "context_switched"
	EventCompleted              = "completed"
	EventAbandoned              = "abandoned"
	EventError                  = "error"
)

// Daily metric counter names.
const (
	MetricStarted   = "started"
	MetricCompleted = "completed"
	MetricAbandoned = "abandoned"
)

// ConversationEvent is one append-only tracked transition. Immutable once
// written.
type ConversationEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    string         `gorm:"type:varchar(64);index" json:"user_id,omitempty"`
	SessionID string         `gorm:"type:varchar(64);not null;index" json:"session_id"`
	EventType string         `gorm:"type:varchar(50);not null;index" json:"event_type"`
	FlowKind  string         `gorm:"type:varchar(50);index" json:"flow_kind,omitempty"`
	StepName  string         `gorm:"type:varchar(50)" json:"step_name,omitempty"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	Timestamp time.Time      `gorm:"not null;default:now();index" json:"timestamp"`
}

// TableName specifies the table name for conversation events
func (ConversationEvent) TableName() string {
	return "conversation_events"
}

// DailyMetric is one row per (date, flow_kind), created lazily on the first
// event of the day and incremented in place thereafter.
type DailyMetric struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Date           time.Time `gorm:"type:date;not null;uniqueIndex:idx_daily_metrics_date_kind" json:"date"`
	FlowKind       string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_daily_metrics_date_kind" json:"flow_kind"`
	StartedCount   int64     `gorm:"not null;default:0" json:"started_count"`
	CompletedCount int64     `gorm:"not null;default:0" json:"completed_count"`
	AbandonedCount int64     `gorm:"not null;default:0" json:"abandoned_count"`
	CompletionRate float64   `gorm:"not null;default:0" json:"completion_rate"`
	UpdatedAt      time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

// TableName specifies the table name for daily metrics
func (DailyMetric) TableName() string {
	return "daily_metrics"
}
