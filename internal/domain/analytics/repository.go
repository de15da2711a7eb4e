package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/infrastructure/persistence/postgres/connection"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StepCount is one step's completion tally within a window.
type StepCount struct {
	StepName string
	Count    int64
}

// TypeCount is one event type's tally within a window.
type TypeCount struct {
	EventType string
	Count     int64
}

// Repository defines the interface for analytics persistence operations
type Repository interface {
	CreateEvent(ctx context.Context, event *ConversationEvent) error
	IncrementDailyMetric(ctx context.Context, date time.Time, flowKind, metricType string) error
	CountEvents(ctx context.Context, flowKind, eventType string, since time.Time) (int64, error)
	StepCompletionCounts(ctx context.Context, flowKind string, since time.Time) ([]StepCount, error)
	EventTypeCounts(ctx context.Context, since, until time.Time) ([]TypeCount, error)
	MetricsSince(ctx context.Context, since time.Time) ([]DailyMetric, error)
	RecentEvents(ctx context.Context, limit int) ([]ConversationEvent, error)
	UserEventsByType(ctx context.Context, userID, eventType string, limit int) ([]ConversationEvent, error)
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

func (r *repository) CreateEvent(ctx context.Context, event *ConversationEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// IncrementDailyMetric atomically bumps one counter on the (date, flow_kind)
// row, creating the row on first touch. Increment-in-place tolerates
// cross-user contention on a shared daily row.
func (r *repository) IncrementDailyMetric(ctx context.Context, date time.Time, flowKind, metricType string) error {
	var column string
	switch metricType {
	case MetricStarted:
		column = "started_count"
	case MetricCompleted:
		column = "completed_count"
	case MetricAbandoned:
		column = "abandoned_count"
	default:
		return fmt.Errorf("unknown metric type %q", metricType)
	}

	day := date.UTC().Truncate(24 * time.Hour)

	seed := DailyMetric{
		Date:      day,
		FlowKind:  flowKind,
		UpdatedAt: time.Now().UTC(),
	}
	switch metricType {
	case MetricStarted:
		seed.StartedCount = 1
	case MetricCompleted:
		seed.CompletedCount = 1
	case MetricAbandoned:
		seed.AbandonedCount = 1
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}, {Name: "flow_kind"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column:       gorm.Expr(column + " + 1"),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&seed).Error
	if err != nil {
		return err
	}

	// Recompute the derived rate in place; guarded against a zero
	// denominator.
	err = r.db.WithContext(ctx).Model(&DailyMetric{}).
		Where("date = ? AND flow_kind = ?", day, flowKind).
		Update("completion_rate", gorm.Expr(
			"CASE WHEN started_count > 0 THEN completed_count::float / started_count ELSE 0 END",
		)).Error
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"date":      day.Format("2006-01-02"),
		"flow_kind": flowKind,
		"metric":    metricType,
	}).Debug("daily metric incremented")
	return nil
}

func (r *repository) CountEvents(ctx context.Context, flowKind, eventType string, since time.Time) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&ConversationEvent{}).
		Where("event_type = ? AND timestamp >= ?", eventType, since)
	if flowKind != "" {
		query = query.Where("flow_kind = ?", flowKind)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) StepCompletionCounts(ctx context.Context, flowKind string, since time.Time) ([]StepCount, error) {
	var counts []StepCount
	err := r.db.WithContext(ctx).Model(&ConversationEvent{}).
		Select("step_name, COUNT(*) as count").
		Where("event_type = ? AND flow_kind = ? AND timestamp >= ?", EventStepCompleted, flowKind, since).
		Group("step_name").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *repository) EventTypeCounts(ctx context.Context, since, until time.Time) ([]TypeCount, error) {
	var counts []TypeCount
	err := r.db.WithContext(ctx).Model(&ConversationEvent{}).
		Select("event_type, COUNT(*) as count").
		Where("timestamp >= ? AND timestamp < ?", since, until).
		Group("event_type").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *repository) MetricsSince(ctx context.Context, since time.Time) ([]DailyMetric, error) {
	var metrics []DailyMetric
	err := r.db.WithContext(ctx).
		Where("date >= ?", since.UTC().Truncate(24*time.Hour)).
		Order("date, flow_kind").
		Find(&metrics).Error
	if err != nil {
		return nil, err
	}
	return metrics, nil
}

func (r *repository) RecentEvents(ctx context.Context, limit int) ([]ConversationEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []ConversationEvent
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) UserEventsByType(ctx context.Context, userID, eventType string, limit int) ([]ConversationEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	var events []ConversationEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND event_type = ?", userID, eventType).
		Order("timestamp DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
