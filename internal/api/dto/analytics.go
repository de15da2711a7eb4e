package dto

// AnalyticsWindowQuery selects the reporting window for dashboard queries.
type AnalyticsWindowQuery struct {
	WindowDays int `form:"window_days" validate:"omitempty,min=1,max=90"`
}

// FunnelQuery selects the flow and window for a funnel report.
type FunnelQuery struct {
	FlowKind   string `form:"flow_kind" binding:"required" validate:"required,not_empty"`
	WindowDays int    `form:"window_days" validate:"omitempty,min=1,max=90"`
}

// RecentEventsQuery caps the recent-events projection.
type RecentEventsQuery struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=500"`
}
