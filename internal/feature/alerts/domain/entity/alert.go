package entity

import "time"

// Alert is a triggered rule for one instrument on one date.
// At most one alert exists per (code, rule name, date).
type Alert struct {
	ID           uint
	Code         string
	RuleName     string
	Kind         RuleKind
	Date         time.Time
	Severity     Severity
	TriggerValue float64
	Threshold    float64
	Message      string

	Resolved        bool
	ResolvedAt      *time.Time
	ResolutionNotes string

	NotificationSent     bool
	NotificationChannels []string
	CreatedAt            time.Time
}
