package dto

// AlertResponse はアラートイベントのレスポンスDTOです。
type AlertResponse struct {
	ID                   uint     `json:"id"`
	Code                 string   `json:"code"`
	Rule                 string   `json:"rule"`
	Kind                 string   `json:"kind"`
	Date                 string   `json:"date"`
	Severity             string   `json:"severity"`
	TriggerValue         float64  `json:"trigger_value"`
	Threshold            float64  `json:"threshold"`
	Message              string   `json:"message"`
	Resolved             bool     `json:"resolved"`
	ResolvedAt           *string  `json:"resolved_at,omitempty"`
	ResolutionNotes      string   `json:"resolution_notes,omitempty"`
	NotificationSent     bool     `json:"notification_sent"`
	NotificationChannels []string `json:"notification_channels,omitempty"`
}

// ResolveRequest は POST /alerts/:id/resolve のリクエストボディです。
type ResolveRequest struct {
	Notes string `json:"notes"`
}
