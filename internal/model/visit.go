package model

import "time"

// Visit is one recorded stay inside a mosque geofence. Opened on an Enter
// event and closed with a duration on the matching Exit event.
type Visit struct {
	ID              string     `db:"id" json:"id"`
	UserID          string     `db:"user_id" json:"user_id"`
	MosqueID        string     `db:"mosque_id" json:"mosque_id"`
	EnteredAt       time.Time  `db:"entered_at" json:"entered_at"`
	ExitedAt        *time.Time `db:"exited_at" json:"exited_at,omitempty"`
	DurationMinutes *int       `db:"duration_minutes" json:"duration_minutes,omitempty"`
}
