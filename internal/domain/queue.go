// Package domain defines the core persistence models for the application.
// This file holds the client-side durable queue model, persisted in the
// device-local SQLite file rather than the server store.
package domain

import "time"

// Queue entry states. An entry is created pending, and is deleted outright
// once the server acknowledgment has been durably recorded. Rejected marks a
// definitive server-side rejection awaiting a single user-facing surface.
const (
	QueueStatePending  = "pending"
	QueueStateRejected = "rejected"
)

// QueuedReport is a report awaiting upload. ClientID is assigned at enqueue
// time and never changes afterwards, across process restarts included; it is
// the idempotency key the server deduplicates on, which is what makes a
// crash between "sent" and "ack recorded" a harmless re-send.
type QueuedReport struct {
	ClientID     string    `json:"client_id" gorm:"type:varchar(64);primaryKey"`
	Category     string    `json:"category"  gorm:"type:varchar(32);not null"`
	ServiceType  *string   `json:"service_type,omitempty" gorm:"type:varchar(16)"`
	Status       *string   `json:"status,omitempty"       gorm:"type:varchar(16)"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	Description  string    `json:"description" gorm:"type:text;not null"`
	ImageURL     *string   `json:"image_url,omitempty" gorm:"type:varchar(512)"`
	InfraPointID *string   `json:"infra_point_id,omitempty" gorm:"type:char(36)"`
	State        string    `json:"state"      gorm:"type:varchar(16);not null;default:'pending';index"`
	Attempts     int       `json:"attempts"   gorm:"not null;default:0"`
	LastError    *string   `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the local table name for QueuedReport.
func (QueuedReport) TableName() string { return "queued_reports" }
