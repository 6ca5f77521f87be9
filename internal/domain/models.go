// Package domain defines the persistence models for citizen reports, derived
// zone statuses, civic projects, and infrastructure points. These types are
// mapped with GORM and form the core data layer of the reporting backend.
package domain

import (
	"time"
)

// Report categories accepted at ingestion.
const (
	CategoryOutage        = "outage"
	CategoryDanger        = "danger"
	CategoryWaste         = "waste"
	CategoryMaintenance   = "maintenance"
	CategoryServiceStatus = "service-status"
)

// Service types a report or zone status can refer to.
const (
	ServiceElectricity = "electricity"
	ServiceWater       = "water"
)

// Service availability states. StatusUnknown is only ever produced by the
// aggregator; reports themselves carry one of the other three.
const (
	StatusAvailable = "available"
	StatusUnstable  = "unstable"
	StatusCutoff    = "cutoff"
	StatusUnknown   = "unknown"
)

// Infrastructure point operational states.
const (
	InfraActive      = "active"
	InfraStopped     = "stopped"
	InfraMaintenance = "maintenance"
)

// ValidCategory reports whether c is a member of the category enum.
func ValidCategory(c string) bool {
	switch c {
	case CategoryOutage, CategoryDanger, CategoryWaste, CategoryMaintenance, CategoryServiceStatus:
		return true
	}
	return false
}

// ValidServiceType reports whether s is a member of the service-type enum.
func ValidServiceType(s string) bool {
	return s == ServiceElectricity || s == ServiceWater
}

// ValidReportStatus reports whether s is a status a report may assert.
// "unknown" is deliberately excluded: it is a derived state, never an input.
func ValidReportStatus(s string) bool {
	return s == StatusAvailable || s == StatusUnstable || s == StatusCutoff
}

// StatusSeverity ranks service statuses by criticality for deterministic
// tie-breaking: cutoff > unstable > available. Unrecognized statuses rank
// lowest.
func StatusSeverity(s string) int {
	switch s {
	case StatusCutoff:
		return 3
	case StatusUnstable:
		return 2
	case StatusAvailable:
		return 1
	}
	return 0
}

// Report is a single citizen submission. Rows are immutable once persisted:
// corrections arrive as new reports, never as updates, so the aggregation
// window can be replayed deterministically.
//
// ClientID is the client-generated idempotency key. The unique index on it is
// what makes concurrent retries collapse to a single row; application code
// must not rely on a check-then-insert.
type Report struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	ClientID     string    `json:"client_id"     gorm:"type:varchar(64);not null;uniqueIndex:ux_reports_client_id"`
	Category     string    `json:"category"      gorm:"type:varchar(32);not null;index:idx_reports_category"`
	ServiceType  *string   `json:"service_type,omitempty"   gorm:"type:varchar(16);index:idx_reports_zone_service,priority:2"`
	Status       *string   `json:"status,omitempty"         gorm:"type:varchar(16)"`
	ZoneID       *string   `json:"zone_id,omitempty"        gorm:"type:varchar(64);index:idx_reports_zone_service,priority:1"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	Description  string    `json:"description"   gorm:"type:text;not null"`
	ImageURL     *string   `json:"image_url,omitempty"      gorm:"type:varchar(512)"`
	InfraPointID *string   `json:"infra_point_id,omitempty" gorm:"type:char(36);index"`
	CreatedAt    time.Time `json:"created_at"    gorm:"index"` // client-asserted
	ReceivedAt   time.Time `json:"received_at"`                // server clock
}

// TableName returns the database table name for Report.
func (Report) TableName() string { return "reports" }

// ZoneStatus is the aggregator's consensus for one (zone, service) pair at a
// point in time. Rows are append-only: each recompute inserts a new row and
// readers take the latest per key, so the history doubles as an audit log.
// Nothing but the aggregator writes this table.
type ZoneStatus struct {
	ID                    string    `json:"id"           gorm:"type:char(36);primaryKey"`
	ZoneID                string    `json:"zone_id"      gorm:"type:varchar(64);not null;index:idx_zone_status_key,priority:1"`
	ServiceType           string    `json:"service_type" gorm:"type:varchar(16);not null;index:idx_zone_status_key,priority:2"`
	ConsensusStatus       string    `json:"consensus_status" gorm:"type:varchar(16);not null"`
	Confidence            float64   `json:"confidence"`
	SupportingReportCount int       `json:"supporting_report_count"`
	ComputedAt            time.Time `json:"computed_at"  gorm:"index:idx_zone_status_key,priority:3"`
}

// TableName returns the database table name for ZoneStatus.
func (ZoneStatus) TableName() string { return "zone_statuses" }

// Project is a civic project competing for priority. Score is derived by the
// scorer as a pure function of the other fields at ScoreComputedAt and is
// never manually overridden.
type Project struct {
	ID                 string     `json:"id"          gorm:"type:char(36);primaryKey"`
	Title              string     `json:"title"       gorm:"type:varchar(255);not null"`
	VotesCount         int        `json:"votes_count" gorm:"not null;default:0"`
	LinkedInfraPointID *string    `json:"linked_infra_point_id,omitempty" gorm:"type:char(36);index"`
	Score              float64    `json:"score"       gorm:"index"`
	ScoreComputedAt    *time.Time `json:"score_computed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// TableName returns the database table name for Project.
func (Project) TableName() string { return "projects" }

// InfraPoint is a piece of municipal infrastructure (substation, pump, well).
// The scorer reads its status for the urgency bonus; this core never writes it.
type InfraPoint struct {
	ID        string    `json:"id"     gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"   gorm:"type:varchar(255);not null"`
	Status    string    `json:"status" gorm:"type:varchar(16);not null;check:status IN ('active','stopped','maintenance')"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for InfraPoint.
func (InfraPoint) TableName() string { return "infra_points" }
