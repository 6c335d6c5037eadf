package models

import "time"

// CampaignState is the lifecycle state of a field campaign.
// Transitions are linear: PLANNED -> RUNNING -> FINISHED.
type CampaignState string

const (
	CampaignPlanned  CampaignState = "PLANNED"
	CampaignRunning  CampaignState = "RUNNING"
	CampaignFinished CampaignState = "FINISHED"
)

// CanTransition reports whether s may move to next.
func (s CampaignState) CanTransition(next CampaignState) bool {
	switch s {
	case CampaignPlanned:
		return next == CampaignRunning
	case CampaignRunning:
		return next == CampaignFinished
	default:
		return false
	}
}

// Campaign represents a time-boxed field operation (vaccination, deworming, ...).
// Lat/Lng nil means door-to-door mode with no fixed site.
type Campaign struct {
	ID            string        `db:"id" json:"id"`
	Name          string        `db:"name" json:"name"`
	Type          string        `db:"type" json:"type"`
	Description   string        `db:"description" json:"description"`
	StartDate     time.Time     `db:"start_date" json:"start_date"`
	EndDate       time.Time     `db:"end_date" json:"end_date"`
	Lat           *float64      `db:"lat" json:"lat,omitempty"`
	Lng           *float64      `db:"lng" json:"lng,omitempty"`
	State         CampaignState `db:"state" json:"state"`
	AssignedStock int           `db:"assigned_stock" json:"assigned_stock"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// DoorToDoor reports whether the campaign runs without a fixed site.
func (c *Campaign) DoorToDoor() bool {
	return c.Lat == nil || c.Lng == nil
}

// PublicCampaign is the unauthenticated projection of a campaign.
type PublicCampaign struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Type      string    `db:"type" json:"type"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Lat       *float64  `db:"lat" json:"lat,omitempty"`
	Lng       *float64  `db:"lng" json:"lng,omitempty"`
}

// Assignment allocates stock to a field worker within a campaign.
// Unique per (campaign, worker).
type Assignment struct {
	CampaignID        string    `db:"campaign_id" json:"campaign_id"`
	WorkerID          string    `db:"worker_id" json:"worker_id"`
	WorkerName        string    `db:"worker_name" json:"worker_name"`
	AllocatedQuantity int       `db:"allocated_quantity" json:"allocated_quantity"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// CampaignFilter describes query params for listing campaigns.
type CampaignFilter struct {
	State    CampaignState
	Type     string
	Page     int
	PageSize int
}
