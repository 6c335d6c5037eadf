package models

import "time"

// Inscription is a resident's door-to-door registration within a campaign.
// Attended is mutated only by the mark-attended operation; Editable is
// derived from the owning campaign being RUNNING and is never stored.
type Inscription struct {
	ID          string    `db:"id" json:"id"`
	CampaignID  string    `db:"campaign_id" json:"campaign_id"`
	ContactName string    `db:"contact_name" json:"contact_name"`
	Phone       string    `db:"phone" json:"phone"`
	Address     string    `db:"address" json:"address"`
	CI          string    `db:"ci" json:"ci"`
	PetCount    int       `db:"pet_count" json:"pet_count"`
	Lat         float64   `db:"lat" json:"lat"`
	Lng         float64   `db:"lng" json:"lng"`
	Attended    bool      `db:"attended" json:"attended"`
	CreatedBy   string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	Editable bool `db:"-" json:"editable"`
}
