package models

import "time"

// PointKind tags the variants of the map point union.
type PointKind string

const (
	PointFixedSite   PointKind = "site"
	PointFieldWorker PointKind = "vet"
	PointInscription PointKind = "ins"
)

// FixedSiteKey is the identity key of the single fixed-site point.
const FixedSiteKey = "site"

// FieldWorkerKey returns the identity key for a field worker's point.
func FieldWorkerKey(workerID string) string {
	return "vet_" + workerID
}

// InscriptionKey returns the identity key for an inscription's point.
func InscriptionKey(inscriptionID string) string {
	return "ins_" + inscriptionID
}

// MapPoint is a transient, derived map marker for a campaign view.
// At most one point exists per identity Key at any time.
type MapPoint struct {
	Key         string    `json:"key"`
	Kind        PointKind `json:"kind"`
	RefID       string    `json:"ref_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Attended    bool      `json:"attended,omitempty"`
	Editable    bool      `json:"editable,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LocationUpdate is an ephemeral position report broadcast over the
// campaign channel. Last-write-wins per WorkerID.
type LocationUpdate struct {
	WorkerID  string    `json:"worker_id"`
	Name      string    `json:"name"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// Channel event names on the wire, shared with the client.
const (
	EventJoinCampaign     = "unirse_campana"
	EventLeaveCampaign    = "salir_campana"
	EventSendLocation     = "enviar_ubicacion"
	EventLocationUpdate   = "actualizar_ubicacion"
	EventInitialLocations = "ubicaciones_iniciales"
)

// ChannelEvent is the envelope published on a campaign topic.
type ChannelEvent struct {
	Type     string          `json:"type"`
	Location *LocationUpdate `json:"location,omitempty"`
}
