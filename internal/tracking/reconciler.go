package tracking

import (
	"sort"
	"strings"
	"sync"

	"github.com/munivet/campo-api/internal/models"
)

// Reconciler owns the map-point set for one campaign view. Every write is
// keyed, so at most one point exists per identity key; repeated updates
// for the same key replace, never append.
type Reconciler struct {
	mu     sync.RWMutex
	points map[string]models.MapPoint
}

// NewReconciler returns an empty reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{points: make(map[string]models.MapPoint)}
}

// UpsertFixedSite sets the campaign's stationary vaccination point.
func (r *Reconciler) UpsertFixedSite(lat, lng float64, title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points[models.FixedSiteKey] = models.MapPoint{
		Key:   models.FixedSiteKey,
		Kind:  models.PointFixedSite,
		Title: title,
		Lat:   lat,
		Lng:   lng,
	}
}

// UpsertFieldWorker applies a live position report. Last write wins per
// worker.
func (r *Reconciler) UpsertFieldWorker(update models.LocationUpdate) {
	key := models.FieldWorkerKey(update.WorkerID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points[key] = models.MapPoint{
		Key:       key,
		Kind:      models.PointFieldWorker,
		RefID:     update.WorkerID,
		Title:     update.Name,
		Lat:       update.Lat,
		Lng:       update.Lng,
		UpdatedAt: update.Timestamp,
	}
}

// UpsertInscriptions bulk-replaces the inscription points.
func (r *Reconciler) UpsertInscriptions(inscriptions []models.Inscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, point := range r.points {
		if point.Kind == models.PointInscription {
			delete(r.points, key)
		}
	}
	for _, ins := range inscriptions {
		key := models.InscriptionKey(ins.ID)
		r.points[key] = models.MapPoint{
			Key:         key,
			Kind:        models.PointInscription,
			RefID:       ins.ID,
			Title:       ins.ContactName,
			Description: ins.Address,
			Lat:         ins.Lat,
			Lng:         ins.Lng,
			Attended:    ins.Attended,
			Editable:    ins.Editable,
			UpdatedAt:   ins.UpdatedAt,
		}
	}
}

// MarkAttended flips the attended flag on one inscription point. Returns
// false when no point matches.
func (r *Reconciler) MarkAttended(inscriptionID string) bool {
	key := models.InscriptionKey(inscriptionID)
	r.mu.Lock()
	defer r.mu.Unlock()
	point, ok := r.points[key]
	if !ok {
		return false
	}
	point.Attended = true
	r.points[key] = point
	return true
}

// ClearFieldWorkers removes all live worker points. Fixed-site and
// inscription points survive; location tracking is campaign-session
// scoped, inscriptions are not.
func (r *Reconciler) ClearFieldWorkers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, point := range r.points {
		if point.Kind == models.PointFieldWorker {
			delete(r.points, key)
		}
	}
}

// Snapshot returns the current point list ordered by identity key.
func (r *Reconciler) Snapshot() []models.MapPoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]models.MapPoint, 0, len(r.points))
	for _, point := range r.points {
		result = append(result, point)
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.Compare(result[i].Key, result[j].Key) < 0
	})
	return result
}
