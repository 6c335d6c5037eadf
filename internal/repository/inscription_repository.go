package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/munivet/campo-api/internal/models"
)

// InscriptionRepository persists door-to-door registrations.
type InscriptionRepository struct {
	db *sqlx.DB
}

// NewInscriptionRepository constructs an inscription repository.
func NewInscriptionRepository(db *sqlx.DB) *InscriptionRepository {
	return &InscriptionRepository{db: db}
}

const inscriptionColumns = "id, campaign_id, contact_name, phone, address, ci, pet_count, lat, lng, attended, created_by, created_at, updated_at"

// ListByCampaign returns all inscriptions for a campaign with geo data.
func (r *InscriptionRepository) ListByCampaign(ctx context.Context, campaignID string) ([]models.Inscription, error) {
	query := fmt.Sprintf("SELECT %s FROM inscriptions WHERE campaign_id = $1 ORDER BY created_at ASC", inscriptionColumns)
	var inscriptions []models.Inscription
	if err := r.db.SelectContext(ctx, &inscriptions, query, campaignID); err != nil {
		return nil, fmt.Errorf("list inscriptions: %w", err)
	}
	return inscriptions, nil
}

// GetByID fetches an inscription.
func (r *InscriptionRepository) GetByID(ctx context.Context, id string) (*models.Inscription, error) {
	query := fmt.Sprintf("SELECT %s FROM inscriptions WHERE id = $1", inscriptionColumns)
	var inscription models.Inscription
	if err := r.db.GetContext(ctx, &inscription, query, id); err != nil {
		return nil, err
	}
	return &inscription, nil
}

// Create inserts an inscription.
func (r *InscriptionRepository) Create(ctx context.Context, inscription *models.Inscription) error {
	if inscription.ID == "" {
		inscription.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if inscription.CreatedAt.IsZero() {
		inscription.CreatedAt = now
	}
	inscription.UpdatedAt = now
	const query = `INSERT INTO inscriptions (id, campaign_id, contact_name, phone, address, ci, pet_count, lat, lng, attended, created_by, created_at, updated_at)
VALUES (:id, :campaign_id, :contact_name, :phone, :address, :ci, :pet_count, :lat, :lng, :attended, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, inscription); err != nil {
		return fmt.Errorf("create inscription: %w", err)
	}
	return nil
}

// ExistsByPhone reports whether the normalized phone is already registered
// in the campaign.
func (r *InscriptionRepository) ExistsByPhone(ctx context.Context, campaignID string, phone string) (bool, error) {
	var count int
	const query = `SELECT COUNT(*) FROM inscriptions WHERE campaign_id = $1 AND phone = $2`
	if err := r.db.GetContext(ctx, &count, query, campaignID, phone); err != nil {
		return false, fmt.Errorf("check duplicate inscription: %w", err)
	}
	return count > 0, nil
}

// MarkAttended sets the attended flag. The update is a no-op when already set.
func (r *InscriptionRepository) MarkAttended(ctx context.Context, id string) error {
	const query = `UPDATE inscriptions SET attended = TRUE, updated_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark inscription attended: %w", err)
	}
	return nil
}

// CountPending returns inscriptions not yet attended for a campaign.
func (r *InscriptionRepository) CountPending(ctx context.Context, campaignID string) (int, error) {
	var total int
	const query = `SELECT COUNT(*) FROM inscriptions WHERE campaign_id = $1 AND attended = FALSE`
	if err := r.db.GetContext(ctx, &total, query, campaignID); err != nil {
		return 0, fmt.Errorf("count pending inscriptions: %w", err)
	}
	return total, nil
}
