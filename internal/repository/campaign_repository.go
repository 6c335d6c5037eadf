package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/munivet/campo-api/internal/models"
)

// CampaignRepository persists campaigns and their assignments.
type CampaignRepository struct {
	db *sqlx.DB
}

// NewCampaignRepository constructs a campaign repository.
func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = "id, name, type, description, start_date, end_date, lat, lng, state, assigned_stock, created_at, updated_at"

// List returns campaigns matching filters.
func (r *CampaignRepository) List(ctx context.Context, filter models.CampaignFilter) ([]models.Campaign, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.State != "" {
		where = append(where, fmt.Sprintf("state = $%d", len(args)+1))
		args = append(args, filter.State)
	}
	if filter.Type != "" {
		where = append(where, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM campaigns WHERE %s ORDER BY start_date DESC LIMIT %d OFFSET %d",
		campaignColumns, whereClause, size, offset)
	var campaigns []models.Campaign
	if err := r.db.SelectContext(ctx, &campaigns, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM campaigns WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}
	return campaigns, total, nil
}

// ListPublic returns the unauthenticated projection of campaigns that are
// not yet finished.
func (r *CampaignRepository) ListPublic(ctx context.Context) ([]models.PublicCampaign, error) {
	const query = `SELECT id, name, type, start_date, end_date, lat, lng
FROM campaigns WHERE state <> 'FINISHED' ORDER BY start_date ASC`
	var campaigns []models.PublicCampaign
	if err := r.db.SelectContext(ctx, &campaigns, query); err != nil {
		return nil, fmt.Errorf("list public campaigns: %w", err)
	}
	return campaigns, nil
}

// GetByID fetches a campaign.
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := fmt.Sprintf("SELECT %s FROM campaigns WHERE id = $1", campaignColumns)
	var campaign models.Campaign
	if err := r.db.GetContext(ctx, &campaign, query, id); err != nil {
		return nil, err
	}
	return &campaign, nil
}

// Create inserts a campaign.
func (r *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	if campaign.ID == "" {
		campaign.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}
	campaign.UpdatedAt = now
	const query = `INSERT INTO campaigns (id, name, type, description, start_date, end_date, lat, lng, state, assigned_stock, created_at, updated_at)
VALUES (:id, :name, :type, :description, :start_date, :end_date, :lat, :lng, :state, :assigned_stock, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, campaign); err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

// Update modifies a campaign's editable fields.
func (r *CampaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	campaign.UpdatedAt = time.Now().UTC()
	const query = `UPDATE campaigns SET name = :name, type = :type, description = :description, start_date = :start_date,
end_date = :end_date, lat = :lat, lng = :lng, assigned_stock = :assigned_stock, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, campaign); err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	return nil
}

// UpdateState records a confirmed lifecycle transition.
func (r *CampaignRepository) UpdateState(ctx context.Context, id string, state models.CampaignState) error {
	const query = `UPDATE campaigns SET state = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, state, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update campaign state: %w", err)
	}
	return nil
}

// ListAssignments returns the worker allocations for a campaign.
func (r *CampaignRepository) ListAssignments(ctx context.Context, campaignID string) ([]models.Assignment, error) {
	const query = `SELECT campaign_id, worker_id, worker_name, allocated_quantity, created_at
FROM campaign_assignments WHERE campaign_id = $1 ORDER BY worker_name ASC`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, campaignID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// CountAssignments returns the number of workers assigned to a campaign.
func (r *CampaignRepository) CountAssignments(ctx context.Context, campaignID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM campaign_assignments WHERE campaign_id = $1", campaignID); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return total, nil
}

// ReplaceAssignments swaps the full assignment list atomically.
func (r *CampaignRepository) ReplaceAssignments(ctx context.Context, campaignID string, assignments []models.Assignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace assignments: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM campaign_assignments WHERE campaign_id = $1", campaignID); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}
	now := time.Now().UTC()
	for i := range assignments {
		assignments[i].CampaignID = campaignID
		if assignments[i].CreatedAt.IsZero() {
			assignments[i].CreatedAt = now
		}
		const query = `INSERT INTO campaign_assignments (campaign_id, worker_id, worker_name, allocated_quantity, created_at)
VALUES (:campaign_id, :worker_id, :worker_name, :allocated_quantity, :created_at)`
		if _, err := tx.NamedExecContext(ctx, query, assignments[i]); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace assignments: %w", err)
	}
	return nil
}
