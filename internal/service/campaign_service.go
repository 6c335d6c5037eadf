package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/munivet/campo-api/internal/models"
	appErrors "github.com/munivet/campo-api/pkg/errors"
)

type campaignRepository interface {
	List(ctx context.Context, filter models.CampaignFilter) ([]models.Campaign, int, error)
	ListPublic(ctx context.Context) ([]models.PublicCampaign, error)
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	Create(ctx context.Context, campaign *models.Campaign) error
	Update(ctx context.Context, campaign *models.Campaign) error
	UpdateState(ctx context.Context, id string, state models.CampaignState) error
	ListAssignments(ctx context.Context, campaignID string) ([]models.Assignment, error)
	CountAssignments(ctx context.Context, campaignID string) (int, error)
	ReplaceAssignments(ctx context.Context, campaignID string, assignments []models.Assignment) error
}

type campaignInscriptionRepository interface {
	CountPending(ctx context.Context, campaignID string) (int, error)
}

// CampaignService owns the campaign lifecycle and assignment rules.
type CampaignService struct {
	repo         campaignRepository
	inscriptions campaignInscriptionRepository
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewCampaignService constructs the service.
func NewCampaignService(repo campaignRepository, inscriptions campaignInscriptionRepository, validate *validator.Validate, logger *zap.Logger) *CampaignService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CampaignService{repo: repo, inscriptions: inscriptions, validator: validate, logger: logger}
}

// CreateCampaignRequest describes the create payload.
type CreateCampaignRequest struct {
	Name          string    `json:"name" validate:"required"`
	Type          string    `json:"type" validate:"required"`
	Description   string    `json:"description"`
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required"`
	Lat           *float64  `json:"lat"`
	Lng           *float64  `json:"lng"`
	AssignedStock int       `json:"assigned_stock" validate:"gte=0"`
}

// UpdateCampaignRequest describes the update payload.
type UpdateCampaignRequest struct {
	Name          string    `json:"name" validate:"required"`
	Type          string    `json:"type" validate:"required"`
	Description   string    `json:"description"`
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required"`
	Lat           *float64  `json:"lat"`
	Lng           *float64  `json:"lng"`
	AssignedStock int       `json:"assigned_stock" validate:"gte=0"`
}

// AssignmentRequest allocates stock to one worker.
type AssignmentRequest struct {
	WorkerID          string `json:"worker_id" validate:"required"`
	WorkerName        string `json:"worker_name" validate:"required"`
	AllocatedQuantity int    `json:"allocated_quantity" validate:"gte=1"`
}

// FinishResult reports a confirmed finish transition.
type FinishResult struct {
	Campaign            *models.Campaign `json:"campaign"`
	PendingInscriptions int              `json:"pending_inscriptions"`
}

// List returns campaigns for the staff view.
func (s *CampaignService) List(ctx context.Context, filter models.CampaignFilter) ([]models.Campaign, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	campaigns, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list campaigns")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return campaigns, pagination, nil
}

// ListPublic returns the public campaign projection.
func (s *CampaignService) ListPublic(ctx context.Context) ([]models.PublicCampaign, error) {
	campaigns, err := s.repo.ListPublic(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list public campaigns")
	}
	return campaigns, nil
}

// Get returns a campaign by id.
func (s *CampaignService) Get(ctx context.Context, id string) (*models.Campaign, error) {
	campaign, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "campaign not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get campaign")
	}
	return campaign, nil
}

// Create registers a new campaign in PLANNED state.
func (s *CampaignService) Create(ctx context.Context, req CreateCampaignRequest) (*models.Campaign, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid campaign payload")
	}
	if err := validateCampaignFields(req.StartDate, req.EndDate, req.Lat, req.Lng); err != nil {
		return nil, err
	}
	campaign := &models.Campaign{
		Name:          req.Name,
		Type:          req.Type,
		Description:   req.Description,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Lat:           req.Lat,
		Lng:           req.Lng,
		State:         models.CampaignPlanned,
		AssignedStock: req.AssignedStock,
	}
	if err := s.repo.Create(ctx, campaign); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create campaign")
	}
	return campaign, nil
}

// Update edits a campaign. Core fields (name, type, dates, location) are
// locked once the campaign is running; finished campaigns are immutable.
func (s *CampaignService) Update(ctx context.Context, id string, req UpdateCampaignRequest) (*models.Campaign, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid campaign payload")
	}
	if err := validateCampaignFields(req.StartDate, req.EndDate, req.Lat, req.Lng); err != nil {
		return nil, err
	}

	campaign, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch campaign.State {
	case models.CampaignFinished:
		return nil, appErrors.Clone(appErrors.ErrState, "finished campaigns cannot be edited")
	case models.CampaignRunning:
		if coreFieldsChanged(campaign, req) {
			return nil, appErrors.Clone(appErrors.ErrState, "name, dates and location are locked while the campaign is running")
		}
		campaign.Description = req.Description
		campaign.AssignedStock = req.AssignedStock
	default:
		campaign.Name = req.Name
		campaign.Type = req.Type
		campaign.Description = req.Description
		campaign.StartDate = req.StartDate
		campaign.EndDate = req.EndDate
		campaign.Lat = req.Lat
		campaign.Lng = req.Lng
		campaign.AssignedStock = req.AssignedStock
	}

	if err := s.repo.Update(ctx, campaign); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update campaign")
	}
	return campaign, nil
}

// Start moves a PLANNED campaign to RUNNING. When stock is allocated the
// campaign needs at least one assignment before it can start.
func (s *CampaignService) Start(ctx context.Context, id string) (*models.Campaign, error) {
	campaign, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !campaign.State.CanTransition(models.CampaignRunning) {
		return nil, appErrors.Clone(appErrors.ErrState, "campaign can only be started from PLANNED")
	}
	if campaign.AssignedStock > 0 {
		count, err := s.repo.CountAssignments(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assignments")
		}
		if count == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "at least one assignment is required before starting a stocked campaign")
		}
	}
	if err := s.repo.UpdateState(ctx, id, models.CampaignRunning); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start campaign")
	}
	campaign.State = models.CampaignRunning
	s.logger.Sugar().Infow("campaign started", "campaign_id", id)
	return campaign, nil
}

// Finish moves a RUNNING campaign to FINISHED. Irreversible. The result
// reports how many inscriptions were still pending at close.
func (s *CampaignService) Finish(ctx context.Context, id string) (*FinishResult, error) {
	campaign, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !campaign.State.CanTransition(models.CampaignFinished) {
		return nil, appErrors.Clone(appErrors.ErrState, "campaign can only be finished from RUNNING")
	}
	if err := s.repo.UpdateState(ctx, id, models.CampaignFinished); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finish campaign")
	}
	campaign.State = models.CampaignFinished

	pending, err := s.inscriptions.CountPending(ctx, id)
	if err != nil {
		// The transition is already committed; report it without the count.
		s.logger.Sugar().Warnw("failed to count pending inscriptions", "campaign_id", id, "error", err)
		pending = 0
	}
	s.logger.Sugar().Infow("campaign finished", "campaign_id", id, "pending_inscriptions", pending)
	return &FinishResult{Campaign: campaign, PendingInscriptions: pending}, nil
}

// ListAssignments returns the assignment list plus the allocated total.
func (s *CampaignService) ListAssignments(ctx context.Context, campaignID string) ([]models.Assignment, int, error) {
	assignments, err := s.repo.ListAssignments(ctx, campaignID)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	total := 0
	for _, a := range assignments {
		total += a.AllocatedQuantity
	}
	return assignments, total, nil
}

// ReplaceAssignments swaps the campaign's staffing. A worker may appear at
// most once and the allocated sum must not exceed the campaign's stock.
func (s *CampaignService) ReplaceAssignments(ctx context.Context, campaignID string, reqs []AssignmentRequest) ([]models.Assignment, error) {
	campaign, err := s.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.State == models.CampaignFinished {
		return nil, appErrors.Clone(appErrors.ErrState, "finished campaigns cannot be staffed")
	}

	seen := make(map[string]struct{}, len(reqs))
	total := 0
	assignments := make([]models.Assignment, 0, len(reqs))
	for _, req := range reqs {
		if err := s.validator.Struct(req); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
		}
		if _, dup := seen[req.WorkerID]; dup {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "worker already assigned to this campaign")
		}
		seen[req.WorkerID] = struct{}{}
		total += req.AllocatedQuantity
		assignments = append(assignments, models.Assignment{
			CampaignID:        campaignID,
			WorkerID:          req.WorkerID,
			WorkerName:        req.WorkerName,
			AllocatedQuantity: req.AllocatedQuantity,
		})
	}
	if total > campaign.AssignedStock {
		return nil, appErrors.Clone(appErrors.ErrValidation, "allocated stock exceeds the campaign total")
	}

	if err := s.repo.ReplaceAssignments(ctx, campaignID, assignments); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace assignments")
	}
	return assignments, nil
}

func validateCampaignFields(start, end time.Time, lat, lng *float64) error {
	if end.Before(start) {
		return appErrors.Clone(appErrors.ErrValidation, "end_date must be on or after start_date")
	}
	if (lat == nil) != (lng == nil) {
		return appErrors.Clone(appErrors.ErrValidation, "lat and lng must be provided together")
	}
	return nil
}

func coreFieldsChanged(campaign *models.Campaign, req UpdateCampaignRequest) bool {
	if campaign.Name != req.Name || campaign.Type != req.Type {
		return true
	}
	if !campaign.StartDate.Equal(req.StartDate) || !campaign.EndDate.Equal(req.EndDate) {
		return true
	}
	return !floatPtrEqual(campaign.Lat, req.Lat) || !floatPtrEqual(campaign.Lng, req.Lng)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
