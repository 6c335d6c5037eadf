package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/munivet/campo-api/internal/models"
	appErrors "github.com/munivet/campo-api/pkg/errors"
)

type inscriptionRepository interface {
	ListByCampaign(ctx context.Context, campaignID string) ([]models.Inscription, error)
	GetByID(ctx context.Context, id string) (*models.Inscription, error)
	Create(ctx context.Context, inscription *models.Inscription) error
	ExistsByPhone(ctx context.Context, campaignID string, phone string) (bool, error)
	MarkAttended(ctx context.Context, id string) error
}

type inscriptionCampaignRepository interface {
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
}

// InscriptionService manages door-to-door registrations and their
// attended/pending status.
type InscriptionService struct {
	repo      inscriptionRepository
	campaigns inscriptionCampaignRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInscriptionService constructs the service.
func NewInscriptionService(repo inscriptionRepository, campaigns inscriptionCampaignRepository, validate *validator.Validate, logger *zap.Logger) *InscriptionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InscriptionService{repo: repo, campaigns: campaigns, validator: validate, logger: logger}
}

// RegisterInscriptionRequest describes the registration payload.
// UpdateProfile asks the auth service to persist the contact data on the
// resident's profile; the flag is passed through untouched.
type RegisterInscriptionRequest struct {
	ContactName   string  `json:"contact_name" validate:"required"`
	Phone         string  `json:"phone" validate:"required"`
	Address       string  `json:"address"`
	CI            string  `json:"ci"`
	PetCount      int     `json:"pet_count" validate:"gte=1"`
	Lat           float64 `json:"lat" validate:"required"`
	Lng           float64 `json:"lng" validate:"required"`
	UpdateProfile bool    `json:"update_profile"`
}

// Register creates an inscription for a running campaign. Duplicate
// detection is keyed on the normalized phone number per campaign: phone is
// the one identifying field required on both the guest and the
// authenticated path, so it is the authoritative key.
func (s *InscriptionService) Register(ctx context.Context, campaignID string, req RegisterInscriptionRequest, claims *models.JWTClaims) (*models.Inscription, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inscription payload")
	}
	if claims == nil && strings.TrimSpace(req.CI) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name, CI and phone are required for guest registration")
	}

	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "campaign not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campaign")
	}
	if campaign.State != models.CampaignRunning {
		return nil, appErrors.Clone(appErrors.ErrState, "inscriptions are only accepted while the campaign is running")
	}

	phone := normalizePhone(req.Phone)
	exists, err := s.repo.ExistsByPhone(ctx, campaignID, phone)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check duplicates")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "this phone is already registered for the campaign")
	}

	createdBy := ""
	if claims != nil {
		createdBy = claims.UserID
	}
	inscription := &models.Inscription{
		CampaignID:  campaignID,
		ContactName: req.ContactName,
		Phone:       phone,
		Address:     req.Address,
		CI:          strings.TrimSpace(req.CI),
		PetCount:    req.PetCount,
		Lat:         req.Lat,
		Lng:         req.Lng,
		CreatedBy:   createdBy,
	}
	if err := s.repo.Create(ctx, inscription); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create inscription")
	}
	inscription.Editable = true
	return inscription, nil
}

// List returns the staff view of a campaign's inscriptions with the
// derived editable flag.
func (s *InscriptionService) List(ctx context.Context, campaignID string) ([]models.Inscription, error) {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "campaign not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campaign")
	}

	inscriptions, err := s.repo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list inscriptions")
	}
	editable := campaign.State == models.CampaignRunning
	for i := range inscriptions {
		inscriptions[i].Editable = editable
	}
	return inscriptions, nil
}

// MarkAttended flips an inscription to attended. Idempotent: marking an
// already-attended inscription succeeds without touching anything.
func (s *InscriptionService) MarkAttended(ctx context.Context, id string) (*models.Inscription, error) {
	inscription, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "inscription not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inscription")
	}
	if inscription.Attended {
		return inscription, nil
	}

	campaign, err := s.campaigns.GetByID(ctx, inscription.CampaignID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campaign")
	}
	if campaign.State != models.CampaignRunning {
		return nil, appErrors.Clone(appErrors.ErrState, "inscription is no longer editable")
	}

	if err := s.repo.MarkAttended(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark inscription attended")
	}
	inscription.Attended = true
	inscription.Editable = true
	return inscription, nil
}

// normalizePhone strips separators so equal numbers written differently
// collide on the duplicate check.
func normalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch r {
		case ' ', '-', '(', ')', '.':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
