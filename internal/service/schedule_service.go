package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/munivet/campo-api/internal/models"
	appErrors "github.com/munivet/campo-api/pkg/errors"
)

type scheduleRepository interface {
	GetWeekly(ctx context.Context) (*models.WeeklySchedule, error)
	UpdateWeekly(ctx context.Context, schedule *models.WeeklySchedule) error
	ListSpecialDays(ctx context.Context) ([]models.SpecialDay, error)
	GetSpecialDayByDate(ctx context.Context, date time.Time) (*models.SpecialDay, error)
	CreateSpecialDay(ctx context.Context, day *models.SpecialDay) error
	DeleteSpecialDay(ctx context.Context, id string) error
}

// ScheduleService administers the weekly schedule and its special-day
// overrides.
type ScheduleService struct {
	repo      scheduleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs the service.
func NewScheduleService(repo scheduleRepository, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, validator: validate, logger: logger}
}

// UpdateWeeklyRequest describes the schedule config payload.
type UpdateWeeklyRequest struct {
	MorningOpen    string `json:"morning_open" validate:"required"`
	MorningClose   string `json:"morning_close" validate:"required"`
	AfternoonOpen  string `json:"afternoon_open" validate:"required"`
	AfternoonClose string `json:"afternoon_close" validate:"required"`
	Weekdays       []int  `json:"weekdays" validate:"required,min=1,dive,gte=0,lte=6"`
}

// CreateSpecialDayRequest describes a special-day override.
type CreateSpecialDayRequest struct {
	Date        string  `json:"fecha" validate:"required"`
	Kind        string  `json:"kind" validate:"required,oneof=HOLIDAY CONTINUOUS"`
	Description string  `json:"description" validate:"required"`
	OpenTime    *string `json:"open_time"`
	CloseTime   *string `json:"close_time"`
}

// GetWeekly returns the weekly schedule.
func (s *ScheduleService) GetWeekly(ctx context.Context) (*models.WeeklySchedule, error) {
	schedule, err := s.repo.GetWeekly(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "weekly schedule not configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly schedule")
	}
	return schedule, nil
}

// UpdateWeekly replaces the weekly schedule configuration.
func (s *ScheduleService) UpdateWeekly(ctx context.Context, req UpdateWeeklyRequest) (*models.WeeklySchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	bounds := [4]string{req.MorningOpen, req.MorningClose, req.AfternoonOpen, req.AfternoonClose}
	minutes := [4]int{}
	for i, raw := range bounds {
		m, err := parseClock(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "times must be HH:MM")
		}
		minutes[i] = m
	}
	if minutes[0] >= minutes[1] || minutes[2] >= minutes[3] {
		return nil, appErrors.Clone(appErrors.ErrValidation, "shift close must be after open")
	}
	if minutes[1] > minutes[2] {
		return nil, appErrors.Clone(appErrors.ErrValidation, "afternoon shift must not overlap the morning shift")
	}

	weekdays := make(pq.Int64Array, 0, len(req.Weekdays))
	seen := make(map[int]struct{}, len(req.Weekdays))
	for _, d := range req.Weekdays {
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		weekdays = append(weekdays, int64(d))
	}

	schedule := &models.WeeklySchedule{
		MorningOpen:    req.MorningOpen,
		MorningClose:   req.MorningClose,
		AfternoonOpen:  req.AfternoonOpen,
		AfternoonClose: req.AfternoonClose,
		Weekdays:       weekdays,
	}
	if err := s.repo.UpdateWeekly(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update weekly schedule")
	}
	return schedule, nil
}

// ListSpecialDays returns every override.
func (s *ScheduleService) ListSpecialDays(ctx context.Context) ([]models.SpecialDay, error) {
	days, err := s.repo.ListSpecialDays(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list special days")
	}
	return days, nil
}

// CreateSpecialDay registers an override. One override per date.
func (s *ScheduleService) CreateSpecialDay(ctx context.Context, req CreateSpecialDayRequest) (*models.SpecialDay, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid special day payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}

	kind := models.SpecialDayKind(req.Kind)
	if kind == models.SpecialDayContinuous {
		if req.OpenTime == nil || req.CloseTime == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "continuous hours require open_time and close_time")
		}
		open, err1 := parseClock(*req.OpenTime)
		close, err2 := parseClock(*req.CloseTime)
		if err1 != nil || err2 != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "times must be HH:MM")
		}
		if open >= close {
			return nil, appErrors.Clone(appErrors.ErrValidation, "close_time must be after open_time")
		}
	}

	if _, err := s.repo.GetSpecialDayByDate(ctx, date); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "a special day already exists for this date")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check special day")
	}

	day := &models.SpecialDay{
		Date:        date,
		Kind:        kind,
		Description: req.Description,
	}
	if kind == models.SpecialDayContinuous {
		day.OpenTime = req.OpenTime
		day.CloseTime = req.CloseTime
	}
	if err := s.repo.CreateSpecialDay(ctx, day); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create special day")
	}
	return day, nil
}

// DeleteSpecialDay removes an override.
func (s *ScheduleService) DeleteSpecialDay(ctx context.Context, id string) error {
	if err := s.repo.DeleteSpecialDay(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete special day")
	}
	return nil
}
