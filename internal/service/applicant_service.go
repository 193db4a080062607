package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/educmun/creche-api/internal/models"
	appErrors "github.com/educmun/creche-api/pkg/errors"
)

// WaitlistCacheKey is the redis key for the ranked waitlist read model.
// WaitlistCachePattern matches every waitlist-derived key for bulk
// invalidation after the annual transition rewrites many applicants at once.
const (
	WaitlistCacheKey     = "waitlist:ranked"
	WaitlistCachePattern = "waitlist:*"
)

type applicantRepository interface {
	List(ctx context.Context, filter models.ApplicantFilter) ([]models.Applicant, int, error)
	ListByStatuses(ctx context.Context, statuses ...models.ApplicantStatus) ([]models.Applicant, error)
	FindByID(ctx context.Context, id string) (*models.Applicant, error)
	Create(ctx context.Context, applicant *models.Applicant) error
	Update(ctx context.Context, id string, update models.ApplicantUpdate) (*models.Applicant, error)
}

type seatReader interface {
	Find(ctx context.Context, facilityID, classroomID string) (*models.Seat, error)
}

type auditAppender interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
}

type readCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Clear(ctx context.Context, key string) error
}

// RegisterApplicantRequest describes a waitlist registration payload.
type RegisterApplicantRequest struct {
	FullName            string  `json:"full_name" validate:"required"`
	BirthDate           string  `json:"birth_date" validate:"required,datetime=2006-01-02"`
	SocialProgram       bool    `json:"social_program"`
	PreferredFacilityID *string `json:"preferred_facility_id"`
	SecondaryFacilityID *string `json:"secondary_facility_id"`
	AcceptsAnyFacility  bool    `json:"accepts_any_facility"`
	GuardianName        string  `json:"guardian_name" validate:"required"`
	GuardianPhone       string  `json:"guardian_phone" validate:"required"`
	GuardianEmail       string  `json:"guardian_email" validate:"omitempty,email"`
	Address             string  `json:"address"`
	Notes               string  `json:"notes"`
}

// CallUpRequest describes a convocation payload.
type CallUpRequest struct {
	FacilityID   string `json:"facility_id" validate:"required"`
	ClassroomID  string `json:"classroom_id" validate:"required"`
	DeadlineDays int    `json:"deadline_days" validate:"omitempty,min=1,max=60"`
}

// JustifiedRequest carries the mandatory justification for refusal,
// withdrawal and end-of-queue actions.
type JustifiedRequest struct {
	Justification string `json:"justification" validate:"required"`
}

// TransferRequestPayload names the desired destination facility.
type TransferRequestPayload struct {
	DesiredFacilityID string `json:"desired_facility_id" validate:"required"`
}

// WaitlistView is the ranked read model: numbered waitlist plus the called-up
// section ordered by nearest deadline.
type WaitlistView struct {
	Ranked   []models.RankedApplicant `json:"ranked"`
	CalledUp []models.Applicant       `json:"called_up"`
}

// ApplicantDetail enriches an applicant with derived display fields.
type ApplicantDetail struct {
	models.Applicant
	AgeCohort          AgeCohort           `json:"age_cohort"`
	AgeInMonths        int                 `json:"age_in_months"`
	DeadlineEvaluation *DeadlineEvaluation `json:"deadline_evaluation,omitempty"`
}

// ApplicantService orchestrates the enrollment lifecycle.
type ApplicantService struct {
	repo                applicantRepository
	seats               seatReader
	audit               auditAppender
	cache               readCache
	machine             *StatusMachine
	ranker              *QueueRanker
	deadlines           *DeadlineMonitor
	ages                *AgeEligibilityCalculator
	validator           *validator.Validate
	logger              *zap.Logger
	now                 func() time.Time
	cacheTTL            time.Duration
	defaultDeadlineDays int
}

// NewApplicantService constructs the service. Nil validator, logger and clock
// fall back to sane defaults.
func NewApplicantService(
	repo applicantRepository,
	seats seatReader,
	audit auditAppender,
	cache readCache,
	machine *StatusMachine,
	ranker *QueueRanker,
	deadlines *DeadlineMonitor,
	ages *AgeEligibilityCalculator,
	validate *validator.Validate,
	logger *zap.Logger,
	now func() time.Time,
	cacheTTL time.Duration,
	defaultDeadlineDays int,
) *ApplicantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	if defaultDeadlineDays <= 0 {
		defaultDeadlineDays = 7
	}
	return &ApplicantService{
		repo:                repo,
		seats:               seats,
		audit:               audit,
		cache:               cache,
		machine:             machine,
		ranker:              ranker,
		deadlines:           deadlines,
		ages:                ages,
		validator:           validate,
		logger:              logger,
		now:                 now,
		cacheTTL:            cacheTTL,
		defaultDeadlineDays: defaultDeadlineDays,
	}
}

// List returns applicants with pagination metadata.
func (s *ApplicantService) List(ctx context.Context, filter models.ApplicantFilter) ([]models.Applicant, *models.Pagination, error) {
	applicants, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list applicants")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return applicants, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one applicant with derived cohort and deadline fields.
func (s *ApplicantService) Get(ctx context.Context, id string) (*ApplicantDetail, error) {
	applicant, err := s.loadApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ApplicantDetail{
		Applicant:          *applicant,
		AgeCohort:          s.ages.CohortFor(applicant.BirthDate, 0),
		AgeInMonths:        s.ages.AgeInMonths(applicant.BirthDate),
		DeadlineEvaluation: s.deadlines.EvaluateApplicant(applicant),
	}, nil
}

// Register puts a new child on the waitlist. The minimum-age gate does not
// apply here; it only blocks call-up and confirmation.
func (s *ApplicantService) Register(ctx context.Context, req RegisterApplicantRequest, actor string) (*models.Applicant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "birth_date must be YYYY-MM-DD")
	}
	applicant := &models.Applicant{
		FullName:            req.FullName,
		BirthDate:           birthDate,
		SocialProgram:       req.SocialProgram,
		PreferredFacilityID: req.PreferredFacilityID,
		SecondaryFacilityID: req.SecondaryFacilityID,
		AcceptsAnyFacility:  req.AcceptsAnyFacility,
		GuardianName:        req.GuardianName,
		GuardianPhone:       req.GuardianPhone,
		GuardianEmail:       req.GuardianEmail,
		Address:             req.Address,
		Notes:               req.Notes,
		Status:              models.StatusWaitlisted,
		RegisteredAt:        s.now().UTC(),
	}
	if err := s.repo.Create(ctx, applicant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to register applicant")
	}
	s.emitAudit(ctx, &models.AuditEntry{
		ApplicantID: applicant.ID,
		Action:      models.AuditActionRegister,
		Detail:      "registered on the waitlist",
		Actor:       actor,
	})
	s.invalidateWaitlist(ctx)
	return applicant, nil
}

// Waitlist builds the ranked view, serving it from cache when fresh.
func (s *ApplicantService) Waitlist(ctx context.Context) (*WaitlistView, error) {
	var cached WaitlistView
	if s.cache != nil {
		if err := s.cache.Get(ctx, WaitlistCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	applicants, err := s.repo.ListByStatuses(ctx, models.StatusWaitlisted, models.StatusCalledUp)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load waitlist")
	}
	view := &WaitlistView{
		Ranked:   s.ranker.Rank(applicants),
		CalledUp: s.ranker.CalledUpByDeadline(applicants),
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, WaitlistCacheKey, view, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache waitlist view", zap.Error(err))
		}
	}
	return view, nil
}

// CallUp offers a specific seat to a waitlisted (or transfer-requested)
// applicant and starts the response deadline clock.
func (s *ApplicantService) CallUp(ctx context.Context, id string, req CallUpRequest, actor string) (*models.Applicant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid call-up payload")
	}
	applicant, err := s.loadApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.ages.MeetsMinimumAge(applicant.BirthDate) {
		return nil, appErrors.ErrAgeGate
	}
	seat, err := s.seats.Find(ctx, req.FacilityID, req.ClassroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "seat not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load seat")
	}
	days := req.DeadlineDays
	if days <= 0 {
		days = s.defaultDeadlineDays
	}
	deadline := dateOnly(s.now().UTC()).AddDate(0, 0, days)

	return s.transition(ctx, applicant, models.StatusCalledUp, TransitionInput{
		Seat: &models.SeatAssignment{
			FacilityID:    seat.FacilityID,
			ClassroomID:   seat.ClassroomID,
			FacilityName:  seat.FacilityName,
			ClassroomName: seat.ClassroomName,
		},
		Deadline: &deadline,
		Actor:    actor,
	})
}

// Confirm matriculates a called-up applicant into the offered seat.
func (s *ApplicantService) Confirm(ctx context.Context, id string, actor string) (*models.Applicant, error) {
	applicant, err := s.loadApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.ages.MeetsMinimumAge(applicant.BirthDate) {
		return nil, appErrors.ErrAgeGate
	}
	return s.transition(ctx, applicant, models.StatusEnrolled, TransitionInput{Actor: actor})
}

// Refuse records a declined convocation.
func (s *ApplicantService) Refuse(ctx context.Context, id string, req JustifiedRequest, actor string) (*models.Applicant, error) {
	return s.justifiedTransition(ctx, id, models.StatusRefused, req, actor)
}

// Requeue sends an unresponsive called-up applicant to the end of the queue,
// stamping the penalty that reorders them behind everyone registered so far.
func (s *ApplicantService) Requeue(ctx context.Context, id string, req JustifiedRequest, actor string) (*models.Applicant, error) {
	return s.justifiedTransition(ctx, id, models.StatusWaitlisted, req, actor)
}

// Withdraw removes the applicant from the program.
func (s *ApplicantService) Withdraw(ctx context.Context, id string, req JustifiedRequest, actor string) (*models.Applicant, error) {
	return s.justifiedTransition(ctx, id, models.StatusWithdrawn, req, actor)
}

// RequestTransfer flags an enrolled child for relocation to another facility.
func (s *ApplicantService) RequestTransfer(ctx context.Context, id string, req TransferRequestPayload, actor string) (*models.Applicant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}
	applicant, err := s.loadApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, applicant, models.StatusTransferRequested, TransitionInput{
		DesiredFacilityID: &req.DesiredFacilityID,
		Actor:             actor,
	})
}

// Reactivate returns a withdrawn or refused applicant to the waitlist with no
// penalty.
func (s *ApplicantService) Reactivate(ctx context.Context, id string, actor string) (*models.Applicant, error) {
	applicant, err := s.loadApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, applicant, models.StatusWaitlisted, TransitionInput{Actor: actor})
}

func (s *ApplicantService) justifiedTransition(ctx context.Context, id string, to models.ApplicantStatus, req JustifiedRequest, actor string) (*models.Applicant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "a justification is required")
	}
	applicant, err := s.loadApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, applicant, to, TransitionInput{Justification: req.Justification, Actor: actor})
}

func (s *ApplicantService) transition(ctx context.Context, applicant *models.Applicant, to models.ApplicantStatus, in TransitionInput) (*models.Applicant, error) {
	result, err := s.machine.Apply(applicant, to, in)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, applicant.ID, result.Update)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status,
			fmt.Sprintf("failed to persist %s -> %s", applicant.Status, to))
	}
	s.emitAudit(ctx, &result.Audit)
	s.invalidateWaitlist(ctx)
	return updated, nil
}

func (s *ApplicantService) loadApplicant(ctx context.Context, id string) (*models.Applicant, error) {
	applicant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "applicant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load applicant")
	}
	return applicant, nil
}

func (s *ApplicantService) emitAudit(ctx context.Context, entry *models.AuditEntry) {
	if s.audit == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append audit entry", zap.String("applicant_id", entry.ApplicantID), zap.Error(err))
	}
}

func (s *ApplicantService) invalidateWaitlist(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(ctx, WaitlistCacheKey); err != nil {
		s.logger.Warn("failed to invalidate waitlist cache", zap.Error(err))
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
