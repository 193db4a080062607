package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/educmun/creche-api/internal/models"
	appErrors "github.com/educmun/creche-api/pkg/errors"
)

type planningApplicantLister interface {
	ListByStatuses(ctx context.Context, statuses ...models.ApplicantStatus) ([]models.Applicant, error)
}

type draftCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Clear(ctx context.Context, key string) error
}

// PlanningSession is the classified entry set handed to the operator.
type PlanningSession struct {
	TargetYear     int                    `json:"target_year"`
	Entries        []models.PlanningEntry `json:"entries"`
	RestoredDraft  bool                   `json:"restored_draft"`
	UnsavedChanges bool                   `json:"unsaved_changes"`
}

// PlanningService holds the working draft of the annual transition. The
// draft lives in memory for the single active operator and is mirrored to an
// injected cache so it survives a restart; cache freshness is validated by
// exact id-set comparison on load.
type PlanningService struct {
	applicants planningApplicantLister
	drafts     draftCache
	ages       *AgeEligibilityCalculator
	keyPrefix  string
	draftTTL   time.Duration
	logger     *zap.Logger

	mu         sync.Mutex
	targetYear int
	entries    []models.PlanningEntry
	baseline   []models.PlanningEntry
}

// NewPlanningService constructs the service. The cache and its key prefix are
// injected so sessions stay isolated and testable.
func NewPlanningService(applicants planningApplicantLister, drafts draftCache, ages *AgeEligibilityCalculator, keyPrefix string, draftTTL time.Duration, logger *zap.Logger) *PlanningService {
	if keyPrefix == "" {
		keyPrefix = "planning:draft"
	}
	if draftTTL <= 0 {
		draftTTL = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanningService{
		applicants: applicants,
		drafts:     drafts,
		ages:       ages,
		keyPrefix:  keyPrefix,
		draftTTL:   draftTTL,
		logger:     logger,
	}
}

// StartSession loads and classifies every applicant relevant to the annual
// transition. A previously saved draft replaces the fresh classification only
// when its id-set matches the loaded cohort exactly; any mismatch discards
// the stale cache entry silently.
func (s *PlanningService) StartSession(ctx context.Context, targetYear int) (*PlanningSession, error) {
	if targetYear <= 0 {
		targetYear = time.Now().Year() + 1
	}

	applicants, err := s.applicants.ListByStatuses(ctx,
		models.StatusEnrolled, models.StatusWaitlisted, models.StatusCalledUp,
		models.StatusWithdrawn, models.StatusRefused)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load applicants for planning")
	}

	fresh := make([]models.PlanningEntry, len(applicants))
	for i, a := range applicants {
		entry := models.PlanningEntry{
			ApplicantID: a.ID,
			FullName:    a.FullName,
			BirthDate:   a.BirthDate,
			Status:      a.Status,
			Cohort:      models.CohortFor(a.Status),
			AgeCohort:   string(s.ages.CohortFor(a.BirthDate, targetYear)),
		}
		if a.CurrentFacilityID != nil && a.CurrentClassroomID != nil {
			entry.CurrentSeat = &models.SeatAssignment{
				FacilityID:  *a.CurrentFacilityID,
				ClassroomID: *a.CurrentClassroomID,
			}
		}
		fresh[i] = entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.targetYear = targetYear
	restored := false

	var saved []models.PlanningEntry
	key := s.draftKey(targetYear)
	if err := s.drafts.Get(ctx, key, &saved); err == nil {
		if sameIDSet(fresh, saved) {
			s.entries = saved
			restored = true
		} else {
			// stale draft from an older cohort snapshot
			s.logger.Info("discarding stale planning draft", zap.String("key", key))
			if err := s.drafts.Clear(ctx, key); err != nil {
				s.logger.Warn("failed to clear stale planning draft", zap.Error(err))
			}
		}
	} else if !isCacheMiss(err) {
		s.logger.Warn("failed to read planning draft cache", zap.Error(err))
	}

	if !restored {
		s.entries = fresh
	}
	s.baseline = cloneEntries(s.entries)

	return &PlanningSession{
		TargetYear:     targetYear,
		Entries:        cloneEntries(s.entries),
		RestoredDraft:  restored,
		UnsavedChanges: false,
	}, nil
}

// Session returns the current draft state.
func (s *PlanningService) Session() (*PlanningSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "no planning session started")
	}
	return &PlanningSession{
		TargetYear:     s.targetYear,
		Entries:        cloneEntries(s.entries),
		UnsavedChanges: s.hasUnsavedChangesLocked(),
	}, nil
}

// SetPlannedStatus records the intended next-cycle status for one applicant.
// Exit statuses drop any planned seat.
func (s *PlanningService) SetPlannedStatus(ctx context.Context, applicantID string, status models.ApplicantStatus, justification string) error {
	return s.BulkSetPlannedStatus(ctx, []string{applicantID}, status, justification)
}

// BulkSetPlannedStatus applies the same planned status to a set of entries in
// one pass.
func (s *PlanningService) BulkSetPlannedStatus(ctx context.Context, applicantIDs []string, status models.ApplicantStatus, justification string) error {
	if !status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", status))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		return appErrors.Clone(appErrors.ErrConflict, "no planning session started")
	}
	targets, err := s.resolveLocked(applicantIDs)
	if err != nil {
		return err
	}
	for _, entry := range targets {
		st := status
		entry.PlannedStatus = &st
		if justification != "" {
			j := justification
			entry.PlannedJustification = &j
		} else {
			entry.PlannedJustification = nil
		}
		if status.IsExit() {
			entry.PlannedSeat = nil
		}
	}
	return s.persistDraftLocked(ctx)
}

// SetPlannedSeat records the intended seat for one applicant. Unless the
// child is already enrolled (pure reallocation) the planned status becomes
// CALLED_UP. Any planned justification is cleared.
func (s *PlanningService) SetPlannedSeat(ctx context.Context, applicantID string, seat models.SeatAssignment) error {
	return s.BulkSetPlannedSeat(ctx, []string{applicantID}, seat)
}

// BulkSetPlannedSeat applies the same planned seat to a set of entries in one
// pass.
func (s *PlanningService) BulkSetPlannedSeat(ctx context.Context, applicantIDs []string, seat models.SeatAssignment) error {
	if !seat.Complete() {
		return appErrors.Clone(appErrors.ErrValidation, "planned seat requires facility and classroom ids and names")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		return appErrors.Clone(appErrors.ErrConflict, "no planning session started")
	}
	targets, err := s.resolveLocked(applicantIDs)
	if err != nil {
		return err
	}
	for _, entry := range targets {
		seatCopy := seat
		entry.PlannedSeat = &seatCopy
		status := models.StatusCalledUp
		if entry.Status == models.StatusEnrolled {
			status = models.StatusEnrolled
		}
		entry.PlannedStatus = &status
		entry.PlannedJustification = nil
	}
	return s.persistDraftLocked(ctx)
}

// HasUnsavedChanges reports whether the draft diverges from the last-saved
// baseline.
func (s *PlanningService) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasUnsavedChangesLocked()
}

// Save snapshots the current draft as the new baseline and persists it.
func (s *PlanningService) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		return appErrors.Clone(appErrors.ErrConflict, "no planning session started")
	}
	s.baseline = cloneEntries(s.entries)
	return s.persistDraftLocked(ctx)
}

// Discard reverts the draft to the last-saved baseline.
func (s *PlanningService) Discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		return appErrors.Clone(appErrors.ErrConflict, "no planning session started")
	}
	s.entries = cloneEntries(s.baseline)
	return s.persistDraftLocked(ctx)
}

// Entries returns a copy of the current draft for the executor.
func (s *PlanningService) Entries() []models.PlanningEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.entries)
}

// ClearSession drops the draft, the baseline and the cached copy. Called by
// the executor after a fully successful commit.
func (s *PlanningService) ClearSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.draftKey(s.targetYear)
	s.entries = nil
	s.baseline = nil
	if err := s.drafts.Clear(ctx, key); err != nil {
		s.logger.Warn("failed to clear planning draft cache", zap.Error(err))
	}
	return nil
}

func (s *PlanningService) hasUnsavedChangesLocked() bool {
	if len(s.entries) != len(s.baseline) {
		return true
	}
	for i := range s.entries {
		if !s.entries[i].PlanEquals(&s.baseline[i]) {
			return true
		}
	}
	return false
}

func (s *PlanningService) findLocked(applicantID string) *models.PlanningEntry {
	for i := range s.entries {
		if s.entries[i].ApplicantID == applicantID {
			return &s.entries[i]
		}
	}
	return nil
}

// resolveLocked maps every id to its session entry before anything is
// mutated, so an unknown id rejects the whole batch.
func (s *PlanningService) resolveLocked(applicantIDs []string) ([]*models.PlanningEntry, error) {
	targets := make([]*models.PlanningEntry, 0, len(applicantIDs))
	for _, id := range applicantIDs {
		entry := s.findLocked(id)
		if entry == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("applicant %s is not part of the planning session", id))
		}
		targets = append(targets, entry)
	}
	return targets, nil
}

func (s *PlanningService) persistDraftLocked(ctx context.Context) error {
	key := s.draftKey(s.targetYear)
	if err := s.drafts.Set(ctx, key, s.entries, s.draftTTL); err != nil {
		// the in-memory draft stays authoritative; a failed mirror only
		// costs restart durability
		s.logger.Warn("failed to persist planning draft", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (s *PlanningService) draftKey(targetYear int) string {
	return fmt.Sprintf("%s:%d", s.keyPrefix, targetYear)
}

func sameIDSet(a, b []models.PlanningEntry) bool {
	if len(a) != len(b) {
		return false
	}
	ids := make(map[string]struct{}, len(a))
	for _, e := range a {
		ids[e.ApplicantID] = struct{}{}
	}
	for _, e := range b {
		if _, ok := ids[e.ApplicantID]; !ok {
			return false
		}
	}
	return true
}

func cloneEntries(entries []models.PlanningEntry) []models.PlanningEntry {
	if entries == nil {
		return nil
	}
	out := make([]models.PlanningEntry, len(entries))
	for i, e := range entries {
		out[i] = e
		if e.CurrentSeat != nil {
			seat := *e.CurrentSeat
			out[i].CurrentSeat = &seat
		}
		if e.PlannedStatus != nil {
			st := *e.PlannedStatus
			out[i].PlannedStatus = &st
		}
		if e.PlannedSeat != nil {
			seat := *e.PlannedSeat
			out[i].PlannedSeat = &seat
		}
		if e.PlannedJustification != nil {
			j := *e.PlannedJustification
			out[i].PlannedJustification = &j
		}
	}
	return out
}

func isCacheMiss(err error) bool {
	appErr := appErrors.FromError(err)
	return appErr != nil && appErr.Code == appErrors.ErrCacheMiss.Code
}
