package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/educmun/creche-api/internal/models"
	appErrors "github.com/educmun/creche-api/pkg/errors"
)

type transitionApplicantStore interface {
	Update(ctx context.Context, id string, update models.ApplicantUpdate) (*models.Applicant, error)
	BulkUpdate(ctx context.Context, ids []string, update models.ApplicantUpdate) error
}

type planReader interface {
	Entries() []models.PlanningEntry
	ClearSession(ctx context.Context) error
}

type cacheInvalidator interface {
	ClearByPattern(ctx context.Context, pattern string) error
}

// ExecutionReport summarises a successful commit.
type ExecutionReport struct {
	Operations int    `json:"operations"`
	Applicants int    `json:"applicants"`
	Message    string `json:"message"`
}

// remoteOp is one independent mutation against the persistence layer.
type remoteOp struct {
	label      string
	applicants int
	run        func(ctx context.Context) error
}

// TransitionExecutor turns the planning draft into the minimal set of remote
// mutations and dispatches them concurrently, best effort. No partial
// rollback is attempted; the capacity constraint lives in the database.
type TransitionExecutor struct {
	plan                planReader
	applicants          transitionApplicantStore
	audit               auditAppender
	cache               cacheInvalidator
	logger              *zap.Logger
	now                 func() time.Time
	defaultDeadlineDays int
}

// NewTransitionExecutor constructs the executor.
func NewTransitionExecutor(plan planReader, applicants transitionApplicantStore, audit auditAppender, cache cacheInvalidator, logger *zap.Logger, now func() time.Time, defaultDeadlineDays int) *TransitionExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	if defaultDeadlineDays <= 0 {
		defaultDeadlineDays = 7
	}
	return &TransitionExecutor{
		plan:                plan,
		applicants:          applicants,
		audit:               audit,
		cache:               cache,
		logger:              logger,
		now:                 now,
		defaultDeadlineDays: defaultDeadlineDays,
	}
}

// Execute validates the draft, computes the remote operations and runs them
// as one concurrent batch. On full success the draft is cleared and dependent
// read caches invalidated; on any failure the draft is left untouched so the
// operator can inspect and retry.
func (e *TransitionExecutor) Execute(ctx context.Context, actor string) (*ExecutionReport, error) {
	entries := e.plan.Entries()
	if entries == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "no planning session started")
	}

	if err := e.checkCompleteness(entries); err != nil {
		return nil, err
	}

	ops := e.buildOperations(entries, actor)
	if len(ops) == 0 {
		return &ExecutionReport{Message: "no changes to apply"}, nil
	}

	if err := e.dispatch(ctx, ops); err != nil {
		return nil, err
	}

	applicants := 0
	for _, op := range ops {
		applicants += op.applicants
	}

	e.appendAudit(ctx, &models.AuditEntry{
		ApplicantID: models.SystemApplicantID,
		Action:      models.AuditActionPlanExecute,
		Detail:      fmt.Sprintf("annual transition applied: %d operations, %d applicants", len(ops), applicants),
		Actor:       actor,
	})

	if err := e.plan.ClearSession(ctx); err != nil {
		e.logger.Warn("failed to clear planning session after execute", zap.Error(err))
	}
	if e.cache != nil {
		if err := e.cache.ClearByPattern(ctx, WaitlistCachePattern); err != nil {
			e.logger.Warn("failed to invalidate waitlist caches after execute", zap.Error(err))
		}
	}

	return &ExecutionReport{
		Operations: len(ops),
		Applicants: applicants,
		Message:    fmt.Sprintf("transition applied to %d applicants", applicants),
	}, nil
}

// checkCompleteness fails fast when any currently enrolled child still lacks
// a decision, or when a planned call-up names no seat to call the child up to.
// Nothing is dispatched in either case.
func (e *TransitionExecutor) checkCompleteness(entries []models.PlanningEntry) error {
	var missing, seatless []string
	for _, entry := range entries {
		if entry.Cohort == models.CohortInternalTransfer && entry.PlannedStatus == nil {
			missing = append(missing, entry.FullName)
		}
		if entry.PlannedStatus != nil && *entry.PlannedStatus == models.StatusCalledUp &&
			entry.Status != models.StatusCalledUp &&
			(entry.PlannedSeat == nil || !entry.PlannedSeat.Complete()) {
			seatless = append(seatless, entry.FullName)
		}
	}
	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("%d enrolled applicant(s) still lack a transition decision: %s",
				len(missing), truncatedNames(missing)))
	}
	if len(seatless) > 0 {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("%d planned call-up(s) name no target seat: %s",
				len(seatless), truncatedNames(seatless)))
	}
	return nil
}

func truncatedNames(names []string) string {
	shown := names
	if len(shown) > 3 {
		shown = shown[:3]
	}
	joined := strings.Join(shown, ", ")
	if len(names) > len(shown) {
		joined += ", ..."
	}
	return joined
}

func (e *TransitionExecutor) buildOperations(entries []models.PlanningEntry, actor string) []remoteOp {
	var ops []remoteOp
	reallocations := make(map[models.SeatAssignment][]string)

	for _, entry := range entries {
		if !e.isChanged(&entry) {
			continue
		}
		final := entry.FinalStatus()

		switch {
		case final == models.StatusWithdrawn:
			ops = append(ops, e.exitOp(entry, models.StatusWithdrawn, models.AuditActionWithdraw, actor))
		case final == models.StatusRefused:
			ops = append(ops, e.exitOp(entry, models.StatusRefused, models.AuditActionRefuse, actor))
		case final == models.StatusWaitlisted:
			ops = append(ops, e.requeueOp(entry, actor))
		case final == models.StatusCalledUp && entry.PlannedSeat != nil && entry.PlannedSeat.Complete():
			ops = append(ops, e.callUpOp(entry, actor))
		case final == models.StatusEnrolled && entry.PlannedSeat != nil && entry.PlannedSeat.Complete():
			// already enrolled, only the seat moves: batched per target seat
			key := *entry.PlannedSeat
			reallocations[key] = append(reallocations[key], entry.ApplicantID)
		}
	}

	for seat, ids := range reallocations {
		ops = append(ops, e.bulkReallocationOp(seat, ids, actor))
	}
	return ops
}

// isChanged applies the draft diff rule: a defined planned status different
// from the current one, or a seat change while the final status keeps the
// child in a seat-bearing state.
func (e *TransitionExecutor) isChanged(entry *models.PlanningEntry) bool {
	if entry.PlannedStatus != nil && *entry.PlannedStatus != entry.Status {
		return true
	}
	if entry.PlannedSeat == nil || entry.FinalStatus().IsExit() {
		return false
	}
	if entry.CurrentSeat == nil {
		return true
	}
	return entry.PlannedSeat.FacilityID != entry.CurrentSeat.FacilityID ||
		entry.PlannedSeat.ClassroomID != entry.CurrentSeat.ClassroomID
}

func (e *TransitionExecutor) exitOp(entry models.PlanningEntry, status models.ApplicantStatus, action string, actor string) remoteOp {
	update := models.ApplicantUpdate{
		Status:                         status,
		ClearSeat:                      true,
		ClearDeadline:                  true,
		ClearPenalty:                   true,
		ClearDesiredTransferFacilityID: true,
	}
	detail := justificationOr(entry, "annual cycle transition")
	id := entry.ApplicantID
	return remoteOp{
		label:      fmt.Sprintf("%s %s", strings.ToLower(action), id),
		applicants: 1,
		run: func(ctx context.Context) error {
			if _, err := e.applicants.Update(ctx, id, update); err != nil {
				return err
			}
			e.appendAudit(ctx, &models.AuditEntry{ApplicantID: id, Action: action, Detail: detail, Actor: actor})
			return nil
		},
	}
}

func (e *TransitionExecutor) requeueOp(entry models.PlanningEntry, actor string) remoteOp {
	penalty := e.now().UTC()
	update := models.ApplicantUpdate{
		Status:        models.StatusWaitlisted,
		ClearSeat:     true,
		ClearDeadline: true,
		Penalty:       &penalty,
	}
	detail := justificationOr(entry, "returned to the end of the queue for the next cycle")
	id := entry.ApplicantID
	return remoteOp{
		label:      fmt.Sprintf("requeue %s", id),
		applicants: 1,
		run: func(ctx context.Context) error {
			if _, err := e.applicants.Update(ctx, id, update); err != nil {
				return err
			}
			e.appendAudit(ctx, &models.AuditEntry{ApplicantID: id, Action: models.AuditActionEndOfQueue, Detail: detail, Actor: actor})
			return nil
		},
	}
}

func (e *TransitionExecutor) callUpOp(entry models.PlanningEntry, actor string) remoteOp {
	seat := *entry.PlannedSeat
	deadline := dateOnly(e.now().UTC()).AddDate(0, 0, e.defaultDeadlineDays)
	update := models.ApplicantUpdate{
		Status:                         models.StatusCalledUp,
		FacilityID:                     &seat.FacilityID,
		ClassroomID:                    &seat.ClassroomID,
		Deadline:                       &deadline,
		ClearPenalty:                   true,
		ClearDesiredTransferFacilityID: true,
	}
	detail := fmt.Sprintf("called up to %s / %s for the next cycle, response due %s",
		seat.FacilityName, seat.ClassroomName, deadline.Format("2006-01-02"))
	id := entry.ApplicantID
	return remoteOp{
		label:      fmt.Sprintf("call-up %s", id),
		applicants: 1,
		run: func(ctx context.Context) error {
			if _, err := e.applicants.Update(ctx, id, update); err != nil {
				return err
			}
			e.appendAudit(ctx, &models.AuditEntry{ApplicantID: id, Action: models.AuditActionCallUp, Detail: detail, Actor: actor})
			return nil
		},
	}
}

func (e *TransitionExecutor) bulkReallocationOp(seat models.SeatAssignment, ids []string, actor string) remoteOp {
	update := models.ApplicantUpdate{
		Status:      models.StatusEnrolled,
		FacilityID:  &seat.FacilityID,
		ClassroomID: &seat.ClassroomID,
	}
	detail := fmt.Sprintf("%d enrolled applicant(s) reallocated to %s / %s",
		len(ids), seat.FacilityName, seat.ClassroomName)
	return remoteOp{
		label:      fmt.Sprintf("reallocate %d to %s/%s", len(ids), seat.FacilityID, seat.ClassroomID),
		applicants: len(ids),
		run: func(ctx context.Context) error {
			if err := e.applicants.BulkUpdate(ctx, ids, update); err != nil {
				return err
			}
			e.appendAudit(ctx, &models.AuditEntry{
				ApplicantID: models.SystemApplicantID,
				Action:      models.AuditActionBulkReallocate,
				Detail:      detail,
				Actor:       actor,
			})
			return nil
		},
	}
}

// dispatch runs every operation concurrently and waits for all of them.
// Failures are aggregated; operations that already succeeded are not rolled
// back.
func (e *TransitionExecutor) dispatch(ctx context.Context, ops []remoteOp) error {
	var wg sync.WaitGroup
	errs := make([]error, len(ops))

	for i, op := range ops {
		wg.Add(1)
		go func(i int, op remoteOp) {
			defer wg.Done()
			if err := op.run(ctx); err != nil {
				e.logger.Error("transition operation failed", zap.String("operation", op.label), zap.Error(err))
				errs[i] = fmt.Errorf("%s: %w", op.label, err)
			}
		}(i, op)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status,
			"one or more transition operations failed; the draft was kept for retry")
	}
	return nil
}

func (e *TransitionExecutor) appendAudit(ctx context.Context, entry *models.AuditEntry) {
	if e.audit == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = e.now().UTC()
	}
	if err := e.audit.Append(ctx, entry); err != nil {
		e.logger.Warn("failed to append audit entry", zap.String("applicant_id", entry.ApplicantID), zap.Error(err))
	}
}

func justificationOr(entry models.PlanningEntry, fallback string) string {
	if entry.PlannedJustification != nil && strings.TrimSpace(*entry.PlannedJustification) != "" {
		return *entry.PlannedJustification
	}
	return fallback
}
