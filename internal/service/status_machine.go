package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/educmun/creche-api/internal/models"
	appErrors "github.com/educmun/creche-api/pkg/errors"
)

// TransitionInput carries the operator-supplied parts of a status change.
type TransitionInput struct {
	// Seat is the target seat for call-ups.
	Seat *models.SeatAssignment
	// Deadline is the convocation response deadline for call-ups (date-only).
	Deadline *time.Time
	// DesiredFacilityID is the wished destination for transfer requests.
	DesiredFacilityID *string
	// Justification is mandatory for refusal, withdrawal and end-of-queue.
	Justification string
	Actor         string
}

// TransitionResult is the outcome of a legal transition: the field set to
// persist and the single audit entry describing it.
type TransitionResult struct {
	Update models.ApplicantUpdate
	Audit  models.AuditEntry
}

type transitionKey struct {
	from models.ApplicantStatus
	to   models.ApplicantStatus
}

type transitionEffect func(m *StatusMachine, a *models.Applicant, in TransitionInput) (models.ApplicantUpdate, string, string, error)

// StatusMachine owns the allowed status graph and all gated-field clearing.
// Every field that only exists under one status is set and cleared here and
// nowhere else.
type StatusMachine struct {
	now         func() time.Time
	transitions map[transitionKey]transitionEffect
}

// NewStatusMachine builds the machine. A nil clock defaults to time.Now.
func NewStatusMachine(now func() time.Time) *StatusMachine {
	if now == nil {
		now = time.Now
	}
	m := &StatusMachine{now: now}
	m.transitions = map[transitionKey]transitionEffect{
		{models.StatusWaitlisted, models.StatusCalledUp}:          callUp,
		{models.StatusTransferRequested, models.StatusCalledUp}:   callUp,
		{models.StatusCalledUp, models.StatusEnrolled}:            confirmEnrollment,
		{models.StatusCalledUp, models.StatusRefused}:             refuse,
		{models.StatusCalledUp, models.StatusWaitlisted}:          endOfQueue,
		{models.StatusCalledUp, models.StatusWithdrawn}:           withdraw,
		{models.StatusEnrolled, models.StatusWithdrawn}:           withdraw,
		{models.StatusTransferRequested, models.StatusWithdrawn}:  withdraw,
		{models.StatusEnrolled, models.StatusTransferRequested}:   requestTransfer,
		{models.StatusWithdrawn, models.StatusWaitlisted}:         reactivate,
		{models.StatusRefused, models.StatusWaitlisted}:           reactivate,
	}
	return m
}

// CanTransition reports whether the pair is part of the declared graph.
func (m *StatusMachine) CanTransition(from, to models.ApplicantStatus) bool {
	_, ok := m.transitions[transitionKey{from, to}]
	return ok
}

// Apply validates and computes a transition for the applicant. On success it
// returns the update field set and exactly one audit entry; the applicant
// itself is not modified.
func (m *StatusMachine) Apply(a *models.Applicant, to models.ApplicantStatus, in TransitionInput) (*TransitionResult, error) {
	effect, ok := m.transitions[transitionKey{a.Status, to}]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConstraintViolation,
			fmt.Sprintf("transition %s -> %s is not allowed", a.Status, to))
	}

	update, action, autoDetail, err := effect(m, a, in)
	if err != nil {
		return nil, err
	}
	update.Status = to

	detail := strings.TrimSpace(in.Justification)
	if detail == "" {
		detail = autoDetail
	}

	return &TransitionResult{
		Update: update,
		Audit: models.AuditEntry{
			ApplicantID: a.ID,
			Action:      action,
			Detail:      detail,
			Actor:       in.Actor,
			CreatedAt:   m.now().UTC(),
		},
	}, nil
}

func callUp(m *StatusMachine, a *models.Applicant, in TransitionInput) (models.ApplicantUpdate, string, string, error) {
	if in.Seat == nil || !in.Seat.Complete() {
		return models.ApplicantUpdate{}, "", "", appErrors.Clone(appErrors.ErrValidation, "call-up requires a fully specified target seat")
	}
	if in.Deadline == nil {
		return models.ApplicantUpdate{}, "", "", appErrors.Clone(appErrors.ErrValidation, "call-up requires a response deadline")
	}
	detail := fmt.Sprintf("called up to %s / %s, response due %s",
		in.Seat.FacilityName, in.Seat.ClassroomName, in.Deadline.Format("2006-01-02"))
	if a.Status == models.StatusTransferRequested && a.CurrentFacilityID != nil {
		// keep the prior seat visible in the trail for transfer call-ups
		detail = fmt.Sprintf("%s (transfer from facility %s)", detail, *a.CurrentFacilityID)
	}
	return models.ApplicantUpdate{
		FacilityID:                     &in.Seat.FacilityID,
		ClassroomID:                    &in.Seat.ClassroomID,
		Deadline:                       in.Deadline,
		ClearPenalty:                   true,
		ClearDesiredTransferFacilityID: true,
	}, models.AuditActionCallUp, detail, nil
}

func confirmEnrollment(m *StatusMachine, a *models.Applicant, in TransitionInput) (models.ApplicantUpdate, string, string, error) {
	if a.CurrentFacilityID == nil || a.CurrentClassroomID == nil {
		return models.ApplicantUpdate{}, "", "", appErrors.Clone(appErrors.ErrValidation, "enrollment requires a current seat")
	}
	detail := fmt.Sprintf("enrollment confirmed at facility %s", *a.CurrentFacilityID)
	return models.ApplicantUpdate{
		ClearDeadline: true,
		ClearPenalty:  true,
	}, models.AuditActionEnroll, detail, nil
}

func refuse(m *StatusMachine, a *models.Applicant, in TransitionInput) (models.ApplicantUpdate, string, string, error) {
	if strings.TrimSpace(in.Justification) == "" {
		return models.ApplicantUpdate{}, "", "", appErrors.Clone(appErrors.ErrValidation, "refusal requires a justification")
	}
	return models.ApplicantUpdate{
		ClearSeat:     true,
		ClearDeadline: true,
		ClearPenalty:  true,
	}, models.AuditActionRefuse, "", nil
}

func endOfQueue(m *StatusMachine, a *models.Applicant, in TransitionInput) (models.ApplicantUpdate, string, string, error) {
	if strings.TrimSpace(in.Justification) == "" {
		return models.ApplicantUpdate{}, "", "", appErrors.Clone(appErrors.ErrValidation, "returning to the end of the queue requires a justification")
	}
	penalty := m.now().UTC()
	return models.ApplicantUpdate{
		ClearSeat:     true,
		ClearDeadline: true,
		Penalty:       &penalty,
	}, models.AuditActionEndOfQueue, "", nil
}

func withdraw(m *StatusMachine, a *models.Applicant, in TransitionInput) (models.ApplicantUpdate, string, string, error) {
	if strings.TrimSpace(in.Justification) == "" {
		return models.ApplicantUpdate{}, "", "", appErrors.Clone(appErrors.ErrValidation, "withdrawal requires a justification")
	}
	return models.ApplicantUpdate{
		ClearSeat:                      true,
		ClearDeadline:                  true,
		ClearPenalty:                   true,
		ClearDesiredTransferFacilityID: true,
	}, models.AuditActionWithdraw, "", nil
}

func requestTransfer(m *StatusMachine, a *models.Applicant, in TransitionInput) (models.ApplicantUpdate, string, string, error) {
	detail := "transfer requested"
	if in.DesiredFacilityID != nil {
		detail = fmt.Sprintf("transfer requested to facility %s", *in.DesiredFacilityID)
	}
	// current seat is retained until a new one is assigned
	return models.ApplicantUpdate{
		DesiredTransferFacilityID: in.DesiredFacilityID,
	}, models.AuditActionTransferRequest, detail, nil
}

func reactivate(m *StatusMachine, a *models.Applicant, in TransitionInput) (models.ApplicantUpdate, string, string, error) {
	// manual reactivation carries no penalty
	return models.ApplicantUpdate{
		ClearSeat:                      true,
		ClearDeadline:                  true,
		ClearPenalty:                   true,
		ClearDesiredTransferFacilityID: true,
	}, models.AuditActionReactivate, "returned to the waitlist", nil
}
