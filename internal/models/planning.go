package models

import "time"

// TransitionCohort buckets applicants for the annual transition session.
type TransitionCohort string

const (
	// CohortInternalTransfer holds currently enrolled children that must be
	// reassigned (or exited) for the next cycle.
	CohortInternalTransfer TransitionCohort = "INTERNAL_TRANSFER"
	// CohortRequeueReclassified holds waitlisted and called-up children that
	// re-enter the queue under their new age band.
	CohortRequeueReclassified TransitionCohort = "REQUEUE_RECLASSIFIED"
	// CohortFinalExit holds withdrawn and refused children kept for the record.
	CohortFinalExit TransitionCohort = "FINAL_EXIT"
)

// CohortFor classifies a lifecycle status into its transition cohort.
func CohortFor(status ApplicantStatus) TransitionCohort {
	switch status {
	case StatusEnrolled:
		return CohortInternalTransfer
	case StatusWithdrawn, StatusRefused:
		return CohortFinalExit
	default:
		return CohortRequeueReclassified
	}
}

// PlanningEntry is the operator's working view of one applicant during the
// annual transition. Nil planned fields mean "no change planned yet". Entries
// live only in the planning session and its draft cache; they reach storage
// exclusively through the transition executor.
type PlanningEntry struct {
	ApplicantID string           `json:"applicant_id"`
	FullName    string           `json:"full_name"`
	BirthDate   time.Time        `json:"birth_date"`
	Status      ApplicantStatus  `json:"status"`
	CurrentSeat *SeatAssignment  `json:"current_seat,omitempty"`
	Cohort      TransitionCohort `json:"cohort"`
	AgeCohort   string           `json:"age_cohort"`

	PlannedStatus        *ApplicantStatus `json:"planned_status,omitempty"`
	PlannedSeat          *SeatAssignment  `json:"planned_seat,omitempty"`
	PlannedJustification *string          `json:"planned_justification,omitempty"`
}

// FinalStatus is the status the entry would hold after execution: the planned
// status when set, otherwise the current one.
func (e *PlanningEntry) FinalStatus() ApplicantStatus {
	if e.PlannedStatus != nil {
		return *e.PlannedStatus
	}
	return e.Status
}

// PlanEquals compares only the operator-editable plan fields, the fields that
// decide whether the draft diverges from its baseline.
func (e *PlanningEntry) PlanEquals(other *PlanningEntry) bool {
	if e.ApplicantID != other.ApplicantID {
		return false
	}
	if !equalStatusPtr(e.PlannedStatus, other.PlannedStatus) {
		return false
	}
	if !equalSeatPtr(e.PlannedSeat, other.PlannedSeat) {
		return false
	}
	return equalStringPtr(e.PlannedJustification, other.PlannedJustification)
}

func equalStatusPtr(a, b *ApplicantStatus) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalSeatPtr(a, b *SeatAssignment) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
