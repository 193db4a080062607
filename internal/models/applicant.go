package models

import "time"

// ApplicantStatus enumerates the enrollment lifecycle states.
type ApplicantStatus string

const (
	StatusWaitlisted        ApplicantStatus = "WAITLISTED"
	StatusCalledUp          ApplicantStatus = "CALLED_UP"
	StatusEnrolled          ApplicantStatus = "ENROLLED"
	StatusWithdrawn         ApplicantStatus = "WITHDRAWN"
	StatusRefused           ApplicantStatus = "REFUSED"
	StatusTransferRequested ApplicantStatus = "TRANSFER_REQUESTED"
)

// IsExit reports whether the status removes the applicant from an active seat
// or queue slot.
func (s ApplicantStatus) IsExit() bool {
	return s == StatusWithdrawn || s == StatusRefused
}

// Valid reports whether the status is one of the declared lifecycle states.
func (s ApplicantStatus) Valid() bool {
	switch s {
	case StatusWaitlisted, StatusCalledUp, StatusEnrolled, StatusWithdrawn, StatusRefused, StatusTransferRequested:
		return true
	}
	return false
}

// Applicant is one child's enrollment record. Fields gated to a status
// (deadline, current seat, desired transfer facility) are nil outside it;
// the status machine is the only writer of those fields.
type Applicant struct {
	ID                  string          `db:"id" json:"id"`
	FullName            string          `db:"full_name" json:"full_name"`
	BirthDate           time.Time       `db:"birth_date" json:"birth_date"`
	SocialProgram       bool            `db:"social_program" json:"social_program"`
	PreferredFacilityID *string         `db:"preferred_facility_id" json:"preferred_facility_id,omitempty"`
	SecondaryFacilityID *string         `db:"secondary_facility_id" json:"secondary_facility_id,omitempty"`
	AcceptsAnyFacility  bool            `db:"accepts_any_facility" json:"accepts_any_facility"`
	GuardianName        string          `db:"guardian_name" json:"guardian_name"`
	GuardianPhone       string          `db:"guardian_phone" json:"guardian_phone"`
	GuardianEmail       string          `db:"guardian_email" json:"guardian_email"`
	Address             string          `db:"address" json:"address"`
	Notes               string          `db:"notes" json:"notes"`
	Status              ApplicantStatus `db:"status" json:"status"`

	CurrentFacilityID         *string    `db:"current_facility_id" json:"current_facility_id,omitempty"`
	CurrentClassroomID        *string    `db:"current_classroom_id" json:"current_classroom_id,omitempty"`
	ConvocationDeadline       *time.Time `db:"convocation_deadline" json:"convocation_deadline,omitempty"`
	PenaltyTimestamp          *time.Time `db:"penalty_timestamp" json:"penalty_timestamp,omitempty"`
	DesiredTransferFacilityID *string    `db:"desired_transfer_facility_id" json:"desired_transfer_facility_id,omitempty"`

	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// EffectiveDate is the ranking date: the penalty timestamp when present,
// otherwise the original registration date.
func (a *Applicant) EffectiveDate() time.Time {
	if a.PenaltyTimestamp != nil {
		return *a.PenaltyTimestamp
	}
	return a.RegisteredAt
}

// RankedApplicant augments an applicant with its computed queue position.
// Positions are derived on every read, never stored.
type RankedApplicant struct {
	Applicant
	QueuePosition int `json:"queue_position"`
}

// ApplicantFilter encapsulates allowed search parameters for listing.
type ApplicantFilter struct {
	Status     ApplicantStatus
	FacilityID string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// ApplicantUpdate enumerates the writable fields of a status or seat
// mutation. Nil members are left untouched; Clear* flags null the column.
type ApplicantUpdate struct {
	Status ApplicantStatus

	FacilityID  *string
	ClassroomID *string
	ClearSeat   bool

	Deadline      *time.Time
	ClearDeadline bool

	Penalty      *time.Time
	ClearPenalty bool

	DesiredTransferFacilityID      *string
	ClearDesiredTransferFacilityID bool
}

// Pagination carries standard list metadata.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
