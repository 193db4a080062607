package models

// ClassroomTemplate names an age band a classroom serves.
type ClassroomTemplate struct {
	Name         string `db:"template_name" json:"template_name"`
	MinAgeMonths int    `db:"min_age_months" json:"min_age_months"`
	MaxAgeMonths int    `db:"max_age_months" json:"max_age_months"`
}

// Seat is a capacity slot bucket for one classroom at one facility.
type Seat struct {
	FacilityID    string `db:"facility_id" json:"facility_id"`
	FacilityName  string `db:"facility_name" json:"facility_name"`
	ClassroomID   string `db:"classroom_id" json:"classroom_id"`
	ClassroomName string `db:"classroom_name" json:"classroom_name"`
	Capacity      int    `db:"capacity" json:"capacity"`
	Occupied      int    `db:"occupied" json:"occupied"`
	ClassroomTemplate
}

// Available returns the number of free slots, never negative.
func (s *Seat) Available() int {
	if free := s.Capacity - s.Occupied; free > 0 {
		return free
	}
	return 0
}

// SeatAssignment identifies a concrete seat target. It is a structured key:
// routing and grouping decisions compare its fields, never a joined string.
type SeatAssignment struct {
	FacilityID    string `json:"facility_id"`
	ClassroomID   string `json:"classroom_id"`
	FacilityName  string `json:"facility_name"`
	ClassroomName string `json:"classroom_name"`
}

// Complete reports whether every member needed to dispatch a call-up or
// reallocation is present.
func (s SeatAssignment) Complete() bool {
	return s.FacilityID != "" && s.ClassroomID != "" && s.FacilityName != "" && s.ClassroomName != ""
}
