package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/educmun/creche-api/internal/models"
)

// SeatRepository reads seat occupancy. Occupancy enforcement itself lives in
// the database capacity constraint, not in this engine.
type SeatRepository struct {
	db *sqlx.DB
}

// NewSeatRepository constructs a SeatRepository.
func NewSeatRepository(db *sqlx.DB) *SeatRepository {
	return &SeatRepository{db: db}
}

// List returns seats with live occupancy counts, optionally for one facility.
func (r *SeatRepository) List(ctx context.Context, facilityID string) ([]models.Seat, error) {
	query := `SELECT c.facility_id, f.name AS facility_name, c.id AS classroom_id, c.name AS classroom_name,
        c.capacity, t.name AS template_name, t.min_age_months, t.max_age_months,
        (SELECT COUNT(*) FROM applicants a
            WHERE a.current_classroom_id = c.id
              AND a.status IN ('CALLED_UP', 'ENROLLED', 'TRANSFER_REQUESTED')) AS occupied
        FROM classrooms c
        JOIN facilities f ON f.id = c.facility_id
        JOIN classroom_templates t ON t.id = c.template_id`
	args := []interface{}{}
	if facilityID != "" {
		query += " WHERE c.facility_id = $1"
		args = append(args, facilityID)
	}
	query += " ORDER BY f.name ASC, c.name ASC"

	var seats []models.Seat
	if err := r.db.SelectContext(ctx, &seats, query, args...); err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	return seats, nil
}

// Find returns the seat for one facility/classroom pair.
func (r *SeatRepository) Find(ctx context.Context, facilityID, classroomID string) (*models.Seat, error) {
	query := `SELECT c.facility_id, f.name AS facility_name, c.id AS classroom_id, c.name AS classroom_name,
        c.capacity, t.name AS template_name, t.min_age_months, t.max_age_months,
        (SELECT COUNT(*) FROM applicants a
            WHERE a.current_classroom_id = c.id
              AND a.status IN ('CALLED_UP', 'ENROLLED', 'TRANSFER_REQUESTED')) AS occupied
        FROM classrooms c
        JOIN facilities f ON f.id = c.facility_id
        JOIN classroom_templates t ON t.id = c.template_id
        WHERE c.facility_id = $1 AND c.id = $2`
	var seat models.Seat
	if err := r.db.GetContext(ctx, &seat, query, facilityID, classroomID); err != nil {
		return nil, err
	}
	return &seat, nil
}
