package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/educmun/creche-api/internal/models"
)

const applicantColumns = `id, full_name, birth_date, social_program, preferred_facility_id, secondary_facility_id,
        accepts_any_facility, guardian_name, guardian_phone, guardian_email, address, notes, status,
        current_facility_id, current_classroom_id, convocation_deadline, penalty_timestamp,
        desired_transfer_facility_id, registered_at, created_at, updated_at`

// ApplicantRepository manages persistence for applicant records.
type ApplicantRepository struct {
	db *sqlx.DB
}

// NewApplicantRepository constructs an ApplicantRepository.
func NewApplicantRepository(db *sqlx.DB) *ApplicantRepository {
	return &ApplicantRepository{db: db}
}

// List returns applicants matching the provided filters.
func (r *ApplicantRepository) List(ctx context.Context, filter models.ApplicantFilter) ([]models.Applicant, int, error) {
	base := "FROM applicants a"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.FacilityID != "" {
		conditions = append(conditions, fmt.Sprintf("(a.current_facility_id = $%d OR a.preferred_facility_id = $%d)", len(args)+1, len(args)+1))
		args = append(args, filter.FacilityID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(a.full_name) LIKE $%d OR LOWER(a.guardian_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"full_name":     "a.full_name",
		"registered_at": "a.registered_at",
		"birth_date":    "a.birth_date",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "a.registered_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		prefixColumns("a", applicantColumns), base, column, order, size, offset)

	var applicants []models.Applicant
	if err := r.db.SelectContext(ctx, &applicants, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applicants: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applicants: %w", err)
	}
	return applicants, total, nil
}

// ListByStatuses loads every applicant in one of the given statuses, ordered
// by registration date for stable ranking input.
func (r *ApplicantRepository) ListByStatuses(ctx context.Context, statuses ...models.ApplicantStatus) ([]models.Applicant, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = s
	}
	query := fmt.Sprintf("SELECT %s FROM applicants WHERE status IN (%s) ORDER BY registered_at ASC, id ASC",
		applicantColumns, strings.Join(placeholders, ", "))

	var applicants []models.Applicant
	if err := r.db.SelectContext(ctx, &applicants, query, args...); err != nil {
		return nil, fmt.Errorf("list applicants by status: %w", err)
	}
	return applicants, nil
}

// FindByID fetches an applicant by ID.
func (r *ApplicantRepository) FindByID(ctx context.Context, id string) (*models.Applicant, error) {
	query := fmt.Sprintf("SELECT %s FROM applicants WHERE id = $1", applicantColumns)
	var applicant models.Applicant
	if err := r.db.GetContext(ctx, &applicant, query, id); err != nil {
		return nil, err
	}
	return &applicant, nil
}

// Create inserts a new applicant record.
func (r *ApplicantRepository) Create(ctx context.Context, applicant *models.Applicant) error {
	if applicant.ID == "" {
		applicant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if applicant.RegisteredAt.IsZero() {
		applicant.RegisteredAt = now
	}
	if applicant.CreatedAt.IsZero() {
		applicant.CreatedAt = now
	}
	applicant.UpdatedAt = now
	const query = `INSERT INTO applicants (id, full_name, birth_date, social_program, preferred_facility_id, secondary_facility_id,
        accepts_any_facility, guardian_name, guardian_phone, guardian_email, address, notes, status,
        current_facility_id, current_classroom_id, convocation_deadline, penalty_timestamp,
        desired_transfer_facility_id, registered_at, created_at, updated_at)
        VALUES (:id, :full_name, :birth_date, :social_program, :preferred_facility_id, :secondary_facility_id,
        :accepts_any_facility, :guardian_name, :guardian_phone, :guardian_email, :address, :notes, :status,
        :current_facility_id, :current_classroom_id, :convocation_deadline, :penalty_timestamp,
        :desired_transfer_facility_id, :registered_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, applicant); err != nil {
		return fmt.Errorf("create applicant: %w", err)
	}
	return nil
}

// Update applies a status/seat field set to one applicant and returns the
// refreshed record.
func (r *ApplicantRepository) Update(ctx context.Context, id string, update models.ApplicantUpdate) (*models.Applicant, error) {
	set, args := buildUpdateSet(update)
	args = append(args, id)
	query := fmt.Sprintf("UPDATE applicants SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update applicant %s: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, fmt.Errorf("update applicant %s: no row", id)
	}
	return r.FindByID(ctx, id)
}

// BulkUpdate applies the same field set to a group of applicants in one call.
func (r *ApplicantRepository) BulkUpdate(ctx context.Context, ids []string, update models.ApplicantUpdate) error {
	if len(ids) == 0 {
		return nil
	}
	set, args := buildUpdateSet(update)
	base := len(args)
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", base+i+1)
		args = append(args, id)
	}
	query := fmt.Sprintf("UPDATE applicants SET %s WHERE id IN (%s)",
		strings.Join(set, ", "), strings.Join(placeholders, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bulk update applicants: %w", err)
	}
	return nil
}

func buildUpdateSet(update models.ApplicantUpdate) ([]string, []interface{}) {
	set := []string{"updated_at = NOW()"}
	args := []interface{}{}

	appendArg := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Status != "" {
		appendArg("status", update.Status)
	}
	if update.ClearSeat {
		set = append(set, "current_facility_id = NULL", "current_classroom_id = NULL")
	} else {
		if update.FacilityID != nil {
			appendArg("current_facility_id", *update.FacilityID)
		}
		if update.ClassroomID != nil {
			appendArg("current_classroom_id", *update.ClassroomID)
		}
	}
	if update.ClearDeadline {
		set = append(set, "convocation_deadline = NULL")
	} else if update.Deadline != nil {
		appendArg("convocation_deadline", *update.Deadline)
	}
	if update.ClearPenalty {
		set = append(set, "penalty_timestamp = NULL")
	} else if update.Penalty != nil {
		appendArg("penalty_timestamp", *update.Penalty)
	}
	if update.ClearDesiredTransferFacilityID {
		set = append(set, "desired_transfer_facility_id = NULL")
	} else if update.DesiredTransferFacilityID != nil {
		appendArg("desired_transfer_facility_id", *update.DesiredTransferFacilityID)
	}

	return set, args
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
