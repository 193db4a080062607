package service

import (
	"context"

	"github.com/educmun/creche-api/internal/models"
	appErrors "github.com/educmun/creche-api/pkg/errors"
)

type seatLister interface {
	List(ctx context.Context, facilityID string) ([]models.Seat, error)
}

// SeatService exposes seat occupancy for display. Capacity enforcement stays
// in the database.
type SeatService struct {
	repo seatLister
}

// NewSeatService constructs SeatService.
func NewSeatService(repo seatLister) *SeatService {
	return &SeatService{repo: repo}
}

// List returns seats with occupancy, optionally filtered by facility.
func (s *SeatService) List(ctx context.Context, facilityID string) ([]models.Seat, error) {
	seats, err := s.repo.List(ctx, facilityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list seats")
	}
	return seats, nil
}
