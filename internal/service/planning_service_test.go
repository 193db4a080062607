package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educmun/creche-api/internal/models"
	appErrors "github.com/educmun/creche-api/pkg/errors"
)

type mockApplicantLister struct {
	applicants []models.Applicant
	err        error
}

func (m *mockApplicantLister) ListByStatuses(ctx context.Context, statuses ...models.ApplicantStatus) ([]models.Applicant, error) {
	return m.applicants, m.err
}

// memoryDraftCache mimics the redis-backed cache with JSON round-trips so the
// restored draft goes through the same serialization as production.
type memoryDraftCache struct {
	values map[string][]byte
}

func newMemoryDraftCache() *memoryDraftCache {
	return &memoryDraftCache{values: make(map[string][]byte)}
}

func (m *memoryDraftCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.Clone(appErrors.ErrCacheMiss, "cache miss")
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryDraftCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryDraftCache) Clear(ctx context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func planningFixture() []models.Applicant {
	facility := "f1"
	classroom := "c1"
	return []models.Applicant{
		{ID: "enrolled-1", FullName: "Bruno Lima", Status: models.StatusEnrolled,
			BirthDate: birth(2023, 4, 1), CurrentFacilityID: &facility, CurrentClassroomID: &classroom},
		{ID: "waiting-1", FullName: "Clara Dias", Status: models.StatusWaitlisted, BirthDate: birth(2024, 9, 1)},
		{ID: "withdrawn-1", FullName: "Davi Rocha", Status: models.StatusWithdrawn, BirthDate: birth(2022, 1, 1)},
	}
}

func newPlanningService(lister planningApplicantLister, cache draftCache) *PlanningService {
	ages := newCalculator(time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC))
	return NewPlanningService(lister, cache, ages, "planning:draft", time.Hour, nil)
}

func TestStartSessionClassifiesCohorts(t *testing.T) {
	svc := newPlanningService(&mockApplicantLister{applicants: planningFixture()}, newMemoryDraftCache())

	session, err := svc.StartSession(context.Background(), 2026)
	require.NoError(t, err)
	require.Len(t, session.Entries, 3)
	assert.False(t, session.RestoredDraft)

	byID := map[string]models.PlanningEntry{}
	for _, e := range session.Entries {
		byID[e.ApplicantID] = e
	}
	assert.Equal(t, models.CohortInternalTransfer, byID["enrolled-1"].Cohort)
	assert.Equal(t, models.CohortRequeueReclassified, byID["waiting-1"].Cohort)
	assert.Equal(t, models.CohortFinalExit, byID["withdrawn-1"].Cohort)
	require.NotNil(t, byID["enrolled-1"].CurrentSeat)
	assert.Equal(t, "f1", byID["enrolled-1"].CurrentSeat.FacilityID)
}

func TestStartSessionRestoresMatchingDraft(t *testing.T) {
	cache := newMemoryDraftCache()
	lister := &mockApplicantLister{applicants: planningFixture()}
	svc := newPlanningService(lister, cache)

	_, err := svc.StartSession(context.Background(), 2026)
	require.NoError(t, err)
	require.NoError(t, svc.SetPlannedStatus(context.Background(), "waiting-1", models.StatusCalledUp, ""))

	// a fresh service instance simulates a restart
	restarted := newPlanningService(lister, cache)
	session, err := restarted.StartSession(context.Background(), 2026)
	require.NoError(t, err)
	assert.True(t, session.RestoredDraft)

	for _, e := range session.Entries {
		if e.ApplicantID == "waiting-1" {
			require.NotNil(t, e.PlannedStatus)
			assert.Equal(t, models.StatusCalledUp, *e.PlannedStatus)
		}
	}
}

func TestStartSessionDiscardsStaleDraft(t *testing.T) {
	cache := newMemoryDraftCache()
	lister := &mockApplicantLister{applicants: planningFixture()}
	svc := newPlanningService(lister, cache)

	_, err := svc.StartSession(context.Background(), 2026)
	require.NoError(t, err)
	require.NoError(t, svc.SetPlannedStatus(context.Background(), "waiting-1", models.StatusCalledUp, ""))

	// the cohort changed between sessions: one more child registered
	lister.applicants = append(planningFixture(), models.Applicant{
		ID: "waiting-2", FullName: "Eva Nunes", Status: models.StatusWaitlisted, BirthDate: birth(2025, 1, 1),
	})

	restarted := newPlanningService(lister, cache)
	session, err := restarted.StartSession(context.Background(), 2026)
	require.NoError(t, err)
	assert.False(t, session.RestoredDraft)
	require.Len(t, session.Entries, 4)
	for _, e := range session.Entries {
		assert.Nil(t, e.PlannedStatus)
	}
	assert.Empty(t, cache.values, "stale draft should be evicted")
}

func TestStartSessionListerFailure(t *testing.T) {
	svc := newPlanningService(&mockApplicantLister{err: errors.New("connection refused")}, newMemoryDraftCache())

	_, err := svc.StartSession(context.Background(), 2026)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPersistence.Code, appErrors.FromError(err).Code)
}

func TestSetPlannedStatusExitDropsPlannedSeat(t *testing.T) {
	svc := newPlanningService(&mockApplicantLister{applicants: planningFixture()}, newMemoryDraftCache())
	ctx := context.Background()
	_, err := svc.StartSession(ctx, 2026)
	require.NoError(t, err)

	seat := models.SeatAssignment{FacilityID: "f2", ClassroomID: "c2", FacilityName: "Creche Sul", ClassroomName: "Maternal II"}
	require.NoError(t, svc.SetPlannedSeat(ctx, "enrolled-1", seat))
	require.NoError(t, svc.SetPlannedStatus(ctx, "enrolled-1", models.StatusWithdrawn, "family moved away"))

	entries := svc.Entries()
	for _, e := range entries {
		if e.ApplicantID == "enrolled-1" {
			assert.Nil(t, e.PlannedSeat)
			require.NotNil(t, e.PlannedStatus)
			assert.Equal(t, models.StatusWithdrawn, *e.PlannedStatus)
			require.NotNil(t, e.PlannedJustification)
			assert.Equal(t, "family moved away", *e.PlannedJustification)
		}
	}
}

func TestSetPlannedSeatDerivesStatus(t *testing.T) {
	svc := newPlanningService(&mockApplicantLister{applicants: planningFixture()}, newMemoryDraftCache())
	ctx := context.Background()
	_, err := svc.StartSession(ctx, 2026)
	require.NoError(t, err)

	seat := models.SeatAssignment{FacilityID: "f2", ClassroomID: "c2", FacilityName: "Creche Sul", ClassroomName: "Maternal II"}
	require.NoError(t, svc.SetPlannedSeat(ctx, "waiting-1", seat))
	require.NoError(t, svc.SetPlannedSeat(ctx, "enrolled-1", seat))

	for _, e := range svc.Entries() {
		switch e.ApplicantID {
		case "waiting-1":
			require.NotNil(t, e.PlannedStatus)
			assert.Equal(t, models.StatusCalledUp, *e.PlannedStatus)
		case "enrolled-1":
			require.NotNil(t, e.PlannedStatus)
			assert.Equal(t, models.StatusEnrolled, *e.PlannedStatus, "seat move for an enrolled child keeps the enrollment")
		}
	}
}

func TestSetPlannedStatusUnknownApplicant(t *testing.T) {
	svc := newPlanningService(&mockApplicantLister{applicants: planningFixture()}, newMemoryDraftCache())
	ctx := context.Background()
	_, err := svc.StartSession(ctx, 2026)
	require.NoError(t, err)

	err = svc.SetPlannedStatus(ctx, "nobody", models.StatusWithdrawn, "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestBulkSetPlannedStatusUnknownApplicantLeavesDraftUntouched(t *testing.T) {
	svc := newPlanningService(&mockApplicantLister{applicants: planningFixture()}, newMemoryDraftCache())
	ctx := context.Background()
	_, err := svc.StartSession(ctx, 2026)
	require.NoError(t, err)

	err = svc.BulkSetPlannedStatus(ctx, []string{"waiting-1", "nobody"}, models.StatusWithdrawn, "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	session, err := svc.Session()
	require.NoError(t, err)
	for _, e := range session.Entries {
		assert.Nil(t, e.PlannedStatus, "a rejected batch must not apply partially")
	}
}

func TestSaveAndDiscard(t *testing.T) {
	svc := newPlanningService(&mockApplicantLister{applicants: planningFixture()}, newMemoryDraftCache())
	ctx := context.Background()
	_, err := svc.StartSession(ctx, 2026)
	require.NoError(t, err)
	assert.False(t, svc.HasUnsavedChanges())

	require.NoError(t, svc.SetPlannedStatus(ctx, "waiting-1", models.StatusCalledUp, ""))
	assert.True(t, svc.HasUnsavedChanges())

	require.NoError(t, svc.Save(ctx))
	assert.False(t, svc.HasUnsavedChanges())

	require.NoError(t, svc.SetPlannedStatus(ctx, "waiting-1", models.StatusWithdrawn, "gave up the spot"))
	assert.True(t, svc.HasUnsavedChanges())

	require.NoError(t, svc.Discard(ctx))
	assert.False(t, svc.HasUnsavedChanges())
	for _, e := range svc.Entries() {
		if e.ApplicantID == "waiting-1" {
			require.NotNil(t, e.PlannedStatus)
			assert.Equal(t, models.StatusCalledUp, *e.PlannedStatus, "discard reverts to the saved baseline, not the fresh classification")
		}
	}
}

func TestSessionRequiresStart(t *testing.T) {
	svc := newPlanningService(&mockApplicantLister{}, newMemoryDraftCache())

	_, err := svc.Session()
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	err = svc.SetPlannedStatus(context.Background(), "a", models.StatusWithdrawn, "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestClearSessionDropsDraftAndCache(t *testing.T) {
	cache := newMemoryDraftCache()
	svc := newPlanningService(&mockApplicantLister{applicants: planningFixture()}, cache)
	ctx := context.Background()
	_, err := svc.StartSession(ctx, 2026)
	require.NoError(t, err)
	require.NoError(t, svc.SetPlannedStatus(ctx, "waiting-1", models.StatusCalledUp, ""))

	require.NoError(t, svc.ClearSession(ctx))
	assert.Nil(t, svc.Entries())
	assert.Empty(t, cache.values)
}
