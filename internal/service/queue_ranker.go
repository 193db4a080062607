package service

import (
	"sort"

	"github.com/educmun/creche-api/internal/models"
)

// QueueRanker computes the ranked waitlist. Positions are 1-based and
// recomputed on every read; they are never written back to storage.
type QueueRanker struct{}

// NewQueueRanker constructs a QueueRanker.
func NewQueueRanker() *QueueRanker {
	return &QueueRanker{}
}

// Rank filters waitlisted applicants and orders them by priority tier
// (social-program beneficiaries first) then effective date, earliest first.
// Ties keep their input order.
func (r *QueueRanker) Rank(applicants []models.Applicant) []models.RankedApplicant {
	waitlisted := make([]models.Applicant, 0, len(applicants))
	for _, a := range applicants {
		if a.Status == models.StatusWaitlisted {
			waitlisted = append(waitlisted, a)
		}
	}

	sort.SliceStable(waitlisted, func(i, j int) bool {
		if waitlisted[i].SocialProgram != waitlisted[j].SocialProgram {
			return waitlisted[i].SocialProgram
		}
		return waitlisted[i].EffectiveDate().Before(waitlisted[j].EffectiveDate())
	})

	ranked := make([]models.RankedApplicant, len(waitlisted))
	for i, a := range waitlisted {
		ranked[i] = models.RankedApplicant{Applicant: a, QueuePosition: i + 1}
	}
	return ranked
}

// CalledUpByDeadline returns called-up applicants ordered by nearest
// convocation deadline. They carry no numeric position.
func (r *QueueRanker) CalledUpByDeadline(applicants []models.Applicant) []models.Applicant {
	called := make([]models.Applicant, 0)
	for _, a := range applicants {
		if a.Status == models.StatusCalledUp {
			called = append(called, a)
		}
	}

	sort.SliceStable(called, func(i, j int) bool {
		di, dj := called[i].ConvocationDeadline, called[j].ConvocationDeadline
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(*dj)
		}
	})
	return called
}
