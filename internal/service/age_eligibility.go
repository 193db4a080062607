package service

import "time"

// AgeCohort labels the classroom age band an applicant is eligible for.
type AgeCohort string

const (
	CohortA          AgeCohort = "COHORT_A"
	CohortB          AgeCohort = "COHORT_B"
	CohortC          AgeCohort = "COHORT_C"
	CohortD          AgeCohort = "COHORT_D"
	CohortIneligible AgeCohort = "INELIGIBLE"
)

// AgeEligibilityCalculator derives age cohorts from the yearly cutoff date
// and enforces the minimum call-up age.
type AgeEligibilityCalculator struct {
	now              func() time.Time
	cutoffMonth      time.Month
	cutoffDay        int
	minimumAgeMonths int
}

// NewAgeEligibilityCalculator builds a calculator. Zero cutoff values default
// to March 31; a non-positive minimum age defaults to six months.
func NewAgeEligibilityCalculator(now func() time.Time, cutoffMonth time.Month, cutoffDay, minimumAgeMonths int) *AgeEligibilityCalculator {
	if now == nil {
		now = time.Now
	}
	if cutoffMonth < time.January || cutoffMonth > time.December {
		cutoffMonth = time.March
	}
	if cutoffDay <= 0 {
		cutoffDay = 31
	}
	if minimumAgeMonths <= 0 {
		minimumAgeMonths = 6
	}
	return &AgeEligibilityCalculator{
		now:              now,
		cutoffMonth:      cutoffMonth,
		cutoffDay:        cutoffDay,
		minimumAgeMonths: minimumAgeMonths,
	}
}

// AgeAtCutoff returns the applicant's whole years of age at the cutoff date
// of the target year, clamped to zero when the birth date falls after it.
// A non-positive target year means the current year.
func (c *AgeEligibilityCalculator) AgeAtCutoff(birthDate time.Time, targetYear int) int {
	if targetYear <= 0 {
		targetYear = c.now().Year()
	}
	cutoff := time.Date(targetYear, c.cutoffMonth, c.cutoffDay, 0, 0, 0, 0, time.UTC)
	if birthDate.After(cutoff) {
		return 0
	}
	years := cutoff.Year() - birthDate.Year()
	anniversary := birthDate.AddDate(years, 0, 0)
	if anniversary.After(cutoff) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// CohortFor maps an age at cutoff to its classroom cohort.
func (c *AgeEligibilityCalculator) CohortFor(birthDate time.Time, targetYear int) AgeCohort {
	if birthDate.IsZero() {
		return CohortIneligible
	}
	switch c.AgeAtCutoff(birthDate, targetYear) {
	case 0:
		return CohortA
	case 1:
		return CohortB
	case 2:
		return CohortC
	case 3:
		return CohortD
	default:
		return CohortIneligible
	}
}

// AgeInMonths returns the applicant's current age in whole months.
func (c *AgeEligibilityCalculator) AgeInMonths(birthDate time.Time) int {
	now := c.now()
	if birthDate.After(now) {
		return 0
	}
	months := (now.Year()-birthDate.Year())*12 + int(now.Month()) - int(birthDate.Month())
	if now.Day() < birthDate.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// MeetsMinimumAge gates call-up and enrollment confirmation. Registration on
// the waitlist is never blocked by it.
func (c *AgeEligibilityCalculator) MeetsMinimumAge(birthDate time.Time) bool {
	return c.AgeInMonths(birthDate) >= c.minimumAgeMonths
}
