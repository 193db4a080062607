package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newCalculator(now time.Time) *AgeEligibilityCalculator {
	return NewAgeEligibilityCalculator(func() time.Time { return now }, time.March, 31, 6)
}

func birth(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestAgeAtCutoff(t *testing.T) {
	calc := newCalculator(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	cases := []struct {
		name       string
		birthDate  time.Time
		targetYear int
		age        int
	}{
		{"one day after previous cutoff", birth(2023, 4, 1), 2025, 1},
		{"born this calendar year", birth(2025, 2, 1), 2025, 0},
		{"born after the cutoff", birth(2025, 4, 15), 2025, 0},
		{"birthday exactly on the cutoff", birth(2022, 3, 31), 2025, 3},
		{"birthday one day after the cutoff", birth(2022, 4, 1), 2025, 2},
		{"too old", birth(2020, 1, 15), 2025, 5},
		{"zero target year falls back to the current year", birth(2023, 4, 1), 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.age, calc.AgeAtCutoff(tc.birthDate, tc.targetYear))
		})
	}
}

func TestCohortFor(t *testing.T) {
	calc := newCalculator(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	cases := []struct {
		name      string
		birthDate time.Time
		cohort    AgeCohort
	}{
		{"newborn", birth(2025, 2, 1), CohortA},
		{"one year old", birth(2023, 4, 1), CohortB},
		{"two years old", birth(2022, 4, 1), CohortC},
		{"three years old", birth(2021, 4, 1), CohortD},
		{"four years old", birth(2020, 4, 1), CohortIneligible},
		{"unknown birth date", time.Time{}, CohortIneligible},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.cohort, calc.CohortFor(tc.birthDate, 2025))
		})
	}
}

func TestAgeInMonths(t *testing.T) {
	calc := newCalculator(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 6, calc.AgeInMonths(birth(2024, 12, 15)))
	assert.Equal(t, 5, calc.AgeInMonths(birth(2024, 12, 16)))
	assert.Equal(t, 0, calc.AgeInMonths(birth(2025, 6, 1)))
	assert.Equal(t, 0, calc.AgeInMonths(birth(2026, 1, 1)))
}

func TestMeetsMinimumAge(t *testing.T) {
	calc := newCalculator(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))

	assert.True(t, calc.MeetsMinimumAge(birth(2024, 12, 15)))
	assert.False(t, calc.MeetsMinimumAge(birth(2025, 1, 15)))
}

func TestCalculatorDefaults(t *testing.T) {
	calc := NewAgeEligibilityCalculator(nil, 0, 0, 0)
	assert.Equal(t, time.March, calc.cutoffMonth)
	assert.Equal(t, 31, calc.cutoffDay)
	assert.Equal(t, 6, calc.minimumAgeMonths)
}
