package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlan() map[string]any {
	return map[string]any{
		"name":      "Basic Readiness",
		"startDate": "2026-08-24",
		"endDate":   "2026-09-20",
		"workoutPlan": []any{
			map[string]any{
				"day":       "2026-08-24",
				"summary":   "Upper body strength",
				"exercises": []any{map[string]any{"name": "Push-ups", "sets": 3, "reps": 20}},
			},
			map[string]any{
				"day":       "2026-08-25",
				"summary":   "Cardio",
				"exercises": []any{map[string]any{"name": "3 mile run"}},
			},
		},
	}
}

func TestUpdatePlanDay_ReplacesExercises(t *testing.T) {
	plan := samplePlan()
	newExercises := []any{map[string]any{"name": "Pull-ups", "sets": 4, "reps": 8}}

	updated, day := updatePlanDay(plan, "2026-08-25", newExercises)
	require.NotNil(t, day)
	assert.Equal(t, "2026-08-25", day["day"])
	assert.Equal(t, newExercises, day["exercises"])

	// The plan document itself carries the change.
	days := updated["workoutPlan"].([]any)
	assert.Equal(t, newExercises, days[1].(map[string]any)["exercises"])
}

func TestUpdatePlanDay_NoMatchingDate(t *testing.T) {
	plan := samplePlan()
	_, day := updatePlanDay(plan, "2026-12-25", []any{})
	assert.Nil(t, day)
}

func TestUpdatePlanDay_WeeklyPlanFallback(t *testing.T) {
	plan := map[string]any{
		"weeklyPlan": []any{
			map[string]any{"day": "2026-08-24", "exercises": []any{}},
		},
	}
	newExercises := []any{map[string]any{"name": "Squats"}}

	_, day := updatePlanDay(plan, "2026-08-24", newExercises)
	require.NotNil(t, day)
	assert.Equal(t, newExercises, day["exercises"])
}

func TestUpdatePlanDay_NilOrShapelessPlan(t *testing.T) {
	_, day := updatePlanDay(nil, "2026-08-24", []any{})
	assert.Nil(t, day)

	_, day = updatePlanDay(map[string]any{"notes": "freeform"}, "2026-08-24", []any{})
	assert.Nil(t, day)
}

func TestPlanDateOrDefault(t *testing.T) {
	def := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-09-01", planDateOrDefault(map[string]any{"startDate": "2026-09-01"}, "startDate", def))
	assert.Equal(t, "2026-08-24", planDateOrDefault(map[string]any{}, "startDate", def))
	assert.Equal(t, "2026-08-24", planDateOrDefault(map[string]any{"startDate": "next Tuesday"}, "startDate", def))
	assert.Equal(t, "2026-08-24", planDateOrDefault(map[string]any{"startDate": 20260901}, "startDate", def))
}
