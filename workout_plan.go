package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// generateWorkoutPlan builds a workout plan from the user's profile via the
// model's generate_workout_plan function call and stores it.
// POST /api/workout-plan.
func (h *Handler) generateWorkoutPlan(c *gin.Context) {
	userID := c.GetString("user_id")

	var body generateWorkoutPlanRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Goal == "" || body.DurationWeeks <= 0 || body.Branch == "" {
		apiError(c, http.StatusBadRequest, "goal, duration, and branch are required")
		return
	}

	p, err := queryOne[profile](h.db, c,
		"SELECT * FROM profiles WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusNotFound, "user profile not found")
		return
	}

	startDate := time.Now()
	endDate := startDate.AddDate(0, 0, body.DurationWeeks*7)
	profileJSON, _ := json.Marshal(p)

	messages := []openAIMessage{
		{Role: "system", Content: "You are a professional trainer."},
		{Role: "user", Content: fmt.Sprintf(
			"Generate a workout plan from %s to %s for a %s service member with the goal: %s. "+
				"User profile parameters: %s. "+
				"Include daily workouts with exercises, sets, reps, and durations.",
			startDate.Format("2006-01-02"), endDate.Format("2006-01-02"),
			body.Branch, body.Goal, profileJSON)},
	}

	var plan map[string]any
	if err := callOpenAIFunction(c.Request.Context(), h.openAIBaseURL, messages, workoutPlanFunction, &plan); err != nil {
		log.Printf("[generateWorkoutPlan] OpenAI error: %v", err)
		apiError(c, http.StatusInternalServerError, "failed to generate workout plan")
		return
	}

	saved, err := queryOne[workoutPlan](h.db, c,
		`INSERT INTO workout_plans (user_id, plan, start_date, end_date)
		 VALUES (@userID, @plan, @startDate, @endDate)
		 RETURNING *`,
		pgx.NamedArgs{
			"userID":    userID,
			"plan":      plan,
			"startDate": planDateOrDefault(plan, "startDate", startDate),
			"endDate":   planDateOrDefault(plan, "endDate", endDate),
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save workout plan")
		return
	}

	c.JSON(http.StatusCreated, saved)
}

// getWorkoutPlan returns the user's most recent workout plan.
// GET /api/workout-plan.
func (h *Handler) getWorkoutPlan(c *gin.Context) {
	userID := c.GetString("user_id")

	plan, err := queryOne[workoutPlan](h.db, c,
		`SELECT * FROM workout_plans
		 WHERE user_id = @userID
		 ORDER BY created_at DESC
		 LIMIT 1`,
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusNotFound, "workout plan not found")
		return
	}

	c.JSON(http.StatusOK, plan)
}

// updateWorkoutDay replaces the exercises of one day in the latest plan.
// PUT /api/workout-plan/:date. Returns the updated day object.
func (h *Handler) updateWorkoutDay(c *gin.Context) {
	userID := c.GetString("user_id")
	date := c.Param("date")

	var body struct {
		Exercises []any `json:"exercises"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Exercises == nil {
		apiError(c, http.StatusBadRequest, "exercises are required")
		return
	}

	plan, err := queryOne[workoutPlan](h.db, c,
		`SELECT * FROM workout_plans
		 WHERE user_id = @userID
		 ORDER BY created_at DESC
		 LIMIT 1`,
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusNotFound, "workout plan not found")
		return
	}

	updated, day := updatePlanDay(plan.Plan, date, body.Exercises)
	if day == nil {
		apiError(c, http.StatusNotFound, "no workout found for that date")
		return
	}

	_, err = h.db.Exec(c,
		"UPDATE workout_plans SET plan = @plan WHERE id = @id",
		pgx.NamedArgs{"plan": updated, "id": plan.ID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update workout plan")
		return
	}

	c.JSON(http.StatusOK, day)
}

// updatePlanDay rewrites the exercises of the weekly-plan entry whose "day"
// matches date. Returns the updated plan document and the matched day, or a
// nil day when no entry matches. The input map is modified in place.
func updatePlanDay(plan map[string]any, date string, exercises []any) (map[string]any, map[string]any) {
	if plan == nil {
		return plan, nil
	}
	weekly, ok := plan["workoutPlan"].([]any)
	if !ok {
		// Older documents stored the days under weeklyPlan.
		weekly, ok = plan["weeklyPlan"].([]any)
		if !ok {
			return plan, nil
		}
	}

	for _, entry := range weekly {
		day, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if day["day"] == date {
			day["exercises"] = exercises
			return plan, day
		}
	}
	return plan, nil
}

// planDateOrDefault reads a YYYY-MM-DD string field from the generated plan,
// falling back to def when the field is absent or malformed.
func planDateOrDefault(plan map[string]any, field string, def time.Time) string {
	if s, ok := plan[field].(string); ok {
		if _, err := time.Parse("2006-01-02", s); err == nil {
			return s
		}
	}
	return def.Format("2006-01-02")
}
