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

// generateNutritionPlan builds a 7-day nutrition plan from the user's profile,
// their TDEE-derived calorie target, and (when they have access) the dining
// facility menu, then stores it.
// POST /api/nutrition-plan.
func (h *Handler) generateNutritionPlan(c *gin.Context) {
	userID := c.GetString("user_id")

	var body generateNutritionPlanRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Goal == "" {
		apiError(c, http.StatusBadRequest, "goal is required")
		return
	}

	p, err := queryOne[profile](h.db, c,
		"SELECT * FROM profiles WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusNotFound, "user profile not found")
		return
	}

	restrictions := ""
	if body.DietaryRestrictions != nil {
		restrictions = *body.DietaryRestrictions
	} else if p.DietaryRestrictions != nil {
		restrictions = *p.DietaryRestrictions
	}

	calorieLine := "not available, estimate from the profile"
	if p.Gender != nil && p.Age != nil && p.HeightIN != nil && p.WeightLBS != nil {
		target := *p.WeightLBS
		if p.TargetWeightLBS != nil {
			target = *p.TargetWeightLBS
		}
		activity := ""
		if p.ActivityLevel != nil {
			activity = *p.ActivityLevel
		}
		calorieLine = fmt.Sprintf("%d",
			dailyCalorieTarget(*p.Gender, *p.Age, *p.HeightIN, *p.WeightLBS, target, activity))
	}

	// Attach the dining menu when the member has facility access. A menu-feed
	// outage downgrades the prompt rather than failing the whole request.
	menuLine := "Not available"
	if p.DiningFacilityAccess {
		if menu, err := h.menu.DefaultView(c.Request.Context()); err != nil {
			log.Printf("[generateNutritionPlan] dining menu unavailable: %v", err)
		} else if menuJSON, err := json.Marshal(menu); err == nil {
			menuLine = string(menuJSON)
		}
	}

	startDate := time.Now()
	endDate := startDate.AddDate(0, 0, 7)
	profileJSON, _ := json.Marshal(p)

	messages := []openAIMessage{
		{Role: "system", Content: "You are a military nutritionist specializing in personalized meal plans. All measurements are in US units (pounds, inches)."},
		{Role: "user", Content: fmt.Sprintf(
			"Generate a nutrition plan from %s to %s with these parameters:\n"+
				"User Profile: %s\n"+
				"Goal: %s\n"+
				"Dietary Restrictions: %s\n"+
				"Daily Calorie Target: %s\n"+
				"Available Dining Facility Menu: %s\n\n"+
				"If they have dining facility access, prioritize menu items that match their needs. "+
				"Include alternative options for when dining facility access isn't available.",
			startDate.Format("2006-01-02"), endDate.Format("2006-01-02"),
			profileJSON, body.Goal, restrictions, calorieLine, menuLine)},
	}

	var plan map[string]any
	if err := callOpenAIFunction(c.Request.Context(), h.openAIBaseURL, messages, nutritionPlanFunction, &plan); err != nil {
		log.Printf("[generateNutritionPlan] OpenAI error: %v", err)
		apiError(c, http.StatusInternalServerError, "failed to generate nutrition plan")
		return
	}

	saved, err := queryOne[nutritionPlan](h.db, c,
		`INSERT INTO nutrition_plans (user_id, plan, start_date, end_date)
		 VALUES (@userID, @plan, @startDate, @endDate)
		 RETURNING *`,
		pgx.NamedArgs{
			"userID":    userID,
			"plan":      plan,
			"startDate": planDateOrDefault(plan, "startDate", startDate),
			"endDate":   planDateOrDefault(plan, "endDate", endDate),
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save nutrition plan")
		return
	}

	c.JSON(http.StatusCreated, saved)
}

// getNutritionPlan returns the user's most recent nutrition plan.
// GET /api/nutrition-plan.
func (h *Handler) getNutritionPlan(c *gin.Context) {
	userID := c.GetString("user_id")

	plan, err := queryOne[nutritionPlan](h.db, c,
		`SELECT * FROM nutrition_plans
		 WHERE user_id = @userID
		 ORDER BY created_at DESC
		 LIMIT 1`,
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusNotFound, "nutrition plan not found")
		return
	}

	c.JSON(http.StatusOK, plan)
}

// getNutritionLogs returns the user's logged intake, most recent first.
// GET /api/nutrition-plan/log.
func (h *Handler) getNutritionLogs(c *gin.Context) {
	userID := c.GetString("user_id")

	logs, err := queryMany[nutritionLog](h.db, c,
		`SELECT * FROM nutrition_logs
		 WHERE user_id = @userID
		 ORDER BY date DESC`,
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch nutrition logs")
		return
	}
	if logs == nil {
		logs = []nutritionLog{}
	}

	c.JSON(http.StatusOK, logs)
}

// logNutrition records one day's intake totals.
// POST /api/nutrition-plan/log. Defaults date to today if omitted.
func (h *Handler) logNutrition(c *gin.Context) {
	userID := c.GetString("user_id")

	var body logNutritionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Date == "" {
		body.Date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", body.Date); err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	entry, err := queryOne[nutritionLog](h.db, c,
		`INSERT INTO nutrition_logs (user_id, date, calories, protein_g, carbs_g, fat_g)
		 VALUES (@userID, @date, @calories, @proteinG, @carbsG, @fatG)
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": userID, "date": body.Date, "calories": body.Calories,
			"proteinG": body.ProteinG, "carbsG": body.CarbsG, "fatG": body.FatG,
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save nutrition log")
		return
	}

	c.JSON(http.StatusCreated, entry)
}
