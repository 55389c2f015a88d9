package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// getProfile returns the authenticated user's profile row.
// GET /api/profile.
func (h *Handler) getProfile(c *gin.Context) {
	userID := c.GetString("user_id")

	p, err := queryOne[profile](h.db, c,
		"SELECT * FROM profiles WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusNotFound, "profile not found")
		return
	}

	c.JSON(http.StatusOK, p)
}

// upsertProfile creates or updates the authenticated user's profile.
// POST /api/profile. Fields omitted from the body keep their stored value
// (COALESCE against EXCLUDED on conflict).
func (h *Handler) upsertProfile(c *gin.Context) {
	userID := c.GetString("user_id")

	var body upsertProfileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := queryOne[profile](h.db, c,
		`INSERT INTO profiles (
			user_id, name, age, gender, height_in, weight_lbs, target_weight_lbs,
			branch, current_installation, activity_level, fitness_waivers,
			dietary_restrictions, fitness_goals, nutrition_goals, fitness_preferences,
			dining_facility_usage, on_base_restaurant_usage, off_base_restaurant_usage,
			home_cooking_frequency, dining_facility_access
		 ) VALUES (
			@userID, @name, @age, @gender, @heightIN, @weightLBS, @targetWeightLBS,
			@branch, @currentInstallation, @activityLevel, @fitnessWaivers,
			@dietaryRestrictions, @fitnessGoals, @nutritionGoals, @fitnessPreferences,
			@diningFacilityUsage, @onBaseRestaurantUsage, @offBaseRestaurantUsage,
			@homeCookingFrequency, COALESCE(@diningFacilityAccess, false)
		 )
		 ON CONFLICT (user_id) DO UPDATE SET
			name = COALESCE(EXCLUDED.name, profiles.name),
			age = COALESCE(EXCLUDED.age, profiles.age),
			gender = COALESCE(EXCLUDED.gender, profiles.gender),
			height_in = COALESCE(EXCLUDED.height_in, profiles.height_in),
			weight_lbs = COALESCE(EXCLUDED.weight_lbs, profiles.weight_lbs),
			target_weight_lbs = COALESCE(EXCLUDED.target_weight_lbs, profiles.target_weight_lbs),
			branch = COALESCE(EXCLUDED.branch, profiles.branch),
			current_installation = COALESCE(EXCLUDED.current_installation, profiles.current_installation),
			activity_level = COALESCE(EXCLUDED.activity_level, profiles.activity_level),
			fitness_waivers = COALESCE(EXCLUDED.fitness_waivers, profiles.fitness_waivers),
			dietary_restrictions = COALESCE(EXCLUDED.dietary_restrictions, profiles.dietary_restrictions),
			fitness_goals = COALESCE(EXCLUDED.fitness_goals, profiles.fitness_goals),
			nutrition_goals = COALESCE(EXCLUDED.nutrition_goals, profiles.nutrition_goals),
			fitness_preferences = COALESCE(EXCLUDED.fitness_preferences, profiles.fitness_preferences),
			dining_facility_usage = COALESCE(EXCLUDED.dining_facility_usage, profiles.dining_facility_usage),
			on_base_restaurant_usage = COALESCE(EXCLUDED.on_base_restaurant_usage, profiles.on_base_restaurant_usage),
			off_base_restaurant_usage = COALESCE(EXCLUDED.off_base_restaurant_usage, profiles.off_base_restaurant_usage),
			home_cooking_frequency = COALESCE(EXCLUDED.home_cooking_frequency, profiles.home_cooking_frequency),
			dining_facility_access = COALESCE(@diningFacilityAccess, profiles.dining_facility_access),
			updated_at = now()
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": userID, "name": body.Name, "age": body.Age,
			"gender": body.Gender, "heightIN": body.HeightIN,
			"weightLBS": body.WeightLBS, "targetWeightLBS": body.TargetWeightLBS,
			"branch": body.Branch, "currentInstallation": body.CurrentInstallation,
			"activityLevel": body.ActivityLevel, "fitnessWaivers": body.FitnessWaivers,
			"dietaryRestrictions": body.DietaryRestrictions,
			"fitnessGoals":        body.FitnessGoals, "nutritionGoals": body.NutritionGoals,
			"fitnessPreferences":  body.FitnessPreferences,
			"diningFacilityUsage": body.DiningFacilityUsage,
			"onBaseRestaurantUsage":  body.OnBaseRestaurantUsage,
			"offBaseRestaurantUsage": body.OffBaseRestaurantUsage,
			"homeCookingFrequency":   body.HomeCookingFrequency,
			"diningFacilityAccess":   body.DiningFacilityAccess,
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save profile")
		return
	}

	c.JSON(http.StatusCreated, p)
}

// getDashboardLayout returns the stored dashboard layout (empty object when unset).
// GET /api/dashboard.
func (h *Handler) getDashboardLayout(c *gin.Context) {
	userID := c.GetString("user_id")

	p, err := queryOne[profile](h.db, c,
		"SELECT * FROM profiles WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch dashboard layout")
		return
	}

	layout := p.DashboardLayout
	if layout == nil {
		layout = map[string]any{}
	}
	c.JSON(http.StatusOK, layout)
}

// saveDashboardLayout replaces the stored dashboard layout wholesale.
// POST /api/dashboard.
func (h *Handler) saveDashboardLayout(c *gin.Context) {
	userID := c.GetString("user_id")

	var layout map[string]any
	if err := c.ShouldBindJSON(&layout); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := queryOne[profile](h.db, c,
		`UPDATE profiles SET dashboard_layout = @layout, updated_at = now()
		 WHERE user_id = @userID
		 RETURNING *`,
		pgx.NamedArgs{"layout": layout, "userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save dashboard layout")
		return
	}

	c.JSON(http.StatusOK, p.DashboardLayout)
}
