package main

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ScanDate implements pgtype.DateScanner so pgx can scan PostgreSQL date
// columns into DateOnly. NULL values zero the time and return nil so that
// *DateOnly pointer fields can be set to nil by pgx's NULL handling.
func (d *DateOnly) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		d.Time = time.Time{}
		return nil
	}
	d.Time = v.Time
	return nil
}

/* ─── Domain structs ─────────────────────────────────────────────────── */

// user maps to the users table. Password and RefreshToken are hidden from
// JSON responses.
type user struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	Password     string     `json:"-" db:"password"`
	Role         string     `json:"role" db:"role"`
	RefreshToken *string    `json:"-" db:"refresh_token"`
	CreatedAt    *time.Time `json:"created_at" db:"created_at"`
}

// profile maps to the profiles table. Every field except user_id is nullable
// so a freshly registered user has a valid (blank) row.
type profile struct {
	UserID                 string         `json:"user_id" db:"user_id"`
	Name                   *string        `json:"name" db:"name"`
	Age                    *int           `json:"age" db:"age"`
	Gender                 *string        `json:"gender" db:"gender"`
	HeightIN               *float64       `json:"height_in" db:"height_in"`
	WeightLBS              *float64       `json:"weight_lbs" db:"weight_lbs"`
	TargetWeightLBS        *float64       `json:"target_weight_lbs" db:"target_weight_lbs"`
	Branch                 *string        `json:"branch" db:"branch"`
	CurrentInstallation    *string        `json:"current_installation" db:"current_installation"`
	ActivityLevel          *string        `json:"activity_level" db:"activity_level"`
	FitnessWaivers         *string        `json:"fitness_waivers" db:"fitness_waivers"`
	DietaryRestrictions    *string        `json:"dietary_restrictions" db:"dietary_restrictions"`
	FitnessGoals           *string        `json:"fitness_goals" db:"fitness_goals"`
	NutritionGoals         *string        `json:"nutrition_goals" db:"nutrition_goals"`
	FitnessPreferences     *string        `json:"fitness_preferences" db:"fitness_preferences"`
	DiningFacilityUsage    *int           `json:"dining_facility_usage" db:"dining_facility_usage"`
	OnBaseRestaurantUsage  *int           `json:"on_base_restaurant_usage" db:"on_base_restaurant_usage"`
	OffBaseRestaurantUsage *int           `json:"off_base_restaurant_usage" db:"off_base_restaurant_usage"`
	HomeCookingFrequency   *int           `json:"home_cooking_frequency" db:"home_cooking_frequency"`
	DiningFacilityAccess   bool           `json:"dining_facility_access" db:"dining_facility_access"`
	DashboardLayout        map[string]any `json:"dashboard_layout,omitempty" db:"dashboard_layout"`
	CreatedAt              *time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt              *time.Time     `json:"updated_at" db:"updated_at"`
}

// workoutPlan maps to workout_plans. Plan holds the generated document as
// JSONB: {name, startDate, endDate, workoutGoal, workoutPlan: [days]}.
type workoutPlan struct {
	ID        string         `json:"id" db:"id"`
	UserID    string         `json:"user_id" db:"user_id"`
	Plan      map[string]any `json:"plan" db:"plan"`
	StartDate DateOnly       `json:"start_date" db:"start_date"`
	EndDate   DateOnly       `json:"end_date" db:"end_date"`
	CreatedAt *time.Time     `json:"created_at" db:"created_at"`
}

// nutritionPlan maps to nutrition_plans, same shape as workoutPlan.
type nutritionPlan struct {
	ID        string         `json:"id" db:"id"`
	UserID    string         `json:"user_id" db:"user_id"`
	Plan      map[string]any `json:"plan" db:"plan"`
	StartDate DateOnly       `json:"start_date" db:"start_date"`
	EndDate   DateOnly       `json:"end_date" db:"end_date"`
	CreatedAt *time.Time     `json:"created_at" db:"created_at"`
}

// nutritionLog maps to nutrition_logs: one row per logged day of intake.
type nutritionLog struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Date      DateOnly   `json:"date" db:"date"`
	Calories  int        `json:"calories" db:"calories"`
	ProteinG  *float64   `json:"protein_g" db:"protein_g"`
	CarbsG    *float64   `json:"carbs_g" db:"carbs_g"`
	FatG      *float64   `json:"fat_g" db:"fat_g"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

/* ─── Request bodies ─────────────────────────────────────────────────── */

// registerRequest is the request body for POST /api/auth/register.
type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
	Age      *int    `json:"age"`
	Branch   *string `json:"branch"`
}

// upsertProfileRequest is the request body for POST /api/profile.
// All fields are pointers; only provided fields overwrite the stored row.
type upsertProfileRequest struct {
	Name                   *string  `json:"name"`
	Age                    *int     `json:"age"`
	Gender                 *string  `json:"gender"`
	HeightIN               *float64 `json:"height_in"`
	WeightLBS              *float64 `json:"weight_lbs"`
	TargetWeightLBS        *float64 `json:"target_weight_lbs"`
	Branch                 *string  `json:"branch"`
	CurrentInstallation    *string  `json:"current_installation"`
	ActivityLevel          *string  `json:"activity_level"`
	FitnessWaivers         *string  `json:"fitness_waivers"`
	DietaryRestrictions    *string  `json:"dietary_restrictions"`
	FitnessGoals           *string  `json:"fitness_goals"`
	NutritionGoals         *string  `json:"nutrition_goals"`
	FitnessPreferences     *string  `json:"fitness_preferences"`
	DiningFacilityUsage    *int     `json:"dining_facility_usage"`
	OnBaseRestaurantUsage  *int     `json:"on_base_restaurant_usage"`
	OffBaseRestaurantUsage *int     `json:"off_base_restaurant_usage"`
	HomeCookingFrequency   *int     `json:"home_cooking_frequency"`
	DiningFacilityAccess   *bool    `json:"dining_facility_access"`
}

// generateWorkoutPlanRequest is the request body for POST /api/workout-plan.
type generateWorkoutPlanRequest struct {
	Goal          string `json:"goal"`
	DurationWeeks int    `json:"duration"`
	Branch        string `json:"branch"`
}

// generateNutritionPlanRequest is the request body for POST /api/nutrition-plan.
type generateNutritionPlanRequest struct {
	Goal                string  `json:"goal"`
	DietaryRestrictions *string `json:"dietary_restrictions"`
}

// logNutritionRequest is the request body for POST /api/nutrition-plan/log.
type logNutritionRequest struct {
	Date     string   `json:"date"`
	Calories int      `json:"calories"`
	ProteinG *float64 `json:"protein_g"`
	CarbsG   *float64 `json:"carbs_g"`
	FatG     *float64 `json:"fat_g"`
}

// chatRequest is the request body for POST /api/chat.
type chatRequest struct {
	UserInput string `json:"user_input"`
}
