package main

import (
	"math"
	"strings"
)

// activityMultipliers maps canonical activity levels to their TDEE multiplier.
var activityMultipliers = map[string]float64{
	"sedentary": 1.2,
	"light":     1.375,
	"moderate":  1.55,
	"very":      1.725,
	"extra":     1.9,
}

// activityLevelAliases maps the profile's stored activity level strings to
// the canonical keys above. Unknown values fall back to "moderate".
var activityLevelAliases = map[string]string{
	"inactive":         "sedentary",
	"light":            "light",
	"moderate":         "moderate",
	"very_active":      "very",
	"extremely_active": "extra",
}

// mapActivityLevel canonicalizes a stored activity level, defaulting to moderate.
func mapActivityLevel(level string) string {
	if mapped, ok := activityLevelAliases[level]; ok {
		return mapped
	}
	return "moderate"
}

// computeBMR computes basal metabolic rate via the Mifflin-St Jeor constants.
// Weight is taken in pounds and height in inches, matching the upstream
// profile data as the system has always consumed it.
func computeBMR(gender string, age int, heightIN, weightLBS float64) float64 {
	bmr := 10*weightLBS + 6.25*heightIN - 5*float64(age)
	if strings.EqualFold(gender, "male") {
		return bmr + 5
	}
	return bmr - 161
}

// dailyCalorieTarget derives a daily calorie target from BMR, activity level,
// and the direction of the weight goal: a flat 500-calorie deficit when the
// current weight exceeds the target, a 500-calorie surplus otherwise.
func dailyCalorieTarget(gender string, age int, heightIN, weightLBS, targetWeightLBS float64, activityLevel string) int {
	bmr := computeBMR(gender, age, heightIN, weightLBS)
	tdee := bmr * activityMultipliers[mapActivityLevel(activityLevel)]

	adjustment := 500.0
	if weightLBS > targetWeightLBS {
		adjustment = -500.0
	}
	return int(math.Round(tdee + adjustment))
}
