package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

/* ─── OpenAI HTTP client ─────────────────────────────────────────────── */

// openAIMessage is a single message in the OpenAI chat completions request.
type openAIMessage struct {
	Role         string              `json:"role"`
	Content      string              `json:"content"`
	Name         string              `json:"name,omitempty"`
	FunctionCall *openAIFunctionCall `json:"function_call,omitempty"`
}

// openAIFunctionCall is the model's request to invoke a declared function.
// Arguments is a JSON-encoded string, per the API contract.
type openAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// openAIFunction declares a callable function with a JSON-schema parameter spec.
type openAIFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// openAIRequest is the request body for the OpenAI chat completions API.
type openAIRequest struct {
	Model        string           `json:"model"`
	Messages     []openAIMessage  `json:"messages"`
	MaxTokens    int              `json:"max_tokens,omitempty"`
	Temperature  *float64         `json:"temperature,omitempty"`
	Functions    []openAIFunction `json:"functions,omitempty"`
	FunctionCall any              `json:"function_call,omitempty"`
}

// callOpenAI sends a chat completions request and returns the first choice's
// message. Uses raw net/http to avoid pulling in the OpenAI SDK. baseURL is
// overridable so tests can point at an httptest server.
func callOpenAI(ctx context.Context, baseURL string, reqBody openAIRequest) (openAIMessage, error) {
	var zero openAIMessage

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return zero, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return zero, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return zero, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return zero, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return zero, fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(respBytes))
	}

	var result struct {
		Choices []struct {
			Message openAIMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return zero, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return zero, fmt.Errorf("no choices in response")
	}

	return result.Choices[0].Message, nil
}

// callOpenAIFunction forces a single named function call and unmarshals the
// returned arguments into out.
func callOpenAIFunction(ctx context.Context, baseURL string, messages []openAIMessage, fn openAIFunction, out any) error {
	msg, err := callOpenAI(ctx, baseURL, openAIRequest{
		Model:        "gpt-4o",
		Messages:     messages,
		Functions:    []openAIFunction{fn},
		FunctionCall: map[string]string{"name": fn.Name},
	})
	if err != nil {
		return err
	}
	if msg.FunctionCall == nil || msg.FunctionCall.Name != fn.Name {
		return fmt.Errorf("model did not call %s", fn.Name)
	}
	if err := json.Unmarshal([]byte(msg.FunctionCall.Arguments), out); err != nil {
		return fmt.Errorf("unmarshal %s arguments: %w", fn.Name, err)
	}
	return nil
}

/* ─── Function schemas ───────────────────────────────────────────────── */

// workoutPlanFunction is the schema the model fills when generating a workout plan.
var workoutPlanFunction = openAIFunction{
	Name:        "generate_workout_plan",
	Description: "Generate a workout plan based on user profile.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":        map[string]any{"type": "string", "description": "Name of the workout plan"},
			"startDate":   map[string]any{"type": "string", "format": "date", "description": "Start date of the workout plan"},
			"endDate":     map[string]any{"type": "string", "format": "date", "description": "End date of the workout plan"},
			"workoutGoal": map[string]any{"type": "string", "description": "Goal of the workout plan"},
			"workoutPlan": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"day":            map[string]any{"type": "string", "format": "date", "description": "Date of the workout"},
						"summary":        map[string]any{"type": "string"},
						"duration":       map[string]any{"type": "integer", "minimum": 0},
						"caloriesBurned": map[string]any{"type": "integer", "minimum": 0},
						"workoutType": map[string]any{
							"type": "string",
							"enum": []string{"cardio", "strength", "yoga", "hiit", "rest"},
						},
						"exercises": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"name":     map[string]any{"type": "string"},
									"sets":     map[string]any{"type": "integer", "minimum": 1},
									"reps":     map[string]any{"type": "integer", "minimum": 1},
									"duration": map[string]any{"type": "integer", "minimum": 1},
								},
								"required": []string{"name"},
							},
						},
					},
					"required": []string{"day", "summary", "duration", "caloriesBurned", "workoutType", "exercises"},
				},
			},
		},
		"required": []string{"name", "startDate", "endDate", "workoutGoal", "workoutPlan"},
	},
}

// nutritionPlanFunction is the schema the model fills when generating a nutrition plan.
var nutritionPlanFunction = openAIFunction{
	Name:        "generate_nutrition_plan",
	Description: "Generate a personalized nutrition plan based on user profile and dining facility menu",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"startDate": map[string]any{"type": "string", "format": "date", "description": "Start date of the nutrition plan"},
			"endDate":   map[string]any{"type": "string", "format": "date", "description": "End date of the nutrition plan"},
			"goal": map[string]any{
				"type":        "string",
				"enum":        []string{"weight_loss", "muscle_gain", "maintenance", "performance"},
				"description": "Goal of the nutrition plan",
			},
			"dailyCalorieTarget": map[string]any{"type": "number", "description": "Target daily calorie intake"},
			"protein":            map[string]any{"type": "number", "description": "Target daily protein intake"},
			"carbohydrates":      map[string]any{"type": "number", "description": "Target daily carbohydrate intake"},
			"fat":                map[string]any{"type": "number", "description": "Target daily fat intake"},
			"weeklyPlan": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"day": map[string]any{"type": "string", "format": "date", "description": "Date of the meal plan"},
						"meals": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"name": map[string]any{"type": "string"},
									"time": map[string]any{"type": "string"},
									"diningFacilityOptions": map[string]any{
										"type": "array",
										"items": map[string]any{
											"type": "object",
											"properties": map[string]any{
												"name":      map[string]any{"type": "string"},
												"portion":   map[string]any{"type": "string"},
												"calories":  map[string]any{"type": "number"},
												"allergens": map[string]any{"type": "string"},
											},
										},
									},
									"alternativeOptions": map[string]any{
										"type": "array",
										"items": map[string]any{
											"type": "object",
											"properties": map[string]any{
												"name":     map[string]any{"type": "string"},
												"amount":   map[string]any{"type": "string"},
												"calories": map[string]any{"type": "number"},
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
		"required": []string{"startDate", "endDate", "goal", "dailyCalorieTarget", "protein", "carbohydrates", "fat", "weeklyPlan"},
	},
}

// diningFacilityFunction lets the chat model pull a specific day/meal menu.
var diningFacilityFunction = openAIFunction{
	Name:        "get_dining_facility_menu",
	Description: "Fetch the dining facility's menu for a specific day and meal.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"day": map[string]any{
				"type":        "string",
				"enum":        []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
				"description": "Day of the week to fetch menu for",
			},
			"meal": map[string]any{
				"type":        "string",
				"enum":        []string{"Breakfast", "Lunch", "Dinner"},
				"description": "Meal time to fetch menu for",
			},
		},
		"required": []string{"day", "meal"},
	},
}
