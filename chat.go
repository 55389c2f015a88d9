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

// chatMaxTokens bounds the assistant's reply length.
const chatMaxTokens = 250

// chat answers questions about the user's plans and profile. The model may
// call get_dining_facility_menu once; its result is fed back before the
// final answer.
// POST /api/chat.
func (h *Handler) chat(c *gin.Context) {
	userID := c.GetString("user_id")

	var body chatRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.UserInput == "" {
		apiError(c, http.StatusBadRequest, "user_input is required")
		return
	}

	p, err := queryOne[profile](h.db, c,
		"SELECT * FROM profiles WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		return
	}
	profileJSON, _ := json.Marshal(p)

	// Latest plans are optional context; missing plans just leave their
	// block out, and the model is told not to invent records.
	contextBlocks := ""
	if wp, err := queryOne[workoutPlan](h.db, c,
		`SELECT * FROM workout_plans WHERE user_id = @userID
		 ORDER BY created_at DESC LIMIT 1`,
		pgx.NamedArgs{"userID": userID}); err == nil {
		if planJSON, err := json.Marshal(wp.Plan); err == nil {
			contextBlocks += fmt.Sprintf("Workout Plan: %s\n\n", planJSON)
		}
	}
	if np, err := queryOne[nutritionPlan](h.db, c,
		`SELECT * FROM nutrition_plans WHERE user_id = @userID
		 ORDER BY created_at DESC LIMIT 1`,
		pgx.NamedArgs{"userID": userID}); err == nil {
		if planJSON, err := json.Marshal(np.Plan); err == nil {
			contextBlocks += fmt.Sprintf("Nutrition Plan: %s\n\n", planJSON)
		}
	}

	messages := []openAIMessage{
		{Role: "system", Content: fmt.Sprintf(
			"You are a helpful assistant that answers questions about the content of a workout "+
				"and nutrition plan based on its contents and provides suggestions based on the "+
				"user's profile data. If any workout plan, nutrition plan, or profile data is not "+
				"included in the context then you should NOT make up facts. Simply state that the "+
				"user does not have any of this data in their records. Today's date is %s and the "+
				"user profile data includes %s.",
			time.Now().Format("2006-01-02"), profileJSON)},
		{Role: "user", Content: contextBlocks + "Question: " + body.UserInput},
	}

	msg, err := callOpenAI(c.Request.Context(), h.openAIBaseURL, openAIRequest{
		Model:     "gpt-4o",
		Messages:  messages,
		MaxTokens: chatMaxTokens,
		Functions: []openAIFunction{diningFacilityFunction},
	})
	if err != nil {
		log.Printf("[chat] OpenAI error: %v", err)
		apiError(c, http.StatusInternalServerError, "an internal error occurred, please try again later")
		return
	}

	// One tool round: resolve the menu request and ask again for the answer.
	if msg.FunctionCall != nil && msg.FunctionCall.Name == diningFacilityFunction.Name {
		messages = append(messages, msg)
		messages = append(messages, openAIMessage{
			Role:    "function",
			Name:    diningFacilityFunction.Name,
			Content: h.resolveMenuCall(c, msg.FunctionCall.Arguments),
		})

		msg, err = callOpenAI(c.Request.Context(), h.openAIBaseURL, openAIRequest{
			Model:     "gpt-4o",
			Messages:  messages,
			MaxTokens: chatMaxTokens,
		})
		if err != nil {
			log.Printf("[chat] OpenAI error: %v", err)
			apiError(c, http.StatusInternalServerError, "an internal error occurred, please try again later")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"response": msg.Content})
}

// resolveMenuCall executes a get_dining_facility_menu call and encodes the
// outcome as the function-result payload: {success, data} or {success, error}.
func (h *Handler) resolveMenuCall(c *gin.Context, arguments string) string {
	var args struct {
		Day  string `json:"day"`
		Meal string `json:"meal"`
	}
	result := map[string]any{"success": false}

	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		result["error"] = "invalid function arguments"
	} else if menu, err := h.menu.MenuFor(c.Request.Context(), args.Day, args.Meal); err != nil {
		log.Printf("[chat] dining menu lookup failed: %v", err)
		result["error"] = "failed to fetch dining facility menu"
	} else {
		result["success"] = true
		result["data"] = menu
	}

	encoded, _ := json.Marshal(result)
	return string(encoded)
}
