package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallOpenAI_ReturnsFirstChoice(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": "first"}},
				map[string]any{"message": map[string]any{"role": "assistant", "content": "second"}},
			},
		})
	}))
	defer server.Close()

	msg, err := callOpenAI(context.Background(), server.URL, openAIRequest{
		Model:    "gpt-4o",
		Messages: []openAIMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "first", msg.Content)
}

func TestCallOpenAI_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := callOpenAI(context.Background(), "http://unused", openAIRequest{Model: "gpt-4o"})
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestCallOpenAI_UpstreamError(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := callOpenAI(context.Background(), server.URL, openAIRequest{Model: "gpt-4o"})
	assert.ErrorContains(t, err, "status 429")
}

func TestCallOpenAI_NoChoices(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	_, err := callOpenAI(context.Background(), server.URL, openAIRequest{Model: "gpt-4o"})
	assert.ErrorContains(t, err, "no choices")
}

func TestCallOpenAIFunction_UnmarshalsArguments(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Functions, 1)
		assert.Equal(t, map[string]any{"name": "generate_nutrition_plan"}, req.FunctionCall)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{
					"role": "assistant",
					"function_call": map[string]any{
						"name":      "generate_nutrition_plan",
						"arguments": `{"goal":"maintenance","dailyCalorieTarget":2500}`,
					},
				}},
			},
		})
	}))
	defer server.Close()

	var out map[string]any
	err := callOpenAIFunction(context.Background(), server.URL,
		[]openAIMessage{{Role: "user", Content: "plan please"}},
		nutritionPlanFunction, &out)
	require.NoError(t, err)
	assert.Equal(t, "maintenance", out["goal"])
	assert.Equal(t, 2500.0, out["dailyCalorieTarget"])
}

func TestCallOpenAIFunction_WrongFunctionReturned(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{
					"role":          "assistant",
					"function_call": map[string]any{"name": "something_else", "arguments": "{}"},
				}},
			},
		})
	}))
	defer server.Close()

	var out map[string]any
	err := callOpenAIFunction(context.Background(), server.URL, nil, workoutPlanFunction, &out)
	assert.ErrorContains(t, err, "did not call generate_workout_plan")
}
