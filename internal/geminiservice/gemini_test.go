package geminiservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcoach/internal/models"
	"fitcoach/internal/testutil"
)

func geminiReply(t *testing.T, text string) []byte {
	t.Helper()
	body := map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"parts": []interface{}{map[string]interface{}{"text": text}},
				},
			},
		},
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return b
}

func planJSON(t *testing.T, plan *models.FitnessPlan) string {
	t.Helper()
	b, err := json.Marshal(plan)
	require.NoError(t, err)
	return string(b)
}

func TestGeneratePlanSendsStructuredRequest(t *testing.T) {
	var payload GeminiPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Write(geminiReply(t, "```json\n"+planJSON(t, testutil.SevenDayPlan())+"\n```"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "test-key")
	plan, err := c.GeneratePlan(context.Background(), testutil.AlexProfile())
	require.NoError(t, err)

	assert.Len(t, plan.WorkoutPlan, models.PlanDays)
	assert.Len(t, plan.DietPlan, models.PlanDays)
	assert.Equal(t, "Push Ups", plan.WorkoutPlan[0].Exercises[0].Name)

	require.NotNil(t, payload.GenerationConfig)
	assert.Equal(t, "application/json", payload.GenerationConfig.ResponseMimeType)
	assert.Equal(t, 0.7, payload.GenerationConfig.Temperature)
	require.NotNil(t, payload.GenerationConfig.ResponseSchema)
	assert.ElementsMatch(t,
		[]string{"motivationQuote", "aiTips", "workoutPlan", "dietPlan"},
		payload.GenerationConfig.ResponseSchema.Required)
	require.Len(t, payload.Contents, 1)
	assert.Contains(t, payload.Contents[0].Parts[0].Text, "Name: Alex, Age: 30, Gender: Male")
}

func TestGeneratePlanNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", "k").GeneratePlan(context.Background(), testutil.AlexProfile())
	require.Error(t, err)
	assert.Equal(t, "Failed to generate plan from AI. Check Gemini key/quota.", err.Error())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Status, "429")
}

func TestGeneratePlanMakesSingleAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", "k").GeneratePlan(context.Background(), testutil.AlexProfile())
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGeneratePlanEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", "k").GeneratePlan(context.Background(), testutil.AlexProfile())
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, "AI failed to generate plan content.", err.Error())
}

func TestGeneratePlanRejectsBadPlans(t *testing.T) {
	short := testutil.SevenDayPlan()
	short.DietPlan = short.DietPlan[:6]

	cases := []struct {
		name string
		text string
		is   error
	}{
		{"malformed JSON", "{not json", nil},
		{"six diet days", planJSON(t, short), models.ErrInvalidPlan},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write(geminiReply(t, tc.text))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "", "k").GeneratePlan(context.Background(), testutil.AlexProfile())
			require.Error(t, err)
			var genErr *GenerationError
			assert.True(t, errors.As(err, &genErr))
			if tc.is != nil {
				assert.ErrorIs(t, err, tc.is)
			}
		})
	}
}

func TestGeneratePlanWithoutKey(t *testing.T) {
	_, err := NewClient("http://unused", "", "").GeneratePlan(context.Background(), testutil.AlexProfile())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBuildUserPrompt(t *testing.T) {
	p := testutil.AlexProfile()
	p.Height = 172.5

	prompt := BuildUserPrompt(p)
	assert.Contains(t, prompt, "- Body: 172.5cm / 65kg")
	assert.Contains(t, prompt, "- Location: Home (Design exercises for this location)")
	assert.Contains(t, prompt, "- Medical/Notes: None")

	p.MedicalHistory = "knee injury"
	assert.Contains(t, BuildUserPrompt(p), "- Medical/Notes: knee injury")
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence("  {\"a\":1}  "))
	assert.Equal(t, `{"a":1}`, stripFence("```\n{\"a\":1}```"))
}
