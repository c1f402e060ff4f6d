package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/rsvp-admission/internal/dto"
	"github.com/gatherly/rsvp-admission/internal/service"
)

func setupFormRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewFormHandler(service.NewFormService())
	router.POST("/api/v1/forms/evaluate", handler.Evaluate)
	return router
}

func postForm(router *gin.Engine, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", "/api/v1/forms/evaluate", bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestFormHandler_EvaluateValidAnswers(t *testing.T) {
	router := setupFormRouter()

	w := postForm(router, dto.EvaluateFormRequest{
		Fields: []dto.FormFieldPayload{
			{ID: "name", Type: "text", Label: "Name", Required: true, Order: 1},
		},
		Answers: map[string]any{"name": "Ada"},
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.EvaluateFormResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	assert.Len(t, resp.VisibleFields, 1)
	assert.Empty(t, resp.Errors)
}

func TestFormHandler_EvaluateReportsFieldErrors(t *testing.T) {
	router := setupFormRouter()

	w := postForm(router, dto.EvaluateFormRequest{
		Fields: []dto.FormFieldPayload{
			{ID: "contact", Type: "email", Label: "Contact email", Required: true, Order: 1},
		},
		Answers: map[string]any{"contact": "nope"},
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.EvaluateFormResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	assert.Contains(t, resp.Errors, "contact")
}

func TestFormHandler_EvaluateConditionalVisibility(t *testing.T) {
	router := setupFormRouter()

	req := dto.EvaluateFormRequest{
		Fields: []dto.FormFieldPayload{
			{ID: "diet", Type: "select", Label: "Diet", Options: []string{"vegan", "none"}, Order: 1},
			{
				ID: "allergies", Type: "text", Label: "Allergies", Required: true, Order: 2,
				Conditions: []dto.FieldConditionPayload{
					{FieldID: "diet", Operator: "not_equals", Value: "none"},
				},
			},
		},
		Answers: map[string]any{"diet": "none"},
	}

	w := postForm(router, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.EvaluateFormResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	assert.Len(t, resp.VisibleFields, 1)
}

func TestFormHandler_EvaluateMissingFieldsIsBadRequest(t *testing.T) {
	router := setupFormRouter()

	w := postForm(router, map[string]any{"answers": map[string]any{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
