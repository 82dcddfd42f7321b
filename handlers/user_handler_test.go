package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NomadCrew/nomad-budget-backend/internal/document"
	tripservice "github.com/NomadCrew/nomad-budget-backend/models/trip/service"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupUserRouter(t *testing.T, svc *MockTripService) *gin.Engine {
	r := newTestRouter(t)
	h := NewUserHandler(svc, testLogger())
	r.GET("/v1/me", h.GetCurrentUser)
	r.POST("/v1/import", h.ImportHandler)
	return r
}

func TestGetCurrentUser(t *testing.T) {
	svc := new(MockTripService)
	r := setupUserRouter(t, svc)
	svc.On("ProfileStats", mock.Anything, testUserID).Return(types.ProfileStats{TotalTrips: 3, ActiveTrips: 1}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/me", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got types.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, testUserID, got.User.UID)
	assert.Equal(t, "Asha", got.User.DisplayName)
	assert.Equal(t, 3, got.Stats.TotalTrips)
}

func TestGetCurrentUser_Anonymous(t *testing.T) {
	svc := new(MockTripService)
	r := setupUserRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("X-Anonymous", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "ProfileStats", mock.Anything, mock.Anything)
}

func TestImportHandler(t *testing.T) {
	svc := new(MockTripService)
	r := setupUserRouter(t, svc)

	raw := []byte(`{"trips":[{"name":"Goa","totalBudget":"1000","expenses":[{"title":"Taxi","amount":12}]},{"name":""}]}`)
	svc.On("Import", mock.Anything, testUserID, raw).Return(&tripservice.ImportResult{
		Trips:    []types.Trip{{ID: "trip-1", Name: "Goa"}},
		Expenses: 1,
		Skipped:  []document.Skipped{{Path: "trips[1]", Reason: "name is required"}},
	}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/import", bytes.NewReader(raw)))

	require.Equal(t, http.StatusCreated, w.Code)
	var got tripservice.ImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got.Trips, 1)
	assert.Equal(t, 1, got.Expenses)
	require.Len(t, got.Skipped, 1)
	assert.Equal(t, "trips[1]", got.Skipped[0].Path)
}

func TestImportHandler_TooLarge(t *testing.T) {
	svc := new(MockTripService)
	r := setupUserRouter(t, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/import", bytes.NewReader(make([]byte, maxImportBytes+10))))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Import", mock.Anything, mock.Anything, mock.Anything)
}
