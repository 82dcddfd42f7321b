package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/internal/document"
	tripservice "github.com/NomadCrew/nomad-budget-backend/models/trip/service"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTripRouter(t *testing.T, svc *MockTripService) *gin.Engine {
	r := newTestRouter(t)
	h := NewTripHandler(svc, 1024, testLogger())
	r.GET("/v1/trips", h.ListTripsHandler)
	r.POST("/v1/trips", h.CreateTripHandler)
	r.GET("/v1/trips/overview", h.OverviewHandler)
	r.GET("/v1/trips/:id", h.GetTripHandler)
	r.PUT("/v1/trips/:id", h.UpdateTripHandler)
	r.DELETE("/v1/trips/:id", h.DeleteTripHandler)
	r.POST("/v1/trips/:id/cover", h.UploadCoverHandler)
	return r
}

func TestCreateTripHandler(t *testing.T) {
	svc := new(MockTripService)
	r := setupTripRouter(t, svc)

	expectedDoc := document.Doc{"name": "Goa", "totalBudget": json.Number("1000.50")}
	svc.On("CreateTrip", mock.Anything, testUserID, expectedDoc).
		Return(&types.Trip{ID: "trip-1", Name: "Goa", TotalBudget: decimal.RequireFromString("1000.50")}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/trips", strings.NewReader(`{"name":"Goa","totalBudget":1000.50}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var got types.Trip
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "trip-1", got.ID)
	assert.Equal(t, "1000.5", got.TotalBudget.String())
	svc.AssertExpectations(t)
}

func TestCreateTripHandler_InvalidBody(t *testing.T) {
	svc := new(MockTripService)
	r := setupTripRouter(t, svc)

	for _, body := range []string{`not json`, `[1,2]`, `null`} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/trips", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	svc.AssertNotCalled(t, "CreateTrip", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateTripHandler_ValidationFromService(t *testing.T) {
	svc := new(MockTripService)
	r := setupTripRouter(t, svc)
	svc.On("CreateTrip", mock.Anything, testUserID, mock.Anything).
		Return(nil, apperrors.ValidationFailed("Invalid trip", "name is required"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/trips", strings.NewReader(`{"name":""}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name is required")
}

func TestGetTripHandler(t *testing.T) {
	svc := new(MockTripService)
	r := setupTripRouter(t, svc)

	svc.On("GetTrip", mock.Anything, testUserID, "trip-1").Return(&types.Trip{ID: "trip-1", Name: "Goa"}, nil)
	svc.On("GetTrip", mock.Anything, testUserID, "missing").Return(nil, apperrors.TripNotFound("missing"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/trips/trip-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/trips/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "TRIP_NOT_FOUND")
}

func TestListTripsHandler_Unauthenticated(t *testing.T) {
	svc := new(MockTripService)
	r := setupTripRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/trips", nil)
	req.Header.Set("X-Anonymous", "1")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "ListTrips", mock.Anything, mock.Anything)
}

func TestUpdateAndDeleteTripHandler(t *testing.T) {
	svc := new(MockTripService)
	r := setupTripRouter(t, svc)

	svc.On("UpdateTrip", mock.Anything, testUserID, "trip-1", document.Doc{"name": "Goa 2"}).
		Return(&types.Trip{ID: "trip-1", Name: "Goa 2"}, nil)
	svc.On("DeleteTrip", mock.Anything, testUserID, "trip-1").Return(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/v1/trips/trip-1", strings.NewReader(`{"name":"Goa 2"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Goa 2")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/trips/trip-1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}

func TestOverviewHandler(t *testing.T) {
	svc := new(MockTripService)
	r := setupTripRouter(t, svc)

	overview := &tripservice.Overview{
		Active:     []tripservice.TripSummary{{Trip: types.Trip{ID: "a"}, TotalSpent: decimal.NewFromInt(250), PercentSpent: decimal.NewFromInt(25)}},
		Upcoming:   []tripservice.TripSummary{},
		Historical: []tripservice.TripSummary{},
	}
	svc.On("Overview", mock.Anything, testUserID).Return(overview, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/trips/overview", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string][]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body["active"], 1)
	assert.Equal(t, "a", body["active"][0]["id"])
	svc.AssertNotCalled(t, "GetTrip", mock.Anything, mock.Anything, "overview")
}

func multipartImage(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestUploadCoverHandler(t *testing.T) {
	svc := new(MockTripService)
	r := setupTripRouter(t, svc)

	png := []byte("\x89PNG\r\n\x1a\nfake")
	svc.On("UploadCover", mock.Anything, testUserID, "trip-1", "cover.png", png).
		Return(&types.Trip{ID: "trip-1", Image: "https://cdn.example.com/covers/trip-1.png"}, nil)

	body, contentType := multipartImage(t, "image", "cover.png", png)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/trips/trip-1/cover", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "covers/trip-1.png")
	svc.AssertExpectations(t)
}

func TestUploadCoverHandler_MissingFile(t *testing.T) {
	svc := new(MockTripService)
	r := setupTripRouter(t, svc)

	body, contentType := multipartImage(t, "other", "cover.png", []byte("x"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/trips/trip-1/cover", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadCoverHandler_TooLarge(t *testing.T) {
	svc := new(MockTripService)
	r := setupTripRouter(t, svc)

	body, contentType := multipartImage(t, "image", "big.png", bytes.Repeat([]byte("a"), 200*1024))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/trips/trip-1/cover", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "UploadCover", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
