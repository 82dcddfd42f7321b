package handlers

import (
	"net/http"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TripHandler handles HTTP requests related to trips.
type TripHandler struct {
	trips          TripServiceInterface
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewTripHandler creates a new TripHandler. maxUploadBytes bounds the
// multipart body of cover uploads.
func NewTripHandler(trips TripServiceInterface, maxUploadBytes int64, logger *zap.Logger) *TripHandler {
	return &TripHandler{
		trips:          trips,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.Named("TripHandler"),
	}
}

// ListTripsHandler godoc
// @Summary List trips
// @Description Lists the authenticated user's trips, newest first
// @Tags trips
// @Produce json
// @Success 200 {array} types.Trip
// @Failure 401 {object} middleware.ErrorResponse
// @Router /trips [get]
// @Security BearerAuth
func (h *TripHandler) ListTripsHandler(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	trips, err := h.trips.ListTrips(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, trips)
}

// CreateTripHandler godoc
// @Summary Create a trip
// @Description Creates a trip from a loosely typed document; amounts, dates and members are coerced
// @Tags trips
// @Accept json
// @Produce json
// @Param request body docs.TripRequest true "Trip document"
// @Success 201 {object} types.Trip
// @Failure 400 {object} middleware.ErrorResponse
// @Router /trips [post]
// @Security BearerAuth
func (h *TripHandler) CreateTripHandler(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	doc, ok := bindDocument(c)
	if !ok {
		return
	}

	trip, err := h.trips.CreateTrip(c.Request.Context(), userID, doc)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, trip)
}

// GetTripHandler godoc
// @Summary Get a trip
// @Tags trips
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} types.Trip
// @Failure 404 {object} middleware.ErrorResponse
// @Router /trips/{id} [get]
// @Security BearerAuth
func (h *TripHandler) GetTripHandler(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	trip, err := h.trips.GetTrip(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// UpdateTripHandler godoc
// @Summary Update a trip
// @Description Applies a partial update; only the fields present are changed
// @Tags trips
// @Accept json
// @Produce json
// @Param id path string true "Trip ID"
// @Param request body docs.TripRequest true "Fields to change"
// @Success 200 {object} types.Trip
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /trips/{id} [put]
// @Security BearerAuth
func (h *TripHandler) UpdateTripHandler(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	doc, ok := bindDocument(c)
	if !ok {
		return
	}

	trip, err := h.trips.UpdateTrip(c.Request.Context(), userID, c.Param("id"), doc)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// DeleteTripHandler godoc
// @Summary Delete a trip
// @Tags trips
// @Param id path string true "Trip ID"
// @Success 204 "No Content"
// @Failure 404 {object} middleware.ErrorResponse
// @Router /trips/{id} [delete]
// @Security BearerAuth
func (h *TripHandler) DeleteTripHandler(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.trips.DeleteTrip(c.Request.Context(), userID, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// OverviewHandler godoc
// @Summary Trips overview
// @Description Groups trips into active, upcoming and historical with spend per trip
// @Tags trips
// @Produce json
// @Success 200 {object} service.Overview
// @Router /trips/overview [get]
// @Security BearerAuth
func (h *TripHandler) OverviewHandler(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	overview, err := h.trips.Overview(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// UploadCoverHandler godoc
// @Summary Upload a trip cover image
// @Tags trips
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Trip ID"
// @Param image formData file true "JPEG, PNG, WebP or HEIC image"
// @Success 200 {object} types.Trip
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse
// @Router /trips/{id}/cover [post]
// @Security BearerAuth
func (h *TripHandler) UploadCoverHandler(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	if h.maxUploadBytes > 0 {
		// Leave room for multipart framing around the file itself.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+64*1024)
	}

	header, err := c.FormFile("image")
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("Missing image", err.Error()))
		return
	}
	file, err := header.Open()
	if err != nil {
		_ = c.Error(apperrors.InvalidUpload("Unreadable image", err.Error()))
		return
	}
	defer file.Close()

	trip, err := h.trips.UploadCover(c.Request.Context(), userID, c.Param("id"), header.Filename, file)
	if err != nil {
		h.logger.Warn("Cover upload failed", zap.String("userID", userID), zap.String("tripID", c.Param("id")), zap.Error(err))
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, trip)
}
