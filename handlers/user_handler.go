package handlers

import (
	"io"
	"net/http"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/middleware"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxImportBytes bounds the body of POST /import.
const maxImportBytes = 5 << 20

// UserHandler serves the current user's profile and data import.
type UserHandler struct {
	trips  TripServiceInterface
	logger *zap.Logger
}

func NewUserHandler(trips TripServiceInterface, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		trips:  trips,
		logger: logger.Named("UserHandler"),
	}
}

// GetCurrentUser godoc
// @Summary Current user
// @Description Identity from the access token plus trip statistics
// @Tags users
// @Produce json
// @Success 200 {object} types.Profile
// @Failure 401 {object} middleware.ErrorResponse
// @Router /me [get]
// @Security BearerAuth
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		_ = c.Error(apperrors.Unauthorized("missing_auth", "Authentication required"))
		return
	}

	stats, err := h.trips.ProfileStats(c.Request.Context(), user.UID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.Profile{User: user, Stats: stats})
}

// ImportHandler godoc
// @Summary Import trips and expenses
// @Description Accepts a {"trips": [...]} export with nested expenses. Invalid documents are skipped and reported.
// @Tags users
// @Accept json
// @Produce json
// @Param request body docs.ImportRequest true "Export document"
// @Success 201 {object} service.ImportResult
// @Failure 400 {object} middleware.ErrorResponse
// @Router /import [post]
// @Security BearerAuth
func (h *UserHandler) ImportHandler(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes+1))
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid import", err.Error()))
		return
	}
	if len(raw) > maxImportBytes {
		_ = c.Error(apperrors.ValidationFailed("Invalid import", "export is larger than 5MB"))
		return
	}

	result, err := h.trips.Import(c.Request.Context(), userID, raw)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.logger.Info("Import finished",
		zap.String("userID", userID),
		zap.Int("trips", len(result.Trips)),
		zap.Int("expenses", result.Expenses),
		zap.Int("skipped", len(result.Skipped)))
	c.JSON(http.StatusCreated, result)
}
