package handlers

import (
	"context"
	"encoding/json"
	"io"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/internal/aggregation"
	"github.com/NomadCrew/nomad-budget-backend/internal/document"
	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/NomadCrew/nomad-budget-backend/middleware"
	expenseservice "github.com/NomadCrew/nomad-budget-backend/models/expense/service"
	reportservice "github.com/NomadCrew/nomad-budget-backend/models/report/service"
	tripservice "github.com/NomadCrew/nomad-budget-backend/models/trip/service"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/gin-gonic/gin"
)

// TripServiceInterface is the trip surface used by TripHandler and UserHandler.
type TripServiceInterface interface {
	ListTrips(ctx context.Context, userID string) ([]types.Trip, error)
	GetTrip(ctx context.Context, userID, tripID string) (*types.Trip, error)
	CreateTrip(ctx context.Context, userID string, doc document.Doc) (*types.Trip, error)
	UpdateTrip(ctx context.Context, userID, tripID string, doc document.Doc) (*types.Trip, error)
	DeleteTrip(ctx context.Context, userID, tripID string) error
	UploadCover(ctx context.Context, userID, tripID, filename string, r io.Reader) (*types.Trip, error)
	Overview(ctx context.Context, userID string) (*tripservice.Overview, error)
	ProfileStats(ctx context.Context, userID string) (types.ProfileStats, error)
	Import(ctx context.Context, userID string, raw []byte) (*tripservice.ImportResult, error)
}

type ExpenseServiceInterface interface {
	ListExpenses(ctx context.Context, userID, tripID string) ([]types.Expense, error)
	AddExpense(ctx context.Context, userID, tripID string, doc document.Doc) (*types.Expense, error)
	DeleteExpense(ctx context.Context, userID, tripID, expenseID string) error
}

type ReportServiceInterface interface {
	Report(ctx context.Context, userID, tripID string) (*aggregation.Report, error)
	ShareText(ctx context.Context, userID, tripID string) (string, error)
}

var (
	_ TripServiceInterface    = (*tripservice.TripManagementService)(nil)
	_ ReportServiceInterface  = (*reportservice.ReportService)(nil)
	_ ExpenseServiceInterface = (*expenseservice.ExpenseService)(nil)
)

// getUserIDFromContext returns the authenticated user ID or records a 401.
func getUserIDFromContext(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		_ = c.Error(apperrors.Unauthorized("missing_auth", "Authentication required"))
		return "", false
	}
	return userID, true
}

// bindDocument decodes a JSON object body keeping numbers exact.
func bindDocument(c *gin.Context) (document.Doc, bool) {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()

	var doc document.Doc
	if err := dec.Decode(&doc); err != nil || doc == nil {
		detail := "body must be a JSON object"
		if err != nil {
			detail = err.Error()
		}
		logger.GetLogger().Debugw("Invalid request body", "path", c.Request.URL.Path, "error", err)
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", detail))
		return nil, false
	}
	return doc, true
}
