package handlers

import (
	"context"
	"io"
	"testing"

	"github.com/NomadCrew/nomad-budget-backend/internal/aggregation"
	"github.com/NomadCrew/nomad-budget-backend/internal/document"
	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/NomadCrew/nomad-budget-backend/middleware"
	tripservice "github.com/NomadCrew/nomad-budget-backend/models/trip/service"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func init() {
	logger.IsTest = true
}

const testUserID = "user-1"

// newTestRouter wires the error handler and a stand-in for AuthMiddleware.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Anonymous") == "" {
			c.Set(string(middleware.UserIDKey), testUserID)
			c.Set(string(middleware.UserKey), types.User{UID: testUserID, Email: "asha@example.com", DisplayName: "Asha"})
		}
		c.Next()
	})
	return r
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

type MockTripService struct {
	mock.Mock
}

func (m *MockTripService) ListTrips(ctx context.Context, userID string) ([]types.Trip, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Trip), args.Error(1)
}

func (m *MockTripService) GetTrip(ctx context.Context, userID, tripID string) (*types.Trip, error) {
	args := m.Called(ctx, userID, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *MockTripService) CreateTrip(ctx context.Context, userID string, doc document.Doc) (*types.Trip, error) {
	args := m.Called(ctx, userID, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *MockTripService) UpdateTrip(ctx context.Context, userID, tripID string, doc document.Doc) (*types.Trip, error) {
	args := m.Called(ctx, userID, tripID, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *MockTripService) DeleteTrip(ctx context.Context, userID, tripID string) error {
	return m.Called(ctx, userID, tripID).Error(0)
}

func (m *MockTripService) UploadCover(ctx context.Context, userID, tripID, filename string, r io.Reader) (*types.Trip, error) {
	data, _ := io.ReadAll(r)
	args := m.Called(ctx, userID, tripID, filename, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *MockTripService) Overview(ctx context.Context, userID string) (*tripservice.Overview, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tripservice.Overview), args.Error(1)
}

func (m *MockTripService) ProfileStats(ctx context.Context, userID string) (types.ProfileStats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(types.ProfileStats), args.Error(1)
}

func (m *MockTripService) Import(ctx context.Context, userID string, raw []byte) (*tripservice.ImportResult, error) {
	args := m.Called(ctx, userID, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tripservice.ImportResult), args.Error(1)
}

type MockExpenseService struct {
	mock.Mock
}

func (m *MockExpenseService) ListExpenses(ctx context.Context, userID, tripID string) ([]types.Expense, error) {
	args := m.Called(ctx, userID, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Expense), args.Error(1)
}

func (m *MockExpenseService) AddExpense(ctx context.Context, userID, tripID string, doc document.Doc) (*types.Expense, error) {
	args := m.Called(ctx, userID, tripID, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Expense), args.Error(1)
}

func (m *MockExpenseService) DeleteExpense(ctx context.Context, userID, tripID, expenseID string) error {
	return m.Called(ctx, userID, tripID, expenseID).Error(0)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Report(ctx context.Context, userID, tripID string) (*aggregation.Report, error) {
	args := m.Called(ctx, userID, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aggregation.Report), args.Error(1)
}

func (m *MockReportService) ShareText(ctx context.Context, userID, tripID string) (string, error) {
	args := m.Called(ctx, userID, tripID)
	return args.String(0), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) GetNotifications(ctx context.Context, userID string, limit, offset int, unreadOnly bool) ([]types.Notification, error) {
	args := m.Called(ctx, userID, limit, offset, unreadOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Notification), args.Error(1)
}

func (m *MockNotificationService) GetUnreadNotificationCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationService) MarkNotificationAsRead(ctx context.Context, userID string, notificationID uuid.UUID) error {
	return m.Called(ctx, userID, notificationID).Error(0)
}

func (m *MockNotificationService) MarkAllNotificationsAsRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) DeleteNotification(ctx context.Context, userID string, notificationID uuid.UUID) error {
	return m.Called(ctx, userID, notificationID).Error(0)
}

func (m *MockNotificationService) CheckUpcoming(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationService) SweepUpcoming(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
