package router

import (
	"time"

	"github.com/NomadCrew/nomad-budget-backend/config"
	_ "github.com/NomadCrew/nomad-budget-backend/docs"
	"github.com/NomadCrew/nomad-budget-backend/handlers"
	"github.com/NomadCrew/nomad-budget-backend/internal/websocket"
	"github.com/NomadCrew/nomad-budget-backend/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config              *config.Config
	JWTValidator        middleware.Validator
	UserRecorder        middleware.UserRecorder
	RateLimiter         middleware.RateLimiter
	AuthHandler         *handlers.AuthHandler
	TripHandler         *handlers.TripHandler
	ExpenseHandler      *handlers.ExpenseHandler
	ReportHandler       *handlers.ReportHandler
	NotificationHandler *handlers.NotificationHandler
	UserHandler         *handlers.UserHandler
	HealthHandler       *handlers.HealthHandler
	LiveReportHandler   *websocket.Handler
	Logger              *zap.SugaredLogger
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if err := r.SetTrustedProxies(deps.Config.Server.TrustedProxies); err != nil && deps.Logger != nil {
		deps.Logger.Warnw("Invalid trusted proxy list, ignoring forwarded headers", "error", err)
		_ = r.SetTrustedProxies(nil)
	}

	// Global Middleware
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.SecurityHeadersMiddleware(deps.Config))
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))
	r.Use(middleware.ErrorHandler())

	// Health and Metrics Routes (no auth)
	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if !deps.Config.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	window := time.Duration(deps.Config.RateLimit.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	writeLimit := middleware.RateLimit(deps.RateLimiter, middleware.ByUser("write"), deps.Config.RateLimit.WriteRequestsPerMinute, window)
	authLimit := middleware.RateLimit(deps.RateLimiter, middleware.ByIP("auth"), deps.Config.RateLimit.AuthRequestsPerMinute, window)

	v1 := r.Group("/v1")
	{
		v1.GET("/categories", deps.ExpenseHandler.CategoriesHandler)
		v1.POST("/auth/refresh", authLimit, deps.AuthHandler.RefreshTokenHandler)

		authRoutes := v1.Group("")
		authRoutes.Use(middleware.AuthMiddleware(deps.JWTValidator, deps.UserRecorder))
		{
			authRoutes.GET("/me", deps.UserHandler.GetCurrentUser)
			authRoutes.POST("/import", writeLimit, deps.UserHandler.ImportHandler)

			tripRoutes := authRoutes.Group("/trips")
			{
				tripRoutes.GET("", deps.TripHandler.ListTripsHandler)
				tripRoutes.POST("", writeLimit, deps.TripHandler.CreateTripHandler)
				tripRoutes.GET("/overview", deps.TripHandler.OverviewHandler)
				tripRoutes.GET("/:id", deps.TripHandler.GetTripHandler)
				tripRoutes.PUT("/:id", writeLimit, deps.TripHandler.UpdateTripHandler)
				tripRoutes.DELETE("/:id", writeLimit, deps.TripHandler.DeleteTripHandler)
				tripRoutes.POST("/:id/cover", writeLimit, deps.TripHandler.UploadCoverHandler)

				expenseRoutes := tripRoutes.Group("/:id/expenses")
				{
					expenseRoutes.GET("", deps.ExpenseHandler.ListExpensesHandler)
					expenseRoutes.POST("", writeLimit, deps.ExpenseHandler.AddExpenseHandler)
					expenseRoutes.DELETE("/:expenseId", writeLimit, deps.ExpenseHandler.DeleteExpenseHandler)
				}

				reportRoutes := tripRoutes.Group("/:id/report")
				{
					reportRoutes.GET("", deps.ReportHandler.GetReportHandler)
					reportRoutes.GET("/share", deps.ReportHandler.ShareReportHandler)
					reportRoutes.GET("/live", deps.LiveReportHandler.HandleLiveReport)
				}
			}

			notificationRoutes := authRoutes.Group("/notifications")
			{
				notificationRoutes.GET("", deps.NotificationHandler.GetNotificationsByUser)
				notificationRoutes.GET("/unread-count", deps.NotificationHandler.GetUnreadNotificationCount)
				notificationRoutes.PATCH("/read-all", deps.NotificationHandler.MarkAllNotificationsRead)
				notificationRoutes.POST("/check-upcoming", deps.NotificationHandler.CheckUpcoming)
				notificationRoutes.PATCH("/:notificationId/read", deps.NotificationHandler.MarkNotificationAsRead)
				notificationRoutes.DELETE("/:notificationId", deps.NotificationHandler.DeleteNotification)
			}
		}
	}

	return r
}
