package routes

import (
	"net/http"

	adminapi "compliance-training/internal/api/admin"
	authapi "compliance-training/internal/api/auth"
	"compliance-training/internal/api/checkout"
	coursesapi "compliance-training/internal/api/courses"
	stripewebhooks "compliance-training/internal/api/stripewebhook"
	"compliance-training/internal/api/teams"
	"compliance-training/internal/api/users"
	"compliance-training/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type Handlers struct {
	Auth     *authapi.Handler
	Checkout *checkout.Handler
	Webhook  *stripewebhooks.Handler
	Courses  *coursesapi.Handler
	Users    *users.Handler
	Teams    *teams.Handler
	Admin    *adminapi.Handler
}

func RegisterRoutes(r *gin.Engine, db *gorm.DB, jwtSecret string, h Handlers) {
	// The webhook reads the raw signed body; keep it out of the sanitizing group.
	r.POST("/webhook", h.Webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Buyer lands here straight from the payment page, without a token.
	r.GET("/checkout/complete", h.Checkout.Complete)
	r.GET("/checkout/events", h.Checkout.Events)
	r.GET("/courses", h.Courses.ListCourses)

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", h.Auth.Register)
	public.POST("/login", h.Auth.Login)
	public.GET("/auth/google", h.Auth.GoogleStart)
	public.GET("/auth/google/callback", h.Auth.GoogleCallback)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(jwtSecret), middleware.SanitizeAndCleanInputMiddleware())
	auth.GET("/me", h.Users.GetCurrentUser)
	auth.GET("/my/courses", h.Users.MyCourses)
	auth.GET("/purchases", h.Users.Purchases)
	auth.POST("/change-password", h.Auth.ChangePassword)
	auth.POST("/checkout", h.Checkout.CreateCheckoutSession)

	// Team managers
	team := auth.Group("/teams/:id")
	team.Use(middleware.RequireTeamManager(db))
	team.GET("/seats", h.Teams.Seats)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtSecret), middleware.RequireRole("admin"))
	admin.GET("/grants", h.Admin.ListGrants)
	admin.GET("/webhook-events", h.Admin.ListWebhookEvents)
	admin.POST("/reconcile/:session_id", h.Admin.Reconcile)
	admin.POST("/sync-courses", h.Admin.SyncCourses)
}
