// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vistaprohq/vistapro-backend/internal/cache"
	"github.com/vistaprohq/vistapro-backend/internal/config"
	"github.com/vistaprohq/vistapro-backend/internal/events"
	"github.com/vistaprohq/vistapro-backend/internal/handlers"
	"github.com/vistaprohq/vistapro-backend/internal/metrics"
	"github.com/vistaprohq/vistapro-backend/internal/middleware"
	"github.com/vistaprohq/vistapro-backend/internal/models"
	"github.com/vistaprohq/vistapro-backend/internal/services"
	"github.com/vistaprohq/vistapro-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config, m *metrics.Metrics, publisher *events.Publisher, c *cache.Cache) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(db)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize document storage")
	}
	violationService := services.NewViolationService(db, cfg, m, publisher, notificationService)
	walletService := services.NewWalletService(db, cfg, m, publisher)
	stockService := services.NewStockService(db, cfg, violationService, walletService, notificationService, m, publisher)
	verificationService := services.NewVerificationService(db, cfg, m, publisher, notificationService)
	trackingService := services.NewTrackingService(db, cfg, c)
	targetService := services.NewTargetService(db)
	productService := services.NewProductService(db)
	authService := services.NewAuthService(db, cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	stockHandler := handlers.NewStockHandler(stockService)
	violationHandler := handlers.NewViolationHandler(violationService)
	verificationHandler := handlers.NewVerificationHandler(verificationService, storageService)
	trackingHandler := handlers.NewTrackingHandler(trackingService)
	walletHandler := handlers.NewWalletHandler(walletService)
	targetHandler := handlers.NewTargetHandler(targetService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	productHandler := handlers.NewProductHandler(productService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	adminRoles := []models.UserRole{
		models.UserRoleAdmin, models.UserRoleSuperAdmin, models.UserRoleMasterAdmin,
	}

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Profile)
		}

		// Product catalog routes
		products := v1.Group("/products")
		products.Use(middleware.AuthRequired())
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)

			dealer := products.Group("")
			dealer.Use(middleware.RoleRequired(models.UserRoleDealer))
			{
				dealer.POST("", productHandler.Create)
				dealer.PUT("/:id", productHandler.Update)
				dealer.POST("/:id/restock", productHandler.Restock)
			}
		}

		// Stock pickup lifecycle routes
		stock := v1.Group("/stock")
		stock.Use(middleware.AuthRequired())
		{
			stock.GET("/pickups", stockHandler.ListPickups)
			stock.GET("/pickups/:id", stockHandler.GetPickup)

			marketer := stock.Group("")
			marketer.Use(middleware.RoleRequired(models.UserRoleMarketer))
			{
				marketer.POST("/pickups", stockHandler.CreatePickup)
				marketer.POST("/pickups/:id/sale", stockHandler.ConfirmSale)
				marketer.POST("/pickups/:id/return", stockHandler.RequestReturn)
				marketer.POST("/pickups/:id/transfer", stockHandler.RequestTransfer)
				marketer.GET("/allowance", stockHandler.GetAllowance)
				marketer.POST("/allowance/request", stockHandler.RequestAdditionalPickup)
			}

			stock.POST("/pickups/:id/return/confirm",
				middleware.RoleRequired(models.UserRoleDealer, models.UserRoleSuperAdmin, models.UserRoleMasterAdmin),
				stockHandler.ConfirmReturn)
			// Admin roles or the transfer target; the service checks that a
			// marketer resolver is the target.
			stock.POST("/pickups/:id/transfer/resolve",
				middleware.RoleRequired(models.UserRoleMarketer, models.UserRoleAdmin,
					models.UserRoleSuperAdmin, models.UserRoleMasterAdmin),
				stockHandler.ResolveTransfer)

			master := stock.Group("")
			master.Use(middleware.MasterAdminRequired())
			{
				master.GET("/allowance/requests", stockHandler.ListAllowanceRequests)
				master.POST("/allowance/requests/:marketerId/resolve", stockHandler.ResolveAdditionalPickup)
				master.POST("/pickups/expire-overdue", stockHandler.ExpireOverdue)
			}
		}

		// Violation routes
		violations := v1.Group("/violations")
		violations.Use(middleware.AuthRequired())
		{
			violations.GET("/me", violationHandler.GetMyRecord)

			admin := violations.Group("")
			admin.Use(middleware.RoleRequired(adminRoles...))
			{
				admin.GET("/users/:userId", violationHandler.GetUserRecord)
				admin.GET("/blocked", violationHandler.ListBlocked)
			}

			master := violations.Group("")
			master.Use(middleware.MasterAdminRequired())
			{
				master.POST("/users/:userId/unlock", violationHandler.Unlock)
				master.POST("/users/:userId/manual", violationHandler.RecordManual)
			}
		}

		// Verification workflow routes
		verification := v1.Group("/verification")
		verification.Use(middleware.AuthRequired())
		{
			marketer := verification.Group("")
			marketer.Use(middleware.RoleRequired(models.UserRoleMarketer))
			{
				marketer.GET("/me", verificationHandler.GetMySubmission)
				marketer.POST("/forms", middleware.DocumentUploadRateLimit(), verificationHandler.SubmitForm)
			}

			admin := verification.Group("")
			admin.Use(middleware.RoleRequired(adminRoles...))
			{
				admin.GET("/submissions", verificationHandler.ListSubmissions)
				admin.GET("/submissions/:id", verificationHandler.GetSubmission)
				admin.GET("/submissions/:id/audit", verificationHandler.AuditTrail)
				admin.GET("/documents/link", verificationHandler.DocumentLink)
				admin.POST("/submissions/:id/refill", verificationHandler.AllowRefill)
			}

			verification.POST("/submissions/:id/admin-review",
				middleware.RoleRequired(models.UserRoleAdmin),
				verificationHandler.AdminReview)
			verification.POST("/submissions/:id/superadmin-review",
				middleware.RoleRequired(models.UserRoleSuperAdmin),
				verificationHandler.SuperAdminReview)
			verification.POST("/submissions/:id/masteradmin-approval",
				middleware.MasterAdminRequired(),
				verificationHandler.MasterAdminApprove)
		}

		// Verification tracking routes
		tracking := v1.Group("/tracking")
		tracking.Use(middleware.AuthRequired())
		{
			tracking.GET("/me", middleware.RoleRequired(models.UserRoleMarketer), trackingHandler.GetMyTimeline)

			admin := tracking.Group("")
			admin.Use(middleware.RoleRequired(adminRoles...))
			{
				admin.GET("/timelines", trackingHandler.ListTimelines)
				admin.GET("/marketers/:marketerId", trackingHandler.GetMarketerTimeline)
			}
		}

		// Wallet routes
		wallet := v1.Group("/wallet")
		wallet.Use(middleware.AuthRequired())
		{
			wallet.GET("", walletHandler.GetWallet)
			wallet.GET("/transactions", walletHandler.ListTransactions)
			wallet.POST("/withdraw", walletHandler.Withdraw)
		}

		// Target routes
		targets := v1.Group("/targets")
		targets.Use(middleware.AuthRequired())
		{
			targets.GET("/me", targetHandler.ListMyTargets)
			targets.GET("/me/performance", targetHandler.GetMyPerformance)

			admin := targets.Group("")
			admin.Use(middleware.RoleRequired(adminRoles...))
			{
				admin.POST("", targetHandler.SetTarget)
				admin.GET("/users/:userId/performance", targetHandler.GetUserPerformance)
			}
		}

		// Notification routes
		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired())
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
		}
	}

	return r
}
