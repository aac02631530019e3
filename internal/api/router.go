package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/maildeck/core/internal/api/handlers"
	"github.com/maildeck/core/internal/api/middleware"
	"github.com/maildeck/core/internal/config"
	"github.com/maildeck/core/internal/ingest"
	"github.com/maildeck/core/internal/services"
	"gorm.io/gorm"
)

// SetupRouter initializes the Gin router with all routes configured and
// starts the background mailbox monitor. The returned Monitor should be
// stopped on shutdown.
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *ingest.Monitor) {
	router := gin.Default()

	router.Use(cors.New(corsConfig(cfg)))

	// Services
	logService := services.NewLogServiceWithLevel(db, cfg.LogLevel)
	userService := services.NewUserService(db)
	accountService := services.NewAccountService(db, cfg.GetEncryptionKey())
	emailService := services.NewEmailService(db)
	tagService := services.NewTagService(db)
	ruleService := services.NewRuleService(db)

	engine := ingest.NewEngine(db, accountService, ruleService, logService, ingest.NewIMAPDialer(), ingest.Options{
		BatchSize:      cfg.BatchSize,
		CommitInterval: cfg.CommitInterval,
		AttachmentsDir: cfg.GetAttachmentsBaseDir(),
	})

	monitor := ingest.NewMonitor(accountService, logService, engine, cfg.MonitorInterval(), cfg.LookbackWindow())
	monitor.Start()

	// Handlers
	accountHandler := handlers.NewAccountHandler(accountService)
	emailHandler := handlers.NewEmailHandler(emailService, tagService)
	tagHandler := handlers.NewTagHandler(tagService, emailService)
	ruleHandler := handlers.NewRuleHandler(ruleService, tagService)
	syncHandler := handlers.NewSyncHandler(engine, accountService)
	logHandler := handlers.NewLogHandler(logService)

	// Health check endpoint (no auth required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(middleware.BasicAuthMiddleware(userService))
	{
		accounts := api.Group("/accounts")
		{
			accounts.GET("", accountHandler.ListAccounts)
			accounts.POST("", accountHandler.CreateAccount)
			accounts.GET("/:id", accountHandler.GetAccount)
			accounts.PUT("/:id", accountHandler.UpdateAccount)
			accounts.DELETE("/:id", accountHandler.DeleteAccount)
			accounts.POST("/:id/test", accountHandler.TestConnection)
			accounts.PUT("/:id/enable", accountHandler.SetAccountEnabled(true))
			accounts.PUT("/:id/disable", accountHandler.SetAccountEnabled(false))
			accounts.POST("/:id/sync", syncHandler.StartSync)
			accounts.POST("/:id/sync/cancel", syncHandler.CancelSync)
			accounts.GET("/:id/sync/progress", syncHandler.GetSyncProgress)
		}

		emails := api.Group("/emails")
		{
			emails.GET("", emailHandler.ListEmails)
			emails.GET("/count", emailHandler.GetEmailCount)
			emails.GET("/:id", emailHandler.GetEmail)
			emails.PUT("/:id/read", emailHandler.SetReadStatus)
			emails.POST("/:id/tags", tagHandler.AttachTag)
			emails.DELETE("/:id/tags/:tagID", tagHandler.DetachTag)
		}

		tags := api.Group("/tags")
		{
			tags.GET("", tagHandler.ListTags)
			tags.POST("", tagHandler.CreateTag)
			tags.DELETE("/:id", tagHandler.DeleteTag)
		}

		ruleRoutes := api.Group("/rules")
		{
			ruleRoutes.GET("", ruleHandler.ListRules)
			ruleRoutes.POST("", ruleHandler.CreateRule)
			ruleRoutes.DELETE("/:id", ruleHandler.DeleteRule)
			ruleRoutes.PUT("/:id/enable", ruleHandler.SetRuleEnabled(true))
			ruleRoutes.PUT("/:id/disable", ruleHandler.SetRuleEnabled(false))
			ruleRoutes.POST("/apply", ruleHandler.ApplyRules)
		}

		api.GET("/logs", logHandler.ListLogs)
	}

	return router, monitor
}

// corsConfig builds the CORS policy from the configured origin list
func corsConfig(cfg *config.Config) cors.Config {
	conf := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	origins := strings.Split(cfg.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	conf.AllowOrigins = origins
	return conf
}
