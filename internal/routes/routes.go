package routes

import (
	"log/slog"

	"fieldops-api/internal/auth"
	"fieldops-api/internal/handlers"
	"fieldops-api/internal/identity"
	"fieldops-api/internal/middleware"
	"fieldops-api/internal/models"
	"fieldops-api/internal/tasks"

	"github.com/gin-gonic/gin"
)

// Deps are the services the HTTP layer is built on. Verifier must yield actor
// ids from the same id space Users lists. A nil Accounts disables /api/login
// (clients then sign in with the external identity provider).
type Deps struct {
	Tasks    *tasks.Service
	Accounts *auth.Accounts
	Verifier auth.TokenVerifier
	Users    identity.Lister
	Logger   *slog.Logger
}

func SetupRoutes(deps Deps) *gin.Engine {
	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery(), middleware.RequestLogger(deps.Logger))

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Field ops task API is running",
		})
	})

	taskHandler := handlers.NewTaskHandler(deps.Tasks)
	userHandler := handlers.NewUserHandler(deps.Users)

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	if deps.Accounts != nil {
		api.POST("/login", handlers.NewAuthHandler(deps.Accounts).Login)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.TokenAuthMiddleware(deps.Verifier))
	{
		protectedRoutes.GET("/tasks", taskHandler.GetTasks)
		protectedRoutes.GET("/tasks/stats", taskHandler.GetTaskStats)
		protectedRoutes.GET("/tasks/:id", taskHandler.GetTaskByID)
		protectedRoutes.POST("/tasks", taskHandler.CreateTask)
		protectedRoutes.PUT("/tasks/:id", taskHandler.UpdateTask)
		protectedRoutes.PATCH("/tasks/:id/status", taskHandler.UpdateTaskStatus)
		protectedRoutes.DELETE("/tasks/:id", middleware.RequireRole(models.RoleAdmin), taskHandler.DeleteTask)

		protectedRoutes.GET("/users", userHandler.GetAllUsers)
	}

	return ginRouter
}
