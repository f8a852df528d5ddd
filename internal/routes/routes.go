package routes

import (
	"sentinela/internal/controllers"
	"sentinela/internal/db"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter initializes controllers and the read-only status routes
func SetupRouter(conn *gorm.DB) *gin.Engine {
	ingestionController := controllers.IngestionController{Repo: db.NewPayrollRepository(conn)}

	// Set up Gin router
	router := gin.Default()

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})

	// Group API routes under /api/v1
	api := router.Group("/api/v1")
	{
		periods := api.Group("/periods")
		{
			// GET /api/v1/periods?limit=N
			periods.GET("", ingestionController.GetPeriods)
			// GET /api/v1/periods/:year/:month
			periods.GET("/:year/:month", ingestionController.GetPeriod)
		}
	}

	return router
}
