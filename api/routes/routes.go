package routes

import (
	"example.com/backstage/services/interactions/api/handlers"
	"example.com/backstage/services/interactions/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes sets up all the routes for the server
func SetupRoutes(r *gin.Engine, svc service.Service, db handlers.Pinger, log *logrus.Logger) {
	handlers.RegisterValidation()

	// Root and health check
	healthHandler := handlers.NewHealthHandler(db, log)
	r.GET("/", healthHandler.Root)
	r.GET("/health", healthHandler.HealthCheck)

	// Interaction routes
	interactionHandler := handlers.NewInteractionHandler(svc, log)
	interactions := r.Group("/interactions")
	{
		interactions.GET("/", interactionHandler.ListInteractions)
		interactions.POST("/", interactionHandler.CreateInteraction)
		interactions.GET("/:id", interactionHandler.GetInteraction)
		interactions.PUT("/:id", interactionHandler.UpdateInteraction)
		interactions.DELETE("/:id", interactionHandler.DeleteInteraction)
	}
}
