// file: controllers/health_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"climb-calendar/cache"
	"climb-calendar/models"
	"climb-calendar/services"
	"climb-calendar/websocket"
)

// HealthController reports liveness and the settings a browser needs.
type HealthController struct {
	cache        *cache.Cache
	hub          *websocket.Hub
	websocketURL string
}

func NewHealthController(c *cache.Cache, hub *websocket.Hub, websocketURL string) *HealthController {
	return &HealthController{cache: c, hub: hub, websocketURL: websocketURL}
}

func (hc *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   hc.hub.Count(),
		"subscriptions": hc.cache.ActiveRemotes(),
	})
}

// ClientConfig lists the enums and limits the browser builds its forms from.
func (hc *HealthController) ClientConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"websocketUrl": hc.websocketURL,
		"types":        models.CompetitionTypes,
		"categories":   models.Categories,
		"viewModes":    services.ViewModes,
		"limits": gin.H{
			"nameMin":                models.NameMinLength,
			"nameMax":                models.NameMaxLength,
			"durationMin":            models.DateDurationMin,
			"durationMaxCompetition": models.DateDurationMaxCompetition,
			"durationMaxUserEvent":   models.DateDurationMaxUserEvent,
		},
	})
}
