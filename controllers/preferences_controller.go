// file: controllers/preferences_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"climb-calendar/middleware"
	"climb-calendar/services"
)

// PreferencesController stores presentation choices per browser session.
type PreferencesController struct {
	prefs *services.Preferences
}

func NewPreferencesController(prefs *services.Preferences) *PreferencesController {
	return &PreferencesController{prefs: prefs}
}

func (pc *PreferencesController) GetViewMode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"viewMode":  pc.prefs.ViewMode(middleware.SessionID(c)),
		"viewModes": services.ViewModes,
	})
}

func (pc *PreferencesController) SetViewMode(c *gin.Context) {
	var body struct {
		ViewMode services.ViewMode `json:"viewMode" form:"viewMode" binding:"required"`
	}
	if err := c.ShouldBind(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sid := middleware.SessionID(c)
	if err := pc.prefs.SetViewMode(sid, body.ViewMode); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewMode": pc.prefs.ViewMode(sid)})
}
