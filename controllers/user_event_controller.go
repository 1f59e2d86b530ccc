// file: controllers/user_event_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"climb-calendar/calendar"
	"climb-calendar/i18n"
	"climb-calendar/models"
	"climb-calendar/services"
)

// UserEventController serves the signed-in user's personal events.
type UserEventController struct {
	svc *services.UserEventService
	tr  *i18n.Translator
}

func NewUserEventController(svc *services.UserEventService, tr *i18n.Translator) *UserEventController {
	return &UserEventController{svc: svc, tr: tr}
}

func (uc *UserEventController) List(c *gin.Context) {
	es, e, err := loadUserEvents(c.Request.Context(), uc.svc)
	if err != nil {
		respondError(c, uc.tr, err)
		return
	}

	items := calendar.SortItems(models.UserEventItems(es))
	out := make([]models.UserEvent, 0, len(items))
	for _, it := range items {
		out = append(out, *it.UserEvent)
	}
	c.JSON(http.StatusOK, gin.H{"userEvents": out, "entry": entryStatus(e)})
}

func (uc *UserEventController) Add(c *gin.Context) {
	var in models.UserEventNew
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := uc.svc.Add(c.Request.Context(), in)
	if err != nil {
		respondError(c, uc.tr, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (uc *UserEventController) Edit(c *gin.Context) {
	var in models.UserEventNew
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")
	if err := uc.svc.Edit(c.Request.Context(), id, in); err != nil {
		respondError(c, uc.tr, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (uc *UserEventController) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := uc.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, uc.tr, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}
