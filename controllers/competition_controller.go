// file: controllers/competition_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"climb-calendar/calendar"
	"climb-calendar/i18n"
	"climb-calendar/models"
	"climb-calendar/services"
)

// CompetitionController serves the shared competition list.
type CompetitionController struct {
	svc *services.CompetitionService
	tr  *i18n.Translator
}

func NewCompetitionController(svc *services.CompetitionService, tr *i18n.Translator) *CompetitionController {
	return &CompetitionController{svc: svc, tr: tr}
}

// List returns the competitions matching the query filter, by date.
//
//	GET /api/competitions?bg=true&type=Lead&category=U12
func (cc *CompetitionController) List(c *gin.Context) {
	var f calendar.Filter
	if !bindFilter(c, &f) {
		return
	}

	cs, e, err := loadCompetitions(c.Request.Context(), cc.svc, f)
	if err != nil {
		respondError(c, cc.tr, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"competitions": cs, "entry": entryStatus(e), "pending": cc.svc.Pending()})
}

func (cc *CompetitionController) Add(c *gin.Context) {
	var in models.CompetitionNew
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := cc.svc.Add(c.Request.Context(), in)
	if err != nil {
		respondError(c, cc.tr, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (cc *CompetitionController) Edit(c *gin.Context) {
	var in models.CompetitionNew
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")
	if err := cc.svc.Edit(c.Request.Context(), id, in); err != nil {
		respondError(c, cc.tr, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (cc *CompetitionController) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := cc.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, cc.tr, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}
