// Package controllers provides the HTTP handlers of the calendar API.
// file: controllers/respond.go
package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"climb-calendar/auth"
	"climb-calendar/cache"
	"climb-calendar/calendar"
	"climb-calendar/i18n"
	"climb-calendar/logger"
	"climb-calendar/models"
	"climb-calendar/services"
	"climb-calendar/store"
)

// respondError maps a service error to a status and a JSON body.
func respondError(c *gin.Context, tr *i18n.Translator, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		locale := tr.Locale(c.GetHeader("Accept-Language"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": tr.Fields(locale, verr)})
	case errors.Is(err, services.ErrPermission):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrNoSession),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		logger.Error.Printf("[respondError] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// entryStatus describes the cache entry behind a response.
func entryStatus(e cache.Entry) gin.H {
	return gin.H{
		"status":  e.Status,
		"stale":   e.Stale,
		"version": e.Version,
		"error":   e.ErrorText(),
	}
}

// loadCompetitions returns the filtered competitions in date order. The
// store is read first unless a push subscription keeps the cache current.
func loadCompetitions(ctx context.Context, svc *services.CompetitionService, f calendar.Filter) ([]models.Competition, cache.Entry, error) {
	if _, e := svc.Competitions(); !e.Loaded() || !svc.Live() {
		if _, err := svc.Refetch(ctx); err != nil {
			if !e.Loaded() {
				return nil, e, err
			}
			logger.Warn.Printf("[loadCompetitions] serving stale list: %v", err)
		}
	}
	cs, e := svc.Filtered(f)
	return calendar.SortByDate(cs), e, nil
}

// loadUserEvents is loadCompetitions for the signed-in user's events.
func loadUserEvents(ctx context.Context, svc *services.UserEventService) ([]models.UserEvent, cache.Entry, error) {
	_, e, err := svc.UserEvents(ctx)
	if err != nil {
		return nil, e, err
	}
	if !e.Loaded() || !svc.Live(ctx) {
		if _, err := svc.Refetch(ctx); err != nil {
			if !e.Loaded() {
				return nil, e, err
			}
			logger.Warn.Printf("[loadUserEvents] serving stale events: %v", err)
		}
	}
	return svc.UserEvents(ctx)
}

// bindFilter reads the calendar filter from the query string and writes a
// 400 when it is malformed or names an unknown type or category.
func bindFilter(c *gin.Context, f *calendar.Filter) bool {
	err := c.ShouldBindQuery(f)
	if err == nil {
		err = f.Validate()
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
