// File: controllers/admin_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"climb-calendar/cache"
	"climb-calendar/logger"
	"climb-calendar/services"
)

// ---------------- Admin Controller ----------------

// AdminController exposes maintenance operations to admins.
type AdminController struct {
	admins *services.AdminBootstrap
	cache  *cache.Cache
}

func NewAdminController(admins *services.AdminBootstrap, c *cache.Cache) *AdminController {
	return &AdminController{admins: admins, cache: c}
}

// MakeAdmins grants the admin role to every account on the allow-list.
func (ac *AdminController) MakeAdmins(c *gin.Context) {
	n, err := ac.admins.MakeAdmins(c.Request.Context())
	if err != nil {
		logger.Error.Printf("[MakeAdmins] %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "granted": n})
		return
	}
	c.JSON(http.StatusOK, gin.H{"granted": n})
}

// CacheStatus lists every cache entry with its state, without values.
func (ac *AdminController) CacheStatus(c *gin.Context) {
	keys := ac.cache.Keys()
	entries := make([]gin.H, 0, len(keys))
	for _, k := range keys {
		e := ac.cache.Read(k)
		h := entryStatus(e)
		h["key"] = k.String()
		h["mounted"] = ac.cache.Mounted(k)
		h["pending"] = ac.cache.Pending(k)
		entries = append(entries, h)
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "subscriptions": ac.cache.ActiveRemotes()})
}
