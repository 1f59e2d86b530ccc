// file: controllers/routes.go
package controllers

import (
	"github.com/gin-gonic/gin"

	"climb-calendar/middleware"
	"climb-calendar/websocket"
)

// Router bundles the controllers behind the HTTP API.
type Router struct {
	Gate         middleware.Gate
	Hub          *websocket.Hub
	Auth         *AuthController
	Competitions *CompetitionController
	UserEvents   *UserEventController
	Calendar     *CalendarController
	Preferences  *PreferencesController
	Admin        *AdminController
	Health       *HealthController
}

// Register mounts every route on r. The cookie session middleware must
// already be installed.
func (rt *Router) Register(r *gin.Engine) {
	// no browser session: calendar subscribers poll without cookies
	r.GET("/health", rt.Health.Health)
	r.GET("/calendar.ics", rt.Calendar.ICS)
	r.GET("/qrcode", rt.Calendar.QRCode)
	r.GET("/api/config", rt.Health.ClientConfig)

	r.Use(middleware.SessionContext(rt.Gate))

	r.GET("/updates", func(c *gin.Context) {
		rt.Hub.ServeWs(c.Writer, c.Request)
	})

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/login", rt.Auth.Login)
	authGroup.POST("/logout", rt.Auth.Logout)
	authGroup.GET("/me", rt.Auth.Me)
	authGroup.POST("/refresh", rt.Auth.Refresh)

	// permission is checked by the service so refusals are reported like
	// any other failed mutation
	api.GET("/competitions", rt.Competitions.List)
	api.POST("/competitions", rt.Competitions.Add)
	api.PUT("/competitions/:id", rt.Competitions.Edit)
	api.DELETE("/competitions/:id", rt.Competitions.Delete)

	events := api.Group("/user-events", middleware.AuthRequired(rt.Gate))
	events.GET("", rt.UserEvents.List)
	events.POST("", rt.UserEvents.Add)
	events.PUT("/:id", rt.UserEvents.Edit)
	events.DELETE("/:id", rt.UserEvents.Delete)

	api.GET("/calendar/month", rt.Calendar.Month)
	api.GET("/calendar/year", rt.Calendar.Year)

	api.GET("/preferences/view", rt.Preferences.GetViewMode)
	api.PUT("/preferences/view", rt.Preferences.SetViewMode)

	admin := api.Group("/admin", middleware.AdminRequired(rt.Gate))
	admin.POST("/make-admins", rt.Admin.MakeAdmins)
	admin.GET("/cache", rt.Admin.CacheStatus)
}
