// file: controllers/auth_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"climb-calendar/auth"
	"climb-calendar/i18n"
	"climb-calendar/logger"
	"climb-calendar/middleware"
)

// AuthController signs browser sessions in and out.
type AuthController struct {
	gate *auth.Gate
	tr   *i18n.Translator
}

func NewAuthController(gate *auth.Gate, tr *i18n.Translator) *AuthController {
	return &AuthController{gate: gate, tr: tr}
}

// Login checks the submitted credentials and signs the session in. The id
// token is kept in the cookie so the session survives a restart.
func (ac *AuthController) Login(c *gin.Context) {
	var cred auth.PasswordCredential
	if err := c.ShouldBind(&cred); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	sid := middleware.SessionID(c)
	s, err := ac.gate.SignInWithPopup(c.Request.Context(), sid, cred)
	if err != nil {
		logger.Warn.Printf("[Login] failed login for %s: %v", cred.Email, err)
		respondError(c, ac.tr, err)
		return
	}
	if !ac.saveToken(c) {
		return
	}

	logger.Info.Printf("[Login] %s signed in (admin=%v)", s.User.Email, s.User.ElevatedRole)
	c.JSON(http.StatusOK, s)
}

// Logout signs the session out. The session itself stays known.
func (ac *AuthController) Logout(c *gin.Context) {
	s := ac.gate.SignOut(middleware.SessionID(c))

	session := sessions.Default(c)
	session.Delete(middleware.SessionKeyToken)
	if err := session.Save(); err != nil {
		logger.Error.Printf("[Logout] could not save session: %v", err)
	}
	c.JSON(http.StatusOK, s)
}

// Me returns the session's auth state.
func (ac *AuthController) Me(c *gin.Context) {
	c.JSON(http.StatusOK, ac.gate.Session(middleware.SessionID(c)))
}

// Refresh re-issues the session's token, picking up role changes.
func (ac *AuthController) Refresh(c *gin.Context) {
	s, err := ac.gate.Refresh(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		respondError(c, ac.tr, err)
		return
	}
	if !ac.saveToken(c) {
		return
	}
	c.JSON(http.StatusOK, s)
}

func (ac *AuthController) saveToken(c *gin.Context) bool {
	res, err := ac.gate.IDTokenResult(c.Request.Context())
	if err != nil {
		respondError(c, ac.tr, err)
		return false
	}
	session := sessions.Default(c)
	session.Set(middleware.SessionKeyToken, res.Token)
	if err := session.Save(); err != nil {
		logger.Error.Printf("[saveToken] could not save session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save session"})
		return false
	}
	return true
}
