package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saltybikes/fleet-backend/internal/middleware"
	"github.com/saltybikes/fleet-backend/user"
)

type credentialsRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *API) registerHandler(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusConflict, gin.H{"message": "Invalid request."})
		return
	}

	u, err := a.ur.Create(c, req.Login, req.Password, user.RoleRider)
	if err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"message": "Username already taken."})
			return
		}
		middleware.GetLogger(c).ErrorContext(c, "failed to register user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	token, err := a.auth.IssueToken(u)
	if err != nil {
		middleware.GetLogger(c).ErrorContext(c, "failed to issue token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (a *API) loginHandler(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Bad credentials."})
		return
	}

	u, err := a.ur.Authenticate(c, req.Login, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrBadCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Bad credentials."})
			return
		}
		middleware.GetLogger(c).ErrorContext(c, "failed to authenticate user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	token, err := a.auth.IssueToken(u)
	if err != nil {
		middleware.GetLogger(c).ErrorContext(c, "failed to issue token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "role": u.Role})
}

// Tokens are stateless, so logout has nothing to revoke server-side.
func (a *API) logoutHandler(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
