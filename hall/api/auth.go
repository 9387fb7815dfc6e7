package api

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/janryu/janryu/common/http"
	"github.com/janryu/janryu/common/jwts"
)

// Context keys set by AuthMiddleware.
const (
	ctxUserID   = "userID"
	ctxUserName = "userName"
)

const defaultTokenExpire = 24 * time.Hour

// LoginHandler issues a lobby identity. There are no accounts: a display
// name is enough to sit down, and the signed token pins the generated user
// ID until it expires.
func (a *API) LoginHandler(c *http.Context) error {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("name is required")
		return nil
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 32 {
		c.BadRequest("name must be 1-32 characters")
		return nil
	}

	userID := uuid.NewString()
	token, err := jwts.GetToken(jwts.NewClaims(userID, name, a.tokenExpire()), a.conf.Auth.JwtSecret)
	if err != nil {
		return err
	}

	c.Success(map[string]any{
		"token":   token,
		"user_id": userID,
		"name":    name,
	})
	return nil
}

// RefreshHandler trades a still-valid token for a fresh one with the same
// identity.
func (a *API) RefreshHandler(c *http.Context) error {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("token is required")
		return nil
	}

	claims, err := jwts.ParseClaims(req.Token, a.conf.Auth.JwtSecret)
	if err != nil {
		c.Unauthorized("token rejected")
		return nil
	}

	token, err := jwts.GetToken(jwts.NewClaims(claims.UserID, claims.Name, a.tokenExpire()), a.conf.Auth.JwtSecret)
	if err != nil {
		return err
	}

	c.Success(map[string]any{"token": token})
	return nil
}

func (a *API) tokenExpire() time.Duration {
	if a.conf.Auth.JwtExpire > 0 {
		return time.Duration(a.conf.Auth.JwtExpire) * time.Second
	}
	return defaultTokenExpire
}

// AuthMiddleware guards everything past login. The same token doubles as
// the optional barrier parameter on the websocket upgrade.
func (a *API) AuthMiddleware() http.MiddlewareFunc {
	return func(c *http.Context) error {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.GetHeader("Token")
		}
		if token == "" {
			c.Unauthorized("missing token")
			c.Abort()
			return nil
		}

		claims, err := jwts.ParseClaims(token, a.conf.Auth.JwtSecret)
		if err != nil {
			c.Unauthorized("token rejected")
			c.Abort()
			return nil
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserName, claims.Name)
		return nil
	}
}
