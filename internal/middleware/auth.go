package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/constants"
	apierrors "github.com/yukikurage/workspace-api/internal/errors"
)

// StartSession binds the session to userID.
func StartSession(c *gin.Context, userID uint64) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(constants.ContextKeyUserID, userID)
	return session.Save()
}

// EndSession forgets the session's user.
func EndSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

// RequireAuth rejects requests without a logged-in session and exposes the
// user id to later handlers through GetUserID.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := sessionUserID(session.Get(constants.ContextKeyUserID))
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

// GetUserID returns the user id stored by RequireAuth.
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, ok := c.Get(constants.ContextKeyUserID)
	if !ok {
		return 0, false
	}
	id, ok := userID.(uint64)
	return id, ok && id != 0
}

// sessionUserID accepts the integer types session codecs may hand back.
func sessionUserID(v interface{}) (uint64, bool) {
	var id uint64
	switch n := v.(type) {
	case uint64:
		id = n
	case uint:
		id = uint64(n)
	case int:
		if n > 0 {
			id = uint64(n)
		}
	case int64:
		if n > 0 {
			id = uint64(n)
		}
	case float64:
		if n > 0 && n == float64(uint64(n)) {
			id = uint64(n)
		}
	}
	return id, id != 0
}
