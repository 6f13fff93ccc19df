package handlers

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/workspace-api/internal/errors"
	"github.com/yukikurage/workspace-api/internal/middleware"
)

// respondError records err for the request logger and writes the response for its kind.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	apierrors.RespondWithDomainError(c, err)
}

// currentUser returns the session user or writes a 401.
func currentUser(c *gin.Context) (uint64, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return 0, false
	}
	return userID, true
}

// paramID parses a numeric path parameter or writes a 400.
func paramID(c *gin.Context, name string) (uint64, bool) {
	id, ok := middleware.ParamID(c, name)
	if !ok {
		apierrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}
