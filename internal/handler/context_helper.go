package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vidtube-api/internal/middleware"
	"github.com/noah-isme/vidtube-api/internal/models"
	appErrors "github.com/noah-isme/vidtube-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.AccessClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.AccessClaims)
	if !ok {
		return nil
	}
	return claims
}

// callerID returns the authenticated user's id.
func callerID(c *gin.Context) (models.ID, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.NilID, appErrors.ErrUnauthorized
	}
	id, err := models.ParseID(claims.UserID)
	if err != nil {
		return models.NilID, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token subject")
	}
	return id, nil
}

// pathID parses a path parameter into an identifier.
func pathID(c *gin.Context, param, message string) (models.ID, error) {
	id, err := models.ParseID(strings.TrimSpace(c.Param(param)))
	if err != nil {
		return models.NilID, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	return id, nil
}
