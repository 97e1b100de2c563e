package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/galihcitta/number-warming-service/internal/middleware"
	"github.com/galihcitta/number-warming-service/internal/repository"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ImportResponse struct {
	Imported int `json:"imported"`
}

// tenantFrom writes a 401 and returns false when the auth middleware did
// not resolve a tenant.
func tenantFrom(c *gin.Context) (uuid.UUID, bool) {
	tenantID, err := middleware.TenantID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "tenant not resolved"})
		return uuid.Nil, false
	}
	return tenantID, true
}

func pathID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + what + " ID format"})
		return uuid.Nil, false
	}
	return id, true
}

// storageError answers 404 for missing rows and 500 for everything else.
func storageError(c *gin.Context, err error, what string) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: what + " not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
