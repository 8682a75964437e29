package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// success sends a JSON success response.
func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// fail sends a JSON error response.
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
