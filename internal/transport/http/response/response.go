package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Message writes the plain {"message": ...} error body every endpoint uses.
func Message(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}
