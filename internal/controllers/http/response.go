package http

import "github.com/gin-gonic/gin"

// API responses use a uniform envelope: {success, data, message} on success,
// {success, error} on failure.

func respondSuccess(c *gin.Context, status int, data any, message string) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

func respondError(c *gin.Context, status int, err string) {
	c.JSON(status, gin.H{"success": false, "error": err})
}
