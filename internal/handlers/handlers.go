// Package handlers exposes the scraper HTTP API. Every payload is wrapped in
// a {"success": ...} envelope; error responses carry a human-readable message.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func ok(c *gin.Context, fields gin.H) {
	respond(c, http.StatusOK, fields)
}

func created(c *gin.Context, fields gin.H) {
	respond(c, http.StatusCreated, fields)
}

func respond(c *gin.Context, status int, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}
