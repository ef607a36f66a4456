package respond

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Created writes a 201 Created JSON response.
func Created(c *gin.Context, payload any) {
	JSON(c, http.StatusCreated, payload)
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Attachment sends body as a download named fileName.
func Attachment(c *gin.Context, contentType, fileName string, body []byte) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": fileName})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", disposition)
	c.Header("Content-Length", fmt.Sprint(len(body)))
	c.Data(http.StatusOK, contentType, body)
}
