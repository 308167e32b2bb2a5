// Package router holds the response envelope and helpers shared by all
// HTTP handlers.
package router

import (
	"errors"
	"net/http"

	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Response is the envelope for all API responses. Successful responses
// carry Data and Message; failed responses carry Error.
type Response struct {
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo is the error body carried by failed responses. Code is one
// of the canonical error codes from engine/core.
type ErrorInfo struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// RespondOK writes a 200 response with the standard envelope.
func RespondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{Data: data, Message: message})
}

// RespondCreated writes a 201 response with the standard envelope.
func RespondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Response{Data: data, Message: message})
}

// RespondAccepted writes a 202 response with the standard envelope.
func RespondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, Response{Data: data, Message: message})
}

// RespondNoContent writes an empty 204 response.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// StatusOf maps a canonical error code to its HTTP status.
func StatusOf(code string) int {
	switch code {
	case core.CodeClientError:
		return http.StatusBadRequest
	case core.CodeNotFound:
		return http.StatusNotFound
	case core.CodeDuplicateItem:
		return http.StatusConflict
	case core.CodeServiceError:
		return http.StatusBadGateway
	case core.CodeWorkflowFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// RespondError classifies err by its canonical code, logs it, and writes
// the error envelope. Unclassified errors are treated as service errors.
func RespondError(c *gin.Context, err error) {
	code := core.CodeOf(err)
	status := StatusOf(code)
	info := &ErrorInfo{Code: code, Message: err.Error()}
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		info.Details = coreErr.Details
	}
	log := logger.FromContext(c.Request.Context())
	fields := []any{
		"status", status,
		"code", code,
		"path", c.Request.URL.Path,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", fields...)
	} else {
		log.Warn("Request failed", fields...)
	}
	c.AbortWithStatusJSON(status, Response{Error: info})
}

// RespondBadRequest writes a 400 with a CLIENT_ERROR body for malformed
// requests rejected before reaching a use case.
func RespondBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Error: &ErrorInfo{Code: core.CodeClientError, Message: message},
	})
}

// PathID parses and validates the named path parameter as an entity ID.
// On failure it writes a 400 response and returns a zero ID; handlers
// should return immediately when ok is false.
func PathID(c *gin.Context, name string) (core.ID, bool) {
	id, err := core.ParseID(c.Param(name))
	if err != nil {
		RespondBadRequest(c, "invalid "+name+": "+err.Error())
		return "", false
	}
	return id, true
}
