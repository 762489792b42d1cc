package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/Requip-Digital/Inspection-Tool/internal/inspection"
	"github.com/Requip-Digital/Inspection-Tool/internal/record"
	reporterrors "github.com/Requip-Digital/Inspection-Tool/internal/report/errors"
)

// Response is the envelope of every successful JSON response
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// ErrorResponse is the envelope of every failed request
type ErrorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Detail  string            `json:"detail,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Success writes data with status 200
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// Created writes data with status 201
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "created", Data: data})
}

// Error writes an error envelope
func Error(c *gin.Context, code int, message string, detail string) {
	statusCode := http.StatusInternalServerError
	if code >= 400 && code < 600 {
		statusCode = code
	}
	c.JSON(statusCode, ErrorResponse{Code: code, Message: message, Detail: detail})
}

// Fail maps a service error onto a status code
func Fail(c *gin.Context, message string, err error) {
	var verr *inspection.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: message,
			Detail:  verr.Error(),
			Fields:  verr.Fields,
		})
	case errors.Is(err, record.ErrNotFound), reporterrors.Is(err, reporterrors.ErrorTypeResolution):
		Error(c, http.StatusNotFound, message, err.Error())
	default:
		klog.Errorf("%s %s: %s: %v", c.Request.Method, c.Request.URL.Path, message, err)
		Error(c, http.StatusInternalServerError, message, err.Error())
	}
}
