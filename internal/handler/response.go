package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"advisory/internal/ledger"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// fail maps a ledger error to its HTTP status. Unclassified errors are
// treated as upstream failures.
func fail(c *gin.Context, err error) {
	switch ledger.KindOf(err) {
	case ledger.KindNotFound:
		Error(c, http.StatusNotFound, err.Error(), nil)
	case ledger.KindBadRequest:
		Error(c, http.StatusBadRequest, err.Error(), nil)
	case ledger.KindConflict:
		Error(c, http.StatusConflict, err.Error(), nil)
	default:
		Error(c, http.StatusBadGateway, err.Error(), nil)
	}
}
