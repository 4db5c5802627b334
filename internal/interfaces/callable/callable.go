// Package callable implements the call-style request/response envelope:
// requests carry {"data": {...}}, successes return {"result": {...}} and
// failures return {"error": {"status": "...", "message": "..."}}.
package callable

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medeiros-dev/notification-gateway/internal/domain/apperr"
)

// MaxBodyBytes caps the size of a call-style request body.
const MaxBodyBytes = 1 << 20

type request struct {
	Data json.RawMessage `json:"data"`
}

type ErrorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error ErrorBody `json:"error"`
}

type resultResponse struct {
	Result any `json:"result"`
}

// Bind decodes the data member of the request body into dst. A missing or
// null data member leaves dst untouched so field validation reports it.
func Bind(c *gin.Context, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Wrap(apperr.InvalidArgument, "Request payload too large", err)
		}
		return apperr.Wrap(apperr.InvalidArgument, "Invalid request payload", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		return apperr.Wrap(apperr.InvalidArgument, "Invalid request payload: "+err.Error(), err)
	}
	if len(req.Data) == 0 || bytes.Equal(req.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(req.Data, dst); err != nil {
		return apperr.Wrap(apperr.InvalidArgument, "Invalid request payload: "+err.Error(), err)
	}
	return nil
}

func Respond(c *gin.Context, result any) {
	c.JSON(http.StatusOK, resultResponse{Result: result})
}

// Fail writes the error envelope. Untyped errors are reported as INTERNAL
// without their text.
func Fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	message := "Internal error"
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	c.JSON(HTTPStatus(kind), errorResponse{Error: ErrorBody{Status: Status(kind), Message: message}})
}

// Status is the wire name of an error kind.
func Status(kind apperr.Kind) string {
	switch kind {
	case apperr.InvalidArgument:
		return "INVALID_ARGUMENT"
	case apperr.FailedPrecondition:
		return "FAILED_PRECONDITION"
	case apperr.PermissionDenied:
		return "PERMISSION_DENIED"
	default:
		return "INTERNAL"
	}
}

func HTTPStatus(kind apperr.Kind) int {
	switch kind {
	case apperr.InvalidArgument, apperr.FailedPrecondition:
		return http.StatusBadRequest
	case apperr.PermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Outcome is the metrics label for a handler result.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperr.KindOf(err))
}
