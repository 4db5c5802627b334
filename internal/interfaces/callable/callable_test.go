package callable

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medeiros-dev/notification-gateway/internal/domain/apperr"
)

type sample struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

func newContext(body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return c, w
}

func TestBind(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected sample
		wantErr  bool
	}{
		{name: "Data Member", body: `{"data":{"phone":"5551234567","code":"42"}}`, expected: sample{Phone: "5551234567", Code: "42"}},
		{name: "Null Data", body: `{"data":null}`},
		{name: "Missing Data", body: `{}`},
		{name: "Empty Body", body: ``},
		{name: "Malformed JSON", body: `{"data":`, wantErr: true},
		{name: "Wrong Type", body: `{"data":{"phone":5}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(tt.body)
			var got sample
			err := Bind(c, &got)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBind_RejectsOversizedBody(t *testing.T) {
	body := `{"data":{"phone":"` + strings.Repeat("5", MaxBodyBytes) + `"}}`
	c, _ := newContext(body)

	var got sample
	err := Bind(c, &got)

	require.Error(t, err)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Request payload too large")
	assert.Empty(t, got.Phone)
}

func TestBind_AcceptsBodyAtLimit(t *testing.T) {
	prefix, suffix := `{"data":{"phone":"`, `"}}`
	body := prefix + strings.Repeat("5", MaxBodyBytes-len(prefix)-len(suffix)) + suffix
	c, _ := newContext(body)

	var got sample
	require.NoError(t, Bind(c, &got))
	assert.Len(t, got.Phone, MaxBodyBytes-len(prefix)-len(suffix))
}

func TestRespond(t *testing.T) {
	c, w := newContext("")
	Respond(c, gin.H{"success": true})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":{"success":true}}`, w.Body.String())
}

func TestFail(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "Invalid Argument",
			err:    apperr.New(apperr.InvalidArgument, "Phone number and code are required"),
			status: http.StatusBadRequest,
			body:   `{"error":{"status":"INVALID_ARGUMENT","message":"Phone number and code are required"}}`,
		},
		{
			name:   "Failed Precondition",
			err:    apperr.New(apperr.FailedPrecondition, "SMS service not configured"),
			status: http.StatusBadRequest,
			body:   `{"error":{"status":"FAILED_PRECONDITION","message":"SMS service not configured"}}`,
		},
		{
			name:   "Permission Denied",
			err:    apperr.New(apperr.PermissionDenied, "unverified"),
			status: http.StatusForbidden,
			body:   `{"error":{"status":"PERMISSION_DENIED","message":"unverified"}}`,
		},
		{
			name:   "Untyped Error Is Hidden",
			err:    errors.New("dial tcp 10.0.0.1:443: connection refused"),
			status: http.StatusInternalServerError,
			body:   `{"error":{"status":"INTERNAL","message":"Internal error"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newContext("")
			Fail(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "permission-denied", Outcome(apperr.New(apperr.PermissionDenied, "x")))
	assert.Equal(t, "internal", Outcome(errors.New("x")))
}
