package domain

import (
	"strings"

	"github.com/medeiros-dev/notification-gateway/internal/domain/apperr"
)

type VerificationRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

func (r VerificationRequest) Validate() error {
	if strings.TrimSpace(r.Phone) == "" || strings.TrimSpace(r.Code) == "" {
		return apperr.New(apperr.InvalidArgument, "Phone number and code are required")
	}
	return nil
}

type SmsResult struct {
	Success    bool   `json:"success"`
	MessageSid string `json:"messageSid"`
	Phone      string `json:"phone"`
}
