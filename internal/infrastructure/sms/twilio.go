package sms

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/medeiros-dev/notification-gateway/configs"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/sms"
	"github.com/medeiros-dev/notification-gateway/pkg/logger"
)

// Twilio error codes that map onto client-facing failures.
const (
	codeInvalidToNumber   = 21211
	codeNotMobileNumber   = 21614
	codeUnverifiedTrialTo = 21608
)

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioGateway sends SMS through the Twilio Messages API.
type TwilioGateway struct {
	from   string
	client func() messageCreator
}

var _ sms.Gateway = (*TwilioGateway)(nil)

// NewGateway returns the Twilio gateway, or an unconfigured stand-in when any
// credential is missing.
func NewGateway(conf configs.SMSConf) sms.Gateway {
	if !conf.Configured() {
		logger.L().Warn("Twilio credentials missing; SMS sending is disabled")
		return Unconfigured{}
	}
	return &TwilioGateway{
		from: conf.PhoneNumber,
		client: sync.OnceValue(func() messageCreator {
			return twilio.NewRestClientWithParams(twilio.ClientParams{
				Username: conf.AccountSID,
				Password: conf.AuthToken,
			}).Api
		}),
	}
}

func (g *TwilioGateway) Send(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(g.from)
	params.SetBody(body)

	msg, err := g.client().CreateMessage(params)
	if err != nil {
		return "", classify(err)
	}
	if msg == nil || msg.Sid == nil {
		return "", errors.New("twilio returned no message sid")
	}
	logger.L().Debug("Twilio message created", zap.String("messageSid", *msg.Sid), logger.TraceField(ctx))
	return *msg.Sid, nil
}

// classify converts Twilio REST errors into *sms.GatewayError.
func classify(err error) error {
	var restErr *client.TwilioRestError
	if !errors.As(err, &restErr) {
		return fmt.Errorf("twilio request failed: %w", err)
	}

	gwErr := &sms.GatewayError{Code: restErr.Code, Message: restErr.Message}
	switch restErr.Code {
	case codeInvalidToNumber, codeNotMobileNumber:
		gwErr.Kind = sms.ErrInvalidNumber
	case codeUnverifiedTrialTo:
		gwErr.Kind = sms.ErrUnverifiedNumber
	}
	return gwErr
}

// Unconfigured is the gateway used when credentials are absent.
type Unconfigured struct{}

func (Unconfigured) Send(ctx context.Context, to, body string) (string, error) {
	return "", sms.ErrNotConfigured
}
