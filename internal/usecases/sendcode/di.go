package sendcode

import "github.com/medeiros-dev/notification-gateway/internal/domain/port/sms"

func NewSendCode(gateway sms.Gateway) *SendCodeHandler {
	return NewSendCodeHandler(NewSendCodeUseCase(gateway))
}
