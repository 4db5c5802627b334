package payment

import "github.com/medeiros-dev/notification-gateway/internal/domain/port/payment"

func NewProcessPayment(gateway payment.Gateway) *ProcessPaymentHandler {
	return NewProcessPaymentHandler(NewProcessPaymentUseCase(gateway))
}
