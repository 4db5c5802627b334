package trigger

import "context"

type ConsumerHandler struct {
	consumerUseCase *ConsumerUseCase
}

func NewConsumerHandler(consumerUseCase *ConsumerUseCase) *ConsumerHandler {
	return &ConsumerHandler{consumerUseCase: consumerUseCase}
}

func (h *ConsumerHandler) Handle(ctx context.Context) error {
	return h.consumerUseCase.Execute(ctx)
}
