package trigger

import (
	"github.com/medeiros-dev/notification-gateway/configs"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/broker"
	"github.com/medeiros-dev/notification-gateway/internal/interfaces"
)

func NewConsumer(messageBroker broker.MessageBroker, handler interfaces.RecordHandlerInterface, cfg configs.TriggerConf) *ConsumerHandler {
	return NewConsumerHandler(NewConsumerUseCase(messageBroker, handler, cfg.WorkerPoolSize))
}
