package fanout

import (
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/push"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/store"
)

func NewFanout(s store.Store, gateway push.Gateway, opts ...Option) *FanoutHandler {
	return NewFanoutHandler(NewFanoutUseCase(s, s, gateway, opts...))
}
