package fanout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
)

type MockFanoutUseCase struct {
	mock.Mock
}

func (m *MockFanoutUseCase) Execute(ctx context.Context, record domain.NotificationRecord) domain.DeliveryOutcome {
	return m.Called(ctx, record).Get(0).(domain.DeliveryOutcome)
}

func TestFanoutHandler_Handle(t *testing.T) {
	uc := new(MockFanoutUseCase)
	expected := domain.DeliveryOutcome{NotificationID: "n1", Status: domain.OutcomeFailed, Error: "boom"}
	uc.On("Execute", mock.Anything, sampleRecord()).Return(expected).Once()

	got := NewFanoutHandler(uc).Handle(context.Background(), sampleRecord())

	assert.Equal(t, expected, got)
	uc.AssertExpectations(t)
}

func TestNewFanout_WiresStoreAsBothPorts(t *testing.T) {
	s, gw := new(MockStore), new(MockPushGateway)
	s.On("Get", mock.Anything, "n1").Return(sampleRecord(), nil).Once()
	s.On("ListTokens", mock.Anything).Return([]domain.DeviceToken{}, nil).Once()

	got := NewFanout(s, gw).Handle(context.Background(), sampleRecord())

	assert.Equal(t, domain.OutcomeSkippedNoTokens, got.Status)
	s.AssertExpectations(t)
}
