package fanout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/claim"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/push"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/store"
)

// --- Mocks ---

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, id string) (domain.NotificationRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.NotificationRecord), args.Error(1)
}

func (m *MockStore) MarkSent(ctx context.Context, id string, successCount, failureCount int) error {
	return m.Called(ctx, id, successCount, failureCount).Error(0)
}

func (m *MockStore) MarkFailed(ctx context.Context, id string, message string) error {
	return m.Called(ctx, id, message).Error(0)
}

func (m *MockStore) ListTokens(ctx context.Context) ([]domain.DeviceToken, error) {
	args := m.Called(ctx)
	tokens, _ := args.Get(0).([]domain.DeviceToken)
	return tokens, args.Error(1)
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStore) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var _ store.Store = (*MockStore)(nil)

type MockPushGateway struct {
	mock.Mock
}

func (m *MockPushGateway) SendMulticast(ctx context.Context, msg push.MulticastMessage) (push.BatchResult, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(push.BatchResult), args.Error(1)
}

var _ push.Gateway = (*MockPushGateway)(nil)

type MockClaimer struct {
	mock.Mock
}

func (m *MockClaimer) Acquire(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, id, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockClaimer) Release(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

var _ claim.Claimer = (*MockClaimer)(nil)

// --- Test Data ---

func sampleRecord() domain.NotificationRecord {
	return domain.NotificationRecord{
		ID:         "n1",
		EventID:    "e1",
		EventTitle: "Hackathon",
		EventDate:  "2024-06-01",
	}
}

func tokensMatching(expected ...string) interface{} {
	return mock.MatchedBy(func(msg push.MulticastMessage) bool {
		return assert.ObjectsAreEqual(expected, msg.Tokens)
	})
}

// --- Tests ---

func TestFanoutUseCase_Execute(t *testing.T) {
	tests := []struct {
		name     string
		record   domain.NotificationRecord
		stored   *domain.NotificationRecord
		getErr   error
		setup    func(s *MockStore, gw *MockPushGateway)
		expected domain.DeliveryOutcome
	}{
		{
			name:   "Already Sent Is A No-op",
			record: func() domain.NotificationRecord { r := sampleRecord(); r.Sent = true; return r }(),
			setup:  func(s *MockStore, gw *MockPushGateway) {},
			expected: domain.DeliveryOutcome{
				NotificationID: "n1",
				Status:         domain.OutcomeSkippedSent,
			},
		},
		{
			name:   "Stored Copy Already Sent",
			record: sampleRecord(),
			stored: func() *domain.NotificationRecord { r := sampleRecord(); r.Sent = true; return &r }(),
			setup:  func(s *MockStore, gw *MockPushGateway) {},
			expected: domain.DeliveryOutcome{
				NotificationID: "n1",
				Status:         domain.OutcomeSkippedSent,
			},
		},
		{
			name:   "Re-read Failure Is Recorded",
			record: sampleRecord(),
			getErr: errors.New("unavailable"),
			setup: func(s *MockStore, gw *MockPushGateway) {
				s.On("MarkFailed", mock.Anything, "n1", "re-reading notification: unavailable").Return(nil).Once()
			},
			expected: domain.DeliveryOutcome{
				NotificationID: "n1",
				Status:         domain.OutcomeFailed,
				Error:          "re-reading notification: unavailable",
			},
		},
		{
			name:   "Empty Registry Leaves Record Untouched",
			record: sampleRecord(),
			setup: func(s *MockStore, gw *MockPushGateway) {
				s.On("ListTokens", mock.Anything).Return([]domain.DeviceToken{}, nil).Once()
			},
			expected: domain.DeliveryOutcome{NotificationID: "n1", Status: domain.OutcomeSkippedNoTokens},
		},
		{
			name:   "Only Empty Tokens",
			record: sampleRecord(),
			setup: func(s *MockStore, gw *MockPushGateway) {
				s.On("ListTokens", mock.Anything).Return([]domain.DeviceToken{{ID: "u1"}, {ID: "u2"}}, nil).Once()
			},
			expected: domain.DeliveryOutcome{NotificationID: "n1", Status: domain.OutcomeSkippedNoTokens},
		},
		{
			name:   "Partial Delivery Counts As Sent",
			record: sampleRecord(),
			setup: func(s *MockStore, gw *MockPushGateway) {
				s.On("ListTokens", mock.Anything).Return([]domain.DeviceToken{
					{ID: "u1", Token: "A"}, {ID: "u2"}, {ID: "u3", Token: "B"}, {ID: "u4", Token: "C"},
				}, nil).Once()
				gw.On("SendMulticast", mock.Anything, tokensMatching("A", "B", "C")).
					Return(push.BatchResult{SuccessCount: 2, FailureCount: 1}, nil).Once()
				s.On("MarkSent", mock.Anything, "n1", 2, 1).Return(nil).Once()
			},
			expected: domain.DeliveryOutcome{NotificationID: "n1", Status: domain.OutcomeSent, SuccessCount: 2, FailureCount: 1},
		},
		{
			name:   "Token Read Failure Is Recorded",
			record: sampleRecord(),
			setup: func(s *MockStore, gw *MockPushGateway) {
				s.On("ListTokens", mock.Anything).Return(nil, errors.New("permission denied")).Once()
				s.On("MarkFailed", mock.Anything, "n1", "reading device tokens: permission denied").Return(nil).Once()
			},
			expected: domain.DeliveryOutcome{
				NotificationID: "n1",
				Status:         domain.OutcomeFailed,
				Error:          "reading device tokens: permission denied",
			},
		},
		{
			name:   "Gateway Failure Is Recorded",
			record: sampleRecord(),
			setup: func(s *MockStore, gw *MockPushGateway) {
				s.On("ListTokens", mock.Anything).Return([]domain.DeviceToken{{ID: "u1", Token: "A"}}, nil).Once()
				gw.On("SendMulticast", mock.Anything, mock.Anything).Return(push.BatchResult{}, errors.New("unavailable")).Once()
				s.On("MarkFailed", mock.Anything, "n1", "unavailable").Return(nil).Once()
			},
			expected: domain.DeliveryOutcome{NotificationID: "n1", Status: domain.OutcomeFailed, Error: "unavailable"},
		},
		{
			name:   "Partial Gateway Failure Keeps Counts",
			record: sampleRecord(),
			setup: func(s *MockStore, gw *MockPushGateway) {
				s.On("ListTokens", mock.Anything).Return([]domain.DeviceToken{{ID: "u1", Token: "A"}, {ID: "u2", Token: "B"}}, nil).Once()
				gw.On("SendMulticast", mock.Anything, mock.Anything).
					Return(push.BatchResult{SuccessCount: 1}, errors.New("unavailable")).Once()
				s.On("MarkFailed", mock.Anything, "n1", "unavailable").Return(nil).Once()
			},
			expected: domain.DeliveryOutcome{
				NotificationID: "n1",
				Status:         domain.OutcomeFailed,
				SuccessCount:   1,
				Error:          "unavailable",
			},
		},
		{
			name:   "Write-back Failure Is Recorded",
			record: sampleRecord(),
			setup: func(s *MockStore, gw *MockPushGateway) {
				s.On("ListTokens", mock.Anything).Return([]domain.DeviceToken{{ID: "u1", Token: "A"}}, nil).Once()
				gw.On("SendMulticast", mock.Anything, mock.Anything).Return(push.BatchResult{SuccessCount: 1}, nil).Once()
				s.On("MarkSent", mock.Anything, "n1", 1, 0).Return(errors.New("deadline exceeded")).Once()
				s.On("MarkFailed", mock.Anything, "n1", "marking notification sent: deadline exceeded").Return(nil).Once()
			},
			expected: domain.DeliveryOutcome{
				NotificationID: "n1",
				Status:         domain.OutcomeFailed,
				SuccessCount:   1,
				Error:          "marking notification sent: deadline exceeded",
			},
		},
		{
			name:   "Failure To Record Failure Is Swallowed",
			record: sampleRecord(),
			setup: func(s *MockStore, gw *MockPushGateway) {
				s.On("ListTokens", mock.Anything).Return(nil, errors.New("down")).Once()
				s.On("MarkFailed", mock.Anything, "n1", mock.Anything).Return(errors.New("still down")).Once()
			},
			expected: domain.DeliveryOutcome{NotificationID: "n1", Status: domain.OutcomeFailed, Error: "reading device tokens: down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(MockStore)
			gw := new(MockPushGateway)
			if !tt.record.Sent {
				stored := tt.record
				if tt.stored != nil {
					stored = *tt.stored
				}
				s.On("Get", mock.Anything, "n1").Return(stored, tt.getErr).Once()
			}
			tt.setup(s, gw)

			got := NewFanoutUseCase(s, s, gw).Execute(context.Background(), tt.record)

			assert.Equal(t, tt.expected, got)
			s.AssertExpectations(t)
			gw.AssertExpectations(t)
			if tt.expected.Status == domain.OutcomeSkippedSent {
				s.AssertNotCalled(t, "ListTokens", mock.Anything)
			}
			if tt.expected.Status == domain.OutcomeSkippedNoTokens || tt.expected.Status == domain.OutcomeSkippedSent {
				s.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				gw.AssertNotCalled(t, "SendMulticast", mock.Anything, mock.Anything)
				s.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestFanoutUseCase_Claim(t *testing.T) {
	const ttl = 10 * time.Minute

	t.Run("Held Elsewhere Skips", func(t *testing.T) {
		s, gw, c := new(MockStore), new(MockPushGateway), new(MockClaimer)
		c.On("Acquire", mock.Anything, "n1", ttl).Return(false, nil).Once()

		got := NewFanoutUseCase(s, s, gw, WithClaim(c, ttl)).Execute(context.Background(), sampleRecord())

		assert.Equal(t, domain.OutcomeSkippedClaimed, got.Status)
		s.AssertNotCalled(t, "ListTokens", mock.Anything)
		c.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})

	t.Run("Kept After Success", func(t *testing.T) {
		s, gw, c := new(MockStore), new(MockPushGateway), new(MockClaimer)
		c.On("Acquire", mock.Anything, "n1", ttl).Return(true, nil).Once()
		s.On("Get", mock.Anything, "n1").Return(sampleRecord(), nil).Once()
		s.On("ListTokens", mock.Anything).Return([]domain.DeviceToken{{Token: "A"}}, nil).Once()
		gw.On("SendMulticast", mock.Anything, mock.Anything).Return(push.BatchResult{SuccessCount: 1}, nil).Once()
		s.On("MarkSent", mock.Anything, "n1", 1, 0).Return(nil).Once()

		got := NewFanoutUseCase(s, s, gw, WithClaim(c, ttl)).Execute(context.Background(), sampleRecord())

		assert.Equal(t, domain.OutcomeSent, got.Status)
		c.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})

	t.Run("Released After Failure", func(t *testing.T) {
		s, gw, c := new(MockStore), new(MockPushGateway), new(MockClaimer)
		c.On("Acquire", mock.Anything, "n1", ttl).Return(true, nil).Once()
		c.On("Release", mock.Anything, "n1").Return(nil).Once()
		s.On("Get", mock.Anything, "n1").Return(sampleRecord(), nil).Once()
		s.On("ListTokens", mock.Anything).Return([]domain.DeviceToken{{Token: "A"}}, nil).Once()
		gw.On("SendMulticast", mock.Anything, mock.Anything).Return(push.BatchResult{}, errors.New("unavailable")).Once()
		s.On("MarkFailed", mock.Anything, "n1", "unavailable").Return(nil).Once()

		got := NewFanoutUseCase(s, s, gw, WithClaim(c, ttl)).Execute(context.Background(), sampleRecord())

		assert.Equal(t, domain.OutcomeFailed, got.Status)
		c.AssertExpectations(t)
	})

	t.Run("Claim Store Down Falls Back", func(t *testing.T) {
		s, gw, c := new(MockStore), new(MockPushGateway), new(MockClaimer)
		c.On("Acquire", mock.Anything, "n1", ttl).Return(false, errors.New("redis down")).Once()
		s.On("Get", mock.Anything, "n1").Return(sampleRecord(), nil).Once()
		s.On("ListTokens", mock.Anything).Return([]domain.DeviceToken{}, nil).Once()

		got := NewFanoutUseCase(s, s, gw, WithClaim(c, ttl)).Execute(context.Background(), sampleRecord())

		assert.Equal(t, domain.OutcomeSkippedNoTokens, got.Status)
		c.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})
}

func TestFanoutUseCase_StaleTriggerPayload(t *testing.T) {
	s, gw := new(MockStore), new(MockPushGateway)
	stored := sampleRecord()
	stored.Sent = true
	s.On("Get", mock.Anything, "n1").Return(stored, nil).Once()

	got := NewFanoutUseCase(s, s, gw).Execute(context.Background(), sampleRecord())

	assert.Equal(t, domain.OutcomeSkippedSent, got.Status)
	gw.AssertNotCalled(t, "SendMulticast", mock.Anything, mock.Anything)
	s.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestFanoutUseCase_BuildsFromStoredCopy(t *testing.T) {
	s, gw := new(MockStore), new(MockPushGateway)
	stored := sampleRecord()
	stored.EventTitle = "Hackathon (moved)"
	s.On("Get", mock.Anything, "n1").Return(stored, nil).Once()
	s.On("ListTokens", mock.Anything).Return([]domain.DeviceToken{{Token: "A"}}, nil).Once()
	gw.On("SendMulticast", mock.Anything, mock.MatchedBy(func(msg push.MulticastMessage) bool {
		return msg.Title == "New Event: Hackathon (moved)"
	})).Return(push.BatchResult{SuccessCount: 1}, nil).Once()
	s.On("MarkSent", mock.Anything, "n1", 1, 0).Return(nil).Once()

	got := NewFanoutUseCase(s, s, gw).Execute(context.Background(), sampleRecord())

	assert.Equal(t, domain.OutcomeSent, got.Status)
	gw.AssertExpectations(t)
}
