package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/models"
)

type MockEventHandler struct {
	events []models.WebhookEvent
	err    error
	mutex  sync.RWMutex
}

func NewMockEventHandler() *MockEventHandler {
	return &MockEventHandler{}
}

func (h *MockEventHandler) SetError(err error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.err = err
}

func (h *MockEventHandler) HandleEvent(ctx context.Context, event *models.WebhookEvent) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.err != nil {
		return h.err
	}
	h.events = append(h.events, *event)
	return nil
}

func (h *MockEventHandler) Events() []models.WebhookEvent {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	out := make([]models.WebhookEvent, len(h.events))
	copy(out, h.events)
	return out
}

type ConsumerPoolTestSuite struct {
	suite.Suite
	handler *MockEventHandler
	pool    *ConsumerPool
}

func (s *ConsumerPoolTestSuite) SetupTest() {
	s.handler = NewMockEventHandler()
	manager := NewRabbitMQManager("amqp://localhost:5672/", zap.NewNop())
	s.pool = NewConsumerPool("evolution_webhook_events", 3, manager, s.handler, zap.NewNop())
}

func (s *ConsumerPoolTestSuite) TestNewConsumerPool() {
	s.Equal("evolution_webhook_events", s.pool.QueueName())
	s.Equal(3, s.pool.WorkerCount())
	s.Equal(6, cap(s.pool.jobs))

	pool := NewConsumerPool("q", 0, s.pool.rabbitMQ, s.handler, zap.NewNop())
	s.Equal(1, pool.WorkerCount())
}

func (s *ConsumerPoolTestSuite) TestProcessDecodesEvent() {
	body := []byte(`{"event":"messages.upsert","instance":"chip-01","data":{"key":{"fromMe":false}}}`)

	err := s.pool.process(context.Background(), body)

	s.NoError(err)
	events := s.handler.Events()
	s.Require().Len(events, 1)
	s.Equal("chip-01", events[0].InstanceKey())
	s.Equal(models.EventMessagesUpsert, events[0].Kind())
}

func (s *ConsumerPoolTestSuite) TestProcessRejectsMalformedBody() {
	err := s.pool.process(context.Background(), []byte(`{not json`))

	s.ErrorIs(err, ErrMalformedEvent)
	s.Empty(s.handler.Events())
}

func (s *ConsumerPoolTestSuite) TestProcessSurfacesHandlerError() {
	s.handler.SetError(assert.AnError)

	err := s.pool.process(context.Background(), []byte(`{"event":"connection.update"}`))
	s.ErrorIs(err, assert.AnError)
}

func (s *ConsumerPoolTestSuite) TestStartFailsWithoutBroker() {
	s.Error(s.pool.Start())
}

func (s *ConsumerPoolTestSuite) TestStopWithoutStart() {
	s.pool.Stop()
	s.pool.Stop()
}

func TestConsumerPoolTestSuite(t *testing.T) {
	suite.Run(t, new(ConsumerPoolTestSuite))
}

func TestDecide(t *testing.T) {
	transient := errors.New("db down")
	malformed := errors.Join(ErrMalformedEvent, errors.New("bad json"))

	tests := []struct {
		name       string
		err        error
		retryCount int
		expected   disposition
	}{
		{"success acks", nil, 0, dispositionAck},
		{"success after retries acks", nil, 2, dispositionAck},
		{"first failure retries", transient, 0, dispositionRetry},
		{"second failure retries", transient, 1, dispositionRetry},
		{"last attempt dead letters", transient, MaxDeliveryAttempts - 1, dispositionDeadLetter},
		{"malformed never retries", malformed, 0, dispositionDeadLetter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, decide(tt.err, tt.retryCount))
		})
	}
}
