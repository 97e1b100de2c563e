package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/metrics"
	"github.com/galihcitta/number-warming-service/internal/models"
)

const (
	// MaxDeliveryAttempts is how many times an event is handed to the
	// handler before it is parked in the dead letter queue.
	MaxDeliveryAttempts = 3

	retryHeader    = "x-retry-count"
	originalHeader = "x-original-queue"

	connectAttempts = 5
)

var ErrNotConnected = errors.New("rabbitmq connection is not available")

// RabbitMQManager owns the broker connection and a set of named channels.
// Channels are recreated lazily after a reconnect.
type RabbitMQManager struct {
	url        string
	connection *amqp.Connection
	logger     *zap.Logger
	mutex      sync.RWMutex
	channels   map[string]*amqp.Channel
	done       chan struct{}
	closeOnce  sync.Once
}

func NewRabbitMQManager(url string, logger *zap.Logger) *RabbitMQManager {
	return &RabbitMQManager{
		url:      url,
		logger:   logger,
		channels: make(map[string]*amqp.Channel),
		done:     make(chan struct{}),
	}
}

// DLQName is the dead letter queue paired with queueName.
func DLQName(queueName string) string {
	return queueName + ".dlq"
}

func (r *RabbitMQManager) Connect() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.connection != nil && !r.connection.IsClosed() {
		return nil
	}

	var conn *amqp.Connection
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		conn, err = amqp.Dial(r.url)
		if err == nil {
			break
		}

		r.logger.Warn("Failed to connect to RabbitMQ, retrying...",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < connectAttempts {
			select {
			case <-r.done:
				return ErrNotConnected
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	if err != nil {
		metrics.UpdateRabbitMQConnections("disconnected", 1)
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", connectAttempts, err)
	}

	r.connection = conn
	metrics.UpdateRabbitMQConnections("connected", 1)
	metrics.UpdateRabbitMQConnections("disconnected", 0)
	r.logger.Info("Successfully connected to RabbitMQ")

	go r.monitorConnection(conn)
	return nil
}

func (r *RabbitMQManager) Close() error {
	r.closeOnce.Do(func() { close(r.done) })

	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, ch := range r.channels {
		if ch != nil && !ch.IsClosed() {
			ch.Close()
		}
	}
	r.channels = make(map[string]*amqp.Channel)

	if r.connection != nil && !r.connection.IsClosed() {
		if err := r.connection.Close(); err != nil {
			r.logger.Error("Error closing RabbitMQ connection", zap.Error(err))
			return err
		}
	}
	metrics.UpdateRabbitMQConnections("connected", 0)

	r.logger.Info("RabbitMQ connection closed")
	return nil
}

func (r *RabbitMQManager) IsConnected() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.connection != nil && !r.connection.IsClosed()
}

func (r *RabbitMQManager) GetChannel(channelID string) (*amqp.Channel, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.connection == nil || r.connection.IsClosed() {
		return nil, ErrNotConnected
	}

	if ch, exists := r.channels[channelID]; exists {
		if ch != nil && !ch.IsClosed() {
			return ch, nil
		}
		delete(r.channels, channelID)
	}

	ch, err := r.connection.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	r.channels[channelID] = ch
	return ch, nil
}

func (r *RabbitMQManager) CloseChannel(channelID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if ch, exists := r.channels[channelID]; exists {
		delete(r.channels, channelID)
		if ch != nil && !ch.IsClosed() {
			return ch.Close()
		}
	}
	return nil
}

// DeclareQueue declares a durable queue whose rejected messages are routed
// to its dead letter queue.
func (r *RabbitMQManager) DeclareQueue(queueName string) error {
	ch, err := r.GetChannel("queue_management")
	if err != nil {
		return fmt.Errorf("failed to get channel for queue declaration: %w", err)
	}

	dlq := DLQName(queueName)
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead letter queue %s: %w", dlq, err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlq,
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	r.logger.Info("Queue and DLQ declared",
		zap.String("queue", queueName),
		zap.String("dlq", dlq))
	return nil
}

// PublishEvent queues one webhook event for the consumer pool.
func (r *RabbitMQManager) PublishEvent(ctx context.Context, queueName string, event *models.WebhookEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}
	return r.publish(ctx, queueName, body, 0)
}

func (r *RabbitMQManager) publish(ctx context.Context, queueName string, body []byte, retryCount int) error {
	ch, err := r.GetChannel("publisher")
	if err != nil {
		return fmt.Errorf("failed to get channel for publishing: %w", err)
	}

	err = ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.New().String(),
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			retryHeader:    int32(retryCount),
			originalHeader: queueName,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", queueName, err)
	}

	if retryCount > 0 {
		r.logger.Info("Event republished for retry",
			zap.String("queue", queueName),
			zap.Int("retry_count", retryCount))
	}
	return nil
}

// Republish sends a failed event back to its queue with the retry count
// bumped, after an exponential backoff (1s, 2s, 4s).
func (r *RabbitMQManager) Republish(ctx context.Context, queueName string, body []byte, retryCount int) error {
	if retryCount+1 >= MaxDeliveryAttempts {
		return fmt.Errorf("maximum delivery attempts reached for queue %s", queueName)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(RetryBackoff(retryCount)):
	}
	return r.publish(ctx, queueName, body, retryCount+1)
}

// RetryBackoff is the delay before redelivering an event that already
// failed retryCount times.
func RetryBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	return time.Duration(1<<retryCount) * time.Second
}

// RetryCount reads the retry header set by publish. Brokers may hand the
// value back as any integer width.
func RetryCount(headers amqp.Table) int {
	switch v := headers[retryHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	default:
		return 0
	}
}

func (r *RabbitMQManager) monitorConnection(conn *amqp.Connection) {
	closeChan := conn.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case <-r.done:
		return
	case err, ok := <-closeChan:
		if ok && err != nil {
			r.logger.Error("RabbitMQ connection lost", zap.Error(err))
			metrics.UpdateRabbitMQConnections("connected", 0)
			r.attemptReconnect()
		}
	}
}

func (r *RabbitMQManager) attemptReconnect() {
	r.mutex.Lock()
	r.connection = nil
	for id := range r.channels {
		delete(r.channels, id)
	}
	r.mutex.Unlock()

	for {
		select {
		case <-r.done:
			return
		default:
		}

		if err := r.Connect(); err != nil {
			r.logger.Error("Failed to reconnect to RabbitMQ", zap.Error(err))
			select {
			case <-r.done:
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		r.logger.Info("Successfully reconnected to RabbitMQ")
		return
	}
}
