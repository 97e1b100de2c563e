package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/metrics"
	"github.com/galihcitta/number-warming-service/internal/models"
)

// EventHandler processes one inbound gateway event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *models.WebhookEvent) error
}

// ErrMalformedEvent marks a delivery that can never be processed.
var ErrMalformedEvent = errors.New("malformed webhook event")

type disposition int

const (
	dispositionAck disposition = iota
	dispositionRetry
	dispositionDeadLetter
)

// ConsumerPool drains the webhook queue with a fixed number of workers.
// Failed events are republished with a bumped retry count until
// MaxDeliveryAttempts, then rejected into the dead letter queue.
type ConsumerPool struct {
	queueName   string
	workerCount int
	rabbitMQ    *RabbitMQManager
	handler     EventHandler
	logger      *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	jobs        chan amqp.Delivery
	stopOnce    sync.Once
}

func NewConsumerPool(queueName string, workerCount int, rabbitMQ *RabbitMQManager, handler EventHandler, logger *zap.Logger) *ConsumerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ConsumerPool{
		queueName:   queueName,
		workerCount: workerCount,
		rabbitMQ:    rabbitMQ,
		handler:     handler,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		jobs:        make(chan amqp.Delivery, workerCount*2),
	}
}

func (p *ConsumerPool) Start() error {
	if err := p.rabbitMQ.DeclareQueue(p.queueName); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	p.wg.Add(1)
	go p.consumer()

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	metrics.UpdateActiveConsumers(float64(p.workerCount))

	p.logger.Info("Webhook consumer pool started",
		zap.String("queue", p.queueName),
		zap.Int("workers", p.workerCount))
	return nil
}

// Stop cancels consumption and waits for in-flight events. Unacknowledged
// deliveries are requeued by the broker when the channel closes.
func (p *ConsumerPool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping webhook consumer pool", zap.String("queue", p.queueName))
		p.cancel()
		p.wg.Wait()
		metrics.UpdateActiveConsumers(0)
		p.logger.Info("Webhook consumer pool stopped", zap.String("queue", p.queueName))
	})
}

func (p *ConsumerPool) WorkerCount() int {
	return p.workerCount
}

func (p *ConsumerPool) QueueName() string {
	return p.queueName
}

// consumer subscribes to the queue and re-subscribes after the broker
// connection is restored.
func (p *ConsumerPool) consumer() {
	defer p.wg.Done()

	channelID := "consumer_" + p.queueName
	defer p.rabbitMQ.CloseChannel(channelID)

	for {
		msgs, err := p.subscribe(channelID)
		if err != nil {
			p.logger.Warn("Failed to subscribe to webhook queue, retrying", zap.Error(err))
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		if !p.dispatch(msgs) {
			return
		}
		p.logger.Warn("Webhook delivery channel closed, re-subscribing", zap.String("queue", p.queueName))
	}
}

func (p *ConsumerPool) subscribe(channelID string) (<-chan amqp.Delivery, error) {
	ch, err := p.rabbitMQ.GetChannel(channelID)
	if err != nil {
		return nil, err
	}
	if err := ch.Qos(p.workerCount, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}
	return ch.Consume(p.queueName, channelID, false, false, false, false, nil)
}

// dispatch hands deliveries to workers. It returns false once the pool is
// stopping and true when the delivery channel closed underneath it.
func (p *ConsumerPool) dispatch(msgs <-chan amqp.Delivery) bool {
	for {
		select {
		case <-p.ctx.Done():
			return false
		case msg, ok := <-msgs:
			if !ok {
				return true
			}
			select {
			case p.jobs <- msg:
			case <-p.ctx.Done():
				msg.Nack(false, true)
				return false
			}
		}
	}
}

func (p *ConsumerPool) worker(workerID int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case d := <-p.jobs:
			p.handleDelivery(workerID, d)
		}
	}
}

func (p *ConsumerPool) handleDelivery(workerID int, d amqp.Delivery) {
	retryCount := RetryCount(d.Headers)
	err := p.process(p.ctx, d.Body)

	switch decide(err, retryCount) {
	case dispositionAck:
		d.Ack(false)
	case dispositionRetry:
		p.logger.Warn("Webhook event failed, scheduling retry",
			zap.Int("worker_id", workerID),
			zap.Int("retry_count", retryCount),
			zap.Error(err))
		if rerr := p.rabbitMQ.Republish(p.ctx, p.queueName, d.Body, retryCount); rerr != nil {
			p.logger.Error("Failed to republish webhook event", zap.Error(rerr))
			d.Nack(false, false)
			return
		}
		d.Ack(false)
	case dispositionDeadLetter:
		p.logger.Error("Webhook event moved to dead letter queue",
			zap.Int("worker_id", workerID),
			zap.String("dlq", DLQName(p.queueName)),
			zap.Int("retry_count", retryCount),
			zap.Error(err))
		d.Nack(false, false)
	}
}

func (p *ConsumerPool) process(ctx context.Context, body []byte) error {
	var event models.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return p.handler.HandleEvent(ctx, &event)
}

func decide(err error, retryCount int) disposition {
	switch {
	case err == nil:
		return dispositionAck
	case errors.Is(err, ErrMalformedEvent):
		return dispositionDeadLetter
	case retryCount+1 < MaxDeliveryAttempts:
		return dispositionRetry
	default:
		return dispositionDeadLetter
	}
}
