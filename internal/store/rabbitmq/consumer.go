package rabbitmq

import (
	"context"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RetryCountHeader counts trips through the retry queue.
const RetryCountHeader = "x-retry-count"

type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewConsumer declares the queue topology and limits unacked deliveries to prefetch.
func NewConsumer(url, queue string, prefetch int) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := DeclareTopology(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Consumer{conn: conn, ch: ch, queue: queue}, nil
}

// Deliveries starts consuming with manual acks.
func (c *Consumer) Deliveries() (<-chan amqp.Delivery, error) {
	return c.ch.Consume(c.queue, "", false, false, false, false, nil)
}

// RetryCount reports how many times d has already been retried.
func RetryCount(d amqp.Delivery) int {
	switch v := d.Headers[RetryCountHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Retry republishes d on the retry queue with a per-message TTL of delay.
// On expiry the broker dead-letters it back to the main queue. The caller
// still acks the original delivery.
func (c *Consumer) Retry(ctx context.Context, d amqp.Delivery, delay time.Duration) error {
	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[RetryCountHeader] = int32(RetryCount(d) + 1)

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return c.ch.PublishWithContext(cctx,
		"",
		RetryQueue(c.queue),
		false,
		false,
		amqp.Publishing{
			ContentType:  d.ContentType,
			DeliveryMode: amqp.Persistent,
			Headers:      headers,
			Body:         d.Body,
			Timestamp:    time.Now(),
			Expiration:   strconv.FormatInt(delay.Milliseconds(), 10),
		},
	)
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
