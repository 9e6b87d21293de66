package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const handlerTimeout = 30 * time.Second

// newConsumerChannel returns a fresh channel with prefetch (QoS) applied.
func (client *Client) newConsumerChannel(prefetch int) (*amqp.Channel, error) {
	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, errors.New("rabbitmq: connection is not ready")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: set QoS (prefetch=%d): %w", prefetch, err)
	}

	return ch, nil
}

// Consume delivers messages from queue to handler with manual acks until ctx is done.
// A failed message is requeued once; a second failure dead-letters it.
func (client *Client) Consume(
	ctx context.Context,
	queue string,
	consumerTag string,
	prefetch int,
	handler func(ctx context.Context, body []byte) error,
) error {
	ch, err := client.newConsumerChannel(prefetch)
	if err != nil {
		return err
	}
	defer ch.Close()

	deliveries, err := ch.Consume(
		queue,
		consumerTag,
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume(%s): %w", queue, err)
	}

	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			if consumerTag != "" {
				_ = ch.Cancel(consumerTag, false)
			}
			return nil

		case cerr := <-chClosed:
			if cerr != nil {
				return fmt.Errorf("rabbitmq: channel closed while consuming %s: %w", queue, cerr)
			}
			return nil

		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			client.dispatch(ctx, queue, d, handler)
		}
	}
}

func (client *Client) dispatch(ctx context.Context, queue string, d amqp.Delivery, handler func(context.Context, []byte) error) {
	hCtx, cancel := context.WithTimeout(extractTrace(ctx, d.Headers), handlerTimeout)
	defer cancel()

	hCtx = client.logger.WithRequestID(hCtx, d.MessageId)

	if err := handler(hCtx, d.Body); err != nil {
		requeue := !d.Redelivered
		client.logger.Error(hCtx, "rabbitmq_handler_failed", "Message handler failed", err, map[string]any{
			"queue":       queue,
			"routing_key": d.RoutingKey,
			"requeue":     requeue,
		})
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}
