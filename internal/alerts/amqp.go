package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// publisher is the subset of *amqp091.Channel used for publishing.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// AMQPNotifier publishes batches to a durable direct exchange.
type AMQPNotifier struct {
	conn         *amqp091.Connection
	channel      publisher
	closeChannel func() error
	exchangeName string
	queueName    string
	log          zerolog.Logger
}

// NewAMQPNotifier dials the broker and declares the exchange, queue and binding.
func NewAMQPNotifier(url, exchangeName, queueName string, log zerolog.Logger) (*AMQPNotifier, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	n := &AMQPNotifier{
		conn:         conn,
		channel:      channel,
		closeChannel: channel.Close,
		exchangeName: exchangeName,
		queueName:    queueName,
		log:          log.With().Str("component", "alerts_amqp").Logger(),
	}

	if err := setup(channel, exchangeName, queueName); err != nil {
		n.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return n, nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name on a direct exchange.
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// Notify publishes the batch as a persistent JSON message.
func (n *AMQPNotifier) Notify(ctx context.Context, batch Batch) error {
	body, err := batch.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = n.channel.PublishWithContext(
		ctx,
		n.exchangeName, // exchange
		n.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    batch.ID,
			Timestamp:    batch.DetectedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish alert batch: %w", err)
	}

	n.log.Info().
		Str("batch_id", batch.ID).
		Int("count", len(batch.Transactions)).
		Str("exchange", n.exchangeName).
		Str("queue", n.queueName).
		Msg("published alert batch")

	return nil
}

// Close shuts down the channel and connection.
func (n *AMQPNotifier) Close() error {
	if n.closeChannel != nil {
		n.closeChannel()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
