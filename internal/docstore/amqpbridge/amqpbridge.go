// Package amqpbridge layers cross-client change propagation over a local
// document store. Every write or delete is published as a full-document
// snapshot on a RabbitMQ fanout exchange; peer snapshots are applied to the
// wrapped store, which then notifies local subscribers. This gives the
// sqlite backend multi-device semantics without a hosted document service.
package amqpbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"gastos/internal/docstore"
	"gastos/internal/log"
)

type Store struct {
	base     docstore.Store
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	queue    string
	clientID string
	logger   *log.Logger

	cancel context.CancelFunc
	group  *errgroup.Group
}

// Config holds the broker settings for the bridge.
type Config struct {
	URL      string
	Exchange string
}

// New connects the bridge and starts the peer-snapshot consumer loop.
// Snapshots published by this client are skipped on receipt.
func New(ctx context.Context, base docstore.Store, cfg Config, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent("amqpbridge")
	}

	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	s := &Store{
		base:     base,
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
		clientID: uuid.NewString(),
		logger:   logger,
	}

	if err := s.setup(); err != nil {
		s.closeBroker()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.group, ctx = errgroup.WithContext(ctx)
	deliveries, err := s.channel.ConsumeWithContext(ctx, s.queue, "", true, true, false, false, nil)
	if err != nil {
		cancel()
		s.closeBroker()
		return nil, fmt.Errorf("consume queue: %w", err)
	}
	s.group.Go(func() error { return s.consumeLoop(ctx, deliveries) })

	logger.InfoContext(ctx, "AMQP bridge started",
		"exchange", cfg.Exchange,
		"client_id", s.clientID)

	return s, nil
}

func (s *Store) setup() error {
	err := s.channel.ExchangeDeclare(
		s.exchange, // name
		"fanout",   // type: every peer sees every snapshot
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Exclusive per-client queue so each peer gets its own copy.
	q, err := s.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	s.queue = q.Name

	if err := s.channel.QueueBind(s.queue, "", s.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

func (s *Store) consumeLoop(ctx context.Context, deliveries <-chan amqp091.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			env, err := EnvelopeFromJSON(d.Body)
			if err != nil {
				s.logger.WarnContext(ctx, "Discarding undecodable snapshot message", "error", err)
				continue
			}
			if env.Origin == s.clientID {
				continue
			}
			if err := s.applyPeerSnapshot(ctx, env); err != nil {
				s.logger.ErrorContext(ctx, "Failed to apply peer snapshot",
					"path", env.Path, "origin", env.Origin, "error", err)
			}
		}
	}
}

func (s *Store) applyPeerSnapshot(ctx context.Context, env *Envelope) error {
	if !env.Exists {
		return s.base.Delete(ctx, env.Path)
	}
	return s.base.Write(ctx, env.Path, env.Doc)
}

func (s *Store) publish(ctx context.Context, env *Envelope) error {
	body, err := env.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal snapshot message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = s.channel.PublishWithContext(
		ctx,
		s.exchange,
		"",    // routing key unused on fanout
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, path string) (*docstore.Subscription, error) {
	return s.base.Subscribe(ctx, path)
}

func (s *Store) Watch(ctx context.Context, prefix string) (*docstore.ListSubscription, error) {
	return s.base.Watch(ctx, prefix)
}

func (s *Store) List(ctx context.Context, prefix string) ([]docstore.Entry, error) {
	return s.base.List(ctx, prefix)
}

func (s *Store) Write(ctx context.Context, path string, doc docstore.Document) error {
	if err := s.base.Write(ctx, path, doc); err != nil {
		return err
	}
	return s.publish(ctx, s.newEnvelope(path, true, doc))
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := s.base.Delete(ctx, path); err != nil {
		return err
	}
	return s.publish(ctx, s.newEnvelope(path, false, docstore.Document{}))
}

// Close stops the consumer loop and releases the broker connection.
func (s *Store) Close() error {
	s.cancel()
	_ = s.group.Wait()
	return s.closeBroker()
}

func (s *Store) closeBroker() error {
	var errs []error
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("channel: %w", err))
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close amqp bridge: %v", errs)
	}
	return nil
}
