package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/feed"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/orderbook"
)

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds publisher settings.
type Config struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
}

// NewKafkaWriter builds a synchronous writer for cfg.
func NewKafkaWriter(cfg Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
	}
}

// Metrics contains publisher statistics.
type Metrics struct {
	Published int64
	Failed    int64
	Batches   int64
}

// Publisher drains a price buffer into Kafka.
type Publisher struct {
	cfg    Config
	runID  string
	input  *feed.Buffer[orderbook.PricePoint]
	writer MessageWriter
	logger *slog.Logger

	published atomic.Int64
	failed    atomic.Int64
	batches   atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPublisher creates a publisher. A nil writer is built from cfg.
func NewPublisher(cfg Config, runID string, input *feed.Buffer[orderbook.PricePoint], writer MessageWriter, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if writer == nil {
		writer = NewKafkaWriter(cfg)
	}
	return &Publisher{
		cfg:    cfg,
		runID:  runID,
		input:  input,
		writer: writer,
		logger: logger,
	}
}

// Start begins publishing in the background.
func (p *Publisher) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.publishLoop(ctx)
	p.logger.Info("price publisher started", "topic", p.cfg.Topic, "run_id", p.runID)
}

// Stop publishes what is left in the buffer and closes the writer.
func (p *Publisher) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		points := p.input.Drain(p.cfg.BatchSize)
		if len(points) == 0 {
			break
		}
		if err := p.publish(ctx, points); err != nil {
			p.logger.Error("final publish failed", "error", err)
			break
		}
	}

	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	p.logger.Info("price publisher stopped",
		"published", p.published.Load(),
		"failed", p.failed.Load(),
	)
	return nil
}

// Metrics returns publisher statistics.
func (p *Publisher) Metrics() Metrics {
	return Metrics{
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
		Batches:   p.batches.Load(),
	}
}

func (p *Publisher) publishLoop(ctx context.Context) {
	defer p.wg.Done()

	for {
		points := p.input.Drain(p.cfg.BatchSize)
		if len(points) > 0 {
			if err := p.publish(ctx, points); err != nil && ctx.Err() == nil {
				p.logger.Error("publish prices", "error", err, "count", len(points))
			}
			continue
		}
		if p.input.Closed() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-p.input.Ready():
		}
	}
}

func (p *Publisher) publish(ctx context.Context, points []orderbook.PricePoint) error {
	msgs := make([]kafka.Message, 0, len(points))
	key := []byte(p.runID)
	for _, pt := range points {
		value, err := json.Marshal(feed.NewPriceMessage(p.runID, pt))
		if err != nil {
			p.failed.Add(1)
			continue
		}
		msgs = append(msgs, kafka.Message{Key: key, Value: value})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.failed.Add(int64(len(msgs)))
		return fmt.Errorf("write messages: %w", err)
	}
	p.published.Add(int64(len(msgs)))
	p.batches.Add(1)
	return nil
}
