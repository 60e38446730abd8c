package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/config"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/logger"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/storage"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/store/rabbitmq"
)

const (
	recordTimeout  = 10 * time.Second
	maxRetries     = 3
	retryBaseDelay = 5 * time.Second
)

// retrier sends a delivery back through the delayed retry queue.
type retrier interface {
	Retry(ctx context.Context, d amqp.Delivery, delay time.Duration) error
}

// retryDelay doubles per attempt: 5s, 10s, 20s.
func retryDelay(attempt int) time.Duration {
	return retryBaseDelay << attempt
}

func workerConcurrency(n int) int {
	if n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logCloser.Close()
	log = log.Named("audit-worker")

	if cfg.Rabbit.URL == "" {
		return errors.New("rabbit.url is required for the audit worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s3Client, err := storage.NewS3Client(ctx, cfg.Storage.Region)
	if err != nil {
		return err
	}
	sink := storage.NewS3Audit(s3Client, cfg.Storage.AuditBucket)

	//  strict concurrency control
	concurrency := workerConcurrency(cfg.Rabbit.Workers)

	consumer, err := rabbitmq.NewConsumer(cfg.Rabbit.URL, cfg.Rabbit.AuditQueue, concurrency)
	if err != nil {
		return fmt.Errorf("rabbit consumer: %w", err)
	}
	defer consumer.Close()

	msgs, err := consumer.Deliveries()
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	log.Infow("worker started", "queue", cfg.Rabbit.AuditQueue, "concurrency", concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				handle(ctx, sink, consumer, log.With("worker", workerID), d)
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Infow("worker shutting down")
			close(jobs)
			wg.Wait()
			return nil

		case d, ok := <-msgs:
			if !ok {
				close(jobs)
				wg.Wait()
				return errors.New("delivery channel closed")
			}
			jobs <- d
		}
	}
}

// handle writes one entry. Undecodable entries are nacked without requeue and
// land in the dead-letter queue. Failed writes go through the retry queue up
// to maxRetries times before they are dead-lettered too.
func handle(ctx context.Context, sink storage.AuditSink, retry retrier, log logger.Interface, d amqp.Delivery) {
	e, err := storage.DecodeAuditEntry(d.Body)
	if err != nil {
		log.Warnw("bad message", "error", err)
		_ = d.Nack(false, false)
		return
	}

	rctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	start := time.Now()
	if err := sink.Record(rctx, e); err != nil {
		attempt := rabbitmq.RetryCount(d)
		log.Errorw("audit write failed", "user_id", e.UserID, "action", e.Action, "attempt", attempt, "cost", time.Since(start), "error", err)
		if attempt >= maxRetries {
			_ = d.Nack(false, false)
			return
		}
		if err := retry.Retry(ctx, d, retryDelay(attempt)); err != nil {
			log.Errorw("retry publish failed", "user_id", e.UserID, "error", err)
			_ = d.Nack(false, false)
			return
		}
		_ = d.Ack(false)
		return
	}
	if err := d.Ack(false); err != nil {
		log.Warnw("ack failed", "user_id", e.UserID, "error", err)
	}
}
