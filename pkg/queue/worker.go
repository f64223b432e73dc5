package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bazaarhq/bazaar-backend/pkg/metrics"
	"github.com/sethvargo/go-retry"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Handler processes one job. Returning an error triggers the retry policy.
type Handler func(ctx context.Context, job Job) error

// Worker consumes job topics in a consumer group and dispatches to per-topic
// handlers. Each job gets a bounded number of attempts with exponential
// backoff; a job that still fails is logged and skipped so the partition
// keeps moving.
type Worker struct {
	cl          *kgo.Client
	log         *zap.Logger
	handlers    map[string]Handler
	maxRetries  uint64
	baseBackoff time.Duration
}

// NewWorker joins group on the given brokers, consuming every topic that
// has a handler.
func NewWorker(brokers []string, group string, handlers map[string]Handler, log *zap.Logger) (*Worker, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	topics := make([]string, 0, len(handlers))
	for topic := range handlers {
		topics = append(topics, topic)
	}
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
	)
	if err != nil {
		return nil, err
	}
	return &Worker{
		cl:          cl,
		log:         log,
		handlers:    handlers,
		maxRetries:  3,
		baseBackoff: 2 * time.Second,
	}, nil
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		fetches := w.cl.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			w.log.Warn("fetch error", zap.String("topic", topic), zap.Int32("partition", partition), zap.Error(err))
		})
		fetches.EachRecord(func(rec *kgo.Record) {
			w.process(ctx, rec)
		})
	}
}

func (w *Worker) process(ctx context.Context, rec *kgo.Record) {
	var job Job
	if err := json.Unmarshal(rec.Value, &job); err != nil {
		w.log.Error("malformed job, skipping", zap.String("topic", rec.Topic), zap.Error(err))
		return
	}
	handler, ok := w.handlers[rec.Topic]
	if !ok {
		w.log.Warn("no handler for topic", zap.String("topic", rec.Topic))
		return
	}

	backoff := retry.WithMaxRetries(w.maxRetries, retry.NewExponential(w.baseBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := handler(ctx, job); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		metrics.JobsProcessed.WithLabelValues(rec.Topic, "failed").Inc()
		w.log.Error("job failed after retries",
			zap.String("topic", rec.Topic),
			zap.String("type", job.Type),
			zap.String("key", string(rec.Key)),
			zap.Error(err))
		return
	}
	metrics.JobsProcessed.WithLabelValues(rec.Topic, "ok").Inc()
	w.log.Info("job processed", zap.String("topic", rec.Topic), zap.String("type", job.Type))
}

// Close leaves the group and releases the client.
func (w *Worker) Close() { w.cl.Close() }
