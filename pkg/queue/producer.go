// Package queue provides Kafka-backed background jobs: a fire-and-forget
// producer for the request path and a consuming worker with bounded retry.
package queue

import (
	"context"
	"encoding/json"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Producer enqueues jobs. The broker connection is optional: with no
// brokers configured (or a failed connect) every Enqueue becomes a logged
// no-op, so a request never blocks or fails because the job backend is down.
type Producer struct {
	cl  *kgo.Client
	log *zap.Logger
}

// NewProducer connects to the given brokers. An empty broker list or a
// connection error yields a disabled producer.
func NewProducer(brokers []string, log *zap.Logger) *Producer {
	p := &Producer{log: log}
	if len(brokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, background jobs disabled")
		return p
	}
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		log.Warn("kafka unavailable, background jobs disabled", zap.Error(err))
		return p
	}
	p.cl = cl
	log.Info("kafka producer ready", zap.Strings("brokers", brokers))
	return p
}

// NewDisabledProducer returns a producer permanently in the unavailable state.
func NewDisabledProducer(log *zap.Logger) *Producer { return &Producer{log: log} }

// Available reports whether the job backend is connected.
func (p *Producer) Available() bool { return p != nil && p.cl != nil }

// Enqueue publishes a job keyed by entity id. Delivery is asynchronous and
// failures are logged, never surfaced to the caller.
func (p *Producer) Enqueue(ctx context.Context, topic, key string, job Job) {
	if !p.Available() {
		return
	}
	value, err := json.Marshal(job)
	if err != nil {
		p.log.Error("marshal job", zap.String("topic", topic), zap.String("type", job.Type), zap.Error(err))
		return
	}
	rec := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	p.cl.Produce(ctx, rec, func(_ *kgo.Record, err error) {
		if err != nil {
			p.log.Warn("enqueue failed",
				zap.String("topic", topic),
				zap.String("type", job.Type),
				zap.String("key", key),
				zap.Error(err))
		}
	})
}

// Close flushes and releases the client.
func (p *Producer) Close() {
	if p.Available() {
		p.cl.Close()
	}
}
