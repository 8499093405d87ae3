package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/belugamedia/beluga/internal/importer/domain"
	"github.com/belugamedia/beluga/internal/infrastructure/queue"
	"github.com/belugamedia/beluga/pkg/interfaces"
)

// QueueConfig holds consumer configuration for the job queue.
type QueueConfig struct {
	ConsumerName string
	AckWait      time.Duration
	MaxDeliver   int
}

// Queue is the JetStream-backed import job queue.
type Queue struct {
	client     *Client
	logger     interfaces.Logger
	consumer   string
	ackWait    time.Duration
	maxDeliver int
}

// NewQueue creates a job queue over an established NATS client.
func NewQueue(client *Client, cfg QueueConfig, logger interfaces.Logger) *Queue {
	if cfg.ConsumerName == "" {
		cfg.ConsumerName = "importer"
	}
	if cfg.AckWait == 0 {
		cfg.AckWait = 5 * time.Minute
	}
	if cfg.MaxDeliver == 0 {
		cfg.MaxDeliver = 5
	}
	return &Queue{
		client:     client,
		logger:     logger,
		consumer:   cfg.ConsumerName,
		ackWait:    cfg.AckWait,
		maxDeliver: cfg.MaxDeliver,
	}
}

// Enqueue publishes a job onto the work queue stream.
func (q *Queue) Enqueue(ctx context.Context, job *domain.ImportJob) (string, error) {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal import job: %w", err)
	}
	if _, err := q.client.JetStream().Publish(ctx, jobSubject, data); err != nil {
		return "", fmt.Errorf("failed to publish import job: %w", err)
	}
	return job.JobID, nil
}

// Consume delivers queued jobs to the handler until the context is
// cancelled. Each message is acked only after the handler returns nil, so a
// worker crash redelivers the job.
func (q *Queue) Consume(ctx context.Context, handler queue.Handler) error {
	consumerConfig := jetstream.ConsumerConfig{
		Name:          q.consumer,
		Durable:       q.consumer,
		Description:   "Import job worker",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       q.ackWait,
		MaxDeliver:    q.maxDeliver,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxAckPending: 100,
	}

	consumer, err := q.client.JetStream().CreateOrUpdateConsumer(ctx, jobStreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		q.handleMessage(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer cc.Stop()

	<-ctx.Done()
	return ctx.Err()
}

func (q *Queue) handleMessage(ctx context.Context, msg jetstream.Msg, handler queue.Handler) {
	var job domain.ImportJob
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		q.logger.Error("Failed to unmarshal import job, dead-lettering",
			interfaces.Error(err))
		q.sendToDeadLetterQueue(ctx, msg, err)
		msg.Ack()
		return
	}

	if err := handler(ctx, &job); err != nil {
		q.logger.Error("Import job handler failed",
			interfaces.String("job_id", job.JobID),
			interfaces.Error(err))

		metadata, _ := msg.Metadata()
		if metadata != nil && int(metadata.NumDelivered) >= q.maxDeliver {
			q.sendToDeadLetterQueue(ctx, msg, err)
			msg.Ack()
		} else {
			msg.Nak()
		}
		return
	}

	msg.Ack()
}

// deadLetterMessage wraps a job that exhausted its deliveries.
type deadLetterMessage struct {
	OriginalSubject string    `json:"original_subject"`
	OriginalData    []byte    `json:"original_data"`
	Error           string    `json:"error"`
	Timestamp       time.Time `json:"timestamp"`
	NumDelivered    uint64    `json:"num_delivered"`
	Consumer        string    `json:"consumer"`
}

func (q *Queue) sendToDeadLetterQueue(ctx context.Context, msg jetstream.Msg, originalErr error) {
	dlq := deadLetterMessage{
		OriginalSubject: msg.Subject(),
		OriginalData:    msg.Data(),
		Error:           originalErr.Error(),
		Timestamp:       time.Now().UTC(),
		Consumer:        q.consumer,
	}
	if metadata, err := msg.Metadata(); err == nil && metadata != nil {
		dlq.NumDelivered = metadata.NumDelivered
	}

	data, err := json.Marshal(dlq)
	if err != nil {
		q.logger.Error("Failed to marshal DLQ message", interfaces.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := q.client.JetStream().Publish(pubCtx, dlqSubject, data); err != nil {
		q.logger.Error("Failed to send job to DLQ", interfaces.Error(err))
		return
	}
	q.logger.Warn("Import job sent to dead letter queue",
		interfaces.String("error", originalErr.Error()),
		interfaces.Any("deliveries", dlq.NumDelivered))
}
