// Package nats implements the import job queue on NATS JetStream. A
// file-backed work queue stream plus an explicit-ack durable consumer gives
// the durable, at-least-once delivery the import pipeline expects.
package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/belugamedia/beluga/pkg/interfaces"
)

const (
	// jobStreamName holds pending import jobs until a worker acks them.
	jobStreamName = "IMPORT_JOBS"
	// jobSubject is the subject import jobs are published on.
	jobSubject = "imports.jobs"
	// dlqStreamName collects jobs that exhausted their deliveries.
	dlqStreamName = "IMPORT_DLQ"
	// dlqSubject is the subject dead-lettered jobs are published on.
	dlqSubject = "imports.dlq"
)

// ClientConfig holds NATS connection configuration.
type ClientConfig struct {
	URL           string
	ClientID      string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// Client wraps NATS and JetStream connections.
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger interfaces.Logger
}

// NewClient connects to NATS and makes sure the import job streams exist.
func NewClient(cfg ClientConfig, logger interfaces.Logger) (*Client, func(), error) {
	opts := []nats.Option{
		nats.Name(cfg.ClientID),
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", interfaces.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", interfaces.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &Client{
		nc:     nc,
		js:     js,
		logger: logger,
	}

	if err := client.initializeStreams(context.Background()); err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to initialize streams: %w", err)
	}

	cleanup := func() {
		if err := nc.Drain(); err != nil {
			logger.Error("Failed to drain NATS connection", interfaces.Error(err))
		}
		nc.Close()
	}

	logger.Info("NATS client initialized",
		interfaces.String("url", cfg.URL),
		interfaces.String("client_id", cfg.ClientID))

	return client, cleanup, nil
}

// initializeStreams creates the job and dead letter streams.
func (c *Client) initializeStreams(ctx context.Context) error {
	jobStream := jetstream.StreamConfig{
		Name:        jobStreamName,
		Description: "Pending media history import jobs",
		Subjects:    []string{jobSubject},
		Retention:   jetstream.WorkQueuePolicy,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		MaxMsgs:     -1,
		MaxBytes:    -1,
	}
	if _, err := c.js.CreateOrUpdateStream(ctx, jobStream); err != nil {
		return fmt.Errorf("failed to create job stream: %w", err)
	}

	dlqStream := jetstream.StreamConfig{
		Name:        dlqStreamName,
		Description: "Import jobs that exhausted their deliveries",
		Subjects:    []string{dlqSubject},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		MaxMsgs:     -1,
		MaxBytes:    -1,
	}
	if _, err := c.js.CreateOrUpdateStream(ctx, dlqStream); err != nil {
		return fmt.Errorf("failed to create DLQ stream: %w", err)
	}

	return nil
}

// JetStream returns the JetStream context.
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// IsConnected checks if the client is connected.
func (c *Client) IsConnected() bool {
	return c.nc.IsConnected()
}
