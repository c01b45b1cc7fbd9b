package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/krobus00/deelrate-service/internal/config"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	defaultNatsMaxRetries      = 10
	defaultNatsBackoffFactor   = 2.0
	defaultNatsMinJitter       = 100 * time.Millisecond
	defaultNatsMaxJitter       = 2 * time.Second
	defaultNatsConnectTimeout  = 5 * time.Second
	defaultNatsDrainTimeout    = 10 * time.Second
	defaultNatsPingInterval    = 30 * time.Second
	defaultNatsPingOutstanding = 3
	defaultJetStreamMaxWait    = 5 * time.Second
	defaultJetStreamMaxPending = 256

	natsDrainPollInterval = 50 * time.Millisecond
)

// NewJetstream connects to cfg.URL and returns the connection with its JetStream context.
// The client keeps reconnecting in the background with jittered exponential delays.
func NewJetstream(cfg config.NatsJetstreamConfig) (*nats.Conn, nats.JetStreamContext, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, nil, errors.New("nats jetstream url is required")
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultNatsMaxRetries
	}

	delay := natsReconnectDelay{
		factor: cfg.ReconnectFactor,
		min:    cfg.MinJitter,
		max:    cfg.MaxJitter,
	}
	if delay.factor < 1 {
		delay.factor = defaultNatsBackoffFactor
	}
	if delay.min <= 0 {
		delay.min = defaultNatsMinJitter
	}
	if delay.max <= 0 {
		delay.max = defaultNatsMaxJitter
	}
	if delay.max < delay.min {
		delay.max = delay.min
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(config.ServiceName),
		nats.Timeout(defaultNatsConnectTimeout),
		nats.DrainTimeout(defaultNatsDrainTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(maxRetries),
		nats.PingInterval(defaultNatsPingInterval),
		nats.MaxPingsOutstanding(defaultNatsPingOutstanding),
		nats.CustomReconnectDelay(delay.next),
		nats.DisconnectErrHandler(func(_ *nats.Conn, disErr error) {
			logrus.WithError(disErr).Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			logrus.WithField("url", conn.ConnectedUrl()).Info("nats reconnected")
		}),
		nats.ClosedHandler(func(conn *nats.Conn) {
			logrus.WithError(conn.LastError()).Warn("nats connection closed")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream(
		nats.PublishAsyncMaxPending(defaultJetStreamMaxPending),
		nats.MaxWait(defaultJetStreamMaxWait),
	)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"url":         cfg.URL,
		"max_retries": maxRetries,
	}).Info("nats jetstream connection established")

	return nc, js, nil
}

type natsReconnectDelay struct {
	factor float64
	min    time.Duration
	max    time.Duration
}

// next grows min by factor per attempt, adds up to max-min of jitter and never exceeds max.
func (d natsReconnectDelay) next(attempt int) time.Duration {
	backoff := time.Duration(math.Min(float64(d.min)*math.Pow(d.factor, float64(attempt)), float64(d.max)))
	if d.max <= d.min {
		return backoff
	}

	return min(backoff+rand.N(d.max-d.min+1), d.max)
}

// CloseJetstream drains nc and waits until the drain has closed it, so subscription handlers
// finish before the caller releases what they use.
func CloseJetstream(ctx context.Context, nc *nats.Conn) error {
	if nc == nil {
		return nil
	}

	if err := nc.Drain(); err != nil {
		nc.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}

	ticker := time.NewTicker(natsDrainPollInterval)
	defer ticker.Stop()
	for !nc.IsClosed() {
		select {
		case <-ctx.Done():
			nc.Close()
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return nil
}
