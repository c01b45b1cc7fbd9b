package exchangeevent

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/deelrate-service/internal/config"
	"github.com/krobus00/deelrate-service/internal/constant"
	"github.com/krobus00/deelrate-service/internal/entity"
	"github.com/krobus00/deelrate-service/internal/infrastructure/metrics"
	"github.com/krobus00/deelrate-service/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const defaultLedgerHandlerTimeout = 10 * time.Second

// ExchangeLedgerWorker consumes completion events and appends them to the ledger. Failed
// events are republished with an incremented retry count until maxRetries is reached.
type ExchangeLedgerWorker struct {
	js             nats.JetStreamContext
	republisher    util.EventPublisher
	completionRepo entity.ExchangeCompletionRepository
	metrics        *metrics.ExchangeMetrics
	maxRetries     int
}

func NewExchangeLedgerWorker(js nats.JetStreamContext, completionRepo entity.ExchangeCompletionRepository, m *metrics.ExchangeMetrics, maxRetries int) *ExchangeLedgerWorker {
	if maxRetries <= 0 {
		maxRetries = constant.ExchangeCompletedMaxRetry
	}

	return &ExchangeLedgerWorker{
		js:             js,
		republisher:    js,
		completionRepo: completionRepo,
		metrics:        m,
		maxRetries:     maxRetries,
	}
}

func (w *ExchangeLedgerWorker) JetstreamEventSubscribe(ctx context.Context) error {
	err := initExchangeStream(ctx, w.js)
	if err != nil {
		logrus.Error(err)
		return err
	}

	timeout := defaultLedgerHandlerTimeout
	if config.Env != nil {
		if configured := config.Env.NatsJetstream.TimeoutHandler[constant.ExchangeCompletedHandler]; configured > 0 {
			timeout = configured
		}
	}

	_, err = w.js.QueueSubscribe(
		constant.ExchangeCompletedSubject,
		constant.ExchangeLedgerQueueName,
		func(msg *nats.Msg) {
			err := util.ProcessWithTimeout(timeout, msg, w.handleExchangeCompletedEvent)
			if err != nil {
				logrus.Errorf("error processing message: %v", err)
				return
			}

			err = msg.Ack()
			if err != nil {
				logrus.Errorf("failed to acknowledge message: %v", err)
				return
			}
		},
		nats.ManualAck(),
		nats.Durable(constant.ExchangeLedgerQueueGroup),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", constant.ExchangeCompletedSubject, err)
	}

	return nil
}

// handleExchangeCompletedEvent returns an error only when a failed event could not be
// republished, leaving the message unacked for redelivery.
func (w *ExchangeLedgerWorker) handleExchangeCompletedEvent(ctx context.Context, msg *nats.Msg) (err error) {
	var event entity.ExchangeCompletedEvent
	err = json.Unmarshal(msg.Data, &event)
	if err != nil {
		logrus.WithField("subject", msg.Subject).Error(err)
		w.metrics.CompletionsRecorded.WithLabelValues("invalid").Inc()
		return nil
	}

	logger := logrus.WithFields(logrus.Fields{
		"order_id": event.Data.OrderID,
		"retry":    event.RetryCount,
	})

	appended, err := w.completionRepo.Append(ctx, event.Data)
	if err == nil {
		if appended {
			w.metrics.CompletionsRecorded.WithLabelValues("recorded").Inc()
			logger.Info("exchange completion recorded")
		} else {
			w.metrics.CompletionsRecorded.WithLabelValues("duplicate").Inc()
			logger.Info("exchange completion already recorded")
		}
		return nil
	}

	logger.Error(err)

	event.RetryCount++
	if event.RetryCount >= w.maxRetries {
		w.metrics.CompletionsRecorded.WithLabelValues("dropped").Inc()
		logger.Error("exchange completion dropped after max retries")
		return nil
	}

	err = util.PublishEvent(ctx, w.republisher, constant.ExchangeCompletedSubject, event)
	if err != nil {
		logger.Error(err)
		return err
	}

	w.metrics.CompletionsRecorded.WithLabelValues("retried").Inc()
	return nil
}
