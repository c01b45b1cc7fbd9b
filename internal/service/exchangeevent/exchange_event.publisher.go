package exchangeevent

import (
	"context"
	"errors"
	"time"

	"github.com/krobus00/deelrate-service/internal/constant"
	"github.com/krobus00/deelrate-service/internal/entity"
	"github.com/krobus00/deelrate-service/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

var ErrPublishExchangeCompletedFailed = errors.New("failed to publish exchange completed event")

type ExchangeEventPublisher struct {
	js        nats.JetStreamContext
	publisher util.EventPublisher
}

func NewExchangeEventPublisher(js nats.JetStreamContext) *ExchangeEventPublisher {
	return &ExchangeEventPublisher{
		js:        js,
		publisher: js,
	}
}

func (p *ExchangeEventPublisher) JetstreamEventInit(ctx context.Context) error {
	return initExchangeStream(ctx, p.js)
}

func (p *ExchangeEventPublisher) PublishExchangeCompleted(ctx context.Context, completed entity.ExchangeCompleted) error {
	event := entity.ExchangeCompletedEvent{
		RetryCount: 0,
		Data:       completed,
	}

	err := util.PublishEvent(ctx, p.publisher, constant.ExchangeCompletedSubject, event)
	if err != nil {
		logrus.WithField("order_id", completed.OrderID).Error(err)
		return errors.Join(ErrPublishExchangeCompletedFailed, err)
	}

	return nil
}

func initExchangeStream(ctx context.Context, js nats.JetStreamContext) error {
	streamConfig := &nats.StreamConfig{
		Name:      constant.ExchangeStreamName,
		Subjects:  []string{constant.ExchangeStreamSubjectAll},
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.FileStorage,
		MaxAge:    7 * 24 * time.Hour,
	}

	stream, err := js.StreamInfo(constant.ExchangeStreamName, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		logrus.Error(err)
		return err
	}

	if stream == nil {
		logrus.Infof("creating stream: %s", constant.ExchangeStreamName)
		_, err = js.AddStream(streamConfig, nats.Context(ctx))
		return err
	}

	logrus.Infof("updating stream: %s", constant.ExchangeStreamName)
	_, err = js.UpdateStream(streamConfig, nats.Context(ctx))
	if err != nil {
		logrus.Error(err)
		return err
	}

	return nil
}
