package bootstrap

import (
	"context"

	"github.com/krobus00/deelrate-service/internal/config"
	"github.com/krobus00/deelrate-service/internal/constant"
	"github.com/krobus00/deelrate-service/internal/entity"
	"github.com/krobus00/deelrate-service/internal/infrastructure"
	"github.com/krobus00/deelrate-service/internal/infrastructure/metrics"
	"github.com/krobus00/deelrate-service/internal/repository"
	"github.com/krobus00/deelrate-service/internal/service/exchangeevent"
	"github.com/krobus00/deelrate-service/internal/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartExchangeLedgerWorker(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConfig := config.Env.Database[constant.ExchangeDatabaseName]
	db, err := infrastructure.NewPostgresConnection(ctx, dbConfig)
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, db, dbConfig.PingInterval)

	nc, js, err := infrastructure.NewJetstream(config.Env.NatsJetstream)
	util.ContinueOrFatal(err)

	exchangeMetrics := metrics.NewExchangeMetrics(prometheus.DefaultRegisterer)

	completionRepo := repository.NewExchangeCompletionRepository(db)
	ledgerWorker := exchangeevent.NewExchangeLedgerWorker(
		js,
		completionRepo,
		exchangeMetrics,
		config.Env.NatsJetstream.HandlerMaxRetry[constant.ExchangeCompletedHandler],
	)

	subscribers := []entity.Subscriber{ledgerWorker}
	for _, subscriber := range subscribers {
		err = subscriber.JetstreamEventSubscribe(ctx)
		util.ContinueOrFatal(err)
	}

	httpMux := infrastructure.NewServeMux(prometheus.DefaultGatherer, map[string]infrastructure.ReadinessCheck{
		"postgres": postgresReadiness(db),
	})

	httpServerConfig := infrastructure.DefaultHTTPServerConfig()
	httpServerConfig.ShutdownTimeout = config.Env.GracefulShutdownTimeout
	httpServer := infrastructure.NewHTTPServerWithConfig(httpServerConfig, httpMux)

	go func() {
		err := httpServer.Start()
		if err != nil {
			logrus.Fatal(err)
		}
	}()

	logrus.Info("exchange ledger worker started")

	// draining nats lets running handlers finish their writes before the database closes
	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, shutdownStage{
		"http": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(ctx, nc)
		},
	}, shutdownStage{
		"database": func(ctx context.Context) error {
			return db.Close()
		},
	})

	<-wait
}
