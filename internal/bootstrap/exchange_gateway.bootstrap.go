package bootstrap

import (
	"context"
	"strings"

	"github.com/krobus00/deelrate-service/internal/config"
	"github.com/krobus00/deelrate-service/internal/constant"
	"github.com/krobus00/deelrate-service/internal/entity"
	httpHandler "github.com/krobus00/deelrate-service/internal/handler/exchange/http"
	"github.com/krobus00/deelrate-service/internal/infrastructure"
	"github.com/krobus00/deelrate-service/internal/infrastructure/metrics"
	"github.com/krobus00/deelrate-service/internal/repository"
	"github.com/krobus00/deelrate-service/internal/service/depositaddress"
	"github.com/krobus00/deelrate-service/internal/service/exchangeevent"
	"github.com/krobus00/deelrate-service/internal/service/exchangeorder"
	"github.com/krobus00/deelrate-service/internal/service/rate"
	"github.com/krobus00/deelrate-service/internal/service/rateprovider"
	"github.com/krobus00/deelrate-service/internal/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartExchangeGateway(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConfig := config.Env.Database[constant.ExchangeDatabaseName]
	db, err := infrastructure.NewPostgresConnection(ctx, dbConfig)
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, db, dbConfig.PingInterval)

	redisClient, err := infrastructure.NewRedisClient(ctx, config.Env.Redis[constant.CacheRedisName])
	util.ContinueOrFatal(err)

	nc, js, err := infrastructure.NewJetstream(config.Env.NatsJetstream)
	util.ContinueOrFatal(err)

	exchangeMetrics := metrics.NewExchangeMetrics(prometheus.DefaultRegisterer)

	var rateCache rate.RateCacheStore
	switch strings.ToLower(strings.TrimSpace(config.Env.Rate.Cache)) {
	case constant.RateCacheMemory:
		rateCache = rate.NewMemoryRateCacheStore()
	default:
		rateCache = rate.NewRedisRateCacheStore(redisClient)
	}

	coinAPIProvider := rateprovider.NewCoinAPIProvider(config.Env.CoinAPI, nil, exchangeMetrics)
	rateService := rate.NewRateService(coinAPIProvider, rateCache, exchangeMetrics, config.Env.Rate.MaxConcurrency)

	depositAddressService, err := depositaddress.NewDepositAddressService(config.Env.DepositAddresses)
	util.ContinueOrFatal(err)

	exchangeOrderRepo := repository.NewExchangeOrderRepository(db)
	orderLockStore := exchangeorder.NewRedisOrderLockStore(redisClient)
	exchangeEventPublisher := exchangeevent.NewExchangeEventPublisher(js)

	exchangeOrderService := exchangeorder.NewExchangeOrderService(
		exchangeOrderRepo,
		rateService,
		depositAddressService,
		exchangeEventPublisher,
		orderLockStore,
		config.Env.OrderLock.TTL,
		exchangeMetrics,
	)

	publishers := []entity.Publisher{exchangeEventPublisher}
	for _, v := range publishers {
		err = v.JetstreamEventInit(ctx)
		util.ContinueOrFatal(err)
	}

	httpMux := infrastructure.NewServeMux(prometheus.DefaultGatherer, map[string]infrastructure.ReadinessCheck{
		"postgres": postgresReadiness(db),
		"redis":    redisReadiness(redisClient),
	})
	httpHandler.NewExchangeHTTPHandler(exchangeOrderService, rateService).Register(httpMux)

	httpServerConfig := infrastructure.DefaultHTTPServerConfig()
	httpServerConfig.ShutdownTimeout = config.Env.GracefulShutdownTimeout
	httpServer := infrastructure.NewHTTPServerWithConfig(httpServerConfig, httpMux)

	go func() {
		err := httpServer.Start()
		if err != nil {
			logrus.Fatal(err)
		}
	}()

	// in-flight requests drain before the stores they use are closed
	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, shutdownStage{
		"http": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	}, shutdownStage{
		"database": func(ctx context.Context) error {
			return db.Close()
		},
		"redis": func(ctx context.Context) error {
			return redisClient.Close()
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(ctx, nc)
		},
	})

	<-wait
}
