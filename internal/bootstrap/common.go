package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/krobus00/deelrate-service/internal/infrastructure"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type operation func(ctx context.Context) error

// shutdownStage ops run concurrently. A stage starts once the previous one has finished.
type shutdownStage map[string]operation

// gracefulShutdown waits for a termination signal, then runs the cleanup stages in order.
// The process exits when the stages do not finish within timeout.
func gracefulShutdown(ctx context.Context, timeout time.Duration, stages ...shutdownStage) <-chan struct{} {
	wait := make(chan struct{})
	go func() {
		s := make(chan os.Signal, 1)
		signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		sig := <-s

		logrus.WithField("signal", sig.String()).Info("shutting down")

		timeoutFunc := time.AfterFunc(timeout, func() {
			logrus.Errorf("timeout %d ms has been elapsed, force exit", timeout.Milliseconds())
			os.Exit(0)
		})
		defer timeoutFunc.Stop()

		runShutdownStages(ctx, stages)
		close(wait)
	}()

	return wait
}

func runShutdownStages(ctx context.Context, stages []shutdownStage) {
	for _, stage := range stages {
		var wg sync.WaitGroup
		for key, op := range stage {
			wg.Add(1)
			go func() {
				defer wg.Done()

				logger := logrus.WithField("resource", key)
				logger.Info("cleaning up")
				if err := op(ctx); err != nil {
					logger.Errorf("clean up failed: %v", err)
					return
				}

				logger.Info("shutdown gracefully")
			}()
		}
		wg.Wait()
	}
}

func postgresReadiness(db *sqlx.DB) infrastructure.ReadinessCheck {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}

func redisReadiness(client *redis.Client) infrastructure.ReadinessCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
