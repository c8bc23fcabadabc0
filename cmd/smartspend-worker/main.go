package main

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"smartspend/internal/amqp"
	"smartspend/internal/cli"
	"smartspend/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("smartspend-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting smartspend-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The broker may come up after the worker; retry the dial with backoff.
	var amqpClient *amqp.Client
	dial := func() error {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP dial failed, retrying", "error", err)
		}
		return err
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(dial, backoff.WithContext(policy, ctx)); err != nil {
		logger.Error("Failed to connect to AMQP", "error", err)
		return
	}
	defer amqpClient.Close()
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	auditWorker := worker.NewAuditWorker(repo, cfg.AuditRetention)

	// A shutdown signal cancels ctx, which winds down both goroutines.
	cli.GracefulShutdown(logger, 30*time.Second, cancel)

	g, gctx := errgroup.WithContext(ctx)

	// Consume category-change events into the audit trail.
	g.Go(func() error {
		err := amqpClient.ConsumeCategoryChanges(gctx, func(msg *amqp.CategoryChangeMessage) error {
			return auditWorker.HandleCategoryChange(gctx, msg)
		})
		if err == context.Canceled {
			return nil
		}
		return err
	})

	// Prune expired audit rows on an interval.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.PruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := auditWorker.PruneExpired(gctx); err != nil {
					logger.Error("Audit prune failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
	}
	logger.Info("Worker shutdown complete")
}
