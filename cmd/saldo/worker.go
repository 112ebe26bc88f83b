package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"saldo/internal/amqp"
	"saldo/internal/backend"
	"saldo/internal/cli"
	"saldo/internal/log"
	"saldo/internal/worker"
)

func workerCmd() *cobra.Command {
	wc := worker.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Mirror confirmed changes into the ledger",
		Long: `Consume change events from the broker and append one ledger row per
confirmed create, update, delete or budget close.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context(), wc)
		},
	}
	cmd.Flags().IntVar(&wc.RecentWindow, "recent-window", wc.RecentWindow, "number of written change ids remembered to skip redeliveries")
	cmd.Flags().DurationVar(&wc.RecentTTL, "recent-ttl", wc.RecentTTL, "how long a written change id is remembered")
	cmd.Flags().DurationVar(&wc.AppendTimeout, "append-timeout", wc.AppendTimeout, "timeout of one ledger write")
	return cmd
}

func runWorker(ctx context.Context, wc worker.Config) error {
	if !cfg.RequiresAMQP() {
		return errors.New("amqp.url is required to run the worker")
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	ledger, err := backend.NewFactory(logger).CreateLedger(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.Error("Failed to close ledger", log.FieldError, err.Error())
		}
	}()

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	w := worker.NewLedgerWorker(consumer, ledger.Ledger, wc, logger)
	if err := w.Start(ctx); err != nil {
		return err
	}
	logger.Info("Starting saldo worker", "ledger", bcfg.Type.String(), "queue", cfg.AMQPQueue)

	select {
	case <-w.Done():
		// The consumer gave up on its own.
		_ = w.Stop(context.Background())
		return w.Err()
	case <-ctx.Done():
	}
	return cli.GracefulShutdown(ctx, logger, 30*time.Second, w.Stop)
}
